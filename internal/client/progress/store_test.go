package progress

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/port"
)

// fakeCourses is an in-memory server that applies mutations canonically.
type fakeCourses struct {
	mu      sync.Mutex
	courses map[string]*domain.Course
	order   []string

	getGate   map[string]chan struct{}
	markGate  chan struct{}
	deleteErr error
	markErr   error
	active    atomic.Int32
	maxActive atomic.Int32
	pdf       []byte
}

func newFakeCourses(courses ...domain.Course) *fakeCourses {
	f := &fakeCourses{courses: map[string]*domain.Course{}, getGate: map[string]chan struct{}{}}
	for _, c := range courses {
		c := c
		f.courses[c.ID] = &c
		f.order = append(f.order, c.ID)
	}
	return f
}

func (f *fakeCourses) List(context.Context) ([]domain.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Course, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, *f.courses[id])
	}
	return out, nil
}

func (f *fakeCourses) Get(ctx context.Context, id string) (*domain.Course, error) {
	f.mu.Lock()
	gate := f.getGate[id]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.courses[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCourses) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.courses, id)
	f.order = slices.DeleteFunc(f.order, func(s string) bool { return s == id })
	return nil
}

func (f *fakeCourses) UpdateProgress(_ context.Context, id string, patch domain.ProgressPatch) (*domain.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.courses[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	if patch.CurrentLessonID != nil {
		if *patch.CurrentLessonID == "" {
			c.Progress.CurrentLessonID = nil
		} else {
			v := *patch.CurrentLessonID
			c.Progress.CurrentLessonID = &v
		}
	}
	if patch.CompletedLessons != nil {
		c.Progress.CompletedLessons = slices.Clone(patch.CompletedLessons)
	}
	c.Progress.PercentComplete = domain.PercentComplete(len(c.Progress.CompletedLessons), len(c.Lessons))
	cp := *c
	return &cp, nil
}

func (f *fakeCourses) MarkLessonComplete(_ context.Context, id, lessonID string) (*domain.Course, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	if f.markGate != nil {
		<-f.markGate
	}
	if f.markErr != nil {
		return nil, f.markErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.courses[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	if !slices.Contains(c.Progress.CompletedLessons, lessonID) {
		c.Progress.CompletedLessons = append(slices.Clone(c.Progress.CompletedLessons), lessonID)
	}
	c.Progress.PercentComplete = domain.PercentComplete(len(c.Progress.CompletedLessons), len(c.Lessons))
	cp := *c
	cp.Progress.CompletedLessons = slices.Clone(c.Progress.CompletedLessons)
	return &cp, nil
}

func (f *fakeCourses) ExportPDF(context.Context, string) ([]byte, error) {
	return f.pdf, nil
}

func sampleCourse(id string, lessons int) domain.Course {
	c := domain.Course{ID: id, Title: "Course " + id}
	for i := range lessons {
		c.Lessons = append(c.Lessons, domain.Lesson{ID: id + "-l" + string(rune('1'+i)), Title: "Lesson"})
	}
	return c
}

func TestFetch_AdoptsServerCourse(t *testing.T) {
	api := newFakeCourses(sampleCourse("c1", 3))
	s := New(api, nil)

	c, err := s.Fetch(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "c1", cur.ID)
	assert.NoError(t, s.Err())
}

func TestFetch_NotFoundSetsError(t *testing.T) {
	s := New(newFakeCourses(), nil)

	_, err := s.Fetch(context.Background(), "missing")
	require.ErrorIs(t, err, port.ErrNotFound)
	assert.ErrorIs(t, s.Err(), port.ErrNotFound)

	_, ok := s.Current()
	assert.False(t, ok)
}

func TestMarkComplete_PercentTracksServer(t *testing.T) {
	api := newFakeCourses(sampleCourse("c1", 4))
	s := New(api, nil)
	ctx := context.Background()
	_, err := s.Fetch(ctx, "c1")
	require.NoError(t, err)

	c, err := s.MarkComplete(ctx, "c1", "c1-l1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1-l1"}, c.Progress.CompletedLessons)
	assert.Equal(t, 25, c.Progress.PercentComplete)
	assert.NoError(t, c.CheckProgress())

	cur, _ := s.Current()
	assert.Equal(t, c, cur)
}

func TestMarkComplete_Idempotent(t *testing.T) {
	api := newFakeCourses(sampleCourse("c1", 3))
	s := New(api, nil)
	ctx := context.Background()
	_, err := s.Fetch(ctx, "c1")
	require.NoError(t, err)

	first, err := s.MarkComplete(ctx, "c1", "c1-l2")
	require.NoError(t, err)
	second, err := s.MarkComplete(ctx, "c1", "c1-l2")
	require.NoError(t, err)

	assert.Equal(t, first.Progress, second.Progress)
	assert.Len(t, second.Progress.CompletedLessons, 1)
	assert.Equal(t, 33, second.Progress.PercentComplete)
}

func TestMarkComplete_FailureKeepsLocalCopy(t *testing.T) {
	api := newFakeCourses(sampleCourse("c1", 2))
	s := New(api, nil)
	ctx := context.Background()
	before, err := s.Fetch(ctx, "c1")
	require.NoError(t, err)

	api.markErr = port.ErrNetwork
	_, err = s.MarkComplete(ctx, "c1", "c1-l1")
	require.ErrorIs(t, err, port.ErrNetwork)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, before, cur)
	assert.ErrorIs(t, s.Err(), port.ErrNetwork)
}

func TestMarkComplete_SerializedPerCourse(t *testing.T) {
	api := newFakeCourses(sampleCourse("c1", 5))
	api.markGate = make(chan struct{})
	s := New(api, nil)
	ctx := context.Background()
	_, err := s.Fetch(ctx, "c1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, l := range []string{"c1-l1", "c1-l2", "c1-l3"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.MarkComplete(ctx, "c1", l)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(30 * time.Millisecond)
	close(api.markGate)
	wg.Wait()

	assert.Equal(t, int32(1), api.maxActive.Load())
	cur, _ := s.Current()
	assert.ElementsMatch(t, []string{"c1-l1", "c1-l2", "c1-l3"}, cur.Progress.CompletedLessons)
	assert.Equal(t, 60, cur.Progress.PercentComplete)
}

func TestMarkComplete_WaitRespectsContext(t *testing.T) {
	api := newFakeCourses(sampleCourse("c1", 2))
	api.markGate = make(chan struct{})
	s := New(api, nil)
	_, err := s.Fetch(context.Background(), "c1")
	require.NoError(t, err)

	go func() { _, _ = s.MarkComplete(context.Background(), "c1", "c1-l1") }()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.MarkComplete(ctx, "c1", "c1-l2")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(api.markGate)
}

func TestFetch_StaleResultDropped(t *testing.T) {
	api := newFakeCourses(sampleCourse("c1", 2), sampleCourse("c2", 2))
	gate := make(chan struct{})
	api.getGate["c1"] = gate
	s := New(api, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := s.Fetch(ctx, "c1")
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)

	_, err := s.Fetch(ctx, "c2")
	require.NoError(t, err)
	close(gate)

	assert.ErrorIs(t, <-done, port.ErrStaleResult)
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "c2", cur.ID)
}

func TestMarkComplete_AfterLeaveIsStale(t *testing.T) {
	api := newFakeCourses(sampleCourse("c1", 2))
	api.markGate = make(chan struct{})
	s := New(api, nil)
	ctx := context.Background()
	_, err := s.Fetch(ctx, "c1")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.MarkComplete(ctx, "c1", "c1-l1")
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	s.Leave()
	close(api.markGate)

	assert.ErrorIs(t, <-done, port.ErrStaleResult)
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestUpdateProgress_SetAndClearCurrent(t *testing.T) {
	api := newFakeCourses(sampleCourse("c1", 3))
	s := New(api, nil)
	ctx := context.Background()
	_, err := s.Fetch(ctx, "c1")
	require.NoError(t, err)

	lesson := "c1-l3"
	c, err := s.UpdateProgress(ctx, "c1", domain.ProgressPatch{CurrentLessonID: &lesson})
	require.NoError(t, err)
	require.NotNil(t, c.Progress.CurrentLessonID)
	assert.Equal(t, "c1-l3", *c.Progress.CurrentLessonID)

	empty := ""
	c, err = s.UpdateProgress(ctx, "c1", domain.ProgressPatch{CurrentLessonID: &empty})
	require.NoError(t, err)
	assert.Nil(t, c.Progress.CurrentLessonID)
}

func TestList_PreservesServerOrder(t *testing.T) {
	api := newFakeCourses(sampleCourse("new", 1), sampleCourse("old", 1))
	s := New(api, nil)

	courses, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "new", courses[0].ID)
	assert.Equal(t, "old", courses[1].ID)
}

func TestMutation_RefreshesListingEntry(t *testing.T) {
	api := newFakeCourses(sampleCourse("c1", 2), sampleCourse("c2", 2))
	s := New(api, nil)
	ctx := context.Background()
	_, err := s.List(ctx)
	require.NoError(t, err)
	_, err = s.Fetch(ctx, "c2")
	require.NoError(t, err)

	_, err = s.MarkComplete(ctx, "c2", "c2-l1")
	require.NoError(t, err)

	listing := s.Courses()
	assert.Equal(t, 50, listing[1].Progress.PercentComplete)
	assert.Equal(t, 0, listing[0].Progress.PercentComplete)
}

func TestMarkComplete_CourseNotOpen(t *testing.T) {
	api := newFakeCourses(sampleCourse("c1", 2), sampleCourse("c2", 2))
	s := New(api, nil)
	ctx := context.Background()
	_, err := s.List(ctx)
	require.NoError(t, err)
	_, err = s.Fetch(ctx, "c1")
	require.NoError(t, err)

	c, err := s.MarkComplete(ctx, "c2", "c2-l1")
	require.NoError(t, err)
	assert.Equal(t, 50, c.Progress.PercentComplete)
	assert.Equal(t, 50, s.Courses()[1].Progress.PercentComplete)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "c1", cur.ID, "the open view keeps its course")

	s.Leave()
	c, err = s.MarkComplete(ctx, "c1", "c1-l2")
	require.NoError(t, err)
	assert.Equal(t, 50, c.Progress.PercentComplete)
	_, ok = s.Current()
	assert.False(t, ok)
}

func TestMutation_ReleasesCourseSlot(t *testing.T) {
	api := newFakeCourses(sampleCourse("c1", 3))
	api.markGate = make(chan struct{})
	s := New(api, nil)
	ctx := context.Background()
	_, err := s.Fetch(ctx, "c1")
	require.NoError(t, err)

	go func() { _, _ = s.MarkComplete(ctx, "c1", "c1-l1") }()
	time.Sleep(20 * time.Millisecond)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = s.MarkComplete(waitCtx, "c1", "c1-l2")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	close(api.markGate)

	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.inflight) == 0
	}, time.Second, 5*time.Millisecond)

	_, err = s.UpdateProgress(ctx, "c1", domain.ProgressPatch{CompletedLessons: []string{}})
	require.NoError(t, err)
	s.mu.Lock()
	assert.Empty(t, s.inflight)
	s.mu.Unlock()
}

func TestDelete_RemovesOnSuccess(t *testing.T) {
	api := newFakeCourses(sampleCourse("c1", 1), sampleCourse("c2", 1))
	s := New(api, nil)
	ctx := context.Background()
	_, err := s.List(ctx)
	require.NoError(t, err)
	_, err = s.Fetch(ctx, "c1")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "c1"))

	listing := s.Courses()
	require.Len(t, listing, 1)
	assert.Equal(t, "c2", listing[0].ID)
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestDelete_FailureLeavesListing(t *testing.T) {
	api := newFakeCourses(sampleCourse("c1", 1), sampleCourse("c2", 1))
	s := New(api, nil)
	ctx := context.Background()
	before, err := s.List(ctx)
	require.NoError(t, err)

	api.deleteErr = errors.Join(port.ErrRemoteRejection, errors.New("500"))
	err = s.Delete(ctx, "c1")
	require.ErrorIs(t, err, port.ErrRemoteRejection)

	assert.Equal(t, before, s.Courses())
	assert.ErrorIs(t, s.Err(), port.ErrRemoteRejection)
}

func TestAdopt_PrependsAndSelects(t *testing.T) {
	api := newFakeCourses(sampleCourse("c1", 1))
	s := New(api, nil)
	_, err := s.List(context.Background())
	require.NoError(t, err)

	s.Adopt(sampleCourse("fresh", 2))

	listing := s.Courses()
	require.Len(t, listing, 2)
	assert.Equal(t, "fresh", listing[0].ID)
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "fresh", cur.ID)
}

func TestExport_WritesSanitizedFilename(t *testing.T) {
	api := newFakeCourses(sampleCourse("c1", 1))
	api.pdf = []byte("%PDF-1.4\n")
	s := New(api, nil)
	dir := t.TempDir()

	path, err := s.Export(context.Background(), "c1", "Go: Basics & More", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Go__Basics___More.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, api.pdf, data)
}
