// Package progress owns the client copy of courses and their progress.
//
// The server is canonical: every mutation round-trips and the returned course
// replaces the local copy wholesale. No local delta is ever applied.
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/port"
)

// CoursesAPI is the remote side of the store.
type CoursesAPI interface {
	List(ctx context.Context) ([]domain.Course, error)
	Get(ctx context.Context, courseID string) (*domain.Course, error)
	Delete(ctx context.Context, courseID string) error
	UpdateProgress(ctx context.Context, courseID string, patch domain.ProgressPatch) (*domain.Course, error)
	MarkLessonComplete(ctx context.Context, courseID, lessonID string) (*domain.Course, error)
	ExportPDF(ctx context.Context, courseID string) ([]byte, error)
}

// Store holds the course listing and the currently viewed course.
type Store struct {
	api    CoursesAPI
	logger *slog.Logger

	mu       sync.Mutex
	courses  []domain.Course
	current  *domain.Course
	view     uint64 // bumped whenever the viewed course changes
	viewID   string
	lastErr  error
	inflight map[string]*slot
}

// slot serializes mutations for one course. refs counts the holder and
// waiters; the entry is dropped when it reaches zero.
type slot struct {
	ch   chan struct{}
	refs int
}

// New creates an empty store.
func New(api CoursesAPI, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		api:      api,
		logger:   logger,
		inflight: make(map[string]*slot),
	}
}

// Courses returns a copy of the listing.
func (s *Store) Courses() []domain.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.courses)
}

// Current returns the course of the current view, if loaded.
func (s *Store) Current() (domain.Course, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.Course{}, false
	}
	return *s.current, true
}

// Err returns the error of the most recent failed operation, or nil.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Leave ends the current view. Outstanding results for it are dropped.
func (s *Store) Leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view++
	s.viewID = ""
	s.current = nil
}

// Reset drops every cached course. Used when the session ends.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view++
	s.viewID = ""
	s.current = nil
	s.courses = nil
	s.lastErr = nil
}

// List fetches the listing, preserving server order.
func (s *Store) List(ctx context.Context) ([]domain.Course, error) {
	courses, err := s.api.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = fmt.Errorf("fetch courses: %w", err)
		return nil, s.lastErr
	}
	s.lastErr = nil
	s.courses = slices.Clone(courses)
	return slices.Clone(courses), nil
}

// Fetch opens a view on courseID and loads it, replacing the local copy.
func (s *Store) Fetch(ctx context.Context, courseID string) (domain.Course, error) {
	s.mu.Lock()
	s.view++
	view := s.view
	s.viewID = courseID
	s.current = nil
	s.mu.Unlock()

	course, err := s.api.Get(ctx, courseID)
	return s.apply(view, courseID, course, err, "fetch course")
}

// MarkComplete marks lessonID complete and adopts the server's course.
// Marking an already completed lesson yields the same state.
func (s *Store) MarkComplete(ctx context.Context, courseID, lessonID string) (domain.Course, error) {
	release, err := s.acquire(ctx, courseID)
	if err != nil {
		return domain.Course{}, err
	}
	defer release()

	view := s.currentView()
	course, err := s.api.MarkLessonComplete(ctx, courseID, lessonID)
	if err == nil {
		s.logger.Info("lesson completed", "course_id", courseID, "lesson_id", lessonID,
			"percent", course.Progress.PercentComplete)
	}
	return s.apply(view, courseID, course, err, "mark lesson complete")
}

// UpdateProgress sends a merge-patch and adopts the server's course.
func (s *Store) UpdateProgress(ctx context.Context, courseID string, patch domain.ProgressPatch) (domain.Course, error) {
	release, err := s.acquire(ctx, courseID)
	if err != nil {
		return domain.Course{}, err
	}
	defer release()

	view := s.currentView()
	course, err := s.api.UpdateProgress(ctx, courseID, patch)
	return s.apply(view, courseID, course, err, "update progress")
}

// Delete removes the course remotely, then from the listing. On failure the
// local state is left unchanged.
func (s *Store) Delete(ctx context.Context, courseID string) error {
	err := s.api.Delete(ctx, courseID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = fmt.Errorf("delete course: %w", err)
		return s.lastErr
	}
	s.lastErr = nil
	s.courses = slices.DeleteFunc(s.courses, func(c domain.Course) bool { return c.ID == courseID })
	if s.viewID == courseID {
		s.view++
		s.viewID = ""
		s.current = nil
	}
	return nil
}

// Adopt takes a freshly generated course: it is prepended to the listing and
// becomes the current view.
func (s *Store) Adopt(course domain.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses = slices.DeleteFunc(s.courses, func(c domain.Course) bool { return c.ID == course.ID })
	s.courses = append([]domain.Course{course}, s.courses...)
	s.view++
	s.viewID = course.ID
	c := course
	s.current = &c
}

// Export downloads the PDF rendering of courseID into dir and returns the file path.
func (s *Store) Export(ctx context.Context, courseID, title, dir string) (string, error) {
	data, err := s.api.ExportPDF(ctx, courseID)
	if err != nil {
		return "", fmt.Errorf("export pdf: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, domain.ExportFilename(title))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save pdf: %w", err)
	}
	return path, nil
}

func (s *Store) currentView() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// apply adopts a server response issued under view. A result is stale only
// when the view changed while the call was out; it then leaves the current
// course alone. The listing entry is refreshed either way. A fresh result for
// a course other than the viewed one is returned without becoming current.
func (s *Store) apply(view uint64, courseID string, course *domain.Course, err error, op string) (domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stale := s.view != view
	if err != nil {
		if stale {
			return domain.Course{}, fmt.Errorf("%s: %w", op, err)
		}
		s.lastErr = fmt.Errorf("%s: %w", op, err)
		return domain.Course{}, s.lastErr
	}

	if checkErr := course.CheckProgress(); checkErr != nil {
		s.logger.Warn("server returned inconsistent progress", "course_id", course.ID, "error", checkErr)
	}

	if i := slices.IndexFunc(s.courses, func(c domain.Course) bool { return c.ID == course.ID }); i >= 0 {
		s.courses[i] = *course
	}

	if stale {
		s.logger.Debug("dropping result for a view that is no longer current", "op", op, "course_id", courseID)
		return *course, port.ErrStaleResult
	}
	s.lastErr = nil
	c := *course
	if s.viewID == courseID {
		s.current = &c
	}
	return c, nil
}

// acquire serializes mutations per course id.
func (s *Store) acquire(ctx context.Context, courseID string) (func(), error) {
	s.mu.Lock()
	sl, ok := s.inflight[courseID]
	if !ok {
		sl = &slot{ch: make(chan struct{}, 1)}
		s.inflight[courseID] = sl
	}
	sl.refs++
	s.mu.Unlock()

	select {
	case sl.ch <- struct{}{}:
		return func() {
			<-sl.ch
			s.unref(courseID, sl)
		}, nil
	case <-ctx.Done():
		s.unref(courseID, sl)
		return nil, ctx.Err()
	}
}

func (s *Store) unref(courseID string, sl *slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl.refs--
	if sl.refs == 0 && s.inflight[courseID] == sl {
		delete(s.inflight, courseID)
	}
}
