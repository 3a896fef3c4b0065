package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/port"
)

// CourseService owns course generation and progress bookkeeping.
// The progress it returns is canonical: percentComplete is always recomputed
// from the completed set.
type CourseService struct {
	gen     port.CourseGenerator
	courses port.CourseRepository
	now     func() time.Time

	// progress writes are read-modify-write; serialize them per course.
	locks sync.Map // course id -> *sync.Mutex
}

// NewCourseService creates a course service.
func NewCourseService(gen port.CourseGenerator, courses port.CourseRepository) *CourseService {
	return &CourseService{gen: gen, courses: courses, now: time.Now}
}

// Generate creates a course for userID. The input must already be validated.
func (s *CourseService) Generate(ctx context.Context, userID string, in domain.GenerateInput) (*domain.Course, error) {
	in.Subject = strings.TrimSpace(in.Subject)

	start := s.now()
	course, err := s.gen.Generate(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("generate with %s: %w", s.gen.Name(), err)
	}

	now := s.now().UTC()
	course.ID = uuid.NewString()
	course.UserID = userID
	course.CreatedAt, course.UpdatedAt = now, now
	course.Progress = domain.Progress{
		CompletedLessons: []string{},
		LastAccessedAt:   now,
	}
	if len(course.Lessons) > 0 {
		first := course.Lessons[0].ID
		course.Progress.CurrentLessonID = &first
	}

	if err := s.courses.CreateCourse(ctx, course); err != nil {
		return nil, err
	}
	slog.Info("course generated",
		"course_id", course.ID,
		"user_id", userID,
		"generator", s.gen.Name(),
		"lessons", len(course.Lessons),
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)
	return course, nil
}

// List returns the user's courses, newest first.
func (s *CourseService) List(ctx context.Context, userID string) ([]domain.Course, error) {
	return s.courses.ListCourses(ctx, userID)
}

// Get returns one course owned by userID.
func (s *CourseService) Get(ctx context.Context, userID, courseID string) (*domain.Course, error) {
	return s.courses.GetCourse(ctx, userID, courseID)
}

// Delete removes a course owned by userID.
func (s *CourseService) Delete(ctx context.Context, userID, courseID string) error {
	if err := s.courses.DeleteCourse(ctx, userID, courseID); err != nil {
		return err
	}
	s.locks.Delete(courseID)
	return nil
}

// CompleteLesson adds lessonID to the completed set. Repeating it is a no-op
// apart from the access timestamp.
func (s *CourseService) CompleteLesson(ctx context.Context, userID, courseID, lessonID string) (*domain.Course, error) {
	return s.mutate(ctx, userID, courseID, func(c *domain.Course) error {
		if c.LessonIndex(lessonID) < 0 {
			return fmt.Errorf("%s: %w", lessonID, port.ErrLessonNotFound)
		}
		if !c.IsCompleted(lessonID) {
			c.Progress.CompletedLessons = append(c.Progress.CompletedLessons, lessonID)
		}
		return nil
	})
}

// UpdateProgress applies a merge-patch. Completed lessons are de-duplicated
// and must belong to the course. An empty currentLessonId clears it.
func (s *CourseService) UpdateProgress(ctx context.Context, userID, courseID string, patch domain.ProgressPatch) (*domain.Course, error) {
	return s.mutate(ctx, userID, courseID, func(c *domain.Course) error {
		if patch.CompletedLessons != nil {
			completed := make([]string, 0, len(patch.CompletedLessons))
			for _, id := range patch.CompletedLessons {
				if c.LessonIndex(id) < 0 {
					return fmt.Errorf("completed lesson %q: %w", id, port.ErrInvalidProgress)
				}
				if !slices.Contains(completed, id) {
					completed = append(completed, id)
				}
			}
			c.Progress.CompletedLessons = completed
		}
		if patch.CurrentLessonID != nil {
			id := *patch.CurrentLessonID
			switch {
			case id == "":
				c.Progress.CurrentLessonID = nil
			case c.LessonIndex(id) < 0:
				return fmt.Errorf("current lesson %q: %w", id, port.ErrInvalidProgress)
			default:
				c.Progress.CurrentLessonID = &id
			}
		}
		return nil
	})
}

func (s *CourseService) mutate(ctx context.Context, userID, courseID string, apply func(*domain.Course) error) (*domain.Course, error) {
	mu, _ := s.locks.LoadOrStore(courseID, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()

	course, err := s.courses.GetCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if err := apply(course); err != nil {
		return nil, err
	}
	if course.Progress.CompletedLessons == nil {
		course.Progress.CompletedLessons = []string{}
	}
	course.Progress.PercentComplete = domain.PercentComplete(len(course.Progress.CompletedLessons), len(course.Lessons))
	course.Progress.LastAccessedAt = s.now().UTC()

	if err := s.courses.UpdateProgress(ctx, userID, courseID, course.Progress); err != nil {
		return nil, err
	}
	return course, nil
}
