package port

import (
	"context"

	"github.com/arturoeanton/coursepilot/internal/domain"
)

// UserRepository persists users resolved from identity providers.
type UserRepository interface {
	UpsertUser(ctx context.Context, u *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// CourseRepository persists generated courses with their progress.
// Lookups are scoped to the owner; another owner's course reads as ErrCourseNotFound.
type CourseRepository interface {
	CreateCourse(ctx context.Context, c *domain.Course) error
	GetCourse(ctx context.Context, userID, courseID string) (*domain.Course, error)
	ListCourses(ctx context.Context, userID string) ([]domain.Course, error)
	UpdateProgress(ctx context.Context, userID, courseID string, p domain.Progress) error
	DeleteCourse(ctx context.Context, userID, courseID string) error
}

// AuditWriter defines how audit records are persisted.
type AuditWriter interface {
	WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error
}
