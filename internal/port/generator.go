package port

import (
	"context"

	"github.com/arturoeanton/coursepilot/internal/domain"
)

// CourseGenerator abstracts the course generation backend.
// Implementations return a course with title, description, and ordered lessons;
// ids, ownership, and progress are assigned by the caller.
type CourseGenerator interface {
	// Name identifies the backend in logs (e.g. "ollama:qwen3").
	Name() string

	// Generate builds a course outline for the given input.
	Generate(ctx context.Context, in domain.GenerateInput) (*domain.Course, error)
}
