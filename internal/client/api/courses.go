package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/arturoeanton/coursepilot/internal/client/gateway"
	"github.com/arturoeanton/coursepilot/internal/domain"
)

// CoursesAPI wraps the course endpoints.
type CoursesAPI struct {
	gw *gateway.Gateway
}

// NewCoursesAPI creates the course endpoint wrapper.
func NewCoursesAPI(gw *gateway.Gateway) *CoursesAPI {
	return &CoursesAPI{gw: gw}
}

type courseEnvelope struct {
	Course *domain.Course `json:"course"`
}

func (e courseEnvelope) unwrap(op string) (*domain.Course, error) {
	if e.Course == nil {
		return nil, fmt.Errorf("%s: response carried no course", op)
	}
	return e.Course, nil
}

// Generate creates a course.
func (c *CoursesAPI) Generate(ctx context.Context, in domain.GenerateInput) (*domain.Course, error) {
	var resp courseEnvelope
	if err := c.gw.DoJSON(ctx, http.MethodPost, "/courses/generate", in, &resp); err != nil {
		return nil, err
	}
	return resp.unwrap("generate course")
}

// List returns the caller's courses in server order.
func (c *CoursesAPI) List(ctx context.Context) ([]domain.Course, error) {
	var resp struct {
		Courses []domain.Course `json:"courses"`
	}
	if err := c.gw.DoJSON(ctx, http.MethodGet, "/courses", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Courses, nil
}

// Get fetches one course.
func (c *CoursesAPI) Get(ctx context.Context, courseID string) (*domain.Course, error) {
	var resp courseEnvelope
	if err := c.gw.DoJSON(ctx, http.MethodGet, coursePath(courseID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.unwrap("get course")
}

// Delete removes a course.
func (c *CoursesAPI) Delete(ctx context.Context, courseID string) error {
	return c.gw.DoJSON(ctx, http.MethodDelete, coursePath(courseID), nil, nil)
}

// UpdateProgress sends a merge-patch of progress fields and returns the canonical course.
func (c *CoursesAPI) UpdateProgress(ctx context.Context, courseID string, patch domain.ProgressPatch) (*domain.Course, error) {
	var resp courseEnvelope
	if err := c.gw.DoJSON(ctx, http.MethodPatch, coursePath(courseID)+"/progress", patch, &resp); err != nil {
		return nil, err
	}
	return resp.unwrap("update progress")
}

// MarkLessonComplete marks a lesson complete and returns the canonical course.
func (c *CoursesAPI) MarkLessonComplete(ctx context.Context, courseID, lessonID string) (*domain.Course, error) {
	var resp courseEnvelope
	path := coursePath(courseID) + "/lessons/" + url.PathEscape(lessonID) + "/complete"
	if err := c.gw.DoJSON(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.unwrap("mark lesson complete")
}

// ExportPDF downloads the PDF rendering of a course.
func (c *CoursesAPI) ExportPDF(ctx context.Context, courseID string) ([]byte, error) {
	data, _, err := c.gw.Do(ctx, http.MethodGet, coursePath(courseID)+"/export/pdf", nil)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func coursePath(courseID string) string {
	return "/courses/" + url.PathEscape(courseID)
}
