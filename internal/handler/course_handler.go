package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/middleware"
	"github.com/arturoeanton/coursepilot/internal/port"
	"github.com/arturoeanton/coursepilot/internal/service"
	"github.com/arturoeanton/coursepilot/internal/validate"
)

// CourseHandler serves the course and progress endpoints.
type CourseHandler struct {
	courses   *service.CourseService
	validator *validate.Validator
	audit     port.AuditWriter
}

// NewCourseHandler creates a course handler.
func NewCourseHandler(courses *service.CourseService, v *validate.Validator, audit port.AuditWriter) *CourseHandler {
	return &CourseHandler{courses: courses, validator: v, audit: audit}
}

// Register sets up course routes on a protected router.
func (h *CourseHandler) Register(router fiber.Router) {
	courses := router.Group("/courses")
	courses.Post("/generate", h.Generate)
	courses.Get("/", h.List)
	courses.Get("/:id", h.Get)
	courses.Delete("/:id", h.Delete)
	courses.Patch("/:id/progress", h.UpdateProgress)
	courses.Post("/:id/lessons/:lessonId/complete", h.CompleteLesson)
	courses.Get("/:id/export/pdf", h.ExportPDF)
}

// Generate creates a course from subject, category and difficulty.
func (h *CourseHandler) Generate(c fiber.Ctx) error {
	var in domain.GenerateInput
	if err := c.Bind().JSON(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	in.Subject = strings.TrimSpace(in.Subject)
	if err := h.validator.Struct(in); err != nil {
		return writeError(c, err)
	}

	uc := middleware.GetUserContext(c)
	course, err := h.courses.Generate(c.Context(), uc.UserID, in)
	if err != nil {
		return writeError(c, err)
	}
	middleware.Audit(h.audit, c, uc.UserID, domain.AuditActionCourseGenerate, "course", course.ID,
		map[string]any{"subject": in.Subject, "category": in.Category, "difficulty": in.Difficulty})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"course": course})
}

// List returns the caller's courses, newest first.
func (h *CourseHandler) List(c fiber.Ctx) error {
	courses, err := h.courses.List(c.Context(), middleware.GetUserContext(c).UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"courses": courses})
}

// Get returns one course.
func (h *CourseHandler) Get(c fiber.Ctx) error {
	course, err := h.courses.Get(c.Context(), middleware.GetUserContext(c).UserID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"course": course})
}

// Delete removes a course.
func (h *CourseHandler) Delete(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	id := c.Params("id")
	if err := h.courses.Delete(c.Context(), uc.UserID, id); err != nil {
		return writeError(c, err)
	}
	middleware.Audit(h.audit, c, uc.UserID, domain.AuditActionCourseDelete, "course", id, nil)
	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateProgress applies a merge-patch to the progress record.
func (h *CourseHandler) UpdateProgress(c fiber.Ctx) error {
	var patch domain.ProgressPatch
	if err := c.Bind().JSON(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	course, err := h.courses.UpdateProgress(c.Context(), middleware.GetUserContext(c).UserID, c.Params("id"), patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"course": course})
}

// CompleteLesson marks a lesson complete.
func (h *CourseHandler) CompleteLesson(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	id, lessonID := c.Params("id"), c.Params("lessonId")
	course, err := h.courses.CompleteLesson(c.Context(), uc.UserID, id, lessonID)
	if err != nil {
		return writeError(c, err)
	}
	middleware.Audit(h.audit, c, uc.UserID, domain.AuditActionLessonComplete, "course", id,
		map[string]any{"lesson_id": lessonID, "percent": course.Progress.PercentComplete})
	return c.JSON(fiber.Map{"course": course})
}

// ExportPDF renders the course as a PDF download.
func (h *CourseHandler) ExportPDF(c fiber.Ctx) error {
	course, err := h.courses.Get(c.Context(), middleware.GetUserContext(c).UserID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	data, err := service.RenderCoursePDF(course)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+domain.ExportFilename(course.Title)+`"`)
	return c.Send(data)
}

// writeError maps domain errors onto HTTP statuses.
func writeError(c fiber.Ctx, err error) error {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr.Error(), "fields": verr.Fields})
	case errors.Is(err, port.ErrInvalidProgress):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, port.ErrCourseNotFound), errors.Is(err, port.ErrLessonNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, port.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
