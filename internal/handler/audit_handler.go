package handler

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/middleware"
)

// AuditLister reads back audit records.
type AuditLister interface {
	ListAuditLogs(ctx context.Context, limit int, action string) ([]domain.AuditLog, error)
}

// AuditHandler handles audit log endpoints.
type AuditHandler struct {
	store AuditLister
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(store AuditLister) *AuditHandler {
	return &AuditHandler{store: store}
}

// Register sets up audit routes.
func (h *AuditHandler) Register(router fiber.Router) {
	router.Get("/audit/logs", h.ListLogs)
}

// ListLogs returns the caller's audit trail with optional filtering.
func (h *AuditHandler) ListLogs(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	action := c.Query("action", "")

	// Over-fetch so the per-user filter still fills the page.
	logs, err := h.store.ListAuditLogs(c.Context(), 0, action)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	userID := middleware.GetUserContext(c).UserID
	mine := make([]domain.AuditLog, 0, len(logs))
	for _, l := range logs {
		if l.UserID != userID {
			continue
		}
		mine = append(mine, l)
		if limit > 0 && len(mine) == limit {
			break
		}
	}

	return c.JSON(fiber.Map{
		"logs":  mine,
		"count": len(mine),
	})
}
