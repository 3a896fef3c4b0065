package middleware

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/port"
)

// AuditMiddleware records every API request.
func AuditMiddleware(writer port.AuditWriter) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		// Fiber reuses context objects; capture before the handler runs.
		method := c.Method()
		path := c.Path()
		ip := c.IP()
		userAgent := c.Get("User-Agent")

		err := c.Next()

		userID := "anonymous"
		if uc := GetUserContext(c); uc != nil {
			userID = uc.UserID
		}

		details, _ := json.Marshal(map[string]any{
			"method":      method,
			"path":        path,
			"status":      c.Response().StatusCode(),
			"duration_ms": time.Since(start).Milliseconds(),
		})

		go func() {
			if writeErr := writer.WriteAudit(userID, domain.AuditActionHTTPRequest, "api", path, string(details), ip, userAgent); writeErr != nil {
				slog.Error("failed to write audit log", "error", writeErr)
			}
		}()

		return err
	}
}

// Audit writes a single domain event synchronously, logging on failure.
func Audit(writer port.AuditWriter, c fiber.Ctx, userID, action, resource, resourceID string, details map[string]any) {
	if writer == nil {
		return
	}
	payload, _ := json.Marshal(details)
	if err := writer.WriteAudit(userID, action, resource, resourceID, string(payload), c.IP(), c.Get("User-Agent")); err != nil {
		slog.Error("failed to write audit log", "action", action, "error", err)
	}
}
