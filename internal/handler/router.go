// Package handler holds the Fiber HTTP surface of the course API.
package handler

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/arturoeanton/coursepilot/internal/middleware"
	"github.com/arturoeanton/coursepilot/internal/port"
	"github.com/arturoeanton/coursepilot/internal/service"
	"github.com/arturoeanton/coursepilot/internal/validate"
)

// Store is everything the API persists to.
type Store interface {
	port.UserRepository
	port.CourseRepository
	port.AuditWriter
	AuditLister
}

// Deps wires the API.
type Deps struct {
	AppName     string
	FrontendURL string
	Auth        *service.AuthService
	Courses     *service.CourseService
	Store       Store
	Validator   *validate.Validator
	AccessLog   bool
}

// NewApp builds the Fiber application with every route mounted under /api.
func NewApp(d Deps) *fiber.App {
	if d.Validator == nil {
		d.Validator = validate.New()
	}

	app := fiber.New(fiber.Config{
		AppName:      d.AppName,
		Immutable:    true, // params are kept past the request
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // generation can be slow
	})

	app.Use(recover.New())
	if d.AccessLog {
		app.Use(fiberlogger.New())
	}
	if d.FrontendURL != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: []string{d.FrontendURL},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
			AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		}))
	}
	app.Use(middleware.AuditMiddleware(d.Store))

	api := app.Group("/api")

	api.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"app":    d.AppName,
		})
	})

	requireAuth := middleware.JWTMiddleware(d.Auth.JWTConfig())

	NewAuthHandler(d.Auth, d.Store, d.FrontendURL).Register(api, requireAuth)

	// Everything registered below needs a bearer token.
	protected := app.Group("/api", requireAuth)
	NewCourseHandler(d.Courses, d.Validator, d.Store).Register(protected)
	NewAuditHandler(d.Store).Register(protected)

	return app
}
