package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/arturoeanton/coursepilot/internal/adapter/ai"
	"github.com/arturoeanton/coursepilot/internal/adapter/auth"
	"github.com/arturoeanton/coursepilot/internal/adapter/store"
	"github.com/arturoeanton/coursepilot/internal/handler"
	"github.com/arturoeanton/coursepilot/internal/mcp"
	"github.com/arturoeanton/coursepilot/internal/middleware"
	"github.com/arturoeanton/coursepilot/internal/port"
	"github.com/arturoeanton/coursepilot/internal/service"
	"github.com/arturoeanton/coursepilot/internal/validate"
	"github.com/arturoeanton/coursepilot/pkg/config"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	slog.Info("🚀 Starting CoursePilot API",
		"port", cfg.Port,
		"generator", cfg.Generator,
		"ollama_chat", cfg.OllamaChatURL,
		"frontend", cfg.FrontendURL,
		"mcp_enabled", cfg.MCPEnabled,
	)

	// ── Database ─────────────────────────────────────────────────────────
	var st handler.Store
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, using in-memory store")
		st = store.NewMemoryStore()
	} else {
		pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pgStore.Close()
		if err := pgStore.Migrate(context.Background()); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		st = pgStore
	}

	// ── Adapters ─────────────────────────────────────────────────────────
	googleAuth := auth.NewGoogleProvider(auth.Credentials{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	}, auth.GoogleEndpoints)
	githubAuth := auth.NewGitHubProvider(auth.Credentials{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  cfg.GitHubRedirectURL,
	}, auth.GitHubEndpoints)

	providers := port.AuthProviderRegistry{
		googleAuth.ProviderName(): googleAuth,
		githubAuth.ProviderName(): githubAuth,
	}
	for name := range providers {
		if _, ok := providers.Configured(name); !ok {
			slog.Warn("identity provider not configured", "provider", name)
		}
	}

	var generator port.CourseGenerator
	switch cfg.Generator {
	case "outline":
		generator = ai.NewOutlineGenerator()
	default:
		generator = ai.NewOllamaGenerator(ai.OllamaEndpointConfig{
			BaseURL: cfg.OllamaChatURL,
			Model:   cfg.OllamaChatModel,
			Token:   cfg.OllamaChatToken,
		})
	}

	// ── Services ─────────────────────────────────────────────────────────
	authService := service.NewAuthService(providers, st, middleware.JWTConfig{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		ExpiresIn: cfg.TokenTTL(),
	}, middleware.NewDenylist())
	courseService := service.NewCourseService(generator, st)

	// ── Fiber App ────────────────────────────────────────────────────────
	app := handler.NewApp(handler.Deps{
		AppName:     cfg.AppName,
		FrontendURL: cfg.FrontendURL,
		Auth:        authService,
		Courses:     courseService,
		Store:       st,
		Validator:   validate.New(),
		AccessLog:   true,
	})

	// ── MCP Server (separate port) ───────────────────────────────────────
	if cfg.MCPEnabled {
		mcpServer := mcp.NewServer(courseService, authService.JWTConfig(), cfg.MCPPort, slog.Default())
		go func() {
			if err := mcpServer.Start(); err != nil {
				slog.Error("MCP server failed", "error", err)
			}
		}()
	}

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
