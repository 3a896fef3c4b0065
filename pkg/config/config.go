package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the course API configuration loaded from environment variables.
type Config struct {
	// Server
	Port    string
	AppName string
	// PublicURL is where the API is reachable from browsers; OAuth redirect
	// URLs default to PublicURL + /api/auth/<provider>/callback.
	PublicURL string

	// Database. Empty selects the in-memory store.
	DatabaseURL string

	// OAuth2: Google
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// OAuth2: GitHub
	GitHubClientID     string
	GitHubClientSecret string
	GitHubRedirectURL  string

	// JWT
	JWTSecret     string
	JWTIssuer     string
	JWTExpiration int // hours

	// Course generation: "ollama" or "outline"
	Generator string

	// Ollama chat endpoint
	OllamaChatURL   string
	OllamaChatModel string
	OllamaChatToken string // Bearer token for Ollama Cloud (empty = local)

	// Frontend
	FrontendURL string

	// MCP server
	MCPEnabled bool
	MCPPort    string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	publicURL := strings.TrimRight(envOrDefault("PUBLIC_URL", "http://localhost:3001"), "/")
	return &Config{
		Port:      envOrDefault("PORT", "3001"),
		AppName:   envOrDefault("APP_NAME", "CoursePilot API"),
		PublicURL: publicURL,

		DatabaseURL: os.Getenv("DATABASE_URL"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  envOrDefault("GOOGLE_REDIRECT_URL", publicURL+"/api/auth/google/callback"),

		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubRedirectURL:  envOrDefault("GITHUB_REDIRECT_URL", publicURL+"/api/auth/github/callback"),

		JWTSecret:     envOrDefault("JWT_SECRET", "change-me-in-production"),
		JWTIssuer:     envOrDefault("JWT_ISSUER", "coursepilot"),
		JWTExpiration: envOrDefaultInt("JWT_EXPIRATION_HOURS", 24*7),

		Generator: envOrDefault("GENERATOR", "ollama"),

		OllamaChatURL:   envOrDefault("OLLAMA_CHAT_URL", envOrDefault("OLLAMA_BASE_URL", "http://localhost:11434")),
		OllamaChatModel: envOrDefault("OLLAMA_CHAT_MODEL", "qwen3"),
		OllamaChatToken: os.Getenv("OLLAMA_CHAT_TOKEN"),

		FrontendURL: strings.TrimRight(envOrDefault("FRONTEND_URL", "http://localhost:3000"), "/"),

		MCPEnabled: envOrDefaultBool("MCP_ENABLED", false),
		MCPPort:    envOrDefault("MCP_PORT", "3002"),
	}
}

// TokenTTL returns the JWT lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpiration) * time.Hour
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}
