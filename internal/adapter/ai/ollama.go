package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/arturoeanton/coursepilot/internal/domain"
)

// OllamaEndpointConfig holds the configuration for an Ollama chat endpoint.
type OllamaEndpointConfig struct {
	BaseURL string // e.g. http://localhost:11434 or https://api.ollama.com
	Model   string // e.g. qwen3
	Token   string // Bearer token for Ollama Cloud (empty = no auth)
}

const outlineSystemPrompt = `You are a curriculum designer. Reply with a single JSON object and nothing else:
{"title": string, "description": string, "learningOutcomes": [string],
 "lessons": [{"title": string, "objectives": [string], "content": string,
   "keyConcepts": [string], "summary": string, "estimatedMinutes": number}]}
Write between 4 and 8 lessons. Lesson content is markdown.`

// OllamaGenerator implements port.CourseGenerator using the Ollama chat API.
type OllamaGenerator struct {
	chat       OllamaEndpointConfig
	httpClient *http.Client
}

// NewOllamaGenerator creates a generator backed by an Ollama chat endpoint.
func NewOllamaGenerator(chat OllamaEndpointConfig) *OllamaGenerator {
	return &OllamaGenerator{
		chat:       chat,
		httpClient: &http.Client{},
	}
}

// Name returns the generator identifier.
func (o *OllamaGenerator) Name() string {
	return "ollama:" + o.chat.Model
}

// Generate asks the model for a course outline and assembles it.
func (o *OllamaGenerator) Generate(ctx context.Context, in domain.GenerateInput) (*domain.Course, error) {
	userPrompt := fmt.Sprintf("Create a %s course about %q in the %s category.",
		in.Difficulty, strings.TrimSpace(in.Subject), in.Category)

	payload := map[string]any{
		"model": o.chat.Model,
		"messages": []map[string]string{
			{"role": "system", "content": outlineSystemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"format": "json",
		"stream": false,
	}

	body, err := o.post(ctx, "/api/chat", payload)
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}

	var resp struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ollama chat decode: %w", err)
	}

	var out outline
	if err := json.Unmarshal([]byte(extractJSON(resp.Message.Content)), &out); err != nil {
		return nil, fmt.Errorf("ollama outline decode: %w", err)
	}
	if len(out.Lessons) == 0 {
		return nil, fmt.Errorf("ollama outline: no lessons returned")
	}
	return out.assemble(in)
}

// extractJSON trims any prose or code fences around the first JSON object.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// post is a helper for POST requests to the Ollama endpoint (with optional bearer token).
func (o *OllamaGenerator) post(ctx context.Context, path string, payload any) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.chat.BaseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.chat.Token != "" {
		req.Header.Set("Authorization", "Bearer "+o.chat.Token)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
