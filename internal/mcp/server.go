// Package mcp exposes a learner's courses to external AI agents over the
// Model Context Protocol. Every call is authenticated with the same bearer
// token the course API issues.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/middleware"
)

// Courses is the part of the course service the tools call.
type Courses interface {
	List(ctx context.Context, userID string) ([]domain.Course, error)
	Get(ctx context.Context, userID, courseID string) (*domain.Course, error)
	CompleteLesson(ctx context.Context, userID, courseID, lessonID string) (*domain.Course, error)
}

// Server implements the MCP JSON-RPC endpoint.
type Server struct {
	courses Courses
	jwt     middleware.JWTConfig
	port    string
	logger  *slog.Logger
}

// NewServer creates a new MCP server.
func NewServer(courses Courses, jwtCfg middleware.JWTConfig, port string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{courses: courses, jwt: jwtCfg, port: port, logger: logger}
}

// Tool represents an MCP tool definition.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON-RPC error codes.
const (
	codeParse          = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
	codeUnauthorized   = -32001
)

var errInvalidParams = errors.New("invalid params")

// Handler returns the HTTP handler serving /mcp and /mcp/sse.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", s.handleRPC)
	mux.HandleFunc("/mcp/sse", s.handleSSE)
	return mux
}

// Start begins the MCP server on the configured port.
func (s *Server) Start() error {
	s.logger.Info("MCP server starting", "port", s.port)
	return http.ListenAndServe(":"+s.port, s.Handler())
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nil, codeParse, "parse error")
		return
	}

	var result any
	var err error

	switch req.Method {
	case "initialize":
		result = map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]string{
				"name":    "coursepilot",
				"version": "1.0.0",
			},
			"capabilities": map[string]any{
				"tools": map[string]bool{"listChanged": false},
			},
		}
	case "tools/list":
		result = listTools()
	case "tools/call":
		userID, authErr := s.authenticate(r)
		if authErr != nil {
			writeError(w, req.ID, codeUnauthorized, authErr.Error())
			return
		}
		result, err = s.callTool(r.Context(), userID, req.Params)
	default:
		writeError(w, req.ID, codeMethodNotFound, "method not found")
		return
	}

	if err != nil {
		code := codeInternal
		if errors.Is(err, errInvalidParams) {
			code = codeInvalidParams
		}
		s.logger.Warn("mcp call failed", "method", req.Method, "error", err)
		writeError(w, req.ID, code, err.Error())
		return
	}

	writeResult(w, req.ID, result)
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: endpoint\ndata: /mcp\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	<-r.Context().Done()
}

// authenticate returns the user id carried by the bearer token.
func (s *Server) authenticate(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("missing authorization")
	}
	claims, err := middleware.ParseJWT(strings.TrimSpace(token), s.jwt)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func listTools() map[string]any {
	tools := []Tool{
		{
			Name:        "list_courses",
			Description: "List the learner's courses with their completion percentage",
			InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
		},
		{
			Name:        "get_lesson",
			Description: "Read one lesson of a course",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"course_id": {"type": "string", "description": "Course ID"},
					"lesson_id": {"type": "string", "description": "Lesson ID; omit for the current lesson"}
				},
				"required": ["course_id"]
			}`),
		},
		{
			Name:        "complete_lesson",
			Description: "Mark a lesson complete and return the updated progress",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"course_id": {"type": "string", "description": "Course ID"},
					"lesson_id": {"type": "string", "description": "Lesson ID"}
				},
				"required": ["course_id", "lesson_id"]
			}`),
		},
	}
	return map[string]any{"tools": tools}
}

type lessonArgs struct {
	CourseID string `json:"course_id"`
	LessonID string `json:"lesson_id"`
}

func (s *Server) callTool(ctx context.Context, userID string, params json.RawMessage) (any, error) {
	var req struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
	}

	var args lessonArgs
	if len(req.Arguments) > 0 {
		if err := json.Unmarshal(req.Arguments, &args); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
		}
	}

	switch req.Name {
	case "list_courses":
		courses, err := s.courses.List(ctx, userID)
		if err != nil {
			return nil, err
		}
		var b strings.Builder
		for _, c := range courses {
			fmt.Fprintf(&b, "%s\t%s\t%d%% complete\n", c.ID, c.Title, c.Progress.PercentComplete)
		}
		if b.Len() == 0 {
			b.WriteString("No courses yet.")
		}
		return textContent(b.String()), nil

	case "get_lesson":
		if args.CourseID == "" {
			return nil, fmt.Errorf("%w: course_id is required", errInvalidParams)
		}
		course, err := s.courses.Get(ctx, userID, args.CourseID)
		if err != nil {
			return nil, err
		}
		lessonID := args.LessonID
		if lessonID == "" && course.Progress.CurrentLessonID != nil {
			lessonID = *course.Progress.CurrentLessonID
		}
		lesson, ok := course.Lesson(lessonID)
		if !ok {
			return nil, fmt.Errorf("lesson %q not found in course %s", lessonID, course.ID)
		}
		return textContent(fmt.Sprintf("# %s\n\n%s\n\nKey concepts: %s",
			lesson.Title, lesson.Content, strings.Join(lesson.KeyConcepts, ", "))), nil

	case "complete_lesson":
		if args.CourseID == "" || args.LessonID == "" {
			return nil, fmt.Errorf("%w: course_id and lesson_id are required", errInvalidParams)
		}
		course, err := s.courses.CompleteLesson(ctx, userID, args.CourseID, args.LessonID)
		if err != nil {
			return nil, err
		}
		return textContent(fmt.Sprintf("%s is now %d%% complete.", course.Title, course.Progress.PercentComplete)), nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", req.Name)
	}
}

func textContent(text string) map[string]any {
	return map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
	}
}

func writeResult(w http.ResponseWriter, id any, result any) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, id any, code int, message string) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
