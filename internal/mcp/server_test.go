package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/coursepilot/internal/adapter/ai"
	"github.com/arturoeanton/coursepilot/internal/adapter/store"
	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/middleware"
	"github.com/arturoeanton/coursepilot/internal/service"
)

var testJWT = middleware.JWTConfig{Secret: "test-secret", Issuer: "coursepilot", ExpiresIn: time.Hour}

type fixture struct {
	srv    *httptest.Server
	token  string
	course *domain.Course
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	courses := service.NewCourseService(ai.NewOutlineGenerator(), store.NewMemoryStore())
	course, err := courses.Generate(context.Background(), "u-1", domain.GenerateInput{
		Subject: "Rust ownership", Category: "Programming", Difficulty: domain.DifficultyBeginner,
	})
	require.NoError(t, err)

	token, err := middleware.GenerateJWT(&domain.User{ID: "u-1", Email: "ada@example.com", Name: "Ada"}, testJWT)
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(courses, testJWT, "0", nil).Handler())
	t.Cleanup(srv.Close)
	return fixture{srv: srv, token: token, course: course}
}

func (f fixture) call(t *testing.T, token, method string, params any) JSONRPCResponse {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	body, err := json.Marshal(JSONRPCRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: raw})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/mcp", bytes.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out JSONRPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func text(t *testing.T, resp JSONRPCResponse) string {
	t.Helper()
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	content := result["content"].([]any)
	require.Len(t, content, 1)
	return content[0].(map[string]any)["text"].(string)
}

func TestToolsList_NoAuth(t *testing.T) {
	f := newFixture(t)
	resp := f.call(t, "", "tools/list", map[string]any{})
	require.Nil(t, resp.Error)
	assert.Contains(t, resp.Result, "tools")
}

func TestToolsCall_RequiresToken(t *testing.T) {
	f := newFixture(t)
	resp := f.call(t, "", "tools/call", map[string]any{"name": "list_courses"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeUnauthorized, resp.Error.Code)

	resp = f.call(t, "garbage", "tools/call", map[string]any{"name": "list_courses"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestListCourses(t *testing.T) {
	f := newFixture(t)
	out := text(t, f.call(t, f.token, "tools/call", map[string]any{"name": "list_courses"}))
	assert.Contains(t, out, f.course.ID)
	assert.Contains(t, out, "0% complete")
}

func TestGetLesson_DefaultsToCurrent(t *testing.T) {
	f := newFixture(t)
	out := text(t, f.call(t, f.token, "tools/call", map[string]any{
		"name":      "get_lesson",
		"arguments": map[string]string{"course_id": f.course.ID},
	}))
	assert.Contains(t, out, f.course.Lessons[0].Title)
}

func TestCompleteLesson(t *testing.T) {
	f := newFixture(t)
	out := text(t, f.call(t, f.token, "tools/call", map[string]any{
		"name":      "complete_lesson",
		"arguments": map[string]string{"course_id": f.course.ID, "lesson_id": f.course.Lessons[0].ID},
	}))
	want := domain.PercentComplete(1, len(f.course.Lessons))
	assert.Contains(t, out, f.course.Title)
	assert.Contains(t, out, " "+strconv.Itoa(want)+"% complete")
}

func TestCompleteLesson_MissingArgs(t *testing.T) {
	f := newFixture(t)
	resp := f.call(t, f.token, "tools/call", map[string]any{
		"name":      "complete_lesson",
		"arguments": map[string]string{"course_id": f.course.ID},
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestUnknownMethod(t *testing.T) {
	f := newFixture(t)
	resp := f.call(t, f.token, "resources/list", map[string]any{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)
}
