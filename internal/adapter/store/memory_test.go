package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/port"
)

func TestMemoryStore_UpsertUserIsStable(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.UpsertUser(ctx, &domain.User{Email: "a@x.io", Name: "A", Provider: domain.ProviderGitHub, ProviderID: "7"})
	require.NoError(t, err)
	second, err := s.UpsertUser(ctx, &domain.User{Email: "a2@x.io", Name: "A2", Provider: domain.ProviderGitHub, ProviderID: "7"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "a2@x.io", second.Email)

	got, err := s.GetUserByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "A2", got.Name)

	_, err = s.GetUserByID(ctx, "nope")
	assert.ErrorIs(t, err, port.ErrUserNotFound)
}

func TestMemoryStore_CoursesScopedToOwner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateCourse(ctx, &domain.Course{ID: "old", UserID: "u1", CreatedAt: base}))
	require.NoError(t, s.CreateCourse(ctx, &domain.Course{ID: "new", UserID: "u1", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, s.CreateCourse(ctx, &domain.Course{ID: "other", UserID: "u2", CreatedAt: base}))

	list, err := s.ListCourses(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)

	_, err = s.GetCourse(ctx, "u1", "other")
	assert.ErrorIs(t, err, port.ErrCourseNotFound)
	assert.ErrorIs(t, s.DeleteCourse(ctx, "u1", "other"), port.ErrCourseNotFound)
	assert.ErrorIs(t, s.UpdateProgress(ctx, "u1", "other", domain.Progress{}), port.ErrCourseNotFound)

	require.NoError(t, s.DeleteCourse(ctx, "u1", "old"))
	list, err = s.ListCourses(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.CreateCourse(ctx, &domain.Course{ID: "c", UserID: "u", Lessons: []domain.Lesson{{ID: "l1"}}}))

	c, err := s.GetCourse(ctx, "u", "c")
	require.NoError(t, err)
	c.Lessons[0].ID = "mutated"
	c.Progress.CompletedLessons = append(c.Progress.CompletedLessons, "l1")

	again, err := s.GetCourse(ctx, "u", "c")
	require.NoError(t, err)
	assert.Equal(t, "l1", again.Lessons[0].ID)
	assert.Empty(t, again.Progress.CompletedLessons)
}

func TestMemoryStore_Audit(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.WriteAudit("u", domain.AuditActionLogin, "auth", "github", `{"ok":true}`, "127.0.0.1", "test"))
	require.NoError(t, s.WriteAudit("u", domain.AuditActionHTTPRequest, "api", "/api/courses", "not json", "127.0.0.1", "test"))

	logs, err := s.ListAuditLogs(context.Background(), 10, "")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.AuditActionHTTPRequest, logs[0].Action)
	assert.JSONEq(t, `{"raw":"not json"}`, logs[0].Details)

	logs, err = s.ListAuditLogs(context.Background(), 0, domain.AuditActionLogin)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
