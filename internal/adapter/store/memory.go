package store

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/port"
)

// MemoryStore keeps users, courses and audit logs in process memory.
// It backs the API when no DATABASE_URL is configured, and the tests.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]*domain.User
	byIdent map[string]string // provider/provider_id -> user id
	courses map[string]*domain.Course
	audit   []domain.AuditLog
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   map[string]*domain.User{},
		byIdent: map[string]string{},
		courses: map[string]*domain.Course{},
	}
}

// UpsertUser inserts or updates a user by provider + provider_id.
func (m *MemoryStore) UpsertUser(_ context.Context, u *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	key := string(u.Provider) + "/" + u.ProviderID
	if id, ok := m.byIdent[key]; ok {
		existing := m.users[id]
		existing.Email, existing.Name, existing.AvatarURL = u.Email, u.Name, u.AvatarURL
		existing.UpdatedAt = now
		out := *existing
		return &out, nil
	}

	user := *u
	user.ID = uuid.NewString()
	user.CreatedAt, user.UpdatedAt = now, now
	m.users[user.ID] = &user
	m.byIdent[key] = user.ID
	out := user
	return &out, nil
}

// GetUserByID retrieves a user by ID.
func (m *MemoryStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, port.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

// CreateCourse stores a generated course.
func (m *MemoryStore) CreateCourse(_ context.Context, c *domain.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[c.ID] = cloneCourse(c)
	return nil
}

// GetCourse returns a course owned by userID.
func (m *MemoryStore) GetCourse(_ context.Context, userID, courseID string) (*domain.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[courseID]
	if !ok || c.UserID != userID {
		return nil, port.ErrCourseNotFound
	}
	return cloneCourse(c), nil
}

// ListCourses returns the user's courses, newest first.
func (m *MemoryStore) ListCourses(_ context.Context, userID string) ([]domain.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.Course{}
	for _, c := range m.courses {
		if c.UserID == userID {
			out = append(out, *cloneCourse(c))
		}
	}
	slices.SortFunc(out, func(a, b domain.Course) int {
		if n := b.CreatedAt.Compare(a.CreatedAt); n != 0 {
			return n
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

// UpdateProgress replaces the stored progress record.
func (m *MemoryStore) UpdateProgress(_ context.Context, userID, courseID string, p domain.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok || c.UserID != userID {
		return port.ErrCourseNotFound
	}
	c.Progress = p
	c.Progress.CompletedLessons = slices.Clone(p.CompletedLessons)
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteCourse removes a course owned by userID.
func (m *MemoryStore) DeleteCourse(_ context.Context, userID, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok || c.UserID != userID {
		return port.ErrCourseNotFound
	}
	delete(m.courses, courseID)
	return nil
}

// WriteAudit implements port.AuditWriter.
func (m *MemoryStore) WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error {
	if !json.Valid([]byte(details)) {
		wrapped, _ := json.Marshal(map[string]string{"raw": details})
		details = string(wrapped)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, domain.AuditLog{
		ID:         strconv.Itoa(len(m.audit) + 1),
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		IP:         ip,
		UserAgent:  userAgent,
		CreatedAt:  time.Now().UTC(),
	})
	return nil
}

// ListAuditLogs returns recent audit logs with an optional action filter.
func (m *MemoryStore) ListAuditLogs(_ context.Context, limit int, action string) ([]domain.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.AuditLog
	for i := len(m.audit) - 1; i >= 0; i-- {
		if action != "" && m.audit[i].Action != action {
			continue
		}
		out = append(out, m.audit[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func cloneCourse(c *domain.Course) *domain.Course {
	out := *c
	out.Lessons = slices.Clone(c.Lessons)
	out.LearningOutcomes = slices.Clone(c.LearningOutcomes)
	out.Progress.CompletedLessons = slices.Clone(c.Progress.CompletedLessons)
	if c.Progress.CurrentLessonID != nil {
		id := *c.Progress.CurrentLessonID
		out.Progress.CurrentLessonID = &id
	}
	return &out
}
