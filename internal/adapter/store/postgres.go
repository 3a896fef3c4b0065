package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/port"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	email       TEXT NOT NULL DEFAULT '',
	name        TEXT NOT NULL DEFAULT '',
	avatar_url  TEXT NOT NULL DEFAULT '',
	provider    TEXT NOT NULL,
	provider_id TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (provider, provider_id)
);

CREATE TABLE IF NOT EXISTS courses (
	id                    TEXT PRIMARY KEY,
	user_id               UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	subject               TEXT NOT NULL,
	category              TEXT NOT NULL,
	difficulty            TEXT NOT NULL,
	title                 TEXT NOT NULL,
	description           TEXT NOT NULL DEFAULT '',
	lessons               JSONB NOT NULL,
	learning_outcomes     JSONB NOT NULL DEFAULT '[]',
	total_estimated_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
	progress              JSONB NOT NULL,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS courses_user_created ON courses (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS audit_logs (
	id          BIGSERIAL PRIMARY KEY,
	user_id     TEXT NOT NULL,
	action      TEXT NOT NULL,
	resource    TEXT NOT NULL,
	resource_id TEXT NOT NULL DEFAULT '',
	details     JSONB NOT NULL DEFAULT '{}',
	ip          TEXT NOT NULL DEFAULT '',
	user_agent  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// PostgresStore handles all relational database operations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and returns a store instance.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// --- Users ---

// UpsertUser inserts or updates a user by provider + provider_id.
func (s *PostgresStore) UpsertUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (email, name, avatar_url, provider, provider_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider, provider_id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = NOW()
		RETURNING id, email, name, avatar_url, provider, provider_id, created_at, updated_at`

	var user domain.User
	err := s.db.QueryRowContext(ctx, query, u.Email, u.Name, u.AvatarURL, u.Provider, u.ProviderID).Scan(
		&user.ID, &user.Email, &user.Name, &user.AvatarURL,
		&user.Provider, &user.ProviderID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT id, email, name, avatar_url, provider, provider_id, created_at, updated_at
	          FROM users WHERE id = $1`

	var user domain.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Name, &user.AvatarURL,
		&user.Provider, &user.ProviderID, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// --- Courses ---

const courseColumns = `id, user_id, subject, category, difficulty, title, description,
	lessons, learning_outcomes, total_estimated_hours, progress, created_at, updated_at`

// CreateCourse inserts a generated course.
func (s *PostgresStore) CreateCourse(ctx context.Context, c *domain.Course) error {
	lessons, err := json.Marshal(c.Lessons)
	if err != nil {
		return fmt.Errorf("marshal lessons: %w", err)
	}
	outcomes, err := json.Marshal(c.LearningOutcomes)
	if err != nil {
		return fmt.Errorf("marshal outcomes: %w", err)
	}
	progress, err := json.Marshal(c.Progress)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	query := `INSERT INTO courses (` + courseColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb, $10, $11::jsonb, $12, $13)`
	_, err = s.db.ExecContext(ctx, query,
		c.ID, c.UserID, c.Subject, c.Category, string(c.Difficulty), c.Title, c.Description,
		string(lessons), string(outcomes), c.TotalEstimatedHours, string(progress), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// GetCourse returns a course owned by userID.
func (s *PostgresStore) GetCourse(ctx context.Context, userID, courseID string) (*domain.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1 AND user_id = $2`
	c, err := scanCourse(s.db.QueryRowContext(ctx, query, courseID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	return c, nil
}

// ListCourses returns the user's courses, newest first.
func (s *PostgresStore) ListCourses(ctx context.Context, userID string) ([]domain.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	courses := []domain.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, *c)
	}
	return courses, rows.Err()
}

// UpdateProgress replaces the stored progress record.
func (s *PostgresStore) UpdateProgress(ctx context.Context, userID, courseID string, p domain.Progress) error {
	progress, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE courses SET progress = $1::jsonb, updated_at = NOW() WHERE id = $2 AND user_id = $3`,
		string(progress), courseID, userID)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return expectOne(res, port.ErrCourseNotFound)
}

// DeleteCourse removes a course owned by userID.
func (s *PostgresStore) DeleteCourse(ctx context.Context, userID, courseID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1 AND user_id = $2`, courseID, userID)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return expectOne(res, port.ErrCourseNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(row rowScanner) (*domain.Course, error) {
	var (
		c                           domain.Course
		difficulty                  string
		lessons, outcomes, progress []byte
	)
	if err := row.Scan(
		&c.ID, &c.UserID, &c.Subject, &c.Category, &difficulty, &c.Title, &c.Description,
		&lessons, &outcomes, &c.TotalEstimatedHours, &progress, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Difficulty = domain.Difficulty(difficulty)
	if err := json.Unmarshal(lessons, &c.Lessons); err != nil {
		return nil, fmt.Errorf("decode lessons: %w", err)
	}
	if err := json.Unmarshal(outcomes, &c.LearningOutcomes); err != nil {
		return nil, fmt.Errorf("decode outcomes: %w", err)
	}
	if err := json.Unmarshal(progress, &c.Progress); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	return &c, nil
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// --- Audit Logs ---

// WriteAudit implements port.AuditWriter.
func (s *PostgresStore) WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error {
	query := `INSERT INTO audit_logs (user_id, action, resource, resource_id, details, ip, user_agent)
	          VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)`
	_, err := s.db.ExecContext(context.Background(), query,
		userID, action, resource, resourceID, details, ip, userAgent,
	)
	return err
}

// ListAuditLogs returns recent audit logs with an optional action filter.
func (s *PostgresStore) ListAuditLogs(ctx context.Context, limit int, action string) ([]domain.AuditLog, error) {
	query := `SELECT id, user_id, action, resource, resource_id, details, ip, user_agent, created_at
	          FROM audit_logs`
	args := []any{}
	argIdx := 1

	if action != "" {
		query += fmt.Sprintf(" WHERE action = $%d", argIdx)
		args = append(args, action)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.AuditLog
	for rows.Next() {
		var l domain.AuditLog
		if err := rows.Scan(
			&l.ID, &l.UserID, &l.Action, &l.Resource, &l.ResourceID,
			&l.Details, &l.IP, &l.UserAgent, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
