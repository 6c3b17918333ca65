package cache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a record does not exist in the cache.
var ErrNotFound = errors.New("record not found")

// Store persists operation records in a local SQLite database so the
// CLI can list and re-attach to operations across invocations.
type Store struct {
	db     *sql.DB
	config Config
}

// Config holds cache store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewStore creates a cache store instance. Call Init before use. Zero
// pool settings fall back to defaults suited to a short-lived CLI
// process.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 2
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	return &Store{config: cfg}, nil
}

// Init opens the database connection and enables WAL mode.
func (s *Store) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", s.config.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.config.MaxOpenConns)
	db.SetMaxIdleConns(s.config.MaxIdleConns)
	db.SetConnMaxLifetime(s.config.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate applies embedded schema migrations.
func (s *Store) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// PutOperation inserts or refreshes an operation record. The record's
// UpdatedAt is set to now; CreatedAt is preserved on refresh.
func (s *Store) PutOperation(ctx context.Context, rec *OperationRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	query := `
		INSERT INTO operations (name, submission_id, project, location, api_version,
			resource_type, resource_name, status, detail, target_link, error,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			status = excluded.status,
			detail = excluded.detail,
			target_link = excluded.target_link,
			error = excluded.error,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.Name,
		rec.SubmissionID,
		rec.Project,
		rec.Location,
		rec.APIVersion,
		rec.ResourceType,
		rec.ResourceName,
		rec.Status,
		rec.Detail,
		rec.TargetLink,
		rec.Error,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store operation: %w", err)
	}

	return nil
}

// GetOperation retrieves an operation record by name.
func (s *Store) GetOperation(ctx context.Context, name string) (*OperationRecord, error) {
	query := `
		SELECT name, submission_id, project, location, api_version,
			resource_type, resource_name, status, detail, target_link, error,
			created_at, updated_at
		FROM operations
		WHERE name = ?
	`

	rec := &OperationRecord{}
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&rec.Name,
		&rec.SubmissionID,
		&rec.Project,
		&rec.Location,
		&rec.APIVersion,
		&rec.ResourceType,
		&rec.ResourceName,
		&rec.Status,
		&rec.Detail,
		&rec.TargetLink,
		&rec.Error,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("operation %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}

	return rec, nil
}

// ListOperations returns cached operations for a project, newest first.
// An empty project lists everything.
func (s *Store) ListOperations(ctx context.Context, project string, limit int) ([]*OperationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT name, submission_id, project, location, api_version,
			resource_type, resource_name, status, detail, target_link, error,
			created_at, updated_at
		FROM operations
		WHERE (? = '' OR project = ?)
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, project, project, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	records := []*OperationRecord{}
	for rows.Next() {
		rec := &OperationRecord{}
		if err := rows.Scan(
			&rec.Name,
			&rec.SubmissionID,
			&rec.Project,
			&rec.Location,
			&rec.APIVersion,
			&rec.ResourceType,
			&rec.ResourceName,
			&rec.Status,
			&rec.Detail,
			&rec.TargetLink,
			&rec.Error,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operations: %w", err)
	}

	return records, nil
}

// DeleteOperation removes an operation record by name.
func (s *Store) DeleteOperation(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM operations WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete operation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("operation %s: %w", name, ErrNotFound)
	}

	return nil
}

// PruneTerminal removes terminal records older than the given age.
// Returns the number of records removed.
func (s *Store) PruneTerminal(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM operations WHERE status = 'DONE' AND updated_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune operations: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// HealthCheck verifies the database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}
