// Package store owns all persistent state: identities, stored objects,
// polls, poll responses, and callback tokens, backed by a single SQLite
// database file.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/depotbot/depotbot/internal/config"
)

// ErrNotFound is returned when a referenced identity, object, poll, or
// token does not exist.
var ErrNotFound = errors.New("not found")

// timeLayout is how timestamps are persisted. RFC 3339 UTC strings sort
// lexicographically and are understood by SQLite date functions.
const timeLayout = time.RFC3339

// Store wraps the shared database handle. All operations acquire the
// handle through this one object and are bounded by the configured
// per-operation timeout.
type Store struct {
	db      *sql.DB
	path    string
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// Open opens (or creates) the SQLite database at cfg.Path and applies
// connection pragmas. The schema itself is managed by RunMigrate.
func Open(log *slog.Logger, cfg config.DatabaseConfig) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single writer connection sidesteps SQLITE_BUSY between the
	// dispatcher's per-identity workers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	return &Store{
		db:      db,
		path:    cfg.Path,
		timeout: cfg.OperationTimeout(),
		logger:  log.With(slog.String("component", "store")),
		now:     time.Now,
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) nowString() string {
	return s.now().UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// UpsertIdentity inserts the identity on first contact and refreshes
// handle, names, and the active flag on every later contact. The
// registration timestamp, email, and phone are preserved on conflict.
func (s *Store) UpsertIdentity(ctx context.Context, id Identity) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	registeredAt := id.RegisteredAt
	if registeredAt.IsZero() {
		registeredAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (id, handle, first_name, last_name, registered_at, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			handle     = excluded.handle,
			first_name = excluded.first_name,
			last_name  = excluded.last_name,
			is_active  = excluded.is_active`,
		id.ID, nullable(id.Handle), id.FirstName, id.LastName,
		registeredAt.UTC().Format(timeLayout), id.IsActive,
	)
	if err != nil {
		return fmt.Errorf("upsert identity %d: %w", id.ID, err)
	}
	return nil
}

// GetIdentity returns the identity with the given id, or ErrNotFound.
func (s *Store) GetIdentity(ctx context.Context, id int64) (Identity, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, handle, first_name, last_name, email, phone, registered_at, is_active
		FROM identities WHERE id = ?`, id)
	return scanIdentity(row)
}

// UpdateProfileFields applies a partial profile update. Nil fields are
// preserved unchanged (COALESCE); returns ErrNotFound when the identity
// does not exist.
func (s *Store) UpdateProfileFields(ctx context.Context, id int64, email, phone *string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE identities
		SET email = COALESCE(?, email), phone = COALESCE(?, phone)
		WHERE id = ?`, email, phone, id)
	if err != nil {
		return fmt.Errorf("update profile %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile %d: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListIdentities returns every identity ordered by registration time.
func (s *Store) ListIdentities(ctx context.Context) ([]Identity, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, handle, first_name, last_name, email, phone, registered_at, is_active
		FROM identities ORDER BY registered_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var identities []Identity
	for rows.Next() {
		id, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, id)
	}
	return identities, rows.Err()
}

func (s *Store) identityExists(ctx context.Context, id int64) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM identities WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (Identity, error) {
	var (
		id            Identity
		handle, email sql.NullString
		phone         sql.NullString
		registeredAt  string
	)
	err := row.Scan(&id.ID, &handle, &id.FirstName, &id.LastName, &email, &phone, &registeredAt, &id.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, ErrNotFound
	}
	if err != nil {
		return Identity{}, fmt.Errorf("scan identity: %w", err)
	}
	id.Handle = handle.String
	id.Email = email.String
	id.Phone = phone.String
	id.RegisteredAt = parseTime(registeredAt)
	return id, nil
}
