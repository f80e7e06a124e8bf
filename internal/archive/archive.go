// File: internal/archive/archive.go
package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/recorder-cli/internal/recorder"
)

// DBPool abstracts the pgxpool.Pool surface we use, allowing pgxmock in
// tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store persists finished session scripts to PostgreSQL. It implements
// recorder.Archiver.
type Store struct {
	pool DBPool
	log  *zap.Logger

	// ownedPool is set when Connect opened the pool, so Close can release it.
	ownedPool *pgxpool.Pool
}

var _ recorder.Archiver = (*Store)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS recorder_scripts (
    session_id      TEXT PRIMARY KEY,
    url             TEXT NOT NULL,
    viewport_width  INTEGER NOT NULL,
    viewport_height INTEGER NOT NULL,
    script          TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL,
    closed_at       TIMESTAMPTZ NOT NULL
);`

// New creates a store over an existing pool and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("archive"),
	}, nil
}

// Connect opens a pgx pool for the DSN, ensures the schema and returns the
// store.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database pool: %w", err)
	}
	s, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s.ownedPool = pool
	return s, nil
}

// Close releases the pool when this store opened it via Connect. Stores
// built over a caller-supplied pool leave it to the caller.
func (s *Store) Close() {
	if s.ownedPool != nil {
		s.ownedPool.Close()
	}
}

// EnsureSchema creates the scripts table if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure archive schema: %w", err)
	}
	return nil
}

// SaveScript upserts the finished script. Replays of the same session id
// (which cannot happen through the manager, but may through retries) keep
// the latest copy.
func (s *Store) SaveScript(ctx context.Context, rec recorder.ScriptRecord) error {
	script := strings.Join(rec.Instructions, "\n")

	_, err := s.pool.Exec(ctx, `
		INSERT INTO recorder_scripts (session_id, url, viewport_width, viewport_height, script, created_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO UPDATE SET
			url = EXCLUDED.url,
			viewport_width = EXCLUDED.viewport_width,
			viewport_height = EXCLUDED.viewport_height,
			script = EXCLUDED.script,
			closed_at = EXCLUDED.closed_at;
	`, rec.SessionID, rec.URL, rec.Viewport.Width, rec.Viewport.Height, script, rec.CreatedAt, rec.ClosedAt)

	if err != nil {
		return fmt.Errorf("failed to persist script for session %s: %w", rec.SessionID, err)
	}

	s.log.Debug("Script archived.",
		zap.String("session_id", rec.SessionID),
		zap.Int("instructions", len(rec.Instructions)))
	return nil
}
