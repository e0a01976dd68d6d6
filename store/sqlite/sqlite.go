/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements generic.Store (policies, uploads, adjustments) using SQLite.
  In production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  policies:    Policy documents (versioned, one row per policy id)
  uploads:     Raw sales files exactly as received
  adjustments: Manual overlay per (upload, representative, month)

NO REPORTS TABLE:
  Reports are recomputed from an upload and the current policy on every
  read, so nothing derived from the engine is stored here.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/commission.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/generic"
)

// timeFormat is fixed-width so that text ordering matches time ordering.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements generic.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection; used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Policies
	CREATE TABLE IF NOT EXISTS policies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Uploaded sales files
	CREATE TABLE IF NOT EXISTS uploads (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		content BLOB NOT NULL,
		record_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_uploads_created_at
		ON uploads(created_at DESC);

	-- Manual adjustments (editor overlay)
	CREATE TABLE IF NOT EXISTS adjustments (
		upload_id TEXT NOT NULL REFERENCES uploads(id) ON DELETE CASCADE,
		representative TEXT NOT NULL,
		month TEXT NOT NULL,
		amount TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (upload_id, representative, month)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// POLICY STORE
// =============================================================================

// SavePolicy upserts a policy record, bumping the version on update.
func (s *Store) SavePolicy(ctx context.Context, policy generic.PolicyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO policies (id, name, config_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json,
			version = policies.version + 1,
			updated_at = excluded.updated_at
	`

	version := policy.Version
	if version == 0 {
		version = 1
	}
	now := time.Now().UTC().Format(timeFormat)
	_, err := s.db.ExecContext(ctx, query,
		string(policy.ID), policy.Name, policy.ConfigJSON, version, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}
	return nil
}

// GetPolicy retrieves a policy by ID.
func (s *Store) GetPolicy(ctx context.Context, id generic.PolicyID) (*generic.PolicyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p generic.PolicyRecord
	var pid, createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, config_json, version, created_at, updated_at FROM policies WHERE id = ?",
		string(id),
	).Scan(&pid, &p.Name, &p.ConfigJSON, &p.Version, &createdAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrPolicyNotFound
	}
	if err != nil {
		return nil, err
	}

	p.ID = generic.PolicyID(pid)
	p.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	p.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)
	return &p, nil
}

// DeletePolicy removes a policy.
func (s *Store) DeletePolicy(ctx context.Context, id generic.PolicyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM policies WHERE id = ?", string(id))
	return err
}

// =============================================================================
// UPLOAD STORE
// =============================================================================

// SaveUpload stores a sales file.
func (s *Store) SaveUpload(ctx context.Context, u generic.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO uploads (id, filename, content, record_count, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, string(u.ID), u.Filename, u.Content, u.RecordCount, createdAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}
	return nil
}

// GetUpload retrieves an upload with its content.
func (s *Store) GetUpload(ctx context.Context, id generic.UploadID) (*generic.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u generic.Upload
	var uid, createdAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, filename, content, record_count, created_at FROM uploads WHERE id = ?",
		string(id),
	).Scan(&uid, &u.Filename, &u.Content, &u.RecordCount, &createdAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrUploadNotFound
	}
	if err != nil {
		return nil, err
	}

	u.ID = generic.UploadID(uid)
	u.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	return &u, nil
}

// ListUploads returns upload metadata, newest first.
func (s *Store) ListUploads(ctx context.Context) ([]generic.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, filename, record_count, created_at FROM uploads ORDER BY created_at DESC, id DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	uploads := []generic.Upload{}
	for rows.Next() {
		var u generic.Upload
		var uid, createdAt string
		if err := rows.Scan(&uid, &u.Filename, &u.RecordCount, &createdAt); err != nil {
			return nil, err
		}
		u.ID = generic.UploadID(uid)
		u.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}

// =============================================================================
// ADJUSTMENT STORE
// =============================================================================

// SaveAdjustments upserts a batch of adjustments in one transaction.
func (s *Store) SaveAdjustments(ctx context.Context, records []generic.AdjustmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	checked := make(map[generic.UploadID]bool)
	now := time.Now().UTC().Format(timeFormat)

	for _, r := range records {
		if !checked[r.UploadID] {
			var n int
			if err := sqlTx.QueryRowContext(ctx, "SELECT COUNT(1) FROM uploads WHERE id = ?", string(r.UploadID)).Scan(&n); err != nil {
				return err
			}
			if n == 0 {
				return generic.ErrUploadNotFound
			}
			checked[r.UploadID] = true
		}

		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO adjustments (upload_id, representative, month, amount, notes, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(upload_id, representative, month) DO UPDATE SET
				amount = excluded.amount,
				notes = excluded.notes,
				updated_at = excluded.updated_at
		`, string(r.UploadID), r.Representative, r.Month.String(), r.Amount.String(), r.Notes, now)
		if err != nil {
			return fmt.Errorf("failed to save adjustment: %w", err)
		}
	}

	return sqlTx.Commit()
}

// ListAdjustments returns an upload's adjustments ordered by representative
// and month.
func (s *Store) ListAdjustments(ctx context.Context, uploadID generic.UploadID) ([]generic.AdjustmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT representative, month, amount, notes, updated_at
		FROM adjustments WHERE upload_id = ?
		ORDER BY representative, month
	`, string(uploadID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []generic.AdjustmentRecord
	for rows.Next() {
		r := generic.AdjustmentRecord{UploadID: uploadID}
		var month, amount, updatedAt string
		if err := rows.Scan(&r.Representative, &month, &amount, &r.Notes, &updatedAt); err != nil {
			return nil, err
		}
		if r.Month, err = generic.ParseYearMonth(month); err != nil {
			return nil, fmt.Errorf("corrupt adjustment month %q: %w", month, err)
		}
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("corrupt adjustment amount %q: %w", amount, err)
		}
		r.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}
