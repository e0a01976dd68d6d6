/*
store.go - Persistence interface for policies, uploads and adjustments

PURPOSE:
  Defines the interface between the HTTP/CLI adapters and the database.
  The commission engine never touches storage: it recomputes a report from
  an upload and a policy on every call. What IS persisted is the input to
  that computation plus the manual overlay the editor adds on top.

KEY INTERFACES:
  PolicyStore:     Versioned policy documents (the policy editor's state)
  UploadStore:     Raw sales files exactly as they were uploaded
  AdjustmentStore: Manual per-representative-month adjustments and notes

RECOMPUTE, DON'T CACHE:
  Reports are never stored. Loading a report means re-ingesting the stored
  upload, running the engine under the current policy, and overlaying the
  stored adjustments. A policy edit therefore shows up on the next read.

ATOMIC BATCHES:
  SaveAdjustments() is all-or-nothing. Saving edits for five representatives
  either writes all five rows or none.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - api/handlers.go: Uses the Store to rebuild reports
  - commission/adjust.go: Applies the adjustment overlay
*/
package generic

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RECORDS
// =============================================================================

// PolicyRecord is a stored policy document.
type PolicyRecord struct {
	ID         PolicyID
	Name       string
	ConfigJSON string
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Upload is a sales file as received from the client.
type Upload struct {
	ID          UploadID
	Filename    string
	Content     []byte
	RecordCount int
	CreatedAt   time.Time
}

// AdjustmentRecord is the editor's manual overlay for one
// representative-month bucket of one upload.
type AdjustmentRecord struct {
	UploadID       UploadID
	Representative string
	Month          YearMonth
	Amount         decimal.Decimal
	Notes          string
	UpdatedAt      time.Time
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

type PolicyStore interface {
	// SavePolicy upserts a policy. The stored version is bumped on update.
	SavePolicy(ctx context.Context, p PolicyRecord) error

	// GetPolicy returns ErrPolicyNotFound when nothing is stored under id.
	GetPolicy(ctx context.Context, id PolicyID) (*PolicyRecord, error)

	// DeletePolicy removes a policy. Deleting a missing policy is not an error.
	DeletePolicy(ctx context.Context, id PolicyID) error
}

type UploadStore interface {
	SaveUpload(ctx context.Context, u Upload) error

	// GetUpload returns ErrUploadNotFound for unknown ids.
	GetUpload(ctx context.Context, id UploadID) (*Upload, error)

	// ListUploads returns uploads newest first, without their content.
	ListUploads(ctx context.Context) ([]Upload, error)
}

type AdjustmentStore interface {
	// SaveAdjustments upserts every record atomically, keyed by
	// (upload, representative, month).
	SaveAdjustments(ctx context.Context, records []AdjustmentRecord) error

	// ListAdjustments returns all adjustments for one upload.
	ListAdjustments(ctx context.Context, uploadID UploadID) ([]AdjustmentRecord, error)
}

// Store is everything the service persists.
type Store interface {
	PolicyStore
	UploadStore
	AdjustmentStore
}
