// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/commission-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	policies    map[generic.PolicyID]generic.PolicyRecord
	uploads     map[generic.UploadID]generic.Upload
	adjustments map[key]generic.AdjustmentRecord
	now         func() time.Time
}

type key struct {
	UploadID       generic.UploadID
	Representative string
	Month          generic.YearMonth
}

var _ generic.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		policies:    make(map[generic.PolicyID]generic.PolicyRecord),
		uploads:     make(map[generic.UploadID]generic.Upload),
		adjustments: make(map[key]generic.AdjustmentRecord),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// =============================================================================
// POLICIES
// =============================================================================

func (m *Memory) SavePolicy(_ context.Context, p generic.PolicyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if existing, ok := m.policies[p.ID]; ok {
		p.Version = existing.Version + 1
		p.CreatedAt = existing.CreatedAt
	} else {
		if p.Version == 0 {
			p.Version = 1
		}
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.policies[p.ID] = p
	return nil
}

func (m *Memory) GetPolicy(_ context.Context, id generic.PolicyID) (*generic.PolicyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.policies[id]
	if !ok {
		return nil, generic.ErrPolicyNotFound
	}
	return &p, nil
}

func (m *Memory) DeletePolicy(_ context.Context, id generic.PolicyID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.policies, id)
	return nil
}

// =============================================================================
// UPLOADS
// =============================================================================

func (m *Memory) SaveUpload(_ context.Context, u generic.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now()
	}
	u.Content = append([]byte(nil), u.Content...)
	m.uploads[u.ID] = u
	return nil
}

func (m *Memory) GetUpload(_ context.Context, id generic.UploadID) (*generic.Upload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.uploads[id]
	if !ok {
		return nil, generic.ErrUploadNotFound
	}
	u.Content = append([]byte(nil), u.Content...)
	return &u, nil
}

func (m *Memory) ListUploads(_ context.Context) ([]generic.Upload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.Upload, 0, len(m.uploads))
	for _, u := range m.uploads {
		u.Content = nil
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

// SaveAdjustments upserts all records. Validation happens before any write,
// so a rejected batch leaves the store untouched.
func (m *Memory) SaveAdjustments(_ context.Context, records []generic.AdjustmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		if _, ok := m.uploads[r.UploadID]; !ok {
			return generic.ErrUploadNotFound
		}
	}

	now := m.now()
	for _, r := range records {
		r.UpdatedAt = now
		m.adjustments[key{UploadID: r.UploadID, Representative: r.Representative, Month: r.Month}] = r
	}
	return nil
}

func (m *Memory) ListAdjustments(_ context.Context, uploadID generic.UploadID) ([]generic.AdjustmentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.AdjustmentRecord
	for k, r := range m.adjustments {
		if k.UploadID == uploadID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Representative != result[j].Representative {
			return result[i].Representative < result[j].Representative
		}
		return result[i].Month.String() < result[j].Month.String()
	})
	return result, nil
}
