package progress

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"mediapull/internal/domain"
)

// Update carries the fields to merge into an existing progress record. Nil
// fields are left untouched.
type Update struct {
	Bytes  *int64
	Total  *int64
	Status *domain.TransferStatus
}

// Registry is the live table of in-flight transfers. One instance belongs to
// one orchestrator; transfers write to it concurrently and reporting code
// reads snapshots.
type Registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]domain.TransferProgress
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[uuid.UUID]domain.TransferProgress),
	}
}

func (r *Registry) Start(id uuid.UUID, filename string) {
	r.mu.Lock()
	r.entries[id] = domain.TransferProgress{
		TaskID:   id,
		Filename: filename,
		Status:   domain.TransferStatusPending,
	}
	r.mu.Unlock()
}

// Update merges the given fields into the record for id. Updating an absent
// id is a no-op.
func (r *Registry) Update(id uuid.UUID, u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return
	}
	if u.Bytes != nil {
		entry.Bytes = *u.Bytes
	}
	if u.Total != nil {
		entry.Total = *u.Total
	}
	if u.Status != nil {
		entry.Status = *u.Status
	}
	r.entries[id] = entry
}

func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Snapshot returns a copy of all live records, ordered by filename for
// stable display.
func (r *Registry) Snapshot() []domain.TransferProgress {
	r.mu.RLock()
	entries := make([]domain.TransferProgress, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Filename < entries[j].Filename
	})
	return entries
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
