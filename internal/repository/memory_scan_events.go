package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hoyn-app/profile-qr/internal/domain"
)

// MemoryScanEvents keeps the scan audit trail in process. Used when running
// without Postgres (qrctl) and in tests.
type MemoryScanEvents struct {
	mu     sync.RWMutex
	events []domain.ScanEvent
}

// NewMemoryScanEvents returns an empty store.
func NewMemoryScanEvents() *MemoryScanEvents {
	return &MemoryScanEvents{}
}

func (m *MemoryScanEvents) Create(_ context.Context, event *domain.ScanEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	return nil
}

func (m *MemoryScanEvents) ListByProfile(_ context.Context, profileID string, since time.Time, limit int) ([]domain.ScanEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.ScanEvent, 0)
	for _, e := range m.events {
		if e.ProfileID == profileID && !e.ScannedAt.Before(since) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScannedAt.After(out[j].ScannedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
