package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hoyn-app/profile-qr/internal/domain"
)

// MemoryProfiles is an in-process profile store used by the CLI and tests.
type MemoryProfiles struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

// NewMemoryProfiles seeds the store with profiles.
func NewMemoryProfiles(profiles ...domain.Profile) *MemoryProfiles {
	m := &MemoryProfiles{profiles: make(map[string]domain.Profile, len(profiles))}
	for _, p := range profiles {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *MemoryProfiles) Create(_ context.Context, profile *domain.Profile) error {
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.ID] = *profile
	return nil
}

func (m *MemoryProfiles) Exists(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	return ok && p.Active, nil
}

func (m *MemoryProfiles) Get(_ context.Context, id string) (*domain.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok || !p.Active {
		return nil, domain.ErrProfileNotFound
	}
	return &p, nil
}
