package profile

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository for development servers and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]Profile
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{profiles: make(map[uuid.UUID]Profile)}
}

// Load returns a copy of the stored profile.
func (r *MemoryRepository) Load(_ context.Context, id uuid.UUID) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, fmt.Errorf("loading profile %s: %w", id, ErrNotFound)
	}
	p.Perks = append([]Perk(nil), p.Perks...)
	return &p, nil
}

// Save stores a copy of p.
func (r *MemoryRepository) Save(_ context.Context, p *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *p
	c.Perks = append([]Perk(nil), p.Perks...)
	r.profiles[p.ID] = c
	return nil
}
