package dungeon

import (
	"fmt"
	"sync"

	"github.com/cory-johannsen/dungeon/internal/game/geom"
)

// Manager provides thread-safe access to a loaded dungeon.
// It indexes rooms for O(1) lookup by room ID.
type Manager struct {
	mu     sync.RWMutex
	layout *Layout
	order  []*Room
}

// NewManager creates a Manager for layout.
//
// Precondition: layout must be validated.
// Postcondition: Rooms() lists every room of layout sorted by ID.
func NewManager(layout *Layout) *Manager {
	order := make([]*Room, 0, len(layout.Rooms))
	for _, r := range layout.Rooms {
		order = append(order, r)
	}
	sortRooms(order)
	return &Manager{layout: layout, order: order}
}

// Layout returns the managed layout.
func (m *Manager) Layout() *Layout { return m.layout }

// Get returns the room with the given ID.
//
// Postcondition: Returns ErrRoomNotFound when id is unknown.
func (m *Manager) Get(id string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.layout.Rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %q: %w", id, ErrRoomNotFound)
	}
	return r, nil
}

// Rooms returns every room sorted by ID.
func (m *Manager) Rooms() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Room, len(m.order))
	copy(out, m.order)
	return out
}

// StartRoom returns the room the player starts in.
func (m *Manager) StartRoom() *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.layout.Rooms[m.layout.StartRoom]
}

// RoomAt returns the first room, by ID, whose bounds contain pos.
func (m *Manager) RoomAt(pos geom.Vec2) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.order {
		if r.ComputeBounds().Contains(pos) {
			return r, true
		}
	}
	return nil, false
}

// PopulateEnemies runs FindEnemies on every room against index.
func (m *Manager) PopulateEnemies(index ActorIndex) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.order {
		r.FindEnemies(index)
	}
}

// TickAll ticks every room in ID order.
func (m *Manager) TickAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.order {
		r.Tick()
	}
}

// ClearedCount returns the number of cleared rooms.
func (m *Manager) ClearedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.order {
		if r.IsCleared() {
			n++
		}
	}
	return n
}

// RoomCount returns the number of rooms.
func (m *Manager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// AllCleared reports whether every room has been cleared.
func (m *Manager) AllCleared() bool {
	return m.ClearedCount() == m.RoomCount()
}
