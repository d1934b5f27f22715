package gameserver

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Hub tracks live sessions and drives their ticks. A session stops ticking when
// its run ends but stays listed until it is removed.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	driver   *TickDriver
	logger   *zap.Logger
}

// NewHub creates an empty Hub ticking sessions with driver.
//
// Precondition: driver must not be nil.
func NewHub(driver *TickDriver, logger *zap.Logger) *Hub {
	if driver == nil {
		panic("gameserver.NewHub: driver must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{sessions: make(map[string]*Session), driver: driver, logger: logger}
}

// Add registers s and starts ticking it. onEnd, if non-nil, runs once when the
// run ends, after the session has stopped ticking.
//
// Postcondition: Get(s.ID) returns s.
func (h *Hub) Add(s *Session, onEnd func(*Session, *Summary)) {
	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()

	s.OnEnd(func(sum *Summary) {
		h.driver.Unregister(s.ID)
		h.logger.Info("session ended",
			zap.String("session", s.ID),
			zap.Bool("won", sum.Won),
		)
		if onEnd != nil {
			onEnd(s, sum)
		}
	})
	h.driver.RegisterTick(s.ID, s.Tick)
}

// Get returns the session with id.
func (h *Hub) Get(id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

// Sessions returns every tracked session sorted by ID.
func (h *Hub) Sessions() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Remove stops ticking the session with id and closes it.
//
// Postcondition: Returns false when id is unknown.
func (h *Hub) Remove(id string) bool {
	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		return false
	}
	h.driver.Unregister(id)
	s.Close()
	return true
}

// Close removes every session.
func (h *Hub) Close() {
	for _, s := range h.Sessions() {
		h.Remove(s.ID)
	}
}
