package npc

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/game/combat"
	"github.com/cory-johannsen/dungeon/internal/game/dice"
	"github.com/cory-johannsen/dungeon/internal/game/dungeon"
	"github.com/cory-johannsen/dungeon/internal/game/geom"
)

// ExperienceSink receives experience for defeated enemies.
type ExperienceSink interface {
	AddEnemy(level int) int
	AddBoss(level int) int
}

// DeathEvent describes one enemy death after loot and experience were granted.
type DeathEvent struct {
	Instance *Instance
	Loot     LootResult
	XP       int
}

// Manager tracks all live enemy instances by ID and by room.
// All methods are safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	instances map[string]*Instance       // instanceID → Instance
	roomSets  map[string]map[string]bool // roomID → set of instanceIDs
	counter   atomic.Uint64

	roller  *dice.Roller
	xp      ExperienceSink
	logger  *zap.Logger
	onDeath []func(DeathEvent)
}

// NewManager creates an empty enemy Manager. xp may be nil when no experience is granted.
//
// Precondition: roller must not be nil.
func NewManager(roller *dice.Roller, xp ExperienceSink, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		instances: make(map[string]*Instance),
		roomSets:  make(map[string]map[string]bool),
		roller:    roller,
		xp:        xp,
		logger:    logger,
	}
}

// OnDeath registers fn to run after each enemy death.
func (m *Manager) OnDeath(fn func(DeathEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDeath = append(m.onDeath, fn)
}

// Spawn creates a new Instance from tmpl at pos and places it in roomID.
//
// Precondition: tmpl must be non-nil; roomID must be non-empty.
// Postcondition: Returns a new Instance with a unique ID registered in roomID.
func (m *Manager) Spawn(tmpl *Template, roomID string, pos geom.Vec2) (*Instance, error) {
	if tmpl == nil {
		return nil, fmt.Errorf("npc.Manager.Spawn: tmpl must not be nil")
	}
	if roomID == "" {
		return nil, fmt.Errorf("npc.Manager.Spawn: roomID must not be empty")
	}

	n := m.counter.Add(1)
	id := fmt.Sprintf("%s-%s-%d", tmpl.ID, roomID, n)
	inst := NewInstance(id, tmpl, roomID, pos)
	inst.Jitter = m.roller.Source()
	inst.OnDeath = combat.DeathFunc(m.handleDeath)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.instances[id] = inst
	if m.roomSets[roomID] == nil {
		m.roomSets[roomID] = make(map[string]bool)
	}
	m.roomSets[roomID][id] = true

	return inst, nil
}

// Remove deletes an instance by ID.
//
// Precondition: id must be non-empty.
// Postcondition: Returns an error if the instance is not found.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(id)
}

func (m *Manager) removeLocked(id string) error {
	inst, ok := m.instances[id]
	if !ok {
		return fmt.Errorf("npc instance %q not found", id)
	}

	if rs, ok := m.roomSets[inst.RoomID]; ok {
		delete(rs, id)
		if len(rs) == 0 {
			delete(m.roomSets, inst.RoomID)
		}
	}
	delete(m.instances, id)
	return nil
}

// Get returns the instance with the given ID.
//
// Postcondition: Returns (inst, true) if found, or (nil, false) otherwise.
func (m *Manager) Get(id string) (*Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[id]
	return inst, ok
}

// All returns a snapshot of every live instance sorted by ID.
func (m *Manager) All() []*Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst)
	}
	sortInstances(out)
	return out
}

// Count returns the number of live instances.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.instances)
}

// InstancesInRoom returns a snapshot of all live instances in roomID sorted by ID.
//
// Postcondition: Returns a non-nil slice (may be empty).
func (m *Manager) InstancesInRoom(roomID string) []*Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids, ok := m.roomSets[roomID]
	if !ok {
		return []*Instance{}
	}

	out := make([]*Instance, 0, len(ids))
	for id := range ids {
		if inst, ok := m.instances[id]; ok {
			out = append(out, inst)
		}
	}
	sortInstances(out)
	return out
}

// FindActorsByCapability returns every live instance carrying tag.
func (m *Manager) FindActorsByCapability(tag string) []dungeon.Actor {
	var out []dungeon.Actor
	for _, inst := range m.All() {
		if inst.tmpl.HasTag(tag) {
			out = append(out, inst)
		}
	}
	return out
}

func (m *Manager) handleDeath(f *combat.Fighter) {
	m.mu.Lock()
	inst, ok := m.instances[f.ID]
	if ok {
		_ = m.removeLocked(f.ID)
	}
	hooks := append([]func(DeathEvent){}, m.onDeath...)
	m.mu.Unlock()
	if !ok {
		m.logger.Error("death of unknown enemy", zap.String("npc", f.ID))
		return
	}

	ev := DeathEvent{Instance: inst}
	if inst.tmpl.Loot != nil {
		ev.Loot = inst.tmpl.Loot.Roll(m.roller)
	}
	if m.xp != nil {
		if inst.IsBoss() {
			ev.XP = m.xp.AddBoss(inst.Level)
		} else {
			ev.XP = m.xp.AddEnemy(inst.Level)
		}
	}
	m.logger.Info("enemy defeated",
		zap.String("npc", inst.ID),
		zap.String("template", inst.TemplateID),
		zap.String("room", inst.RoomID),
		zap.Int("xp", ev.XP),
		zap.Int("currency", ev.Loot.Currency),
		zap.Int("items", len(ev.Loot.Items)),
	)
	for _, fn := range hooks {
		fn(ev)
	}
}

func sortInstances(s []*Instance) {
	sort.Slice(s, func(i, j int) bool { return s[i].ID < s[j].ID })
}
