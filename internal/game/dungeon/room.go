// Package dungeon provides the dungeon model: rooms, their doors, and the
// room clearance state machine that locks doors while enemies remain.
package dungeon

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/game/geom"
)

// ErrRoomNotFound is returned when a room ID does not resolve.
var ErrRoomNotFound = errors.New("room not found")

// DoorMatchTolerance is the maximum distance between a placed door and its door record.
const DoorMatchTolerance = 0.01

// DefaultEnemyTag is the capability that marks an actor as a room enemy.
const DefaultEnemyTag = "Fighter"

// DoorInfo is the authored position of one door relative to the room origin.
type DoorInfo struct {
	Direction Direction
	Offset    geom.Vec2
}

// Door is a controllable door. Open and Close are idempotent.
type Door interface {
	Open()
	Close()
}

// PlacedDoor is a door instantiated in the world next to a room.
type PlacedDoor struct {
	Name    string
	Offset  geom.Vec2
	Control Door
}

// FloorLayout answers the local extent of a room's floor cells.
type FloorLayout interface {
	FloorCellExtent(roomID string) (geom.Bounds, bool)
}

// Actor is anything a room can observe inside its bounds.
type Actor interface {
	ActorID() string
	Location() geom.Vec2
	Alive() bool
	IsPlayer() bool
}

// ActorIndex finds actors carrying a capability tag.
type ActorIndex interface {
	FindActorsByCapability(capability string) []Actor
}

// Spawn places one enemy from a template when the dungeon is populated.
type Spawn struct {
	Template string
	// Offset is relative to the room origin.
	Offset geom.Vec2
}

// State is the clearance state of a room.
type State int

const (
	Active State = iota
	Cleared
)

// String returns a human-readable state label.
func (s State) String() string {
	if s == Cleared {
		return "cleared"
	}
	return "active"
}

// Room is one dungeon room. It observes the enemies inside its bounds and drives
// its doors: closed while the player fights, open once every enemy is dead.
// It is not safe for concurrent use; the caller must serialise access.
type Room struct {
	ID     string
	Title  string
	Origin geom.Vec2
	// DoorData holds the authored door records.
	DoorData []DoorInfo
	Floor    FloorLayout
	// DoorsAlwaysOpen keeps every door open regardless of enemies.
	DoorsAlwaysOpen bool
	// EnemyTag is the capability queried by FindEnemies.
	EnemyTag string
	Spawns   []Spawn
	Boss     bool
	// Traps are hidden trap positions relative to the room origin.
	Traps []geom.Vec2

	logger       *zap.Logger
	doors        []PlacedDoor
	playerInside bool
	cleared      bool
	enemies      []Actor
	enemiesFound bool
	bounds       *geom.Bounds
	onCleared    []func(*Room)
}

// NewRoom creates an Active room.
//
// Postcondition: State() == Active.
func NewRoom(id string, origin geom.Vec2, doorData []DoorInfo, logger *zap.Logger) *Room {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Room{
		ID:       id,
		Origin:   origin,
		DoorData: doorData,
		EnemyTag: DefaultEnemyTag,
		logger:   logger,
	}
}

// DoorInfoFor returns the door record facing d.
func (r *Room) DoorInfoFor(d Direction) (DoorInfo, bool) {
	for _, di := range r.DoorData {
		if di.Direction == d {
			return di, true
		}
	}
	return DoorInfo{}, false
}

// ComputeBounds returns the world-space bounds of the room, computing them once.
// A room with four door records takes its edges from the door offsets; otherwise
// the floor layout extent is used. Without either the bounds collapse to the origin.
func (r *Room) ComputeBounds() geom.Bounds {
	if r.bounds != nil {
		return *r.bounds
	}
	b := r.BoundsAt(r.Origin)
	r.bounds = &b
	return b
}

// BoundsAt computes the bounds the room would have at origin, without caching.
func (r *Room) BoundsAt(origin geom.Vec2) geom.Bounds {
	var local geom.Bounds
	if len(r.DoorData) == 4 {
		for _, di := range r.DoorData {
			switch di.Direction {
			case North:
				local.Max.Y = di.Offset.Y
			case South:
				local.Min.Y = di.Offset.Y
			case East:
				local.Max.X = di.Offset.X
			case West:
				local.Min.X = di.Offset.X
			}
		}
	} else if ext, ok := r.floorExtent(); ok {
		local = ext
	} else {
		r.logger.Error("room has neither four doors nor a floor layout; bounds collapse to origin",
			zap.String("room", r.ID),
			zap.Int("doors", len(r.DoorData)),
		)
	}
	return geom.NewBounds(local.Min, local.Max).Translate(origin)
}

func (r *Room) floorExtent() (geom.Bounds, bool) {
	if r.Floor == nil {
		return geom.Bounds{}, false
	}
	return r.Floor.FloorCellExtent(r.ID)
}

// FindEnemies records the live, non-player actors with the room's enemy tag
// inside its bounds. The lookup runs once; later calls return the memoized set.
func (r *Room) FindEnemies(index ActorIndex) []Actor {
	if r.enemiesFound {
		return r.enemies
	}
	r.enemiesFound = true
	if index == nil {
		r.logger.Error("no actor index; room starts without enemies", zap.String("room", r.ID))
		return nil
	}
	tag := r.EnemyTag
	if tag == "" {
		tag = DefaultEnemyTag
	}
	b := r.ComputeBounds()
	for _, a := range index.FindActorsByCapability(tag) {
		if a.IsPlayer() || !b.Contains(a.Location()) {
			continue
		}
		r.enemies = append(r.enemies, a)
	}
	r.logger.Debug("room enemies found",
		zap.String("room", r.ID),
		zap.Int("count", len(r.enemies)),
	)
	return r.enemies
}

// Track adds an enemy observed after FindEnemies. Cleared rooms ignore it.
func (r *Room) Track(a Actor) {
	if r.cleared || a == nil || a.IsPlayer() {
		return
	}
	r.enemiesFound = true
	r.enemies = append(r.enemies, a)
}

// Enemies returns the tracked enemies, dead ones included until the next Tick.
func (r *Room) Enemies() []Actor {
	out := make([]Actor, len(r.enemies))
	copy(out, r.enemies)
	return out
}

// LiveEnemies counts tracked enemies that are still alive.
func (r *Room) LiveEnemies() int {
	n := 0
	for _, a := range r.enemies {
		if a.Alive() {
			n++
		}
	}
	return n
}

// BindDoors attaches placed doors to the room. A door whose name does not encode
// a direction, or that matches no door record within DoorMatchTolerance, is
// skipped with a warning.
//
// Postcondition: Returns the number of doors bound.
func (r *Room) BindDoors(placed []PlacedDoor) int {
	bound := 0
	for _, pd := range placed {
		dir, ok := DirectionFromDoorName(pd.Name)
		if !ok {
			r.logger.Warn("door name does not encode a direction",
				zap.String("room", r.ID),
				zap.String("door", pd.Name),
			)
			continue
		}
		if !r.matchesDoorRecord(dir, pd.Offset) {
			r.logger.Warn("door found but no matching entry in door data",
				zap.String("room", r.ID),
				zap.String("door", pd.Name),
			)
			continue
		}
		r.doors = append(r.doors, pd)
		bound++
	}
	return bound
}

func (r *Room) matchesDoorRecord(dir Direction, offset geom.Vec2) bool {
	for _, di := range r.DoorData {
		if di.Direction == dir && di.Offset.Near(offset, DoorMatchTolerance) {
			return true
		}
	}
	return false
}

// Doors returns the bound doors.
func (r *Room) Doors() []PlacedDoor {
	out := make([]PlacedDoor, len(r.doors))
	copy(out, r.doors)
	return out
}

// OnCleared registers fn to run once when the room clears.
func (r *Room) OnCleared(fn func(*Room)) {
	r.onCleared = append(r.onCleared, fn)
}

// EnterPlayer marks the player as inside the room.
func (r *Room) EnterPlayer() { r.playerInside = true }

// PlayerInside reports whether the player has entered the room.
func (r *Room) PlayerInside() bool { return r.playerInside }

// IsCleared reports whether the room has been cleared.
func (r *Room) IsCleared() bool { return r.cleared }

// State returns Cleared once the room has been cleared, Active otherwise.
func (r *Room) State() State {
	if r.cleared {
		return Cleared
	}
	return Active
}

// Tick evaluates the room once. Checks run in a fixed order: close doors while
// the player is inside with enemies tracked, then prune dead enemies and clear
// the room when none remain. A cleared room skips both. DoorsAlwaysOpen then
// forces this room's doors open on every tick, cleared or not.
//
// Postcondition: Once IsCleared() returns true it always returns true.
func (r *Room) Tick() {
	if !r.cleared {
		r.evaluate()
	}
	if r.DoorsAlwaysOpen {
		r.openDoors()
	}
}

func (r *Room) evaluate() {
	if !r.DoorsAlwaysOpen && r.playerInside && len(r.enemies) > 0 {
		r.closeDoors()
	}

	r.pruneDead()
	if len(r.enemies) == 0 && r.playerInside {
		r.cleared = true
		r.openDoors()
		r.logger.Info("room cleared", zap.String("room", r.ID))
		for _, fn := range r.onCleared {
			fn(r)
		}
	}
}

func (r *Room) pruneDead() {
	live := r.enemies[:0]
	for _, a := range r.enemies {
		if a.Alive() {
			live = append(live, a)
		}
	}
	for i := len(live); i < len(r.enemies); i++ {
		r.enemies[i] = nil
	}
	r.enemies = live
}

func (r *Room) closeDoors() {
	for _, d := range r.doors {
		d.Control.Close()
	}
}

func (r *Room) openDoors() {
	for _, d := range r.doors {
		d.Control.Open()
	}
}

// Gate is an in-memory door between two connected rooms. Each room commands it
// through its own Side; the gate is open only while no side holds it closed, so
// one room opening its side never overrides a neighbour that is locking it.
// Open and Close on the Gate itself act as an anonymous side.
type Gate struct {
	holds  map[string]bool
	opens  int
	closes int
}

// NewGate returns an open gate.
func NewGate() *Gate { return &Gate{holds: make(map[string]bool)} }

// Side returns the Door handle room uses to command the gate.
func (g *Gate) Side(room string) Door { return gateSide{gate: g, room: room} }

// Open releases the anonymous side's hold.
func (g *Gate) Open() { g.release("") }

// Close holds the gate closed from the anonymous side.
func (g *Gate) Close() { g.hold("") }

func (g *Gate) hold(side string) {
	g.closes++
	g.holds[side] = true
}

func (g *Gate) release(side string) {
	g.opens++
	delete(g.holds, side)
}

// IsOpen reports whether no side is holding the gate closed.
func (g *Gate) IsOpen() bool { return len(g.holds) == 0 }

// HeldBy reports whether room's side is holding the gate closed.
func (g *Gate) HeldBy(room string) bool { return g.holds[room] }

// Commands returns how many Open and Close commands the gate received.
func (g *Gate) Commands() (opens, closes int) { return g.opens, g.closes }

type gateSide struct {
	gate *Gate
	room string
}

func (s gateSide) Open()  { s.gate.release(s.room) }
func (s gateSide) Close() { s.gate.hold(s.room) }

// sortRooms orders rooms by ID.
func sortRooms(rooms []*Room) {
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
}
