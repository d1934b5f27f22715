package dungeon

import (
	"fmt"

	"github.com/cory-johannsen/dungeon/internal/game/geom"
)

// FloorExtents is a FloorLayout backed by authored per-room floor rectangles.
type FloorExtents map[string]geom.Bounds

// FloorCellExtent returns the authored floor rectangle of roomID.
func (f FloorExtents) FloorCellExtent(roomID string) (geom.Bounds, bool) {
	b, ok := f[roomID]
	return b, ok
}

// Connection joins a door of one room to the facing door of another.
type Connection struct {
	From      string
	Direction Direction
	To        string
	Gate      *Gate
}

// Layout is a dungeon: rooms connected door to door.
type Layout struct {
	ID          string
	Name        string
	StartRoom   string
	Rooms       map[string]*Room
	Connections []Connection
	// ScriptDir is the path to Lua scripts for this dungeon. Empty = no scripts.
	ScriptDir string
	// ScriptInstructionLimit overrides the default VM instruction limit. 0 = default.
	ScriptInstructionLimit int
}

// Validate checks layout invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (l *Layout) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("dungeon ID must not be empty")
	}
	if len(l.Rooms) == 0 {
		return fmt.Errorf("dungeon %q: must contain at least one room", l.ID)
	}
	if l.StartRoom == "" {
		return fmt.Errorf("dungeon %q: start_room must not be empty", l.ID)
	}
	if _, ok := l.Rooms[l.StartRoom]; !ok {
		return fmt.Errorf("dungeon %q: start_room %q not found in rooms", l.ID, l.StartRoom)
	}
	for id, room := range l.Rooms {
		if room.ID != id {
			return fmt.Errorf("dungeon %q: room key %q does not match room ID %q", l.ID, id, room.ID)
		}
		seen := make(map[Direction]bool, len(room.DoorData))
		for _, di := range room.DoorData {
			if seen[di.Direction] {
				return fmt.Errorf("dungeon %q: room %q: duplicate %s door", l.ID, id, di.Direction)
			}
			seen[di.Direction] = true
		}
	}
	return nil
}

// Connect joins room a's door facing dir to room b's opposite door with a shared
// gate, each room commanding its own side.
//
// Precondition: both rooms exist; a has a dir door and b has a dir.Opposite() door.
// Postcondition: Both rooms have the gate bound, or an error is returned and neither changed.
func (l *Layout) Connect(a string, dir Direction, b string) (*Gate, error) {
	from, ok := l.Rooms[a]
	if !ok {
		return nil, fmt.Errorf("connect %s from %q: %w", dir, a, ErrRoomNotFound)
	}
	to, ok := l.Rooms[b]
	if !ok {
		return nil, fmt.Errorf("connect %s to %q: %w", dir, b, ErrRoomNotFound)
	}
	fromDoor, ok := from.DoorInfoFor(dir)
	if !ok {
		return nil, fmt.Errorf("room %q has no %s door", a, dir)
	}
	toDoor, ok := to.DoorInfoFor(dir.Opposite())
	if !ok {
		return nil, fmt.Errorf("room %q has no %s door to receive %q", b, dir.Opposite(), a)
	}
	gate := NewGate()
	from.BindDoors([]PlacedDoor{{Name: DoorName(dir), Offset: fromDoor.Offset, Control: gate.Side(a)}})
	to.BindDoors([]PlacedDoor{{Name: DoorName(dir.Opposite()), Offset: toDoor.Offset, Control: gate.Side(b)}})
	l.Connections = append(l.Connections, Connection{From: a, Direction: dir, To: b, Gate: gate})
	return gate, nil
}

// Neighbor returns the room reached through room id's door facing dir.
func (l *Layout) Neighbor(id string, dir Direction) (*Room, bool) {
	for _, c := range l.Connections {
		switch {
		case c.From == id && c.Direction == dir:
			return l.Rooms[c.To], true
		case c.To == id && c.Direction.Opposite() == dir:
			return l.Rooms[c.From], true
		}
	}
	return nil, false
}
