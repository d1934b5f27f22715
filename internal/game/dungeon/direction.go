package dungeon

import (
	"fmt"
	"strings"
)

// Direction is one of the four door sides of a room.
type Direction int

const (
	North Direction = iota
	South
	East
	West
)

// Directions lists every direction in declaration order.
var Directions = []Direction{North, South, East, West}

// String returns the door-name form of d ("North", "South", ...).
func (d Direction) String() string {
	switch d {
	case North:
		return "North"
	case South:
		return "South"
	case East:
		return "East"
	case West:
		return "West"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Opposite returns the direction facing d.
//
// Precondition: d is one of North, South, East or West.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	default:
		return East
	}
}

// ParseDirection parses a direction name, ignoring case.
//
// Postcondition: Returns an error for any name other than north, south, east or west.
func ParseDirection(s string) (Direction, error) {
	for _, d := range Directions {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// DoorNamePrefix prefixes every door name.
const DoorNamePrefix = "Door_"

// DoorName returns the conventional door name for d, e.g. "Door_North".
func DoorName(d Direction) string { return DoorNamePrefix + d.String() }

// DirectionFromDoorName extracts the direction from a "Door_<Direction>" name.
//
// Postcondition: Returns false when the name has no "_" separator or an unknown direction.
func DirectionFromDoorName(name string) (Direction, bool) {
	_, suffix, ok := strings.Cut(name, "_")
	if !ok {
		return 0, false
	}
	if i := strings.IndexByte(suffix, '_'); i >= 0 {
		suffix = suffix[:i]
	}
	d, err := ParseDirection(suffix)
	if err != nil {
		return 0, false
	}
	return d, true
}
