package dungeon

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dungeon/internal/game/geom"
)

// yamlDungeonFile is the top-level YAML structure for dungeon files.
type yamlDungeonFile struct {
	Dungeon yamlDungeon `yaml:"dungeon"`
}

// yamlDungeon is the YAML representation of a dungeon layout.
type yamlDungeon struct {
	ID                     string           `yaml:"id"`
	Name                   string           `yaml:"name"`
	StartRoom              string           `yaml:"start_room"`
	ScriptDir              string           `yaml:"script_dir"`
	ScriptInstructionLimit int              `yaml:"script_instruction_limit"`
	EnemyTag               string           `yaml:"enemy_tag"`
	Rooms                  []yamlRoom       `yaml:"rooms"`
	Connections            []yamlConnection `yaml:"connections"`
}

// yamlRoom is the YAML representation of a room.
type yamlRoom struct {
	ID              string       `yaml:"id"`
	Title           string       `yaml:"title"`
	Origin          geom.Vec2    `yaml:"origin"`
	DoorsAlwaysOpen bool         `yaml:"doors_always_open"`
	Boss            bool         `yaml:"boss"`
	Doors           []yamlDoor   `yaml:"doors"`
	Floor           *geom.Bounds `yaml:"floor"`
	Enemies         []yamlSpawn  `yaml:"enemies"`
	Traps           []geom.Vec2  `yaml:"traps"`
}

type yamlDoor struct {
	Direction string    `yaml:"direction"`
	Offset    geom.Vec2 `yaml:"offset"`
}

type yamlSpawn struct {
	Template string    `yaml:"template"`
	Offset   geom.Vec2 `yaml:"offset"`
}

type yamlConnection struct {
	From      string `yaml:"from"`
	Direction string `yaml:"direction"`
	To        string `yaml:"to"`
}

// LoadLayoutFromFile reads and validates a single dungeon YAML file.
//
// Precondition: path must point to a valid YAML dungeon file.
// Postcondition: Returns a validated, connected Layout or a non-nil error.
func LoadLayoutFromFile(path string, logger *zap.Logger) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dungeon file %s: %w", path, err)
	}
	return LoadLayoutFromBytes(data, logger)
}

// LoadLayoutFromBytes parses, validates and connects a dungeon from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the dungeon schema.
// Postcondition: Returns a validated, connected Layout or a non-nil error.
func LoadLayoutFromBytes(data []byte, logger *zap.Logger) (*Layout, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var file yamlDungeonFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing dungeon YAML: %w", err)
	}

	layout, err := convertYAMLDungeon(file.Dungeon, logger)
	if err != nil {
		return nil, err
	}
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("validating dungeon: %w", err)
	}
	for _, yc := range file.Dungeon.Connections {
		dir, err := ParseDirection(yc.Direction)
		if err != nil {
			return nil, fmt.Errorf("dungeon %q: connection %q -> %q: %w", layout.ID, yc.From, yc.To, err)
		}
		if _, err := layout.Connect(yc.From, dir, yc.To); err != nil {
			return nil, fmt.Errorf("dungeon %q: %w", layout.ID, err)
		}
	}
	return layout, nil
}

// LoadLayoutsFromDir loads all YAML files in a directory as dungeon layouts.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns all validated layouts or the first error encountered.
func LoadLayoutsFromDir(dir string, logger *zap.Logger) ([]*Layout, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading dungeon directory %s: %w", dir, err)
	}

	var layouts []*Layout
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		layout, err := LoadLayoutFromFile(filepath.Join(dir, name), logger)
		if err != nil {
			return nil, fmt.Errorf("loading dungeon from %s: %w", name, err)
		}
		layouts = append(layouts, layout)
	}

	if len(layouts) == 0 {
		return nil, fmt.Errorf("no dungeon files found in %s", dir)
	}

	return layouts, nil
}

// convertYAMLDungeon converts the parsed YAML structures into domain types.
func convertYAMLDungeon(yd yamlDungeon, logger *zap.Logger) (*Layout, error) {
	layout := &Layout{
		ID:                     yd.ID,
		Name:                   yd.Name,
		StartRoom:              yd.StartRoom,
		ScriptDir:              yd.ScriptDir,
		ScriptInstructionLimit: yd.ScriptInstructionLimit,
		Rooms:                  make(map[string]*Room, len(yd.Rooms)),
	}
	floor := FloorExtents{}

	for _, yr := range yd.Rooms {
		if _, dup := layout.Rooms[yr.ID]; dup {
			return nil, fmt.Errorf("dungeon %q: duplicate room ID %q", yd.ID, yr.ID)
		}
		var doors []DoorInfo
		for _, ydoor := range yr.Doors {
			dir, err := ParseDirection(ydoor.Direction)
			if err != nil {
				return nil, fmt.Errorf("dungeon %q: room %q: %w", yd.ID, yr.ID, err)
			}
			doors = append(doors, DoorInfo{Direction: dir, Offset: ydoor.Offset})
		}
		room := NewRoom(yr.ID, yr.Origin, doors, logger)
		room.Title = yr.Title
		room.DoorsAlwaysOpen = yr.DoorsAlwaysOpen
		room.Boss = yr.Boss
		room.Floor = floor
		if yd.EnemyTag != "" {
			room.EnemyTag = yd.EnemyTag
		}
		if yr.Floor != nil {
			floor[yr.ID] = geom.NewBounds(yr.Floor.Min, yr.Floor.Max)
		}
		for _, ys := range yr.Enemies {
			room.Spawns = append(room.Spawns, Spawn{Template: ys.Template, Offset: ys.Offset})
		}
		room.Traps = append(room.Traps, yr.Traps...)
		layout.Rooms[room.ID] = room
	}

	return layout, nil
}
