package dungeon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/dungeon/internal/game/geom"
)

const validDungeonYAML = `
dungeon:
  id: crypt
  name: "The Crypt"
  start_room: entrance
  script_dir: scripts/crypt
  rooms:
    - id: entrance
      title: "Entrance"
      origin: {x: 0, y: 0}
      doors_always_open: true
      doors:
        - direction: North
          offset: {x: 0, y: 5}
        - direction: South
          offset: {x: 0, y: -5}
        - direction: East
          offset: {x: 5, y: 0}
        - direction: West
          offset: {x: -5, y: 0}
    - id: hall
      title: "Hall"
      origin: {x: 0, y: 10}
      floor:
        min: {x: -4, y: -5}
        max: {x: 4, y: 5}
      doors:
        - direction: South
          offset: {x: 0, y: -5}
      enemies:
        - template: skeleton
          offset: {x: 1, y: 1}
      traps:
        - {x: -2, y: 3}
  connections:
    - from: entrance
      direction: North
      to: hall
`

func TestLoadLayoutFromBytes_Valid(t *testing.T) {
	layout, err := LoadLayoutFromBytes([]byte(validDungeonYAML), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "crypt", layout.ID)
	assert.Equal(t, "entrance", layout.StartRoom)
	assert.Equal(t, "scripts/crypt", layout.ScriptDir)
	require.Len(t, layout.Rooms, 2)

	entrance := layout.Rooms["entrance"]
	assert.True(t, entrance.DoorsAlwaysOpen)
	assert.Len(t, entrance.Doors(), 1)

	hall := layout.Rooms["hall"]
	require.Len(t, hall.Spawns, 1)
	assert.Equal(t, "skeleton", hall.Spawns[0].Template)
	assert.Equal(t, []geom.Vec2{geom.V(-2, 3)}, hall.Traps)
	assert.Empty(t, entrance.Traps)
	b := hall.ComputeBounds()
	assert.Equal(t, geom.V(-4, 5), b.Min)
	assert.Equal(t, geom.V(4, 15), b.Max)

	next, ok := layout.Neighbor("hall", South)
	require.True(t, ok)
	assert.Equal(t, "entrance", next.ID)
}

func TestLoadLayoutFromBytes_ConnectedRoomsShareGate(t *testing.T) {
	layout, err := LoadLayoutFromBytes([]byte(validDungeonYAML), nil)
	require.NoError(t, err)
	require.Len(t, layout.Connections, 1)
	gate := layout.Connections[0].Gate

	hall := layout.Rooms["hall"]
	hall.Track(&stubActor{id: "s", alive: true})
	hall.EnterPlayer()
	hall.Tick()
	assert.False(t, gate.IsOpen())
}

func TestLoadLayoutFromBytes_InvalidYAML(t *testing.T) {
	_, err := LoadLayoutFromBytes([]byte("not: [valid yaml"), nil)
	assert.Error(t, err)
}

func TestLoadLayoutFromBytes_BadDirection(t *testing.T) {
	data := `
dungeon:
  id: d
  start_room: a
  rooms:
    - id: a
      doors:
        - direction: Up
`
	_, err := LoadLayoutFromBytes([]byte(data), nil)
	assert.Error(t, err)
}

func TestLoadLayoutFromBytes_MissingOppositeDoor(t *testing.T) {
	data := `
dungeon:
  id: d
  start_room: a
  rooms:
    - id: a
      doors:
        - direction: East
          offset: {x: 5, y: 0}
    - id: b
      doors:
        - direction: East
          offset: {x: 5, y: 0}
  connections:
    - from: a
      direction: East
      to: b
`
	_, err := LoadLayoutFromBytes([]byte(data), nil)
	assert.ErrorContains(t, err, "no West door")
}

func TestLoadLayoutFromBytes_UnknownStartRoom(t *testing.T) {
	data := `
dungeon:
  id: d
  start_room: nowhere
  rooms:
    - id: a
`
	_, err := LoadLayoutFromBytes([]byte(data), nil)
	assert.ErrorContains(t, err, "start_room")
}

func TestLoadLayoutsFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crypt.yaml"), []byte(validDungeonYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644))

	layouts, err := LoadLayoutsFromDir(dir, nil)
	require.NoError(t, err)
	assert.Len(t, layouts, 1)
}

func TestLoadLayoutsFromDir_Empty(t *testing.T) {
	_, err := LoadLayoutsFromDir(t.TempDir(), nil)
	assert.Error(t, err)
}
