package gameserver_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/dungeon/internal/config"
	"github.com/cory-johannsen/dungeon/internal/game/dice"
	"github.com/cory-johannsen/dungeon/internal/game/profile"
	"github.com/cory-johannsen/dungeon/internal/gameserver"
)

// Room bounds are (-5,-5)-(5,5) around each origin; the hall sits north of the entrance.
const fourDoors = `
      doors:
        - {direction: North, offset: {x: 0, y: 5}}
        - {direction: South, offset: {x: 0, y: -5}}
        - {direction: East, offset: {x: 5, y: 0}}
        - {direction: West, offset: {x: -5, y: 0}}`

const twoRoomDungeon = `
dungeon:
  id: crypt
  name: "Test Crypt"
  start_room: entrance
  script_dir: SCRIPTS
  rooms:
    - id: entrance
      title: Entrance
      origin: {x: 0, y: 0}` + fourDoors + `
      enemies:
        - {template: skeleton, offset: {x: 4, y: -4}}
    - id: hall
      title: Hall
      origin: {x: 0, y: 10}` + fourDoors + `
  connections:
    - {from: entrance, direction: North, to: hall}
`

const emptyRoomDungeon = `
dungeon:
  id: cell
  name: "Empty Cell"
  start_room: cell
  rooms:
    - id: cell
      title: Cell
      origin: {x: 0, y: 0}` + fourDoors + `
      traps:
        - {x: 0, y: 0}
`

const skeletonYAML = `
id: skeleton
name: Skeleton
kind: melee
level: 1
stats:
  base_hitpoint: 3
  base_speed: 1
trigger_length: 0
chase_length: 0
loot:
  currency: {min: 2, max: 2}
`

const bruteYAML = `
id: brute
name: Brute
kind: melee
level: 1
stats:
  base_hitpoint: 500
  base_speed: 1
trigger_length: 10
chase_length: 20
contact_damage: {min: 100, max: 100}
`

const phantomYAML = `
id: phantom
name: Phantom
kind: phantom
level: 1
stats:
  base_hitpoint: 1
  base_speed: 1
trigger_length: 0
chase_length: 0
`

const slimeYAML = `
id: slime
name: Slime
kind: melee
level: 1
stats:
  base_hitpoint: 5
  base_speed: 1
trigger_length: 0
chase_length: 0
puddle_interval: 1s
`

const puddleEffectYAML = `
id: toxic_puddle
name: Toxic Puddle
kind: dot
duration: 2s
tick_interval: 500ms
min_damage: 1
max_damage: 2
`

const hooksLua = `
function on_room_cleared(room_id)
  engine.world.broadcast("cleared " .. room_id)
end

function on_enemy_death(uid, template, room_id)
  engine.world.broadcast("died " .. template .. " in " .. room_id)
  engine.world.grant_experience(40)
end
`

// fixture describes a content tree written to a temp dir.
type fixture struct {
	dungeons   map[string]string
	enemies    map[string]string
	effects    map[string]string
	scripts    map[string]string
	biometrics string
}

func defaultFixture() fixture {
	return fixture{
		dungeons: map[string]string{"crypt.yaml": twoRoomDungeon},
		enemies: map[string]string{
			"skeleton.yaml": skeletonYAML,
			"phantom.yaml":  phantomYAML,
		},
		scripts: map[string]string{"hooks.lua": hooksLua},
	}
}

func writeFiles(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
}

// write materialises f and returns its content config. SCRIPTS in a dungeon is
// replaced by the dungeon script dir.
func (f fixture) write(t testing.TB) config.ContentConfig {
	t.Helper()
	root := t.TempDir()
	cfg := config.ContentConfig{
		RoomsDir:   filepath.Join(root, "dungeons"),
		EnemiesDir: filepath.Join(root, "enemies"),
		EffectsDir: filepath.Join(root, "effects"),
	}
	scriptDir := filepath.Join(root, "scripts", "crypt")
	writeFiles(t, scriptDir, f.scripts)

	dungeons := make(map[string]string, len(f.dungeons))
	for name, body := range f.dungeons {
		dungeons[name] = strings.ReplaceAll(body, "SCRIPTS", scriptDir)
	}
	writeFiles(t, cfg.RoomsDir, dungeons)
	writeFiles(t, cfg.EnemiesDir, f.enemies)
	writeFiles(t, cfg.EffectsDir, f.effects)
	if f.biometrics != "" {
		cfg.BiometricsFile = filepath.Join(root, "biometrics.yaml")
		require.NoError(t, os.WriteFile(cfg.BiometricsFile, []byte(f.biometrics), 0o644))
	}
	return cfg
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testSimulation() config.SimulationConfig {
	return config.SimulationConfig{
		TickInterval:      100 * time.Millisecond,
		ImmunityWindow:    time.Second,
		BonusXPMultiplier: 1,
		BonusXPCooldown:   24 * time.Hour,
	}
}

// newSession loads f and starts a seeded session on dungeonID.
func newSession(t testing.TB, f fixture, dungeonID string, prof *profile.Profile) (*gameserver.Session, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	content, err := gameserver.LoadContent(f.write(t), time.Second, logger)
	require.NoError(t, err)
	s, err := gameserver.NewSession(gameserver.Options{
		ID:         "test",
		DungeonID:  dungeonID,
		Content:    content,
		Profile:    prof,
		Simulation: testSimulation(),
		Roller:     dice.NewLoggedRoller(dice.NewSeededSource(42), logger),
		Clock:      func() time.Time { return fixedNow },
		Logger:     logger,
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, logs
}

func tickN(s *gameserver.Session, n int) {
	for i := 0; i < n; i++ {
		s.Tick(100 * time.Millisecond)
	}
}
