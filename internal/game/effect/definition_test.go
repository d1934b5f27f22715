package effect_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/dungeon/internal/game/effect"
)

func TestRegistry_Get(t *testing.T) {
	reg := effect.NewRegistry()
	def := &effect.Def{ID: "poison", Kind: effect.KindDamageOverTime}
	reg.Register(def)
	got, ok := reg.Get("poison")
	require.True(t, ok)
	assert.Equal(t, def, got)
	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestLoadDirectory_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	content := `
id: toxic_puddle
name: Toxic Puddle
kind: dot
duration: 5s
tick_interval: 500ms
min_damage: 1
max_damage: 1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "toxic.yaml"), []byte(content), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0644))

	reg, err := effect.LoadDirectory(dir)
	require.NoError(t, err)
	def, ok := reg.Get("toxic_puddle")
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, def.Duration)
	assert.Equal(t, 500*time.Millisecond, def.TickInterval)
	assert.Len(t, reg.All(), 1)

	rec := def.Record("puddle-1")
	assert.Equal(t, "puddle-1", rec.Source)
	assert.Equal(t, 5*time.Second, rec.Remaining())
}

func TestLoadDirectory_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: x\nkind: slow\nduration: 1s\nfactor: 2\n"), 0644))
	_, err := effect.LoadDirectory(dir)
	assert.Error(t, err)
}

func TestLoadDirectory_UnknownField(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: x\nkind: slow\nwat: 1\n"), 0644))
	_, err := effect.LoadDirectory(dir)
	assert.Error(t, err)
}

func TestDef_Validate_CollectsAll(t *testing.T) {
	def := &effect.Def{Kind: "bogus"}
	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id must not be empty")
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestCheckTickRate(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	fast := &effect.Def{ID: "fast", Kind: effect.KindDamageOverTime, TickInterval: 500 * time.Millisecond}
	slow := &effect.Def{ID: "slow", Kind: effect.KindDamageOverTime, TickInterval: 2 * time.Second}
	notDot := &effect.Def{ID: "mud", Kind: effect.KindSlow}

	assert.True(t, effect.CheckTickRate(fast, time.Second, logger))
	assert.False(t, effect.CheckTickRate(slow, time.Second, logger))
	assert.False(t, effect.CheckTickRate(notDot, time.Second, logger))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "fast", logs.All()[0].ContextMap()["effect"])
}
