package hazard_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dungeon/internal/game/combat"
	"github.com/cory-johannsen/dungeon/internal/game/dice"
	"github.com/cory-johannsen/dungeon/internal/game/effect"
	"github.com/cory-johannsen/dungeon/internal/game/geom"
	"github.com/cory-johannsen/dungeon/internal/game/hazard"
)

func newPlayer(pos geom.Vec2) (*combat.Fighter, *effect.Set) {
	p := combat.NewFighter("hero", "Hero", combat.KindPlayer, 1, combat.DefaultPlayerStats())
	p.Position = pos
	roller := dice.NewLoggedRoller(&dice.FixedSource{Values: []int{0}}, nil)
	return p, effect.NewSet(p, roller, nil)
}

func TestPuddle_EntryStartsDamageAndSlow(t *testing.T) {
	player, effects := newPlayer(geom.V(0.2, 0))
	puddle := hazard.NewPuddle("puddle-1", hazard.DefaultPuddleSpec(), geom.Vec2{}, nil)

	puddle.Update(100*time.Millisecond, 100*time.Millisecond, player, effects)

	assert.True(t, effects.Active(effect.KindDamageOverTime, "puddle-1"))
	assert.True(t, effects.Active(effect.KindSlow, "puddle-1"))
	assert.Equal(t, 9, player.Hitpoint, "the first tick lands on entry")
	assert.InDelta(t, 0.75, player.CurrentSpeed, 1e-9)

	dot := effects.Get(effect.KindDamageOverTime, "puddle-1")
	require.NotNil(t, dot)
	assert.Equal(t, 4900*time.Millisecond, dot.Duration, "damage lasts at most the puddle's remaining life")
	require.NotNil(t, dot.Color)
	assert.InDelta(t, 1.0, dot.Color.A, 1e-9)

	slow := effects.Get(effect.KindSlow, "puddle-1")
	require.NotNil(t, slow)
	assert.Equal(t, time.Second, slow.Duration)
}

func TestPuddle_AuthoredSlowDuration(t *testing.T) {
	player, effects := newPlayer(geom.V(0.2, 0))
	spec := hazard.DefaultPuddleSpec()
	spec.SlowDuration = 300 * time.Millisecond
	puddle := hazard.NewPuddle("puddle-1", spec, geom.Vec2{}, nil)

	puddle.Update(100*time.Millisecond, 100*time.Millisecond, player, effects)
	slow := effects.Get(effect.KindSlow, "puddle-1")
	require.NotNil(t, slow)
	assert.Equal(t, 300*time.Millisecond, slow.Duration)
}

func TestPuddle_NotRestartedWhileApplying(t *testing.T) {
	player, effects := newPlayer(geom.V(0.2, 0))
	puddle := hazard.NewPuddle("puddle-1", hazard.DefaultPuddleSpec(), geom.Vec2{}, nil)

	puddle.Update(100*time.Millisecond, 100*time.Millisecond, player, effects)
	effects.Tick(100*time.Millisecond, 200*time.Millisecond)
	puddle.Update(100*time.Millisecond, 200*time.Millisecond, player, effects)

	dot := effects.Get(effect.KindDamageOverTime, "puddle-1")
	require.NotNil(t, dot)
	assert.Equal(t, 4800*time.Millisecond, dot.Remaining(), "the running record keeps its elapsed time")
	assert.Equal(t, 9, player.Hitpoint)
}

func TestPuddle_LeavingCancelsDamage(t *testing.T) {
	player, effects := newPlayer(geom.V(0.2, 0))
	puddle := hazard.NewPuddle("puddle-1", hazard.DefaultPuddleSpec(), geom.Vec2{}, nil)
	puddle.Update(100*time.Millisecond, 100*time.Millisecond, player, effects)

	player.Position = geom.V(5, 5)
	puddle.Update(100*time.Millisecond, 200*time.Millisecond, player, effects)
	assert.False(t, effects.Active(effect.KindDamageOverTime, "puddle-1"))
	assert.True(t, effects.Active(effect.KindSlow, "puddle-1"), "the slow runs its own course")
}

func TestPuddle_ExpiresAndCancels(t *testing.T) {
	player, effects := newPlayer(geom.V(0.2, 0))
	puddle := hazard.NewPuddle("puddle-1", hazard.DefaultPuddleSpec(), geom.Vec2{}, nil)
	puddle.Update(100*time.Millisecond, 100*time.Millisecond, player, effects)

	puddle.Update(5*time.Second, 5100*time.Millisecond, player, effects)
	assert.True(t, puddle.Expired())
	assert.False(t, effects.Active(effect.KindDamageOverTime, "puddle-1"))

	hp := player.Hitpoint
	puddle.Update(time.Second, 6100*time.Millisecond, player, effects)
	assert.Equal(t, hp, player.Hitpoint)
}

func TestPuddle_Alpha(t *testing.T) {
	puddle := hazard.NewPuddle("p", hazard.DefaultPuddleSpec(), geom.Vec2{}, nil)
	assert.InDelta(t, 0.6, puddle.Alpha(), 1e-9)

	puddle.Update(3500*time.Millisecond, 0, nil, nil)
	assert.InDelta(t, 0.6, puddle.Alpha(), 1e-9)

	puddle.Update(750*time.Millisecond, 0, nil, nil)
	assert.InDelta(t, 0.3, puddle.Alpha(), 1e-9)
}

func TestPuddleSpec_Scaled(t *testing.T) {
	s := hazard.DefaultPuddleSpec().Scaled(1.5)
	assert.Equal(t, 7500*time.Millisecond, s.Duration)
}

func TestProperty_Puddle_AlphaNonIncreasing(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		puddle := hazard.NewPuddle("p", hazard.DefaultPuddleSpec(), geom.Vec2{}, nil)
		steps := rapid.SliceOfN(rapid.IntRange(1, 500), 1, 30).Draw(rt, "steps")
		prev := puddle.Alpha()
		for _, ms := range steps {
			puddle.Update(time.Duration(ms)*time.Millisecond, 0, nil, nil)
			a := puddle.Alpha()
			assert.LessOrEqual(rt, a, prev+1e-12)
			assert.GreaterOrEqual(rt, a, 0.0)
			prev = a
		}
	})
}
