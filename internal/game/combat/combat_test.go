package combat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dungeon/internal/game/combat"
	"github.com/cory-johannsen/dungeon/internal/game/dice"
	"github.com/cory-johannsen/dungeon/internal/game/geom"
)

type recordingSink struct {
	texts []combat.FloatingText
}

func (r *recordingSink) ShowFloatingText(t combat.FloatingText) { r.texts = append(r.texts, t) }

func newEnemy(hp int) *combat.Fighter {
	return combat.NewFighter("e1", "Skeleton", combat.KindEnemy, 1, combat.Stats{
		BaseHitpoint:      hp,
		BaseSpeed:         1,
		ImmunityWindow:    time.Second,
		PushRecoverySpeed: 0.5,
	})
}

func TestDamagePercentage_EqualBoundsIsZero(t *testing.T) {
	assert.Equal(t, 0.0, combat.DamagePercentage(combat.Damage{Amount: 5, MinPossible: 5, MaxPossible: 5}))
}

func TestDamagePercentage_Range(t *testing.T) {
	assert.InDelta(t, 0.5, combat.DamagePercentage(combat.Damage{Amount: 6, MinPossible: 2, MaxPossible: 10}), 1e-9)
	assert.Equal(t, 1.0, combat.DamagePercentage(combat.Damage{Amount: 50, MinPossible: 2, MaxPossible: 10}))
	assert.Equal(t, 0.0, combat.DamagePercentage(combat.Damage{Amount: 0, MinPossible: 2, MaxPossible: 10}))
}

func TestReceiveDamage_ImmunityWindowAbsorbsSecondHit(t *testing.T) {
	f := newEnemy(10)
	first := f.ReceiveDamage(combat.Damage{Amount: 3}, 0)
	second := f.ReceiveDamage(combat.Damage{Amount: 3}, 500*time.Millisecond)

	assert.True(t, first.Applied)
	assert.False(t, second.Applied)
	assert.Equal(t, 7, f.Hitpoint)
}

func TestReceiveDamage_AcceptedAfterWindow(t *testing.T) {
	f := newEnemy(10)
	f.ReceiveDamage(combat.Damage{Amount: 3}, 0)
	res := f.ReceiveDamage(combat.Damage{Amount: 3}, 1001*time.Millisecond)
	assert.True(t, res.Applied)
	assert.Equal(t, 4, f.Hitpoint)
}

func TestReceiveDamage_KnockbackAwayFromOrigin(t *testing.T) {
	f := newEnemy(10)
	f.Position = geom.V(3, 0)
	res := f.ReceiveDamage(combat.Damage{Amount: 1, Origin: geom.V(0, 0), PushForce: 2}, 0)
	assert.InDelta(t, 2.0, res.Knockback.X, 1e-9)
	assert.InDelta(t, 0.0, res.Knockback.Y, 1e-9)
	assert.Equal(t, res.Knockback, f.Push)
}

func TestReceiveDamage_KnockbackZeroWhenOriginCoincides(t *testing.T) {
	f := newEnemy(10)
	res := f.ReceiveDamage(combat.Damage{Amount: 1, PushForce: 2}, 0)
	assert.True(t, res.Knockback.IsZero())
}

func TestReceiveDamage_DeathFiresOnce(t *testing.T) {
	f := newEnemy(5)
	deaths := 0
	f.OnDeath = combat.DeathFunc(func(*combat.Fighter) { deaths++ })

	res := f.ReceiveDamage(combat.Damage{Amount: 9}, 0)
	require.True(t, res.Died)
	assert.Equal(t, 0, f.Hitpoint)
	assert.True(t, f.IsDead())

	f.ReceiveDamage(combat.Damage{Amount: 9}, 10*time.Second)
	f.Kill()
	assert.Equal(t, 1, deaths)
}

func TestReceiveDamage_FloatingText(t *testing.T) {
	tests := []struct {
		name string
		kind combat.Kind
		crit bool
		want combat.Color
	}{
		{"player normal", combat.KindPlayer, false, combat.Red},
		{"player crit", combat.KindPlayer, true, combat.White},
		{"enemy normal", combat.KindEnemy, false, combat.White},
		{"enemy crit", combat.KindEnemy, true, combat.Yellow},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sink := &recordingSink{}
			f := combat.NewFighter("x", "X", tc.kind, 1, combat.Stats{BaseHitpoint: 20})
			f.Feedback = sink
			f.ReceiveDamage(combat.Damage{Amount: 4, IsCritical: tc.crit, MinPossible: 1, MaxPossible: 8}, 0)
			require.Len(t, sink.texts, 1)
			assert.Equal(t, "4", sink.texts[0].Text)
			assert.Equal(t, tc.want, sink.texts[0].Color)
			assert.Equal(t, combat.FloatingTextTime, sink.texts[0].Duration)
			assert.Greater(t, sink.texts[0].Drift.Y, 0.0)
		})
	}
}

func TestReceiveDamage_CustomColorWins(t *testing.T) {
	sink := &recordingSink{}
	f := newEnemy(10)
	f.Feedback = sink
	f.ReceiveDamage(combat.Damage{Amount: 1, CustomColor: &combat.Green}, 0)
	require.Len(t, sink.texts, 1)
	assert.Equal(t, combat.Green, sink.texts[0].Color)
}

func TestReceiveDamage_TextInsideHitBox(t *testing.T) {
	sink := &recordingSink{}
	f := newEnemy(10)
	f.Position = geom.V(4, 4)
	f.Jitter = dice.NewSeededSource(7)
	f.Feedback = sink
	f.ReceiveDamage(combat.Damage{Amount: 1}, 0)
	require.Len(t, sink.texts, 1)
	assert.True(t, f.Bounds().Contains(sink.texts[0].Position))
}

func TestDamageFontSize_CritClamped(t *testing.T) {
	assert.Equal(t, combat.MinDamageFontSize, combat.DamageFontSize(combat.Damage{Amount: 1, MinPossible: 1, MaxPossible: 5}))
	assert.Equal(t, combat.MaxDamageFontSize, combat.DamageFontSize(combat.Damage{Amount: 5, MinPossible: 1, MaxPossible: 5, IsCritical: true}))
	assert.Equal(t, combat.MinDamageFontSize+combat.CritFontSizeBonus,
		combat.DamageFontSize(combat.Damage{Amount: 1, MinPossible: 1, MaxPossible: 5, IsCritical: true}))
}

func TestHealAndSetLevel(t *testing.T) {
	stats := combat.Stats{BaseHitpoint: 10, HitpointPerLevel: 2}
	f := combat.NewFighter("p", "Hero", combat.KindPlayer, 1, stats)
	f.ReceiveDamage(combat.Damage{Amount: 6}, 0)
	f.Heal(100)
	assert.Equal(t, 10, f.Hitpoint)

	f.SetLevel(3, stats)
	assert.Equal(t, 14, f.MaxHitpoint)
	assert.Equal(t, 14, f.Hitpoint)

	f.SetLevel(1, stats)
	assert.Equal(t, 10, f.Hitpoint)
}

func TestDamageStat(t *testing.T) {
	assert.Equal(t, 3, combat.DamageStat(3, 1, 1.5))
	assert.Equal(t, 6, combat.DamageStat(3, 3, 1.5))
}

func TestRollDamage_Crit(t *testing.T) {
	r := dice.NewLoggedRoller(&dice.FixedSource{Values: []int{2, 0}}, zaptest.NewLogger(t))
	amount, crit := combat.RollDamage(r, 1, 5, 0.5, 2)
	assert.True(t, crit)
	assert.Equal(t, 6, amount)
}

func TestRecoverPushAndMovement(t *testing.T) {
	f := newEnemy(10)
	f.Push = geom.V(4, 0)
	assert.Equal(t, geom.V(5, 0), f.Movement(geom.V(1, 0)))
	f.RecoverPush()
	assert.InDelta(t, 2.0, f.Push.X, 1e-9)
	f.Step(geom.Vec2{}, time.Second)
	assert.InDelta(t, 2.0, f.Position.X, 1e-9)
	assert.InDelta(t, 1.0, f.Push.X, 1e-9)
}

func TestProperty_HitpointNeverNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		hp := rapid.IntRange(1, 200).Draw(rt, "hp")
		f := newEnemy(hp)
		deaths := 0
		f.OnDeath = combat.DeathFunc(func(*combat.Fighter) { deaths++ })
		hits := rapid.SliceOfN(rapid.IntRange(0, 100), 1, 20).Draw(rt, "hits")
		now := time.Duration(0)
		for _, h := range hits {
			f.ReceiveDamage(combat.Damage{Amount: h}, now)
			now += time.Duration(rapid.IntRange(0, 3000).Draw(rt, "gap_ms")) * time.Millisecond
			assert.GreaterOrEqual(rt, f.Hitpoint, 0)
		}
		assert.LessOrEqual(rt, deaths, 1)
		if f.Hitpoint == 0 {
			assert.Equal(rt, 1, deaths)
		}
	})
}

func TestProperty_ImmunityGate(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		windowMs := rapid.IntRange(1, 5000).Draw(rt, "window_ms")
		gapMs := rapid.IntRange(0, 10000).Draw(rt, "gap_ms")
		f := combat.NewFighter("e", "E", combat.KindEnemy, 1, combat.Stats{
			BaseHitpoint:   1000,
			ImmunityWindow: time.Duration(windowMs) * time.Millisecond,
		})
		f.ReceiveDamage(combat.Damage{Amount: 1}, 0)
		res := f.ReceiveDamage(combat.Damage{Amount: 1}, time.Duration(gapMs)*time.Millisecond)
		assert.Equal(rt, gapMs > windowMs, res.Applied)
	})
}

func TestProperty_DamagePercentageBounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d := combat.Damage{
			Amount:      rapid.IntRange(-50, 200).Draw(rt, "amount"),
			MinPossible: rapid.IntRange(0, 100).Draw(rt, "min"),
			MaxPossible: rapid.IntRange(0, 100).Draw(rt, "max"),
		}
		p := combat.DamagePercentage(d)
		assert.GreaterOrEqual(rt, p, 0.0)
		assert.LessOrEqual(rt, p, 1.0)
	})
}
