package biometric_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dungeon/internal/game/biometric"
)

func energy(v float64) *float64 { return &v }

func TestActiveCalories_Threshold(t *testing.T) {
	below := biometric.ActiveCalories([]biometric.CaloriesRecord{
		{Energy: energy(150_999)},
		{Energy: energy(148_999)},
		{Energy: nil},
	})
	assert.Equal(t, 298, below.Total, "each record is truncated before summing")
	require.Len(t, below.Effects(), 1)
	assert.Equal(t, 0, below.Effects()[0].Level())

	at := biometric.ActiveCalories([]biometric.CaloriesRecord{{Energy: energy(300_000)}})
	assert.Equal(t, 300, at.Total)
	assert.Equal(t, 1, at.Effects()[0].Level())
	assert.Contains(t, at.Text(), "300 active calories")
	assert.Contains(t, at.Text(), "doors that never lock")
}

func TestVO2Max_Levels(t *testing.T) {
	cases := []struct {
		values []float64
		level  int
	}{
		{[]float64{30, 35}, 1},
		{[]float64{35}, 1},
		{[]float64{35.5}, 2},
		{[]float64{45}, 2},
		{[]float64{44, 48}, 3},
	}
	for _, tc := range cases {
		records := make([]biometric.VO2MaxRecord, 0, len(tc.values))
		for _, v := range tc.values {
			records = append(records, biometric.VO2MaxRecord{Value: v})
		}
		m, err := biometric.VO2Max(records)
		require.NoError(t, err)
		assert.Equal(t, tc.level, m.Level, "values %v", tc.values)
		assert.Equal(t, tc.level, m.Effects()[0].Level())
	}
}

func TestVO2Max_NoData(t *testing.T) {
	_, err := biometric.VO2Max(nil)
	assert.ErrorIs(t, err, biometric.ErrNoData)
}

func TestEffects_Apply(t *testing.T) {
	mods := biometric.NewModifiers()
	require.NoError(t, biometric.NewNoDoorClose(0).Apply(mods))
	assert.False(t, mods.DoorsAlwaysOpen)
	require.NoError(t, biometric.NewNoDoorClose(1).Apply(mods))
	assert.True(t, mods.DoorsAlwaysOpen)

	require.NoError(t, biometric.NewToxicPuddle(3).Apply(mods))
	assert.InDelta(t, 0.5, mods.PuddleDurationScale, 1e-9)

	require.NoError(t, biometric.NewAttackSpeed(1).Apply(mods))
	assert.InDelta(t, 0.8, mods.AttackCooldownScale, 1e-9)

	require.NoError(t, biometric.NewDodgeTraps(1).Apply(mods))
	assert.True(t, mods.DodgeTraps)

	require.NoError(t, biometric.NewHallucination(2).Apply(mods))
	assert.Equal(t, 2, mods.Phantoms)
}

func TestHallucination_InvalidLevel(t *testing.T) {
	for _, level := range []int{0, 3, -1} {
		h := biometric.NewHallucination(level)
		_, err := h.Description()
		assert.ErrorIs(t, err, biometric.ErrInvalidLevel)
		mods := biometric.NewModifiers()
		assert.ErrorIs(t, h.Apply(mods), biometric.ErrInvalidLevel)
		assert.Zero(t, mods.Phantoms)
	}
	d, err := biometric.NewHallucination(1).Description()
	require.NoError(t, err)
	assert.Equal(t, "Each room will contain a phantom enemy.", d)
}

func TestEffectByName(t *testing.T) {
	e, err := biometric.EffectByName("Dodge Traps", 1)
	require.NoError(t, err)
	assert.Equal(t, "Dodge Traps", e.Name())

	e, err = biometric.EffectByName("attack_speed", 1)
	require.NoError(t, err)
	assert.Equal(t, "Attack Speed", e.Name())

	_, err = biometric.EffectByName("flight", 1)
	assert.Error(t, err)
}

func TestApplyAll_AppliesEachEffectOnceAndJoinsErrors(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	records := &biometric.Records{
		ActiveCalories: []biometric.CaloriesRecord{{Energy: energy(400_000)}},
		VO2Max:         []biometric.VO2MaxRecord{{Value: 30}},
		Effects: []biometric.EffectGrant{
			{Name: "attack speed", Level: 1},
			{Name: "hallucination", Level: 5},
		},
	}
	metrics, err := biometric.Collect(records)
	require.NoError(t, err)
	require.Len(t, metrics, 3)

	mods := biometric.NewModifiers()
	err = biometric.ApplyAll(metrics, mods, zap.New(core))
	require.Error(t, err)
	assert.True(t, errors.Is(err, biometric.ErrInvalidLevel))

	assert.True(t, mods.DoorsAlwaysOpen)
	assert.InDelta(t, 1.5, mods.PuddleDurationScale, 1e-9)
	assert.InDelta(t, 0.8, mods.AttackCooldownScale, 1e-9)
	assert.Zero(t, mods.Phantoms)
	assert.Equal(t, 3, logs.FilterMessage("biometric effect applied").Len())
	assert.Equal(t, 1, logs.FilterMessage("biometric effect not applied").Len())
}

func TestCollect_UnknownGrant(t *testing.T) {
	_, err := biometric.Collect(&biometric.Records{Effects: []biometric.EffectGrant{{Name: "x"}}})
	assert.Error(t, err)
}

func TestLoadRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "today.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
active_calories:
  - time: 2026-01-02T08:00:00Z
    energy: 250000
  - time: 2026-01-02T12:00:00Z
vo2_max:
  - value: 41.5
effects:
  - name: dodge_traps
    level: 1
`), 0o644))

	r, err := biometric.LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, r.ActiveCalories, 2)
	require.NotNil(t, r.ActiveCalories[0].Energy)
	assert.Nil(t, r.ActiveCalories[1].Energy)
	assert.InDelta(t, 41.5, r.VO2Max[0].Value, 1e-9)
	assert.Equal(t, "dodge_traps", r.Effects[0].Name)

	_, err = biometric.LoadRecords(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestProperty_ActiveCalories_LevelMatchesThreshold(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		values := rapid.SliceOf(rapid.Float64Range(0, 200_000)).Draw(rt, "energy")
		records := make([]biometric.CaloriesRecord, 0, len(values))
		want := 0
		for _, v := range values {
			v := v
			records = append(records, biometric.CaloriesRecord{Energy: &v})
			want += int(v) / 1000
		}
		m := biometric.ActiveCalories(records)
		assert.Equal(rt, want, m.Total)
		if want >= biometric.CalorieThreshold {
			assert.Equal(rt, 1, m.Effects()[0].Level())
		} else {
			assert.Equal(rt, 0, m.Effects()[0].Level())
		}
	})
}
