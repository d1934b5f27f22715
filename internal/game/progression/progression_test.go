package progression_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dungeon/internal/game/progression"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTracker(t *testing.T) (*progression.Tracker, *fakeClock) {
	clk := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return progression.NewTracker(progression.Options{Clock: clk.Now}, zaptest.NewLogger(t)), clk
}

func TestXPRequiredForLevel(t *testing.T) {
	assert.Equal(t, 100, progression.XPRequiredForLevel(1))
	assert.Equal(t, 282, progression.XPRequiredForLevel(2))
	assert.Equal(t, 519, progression.XPRequiredForLevel(3))
	assert.Equal(t, 800, progression.XPRequiredForLevel(4))
}

func TestLevelFromTotalXP(t *testing.T) {
	tests := []struct {
		total int
		want  int
	}{
		{0, 1},
		{100, 1},
		{281, 1},
		{282, 2},
		{799, 3},
		{800, 4},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, progression.LevelFromTotalXP(tc.total), "total=%d", tc.total)
	}
}

func TestTracker_AddExperience_Bonus(t *testing.T) {
	tr, _ := newTracker(t)
	assert.True(t, tr.BonusActive())
	assert.Equal(t, 150, tr.AddExperience(100))
	assert.Equal(t, 150, tr.Experience())

	tr.ResetCooldown()
	assert.False(t, tr.BonusActive())
	assert.Equal(t, 100, tr.AddExperience(100))
	assert.Equal(t, 250, tr.Experience())
}

func TestTracker_CooldownElapses(t *testing.T) {
	tr, clk := newTracker(t)
	tr.ResetCooldown()
	assert.Equal(t, 24*time.Hour, tr.CooldownRemaining())

	clk.now = clk.now.Add(24 * time.Hour)
	assert.True(t, tr.BonusActive())
	assert.Equal(t, time.Duration(0), tr.CooldownRemaining())
}

func TestTracker_SetExperience(t *testing.T) {
	tr, _ := newTracker(t)
	tr.SetExperience(800)
	assert.Equal(t, 4, tr.Level())
	assert.Equal(t, progression.XPRequiredForLevel(5), tr.ExperienceMax())
}

func TestTracker_Awards(t *testing.T) {
	tr, _ := newTracker(t)
	tr.ResetCooldown()
	assert.Equal(t, 90, tr.AddEnemy(3))
	assert.Equal(t, 120, tr.AddBoss(2))
	assert.Equal(t, 110, tr.AddQuest(3))
	assert.Equal(t, 282, tr.AddAchievement(2))
	// 602 total experience is level 3: floor(10 + 100 * 3^1.2) = 383.
	assert.Equal(t, 383, tr.AddGameWin())
}

func TestProperty_LevelConsistentWithThresholds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		total := rapid.IntRange(0, 1_000_000).Draw(rt, "total")
		l := progression.LevelFromTotalXP(total)
		assert.GreaterOrEqual(rt, l, 1)
		if l > 1 {
			assert.LessOrEqual(rt, progression.XPRequiredForLevel(l), total)
		}
		assert.Greater(rt, progression.XPRequiredForLevel(l+1), total)
	})
}

func TestProperty_LevelMonotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tr := progression.NewTracker(progression.Options{}, nil)
		prev := tr.Level()
		for _, xp := range rapid.SliceOfN(rapid.IntRange(0, 5000), 1, 30).Draw(rt, "xp") {
			tr.AddExperience(xp)
			assert.GreaterOrEqual(rt, tr.Level(), prev)
			assert.Greater(rt, tr.ExperienceMax(), tr.Experience())
			prev = tr.Level()
		}
	})
}
