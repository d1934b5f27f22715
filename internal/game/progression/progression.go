// Package progression implements the experience curve and the per-player
// experience tracker with its daily bonus window.
package progression

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults for the bonus window.
const (
	DefaultBonusMultiplier = 1.5
	DefaultBonusCooldown   = 24 * time.Hour
)

// XPRequiredForLevel returns the total experience needed to reach level.
//
// Postcondition: XPRequiredForLevel(1) == 100; strictly increasing in level.
func XPRequiredForLevel(level int) int {
	return int(math.Floor(pow15(level) * 100))
}

// pow15 returns n^1.5 as n*sqrt(n); Sqrt is exact on perfect squares.
func pow15(n int) float64 {
	f := float64(n)
	return f * math.Sqrt(f)
}

// LevelFromTotalXP returns the largest level L >= 1 with XPRequiredForLevel(L) <= total.
//
// Postcondition: Returns 1 when total is below XPRequiredForLevel(2); monotonically
// non-decreasing in total.
func LevelFromTotalXP(total int) int {
	level := 1
	for XPRequiredForLevel(level+1) <= total {
		level++
	}
	return level
}

// Clock returns the current wall-clock time.
type Clock func() time.Time

// Options configures a Tracker.
type Options struct {
	BonusMultiplier float64
	BonusCooldown   time.Duration
	Clock           Clock
}

// Tracker owns a player's total experience and derived level.
// It is safe for concurrent use.
type Tracker struct {
	mu          sync.RWMutex
	experience  int
	level       int
	maxXP       int
	cooldownEnd time.Time

	multiplier float64
	cooldown   time.Duration
	clock      Clock
	logger     *zap.Logger
}

// NewTracker creates a Tracker at zero experience with the bonus available.
//
// Postcondition: Level() == 1; BonusActive() is true.
func NewTracker(opts Options, logger *zap.Logger) *Tracker {
	if opts.BonusMultiplier <= 0 {
		opts.BonusMultiplier = DefaultBonusMultiplier
	}
	if opts.BonusCooldown <= 0 {
		opts.BonusCooldown = DefaultBonusCooldown
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		multiplier: opts.BonusMultiplier,
		cooldown:   opts.BonusCooldown,
		clock:      opts.Clock,
		logger:     logger,
	}
	t.recompute()
	return t
}

// Experience returns the total accumulated experience.
func (t *Tracker) Experience() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.experience
}

// Level returns the level derived from Experience.
func (t *Tracker) Level() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.level
}

// ExperienceMax returns the experience threshold of the next level.
func (t *Tracker) ExperienceMax() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.maxXP
}

// SetExperience replaces the total, as when loading a saved profile.
//
// Precondition: total >= 0.
// Postcondition: Level() == LevelFromTotalXP(total).
func (t *Tracker) SetExperience(total int) {
	if total < 0 {
		total = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.experience = total
	t.recompute()
}

// AddExperience adds xp, multiplied while the bonus window is open, and returns
// the amount actually added.
//
// Precondition: xp >= 0.
// Postcondition: Level and ExperienceMax are consistent with the new total.
func (t *Tracker) AddExperience(xp int) int {
	if xp <= 0 {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	gained := xp
	if t.bonusActive() {
		gained = int(float64(xp) * t.multiplier)
	}
	before := t.level
	t.experience += gained
	t.recompute()
	t.logger.Debug("experience added",
		zap.Int("xp", xp),
		zap.Int("gained", gained),
		zap.Int("total", t.experience),
		zap.Int("level", t.level),
	)
	if t.level > before {
		t.logger.Info("level up", zap.Int("from", before), zap.Int("to", t.level))
	}
	return gained
}

// BonusActive reports whether the bonus multiplier currently applies.
func (t *Tracker) BonusActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bonusActive()
}

func (t *Tracker) bonusActive() bool {
	return !t.clock().Before(t.cooldownEnd)
}

// ResetCooldown closes the bonus window for the configured cooldown.
//
// Postcondition: BonusActive() is false until the cooldown elapses.
func (t *Tracker) ResetCooldown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cooldownEnd = t.clock().Add(t.cooldown)
}

// CooldownEnd returns the instant the bonus window reopens.
func (t *Tracker) CooldownEnd() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cooldownEnd
}

// SetCooldownEnd restores a saved cooldown.
func (t *Tracker) SetCooldownEnd(end time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cooldownEnd = end
}

// CooldownRemaining returns the time until the bonus window reopens, or zero.
func (t *Tracker) CooldownRemaining() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d := t.cooldownEnd.Sub(t.clock())
	if d < 0 {
		return 0
	}
	return d
}

// AddEnemy awards experience for defeating an enemy of level.
func (t *Tracker) AddEnemy(level int) int { return t.AddExperience(10 * level * level) }

// AddBoss awards experience for defeating a boss of level.
func (t *Tracker) AddBoss(level int) int { return t.AddExperience(30 * level * level) }

// AddQuest awards experience for a quest of the given difficulty.
func (t *Tracker) AddQuest(difficulty int) int { return t.AddExperience(50 + 20*difficulty) }

// AddAchievement awards experience for an achievement of the given tier.
func (t *Tracker) AddAchievement(tier int) int {
	return t.AddExperience(int(math.Floor(100 * pow15(tier))))
}

// AddGameWin awards experience for winning a run at the current level.
func (t *Tracker) AddGameWin() int {
	level := t.Level()
	return t.AddExperience(int(math.Floor(10 + 100*math.Pow(float64(level), 1.2))))
}

func (t *Tracker) recompute() {
	t.level = LevelFromTotalXP(t.experience)
	t.maxXP = XPRequiredForLevel(t.level + 1)
}
