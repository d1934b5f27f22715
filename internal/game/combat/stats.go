package combat

import (
	"math"
	"time"

	"github.com/cory-johannsen/dungeon/internal/game/dice"
)

// Stats are the level-independent base values of a fighter.
type Stats struct {
	BaseHitpoint      int           `yaml:"base_hitpoint"`
	HitpointPerLevel  int           `yaml:"hitpoint_per_level"`
	BaseSpeed         float64       `yaml:"base_speed"`
	ImmunityWindow    time.Duration `yaml:"immunity_window"`
	PushRecoverySpeed float64       `yaml:"push_recovery_speed"`
}

// DefaultPlayerStats returns the player baseline.
func DefaultPlayerStats() Stats {
	return Stats{
		BaseHitpoint:      10,
		HitpointPerLevel:  2,
		BaseSpeed:         1.5,
		ImmunityWindow:    DefaultImmunityWindow,
		PushRecoverySpeed: 0.2,
	}
}

// MaxHitpointForLevel returns the maximum hitpoints at level.
//
// Postcondition: Returns at least 1.
func (s Stats) MaxHitpointForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	hp := s.BaseHitpoint + (level-1)*s.HitpointPerLevel
	if hp < 1 {
		hp = 1
	}
	return hp
}

// DamageStat scales a base damage value linearly with level.
//
// Postcondition: Returns base at level 1.
func DamageStat(base, level int, scaling float64) int {
	if level < 1 {
		level = 1
	}
	return base + int(math.Round(float64(level-1)*scaling))
}

// RollDamage rolls an amount in [lo, hi] and applies critMultiplier with probability critChance.
//
// Postcondition: crit is false implies lo <= amount <= hi.
func RollDamage(r *dice.Roller, lo, hi int, critChance, critMultiplier float64) (amount int, crit bool) {
	amount = r.Between(lo, hi)
	if r.Chance(critChance) {
		amount = int(math.Round(float64(amount) * critMultiplier))
		crit = true
	}
	return amount, crit
}
