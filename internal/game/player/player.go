// Package player implements the player character: movement, the automatic weapon
// swing, and level tracking against the experience curve.
package player

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/game/combat"
	"github.com/cory-johannsen/dungeon/internal/game/dice"
	"github.com/cory-johannsen/dungeon/internal/game/geom"
	"github.com/cory-johannsen/dungeon/internal/game/npc"
	"github.com/cory-johannsen/dungeon/internal/game/progression"
)

// LevelUpText is announced above the player on every level gained.
const LevelUpText = "Level Up!"

// levelUpFontSize is the floating text size of the level-up announcement.
const levelUpFontSize = 14

// Stats are the player's base values, including the weapon.
type Stats struct {
	combat.Stats `yaml:",inline"`

	AttackCooldown time.Duration `yaml:"attack_cooldown"`
	WeaponMin      int           `yaml:"weapon_min"`
	WeaponMax      int           `yaml:"weapon_max"`
	WeaponScaling  float64       `yaml:"weapon_scaling"`
	WeaponReach    float64       `yaml:"weapon_reach"`
	WeaponPush     float64       `yaml:"weapon_push"`
	CritChance     float64       `yaml:"crit_chance"`
	CritMultiplier float64       `yaml:"crit_multiplier"`
}

// DefaultStats returns the starting player.
func DefaultStats() Stats {
	return Stats{
		Stats:          combat.DefaultPlayerStats(),
		AttackCooldown: 500 * time.Millisecond,
		WeaponMin:      1,
		WeaponMax:      3,
		WeaponScaling:  0.5,
		WeaponReach:    1.0,
		WeaponPush:     1.0,
		CritChance:     0.1,
		CritMultiplier: 2,
	}
}

// Player is the hero controlled by the client.
type Player struct {
	*combat.Fighter

	stats      Stats
	xp         *progression.Tracker
	roller     *dice.Roller
	logger     *zap.Logger
	cooldown   time.Duration
	lastAttack time.Duration
	attacked   bool
}

// New builds a player at the tracker's current level.
//
// Precondition: xp and roller must not be nil; cooldownScale > 0.
// Postcondition: Level == xp.Level(); Hitpoint == MaxHitpoint.
func New(id, name string, stats Stats, xp *progression.Tracker, roller *dice.Roller, cooldownScale float64, logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := combat.NewFighter(id, name, combat.KindPlayer, xp.Level(), stats.Stats)
	f.Jitter = roller.Source()
	return &Player{
		Fighter:  f,
		stats:    stats,
		xp:       xp,
		roller:   roller,
		logger:   logger,
		cooldown: time.Duration(float64(stats.AttackCooldown) * cooldownScale),
	}
}

// Stats returns the player's base values.
func (p *Player) Stats() Stats { return p.stats }

// AttackCooldown returns the effective time between swings.
func (p *Player) AttackCooldown() time.Duration { return p.cooldown }

// CanAttack reports whether a swing is allowed at now. The first swing is always allowed.
func (p *Player) CanAttack(now time.Duration) bool {
	return p.Alive() && (!p.attacked || now >= p.lastAttack+p.cooldown)
}

// WeaponDamage returns the level-scaled weapon damage bounds.
func (p *Player) WeaponDamage() (lo, hi int) {
	return combat.DamageStat(p.stats.WeaponMin, p.Level, p.stats.WeaponScaling),
		combat.DamageStat(p.stats.WeaponMax, p.Level, p.stats.WeaponScaling)
}

// Attack swings the weapon at every live enemy within reach.
//
// Postcondition: Returns the results of hits that were applied; the cooldown restarts
// even when nothing was in reach.
func (p *Player) Attack(now time.Duration, enemies []*npc.Instance) []combat.Result {
	if !p.CanAttack(now) {
		return nil
	}
	p.attacked = true
	p.lastAttack = now

	lo, hi := p.WeaponDamage()
	var out []combat.Result
	for _, e := range enemies {
		if e.IsDead() || e.Position.Dist(p.Position) > p.stats.WeaponReach {
			continue
		}
		amount, crit := combat.RollDamage(p.roller, lo, hi, p.stats.CritChance, p.stats.CritMultiplier)
		res := e.ReceiveDamage(combat.Damage{
			Amount:      amount,
			Origin:      p.Position,
			PushForce:   p.stats.WeaponPush,
			IsCritical:  crit,
			MinPossible: lo,
			MaxPossible: hi,
		}, now)
		if res.Applied {
			out = append(out, res)
		}
	}
	return out
}

// SyncLevel raises the fighter to the tracker's level, announcing each gain.
//
// Postcondition: Returns the number of levels gained; Level == xp.Level() when gained > 0.
func (p *Player) SyncLevel() int {
	target := p.xp.Level()
	gained := target - p.Level
	if gained <= 0 || p.IsDead() {
		return 0
	}
	p.SetLevel(target, p.stats.Stats)
	p.Announce(LevelUpText, levelUpFontSize, combat.Gold)
	p.logger.Info("player level up",
		zap.String("player", p.ID),
		zap.Int("level", target),
		zap.Int("max_hitpoint", p.MaxHitpoint),
	)
	return gained
}

// Update moves the player along direction for dt and swings when the cooldown allows.
// direction is normalised; its length is ignored beyond 1.
func (p *Player) Update(direction geom.Vec2, dt, now time.Duration, enemies []*npc.Instance) []combat.Result {
	if p.IsDead() {
		return nil
	}
	if direction.Len() > 1 {
		direction = direction.Normalized()
	}
	p.Step(direction.Scale(p.CurrentSpeed), dt)
	return p.Attack(now, enemies)
}
