// Package combat implements damage resolution for the dungeon crawler.
package combat

import (
	"math"
	"time"

	"github.com/cory-johannsen/dungeon/internal/game/dice"
	"github.com/cory-johannsen/dungeon/internal/game/geom"
)

// Kind distinguishes the player from enemy fighters.
type Kind int

const (
	KindPlayer Kind = iota
	KindEnemy
)

// String returns a human-readable kind label.
func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindEnemy:
		return "enemy"
	default:
		return "unknown"
	}
}

// Floating text presentation constants.
const (
	MinDamageFontSize = 12
	MaxDamageFontSize = 28
	CritFontSizeBonus = 6
	FloatingTextTime  = 500 * time.Millisecond
	FloatingTextRise  = 1.0
)

// DefaultImmunityWindow is the post-hit invulnerability period.
const DefaultImmunityWindow = time.Second

// Damage is a single hit. It is consumed exactly once by ReceiveDamage.
type Damage struct {
	Amount      int
	Origin      geom.Vec2
	PushForce   float64
	IsCritical  bool
	MinPossible int
	MaxPossible int
	// CustomColor overrides the kind-derived floating text colour.
	CustomColor *Color
}

// DamagePercentage places dmg.Amount within its possible range.
//
// Postcondition: Returns a value in [0, 1]; returns 0 when MaxPossible == MinPossible.
func DamagePercentage(dmg Damage) float64 {
	span := dmg.MaxPossible - dmg.MinPossible
	if span == 0 {
		return 0
	}
	pct := float64(dmg.Amount-dmg.MinPossible) / float64(span)
	return math.Max(0, math.Min(1, pct))
}

// DeathHandler is notified exactly once when a fighter's hitpoints reach zero.
type DeathHandler interface {
	Death(f *Fighter)
}

// DeathFunc adapts a plain function to DeathHandler.
type DeathFunc func(f *Fighter)

// Death calls fn(f).
func (fn DeathFunc) Death(f *Fighter) { fn(f) }

// Result describes what a ReceiveDamage call did.
type Result struct {
	// Applied is false when the hit was absorbed by the immunity window or the fighter was already dead.
	Applied   bool
	Dealt     int
	Knockback geom.Vec2
	Died      bool
}

// Fighter is any entity that can take damage: the player or an enemy.
type Fighter struct {
	ID    string
	Name  string
	Kind  Kind
	Level int

	Hitpoint    int
	MaxHitpoint int

	ImmunityWindow time.Duration

	BaseSpeed    float64
	CurrentSpeed float64

	Position geom.Vec2
	// HitBox is relative to Position.
	HitBox geom.Bounds

	PushRecoverySpeed float64
	Push              geom.Vec2

	OnDeath  DeathHandler
	Feedback FeedbackSink
	// Jitter places floating text inside the hit box; nil places it at Position.
	Jitter dice.Source

	lastImmune time.Duration
	immuneSet  bool
	dead       bool
}

// NewFighter builds a fighter at full health for the given level.
//
// Precondition: level >= 1.
// Postcondition: Hitpoint == MaxHitpoint == stats.MaxHitpointForLevel(level).
func NewFighter(id, name string, kind Kind, level int, stats Stats) *Fighter {
	hp := stats.MaxHitpointForLevel(level)
	window := stats.ImmunityWindow
	if window <= 0 {
		window = DefaultImmunityWindow
	}
	return &Fighter{
		ID:                id,
		Name:              name,
		Kind:              kind,
		Level:             level,
		Hitpoint:          hp,
		MaxHitpoint:       hp,
		ImmunityWindow:    window,
		BaseSpeed:         stats.BaseSpeed,
		CurrentSpeed:      stats.BaseSpeed,
		HitBox:            geom.BoxAround(geom.Vec2{}, geom.V(0.8, 0.8)),
		PushRecoverySpeed: stats.PushRecoverySpeed,
	}
}

// IsPlayer reports whether this fighter is the player.
func (f *Fighter) IsPlayer() bool { return f.Kind == KindPlayer }

// IsDead reports whether the fighter has died.
func (f *Fighter) IsDead() bool { return f.dead }

// Alive reports whether the fighter is still alive.
func (f *Fighter) Alive() bool { return !f.dead }

// ActorID returns the fighter ID.
func (f *Fighter) ActorID() string { return f.ID }

// Location returns the fighter position.
func (f *Fighter) Location() geom.Vec2 { return f.Position }

// Bounds returns the hit box in world coordinates.
func (f *Fighter) Bounds() geom.Bounds { return f.HitBox.Translate(f.Position) }

// Immune reports whether a hit at now would be absorbed.
func (f *Fighter) Immune(now time.Duration) bool {
	return f.immuneSet && now-f.lastImmune <= f.ImmunityWindow
}

// ReceiveDamage applies dmg at simulation time now.
//
// Precondition: dmg.Amount >= 0.
// Postcondition: When not Applied, no field of f changed. When Applied,
// Hitpoint >= 0 and the fighter dies exactly once when Hitpoint reaches 0.
func (f *Fighter) ReceiveDamage(dmg Damage, now time.Duration) Result {
	if f.dead || f.Immune(now) {
		return Result{}
	}
	f.lastImmune = now
	f.immuneSet = true

	before := f.Hitpoint
	f.Hitpoint -= dmg.Amount
	if f.Hitpoint < 0 {
		f.Hitpoint = 0
	}
	f.Push = f.Position.Sub(dmg.Origin).Normalized().Scale(dmg.PushForce)

	f.showDamage(dmg)

	res := Result{Applied: true, Dealt: before - f.Hitpoint, Knockback: f.Push}
	if f.Hitpoint == 0 {
		f.die()
		res.Died = true
	}
	return res
}

// Kill forces the death transition regardless of remaining hitpoints.
//
// Postcondition: IsDead() is true; OnDeath fires only if the fighter was alive.
func (f *Fighter) Kill() {
	if f.dead {
		return
	}
	f.Hitpoint = 0
	f.die()
}

func (f *Fighter) die() {
	f.dead = true
	f.Push = geom.Vec2{}
	if f.OnDeath != nil {
		f.OnDeath.Death(f)
	}
}

// Heal restores amount hitpoints, never exceeding MaxHitpoint.
//
// Precondition: amount >= 0.
// Postcondition: Hitpoint <= MaxHitpoint. Dead fighters are not healed.
func (f *Fighter) Heal(amount int) {
	if f.dead || amount <= 0 {
		return
	}
	f.Hitpoint += amount
	if f.Hitpoint > f.MaxHitpoint {
		f.Hitpoint = f.MaxHitpoint
	}
}

// SetLevel changes the fighter level and recomputes MaxHitpoint from stats.
// Hitpoints gained by the new maximum are granted; hitpoints above it are clamped.
//
// Precondition: level >= 1.
func (f *Fighter) SetLevel(level int, stats Stats) {
	newMax := stats.MaxHitpointForLevel(level)
	gained := newMax - f.MaxHitpoint
	f.Level = level
	f.MaxHitpoint = newMax
	if !f.dead && gained > 0 {
		f.Hitpoint += gained
	}
	if f.Hitpoint > f.MaxHitpoint {
		f.Hitpoint = f.MaxHitpoint
	}
}

// RecoverPush decays the knockback vector toward zero.
// A recovery speed of 1 or more clears it in one step.
func (f *Fighter) RecoverPush() {
	t := f.PushRecoverySpeed
	if t >= 1 {
		f.Push = geom.Vec2{}
		return
	}
	if t <= 0 {
		return
	}
	f.Push = f.Push.Lerp(geom.Vec2{}, t)
	if f.Push.Len() < 1e-4 {
		f.Push = geom.Vec2{}
	}
}

// Movement combines a desired velocity with the current knockback.
func (f *Fighter) Movement(input geom.Vec2) geom.Vec2 {
	return input.Add(f.Push)
}

// Step moves the fighter by Movement(input) over dt and decays the push.
func (f *Fighter) Step(input geom.Vec2, dt time.Duration) {
	if f.dead {
		return
	}
	f.Position = f.Position.Add(f.Movement(input).Scale(dt.Seconds()))
	f.RecoverPush()
}
