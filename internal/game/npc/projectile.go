package npc

import (
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/dungeon/internal/game/combat"
	"github.com/cory-johannsen/dungeon/internal/game/geom"
)

// FireballPushForce is the knockback a fireball applies to the player.
const FireballPushForce = 2.0

// fireballSpawnOffset lifts the fireball above the caster's feet.
var fireballSpawnOffset = geom.V(0, 0.1)

// Walls reports whether a point is inside level geometry.
type Walls interface {
	Blocked(p geom.Vec2) bool
}

// WallsFunc adapts a plain function to Walls.
type WallsFunc func(p geom.Vec2) bool

// Blocked calls fn(p).
func (fn WallsFunc) Blocked(p geom.Vec2) bool { return fn(p) }

// Projectile is a fireball in flight.
type Projectile struct {
	ID        string
	Owner     string
	Position  geom.Vec2
	Direction geom.Vec2
	Speed     float64
	Damage    int
	MinDamage int
	MaxDamage int
	Lifetime  time.Duration
	Size      geom.Vec2

	age  time.Duration
	done bool
}

// NewFireball launches a fireball from caster toward target.
func NewFireball(caster *Instance, target geom.Vec2, damage int) *Projectile {
	spawn := caster.Position.Add(fireballSpawnOffset)
	spec := caster.tmpl.Fireball
	return &Projectile{
		ID:        uuid.New().String(),
		Owner:     caster.ID,
		Position:  spawn,
		Direction: target.Sub(spawn).Normalized(),
		Speed:     spec.Speed,
		Damage:    damage,
		MinDamage: caster.MinFireballDamage(),
		MaxDamage: caster.MaxFireballDamage(),
		Lifetime:  spec.Lifetime,
		Size:      geom.V(0.2, 0.2),
	}
}

// Done reports whether the projectile hit something or expired.
func (p *Projectile) Done() bool { return p.done }

// Progress returns the fraction of the lifetime elapsed, in [0, 1].
func (p *Projectile) Progress() float64 {
	if p.Lifetime <= 0 {
		return 1
	}
	f := float64(p.age) / float64(p.Lifetime)
	if f > 1 {
		return 1
	}
	return f
}

// Bounds returns the projectile hit box.
func (p *Projectile) Bounds() geom.Bounds { return geom.BoxAround(p.Position, p.Size) }

// Advance moves the projectile by dt and resolves collisions at simulation time now.
// A projectile hits the player at most once and stops at walls without damage.
//
// Postcondition: Returns true iff the player was damaged by this call.
func (p *Projectile) Advance(dt, now time.Duration, player *combat.Fighter, walls Walls) bool {
	if p.done {
		return false
	}
	p.age += dt
	p.Position = p.Position.Add(p.Direction.Scale(p.Speed * dt.Seconds()))

	if player != nil && player.Alive() && p.Bounds().Overlaps(player.Bounds()) {
		p.done = true
		res := player.ReceiveDamage(combat.Damage{
			Amount:      p.Damage,
			Origin:      p.Position,
			PushForce:   FireballPushForce,
			MinPossible: p.MinDamage,
			MaxPossible: p.MaxDamage,
		}, now)
		return res.Applied
	}
	if walls != nil && walls.Blocked(p.Position) {
		p.done = true
		return false
	}
	if p.age > p.Lifetime {
		p.done = true
	}
	return false
}
