package npc

import (
	"time"

	"github.com/cory-johannsen/dungeon/internal/game/combat"
	"github.com/cory-johannsen/dungeon/internal/game/geom"
)

// Instance is a live enemy placed in a room.
type Instance struct {
	*combat.Fighter

	// TemplateID is the source template's ID.
	TemplateID string
	// RoomID is the room this instance was spawned in.
	RoomID string
	// Home is the spawn position the enemy returns to.
	Home geom.Vec2
	// Chasing is true while the enemy pursues the player.
	Chasing bool

	tmpl       *Template
	lastAttack time.Duration
	attacked   bool
	colliding  bool
}

// NewInstance creates a live enemy from a template at pos in roomID.
//
// Precondition: id must be non-empty; tmpl must be non-nil and validated.
// Postcondition: Hitpoint equals MaxHitpoint for tmpl.Level; Home == pos.
func NewInstance(id string, tmpl *Template, roomID string, pos geom.Vec2) *Instance {
	f := combat.NewFighter(id, tmpl.Name, combat.KindEnemy, tmpl.Level, tmpl.Stats)
	f.Position = pos
	return &Instance{
		Fighter:    f,
		TemplateID: tmpl.ID,
		RoomID:     roomID,
		Home:       pos,
		tmpl:       tmpl,
	}
}

// Template returns the template the instance was spawned from.
func (i *Instance) Template() *Template { return i.tmpl }

// Behaviour returns the behaviour kind of the instance.
func (i *Instance) Behaviour() Kind { return i.tmpl.Kind }

// IsBoss reports whether the instance is a boss.
func (i *Instance) IsBoss() bool { return i.tmpl.Boss }

// MinFireballDamage is the level-scaled lower fireball damage bound.
func (i *Instance) MinFireballDamage() int {
	return combat.DamageStat(i.tmpl.Fireball.BaseMin, i.Level, i.tmpl.Fireball.Scaling)
}

// MaxFireballDamage is the level-scaled upper fireball damage bound.
func (i *Instance) MaxFireballDamage() int {
	return combat.DamageStat(i.tmpl.Fireball.BaseMax, i.Level, i.tmpl.Fireball.Scaling)
}

// CooldownReady reports whether the attack cooldown has elapsed at now.
// The first attack is always ready.
func (i *Instance) CooldownReady(now time.Duration) bool {
	return !i.attacked || now > i.lastAttack+i.tmpl.AttackCooldown
}

// Colliding reports whether the instance touched the player on its last tick.
func (i *Instance) Colliding() bool { return i.colliding }

func (i *Instance) markAttack(now time.Duration) {
	i.attacked = true
	i.lastAttack = now
}

// HealthDescription returns a visible health state string.
//
// Postcondition: Returns a non-empty string.
func (i *Instance) HealthDescription() string {
	if i.IsDead() {
		return "dead"
	}
	pct := float64(i.Hitpoint) / float64(i.MaxHitpoint)
	switch {
	case pct >= 1.0:
		return "unharmed"
	case pct >= 0.60:
		return "lightly wounded"
	case pct >= 0.20:
		return "heavily wounded"
	default:
		return "critically wounded"
	}
}
