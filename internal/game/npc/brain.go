package npc

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/game/combat"
	"github.com/cory-johannsen/dungeon/internal/game/dice"
	"github.com/cory-johannsen/dungeon/internal/game/geom"
)

// Intent is one behaviour step an enemy performs during a tick.
type Intent string

const (
	IntentHold       Intent = "hold"
	IntentChase      Intent = "chase"
	IntentApproach   Intent = "approach"
	IntentRetreat    Intent = "retreat"
	IntentReturnHome Intent = "return_home"
	IntentCast       Intent = "cast"
)

// approachSpeedScale slows a caster closing the distance to the player.
const approachSpeedScale = 0.5

// homeTolerance is how close to Home counts as home.
const homeTolerance = 0.01

// IntentPlanner chooses intents for an enemy. It returns false to defer to the
// built-in behaviour of the enemy's kind.
type IntentPlanner interface {
	Intents(inst *Instance, player *combat.Fighter, now time.Duration) ([]Intent, bool)
}

// Terrain decides whether an enemy may move from one point to another.
type Terrain interface {
	Passable(from, to geom.Vec2) bool
}

// TerrainFunc adapts a plain function to Terrain.
type TerrainFunc func(from, to geom.Vec2) bool

// Passable calls fn(from, to).
func (fn TerrainFunc) Passable(from, to geom.Vec2) bool { return fn(from, to) }

// Brain drives enemy movement and attacks each tick.
type Brain struct {
	roller  *dice.Roller
	planner IntentPlanner
	terrain Terrain
	logger  *zap.Logger
}

// NewBrain creates a Brain. planner may be nil.
//
// Precondition: roller must not be nil.
func NewBrain(roller *dice.Roller, planner IntentPlanner, logger *zap.Logger) *Brain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Brain{roller: roller, planner: planner, logger: logger}
}

// SetTerrain makes every later step that terrain rejects a no-op. A nil terrain
// lets enemies move freely.
func (b *Brain) SetTerrain(terrain Terrain) { b.terrain = terrain }

// UpdateChase refreshes inst.Chasing from the player's distance to inst.Home.
// A chase starts inside TriggerLength and ends beyond ChaseLength; phantoms never
// stop once started. A dead player ends every chase.
func UpdateChase(inst *Instance, player *combat.Fighter) {
	if player == nil || player.IsDead() {
		inst.Chasing = false
		return
	}
	d := player.Position.Dist(inst.Home)
	if d < inst.tmpl.ChaseLength {
		if d < inst.tmpl.TriggerLength {
			inst.Chasing = true
		}
		return
	}
	if inst.tmpl.Kind != KindPhantom {
		inst.Chasing = false
	}
}

// Decide returns the built-in intents for inst's kind.
//
// Precondition: UpdateChase has run this tick.
func Decide(inst *Instance, player *combat.Fighter, now time.Duration) []Intent {
	if !inst.Chasing {
		return []Intent{IntentReturnHome}
	}
	switch inst.tmpl.Kind {
	case KindCaster:
		var out []Intent
		if inst.CooldownReady(now) {
			out = append(out, IntentCast)
		}
		if inst.colliding {
			return append(out, IntentHold)
		}
		d := inst.Position.Dist(player.Position)
		switch {
		case d < inst.tmpl.RetreatDistance:
			out = append(out, IntentRetreat)
		case d > inst.tmpl.ChaseDistance:
			out = append(out, IntentApproach)
		default:
			out = append(out, IntentHold)
		}
		return out
	default:
		if inst.colliding {
			return []Intent{IntentHold}
		}
		return []Intent{IntentChase}
	}
}

// Tick runs one behaviour step for inst and returns any projectiles it launched.
func (b *Brain) Tick(inst *Instance, player *combat.Fighter, dt, now time.Duration) []*Projectile {
	if inst.IsDead() {
		return nil
	}
	UpdateChase(inst, player)

	var intents []Intent
	if b.planner != nil && inst.tmpl.AIDomain != "" {
		if planned, ok := b.planner.Intents(inst, player, now); ok {
			intents = planned
		}
	}
	if intents == nil {
		intents = Decide(inst, player, now)
	}

	var launched []*Projectile
	velocity := geom.Vec2{}
	for _, in := range intents {
		switch in {
		case IntentCast:
			if p := b.cast(inst, player, now); p != nil {
				launched = append(launched, p)
			}
		default:
			velocity = b.steer(inst, player, in, dt)
		}
	}
	prev := inst.Position
	inst.Step(velocity, dt)
	if b.terrain != nil && !b.terrain.Passable(prev, inst.Position) {
		inst.Position = prev
	}

	inst.colliding = player != nil && player.Alive() && inst.Bounds().Overlaps(player.Bounds())
	if inst.colliding {
		b.contact(inst, player, now)
	}
	return launched
}

func (b *Brain) steer(inst *Instance, player *combat.Fighter, in Intent, dt time.Duration) geom.Vec2 {
	speed := inst.CurrentSpeed
	switch in {
	case IntentChase:
		if player == nil {
			return geom.Vec2{}
		}
		return player.Position.Sub(inst.Position).Normalized().Scale(speed)
	case IntentApproach:
		if player == nil {
			return geom.Vec2{}
		}
		return player.Position.Sub(inst.Position).Normalized().Scale(speed * approachSpeedScale)
	case IntentRetreat:
		if player == nil {
			return geom.Vec2{}
		}
		return inst.Position.Sub(player.Position).Normalized().Scale(speed)
	case IntentReturnHome:
		toHome := inst.Home.Sub(inst.Position)
		dist := toHome.Len()
		if dist < homeTolerance {
			return geom.Vec2{}
		}
		if secs := dt.Seconds(); secs > 0 && dist <= speed*secs {
			return toHome.Scale(1 / secs)
		}
		return toHome.Normalized().Scale(speed)
	case IntentHold:
		return geom.Vec2{}
	default:
		b.logger.Warn("unknown enemy intent", zap.String("npc", inst.ID), zap.String("intent", string(in)))
		return geom.Vec2{}
	}
}

func (b *Brain) cast(inst *Instance, player *combat.Fighter, now time.Duration) *Projectile {
	if player == nil || inst.tmpl.Kind != KindCaster || !inst.CooldownReady(now) {
		return nil
	}
	inst.markAttack(now)
	damage := b.roller.Between(inst.MinFireballDamage(), inst.MaxFireballDamage())
	p := NewFireball(inst, player.Position, damage)
	b.logger.Debug("fireball cast",
		zap.String("npc", inst.ID),
		zap.String("projectile", p.ID),
		zap.Int("damage", damage),
	)
	return p
}

func (b *Brain) contact(inst *Instance, player *combat.Fighter, now time.Duration) {
	cd := inst.tmpl.ContactDamage
	if cd.Max <= 0 || player.Immune(now) {
		return
	}
	amount, crit := combat.RollDamage(b.roller, cd.Min, cd.Max, cd.CritChance, cd.CritMultiplier)
	player.ReceiveDamage(combat.Damage{
		Amount:      amount,
		Origin:      inst.Position,
		PushForce:   cd.PushForce,
		IsCritical:  crit,
		MinPossible: cd.Min,
		MaxPossible: cd.Max,
	}, now)
}
