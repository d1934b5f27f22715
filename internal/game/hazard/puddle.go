// Package hazard implements environmental damage sources: toxic puddles left by
// acid enemies and hidden floor traps.
package hazard

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/game/combat"
	"github.com/cory-johannsen/dungeon/internal/game/effect"
	"github.com/cory-johannsen/dungeon/internal/game/geom"
)

// fadeStart is the fraction of its lifetime after which a puddle starts fading.
const fadeStart = 0.7

// PuddleSpec configures toxic puddles.
type PuddleSpec struct {
	Duration     time.Duration `yaml:"duration"`
	MinDamage    int           `yaml:"min_damage"`
	MaxDamage    int           `yaml:"max_damage"`
	TickInterval time.Duration `yaml:"tick_interval"`
	SlowFactor   float64       `yaml:"slow_factor"`
	// SlowDuration is how long one slow lasts; zero means two damage ticks.
	SlowDuration time.Duration `yaml:"slow_duration"`
	Color        combat.Color  `yaml:"color"`
	Size         geom.Vec2     `yaml:"size"`
}

// DefaultPuddleSpec returns the standard acid puddle.
func DefaultPuddleSpec() PuddleSpec {
	return PuddleSpec{
		Duration:     5 * time.Second,
		MinDamage:    1,
		MaxDamage:    1,
		TickInterval: 500 * time.Millisecond,
		SlowFactor:   0.5,
		Color:        combat.Color{R: 0.2, G: 0.8, B: 0.2, A: 0.6},
		Size:         geom.V(0.8, 0.8),
	}
}

// Scaled returns a copy of s with its lifetime multiplied by factor.
//
// Precondition: factor > 0.
func (s PuddleSpec) Scaled(factor float64) PuddleSpec {
	s.Duration = time.Duration(float64(s.Duration) * factor)
	return s
}

func (s PuddleSpec) slowDuration() time.Duration {
	if s.SlowDuration > 0 {
		return s.SlowDuration
	}
	return 2 * s.TickInterval
}

// Puddle is a toxic pool that damages and slows the player standing in it.
type Puddle struct {
	ID       string
	Spec     PuddleSpec
	Position geom.Vec2

	age     time.Duration
	expired bool
	logger  *zap.Logger
}

// NewPuddle places a puddle at pos.
func NewPuddle(id string, spec PuddleSpec, pos geom.Vec2, logger *zap.Logger) *Puddle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Puddle{ID: id, Spec: spec, Position: pos, logger: logger}
}

// Bounds returns the puddle area in world coordinates.
func (p *Puddle) Bounds() geom.Bounds { return geom.BoxAround(p.Position, p.Spec.Size) }

// Expired reports whether the puddle has dried up.
func (p *Puddle) Expired() bool { return p.expired }

// Alpha returns the current opacity. It holds the spec alpha for the first 70% of the
// lifetime and then fades linearly to zero.
func (p *Puddle) Alpha() float64 {
	start := time.Duration(float64(p.Spec.Duration) * fadeStart)
	if p.age <= start {
		return p.Spec.Color.A
	}
	fade := p.Spec.Duration - start
	if fade <= 0 || p.age >= p.Spec.Duration {
		return 0
	}
	t := float64(p.age-start) / float64(fade)
	return p.Spec.Color.A * (1 - t)
}

// Update ages the puddle by dt and applies its effects to player at simulation time now.
// While the player overlaps the puddle a damage-over-time record runs on effects; it is
// started once on entry, not restarted while running, and cancelled when the player
// leaves. Each entry also starts a slow lasting two ticks.
//
// Postcondition: Once expired, the puddle's damage record is cancelled and Update is a no-op.
func (p *Puddle) Update(dt, now time.Duration, player *combat.Fighter, effects *effect.Set) {
	if p.expired {
		return
	}
	p.age += dt
	if p.age >= p.Spec.Duration {
		p.expired = true
		if effects != nil {
			effects.Cancel(effect.KindDamageOverTime, p.ID)
		}
		p.logger.Debug("puddle expired", zap.String("puddle", p.ID))
		return
	}
	if player == nil || effects == nil {
		return
	}

	inside := player.Alive() && p.Bounds().Overlaps(player.Bounds())
	applying := effects.Active(effect.KindDamageOverTime, p.ID)
	switch {
	case inside && !applying:
		opaque := p.Spec.Color
		opaque.A = 1
		effects.Start(effect.Record{
			Kind:         effect.KindDamageOverTime,
			Source:       p.ID,
			Duration:     p.Spec.Duration - p.age,
			TickInterval: p.Spec.TickInterval,
			MinDamage:    p.Spec.MinDamage,
			MaxDamage:    p.Spec.MaxDamage,
			Origin:       p.Position,
			Color:        &opaque,
		}, now)
		effects.Start(effect.Record{
			Kind:     effect.KindSlow,
			Source:   p.ID,
			Duration: p.Spec.slowDuration(),
			Factor:   p.Spec.SlowFactor,
		}, now)
	case !inside && applying:
		effects.Cancel(effect.KindDamageOverTime, p.ID)
	}
}
