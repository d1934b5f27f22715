// Package biometric turns daily health metrics into gameplay modifiers applied once
// at the start of a session.
package biometric

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidLevel is returned by effects asked to describe or apply an unsupported level.
var ErrInvalidLevel = errors.New("biometric: invalid effect level")

// Modifiers is the session-wide record of every applied effect. Rooms, hazards, the
// player and enemy population read it when a session starts.
type Modifiers struct {
	// DoorsAlwaysOpen keeps every room's doors open.
	DoorsAlwaysOpen bool
	// PuddleDurationScale multiplies toxic puddle lifetimes.
	PuddleDurationScale float64
	// AttackCooldownScale multiplies the player's attack cooldown.
	AttackCooldownScale float64
	// DodgeTraps stops floor traps from triggering.
	DodgeTraps bool
	// Phantoms is the number of phantom enemies added to each room.
	Phantoms int
}

// NewModifiers returns the neutral modifier set.
func NewModifiers() *Modifiers {
	return &Modifiers{PuddleDurationScale: 1, AttackCooldownScale: 1}
}

// Effect is one gameplay modifier selected by a metric.
type Effect interface {
	Name() string
	Level() int
	// Text is the short label shown in the metric summary.
	Text() string
	Description() (string, error)
	Apply(mods *Modifiers) error
}

// NoDoorClose keeps doors open at level 1. Level 0 is the negative variant and
// changes nothing.
type NoDoorClose struct{ level int }

// NewNoDoorClose builds the door effect at level.
func NewNoDoorClose(level int) *NoDoorClose { return &NoDoorClose{level: level} }

func (e *NoDoorClose) Name() string { return "No Door Close" }
func (e *NoDoorClose) Level() int   { return e.level }

func (e *NoDoorClose) Text() string {
	if e.level >= 1 {
		return "doors that never lock"
	}
	return "doors that lock behind you"
}

func (e *NoDoorClose) Description() (string, error) {
	switch e.level {
	case 0:
		return "Doors close while enemies remain in the room.", nil
	case 1:
		return "Doors stay open even while enemies remain in the room.", nil
	default:
		return "", fmt.Errorf("%w: %s level %d", ErrInvalidLevel, e.Name(), e.level)
	}
}

func (e *NoDoorClose) Apply(mods *Modifiers) error {
	switch e.level {
	case 0:
		return nil
	case 1:
		mods.DoorsAlwaysOpen = true
		return nil
	default:
		return fmt.Errorf("%w: %s level %d", ErrInvalidLevel, e.Name(), e.level)
	}
}

// ToxicPuddle scales puddle lifetimes: level 3 halves them, level 2 leaves them
// unchanged and level 1 lengthens them by half.
type ToxicPuddle struct{ level int }

// NewToxicPuddle builds the puddle effect at level.
func NewToxicPuddle(level int) *ToxicPuddle { return &ToxicPuddle{level: level} }

func (e *ToxicPuddle) Name() string { return "Toxic Puddle" }
func (e *ToxicPuddle) Level() int   { return e.level }

func (e *ToxicPuddle) Text() string {
	if e.level >= 3 {
		return "faster drying toxic puddles"
	}
	return "longer lasting toxic puddles"
}

func (e *ToxicPuddle) scale() (float64, error) {
	switch e.level {
	case 1:
		return 1.5, nil
	case 2:
		return 1, nil
	case 3:
		return 0.5, nil
	default:
		return 0, fmt.Errorf("%w: %s level %d", ErrInvalidLevel, e.Name(), e.level)
	}
}

func (e *ToxicPuddle) Description() (string, error) {
	s, err := e.scale()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Toxic puddles last %.0f%% as long.", s*100), nil
}

func (e *ToxicPuddle) Apply(mods *Modifiers) error {
	s, err := e.scale()
	if err != nil {
		return err
	}
	mods.PuddleDurationScale *= s
	return nil
}

// AttackSpeedMultiplier is the cooldown factor applied by AttackSpeed.
const AttackSpeedMultiplier = 0.8

// AttackSpeed shortens the player's attack cooldown.
type AttackSpeed struct{ level int }

// NewAttackSpeed builds the attack speed effect at level.
func NewAttackSpeed(level int) *AttackSpeed { return &AttackSpeed{level: level} }

func (e *AttackSpeed) Name() string { return "Attack Speed" }
func (e *AttackSpeed) Level() int   { return e.level }
func (e *AttackSpeed) Text() string { return "increased attack speed" }

func (e *AttackSpeed) Description() (string, error) {
	return "Your attack speed is increased by 20%.", nil
}

func (e *AttackSpeed) Apply(mods *Modifiers) error {
	mods.AttackCooldownScale *= AttackSpeedMultiplier
	return nil
}

// DodgeTraps disarms every floor trap.
type DodgeTraps struct{ level int }

// NewDodgeTraps builds the trap effect at level.
func NewDodgeTraps(level int) *DodgeTraps { return &DodgeTraps{level: level} }

func (e *DodgeTraps) Name() string { return "Dodge Traps" }
func (e *DodgeTraps) Level() int   { return e.level }
func (e *DodgeTraps) Text() string { return "immunity to traps" }

func (e *DodgeTraps) Description() (string, error) {
	return "Floor traps never trigger.", nil
}

func (e *DodgeTraps) Apply(mods *Modifiers) error {
	mods.DodgeTraps = true
	return nil
}

// Hallucination adds one or two phantom enemies to every room.
type Hallucination struct{ level int }

// NewHallucination builds the hallucination effect at level.
func NewHallucination(level int) *Hallucination { return &Hallucination{level: level} }

func (e *Hallucination) Name() string { return "Hallucination" }
func (e *Hallucination) Level() int   { return e.level }

func (e *Hallucination) Text() string {
	return fmt.Sprintf("hallucination level %d", e.level)
}

func (e *Hallucination) Description() (string, error) {
	switch e.level {
	case 1:
		return "Each room will contain a phantom enemy.", nil
	case 2:
		return "Each room will contain two phantom enemies.", nil
	default:
		return "", fmt.Errorf("%w: %s must be level 1 or 2, got %d", ErrInvalidLevel, e.Name(), e.level)
	}
}

func (e *Hallucination) Apply(mods *Modifiers) error {
	if e.level != 1 && e.level != 2 {
		return fmt.Errorf("%w: %s must be level 1 or 2, got %d", ErrInvalidLevel, e.Name(), e.level)
	}
	mods.Phantoms += e.level
	return nil
}

// EffectByName builds a named effect. Names are matched case-insensitively with
// spaces, dashes and underscores ignored.
func EffectByName(name string, level int) (Effect, error) {
	key := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(name))
	switch key {
	case "nodoorclose":
		return NewNoDoorClose(level), nil
	case "toxicpuddle":
		return NewToxicPuddle(level), nil
	case "attackspeed":
		return NewAttackSpeed(level), nil
	case "dodgetraps":
		return NewDodgeTraps(level), nil
	case "hallucination":
		return NewHallucination(level), nil
	default:
		return nil, fmt.Errorf("biometric: unknown effect %q", name)
	}
}
