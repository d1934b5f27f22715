package hazard

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/game/combat"
	"github.com/cory-johannsen/dungeon/internal/game/geom"
)

// TrapPushForce is the knockback a sprung trap applies.
const TrapPushForce = 2.0

// TrapSpec configures a trap field.
type TrapSpec struct {
	// DamagePercentage is the share of the victim's max hitpoints dealt, in [0, 100].
	DamagePercentage float64       `yaml:"damage_percentage"`
	AnimationSpeed   time.Duration `yaml:"animation_speed"`
	Frames           int           `yaml:"frames"`
	// ResetAfterTriggering re-arms a trap once its animation finishes.
	ResetAfterTriggering bool    `yaml:"reset_after_triggering"`
	CellSize             float64 `yaml:"cell_size"`
}

// DefaultTrapSpec returns the standard spike trap.
func DefaultTrapSpec() TrapSpec {
	return TrapSpec{
		DamagePercentage:     10,
		AnimationSpeed:       300 * time.Millisecond,
		Frames:               4,
		ResetAfterTriggering: true,
		CellSize:             1,
	}
}

// Cell addresses one tile of the trap grid.
type Cell struct {
	X, Y int
}

// TrapState is the visible state of one trap.
type TrapState int

const (
	// TrapHidden is an armed trap.
	TrapHidden TrapState = iota
	// TrapAnimating is a sprung trap playing its animation.
	TrapAnimating
	// TrapSpent is a sprung trap that will not re-arm.
	TrapSpent
)

// String returns the state name.
func (s TrapState) String() string {
	switch s {
	case TrapHidden:
		return "hidden"
	case TrapAnimating:
		return "animating"
	case TrapSpent:
		return "spent"
	default:
		return "unknown"
	}
}

type trap struct {
	state   TrapState
	elapsed time.Duration
}

// TrapField is the set of hidden traps of one room.
type TrapField struct {
	spec   TrapSpec
	traps  map[Cell]*trap
	dodge  bool
	logger *zap.Logger
}

// NewTrapField arms a trap on every cell. When dodge is true no trap ever triggers.
//
// Precondition: spec.CellSize > 0.
func NewTrapField(spec TrapSpec, cells []Cell, dodge bool, logger *zap.Logger) *TrapField {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &TrapField{spec: spec, traps: make(map[Cell]*trap, len(cells)), dodge: dodge, logger: logger}
	for _, c := range cells {
		f.traps[c] = &trap{}
	}
	return f
}

// CellAt returns the grid cell containing p.
//
// Precondition: s.CellSize > 0.
func (s TrapSpec) CellAt(p geom.Vec2) Cell {
	return Cell{X: int(math.Floor(p.X / s.CellSize)), Y: int(math.Floor(p.Y / s.CellSize))}
}

// CellAt returns the cell containing p.
func (f *TrapField) CellAt(p geom.Vec2) Cell { return f.spec.CellAt(p) }

// Center returns the world position of the middle of c.
func (f *TrapField) Center(c Cell) geom.Vec2 {
	return geom.V((float64(c.X)+0.5)*f.spec.CellSize, (float64(c.Y)+0.5)*f.spec.CellSize)
}

// Cells returns every trap cell sorted by row then column.
func (f *TrapField) Cells() []Cell {
	out := make([]Cell, 0, len(f.traps))
	for c := range f.traps {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// State returns the state of the trap at c.
//
// Postcondition: ok is false when c holds no trap.
func (f *TrapField) State(c Cell) (state TrapState, ok bool) {
	t, ok := f.traps[c]
	if !ok {
		return TrapHidden, false
	}
	return t.state, true
}

// Frame returns the animation frame index of the trap at c, or -1 if it is hidden.
func (f *TrapField) Frame(c Cell) int {
	t, ok := f.traps[c]
	if !ok || t.state == TrapHidden {
		return -1
	}
	if t.state == TrapSpent {
		return f.spec.Frames - 1
	}
	if f.spec.AnimationSpeed <= 0 {
		return 0
	}
	frame := int(t.elapsed / f.spec.AnimationSpeed)
	if frame >= f.spec.Frames {
		frame = f.spec.Frames - 1
	}
	return frame
}

// Trigger springs the trap at c on victim at simulation time now.
//
// Postcondition: Returns true iff an armed trap was sprung; it then deals
// round(MaxHitpoint * DamagePercentage / 100) with knockback from the cell centre.
func (f *TrapField) Trigger(c Cell, victim *combat.Fighter, now time.Duration) bool {
	if f.dodge {
		return false
	}
	t, ok := f.traps[c]
	if !ok || t.state != TrapHidden {
		return false
	}
	t.state = TrapAnimating
	t.elapsed = 0

	amount := int(math.Round(float64(victim.MaxHitpoint) * f.spec.DamagePercentage / 100))
	victim.ReceiveDamage(combat.Damage{
		Amount:      amount,
		Origin:      f.Center(c),
		PushForce:   TrapPushForce,
		MinPossible: amount,
		MaxPossible: amount,
	}, now)
	f.logger.Info("trap triggered",
		zap.Int("x", c.X),
		zap.Int("y", c.Y),
		zap.String("victim", victim.ID),
		zap.Int("damage", amount),
	)
	return true
}

// Update advances trap animations by dt and springs the trap under player, if any.
func (f *TrapField) Update(dt, now time.Duration, player *combat.Fighter) {
	total := f.spec.AnimationSpeed * time.Duration(f.spec.Frames)
	for _, t := range f.traps {
		if t.state != TrapAnimating {
			continue
		}
		t.elapsed += dt
		if t.elapsed < total {
			continue
		}
		if f.spec.ResetAfterTriggering {
			t.state = TrapHidden
			t.elapsed = 0
		} else {
			t.state = TrapSpent
		}
	}
	if player != nil && player.Alive() {
		f.Trigger(f.CellAt(player.Position), player, now)
	}
}
