package effect

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/game/combat"
	"github.com/cory-johannsen/dungeon/internal/game/dice"
	"github.com/cory-johannsen/dungeon/internal/game/geom"
)

// Record is one running effect on a fighter.
// A damage-over-time record ticks at elapsed 0, TickInterval, 2*TickInterval, ...
// for as long as the tick time is below Duration.
type Record struct {
	Kind   Kind
	Source string

	Duration     time.Duration
	TickInterval time.Duration

	// Factor multiplies movement speed while a slow is active.
	Factor float64

	MinDamage int
	MaxDamage int
	Origin    geom.Vec2
	PushForce float64
	Color     *combat.Color

	elapsed  time.Duration
	nextTick time.Duration
}

// Remaining returns the time left before the record expires.
func (r *Record) Remaining() time.Duration {
	if r.elapsed >= r.Duration {
		return 0
	}
	return r.Duration - r.elapsed
}

type key struct {
	kind   Kind
	source string
}

// Set tracks every effect currently running on one fighter.
// It is not safe for concurrent use; the caller must serialise access.
type Set struct {
	target  *combat.Fighter
	roller  *dice.Roller
	logger  *zap.Logger
	records []*Record
	dropped int
}

// NewSet creates an empty Set for target.
//
// Precondition: target and roller must not be nil.
func NewSet(target *combat.Fighter, roller *dice.Roller, logger *zap.Logger) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Set{target: target, roller: roller, logger: logger}
}

// Start begins rec at simulation time now. A running record with the same kind and
// source is cancelled and replaced. The first damage tick is applied immediately.
//
// Postcondition: Active(rec.Kind, rec.Source) is true unless rec expired on its first tick.
func (s *Set) Start(rec Record, now time.Duration) {
	s.Cancel(rec.Kind, rec.Source)
	r := rec
	r.elapsed = 0
	r.nextTick = 0
	s.records = append(s.records, &r)
	s.logger.Debug("effect started",
		zap.String("fighter", s.target.ID),
		zap.String("kind", string(r.Kind)),
		zap.String("source", r.Source),
		zap.Duration("duration", r.Duration),
	)
	s.advance(&r, now)
	s.sweep()
	s.recomputeSpeed()
}

// Cancel stops the record with kind and source. Cancelling an absent record is a no-op.
//
// Postcondition: Active(kind, source) is false.
func (s *Set) Cancel(kind Kind, source string) {
	k := key{kind, source}
	for i, r := range s.records {
		if (key{r.Kind, r.Source}) == k {
			s.records = append(s.records[:i], s.records[i+1:]...)
			s.recomputeSpeed()
			return
		}
	}
}

// Clear stops every record.
func (s *Set) Clear() {
	s.records = nil
	s.recomputeSpeed()
}

// Active reports whether a record with kind and source is running.
func (s *Set) Active(kind Kind, source string) bool {
	return s.find(kind, source) != nil
}

// Get returns the running record with kind and source, or nil.
func (s *Set) Get(kind Kind, source string) *Record {
	return s.find(kind, source)
}

// Len returns the number of running records.
func (s *Set) Len() int { return len(s.records) }

// Dropped returns how many damage ticks were absorbed by the immunity window.
func (s *Set) Dropped() int { return s.dropped }

// SpeedFactor returns the product of every active slow factor.
//
// Postcondition: Returns 1 when no slow is active.
func (s *Set) SpeedFactor() float64 {
	f := 1.0
	for _, r := range s.records {
		if r.Kind == KindSlow {
			f *= r.Factor
		}
	}
	return f
}

// Tick advances every record by dt; now is the simulation time after the advance.
// Expired records are removed and the target speed is recomputed.
func (s *Set) Tick(dt, now time.Duration) {
	if len(s.records) == 0 {
		return
	}
	if s.target.IsDead() {
		s.Clear()
		return
	}
	for _, r := range s.records {
		r.elapsed += dt
		s.advance(r, now)
		if s.target.IsDead() {
			s.Clear()
			return
		}
	}
	s.sweep()
	s.recomputeSpeed()
}

func (s *Set) advance(r *Record, now time.Duration) {
	if r.Kind != KindDamageOverTime || r.TickInterval <= 0 {
		return
	}
	for r.nextTick <= r.elapsed && r.nextTick < r.Duration {
		r.nextTick += r.TickInterval
		amount := s.roller.Between(r.MinDamage, r.MaxDamage)
		res := s.target.ReceiveDamage(combat.Damage{
			Amount:      amount,
			Origin:      r.Origin,
			PushForce:   r.PushForce,
			MinPossible: r.MinDamage,
			MaxPossible: r.MaxDamage,
			CustomColor: r.Color,
		}, now)
		if !res.Applied {
			s.dropped++
			s.logger.Debug("effect tick absorbed",
				zap.String("fighter", s.target.ID),
				zap.String("source", r.Source),
			)
		}
		if s.target.IsDead() {
			return
		}
	}
}

func (s *Set) sweep() {
	kept := s.records[:0]
	for _, r := range s.records {
		if r.elapsed < r.Duration {
			kept = append(kept, r)
			continue
		}
		s.logger.Debug("effect expired",
			zap.String("fighter", s.target.ID),
			zap.String("kind", string(r.Kind)),
			zap.String("source", r.Source),
		)
	}
	s.records = kept
}

func (s *Set) recomputeSpeed() {
	s.target.CurrentSpeed = s.target.BaseSpeed * s.SpeedFactor()
}

func (s *Set) find(kind Kind, source string) *Record {
	for _, r := range s.records {
		if r.Kind == kind && r.Source == source {
			return r
		}
	}
	return nil
}
