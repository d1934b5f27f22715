package dice

import "go.uber.org/zap"

// floatResolution is the granularity of Float and Chance.
const floatResolution = 1 << 20

// Roller wraps a Source and logger to provide logged rolling helpers.
// All rolls are logged at debug level.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src must be non-nil; a nil logger is replaced with zap.NewNop.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Source exposes the underlying randomness source.
func (r *Roller) Source() Source { return r.src }

// Between returns a uniformly distributed int in [lo, hi].
//
// Postcondition: lo <= result <= hi; if hi < lo the bounds are swapped.
func (r *Roller) Between(lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	v := lo + r.src.Intn(hi-lo+1)
	r.logger.Debug("dice roll",
		zap.Int("min", lo),
		zap.Int("max", hi),
		zap.Int("result", v),
	)
	return v
}

// Float returns a value in [0, 1).
func (r *Roller) Float() float64 {
	return float64(r.src.Intn(floatResolution)) / floatResolution
}

// FloatBetween returns a value in [lo, hi).
func (r *Roller) FloatBetween(lo, hi float64) float64 {
	return lo + r.Float()*(hi-lo)
}

// Chance reports true with probability p.
//
// Postcondition: p <= 0 always returns false; p >= 1 always returns true.
func (r *Roller) Chance(p float64) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	}
	hit := r.Float() < p
	r.logger.Debug("chance roll",
		zap.Float64("p", p),
		zap.Bool("hit", hit),
	)
	return hit
}
