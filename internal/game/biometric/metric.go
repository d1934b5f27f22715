package biometric

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrNoData is returned when a metric has no records to summarise.
var ErrNoData = errors.New("biometric: no records")

// CalorieThreshold is the daily active-calorie total that earns open doors.
const CalorieThreshold = 300

// CaloriesRecord is one active-energy sample. Energy is in small calories; nil
// means the sample carried no value.
type CaloriesRecord struct {
	Time   time.Time `yaml:"time"`
	Energy *float64  `yaml:"energy"`
}

// VO2MaxRecord is one VO2 max sample in mL/kg/min.
type VO2MaxRecord struct {
	Time  time.Time `yaml:"time"`
	Value float64   `yaml:"value"`
}

// Metric is a summarised health measurement and the effects it selects.
type Metric interface {
	Name() string
	Text() string
	Description() string
	Effects() []Effect
}

// CaloriesMetric summarises a day's active calories.
type CaloriesMetric struct {
	Total   int
	effects []Effect
}

// ActiveCalories totals records (energy/1000 per record, truncated) and selects the
// door effect: level 1 at CalorieThreshold or more, level 0 otherwise.
func ActiveCalories(records []CaloriesRecord) *CaloriesMetric {
	m := &CaloriesMetric{}
	for _, r := range records {
		if r.Energy != nil {
			m.Total += int(*r.Energy) / 1000
		}
	}
	level := 0
	if m.Total >= CalorieThreshold {
		level = 1
	}
	m.effects = []Effect{NewNoDoorClose(level)}
	return m
}

func (m *CaloriesMetric) Name() string      { return "Active Calories Burned" }
func (m *CaloriesMetric) Effects() []Effect { return m.effects }

func (m *CaloriesMetric) Text() string {
	return fmt.Sprintf("You burned %d active calories today. This gives you %s.", m.Total, effectsText(m.effects))
}

func (m *CaloriesMetric) Description() string {
	return fmt.Sprintf("You've burned a total of %d active calories. "+
		"Staying physically active improves endurance, mood, and overall health.", m.Total)
}

// VO2MaxMetric summarises VO2 max samples.
type VO2MaxMetric struct {
	Average float64
	Level   int
	effects []Effect
}

// VO2Max averages records and selects the puddle effect: level 3 above 45,
// level 2 above 35, level 1 otherwise.
//
// Postcondition: Returns ErrNoData when records is empty.
func VO2Max(records []VO2MaxRecord) (*VO2MaxMetric, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}
	sum := 0.0
	for _, r := range records {
		sum += r.Value
	}
	m := &VO2MaxMetric{Average: sum / float64(len(records))}
	switch {
	case m.Average > 45:
		m.Level = 3
	case m.Average > 35:
		m.Level = 2
	default:
		m.Level = 1
	}
	m.effects = []Effect{NewToxicPuddle(m.Level)}
	return m, nil
}

func (m *VO2MaxMetric) Name() string      { return "VO2 Max" }
func (m *VO2MaxMetric) Effects() []Effect { return m.effects }

func (m *VO2MaxMetric) Text() string {
	return fmt.Sprintf("Your VO2 max is %.1f (mL/kg/min). This gives you %s.", m.Average, effectsText(m.effects))
}

func (m *VO2MaxMetric) Description() string {
	rating := map[int]string{1: "below average", 2: "average", 3: "above average"}[m.Level]
	return fmt.Sprintf("Your VO2 max is %.1f (mL/kg/min). This is considered %s. "+
		"VO2 max is a measure of your body's ability to utilize oxygen during exercise.", m.Average, rating)
}

func effectsText(effects []Effect) string {
	parts := make([]string, 0, len(effects))
	for _, e := range effects {
		parts = append(parts, e.Text())
	}
	return strings.Join(parts, " and ")
}

// EffectGrant names an extra effect granted outside the metrics.
type EffectGrant struct {
	Name  string `yaml:"name"`
	Level int    `yaml:"level"`
}

// Records is a day's worth of biometric samples.
type Records struct {
	ActiveCalories []CaloriesRecord `yaml:"active_calories"`
	VO2Max         []VO2MaxRecord   `yaml:"vo2_max"`
	Effects        []EffectGrant    `yaml:"effects"`
}

// LoadRecords reads a YAML records file.
//
// Precondition: path must name a readable file.
func LoadRecords(path string) (*Records, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading biometric records %q: %w", path, err)
	}
	var r Records
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing biometric records %q: %w", path, err)
	}
	return &r, nil
}

// grantMetric carries explicitly granted effects.
type grantMetric struct{ effects []Effect }

func (g *grantMetric) Name() string        { return "Granted Effects" }
func (g *grantMetric) Text() string        { return "You were granted " + effectsText(g.effects) + "." }
func (g *grantMetric) Description() string { return "Effects granted for this session." }
func (g *grantMetric) Effects() []Effect   { return g.effects }

// Collect summarises r into metrics. Metrics without data are skipped; unknown
// granted effects are errors.
func Collect(r *Records) ([]Metric, error) {
	var out []Metric
	if len(r.ActiveCalories) > 0 {
		out = append(out, ActiveCalories(r.ActiveCalories))
	}
	if m, err := VO2Max(r.VO2Max); err == nil {
		out = append(out, m)
	}
	if len(r.Effects) > 0 {
		g := &grantMetric{}
		for _, grant := range r.Effects {
			e, err := EffectByName(grant.Name, grant.Level)
			if err != nil {
				return nil, err
			}
			g.effects = append(g.effects, e)
		}
		out = append(out, g)
	}
	return out, nil
}

// ApplyAll invokes Apply once for every effect of every metric, in order.
//
// Postcondition: Effects that fail are logged and skipped; the joined errors are returned.
func ApplyAll(metrics []Metric, mods *Modifiers, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	var errs []error
	for _, m := range metrics {
		for _, e := range m.Effects() {
			if err := e.Apply(mods); err != nil {
				logger.Warn("biometric effect not applied",
					zap.String("metric", m.Name()),
					zap.String("effect", e.Name()),
					zap.Int("level", e.Level()),
					zap.Error(err),
				)
				errs = append(errs, err)
				continue
			}
			logger.Info("biometric effect applied",
				zap.String("metric", m.Name()),
				zap.String("effect", e.Name()),
				zap.Int("level", e.Level()),
			)
		}
	}
	return errors.Join(errs...)
}
