// Package effect implements timed status effects (damage over time and slows)
// as explicit records advanced by the simulation tick.
package effect

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Kind identifies what an effect record does each tick.
type Kind string

const (
	KindDamageOverTime Kind = "dot"
	KindSlow           Kind = "slow"
)

// Def is the static definition of an effect, loaded from YAML.
type Def struct {
	ID           string        `yaml:"id"`
	Name         string        `yaml:"name"`
	Kind         Kind          `yaml:"kind"`
	Duration     time.Duration `yaml:"duration"`
	TickInterval time.Duration `yaml:"tick_interval"`
	Factor       float64       `yaml:"factor"`
	MinDamage    int           `yaml:"min_damage"`
	MaxDamage    int           `yaml:"max_damage"`
	PushForce    float64       `yaml:"push_force"`
}

// Validate reports every structural problem with d.
func (d *Def) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Duration <= 0 {
		errs = append(errs, fmt.Errorf("duration must be > 0, got %s", d.Duration))
	}
	switch d.Kind {
	case KindDamageOverTime:
		if d.TickInterval <= 0 {
			errs = append(errs, fmt.Errorf("tick_interval must be > 0, got %s", d.TickInterval))
		}
		if d.MinDamage < 0 || d.MaxDamage < d.MinDamage {
			errs = append(errs, fmt.Errorf("damage range [%d, %d] is invalid", d.MinDamage, d.MaxDamage))
		}
	case KindSlow:
		if d.Factor <= 0 || d.Factor > 1 {
			errs = append(errs, fmt.Errorf("factor must be in (0, 1], got %v", d.Factor))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown kind %q", d.Kind))
	}
	return errors.Join(errs...)
}

// Record instantiates d as a record attributed to source.
func (d *Def) Record(source string) Record {
	return Record{
		Kind:         d.Kind,
		Source:       source,
		Duration:     d.Duration,
		TickInterval: d.TickInterval,
		Factor:       d.Factor,
		MinDamage:    d.MinDamage,
		MaxDamage:    d.MaxDamage,
		PushForce:    d.PushForce,
	}
}

// CheckTickRate warns when a damage-over-time definition ticks no slower than the
// immunity window, because every other tick would then be absorbed.
//
// Postcondition: Returns true iff a warning was logged.
func CheckTickRate(d *Def, immunityWindow time.Duration, logger *zap.Logger) bool {
	if d.Kind != KindDamageOverTime || d.TickInterval > immunityWindow {
		return false
	}
	logger.Warn("effect tick interval does not exceed immunity window; ticks will be dropped",
		zap.String("effect", d.ID),
		zap.Duration("tick_interval", d.TickInterval),
		zap.Duration("immunity_window", immunityWindow),
	)
	return true
}

// Registry holds all known Defs keyed by ID.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// Register adds def to the registry, overwriting any existing entry with the same ID.
// Precondition: def must not be nil and def.ID must not be empty.
func (r *Registry) Register(def *Def) {
	r.defs[def.ID] = def
}

// Get returns the Def for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*Def, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns the registered Defs sorted by ID.
func (r *Registry) All() []*Def {
	out := make([]*Def, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadDirectory reads every *.yaml file in dir, parses and validates each as a Def,
// and returns a populated Registry.
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails to parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading effect dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def Def
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("validating %q: %w", path, err)
		}
		reg.Register(&def)
	}
	return reg, nil
}
