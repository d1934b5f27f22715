// Package npc provides enemy template definitions, live enemy instances, and
// their chase and ranged behaviour.
package npc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dungeon/internal/game/combat"
)

// Kind selects an enemy's built-in behaviour.
type Kind string

const (
	// KindMelee chases the player and deals contact damage.
	KindMelee Kind = "melee"
	// KindCaster keeps its distance and casts fireballs on a cooldown.
	KindCaster Kind = "caster"
	// KindPhantom chases like a melee enemy but never gives up once triggered.
	KindPhantom Kind = "phantom"
)

// DamageRange is an inclusive damage roll with knockback.
type DamageRange struct {
	Min            int     `yaml:"min"`
	Max            int     `yaml:"max"`
	PushForce      float64 `yaml:"push_force"`
	CritChance     float64 `yaml:"crit_chance"`
	CritMultiplier float64 `yaml:"crit_multiplier"`
}

// FireballSpec configures a caster's projectile.
type FireballSpec struct {
	Speed    float64       `yaml:"speed"`
	BaseMin  int           `yaml:"base_min"`
	BaseMax  int           `yaml:"base_max"`
	Scaling  float64       `yaml:"scaling"`
	Lifetime time.Duration `yaml:"lifetime"`
}

// Template defines a reusable enemy archetype loaded from YAML.
type Template struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Kind        Kind         `yaml:"kind"`
	Level       int          `yaml:"level"`
	Boss        bool         `yaml:"boss"`
	Stats       combat.Stats `yaml:"stats"`
	// Tags are the capabilities rooms query for; defaults to the Fighter tag.
	Tags []string `yaml:"tags"`
	// TriggerLength is how close the player must come to Home to start a chase.
	TriggerLength float64 `yaml:"trigger_length"`
	// ChaseLength is how far from Home the player may go before the chase ends.
	ChaseLength     float64       `yaml:"chase_length"`
	AttackCooldown  time.Duration `yaml:"attack_cooldown"`
	ContactDamage   DamageRange   `yaml:"contact_damage"`
	Fireball        FireballSpec  `yaml:"fireball"`
	RetreatDistance float64       `yaml:"retreat_distance"`
	ChaseDistance   float64       `yaml:"chase_distance"`
	AIDomain        string        `yaml:"ai_domain"` // HTN domain ID; empty = built-in behaviour
	// PuddleInterval is how often the enemy leaves a toxic puddle; zero leaves none.
	PuddleInterval time.Duration `yaml:"puddle_interval"`
	Loot           *LootTable    `yaml:"loot"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, Kind is known, Level >= 1,
// base hitpoints are >= 1, and the chase lengths are ordered; returns an error on the
// first violation otherwise.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("npc template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("npc template %q: name must not be empty", t.ID)
	}
	switch t.Kind {
	case KindMelee, KindCaster, KindPhantom:
	default:
		return fmt.Errorf("npc template %q: unknown kind %q", t.ID, t.Kind)
	}
	if t.Level < 1 {
		return fmt.Errorf("npc template %q: level must be >= 1", t.ID)
	}
	if t.Stats.BaseHitpoint < 1 {
		return fmt.Errorf("npc template %q: stats.base_hitpoint must be >= 1", t.ID)
	}
	if t.TriggerLength < 0 || t.ChaseLength < t.TriggerLength {
		return fmt.Errorf("npc template %q: need 0 <= trigger_length (%v) <= chase_length (%v)", t.ID, t.TriggerLength, t.ChaseLength)
	}
	if t.ContactDamage.Min < 0 || t.ContactDamage.Max < t.ContactDamage.Min {
		return fmt.Errorf("npc template %q: contact_damage range [%d, %d] is invalid", t.ID, t.ContactDamage.Min, t.ContactDamage.Max)
	}
	if t.Kind == KindCaster {
		if t.Fireball.Speed <= 0 || t.Fireball.Lifetime <= 0 {
			return fmt.Errorf("npc template %q: caster needs fireball speed and lifetime > 0", t.ID)
		}
		if t.Fireball.BaseMax < t.Fireball.BaseMin {
			return fmt.Errorf("npc template %q: fireball base_min must be <= base_max", t.ID)
		}
		if t.AttackCooldown <= 0 {
			return fmt.Errorf("npc template %q: caster needs attack_cooldown > 0", t.ID)
		}
	}
	if t.PuddleInterval < 0 {
		return fmt.Errorf("npc template %q: puddle_interval must be >= 0", t.ID)
	}
	if t.Loot != nil {
		if err := t.Loot.Validate(); err != nil {
			return fmt.Errorf("npc template %q: %w", t.ID, err)
		}
	}
	return nil
}

// HasTag reports whether instances of t carry the capability tag.
func (t *Template) HasTag(tag string) bool {
	if len(t.Tags) == 0 {
		return tag == DefaultTag
	}
	for _, tt := range t.Tags {
		if tt == tag {
			return true
		}
	}
	return false
}

// DefaultTag is the capability every enemy carries unless its template lists tags.
const DefaultTag = "Fighter"

// LoadTemplateFromBytes parses a single enemy template from raw YAML bytes.
//
// Precondition: data must be valid YAML for a single Template.
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading npc dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}
