package profile

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/game/player"
)

// PerkDef describes a purchasable perk.
type PerkDef struct {
	Name        string
	Description string
	BaseCost    int
	MaxLevel    int
	apply       func(level int, s *player.Stats)
}

// minAttackCooldown bounds how far ferocity can shorten the swing.
const minAttackCooldown = 100 * time.Millisecond

// Catalog lists every perk keyed by name.
var Catalog = map[string]*PerkDef{
	"vitality": {
		Name:        "vitality",
		Description: "+1 max hitpoint per level for each rank.",
		BaseCost:    1,
		MaxLevel:    5,
		apply: func(level int, s *player.Stats) {
			s.HitpointPerLevel += level
		},
	},
	"ferocity": {
		Name:        "ferocity",
		Description: "Swing 10% faster for each rank.",
		BaseCost:    2,
		MaxLevel:    3,
		apply: func(level int, s *player.Stats) {
			cd := time.Duration(float64(s.AttackCooldown) * (1 - 0.1*float64(level)))
			if cd < minAttackCooldown {
				cd = minAttackCooldown
			}
			s.AttackCooldown = cd
		},
	},
}

// PerkNames returns the catalog names in sorted order.
func PerkNames() []string {
	names := make([]string, 0, len(Catalog))
	for n := range Catalog {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Cost returns the price of the next rank of d after level ranks were bought.
func (d *PerkDef) Cost(level int) int {
	return d.BaseCost * (level + 1)
}

// Buy spends points on the next rank of the perk named name.
//
// Postcondition: On success Points decreased by the rank cost and the saved perk
// level increased by one.
func (p *Profile) Buy(name string) error {
	def, ok := Catalog[name]
	if !ok {
		return fmt.Errorf("unknown perk %q", name)
	}
	saved := p.Perk(name)
	level := 0
	if saved != nil {
		level = saved.Level
	}
	if level >= def.MaxLevel {
		return fmt.Errorf("perk %q is at max level %d", name, def.MaxLevel)
	}
	cost := def.Cost(level)
	if p.Points < cost {
		return fmt.Errorf("perk %q costs %d, have %d: %w", name, cost, p.Points, ErrInsufficientPoints)
	}
	p.Points -= cost
	if saved == nil {
		p.Perks = append(p.Perks, Perk{Name: name})
		saved = &p.Perks[len(p.Perks)-1]
	}
	saved.Level++
	saved.Cost = def.Cost(saved.Level)
	return nil
}

// ApplyPerks applies every saved perk to stats. Perks missing from the catalog are
// logged and skipped.
//
// Postcondition: Returns the number of perks applied.
func ApplyPerks(p *Profile, stats *player.Stats, logger *zap.Logger) int {
	if logger == nil {
		logger = zap.NewNop()
	}
	applied := 0
	for _, perk := range p.Perks {
		def, ok := Catalog[perk.Name]
		if !ok {
			logger.Info("saved perk not in catalog", zap.String("perk", perk.Name))
			continue
		}
		if perk.Level <= 0 {
			continue
		}
		def.apply(perk.Level, stats)
		applied++
	}
	return applied
}
