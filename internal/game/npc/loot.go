package npc

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/dungeon/internal/game/dice"
)

// Range is an inclusive integer range read as {min, max}.
type Range struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

func (r Range) check(floor int) error {
	if r.Min < floor {
		return fmt.Errorf("min %d is below %d", r.Min, floor)
	}
	if r.Min > r.Max {
		return fmt.Errorf("min %d exceeds max %d", r.Min, r.Max)
	}
	return nil
}

// ItemDrop is one item an enemy may drop.
type ItemDrop struct {
	ItemID   string  `yaml:"item"`
	Chance   float64 `yaml:"chance"`
	Quantity Range   `yaml:"quantity"`
}

// LootTable is what an enemy template drops on death.
type LootTable struct {
	Currency *Range     `yaml:"currency"`
	Items    []ItemDrop `yaml:"items"`
}

// Validate reports every malformed entry. An empty table is valid.
func (lt *LootTable) Validate() error {
	var errs []error
	if lt.Currency != nil {
		if err := lt.Currency.check(0); err != nil {
			errs = append(errs, fmt.Errorf("currency: %w", err))
		}
	}
	for i, it := range lt.Items {
		if it.ItemID == "" {
			errs = append(errs, fmt.Errorf("item %d: id is required", i))
		}
		if it.Chance <= 0 || it.Chance > 1 {
			errs = append(errs, fmt.Errorf("item %d: chance %g outside (0, 1]", i, it.Chance))
		}
		if err := it.Quantity.check(1); err != nil {
			errs = append(errs, fmt.Errorf("item %d quantity: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("loot table: %w", errors.Join(errs...))
	}
	return nil
}

// LootItem is one dropped stack.
type LootItem struct {
	ItemID     string
	InstanceID uuid.UUID
	Quantity   int
}

// LootResult is everything one kill dropped.
type LootResult struct {
	Currency int
	Items    []LootItem
}

// Roll draws a drop from the table.
//
// Precondition: lt passed Validate.
// Postcondition: Currency and every Quantity lie within their ranges, and each
// dropped stack has a fresh InstanceID.
func (lt *LootTable) Roll(roller *dice.Roller) LootResult {
	var out LootResult
	if c := lt.Currency; c != nil && c.Max > 0 {
		out.Currency = roller.Between(c.Min, c.Max)
	}
	for _, it := range lt.Items {
		if roller.Chance(it.Chance) {
			out.Items = append(out.Items, LootItem{
				ItemID:     it.ItemID,
				InstanceID: uuid.New(),
				Quantity:   roller.Between(it.Quantity.Min, it.Quantity.Max),
			})
		}
	}
	return out
}
