package ai

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/game/combat"
	"github.com/cory-johannsen/dungeon/internal/game/npc"
)

// EnemyPlanner adapts a Registry to npc.IntentPlanner.
type EnemyPlanner struct {
	registry *Registry
	logger   *zap.Logger
}

var _ npc.IntentPlanner = (*EnemyPlanner)(nil)

// NewEnemyPlanner wraps registry for use by the enemy brain.
//
// Precondition: registry must not be nil.
func NewEnemyPlanner(registry *Registry, logger *zap.Logger) *EnemyPlanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnemyPlanner{registry: registry, logger: logger}
}

// Intents plans inst's intents with the domain named by its template.
//
// Postcondition: returns false when the domain is unknown or the plan is empty, so
// the brain falls back to the enemy's built-in behaviour.
func (e *EnemyPlanner) Intents(inst *npc.Instance, player *combat.Fighter, now time.Duration) ([]npc.Intent, bool) {
	domainID := inst.Template().AIDomain
	planner, ok := e.registry.PlannerFor(domainID)
	if !ok {
		e.logger.Debug("no planner for enemy domain",
			zap.String("npc", inst.ID),
			zap.String("domain", domainID),
		)
		return nil, false
	}
	intents, err := planner.Plan(BuildWorldState(inst, player, now))
	if err != nil {
		e.logger.Warn("enemy plan failed", zap.String("npc", inst.ID), zap.Error(err))
		return nil, false
	}
	if len(intents) == 0 {
		return nil, false
	}
	return intents, true
}
