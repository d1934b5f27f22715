package ai_test

import (
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/dungeon/internal/game/ai"
	"github.com/cory-johannsen/dungeon/internal/game/combat"
	"github.com/cory-johannsen/dungeon/internal/game/dice"
	"github.com/cory-johannsen/dungeon/internal/game/geom"
	"github.com/cory-johannsen/dungeon/internal/game/npc"
)

func guardTemplate(domain string) *npc.Template {
	return &npc.Template{
		ID:            "skeleton",
		Name:          "Skeleton",
		Kind:          npc.KindMelee,
		Level:         1,
		Stats:         combat.Stats{BaseHitpoint: 6, BaseSpeed: 1},
		TriggerLength: 3,
		ChaseLength:   6,
		AIDomain:      domain,
	}
}

func TestEnemyPlanner_UsesRegisteredDomain(t *testing.T) {
	reg := ai.NewRegistry()
	if err := reg.Register(guardDomain(), &mockScriptCaller{returnVal: lua.LTrue}, "crypt"); err != nil {
		t.Fatal(err)
	}
	planner := ai.NewEnemyPlanner(reg, nil)
	inst := npc.NewInstance("s1", guardTemplate("guard"), "r1", geom.Vec2{})
	player := combat.NewFighter("hero", "Hero", combat.KindPlayer, 1, combat.DefaultPlayerStats())
	player.Position = geom.V(2, 0)

	intents, ok := planner.Intents(inst, player, 0)
	if !ok || len(intents) != 1 || intents[0] != npc.IntentRetreat {
		t.Fatalf("expected [retreat], got %v (ok=%v)", intents, ok)
	}
}

func TestEnemyPlanner_UnknownDomainDefers(t *testing.T) {
	planner := ai.NewEnemyPlanner(ai.NewRegistry(), nil)
	inst := npc.NewInstance("s1", guardTemplate("missing"), "r1", geom.Vec2{})
	if _, ok := planner.Intents(inst, nil, 0); ok {
		t.Fatal("expected unknown domain to defer to built-in behaviour")
	}
}

func TestEnemyPlanner_DrivesBrain(t *testing.T) {
	reg := ai.NewRegistry()
	if err := reg.Register(guardDomain(), nil, "crypt"); err != nil {
		t.Fatal(err)
	}
	brain := npc.NewBrain(dice.NewLoggedRoller(dice.NewSeededSource(1), nil), ai.NewEnemyPlanner(reg, nil), nil)
	inst := npc.NewInstance("s1", guardTemplate("guard"), "r1", geom.Vec2{})
	inst.Position = geom.V(1, 0)
	player := combat.NewFighter("hero", "Hero", combat.KindPlayer, 1, combat.DefaultPlayerStats())
	player.Position = geom.V(20, 0)

	brain.Tick(inst, player, 500*time.Millisecond, 0)
	if !inst.Position.Near(geom.V(0.5, 0), 1e-9) {
		t.Fatalf("expected the enemy to head home, got %v", inst.Position)
	}
}
