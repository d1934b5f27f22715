package ai

import (
	"time"

	"github.com/cory-johannsen/dungeon/internal/game/combat"
	"github.com/cory-johannsen/dungeon/internal/game/npc"
)

// BuildWorldState constructs a WorldState snapshot for inst facing player at now.
//
// Precondition: inst must not be nil; player may be nil.
// Postcondition: ws.Enemy.UID == inst.ID; ws.Player is nil iff player is nil.
func BuildWorldState(inst *npc.Instance, player *combat.Fighter, now time.Duration) *WorldState {
	tmpl := inst.Template()
	ws := &WorldState{
		Enemy: &EnemyState{
			UID:             inst.ID,
			Name:            inst.Name,
			Kind:            string(inst.Behaviour()),
			Hitpoint:        inst.Hitpoint,
			MaxHitpoint:     inst.MaxHitpoint,
			RoomID:          inst.RoomID,
			Position:        inst.Position,
			Home:            inst.Home,
			Chasing:         inst.Chasing,
			CooldownReady:   inst.CooldownReady(now),
			Colliding:       inst.Colliding(),
			TriggerLength:   tmpl.TriggerLength,
			ChaseLength:     tmpl.ChaseLength,
			RetreatDistance: tmpl.RetreatDistance,
			ChaseDistance:   tmpl.ChaseDistance,
		},
	}
	if player != nil {
		ws.Player = &PlayerState{
			UID:         player.ID,
			Hitpoint:    player.Hitpoint,
			MaxHitpoint: player.MaxHitpoint,
			Position:    player.Position,
			Dead:        player.IsDead(),
		}
	}
	return ws
}
