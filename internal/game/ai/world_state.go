package ai

import "github.com/cory-johannsen/dungeon/internal/game/geom"

// EnemyState captures the planning enemy's own state.
type EnemyState struct {
	UID         string
	Name        string
	Kind        string // "melee", "caster" or "phantom"
	Hitpoint    int
	MaxHitpoint int
	RoomID      string
	Position    geom.Vec2
	Home        geom.Vec2

	Chasing       bool
	CooldownReady bool
	Colliding     bool

	TriggerLength   float64
	ChaseLength     float64
	RetreatDistance float64
	ChaseDistance   float64
}

// HPPercent returns current hitpoints as a percentage of the maximum; 0 if the maximum is 0.
func (e *EnemyState) HPPercent() float64 {
	if e.MaxHitpoint <= 0 {
		return 0
	}
	return float64(e.Hitpoint) / float64(e.MaxHitpoint) * 100
}

// PlayerState captures the player as seen by an enemy.
type PlayerState struct {
	UID         string
	Hitpoint    int
	MaxHitpoint int
	Position    geom.Vec2
	Dead        bool
}

// WorldState is the snapshot passed to the HTN planner for one enemy.
//
// Invariant: Enemy must not be nil. Player is nil when no player is present.
type WorldState struct {
	Enemy  *EnemyState
	Player *PlayerState
}

// PlayerAlive reports whether a living player is present.
func (ws *WorldState) PlayerAlive() bool {
	return ws.Player != nil && !ws.Player.Dead
}

// DistanceToPlayer returns the enemy-to-player distance, or -1 without a living player.
func (ws *WorldState) DistanceToPlayer() float64 {
	if !ws.PlayerAlive() {
		return -1
	}
	return ws.Enemy.Position.Dist(ws.Player.Position)
}

// PlayerDistanceToHome returns the player's distance to the enemy's home, or -1 without
// a living player.
func (ws *WorldState) PlayerDistanceToHome() float64 {
	if !ws.PlayerAlive() {
		return -1
	}
	return ws.Player.Position.Dist(ws.Enemy.Home)
}

// Condition evaluates a built-in precondition by name.
//
// Postcondition: known is false when name is not a built-in; value is then false.
func (ws *WorldState) Condition(name string) (value, known bool) {
	switch name {
	case "player_alive":
		return ws.PlayerAlive(), true
	case "player_in_trigger":
		d := ws.PlayerDistanceToHome()
		return d >= 0 && d < ws.Enemy.TriggerLength, true
	case "player_in_chase":
		d := ws.PlayerDistanceToHome()
		return d >= 0 && d < ws.Enemy.ChaseLength, true
	case "chasing":
		return ws.Enemy.Chasing, true
	case "too_close":
		d := ws.DistanceToPlayer()
		return d >= 0 && d < ws.Enemy.RetreatDistance, true
	case "too_far":
		return ws.DistanceToPlayer() > ws.Enemy.ChaseDistance, true
	case "cooldown_ready":
		return ws.Enemy.CooldownReady, true
	case "colliding":
		return ws.Enemy.Colliding, true
	case "at_home":
		return ws.Enemy.Position.Near(ws.Enemy.Home, homeTolerance), true
	case "wounded":
		return ws.Enemy.HPPercent() < 50, true
	default:
		return false, false
	}
}

// homeTolerance matches the distance at which the brain treats an enemy as home.
const homeTolerance = 0.01
