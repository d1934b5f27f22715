package gameserver

import "time"

// PlayerSnapshot is the player's visible state.
type PlayerSnapshot struct {
	HP            int
	MaxHP         int
	Level         int
	Experience    int
	ExperienceMax int
	X, Y          float64
	Room          string
	Dead          bool
	BonusActive   bool
}

// Snapshot is a point-in-time copy of a session for status reporting.
type Snapshot struct {
	ID           string
	Dungeon      string
	Elapsed      time.Duration
	Player       PlayerSnapshot
	RoomsCleared int
	Rooms        int
	Enemies      int
	Projectiles  int
	Puddles      int
	Effects      int
	Messages     []string
	Summary      *Summary
}

// Snapshot copies the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.player
	return Snapshot{
		ID:      s.ID,
		Dungeon: s.layout.ID,
		Elapsed: s.now,
		Player: PlayerSnapshot{
			HP:            p.Hitpoint,
			MaxHP:         p.MaxHitpoint,
			Level:         p.Level,
			Experience:    s.tracker.Experience(),
			ExperienceMax: s.tracker.ExperienceMax(),
			X:             p.Position.X,
			Y:             p.Position.Y,
			Room:          s.current.ID,
			Dead:          p.IsDead(),
			BonusActive:   s.tracker.BonusActive(),
		},
		RoomsCleared: s.rooms.ClearedCount(),
		Rooms:        s.rooms.RoomCount(),
		Enemies:      s.enemies.Count(),
		Projectiles:  len(s.projectiles),
		Puddles:      len(s.puddles),
		Effects:      s.effects.Len(),
		Messages:     append([]string(nil), s.messages...),
		Summary:      s.summary,
	}
}

// Fields converts the snapshot to the plain value tree accepted by structpb.
func (sn Snapshot) Fields() map[string]any {
	msgs := make([]any, len(sn.Messages))
	for i, m := range sn.Messages {
		msgs[i] = m
	}
	out := map[string]any{
		"id":      sn.ID,
		"dungeon": sn.Dungeon,
		"elapsed": sn.Elapsed.String(),
		"player": map[string]any{
			"hp":             sn.Player.HP,
			"max_hp":         sn.Player.MaxHP,
			"level":          sn.Player.Level,
			"experience":     sn.Player.Experience,
			"experience_max": sn.Player.ExperienceMax,
			"x":              sn.Player.X,
			"y":              sn.Player.Y,
			"room":           sn.Player.Room,
			"dead":           sn.Player.Dead,
			"bonus_active":   sn.Player.BonusActive,
		},
		"rooms_cleared": sn.RoomsCleared,
		"rooms":         sn.Rooms,
		"enemies":       sn.Enemies,
		"projectiles":   sn.Projectiles,
		"puddles":       sn.Puddles,
		"effects":       sn.Effects,
		"messages":      msgs,
	}
	if sn.Summary != nil {
		items := make([]any, len(sn.Summary.Items))
		for i, it := range sn.Summary.Items {
			items[i] = map[string]any{"name": it.Name, "value": it.Value}
		}
		out["summary"] = map[string]any{
			"won":   sn.Summary.Won,
			"title": sn.Summary.Title,
			"items": items,
		}
	}
	return out
}
