package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/config"
	"github.com/cory-johannsen/dungeon/internal/game/ai"
	"github.com/cory-johannsen/dungeon/internal/game/biometric"
	"github.com/cory-johannsen/dungeon/internal/game/combat"
	"github.com/cory-johannsen/dungeon/internal/game/dice"
	"github.com/cory-johannsen/dungeon/internal/game/dungeon"
	"github.com/cory-johannsen/dungeon/internal/game/effect"
	"github.com/cory-johannsen/dungeon/internal/game/geom"
	"github.com/cory-johannsen/dungeon/internal/game/hazard"
	"github.com/cory-johannsen/dungeon/internal/game/npc"
	"github.com/cory-johannsen/dungeon/internal/game/player"
	"github.com/cory-johannsen/dungeon/internal/game/profile"
	"github.com/cory-johannsen/dungeon/internal/game/progression"
	"github.com/cory-johannsen/dungeon/internal/observability"
	"github.com/cory-johannsen/dungeon/internal/scripting"
)

// maxMessages bounds the broadcast history kept per session.
const maxMessages = 32

// PlayerName is the display name of the hero.
const PlayerName = "Hero"

// phantomSpacing separates phantoms spawned into the same room.
var phantomSpacing = geom.V(0.5, 0)

// Options configures a Session.
type Options struct {
	// ID names the session; empty generates a random ID.
	ID string
	// DungeonID selects the layout; empty picks the first dungeon by ID.
	DungeonID string
	Content   *Content
	// Profile is the persisted player profile; nil starts a fresh one.
	Profile    *profile.Profile
	Simulation config.SimulationConfig
	// Roller drives every random roll; nil rolls from a crypto source.
	Roller   *dice.Roller
	Feedback combat.FeedbackSink
	// Clock is the wall clock of the daily experience bonus; nil uses time.Now.
	Clock  progression.Clock
	Logger *zap.Logger
}

// Session is one run through a dungeon. Tick advances the whole simulation by a
// fixed step; everything else only reads state or queues input for the next tick.
//
// Session is safe for concurrent use. Scripting callbacks run on the ticking
// goroutine while the session lock is held.
type Session struct {
	ID string

	mu     sync.Mutex
	logger *zap.Logger
	now    time.Duration
	input  geom.Vec2

	layout  *dungeon.Layout
	rooms   *dungeon.Manager
	current *dungeon.Room

	player  *player.Player
	tracker *progression.Tracker
	effects *effect.Set
	enemies *npc.Manager
	brain   *npc.Brain
	walls   npc.Walls

	projectiles []*npc.Projectile
	puddles     []*hazard.Puddle
	puddleSpec  hazard.PuddleSpec
	lastPuddle  map[string]time.Duration
	traps       *hazard.TrapField

	mods    *biometric.Modifiers
	metrics []biometric.Metric
	scripts *scripting.Manager

	prof        *profile.Profile
	startXP     int
	startLevel  int
	bonusAtRun  bool
	stats       RunStats
	messages    []string
	clearedRuns []string
	summary     *Summary
	onEnd       []func(*Summary)
}

// NewSession builds a run: it applies biometric modifiers and saved perks, spawns
// every room's enemies plus hallucinated phantoms, loads the dungeon's scripts and
// places the player in the start room.
//
// Precondition: opts.Content must not be nil.
// Postcondition: The start room has the player inside; no tick has run.
func NewSession(opts Options) (*Session, error) {
	c := opts.Content
	if c == nil {
		return nil, errors.New("gameserver.NewSession: content must not be nil")
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = observability.ForSession(logger, "session", id)
	roller := opts.Roller
	if roller == nil {
		roller = dice.NewLoggedRoller(dice.NewCryptoSource(), logger)
	}
	prof := opts.Profile
	if prof == nil {
		prof = profile.New()
	}

	dungeonID := opts.DungeonID
	if dungeonID == "" {
		ids := c.DungeonIDs()
		if len(ids) == 0 {
			return nil, errors.New("gameserver.NewSession: no dungeons loaded")
		}
		dungeonID = ids[0]
	}
	layout, err := c.Layout(dungeonID)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:         id,
		logger:     logger,
		layout:     layout,
		lastPuddle: make(map[string]time.Duration),
		mods:       biometric.NewModifiers(),
		prof:       prof,
	}

	if c.Records != nil {
		metrics, err := biometric.Collect(c.Records)
		if err != nil {
			return nil, fmt.Errorf("collecting biometrics: %w", err)
		}
		if err := biometric.ApplyAll(metrics, s.mods, logger); err != nil {
			logger.Warn("some biometric effects were not applied", zap.Error(err))
		}
		s.metrics = metrics
	}

	for _, r := range layout.Rooms {
		if s.mods.DoorsAlwaysOpen {
			r.DoorsAlwaysOpen = true
		}
		if opts.Simulation.EnemyTag != "" && r.EnemyTag == dungeon.DefaultEnemyTag {
			r.EnemyTag = opts.Simulation.EnemyTag
		}
		r.OnCleared(s.roomCleared)
	}
	s.rooms = dungeon.NewManager(layout)
	s.walls = npc.WallsFunc(func(p geom.Vec2) bool {
		_, inside := s.rooms.RoomAt(p)
		return !inside
	})

	s.tracker = progression.NewTracker(progression.Options{
		BonusMultiplier: opts.Simulation.BonusXPMultiplier,
		BonusCooldown:   opts.Simulation.BonusXPCooldown,
		Clock:           opts.Clock,
	}, logger)
	s.tracker.SetExperience(prof.Experience)
	if !prof.BonusCooldownEnd.IsZero() {
		s.tracker.SetCooldownEnd(prof.BonusCooldownEnd)
	}
	s.startXP = s.tracker.Experience()
	s.startLevel = s.tracker.Level()
	s.bonusAtRun = s.tracker.BonusActive()

	stats := player.DefaultStats()
	if opts.Simulation.ImmunityWindow > 0 {
		stats.ImmunityWindow = opts.Simulation.ImmunityWindow
	}
	profile.ApplyPerks(prof, &stats, logger)
	s.player = player.New(prof.ID.String(), PlayerName, stats, s.tracker, roller, s.mods.AttackCooldownScale, logger)
	s.player.Feedback = opts.Feedback
	s.player.OnDeath = combat.DeathFunc(func(f *combat.Fighter) {
		logger.Info("player died", zap.String("player", f.ID), zap.Duration("at", s.now))
	})
	s.effects = effect.NewSet(s.player.Fighter, roller, logger)

	start := s.rooms.StartRoom()
	s.player.Position = start.Origin
	start.EnterPlayer()
	s.current = start

	if err := s.loadScripts(roller, c.ScriptsDir); err != nil {
		return nil, err
	}

	registry := ai.NewRegistry()
	if err := registry.RegisterAll(c.Domains, s.scripts, layout.ID); err != nil {
		s.scripts.Close()
		return nil, fmt.Errorf("registering ai domains: %w", err)
	}
	s.brain = npc.NewBrain(roller, ai.NewEnemyPlanner(registry, logger), logger)
	s.brain.SetTerrain(npc.TerrainFunc(s.enemyPassable))

	s.enemies = npc.NewManager(roller, s.tracker, logger)
	s.enemies.OnDeath(s.enemyDied)
	if err := s.spawnEnemies(c); err != nil {
		s.scripts.Close()
		return nil, err
	}
	s.rooms.PopulateEnemies(s.enemies)

	trapSpec := hazard.DefaultTrapSpec()
	var cells []hazard.Cell
	for _, r := range s.rooms.Rooms() {
		for _, off := range r.Traps {
			cells = append(cells, trapSpec.CellAt(r.Origin.Add(off)))
		}
	}
	s.traps = hazard.NewTrapField(trapSpec, cells, s.mods.DodgeTraps, logger)
	s.puddleSpec = c.PuddleSpec().Scaled(s.mods.PuddleDurationScale)

	logger.Info("session started",
		zap.String("dungeon", layout.ID),
		zap.String("profile", prof.ID.String()),
		zap.Int("level", s.player.Level),
		zap.Int("rooms", s.rooms.RoomCount()),
		zap.Int("enemies", s.enemies.Count()),
		zap.Int("traps", len(cells)),
		zap.Bool("bonus_active", s.bonusAtRun),
	)
	return s, nil
}

func (s *Session) loadScripts(roller *dice.Roller, globalDir string) error {
	s.scripts = scripting.NewManager(roller, s.logger)
	s.wireScripts()
	if globalDir != "" {
		if err := s.scripts.LoadGlobal(globalDir, 0); err != nil {
			s.scripts.Close()
			return fmt.Errorf("loading global scripts: %w", err)
		}
	}
	if s.layout.ScriptDir != "" {
		if err := s.scripts.LoadScope(s.layout.ID, s.layout.ScriptDir, s.layout.ScriptInstructionLimit); err != nil {
			s.scripts.Close()
			return fmt.Errorf("loading scripts for dungeon %q: %w", s.layout.ID, err)
		}
	}
	return nil
}

func (s *Session) wireScripts() {
	m := s.scripts
	m.GetEnemy = func(uid string) *scripting.EnemyInfo {
		inst, ok := s.enemies.Get(uid)
		if !ok {
			return nil
		}
		return enemyInfo(inst)
	}
	m.EnemiesInRoom = func(roomID string) []*scripting.EnemyInfo {
		insts := s.enemies.InstancesInRoom(roomID)
		out := make([]*scripting.EnemyInfo, 0, len(insts))
		for _, inst := range insts {
			out = append(out, enemyInfo(inst))
		}
		return out
	}
	m.GetPlayer = func() *scripting.PlayerInfo {
		p := s.player
		return &scripting.PlayerInfo{
			UID:        p.ID,
			HP:         p.Hitpoint,
			MaxHP:      p.MaxHitpoint,
			Level:      p.Level,
			Experience: s.tracker.Experience(),
			X:          p.Position.X,
			Y:          p.Position.Y,
			RoomID:     s.current.ID,
			Dead:       p.IsDead(),
		}
	}
	m.OpenDoors = func(roomID string) error {
		r, ok := s.layout.Rooms[roomID]
		if !ok {
			return fmt.Errorf("room %q: %w", roomID, dungeon.ErrRoomNotFound)
		}
		for _, d := range r.Doors() {
			d.Control.Open()
		}
		return nil
	}
	m.Broadcast = s.broadcast
	m.GrantExperience = s.tracker.AddExperience
}

func enemyInfo(inst *npc.Instance) *scripting.EnemyInfo {
	return &scripting.EnemyInfo{
		UID:        inst.ID,
		Name:       inst.Name,
		TemplateID: inst.TemplateID,
		Kind:       string(inst.Behaviour()),
		RoomID:     inst.RoomID,
		HP:         inst.Hitpoint,
		MaxHP:      inst.MaxHitpoint,
		Level:      inst.Level,
		X:          inst.Position.X,
		Y:          inst.Position.Y,
		Chasing:    inst.Chasing,
		Boss:       inst.IsBoss(),
	}
}

func (s *Session) spawnEnemies(c *Content) error {
	phantom := c.Phantom()
	if s.mods.Phantoms > 0 && phantom == nil {
		s.logger.Warn("hallucination active but no phantom template loaded",
			zap.Int("phantoms", s.mods.Phantoms),
		)
	}
	for _, r := range s.rooms.Rooms() {
		for _, sp := range r.Spawns {
			tmpl, ok := c.Templates[sp.Template]
			if !ok {
				s.logger.Warn("room spawn references unknown enemy template",
					zap.String("room", r.ID),
					zap.String("template", sp.Template),
				)
				continue
			}
			if _, err := s.enemies.Spawn(tmpl, r.ID, r.Origin.Add(sp.Offset)); err != nil {
				return fmt.Errorf("spawning %q in room %q: %w", tmpl.ID, r.ID, err)
			}
		}
		if phantom == nil || r.ID == s.layout.StartRoom {
			continue
		}
		for i := 0; i < s.mods.Phantoms; i++ {
			pos := r.Origin.Add(phantomSpacing.Scale(float64(i)))
			if _, err := s.enemies.Spawn(phantom, r.ID, pos); err != nil {
				return fmt.Errorf("spawning phantom in room %q: %w", r.ID, err)
			}
		}
	}
	return nil
}

// OnEnd registers fn to run once, outside the session lock, when the run ends.
func (s *Session) OnEnd(fn func(*Summary)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnd = append(s.onEnd, fn)
}

// SetInput sets the movement direction applied from the next tick on.
func (s *Session) SetInput(direction geom.Vec2) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = direction
}

// Tick advances the run by dt. Each tick runs, in order: the player's movement
// and swing; enemy behaviour; projectiles; puddles and traps; running effects;
// then every room. The run ends when the player dies or every room is cleared.
//
// Postcondition: Tick is a no-op once Ended() is true or when dt <= 0.
func (s *Session) Tick(dt time.Duration) {
	s.mu.Lock()
	ended := s.tick(dt)
	summary := s.summary
	hooks := append([]func(*Summary){}, s.onEnd...)
	s.mu.Unlock()
	if !ended {
		return
	}
	for _, fn := range hooks {
		fn(summary)
	}
}

func (s *Session) tick(dt time.Duration) bool {
	if s.summary != nil || dt <= 0 {
		return false
	}
	s.now += dt
	now := s.now

	s.movePlayer(dt, now)
	s.tickEnemies(dt, now)
	s.tickProjectiles(dt, now)
	s.tickHazards(dt, now)
	s.effects.Tick(dt, now)
	s.rooms.TickAll()
	s.dispatchCleared()

	s.syncLevel()

	switch {
	case s.player.IsDead():
		s.finish(false)
	case s.rooms.AllCleared():
		s.tracker.AddGameWin()
		s.syncLevel()
		s.finish(true)
	default:
		return false
	}
	return true
}

// syncLevel raises the player to the tracker's level and counts the gain.
func (s *Session) syncLevel() {
	s.stats.LevelsGained += s.player.SyncLevel()
}

func (s *Session) movePlayer(dt, now time.Duration) {
	prev := s.player.Position
	s.player.Update(s.input, dt, now, s.enemies.All())
	if s.player.IsDead() || s.current.ComputeBounds().Contains(s.player.Position) {
		return
	}
	next, ok := s.rooms.RoomAt(s.player.Position)
	if !ok || !s.passable(s.current.ID, next.ID) {
		s.player.Position = prev
		return
	}
	s.current = next
	next.EnterPlayer()
	s.logger.Debug("player entered room", zap.String("room", next.ID))
}

// passable reports whether the gate joining rooms a and b is open.
func (s *Session) passable(a, b string) bool {
	for _, c := range s.layout.Connections {
		if (c.From == a && c.To == b) || (c.From == b && c.To == a) {
			return c.Gate.IsOpen()
		}
	}
	return false
}

// enemyPassable keeps enemies inside the rooms and lets them change rooms only
// through an open gate.
func (s *Session) enemyPassable(from, to geom.Vec2) bool {
	dst, ok := s.rooms.RoomAt(to)
	if !ok {
		return false
	}
	src, ok := s.rooms.RoomAt(from)
	if !ok || src.ID == dst.ID {
		return true
	}
	return s.passable(src.ID, dst.ID)
}

func (s *Session) tickEnemies(dt, now time.Duration) {
	for _, inst := range s.enemies.All() {
		s.projectiles = append(s.projectiles, s.brain.Tick(inst, s.player.Fighter, dt, now)...)
		s.dropPuddle(inst, now)
	}
}

func (s *Session) dropPuddle(inst *npc.Instance, now time.Duration) {
	interval := inst.Template().PuddleInterval
	if interval <= 0 || inst.IsDead() {
		return
	}
	if last, ok := s.lastPuddle[inst.ID]; ok && now-last < interval {
		return
	}
	s.lastPuddle[inst.ID] = now
	s.puddles = append(s.puddles, hazard.NewPuddle(uuid.NewString(), s.puddleSpec, inst.Position, s.logger))
}

func (s *Session) tickProjectiles(dt, now time.Duration) {
	live := s.projectiles[:0]
	for _, p := range s.projectiles {
		p.Advance(dt, now, s.player.Fighter, s.walls)
		if !p.Done() {
			live = append(live, p)
		}
	}
	for i := len(live); i < len(s.projectiles); i++ {
		s.projectiles[i] = nil
	}
	s.projectiles = live
}

func (s *Session) tickHazards(dt, now time.Duration) {
	live := s.puddles[:0]
	for _, p := range s.puddles {
		p.Update(dt, now, s.player.Fighter, s.effects)
		if !p.Expired() {
			live = append(live, p)
		}
	}
	for i := len(live); i < len(s.puddles); i++ {
		s.puddles[i] = nil
	}
	s.puddles = live
	s.traps.Update(dt, now, s.player.Fighter)
}

func (s *Session) enemyDied(ev npc.DeathEvent) {
	inst := ev.Instance
	s.stats.EnemiesDefeated++
	if inst.IsBoss() {
		s.stats.BossesDefeated++
	}
	s.stats.Currency += ev.Loot.Currency
	s.stats.Items += len(ev.Loot.Items)
	delete(s.lastPuddle, inst.ID)
	s.callHook("on_enemy_death", lua.LString(inst.ID), lua.LString(inst.TemplateID), lua.LString(inst.RoomID))
}

// roomCleared runs inside the room manager's tick, so hooks are queued and
// dispatched after it returns.
func (s *Session) roomCleared(r *dungeon.Room) {
	s.clearedRuns = append(s.clearedRuns, r.ID)
}

func (s *Session) dispatchCleared() {
	queued := s.clearedRuns
	s.clearedRuns = nil
	for _, id := range queued {
		s.callHook("on_room_cleared", lua.LString(id))
	}
}

func (s *Session) callHook(hook string, args ...lua.LValue) {
	if _, err := s.scripts.CallHook(s.layout.ID, hook, args...); err != nil {
		s.logger.Warn("script hook failed", zap.String("hook", hook), zap.Error(err))
	}
}

func (s *Session) broadcast(msg string) {
	s.messages = append(s.messages, msg)
	if over := len(s.messages) - maxMessages; over > 0 {
		s.messages = append([]string(nil), s.messages[over:]...)
	}
	s.logger.Info("broadcast", zap.String("message", msg))
}

func (s *Session) finish(won bool) {
	if s.bonusAtRun {
		s.tracker.ResetCooldown()
	}
	st := s.runStatsLocked()
	s.prof.RecordProgress(s.tracker.Experience(), s.tracker.Level()-s.startLevel)
	s.prof.BonusCooldownEnd = s.tracker.CooldownEnd()
	s.effects.Clear()
	s.input = geom.Vec2{}
	s.summary = NewSummary(won, st)
	s.logger.Info("run ended",
		zap.Bool("won", won),
		zap.Duration("elapsed", s.now),
		zap.Int("level", st.Level),
		zap.Int("experience_gained", st.ExperienceGained),
		zap.Int("rooms_cleared", st.RoomsCleared),
		zap.Int("points", s.prof.Points),
	)
}

func (s *Session) runStatsLocked() RunStats {
	st := s.stats
	st.Elapsed = s.now
	st.Level = s.player.Level
	st.ExperienceGained = s.tracker.Experience() - s.startXP
	st.RoomsCleared = s.rooms.ClearedCount()
	st.Rooms = s.rooms.RoomCount()
	return st
}

// Ended reports whether the run is over.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary != nil
}

// Summary returns the end-of-run summary, or nil while the run is in progress.
func (s *Session) Summary() *Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Elapsed returns the simulation time.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Modifiers returns the biometric modifiers applied at session start.
func (s *Session) Modifiers() biometric.Modifiers {
	return *s.mods
}

// Metrics returns the biometric metrics collected at session start.
func (s *Session) Metrics() []biometric.Metric {
	out := make([]biometric.Metric, len(s.metrics))
	copy(out, s.metrics)
	return out
}

// Messages returns the most recent broadcasts, oldest first.
func (s *Session) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

// Profile returns a copy of the session's profile.
func (s *Session) Profile() *profile.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.prof
	cp.Perks = append([]profile.Perk(nil), s.prof.Perks...)
	return &cp
}

// Save writes the session's profile to repo.
func (s *Session) Save(ctx context.Context, repo profile.Repository) error {
	if err := repo.Save(ctx, s.Profile()); err != nil {
		return fmt.Errorf("saving profile for session %s: %w", s.ID, err)
	}
	return nil
}

// Inspect runs fn with the session locked. fn must not call other Session methods.
func (s *Session) Inspect(fn func(p *player.Player, rooms *dungeon.Manager, enemies *npc.Manager)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.player, s.rooms, s.enemies)
}

// Close releases the session's script VMs.
func (s *Session) Close() {
	s.scripts.Close()
}
