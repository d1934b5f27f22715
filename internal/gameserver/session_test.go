package gameserver_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/dungeon/internal/game/dungeon"
	"github.com/cory-johannsen/dungeon/internal/game/geom"
	"github.com/cory-johannsen/dungeon/internal/game/npc"
	"github.com/cory-johannsen/dungeon/internal/game/player"
	"github.com/cory-johannsen/dungeon/internal/game/profile"
	"github.com/cory-johannsen/dungeon/internal/gameserver"
)

func TestNewSession_RequiresContent(t *testing.T) {
	_, err := gameserver.NewSession(gameserver.Options{})
	assert.Error(t, err)
}

func TestNewSession_UnknownDungeon(t *testing.T) {
	content, err := gameserver.LoadContent(defaultFixture().write(t), time.Second, zaptest.NewLogger(t))
	require.NoError(t, err)
	_, err = gameserver.NewSession(gameserver.Options{Content: content, DungeonID: "nowhere"})
	assert.True(t, errors.Is(err, gameserver.ErrUnknownDungeon))
}

func TestNewSession_PlacesPlayerInStartRoom(t *testing.T) {
	s, _ := newSession(t, defaultFixture(), "crypt", nil)
	snap := s.Snapshot()
	assert.Equal(t, "crypt", snap.Dungeon)
	assert.Equal(t, "entrance", snap.Player.Room)
	assert.Equal(t, 1, snap.Player.Level)
	assert.Equal(t, 10, snap.Player.MaxHP)
	assert.Equal(t, 1, snap.Enemies)
	assert.False(t, s.Ended())
	assert.Nil(t, s.Summary())
}

func TestSession_EmptyDungeonIsWonOnFirstTick(t *testing.T) {
	f := defaultFixture()
	f.dungeons = map[string]string{"cell.yaml": emptyRoomDungeon}
	s, _ := newSession(t, f, "cell", nil)

	var ended []*gameserver.Summary
	s.OnEnd(func(sum *gameserver.Summary) { ended = append(ended, sum) })

	s.Tick(100 * time.Millisecond)
	require.True(t, s.Ended())
	sum := s.Summary()
	require.NotNil(t, sum)
	assert.True(t, sum.Won)
	assert.Equal(t, gameserver.WonTitle, sum.Title)
	v, ok := sum.Item("Rooms Cleared")
	require.True(t, ok)
	assert.Equal(t, "1/1", v)

	// level 1 win: floor(10 + 100*1^1.2)
	assert.Equal(t, 110, s.Profile().Experience)

	s.Tick(100 * time.Millisecond)
	assert.Len(t, ended, 1, "end hooks run once")
	assert.Equal(t, 100*time.Millisecond, s.Elapsed(), "ticks after the end are ignored")
}

func TestSession_WinExperienceLevelsUpBeforeSummary(t *testing.T) {
	f := defaultFixture()
	f.dungeons = map[string]string{"cell.yaml": emptyRoomDungeon}
	prof := profile.New()
	// level 2 needs floor(100*2^1.5) = 282; the 110 XP win takes 250 to 360.
	prof.Experience = 250
	s, _ := newSession(t, f, "cell", prof)

	s.Tick(100 * time.Millisecond)
	require.True(t, s.Ended())
	snap := s.Snapshot()
	assert.Equal(t, 360, snap.Player.Experience)
	assert.Equal(t, 2, snap.Player.Level)

	sum := s.Summary()
	level, _ := sum.Item("Level")
	assert.Equal(t, strconv.Itoa(snap.Player.Level), level)
	gained, ok := sum.Item("Levels Gained")
	require.True(t, ok)
	assert.Equal(t, "1", gained)

	assert.Equal(t, 360, s.Profile().Experience)
	assert.Equal(t, profile.PointsPerLevel, s.Profile().Points)
}

func TestSession_TrapDamagesPlayer(t *testing.T) {
	f := defaultFixture()
	f.dungeons = map[string]string{"cell.yaml": emptyRoomDungeon}
	s, _ := newSession(t, f, "cell", nil)

	s.Tick(100 * time.Millisecond)
	// 10% of 10 max hitpoints
	assert.Equal(t, 9, s.Snapshot().Player.HP)
}

func TestSession_DodgeTrapsModifier(t *testing.T) {
	f := defaultFixture()
	f.dungeons = map[string]string{"cell.yaml": emptyRoomDungeon}
	f.biometrics = "effects:\n  - {name: dodge traps, level: 1}\n"
	s, _ := newSession(t, f, "cell", nil)

	s.Tick(100 * time.Millisecond)
	assert.True(t, s.Modifiers().DodgeTraps)
	assert.Equal(t, 10, s.Snapshot().Player.HP)
}

func TestSession_ClosedDoorsKeepPlayerInRoom(t *testing.T) {
	s, _ := newSession(t, defaultFixture(), "crypt", nil)
	s.SetInput(geom.V(0, 1))

	tickN(s, 60)
	snap := s.Snapshot()
	assert.Equal(t, "entrance", snap.Player.Room)
	assert.LessOrEqual(t, snap.Player.Y, 5.0)
	assert.False(t, s.Ended())
}

func TestSession_EnemiesCannotCrossClosedGate(t *testing.T) {
	f := defaultFixture()
	f.enemies["brute.yaml"] = bruteYAML
	f.dungeons = map[string]string{"crypt.yaml": replaceTemplate(twoRoomDungeon, "skeleton", "brute")}
	s, _ := newSession(t, f, "crypt", nil)
	s.Tick(100 * time.Millisecond)

	// The entrance is still contested, so its north gate is held closed.
	var brute *npc.Instance
	s.Inspect(func(_ *player.Player, _ *dungeon.Manager, enemies *npc.Manager) {
		brute = enemies.All()[0]
		brute.Position = geom.V(0, 5.05)
		brute.Home = brute.Position
	})
	tickN(s, 5)

	s.Inspect(func(_ *player.Player, rooms *dungeon.Manager, _ *npc.Manager) {
		assert.True(t, brute.Chasing)
		assert.InDelta(t, 5.05, brute.Position.Y, 1e-9)
		r, ok := rooms.RoomAt(brute.Position)
		require.True(t, ok)
		assert.Equal(t, "hall", r.ID)
	})
	assert.Equal(t, 10, s.Snapshot().Player.HP)
}

func TestSession_ClearingRoomsWinsTheRun(t *testing.T) {
	s, _ := newSession(t, defaultFixture(), "crypt", nil)
	s.Tick(100 * time.Millisecond)

	s.Inspect(func(_ *player.Player, _ *dungeon.Manager, enemies *npc.Manager) {
		for _, e := range enemies.All() {
			e.Kill()
		}
	})
	s.Tick(100 * time.Millisecond)

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.RoomsCleared)
	assert.Contains(t, snap.Messages, "died skeleton in entrance")
	assert.Contains(t, snap.Messages, "cleared entrance")

	s.SetInput(geom.V(0, 1))
	for i := 0; i < 100 && !s.Ended(); i++ {
		s.Tick(100 * time.Millisecond)
	}
	require.True(t, s.Ended())
	sum := s.Summary()
	assert.True(t, sum.Won)
	enemies, _ := sum.Item("Enemies Defeated")
	assert.Equal(t, "1", enemies)
	gold, _ := sum.Item("Gold")
	assert.Equal(t, "2", gold)

	// 10 for the skeleton, 40 from the death hook, 110 for the win
	assert.Equal(t, 160, s.Profile().Experience)
	assert.Contains(t, s.Snapshot().Messages, "cleared hall")
}

func TestSession_PlayerDeathLosesTheRun(t *testing.T) {
	f := defaultFixture()
	f.enemies["brute.yaml"] = bruteYAML
	f.dungeons = map[string]string{"crypt.yaml": replaceTemplate(twoRoomDungeon, "skeleton", "brute")}
	s, logs := newSession(t, f, "crypt", nil)

	s.Inspect(func(_ *player.Player, _ *dungeon.Manager, enemies *npc.Manager) {
		for _, e := range enemies.All() {
			e.Position = geom.V(0, 0)
			e.Home = e.Position
		}
	})
	s.Tick(100 * time.Millisecond)

	require.True(t, s.Ended())
	sum := s.Summary()
	assert.False(t, sum.Won)
	assert.Equal(t, gameserver.LostTitle, sum.Title)
	assert.True(t, s.Snapshot().Player.Dead)
	assert.Equal(t, 1, logs.FilterMessage("player died").Len())
}

func TestSession_BiometricModifiers(t *testing.T) {
	f := defaultFixture()
	f.biometrics = `
effects:
  - {name: hallucination, level: 2}
  - {name: no door close, level: 1}
  - {name: attack speed, level: 1}
`
	s, _ := newSession(t, f, "crypt", nil)

	mods := s.Modifiers()
	assert.Equal(t, 2, mods.Phantoms)
	assert.True(t, mods.DoorsAlwaysOpen)
	require.Len(t, s.Metrics(), 1)

	s.Inspect(func(p *player.Player, rooms *dungeon.Manager, enemies *npc.Manager) {
		assert.Len(t, enemies.InstancesInRoom("hall"), 2, "phantoms in every room but the start")
		assert.Len(t, enemies.InstancesInRoom("entrance"), 1)
		assert.Equal(t, 400*time.Millisecond, p.AttackCooldown())
		for _, r := range rooms.Rooms() {
			assert.True(t, r.DoorsAlwaysOpen, r.ID)
		}
	})

	s.SetInput(geom.V(0, 1))
	tickN(s, 60)
	assert.Equal(t, "hall", s.Snapshot().Player.Room, "open doors let the player leave a fought room")
}

func TestSession_AppliesSavedPerks(t *testing.T) {
	prof := profile.New()
	prof.Experience = 800
	prof.Perks = []profile.Perk{{Name: "vitality", Level: 2}, {Name: "ferocity", Level: 1}}
	s, _ := newSession(t, defaultFixture(), "crypt", prof)

	s.Inspect(func(p *player.Player, _ *dungeon.Manager, _ *npc.Manager) {
		assert.Equal(t, 4, p.Level)
		// 10 + 3 levels * (2 + 2)
		assert.Equal(t, 22, p.MaxHitpoint)
		assert.Equal(t, 450*time.Millisecond, p.AttackCooldown())
	})
}

func TestSession_AcidEnemiesLeavePuddles(t *testing.T) {
	f := defaultFixture()
	f.enemies["slime.yaml"] = slimeYAML
	f.effects = map[string]string{"toxic.yaml": puddleEffectYAML}
	f.dungeons = map[string]string{"crypt.yaml": replaceTemplate(twoRoomDungeon, "skeleton", "slime")}
	s, _ := newSession(t, f, "crypt", nil)

	tickN(s, 5)
	assert.Equal(t, 1, s.Snapshot().Puddles)
	tickN(s, 10)
	// one puddle per second, each living two seconds
	assert.Equal(t, 2, s.Snapshot().Puddles)
}

func TestSession_BonusCooldownStartsWhenRunEnds(t *testing.T) {
	f := defaultFixture()
	f.dungeons = map[string]string{"cell.yaml": emptyRoomDungeon}
	s, _ := newSession(t, f, "cell", nil)
	require.True(t, s.Snapshot().Player.BonusActive)

	s.Tick(100 * time.Millisecond)
	assert.Equal(t, fixedNow.Add(24*time.Hour), s.Profile().BonusCooldownEnd)
}

func TestSession_SaveWritesProfile(t *testing.T) {
	f := defaultFixture()
	f.dungeons = map[string]string{"cell.yaml": emptyRoomDungeon}
	prof := profile.New()
	s, _ := newSession(t, f, "cell", prof)
	s.Tick(100 * time.Millisecond)

	repo := profile.NewMemoryRepository()
	require.NoError(t, s.Save(context.Background(), repo))
	got, err := repo.Load(context.Background(), prof.ID)
	require.NoError(t, err)
	assert.Equal(t, 110, got.Experience)
}

func TestSession_ProfileIsACopy(t *testing.T) {
	s, _ := newSession(t, defaultFixture(), "crypt", nil)
	p := s.Profile()
	p.Points = 99
	assert.Zero(t, s.Profile().Points)
}

func replaceTemplate(layout, from, to string) string {
	return strings.Replace(layout, "template: "+from, "template: "+to, 1)
}
