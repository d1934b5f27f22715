package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers the engine.* Lua tables into L:
// engine.log, engine.dice, engine.enemy, engine.player and engine.world.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.logModule(L))
	L.SetField(engine, "dice", m.diceModule(L))
	L.SetField(engine, "enemy", m.enemyModule(L))
	L.SetField(engine, "player", m.playerModule(L))
	L.SetField(engine, "world", m.worldModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) logModule(L *lua.LState) *lua.LTable {
	logAt := func(fn func(string, ...zap.Field)) lua.LGFunction {
		return func(L *lua.LState) int {
			fn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}
	}
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"debug": logAt(m.logger.Debug),
		"info":  logAt(m.logger.Info),
		"warn":  logAt(m.logger.Warn),
		"error": logAt(m.logger.Error),
	})
}

func (m *Manager) diceModule(L *lua.LState) *lua.LTable {
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		// between(lo, hi) rolls an inclusive integer.
		"between": func(L *lua.LState) int {
			lo, hi := L.CheckInt(1), L.CheckInt(2)
			if hi < lo {
				L.ArgError(2, "hi must be >= lo")
				return 0
			}
			L.Push(lua.LNumber(m.roller.Between(lo, hi)))
			return 1
		},
		// chance(p) is true with probability p.
		"chance": func(L *lua.LState) int {
			L.Push(lua.LBool(m.roller.Chance(float64(L.CheckNumber(1)))))
			return 1
		},
	})
}

func (m *Manager) enemyModule(L *lua.LState) *lua.LTable {
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"get": func(L *lua.LState) int {
			uid := L.CheckString(1)
			if m.GetEnemy == nil {
				L.Push(lua.LNil)
				return 1
			}
			e := m.GetEnemy(uid)
			if e == nil {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(enemyToTable(L, e))
			return 1
		},
		"in_room": func(L *lua.LState) int {
			roomID := L.CheckString(1)
			if m.EnemiesInRoom == nil {
				L.Push(lua.LNil)
				return 1
			}
			list := L.NewTable()
			for _, e := range m.EnemiesInRoom(roomID) {
				list.Append(enemyToTable(L, e))
			}
			L.Push(list)
			return 1
		},
		// count(room_id) returns the number of living enemies in the room.
		"count": func(L *lua.LState) int {
			roomID := L.CheckString(1)
			n := 0
			if m.EnemiesInRoom != nil {
				for _, e := range m.EnemiesInRoom(roomID) {
					if e.HP > 0 {
						n++
					}
				}
			}
			L.Push(lua.LNumber(n))
			return 1
		},
	})
}

func (m *Manager) playerModule(L *lua.LState) *lua.LTable {
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"get": func(L *lua.LState) int {
			if m.GetPlayer == nil {
				L.Push(lua.LNil)
				return 1
			}
			p := m.GetPlayer()
			if p == nil {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(playerToTable(L, p))
			return 1
		},
		// hp_percent() returns the player's hitpoints as a percentage of max.
		"hp_percent": func(L *lua.LState) int {
			if m.GetPlayer == nil {
				L.Push(lua.LNumber(0))
				return 1
			}
			p := m.GetPlayer()
			if p == nil || p.MaxHP <= 0 {
				L.Push(lua.LNumber(0))
				return 1
			}
			L.Push(lua.LNumber(float64(p.HP) * 100 / float64(p.MaxHP)))
			return 1
		},
	})
}

func (m *Manager) worldModule(L *lua.LState) *lua.LTable {
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"open_doors": func(L *lua.LState) int {
			roomID := L.CheckString(1)
			if m.OpenDoors == nil {
				L.Push(lua.LFalse)
				return 1
			}
			if err := m.OpenDoors(roomID); err != nil {
				m.logger.Warn("scripting: open_doors failed",
					zap.String("room", roomID),
					zap.Error(err),
				)
				L.Push(lua.LFalse)
				return 1
			}
			L.Push(lua.LTrue)
			return 1
		},
		"broadcast": func(L *lua.LState) int {
			msg := L.CheckString(1)
			if m.Broadcast != nil {
				m.Broadcast(msg)
			}
			return 0
		},
		// grant_experience(xp) returns the experience actually awarded.
		"grant_experience": func(L *lua.LState) int {
			xp := L.CheckInt(1)
			if m.GrantExperience == nil || xp <= 0 {
				L.Push(lua.LNumber(0))
				return 1
			}
			L.Push(lua.LNumber(m.GrantExperience(xp)))
			return 1
		},
	})
}

func enemyToTable(L *lua.LState, e *EnemyInfo) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "uid", lua.LString(e.UID))
	L.SetField(t, "name", lua.LString(e.Name))
	L.SetField(t, "template", lua.LString(e.TemplateID))
	L.SetField(t, "kind", lua.LString(e.Kind))
	L.SetField(t, "room", lua.LString(e.RoomID))
	L.SetField(t, "hp", lua.LNumber(e.HP))
	L.SetField(t, "max_hp", lua.LNumber(e.MaxHP))
	L.SetField(t, "level", lua.LNumber(e.Level))
	L.SetField(t, "x", lua.LNumber(e.X))
	L.SetField(t, "y", lua.LNumber(e.Y))
	L.SetField(t, "chasing", lua.LBool(e.Chasing))
	L.SetField(t, "boss", lua.LBool(e.Boss))
	return t
}

func playerToTable(L *lua.LState, p *PlayerInfo) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "uid", lua.LString(p.UID))
	L.SetField(t, "hp", lua.LNumber(p.HP))
	L.SetField(t, "max_hp", lua.LNumber(p.MaxHP))
	L.SetField(t, "level", lua.LNumber(p.Level))
	L.SetField(t, "experience", lua.LNumber(p.Experience))
	L.SetField(t, "x", lua.LNumber(p.X))
	L.SetField(t, "y", lua.LNumber(p.Y))
	L.SetField(t, "room", lua.LString(p.RoomID))
	L.SetField(t, "dead", lua.LBool(p.Dead))
	return t
}
