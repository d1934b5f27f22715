package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/game/dice"
)

// GlobalScope is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no scope VM is found.
const GlobalScope = "__global__"

// EnemyInfo is a snapshot of an enemy passed to Lua callbacks.
type EnemyInfo struct {
	UID        string
	Name       string
	TemplateID string
	Kind       string
	RoomID     string
	HP         int
	MaxHP      int
	Level      int
	X, Y       float64
	Chasing    bool
	Boss       bool
}

// PlayerInfo is a snapshot of the player passed to Lua callbacks.
type PlayerInfo struct {
	UID        string
	HP         int
	MaxHP      int
	Level      int
	Experience int
	X, Y       float64
	RoomID     string
	Dead       bool
}

// vm is one sandboxed state with its per-call instruction budget.
// LStates are single-threaded, so every use holds mu.
type vm struct {
	mu    sync.Mutex
	L     *lua.LState
	limit int
}

// Manager owns one sandboxed LState per scope (usually a dungeon ID) and
// exposes hook dispatch.
//
// Manager is safe for concurrent use. Calls into the same scope are serialized;
// different scopes run concurrently.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	roller *dice.Roller
	logger *zap.Logger

	// Injected after construction. nil = no-op in engine.* modules.
	GetEnemy        func(uid string) *EnemyInfo
	EnemiesInRoom   func(roomID string) []*EnemyInfo
	GetPlayer       func() *PlayerInfo
	OpenDoors       func(roomID string) error
	Broadcast       func(msg string)
	GrantExperience func(xp int) int
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no VMs.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil {
		panic("scripting.NewManager: roller must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		roller: roller,
		logger: logger,
	}
}

// LoadScope creates a sandboxed VM for scope, registers all engine.* modules,
// then executes every *.lua file in scriptDir in lexicographic order. Loading a
// scope again replaces its VM.
//
// Precondition: scope must be non-empty; scriptDir must be a readable directory.
// Postcondition: Scope VM is registered; returns error on Lua load failure.
func (m *Manager) LoadScope(scope, scriptDir string, instLimit int) error {
	return m.loadInto(scope, scriptDir, instLimit)
}

// LoadGlobal creates the GlobalScope VM for shared scripts such as AI
// preconditions, reachable as a CallHook fallback from any scope.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Global VM is registered; returns error on Lua load failure.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.loadInto(GlobalScope, scriptDir, instLimit)
}

func (m *Manager) loadInto(key, scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L := NewSandboxedState()
	m.RegisterModules(L)
	v := &vm{L: L, limit: normalizeLimit(instLimit)}
	for _, path := range luaFiles {
		err := WithBudget(L, v.limit, func(L *lua.LState) error { return L.DoFile(path) })
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	old := m.vms[key]
	m.vms[key] = v
	m.mu.Unlock()
	if old != nil {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	m.logger.Debug("scripts loaded",
		zap.String("scope", key),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// HasScope reports whether a VM is loaded for scope.
func (m *Manager) HasScope(scope string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.vms[scope]
	return ok
}

// CallHook calls the named Lua global function in scope's VM. If the scope
// has no VM, or its VM does not define the hook, the GlobalScope VM is tried.
// Returns (LNil, nil) if the hook is not defined anywhere. Lua runtime errors,
// including an exhausted instruction budget, are logged at Warn level and never
// propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	local := m.vms[scope]
	global := m.vms[GlobalScope]
	m.mu.RUnlock()

	if local == nil && global == nil {
		m.logger.Debug("scripting: no VM for scope",
			zap.String("scope", scope),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}
	for _, v := range []*vm{local, global} {
		if v == nil {
			continue
		}
		if ret, found := m.call(v, scope, hook, args); found {
			return ret, nil
		}
	}
	return lua.LNil, nil
}

// call runs hook in v. found is false when v does not define hook.
func (m *Manager) call(v *vm, scope, hook string, args []lua.LValue) (ret lua.LValue, found bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fn := v.L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, false
	}
	err := WithBudget(v.L, v.limit, func(L *lua.LState) error {
		return L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...)
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("scope", scope),
			zap.String("hook", hook),
			zap.Bool("budget_exhausted", errors.Is(err, ErrBudgetExhausted)),
			zap.Error(err),
		)
		v.L.SetTop(0)
		return lua.LNil, true
	}
	ret = v.L.Get(-1)
	v.L.Pop(1)
	return ret, true
}

// Close releases every VM.
//
// Postcondition: No scope is loaded; CallHook returns LNil until scripts are reloaded.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()
	for _, v := range vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
	}
}
