// Package scripting runs dungeon Lua scripts (room hooks, enemy death hooks and
// AI preconditions) in sandboxed GopherLua states. Game packages are reached only
// through the callbacks a Manager is given.
package scripting

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit bounds one script call when the dungeon sets no limit.
const DefaultInstructionLimit = 100_000

// ErrBudgetExhausted is wrapped when a call runs out of instructions.
var ErrBudgetExhausted = errors.New("lua instruction budget exhausted")

// unsafeGlobals are cleared from every sandboxed state.
var unsafeGlobals = []string{"dofile", "loadfile", "load", "collectgarbage", "require"}

// budget cancels itself after a fixed number of Done calls. GopherLua polls
// Done once per opcode while a context is set, so this counts instructions.
type budget struct {
	context.Context
	cancel context.CancelFunc
	left   atomic.Int64
	spent  atomic.Bool
}

func newBudget(limit int) *budget {
	ctx, cancel := context.WithCancel(context.Background())
	b := &budget{Context: ctx, cancel: cancel}
	b.left.Store(int64(limit))
	return b
}

func (b *budget) Done() <-chan struct{} {
	if b.left.Add(-1) <= 0 && !b.spent.Swap(true) {
		b.cancel()
	}
	return b.Context.Done()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultInstructionLimit
	}
	return limit
}

// NewSandboxedState returns a Lua state with only the base, table, string and
// math libraries and without the globals that load code or touch the host.
//
// Postcondition: The caller owns the state and must Close it.
func NewSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		open(L)
	}
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// WithBudget runs fn with a fresh allowance of limit opcodes on L; 0 means
// DefaultInstructionLimit. Running out yields an error wrapping
// ErrBudgetExhausted.
//
// Precondition: L is not in use by another goroutine.
// Postcondition: L carries no context after return.
func WithBudget(L *lua.LState, limit int, fn func(L *lua.LState) error) error {
	limit = normalizeLimit(limit)
	b := newBudget(limit)
	L.SetContext(b)
	defer func() {
		L.RemoveContext()
		b.cancel()
	}()
	err := fn(L)
	if err != nil && b.spent.Load() {
		return fmt.Errorf("%w after %d instructions: %w", ErrBudgetExhausted, limit, err)
	}
	return err
}
