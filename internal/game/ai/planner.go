package ai

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/dungeon/internal/game/npc"
)

// RootTask is the task every plan starts from.
const RootTask = "behave"

// maxDepth bounds decomposition steps to guard against recursive domains.
const maxDepth = 32

// ScriptCaller is the interface required by the Planner to evaluate Lua preconditions.
type ScriptCaller interface {
	// CallHook calls a named Lua function in the given scope's VM.
	// Returns (LNil, nil) if the function is not defined.
	CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error)
}

// Planner evaluates an HTN domain for a single enemy and produces an ordered
// intent plan for the current tick.
//
// Invariant: domain must not be nil. caller may be nil, in which case only
// built-in preconditions can pass.
type Planner struct {
	domain *Domain
	caller ScriptCaller
	scope  string
}

// NewPlanner constructs a Planner.
//
// Precondition: domain must not be nil.
func NewPlanner(domain *Domain, caller ScriptCaller, scope string) *Planner {
	if domain == nil {
		panic("ai.NewPlanner: domain must not be nil")
	}
	return &Planner{domain: domain, caller: caller, scope: scope}
}

// Domain returns the planner's domain.
func (p *Planner) Domain() *Domain { return p.domain }

// Plan evaluates the HTN domain against state and returns an ordered plan.
//
// Precondition: state and state.Enemy must not be nil.
// Postcondition: returns non-nil slice (may be empty); never returns error for Lua failures
// (they are treated as precondition-false).
func (p *Planner) Plan(state *WorldState) ([]npc.Intent, error) {
	if state == nil || state.Enemy == nil {
		return nil, fmt.Errorf("ai.Planner.Plan: state and state.Enemy must not be nil")
	}

	taskQueue := []string{RootTask}
	result := []npc.Intent{}
	steps := 0

	for len(taskQueue) > 0 && steps < maxDepth {
		steps++
		current := taskQueue[0]
		taskQueue = taskQueue[1:]

		if op, ok := p.domain.OperatorByID(current); ok {
			in, _ := op.Intent()
			result = append(result, in)
			continue
		}

		method := p.findApplicableMethod(current, state)
		if method == nil {
			continue
		}

		// Prepend subtasks, copying so the domain's slice is never aliased.
		next := make([]string, 0, len(method.Subtasks)+len(taskQueue))
		next = append(next, method.Subtasks...)
		taskQueue = append(next, taskQueue...)
	}
	return result, nil
}

// findApplicableMethod returns the first Method for taskID whose precondition passes,
// or nil if none applies.
//
// Methods are tried in declaration order. An empty Precondition always passes.
func (p *Planner) findApplicableMethod(taskID string, state *WorldState) *Method {
	for _, m := range p.domain.MethodsForTask(taskID) {
		if m.Precondition == "" || p.check(m.Precondition, state) {
			return m
		}
	}
	return nil
}

func (p *Planner) check(cond string, state *WorldState) bool {
	negate := strings.HasPrefix(cond, "!")
	name := strings.TrimPrefix(cond, "!")

	value, known := state.Condition(name)
	if !known {
		value = p.callScript(name, state)
	}
	return value != negate
}

func (p *Planner) callScript(hook string, state *WorldState) bool {
	if p.caller == nil {
		return false
	}
	val, err := p.caller.CallHook(p.scope, hook, lua.LString(state.Enemy.UID), lua.LNumber(state.DistanceToPlayer()))
	if err != nil {
		return false
	}
	return val == lua.LTrue
}
