// Package ai plans enemy behaviour with a hierarchical task network.
//
// A domain names tasks, the methods that break each task into subtasks, and the
// operators that end a plan. The planner walks the root task depth first, taking
// the first method whose precondition holds, and the final operator becomes the
// enemy's intent for the tick.
package ai

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dungeon/internal/game/npc"
)

// ErrInvalidDomain is wrapped by every Validate failure.
var ErrInvalidDomain = errors.New("invalid ai domain")

// Task is an abstract goal decomposed by methods.
type Task struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
}

// Method is one way of achieving a task.
//
// Precondition names a built-in condition or a Lua hook; empty always holds and a
// leading "!" negates it.
type Method struct {
	TaskID       string   `yaml:"task"`
	ID           string   `yaml:"id"`
	Precondition string   `yaml:"precondition"`
	Subtasks     []string `yaml:"subtasks"`
}

// Operator ends a plan with an enemy intent.
type Operator struct {
	ID     string `yaml:"id"`
	Action string `yaml:"action"`
}

// Intent returns the enemy intent the operator maps to.
func (o *Operator) Intent() (npc.Intent, bool) {
	in, ok := operatorIntents[o.Action]
	return in, ok
}

var operatorIntents = func() map[string]npc.Intent {
	m := make(map[string]npc.Intent)
	for _, in := range []npc.Intent{
		npc.IntentHold, npc.IntentChase, npc.IntentApproach,
		npc.IntentRetreat, npc.IntentReturnHome, npc.IntentCast,
	} {
		m[string(in)] = in
	}
	return m
}()

// Domain is one enemy behaviour tree as read from YAML.
//
// Invariant: after Validate, IDs are unique per kind and every reference resolves.
type Domain struct {
	ID          string      `yaml:"id"`
	Description string      `yaml:"description"`
	Tasks       []*Task     `yaml:"tasks"`
	Methods     []*Method   `yaml:"methods"`
	Operators   []*Operator `yaml:"operators"`
}

// Validate checks the domain is complete and self-consistent.
//
// Postcondition: A nil return means RootTask exists, every method targets a known
// task with at least one subtask, every subtask names a task or operator, and every
// operator action is a known intent. Errors wrap ErrInvalidDomain.
func (d *Domain) Validate() error {
	if err := d.validate(); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidDomain, d.ID, err)
	}
	return nil
}

func (d *Domain) validate() error {
	if d.ID == "" {
		return errors.New("id is required")
	}
	tasks, err := indexIDs("task", d.Tasks, func(t *Task) string { return t.ID })
	if err != nil {
		return err
	}
	if _, ok := tasks[RootTask]; !ok {
		return fmt.Errorf("root task %q is missing", RootTask)
	}
	ops, err := indexIDs("operator", d.Operators, func(o *Operator) string { return o.ID })
	if err != nil {
		return err
	}
	for _, o := range d.Operators {
		if _, ok := o.Intent(); !ok {
			return fmt.Errorf("operator %q: unknown action %q", o.ID, o.Action)
		}
	}
	if _, err := indexIDs("method", d.Methods, func(m *Method) string { return m.ID }); err != nil {
		return err
	}
	for _, m := range d.Methods {
		if _, ok := tasks[m.TaskID]; !ok {
			return fmt.Errorf("method %q: unknown task %q", m.ID, m.TaskID)
		}
		if len(m.Subtasks) == 0 {
			return fmt.Errorf("method %q has no subtasks", m.ID)
		}
		for _, sub := range m.Subtasks {
			_, isTask := tasks[sub]
			_, isOp := ops[sub]
			if !isTask && !isOp {
				return fmt.Errorf("method %q: subtask %q is neither a task nor an operator", m.ID, sub)
			}
		}
	}
	return nil
}

// indexIDs returns the set of IDs in items, rejecting empty and repeated ones.
func indexIDs[T any](kind string, items []T, id func(T) string) (map[string]struct{}, error) {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		k := id(it)
		if k == "" {
			return nil, fmt.Errorf("%s with empty id", kind)
		}
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("duplicate %s %q", kind, k)
		}
		seen[k] = struct{}{}
	}
	return seen, nil
}

// OperatorByID looks up an operator.
func (d *Domain) OperatorByID(id string) (*Operator, bool) {
	for _, op := range d.Operators {
		if op.ID == id {
			return op, true
		}
	}
	return nil, false
}

// MethodsForTask returns the methods for taskID in file order.
func (d *Domain) MethodsForTask(taskID string) []*Method {
	var out []*Method
	for _, m := range d.Methods {
		if m.TaskID == taskID {
			out = append(out, m)
		}
	}
	return out
}

// LoadDomains parses every .yaml file in dir. Each file holds one domain under a
// top-level "domain" key.
//
// Postcondition: Domains are returned sorted by ID; an empty dir yields none.
func LoadDomains(dir string) ([]*Domain, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("reading domains: %w", err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("listing domains in %s: %w", dir, err)
	}
	domains := make([]*Domain, 0, len(paths))
	for _, p := range paths {
		d, err := decodeDomain(p)
		if err != nil {
			return nil, err
		}
		domains = append(domains, d)
	}
	sort.Slice(domains, func(i, j int) bool { return domains[i].ID < domains[j].ID })
	return domains, nil
}

func decodeDomain(path string) (*Domain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading domain: %w", err)
	}
	var file struct {
		Domain *Domain `yaml:"domain"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if file.Domain == nil {
		return nil, fmt.Errorf("%s: missing top-level domain key", filepath.Base(path))
	}
	if err := file.Domain.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return file.Domain, nil
}
