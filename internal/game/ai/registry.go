package ai

import (
	"errors"
	"fmt"
)

// ErrDuplicateDomain is returned when a domain ID is registered twice.
var ErrDuplicateDomain = errors.New("ai domain already registered")

// Registry maps domain IDs to planners for one session. It is filled before the
// first tick and only read afterwards, so it carries no lock.
type Registry struct {
	planners map[string]*Planner
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{planners: make(map[string]*Planner)}
}

// Register adds a planner for domain whose Lua preconditions run in scope.
//
// Precondition: domain must not be nil; caller may be nil.
func (r *Registry) Register(domain *Domain, caller ScriptCaller, scope string) error {
	if _, ok := r.planners[domain.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateDomain, domain.ID)
	}
	r.planners[domain.ID] = NewPlanner(domain, caller, scope)
	return nil
}

// RegisterAll registers every domain, stopping at the first failure.
func (r *Registry) RegisterAll(domains []*Domain, caller ScriptCaller, scope string) error {
	for _, d := range domains {
		if err := r.Register(d, caller, scope); err != nil {
			return err
		}
	}
	return nil
}

// PlannerFor returns the planner for domainID.
func (r *Registry) PlannerFor(domainID string) (*Planner, bool) {
	p, ok := r.planners[domainID]
	return p, ok
}

// Len returns the number of registered domains.
func (r *Registry) Len() int { return len(r.planners) }
