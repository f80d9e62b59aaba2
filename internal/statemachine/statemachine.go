// Package statemachine registers named entity transition actions and looks
// up the subset available from a given state. The registry is advisory
// metadata for UI affordance: the backend mutation is the authority on the
// entity's actual state, and the form engine refetches after every
// successful transition rather than trusting the declared destination.
package statemachine

import (
	"context"
	"sort"
	"sync"

	"graphql-forms/internal/customize"
)

// Action is one named transition: the mutation to invoke, the source state
// it is available from, and the destination state the backend is expected to
// move the entity to. No reachability or cycle validation is performed; this
// is a flat lookup table, not a verified state machine.
type Action struct {
	// Mutation is the GraphQL mutation field name invoked for this action.
	Mutation string
	From     string
	To       string

	OnBeforeSubmit func(ctx context.Context, data customize.FormData) (bool, error)
	OnSuccess      customize.SuccessHook
	OnError        customize.ErrorHook
}

// NamedAction pairs an action with its registered name.
type NamedAction struct {
	Name string
	Action
}

// Config is the full action map for one entity type.
type Config struct {
	Actions map[string]Action
}

// Registry stores state-machine configs per entity type. Registration is
// whole-entity last-write-wins, mirroring the customization store.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]*registered
}

type registered struct {
	order   []string
	actions map[string]Action
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{configs: make(map[string]*registered)}
}

// Default is the process-wide registry used by the package-level helpers.
var Default = NewRegistry()

// Register stores the full action map for an entity type, replacing any
// prior registration. Action iteration order is fixed at registration so
// AvailableActions is deterministic regardless of map ordering.
func (r *Registry) Register(entityType string, cfg Config) {
	reg := &registered{actions: make(map[string]Action, len(cfg.Actions))}
	for name, action := range cfg.Actions {
		reg.actions[name] = action
	}
	reg.order = sortedNames(reg.actions)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[entityType] = reg
}

// Lookup returns a single registered action by name.
func (r *Registry) Lookup(entityType, name string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.configs[entityType]
	if !ok {
		return Action{}, false
	}
	action, ok := reg.actions[name]
	return action, ok
}

// AvailableActions returns the actions whose source state matches the
// entity's current state, in name order.
func (r *Registry) AvailableActions(entityType, currentState string) []NamedAction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.configs[entityType]
	if !ok {
		return nil
	}
	out := make([]NamedAction, 0, len(reg.order))
	for _, name := range reg.order {
		action := reg.actions[name]
		if action.From == currentState {
			out = append(out, NamedAction{Name: name, Action: action})
		}
	}
	return out
}

// Register stores a config in the Default registry.
func Register(entityType string, cfg Config) {
	Default.Register(entityType, cfg)
}

// AvailableActions queries the Default registry.
func AvailableActions(entityType, currentState string) []NamedAction {
	return Default.AvailableActions(entityType, currentState)
}

func sortedNames(actions map[string]Action) []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
