package customize

import (
	"sort"
	"strings"
	"sync"
)

// Resolver computes effective per-field decisions for one form instance. It
// seeds tracked visibility/enablement state from the registered config and
// answers live queries against current form data. Dynamic predicates are
// always re-evaluated, never cached; the tracked state only backs fields
// without a predicate and fields mutated imperatively by change handlers.
type Resolver struct {
	config *Config

	mu      sync.RWMutex
	tracked map[string]*trackedState
}

type trackedState struct {
	visible bool
	enabled bool
}

// NewResolver builds a resolver for the given config (which may be nil) and
// the form's field names. Constant settings seed the tracked state;
// predicate-backed and uncustomized fields seed visible and enabled.
func NewResolver(cfg *Config, fieldNames []string) *Resolver {
	r := &Resolver{
		config:  cfg,
		tracked: make(map[string]*trackedState, len(fieldNames)),
	}
	for _, name := range fieldNames {
		state := &trackedState{visible: true, enabled: true}
		if cust, ok := r.lookup(name); ok {
			state.visible = cust.visible().Seed()
			state.enabled = cust.enabled().Seed()
		}
		r.tracked[name] = state
	}
	return r
}

// Config returns the underlying config, which may be nil.
func (r *Resolver) Config() *Config {
	return r.config
}

// lookup resolves a customization by field name, including dotted
// "section.field" paths into embedded section sub-fields. A directly
// registered dotted key wins over path traversal.
func (r *Resolver) lookup(name string) (Customization, bool) {
	if cust, ok := r.config.customization(name); ok {
		return cust, true
	}
	section, sub, found := strings.Cut(name, ".")
	if !found {
		return Customization{}, false
	}
	parent, ok := r.config.customization(section)
	if !ok || parent.Kind != KindSection || parent.Section == nil {
		return Customization{}, false
	}
	if field, ok := parent.Section.Fields[sub]; ok && field != nil {
		return FieldOf(field), true
	}
	return Customization{}, false
}

// Customization returns the registered customization for a field path.
func (r *Resolver) Customization(name string) (Customization, bool) {
	return r.lookup(name)
}

// IsFieldVisible answers a live visibility query. A dynamic predicate is
// evaluated against current form data and bypasses tracked state entirely;
// otherwise the tracked boolean is returned.
func (r *Resolver) IsFieldVisible(field string, value interface{}, data FormData) bool {
	if cust, ok := r.lookup(field); ok {
		if setting := cust.visible(); setting.IsDynamic() {
			return setting.Eval(field, value, data)
		}
	}
	return r.trackedFor(field).visible
}

// IsFieldEnabled answers a live enablement query, mirroring IsFieldVisible.
func (r *Resolver) IsFieldEnabled(field string, value interface{}, data FormData) bool {
	if cust, ok := r.lookup(field); ok {
		if setting := cust.enabled(); setting.IsDynamic() {
			return setting.Eval(field, value, data)
		}
	}
	return r.trackedFor(field).enabled
}

// SetFieldVisible imperatively overrides a field's tracked visibility. Used
// as a side-effect callback by change handlers and entity callbacks. It has
// no effect on fields governed by a dynamic predicate.
func (r *Resolver) SetFieldVisible(field string, visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stateLocked(field).visible = visible
}

// SetFieldEnabled imperatively overrides a field's tracked enablement.
func (r *Resolver) SetFieldEnabled(field string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stateLocked(field).enabled = enabled
}

func (r *Resolver) trackedFor(field string) trackedState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if state, ok := r.tracked[field]; ok {
		return *state
	}
	return trackedState{visible: true, enabled: true}
}

func (r *Resolver) stateLocked(field string) *trackedState {
	state, ok := r.tracked[field]
	if !ok {
		state = &trackedState{visible: true, enabled: true}
		r.tracked[field] = state
	}
	return state
}

// OrderedFields sorts field names for display: fields with an explicit
// numeric order rank first in ascending order, fields without one follow in
// their input order, and a field with an order always outranks one without.
func (r *Resolver) OrderedFields(fieldNames []string) []string {
	out := append([]string(nil), fieldNames...)
	orderOf := func(name string) *int {
		if cust, ok := r.lookup(name); ok {
			return cust.order()
		}
		return nil
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := orderOf(out[i]), orderOf(out[j])
		switch {
		case oi != nil && oj != nil:
			return *oi < *oj
		case oi != nil:
			return true
		default:
			return false
		}
	})
	return out
}

// StepFields filters field names down to the given step. In stepper mode a
// field without a step assignment is never rendered on any step; this is a
// deliberate exclusion, not an error. Outside stepper mode all fields
// belong to the (only) implicit step.
func (r *Resolver) StepFields(stepID string, fieldNames []string) []string {
	if !r.config.Stepper() {
		return append([]string(nil), fieldNames...)
	}
	out := make([]string, 0, len(fieldNames))
	for _, name := range fieldNames {
		cust, ok := r.lookup(name)
		if !ok {
			continue
		}
		if cust.stepID() == stepID && stepID != "" {
			out = append(out, name)
		}
	}
	return out
}

// Steps returns the configured stepper steps.
func (r *Resolver) Steps() []Step {
	if r.config == nil {
		return nil
	}
	return r.config.Steps
}

// FieldSize returns the responsive size hints for a field path, or nil.
func (r *Resolver) FieldSize(field string) *Size {
	cust, ok := r.lookup(field)
	if !ok {
		return nil
	}
	switch cust.Kind {
	case KindField:
		return cust.Field.Size
	case KindSection:
		return cust.Section.Size
	}
	return nil
}

// HandleChange routes a field value change through its custom handler when
// one is registered, else accepts the value unchanged.
func (r *Resolver) HandleChange(field string, value interface{}, data FormData, form FieldMutator) ChangeResult {
	cust, ok := r.lookup(field)
	if !ok || cust.Kind != KindField || cust.Field.OnChange == nil {
		return ChangeResult{Value: value}
	}
	return cust.Field.OnChange(value, data, form)
}
