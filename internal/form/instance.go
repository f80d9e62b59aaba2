package form

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"graphql-forms/internal/collection"
	"graphql-forms/internal/customize"
	"graphql-forms/internal/introspection"
	"graphql-forms/internal/selection"
)

// Instance is one live form: an entity type, a mode, the current field
// values, pending collection edits, and per-field validation errors. An
// instance implements customize.FieldMutator so change handlers and entity
// callbacks can mutate sibling fields.
type Instance struct {
	id         string
	entityType string
	mode       customize.Mode
	schema     *introspection.Schema
	objectType *introspection.ObjectType
	plan       *selection.Plan
	resolver   *customize.Resolver

	mu          sync.Mutex
	data        customize.FormData
	collections map[string]*collection.ChangeSet
	fieldErrors map[string]string
}

// NewInstance builds a form instance for an entity type and mode, seeding it
// with initial data (the fetched entity for edit/view, usually empty for
// create).
func (e *Engine) NewInstance(entityType string, mode customize.Mode, initial customize.FormData) (*Instance, error) {
	snapshot, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	obj := snapshot.Schema.Type(entityType)
	if obj == nil {
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}
	plan, err := snapshot.Compiler.Plan(entityType)
	if err != nil {
		return nil, err
	}

	fields := formFields(obj, mode)
	cfg, _ := e.customizations.Lookup(entityType, mode)

	data := make(customize.FormData, len(initial))
	for key, value := range initial {
		data[key] = value
	}

	return &Instance{
		id:          uuid.NewString(),
		entityType:  entityType,
		mode:        mode,
		schema:      snapshot.Schema,
		objectType:  obj,
		plan:        plan,
		resolver:    customize.NewResolver(cfg, fields),
		data:        data,
		collections: make(map[string]*collection.ChangeSet),
		fieldErrors: make(map[string]string),
	}, nil
}

// formFields lists the editable field names for a mode: list-typed fields
// are collections (separate path), "id" is identity, and state-machine
// fields are system-managed and never user-editable.
func formFields(obj *introspection.ObjectType, mode customize.Mode) []string {
	fields := make([]string, 0, len(obj.Fields))
	for i := range obj.Fields {
		field := &obj.Fields[i]
		if field.Name == "id" || introspection.IsList(&field.Type) {
			continue
		}
		if field.IsStateMachine() && mode == customize.ModeCreate {
			continue
		}
		fields = append(fields, field.Name)
	}
	return fields
}

// ID returns the instance identity used by the submission guard.
func (inst *Instance) ID() string { return inst.id }

// EntityType returns the entity type this form edits.
func (inst *Instance) EntityType() string { return inst.entityType }

// Mode returns the form mode.
func (inst *Instance) Mode() customize.Mode { return inst.mode }

// EntityID returns the current entity id, empty for unsaved entities.
func (inst *Instance) EntityID() string {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	id, _ := inst.data["id"].(string)
	return id
}

// Resolver exposes the customization resolver for rendering decisions.
func (inst *Instance) Resolver() *customize.Resolver { return inst.resolver }

// Plan exposes the selection plan for the instance's entity type.
func (inst *Instance) Plan() *selection.Plan { return inst.plan }

// Fields returns the instance's field names in resolved display order.
func (inst *Instance) Fields() []string {
	return inst.resolver.OrderedFields(formFields(inst.objectType, inst.mode))
}

// Data returns a copy of the current form data.
func (inst *Instance) Data() customize.FormData {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	out := make(customize.FormData, len(inst.data))
	for key, value := range inst.data {
		out[key] = value
	}
	return out
}

// FieldValue returns the current value of one field.
func (inst *Instance) FieldValue(field string) interface{} {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.data[field]
}

// SetFieldValue stores a field value directly, bypassing change handlers.
// Part of customize.FieldMutator.
func (inst *Instance) SetFieldValue(field string, value interface{}) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.data[field] = value
}

// SetFieldVisible overrides a field's tracked visibility.
// Part of customize.FieldMutator.
func (inst *Instance) SetFieldVisible(field string, visible bool) {
	inst.resolver.SetFieldVisible(field, visible)
}

// SetFieldEnabled overrides a field's tracked enablement.
// Part of customize.FieldMutator.
func (inst *Instance) SetFieldEnabled(field string, enabled bool) {
	inst.resolver.SetFieldEnabled(field, enabled)
}

// HandleChange routes a field edit through its change handler, applies the
// resulting value, and records or clears the field's validation error.
func (inst *Instance) HandleChange(field string, value interface{}) string {
	result := inst.resolver.HandleChange(field, value, inst.Data(), inst)

	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.data[field] = result.Value
	if result.Err != "" {
		inst.fieldErrors[field] = result.Err
	} else {
		delete(inst.fieldErrors, field)
	}
	return result.Err
}

// FieldError returns the current validation message for a field, if any.
func (inst *Instance) FieldError(field string) string {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.fieldErrors[field]
}

// Collection returns the change set for a collection field, creating it on
// first use.
func (inst *Instance) Collection(field string) *collection.ChangeSet {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	cs, ok := inst.collections[field]
	if !ok {
		cs = collection.NewChangeSet()
		inst.collections[field] = cs
	}
	return cs
}

// DeleteCollectionItem runs the collection's delete hook (when registered)
// before recording the deletion; a hook error aborts it.
func (inst *Instance) DeleteCollectionItem(field, id string, original map[string]interface{}) error {
	if hook := inst.resolver.CollectionDeleteHook(field); hook != nil {
		if err := hook(original, inst.Data()); err != nil {
			return err
		}
	}
	inst.Collection(field).Delete(id, original)
	return nil
}
