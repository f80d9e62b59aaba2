package form

import (
	"graphql-forms/internal/collection"
	"graphql-forms/internal/customize"
	"graphql-forms/internal/introspection"
)

// buildInput transforms the instance's form data and pending collection
// edits into the mutation input payload: relation values reduced to {id}
// references (embedded objects kept inline), system-managed fields dropped,
// and per-collection {added, updated, deleted} payloads folded in.
func (inst *Instance) buildInput() (map[string]interface{}, map[string]collection.Payload) {
	data := inst.Data()
	input := make(map[string]interface{})
	changes := make(map[string]collection.Payload)

	for i := range inst.objectType.Fields {
		field := &inst.objectType.Fields[i]
		if field.Name == "id" || field.IsStateMachine() {
			continue
		}

		if introspection.IsList(&field.Type) {
			inst.mu.Lock()
			cs := inst.collections[field.Name]
			inst.mu.Unlock()
			if cs == nil || cs.Empty() {
				continue
			}
			payload := cs.Transform(inst.embeddedFieldsOf(field))
			changes[field.Name] = payload
			input[field.Name] = map[string]interface{}{
				"added":   payload.Added,
				"updated": payload.Updated,
				"deleted": payload.Deleted,
			}
			continue
		}

		value, ok := data[field.Name]
		if !ok {
			continue
		}
		relation := field.Relation()
		embedded := relation != nil && relation.Embedded
		input[field.Name] = collection.TransformValue(value, embedded)
	}

	return input, changes
}

// embeddedFieldsOf maps a collection's item-type fields to their embedded
// flag, so item transforms know which nested objects stay inline.
func (inst *Instance) embeddedFieldsOf(field *introspection.Field) map[string]bool {
	named := introspection.UnwrapNamed(&field.Type)
	if named == nil {
		return nil
	}
	itemType := inst.schema.Type(named.Name)
	if itemType == nil {
		return nil
	}
	embedded := make(map[string]bool)
	for i := range itemType.Fields {
		if rel := itemType.Fields[i].Relation(); rel != nil && rel.Embedded {
			embedded[itemType.Fields[i].Name] = true
		}
	}
	return embedded
}

// actionInput builds the input for a state-machine action mutation: the
// entity id plus the transformed non-collection fields.
func (inst *Instance) actionInput() map[string]interface{} {
	input, _ := inst.buildInput()
	for i := range inst.objectType.Fields {
		if introspection.IsList(&inst.objectType.Fields[i].Type) {
			delete(input, inst.objectType.Fields[i].Name)
		}
	}
	input["id"] = inst.EntityID()
	return input
}

var _ customize.FieldMutator = (*Instance)(nil)
