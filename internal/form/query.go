package form

import (
	"context"
	"encoding/json"
	"fmt"

	"graphql-forms/internal/gqlclient"
	"graphql-forms/internal/statemachine"
)

// Row is one table row: the raw entity plus display values extracted per
// column, dates formatted and relations reduced to their display field.
type Row struct {
	Entity map[string]interface{}
	Cells  map[string]interface{}
}

// Table is a compiled list query result ready for rendering.
type Table struct {
	TypeName string
	Columns  []string
	Rows     []Row
}

// FetchEntity loads one entity by id using the compiled selection set for
// its type.
func (e *Engine) FetchEntity(ctx context.Context, entityType, id string) (map[string]interface{}, error) {
	snapshot, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	plan, err := snapshot.Compiler.Plan(entityType)
	if err != nil {
		return nil, err
	}

	field := e.namer.QueryField(entityType)
	doc := fmt.Sprintf("query ($id: ID!) { %s(id: $id) { %s } }", field, plan.SelectionSet())
	data, err := e.executor.Execute(ctx, gqlclient.Request{
		Query:     doc,
		Variables: map[string]interface{}{"id": id},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %s %s: %w", entityType, id, err)
	}
	entity := decodeEntity(data, field)
	if entity == nil {
		return nil, fmt.Errorf("%s %s not found", entityType, id)
	}
	return entity, nil
}

// FetchTable runs the pluralized list query for an entity type and extracts
// display cells for every column.
func (e *Engine) FetchTable(ctx context.Context, entityType string) (*Table, error) {
	snapshot, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	plan, err := snapshot.Compiler.Plan(entityType)
	if err != nil {
		return nil, err
	}

	field := e.namer.ListQueryField(entityType)
	doc := fmt.Sprintf("query { %s { %s } }", field, plan.SelectionSet())
	data, err := e.executor.Execute(ctx, gqlclient.Request{Query: doc})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", entityType, err)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding %s list: %w", entityType, err)
	}
	var entities []map[string]interface{}
	if err := json.Unmarshal(payload[field], &entities); err != nil {
		return nil, fmt.Errorf("decoding %s list: %w", entityType, err)
	}

	table := &Table{TypeName: entityType, Columns: plan.Columns}
	for _, entity := range entities {
		row := Row{Entity: entity, Cells: make(map[string]interface{}, len(plan.Columns))}
		for _, column := range plan.Columns {
			row.Cells[column] = plan.Extract(column, entity)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// Delete runs the delete mutation for an entity and invalidates its cache
// entry.
func (e *Engine) Delete(ctx context.Context, entityType, id string) error {
	mutation := e.namer.DeleteMutation(entityType)
	doc := fmt.Sprintf("mutation ($id: ID!) { %s(id: $id) { id } }", mutation)
	_, err := e.executor.Execute(ctx, gqlclient.Request{
		Query:     doc,
		Variables: map[string]interface{}{"id": id},
	})
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", entityType, id, err)
	}
	if e.invalidate != nil {
		e.invalidate(ctx, entityType, id)
	}
	return nil
}

// AvailableActions lists the registered state-machine actions reachable from
// the instance's current state, in name order.
func (e *Engine) AvailableActions(inst *Instance) []statemachine.NamedAction {
	state, _ := inst.FieldValue("state").(string)
	return e.actions.AvailableActions(inst.EntityType(), state)
}
