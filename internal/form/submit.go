package form

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"graphql-forms/internal/customize"
	"graphql-forms/internal/gqlclient"
	"graphql-forms/internal/statemachine"
)

// Status classifies a submission outcome. An explicit cancellation from
// BeforeSubmit and a hook failure are distinct outcomes even though both
// abort the submission.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusCanceled  Status = "canceled"
	StatusHookError Status = "hook_error"
	StatusFailed    Status = "failed"
)

// Result is the outcome of one submission.
type Result struct {
	Status Status
	// Data is the mutation result entity on success.
	Data map[string]interface{}
	// Err is set for hook_error and failed outcomes.
	Err error
	// Success carries the OnSuccess hook's instructions, if any.
	Success *customize.SuccessAction
}

// Submit runs the submission pipeline for a form instance: BeforeSubmit,
// the create or update mutation, cache invalidation, then OnSuccess or
// OnError, strictly in that order. Overlapping submissions of the same
// instance are collapsed: the second caller shares the first result.
func (e *Engine) Submit(ctx context.Context, inst *Instance) (*Result, error) {
	value, err, _ := e.inflight.Do(inst.ID(), func() (interface{}, error) {
		return e.submit(ctx, inst), nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*Result), nil
}

func (e *Engine) submit(ctx context.Context, inst *Instance) *Result {
	tracer := otel.Tracer("graphql-forms/form")
	ctx, span := tracer.Start(ctx, "form.submit")
	span.SetAttributes(
		attribute.String("form.entity", inst.EntityType()),
		attribute.String("form.mode", string(inst.Mode())),
	)
	defer span.End()

	started := time.Now()
	result := e.runSubmit(ctx, inst)
	e.metrics.ObserveSubmission(inst.EntityType(), string(result.Status), time.Since(started).Seconds())
	span.SetAttributes(attribute.String("form.outcome", string(result.Status)))
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, string(result.Status))
	}
	return result
}

func (e *Engine) runSubmit(ctx context.Context, inst *Instance) *Result {
	cfg := inst.resolver.Config()
	input, changes := inst.buildInput()

	if cfg != nil && cfg.BeforeSubmit != nil {
		ok, err := cfg.BeforeSubmit(ctx, inst.Data(), changes, input, inst)
		if err != nil {
			e.logger.Error("beforeSubmit hook failed",
				slog.String("entity", inst.EntityType()),
				slog.String("error", err.Error()),
			)
			return &Result{Status: StatusHookError, Err: err}
		}
		if !ok {
			return &Result{Status: StatusCanceled}
		}
	}

	var mutation, inputType string
	switch inst.Mode() {
	case customize.ModeCreate:
		mutation = e.namer.CreateMutation(inst.EntityType())
		inputType = e.namer.CreateInputType(inst.EntityType())
	case customize.ModeEdit:
		mutation = e.namer.UpdateMutation(inst.EntityType())
		inputType = e.namer.UpdateInputType(inst.EntityType())
		input["id"] = inst.EntityID()
	default:
		return &Result{Status: StatusFailed, Err: fmt.Errorf("mode %q cannot submit", inst.Mode())}
	}

	doc := fmt.Sprintf("mutation ($input: %s!) { %s(input: $input) { %s } }",
		inputType, mutation, inst.plan.SelectionSet())

	data, err := e.executor.Execute(ctx, gqlclient.Request{
		Query:     doc,
		Variables: map[string]interface{}{"input": input},
	})
	if err != nil {
		e.routeError(err, inst, cfg)
		return &Result{Status: StatusFailed, Err: err}
	}

	entity := decodeEntity(data, mutation)
	if id, ok := entity["id"].(string); ok && id != "" {
		inst.SetFieldValue("id", id)
	}

	if e.invalidate != nil {
		e.invalidate(ctx, inst.EntityType(), inst.EntityID())
	}

	result := &Result{Status: StatusSucceeded, Data: entity}
	if cfg != nil && cfg.OnSuccess != nil {
		result.Success = cfg.OnSuccess(entity, inst)
	}
	return result
}

// SubmitAction executes a named state-machine transition for the instance's
// entity. The action must be registered and available from the entity's
// current state.
func (e *Engine) SubmitAction(ctx context.Context, inst *Instance, actionName string) (*Result, error) {
	action, ok := e.actions.Lookup(inst.EntityType(), actionName)
	if !ok {
		return nil, fmt.Errorf("unknown action %q for %s", actionName, inst.EntityType())
	}
	currentState, _ := inst.FieldValue("state").(string)
	if action.From != currentState {
		return nil, fmt.Errorf("action %q is not available from state %q", actionName, currentState)
	}

	value, err, _ := e.inflight.Do(inst.ID(), func() (interface{}, error) {
		return e.submitAction(ctx, inst, actionName, action), nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*Result), nil
}

func (e *Engine) submitAction(ctx context.Context, inst *Instance, actionName string, action statemachine.Action) *Result {
	tracer := otel.Tracer("graphql-forms/form")
	ctx, span := tracer.Start(ctx, "form.action")
	span.SetAttributes(
		attribute.String("form.entity", inst.EntityType()),
		attribute.String("form.action", actionName),
	)
	defer span.End()

	started := time.Now()
	result := e.runAction(ctx, inst, action)
	e.metrics.ObserveSubmission(inst.EntityType(), string(result.Status), time.Since(started).Seconds())
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, string(result.Status))
	}
	return result
}

func (e *Engine) runAction(ctx context.Context, inst *Instance, action statemachine.Action) *Result {
	if action.OnBeforeSubmit != nil {
		ok, err := action.OnBeforeSubmit(ctx, inst.Data())
		if err != nil {
			e.logger.Error("action beforeSubmit hook failed",
				slog.String("entity", inst.EntityType()),
				slog.String("mutation", action.Mutation),
				slog.String("error", err.Error()),
			)
			return &Result{Status: StatusHookError, Err: err}
		}
		if !ok {
			return &Result{Status: StatusCanceled}
		}
	}

	doc := fmt.Sprintf("mutation ($input: %s!) { %s(input: $input) { id state } }",
		e.namer.ActionInputType(action.Mutation), action.Mutation)

	data, err := e.executor.Execute(ctx, gqlclient.Request{
		Query:     doc,
		Variables: map[string]interface{}{"input": inst.actionInput()},
	})
	if err != nil {
		if action.OnError != nil {
			action.OnError(err, inst.Data(), inst)
		} else {
			e.logger.Error("action mutation failed",
				slog.String("entity", inst.EntityType()),
				slog.String("mutation", action.Mutation),
				slog.String("error", err.Error()),
			)
		}
		return &Result{Status: StatusFailed, Err: err}
	}

	entity := decodeEntity(data, action.Mutation)
	if state, ok := entity["state"].(string); ok {
		inst.SetFieldValue("state", state)
	}

	// The declared destination state is advisory; invalidation forces a
	// refetch so the server-actual state wins.
	if e.invalidate != nil {
		e.invalidate(ctx, inst.EntityType(), inst.EntityID())
	}

	result := &Result{Status: StatusSucceeded, Data: entity}
	if action.OnSuccess != nil {
		result.Success = action.OnSuccess(entity, inst)
	}
	return result
}

func (e *Engine) routeError(err error, inst *Instance, cfg *customize.Config) {
	if cfg != nil && cfg.OnError != nil {
		cfg.OnError(err, inst.Data(), inst)
		return
	}
	e.logger.Error("form submission failed",
		slog.String("entity", inst.EntityType()),
		slog.String("mode", string(inst.Mode())),
		slog.String("error", err.Error()),
	)
}

func decodeEntity(data json.RawMessage, field string) map[string]interface{} {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil
	}
	var entity map[string]interface{}
	if err := json.Unmarshal(payload[field], &entity); err != nil {
		return nil
	}
	return entity
}
