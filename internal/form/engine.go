// Package form orchestrates CRUD form instances against a GraphQL backend:
// it derives form fields from the schema snapshot, resolves customization,
// tracks collection edits, and drives the submission pipeline including
// entity lifecycle callbacks and state-machine actions.
package form

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"graphql-forms/internal/customize"
	"graphql-forms/internal/gqlclient"
	"graphql-forms/internal/logging"
	"graphql-forms/internal/naming"
	"graphql-forms/internal/observability"
	"graphql-forms/internal/schemacache"
	"graphql-forms/internal/statemachine"
)

// Executor runs GraphQL operations. Satisfied by gqlclient.Client.
type Executor interface {
	Execute(ctx context.Context, req gqlclient.Request) (json.RawMessage, error)
}

// InvalidateFunc is called after a successful mutation so the caller can
// drop cached entity data and refetch. The backend is the authority on
// post-mutation state; the engine never patches caches from assumptions.
type InvalidateFunc func(ctx context.Context, entityType, id string)

// EngineConfig wires an engine's collaborators.
type EngineConfig struct {
	Executor       Executor
	Schemas        *schemacache.Manager
	Customizations *customize.Store
	Actions        *statemachine.Registry
	Namer          *naming.Namer
	Metrics        *observability.Metrics
	Logger         *logging.Logger
	Invalidate     InvalidateFunc
}

// Engine builds form instances and submits them.
type Engine struct {
	executor       Executor
	schemas        *schemacache.Manager
	customizations *customize.Store
	actions        *statemachine.Registry
	namer          *naming.Namer
	metrics        *observability.Metrics
	logger         *logging.Logger
	invalidate     InvalidateFunc

	// inflight guards against overlapping submissions of one form instance:
	// a second Submit while one is running shares the first result.
	inflight singleflight.Group
}

// NewEngine creates an engine. Executor and Schemas are required; the
// customization store and action registry default to the process-wide ones.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("form engine requires an executor")
	}
	if cfg.Schemas == nil {
		return nil, fmt.Errorf("form engine requires a schema cache")
	}
	if cfg.Customizations == nil {
		cfg.Customizations = customize.Default
	}
	if cfg.Actions == nil {
		cfg.Actions = statemachine.Default
	}
	if cfg.Namer == nil {
		cfg.Namer = naming.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = &logging.Logger{Logger: slog.Default()}
	}
	return &Engine{
		executor:       cfg.Executor,
		schemas:        cfg.Schemas,
		customizations: cfg.Customizations,
		actions:        cfg.Actions,
		namer:          cfg.Namer,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
		invalidate:     cfg.Invalidate,
	}, nil
}

func (e *Engine) snapshot() (*schemacache.Snapshot, error) {
	snapshot := e.schemas.Active()
	if snapshot == nil {
		return nil, fmt.Errorf("no schema snapshot available")
	}
	return snapshot, nil
}
