// Package schemacache maintains the current schema snapshot and refreshes it
// from the backend on a debounced schedule. A snapshot bundles the parsed
// schema with a selection-plan compiler; the compiler (and its plan cache)
// is replaced only when the schema fingerprint actually changes.
package schemacache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"graphql-forms/internal/introspection"
	"graphql-forms/internal/logging"
	"graphql-forms/internal/observability"
	"graphql-forms/internal/selection"
)

// Snapshot is an immutable view of the schema state at one refresh.
type Snapshot struct {
	Schema      *introspection.Schema
	Compiler    *selection.Compiler
	FetchedAt   time.Time
	Fingerprint string
}

// Config controls snapshot refresh behavior.
type Config struct {
	Executor introspection.Executor
	// MinInterval debounces refresh requests; MaxInterval forces a refetch
	// past that age even without an explicit request.
	MinInterval      time.Duration
	MaxInterval      time.Duration
	PlanCacheSize    int
	SelectionOptions selection.Options
	Logger           *logging.Logger
	Metrics          *observability.Metrics
}

// Manager holds the active snapshot and serializes refreshes.
type Manager struct {
	executor      introspection.Executor
	minInterval   time.Duration
	maxInterval   time.Duration
	planCacheSize int
	selOptions    selection.Options
	logger        *logging.Logger
	metrics       *observability.Metrics

	mu          sync.Mutex
	lastAttempt time.Time
	active      atomic.Value
}

// NewManager fetches the initial snapshot and returns a manager.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("schema cache requires an executor")
	}
	if cfg.Logger == nil {
		cfg.Logger = &logging.Logger{Logger: slog.Default()}
	}
	minInterval := cfg.MinInterval
	if minInterval <= 0 {
		minInterval = 30 * time.Second
	}
	maxInterval := cfg.MaxInterval
	if maxInterval < minInterval {
		maxInterval = 10 * minInterval
	}

	selOptions := cfg.SelectionOptions
	if selOptions.Metrics == nil {
		selOptions.Metrics = cfg.Metrics
	}

	m := &Manager{
		executor:      cfg.Executor,
		minInterval:   minInterval,
		maxInterval:   maxInterval,
		planCacheSize: cfg.PlanCacheSize,
		selOptions:    selOptions,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
	}
	if _, err := m.refresh(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Active returns the current snapshot.
func (m *Manager) Active() *Snapshot {
	snapshot, _ := m.active.Load().(*Snapshot)
	return snapshot
}

// Refresh refetches the schema, subject to debouncing: requests inside
// MinInterval of the last attempt return the active snapshot untouched
// unless force is set. Snapshots older than MaxInterval always refetch.
func (m *Manager) Refresh(ctx context.Context, force bool) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := m.Active()
	age := time.Since(m.lastAttempt)
	if !force && active != nil && age < m.minInterval && time.Since(active.FetchedAt) < m.maxInterval {
		return active, nil
	}
	return m.refreshLocked(ctx)
}

func (m *Manager) refresh(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx)
}

func (m *Manager) refreshLocked(ctx context.Context) (*Snapshot, error) {
	tracer := otel.Tracer("graphql-forms/schemacache")
	ctx, span := tracer.Start(ctx, "schema.refresh")
	defer span.End()

	m.lastAttempt = time.Now()

	schema, raw, err := introspection.Fetch(ctx, m.executor)
	if err != nil {
		m.metrics.ObserveSchemaRefresh("error")
		span.RecordError(err)
		return nil, err
	}

	digest := sha256.Sum256(raw)
	fingerprint := hex.EncodeToString(digest[:])
	span.SetAttributes(attribute.String("schema.fingerprint", fingerprint))

	active := m.Active()
	if active != nil && active.Fingerprint == fingerprint {
		// Unchanged schema keeps the compiler and its plan cache warm.
		refreshed := &Snapshot{
			Schema:      active.Schema,
			Compiler:    active.Compiler,
			FetchedAt:   time.Now(),
			Fingerprint: fingerprint,
		}
		m.active.Store(refreshed)
		m.metrics.ObserveSchemaRefresh("unchanged")
		return refreshed, nil
	}

	compiler, err := selection.NewCompiler(schema, m.selOptions, m.planCacheSize)
	if err != nil {
		m.metrics.ObserveSchemaRefresh("error")
		return nil, err
	}

	snapshot := &Snapshot{
		Schema:      schema,
		Compiler:    compiler,
		FetchedAt:   time.Now(),
		Fingerprint: fingerprint,
	}
	m.active.Store(snapshot)
	m.metrics.ObserveSchemaRefresh("changed")
	m.logger.Info("schema snapshot refreshed",
		slog.String("fingerprint", fingerprint[:12]),
		slog.Int("types", len(schema.ObjectTypes())),
	)
	return snapshot, nil
}
