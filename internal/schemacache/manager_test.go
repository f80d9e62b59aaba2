package schemacache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payloadV1 = `{
  "__schema": {
    "queryType": {"name": "Query"},
    "types": [
      {"kind": "OBJECT", "name": "Episode", "fields": [
        {"name": "id", "type": {"kind": "SCALAR", "name": "ID"}},
        {"name": "title", "type": {"kind": "SCALAR", "name": "String"}}
      ]}
    ]
  }
}`

const payloadV2 = `{
  "__schema": {
    "queryType": {"name": "Query"},
    "types": [
      {"kind": "OBJECT", "name": "Episode", "fields": [
        {"name": "id", "type": {"kind": "SCALAR", "name": "ID"}},
        {"name": "title", "type": {"kind": "SCALAR", "name": "String"}},
        {"name": "summary", "type": {"kind": "SCALAR", "name": "String"}}
      ]}
    ]
  }
}`

type fakeExecutor struct {
	payload string
	calls   int
}

func (f *fakeExecutor) Query(_ context.Context, _ string, _ map[string]interface{}) (json.RawMessage, error) {
	f.calls++
	return json.RawMessage(f.payload), nil
}

func newManager(t *testing.T, exec *fakeExecutor) *Manager {
	t.Helper()
	m, err := NewManager(context.Background(), Config{
		Executor:    exec,
		MinInterval: time.Hour,
		MaxInterval: 2 * time.Hour,
	})
	require.NoError(t, err)
	return m
}

func TestInitialSnapshot(t *testing.T) {
	exec := &fakeExecutor{payload: payloadV1}
	m := newManager(t, exec)

	snapshot := m.Active()
	require.NotNil(t, snapshot)
	assert.NotNil(t, snapshot.Schema.Type("Episode"))
	assert.NotEmpty(t, snapshot.Fingerprint)
	assert.Equal(t, 1, exec.calls)
}

func TestRefreshDebounced(t *testing.T) {
	exec := &fakeExecutor{payload: payloadV1}
	m := newManager(t, exec)

	snapshot, err := m.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Same(t, m.Active(), snapshot)
	assert.Equal(t, 1, exec.calls, "refresh inside the min interval must not refetch")
}

func TestForcedRefreshKeepsCompilerWhenUnchanged(t *testing.T) {
	exec := &fakeExecutor{payload: payloadV1}
	m := newManager(t, exec)
	before := m.Active()

	snapshot, err := m.Refresh(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, exec.calls)
	assert.Same(t, before.Compiler, snapshot.Compiler, "unchanged fingerprint keeps the plan cache")
	assert.Same(t, before.Schema, snapshot.Schema)
}

func TestForcedRefreshReplacesCompilerOnChange(t *testing.T) {
	exec := &fakeExecutor{payload: payloadV1}
	m := newManager(t, exec)
	before := m.Active()

	exec.payload = payloadV2
	snapshot, err := m.Refresh(context.Background(), true)
	require.NoError(t, err)
	assert.NotEqual(t, before.Fingerprint, snapshot.Fingerprint)
	assert.NotSame(t, before.Compiler, snapshot.Compiler)

	plan, err := snapshot.Compiler.Plan("Episode")
	require.NoError(t, err)
	assert.Contains(t, plan.Columns, "summary")
}

func TestNewManagerRequiresExecutor(t *testing.T) {
	_, err := NewManager(context.Background(), Config{})
	assert.Error(t, err)
}
