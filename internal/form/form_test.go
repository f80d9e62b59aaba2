package form

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphql-forms/internal/collection"
	"graphql-forms/internal/customize"
	"graphql-forms/internal/gqlclient"
	"graphql-forms/internal/schemacache"
	"graphql-forms/internal/statemachine"
)

const testSchemaPayload = `{
  "__schema": {
    "queryType": {"name": "Query"},
    "types": [
      {"kind": "OBJECT", "name": "Episode", "fields": [
        {"name": "id", "type": {"kind": "NON_NULL", "ofType": {"kind": "SCALAR", "name": "ID"}}},
        {"name": "title", "type": {"kind": "SCALAR", "name": "String"}},
        {"name": "state", "type": {"kind": "SCALAR", "name": "String"},
         "extensions": {"stateMachine": true}},
        {"name": "genre", "type": {"kind": "OBJECT", "name": "Genre"},
         "extensions": {"relation": {"displayField": "title"}}},
        {"name": "meta", "type": {"kind": "OBJECT", "name": "EpisodeMeta"},
         "extensions": {"relation": {"embedded": true}}},
        {"name": "guests", "type": {"kind": "LIST", "ofType": {"kind": "OBJECT", "name": "EpisodeGuest"}}}
      ]},
      {"kind": "OBJECT", "name": "Genre", "fields": [
        {"name": "id", "type": {"kind": "SCALAR", "name": "ID"}},
        {"name": "title", "type": {"kind": "SCALAR", "name": "String"}}
      ]},
      {"kind": "OBJECT", "name": "EpisodeMeta", "fields": [
        {"name": "notes", "type": {"kind": "SCALAR", "name": "String"}}
      ]},
      {"kind": "OBJECT", "name": "EpisodeGuest", "fields": [
        {"name": "id", "type": {"kind": "SCALAR", "name": "ID"}},
        {"name": "name", "type": {"kind": "SCALAR", "name": "String"}},
        {"name": "contact", "type": {"kind": "OBJECT", "name": "ContactInfo"},
         "extensions": {"relation": {"embedded": true}}}
      ]},
      {"kind": "OBJECT", "name": "ContactInfo", "fields": [
        {"name": "email", "type": {"kind": "SCALAR", "name": "String"}}
      ]}
    ]
  }
}`

// stubBackend satisfies both introspection.Executor (schema fetches) and
// form.Executor (operations). Operations are recorded for assertion.
type stubBackend struct {
	mu       sync.Mutex
	requests []gqlclient.Request
	response json.RawMessage
	err      error
	// gate, when set, blocks Execute until the channel closes.
	gate chan struct{}
}

func (s *stubBackend) Query(_ context.Context, _ string, _ map[string]interface{}) (json.RawMessage, error) {
	return json.RawMessage(testSchemaPayload), nil
}

func (s *stubBackend) Execute(_ context.Context, req gqlclient.Request) (json.RawMessage, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

func (s *stubBackend) lastRequest(t *testing.T) gqlclient.Request {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.requests)
	return s.requests[len(s.requests)-1]
}

func (s *stubBackend) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type invalidation struct {
	entityType string
	id         string
}

func newTestEngine(t *testing.T, backend *stubBackend) (*Engine, *[]invalidation) {
	t.Helper()
	schemas, err := schemacache.NewManager(context.Background(), schemacache.Config{
		Executor:    backend,
		MinInterval: time.Hour,
	})
	require.NoError(t, err)

	var invalidations []invalidation
	engine, err := NewEngine(EngineConfig{
		Executor:       backend,
		Schemas:        schemas,
		Customizations: customize.NewStore(),
		Actions:        statemachine.NewRegistry(),
		Invalidate: func(_ context.Context, entityType, id string) {
			invalidations = append(invalidations, invalidation{entityType, id})
		},
	})
	require.NoError(t, err)
	return engine, &invalidations
}

func TestNewInstanceFields(t *testing.T) {
	engine, _ := newTestEngine(t, &stubBackend{})

	create, err := engine.NewInstance("Episode", customize.ModeCreate, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "genre", "meta"}, create.Fields(),
		"create mode excludes id, lists, and state-machine fields")

	edit, err := engine.NewInstance("Episode", customize.ModeEdit, customize.FormData{"id": "ep-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "state", "genre", "meta"}, edit.Fields(),
		"edit mode keeps state-machine fields as read-only data")

	_, err = engine.NewInstance("Nonexistent", customize.ModeCreate, nil)
	assert.Error(t, err)
}

func TestSubmitCreate(t *testing.T) {
	backend := &stubBackend{response: json.RawMessage(`{"createEpisode": {"id": "ep-9", "title": "Pilot"}}`)}
	engine, invalidations := newTestEngine(t, backend)

	inst, err := engine.NewInstance("Episode", customize.ModeCreate, customize.FormData{
		"title": "Pilot",
		"genre": map[string]interface{}{"id": "g-1", "title": "Drama", "__typename": "Genre"},
		"meta":  map[string]interface{}{"notes": "first cut", "__typename": "EpisodeMeta"},
	})
	require.NoError(t, err)

	result, err := engine.Submit(context.Background(), inst)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, result.Status)
	assert.Equal(t, "ep-9", inst.EntityID(), "server-assigned id flows back into the form")

	req := backend.lastRequest(t)
	assert.Contains(t, req.Query, "mutation ($input: CreateEpisodeInput!)")
	assert.Contains(t, req.Query, "createEpisode(input: $input)")
	assert.Contains(t, req.Query, inst.Plan().SelectionSet())

	input := req.Variables["input"].(map[string]interface{})
	assert.Equal(t, "Pilot", input["title"])
	assert.Equal(t, map[string]interface{}{"id": "g-1"}, input["genre"],
		"relation values reduce to id references")
	assert.Equal(t, map[string]interface{}{"notes": "first cut"}, input["meta"],
		"embedded objects stay inline with metadata stripped")
	assert.NotContains(t, input, "id")
	assert.NotContains(t, input, "state")

	require.Len(t, *invalidations, 1)
	assert.Equal(t, invalidation{"Episode", "ep-9"}, (*invalidations)[0])
}

func TestSubmitEditIncludesID(t *testing.T) {
	backend := &stubBackend{response: json.RawMessage(`{"updateEpisode": {"id": "ep-1"}}`)}
	engine, _ := newTestEngine(t, backend)

	inst, err := engine.NewInstance("Episode", customize.ModeEdit, customize.FormData{
		"id": "ep-1", "title": "Recut",
	})
	require.NoError(t, err)

	result, err := engine.Submit(context.Background(), inst)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, result.Status)

	req := backend.lastRequest(t)
	assert.Contains(t, req.Query, "mutation ($input: UpdateEpisodeInput!)")
	input := req.Variables["input"].(map[string]interface{})
	assert.Equal(t, "ep-1", input["id"])
}

func TestSubmitCollectionChanges(t *testing.T) {
	backend := &stubBackend{response: json.RawMessage(`{"updateEpisode": {"id": "ep-1"}}`)}
	engine, _ := newTestEngine(t, backend)

	inst, err := engine.NewInstance("Episode", customize.ModeEdit, customize.FormData{"id": "ep-1"})
	require.NoError(t, err)

	guests := inst.Collection("guests")
	guests.Add(map[string]interface{}{
		"name":    "Sam",
		"contact": map[string]interface{}{"email": "sam@example.com", "__typename": "ContactInfo"},
	})
	guests.Delete("guest-2", map[string]interface{}{"id": "guest-2", "name": "Lee"})

	result, err := engine.Submit(context.Background(), inst)
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, result.Status)

	req := backend.lastRequest(t)
	input := req.Variables["input"].(map[string]interface{})
	guestsInput, ok := input["guests"].(map[string]interface{})
	require.True(t, ok, "collection edits fold into the input as a change payload")

	added := guestsInput["added"].([]map[string]interface{})
	require.Len(t, added, 1)
	assert.NotContains(t, added[0], "id", "temp ids never reach the backend")
	assert.Equal(t, "Sam", added[0]["name"])
	assert.Equal(t, map[string]interface{}{"email": "sam@example.com"}, added[0]["contact"],
		"embedded item relations stay inline")

	deleted := guestsInput["deleted"].([]string)
	assert.Equal(t, []string{"guest-2"}, deleted)
}

func TestSubmitCanceledByHook(t *testing.T) {
	backend := &stubBackend{}
	engine, invalidations := newTestEngine(t, backend)

	engine.customizations.Register("Episode", customize.ModeCreate, &customize.Config{
		BeforeSubmit: func(_ context.Context, _ customize.FormData, _ map[string]collection.Payload, _ map[string]interface{}, _ customize.FieldMutator) (bool, error) {
			return false, nil
		},
	})

	inst, err := engine.NewInstance("Episode", customize.ModeCreate, nil)
	require.NoError(t, err)

	result, err := engine.Submit(context.Background(), inst)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, result.Status)
	assert.NoError(t, result.Err)
	assert.Zero(t, backend.callCount(), "a canceled submission never reaches the backend")
	assert.Empty(t, *invalidations)
}

func TestSubmitHookErrorIsDistinctFromCancel(t *testing.T) {
	backend := &stubBackend{}
	engine, _ := newTestEngine(t, backend)

	hookErr := fmt.Errorf("draft validation failed")
	engine.customizations.Register("Episode", customize.ModeCreate, &customize.Config{
		BeforeSubmit: func(_ context.Context, _ customize.FormData, _ map[string]collection.Payload, _ map[string]interface{}, _ customize.FieldMutator) (bool, error) {
			return false, hookErr
		},
	})

	inst, err := engine.NewInstance("Episode", customize.ModeCreate, nil)
	require.NoError(t, err)

	result, err := engine.Submit(context.Background(), inst)
	require.NoError(t, err)
	assert.Equal(t, StatusHookError, result.Status)
	assert.ErrorIs(t, result.Err, hookErr)
	assert.Zero(t, backend.callCount())
}

func TestSubmitFailureRoutesOnError(t *testing.T) {
	backendErr := fmt.Errorf("backend unavailable")
	backend := &stubBackend{err: backendErr}
	engine, invalidations := newTestEngine(t, backend)

	var routed error
	engine.customizations.Register("Episode", customize.ModeCreate, &customize.Config{
		OnError: func(err error, _ customize.FormData, _ customize.FieldMutator) {
			routed = err
		},
	})

	inst, err := engine.NewInstance("Episode", customize.ModeCreate, nil)
	require.NoError(t, err)

	result, err := engine.Submit(context.Background(), inst)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.ErrorIs(t, result.Err, backendErr)
	assert.ErrorIs(t, routed, backendErr, "registered error hooks own error presentation")
	assert.Empty(t, *invalidations, "failed submissions never invalidate caches")
}

func TestSubmitSuccessHook(t *testing.T) {
	backend := &stubBackend{response: json.RawMessage(`{"createEpisode": {"id": "ep-5"}}`)}
	engine, _ := newTestEngine(t, backend)

	engine.customizations.Register("Episode", customize.ModeCreate, &customize.Config{
		OnSuccess: func(result map[string]interface{}, _ customize.FieldMutator) *customize.SuccessAction {
			return &customize.SuccessAction{NavigateTo: "/episodes/" + result["id"].(string)}
		},
	})

	inst, err := engine.NewInstance("Episode", customize.ModeCreate, nil)
	require.NoError(t, err)

	result, err := engine.Submit(context.Background(), inst)
	require.NoError(t, err)
	require.NotNil(t, result.Success)
	assert.Equal(t, "/episodes/ep-5", result.Success.NavigateTo)
}

func TestSubmitOverlapSharesResult(t *testing.T) {
	backend := &stubBackend{
		response: json.RawMessage(`{"createEpisode": {"id": "ep-7"}}`),
		gate:     make(chan struct{}),
	}
	engine, _ := newTestEngine(t, backend)

	inst, err := engine.NewInstance("Episode", customize.ModeCreate, nil)
	require.NoError(t, err)

	results := make([]*Result, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := engine.Submit(context.Background(), inst)
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}
	// Give both goroutines time to join the in-flight call, then release it.
	time.Sleep(50 * time.Millisecond)
	close(backend.gate)
	wg.Wait()

	assert.Equal(t, 1, backend.callCount(), "overlapping submissions collapse to one mutation")
	assert.Same(t, results[0], results[1])
}

func TestSubmitAction(t *testing.T) {
	backend := &stubBackend{response: json.RawMessage(`{"publishEpisode": {"id": "ep-1", "state": "published"}}`)}
	engine, invalidations := newTestEngine(t, backend)

	engine.actions.Register("Episode", statemachine.Config{
		Actions: map[string]statemachine.Action{
			"publish": {Mutation: "publishEpisode", From: "draft", To: "published"},
		},
	})

	inst, err := engine.NewInstance("Episode", customize.ModeEdit, customize.FormData{
		"id": "ep-1", "title": "Pilot", "state": "draft",
	})
	require.NoError(t, err)

	result, err := engine.SubmitAction(context.Background(), inst, "publish")
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, result.Status)
	assert.Equal(t, "published", inst.FieldValue("state"),
		"the backend's reported state wins over the declared destination")

	req := backend.lastRequest(t)
	assert.Contains(t, req.Query, "mutation ($input: PublishEpisodeInput!)")
	assert.Contains(t, req.Query, "publishEpisode(input: $input)")
	input := req.Variables["input"].(map[string]interface{})
	assert.Equal(t, "ep-1", input["id"])
	assert.Equal(t, "Pilot", input["title"])
	assert.NotContains(t, input, "guests", "collections are excluded from action inputs")

	require.Len(t, *invalidations, 1)
}

func TestSubmitActionUnavailableFromState(t *testing.T) {
	engine, _ := newTestEngine(t, &stubBackend{})
	engine.actions.Register("Episode", statemachine.Config{
		Actions: map[string]statemachine.Action{
			"publish": {Mutation: "publishEpisode", From: "draft", To: "published"},
		},
	})

	inst, err := engine.NewInstance("Episode", customize.ModeEdit, customize.FormData{
		"id": "ep-1", "state": "published",
	})
	require.NoError(t, err)

	_, err = engine.SubmitAction(context.Background(), inst, "publish")
	assert.ErrorContains(t, err, "not available")

	_, err = engine.SubmitAction(context.Background(), inst, "archive")
	assert.ErrorContains(t, err, "unknown action")
}

func TestAvailableActions(t *testing.T) {
	engine, _ := newTestEngine(t, &stubBackend{})
	engine.actions.Register("Episode", statemachine.Config{
		Actions: map[string]statemachine.Action{
			"publish": {Mutation: "publishEpisode", From: "draft", To: "published"},
			"archive": {Mutation: "archiveEpisode", From: "published", To: "archived"},
		},
	})

	inst, err := engine.NewInstance("Episode", customize.ModeEdit, customize.FormData{
		"id": "ep-1", "state": "draft",
	})
	require.NoError(t, err)

	actions := engine.AvailableActions(inst)
	require.Len(t, actions, 1)
	assert.Equal(t, "publish", actions[0].Name)
}

func TestFetchEntity(t *testing.T) {
	backend := &stubBackend{response: json.RawMessage(`{"episode": {"id": "ep-1", "title": "Pilot"}}`)}
	engine, _ := newTestEngine(t, backend)

	entity, err := engine.FetchEntity(context.Background(), "Episode", "ep-1")
	require.NoError(t, err)
	assert.Equal(t, "Pilot", entity["title"])

	req := backend.lastRequest(t)
	assert.Contains(t, req.Query, "episode(id: $id)")
	assert.Equal(t, "ep-1", req.Variables["id"])
}

func TestFetchTable(t *testing.T) {
	backend := &stubBackend{response: json.RawMessage(`{"episodes": [
		{"id": "ep-1", "title": "Pilot", "genre": {"id": "g-1", "title": "Drama"}},
		{"id": "ep-2", "title": "Finale", "genre": null}
	]}`)}
	engine, _ := newTestEngine(t, backend)

	table, err := engine.FetchTable(context.Background(), "Episode")
	require.NoError(t, err)
	assert.Contains(t, table.Columns, "title")
	assert.Contains(t, table.Columns, "genre")
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Drama", table.Rows[0].Cells["genre"],
		"relation cells show the display field")
	assert.Nil(t, table.Rows[1].Cells["genre"])

	req := backend.lastRequest(t)
	assert.Contains(t, req.Query, "episodes {", "list queries use the pluralized field")
}

func TestDelete(t *testing.T) {
	backend := &stubBackend{response: json.RawMessage(`{"deleteEpisode": {"id": "ep-1"}}`)}
	engine, invalidations := newTestEngine(t, backend)

	err := engine.Delete(context.Background(), "Episode", "ep-1")
	require.NoError(t, err)

	req := backend.lastRequest(t)
	assert.Contains(t, req.Query, "deleteEpisode(id: $id)")
	require.Len(t, *invalidations, 1)
	assert.Equal(t, invalidation{"Episode", "ep-1"}, (*invalidations)[0])
}

func TestHandleChangeRecordsFieldError(t *testing.T) {
	engine, _ := newTestEngine(t, &stubBackend{})
	engine.customizations.Register("Episode", customize.ModeCreate, &customize.Config{
		Fields: map[string]customize.Customization{
			"title": customize.FieldOf(&customize.FieldCustomization{
				OnChange: func(value interface{}, _ customize.FormData, _ customize.FieldMutator) customize.ChangeResult {
					s, _ := value.(string)
					if s == "" {
						return customize.ChangeResult{Value: value, Err: "title is required"}
					}
					return customize.ChangeResult{Value: s}
				},
			}),
		},
	})

	inst, err := engine.NewInstance("Episode", customize.ModeCreate, nil)
	require.NoError(t, err)

	assert.Equal(t, "title is required", inst.HandleChange("title", ""))
	assert.Equal(t, "title is required", inst.FieldError("title"))

	assert.Empty(t, inst.HandleChange("title", "Pilot"))
	assert.Empty(t, inst.FieldError("title"))
	assert.Equal(t, "Pilot", inst.FieldValue("title"))
}
