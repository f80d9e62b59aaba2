package introspection

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "__schema": {
    "queryType": {"name": "Query"},
    "types": [
      {
        "kind": "OBJECT",
        "name": "Query",
        "fields": [
          {"name": "episodes", "type": {"kind": "LIST", "name": "", "ofType": {"kind": "OBJECT", "name": "Episode"}}}
        ]
      },
      {
        "kind": "OBJECT",
        "name": "Episode",
        "fields": [
          {"name": "id", "type": {"kind": "NON_NULL", "ofType": {"kind": "SCALAR", "name": "ID"}}},
          {"name": "title", "type": {"kind": "SCALAR", "name": "String"}},
          {"name": "state", "type": {"kind": "SCALAR", "name": "String"}, "extensions": {"stateMachine": true}},
          {
            "name": "genre",
            "type": {"kind": "OBJECT", "name": "Genre"},
            "extensions": {"relation": {"displayField": "title"}}
          },
          {
            "name": "meta",
            "type": {"kind": "OBJECT", "name": "EpisodeMeta"},
            "extensions": {"relation": {"embedded": true}}
          }
        ]
      },
      {
        "kind": "OBJECT",
        "name": "Genre",
        "fields": [
          {"name": "id", "type": {"kind": "SCALAR", "name": "ID"}},
          {"name": "title", "type": {"kind": "SCALAR", "name": "String"}},
          {"name": "name", "type": {"kind": "SCALAR", "name": "String"}}
        ]
      },
      {
        "kind": "ENUM",
        "name": "EpisodeKind",
        "enumValues": [{"name": "AUDIO"}, {"name": "VIDEO"}]
      },
      {"kind": "OBJECT", "name": "__Type", "fields": [{"name": "kind", "type": {"kind": "SCALAR", "name": "String"}}]}
    ]
  }
}`

func TestParse(t *testing.T) {
	schema, err := Parse(json.RawMessage(samplePayload))
	require.NoError(t, err)

	assert.Equal(t, "Query", schema.QueryTypeName)

	episode := schema.Type("Episode")
	require.NotNil(t, episode)
	assert.Equal(t, KindObject, episode.Kind)
	require.Len(t, episode.Fields, 5)
	assert.Equal(t, "id", episode.Fields[0].Name)

	state := episode.Field("state")
	require.NotNil(t, state)
	assert.True(t, state.IsStateMachine())

	genre := episode.Field("genre")
	require.NotNil(t, genre)
	require.NotNil(t, genre.Relation())
	assert.Equal(t, "title", genre.Relation().DisplayField)
	assert.False(t, genre.Relation().Embedded)

	meta := episode.Field("meta")
	require.NotNil(t, meta)
	require.NotNil(t, meta.Relation())
	assert.True(t, meta.Relation().Embedded)

	kind := schema.Type("EpisodeKind")
	require.NotNil(t, kind)
	assert.Equal(t, []string{"AUDIO", "VIDEO"}, kind.EnumValues)

	assert.Nil(t, schema.Type("Missing"))
}

func TestParseObjectTypesSkipsMetaTypes(t *testing.T) {
	schema, err := Parse(json.RawMessage(samplePayload))
	require.NoError(t, err)

	names := make([]string, 0)
	for _, obj := range schema.ObjectTypes() {
		names = append(names, obj.Name)
	}
	assert.Equal(t, []string{"Query", "Episode", "Genre"}, names)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(json.RawMessage(`{"no_schema": true}`))
	assert.Error(t, err)

	_, err = Parse(json.RawMessage(`not json`))
	assert.Error(t, err)
}

type stubExecutor struct {
	query string
	data  json.RawMessage
	err   error
}

func (s *stubExecutor) Query(_ context.Context, query string, _ map[string]interface{}) (json.RawMessage, error) {
	s.query = query
	return s.data, s.err
}

func TestFetch(t *testing.T) {
	exec := &stubExecutor{data: json.RawMessage(samplePayload)}

	schema, raw, err := Fetch(context.Background(), exec)
	require.NoError(t, err)
	assert.Equal(t, Query, exec.query)
	assert.JSONEq(t, samplePayload, string(raw))
	assert.NotNil(t, schema.Type("Episode"))
}

func TestFetchExecutorError(t *testing.T) {
	exec := &stubExecutor{err: assert.AnError}

	_, _, err := Fetch(context.Background(), exec)
	assert.ErrorIs(t, err, assert.AnError)
}
