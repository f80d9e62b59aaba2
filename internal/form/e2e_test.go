package form

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphql-forms/internal/customize"
	"graphql-forms/internal/gqlclient"
	"graphql-forms/internal/schemacache"
)

// episodeStore is the in-memory backing store for the test backend.
type episodeStore struct {
	nextID   int
	episodes map[string]map[string]interface{}
}

func newEpisodeStore() *episodeStore {
	return &episodeStore{nextID: 1, episodes: make(map[string]map[string]interface{})}
}

func (s *episodeStore) create(input map[string]interface{}) map[string]interface{} {
	id := fmt.Sprintf("ep-%d", s.nextID)
	s.nextID++
	episode := map[string]interface{}{"id": id}
	for key, value := range input {
		episode[key] = value
	}
	s.episodes[id] = episode
	return episode
}

func newTestBackend(t *testing.T, store *episodeStore) *httptest.Server {
	t.Helper()

	episodeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Episode",
		Fields: graphql.Fields{
			"id":     &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"title":  &graphql.Field{Type: graphql.String},
			"rating": &graphql.Field{Type: graphql.Float},
		},
	})

	inputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "CreateEpisodeInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"title":  &graphql.InputObjectFieldConfig{Type: graphql.String},
			"rating": &graphql.InputObjectFieldConfig{Type: graphql.Float},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"episode": &graphql.Field{
				Type: episodeType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return store.episodes[p.Args["id"].(string)], nil
				},
			},
			"episodes": &graphql.Field{
				Type: graphql.NewList(episodeType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					out := make([]map[string]interface{}, 0, len(store.episodes))
					for _, episode := range store.episodes {
						out = append(out, episode)
					}
					return out, nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createEpisode": &graphql.Field{
				Type: episodeType,
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(inputType)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return store.create(p.Args["input"].(map[string]interface{})), nil
				},
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(handler.New(&handler.Config{Schema: &schema}))
	t.Cleanup(srv.Close)
	return srv
}

// TestEndToEnd drives the full pipeline against a live GraphQL server:
// introspection (exercising the standard-document fallback), plan
// compilation, a create submission, and the table read path.
func TestEndToEnd(t *testing.T) {
	store := newEpisodeStore()
	srv := newTestBackend(t, store)

	client, err := gqlclient.New(gqlclient.Config{
		Endpoint: srv.URL,
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)

	schemas, err := schemacache.NewManager(context.Background(), schemacache.Config{
		Executor:    client,
		MinInterval: time.Hour,
	})
	require.NoError(t, err)
	require.NotNil(t, schemas.Active().Schema.Type("Episode"),
		"introspection against a backend without extensions still yields the type graph")

	engine, err := NewEngine(EngineConfig{
		Executor: client,
		Schemas:  schemas,
	})
	require.NoError(t, err)

	inst, err := engine.NewInstance("Episode", customize.ModeCreate, nil)
	require.NoError(t, err)
	// graphql-go reports fields in nondeterministic order; only membership
	// is stable here.
	assert.ElementsMatch(t, []string{"title", "rating"}, inst.Fields())

	inst.SetFieldValue("title", "Pilot")
	inst.SetFieldValue("rating", 4.5)

	result, err := engine.Submit(context.Background(), inst)
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, result.Status, "submit failed: %v", result.Err)
	require.NotEmpty(t, inst.EntityID())

	entity, err := engine.FetchEntity(context.Background(), "Episode", inst.EntityID())
	require.NoError(t, err)
	assert.Equal(t, "Pilot", entity["title"])
	assert.Equal(t, 4.5, entity["rating"])

	table, err := engine.FetchTable(context.Background(), "Episode")
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Pilot", table.Rows[0].Cells["title"])
}
