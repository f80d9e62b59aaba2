package selection

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"graphql-forms/internal/introspection"
)

// DefaultCacheSize bounds the number of cached plans per compiler.
const DefaultCacheSize = 128

// Compiler compiles and caches plans against one schema snapshot. Plans are
// deterministic per type, so the cache lives as long as the snapshot; the
// schema cache drops the whole compiler when the schema fingerprint changes.
type Compiler struct {
	schema *introspection.Schema
	opts   Options
	cache  *lru.Cache[string, *Plan]
}

// NewCompiler creates a plan compiler for a schema snapshot. cacheSize <= 0
// selects DefaultCacheSize.
func NewCompiler(schema *introspection.Schema, opts Options, cacheSize int) (*Compiler, error) {
	if schema == nil {
		return nil, fmt.Errorf("compiler requires a schema")
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *Plan](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan cache: %w", err)
	}
	return &Compiler{
		schema: schema,
		opts:   opts,
		cache:  cache,
	}, nil
}

// Plan returns the compiled plan for a named object type, compiling and
// caching it on first use.
func (c *Compiler) Plan(typeName string) (*Plan, error) {
	if plan, ok := c.cache.Get(typeName); ok {
		c.opts.Metrics.ObservePlanCache(true)
		return plan, nil
	}
	c.opts.Metrics.ObservePlanCache(false)

	obj := c.schema.Type(typeName)
	if obj == nil {
		return nil, fmt.Errorf("unknown type %q", typeName)
	}
	if obj.Kind != introspection.KindObject {
		return nil, fmt.Errorf("type %q is %s, not OBJECT", typeName, obj.Kind)
	}

	plan := Compile(c.schema, obj, c.opts)
	c.cache.Add(typeName, plan)
	return plan, nil
}

// Schema returns the snapshot this compiler was built against.
func (c *Compiler) Schema() *introspection.Schema {
	return c.schema
}
