// Package introspection fetches and models a GraphQL schema via the standard
// introspection query. It normalizes the raw payload into a navigable type
// graph used for selection-set compilation and form generation.
package introspection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// TypeKind is the GraphQL __TypeKind of a type or type wrapper.
type TypeKind string

const (
	KindScalar      TypeKind = "SCALAR"
	KindObject      TypeKind = "OBJECT"
	KindInterface   TypeKind = "INTERFACE"
	KindUnion       TypeKind = "UNION"
	KindEnum        TypeKind = "ENUM"
	KindInputObject TypeKind = "INPUT_OBJECT"
	KindList        TypeKind = "LIST"
	KindNonNull     TypeKind = "NON_NULL"
)

// TypeRef is a possibly-wrapped type descriptor. NON_NULL and LIST wrappers
// nest through OfType until a named SCALAR, OBJECT, or ENUM type is reached.
type TypeRef struct {
	Kind   TypeKind `json:"kind"`
	Name   string   `json:"name"`
	OfType *TypeRef `json:"ofType"`
}

// Relation carries relation metadata attached to a field by the backend's
// schema extensions.
type Relation struct {
	DisplayField    string `mapstructure:"displayField"`
	Embedded        bool   `mapstructure:"embedded"`
	ConnectionField string `mapstructure:"connectionField"`
}

// FieldExtensions holds backend-specific field metadata. StateMachine marks a
// field as system-managed: excluded from user edits in create mode and
// read-only elsewhere.
type FieldExtensions struct {
	Relation     *Relation `mapstructure:"relation"`
	StateMachine bool      `mapstructure:"stateMachine"`
}

// Field is a single field of an object type.
type Field struct {
	Name       string
	Type       TypeRef
	Extensions *FieldExtensions
}

// Relation returns the field's relation metadata, or nil.
func (f *Field) Relation() *Relation {
	if f == nil || f.Extensions == nil {
		return nil
	}
	return f.Extensions.Relation
}

// IsStateMachine reports whether the field is marked as system-managed.
func (f *Field) IsStateMachine() bool {
	return f != nil && f.Extensions != nil && f.Extensions.StateMachine
}

// ObjectType is a named type from the schema with its fields in declaration
// order. For ENUM types, EnumValues lists the value names and Fields is empty.
type ObjectType struct {
	Kind       TypeKind
	Name       string
	Fields     []Field
	EnumValues []string
}

// Field returns the named field, or nil if the type has no such field.
func (t *ObjectType) Field(name string) *Field {
	if t == nil {
		return nil
	}
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}

// Schema is an immutable snapshot of an introspected GraphQL schema.
// It is constructed once per introspection result and never mutated.
type Schema struct {
	QueryTypeName string
	typeOrder     []string
	types         map[string]*ObjectType
}

// Type returns the named type, or nil when the schema has no such type.
func (s *Schema) Type(name string) *ObjectType {
	if s == nil {
		return nil
	}
	return s.types[name]
}

// ObjectTypes returns the schema's OBJECT types in declaration order,
// excluding introspection meta types (names starting with "__").
func (s *Schema) ObjectTypes() []*ObjectType {
	if s == nil {
		return nil
	}
	out := make([]*ObjectType, 0, len(s.typeOrder))
	for _, name := range s.typeOrder {
		t := s.types[name]
		if t.Kind != KindObject || len(name) >= 2 && name[:2] == "__" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Raw payload shapes mirroring the introspection response JSON.

type rawPayload struct {
	Schema *rawSchema `json:"__schema"`
}

type rawSchema struct {
	QueryType *struct {
		Name string `json:"name"`
	} `json:"queryType"`
	Types []rawType `json:"types"`
}

type rawType struct {
	Kind       TypeKind       `json:"kind"`
	Name       string         `json:"name"`
	Fields     []rawField     `json:"fields"`
	EnumValues []rawEnumValue `json:"enumValues"`
}

type rawField struct {
	Name string  `json:"name"`
	Type TypeRef `json:"type"`
	// Extensions is decoded leniently: backends disagree on the exact shape,
	// so unknown keys are ignored rather than rejected.
	Extensions map[string]interface{} `json:"extensions"`
}

type rawEnumValue struct {
	Name string `json:"name"`
}

// Parse decodes a raw introspection response body (the "data" object of the
// GraphQL response) into a Schema snapshot.
func Parse(data json.RawMessage) (*Schema, error) {
	var payload rawPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode introspection payload: %w", err)
	}
	if payload.Schema == nil {
		return nil, fmt.Errorf("introspection payload has no __schema")
	}

	schema := &Schema{
		types: make(map[string]*ObjectType, len(payload.Schema.Types)),
	}
	if payload.Schema.QueryType != nil {
		schema.QueryTypeName = payload.Schema.QueryType.Name
	}

	for _, rt := range payload.Schema.Types {
		if rt.Name == "" {
			continue
		}
		obj := &ObjectType{
			Kind: rt.Kind,
			Name: rt.Name,
		}
		for _, rf := range rt.Fields {
			field := Field{
				Name: rf.Name,
				Type: rf.Type,
			}
			if len(rf.Extensions) > 0 {
				ext, err := decodeExtensions(rf.Extensions)
				if err != nil {
					return nil, fmt.Errorf("invalid extensions on %s.%s: %w", rt.Name, rf.Name, err)
				}
				field.Extensions = ext
			}
			obj.Fields = append(obj.Fields, field)
		}
		for _, ev := range rt.EnumValues {
			obj.EnumValues = append(obj.EnumValues, ev.Name)
		}
		if _, exists := schema.types[rt.Name]; !exists {
			schema.typeOrder = append(schema.typeOrder, rt.Name)
		}
		schema.types[rt.Name] = obj
	}

	return schema, nil
}

func decodeExtensions(raw map[string]interface{}) (*FieldExtensions, error) {
	var ext FieldExtensions
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &ext,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}
	return &ext, nil
}

// Executor runs a GraphQL query and returns the response data object.
// It is satisfied by gqlclient.Client.
type Executor interface {
	Query(ctx context.Context, query string, variables map[string]interface{}) (json.RawMessage, error)
}

// Fetch runs the introspection query against the executor and parses the
// result. Backends that reject the nonstandard extensions selection are
// retried with the standard document. The returned raw payload bytes are the
// fingerprint input used by the schema cache.
func Fetch(ctx context.Context, exec Executor) (*Schema, json.RawMessage, error) {
	data, err := exec.Query(ctx, Query, nil)
	if err != nil {
		data, err = exec.Query(ctx, BaseQuery, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("introspection query failed: %w", err)
		}
	}
	schema, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}
	return schema, data, nil
}
