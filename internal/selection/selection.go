// Package selection compiles GraphQL object types into the field selections,
// column lists, value extractors, and sort paths needed to render an entity
// in a table or form.
package selection

import (
	"strings"

	"graphql-forms/internal/introspection"
	"graphql-forms/internal/observability"
)

// Options controls compilation output.
type Options struct {
	// DateLayout is the Go time layout used when reformatting date-like
	// values for display.
	DateLayout string
	// Metrics, when set, records plan cache hits and misses.
	Metrics *observability.Metrics
}

// DefaultDateLayout is used when Options.DateLayout is empty.
const DefaultDateLayout = "Jan 2, 2006 3:04 PM"

// Plan is the compilation result for one object type. Every non-list field
// of the type lands in exactly one classification: a display column, or the
// id field (selected for row identity but never shown).
type Plan struct {
	TypeName string

	// Columns lists displayable field names in declaration order. "id" and
	// list-typed fields are excluded.
	Columns []string

	selections  []string
	extractors  map[string]Extractor
	sortPaths   map[string]string
	scalarTypes map[string]string
}

// Extractor pulls a display value for one column out of a result row.
type Extractor func(row map[string]interface{}) interface{}

// SelectionSet returns the GraphQL field list to request for this type,
// including "id" and relation sub-selections.
func (p *Plan) SelectionSet() string {
	return strings.Join(p.selections, " ")
}

// Extract returns the display value for a column from a result row, or nil
// when the column is unknown or the row has no value.
func (p *Plan) Extract(column string, row map[string]interface{}) interface{} {
	fn, ok := p.extractors[column]
	if !ok {
		return nil
	}
	return fn(row)
}

// SortPath returns the dotted sort path for a column ("genre.title" for a
// relation column, the column itself otherwise). Unknown columns sort by
// their own name.
func (p *Plan) SortPath(column string) string {
	if path, ok := p.sortPaths[column]; ok {
		return path
	}
	return column
}

// ScalarType returns the underlying scalar type name recorded for a column,
// used for operator and format decisions. Unknown columns report "String".
func (p *Plan) ScalarType(column string) string {
	if name, ok := p.scalarTypes[column]; ok {
		return name
	}
	return "String"
}

// Compile derives the rendering plan for an object type. It never fails: a
// type with no usable display fields still produces a syntactically valid
// (if low-information) plan.
func Compile(schema *introspection.Schema, obj *introspection.ObjectType, opts Options) *Plan {
	layout := opts.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}

	plan := &Plan{
		TypeName:    obj.Name,
		extractors:  make(map[string]Extractor),
		sortPaths:   make(map[string]string),
		scalarTypes: make(map[string]string),
	}

	idSelected := false
	for i := range obj.Fields {
		field := &obj.Fields[i]

		// Collections are handled by a separate path, never flattened into
		// the parent's own selection.
		if introspection.IsList(&field.Type) {
			continue
		}

		named := introspection.UnwrapNamed(&field.Type)
		if named == nil {
			continue
		}

		switch {
		case introspection.IsScalarOrEnum(named.Kind):
			plan.selections = append(plan.selections, field.Name)
			if field.Name == "id" {
				idSelected = true
				continue
			}
			plan.Columns = append(plan.Columns, field.Name)
			plan.extractors[field.Name] = scalarExtractor(field.Name, dateLike(named, field.Name), layout)
			plan.sortPaths[field.Name] = field.Name
			plan.scalarTypes[field.Name] = named.Name

		case named.Kind == introspection.KindObject:
			target := schema.Type(named.Name)
			relation := field.Relation()
			embedded := relation != nil && relation.Embedded
			display := resolveDisplayField(relation, target)

			plan.selections = append(plan.selections, field.Name+" { "+subSelection(display, embedded, target)+" }")
			plan.Columns = append(plan.Columns, field.Name)
			plan.extractors[field.Name] = objectExtractor(field.Name, display, embedded, displayIsDateLike(display, target), layout)
			if display != "" {
				plan.sortPaths[field.Name] = field.Name + "." + display
				if df := target.Field(display); df != nil {
					if dn := introspection.UnwrapNamed(&df.Type); dn != nil {
						plan.scalarTypes[field.Name] = dn.Name
					}
				}
			} else {
				plan.sortPaths[field.Name] = field.Name
			}
			if _, ok := plan.scalarTypes[field.Name]; !ok {
				plan.scalarTypes[field.Name] = "String"
			}
		}
	}

	// Row identity: "id" is always selected even though it is never a column.
	if !idSelected {
		plan.selections = append([]string{"id"}, plan.selections...)
	}

	return plan
}

// resolveDisplayField picks the field of a related type used to represent it
// in table cells, by priority: explicit displayField extension (when it names
// a real field), a field literally named "name", then the first scalar or
// enum field of the target type.
func resolveDisplayField(relation *introspection.Relation, target *introspection.ObjectType) string {
	if target == nil {
		return ""
	}
	if relation != nil && relation.DisplayField != "" && target.Field(relation.DisplayField) != nil {
		return relation.DisplayField
	}
	if target.Field("name") != nil {
		return "name"
	}
	for i := range target.Fields {
		named := introspection.UnwrapNamed(&target.Fields[i].Type)
		if named != nil && introspection.IsScalarOrEnum(named.Kind) {
			return target.Fields[i].Name
		}
	}
	return ""
}

// subSelection builds the minimal sub-selection for a relation: the display
// field plus "id" (omitted for embedded objects, which have no identity). A
// last-resort field keeps the query syntactically valid when neither exists.
func subSelection(display string, embedded bool, target *introspection.ObjectType) string {
	parts := make([]string, 0, 2)
	if display != "" {
		parts = append(parts, display)
	}
	if !embedded && (target == nil || target.Field("id") != nil) {
		if display != "id" {
			parts = append(parts, "id")
		}
	}
	if len(parts) == 0 {
		if target != nil && len(target.Fields) > 0 {
			parts = append(parts, target.Fields[0].Name)
		} else {
			parts = append(parts, "__typename")
		}
	}
	return strings.Join(parts, " ")
}

// dateLike decides whether a scalar field's values should be reformatted as
// dates for display. The field-name pattern applies only when the scalar
// name classifies as an opaque string.
func dateLike(named *introspection.TypeRef, fieldName string) bool {
	if named.Kind != introspection.KindScalar {
		return false
	}
	if introspection.IsDateTimeScalar(named.Name) {
		return true
	}
	if introspection.IsNumericScalar(named.Name) || introspection.IsBooleanScalar(named.Name) {
		return false
	}
	return introspection.LooksLikeDateTimeField(fieldName)
}

func displayIsDateLike(display string, target *introspection.ObjectType) bool {
	if display == "" || target == nil {
		return false
	}
	field := target.Field(display)
	if field == nil {
		return false
	}
	named := introspection.UnwrapNamed(&field.Type)
	if named == nil {
		return false
	}
	return dateLike(named, display)
}
