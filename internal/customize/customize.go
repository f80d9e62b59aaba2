// Package customize stores and resolves layered form customization: per-field
// visibility, enablement, ordering and sizing, embedded section and
// collection variants, entity lifecycle callbacks, and multi-step form
// configuration. Customizations are registered once at application start-up
// and resolved on every render and field mutation.
package customize

import (
	"context"

	"graphql-forms/internal/collection"
)

// Mode selects which form variant a customization applies to.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
	ModeView   Mode = "view"
)

// FormMode selects the form display layout.
type FormMode string

const (
	FormDefault FormMode = "default"
	FormStepper FormMode = "stepper"
)

// FormData is the live value map of a form instance.
type FormData map[string]interface{}

// Predicate decides a field's visibility or enablement from live form data.
// Predicates must be pure and cheap: they are re-evaluated on every query and
// never cached, since form data changes on every keystroke.
type Predicate func(field string, value interface{}, data FormData) bool

// Setting is a visibility or enablement policy: unset (defaults to true), a
// constant, or a live predicate.
type Setting struct {
	set       bool
	constant  bool
	predicate Predicate
}

// Constant returns a fixed Setting.
func Constant(value bool) Setting {
	return Setting{set: true, constant: value}
}

// Dynamic returns a predicate-backed Setting.
func Dynamic(p Predicate) Setting {
	return Setting{set: true, predicate: p}
}

// IsSet reports whether the setting was specified at all.
func (s Setting) IsSet() bool { return s.set }

// IsDynamic reports whether the setting is predicate-backed.
func (s Setting) IsDynamic() bool { return s.predicate != nil }

// Seed returns the value used to seed tracked state: the constant when one
// was given, otherwise true (predicates are evaluated live, the seed is only
// a fallback).
func (s Setting) Seed() bool {
	if s.set && s.predicate == nil {
		return s.constant
	}
	return true
}

// Eval evaluates a dynamic setting. Must only be called when IsDynamic.
func (s Setting) Eval(field string, value interface{}, data FormData) bool {
	return s.predicate(field, value, data)
}

// Size carries responsive width hints for a rendered field.
type Size struct {
	XS int `mapstructure:"xs"`
	SM int `mapstructure:"sm"`
	MD int `mapstructure:"md"`
	LG int `mapstructure:"lg"`
}

// FieldMutator is handed to change handlers and entity callbacks so they can
// trigger side effects on sibling fields. Callers are responsible for
// convergence; the engine does not detect mutation cycles.
type FieldMutator interface {
	SetFieldValue(field string, value interface{})
	SetFieldVisible(field string, visible bool)
	SetFieldEnabled(field string, enabled bool)
}

// ChangeResult is the outcome of a field change handler. A non-empty Err is
// a per-field validation message, surfaced inline and never thrown.
type ChangeResult struct {
	Value interface{}
	Err   string
}

// ChangeHandler intercepts a field value change.
type ChangeHandler func(value interface{}, data FormData, form FieldMutator) ChangeResult

// DeleteHook runs before a collection item is deleted. Returning an error
// aborts the deletion.
type DeleteHook func(item map[string]interface{}, data FormData) error

// BeforeSubmitHook runs before a form submission. Returning false cancels
// the submission; returning an error aborts it distinguishably (the two are
// separate outcomes in the submit result).
type BeforeSubmitHook func(ctx context.Context, data FormData, changes map[string]collection.Payload, input map[string]interface{}, form FieldMutator) (bool, error)

// SuccessAction tells the caller what to do after a successful submission.
type SuccessAction struct {
	Message    string
	NavigateTo string
	Action     string
}

// SuccessHook runs after a successful submission.
type SuccessHook func(result map[string]interface{}, form FieldMutator) *SuccessAction

// ErrorHook owns error presentation for a failed submission.
type ErrorHook func(err error, data FormData, form FieldMutator)

// Kind discriminates the customization shapes sharing one field map. The
// discriminant is fixed at registration time so lookups never need
// structural type guards.
type Kind int

const (
	KindField Kind = iota
	KindSection
	KindCollection
)

// FieldCustomization governs a single scalar/enum/relation field.
type FieldCustomization struct {
	Size     *Size
	Visible  Setting
	Enabled  Setting
	Order    *int
	StepID   string
	OnChange ChangeHandler
	// Renderer is an opaque token naming a custom renderer registered in the
	// consuming UI layer.
	Renderer string
}

// SectionCustomization governs an embedded object section. Sub-fields are
// addressed with dotted "section.field" keys and resolved independently of
// the section's own settings.
type SectionCustomization struct {
	Size     *Size
	Visible  Setting
	Enabled  Setting
	Order    *int
	StepID   string
	Renderer string
	Fields   map[string]*FieldCustomization
}

// ItemCustomization holds per-item field customizations for one collection
// mode (create or edit).
type ItemCustomization struct {
	Fields map[string]*FieldCustomization
}

// LegacyItemCustomization is the pre-collection-mode customization shape,
// kept so existing registrations keep resolving. It may nest per-mode item
// customizations, a flat field map, or directly carry an OnChange, in which
// case the record itself acts as a field customization.
type LegacyItemCustomization struct {
	OnCreate *ItemCustomization
	OnEdit   *ItemCustomization
	Fields   map[string]*FieldCustomization
	OnChange ChangeHandler
}

// CollectionCustomization governs an array-of-object field.
type CollectionCustomization struct {
	Visible  Setting
	Enabled  Setting
	Order    *int
	StepID   string
	OnCreate *ItemCustomization
	OnEdit   *ItemCustomization
	OnDelete DeleteHook
	// Renderer replaces the whole collection UI when set.
	Renderer string
	// LegacyItemTypes maps item type names to legacy-format customizations.
	LegacyItemTypes map[string]*LegacyItemCustomization
}

// Customization is the tagged union stored per field name.
type Customization struct {
	Kind       Kind
	Field      *FieldCustomization
	Section    *SectionCustomization
	Collection *CollectionCustomization
}

// FieldOf wraps a field customization.
func FieldOf(f *FieldCustomization) Customization {
	return Customization{Kind: KindField, Field: f}
}

// SectionOf wraps an embedded section customization.
func SectionOf(s *SectionCustomization) Customization {
	return Customization{Kind: KindSection, Section: s}
}

// CollectionOf wraps a collection customization.
func CollectionOf(c *CollectionCustomization) Customization {
	return Customization{Kind: KindCollection, Collection: c}
}

// Step is one step of a stepper-mode form.
type Step struct {
	ID    string
	Title string
}

// Config is the full customization record for one entity type and mode.
type Config struct {
	Fields map[string]Customization
	Mode   FormMode
	Steps  []Step

	BeforeSubmit BeforeSubmitHook
	OnSuccess    SuccessHook
	OnError      ErrorHook
}

// Stepper reports whether the config selects stepper display mode.
func (c *Config) Stepper() bool {
	return c != nil && c.Mode == FormStepper
}

func (c *Config) customization(name string) (Customization, bool) {
	if c == nil || c.Fields == nil {
		return Customization{}, false
	}
	cust, ok := c.Fields[name]
	return cust, ok
}

// common settings shared by all three customization shapes, used by the
// resolver so ordering and step filtering work uniformly.
func (cust Customization) order() *int {
	switch cust.Kind {
	case KindField:
		if cust.Field != nil {
			return cust.Field.Order
		}
	case KindSection:
		if cust.Section != nil {
			return cust.Section.Order
		}
	case KindCollection:
		if cust.Collection != nil {
			return cust.Collection.Order
		}
	}
	return nil
}

func (cust Customization) stepID() string {
	switch cust.Kind {
	case KindField:
		if cust.Field != nil {
			return cust.Field.StepID
		}
	case KindSection:
		if cust.Section != nil {
			return cust.Section.StepID
		}
	case KindCollection:
		if cust.Collection != nil {
			return cust.Collection.StepID
		}
	}
	return ""
}

func (cust Customization) visible() Setting {
	switch cust.Kind {
	case KindField:
		if cust.Field != nil {
			return cust.Field.Visible
		}
	case KindSection:
		if cust.Section != nil {
			return cust.Section.Visible
		}
	case KindCollection:
		if cust.Collection != nil {
			return cust.Collection.Visible
		}
	}
	return Setting{}
}

func (cust Customization) enabled() Setting {
	switch cust.Kind {
	case KindField:
		if cust.Field != nil {
			return cust.Field.Enabled
		}
	case KindSection:
		if cust.Section != nil {
			return cust.Section.Enabled
		}
	case KindCollection:
		if cust.Collection != nil {
			return cust.Collection.Enabled
		}
	}
	return Setting{}
}
