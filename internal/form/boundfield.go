package form

import (
	"maps"

	"github.com/agentic-research/annalist/internal/model"
)

// FieldValueKey is the context key for a bound field's entity value.
const FieldValueKey = "field_value"

// Renderable is one entry of a form rendering context.
type Renderable interface {
	Context() map[string]any
}

// BoundField pairs a field description with the entity values it renders.
// The field value is read from the entity only when asked for.
type BoundField struct {
	desc   *FieldDescription
	entity model.Values
	extras map[string]any
	prefix string
}

// Bind binds desc to entity. extras holds additional context values such as
// the enclosing view's ids.
func Bind(desc *FieldDescription, entity model.Values, extras map[string]any) *BoundField {
	return &BoundField{desc: desc, entity: entity, extras: extras}
}

func (b *BoundField) Description() *FieldDescription { return b.desc }

// Name returns the form field name, including any repeat prefix.
func (b *BoundField) Name() string { return b.prefix + b.desc.Name }

// Value returns the field's entity value, or its default value, or "".
func (b *BoundField) Value() any {
	if p := b.desc.PropertyURI; p != "" {
		if v, ok := b.entity[p]; ok {
			return v
		}
	}
	if b.desc.DefaultValue != nil {
		return b.desc.DefaultValue
	}
	return ""
}

// EditValue returns the value as a form input string.
func (b *BoundField) EditValue() string { return b.desc.Mapper.Encode(b.Value()) }

// Choice returns the selected choice of an enumerated field.
func (b *BoundField) Choice() (FieldChoice, bool) {
	return b.desc.Choices.Find(b.EditValue())
}

// Get looks up a context value: the computed field value, then the extra
// context values, then the field description.
func (b *BoundField) Get(key string) (any, bool) {
	switch key {
	case FieldValueKey:
		return b.Value(), true
	case "field_edit_value":
		return b.EditValue(), true
	case "field_name":
		return b.Name(), true
	}
	if v, ok := b.extras[key]; ok {
		return v, true
	}
	return b.desc.Get(key)
}

// Context returns every value available to a field template.
func (b *BoundField) Context() map[string]any {
	m := b.desc.Map()
	maps.Copy(m, b.extras)
	m["field_name"] = b.Name()
	m[FieldValueKey] = b.Value()
	m["field_edit_value"] = b.EditValue()
	if c, ok := b.Choice(); ok && c.Link != "" {
		m["field_value_link"] = c.Link
	}
	return m
}
