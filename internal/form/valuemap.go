package form

import (
	"strconv"

	"github.com/agentic-research/annalist/internal/model"
)

// FormValues holds posted form values keyed by form field name.
type FormValues map[string]string

// ValueMap maps between entity values and one part of a form.
type ValueMap interface {
	// MapEntityToContext returns the rendering context entry for entity.
	MapEntityToContext(entity model.Values, extras map[string]any) Renderable
	// MapFormToEntity decodes the map's form fields into vals.
	MapFormToEntity(form FormValues, vals model.Values) model.Values
	// MapFormToEntityRepeatedItem decodes the map's form fields named with
	// prefix into vals, reporting whether any were present.
	MapFormToEntityRepeatedItem(form FormValues, vals model.Values, prefix string) bool

	mapEntity(entity model.Values, extras map[string]any, prefix string) Renderable
}

// FieldValueMap maps one field between an entity property and a form field.
type FieldValueMap struct {
	// F describes the field.
	F *FieldDescription
	// E is the entity property that receives the field value; empty when
	// the field is display only.
	E string
	// I is the form field name.
	I string
}

func NewFieldValueMap(desc *FieldDescription) *FieldValueMap {
	return &FieldValueMap{F: desc, E: desc.PropertyURI, I: desc.Name}
}

func (m *FieldValueMap) MapEntityToContext(entity model.Values, extras map[string]any) Renderable {
	return m.mapEntity(entity, extras, "")
}

func (m *FieldValueMap) mapEntity(entity model.Values, extras map[string]any, prefix string) Renderable {
	b := Bind(m.F, entity, extras)
	b.prefix = prefix
	return b
}

func (m *FieldValueMap) MapFormToEntity(form FormValues, vals model.Values) model.Values {
	if m.E != "" {
		m.F.Mapper.DecodeStore(form[m.I], vals, m.E)
	}
	return vals
}

func (m *FieldValueMap) MapFormToEntityRepeatedItem(form FormValues, vals model.Values, prefix string) bool {
	if m.E == "" {
		return false
	}
	v, ok := form[prefix+m.I]
	if !ok {
		return false
	}
	m.F.Mapper.DecodeStore(v, vals, m.E)
	return true
}

// RepeatValuesMap maps a repeating field group. The entity value is a list
// of objects; the form fields of item i are named "<name>__<i>__<field>".
type RepeatValuesMap struct {
	Repeat *FieldDescription
	Fields *FieldListValueMap
}

// RepeatPrefix returns the form field name prefix for item i of a repeat
// group.
func RepeatPrefix(prefix, name string, i int) string {
	return prefix + name + "__" + strconv.Itoa(i) + "__"
}

// RepeatField is the rendering context entry of a repeat group.
type RepeatField struct {
	*BoundField
	Items []RepeatItem
}

// RepeatItem is one repeated value of a group.
type RepeatItem struct {
	Index  int
	Prefix string
	Fields *FieldList
}

func (r *RepeatField) Context() map[string]any {
	m := r.BoundField.Context()
	items := make([]any, len(r.Items))
	for i, it := range r.Items {
		c := it.Fields.Context()
		c["repeat_index"] = it.Index
		c["repeat_prefix"] = it.Prefix
		items[i] = c
	}
	m["repeat_items"] = items
	return m
}

func (m *RepeatValuesMap) MapEntityToContext(entity model.Values, extras map[string]any) Renderable {
	return m.mapEntity(entity, extras, "")
}

func (m *RepeatValuesMap) mapEntity(entity model.Values, extras map[string]any, prefix string) Renderable {
	b := Bind(m.Repeat, entity, extras)
	b.prefix = prefix
	r := &RepeatField{BoundField: b}
	for i, item := range entity.Objects(m.Repeat.PropertyURI) {
		p := RepeatPrefix(prefix, m.Repeat.Name, i)
		r.Items = append(r.Items, RepeatItem{
			Index:  i,
			Prefix: p,
			Fields: m.Fields.mapFields(item, extras, p),
		})
	}
	return r
}

func (m *RepeatValuesMap) MapFormToEntity(form FormValues, vals model.Values) model.Values {
	if m.Repeat.PropertyURI != "" {
		vals[m.Repeat.PropertyURI] = m.items(form, "")
	}
	return vals
}

func (m *RepeatValuesMap) MapFormToEntityRepeatedItem(form FormValues, vals model.Values, prefix string) bool {
	if m.Repeat.PropertyURI == "" {
		return false
	}
	items := m.items(form, prefix)
	vals[m.Repeat.PropertyURI] = items
	return len(items) > 0
}

// items collects repeated values until an index has no form fields.
func (m *RepeatValuesMap) items(form FormValues, prefix string) []any {
	out := []any{}
	for i := 0; ; i++ {
		item, ok := m.Fields.MapFormToEntityRepeatedItems(form, RepeatPrefix(prefix, m.Repeat.Name, i))
		if !ok {
			return out
		}
		out = append(out, map[string]any(item))
	}
}

// FieldListValueMap maps the fields of a view, or of one repeat group, in
// order. Repeat groups expand to nested maps.
type FieldListValueMap struct {
	descs []*FieldDescription
	maps  []ValueMap
}

// NewFieldListValueMap builds the value map for a view's field list.
func NewFieldListValueMap(coll *model.Collection, fieldRefs []model.Values) (*FieldListValueMap, error) {
	descs := make([]*FieldDescription, 0, len(fieldRefs))
	for _, ref := range fieldRefs {
		d, err := FromViewField(coll, ref)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	return newFieldListValueMap(descs), nil
}

func newFieldListValueMap(descs []*FieldDescription) *FieldListValueMap {
	m := &FieldListValueMap{}
	props := NewPropertySet()
	for _, d := range descs {
		d = d.Copy()
		d.ResolveDuplicates(props)
		m.descs = append(m.descs, d)
		if d.IsRepeatGroup() {
			m.maps = append(m.maps, &RepeatValuesMap{Repeat: d, Fields: newFieldListValueMap(d.GroupDescs)})
		} else {
			m.maps = append(m.maps, NewFieldValueMap(d))
		}
	}
	return m
}

// Descriptions returns the field descriptions in order.
func (m *FieldListValueMap) Descriptions() []*FieldDescription { return m.descs }

// FieldList is the rendering context of a field list.
type FieldList struct {
	Fields []Renderable
}

func (l *FieldList) Context() map[string]any {
	fields := make([]any, len(l.Fields))
	for i, f := range l.Fields {
		fields[i] = f.Context()
	}
	return map[string]any{"fields": fields}
}

// MapEntityToContext returns one rendering entry per field, in order.
func (m *FieldListValueMap) MapEntityToContext(entity model.Values, extras map[string]any) *FieldList {
	return m.mapFields(entity, extras, "")
}

func (m *FieldListValueMap) mapFields(entity model.Values, extras map[string]any, prefix string) *FieldList {
	l := &FieldList{}
	for _, f := range m.maps {
		l.Fields = append(l.Fields, f.mapEntity(entity, extras, prefix))
	}
	return l
}

// MapFormToEntity assembles entity values from posted form values.
func (m *FieldListValueMap) MapFormToEntity(form FormValues) model.Values {
	vals := model.Values{}
	for _, f := range m.maps {
		f.MapFormToEntity(form, vals)
	}
	return vals
}

// MapFormToEntityRepeatedItems assembles the values of one repeated item from
// the form fields named with prefix. It reports false when no field has that
// prefix, which ends the item sequence.
func (m *FieldListValueMap) MapFormToEntityRepeatedItems(form FormValues, prefix string) (model.Values, bool) {
	vals := model.Values{}
	seen := false
	for _, f := range m.maps {
		if f.MapFormToEntityRepeatedItem(form, vals, prefix) {
			seen = true
		}
	}
	return vals, seen
}
