// Package form maps entity values to form rendering contexts and posted form
// values back to entity values, driven by field, view and group definitions.
package form

import (
	"slices"
	"strconv"

	"github.com/agentic-research/annalist/internal/identifiers"
	"github.com/agentic-research/annalist/internal/model"
	"github.com/agentic-research/annalist/internal/rendertype"
)

// MissingFieldID names the definition used in place of a field that cannot
// be found.
const MissingFieldID = "Field_missing"

// Render types whose values are chosen from an enumeration.
var enumRenderTypes = []string{
	"EntityTypeId",
	"Type", "View", "List", "Field",
	"Enum", "Enum_optional", "Enum_choice",
}

// FieldDescription describes one field as it appears in a view or list.
type FieldDescription struct {
	ID           string
	Name         string
	InstanceName string
	RenderType   string
	ValueMode    string
	ValueType    string
	Label        string
	Help         string
	PropertyURI  string
	Placement    Placement
	Placeholder  string
	DefaultValue any

	RefType        string
	RefField       string
	RefRestriction string
	EntityType     string
	Choices        Choices

	GroupRef         string
	GroupID          string
	GroupLabel       string
	GroupAddLabel    string
	GroupDeleteLabel string
	GroupDescs       []*FieldDescription

	Mapper ValueMapper

	SuffixIndex int
	Suffix      string
}

// Options supplies the values a view's field reference may override, and
// the group a field expands to.
type Options struct {
	PropertyURI string
	Placement   string
	// Group holds the values of the field group the field displays, if any.
	Group model.Values
	// GroupIDsSeen lists the group fields being expanded, outermost first.
	GroupIDsSeen []string
}

// NewFieldDescription describes the field defined by values.
func NewFieldDescription(coll *model.Collection, values model.Values, opts Options) (*FieldDescription, error) {
	id := values.String(identifiers.ID)
	if id == "" {
		id = "_missing_id_"
	}
	name := values.String(identifiers.FieldName)
	if name == "" {
		name = id
	}
	prop := opts.PropertyURI
	if prop == "" {
		prop = values.String(identifiers.PropertyURI)
	}
	placement := opts.Placement
	if placement == "" {
		placement = values.String(identifiers.FieldPlacement)
	}
	render := identifiers.ExtractEntityID(values.String(identifiers.FieldRenderType))
	mode := identifiers.ExtractEntityID(values.String(identifiers.FieldValueMode))
	if mode == "" {
		mode = rendertype.ValueDirect
	}
	restriction := values.String(identifiers.FieldRefRestrict)
	if restriction == "" {
		restriction = model.SelectAll
	}

	d := &FieldDescription{
		ID:             id,
		Name:           name,
		InstanceName:   name,
		RenderType:     render,
		ValueMode:      mode,
		ValueType:      values.String(identifiers.FieldValueType),
		Label:          values.String(identifiers.Label),
		Help:           values.String(identifiers.Comment),
		PropertyURI:    prop,
		Placement:      ParsePlacement(placement),
		Placeholder:    values.String(identifiers.Placeholder),
		DefaultValue:   values[identifiers.DefaultValue],
		RefType:        model.RefID(values, identifiers.FieldRefType),
		RefField:       values.String(identifiers.FieldRefField),
		RefRestriction: restriction,
		EntityType:     values.String(identifiers.FieldEntityType),
		GroupRef:       model.RefID(values, identifiers.GroupRef),
		Mapper:         MapperFor(render, mode),
	}

	if d.RefType != "" {
		choices, err := fieldChoices(coll, d)
		if err != nil {
			return nil, err
		}
		d.Choices = choices
	}

	if opts.Group != nil {
		if slices.Contains(opts.GroupIDsSeen, id) {
			return nil, &ValidationError{Field: id, Message: "recursive field reference in field group"}
		}
		seen := append(slices.Clone(opts.GroupIDsSeen), id)
		d.GroupID = id
		d.GroupLabel = d.Label
		if d.GroupLabel == "" {
			d.GroupLabel = opts.Group.String(identifiers.Label)
		}
		if d.GroupLabel == "" {
			d.GroupLabel = d.GroupRef
		}
		d.GroupAddLabel = values.String(identifiers.RepeatLabelAdd)
		if d.GroupAddLabel == "" {
			d.GroupAddLabel = "Add " + id
		}
		d.GroupDeleteLabel = values.String(identifiers.RepeatLabelDelete)
		if d.GroupDeleteLabel == "" {
			d.GroupDeleteLabel = "Remove " + id
		}
		for _, ref := range opts.Group.Objects(identifiers.GroupFields) {
			sub, err := fromViewField(coll, ref, seen)
			if err != nil {
				return nil, err
			}
			d.GroupDescs = append(d.GroupDescs, sub)
		}
	}
	return d, nil
}

// FromViewField describes the field referenced by one entry of a view, list
// or group field list. The entry's property URI and placement, when present,
// override those of the field definition.
func FromViewField(coll *model.Collection, ref model.Values) (*FieldDescription, error) {
	return fromViewField(coll, ref, nil)
}

func fromViewField(coll *model.Collection, ref model.Values, seen []string) (*FieldDescription, error) {
	log := coll.Logger()
	fieldID := model.RefID(ref, identifiers.FieldID)
	if fieldID == "" {
		return nil, &ValidationError{Field: identifiers.FieldID, Message: "field reference has no field id"}
	}
	values, err := fieldValues(coll, fieldID)
	if err != nil {
		return nil, err
	}

	var group model.Values
	if groupRef := model.RefID(values, identifiers.GroupRef); groupRef != "" {
		g, err := coll.Group(groupRef)
		if err != nil {
			return nil, err
		}
		if g == nil {
			log.Error().Str("group", groupRef).Str("field", fieldID).Msg("field group not found")
		} else {
			group = g.StoredValues()
		}
	} else if _, ok := values[identifiers.GroupFields]; ok {
		group = values
	}

	return NewFieldDescription(coll, values, Options{
		PropertyURI:  ref.String(identifiers.PropertyURI),
		Placement:    ref.String(identifiers.FieldPlacement),
		Group:        group,
		GroupIDsSeen: seen,
	})
}

// fieldValues loads a field definition, substituting the missing-field
// definition when it does not exist.
func fieldValues(coll *model.Collection, fieldID string) (model.Values, error) {
	f, err := coll.Field(fieldID)
	if err != nil {
		return nil, err
	}
	if f != nil {
		return f.Values(), nil
	}
	coll.Logger().Warn().Str("field", fieldID).Msg("can't retrieve definition for field")
	f, err = coll.Field(MissingFieldID)
	if err != nil {
		return nil, err
	}
	if f != nil {
		return f.Values(), nil
	}
	return model.Values{
		identifiers.ID:              MissingFieldID,
		identifiers.Label:           "Missing field definition",
		identifiers.FieldRenderType: "Text",
		identifiers.FieldValueMode:  rendertype.ValueDirect,
		identifiers.Placeholder:     "(field definition " + fieldID + " not found)",
	}, nil
}

// fieldChoices enumerates the entities a reference field may select.
func fieldChoices(coll *model.Collection, d *FieldDescription) (Choices, error) {
	sel, err := model.ParseSelector(d.RefRestriction)
	if err != nil {
		coll.Logger().Warn().Err(err).Str("field", d.ID).Msg("field restriction ignored")
	}
	entities, err := model.NewEntityFinder(coll).All(model.FindOptions{
		TypeID:   d.RefType,
		Selector: sel,
		AltScope: true,
	})
	if err != nil {
		return nil, err
	}
	var out Choices
	if d.RenderType == "Enum_optional" || d.RenderType == "Enum_choice_opt" {
		out = append(out, FieldChoice{Label: d.Placeholder})
	}
	for _, e := range entities {
		if e.ID() == "_initial_values" {
			continue
		}
		val := e.TypeEntityID()
		out = append(out, NewFieldChoice(val, "", e.Label(), e.URLPath()))
	}
	return out, nil
}

// IsRepeatGroup reports whether the field displays a repeating group of
// values, each rendered with the group's fields.
func (d *FieldDescription) IsRepeatGroup() bool { return rendertype.IsRepeat(d.RenderType) }

// IsEnumField reports whether the field's value is chosen from the entities
// of RefType.
func (d *FieldDescription) IsEnumField() bool { return slices.Contains(enumRenderTypes, d.RenderType) }

// HasNewButton reports whether the field offers to create a new referenced
// entity.
func (d *FieldDescription) HasNewButton() bool { return d.RefType != "" }

func (d *FieldDescription) IsImportField() bool { return d.ValueMode == rendertype.ValueImport }
func (d *FieldDescription) IsUploadField() bool { return d.ValueMode == rendertype.ValueUpload }

// HasGroup reports whether the field expands to a group of fields.
func (d *FieldDescription) HasGroup() bool { return d.GroupID != "" }

// PropertySet records the form field names and property URIs used within one
// form context.
type PropertySet struct {
	names map[string]bool
	uris  map[string]bool
}

func NewPropertySet() *PropertySet {
	return &PropertySet{names: map[string]bool{}, uris: map[string]bool{}}
}

// ResolveDuplicates renames the field's form name and property URI with a
// "__N" suffix where they clash with fields already in props, then adds
// them to props.
func (d *FieldDescription) ResolveDuplicates(props *PropertySet) {
	if props.names[d.Name] || props.uris[d.PropertyURI] {
		i, suffix := 1, ""
		for props.names[d.Name+suffix] || props.uris[d.PropertyURI+suffix] {
			i++
			suffix = "__" + strconv.Itoa(i)
		}
		d.SuffixIndex = i
		d.Suffix = suffix
		if props.names[d.Name] {
			d.Name += suffix
		}
		if props.uris[d.PropertyURI] {
			d.PropertyURI += suffix
		}
	}
	props.names[d.Name] = true
	props.uris[d.PropertyURI] = true
}

// Copy returns a shallow copy of d.
func (d *FieldDescription) Copy() *FieldDescription {
	c := *d
	return &c
}

// Map returns the description as a template context mapping.
func (d *FieldDescription) Map() map[string]any {
	m := map[string]any{
		"field_id":              d.ID,
		"field_name":            d.Name,
		"field_instance_name":   d.InstanceName,
		"field_render_type":     d.RenderType,
		"field_value_mode":      d.ValueMode,
		"field_value_type":      d.ValueType,
		"field_label":           d.Label,
		"field_help":            d.Help,
		"field_property_uri":    d.PropertyURI,
		"field_placement":       d.Placement,
		"field_placeholder":     d.Placeholder,
		"field_default_value":   d.DefaultValue,
		"field_ref_type":        d.RefType,
		"field_ref_field":       d.RefField,
		"field_ref_restriction": d.RefRestriction,
		"field_entity_type":     d.EntityType,
		"field_group_ref":       d.GroupRef,
	}
	if d.Choices != nil {
		m["field_choices"] = d.Choices
	}
	if d.HasGroup() {
		m["group_id"] = d.GroupID
		m["group_label"] = d.GroupLabel
		m["group_add_label"] = d.GroupAddLabel
		m["group_delete_label"] = d.GroupDeleteLabel
	}
	return m
}

// Get returns one description value by its context key.
func (d *FieldDescription) Get(key string) (any, bool) {
	v, ok := d.Map()[key]
	return v, ok
}
