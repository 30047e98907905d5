package form

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/annalist/internal/identifiers"
	"github.com/agentic-research/annalist/internal/model"
)

func newTestColl(t *testing.T) *model.Collection {
	t.Helper()
	site, err := model.InitializeSite(model.MemStore(), "http://test.example.com/testsite/", nil, "", "")
	require.NoError(t, err)
	coll, err := site.AddCollection("testcoll", model.Values{})
	require.NoError(t, err)
	return coll
}

func define(t *testing.T, coll *model.Collection, k model.Kind, id string, v model.Values) {
	t.Helper()
	_, err := model.Create(coll, k, id, v)
	require.NoError(t, err)
}

func textField(t *testing.T, coll *model.Collection, id, prop string) {
	define(t, coll, model.FieldKind, id, model.Values{
		identifiers.PropertyURI:     prop,
		identifiers.FieldRenderType: "Text",
	})
}

func refs(ids ...string) []model.Values {
	out := make([]model.Values, len(ids))
	for i, id := range ids {
		out[i] = model.Values{identifiers.FieldID: "_field/" + id}
	}
	return out
}

func TestFieldValueMap_TextRoundTrip(t *testing.T) {
	coll := newTestColl(t)
	textField(t, coll, "Entity_label", identifiers.Label)

	desc, err := FromViewField(coll, refs("Entity_label")[0])
	require.NoError(t, err)
	m := NewFieldValueMap(desc)

	entity := model.Values{identifiers.Label: "A label with  spaces "}
	b := m.MapEntityToContext(entity, nil).(*BoundField)
	assert.Equal(t, "Entity_label", b.Name())

	form := FormValues{b.Name(): b.EditValue()}
	got := m.MapFormToEntity(form, model.Values{})
	assert.Equal(t, entity[identifiers.Label], got[identifiers.Label])
}

func TestBoundField_Get(t *testing.T) {
	coll := newTestColl(t)
	define(t, coll, model.FieldKind, "Note", model.Values{
		identifiers.PropertyURI:     "ex:note",
		identifiers.FieldRenderType: "Textarea",
		identifiers.Label:           "Note",
		identifiers.DefaultValue:    "nothing yet",
	})
	desc, err := FromViewField(coll, refs("Note")[0])
	require.NoError(t, err)

	b := Bind(desc, model.Values{}, map[string]any{"view_id": "Default_view"})
	v, ok := b.Get(FieldValueKey)
	require.True(t, ok)
	assert.Equal(t, "nothing yet", v)

	v, _ = b.Get("field_label")
	assert.Equal(t, "Note", v)
	v, _ = b.Get("view_id")
	assert.Equal(t, "Default_view", v)
	_, ok = b.Get("no_such_key")
	assert.False(t, ok)

	b = Bind(desc, model.Values{"ex:note": "written"}, nil)
	assert.Equal(t, "written", b.Context()[FieldValueKey])
}

func defineRepeat(t *testing.T, coll *model.Collection) {
	textField(t, coll, "Entity_label", identifiers.Label)
	textField(t, coll, "Item_name", "ex:name")
	define(t, coll, model.FieldKind, "Item_tags", model.Values{
		identifiers.PropertyURI:     "ex:tags",
		identifiers.FieldRenderType: "TokenSet",
	})
	define(t, coll, model.GroupKind, "Item_group", model.Values{
		identifiers.GroupFields: []any{
			map[string]any{identifiers.FieldID: "_field/Item_name"},
			map[string]any{identifiers.FieldID: "_field/Item_tags"},
		},
	})
	define(t, coll, model.FieldKind, "Items", model.Values{
		identifiers.PropertyURI:     "ex:items",
		identifiers.FieldRenderType: "Group_Seq",
		identifiers.GroupRef:        "_group/Item_group",
	})
}

func TestFieldListValueMap_RepeatGroup(t *testing.T) {
	coll := newTestColl(t)
	defineRepeat(t, coll)

	m, err := NewFieldListValueMap(coll, refs("Entity_label", "Items"))
	require.NoError(t, err)

	items := m.Descriptions()[1]
	assert.True(t, items.IsRepeatGroup())
	assert.Equal(t, "Add Items", items.GroupAddLabel)
	assert.Equal(t, "Remove Items", items.GroupDeleteLabel)
	require.Len(t, items.GroupDescs, 2)

	entity := model.Values{
		identifiers.Label: "Thing",
		"ex:items": []any{
			map[string]any{"ex:name": "a", "ex:tags": []any{"x", "y"}},
			map[string]any{"ex:name": "b", "ex:tags": []any{}},
		},
	}

	ctx := m.MapEntityToContext(entity, nil)
	require.Len(t, ctx.Fields, 2)
	rf, ok := ctx.Fields[1].(*RepeatField)
	require.True(t, ok)
	require.Len(t, rf.Items, 2)
	assert.Equal(t, "Items__1__", rf.Items[1].Prefix)
	sub := rf.Items[0].Fields.Fields[1].(*BoundField)
	assert.Equal(t, "Items__0__Item_tags", sub.Name())
	assert.Equal(t, "x y", sub.EditValue())

	rendered := ctx.Context()["fields"].([]any)
	assert.Len(t, rendered[1].(map[string]any)["repeat_items"], 2)

	form := FormValues{
		"Entity_label":        "Thing",
		"Items__0__Item_name": "a",
		"Items__0__Item_tags": "x y",
		"Items__1__Item_name": "b",
		"Items__1__Item_tags": "",
		// Item 3 is ignored since item 2 is absent.
		"Items__3__Item_name": "orphan",
	}
	assert.Equal(t, entity, m.MapFormToEntity(form))
}

func TestFieldListValueMap_NoRepeatItems(t *testing.T) {
	coll := newTestColl(t)
	defineRepeat(t, coll)
	m, err := NewFieldListValueMap(coll, refs("Items"))
	require.NoError(t, err)

	got := m.MapFormToEntity(FormValues{})
	assert.Equal(t, []any{}, got["ex:items"])

	_, ok := m.MapFormToEntityRepeatedItems(FormValues{"other": "x"}, "Items__0__")
	assert.False(t, ok)
}

func TestFieldListValueMap_Duplicates(t *testing.T) {
	coll := newTestColl(t)
	textField(t, coll, "Entity_label", identifiers.Label)

	m, err := NewFieldListValueMap(coll, refs("Entity_label", "Entity_label", "Entity_label"))
	require.NoError(t, err)
	d := m.Descriptions()
	assert.Equal(t, "Entity_label", d[0].Name)
	assert.Equal(t, "Entity_label__2", d[1].Name)
	assert.Equal(t, "rdfs:label__2", d[1].PropertyURI)
	assert.Equal(t, 2, d[1].SuffixIndex)
	assert.Equal(t, "Entity_label__3", d[2].Name)

	got := m.MapFormToEntity(FormValues{"Entity_label": "one", "Entity_label__2": "two"})
	assert.Equal(t, "one", got[identifiers.Label])
	assert.Equal(t, "two", got["rdfs:label__2"])
}

func TestFieldDescription_ViewOverrides(t *testing.T) {
	coll := newTestColl(t)
	define(t, coll, model.FieldKind, "Title", model.Values{
		identifiers.PropertyURI:     "ex:title",
		identifiers.FieldRenderType: "Text",
		identifiers.FieldPlacement:  "small:0,12",
	})
	desc, err := FromViewField(coll, model.Values{
		identifiers.FieldID:        "Title",
		identifiers.PropertyURI:    "dc:title",
		identifiers.FieldPlacement: "small:0,12;medium:0,6",
	})
	require.NoError(t, err)
	assert.Equal(t, "dc:title", desc.PropertyURI)
	assert.Equal(t, "small-12 medium-6 columns", desc.Placement.Field)
	assert.Equal(t, "ALL", desc.RefRestriction)
	assert.IsType(t, TextMapper{}, desc.Mapper)
}

func TestFieldDescription_MissingField(t *testing.T) {
	coll := newTestColl(t)
	desc, err := FromViewField(coll, refs("No_such_field")[0])
	require.NoError(t, err)
	assert.Equal(t, MissingFieldID, desc.ID)
	assert.Equal(t, "Missing field definition", desc.Label)
	assert.Contains(t, desc.Placeholder, "No_such_field")

	_, err = FromViewField(coll, model.Values{})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestFieldDescription_Choices(t *testing.T) {
	coll := newTestColl(t)
	colour := model.EnumType("_enum_colour")
	define(t, coll, colour, "red", model.Values{identifiers.Label: "Red"})
	define(t, coll, colour, "blue", model.Values{identifiers.Label: "Blue"})
	define(t, coll, colour, "_initial_values", model.Values{})
	define(t, coll, model.FieldKind, "Colour", model.Values{
		identifiers.PropertyURI:     "ex:colour",
		identifiers.FieldRenderType: "Enum_optional",
		identifiers.FieldRefType:    "_enum_colour",
		identifiers.Placeholder:     "(no colour)",
	})

	desc, err := FromViewField(coll, refs("Colour")[0])
	require.NoError(t, err)
	assert.True(t, desc.IsEnumField())
	assert.True(t, desc.HasNewButton())
	assert.Equal(t, []string{"", "_enum_colour/blue", "_enum_colour/red"}, desc.Choices.Values())
	assert.Equal(t, "(no colour)", desc.Choices[0].Label)
	assert.Equal(t, "Blue", desc.Choices[1].Label)
	assert.True(t, strings.HasSuffix(desc.Choices[1].Link, "d/_enum_colour/blue/"), desc.Choices[1].Link)

	b := Bind(desc, model.Values{"ex:colour": "_enum_colour/red"}, nil)
	c, ok := b.Choice()
	require.True(t, ok)
	assert.Equal(t, "Red", c.Label)
	assert.Equal(t, c.Link, b.Context()["field_value_link"])
}

func TestFieldDescription_RecursiveGroup(t *testing.T) {
	coll := newTestColl(t)
	define(t, coll, model.GroupKind, "Loop", model.Values{
		identifiers.GroupFields: []any{
			map[string]any{identifiers.FieldID: "_field/Looping"},
		},
	})
	define(t, coll, model.FieldKind, "Looping", model.Values{
		identifiers.PropertyURI:     "ex:loop",
		identifiers.FieldRenderType: "Group_Seq",
		identifiers.GroupRef:        "Loop",
	})

	_, err := NewFieldListValueMap(coll, refs("Looping"))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, "Looping", verr.Field)
}

func TestFieldChoice_Defaults(t *testing.T) {
	c := NewFieldChoice("id1", "", "", "link1")
	assert.Equal(t, FieldChoice{ID: "id1", Value: "id1", Label: "id1", Link: "link1"}, c)
	c = NewFieldChoice("id2", "value2", "", "")
	assert.Equal(t, "value2", c.Label)
	assert.Equal(t, "l", c.WithLink("l").Link)
}
