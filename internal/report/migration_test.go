package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/annalist/internal/identifiers"
	"github.com/agentic-research/annalist/internal/model"
)

type def struct {
	kind model.Kind
	id   string
	v    model.Values
}

func refs(ids ...string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = map[string]any{identifiers.FieldID: "_field/" + id}
	}
	return out
}

func build(t *testing.T, site *model.Site, id string, defs []def) *model.Collection {
	t.Helper()
	c, err := site.AddCollection(id, model.Values{})
	require.NoError(t, err)
	for _, d := range defs {
		_, err := model.Create(c, d.kind, d.id, d.v)
		require.NoError(t, err)
	}
	return c
}

func TestMigration(t *testing.T) {
	site, err := model.InitializeSite(model.MemStore(), "http://example.com/", nil, "", "")
	require.NoError(t, err)

	oldColl := build(t, site, "old", []def{
		{model.TypeKind, "Person", model.Values{identifiers.URI: "ex:Person"}},
		{model.FieldKind, "name", model.Values{identifiers.PropertyURI: "ex:name", identifiers.FieldRenderType: "Text"}},
		{model.ViewKind, "V", model.Values{identifiers.ViewFields: refs("name")}},
		{model.GroupKind, "G", model.Values{identifiers.GroupFields: []any{
			map[string]any{identifiers.FieldID: "_field/name", identifiers.PropertyURI: "ex:n"},
		}}},
	})
	newColl := build(t, site, "new", []def{
		{model.TypeKind, "Person", model.Values{identifiers.URI: "foaf:Person"}},
		{model.TypeKind, "Agent", model.Values{
			identifiers.URI:          "foaf:Agent",
			identifiers.SupertypeURI: []any{map[string]any{"@id": "ex:Person"}},
		}},
		{model.FieldKind, "name", model.Values{identifiers.PropertyURI: "foaf:name", identifiers.FieldRenderType: "Text"}},
		{model.FieldKind, "age", model.Values{identifiers.PropertyURI: "foaf:age", identifiers.FieldRenderType: "Text"}},
		{model.ViewKind, "V", model.Values{
			identifiers.ViewFields:    refs("name", "age"),
			identifiers.RecordTypeRef: "foaf:Person",
		}},
		{model.GroupKind, "G", model.Values{identifiers.GroupFields: []any{
			map[string]any{identifiers.FieldID: "_field/name", identifiers.PropertyURI: "foaf:n"},
		}}},
	})

	var out bytes.Buffer
	require.NoError(t, Migration(&out, oldColl, newColl))
	report := out.String()

	for _, line := range []string{
		"# Migration report from collection 'old' to 'new' #\n\n",
		"* Type Person, URI changed from 'ex:Person' to 'foaf:Person'\n",
		"    Consider adding supertype 'ex:Person' to type 'Person' in collection 'new'\n",
		"    URI 'ex:Person' appears as a supertype of type 'Agent'\n",
		"* Field name, property URI changed from 'ex:name' to 'foaf:name'\n",
		"    Consider adding property alias for 'ex:name' to type Person in collection 'new'\n",
		"* Group G, field name, property URI changed from 'ex:n' to 'foaf:n'\n",
		"* View V, field count changed from 1 to 2\n",
	} {
		assert.Contains(t, report, line)
	}
	assert.NotContains(t, report, "Type Agent")
	assert.NotContains(t, report, "Field age")
}

func TestMigration_NoChanges(t *testing.T) {
	site, err := model.InitializeSite(model.MemStore(), "http://example.com/", nil, "", "")
	require.NoError(t, err)
	defs := []def{{model.TypeKind, "Person", model.Values{identifiers.URI: "ex:Person"}}}
	a := build(t, site, "a", defs)
	b := build(t, site, "b", defs)

	var out bytes.Buffer
	require.NoError(t, Migration(&out, a, b))
	assert.Equal(t, "# Migration report from collection 'a' to 'b' #\n\n\n", out.String())
}
