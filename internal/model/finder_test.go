package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/annalist/internal/identifiers"
)

func populate(t *testing.T, coll *Collection) {
	t.Helper()
	for _, e := range []struct {
		typeID, id, name string
	}{
		{"Person", "alice", "Alice"},
		{"Person", "bob", "Bob"},
		{"Place", "paris", "Paris"},
	} {
		ti, err := NewEntityTypeInfo(coll, e.typeID, true)
		require.NoError(t, err)
		_, err = ti.CreateEntity(e.id, Values{"name": e.name, identifiers.Label: e.name})
		require.NoError(t, err)
	}
	mustCreate(t, coll, TypeKind, "Person", Values{identifiers.URI: "ex:Person"})
	mustCreate(t, coll, EnumType("_enum_mood"), "happy", Values{})
}

func ids(es []*Entity) []string {
	var out []string
	for _, e := range es {
		out = append(out, e.TypeEntityID())
	}
	return out
}

func TestEntityFinder_All(t *testing.T) {
	_, coll := newTestSite(t)
	populate(t, coll)
	f := NewEntityFinder(coll)

	types, err := f.TypeIDs(false)
	require.NoError(t, err)
	assert.Equal(t, []string{"_type", "_list", "_view", "_group", "_field", "_user", "_vocab", "_enum_mood", "Person", "Place"}, types)

	all, err := f.All(FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"_type/Person", "_enum_mood/happy", "Person/alice", "Person/bob", "Place/paris"}, ids(all))

	data, err := f.All(FindOptions{DataOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Person/alice", "Person/bob", "Place/paris"}, ids(data))

	// The sequence is restartable.
	again, err := f.All(FindOptions{DataOnly: true})
	require.NoError(t, err)
	assert.Equal(t, ids(data), ids(again))
}

func TestEntityFinder_Selector(t *testing.T) {
	_, coll := newTestSite(t)
	populate(t, coll)
	f := NewEntityFinder(coll)

	sel, err := ParseSelector("$[?(@.name == 'Bob')]")
	require.NoError(t, err)
	got, err := f.All(FindOptions{Selector: sel})
	require.NoError(t, err)
	assert.Equal(t, []string{"Person/bob"}, ids(got))

	all, err := ParseSelector("ALL")
	require.NoError(t, err)
	got, err = f.All(FindOptions{TypeID: "Person", Selector: all})
	require.NoError(t, err)
	assert.Equal(t, []string{"Person/alice", "Person/bob"}, ids(got))

	_, err = ParseSelector("$[?(@.name ==")
	assert.Error(t, err)
}

func TestEntityFinder_AltScope(t *testing.T) {
	site, coll := newTestSite(t)
	sd, err := site.SiteData()
	require.NoError(t, err)
	mustCreate(t, sd, TypeKind, "Default_type", Values{})
	mustCreate(t, coll, TypeKind, "Person", Values{})
	f := NewEntityFinder(coll)

	own, err := f.All(FindOptions{TypeID: "_type"})
	require.NoError(t, err)
	assert.Equal(t, []string{"_type/Person"}, ids(own))

	both, err := f.All(FindOptions{TypeID: "_type", AltScope: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"_type/Person", "_type/Default_type"}, ids(both))
}

func TestEntityFinder_StopsEarly(t *testing.T) {
	_, coll := newTestSite(t)
	populate(t, coll)
	n := 0
	for e, err := range NewEntityFinder(coll).Entities(FindOptions{DataOnly: true}) {
		require.NoError(t, err)
		require.NotNil(t, e)
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestEntityTypeInfo(t *testing.T) {
	_, coll := newTestSite(t)
	ti, err := NewEntityTypeInfo(coll, "Note", false)
	require.NoError(t, err)
	assert.True(t, ti.IsEntityData())
	assert.False(t, ti.TypedataExists())

	ti, err = NewEntityTypeInfo(coll, "Note", true)
	require.NoError(t, err)
	assert.True(t, ti.TypedataExists())
	assert.Equal(t, "c/testcoll/d/Note", ti.TypedataDir())

	id, err := ti.NewEntityID()
	require.NoError(t, err)
	assert.Equal(t, "00000001", id)
	_, err = ti.CreateEntity(id, Values{})
	require.NoError(t, err)
	id, err = ti.NewEntityID()
	require.NoError(t, err)
	assert.Equal(t, "00000002", id)

	assert.True(t, ti.EntityExists("00000001"))
	require.NoError(t, ti.RemoveEntity("00000001"))
	assert.False(t, ti.EntityExists("00000001"))

	mustCreate(t, coll, TypeKind, "Note", Values{identifiers.URI: "ex:Note"})
	uri, err := ti.TypeURI()
	require.NoError(t, err)
	assert.Equal(t, "ex:Note", uri)

	defs, err := NewEntityTypeInfo(coll, "_view", true)
	require.NoError(t, err)
	assert.False(t, defs.IsEntityData())
	assert.False(t, coll.Store().Exists("c/testcoll/d/_view"))

	_, err = NewEntityTypeInfo(coll, "bad type", false)
	assert.Error(t, err)
}
