package model

import (
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/annalist/internal/identifiers"
	"github.com/agentic-research/annalist/internal/layout"
)

func TestEntity_CreateExistsLoad(t *testing.T) {
	_, coll := newTestSite(t)
	k := EntityDataKind("Person")
	values := Values{
		identifiers.Label: "Alice",
		"ex:knows":        []any{"Person/bob"},
	}

	_, err := Create(coll, k, "alice", values)
	require.NoError(t, err)
	assert.True(t, Exists(coll, k, "alice"))

	e, err := Load(coll, k, "alice")
	require.NoError(t, err)
	require.NotNil(t, e)

	got := e.Values()
	for key, want := range values {
		assert.Equal(t, want, got[key], key)
	}
	assert.Equal(t, "alice", got[identifiers.ID])
	assert.Equal(t, "Person", got[identifiers.TypeID])
	assert.Equal(t, identifiers.EntityData, got[identifiers.Type])
	url := "http://test.example.com/testsite/c/testcoll/d/Person/alice/"
	assert.Equal(t, url, got[identifiers.URL])
	assert.Equal(t, url, got[identifiers.URI])
	assert.Equal(t, "test.example.com", got[identifiers.URIHost])
	assert.Equal(t, "/testsite/c/testcoll/d/Person/alice/", got[identifiers.URIPath])
}

func TestEntity_StoredLayout(t *testing.T) {
	_, coll := newTestSite(t)
	e := mustCreate(t, coll, EntityDataKind("Person"), "alice", Values{identifiers.Label: "Alice"})
	store := coll.Store()

	assert.Equal(t, "c/testcoll/d/Person/alice/entity_data.jsonld", e.DataPath())
	assert.True(t, store.IsFile("c/testcoll/d/Person/alice/entity_prov.jsonld"))

	data, err := store.ReadJSON(e.DataPath())
	require.NoError(t, err)
	assert.Equal(t, "./", data["@id"])
	assert.Equal(t, []any{map[string]any{"@base": "../../"}, "../../coll_context.jsonld"}, data["@context"])
	assert.NotContains(t, data, identifiers.URL)
	assert.NotContains(t, data, identifiers.URIHost)

	prov, err := store.ReadJSON(e.ProvPath())
	require.NoError(t, err)
	assert.Equal(t, "annalist", prov[identifiers.SavedBy])
	assert.Equal(t, SoftwareVersion, prov[identifiers.SoftwareVersion])
}

func TestEntity_LoadMissing(t *testing.T) {
	_, coll := newTestSite(t)
	e, err := Load(coll, EntityDataKind("Person"), "nobody")
	assert.NoError(t, err)
	assert.Nil(t, e)
	assert.False(t, Exists(coll, EntityDataKind("Person"), "nobody"))

	e, err = Load(coll, EntityDataKind("Person"), "../escape")
	assert.NoError(t, err)
	assert.Nil(t, e)
}

func TestEntity_InvalidID(t *testing.T) {
	_, coll := newTestSite(t)
	for _, id := range []string{"", "has space", "a/b", "dot.ted"} {
		_, err := Create(coll, EntityDataKind("Person"), id, Values{})
		var idErr *IDError
		require.True(t, errors.As(err, &idErr), id)
		assert.Equal(t, id, idErr.ID)
	}
}

func TestEntity_Remove(t *testing.T) {
	_, coll := newTestSite(t)
	k := EntityDataKind("Person")
	e := mustCreate(t, coll, k, "alice", Values{})
	require.NoError(t, coll.Store().WriteFile(path.Join(e.Dir(), "photo.jpg"), []byte("jpeg")))

	require.NoError(t, Remove(coll, k, "alice"))
	assert.False(t, Exists(coll, k, "alice"))
	assert.False(t, coll.Store().Exists(e.Dir()))

	assert.NoError(t, Remove(coll, k, "alice"))
}

func TestEntity_LegacyDataFilename(t *testing.T) {
	_, coll := newTestSite(t)
	store := coll.Store()
	old := "c/testcoll/d/Note/n1/" + layout.EntityOldDataFile
	require.NoError(t, store.WriteFile(old, []byte(`{"rdfs:label": "old note"}`)))

	k := EntityDataKind("Note")
	assert.True(t, Exists(coll, k, "n1"))
	e, err := Load(coll, k, "n1")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "old note", e.Label())
	assert.False(t, store.Exists(old))
	assert.True(t, store.IsFile("c/testcoll/d/Note/n1/entity_data.jsonld"))
}

func TestEntity_LegacyDefinitionDir(t *testing.T) {
	_, coll := newTestSite(t)
	store := coll.Store()
	require.NoError(t, store.WriteFile(
		"c/testcoll/_annalist_collection/types/Book/type_meta.jsonld",
		[]byte(`{"annal:uri": "ex:Book", "annal:supertype_uris": [{"annal:supertype_uri": "ex:Work"}]}`),
	))

	ids, err := ChildIDs(coll, TypeKind)
	require.NoError(t, err)
	assert.Equal(t, []string{"Book"}, ids)

	e, err := Load(coll, TypeKind, "Book")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, []string{"ex:Work"}, SupertypeURIs(e.StoredValues()))
	assert.NotContains(t, e.StoredValues(), identifiers.SupertypeURIs)
	assert.Equal(t, []any{map[string]any{"@id": "ex:Work"}}, e.Get(identifiers.SupertypeURI))
}

func TestEntity_FieldMigration(t *testing.T) {
	_, coll := newTestSite(t)
	e := mustCreate(t, coll, FieldKind, "f1", Values{
		identifiers.FieldRenderLegacy: "Text",
		identifiers.PropertyURI:       "ex:f1",
	})
	v := e.StoredValues()
	assert.Equal(t, "Text", v[identifiers.FieldRenderType])
	assert.NotContains(t, v, identifiers.FieldRenderLegacy)
	assert.Equal(t, "Value_direct", v[identifiers.FieldValueMode])

	view := mustCreate(t, coll, ViewKind, "v1", Values{
		identifiers.ViewFields: []any{
			map[string]any{identifiers.FieldID: "Field_render"},
			map[string]any{identifiers.FieldID: "f1"},
		},
	})
	refs := view.StoredValues().Objects(identifiers.ViewFields)
	require.Len(t, refs, 2)
	assert.Equal(t, "_field/Field_render_type", refs[0].String(identifiers.FieldID))
	assert.Equal(t, "_field/f1", refs[1].String(identifiers.FieldID))
}

func TestEnumType_PathsDifferOnlyByType(t *testing.T) {
	a := EnumType("_enum_colour")
	b := EnumType("_enum_shape")

	assert.Equal(t, "_annalist_collection/_enum/_enum_colour/red", a.Dir("red"))
	assert.Equal(t, "_annalist_collection/_enum/_enum_shape/red", b.Dir("red"))
	assert.Equal(t, "d/_enum_colour/red/", a.View("red"))
	assert.Equal(t, "d/_enum_shape/red/", b.View("red"))

	_, coll := newTestSite(t)
	mustCreate(t, coll, a, "red", Values{identifiers.Label: "Red"})
	mustCreate(t, coll, b, "round", Values{identifiers.Label: "Round"})

	aIDs, err := ChildIDs(coll, a)
	require.NoError(t, err)
	bIDs, err := ChildIDs(coll, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"red"}, aIDs)
	assert.Equal(t, []string{"round"}, bIDs)
	assert.Equal(t, a, KindFor("_enum_colour"))
}

func TestEntity_ConcurrentSaves(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	require.NoError(t, err)
	site, err := InitializeSite(store, testBaseURI, nil, "", "")
	require.NoError(t, err)
	coll, err := site.AddCollection("testcoll", Values{})
	require.NoError(t, err)
	k := EntityDataKind("Counter")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := Create(coll, k, "c1", Values{"ex:n": float64(n)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	e, err := Load(coll, k, "c1")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Contains(t, e.StoredValues(), "ex:n")
}

func TestStore_MemoryLocksReleased(t *testing.T) {
	store := MemStore()
	unlock, err := store.Lock("c/x/d/T/a")
	require.NoError(t, err)
	assert.Len(t, store.locks, 1)

	acquired := make(chan func())
	go func() {
		u, err := store.Lock("c/x/d/T/a")
		assert.NoError(t, err)
		acquired <- u
	}()
	select {
	case <-acquired:
		t.Fatal("lock acquired while held")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	(<-acquired)()
	assert.Empty(t, store.locks)

	site, err := InitializeSite(store, testBaseURI, nil, "", "")
	require.NoError(t, err)
	coll, err := site.AddCollection("testcoll", Values{})
	require.NoError(t, err)
	k := EntityDataKind("Person")
	mustCreate(t, coll, k, "alice", Values{})
	require.NoError(t, Remove(coll, k, "alice"))
	assert.Empty(t, store.locks)
}

func TestEntity_CopyFilesFrom(t *testing.T) {
	_, coll := newTestSite(t)
	k := EntityDataKind("Image")
	src := mustCreate(t, coll, k, "img1", Values{})
	require.NoError(t, coll.Store().WriteFile(path.Join(src.Dir(), "pic.png"), []byte("png")))
	dst := mustCreate(t, coll, k, "img2", Values{})

	assert.Empty(t, dst.CopyFilesFrom(src))
	data, err := coll.Store().ReadFile(path.Join(dst.Dir(), "pic.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	assert.Equal(t, "img2", func() string {
		v, _ := coll.Store().ReadJSON(dst.DataPath())
		return v.String(identifiers.ID)
	}())
}
