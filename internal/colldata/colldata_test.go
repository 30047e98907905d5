package colldata

import (
	"os"
	"path"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/annalist/internal/identifiers"
	"github.com/agentic-research/annalist/internal/jsonld"
	"github.com/agentic-research/annalist/internal/model"
)

func newSite(t *testing.T) *model.Site {
	t.Helper()
	site, err := model.InitializeSite(model.MemStore(), "http://example.com/site/", nil, "", "")
	require.NoError(t, err)
	return site
}

func addColl(t *testing.T, site *model.Site, id string) *model.Collection {
	t.Helper()
	c, err := site.AddCollection(id, model.Values{identifiers.Label: id})
	require.NoError(t, err)
	return c
}

func TestInitialize(t *testing.T) {
	site := newSite(t)
	coll := addColl(t, site, "target")
	src := fstest.MapFS{
		"types/Book/type_meta.jsonld":  {Data: []byte(`{"annal:uri": "ex:Book"}`)},
		"_vocab/ex/vocab_meta.jsonld":  {Data: []byte(`{"annal:uri": "http://example.org/"}`)},
		"users/admin/user_meta.jsonld": {Data: []byte(`{}`)},
		"d/Book/b1/entity_data.jsonld": {Data: []byte(`{"rdfs:label": "A book"}`)},
		"README":                       {Data: []byte("ignored")},
	}

	msgs, err := Initialize(src, coll)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	store := coll.Store()
	assert.True(t, store.IsFile("c/target/_annalist_collection/_type/Book/type_meta.jsonld"))
	assert.False(t, store.Exists("c/target/_annalist_collection/types"))
	assert.False(t, store.Exists("c/target/_annalist_collection/_user/admin"))
	assert.False(t, store.Exists("c/target/_annalist_collection/users"))
	assert.True(t, store.IsFile("c/target/d/Book/b1/entity_data.jsonld"))

	data, err := store.ReadFile(coll.ContextPaths()[0])
	require.NoError(t, err)
	ctx, err := jsonld.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "http://example.org/", ctx["ex"])
}

func TestCopy(t *testing.T) {
	site := newSite(t)
	src := addColl(t, site, "src")
	tgt := addColl(t, site, "tgt")

	entities := []struct{ typeID, id string }{
		{"Person", "alice"}, {"Person", "bob"}, {"Place", "paris"}, {"Event", "e1"},
	}
	for _, e := range entities {
		ti, err := model.NewEntityTypeInfo(src, e.typeID, true)
		require.NoError(t, err)
		_, err = ti.CreateEntity(e.id, model.Values{
			identifiers.Label: e.id,
			"ex:refs":         []any{"Person/alice"},
		})
		require.NoError(t, err)
	}
	photo, err := model.Load(src, model.EntityDataKind("Person"), "alice")
	require.NoError(t, err)
	require.NoError(t, src.Store().WriteFile(path.Join(photo.Dir(), "photo.jpg"), []byte("jpeg")))

	msgs, err := Copy(src, tgt)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	got, err := model.NewEntityFinder(tgt).All(model.FindOptions{DataOnly: true})
	require.NoError(t, err)
	require.Len(t, got, len(entities))
	for _, e := range got {
		orig, err := model.Load(src, model.EntityDataKind(e.TypeID()), e.ID())
		require.NoError(t, err)
		require.NotNil(t, orig)
		assert.Equal(t, orig.Values().WithoutIdentity(), e.Values().WithoutIdentity(), e.TypeEntityID())
		assert.Contains(t, e.URL(), "/c/tgt/")
	}
	assert.True(t, tgt.Store().IsFile("c/tgt/d/Person/alice/photo.jpg"))
}

func TestCopy_ContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	store, err := model.OpenStore(dir)
	require.NoError(t, err)
	site, err := model.InitializeSite(store, "http://example.com/site/", nil, "", "")
	require.NoError(t, err)
	src := addColl(t, site, "src")
	tgt := addColl(t, site, "tgt")

	ids := []string{"alice", "bob", "carol"}
	ti, err := model.NewEntityTypeInfo(src, "Person", true)
	require.NoError(t, err)
	for _, id := range ids {
		_, err := ti.CreateEntity(id, model.Values{identifiers.Label: id})
		require.NoError(t, err)
	}

	// A plain file where bob's directory belongs.
	blocked := filepath.Join(dir, "c", "tgt", "d", "Person", "bob")
	require.NoError(t, os.MkdirAll(filepath.Dir(blocked), 0o755))
	require.NoError(t, os.WriteFile(blocked, []byte("in the way"), 0o644))

	msgs, err := Copy(src, tgt)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Person/bob")

	tgtTI, err := model.NewEntityTypeInfo(tgt, "Person", false)
	require.NoError(t, err)
	assert.True(t, tgtTI.EntityExists("alice"))
	assert.True(t, tgtTI.EntityExists("carol"))
	assert.False(t, tgtTI.EntityExists("bob"))
	assert.FileExists(t, filepath.Join(dir, filepath.FromSlash(tgt.ContextPaths()[0])))
}

func TestMigrate_RenamesLegacyDirs(t *testing.T) {
	site := newSite(t)
	coll := addColl(t, site, "old")
	store := coll.Store()
	require.NoError(t, store.WriteFile(
		"c/old/_annalist_collection/types/Book/type_meta.jsonld",
		[]byte(`{"annal:uri": "ex:Book", "annal:supertype_uris": [{"annal:supertype_uri": "ex:Work"}]}`),
	))
	require.NoError(t, store.WriteFile(
		"c/old/_annalist_collection/fields/f1/field_meta.jsonld",
		[]byte(`{"annal:property_uri": "ex:f1", "annal:field_render": "Enum"}`),
	))

	msgs, err := Migrate(coll)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.False(t, store.Exists("c/old/_annalist_collection/types"))
	assert.True(t, store.IsDir("c/old/_annalist_collection/_type"))

	raw, err := store.ReadJSON("c/old/_annalist_collection/_type/Book/type_meta.jsonld")
	require.NoError(t, err)
	assert.NotContains(t, raw, identifiers.SupertypeURIs)
	assert.Equal(t, []any{map[string]any{"@id": "ex:Work"}}, raw[identifiers.SupertypeURI])

	raw, err = store.ReadJSON("c/old/_annalist_collection/_field/f1/field_meta.jsonld")
	require.NoError(t, err)
	assert.Equal(t, "Enum", raw[identifiers.FieldRenderType])

	msgs, err = Migrate(coll)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMigrateDirs_StopsOnFailure(t *testing.T) {
	site := newSite(t)
	coll := addColl(t, site, "clash")
	store := coll.Store()
	// types/ and _type/ both present: the first rename fails and later
	// pairs are left alone.
	require.NoError(t, store.WriteFile("c/clash/_annalist_collection/types/A/type_meta.jsonld", []byte(`{}`)))
	require.NoError(t, store.WriteFile("c/clash/_annalist_collection/_type/B/type_meta.jsonld", []byte(`{}`)))
	require.NoError(t, store.WriteFile("c/clash/_annalist_collection/views/V/view_meta.jsonld", []byte(`{}`)))

	msgs := MigrateDirs(coll)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "types")
	assert.True(t, store.IsDir("c/clash/_annalist_collection/views"))
	assert.False(t, store.Exists("c/clash/_annalist_collection/_view"))
}
