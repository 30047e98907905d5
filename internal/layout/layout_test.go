package layout

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpand_SubstitutesKnownPlaceholders(t *testing.T) {
	got := Expand(CollEntityPath, Vars{"type_id": "Book", "id": "b1"})
	assert.Equal(t, "d/Book/b1", got)
}

func TestExpand_LeavesUnknownPlaceholders(t *testing.T) {
	partial := Expand(CollEnumPath, Vars{"type_id": "Enum_render_type"})
	assert.Equal(t, "_annalist_collection/_enum/Enum_render_type/%(id)s", partial)

	full := Expand(partial, Vars{"id": "Text"})
	assert.Equal(t, "_annalist_collection/_enum/Enum_render_type/Text", full)
}

func TestExpand_NoPlaceholders(t *testing.T) {
	assert.Equal(t, "plain/path", Expand("plain/path", nil))
	assert.Equal(t, "broken%(id", Expand("broken%(id", Vars{"id": "x"}))
}

func TestNew(t *testing.T) {
	l := New("/data")
	assert.Equal(t, filepath.Join("/data", "annalist_site"), l.SitePath)
	assert.Equal(t, filepath.Join("/data", "annalist_site", "c", "_annalist_site"), l.SitedataPath)
	assert.Equal(t,
		filepath.Join("/data", "annalist_site", "c", "_annalist_site", "_annalist_collection", "coll_context.jsonld"),
		l.SitedataContextDir)
}

func TestDirPairs(t *testing.T) {
	assert.Len(t, DataDirsCurrPrev, 6)
	assert.Len(t, CollDirsCurrPrev, 8)
	for _, p := range CollDirsCurrPrev {
		assert.Equal(t, p.Curr, CurrDir(p.Prev))
		assert.Equal(t, p.Prev, PrevDir(p.Curr))
	}
	assert.Equal(t, "d", CurrDir("d"))
}

func TestLegacyPath_RoundTrip(t *testing.T) {
	for _, tmpl := range []string{CollTypePath, CollListPath, CollViewPath, CollGroupPath, CollFieldPath, CollUserPath, CollVocabPath} {
		curr := Expand(tmpl, Vars{"id": "x"})
		prev := LegacyPath(curr)
		assert.NotEqual(t, curr, prev, tmpl)
		assert.Equal(t, curr, CurrentPath(prev))
	}
	assert.Equal(t, "_annalist_collection/types", LegacyPath("_annalist_collection/_type"))
	assert.Equal(t, "d/Book/b1", LegacyPath("d/Book/b1"))
}

func TestEntityPaths(t *testing.T) {
	assert.Equal(t, "c/coll1", CollPath("coll1"))
	assert.Equal(t, "c/coll1/_annalist_collection", CollMetaPath("coll1"))
	assert.Equal(t, "d/Book/b1", EntityPath("Book", "b1"))
	assert.Equal(t, "d/Book", TypedataPath("Book"))
	assert.Equal(t, "c/coll1/d/Book/b1/", SiteEntityURLPath("coll1", "Book", "b1"))
}
