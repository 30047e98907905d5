package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentic-research/annalist/internal/identifiers"
)

const testBaseURI = "http://test.example.com/testsite/"

// newTestSite returns an in-memory site with site data and one empty
// collection "testcoll".
func newTestSite(t *testing.T) (*Site, *Collection) {
	t.Helper()
	site, err := InitializeSite(MemStore(), testBaseURI, nil, "", "")
	require.NoError(t, err)
	coll, err := site.AddCollection("testcoll", Values{identifiers.Label: "Test collection"})
	require.NoError(t, err)
	return site, coll
}

func fieldRefs(ids ...string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = map[string]any{identifiers.FieldID: "_field/" + id}
	}
	return out
}

func mustCreate(t *testing.T, p Parent, k Kind, id string, v Values) *Entity {
	t.Helper()
	e, err := Create(p, k, id, v)
	require.NoError(t, err)
	return e
}
