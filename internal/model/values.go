package model

import (
	"strings"

	"github.com/agentic-research/annalist/internal/identifiers"
	"github.com/agentic-research/annalist/internal/layout"
	"github.com/agentic-research/annalist/internal/rendertype"
)

// Values is an entity's property mapping, keyed by property CURIE.
type Values map[string]any

// String returns the string value of key, or "".
func (v Values) String(key string) string {
	s, _ := v[key].(string)
	return s
}

// List returns the list value of key, or nil.
func (v Values) List(key string) []any {
	l, _ := v[key].([]any)
	return l
}

// Objects returns the object members of the list value of key.
func (v Values) Objects(key string) []Values {
	var out []Values
	for _, item := range v.List(key) {
		switch m := item.(type) {
		case map[string]any:
			out = append(out, Values(m))
		case Values:
			out = append(out, m)
		}
	}
	return out
}

// Clone returns a deep copy of v.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = cloneValue(val)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Values(t).Clone())
	case Values:
		return map[string]any(t.Clone())
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = map[string]any(Values(item).Clone())
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out
	}
	return v
}

// IdentityKeys are computed on load and never written to the data file.
var IdentityKeys = []string{
	identifiers.URL,
	identifiers.URIHost,
	identifiers.URIPath,
}

// WithoutIdentity returns a copy of v with the fields that are recomputed on
// every load or save removed, for comparing entity content across
// collections.
func (v Values) WithoutIdentity() Values {
	out := v.Clone()
	for _, k := range IdentityKeys {
		delete(out, k)
	}
	for _, k := range []string{"@id", "@context", identifiers.ID, identifiers.TypeID, identifiers.URI} {
		delete(out, k)
	}
	return out
}

// SupertypeURIs returns the supertype URIs of a type definition in either the
// current or the pre-migration form.
func SupertypeURIs(v Values) []string {
	var out []string
	for _, st := range v.Objects(identifiers.SupertypeURI) {
		if u := st.String("@id"); u != "" {
			out = append(out, u)
		}
	}
	for _, st := range v.Objects(identifiers.SupertypeURIs) {
		if u := st.String(identifiers.SupertypeURI); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func migrateTypeValues(v Values) Values {
	if _, ok := v[identifiers.SupertypeURIs]; ok {
		sts := []any{}
		for _, st := range v.Objects(identifiers.SupertypeURIs) {
			if u := st.String(identifiers.SupertypeURI); u != "" {
				sts = append(sts, map[string]any{"@id": u})
			}
		}
		v[identifiers.SupertypeURI] = sts
		delete(v, identifiers.SupertypeURIs)
	}
	return v
}

var legacyFieldIDs = map[string]string{
	"Field_render": "Field_render_type",
	"Field_type":   "Field_value_type",
}

// migrateFieldRefs normalizes the field references in a view, list or group
// field list to "_field/<id>" form, renaming retired field ids.
func migrateFieldRefs(v Values, key string) Values {
	refs := v.List(key)
	for i, r := range refs {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		fid, _ := m[identifiers.FieldID].(string)
		if fid == "" {
			continue
		}
		id := identifiers.ExtractEntityID(fid)
		if n, ok := legacyFieldIDs[id]; ok {
			id = n
		}
		m[identifiers.FieldID] = identifiers.MakeTypeEntityID(layout.FieldTypeID, id)
		refs[i] = m
	}
	return v
}

func migrateListValues(v Values) Values  { return migrateFieldRefs(v, identifiers.ListFields) }
func migrateViewValues(v Values) Values  { return migrateFieldRefs(v, identifiers.ViewFields) }
func migrateGroupValues(v Values) Values { return migrateFieldRefs(v, identifiers.GroupFields) }

func migrateFieldValues(v Values) Values {
	renames := [][2]string{
		{identifiers.FieldRenderLegacy, identifiers.FieldRenderType},
		{identifiers.FieldTypeLegacy, identifiers.FieldValueType},
	}
	for _, r := range renames {
		if old, ok := v[r[0]]; ok {
			if _, exists := v[r[1]]; !exists {
				v[r[1]] = old
			}
			delete(v, r[0])
		}
	}
	if s := v.String(identifiers.FieldValueMode); s == "" {
		v[identifiers.FieldValueMode] = rendertype.ValueDirect
	}
	return v
}

// validateFieldValues rejects a field whose render type and value mode have no
// known value shape. A field without a render type is accepted.
func validateFieldValues(v Values) error {
	render := identifiers.ExtractEntityID(v.String(identifiers.FieldRenderType))
	if render == "" {
		return nil
	}
	mode := identifiers.ExtractEntityID(v.String(identifiers.FieldValueMode))
	_, err := rendertype.Classify(render, mode)
	return err
}

// RefID returns the entity id part of a reference-valued property, which may
// be stored as "type_id/id" or as a bare id.
func RefID(v Values, key string) string {
	return identifiers.ExtractEntityID(strings.TrimSpace(v.String(key)))
}
