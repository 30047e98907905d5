package form

import (
	"fmt"
	"strings"

	"github.com/agentic-research/annalist/internal/model"
	"github.com/agentic-research/annalist/internal/rendertype"
)

// ValueMapper converts between an entity value and its form representation.
type ValueMapper interface {
	// Encode returns the form string for an entity value.
	Encode(v any) string
	// Decode returns the entity value for a posted form string.
	Decode(s string) any
	// DecodeStore decodes s and stores the result under key.
	DecodeStore(s string, vals model.Values, key string)
}

// TextMapper passes strings through unchanged.
type TextMapper struct{}

func (TextMapper) Encode(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	return fmt.Sprint(v)
}

func (TextMapper) Decode(s string) any { return s }

func (m TextMapper) DecodeStore(s string, vals model.Values, key string) {
	vals[key] = m.Decode(s)
}

// TokenSetMapper maps a list of tokens to a space separated string.
type TokenSetMapper struct{}

func (TokenSetMapper) Encode(v any) string {
	switch t := v.(type) {
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, TextMapper{}.Encode(item))
		}
		return strings.Join(parts, " ")
	case []string:
		return strings.Join(t, " ")
	}
	return TextMapper{}.Encode(v)
}

func (TokenSetMapper) Decode(s string) any {
	out := []any{}
	for _, tok := range strings.Fields(s) {
		out = append(out, tok)
	}
	return out
}

func (m TokenSetMapper) DecodeStore(s string, vals model.Values, key string) {
	vals[key] = m.Decode(s)
}

// CheckBoxMapper maps a boolean to a checkbox value.
type CheckBoxMapper struct{}

func (CheckBoxMapper) Encode(v any) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	case string:
		if isYes(t) {
			return "Yes"
		}
	}
	return "No"
}

func (CheckBoxMapper) Decode(s string) any { return isYes(s) }

func (m CheckBoxMapper) DecodeStore(s string, vals model.Values, key string) {
	vals[key] = m.Decode(s)
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "on":
		return true
	}
	return false
}

// objectMapper stores the form string as one member of an object value.
type objectMapper struct {
	member string
}

// URIImportMapper maps an imported resource to its source URL.
var URIImportMapper ValueMapper = objectMapper{member: "import_url"}

// FileUploadMapper maps an uploaded resource to its upload field name.
var FileUploadMapper ValueMapper = objectMapper{member: "upload_name"}

func (m objectMapper) Encode(v any) string {
	switch t := v.(type) {
	case map[string]any:
		s, _ := t[m.member].(string)
		return s
	case model.Values:
		return t.String(m.member)
	}
	return TextMapper{}.Encode(v)
}

func (m objectMapper) Decode(s string) any {
	return map[string]any{m.member: s}
}

// DecodeStore keeps the other members of an existing object value when its
// source is unchanged.
func (m objectMapper) DecodeStore(s string, vals model.Values, key string) {
	if old, ok := vals[key].(map[string]any); ok && old[m.member] == s {
		return
	}
	vals[key] = m.Decode(s)
}

// MapperFor returns the value mapper for a render type and value mode.
func MapperFor(renderType, valueMode string) ValueMapper {
	switch rendertype.Effective(renderType, valueMode) {
	case "TokenSet":
		return TokenSetMapper{}
	case "CheckBox":
		return CheckBoxMapper{}
	case "URIImport":
		return URIImportMapper
	case "FileUpload":
		return FileUploadMapper
	}
	return TextMapper{}
}
