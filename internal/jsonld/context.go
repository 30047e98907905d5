// Package jsonld builds the JSON-LD context document of a collection from its
// vocabulary, view, group and field definitions.
package jsonld

import (
	"fmt"
	"strings"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
	"github.com/rs/zerolog"

	"github.com/agentic-research/annalist/internal/identifiers"
	"github.com/agentic-research/annalist/internal/rendertype"
)

// Vocab is a namespace prefix declared by a vocabulary definition.
type Vocab struct {
	ID  string
	URI string
}

// FieldRef is one entry of a view or group field list. PropertyURI, when set,
// overrides the property of the referenced field.
type FieldRef struct {
	FieldID     string
	PropertyURI string
}

// FieldList is the field list of one view or group definition.
type FieldList struct {
	Kind   string // "view" or "group"
	ID     string
	Fields []FieldRef
}

// Field is the part of a field definition that determines its context entry.
type Field struct {
	ID          string
	PropertyURI string
	RenderType  string
	ValueMode   string
}

// Source supplies the definitions in scope for one collection. Slices must be
// returned in a stable order: the first definition seen for a property wins.
type Source interface {
	ContextID() string
	Vocabs() ([]Vocab, error)
	FieldLists() ([]FieldList, error)
	// Field returns the field definition for id, or false when none exists.
	Field(id string) (Field, bool, error)
}

// Fragment returns the context entry for a field: nil for literal and object
// values, otherwise an @type or @container hint.
func Fragment(f Field) (map[string]any, error) {
	render := identifiers.ExtractEntityID(f.RenderType)
	mode := identifiers.ExtractEntityID(f.ValueMode)
	class, err := rendertype.Classify(render, mode)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.ID, err)
	}
	switch class {
	case rendertype.ID:
		return map[string]any{"@type": "@id"}, nil
	case rendertype.Set:
		return map[string]any{"@container": "@set"}, nil
	case rendertype.List:
		return map[string]any{"@container": "@list"}, nil
	}
	return nil, nil
}

// Build returns the "@context" value for src.
func Build(src Source, log zerolog.Logger) (map[string]any, error) {
	ctx := map[string]any{
		identifiers.Type: map[string]any{"@type": "@id"},
	}
	vocabs, err := src.Vocabs()
	if err != nil {
		return nil, err
	}
	for _, v := range vocabs {
		if v.ID == "_initial_values" || v.URI == "" {
			continue
		}
		ctx[v.ID] = v.URI
	}

	lists, err := src.FieldLists()
	if err != nil {
		return nil, err
	}
	b := builder{ctx: ctx, seen: map[string]map[string]any{}, log: log, coll: src.ContextID()}
	for _, fl := range lists {
		for _, ref := range fl.Fields {
			fid := identifiers.ExtractEntityID(ref.FieldID)
			f, ok, err := src.Field(fid)
			if err != nil {
				return nil, err
			}
			if !ok {
				log.Warn().Str("coll", b.coll).Str(fl.Kind, fl.ID).Str("field", fid).Msg("field definition not found")
				continue
			}
			frag, err := Fragment(f)
			if err != nil {
				return nil, err
			}
			puri := ref.PropertyURI
			if puri == "" {
				puri = f.PropertyURI
			}
			b.set(puri, frag)
		}
	}
	return ctx, nil
}

type builder struct {
	ctx  map[string]any
	seen map[string]map[string]any
	log  zerolog.Logger
	coll string
}

// set records the fragment for puri unless one was already recorded, in which
// case an incompatible fragment is reported and dropped.
func (b *builder) set(puri string, frag map[string]any) {
	prefix, _, ok := strings.Cut(puri, ":")
	if !ok {
		return
	}
	if prev, done := b.seen[puri]; done {
		if !compatible(prev, frag) {
			b.log.Warn().
				Str("coll", b.coll).
				Str("property", puri).
				Interface("new", frag).
				Interface("kept", prev).
				Msg("incompatible use of property")
		}
		return
	}
	if _, known := b.ctx[prefix]; !known {
		switch prefix {
		case "http", "https", "file":
		default:
			return
		}
	}
	b.seen[puri] = frag
	if frag != nil {
		b.ctx[puri] = frag
	}
}

func compatible(a, b map[string]any) bool {
	return a["@type"] == b["@type"] && a["@container"] == b["@container"]
}

// Options is the encoding used for context files.
var Options = &ojg.Options{Indent: 2, Sort: true}

// Encode returns the context document {"@context": ctx} with sorted keys and a
// trailing newline.
func Encode(ctx map[string]any) ([]byte, error) {
	data, err := oj.Marshal(map[string]any{"@context": ctx}, Options)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Decode parses a context document and returns its "@context" value.
func Decode(data []byte) (map[string]any, error) {
	v, err := oj.Parse(data)
	if err != nil {
		return nil, err
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("context document is %T, not an object", v)
	}
	ctx, ok := doc["@context"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("context document has no @context object")
	}
	return ctx, nil
}
