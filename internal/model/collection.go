package model

import (
	"errors"
	"path"

	"github.com/rs/zerolog"

	"github.com/agentic-research/annalist/internal/identifiers"
	"github.com/agentic-research/annalist/internal/jsonld"
	"github.com/agentic-research/annalist/internal/layout"
)

// Collection holds definitions and entity data. Definitions not found in the
// collection are looked up in the site data collection.
type Collection struct {
	site *Site
	meta *Entity
	log  zerolog.Logger
}

func newCollection(s *Site, meta *Entity) *Collection {
	return &Collection{
		site: s,
		meta: meta,
		log:  s.log.With().Str("coll", meta.ID()).Logger(),
	}
}

func (c *Collection) ID() string      { return c.meta.ID() }
func (c *Collection) Store() *Store   { return c.site.store }
func (c *Collection) Site() *Site     { return c.site }
func (c *Collection) Dir() string     { return layout.CollPath(c.ID()) }
func (c *Collection) URLPath() string { return c.site.URLPath() + CollectionKind.View(c.ID()) }
func (c *Collection) URL() string     { return c.site.BaseURI() + c.URLPath() }

// Meta returns the collection metadata record.
func (c *Collection) Meta() *Entity { return c.meta }

// Label returns the collection label, or its id.
func (c *Collection) Label() string { return c.meta.Label() }

// Logger returns the collection's logger.
func (c *Collection) Logger() *zerolog.Logger { return &c.log }

// IsSiteData reports whether c is the site data collection.
func (c *Collection) IsSiteData() bool { return c.ID() == layout.SitedataID }

func (c *Collection) entitySaved(e *Entity, opts SaveOptions) error {
	if !e.kind.AffectsContext || opts.DeferContext {
		return nil
	}
	return c.GenerateContext()
}

func (c *Collection) entityRemoved(e *Entity, opts SaveOptions) error {
	return c.entitySaved(e, opts)
}

func (c *Collection) siteData() (*Collection, error) {
	if c.IsSiteData() {
		return nil, nil
	}
	sd, err := c.site.SiteData()
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return sd, err
}

// Definition loads definition id of kind k, from the collection if present
// and otherwise from the site data. It returns (nil, nil) if neither has it.
func (c *Collection) Definition(k Kind, id string) (*Entity, error) {
	e, err := Load(c, k, id)
	if err != nil || e != nil {
		return e, err
	}
	sd, err := c.siteData()
	if err != nil || sd == nil {
		return nil, err
	}
	return Load(sd, k, id)
}

// DefinitionIDs returns the ids of definitions of kind k visible from c: the
// collection's own ids in order, then site data ids it does not override.
func (c *Collection) DefinitionIDs(k Kind) ([]string, error) {
	ids, err := c.ownIDs(k)
	if err != nil {
		return nil, err
	}
	sd, err := c.siteData()
	if err != nil || sd == nil {
		return ids, err
	}
	more, err := sd.ownIDs(k)
	if err != nil {
		return nil, err
	}
	own := make(map[string]bool, len(ids))
	for _, id := range ids {
		own[id] = true
	}
	for _, id := range more {
		if !own[id] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (c *Collection) ownIDs(k Kind) ([]string, error) {
	ids, err := ChildIDs(c, k)
	if err != nil {
		return nil, err
	}
	out := ids[:0]
	for _, id := range ids {
		if id != "_initial_values" {
			out = append(out, id)
		}
	}
	return out, nil
}

// Definitions loads every definition of kind k visible from c, in
// DefinitionIDs order.
func (c *Collection) Definitions(k Kind) ([]*Entity, error) {
	ids, err := c.DefinitionIDs(k)
	if err != nil {
		return nil, err
	}
	var out []*Entity
	for _, id := range ids {
		e, err := c.Definition(k, id)
		if err != nil {
			return nil, err
		}
		if e != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func (c *Collection) Type(id string) (*Entity, error)  { return c.Definition(TypeKind, id) }
func (c *Collection) View(id string) (*Entity, error)  { return c.Definition(ViewKind, id) }
func (c *Collection) List(id string) (*Entity, error)  { return c.Definition(ListKind, id) }
func (c *Collection) Field(id string) (*Entity, error) { return c.Definition(FieldKind, id) }
func (c *Collection) Group(id string) (*Entity, error) { return c.Definition(GroupKind, id) }
func (c *Collection) Vocab(id string) (*Entity, error) { return c.Definition(VocabKind, id) }

// ContextID names the collection in context generation warnings.
func (c *Collection) ContextID() string { return c.ID() }

// Vocabs returns the vocabulary prefixes visible from c.
func (c *Collection) Vocabs() ([]jsonld.Vocab, error) {
	defs, err := c.Definitions(VocabKind)
	if err != nil {
		return nil, err
	}
	out := make([]jsonld.Vocab, 0, len(defs))
	for _, d := range defs {
		out = append(out, jsonld.Vocab{ID: d.ID(), URI: d.String(identifiers.URI)})
	}
	return out, nil
}

// FieldLists returns the field lists of all visible views, then all visible
// groups.
func (c *Collection) FieldLists() ([]jsonld.FieldList, error) {
	var out []jsonld.FieldList
	for _, src := range []struct {
		kind Kind
		key  string
	}{
		{ViewKind, identifiers.ViewFields},
		{GroupKind, identifiers.GroupFields},
	} {
		defs, err := c.Definitions(src.kind)
		if err != nil {
			return nil, err
		}
		for _, d := range defs {
			fl := jsonld.FieldList{Kind: src.kind.Name, ID: d.ID()}
			for _, ref := range d.values.Objects(src.key) {
				fl.Fields = append(fl.Fields, jsonld.FieldRef{
					FieldID:     ref.String(identifiers.FieldID),
					PropertyURI: ref.String(identifiers.PropertyURI),
				})
			}
			out = append(out, fl)
		}
	}
	return out, nil
}

// ContextField returns the context-relevant part of field definition id.
func (c *Collection) ContextField(id string) (jsonld.Field, bool, error) {
	f, err := c.Field(id)
	if err != nil || f == nil {
		return jsonld.Field{}, false, err
	}
	return jsonld.Field{
		ID:          id,
		PropertyURI: f.String(identifiers.PropertyURI),
		RenderType:  f.String(identifiers.FieldRenderType),
		ValueMode:   f.String(identifiers.FieldValueMode),
	}, true, nil
}

// ContextPaths returns the context file locations written by GenerateContext:
// one beside the collection metadata, for definitions, and one at the root
// of the entity data tree.
func (c *Collection) ContextPaths() []string {
	return []string{
		path.Join(c.Dir(), layout.CollMetaDir, layout.CollContextFile),
		path.Join(c.Dir(), layout.CollEntityDataDir, layout.CollContextFile),
	}
}

// Context builds the collection's JSON-LD context without writing it.
func (c *Collection) Context() (map[string]any, error) {
	return jsonld.Build(contextSource{c}, c.log)
}

// GenerateContext rebuilds the JSON-LD context and overwrites the context
// files.
func (c *Collection) GenerateContext() error {
	ctx, err := c.Context()
	if err != nil {
		return err
	}
	data, err := jsonld.Encode(ctx)
	if err != nil {
		return err
	}
	for _, p := range c.ContextPaths() {
		if err := c.Store().WriteFile(p, data); err != nil {
			return err
		}
	}
	c.log.Debug().Msg("generated context")
	return nil
}

// contextSource adapts a Collection to jsonld.Source, whose Field method
// would otherwise clash with Collection.Field.
type contextSource struct{ *Collection }

func (s contextSource) Field(id string) (jsonld.Field, bool, error) { return s.ContextField(id) }
