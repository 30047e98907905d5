package model

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentic-research/annalist/internal/identifiers"
	"github.com/agentic-research/annalist/internal/layout"
)

// Site is the root container of collections. It is identified by a base URI
// and the store holding its directory tree.
type Site struct {
	store   *Store
	baseURI string
	log     zerolog.Logger
}

// SiteOption configures a Site.
type SiteOption func(*Site)

// WithLogger sets the logger used by the site and its collections.
func WithLogger(l zerolog.Logger) SiteOption {
	return func(s *Site) { s.log = l }
}

// NewSite returns a site over store. baseURI is the absolute URI that entity
// URL paths are resolved against; a trailing slash is added if missing.
func NewSite(store *Store, baseURI string, opts ...SiteOption) *Site {
	if !strings.HasSuffix(baseURI, "/") {
		baseURI += "/"
	}
	s := &Site{store: store, baseURI: baseURI, log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Site) Store() *Store           { return s.store }
func (s *Site) Dir() string             { return "" }
func (s *Site) URLPath() string         { return "" }
func (s *Site) Site() *Site             { return s }
func (s *Site) BaseURI() string         { return s.baseURI }
func (s *Site) Logger() *zerolog.Logger { return &s.log }

func (s *Site) entitySaved(*Entity, SaveOptions) error   { return nil }
func (s *Site) entityRemoved(*Entity, SaveOptions) error { return nil }

// CollectionIDs returns the ids of all collections, including the site data
// collection.
func (s *Site) CollectionIDs() ([]string, error) {
	return ChildIDs(s, CollectionKind)
}

// Collections returns all user collections, excluding the site data
// collection.
func (s *Site) Collections() ([]*Collection, error) {
	ids, err := s.CollectionIDs()
	if err != nil {
		return nil, err
	}
	var out []*Collection
	for _, id := range ids {
		if id == layout.SitedataID {
			continue
		}
		c, err := s.Collection(id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Collection opens an existing collection. It returns ErrNotFound when the
// collection has no metadata file.
func (s *Site) Collection(id string) (*Collection, error) {
	e, err := Load(s, CollectionKind, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("collection %s: %w", id, ErrNotFound)
	}
	return newCollection(s, e), nil
}

// SiteData opens the reserved collection holding site-wide definitions.
func (s *Site) SiteData() (*Collection, error) {
	return s.Collection(layout.SitedataID)
}

// AddCollection creates a new collection with the given metadata values.
func (s *Site) AddCollection(id string, values Values) (*Collection, error) {
	if Exists(s, CollectionKind, id) {
		return nil, fmt.Errorf("collection %s: %w", id, ErrExists)
	}
	v := values.Clone()
	if v == nil {
		v = Values{}
	}
	v[identifiers.SoftwareVersion] = SoftwareVersion
	return s.CreateCollection(id, v)
}

// CreateCollection creates or replaces the metadata of collection id and
// generates its context.
func (s *Site) CreateCollection(id string, values Values) (*Collection, error) {
	e, err := Create(s, CollectionKind, id, values)
	if err != nil {
		return nil, err
	}
	c := newCollection(s, e)
	if err := c.GenerateContext(); err != nil {
		return nil, err
	}
	s.log.Info().Str("coll", id).Msg("created collection")
	return c, nil
}

// Default site data labels.
const (
	DefaultSiteLabel       = "Annalist linked data notebook site"
	DefaultSiteDescription = "Annalist site metadata and site-wide values."
)

// InitializeSite creates the site data collection of a new site, writes the
// site README and copies the built-in definitions from defs into it. defs
// holds one directory per definition kind, under either current or legacy
// names.
func InitializeSite(store *Store, baseURI string, defs iofs.FS, label, description string, opts ...SiteOption) (*Site, error) {
	s := NewSite(store, baseURI, opts...)
	if label == "" {
		label = DefaultSiteLabel
	}
	if description == "" {
		description = DefaultSiteDescription
	}
	now := time.Now().UTC().Truncate(time.Second)
	sd, err := Create(s, CollectionKind, layout.SitedataID, Values{
		identifiers.Label:           label,
		identifiers.Comment:         description,
		identifiers.AnnalComment:    "Initialized by annalist site init at " + now.Format(time.RFC3339),
		identifiers.SoftwareVersion: SoftwareVersion,
	})
	if err != nil {
		return nil, err
	}
	readme := fmt.Sprintf(siteReadme, s.baseURI, SoftwareVersion, now.Format(time.RFC3339))
	if err := store.WriteFile(layout.SiteReadmeFile, []byte(readme)); err != nil {
		return nil, err
	}
	if defs != nil {
		if err := CopyDefinitions(store, defs, layout.CollMetaPath(layout.SitedataID), nil); err != nil {
			return nil, err
		}
	}
	coll := newCollection(s, sd)
	if err := coll.GenerateContext(); err != nil {
		return nil, err
	}
	s.log.Info().Str("base_uri", s.baseURI).Msg("initialized site data")
	return s, nil
}

// CopyDefinitions merges each top-level directory of src into the metadata
// directory metaDir, renaming legacy directory names to current ones. When
// only is non-empty, directories whose current name is not listed are skipped.
func CopyDefinitions(store *Store, src iofs.FS, metaDir string, only []string) error {
	entries, err := iofs.ReadDir(src, ".")
	if err != nil {
		return fmt.Errorf("read definitions: %w", err)
	}
	for _, d := range entries {
		if !d.IsDir() {
			continue
		}
		name := layout.CurrDir(d.Name())
		if len(only) > 0 && !slices.Contains(only, name) {
			continue
		}
		if err := store.CopyFromFS(src, d.Name(), path.Join(metaDir, name)); err != nil {
			return err
		}
	}
	return nil
}

const siteReadme = `# Annalist site data

This directory contains Annalist site data for %s.

Directory layout:

    c/
      _annalist_site/
        _annalist_collection/       (site-wide definitions)
          coll_meta.jsonld          (site metadata)
          coll_context.jsonld       (JSON-LD context for site definitions)
          _enum/                    (enumerated type values)
          _field/                   (view-field definitions)
          _group/                   (field group definitions)
          _list/                    (entity list definitions)
          _type/                    (type definitions)
          _user/                    (user permissions)
          _view/                    (entity view definitions)
          _vocab/                   (vocabulary namespace definitions)
      (collection-id)/              (user-created data collection)
        _annalist_collection/       (collection definitions)
          coll_meta.jsonld          (collection metadata)
          coll_context.jsonld       (JSON-LD context for collection definitions)
          _type/(type-id)/type_meta.jsonld
          _list/(list-id)/list_meta.jsonld
          _view/(view-id)/view_meta.jsonld
          _field/(field-id)/field_meta.jsonld
          _group/(group-id)/group_meta.jsonld
          _user/(user-id)/user_meta.jsonld
          _vocab/(vocab-id)/vocab_meta.jsonld
        d/
          coll_context.jsonld       (JSON-LD context for entity data)
          (type-id)/                (all entity data for one type)
            (entity-id)/            (data for one entity)
              entity_data.jsonld    (entity data)
              entity_prov.jsonld    (entity provenance)
              (attachment files)    (uploaded or imported attachments)

Created by Annalist %s at %s.
`

// RemoveCollection deletes a collection and all its data. The site data
// collection cannot be removed.
func (s *Site) RemoveCollection(id string) error {
	if id == layout.SitedataID {
		return &IDError{Kind: "collection", ID: id}
	}
	if !Exists(s, CollectionKind, id) {
		return fmt.Errorf("collection %s: %w", id, ErrNotFound)
	}
	if err := Remove(s, CollectionKind, id); err != nil {
		return err
	}
	s.log.Info().Str("coll", id).Msg("removed collection")
	return nil
}
