package model

import (
	"fmt"
	"net/url"
	"path"
	"sort"
	"time"

	"github.com/agentic-research/annalist/internal/identifiers"
	"github.com/agentic-research/annalist/internal/layout"
)

// SoftwareVersion is recorded in provenance files.
const SoftwareVersion = "0.5.18"

// Parent is a container that records are stored under: a Site holds
// collections and a Collection holds everything else.
type Parent interface {
	Store() *Store
	// Dir is the parent's directory relative to the site root.
	Dir() string
	// URLPath is the parent's URL path relative to the site base URI.
	URLPath() string
	Site() *Site

	entitySaved(e *Entity, opts SaveOptions) error
	entityRemoved(e *Entity, opts SaveOptions) error
}

// SaveOptions controls side effects of saving a record.
type SaveOptions struct {
	// DeferContext skips regenerating the collection context after saving a
	// definition. The caller is then responsible for regenerating it.
	DeferContext bool
}

// Entity is one stored record of any kind.
type Entity struct {
	parent Parent
	kind   Kind
	id     string
	dir    string
	values Values
}

func newEntity(p Parent, k Kind, id, dir string, values Values) *Entity {
	return &Entity{parent: p, kind: k, id: id, dir: dir, values: values}
}

func (e *Entity) ID() string     { return e.id }
func (e *Entity) TypeID() string { return e.kind.TypeID }
func (e *Entity) Kind() Kind     { return e.kind }
func (e *Entity) Parent() Parent { return e.parent }

// Dir returns the record directory relative to the site root.
func (e *Entity) Dir() string { return e.dir }

// DataPath returns the data file path relative to the site root.
func (e *Entity) DataPath() string { return path.Join(e.dir, e.kind.MetaFile) }

// ProvPath returns the provenance file path relative to the site root.
func (e *Entity) ProvPath() string { return path.Join(e.dir, e.kind.ProvFile) }

// URLPath returns the record's view path relative to the site base URI.
func (e *Entity) URLPath() string { return e.parent.URLPath() + e.kind.View(e.id) }

// URL returns the absolute URL of the record's view.
func (e *Entity) URL() string { return e.parent.Site().BaseURI() + e.URLPath() }

// TypeEntityID returns the "type_id/entity_id" reference for the record.
func (e *Entity) TypeEntityID() string {
	return identifiers.MakeTypeEntityID(e.kind.TypeID, e.id)
}

// Values returns a copy of the record's values with the identity fields
// computed from its location.
func (e *Entity) Values() Values {
	v := e.values.Clone()
	if v == nil {
		v = Values{}
	}
	v[identifiers.ID] = e.id
	v[identifiers.TypeID] = e.kind.TypeID
	if v.String(identifiers.Type) == "" {
		v[identifiers.Type] = e.kind.EntityType
	}
	u := e.URL()
	v[identifiers.URL] = u
	if v.String(identifiers.URI) == "" {
		v[identifiers.URI] = u
	}
	if pu, err := url.Parse(u); err == nil {
		v[identifiers.URIHost] = pu.Host
		v[identifiers.URIPath] = pu.Path
	}
	return v
}

// StoredValues returns a copy of the values as written to the data file.
func (e *Entity) StoredValues() Values { return e.values.Clone() }

// Get returns one stored value.
func (e *Entity) Get(key string) any { return e.values[key] }

// String returns one stored string value, or "".
func (e *Entity) String(key string) string { return e.values.String(key) }

// Label returns the record's rdfs:label, falling back to its id.
func (e *Entity) Label() string {
	if l := e.values.String(identifiers.Label); l != "" {
		return l
	}
	return e.id
}

// SetValues replaces the record's values. Identity fields are recomputed on
// the next save.
func (e *Entity) SetValues(v Values) { e.values = v.Clone() }

// Save writes the record's data and provenance files and notifies the parent.
func (e *Entity) Save(opts SaveOptions) error {
	vals := e.values.Clone()
	if vals == nil {
		vals = Values{}
	}
	for _, k := range IdentityKeys {
		delete(vals, k)
	}
	vals["@id"] = "./"
	vals[identifiers.ID] = e.id
	vals[identifiers.TypeID] = e.kind.TypeID
	if vals.String(identifiers.Type) == "" {
		vals[identifiers.Type] = e.kind.EntityType
	}
	vals["@context"] = []any{
		map[string]any{"@base": e.kind.BaseRef},
		e.kind.ContextRef,
	}
	if e.kind.Migrate != nil {
		vals = e.kind.Migrate(vals)
	}
	if e.kind.Validate != nil {
		if err := e.kind.Validate(vals); err != nil {
			return fmt.Errorf("%s %s: %w", e.kind.Name, e.id, err)
		}
	}

	store := e.parent.Store()
	unlock, err := store.Lock(e.dir)
	if err != nil {
		return err
	}
	defer unlock()
	if err := store.WriteJSON(e.DataPath(), vals); err != nil {
		return err
	}
	prov := map[string]any{
		"@id":                       "./",
		identifiers.ID:              e.id,
		identifiers.TypeID:          e.kind.TypeID,
		identifiers.SavedBy:         "annalist",
		identifiers.SavedAt:         time.Now().UTC().Format(time.RFC3339),
		identifiers.SoftwareVersion: SoftwareVersion,
	}
	if err := store.WriteJSON(e.ProvPath(), prov); err != nil {
		return err
	}
	e.values = vals
	return e.parent.entitySaved(e, opts)
}

// CopyFilesFrom copies attachment files from src's directory into e's
// directory. Data and provenance files are skipped. It returns one message
// per file that could not be copied.
func (e *Entity) CopyFilesFrom(src *Entity) []string {
	srcStore := src.parent.Store()
	infos, err := srcStore.ReadDir(src.dir)
	if err != nil {
		return []string{fmt.Sprintf("Error reading attachments of %s: %v", src.TypeEntityID(), err)}
	}
	skip := map[string]bool{
		src.kind.MetaFile:        true,
		src.kind.ProvFile:        true,
		layout.EntityOldDataFile: true,
	}
	var msgs []string
	for _, fi := range infos {
		if fi.IsDir() || skip[fi.Name()] {
			continue
		}
		from := path.Join(src.dir, fi.Name())
		to := path.Join(e.dir, fi.Name())
		if err := e.parent.Store().CopyFile(srcStore, from, to); err != nil {
			msgs = append(msgs, fmt.Sprintf("Error copying file %s from %s to %s: %v", fi.Name(), src.dir, e.dir, err))
		}
	}
	return msgs
}

// locate returns the directory holding id, trying the current layout first
// and then the pre-migration one.
func locate(p Parent, k Kind, id string) (string, bool) {
	if !ValidID(id) {
		return "", false
	}
	store := p.Store()
	dir := path.Join(p.Dir(), k.Dir(id))
	if store.IsDir(dir) {
		return dir, true
	}
	if legacy := k.LegacyDirPath(id); legacy != "" {
		ldir := path.Join(p.Dir(), legacy)
		if store.IsDir(ldir) {
			return ldir, true
		}
	}
	return dir, false
}

func migrateFilename(store *Store, dir string, k Kind) error {
	if !k.MigrateFilenames {
		return nil
	}
	cur := path.Join(dir, k.MetaFile)
	old := path.Join(dir, layout.EntityOldDataFile)
	if !store.IsFile(cur) && store.IsFile(old) {
		return store.Rename(old, cur)
	}
	return nil
}

// Load reads record id of kind k from p. A record that does not exist yields
// (nil, nil).
func Load(p Parent, k Kind, id string) (*Entity, error) {
	dir, ok := locate(p, k, id)
	if !ok {
		return nil, nil
	}
	store := p.Store()
	if err := migrateFilename(store, dir, k); err != nil {
		return nil, err
	}
	dataPath := path.Join(dir, k.MetaFile)
	if !store.IsFile(dataPath) {
		return nil, nil
	}
	vals, err := store.ReadJSON(dataPath)
	if err != nil {
		return nil, err
	}
	if k.Migrate != nil {
		vals = k.Migrate(vals)
	}
	return newEntity(p, k, id, dir, vals), nil
}

// Exists reports whether record id of kind k has a data file under p.
func Exists(p Parent, k Kind, id string) bool {
	dir, ok := locate(p, k, id)
	if !ok {
		return false
	}
	store := p.Store()
	if store.IsFile(path.Join(dir, k.MetaFile)) {
		return true
	}
	return k.MigrateFilenames && store.IsFile(path.Join(dir, layout.EntityOldDataFile))
}

// Create writes a new record, or replaces an existing one, with the given
// values and returns it.
func Create(p Parent, k Kind, id string, values Values) (*Entity, error) {
	return create(p, k, id, values, SaveOptions{})
}

func create(p Parent, k Kind, id string, values Values, opts SaveOptions) (*Entity, error) {
	if !ValidID(id) {
		return nil, &IDError{Kind: k.Name, ID: id}
	}
	dir := path.Join(p.Dir(), k.Dir(id))
	e := newEntity(p, k, id, dir, values.Clone())
	if err := e.Save(opts); err != nil {
		return nil, err
	}
	return e, nil
}

// Remove deletes record id of kind k and everything in its directory, then
// notifies the parent. Removing a record that does not exist is not an error.
func Remove(p Parent, k Kind, id string) error {
	dir, ok := locate(p, k, id)
	if !ok {
		return nil
	}
	if err := removeDir(p.Store(), dir); err != nil {
		return err
	}
	return p.entityRemoved(newEntity(p, k, id, dir, nil), SaveOptions{})
}

func removeDir(store *Store, dir string) error {
	unlock, err := store.Lock(dir)
	if err != nil {
		return err
	}
	defer unlock()
	return store.RemoveAll(dir)
}

// ChildIDs returns the sorted ids of all records of kind k under p, including
// records still in a pre-migration directory.
func ChildIDs(p Parent, k Kind) ([]string, error) {
	store := p.Store()
	container := path.Join(p.Dir(), k.ContainerDir())
	ids, err := store.SubDirs(container)
	if err != nil {
		return nil, err
	}
	if k.LegacyDir {
		legacy := path.Join(p.Dir(), layout.LegacyPath(k.ContainerDir()))
		more, err := store.SubDirs(legacy)
		if err != nil {
			return nil, err
		}
		ids = mergeSorted(ids, more)
	}
	out := ids[:0]
	for _, id := range ids {
		if ValidID(id) {
			out = append(out, id)
		}
	}
	return out, nil
}

func mergeSorted(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
