package model

import (
	"iter"
	"path"

	"github.com/agentic-research/annalist/internal/layout"
)

// FindOptions narrows an entity enumeration.
type FindOptions struct {
	// TypeID limits the enumeration to one type.
	TypeID string
	// Selector filters entities by their values; nil selects all.
	Selector *Selector
	// DataOnly skips definition and enumerated-value records.
	DataOnly bool
	// AltScope also yields definitions and enumerated values inherited from
	// the site data collection.
	AltScope bool
}

// EntityFinder enumerates the entities of a collection.
type EntityFinder struct {
	coll *Collection
}

func NewEntityFinder(c *Collection) *EntityFinder {
	return &EntityFinder{coll: c}
}

// TypeIDs returns the type ids with entities stored in the collection:
// definition kinds in DefinitionKinds order, then enumerated types, then
// entity data types, each group sorted.
func (f *EntityFinder) TypeIDs(dataOnly bool) ([]string, error) {
	store := f.coll.Store()
	var out []string
	if !dataOnly {
		for _, k := range DefinitionKinds {
			out = append(out, k.TypeID)
		}
		enumDir := path.Join(f.coll.Dir(), layout.CollMetaDir, layout.EnumDir)
		cur, err := store.SubDirs(enumDir)
		if err != nil {
			return nil, err
		}
		legacy, err := store.SubDirs(path.Join(f.coll.Dir(), layout.CollMetaDir, layout.EnumDirPrev))
		if err != nil {
			return nil, err
		}
		for _, t := range mergeSorted(cur, legacy) {
			if ValidID(t) && IsEnumType(t) {
				out = append(out, t)
			}
		}
	}
	data, err := store.SubDirs(path.Join(f.coll.Dir(), layout.CollEntityDataDir))
	if err != nil {
		return nil, err
	}
	for _, t := range data {
		if _, isDef := DefinitionKind(t); isDef || IsEnumType(t) || !ValidID(t) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Entities yields each entity matching opts. The sequence can be ranged over
// repeatedly; each pass rereads the store. Enumeration stops at the first
// error, which is yielded with a nil entity.
func (f *EntityFinder) Entities(opts FindOptions) iter.Seq2[*Entity, error] {
	return func(yield func(*Entity, error) bool) {
		var types []string
		if opts.TypeID != "" {
			types = []string{opts.TypeID}
		} else {
			var err error
			types, err = f.TypeIDs(opts.DataOnly)
			if err != nil {
				yield(nil, err)
				return
			}
		}
		for _, t := range types {
			if !f.typeEntities(t, opts, yield) {
				return
			}
		}
	}
}

func (f *EntityFinder) typeEntities(typeID string, opts FindOptions, yield func(*Entity, error) bool) bool {
	ti, err := NewEntityTypeInfo(f.coll, typeID, false)
	if err != nil {
		return yield(nil, err)
	}
	if opts.DataOnly && !ti.IsEntityData() {
		return true
	}
	alt := opts.AltScope && !ti.IsEntityData()
	var ids []string
	if alt {
		ids, err = f.coll.DefinitionIDs(ti.Kind())
	} else {
		ids, err = ti.EntityIDs()
	}
	if err != nil {
		return yield(nil, err)
	}
	for _, id := range ids {
		var e *Entity
		if alt {
			e, err = f.coll.Definition(ti.Kind(), id)
		} else {
			e, err = ti.GetEntity(id)
		}
		if err != nil {
			return yield(nil, err)
		}
		if e == nil || !opts.Selector.Match(e.Values()) {
			continue
		}
		if !yield(e, nil) {
			return false
		}
	}
	return true
}

// All collects every entity matching opts.
func (f *EntityFinder) All(opts FindOptions) ([]*Entity, error) {
	var out []*Entity
	for e, err := range f.Entities(opts) {
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
