package model

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/agentic-research/annalist/internal/identifiers"
	"github.com/agentic-research/annalist/internal/layout"
)

// EntityTypeInfo binds a type id to its storage within one collection.
type EntityTypeInfo struct {
	coll   *Collection
	typeID string
	kind   Kind
}

// NewEntityTypeInfo resolves typeID in c. When createTypedata is set and the
// type stores entity data, the type data directory is created if missing.
func NewEntityTypeInfo(c *Collection, typeID string, createTypedata bool) (*EntityTypeInfo, error) {
	if !ValidID(typeID) {
		return nil, &IDError{Kind: "type", ID: typeID}
	}
	ti := &EntityTypeInfo{coll: c, typeID: typeID, kind: KindFor(typeID)}
	if createTypedata && ti.IsEntityData() {
		if err := c.Store().MkdirAll(ti.TypedataDir()); err != nil {
			return nil, err
		}
	}
	return ti, nil
}

func (ti *EntityTypeInfo) TypeID() string          { return ti.typeID }
func (ti *EntityTypeInfo) Kind() Kind              { return ti.kind }
func (ti *EntityTypeInfo) Collection() *Collection { return ti.coll }

// IsEntityData reports whether entities of this type are user data stored
// under the collection's data tree.
func (ti *EntityTypeInfo) IsEntityData() bool {
	_, isDef := DefinitionKind(ti.typeID)
	return !isDef && !IsEnumType(ti.typeID)
}

// TypedataDir returns the type data directory relative to the site root.
func (ti *EntityTypeInfo) TypedataDir() string {
	return path.Join(ti.coll.Dir(), layout.TypedataPath(ti.typeID))
}

// TypedataExists reports whether the type data directory is present.
func (ti *EntityTypeInfo) TypedataExists() bool {
	return ti.coll.Store().IsDir(ti.TypedataDir())
}

// RecordType returns the type definition for this type id, or nil.
func (ti *EntityTypeInfo) RecordType() (*Entity, error) {
	return ti.coll.Type(ti.typeID)
}

// TypeURI returns the type's URI from its definition, or "".
func (ti *EntityTypeInfo) TypeURI() (string, error) {
	t, err := ti.RecordType()
	if err != nil || t == nil {
		return "", err
	}
	return t.String(identifiers.URI), nil
}

func (ti *EntityTypeInfo) EntityExists(id string) bool {
	return Exists(ti.coll, ti.kind, id)
}

// GetEntity loads entity id, returning (nil, nil) when it does not exist.
func (ti *EntityTypeInfo) GetEntity(id string) (*Entity, error) {
	return Load(ti.coll, ti.kind, id)
}

// CreateEntity writes entity id with values, replacing any existing one.
func (ti *EntityTypeInfo) CreateEntity(id string, values Values) (*Entity, error) {
	return ti.SaveEntity(id, values, SaveOptions{})
}

// SaveEntity is CreateEntity with explicit save options.
func (ti *EntityTypeInfo) SaveEntity(id string, values Values, opts SaveOptions) (*Entity, error) {
	if ti.IsEntityData() {
		if err := ti.coll.Store().MkdirAll(ti.TypedataDir()); err != nil {
			return nil, err
		}
	}
	return create(ti.coll, ti.kind, id, values, opts)
}

func (ti *EntityTypeInfo) RemoveEntity(id string) error {
	return Remove(ti.coll, ti.kind, id)
}

// EntityIDs returns the sorted ids of the collection's own entities of this
// type.
func (ti *EntityTypeInfo) EntityIDs() ([]string, error) {
	return ChildIDs(ti.coll, ti.kind)
}

// newIDProbe bounds the sequential id search before falling back to a UUID.
const newIDProbe = 1000

// NewEntityID returns an unused id: the first free eight-digit sequence
// number after the current entity count, or a random id if none is free
// nearby.
func (ti *EntityTypeInfo) NewEntityID() (string, error) {
	ids, err := ti.EntityIDs()
	if err != nil {
		return "", err
	}
	used := make(map[string]bool, len(ids))
	for _, id := range ids {
		used[id] = true
	}
	for n := len(ids) + 1; n <= len(ids)+newIDProbe; n++ {
		id := fmt.Sprintf("%08d", n)
		if !used[id] && !ti.EntityExists(id) {
			return id, nil
		}
	}
	return strings.ReplaceAll(uuid.NewString(), "-", ""), nil
}
