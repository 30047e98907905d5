package model

import (
	"path"
	"strings"

	"github.com/agentic-research/annalist/internal/identifiers"
	"github.com/agentic-research/annalist/internal/layout"
)

// Kind describes where and how one class of record is stored. Path and view
// templates are resolved against the record id and are relative to the
// parent's directory and URL.
type Kind struct {
	Name       string
	TypeID     string
	EntityType string
	PathTmpl   string
	ViewTmpl   string
	MetaFile   string
	ProvFile   string
	BaseRef    string
	ContextRef string

	// LegacyDir is set for definition kinds whose directory had a different
	// name before layout migration.
	LegacyDir bool
	// MigrateFilenames renames the pre-layout data file on load.
	MigrateFilenames bool
	// AffectsContext marks definitions that feed JSON-LD context generation.
	AffectsContext bool
	// Migrate upgrades stored values to the current schema.
	Migrate func(Values) Values
	// Validate rejects values before they are written.
	Validate func(Values) error
}

// Dir returns the record directory for id, relative to the parent.
func (k Kind) Dir(id string) string {
	return layout.Expand(k.PathTmpl, layout.Vars{"id": id})
}

// LegacyDirPath returns the pre-migration directory for id, or "" when the
// kind has none.
func (k Kind) LegacyDirPath(id string) string {
	if !k.LegacyDir {
		return ""
	}
	return layout.LegacyPath(k.Dir(id))
}

// ContainerDir returns the directory holding all records of this kind.
func (k Kind) ContainerDir() string {
	return path.Dir(k.Dir("x"))
}

// View returns the record's URL path relative to the parent.
func (k Kind) View(id string) string {
	return layout.Expand(k.ViewTmpl, layout.Vars{"id": id})
}

// Built-in record kinds.
var (
	CollectionKind = Kind{
		Name:       "collection",
		TypeID:     layout.CollTypeID,
		EntityType: identifiers.Collection,
		PathTmpl:   layout.SiteCollPath,
		ViewTmpl:   layout.SiteCollView,
		MetaFile:   layout.CollMetaRef,
		ProvFile:   layout.CollProvRef,
		BaseRef:    layout.MetaCollRef,
		ContextRef: layout.CollContextFile,
	}
	TypeKind = Kind{
		Name:       "type",
		TypeID:     layout.TypeTypeID,
		EntityType: identifiers.RecordType,
		PathTmpl:   layout.CollTypePath,
		ViewTmpl:   layout.CollTypeView,
		MetaFile:   layout.TypeMetaFile,
		ProvFile:   layout.TypeProvFile,
		BaseRef:    layout.DefCollBaseRef,
		ContextRef: layout.DefContextFile,
		LegacyDir:  true,
		Migrate:    migrateTypeValues,
	}
	ListKind = Kind{
		Name:       "list",
		TypeID:     layout.ListTypeID,
		EntityType: identifiers.RecordList,
		PathTmpl:   layout.CollListPath,
		ViewTmpl:   layout.CollListView,
		MetaFile:   layout.ListMetaFile,
		ProvFile:   layout.ListProvFile,
		BaseRef:    layout.DefCollBaseRef,
		ContextRef: layout.DefContextFile,
		LegacyDir:  true,
		Migrate:    migrateListValues,
	}
	ViewKind = Kind{
		Name:           "view",
		TypeID:         layout.ViewTypeID,
		EntityType:     identifiers.RecordView,
		PathTmpl:       layout.CollViewPath,
		ViewTmpl:       layout.CollViewView,
		MetaFile:       layout.ViewMetaFile,
		ProvFile:       layout.ViewProvFile,
		BaseRef:        layout.DefCollBaseRef,
		ContextRef:     layout.DefContextFile,
		LegacyDir:      true,
		AffectsContext: true,
		Migrate:        migrateViewValues,
	}
	GroupKind = Kind{
		Name:           "group",
		TypeID:         layout.GroupTypeID,
		EntityType:     identifiers.RecordGroup,
		PathTmpl:       layout.CollGroupPath,
		ViewTmpl:       layout.CollGroupView,
		MetaFile:       layout.GroupMetaFile,
		ProvFile:       layout.GroupProvFile,
		BaseRef:        layout.DefCollBaseRef,
		ContextRef:     layout.DefContextFile,
		LegacyDir:      true,
		AffectsContext: true,
		Migrate:        migrateGroupValues,
	}
	FieldKind = Kind{
		Name:           "field",
		TypeID:         layout.FieldTypeID,
		EntityType:     identifiers.RecordField,
		PathTmpl:       layout.CollFieldPath,
		ViewTmpl:       layout.CollFieldView,
		MetaFile:       layout.FieldMetaFile,
		ProvFile:       layout.FieldProvFile,
		BaseRef:        layout.DefCollBaseRef,
		ContextRef:     layout.DefContextFile,
		LegacyDir:      true,
		AffectsContext: true,
		Migrate:        migrateFieldValues,
		Validate:       validateFieldValues,
	}
	UserKind = Kind{
		Name:       "user",
		TypeID:     layout.UserTypeID,
		EntityType: identifiers.RecordUser,
		PathTmpl:   layout.CollUserPath,
		ViewTmpl:   layout.CollUserView,
		MetaFile:   layout.UserMetaFile,
		ProvFile:   layout.UserProvFile,
		BaseRef:    layout.DefCollBaseRef,
		ContextRef: layout.DefContextFile,
		LegacyDir:  true,
	}
	VocabKind = Kind{
		Name:           "vocab",
		TypeID:         layout.VocabTypeID,
		EntityType:     identifiers.RecordVocab,
		PathTmpl:       layout.CollVocabPath,
		ViewTmpl:       layout.CollVocabView,
		MetaFile:       layout.VocabMetaFile,
		ProvFile:       layout.VocabProvFile,
		BaseRef:        layout.DefCollBaseRef,
		ContextRef:     layout.DefContextFile,
		LegacyDir:      true,
		AffectsContext: true,
	}
)

// DefinitionKinds lists the collection definition kinds in the order they are
// enumerated and copied.
var DefinitionKinds = []Kind{TypeKind, ListKind, ViewKind, GroupKind, FieldKind, UserKind, VocabKind}

// DefinitionKind returns the definition kind stored under typeID.
func DefinitionKind(typeID string) (Kind, bool) {
	for _, k := range DefinitionKinds {
		if k.TypeID == typeID {
			return k, true
		}
	}
	return Kind{}, false
}

// EntityDataKind returns the kind for user data of the given type.
func EntityDataKind(typeID string) Kind {
	vars := layout.Vars{"type_id": typeID}
	return Kind{
		Name:             "entity",
		TypeID:           typeID,
		EntityType:       identifiers.EntityData,
		PathTmpl:         layout.Expand(layout.CollEntityPath, vars),
		ViewTmpl:         layout.Expand(layout.CollEntityView, vars),
		MetaFile:         layout.EntityDataFile,
		ProvFile:         layout.EntityProvFile,
		BaseRef:          layout.EntityCollBaseRef,
		ContextRef:       layout.EntityContextFile,
		MigrateFilenames: true,
	}
}

// EnumPrefix marks type ids whose values are enumerated records stored under
// the collection metadata tree.
const EnumPrefix = "_enum_"

// IsEnumType reports whether typeID names an enumerated-value type.
func IsEnumType(typeID string) bool {
	return strings.HasPrefix(typeID, EnumPrefix) || strings.HasPrefix(typeID, "Enum_")
}

// EnumType returns the record kind for enumerated values of typeID. The enum
// path template is resolved for typeID here, so values of different enum
// types never share a directory.
func EnumType(typeID string) Kind {
	vars := layout.Vars{"type_id": typeID}
	return Kind{
		Name:       "enum",
		TypeID:     typeID,
		EntityType: identifiers.RecordEnum,
		PathTmpl:   layout.Expand(layout.CollEnumPath, vars),
		ViewTmpl:   layout.Expand(layout.CollEnumView, vars),
		MetaFile:   layout.EnumMetaFile,
		ProvFile:   layout.EnumProvFile,
		BaseRef:    layout.EnumCollBaseRef,
		ContextRef: layout.EnumContextFile,
		LegacyDir:  true,
	}
}

// KindFor returns the record kind used to store entities of typeID in a
// collection.
func KindFor(typeID string) Kind {
	if k, ok := DefinitionKind(typeID); ok {
		return k
	}
	if IsEnumType(typeID) {
		return EnumType(typeID)
	}
	return EntityDataKind(typeID)
}
