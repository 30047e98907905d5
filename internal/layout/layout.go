// Package layout maps logical site, collection, type and entity ids to the
// directory and URL paths used by an Annalist site. Nothing here touches the
// filesystem.
package layout

import (
	"path"
	"path/filepath"
	"strings"
)

// Site
const (
	SiteTypeID      = "_site"
	SiteDir         = "annalist_site"
	SitedataID      = "_annalist_site"
	SitedataDir     = "c/" + SitedataID
	SitedataOldDir  = "_annalist_site"
	SiteCollView    = "c/%(id)s/"
	SiteCollPath    = "c/%(id)s"
	SiteCollMetaRef = "c/%(id)s/" + CollMetaDir + "/"
	SiteReadmeFile  = "README.md"
)

// Collection
const (
	CollTypeID        = "_coll"
	CollMetaDir       = "_annalist_collection"
	CollMetaFile      = "coll_meta.jsonld"
	CollProvFile      = "coll_prov.jsonld"
	CollMetaRef       = CollMetaDir + "/" + CollMetaFile
	CollProvRef       = CollMetaDir + "/" + CollProvFile
	CollBaseRef       = "d/"
	MetaCollRef       = "../"
	MetaCollBaseRef   = "../d/"
	CollContextFile   = "coll_context.jsonld"
	SitedataMetaDir   = SitedataDir + "/" + CollMetaDir
	DefCollBaseRef    = "../../../d/"
	DefContextFile    = "../../" + CollContextFile
	CollEntityDataDir = "d"
)

// Definition kinds
const (
	TypeTypeID    = "_type"
	TypeDir       = "_type"
	TypeDirPrev   = "types"
	TypeMetaFile  = "type_meta.jsonld"
	TypeProvFile  = "type_prov.jsonld"
	CollTypeView  = "d/" + TypeTypeID + "/%(id)s/"
	CollTypePath  = CollMetaDir + "/" + TypeDir + "/%(id)s"
	ListTypeID    = "_list"
	ListDir       = "_list"
	ListDirPrev   = "lists"
	ListMetaFile  = "list_meta.jsonld"
	ListProvFile  = "list_prov.jsonld"
	CollListView  = "d/" + ListTypeID + "/%(id)s/"
	CollListPath  = CollMetaDir + "/" + ListDir + "/%(id)s"
	ViewTypeID    = "_view"
	ViewDir       = "_view"
	ViewDirPrev   = "views"
	ViewMetaFile  = "view_meta.jsonld"
	ViewProvFile  = "view_prov.jsonld"
	CollViewView  = "d/" + ViewTypeID + "/%(id)s/"
	CollViewPath  = CollMetaDir + "/" + ViewDir + "/%(id)s"
	GroupTypeID   = "_group"
	GroupDir      = "_group"
	GroupDirPrev  = "groups"
	GroupMetaFile = "group_meta.jsonld"
	GroupProvFile = "group_prov.jsonld"
	CollGroupView = "d/" + GroupTypeID + "/%(id)s/"
	CollGroupPath = CollMetaDir + "/" + GroupDir + "/%(id)s"
	FieldTypeID   = "_field"
	FieldDir      = "_field"
	FieldDirPrev  = "fields"
	FieldMetaFile = "field_meta.jsonld"
	FieldProvFile = "field_prov.jsonld"
	CollFieldView = "d/" + FieldTypeID + "/%(id)s/"
	CollFieldPath = CollMetaDir + "/" + FieldDir + "/%(id)s"
	UserTypeID    = "_user"
	UserDir       = "_user"
	UserDirPrev   = "users"
	UserMetaFile  = "user_meta.jsonld"
	UserProvFile  = "user_prov.jsonld"
	CollUserView  = "d/" + UserTypeID + "/%(id)s/"
	CollUserPath  = CollMetaDir + "/" + UserDir + "/%(id)s"
	VocabTypeID   = "_vocab"
	VocabDir      = "_vocab"
	VocabDirPrev  = "vocabs"
	VocabMetaFile = "vocab_meta.jsonld"
	VocabProvFile = "vocab_prov.jsonld"
	CollVocabView = "d/" + VocabTypeID + "/%(id)s/"
	CollVocabPath = CollMetaDir + "/" + VocabDir + "/%(id)s"
)

// Enumerated values. The enum path is parameterized by both the enum type id
// and the value id.
const (
	EnumTypeID      = "_enum"
	EnumDir         = "_enum"
	EnumDirPrev     = "enums"
	EnumMetaFile    = "enum_meta.jsonld"
	EnumProvFile    = "enum_prov.jsonld"
	EnumCollBaseRef = "../../../"
	EnumContextFile = EnumCollBaseRef + CollContextFile
	CollEnumView    = "d/%(type_id)s/%(id)s/"
	CollEnumPath    = CollMetaDir + "/" + EnumDir + "/%(type_id)s/%(id)s"
)

// Type data and entity data
const (
	TypedataTypeID      = "_entitytypedata"
	TypedataMetaFile    = "type_data_meta.jsonld"
	TypedataProvFile    = "type_data_prov.jsonld"
	TypedataCollBaseRef = "../"
	TypedataContextFile = TypedataCollBaseRef + CollContextFile
	CollTypedataView    = "d/%(id)s/"
	CollTypedataPath    = "d/%(id)s"

	CollEntityView    = "d/%(type_id)s/%(id)s/"
	CollEntityPath    = "d/%(type_id)s/%(id)s"
	SiteEntityView    = "c/%(coll_id)s/d/%(type_id)s/%(id)s/"
	SiteEntityPath    = "c/%(coll_id)s/d/%(type_id)s/%(id)s"
	EntityDataFile    = "entity_data.jsonld"
	EntityProvFile    = "entity_prov.jsonld"
	EntityCollBaseRef = "../../"
	EntityContextFile = EntityCollBaseRef + CollContextFile
	EntityOldDataFile = "entity-data.jsonld"
)

// Suffixes used for repeat and multi-value field ids.
const (
	SuffixRepeat = "_r"
	SuffixMulti  = "_m"
)

// DirPair relates the current name of a collection metadata directory to the
// name it had in earlier layouts.
type DirPair struct {
	Curr string
	Prev string
}

// DataDirsCurrPrev lists the definition directories shared by site data and
// collections, in the order migration renames them.
var DataDirsCurrPrev = []DirPair{
	{TypeDir, TypeDirPrev},
	{ListDir, ListDirPrev},
	{ViewDir, ViewDirPrev},
	{GroupDir, GroupDirPrev},
	{FieldDir, FieldDirPrev},
	{EnumDir, EnumDirPrev},
}

// CollDirsCurrPrev adds the user and vocabulary directories.
var CollDirsCurrPrev = append(append([]DirPair{}, DataDirsCurrPrev...),
	DirPair{UserDir, UserDirPrev},
	DirPair{VocabDir, VocabDirPrev},
)

// CurrDir returns the current directory name for a legacy name, or the name
// unchanged when it is not a known legacy name.
func CurrDir(name string) string {
	for _, p := range CollDirsCurrPrev {
		if p.Prev == name {
			return p.Curr
		}
	}
	return name
}

// PrevDir returns the legacy directory name for a current one.
func PrevDir(name string) string {
	for _, p := range CollDirsCurrPrev {
		if p.Curr == name {
			return p.Prev
		}
	}
	return name
}

// Layout is a site layout bound to a base data directory. The site itself
// lives in SitePath; every other path in this package is relative to it.
type Layout struct {
	BaseDir            string
	SitePath           string
	SitedataPath       string
	SitedataContextDir string
}

// New returns the layout for a site whose data lives under baseDir.
func New(baseDir string) Layout {
	site := filepath.Join(baseDir, SiteDir)
	return Layout{
		BaseDir:            baseDir,
		SitePath:           site,
		SitedataPath:       filepath.Join(site, filepath.FromSlash(SitedataDir)),
		SitedataContextDir: filepath.Join(site, filepath.FromSlash(SitedataMetaDir), CollContextFile),
	}
}

// Vars holds template substitution values keyed by placeholder name.
type Vars map[string]string

// Expand substitutes %(name)s placeholders in tmpl. Placeholders with no
// value in vars are left in place so a template can be resolved in stages.
func Expand(tmpl string, vars Vars) string {
	var b strings.Builder
	for {
		i := strings.Index(tmpl, "%(")
		if i < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		j := strings.Index(tmpl[i:], ")s")
		if j < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		name := tmpl[i+2 : i+j]
		b.WriteString(tmpl[:i])
		if v, ok := vars[name]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(tmpl[i : i+j+2])
		}
		tmpl = tmpl[i+j+2:]
	}
}

// CollPath returns the collection directory relative to the site root.
func CollPath(collID string) string {
	return Expand(SiteCollPath, Vars{"id": collID})
}

// CollMetaPath returns the collection metadata directory relative to the site root.
func CollMetaPath(collID string) string {
	return path.Join(CollPath(collID), CollMetaDir)
}

// EntityPath returns an entity directory relative to its collection.
func EntityPath(typeID, entityID string) string {
	return Expand(CollEntityPath, Vars{"type_id": typeID, "id": entityID})
}

// TypedataPath returns a type data directory relative to its collection.
func TypedataPath(typeID string) string {
	return Expand(CollTypedataPath, Vars{"id": typeID})
}

// SiteEntityURLPath returns the site-relative URL path of an entity view.
func SiteEntityURLPath(collID, typeID, entityID string) string {
	return Expand(SiteEntityView, Vars{"coll_id": collID, "type_id": typeID, "id": entityID})
}

// LegacyPath rewrites the first segment of a collection-relative metadata path
// from its current directory name to the legacy one. For example
// "_annalist_collection/_type/T" becomes "_annalist_collection/types/T".
func LegacyPath(p string) string {
	return rewriteDirSegment(p, PrevDir)
}

// CurrentPath is the inverse of LegacyPath.
func CurrentPath(p string) string {
	return rewriteDirSegment(p, CurrDir)
}

func rewriteDirSegment(p string, fn func(string) string) string {
	prefix := CollMetaDir + "/"
	if !strings.HasPrefix(p, prefix) {
		return p
	}
	rest := strings.TrimPrefix(p, prefix)
	seg, tail, found := strings.Cut(rest, "/")
	seg = fn(seg)
	if !found {
		return prefix + seg
	}
	return prefix + seg + "/" + tail
}
