// Package identifiers defines the built-in namespaces and the CURIEs Annalist
// uses as property and type names.
package identifiers

import "strings"

// Namespace pairs a CURIE prefix with its base URI.
type Namespace struct {
	Prefix  string
	BaseURI string
}

// CURIE returns prefix:name.
func (n Namespace) CURIE(name string) string { return n.Prefix + ":" + name }

// URI returns the absolute URI for name.
func (n Namespace) URI(name string) string { return n.BaseURI + name }

var (
	ANNAL = Namespace{"annal", "http://purl.org/annalist/2014/#"}
	RDF   = Namespace{"rdf", "http://www.w3.org/1999/02/22-rdf-syntax-ns#"}
	RDFS  = Namespace{"rdfs", "http://www.w3.org/2000/01/rdf-schema#"}
	XSD   = Namespace{"xsd", "http://www.w3.org/2001/XMLSchema#"}
	OWL   = Namespace{"owl", "http://www.w3.org/2002/07/owl#"}
)

// Namespaces lists the built-in namespaces in a fixed order.
var Namespaces = []Namespace{ANNAL, RDF, RDFS, XSD, OWL}

// Property and type CURIEs.
const (
	ID              = "annal:id"
	TypeID          = "annal:type_id"
	Type            = "annal:type"
	URI             = "annal:uri"
	URL             = "annal:url"
	URIHost         = "annal:urihost"
	URIPath         = "annal:uripath"
	Label           = "rdfs:label"
	Comment         = "rdfs:comment"
	AnnalComment    = "annal:comment"
	SoftwareVersion = "annal:software_version"
	SavedBy         = "annal:saved_by"
	SavedAt         = "annal:saved_at"

	Site           = "annal:Site"
	Collection     = "annal:Collection"
	EntityData     = "annal:EntityData"
	TypeData       = "annal:EntityTypeData"
	RecordType     = "annal:Type"
	RecordList     = "annal:List"
	RecordView     = "annal:View"
	RecordField    = "annal:Field"
	RecordGroup    = "annal:Field_group"
	RecordVocab    = "annal:Vocabulary"
	RecordUser     = "annal:User"
	RecordEnum     = "annal:Enum"
	Richtext       = "annal:Richtext"
	FieldGroupType = "annal:Field_group"

	SupertypeURIs     = "annal:supertype_uris"
	SupertypeURI      = "annal:supertype_uri"
	FieldAliases      = "annal:field_aliases"
	AliasSource       = "annal:alias_source"
	AliasTarget       = "annal:alias_target"
	RecordTypeRef     = "annal:record_type"
	DefaultType       = "annal:default_type"
	ListEntitySelect  = "annal:list_entity_selector"
	ViewFields        = "annal:view_fields"
	ListFields        = "annal:list_fields"
	GroupFields       = "annal:group_fields"
	FieldID           = "annal:field_id"
	FieldName         = "annal:field_name"
	PropertyURI       = "annal:property_uri"
	FieldPlacement    = "annal:field_placement"
	Placeholder       = "annal:placeholder"
	FieldRenderType   = "annal:field_render_type"
	FieldValueMode    = "annal:field_value_mode"
	FieldValueType    = "annal:field_value_type"
	FieldEntityType   = "annal:field_entity_type"
	FieldRefType      = "annal:field_ref_type"
	FieldRefField     = "annal:field_ref_field"
	FieldRefRestrict  = "annal:field_ref_restriction"
	DefaultValue      = "annal:default_value"
	GroupRef          = "annal:group_ref"
	RepeatLabelAdd    = "annal:repeat_label_add"
	RepeatLabelDelete = "annal:repeat_label_delete"

	// Pre-migration field property names.
	FieldRenderLegacy = "annal:field_render"
	FieldTypeLegacy   = "annal:field_type"
)

// Prefix returns the prefix of a CURIE, or "" when s has no ':'.
func Prefix(s string) string {
	p, _, ok := strings.Cut(s, ":")
	if !ok {
		return ""
	}
	return p
}

// Lookup returns the built-in namespace for prefix.
func Lookup(prefix string) (Namespace, bool) {
	for _, n := range Namespaces {
		if n.Prefix == prefix {
			return n, true
		}
	}
	return Namespace{}, false
}

// Expand returns the absolute URI for a CURIE in a built-in namespace.
// Anything else is returned unchanged.
func Expand(curie string) string {
	p, local, ok := strings.Cut(curie, ":")
	if !ok {
		return curie
	}
	if n, found := Lookup(p); found {
		return n.URI(local)
	}
	return curie
}

// ExtractEntityID returns the entity id part of a "type_id/entity_id"
// reference, or the value unchanged when it has no '/'.
func ExtractEntityID(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// SplitTypeEntityID splits a "type_id/entity_id" reference. typeID is empty
// when ref carries no type.
func SplitTypeEntityID(ref string) (typeID, entityID string) {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return "", ref
}

// MakeTypeEntityID joins a type id and an entity id into a reference.
func MakeTypeEntityID(typeID, entityID string) string {
	if typeID == "" {
		return entityID
	}
	return typeID + "/" + entityID
}
