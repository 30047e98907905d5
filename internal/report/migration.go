// Package report writes the migration report that lists type and property URI
// changes between two collections, and the definitions that refer to the old
// URIs.
package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/agentic-research/annalist/internal/identifiers"
	"github.com/agentic-research/annalist/internal/model"
)

type reporter struct {
	w   io.Writer
	err error
}

func (r *reporter) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format+"\n", args...)
}

func (r *reporter) defs(c *model.Collection, k model.Kind) []*model.Entity {
	if r.err != nil {
		return nil
	}
	es, err := c.Definitions(k)
	if err != nil {
		r.err = err
	}
	return es
}

func (r *reporter) def(c *model.Collection, k model.Kind, id string) *model.Entity {
	if r.err != nil {
		return nil
	}
	e, err := c.Definition(k, id)
	if err != nil {
		r.err = err
	}
	return e
}

// Migration writes the report for moving data from oldColl to newColl.
func Migration(w io.Writer, oldColl, newColl *model.Collection) error {
	r := &reporter{w: w}
	r.printf("# Migration report from collection '%s' to '%s' #", oldColl.ID(), newColl.ID())
	r.printf("")

	for _, nt := range r.defs(newColl, model.TypeKind) {
		ot := r.def(oldColl, model.TypeKind, nt.ID())
		if ot == nil {
			continue
		}
		oldURI, newURI := ot.String(identifiers.URI), nt.String(identifiers.URI)
		if oldURI == newURI {
			continue
		}
		r.printf("* Type %s, URI changed from '%s' to '%s'", nt.ID(), oldURI, newURI)
		if !slices.Contains(model.SupertypeURIs(nt.StoredValues()), oldURI) {
			r.printf("    Consider adding supertype '%s' to type '%s' in collection '%s'", oldURI, nt.ID(), newColl.ID())
		}
		r.typeReferences(newColl, oldURI, fmt.Sprintf("    URI '%s'", oldURI))
	}

	for _, nf := range r.defs(newColl, model.FieldKind) {
		of := r.def(oldColl, model.FieldKind, nf.ID())
		if of == nil {
			continue
		}
		oldURI, newURI := of.String(identifiers.PropertyURI), nf.String(identifiers.PropertyURI)
		if oldURI == newURI {
			continue
		}
		r.printf("* Field %s, property URI changed from '%s' to '%s'", nf.ID(), oldURI, newURI)
		r.suggestAliases(newColl, nf.ID(), oldURI)
	}

	for _, fl := range []struct {
		kind  model.Kind
		key   string
		label string
	}{
		{model.GroupKind, identifiers.GroupFields, "Group"},
		{model.ViewKind, identifiers.ViewFields, "View"},
		{model.ListKind, identifiers.ListFields, "List"},
	} {
		for _, nd := range r.defs(newColl, fl.kind) {
			od := r.def(oldColl, fl.kind, nd.ID())
			if od == nil {
				continue
			}
			r.compareFieldList(oldColl, newColl,
				od.StoredValues().Objects(fl.key), nd.StoredValues().Objects(fl.key),
				fl.label+" "+nd.ID())
		}
	}
	r.printf("")
	return r.err
}

func (r *reporter) suggestAliases(c *model.Collection, fieldID, oldURI string) {
	for _, tid := range r.typesUsingField(c, fieldID, oldURI) {
		r.printf("    Consider adding property alias for '%s' to type %s in collection '%s'", oldURI, tid, c.ID())
	}
}

// compareFieldList reports property URI changes between matching entries of
// two field lists. Fields present in only one list are not reported.
func (r *reporter) compareFieldList(oldColl, newColl *model.Collection, oldList, newList []model.Values, prefix string) {
	if len(oldList) != len(newList) {
		r.printf("* %s, field count changed from %d to %d", prefix, len(oldList), len(newList))
	}
	for _, nf := range newList {
		fieldID := model.RefID(nf, identifiers.FieldID)
		for _, of := range oldList {
			if model.RefID(of, identifiers.FieldID) != fieldID {
				continue
			}
			oldURI := of.String(identifiers.PropertyURI)
			newURI := nf.String(identifiers.PropertyURI)
			if oldURI == "" && newURI != "" {
				oldURI = r.fieldProperty(oldColl, fieldID)
			}
			if oldURI != "" && newURI == "" {
				newURI = r.fieldProperty(newColl, fieldID)
			}
			if oldURI != newURI {
				r.printf("* %s, field %s, property URI changed from '%s' to '%s'", prefix, fieldID, oldURI, newURI)
				r.suggestAliases(newColl, fieldID, oldURI)
				r.propertyReferences(newColl, oldURI, fmt.Sprintf("URI '%s'", oldURI))
			}
			break
		}
	}
}

func (r *reporter) fieldProperty(c *model.Collection, fieldID string) string {
	if f := r.def(c, model.FieldKind, fieldID); f != nil {
		return f.String(identifiers.PropertyURI)
	}
	return ""
}

func fieldInList(list []model.Values, fieldID, propertyURI string) bool {
	for _, ref := range list {
		if model.RefID(ref, identifiers.FieldID) == fieldID || (propertyURI != "" && ref.String(identifiers.PropertyURI) == propertyURI) {
			return true
		}
	}
	return false
}

func (r *reporter) groupInList(c *model.Collection, list []model.Values, groupIDs map[string]bool) bool {
	for _, ref := range list {
		f := r.def(c, model.FieldKind, model.RefID(ref, identifiers.FieldID))
		if f != nil && groupIDs[model.RefID(f.StoredValues(), identifiers.GroupRef)] {
			return true
		}
	}
	return false
}

// typesUsingField returns the sorted ids of types whose views, lists or
// groups may display fieldID or propertyURI.
func (r *reporter) typesUsingField(c *model.Collection, fieldID, propertyURI string) []string {
	typeURIs := map[string]bool{}
	groupIDs := map[string]bool{}
	add := func(set map[string]bool, v string) {
		if v != "" {
			set[v] = true
		}
	}
	if f := r.def(c, model.FieldKind, fieldID); f != nil {
		add(typeURIs, f.String(identifiers.FieldEntityType))
	}
	for _, g := range r.defs(c, model.GroupKind) {
		gv := g.StoredValues()
		if fieldInList(gv.Objects(identifiers.GroupFields), fieldID, propertyURI) {
			add(groupIDs, g.ID())
			add(typeURIs, gv.String(identifiers.RecordTypeRef))
		}
	}
	for _, v := range r.defs(c, model.ViewKind) {
		vv := v.StoredValues()
		refs := vv.Objects(identifiers.ViewFields)
		if fieldInList(refs, fieldID, propertyURI) || r.groupInList(c, refs, groupIDs) {
			add(typeURIs, vv.String(identifiers.RecordTypeRef))
		}
	}
	for _, l := range r.defs(c, model.ListKind) {
		lv := l.StoredValues()
		refs := lv.Objects(identifiers.ListFields)
		if fieldInList(refs, fieldID, propertyURI) || r.groupInList(c, refs, groupIDs) {
			add(typeURIs, lv.String(identifiers.RecordTypeRef))
			add(typeURIs, lv.String(identifiers.DefaultType))
		}
	}
	var out []string
	for _, t := range r.defs(c, model.TypeKind) {
		match := typeURIs[t.String(identifiers.URI)]
		for _, st := range model.SupertypeURIs(t.StoredValues()) {
			match = match || typeURIs[st]
		}
		if match {
			out = append(out, t.ID())
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (r *reporter) propertyReferences(c *model.Collection, propertyURI, prefix string) {
	if propertyURI == "" {
		return
	}
	for _, t := range r.defs(c, model.TypeKind) {
		for _, a := range t.StoredValues().Objects(identifiers.FieldAliases) {
			if a.String(identifiers.AliasSource) == propertyURI {
				r.printf("%s appears as an alias value of type '%s'", prefix, t.ID())
				break
			}
		}
	}
	for _, v := range r.defs(c, model.ViewKind) {
		r.propertyInList(propertyURI, v.StoredValues().Objects(identifiers.ViewFields), prefix, "fields for view "+v.ID())
	}
	for _, l := range r.defs(c, model.ListKind) {
		lv := l.StoredValues()
		if strings.Contains(lv.String(identifiers.ListEntitySelect), propertyURI) {
			r.printf("%s appears in selector for list '%s'", prefix, l.ID())
		}
		r.propertyInList(propertyURI, lv.Objects(identifiers.ListFields), prefix, "fields for list "+l.ID())
	}
	for _, f := range r.defs(c, model.FieldKind) {
		if f.String(identifiers.PropertyURI) == propertyURI {
			r.printf("%s appears as property URI for field '%s'", prefix, f.ID())
		}
		if strings.Contains(f.String(identifiers.FieldRefRestrict), propertyURI) {
			r.printf("%s appears in value restriction for field '%s'", prefix, f.ID())
		}
	}
	for _, g := range r.defs(c, model.GroupKind) {
		r.propertyInList(propertyURI, g.StoredValues().Objects(identifiers.GroupFields), prefix, "fields for group "+g.ID())
	}
}

func (r *reporter) propertyInList(propertyURI string, list []model.Values, prefix, suffix string) {
	for _, ref := range list {
		if ref.String(identifiers.PropertyURI) == propertyURI {
			r.printf("%s appears in %s", prefix, suffix)
		}
	}
}

func (r *reporter) typeReferences(c *model.Collection, typeURI, prefix string) {
	if typeURI == "" {
		return
	}
	for _, t := range r.defs(c, model.TypeKind) {
		if slices.Contains(model.SupertypeURIs(t.StoredValues()), typeURI) {
			r.printf("%s appears as a supertype of type '%s'", prefix, t.ID())
		}
	}
	for _, v := range r.defs(c, model.ViewKind) {
		if v.String(identifiers.RecordTypeRef) == typeURI {
			r.printf("%s appears as entity type for view '%s'", prefix, v.ID())
		}
	}
	for _, l := range r.defs(c, model.ListKind) {
		if l.String(identifiers.RecordTypeRef) == typeURI {
			r.printf("%s appears as entity type for list '%s'", prefix, l.ID())
		}
		if strings.Contains(l.String(identifiers.ListEntitySelect), typeURI) {
			r.printf("%s appears in selector for list '%s'", prefix, l.ID())
		}
	}
	for _, f := range r.defs(c, model.FieldKind) {
		if f.String(identifiers.FieldValueType) == typeURI {
			r.printf("%s appears as value type for field '%s'", prefix, f.ID())
		}
		if f.String(identifiers.FieldEntityType) == typeURI {
			r.printf("%s appears as entity type for field '%s'", prefix, f.ID())
		}
		if strings.Contains(f.String(identifiers.FieldRefRestrict), typeURI) {
			r.printf("%s appears in value restriction for field '%s'", prefix, f.ID())
		}
	}
	for _, g := range r.defs(c, model.GroupKind) {
		if g.String(identifiers.RecordTypeRef) == typeURI {
			r.printf("%s appears as entity type for group %s", prefix, g.ID())
		}
	}
}
