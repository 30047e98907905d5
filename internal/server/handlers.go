package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/annalist/api"
	"github.com/agentic-research/annalist/internal/colldata"
	"github.com/agentic-research/annalist/internal/form"
	"github.com/agentic-research/annalist/internal/identifiers"
	"github.com/agentic-research/annalist/internal/model"
	"github.com/agentic-research/annalist/internal/rendertype"
)

func (s *Server) collection(c *fiber.Ctx) (*model.Collection, error) {
	return s.site.Collection(c.Params("coll"))
}

func (s *Server) typeInfo(c *fiber.Ctx, coll *model.Collection, create bool) (*model.EntityTypeInfo, error) {
	typeID := c.Params("type")
	if !model.ValidID(typeID) {
		return nil, &model.IDError{Kind: "type", ID: typeID}
	}
	return model.NewEntityTypeInfo(coll, typeID, create)
}

func summary(e *model.Entity) api.EntitySummary {
	return api.EntitySummary{TypeID: e.TypeID(), ID: e.ID(), Label: e.Label(), URL: e.URL()}
}

func entityDoc(coll *model.Collection, e *model.Entity) *api.Entity {
	return &api.Entity{Coll: coll.ID(), TypeID: e.TypeID(), ID: e.ID(), Values: e.Values()}
}

func (s *Server) listCollections(c *fiber.Ctx) error {
	colls, err := s.site.Collections()
	if err != nil {
		return err
	}
	out := make([]api.CollectionSummary, 0, len(colls))
	for _, coll := range colls {
		out = append(out, api.CollectionSummary{ID: coll.ID(), Label: coll.Label(), URL: coll.URL()})
	}
	return c.JSON(out)
}

func (s *Server) getCollection(c *fiber.Ctx) error {
	coll, err := s.collection(c)
	if err != nil {
		return err
	}
	types, err := model.NewEntityFinder(coll).TypeIDs(true)
	if err != nil {
		return err
	}
	return c.JSON(api.CollectionSummary{ID: coll.ID(), Label: coll.Label(), URL: coll.URL(), Types: types})
}

func (s *Server) getContext(c *fiber.Ctx) error {
	coll, err := s.collection(c)
	if err != nil {
		return err
	}
	ctx, err := coll.Context()
	if err != nil {
		return err
	}
	return c.JSON(map[string]any{"@context": ctx})
}

// listEntities lists entities, optionally of one type. The select query
// parameter filters them; scope=all includes inherited site definitions.
func (s *Server) listEntities(c *fiber.Ctx) error {
	coll, err := s.collection(c)
	if err != nil {
		return err
	}
	sel, err := model.ParseSelector(c.Query("select"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	opts := model.FindOptions{
		TypeID:   c.Params("type"),
		Selector: sel,
		AltScope: c.Query("scope") == "all",
	}
	if opts.TypeID != "" && !model.ValidID(opts.TypeID) {
		return &model.IDError{Kind: "type", ID: opts.TypeID}
	}
	out := []api.EntitySummary{}
	for e, err := range model.NewEntityFinder(coll).Entities(opts) {
		if err != nil {
			return err
		}
		out = append(out, summary(e))
	}
	return c.JSON(out)
}

func (s *Server) getEntity(c *fiber.Ctx) error {
	coll, err := s.collection(c)
	if err != nil {
		return err
	}
	ti, err := s.typeInfo(c, coll, false)
	if err != nil {
		return err
	}
	e, err := ti.GetEntity(c.Params("id"))
	if err != nil {
		return err
	}
	if e == nil {
		return fiber.NewError(fiber.StatusNotFound, "entity "+ti.TypeID()+"/"+c.Params("id")+" not found")
	}
	return c.JSON(entityDoc(coll, e))
}

// putEntity replaces an entity's values with the JSON object in the body.
func (s *Server) putEntity(c *fiber.Ctx) error {
	coll, err := s.collection(c)
	if err != nil {
		return err
	}
	ti, err := s.typeInfo(c, coll, true)
	if err != nil {
		return err
	}
	doc, err := oj.Parse(c.Body())
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON: "+err.Error())
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "entity values must be a JSON object")
	}
	e, err := ti.CreateEntity(c.Params("id"), model.Values(obj).WithoutIdentity())
	if err != nil {
		return err
	}
	return c.JSON(entityDoc(coll, e))
}

func (s *Server) deleteEntity(c *fiber.Ctx) error {
	coll, err := s.collection(c)
	if err != nil {
		return err
	}
	ti, err := s.typeInfo(c, coll, false)
	if err != nil {
		return err
	}
	if !ti.EntityExists(c.Params("id")) {
		return fiber.NewError(fiber.StatusNotFound, "entity "+ti.TypeID()+"/"+c.Params("id")+" not found")
	}
	if err := ti.RemoveEntity(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// formMap builds the value map of the view named in the request.
func (s *Server) formMap(c *fiber.Ctx, coll *model.Collection) (*model.Entity, *form.FieldListValueMap, error) {
	view, err := coll.View(c.Params("view"))
	if err != nil {
		return nil, nil, err
	}
	if view == nil {
		return nil, nil, fiber.NewError(fiber.StatusNotFound, "view "+c.Params("view")+" not found")
	}
	fl, err := form.NewFieldListValueMap(coll, view.StoredValues().Objects(identifiers.ViewFields))
	if err != nil {
		return nil, nil, err
	}
	return view, fl, nil
}

func formContext(coll *model.Collection, view *model.Entity, typeID, id string, fl *form.FieldListValueMap, vals model.Values) api.FormContext {
	extras := map[string]any{
		"coll_id":   coll.ID(),
		"type_id":   typeID,
		"entity_id": id,
		"view_id":   view.ID(),
	}
	fc := api.FormContext{Coll: coll.ID(), TypeID: typeID, ID: id, ViewID: view.ID(), Label: view.Label()}
	for _, f := range fl.MapEntityToContext(vals, extras).Fields {
		fc.Fields = append(fc.Fields, f.Context())
	}
	return fc
}

// getForm returns the rendering context of an entity view. A missing entity
// yields the form for a new one.
func (s *Server) getForm(c *fiber.Ctx) error {
	coll, err := s.collection(c)
	if err != nil {
		return err
	}
	ti, err := s.typeInfo(c, coll, false)
	if err != nil {
		return err
	}
	view, fl, err := s.formMap(c, coll)
	if err != nil {
		return err
	}
	id := c.Params("id")
	vals := model.Values{}
	if model.ValidID(id) {
		e, err := ti.GetEntity(id)
		if err != nil {
			return err
		}
		if e != nil {
			vals = e.Values()
		}
	}
	return c.JSON(formContext(coll, view, ti.TypeID(), id, fl, vals))
}

func postedValues(c *fiber.Ctx) form.FormValues {
	vals := form.FormValues{}
	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		if mf, err := c.MultipartForm(); err == nil {
			for k, vs := range mf.Value {
				if len(vs) > 0 {
					vals[k] = vs[0]
				}
			}
		}
		return vals
	}
	c.Request().PostArgs().VisitAll(func(k, v []byte) {
		vals[string(k)] = string(v)
	})
	return vals
}

// postForm saves the values posted from an entity view. Values of properties
// the view does not show are kept.
func (s *Server) postForm(c *fiber.Ctx) error {
	coll, err := s.collection(c)
	if err != nil {
		return err
	}
	ti, err := s.typeInfo(c, coll, true)
	if err != nil {
		return err
	}
	_, fl, err := s.formMap(c, coll)
	if err != nil {
		return err
	}
	posted := postedValues(c)
	id := c.Params("id")

	vals := model.Values{}
	var existing *model.Entity
	if model.ValidID(id) {
		if existing, err = ti.GetEntity(id); err != nil {
			return err
		}
	}
	if existing != nil {
		vals = existing.StoredValues()
	}
	for k, v := range fl.MapFormToEntity(posted) {
		vals[k] = v
	}

	e, err := ti.CreateEntity(id, vals)
	var idErr *model.IDError
	var modeErr *rendertype.ModeError
	switch {
	case errors.As(err, &idErr):
		return formRejected(c, posted, api.FieldError{Field: "entity_id", Value: id, Message: idErr.Error()})
	case errors.As(err, &modeErr):
		return formRejected(c, posted, api.FieldError{
			Field:   identifiers.FieldRenderType,
			Value:   modeErr.RenderType,
			Message: modeErr.Error(),
		})
	case err != nil:
		return err
	}
	s.log.Info().Str("coll", coll.ID()).Str("type_id", ti.TypeID()).Str("entity_id", id).Msg("entity saved from form")
	return c.JSON(api.FormResult{OK: true, Entity: entityDoc(coll, e)})
}

func formRejected(c *fiber.Ctx, posted form.FormValues, fe api.FieldError) error {
	return c.Status(fiber.StatusBadRequest).JSON(api.FormResult{
		Errors: []api.FieldError{fe},
		Form:   posted,
	})
}

func (s *Server) migrateCollection(c *fiber.Ctx) error {
	coll, err := s.collection(c)
	if err != nil {
		return err
	}
	msgs, err := colldata.Migrate(coll)
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []string{}
	}
	return c.JSON(api.Messages{OK: len(msgs) == 0, Messages: msgs})
}
