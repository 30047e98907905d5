// Package mcpserver exposes read access to a site as MCP tools, so agents can
// browse collections, entities and contexts over stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/agentic-research/annalist/internal/form"
	"github.com/agentic-research/annalist/internal/identifiers"
	"github.com/agentic-research/annalist/internal/index"
	"github.com/agentic-research/annalist/internal/model"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// Options configures the tool set.
type Options struct {
	// IndexPath, when set, enables the find_referrers tool against a
	// prebuilt index database.
	IndexPath string
	Logger    zerolog.Logger
}

// Tools holds the handlers for one site.
type Tools struct {
	site *model.Site
	opts Options
}

func NewTools(site *model.Site, opts Options) *Tools {
	return &Tools{site: site, opts: opts}
}

// NewServer registers every tool on a new MCP server.
func NewServer(site *model.Site, opts Options) *server.MCPServer {
	t := NewTools(site, opts)
	s := server.NewMCPServer("annalist", Version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("list_collections",
		mcp.WithDescription("List the collections of the site"),
	), t.ListCollections)

	s.AddTool(mcp.NewTool("list_entities",
		mcp.WithDescription("List entities of a collection, optionally of one type and filtered by a JSONPath selector"),
		mcp.WithString("coll", mcp.Required(), mcp.Description("Collection id")),
		mcp.WithString("type", mcp.Description("Type id; empty for all types")),
		mcp.WithString("select", mcp.Description("JSONPath filter such as $[?(@['rdfs:label'] == 'x')]")),
	), t.ListEntities)

	s.AddTool(mcp.NewTool("get_entity",
		mcp.WithDescription("Read the values of one entity"),
		mcp.WithString("coll", mcp.Required(), mcp.Description("Collection id")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Type id")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
	), t.GetEntity)

	s.AddTool(mcp.NewTool("get_view",
		mcp.WithDescription("Render an entity through a view: one entry per field with its display and edit values"),
		mcp.WithString("coll", mcp.Required(), mcp.Description("Collection id")),
		mcp.WithString("view", mcp.Required(), mcp.Description("View id")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Type id")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
	), t.GetView)

	s.AddTool(mcp.NewTool("get_context",
		mcp.WithDescription("Build the JSON-LD context of a collection"),
		mcp.WithString("coll", mcp.Required(), mcp.Description("Collection id")),
	), t.GetContext)

	if opts.IndexPath != "" {
		s.AddTool(mcp.NewTool("find_referrers",
			mcp.WithDescription("Find indexed entities whose values refer to type_id/entity_id"),
			mcp.WithString("ref", mcp.Required(), mcp.Description("Reference such as Person/alice")),
		), t.FindReferrers)
	}
	return s
}

// ServeStdio serves the tools on stdin and stdout until EOF.
func ServeStdio(site *model.Site, opts Options) error {
	opts.Logger.Info().Str("index", opts.IndexPath).Msg("serving MCP on stdio")
	return server.ServeStdio(NewServer(site, opts))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := model.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError reports bad arguments and failed lookups to the client. Store
// faults fail the call.
func toolError(err error) (*mcp.CallToolResult, error) {
	var ioErr *model.IOError
	if errors.As(err, &ioErr) {
		return nil, err
	}
	return mcp.NewToolResultError(err.Error()), nil
}

func (t *Tools) collection(req mcp.CallToolRequest) (*model.Collection, error) {
	id, err := req.RequireString("coll")
	if err != nil {
		return nil, err
	}
	return t.site.Collection(id)
}

func entitySummary(e *model.Entity) map[string]any {
	return map[string]any{
		"type_id": e.TypeID(),
		"id":      e.ID(),
		"label":   e.Label(),
		"url":     e.URL(),
	}
}

func (t *Tools) ListCollections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	colls, err := t.site.Collections()
	if err != nil {
		return nil, err
	}
	out := []any{}
	for _, c := range colls {
		out = append(out, map[string]any{"id": c.ID(), "label": c.Label(), "url": c.URL()})
	}
	return jsonResult(out)
}

func (t *Tools) ListEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	coll, err := t.collection(req)
	if err != nil {
		return toolError(err)
	}
	sel, err := model.ParseSelector(req.GetString("select", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	opts := model.FindOptions{TypeID: req.GetString("type", ""), Selector: sel}
	out := []any{}
	for e, err := range model.NewEntityFinder(coll).Entities(opts) {
		if err != nil {
			return toolError(err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		out = append(out, entitySummary(e))
	}
	return jsonResult(out)
}

func (t *Tools) entity(req mcp.CallToolRequest) (*model.Collection, *model.EntityTypeInfo, string, error) {
	coll, err := t.collection(req)
	if err != nil {
		return nil, nil, "", err
	}
	typeID, err := req.RequireString("type")
	if err != nil {
		return nil, nil, "", err
	}
	id, err := req.RequireString("id")
	if err != nil {
		return nil, nil, "", err
	}
	ti, err := model.NewEntityTypeInfo(coll, typeID, false)
	if err != nil {
		return nil, nil, "", err
	}
	return coll, ti, id, nil
}

func (t *Tools) GetEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, ti, id, err := t.entity(req)
	if err != nil {
		return toolError(err)
	}
	e, err := ti.GetEntity(id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return mcp.NewToolResultError(fmt.Sprintf("entity %s/%s not found", ti.TypeID(), id)), nil
	}
	return jsonResult(e.Values())
}

func (t *Tools) GetView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	coll, ti, id, err := t.entity(req)
	if err != nil {
		return toolError(err)
	}
	viewID, err := req.RequireString("view")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := coll.View(viewID)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return mcp.NewToolResultError("view " + viewID + " not found"), nil
	}
	fl, err := form.NewFieldListValueMap(coll, view.StoredValues().Objects(identifiers.ViewFields))
	if err != nil {
		var verr *form.ValidationError
		if errors.As(err, &verr) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, err
	}
	e, err := ti.GetEntity(id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return mcp.NewToolResultError(fmt.Sprintf("entity %s/%s not found", ti.TypeID(), id)), nil
	}
	fields := []any{}
	for _, f := range fl.MapEntityToContext(e.Values(), nil).Fields {
		c := f.Context()
		fields = append(fields, map[string]any{
			"field_id":    c["field_id"],
			"label":       c["field_label"],
			"property":    c["field_property_uri"],
			"render_type": c["field_render_type"],
			"value":       c[form.FieldValueKey],
			"edit_value":  c["field_edit_value"],
		})
	}
	return jsonResult(map[string]any{
		"view_id": view.ID(),
		"label":   view.Label(),
		"entity":  e.TypeEntityID(),
		"fields":  fields,
	})
}

func (t *Tools) GetContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	coll, err := t.collection(req)
	if err != nil {
		return toolError(err)
	}
	c, err := coll.Context()
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"@context": c})
}

func (t *Tools) FindReferrers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r, err := index.Open(t.opts.IndexPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	recs, err := r.Referrers(ref)
	if err != nil {
		return nil, err
	}
	out := []any{}
	for _, rec := range recs {
		out = append(out, map[string]any{"type_id": rec.TypeID, "id": rec.EntityID, "label": rec.Label})
	}
	return jsonResult(out)
}
