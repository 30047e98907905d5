// Package api defines the JSON documents exchanged over the HTTP and MCP
// surfaces.
package api

// CollectionSummary describes one collection in a site listing.
type CollectionSummary struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	URL   string   `json:"url"`
	Types []string `json:"types,omitempty"`
}

// EntitySummary describes one entity in a listing.
type EntitySummary struct {
	TypeID string `json:"type_id"`
	ID     string `json:"id"`
	Label  string `json:"label"`
	URL    string `json:"url"`
}

// Entity carries the values of one entity, including the identity fields
// computed on load.
type Entity struct {
	Coll   string         `json:"coll"`
	TypeID string         `json:"type_id"`
	ID     string         `json:"id"`
	Values map[string]any `json:"values"`
}

// FormContext is the rendering context for an entity view.
type FormContext struct {
	Coll   string           `json:"coll"`
	TypeID string           `json:"type_id"`
	ID     string           `json:"id"`
	ViewID string           `json:"view_id"`
	Label  string           `json:"label,omitempty"`
	Fields []map[string]any `json:"fields"`
}

// FieldError reports a rejected form value.
type FieldError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// FormResult is returned after a form submission. On failure Errors is set
// and Form holds the submitted values for redisplay.
type FormResult struct {
	OK     bool              `json:"ok"`
	Entity *Entity           `json:"entity,omitempty"`
	Errors []FieldError      `json:"errors,omitempty"`
	Form   map[string]string `json:"form,omitempty"`
}

// Messages reports the outcome of a batch operation. An empty list means
// every item succeeded.
type Messages struct {
	OK       bool     `json:"ok"`
	Messages []string `json:"messages"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	OK        bool   `json:"ok"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Type      string `json:"type,omitempty"`
}
