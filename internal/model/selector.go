package model

import (
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"
)

// SelectAll is the selector that matches every entity.
const SelectAll = "ALL"

// Selector filters entities by a JSONPath expression evaluated against a
// one-element array holding the entity values, so filter expressions such as
// $[?(@.name == 'x')] select matching entities.
type Selector struct {
	src  string
	expr jp.Expr
}

// ParseSelector compiles s. An empty selector or "ALL" matches everything.
func ParseSelector(s string) (*Selector, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == SelectAll {
		return &Selector{src: SelectAll}, nil
	}
	x, err := jp.ParseString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid selector '%s': %w", s, err)
	}
	return &Selector{src: s, expr: x}, nil
}

func (s *Selector) String() string {
	if s == nil {
		return SelectAll
	}
	return s.src
}

// Match reports whether v is selected.
func (s *Selector) Match(v Values) bool {
	if s == nil || s.expr == nil {
		return true
	}
	return len(s.expr.Get([]any{map[string]any(v)})) > 0
}

// Query returns the values at the selector's path within v. It is used for
// property paths rather than filters, for example $['rdfs:label'].
func (s *Selector) Query(v Values) []any {
	if s == nil || s.expr == nil {
		return []any{map[string]any(v)}
	}
	return s.expr.Get(map[string]any(v))
}
