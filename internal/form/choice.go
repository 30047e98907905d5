package form

// FieldChoice is one option of an enumerated-value field.
type FieldChoice struct {
	ID    string `json:"id"`
	Value string `json:"value"`
	Label string `json:"label"`
	Link  string `json:"link,omitempty"`
}

// NewFieldChoice returns a choice whose value defaults to its id and whose
// label defaults to its value.
func NewFieldChoice(id, value, label, link string) FieldChoice {
	if value == "" {
		value = id
	}
	if label == "" {
		label = value
	}
	return FieldChoice{ID: id, Value: value, Label: label, Link: link}
}

// WithLink returns a copy of c linking to link.
func (c FieldChoice) WithLink(link string) FieldChoice {
	c.Link = link
	return c
}

// Choices is an ordered set of field choices keyed by value.
type Choices []FieldChoice

// Find returns the choice with the given value.
func (cs Choices) Find(value string) (FieldChoice, bool) {
	for _, c := range cs {
		if c.Value == value {
			return c, true
		}
	}
	return FieldChoice{}, false
}

// Values returns the choice values in order.
func (cs Choices) Values() []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Value
	}
	return out
}
