package form

import "fmt"

// ValidationError reports a form or field definition problem. Value keeps
// the offending input so the form can be redisplayed with it.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s (%q)", e.Field, e.Message, e.Value)
}
