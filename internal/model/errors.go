package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by lookups that cannot express absence with a
	// nil result, such as opening a collection.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when creating something that must not already exist.
	ErrExists = errors.New("already exists")
)

// IOError is a filesystem fault during a store operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// IDError reports an entity id that cannot be used as a path segment.
type IDError struct {
	Kind string
	ID   string
}

func (e *IDError) Error() string {
	return fmt.Sprintf("invalid %s id %q", e.Kind, e.ID)
}

// ValidID reports whether id is usable as an entity id: 1 to 128 letters,
// digits or underscores.
func ValidID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
