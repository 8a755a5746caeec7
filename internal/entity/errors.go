package entity

import "fmt"

// MalformedEntityError is returned when a descriptor lacks a mandatory
// identity field. It aborts the render of the entity's subtree.
type MalformedEntityError struct {
	Path  string
	Field string
	Value string
}

func (e *MalformedEntityError) Error() string {
	path := e.Path
	if path == "" {
		path = "<unnamed>"
	}
	if e.Value != "" {
		return fmt.Sprintf("malformed entity %s: invalid %s %q", path, e.Field, e.Value)
	}
	return fmt.Sprintf("malformed entity %s: missing %s", path, e.Field)
}
