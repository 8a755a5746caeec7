package entity

import (
	"strings"

	"docblocks/internal/docstring"
)

// Raw is an entity descriptor as handed over by an extractor. It is the JSON
// shape accepted on the input boundary.
type Raw struct {
	Name        string              `json:"name"`
	Path        string              `json:"path,omitempty"`
	Kind        string              `json:"kind"`
	Signature   *Signature          `json:"signature,omitempty"`
	Docstring   string              `json:"docstring,omitempty"`
	Sections    []docstring.Section `json:"sections,omitempty"`
	Source      *SourceSpan         `json:"source,omitempty"`
	HasContents *bool               `json:"has_contents,omitempty"`
	Properties  []string            `json:"properties,omitempty"`
	Members     []Raw               `json:"members,omitempty"`
}

// Normalize maps a raw descriptor onto an Entity. It fails with a
// *MalformedEntityError when identity fields are missing or invalid.
func Normalize(raw Raw) (*Entity, error) {
	name := strings.TrimSpace(raw.Name)
	path := strings.TrimSpace(raw.Path)
	if path == "" {
		path = name
	}
	if name == "" {
		return nil, &MalformedEntityError{Path: path, Field: "name"}
	}
	if strings.TrimSpace(raw.Kind) == "" {
		return nil, &MalformedEntityError{Path: path, Field: "kind"}
	}
	kind, ok := ParseKind(raw.Kind)
	if !ok {
		return nil, &MalformedEntityError{Path: path, Field: "kind", Value: raw.Kind}
	}

	e := &Entity{
		Name:       name,
		Path:       path,
		Kind:       kind,
		Signature:  raw.Signature,
		Properties: make(map[string]struct{}, len(raw.Properties)),
		Members:    raw.Members,
	}

	if raw.Source != nil {
		if raw.Source.StartLine < 1 {
			return nil, &MalformedEntityError{Path: path, Field: "source.start_line"}
		}
		src := *raw.Source
		e.Source = &src
	}

	switch {
	case len(raw.Sections) > 0:
		e.Docstring = &docstring.Docstring{Raw: raw.Docstring, Sections: raw.Sections}
	case strings.TrimSpace(raw.Docstring) != "":
		e.Docstring = docstring.Parse(raw.Docstring)
	}

	for _, p := range raw.Properties {
		if p = strings.TrimSpace(p); p != "" {
			e.Properties[p] = struct{}{}
		}
	}

	if raw.HasContents != nil {
		e.HasContents = *raw.HasContents
	} else {
		e.HasContents = !e.Docstring.Empty() || MembersHaveContents(raw.Members, nil)
	}
	return e, nil
}

// hasContents derives the flag for a descriptor that does not carry one.
// Members rejected by allow do not count; a nil allow accepts every member.
func (r Raw) hasContents(allow func(name string) bool) bool {
	if r.HasContents != nil {
		return *r.HasContents
	}
	if strings.TrimSpace(r.Docstring) != "" {
		return true
	}
	for _, s := range r.Sections {
		if strings.TrimSpace(s.Text) != "" || len(s.Items) > 0 {
			return true
		}
	}
	return MembersHaveContents(r.Members, allow)
}

// MembersHaveContents reports whether a member that allow accepts has
// contents of its own, at any depth.
func MembersHaveContents(members []Raw, allow func(name string) bool) bool {
	for _, m := range members {
		if allow != nil && !allow(strings.TrimSpace(m.Name)) {
			continue
		}
		if m.hasContents(allow) {
			return true
		}
	}
	return false
}

// Bool returns a pointer to b, for filling Raw.HasContents.
func Bool(b bool) *bool {
	return &b
}
