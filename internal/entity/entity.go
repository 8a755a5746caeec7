package entity

import (
	"sort"
	"strings"

	"docblocks/internal/docstring"
)

// Kind is the documented construct an entity stands for.
type Kind string

const (
	KindModule   Kind = "module"
	KindClass    Kind = "class"
	KindFunction Kind = "function"
	KindMethod   Kind = "method"
)

// Callable reports whether headings for this kind carry a call signature.
func (k Kind) Callable() bool {
	return k == KindFunction || k == KindMethod
}

// ParseKind maps extractor vocabulary onto the four entity kinds.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "module", "package":
		return KindModule, true
	case "class", "struct", "interface", "type":
		return KindClass, true
	case "function", "func":
		return KindFunction, true
	case "method":
		return KindMethod, true
	}
	return "", false
}

// Parameter is one entry of a call signature.
type Parameter struct {
	Name       string `json:"name"`
	Annotation string `json:"annotation,omitempty"`
	Default    string `json:"default,omitempty"`
}

// Signature describes how a callable is invoked.
type Signature struct {
	Parameters []Parameter `json:"parameters"`
	Returns    string      `json:"returns,omitempty"`
	// Text is the declaration as written in source, if known.
	Text string `json:"text,omitempty"`
}

// Call renders the parameter list used in headings, e.g. "(ctx, name)".
func (s *Signature) Call() string {
	if s == nil {
		return "()"
	}
	names := make([]string, 0, len(s.Parameters))
	for _, p := range s.Parameters {
		if p.Name == "" {
			names = append(names, "_")
			continue
		}
		names = append(names, p.Name)
	}
	return "(" + strings.Join(names, ", ") + ")"
}

// SourceSpan locates an entity's source text.
type SourceSpan struct {
	Code      string `json:"code"`
	StartLine int    `json:"start_line"`
	FilePath  string `json:"file_path"`
}

// EndLine is the last line covered by the span.
func (s *SourceSpan) EndLine() int {
	if s == nil {
		return 0
	}
	return s.StartLine + strings.Count(strings.TrimRight(s.Code, "\n"), "\n")
}

// Entity is a normalized documented code construct. Members are kept in raw
// form and normalized lazily so that gated subtrees cost nothing.
type Entity struct {
	Name        string
	Path        string
	Kind        Kind
	Signature   *Signature
	Docstring   *docstring.Docstring
	Source      *SourceSpan
	HasContents bool
	Properties  map[string]struct{}
	Members     []Raw
}

// HasProperty reports whether the entity carries the given tag.
func (e *Entity) HasProperty(tag string) bool {
	_, ok := e.Properties[tag]
	return ok
}

// SortedProperties returns the property tags in a stable order.
func (e *Entity) SortedProperties() []string {
	out := make([]string, 0, len(e.Properties))
	for p := range e.Properties {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// MemberPath is the qualified path a member without an explicit path gets.
func (e *Entity) MemberPath(name string) string {
	if e.Path == "" {
		return name
	}
	return e.Path + "." + name
}
