package render

import "docblocks/internal/entity"

// Context is the per-descent rendering state. It is passed by value and a
// fresh one is derived for each level of members.
type Context struct {
	IsRoot        bool
	IsRootMembers bool
	HeadingLevel  int
	Config        Config
}

// RootContext is the context of the entity a page is built for.
func RootContext(cfg Config) Context {
	return Context{IsRoot: true, HeadingLevel: cfg.HeadingLevel, Config: cfg}
}

// Heading is the placement of one entity in the page outline. At most one
// of Visible and HiddenTocEntry is set; neither means nothing is emitted.
type Heading struct {
	Level          int    `json:"level"`
	ID             string `json:"id,omitempty"`
	Label          string `json:"label,omitempty"`
	TocLabel       string `json:"toc_label,omitempty"`
	Visible        bool   `json:"visible"`
	HiddenTocEntry bool   `json:"hidden_toc_entry"`
}

// Emitted reports whether the heading produces any output.
func (h Heading) Emitted() bool {
	return h.Visible || h.HiddenTocEntry
}

// Placement is the heading resolved for an entity plus the context its
// members are rendered with.
type Placement struct {
	Heading
	Next Context
}

// ResolveHeading computes heading level, label and toc entry for e.
func ResolveHeading(e *entity.Entity, ctx Context) Placement {
	cfg := ctx.Config
	level := clampLevel(ctx.HeadingLevel)

	next := ctx
	next.IsRoot = false

	var showFullPath bool
	switch {
	case ctx.IsRoot:
		showFullPath = cfg.ShowRootFullPath
		next.IsRootMembers = true
	case ctx.IsRootMembers:
		showFullPath = cfg.ShowRootMembersFullPath || cfg.ShowObjectFullPath
		next.IsRootMembers = false
	default:
		showFullPath = cfg.ShowObjectFullPath
	}

	p := Placement{Heading: Heading{Level: level}}

	if ctx.IsRoot && !cfg.ShowRootHeading {
		if cfg.ShowRootTocEntry {
			p.ID = e.Path
			p.Label = e.Path
			p.TocLabel = e.Path
			p.HiddenTocEntry = true
		}
		// A hidden root still shifts its members one level up.
		next.HeadingLevel = clampLevel(level - 1)
		p.Next = next
		return p
	}

	label := e.Name
	if showFullPath {
		label = e.Path
	}
	if e.Kind.Callable() {
		label += e.Signature.Call()
	}

	p.ID = e.Path
	p.Label = label
	p.TocLabel = tocLabel(e)
	p.Visible = true
	next.HeadingLevel = level
	p.Next = next
	return p
}

func tocLabel(e *entity.Entity) string {
	if e.Kind.Callable() {
		return e.Name + "()"
	}
	return e.Name
}

func clampLevel(level int) int {
	switch {
	case level < 1:
		return 1
	case level > 6:
		return 6
	}
	return level
}
