package render

import (
	"fmt"
	"strings"

	"docblocks/internal/docstring"
	"docblocks/internal/entity"
)

// ContentBlock is the rendered body of one entity: its declaration, its
// docstring sections and optionally its source listing.
type ContentBlock struct {
	Signature  string              `json:"signature,omitempty"`
	Properties []string            `json:"properties,omitempty"`
	Sections   []docstring.Section `json:"sections,omitempty"`
	Source     *SourceBlock        `json:"source,omitempty"`
}

// Empty reports whether the block would render nothing.
func (b ContentBlock) Empty() bool {
	return b.Signature == "" && len(b.Properties) == 0 && len(b.Sections) == 0 && b.Source == nil
}

// RenderBody builds the body for e. The source block is attached only when
// source display is enabled and the entity has source text.
func RenderBody(e *entity.Entity, cfg Config) ContentBlock {
	var b ContentBlock
	if cfg.ShowSignature && e.Signature != nil {
		b.Signature = strings.TrimSpace(e.Signature.Text)
	}
	if cfg.ShowProperties {
		b.Properties = e.SortedProperties()
	}
	if e.Docstring != nil {
		b.Sections = e.Docstring.Sections
	}
	if cfg.ShowSource && e.Source != nil && strings.TrimSpace(e.Source.Code) != "" {
		b.Source = NewSourceBlock(e.Source)
	}
	return b
}

// Markdown renders the block as markdown with embedded HTML for the source
// listing.
func (b ContentBlock) Markdown() string {
	var parts []string
	if len(b.Properties) > 0 {
		badges := make([]string, len(b.Properties))
		for i, p := range b.Properties {
			badges[i] = fmt.Sprintf("<small><code>%s</code></small>", p)
		}
		parts = append(parts, strings.Join(badges, " "))
	}
	if b.Signature != "" {
		parts = append(parts, "```\n"+b.Signature+"\n```")
	}
	for _, s := range b.Sections {
		if md := sectionMarkdown(s); md != "" {
			parts = append(parts, md)
		}
	}
	if b.Source != nil {
		parts = append(parts, b.Source.HTML())
	}
	return strings.Join(parts, "\n\n")
}

func sectionMarkdown(s docstring.Section) string {
	switch s.Kind {
	case docstring.SectionText:
		return strings.TrimSpace(s.Text)
	case docstring.SectionParameters:
		rows := make([][]string, len(s.Items))
		for i, it := range s.Items {
			rows[i] = []string{code(it.Name), code(it.Annotation), it.Description, code(it.Default)}
		}
		return table("Parameters", []string{"Name", "Type", "Description", "Default"}, rows)
	case docstring.SectionAttributes:
		rows := make([][]string, len(s.Items))
		for i, it := range s.Items {
			rows[i] = []string{code(it.Name), code(it.Annotation), it.Description}
		}
		return table("Attributes", []string{"Name", "Type", "Description"}, rows)
	case docstring.SectionReturns, docstring.SectionRaises:
		title := "Returns"
		if s.Kind == docstring.SectionRaises {
			title = "Raises"
		}
		rows := make([][]string, len(s.Items))
		for i, it := range s.Items {
			typ := it.Annotation
			if typ == "" {
				typ = it.Name
			}
			rows[i] = []string{code(typ), it.Description}
		}
		return table(title, []string{"Type", "Description"}, rows)
	case docstring.SectionExamples:
		return "**Examples:**\n\n" + strings.TrimSpace(s.Text)
	case docstring.SectionAdmonition:
		marker := "!!!"
		if s.Collapsible {
			marker = "???"
		}
		style := s.Style
		if style == "" {
			style = "note"
		}
		head := marker + " " + style
		if s.Title != "" && !strings.EqualFold(s.Title, style) {
			head += fmt.Sprintf(" %q", s.Title)
		}
		return head + "\n" + indent(strings.TrimSpace(s.Text), "    ")
	}
	return ""
}

func table(title string, header []string, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s:**\n\n", title)
	sb.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = cell(c)
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func code(s string) string {
	if s == "" {
		return ""
	}
	return "`" + s + "`"
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
