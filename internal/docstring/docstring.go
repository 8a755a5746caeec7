package docstring

import (
	"regexp"
	"strings"
)

// SectionKind identifies the role of a docstring section.
type SectionKind string

const (
	SectionText       SectionKind = "text"
	SectionParameters SectionKind = "parameters"
	SectionReturns    SectionKind = "returns"
	SectionRaises     SectionKind = "raises"
	SectionAttributes SectionKind = "attributes"
	SectionExamples   SectionKind = "examples"
	SectionAdmonition SectionKind = "admonition"
)

// Item is a single documented element of a tabular section (a parameter,
// a return value, an exception, an attribute).
type Item struct {
	Name        string `json:"name,omitempty"`
	Annotation  string `json:"annotation,omitempty"`
	Description string `json:"description,omitempty"`
	Default     string `json:"default,omitempty"`
}

// Section is one structured part of a docstring.
type Section struct {
	Kind  SectionKind `json:"kind"`
	Title string      `json:"title,omitempty"`
	Text  string      `json:"text,omitempty"`
	Items []Item      `json:"items,omitempty"`

	// Admonition only.
	Style       string `json:"style,omitempty"`
	Collapsible bool   `json:"collapsible,omitempty"`
}

// Docstring is a parsed docstring.
type Docstring struct {
	Raw      string    `json:"raw,omitempty"`
	Sections []Section `json:"sections"`
}

// Empty reports whether the docstring carries no renderable content.
func (d *Docstring) Empty() bool {
	if d == nil {
		return true
	}
	for _, s := range d.Sections {
		if strings.TrimSpace(s.Text) != "" || len(s.Items) > 0 {
			return false
		}
	}
	return true
}

var (
	admonitionRe = regexp.MustCompile(`^(\?\?\?|!!!)\+?\s*([\w-]+)(?:\s+"([^"]*)")?\s*$`)
	itemParenRe  = regexp.MustCompile(`^([\w*.]+)\s*\(([^)]*)\)\s*:\s*(.*)$`)
	itemSpaceRe  = regexp.MustCompile(`^([\w*.]+)\s+([^:]+?)\s*:\s*(.*)$`)
	itemPlainRe  = regexp.MustCompile(`^([\w*.\[\], ]+?)\s*:\s*(.*)$`)
)

var sectionHeaders = map[string]SectionKind{
	"args":       SectionParameters,
	"arguments":  SectionParameters,
	"parameters": SectionParameters,
	"params":     SectionParameters,
	"returns":    SectionReturns,
	"return":     SectionReturns,
	"yields":     SectionReturns,
	"raises":     SectionRaises,
	"exceptions": SectionRaises,
	"attributes": SectionAttributes,
	"examples":   SectionExamples,
	"example":    SectionExamples,
	"note":       SectionAdmonition,
	"notes":      SectionAdmonition,
	"warning":    SectionAdmonition,
	"warnings":   SectionAdmonition,
	"tip":        SectionAdmonition,
}

// Parse splits a Google-style docstring into sections.
func Parse(text string) *Docstring {
	text = strings.Trim(cleandoc(text), "\n")
	doc := &Docstring{Raw: text, Sections: []Section{}}
	if strings.TrimSpace(text) == "" {
		return doc
	}

	lines := strings.Split(text, "\n")
	var para []string
	flush := func() {
		if t := strings.TrimSpace(strings.Join(para, "\n")); t != "" {
			doc.Sections = append(doc.Sections, Section{Kind: SectionText, Text: t})
		}
		para = nil
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if m := admonitionRe.FindStringSubmatch(trimmed); m != nil && indentOf(line) == 0 {
			flush()
			body, next := block(lines, i+1)
			title := m[3]
			if title == "" {
				title = capitalize(m[2])
			}
			doc.Sections = append(doc.Sections, Section{
				Kind:        SectionAdmonition,
				Title:       strings.TrimSuffix(title, ":"),
				Text:        strings.TrimSpace(dedent(strings.Join(body, "\n"))),
				Style:       strings.ToLower(m[2]),
				Collapsible: m[1] == "???",
			})
			i = next - 1
			continue
		}

		if kind, title, ok := header(line); ok {
			body, next := block(lines, i+1)
			if len(body) == 0 {
				// "Returns:" with nothing below it is prose, not a section.
				para = append(para, line)
				continue
			}
			flush()
			doc.Sections = append(doc.Sections, buildSection(kind, title, body))
			i = next - 1
			continue
		}

		para = append(para, line)
	}
	flush()
	return doc
}

func header(line string) (SectionKind, string, bool) {
	if indentOf(line) != 0 {
		return "", "", false
	}
	trimmed := strings.TrimSpace(line)
	if !strings.HasSuffix(trimmed, ":") {
		return "", "", false
	}
	name := strings.TrimSuffix(trimmed, ":")
	kind, ok := sectionHeaders[strings.ToLower(name)]
	return kind, name, ok
}

// block collects the indented (or blank) lines following a header.
func block(lines []string, start int) ([]string, int) {
	i := start
	for ; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		if indentOf(lines[i]) == 0 {
			break
		}
	}
	body := lines[start:i]
	for len(body) > 0 && strings.TrimSpace(body[len(body)-1]) == "" {
		body = body[:len(body)-1]
		i--
	}
	return body, i
}

func buildSection(kind SectionKind, title string, body []string) Section {
	sec := Section{Kind: kind, Title: title}
	switch kind {
	case SectionExamples:
		sec.Text = strings.TrimSpace(dedent(strings.Join(body, "\n")))
		return sec
	case SectionAdmonition:
		sec.Style = strings.ToLower(strings.TrimSuffix(title, "s"))
		sec.Text = strings.TrimSpace(dedent(strings.Join(body, "\n")))
		return sec
	}

	body = strings.Split(dedent(strings.Join(body, "\n")), "\n")
	for _, line := range body {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if indentOf(line) > 0 && len(sec.Items) > 0 {
			last := &sec.Items[len(sec.Items)-1]
			last.Description = strings.TrimSpace(last.Description + " " + strings.TrimSpace(line))
			continue
		}
		sec.Items = append(sec.Items, parseItem(kind, strings.TrimSpace(line)))
	}
	return sec
}

func parseItem(kind SectionKind, line string) Item {
	switch kind {
	case SectionReturns:
		if m := itemPlainRe.FindStringSubmatch(line); m != nil && !strings.Contains(m[1], " ") {
			return Item{Annotation: m[1], Description: m[2]}
		}
		return Item{Description: line}
	case SectionRaises:
		if m := itemPlainRe.FindStringSubmatch(line); m != nil {
			return Item{Annotation: strings.TrimSpace(m[1]), Description: m[2]}
		}
		return Item{Description: line}
	}

	if m := itemParenRe.FindStringSubmatch(line); m != nil {
		item := Item{Name: m[1], Description: m[3]}
		item.Annotation, item.Default = splitDefault(m[2])
		return item
	}
	if m := itemSpaceRe.FindStringSubmatch(line); m != nil {
		return Item{Name: m[1], Annotation: strings.TrimSpace(m[2]), Description: m[3]}
	}
	if m := itemPlainRe.FindStringSubmatch(line); m != nil {
		return Item{Name: strings.TrimSpace(m[1]), Description: m[2]}
	}
	return Item{Name: line}
}

// splitDefault separates "int, optional" or "int, default 3" annotations.
func splitDefault(annotation string) (string, string) {
	parts := strings.Split(annotation, ",")
	typ := strings.TrimSpace(parts[0])
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, "default") {
			def := strings.TrimSpace(strings.TrimPrefix(p, "default"))
			def = strings.TrimSpace(strings.TrimPrefix(def, "="))
			def = strings.TrimSpace(strings.TrimPrefix(def, ":"))
			return typ, def
		}
	}
	return typ, ""
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// dedent removes the common leading indentation of all non-blank lines.
func dedent(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\t", "    "), "\n")
	common := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if n := indentOf(l); common < 0 || n < common {
			common = n
		}
	}
	if common <= 0 {
		return strings.Join(lines, "\n")
	}
	for i, l := range lines {
		if len(l) >= common {
			lines[i] = l[common:]
		} else {
			lines[i] = strings.TrimLeft(l, " ")
		}
	}
	return strings.Join(lines, "\n")
}

// cleandoc dedents everything after the first line, which conventionally
// starts right after the opening quotes.
func cleandoc(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	first, rest, found := strings.Cut(text, "\n")
	if !found {
		return strings.TrimSpace(first)
	}
	return strings.TrimSpace(first) + "\n" + dedent(rest)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
