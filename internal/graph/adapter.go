package graph

import (
	"strings"

	"docblocks/internal/docstring"
	"docblocks/internal/entity"
	"docblocks/internal/extractor"
)

// Entities converts the linked graph into raw entity trees, one per package,
// with members in source order.
func (g *Graph) Entities() []entity.Raw {
	var out []entity.Raw
	for _, pkg := range g.Packages() {
		out = append(out, g.packageRaw(pkg))
	}
	return out
}

func (g *Graph) packageRaw(pkg *Node) entity.Raw {
	module := g.ModulePath(pkg.Unit)
	raw := entity.Raw{
		Name: pkg.Unit.Name,
		Path: module,
		Kind: "package",
	}

	var values []docstring.Item
	for _, m := range g.GetMembers(pkg.Unit.ID) {
		switch m.Unit.UnitType {
		case "constant", "variable":
			values = append(values, valueItem(m.Unit))
		default:
			raw.Members = append(raw.Members, g.memberRaw(m, module))
		}
	}
	withAttributes(&raw, pkg.Unit.Description, values)
	return raw
}

func (g *Graph) memberRaw(node *Node, parentPath string) entity.Raw {
	u := node.Unit
	raw := entity.Raw{
		Name:       u.Name,
		Path:       parentPath + "." + u.Name,
		Kind:       u.UnitType,
		Properties: append([]string(nil), u.Properties...),
		Source: &entity.SourceSpan{
			Code:      u.Content,
			StartLine: u.StartLine,
			FilePath:  g.RelPath(u),
		},
	}
	raw.Signature = signatureOf(u.Details)

	switch d := u.Details.(type) {
	case extractor.GoTypeDetails:
		withAttributes(&raw, u.Description, fieldItems(d.Fields))
	case extractor.GoInterfaceDetails:
		raw.Docstring = u.Description
		for _, m := range d.Methods {
			if m.Name == "" {
				continue
			}
			raw.Members = append(raw.Members, entity.Raw{
				Name:       m.Name,
				Path:       raw.Path + "." + m.Name,
				Kind:       "method",
				Docstring:  m.Doc,
				Signature:  signatureOf(m),
				Properties: []string{extractor.Visibility(m.Name), "abstract"},
			})
		}
	default:
		raw.Docstring = u.Description
	}

	if u.IsType() {
		for _, m := range g.GetMembers(u.ID) {
			raw.Members = append(raw.Members, g.memberRaw(m, raw.Path))
		}
	}
	return raw
}

// withAttributes sets the docstring and, when the entity is documented at
// all, appends an attributes section for its fields or package values.
func withAttributes(raw *entity.Raw, doc string, items []docstring.Item) {
	raw.Docstring = doc
	parsed := docstring.Parse(doc)
	if parsed.Empty() || len(items) == 0 {
		return
	}
	raw.Sections = append(parsed.Sections, docstring.Section{
		Kind:  docstring.SectionAttributes,
		Title: "Attributes",
		Items: items,
	})
}

func valueItem(u *extractor.CodeUnit) docstring.Item {
	item := docstring.Item{Name: u.Name, Description: firstLine(u.Description)}
	if d, ok := u.Details.(extractor.GoValueDetails); ok {
		item.Annotation = d.Type
		item.Default = d.Value
	}
	return item
}

func fieldItems(fields []extractor.GoField) []docstring.Item {
	var items []docstring.Item
	for _, f := range fields {
		if extractor.Visibility(f.Name) != "exported" {
			continue
		}
		items = append(items, docstring.Item{Name: f.Name, Annotation: f.Type})
	}
	return items
}

func signatureOf(details interface{}) *entity.Signature {
	var d extractor.GoFunctionDetails
	switch v := details.(type) {
	case extractor.GoFunctionDetails:
		d = v
	case *extractor.GoFunctionDetails:
		if v == nil {
			return nil
		}
		d = *v
	default:
		return nil
	}

	sig := &entity.Signature{Text: d.Signature, Parameters: []entity.Parameter{}}
	for _, p := range d.Parameters {
		sig.Parameters = append(sig.Parameters, entity.Parameter{Name: p.Name, Annotation: p.Type})
	}
	var returns []string
	for _, r := range d.Returns {
		returns = append(returns, strings.TrimSpace(r.Name+" "+r.Type))
	}
	switch len(returns) {
	case 0:
	case 1:
		sig.Returns = returns[0]
	default:
		sig.Returns = "(" + strings.Join(returns, ", ") + ")"
	}
	return sig
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
