package extractor

import (
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// GoExtractor implements LanguageExtractor for Go.
type GoExtractor struct{}

func (g *GoExtractor) GetLanguage() *sitter.Language {
	return golang.GetLanguage()
}

func (g *GoExtractor) GetQuery() string {
	return `
		(package_clause) @package
		(function_declaration) @func
		(method_declaration) @func
		(type_spec) @type
		(const_spec) @const
		(var_spec) @var
	`
}

func (g *GoExtractor) ExtractUnit(captureName string, node *sitter.Node, sourceCode []byte, filepath string, packageName string) *CodeUnit {
	if captureName != "package" && captureName != "func" && !isTopLevel(node) {
		return nil
	}

	var unit *CodeUnit
	switch captureName {
	case "package":
		unit = g.extractPackageUnit(node, sourceCode, filepath)
	case "func":
		unit = g.extractFunctionUnit(node, sourceCode, filepath)
	case "type":
		unit = g.extractTypeUnit(node, sourceCode, filepath)
	case "const":
		unit = g.extractValueUnit(node, sourceCode, filepath, "constant")
	case "var":
		unit = g.extractValueUnit(node, sourceCode, filepath, "variable")
	}

	if unit != nil {
		unit.Package = packageName
		unit.Language = "go"
	}
	return unit
}

// Go-specific Detail Schemas

type GoFunctionDetails struct {
	Name       string     `json:"name,omitempty"`
	Doc        string     `json:"doc,omitempty"`
	Receiver   string     `json:"receiver,omitempty"`
	Parameters []GoParam  `json:"parameters"`
	Returns    []GoReturn `json:"returns"`
	Signature  string     `json:"signature"`
}

type GoTypeDetails struct {
	Fields []GoField `json:"fields"`
}

type GoInterfaceDetails struct {
	Methods []GoFunctionDetails `json:"methods"`
}

type GoValueDetails struct {
	Value string `json:"value,omitempty"`
	Type  string `json:"type,omitempty"`
}

type GoParam struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Variadic bool   `json:"variadic,omitempty"`
}

type GoReturn struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
}

type GoField struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Tag  string `json:"tag,omitempty"`
}

// Extraction Logic

func (g *GoExtractor) extractPackageUnit(node *sitter.Node, sourceCode []byte, filepath string) *CodeUnit {
	var name string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child.Type() == "package_identifier" {
			name = child.Content(sourceCode)
		}
	}
	if name == "" {
		return nil
	}

	return &CodeUnit{
		Filepath:    filepath,
		StartLine:   int(node.StartPoint().Row + 1),
		EndLine:     int(node.EndPoint().Row + 1),
		Content:     node.Content(sourceCode),
		UnitType:    "package",
		Name:        name,
		Description: g.extractDocComment(node, sourceCode),
	}
}

func (g *GoExtractor) extractTypeUnit(node *sitter.Node, sourceCode []byte, filepath string) *CodeUnit {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nameNode.Content(sourceCode)

	parentNode := node.Parent()
	if parentNode == nil || parentNode.Type() != "type_declaration" {
		parentNode = node
	}
	// Specs inside a grouped declaration carry their own comments.
	docComment := g.extractDocComment(node, sourceCode)
	if docComment == "" {
		docComment = g.extractDocComment(parentNode, sourceCode)
	}
	content := parentNode.Content(sourceCode)
	if parentNode.NamedChildCount() > 1 {
		content = node.Content(sourceCode)
	}

	var details interface{}
	unitType := "type"
	properties := []string{Visibility(name)}

	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		switch typeNode.Type() {
		case "struct_type":
			unitType = "struct"
			details = g.extractStructDetails(typeNode, sourceCode)
		case "interface_type":
			unitType = "interface"
			details = g.extractInterfaceDetails(typeNode, sourceCode)
		}
	}
	if unitType != "type" {
		properties = append(properties, unitType)
	}
	if node.ChildByFieldName("type_parameters") != nil {
		properties = append(properties, "generic")
	}

	return &CodeUnit{
		Filepath:    filepath,
		StartLine:   int(parentNode.StartPoint().Row + 1),
		EndLine:     int(parentNode.EndPoint().Row + 1),
		Content:     content,
		UnitType:    unitType,
		Name:        name,
		Description: docComment,
		Properties:  properties,
		Details:     details,
	}
}

func (g *GoExtractor) extractStructDetails(structNode *sitter.Node, sourceCode []byte) GoTypeDetails {
	fields := []GoField{}
	var fieldList *sitter.Node
	for i := 0; i < int(structNode.ChildCount()); i++ {
		child := structNode.Child(i)
		if child.Type() == "field_declaration_list" {
			fieldList = child
			break
		}
	}
	if fieldList == nil {
		return GoTypeDetails{Fields: fields}
	}

	for i := 0; i < int(fieldList.NamedChildCount()); i++ {
		fieldDecl := fieldList.NamedChild(i)
		if fieldDecl.Type() != "field_declaration" {
			continue
		}

		var fieldType, fieldTag string
		if typeNode := fieldDecl.ChildByFieldName("type"); typeNode != nil {
			fieldType = typeNode.Content(sourceCode)
		}
		if tagNode := fieldDecl.ChildByFieldName("tag"); tagNode != nil {
			fieldTag = tagNode.Content(sourceCode)
		}

		foundNames := false
		for j := 0; j < int(fieldDecl.NamedChildCount()); j++ {
			child := fieldDecl.NamedChild(j)
			if child.Type() == "field_identifier" {
				fields = append(fields, GoField{
					Name: child.Content(sourceCode),
					Type: fieldType,
					Tag:  fieldTag,
				})
				foundNames = true
			}
		}

		// Embedded field: named after its type.
		if !foundNames && fieldType != "" {
			name := fieldType
			if lastDot := strings.LastIndex(name, "."); lastDot != -1 {
				name = name[lastDot+1:]
			}
			name = strings.TrimPrefix(name, "*")
			fields = append(fields, GoField{Name: name, Type: fieldType, Tag: fieldTag})
		}
	}
	return GoTypeDetails{Fields: fields}
}

func (g *GoExtractor) extractInterfaceDetails(interfaceNode *sitter.Node, sourceCode []byte) GoInterfaceDetails {
	methods := []GoFunctionDetails{}
	for i := 0; i < int(interfaceNode.NamedChildCount()); i++ {
		n := interfaceNode.NamedChild(i)
		switch n.Type() {
		case "method_elem", "method_spec":
			details := GoFunctionDetails{
				Doc:        g.extractDocComment(n, sourceCode),
				Signature:  n.Content(sourceCode),
				Parameters: []GoParam{},
				Returns:    []GoReturn{},
			}
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				details.Name = nameNode.Content(sourceCode)
			}
			if paramsNode := n.ChildByFieldName("parameters"); paramsNode != nil {
				details.Parameters = g.extractParams(paramsNode, sourceCode)
			}
			if resultNode := n.ChildByFieldName("result"); resultNode != nil {
				details.Returns = g.extractReturns(resultNode, sourceCode)
			}
			methods = append(methods, details)
		case "type_elem", "constraint_elem", "type_identifier", "qualified_type":
			// Embedded interfaces and constraints have no name of their own.
			methods = append(methods, GoFunctionDetails{
				Signature:  n.Content(sourceCode),
				Parameters: []GoParam{},
				Returns:    []GoReturn{},
			})
		}
	}
	return GoInterfaceDetails{Methods: methods}
}

func (g *GoExtractor) extractFunctionUnit(node *sitter.Node, sourceCode []byte, filepath string) *CodeUnit {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nameNode.Content(sourceCode)
	content := node.Content(sourceCode)

	unit := &CodeUnit{
		Filepath:    filepath,
		StartLine:   int(node.StartPoint().Row + 1),
		EndLine:     int(node.EndPoint().Row + 1),
		Content:     content,
		UnitType:    "function",
		Name:        name,
		Description: g.extractDocComment(node, sourceCode),
		Properties:  []string{Visibility(name)},
	}
	details := GoFunctionDetails{
		Name:       name,
		Parameters: []GoParam{},
		Returns:    []GoReturn{},
	}

	if node.Type() == "method_declaration" {
		unit.UnitType = "method"
		if receiverNode := node.ChildByFieldName("receiver"); receiverNode != nil {
			details.Receiver = receiverNode.Content(sourceCode)
			typeName, pointer := receiverType(receiverNode, sourceCode)
			unit.Receiver = typeName
			if pointer {
				unit.Properties = append(unit.Properties, "pointer-receiver")
			}
		}
	}

	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		details.Parameters = g.extractParams(paramsNode, sourceCode)
	}
	if resultNode := node.ChildByFieldName("result"); resultNode != nil {
		details.Returns = g.extractReturns(resultNode, sourceCode)
	}
	if n := len(details.Parameters); n > 0 && details.Parameters[n-1].Variadic {
		unit.Properties = append(unit.Properties, "variadic")
	}
	if node.ChildByFieldName("type_parameters") != nil {
		unit.Properties = append(unit.Properties, "generic")
	}

	if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
		details.Signature = strings.TrimSpace(string(sourceCode[node.StartByte():bodyNode.StartByte()]))
	} else {
		details.Signature = content
	}

	unit.Details = details
	return unit
}

func (g *GoExtractor) extractValueUnit(node *sitter.Node, sourceCode []byte, filepath, unitType string) *CodeUnit {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nameNode.Content(sourceCode)
	parentNode := node.Parent()
	if parentNode == nil {
		parentNode = node
	}

	docComment := g.extractDocComment(node, sourceCode)
	if docComment == "" {
		docComment = g.extractDocComment(parentNode, sourceCode)
	}

	details := GoValueDetails{}
	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		details.Type = typeNode.Content(sourceCode)
	}
	if valueNode := node.ChildByFieldName("value"); valueNode != nil {
		details.Value = valueNode.Content(sourceCode)
	}

	return &CodeUnit{
		Filepath:    filepath,
		StartLine:   int(node.StartPoint().Row + 1),
		EndLine:     int(node.EndPoint().Row + 1),
		Content:     node.Content(sourceCode),
		UnitType:    unitType,
		Name:        name,
		Description: docComment,
		Properties:  []string{Visibility(name)},
		Details:     details,
	}
}

func (g *GoExtractor) extractDocComment(node *sitter.Node, sourceCode []byte) string {
	var commentLines []string
	currentNode := node
	for {
		prevSibling := currentNode.PrevSibling()
		if prevSibling == nil || (currentNode.StartPoint().Row-prevSibling.EndPoint().Row > 1) {
			break
		}
		if prevSibling.Type() != "comment" {
			break
		}
		commentLines = append([]string{prevSibling.Content(sourceCode)}, commentLines...)
		currentNode = prevSibling
	}
	return cleanDocComment(strings.Join(commentLines, "\n"))
}

func (g *GoExtractor) extractParams(paramsNode *sitter.Node, sourceCode []byte) []GoParam {
	params := []GoParam{}
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		pNode := paramsNode.NamedChild(i)
		variadic := pNode.Type() == "variadic_parameter_declaration"
		if pNode.Type() != "parameter_declaration" && !variadic {
			continue
		}

		pType := ""
		if tn := pNode.ChildByFieldName("type"); tn != nil {
			pType = tn.Content(sourceCode)
		}
		if variadic && !strings.HasPrefix(pType, "...") {
			pType = "..." + pType
		}

		var names []string
		for j := 0; j < int(pNode.NamedChildCount()); j++ {
			if child := pNode.NamedChild(j); child.Type() == "identifier" {
				names = append(names, child.Content(sourceCode))
			}
		}
		if len(names) == 0 {
			params = append(params, GoParam{Type: pType, Variadic: variadic})
			continue
		}
		for _, n := range names {
			params = append(params, GoParam{Name: n, Type: pType, Variadic: variadic})
		}
	}
	return params
}

func (g *GoExtractor) extractReturns(resultNode *sitter.Node, sourceCode []byte) []GoReturn {
	returns := []GoReturn{}
	switch resultNode.Type() {
	case "parameter_list":
		for _, p := range g.extractParams(resultNode, sourceCode) {
			returns = append(returns, GoReturn{Name: p.Name, Type: p.Type})
		}
	case "type_list":
		for i := 0; i < int(resultNode.NamedChildCount()); i++ {
			returns = append(returns, GoReturn{Type: resultNode.NamedChild(i).Content(sourceCode)})
		}
	default:
		returns = append(returns, GoReturn{Type: resultNode.Content(sourceCode)})
	}
	return returns
}

// receiverType returns the bare type name of a method receiver and whether
// it is a pointer receiver.
func receiverType(receiverNode *sitter.Node, sourceCode []byte) (string, bool) {
	for i := 0; i < int(receiverNode.NamedChildCount()); i++ {
		param := receiverNode.NamedChild(i)
		if param.Type() != "parameter_declaration" {
			continue
		}
		typeNode := param.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		typ := typeNode.Content(sourceCode)
		pointer := strings.HasPrefix(typ, "*")
		typ = strings.TrimPrefix(typ, "*")
		if idx := strings.Index(typ, "["); idx != -1 {
			typ = typ[:idx]
		}
		return strings.TrimSpace(typ), pointer
	}
	return "", false
}

// isTopLevel rejects declarations nested in function bodies.
func isTopLevel(node *sitter.Node) bool {
	for p := node.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "block", "function_declaration", "method_declaration", "func_literal":
			return false
		}
	}
	return true
}

// Visibility tags a Go identifier as exported or unexported.
func Visibility(name string) string {
	r, _ := utf8.DecodeRuneInString(name)
	if unicode.IsUpper(r) {
		return "exported"
	}
	return "unexported"
}

// cleanDocComment strips comment markers but keeps relative indentation, so
// indented docstring sections survive.
func cleanDocComment(rawComment string) string {
	if rawComment == "" {
		return ""
	}
	var cleaned []string
	for _, l := range strings.Split(rawComment, "\n") {
		l = strings.TrimSpace(l)
		if strings.HasPrefix(l, "//go:") || strings.HasPrefix(l, "//nolint") {
			continue
		}
		switch {
		case strings.HasPrefix(l, "//"):
			l = strings.TrimPrefix(l, "//")
			l = strings.TrimPrefix(l, " ")
		case strings.HasPrefix(l, "/*"):
			l = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(l, "/*"), "*/"))
		default:
			l = strings.TrimSuffix(l, "*/")
		}
		cleaned = append(cleaned, strings.TrimRight(l, " \t"))
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
