package extractor

import (
	"encoding/json"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// CodeUnit is the universal container for any extracted code symbol.
type CodeUnit struct {
	ID          string      `json:"id"`
	Filepath    string      `json:"filepath"`
	Package     string      `json:"package"`
	Language    string      `json:"language"`
	StartLine   int         `json:"start_line"`
	EndLine     int         `json:"end_line"`
	Content     string      `json:"content"`
	UnitType    string      `json:"unit_type"` // package, struct, interface, type, function, method, constant, variable
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Receiver    string      `json:"receiver,omitempty"` // receiver type name for methods
	Properties  []string    `json:"properties,omitempty"`
	Details     interface{} `json:"details"` // Language-specific details
}

// IsType reports whether the unit declares a named type.
func (u *CodeUnit) IsType() bool {
	switch u.UnitType {
	case "struct", "interface", "type":
		return true
	}
	return false
}

// LanguageExtractor defines the interface that each language parser must implement.
type LanguageExtractor interface {
	GetLanguage() *sitter.Language
	GetQuery() string
	ExtractUnit(captureName string, node *sitter.Node, sourceCode []byte, filepath string, packageName string) *CodeUnit
}

// DecodeDetails restores the typed Details of a unit from its JSON form.
func DecodeDetails(unitType string, data []byte) (interface{}, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var err error
	switch unitType {
	case "function", "method":
		var d GoFunctionDetails
		err = json.Unmarshal(data, &d)
		if err == nil {
			return d, nil
		}
	case "struct":
		var d GoTypeDetails
		err = json.Unmarshal(data, &d)
		if err == nil {
			return d, nil
		}
	case "interface":
		var d GoInterfaceDetails
		err = json.Unmarshal(data, &d)
		if err == nil {
			return d, nil
		}
	case "constant", "variable":
		var d GoValueDetails
		err = json.Unmarshal(data, &d)
		if err == nil {
			return d, nil
		}
	default:
		return nil, nil
	}
	return nil, fmt.Errorf("decode %s details: %w", unitType, err)
}
