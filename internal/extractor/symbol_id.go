package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// BuildStableSymbolID creates a deterministic symbol ID. It does not depend
// on line numbers, so moving a declaration inside its file keeps the ID.
func BuildStableSymbolID(unit *CodeUnit) string {
	if unit == nil {
		return ""
	}

	lang := orPlaceholder(unit.Language, "unknown")
	pkg := orPlaceholder(unit.Package, "_")
	kind := orPlaceholder(unit.UnitType, "symbol")
	name := orPlaceholder(unit.Name, "_")

	signature := canonicalize(extractSignature(unit))
	if signature == "" {
		signature = canonicalize(unit.Content)
	}

	fingerprint := strings.Join([]string{
		lang,
		filepathKey(unit.Filepath),
		pkg,
		kind,
		canonicalize(unit.Receiver),
		name,
		signature,
	}, "|")

	sum := sha256.Sum256([]byte(fingerprint))
	short := hex.EncodeToString(sum[:8])
	if unit.Receiver != "" {
		name = unit.Receiver + "." + name
	}
	return fmt.Sprintf("%s/%s:%s:%s:%s", lang, pkg, kind, name, short)
}

func extractSignature(unit *CodeUnit) string {
	if unit == nil || unit.Details == nil {
		return ""
	}

	switch d := unit.Details.(type) {
	case GoFunctionDetails:
		return d.Signature
	case *GoFunctionDetails:
		if d != nil {
			return d.Signature
		}
	}
	return ""
}

func orPlaceholder(s, placeholder string) string {
	if s = strings.TrimSpace(s); s == "" {
		return placeholder
	}
	return s
}

func filepathKey(path string) string {
	return strings.ReplaceAll(strings.TrimSpace(path), "\\", "/")
}

func canonicalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return whitespaceRe.ReplaceAllString(s, " ")
}
