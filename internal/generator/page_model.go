package generator

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"docblocks/internal/render"
)

const (
	pageModelSchemaVersion = "v0.1.0"
	pageModelSchemaURL     = "page_model.schema.json"

	PageStatusRendered = "rendered"
	PageStatusFailed   = "failed"
)

//go:embed page_model.schema.json
var pageModelSchema []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// PageModel describes one generation run: every page, its headings and the
// source spans it documents.
type PageModel struct {
	SchemaVersion string      `json:"schema_version"`
	RunID         string      `json:"run_id"`
	Document      ModelDoc    `json:"document"`
	Pages         []ModelPage `json:"pages"`
	Meta          ModelMeta   `json:"meta"`
}

type ModelDoc struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	PageIDs []string `json:"page_ids"`
}

type ModelPage struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	File     string         `json:"file,omitempty"`
	Path     string         `json:"path"`
	Order    int            `json:"order"`
	Status   string         `json:"status"`
	Error    string         `json:"error,omitempty"`
	Headings []ModelHeading `json:"headings"`
	Sources  []SourceRef    `json:"sources"`
	Hash     string         `json:"hash"`
}

type ModelHeading struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	TocLabel string `json:"toc_label,omitempty"`
	Level    int    `json:"level"`
	Hidden   bool   `json:"hidden"`
}

type SourceRef struct {
	SymbolID  string `json:"symbol_id"`
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

type ModelMeta struct {
	Root             string `json:"root,omitempty"`
	GeneratedAt      string `json:"generated_at"`
	GeneratorVersion string `json:"generator_version,omitempty"`
}

func LoadPageModel(path string) (*PageModel, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m PageModel
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func SavePageModel(path string, model *PageModel) error {
	if err := validatePageModelWithSchema(model); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0644)
}

func (m *PageModel) Validate() error {
	if m == nil {
		return fmt.Errorf("page model is nil")
	}
	if m.SchemaVersion == "" {
		return fmt.Errorf("schema_version is required")
	}
	ids := make(map[string]bool, len(m.Pages))
	for _, p := range m.Pages {
		if p.ID == "" {
			return fmt.Errorf("page id is required")
		}
		if ids[p.ID] {
			return fmt.Errorf("duplicate page id: %s", p.ID)
		}
		ids[p.ID] = true
	}
	for _, id := range m.Document.PageIDs {
		if !ids[id] {
			return fmt.Errorf("document lists unknown page: %s", id)
		}
	}
	return nil
}

// PageByPath returns the page documenting the given root entity path.
func (m *PageModel) PageByPath(path string) *ModelPage {
	if m == nil {
		return nil
	}
	for i := range m.Pages {
		if m.Pages[i].Path == path {
			return &m.Pages[i]
		}
	}
	return nil
}

func validatePageModelWithSchema(model *PageModel) error {
	if err := model.Validate(); err != nil {
		return err
	}

	schema, err := loadCompiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile page model schema: %w", err)
	}

	var v any
	raw, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("failed to marshal page model for schema validation: %w", err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("failed to normalize page model for schema validation: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("page model schema validation failed: %w", err)
	}
	return nil
}

func loadCompiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(pageModelSchemaURL, bytes.NewReader(pageModelSchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile(pageModelSchemaURL)
	})
	return compiledSchema, schemaErr
}

// modelPage summarizes a page for the model.
func modelPage(p *Page, order int) ModelPage {
	mp := ModelPage{
		ID:       p.ID,
		Title:    p.Title,
		File:     p.File,
		Path:     p.Path,
		Order:    order,
		Status:   PageStatusRendered,
		Headings: []ModelHeading{},
		Sources:  []SourceRef{},
	}
	if p.Err != nil {
		mp.Status = PageStatusFailed
		mp.Error = p.Err.Error()
		mp.File = ""
	}
	for _, b := range p.Blocks {
		h := b.Heading
		if h.Emitted() {
			mp.Headings = append(mp.Headings, ModelHeading{
				ID:       h.ID,
				Label:    h.Label,
				TocLabel: h.TocLabel,
				Level:    h.Level,
				Hidden:   !h.Visible,
			})
		}
		if src := b.Body.Source; src != nil {
			mp.Sources = append(mp.Sources, sourceRef(b.Path, src))
		}
	}
	mp.Hash = contentHash(p.Markdown)
	return mp
}

func sourceRef(path string, src *render.SourceBlock) SourceRef {
	start := src.StartLine
	if start < 1 {
		start = 1
	}
	lines := strings.Count(strings.TrimRight(src.Code, "\n"), "\n") + 1
	return SourceRef{
		SymbolID:  path,
		FilePath:  src.FilePath,
		StartLine: start,
		EndLine:   start + lines - 1,
	}
}

func contentHash(content string) string {
	if content == "" {
		return "sha256:empty"
	}
	sum := sha256.Sum256([]byte(content))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// pageID turns an entity path into a file-safe slug.
func pageID(path string) string {
	s := strings.ToLower(strings.TrimSpace(path))
	if s == "" {
		return "page"
	}
	var b strings.Builder
	prevDash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			prevDash = false
			continue
		}
		if !prevDash {
			b.WriteByte('-')
			prevDash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "page"
	}
	return out
}
