package generator

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"docblocks/internal/entity"
	"docblocks/internal/render"
)

const (
	generatorVersion = "docblocks-dev"
	indexFile        = "index.md"
	modelFile        = "page_model.json"
	reportFile       = "pipeline_report.json"
)

// MarkdownGenerator turns entity trees into one markdown page per top-level
// entity.
type MarkdownGenerator struct {
	renderer *render.Renderer
	logger   *logrus.Logger
	workers  int
	root     string
}

// Page is the rendered documentation of one top-level entity.
type Page struct {
	ID       string
	Title    string
	File     string
	Path     string
	Blocks   []render.Block
	Markdown string
	Err      error
}

// Option configures a MarkdownGenerator.
type Option func(*MarkdownGenerator)

// WithLogger sets the logger for per-page diagnostics.
func WithLogger(logger *logrus.Logger) Option {
	return func(g *MarkdownGenerator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithConcurrency bounds the number of pages rendered and written at once.
func WithConcurrency(n int) Option {
	return func(g *MarkdownGenerator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithProjectRoot records the documented project in the page model.
func WithProjectRoot(root string) Option {
	return func(g *MarkdownGenerator) {
		g.root = root
	}
}

func NewMarkdownGenerator(r *render.Renderer, opts ...Option) *MarkdownGenerator {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	g := &MarkdownGenerator{
		renderer: r,
		logger:   discard,
		workers:  4,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateDocs renders roots into outputDir and writes the page model and
// pipeline report next to the pages.
func (g *MarkdownGenerator) GenerateDocs(ctx context.Context, roots []entity.Raw, outputDir string) (*PageModel, error) {
	report := NewPipelineReport("generate", outputDir)
	return g.GenerateDocsWithReport(ctx, roots, outputDir, report)
}

// GenerateDocsWithReport is GenerateDocs with a caller supplied report. Pages
// whose tree fails to render are recorded as failed; their errors are joined
// into the returned error while every other page is still written. A nil
// model means nothing was written.
func (g *MarkdownGenerator) GenerateDocsWithReport(ctx context.Context, roots []entity.Raw, outputDir string, report *PipelineReport) (model *PageModel, retErr error) {
	if report == nil {
		report = NewPipelineReport("generate", outputDir)
	}
	reportPath := filepath.Join(outputDir, reportFile)
	defer func() {
		if model == nil && retErr != nil {
			report.AddSignal("generate_failed", "generator", "critical", "Documentation generation failed.", 1)
		}
		if err := report.Save(reportPath); err != nil {
			g.logger.Warnf("Failed to write pipeline report: %v", err)
		}
	}()

	stage := report.BeginStage("init_output_dir")
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		report.EndStage(stage, "error", nil, nil, err)
		return nil, err
	}
	report.EndStage(stage, "ok", nil, nil, nil)

	stage = report.BeginStage("render_pages")
	pages, err := g.BuildPages(ctx, roots)
	if err != nil {
		report.EndStage(stage, "error", nil, nil, err)
		return nil, err
	}
	var renderErrs []error
	for _, p := range pages {
		if p.Err != nil {
			renderErrs = append(renderErrs, p.Err)
			report.AddSignal("page_render_failed", "render_pages", "warning", p.Err.Error(), 1)
		}
	}
	report.EndStage(stage, "ok", map[string]float64{
		"roots_total":  float64(len(roots)),
		"pages_total":  float64(len(pages)),
		"pages_failed": float64(len(renderErrs)),
	}, nil, nil)
	if len(pages) == 0 {
		report.AddSignal("no_pages", "render_pages", "warning", "No top-level entity had anything to document.", 0)
	}

	previous, _ := LoadPageModel(filepath.Join(outputDir, modelFile))

	stage = report.BeginStage("write_pages")
	unchanged, err := g.writePages(ctx, pages, outputDir, previous)
	if err != nil {
		report.EndStage(stage, "error", nil, nil, err)
		return nil, err
	}
	report.EndStage(stage, "ok", map[string]float64{
		"pages_written":   float64(len(pages) - len(renderErrs) - len(unchanged)),
		"pages_unchanged": float64(len(unchanged)),
	}, nil, nil)

	model = g.buildModel(pages, report.RunID)
	for i, p := range pages {
		report.AddPageMetric(pageMetric(p, model.Pages[i], unchanged[p.ID]))
	}

	stage = report.BeginStage("write_index")
	index := renderIndex(pages)
	if err := os.WriteFile(filepath.Join(outputDir, indexFile), []byte(index), 0644); err != nil {
		report.EndStage(stage, "error", nil, nil, err)
		return nil, err
	}
	report.EndStage(stage, "ok", map[string]float64{"rendered_bytes": float64(len(index))}, nil, nil)

	stage = report.BeginStage("save_page_model")
	if err := SavePageModel(filepath.Join(outputDir, modelFile), model); err != nil {
		report.EndStage(stage, "error", nil, nil, err)
		return nil, fmt.Errorf("failed to save page model: %w", err)
	}
	report.EndStage(stage, "ok", map[string]float64{"pages_total": float64(len(model.Pages))}, nil, nil)

	report.AddSignal("generate_complete", "generator", "info", "Documentation generation completed.", 1)
	return model, errors.Join(renderErrs...)
}

// BuildPages renders every root concurrently and returns the pages in input
// order. Roots with nothing to document produce no page. Page ids are made
// unique by suffixing repeats.
func (g *MarkdownGenerator) BuildPages(ctx context.Context, roots []entity.Raw) ([]*Page, error) {
	built := make([]*Page, len(roots))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, raw := range roots {
		i, raw := i, raw
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			built[i] = g.BuildPage(raw)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	used := make(map[string]int)
	pages := make([]*Page, 0, len(built))
	for _, p := range built {
		if p == nil {
			continue
		}
		base := p.ID
		if n := used[base]; n > 0 {
			p.ID = fmt.Sprintf("%s-%d", base, n+1)
		}
		used[base]++
		if p.Err == nil {
			p.File = p.ID + ".md"
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// BuildPage renders one top-level entity. It returns nil when the entity is
// gated out entirely.
func (g *MarkdownGenerator) BuildPage(raw entity.Raw) *Page {
	label := rootLabel(raw)
	blocks, err := g.renderer.RenderRoot(raw)
	if err != nil {
		g.logger.WithField("path", label).Errorf("Failed to render page: %v", err)
		return &Page{ID: pageID(label), Title: label, Path: label, Err: err}
	}
	if len(blocks) == 0 {
		g.logger.WithField("path", label).Debug("Skipping page: nothing to document")
		return nil
	}
	return &Page{
		ID:       pageID(label),
		Title:    blocks[0].Name,
		Path:     label,
		Blocks:   blocks,
		Markdown: g.PageMarkdown(blocks),
	}
}

// PageMarkdown lays out rendered blocks as a markdown page.
func (g *MarkdownGenerator) PageMarkdown(blocks []render.Block) string {
	var sb strings.Builder
	if g.renderer.Config().Toc {
		if contents := contentsList(blocks); contents != "" {
			sb.WriteString(contents)
			sb.WriteString("\n\n")
		}
	}
	for _, b := range blocks {
		if h := headingMarkdown(b.Heading); h != "" {
			sb.WriteString(h)
			sb.WriteString("\n\n")
		}
		if body := b.Body.Markdown(); body != "" {
			sb.WriteString(body)
			sb.WriteString("\n\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func headingMarkdown(h render.Heading) string {
	switch {
	case h.Visible:
		return fmt.Sprintf("%s %s {#%s data-toc-label=%q}", strings.Repeat("#", h.Level), h.Label, h.ID, h.TocLabel)
	case h.HiddenTocEntry:
		return fmt.Sprintf(`<a id="%s" data-toc-label="%s" data-toc-level="%d"></a>`,
			html.EscapeString(h.ID), html.EscapeString(h.TocLabel), h.Level)
	}
	return ""
}

func contentsList(blocks []render.Block) string {
	minDepth := -1
	for _, b := range blocks {
		if b.Heading.Emitted() && (minDepth < 0 || b.Depth < minDepth) {
			minDepth = b.Depth
		}
	}
	if minDepth < 0 {
		return ""
	}

	lines := []string{"**Contents**", ""}
	for _, b := range blocks {
		h := b.Heading
		if !h.Emitted() {
			continue
		}
		indent := strings.Repeat("  ", b.Depth-minDepth)
		lines = append(lines, fmt.Sprintf("%s- [%s](#%s)", indent, h.TocLabel, h.ID))
	}
	return strings.Join(lines, "\n")
}

func (g *MarkdownGenerator) writePages(ctx context.Context, pages []*Page, outputDir string, previous *PageModel) (map[string]bool, error) {
	unchanged := make(map[string]bool)
	for _, p := range pages {
		if p.Err != nil {
			continue
		}
		prev := previous.PageByPath(p.Path)
		if prev == nil || prev.ID != p.ID || prev.Hash != contentHash(p.Markdown) {
			continue
		}
		if _, err := os.Stat(filepath.Join(outputDir, p.File)); err == nil {
			unchanged[p.ID] = true
		}
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for _, p := range pages {
		p := p
		if p.Err != nil || unchanged[p.ID] {
			continue
		}
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(outputDir, p.File)
			if err := os.WriteFile(path, []byte(p.Markdown), 0644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			g.logger.WithField("path", p.Path).Debugf("Wrote %s", path)
			return nil
		})
	}
	return unchanged, eg.Wait()
}

func (g *MarkdownGenerator) buildModel(pages []*Page, runID string) *PageModel {
	model := &PageModel{
		SchemaVersion: pageModelSchemaVersion,
		RunID:         runID,
		Document: ModelDoc{
			ID:      "docblocks-reference",
			Title:   "API Reference",
			PageIDs: []string{},
		},
		Pages: make([]ModelPage, 0, len(pages)),
		Meta: ModelMeta{
			Root:             g.root,
			GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
			GeneratorVersion: generatorVersion,
		},
	}
	for i, p := range pages {
		model.Pages = append(model.Pages, modelPage(p, i))
		model.Document.PageIDs = append(model.Document.PageIDs, p.ID)
	}
	return model
}

func renderIndex(pages []*Page) string {
	var sb strings.Builder
	sb.WriteString("# API Reference\n\n")
	if len(pages) == 0 {
		sb.WriteString("Nothing to document.\n")
		return sb.String()
	}
	for _, p := range pages {
		if p.Err != nil {
			fmt.Fprintf(&sb, "- `%s`: failed to render\n", p.Path)
			continue
		}
		fmt.Fprintf(&sb, "- [%s](%s): `%s`\n", p.Title, p.File, p.Path)
	}
	return sb.String()
}

func pageMetric(p *Page, mp ModelPage, unchanged bool) PageMetric {
	m := PageMetric{
		PageID:    p.ID,
		Path:      p.Path,
		Status:    mp.Status,
		Blocks:    len(p.Blocks),
		Bytes:     len(p.Markdown),
		Unchanged: unchanged,
		Error:     mp.Error,
	}
	for _, b := range p.Blocks {
		switch {
		case b.Heading.Visible:
			m.VisibleHeadings++
		case b.Heading.HiddenTocEntry:
			m.HiddenTocEntries++
		}
		if b.Body.Source != nil {
			m.SourceBlocks++
		}
	}
	return m
}

func rootLabel(raw entity.Raw) string {
	switch {
	case strings.TrimSpace(raw.Path) != "":
		return strings.TrimSpace(raw.Path)
	case strings.TrimSpace(raw.Name) != "":
		return strings.TrimSpace(raw.Name)
	}
	return "<unnamed>"
}
