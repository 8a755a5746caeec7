package generator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docblocks/internal/entity"
	"docblocks/internal/render"
)

func workerRoot() entity.Raw {
	return entity.Raw{
		Name:      "worker",
		Path:      "worker",
		Kind:      "module",
		Docstring: "Package worker runs jobs.",
		Members: []entity.Raw{{
			Name:       "Worker",
			Kind:       "class",
			Docstring:  "Worker does work.",
			Properties: []string{"exported"},
			Members: []entity.Raw{{
				Name:      "Run",
				Kind:      "method",
				Docstring: "Run starts the worker.\n\nArgs:\n    ctx (context.Context): Cancellation.",
				Signature: &entity.Signature{
					Text:       "func (w *Worker) Run(ctx context.Context) error",
					Parameters: []entity.Parameter{{Name: "ctx", Annotation: "context.Context"}},
					Returns:    "error",
				},
				Source: &entity.SourceSpan{
					Code:      "func (w *Worker) Run(ctx context.Context) error {\n\treturn nil\n}",
					StartLine: 42,
					FilePath:  "worker/worker.go",
				},
			}},
		}},
	}
}

func newGenerator(t *testing.T, cfg render.Config) *MarkdownGenerator {
	t.Helper()
	r, err := render.New(cfg)
	require.NoError(t, err)
	return NewMarkdownGenerator(r, WithConcurrency(2))
}

func TestMarkdownGenerator_PageMarkdown(t *testing.T) {
	g := newGenerator(t, render.DefaultConfig())

	page := g.BuildPage(workerRoot())
	require.NotNil(t, page)
	require.NoError(t, page.Err)
	assert.Equal(t, "worker", page.ID)
	assert.Equal(t, "worker", page.Title)

	md := page.Markdown

	t.Run("Hidden root becomes an anchor", func(t *testing.T) {
		assert.Contains(t, md, `<a id="worker" data-toc-label="worker" data-toc-level="2"></a>`)
		assert.NotContains(t, md, "## worker")
	})

	t.Run("Members move up one level", func(t *testing.T) {
		assert.Contains(t, md, "# Worker {#worker.Worker data-toc-label=\"Worker\"}\n")
		assert.Contains(t, md, "# Run(ctx) {#worker.Worker.Run data-toc-label=\"Run()\"}\n")
	})

	t.Run("Contents list follows depth", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(md, "**Contents**\n\n- [worker](#worker)\n  - [Worker](#worker.Worker)\n    - [Run()](#worker.Worker.Run)\n"))
	})

	t.Run("Body", func(t *testing.T) {
		assert.Contains(t, md, "<small><code>exported</code></small>")
		assert.Contains(t, md, "```\nfunc (w *Worker) Run(ctx context.Context) error\n```")
		assert.Contains(t, md, "**Parameters:**")
	})

	t.Run("Source listing", func(t *testing.T) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(md))
		require.NoError(t, err)
		table := doc.Find("table.highlighttable")
		require.Equal(t, 1, table.Length())
		start, ok := table.Attr("data-linestart")
		require.True(t, ok)
		assert.Equal(t, "42", start)
		assert.Equal(t, "44", table.Find("td.linenos span").Last().Text())

		file, line, err := render.ExtractSourceStart(md)
		require.NoError(t, err)
		assert.Equal(t, "worker/worker.go", file)
		assert.Equal(t, 42, line)
	})
}

func TestMarkdownGenerator_HiddenRootAnchorUsesPath(t *testing.T) {
	g := newGenerator(t, render.DefaultConfig())

	page := g.BuildPage(entity.Raw{
		Name:      "run",
		Path:      "pkg.Worker.run",
		Kind:      "method",
		Docstring: "Run starts the worker.",
	})
	require.NotNil(t, page)
	require.NoError(t, page.Err)

	assert.Contains(t, page.Markdown, `<a id="pkg.Worker.run" data-toc-label="pkg.Worker.run" data-toc-level="2"></a>`)
	assert.Contains(t, page.Markdown, "- [pkg.Worker.run](#pkg.Worker.run)\n")
	assert.NotContains(t, page.Markdown, "[run()]")
}

func TestMarkdownGenerator_NoToc(t *testing.T) {
	cfg := render.DefaultConfig()
	cfg.Toc = false
	cfg.ShowRootTocEntry = false
	cfg.ShowRootHeading = true

	page := newGenerator(t, cfg).BuildPage(workerRoot())
	require.NotNil(t, page)
	assert.NotContains(t, page.Markdown, "**Contents**")
	assert.True(t, strings.HasPrefix(page.Markdown, "## worker {#worker data-toc-label=\"worker\"}\n"))
	assert.Contains(t, page.Markdown, "## Worker {#worker.Worker")
}

func TestMarkdownGenerator_GatedRootHasNoPage(t *testing.T) {
	g := newGenerator(t, render.DefaultConfig())
	assert.Nil(t, g.BuildPage(entity.Raw{Name: "empty", Kind: "module"}))
}

func TestMarkdownGenerator_BuildPages_UniqueIDs(t *testing.T) {
	g := newGenerator(t, render.DefaultConfig())
	roots := []entity.Raw{
		{Name: "b", Path: "a.b", Kind: "module", Docstring: "First."},
		{Name: "b", Path: "a-b", Kind: "module", Docstring: "Second."},
	}

	pages, err := g.BuildPages(context.Background(), roots)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "a-b", pages[0].ID)
	assert.Equal(t, "a-b-2", pages[1].ID)
	assert.Equal(t, "a-b-2.md", pages[1].File)
}

func TestMarkdownGenerator_GenerateDocs(t *testing.T) {
	out := t.TempDir()
	g := newGenerator(t, render.DefaultConfig())
	roots := []entity.Raw{
		workerRoot(),
		{Name: "broken", Kind: "module", Docstring: "Broken.", Members: []entity.Raw{{Name: "x", Kind: "gizmo"}}},
	}

	model, err := g.GenerateDocs(context.Background(), roots, out)
	require.NotNil(t, model, "a failing root does not stop the run")
	require.Error(t, err)
	var malformed *entity.MalformedEntityError
	assert.ErrorAs(t, err, &malformed)

	t.Run("Files", func(t *testing.T) {
		for _, name := range []string{"worker.md", "index.md", "page_model.json", "pipeline_report.json"} {
			assert.FileExists(t, filepath.Join(out, name))
		}
		assert.NoFileExists(t, filepath.Join(out, "broken.md"))
	})

	t.Run("Index", func(t *testing.T) {
		index, err := os.ReadFile(filepath.Join(out, "index.md"))
		require.NoError(t, err)
		assert.Contains(t, string(index), "- [worker](worker.md): `worker`")
		assert.Contains(t, string(index), "- `broken`: failed to render")
	})

	t.Run("Model", func(t *testing.T) {
		loaded, err := LoadPageModel(filepath.Join(out, "page_model.json"))
		require.NoError(t, err)
		require.Len(t, loaded.Pages, 2)
		assert.Equal(t, []string{"worker", "broken"}, loaded.Document.PageIDs)

		worker := loaded.PageByPath("worker")
		require.NotNil(t, worker)
		assert.Equal(t, PageStatusRendered, worker.Status)
		require.Len(t, worker.Headings, 3)
		assert.True(t, worker.Headings[0].Hidden)
		assert.Equal(t, 1, worker.Headings[1].Level)
		require.Len(t, worker.Sources, 1)
		assert.Equal(t, SourceRef{SymbolID: "worker.Worker.Run", FilePath: "worker/worker.go", StartLine: 42, EndLine: 44}, worker.Sources[0])

		broken := loaded.PageByPath("broken")
		require.NotNil(t, broken)
		assert.Equal(t, PageStatusFailed, broken.Status)
		assert.Contains(t, broken.Error, "kind")
	})

	t.Run("Report", func(t *testing.T) {
		report := readReport(t, out)
		assert.NotEmpty(t, report.RunID)
		assert.Equal(t, 2, report.Summary.PageCount)
		assert.Equal(t, 1, report.Summary.FailedPages)
		assert.Equal(t, 0, report.Summary.FailedStages)
		assert.Equal(t, 1, report.Summary.SignalsBySeverity["warning"])
	})

	t.Run("Second run leaves unchanged pages alone", func(t *testing.T) {
		_, err := g.GenerateDocs(context.Background(), roots[:1], out)
		require.NoError(t, err)
		report := readReport(t, out)
		require.Len(t, report.Pages, 1)
		assert.True(t, report.Pages[0].Unchanged)
		assert.Zero(t, report.Summary.BytesWritten)
	})
}

func readReport(t *testing.T, dir string) PipelineReport {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "pipeline_report.json"))
	require.NoError(t, err)
	var report PipelineReport
	require.NoError(t, json.Unmarshal(data, &report))
	return report
}
