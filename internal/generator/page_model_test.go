package generator

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docblocks/internal/render"
)

func validModel() *PageModel {
	return &PageModel{
		SchemaVersion: pageModelSchemaVersion,
		RunID:         "run-1",
		Document:      ModelDoc{ID: "doc", Title: "API Reference", PageIDs: []string{"worker"}},
		Pages: []ModelPage{{
			ID:       "worker",
			Title:    "worker",
			File:     "worker.md",
			Path:     "worker",
			Status:   PageStatusRendered,
			Headings: []ModelHeading{{ID: "worker", Label: "worker", Level: 2}},
			Sources:  []SourceRef{},
			Hash:     contentHash("# worker\n"),
		}},
		Meta: ModelMeta{GeneratedAt: "2024-01-01T00:00:00Z"},
	}
}

func TestSavePageModel_ValidatesAgainstJSONSchema(t *testing.T) {
	dir := t.TempDir()

	t.Run("Valid model", func(t *testing.T) {
		path := filepath.Join(dir, "ok.json")
		require.NoError(t, SavePageModel(path, validModel()))
		loaded, err := LoadPageModel(path)
		require.NoError(t, err)
		assert.Equal(t, validModel(), loaded)
	})

	tests := []struct {
		name   string
		mutate func(*PageModel)
		want   string
	}{
		{"Bad status", func(m *PageModel) { m.Pages[0].Status = "not-a-valid-status" }, "schema validation"},
		{"Heading level out of range", func(m *PageModel) { m.Pages[0].Headings[0].Level = 7 }, "schema validation"},
		{"Bad hash", func(m *PageModel) { m.Pages[0].Hash = "md5:abc" }, "schema validation"},
		{"Duplicate page", func(m *PageModel) { m.Pages = append(m.Pages, m.Pages[0]) }, "duplicate page id"},
		{"Unknown page id", func(m *PageModel) { m.Document.PageIDs = []string{"nope"} }, "unknown page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validModel()
			tt.mutate(m)
			err := SavePageModel(filepath.Join(dir, "bad.json"), m)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestModelPage(t *testing.T) {
	page := &Page{
		ID:   "worker",
		Path: "worker",
		File: "worker.md",
		Blocks: []render.Block{
			{Path: "worker", Heading: render.Heading{Level: 2, ID: "worker", Label: "worker", HiddenTocEntry: true}},
			{Path: "worker.Hidden", Heading: render.Heading{Level: 1}},
			{Path: "worker.Run", Heading: render.Heading{Level: 1, ID: "worker.Run", Label: "Run()", Visible: true},
				Body: render.ContentBlock{Source: &render.SourceBlock{Code: "a\nb\n", StartLine: 3, FilePath: "w.go"}}},
		},
		Markdown: "x",
	}

	mp := modelPage(page, 4)
	assert.Equal(t, 4, mp.Order)
	require.Len(t, mp.Headings, 2)
	assert.True(t, mp.Headings[0].Hidden)
	assert.False(t, mp.Headings[1].Hidden)
	assert.Equal(t, []SourceRef{{SymbolID: "worker.Run", FilePath: "w.go", StartLine: 3, EndLine: 4}}, mp.Sources)

	t.Run("Failed page", func(t *testing.T) {
		failed := modelPage(&Page{ID: "x", Path: "x", File: "x.md", Err: errors.New("boom")}, 0)
		assert.Equal(t, PageStatusFailed, failed.Status)
		assert.Equal(t, "boom", failed.Error)
		assert.Empty(t, failed.File)
		assert.Equal(t, "sha256:empty", failed.Hash)
	})
}

func TestPageID(t *testing.T) {
	tests := map[string]string{
		"internal.render":  "internal-render",
		"Worker":           "worker",
		"  ":               "page",
		"__init__":         "init",
		"<unnamed>":        "unnamed",
		"pkg/sub.Type.Run": "pkg-sub-type-run",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, pageID(in))
		})
	}
}
