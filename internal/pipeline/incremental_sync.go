package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"docblocks/internal/analysis"
	"docblocks/internal/config"
	"docblocks/internal/crawler"
	"docblocks/internal/entity"
	"docblocks/internal/extractor"
	"docblocks/internal/generator"
	"docblocks/internal/git"
	"docblocks/internal/graph"
	"docblocks/internal/index"
	"docblocks/internal/render"
	"docblocks/internal/storage"
)

// IncrementalSync keeps the unit store, the entity trees and the generated
// pages of one project in step.
type IncrementalSync struct {
	cfg    *config.Config
	logger *logrus.Logger
	out    io.Writer

	// changes lists files changed since the base ref; replaced in tests.
	changes func(dir, baseRef string) ([]git.ChangedFile, error)
}

// Result summarizes one sync.
type Result struct {
	Units        int
	Entities     int
	ChangedFiles int
	Affected     []string
	Model        *generator.PageModel
	// RenderErr joins the failures of individual pages; the other pages were
	// still written.
	RenderErr error
	Duration  time.Duration
}

type updatePlan struct {
	Changes []git.ChangedFile
	// Paths are the changed files as the crawler names them.
	Paths      []string
	FullResync bool
}

func NewIncrementalSync(cfg *config.Config, logger *logrus.Logger, out io.Writer) *IncrementalSync {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if out == nil {
		out = io.Discard
	}
	return &IncrementalSync{cfg: cfg, logger: logger, out: out, changes: git.GetChangedFiles}
}

// Build scans the whole project, replaces the stored snapshot and
// regenerates every page.
func (s *IncrementalSync) Build(ctx context.Context) (*Result, error) {
	return s.run(ctx, &updatePlan{FullResync: true})
}

// Run regenerates the documentation for files changed since the configured
// git ref. With force, a clean tree triggers a full rebuild.
func (s *IncrementalSync) Run(ctx context.Context, force bool) (*Result, error) {
	plan, err := s.detectChangesStage(force)
	if err != nil {
		return nil, err
	}
	if len(plan.Changes) == 0 && !plan.FullResync {
		fmt.Fprintln(s.out, "✅ No changes detected.")
		return &Result{}, nil
	}
	return s.run(ctx, plan)
}

// Apply refreshes the given absolute file paths, as reported by the watcher.
func (s *IncrementalSync) Apply(ctx context.Context, files []string) (*Result, error) {
	root, err := filepath.Abs(s.cfg.Project.Root)
	if err != nil {
		return nil, err
	}
	changes := make([]git.ChangedFile, 0, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return nil, err
		}
		changes = append(changes, git.ChangedFile{Path: filepath.ToSlash(rel), Untracked: true})
	}
	return s.run(ctx, &updatePlan{Changes: changes, Paths: git.Paths(s.cfg.Project.Root, changes)})
}

func (s *IncrementalSync) run(ctx context.Context, plan *updatePlan) (*Result, error) {
	start := time.Now()

	store, err := s.initStoreStage()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	g, err := s.graphUpdateStage(ctx, store, plan)
	if err != nil {
		return nil, err
	}

	if err := store.SaveGraph(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to save updated graph: %w", err)
	}

	res := &Result{Units: len(g.Nodes), ChangedFiles: len(plan.Changes)}
	if len(plan.Changes) > 0 {
		res.Affected = s.impactAnalysisStage(g, plan.Changes)
	}

	roots := g.Entities()
	res.Entities = countEntities(roots)
	if err := store.SaveEntities(ctx, roots); err != nil {
		return nil, fmt.Errorf("failed to save entities: %w", err)
	}

	model, err := s.documentationStage(ctx, roots)
	if model == nil {
		return nil, err
	}
	res.Model = model
	res.RenderErr = err
	res.Duration = time.Since(start)
	return res, nil
}

func (s *IncrementalSync) detectChangesStage(force bool) (*updatePlan, error) {
	changes, err := s.changes(s.cfg.Project.Root, s.cfg.Git.BaseRef)
	if err != nil {
		return nil, fmt.Errorf("failed to get git changes: %w", err)
	}

	var sources []git.ChangedFile
	for _, c := range changes {
		if crawler.IsSource(c.Path) {
			sources = append(sources, c)
		}
	}

	fullResync := force && len(sources) == 0
	if fullResync {
		fmt.Fprintln(s.out, "🧭 No git changes detected. Running full sync from current codebase (--force).")
	} else if len(sources) > 0 {
		fmt.Fprintf(s.out, "📝 Detected %d changed source files.\n", len(sources))
	}

	return &updatePlan{
		Changes:    sources,
		Paths:      git.Paths(s.cfg.Project.Root, sources),
		FullResync: fullResync,
	}, nil
}

func (s *IncrementalSync) initStoreStage() (*storage.SQLiteStore, error) {
	if dir := filepath.Dir(s.cfg.Project.DB); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return storage.NewSQLiteStore(s.cfg.Project.DB)
}

func (s *IncrementalSync) newIndexer() (*index.Indexer, error) {
	ext, err := extractor.NewExtractor("go")
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}
	cr := crawler.NewCrawler(ext, crawler.WithLogger(s.logger), crawler.WithIgnored(s.cfg.Project.Ignore...))
	return index.NewIndexer(cr), nil
}

func (s *IncrementalSync) graphUpdateStage(ctx context.Context, store storage.CodeGraphStore, plan *updatePlan) (*graph.Graph, error) {
	ix, err := s.newIndexer()
	if err != nil {
		return nil, err
	}

	var g *graph.Graph
	if !plan.FullResync {
		fmt.Fprintln(s.out, "🔄 Loading stored entity graph...")
		g, err = store.LoadGraph(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load graph: %w", err)
		}
		if len(g.Nodes) == 0 || g.Root() != s.cfg.Project.Root {
			fmt.Fprintln(s.out, "🧭 No stored graph for this project. Running full sync.")
			plan.FullResync = true
		}
	}

	if plan.FullResync {
		start := time.Now()
		g, err = ix.BuildGraph(s.cfg.Project.Root)
		if err != nil {
			return nil, fmt.Errorf("full sync graph build failed: %w", err)
		}
		if len(g.Nodes) == 0 {
			return nil, ErrNoSources
		}
		fmt.Fprintf(s.out, "📊 Graph Update: full rebuild completed in %v. Units=%d\n", time.Since(start).Round(time.Millisecond), len(g.Nodes))
		fmt.Fprintf(s.out, "  -> Linked edges: %d, unresolved receivers: %d\n", len(g.Edges), len(g.Unresolved))
		return g, nil
	}

	before := len(g.Nodes)
	added, err := ix.RefreshFiles(g, plan.Paths)
	if err != nil {
		return nil, err
	}
	removed := before - len(g.Nodes) + added
	fmt.Fprintf(s.out, "📊 Graph Update: %d units removed, %d units added/updated.\n", removed, added)
	fmt.Fprintf(s.out, "  -> Linked edges: %d, unresolved receivers: %d\n", len(g.Edges), len(g.Unresolved))
	return g, nil
}

func (s *IncrementalSync) impactAnalysisStage(g *graph.Graph, changes []git.ChangedFile) []string {
	fmt.Fprintln(s.out, "🔍 Analyzing impact...")
	analyzer := analysis.NewAnalyzer(g)
	report, err := analyzer.AnalyzeImpact(changes)
	if err != nil {
		s.logger.Warnf("Analysis warning: %v", err)
		return nil
	}

	fmt.Fprintf(s.out, "  -> %d entities directly affected\n", len(report.DirectlyAffected))
	fmt.Fprintf(s.out, "  -> %d owning entities affected\n", len(report.IndirectlyAffected))
	return report.Pages(g)
}

func (s *IncrementalSync) documentationStage(ctx context.Context, roots []entity.Raw) (*generator.PageModel, error) {
	fmt.Fprintln(s.out, "✍️  Rendering documentation...")
	rcfg, err := s.cfg.RenderConfig()
	if err != nil {
		return nil, err
	}
	r, err := render.New(rcfg, render.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}

	gen := generator.NewMarkdownGenerator(r,
		generator.WithLogger(s.logger),
		generator.WithProjectRoot(s.cfg.Project.Root))
	model, err := gen.GenerateDocs(ctx, roots, s.cfg.Project.Output)
	if model == nil {
		return nil, fmt.Errorf("failed to generate docs: %w", err)
	}
	if err != nil {
		fmt.Fprintf(s.out, "⚠️  Some pages failed to render: %v\n", err)
	}
	fmt.Fprintf(s.out, "✅ Documentation generated in '%s'.\n", s.cfg.Project.Output)
	return model, err
}

func countEntities(roots []entity.Raw) int {
	n := 0
	for _, r := range roots {
		n += 1 + countEntities(r.Members)
	}
	return n
}

// ErrNoSources is returned when a project has nothing to extract.
var ErrNoSources = errors.New("no Go source files found")
