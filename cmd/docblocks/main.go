package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/k0kubun/pp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"docblocks/internal/config"
	"docblocks/internal/crawler"
	"docblocks/internal/entity"
	"docblocks/internal/extractor"
	"docblocks/internal/generator"
	"docblocks/internal/index"
	"docblocks/internal/pipeline"
	"docblocks/internal/render"
	"docblocks/internal/storage"
	"docblocks/internal/watcher"
)

var (
	rootCmd = &cobra.Command{
		Use:   "docblocks",
		Short: "Render Go API reference pages from source",
	}
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the configuration file")

	scanCmd.Flags().StringP("out", "o", "", "Write the entity trees as JSON to this file")
	renderCmd.Flags().StringP("input", "i", "", "Entity trees JSON file (defaults to the stored trees)")
	updateCmd.Flags().Bool("force", false, "Run a full sync when git reports no changes")
	inspectCmd.Flags().Bool("pages", false, "Print the page model instead of the stored graph")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(inspectCmd)
}

func loadConfig() (*config.Config, *logrus.Logger) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	return cfg, logger
}

func newGenerator(cfg *config.Config, logger *logrus.Logger) *generator.MarkdownGenerator {
	rcfg, err := cfg.RenderConfig()
	if err != nil {
		log.Fatalf("Invalid render config: %v", err)
	}
	r, err := render.New(rcfg, render.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create renderer: %v", err)
	}
	return generator.NewMarkdownGenerator(r,
		generator.WithLogger(logger),
		generator.WithProjectRoot(cfg.Project.Root))
}

// loadRoots reads entity trees from a JSON file, or from the store when
// path is empty.
func loadRoots(ctx context.Context, cfg *config.Config, path string) []entity.Raw {
	if path != "" {
		roots, err := index.LoadEntities(path)
		if err != nil {
			log.Fatalf("Failed to read entities: %v", err)
		}
		return roots
	}
	store, err := storage.NewSQLiteStore(cfg.Project.DB)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()
	roots, err := store.LoadEntities(ctx)
	if err != nil {
		log.Fatalf("Failed to load entities: %v", err)
	}
	if len(roots) == 0 {
		log.Fatalf("No stored entities in %s. Run 'docblocks build' first.", cfg.Project.DB)
	}
	return roots
}

func printSummary(res *pipeline.Result) {
	if res.Model == nil {
		return
	}
	fmt.Printf("🎉 %s units, %s entities, %d pages in %v.\n",
		humanize.Comma(int64(res.Units)),
		humanize.Comma(int64(res.Entities)),
		len(res.Model.Pages),
		res.Duration.Round(time.Millisecond))
	if len(res.Affected) > 0 {
		fmt.Printf("  -> affected pages: %v\n", res.Affected)
	}
	if res.RenderErr != nil {
		fmt.Printf("⚠️  %v\n", res.RenderErr)
	}
}

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Extract entity trees from a project without rendering",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig()
		path := cfg.Project.Root
		if len(args) > 0 {
			path = args[0]
		}

		fmt.Printf("📂 Scanning directory: %s\n", path)

		ext, err := extractor.NewExtractor("go")
		if err != nil {
			log.Fatalf("Failed to create extractor: %v", err)
		}
		cr := crawler.NewCrawler(ext, crawler.WithLogger(logger), crawler.WithIgnored(cfg.Project.Ignore...))

		start := time.Now()
		roots, g, err := index.NewIndexer(cr).BuildEntities(path)
		if err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		fmt.Printf("✅ Found %s units in %v.\n", humanize.Comma(int64(len(g.Nodes))), time.Since(start).Round(time.Millisecond))
		for kind, n := range g.KindCounts() {
			fmt.Printf("  -> %-10s %d\n", kind, n)
		}
		if len(g.Unresolved) > 0 {
			fmt.Printf("⚠️  %d methods without a receiver type\n", len(g.Unresolved))
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			for _, r := range roots {
				fmt.Printf("📦 %s (%d members)\n", r.Path, len(r.Members))
			}
			return
		}
		if err := index.SaveEntities(roots, out); err != nil {
			log.Fatalf("Failed to write entities: %v", err)
		}
		fmt.Printf("💾 Wrote %d entity trees to %s\n", len(roots), out)
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render entity trees into markdown pages",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig()
		ctx := context.Background()

		input, _ := cmd.Flags().GetString("input")
		roots := loadRoots(ctx, cfg, input)

		fmt.Printf("✍️  Rendering %d entity trees...\n", len(roots))
		model, err := newGenerator(cfg, logger).GenerateDocs(ctx, roots, cfg.Project.Output)
		if model == nil {
			log.Fatalf("Failed to generate docs: %v", err)
		}
		if err != nil {
			fmt.Printf("⚠️  Some pages failed to render: %v\n", err)
		}
		fmt.Printf("✅ %d pages written to '%s'.\n", len(model.Pages), cfg.Project.Output)
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Scan the project, store it and render every page",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig()
		res, err := pipeline.NewIncrementalSync(cfg, logger, os.Stdout).Build(context.Background())
		if err != nil {
			log.Fatalf("Build failed: %v", err)
		}
		printSummary(res)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh the documentation for files changed since the configured git ref",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig()
		force, _ := cmd.Flags().GetBool("force")
		res, err := pipeline.NewIncrementalSync(cfg, logger, os.Stdout).Run(context.Background(), force)
		if err != nil {
			log.Fatalf("Update failed: %v", err)
		}
		printSummary(res)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild pages whenever source files change",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		syncer := pipeline.NewIncrementalSync(cfg, logger, os.Stdout)
		res, err := syncer.Build(ctx)
		if err != nil {
			log.Fatalf("Initial build failed: %v", err)
		}
		printSummary(res)

		w, err := watcher.New(cfg.Project.Root, func(files []string) error {
			res, err := syncer.Apply(ctx, files)
			if err != nil {
				return err
			}
			printSummary(res)
			return nil
		},
			watcher.WithDebounceDelay(cfg.Watch.Debounce),
			watcher.WithLogger(logger),
			watcher.WithOnChangeStart(func(files []string) {
				fmt.Printf("🔄 %d files changed\n", len(files))
			}),
			watcher.WithOnError(func(err error) {
				fmt.Printf("❌ %v\n", err)
			}))
		if err != nil {
			log.Fatalf("Failed to start watcher: %v", err)
		}
		w.Start()
		defer w.Stop()

		fmt.Printf("👀 Watching %s (Ctrl+C to stop)\n", cfg.Project.Root)
		<-ctx.Done()
		fmt.Println("👋 Stopped.")
	},
}

var showCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Print the rendered markdown of one entity",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig()
		roots := loadRoots(context.Background(), cfg, "")

		raw, ok := findRaw(roots, args[0])
		if !ok {
			log.Fatalf("No entity with path %q", args[0])
		}
		page := newGenerator(cfg, logger).BuildPage(raw)
		if page == nil {
			fmt.Println("(nothing to document)")
			return
		}
		if page.Err != nil {
			log.Fatalf("Render failed: %v", page.Err)
		}
		fmt.Print(page.Markdown)
	},
}

func findRaw(roots []entity.Raw, path string) (entity.Raw, bool) {
	for _, r := range roots {
		if r.Path == path || (r.Path == "" && r.Name == path) {
			return r, true
		}
		if found, ok := findRaw(r.Members, path); ok {
			return found, true
		}
	}
	return entity.Raw{}, false
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Dump the stored graph statistics or the page model",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _ := loadConfig()

		if pages, _ := cmd.Flags().GetBool("pages"); pages {
			modelPath := filepath.Join(cfg.Project.Output, "page_model.json")
			model, err := generator.LoadPageModel(modelPath)
			if err != nil {
				log.Fatalf("Failed to load page model: %v", err)
			}
			pp.Println(model)
			return
		}

		store, err := storage.NewSQLiteStore(cfg.Project.DB)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		g, err := store.LoadGraph(context.Background())
		if err != nil {
			log.Fatalf("Failed to load graph: %v", err)
		}
		var size uint64
		if info, err := os.Stat(cfg.Project.DB); err == nil {
			size = uint64(info.Size())
		}
		pp.Println(map[string]interface{}{
			"root":       g.Root(),
			"db":         cfg.Project.DB,
			"db_size":    humanize.Bytes(size),
			"units":      len(g.Nodes),
			"edges":      len(g.Edges),
			"kinds":      g.KindCounts(),
			"unresolved": g.UnresolvedReasonCounts(),
		})
	},
}
