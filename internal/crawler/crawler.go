package crawler

import (
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"docblocks/internal/extractor"
)

// Crawler scans a directory for source files.
type Crawler struct {
	extractor *extractor.Extractor
	ignored   []string
	logger    *logrus.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets the logger used to report files that fail to parse.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIgnored adds directory names that are never descended into.
func WithIgnored(names ...string) Option {
	return func(c *Crawler) {
		c.ignored = append(c.ignored, names...)
	}
}

// NewCrawler creates a new crawler instance.
func NewCrawler(ext *extractor.Extractor, opts ...Option) *Crawler {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Crawler{
		extractor: ext,
		ignored:   []string{".git", "vendor", "node_modules", "testdata", "_examples"},
		logger:    discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsSource reports whether path is a file the crawler extracts from.
func IsSource(path string) bool {
	name := filepath.Base(path)
	return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
}

// ScanProject walks the root directory and processes all relevant files.
// It uses a callback to stream CodeUnits, preventing large memory buildup.
// Files are visited in lexical order.
func (c *Crawler) ScanProject(root string, onUnit func(*extractor.CodeUnit)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && c.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsSource(path) {
			return nil
		}

		units, err := c.ScanFile(path)
		if err != nil {
			// One broken file does not fail the scan.
			c.logger.Warnf("Skipping %s: %v", path, err)
			return nil
		}
		for _, unit := range units {
			onUnit(unit)
		}
		return nil
	})
}

// ScanFile extracts the units of a single file.
func (c *Crawler) ScanFile(path string) ([]*extractor.CodeUnit, error) {
	units, err := c.extractor.ExtractFromFile(path)
	if err != nil {
		return nil, err
	}
	c.logger.Debugf("Extracted %d units from %s", len(units), path)
	return units, nil
}

func (c *Crawler) skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, ign := range c.ignored {
		if name == ign {
			return true
		}
	}
	return false
}
