package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"docblocks/internal/crawler"
	"docblocks/internal/entity"
	"docblocks/internal/extractor"
	"docblocks/internal/graph"
)

// Indexer orchestrates source extraction and entity tree assembly.
type Indexer struct {
	crawler *crawler.Crawler
}

// NewIndexer creates a new indexer.
func NewIndexer(c *crawler.Crawler) *Indexer {
	return &Indexer{
		crawler: c,
	}
}

// BuildGraph scans the project root and links every unit to its owner.
func (i *Indexer) BuildGraph(root string) (*graph.Graph, error) {
	g := graph.NewGraph(root)

	err := i.crawler.ScanProject(root, func(unit *extractor.CodeUnit) {
		g.AddUnit(unit)
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	// Resolve ownership after all units are loaded
	g.LinkRelations()

	return g, nil
}

// BuildEntities scans root and returns one raw entity tree per package.
func (i *Indexer) BuildEntities(root string) ([]entity.Raw, *graph.Graph, error) {
	g, err := i.BuildGraph(root)
	if err != nil {
		return nil, nil, err
	}
	return g.Entities(), g, nil
}

// RefreshFiles replaces the units of the given files in g with a fresh
// extraction. Files that no longer exist are only removed. It returns the
// number of units extracted.
func (i *Indexer) RefreshFiles(g *graph.Graph, paths []string) (int, error) {
	added := 0
	for _, path := range paths {
		g.RemoveFile(path)
		if !crawler.IsSource(path) {
			continue
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		units, err := i.crawler.ScanFile(path)
		if err != nil {
			return added, fmt.Errorf("refresh %s: %w", path, err)
		}
		for _, u := range units {
			g.AddUnit(u)
		}
		added += len(units)
	}
	g.LinkRelations()
	return added, nil
}

// SaveEntities writes raw entity trees to a JSON file.
func SaveEntities(roots []entity.Raw, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create entities file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(roots); err != nil {
		return fmt.Errorf("failed to encode entities: %w", err)
	}
	return nil
}

// LoadEntities reads raw entity trees from a JSON file. The file holds either
// a list of trees or a single tree.
func LoadEntities(path string) ([]entity.Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open entities file: %w", err)
	}

	var roots []entity.Raw
	if err := json.Unmarshal(data, &roots); err == nil {
		return roots, nil
	}

	var single entity.Raw
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("failed to decode entities: %w", err)
	}
	return []entity.Raw{single}, nil
}
