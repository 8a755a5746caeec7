package storage

import (
	"context"

	"docblocks/internal/entity"
	"docblocks/internal/extractor"
	"docblocks/internal/graph"
)

// Store combines unit graph and entity tree storage.
type Store interface {
	CodeGraphStore
	EntityStore
	Close() error
}

// CodeGraphStore defines operations for persisting extracted units and their
// ownership edges.
type CodeGraphStore interface {
	// SaveGraph replaces the stored snapshot with g.
	SaveGraph(ctx context.Context, g *graph.Graph) error

	// LoadGraph rebuilds the last saved graph.
	LoadGraph(ctx context.Context) (*graph.Graph, error)

	// FindUnitsByFile retrieves all units extracted from a file.
	FindUnitsByFile(ctx context.Context, filepath string) ([]*extractor.CodeUnit, error)

	// DeleteFile removes the units of a file and every edge touching them.
	DeleteFile(ctx context.Context, filepath string) (int, error)
}

// EntityStore persists the raw entity trees handed to the renderer.
type EntityStore interface {
	SaveEntities(ctx context.Context, roots []entity.Raw) error
	LoadEntities(ctx context.Context) ([]entity.Raw, error)
}
