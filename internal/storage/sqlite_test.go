package storage

import (
	"context"
	"path/filepath"
	"testing"

	"docblocks/internal/entity"
	"docblocks/internal/extractor"
	"docblocks/internal/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveGraph_Snapshot(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	g1 := graph.NewGraph("/src")
	pkg := testUnit("pkg", "package", "demo", "/src/demo.go", 1, 1)
	a := testUnit("a", "function", "FuncA", "/src/demo.go", 3, 5)
	g1.AddUnit(pkg)
	g1.AddUnit(a)
	g1.LinkRelations()
	require.NoError(t, store.SaveGraph(ctx, g1))

	// New snapshot: A removed, B added.
	g2 := graph.NewGraph("/src")
	b := testUnit("b", "function", "FuncB", "/src/demo.go", 7, 9)
	g2.AddUnit(pkg)
	g2.AddUnit(b)
	g2.LinkRelations()
	require.NoError(t, store.SaveGraph(ctx, g2))

	loaded, err := store.LoadGraph(ctx)
	require.NoError(t, err)

	assert.Equal(t, "/src", loaded.Root())
	assert.Len(t, loaded.Nodes, 2)
	_, hasA := loaded.Nodes[a.ID]
	assert.False(t, hasA)

	require.Len(t, loaded.Edges, 1)
	assert.Equal(t, graph.Edge{From: b.ID, To: pkg.ID, Kind: graph.RelationBelongsTo}, loaded.Edges[0])

	owner := loaded.GetOwner(b.ID)
	require.NotNil(t, owner)
	assert.Equal(t, "demo", owner.Unit.Name)
}

func TestSQLiteStore_DetailsSurviveRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	g := graph.NewGraph("/src")
	fn := testUnit("run", "method", "Run", "/src/w.go", 10, 12)
	fn.Receiver = "Worker"
	fn.Properties = []string{"exported", "pointer-receiver"}
	fn.Details = extractor.GoFunctionDetails{
		Name:       "Run",
		Signature:  "func (w *Worker) Run(ctx context.Context) error",
		Parameters: []extractor.GoParam{{Name: "ctx", Type: "context.Context"}},
		Returns:    []extractor.GoReturn{{Type: "error"}},
	}
	st := testUnit("worker", "struct", "Worker", "/src/w.go", 3, 6)
	st.Details = extractor.GoTypeDetails{Fields: []extractor.GoField{{Name: "Name", Type: "string"}}}
	g.AddUnit(fn)
	g.AddUnit(st)
	require.NoError(t, store.SaveGraph(ctx, g))

	units, err := store.FindUnitsByFile(ctx, "/src/w.go")
	require.NoError(t, err)
	require.Len(t, units, 2)

	assert.Equal(t, "Worker", units[0].Name)
	assert.IsType(t, extractor.GoTypeDetails{}, units[0].Details)

	run := units[1]
	assert.Equal(t, "Worker", run.Receiver)
	assert.Equal(t, []string{"exported", "pointer-receiver"}, run.Properties)
	details, ok := run.Details.(extractor.GoFunctionDetails)
	require.True(t, ok)
	assert.Equal(t, "ctx", details.Parameters[0].Name)
}

func TestSQLiteStore_DeleteFile(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	g := graph.NewGraph("/src")
	g.AddUnit(testUnit("pkg", "package", "demo", "/src/a.go", 1, 1))
	g.AddUnit(testUnit("a", "function", "A", "/src/a.go", 3, 4))
	g.AddUnit(testUnit("b", "function", "B", "/src/b.go", 3, 4))
	g.LinkRelations()
	require.NoError(t, store.SaveGraph(ctx, g))

	n, err := store.DeleteFile(ctx, "/src/a.go")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	loaded, err := store.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Nodes, 1)
	assert.Empty(t, loaded.Edges)

	units, err := store.FindUnitsByFile(ctx, "/src/a.go")
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestSQLiteStore_Entities(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first := []entity.Raw{
		{Name: "zeta", Kind: "package", Docstring: "Zeta."},
		{Name: "alpha", Path: "pkg.alpha", Kind: "package", Members: []entity.Raw{
			{Name: "Run", Kind: "function", Signature: &entity.Signature{Parameters: []entity.Parameter{{Name: "ctx"}}}},
		}},
	}
	require.NoError(t, store.SaveEntities(ctx, first))

	loaded, err := store.LoadEntities(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, loaded)

	t.Run("Save replaces", func(t *testing.T) {
		require.NoError(t, store.SaveEntities(ctx, first[1:]))
		loaded, err := store.LoadEntities(ctx)
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		assert.Equal(t, "alpha", loaded[0].Name)
	})
}

func testUnit(id, unitType, name, file string, start, end int) *extractor.CodeUnit {
	return &extractor.CodeUnit{
		ID:        id,
		Name:      name,
		Package:   "demo",
		Language:  "go",
		UnitType:  unitType,
		Filepath:  file,
		StartLine: start,
		EndLine:   end,
		Content:   "func " + name + "() {}",
	}
}
