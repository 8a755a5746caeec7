package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"docblocks/internal/entity"
	"docblocks/internal/extractor"
	"docblocks/internal/graph"

	_ "github.com/mattn/go-sqlite3"
)

const unitColumns = "id, name, package, language, unit_type, receiver, filepath, start_line, end_line, content, description, properties, details"

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS units (
			id TEXT PRIMARY KEY,
			name TEXT,
			package TEXT,
			language TEXT,
			unit_type TEXT,
			receiver TEXT,
			filepath TEXT,
			start_line INTEGER,
			end_line INTEGER,
			content TEXT,
			description TEXT,
			properties JSON,
			details JSON
		);`,
		`CREATE TABLE IF NOT EXISTS edges (
			from_id TEXT,
			to_id TEXT,
			kind TEXT,
			PRIMARY KEY (from_id, to_id, kind)
		);`,
		`CREATE TABLE IF NOT EXISTS entities (
			position INTEGER PRIMARY KEY,
			path TEXT,
			body JSON
		);`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_units_file ON units(filepath);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- CodeGraphStore Implementation ---

func (s *SQLiteStore) SaveGraph(ctx context.Context, g *graph.Graph) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{"DELETE FROM units", "DELETE FROM edges"} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES ('root', ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value
	`, g.Root()); err != nil {
		return err
	}

	// 1. Save Units
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO units ("+unitColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, node := range g.Nodes {
		u := node.Unit
		props, err := json.Marshal(u.Properties)
		if err != nil {
			return fmt.Errorf("encode properties of %s: %w", u.ID, err)
		}
		details, err := json.Marshal(u.Details)
		if err != nil {
			return fmt.Errorf("encode details of %s: %w", u.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, u.ID, u.Name, u.Package, u.Language, u.UnitType, u.Receiver, u.Filepath, u.StartLine, u.EndLine, u.Content, u.Description, props, details); err != nil {
			return err
		}
	}

	// 2. Save Edges
	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (from_id, to_id, kind) VALUES (?, ?, ?)
		ON CONFLICT(from_id, to_id, kind) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	for _, edge := range g.Edges {
		if _, err := edgeStmt.ExecContext(ctx, edge.From, edge.To, string(edge.Kind)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadGraph(ctx context.Context) (*graph.Graph, error) {
	var root string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'root'").Scan(&root)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to read root: %w", err)
	}
	g := graph.NewGraph(root)

	// 1. Load Units
	units, err := s.queryUnits(ctx, "SELECT "+unitColumns+" FROM units ORDER BY filepath, start_line")
	if err != nil {
		return nil, err
	}
	for _, u := range units {
		g.AddUnit(u)
	}

	// 2. Load Edges
	edgeRows, err := s.db.QueryContext(ctx, "SELECT from_id, to_id, kind FROM edges ORDER BY from_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var edge graph.Edge
		var kind string
		if err := edgeRows.Scan(&edge.From, &edge.To, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edge.Kind = graph.RelationKind(kind)
		g.Edges = append(g.Edges, edge)
	}

	return g, edgeRows.Err()
}

func (s *SQLiteStore) FindUnitsByFile(ctx context.Context, filepath string) ([]*extractor.CodeUnit, error) {
	return s.queryUnits(ctx, "SELECT "+unitColumns+" FROM units WHERE filepath = ? ORDER BY start_line", filepath)
}

func (s *SQLiteStore) DeleteFile(ctx context.Context, filepath string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM edges
		WHERE from_id IN (SELECT id FROM units WHERE filepath = ?)
		   OR to_id IN (SELECT id FROM units WHERE filepath = ?)
	`, filepath, filepath); err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM units WHERE filepath = ?", filepath)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), tx.Commit()
}

func (s *SQLiteStore) queryUnits(ctx context.Context, query string, args ...interface{}) ([]*extractor.CodeUnit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	var units []*extractor.CodeUnit
	for rows.Next() {
		var u extractor.CodeUnit
		var props, details []byte
		if err := rows.Scan(&u.ID, &u.Name, &u.Package, &u.Language, &u.UnitType, &u.Receiver, &u.Filepath, &u.StartLine, &u.EndLine, &u.Content, &u.Description, &props, &details); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		if len(props) > 0 {
			if err := json.Unmarshal(props, &u.Properties); err != nil {
				return nil, fmt.Errorf("decode properties of %s: %w", u.ID, err)
			}
		}
		if u.Details, err = extractor.DecodeDetails(u.UnitType, details); err != nil {
			return nil, fmt.Errorf("unit %s: %w", u.ID, err)
		}
		units = append(units, &u)
	}
	return units, rows.Err()
}

// --- EntityStore Implementation ---

// SaveEntities replaces the stored entity trees, keeping their order.
func (s *SQLiteStore) SaveEntities(ctx context.Context, roots []entity.Raw) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entities"); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO entities (position, path, body) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, root := range roots {
		body, err := json.Marshal(root)
		if err != nil {
			return fmt.Errorf("encode entity %s: %w", root.Path, err)
		}
		path := root.Path
		if strings.TrimSpace(path) == "" {
			path = root.Name
		}
		if _, err := stmt.ExecContext(ctx, i, path, body); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadEntities returns the stored entity trees in the order they were saved.
func (s *SQLiteStore) LoadEntities(ctx context.Context) ([]entity.Raw, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path, body FROM entities ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	var roots []entity.Raw
	for rows.Next() {
		var path string
		var body []byte
		if err := rows.Scan(&path, &body); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		var raw entity.Raw
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("decode entity %s: %w", path, err)
		}
		roots = append(roots, raw)
	}
	return roots, rows.Err()
}

var _ Store = (*SQLiteStore)(nil)
