package graph

import (
	"path/filepath"
	"sort"
	"strings"

	"docblocks/internal/extractor"
)

// Graph manages nodes and their ownership relations.
type Graph struct {
	Nodes      map[string]*Node `json:"nodes"`
	Edges      []Edge           `json:"edges"`
	Unresolved []Unresolved     `json:"unresolved,omitempty"`

	root string

	// Qualified name (module path + "." + name) -> IDs, for receiver lookup.
	nameIndex map[string][]string
	// Module path -> ID of the package node that documents it.
	modules map[string]string
}

// NewGraph creates an empty graph. File paths of added units are made
// relative to root when computing module paths.
func NewGraph(root string) *Graph {
	return &Graph{
		Nodes:     make(map[string]*Node),
		Edges:     []Edge{},
		root:      root,
		nameIndex: make(map[string][]string),
		modules:   make(map[string]string),
	}
}

// Root is the directory unit paths are made relative to.
func (g *Graph) Root() string {
	return g.root
}

// AddUnit adds a CodeUnit as a node and indexes it.
func (g *Graph) AddUnit(unit *extractor.CodeUnit) {
	if unit == nil {
		return
	}
	g.Nodes[unit.ID] = &Node{Unit: unit}
	g.index(unit)
}

func (g *Graph) index(unit *extractor.CodeUnit) {
	module := g.ModulePath(unit)
	if unit.UnitType == "package" {
		// Every file repeats the package clause; prefer the documented one,
		// then the first file.
		if cur, ok := g.modules[module]; !ok || preferPackage(unit, g.Nodes[cur].Unit) {
			g.modules[module] = unit.ID
		}
		return
	}
	key := module + "." + unit.Name
	g.nameIndex[key] = append(g.nameIndex[key], unit.ID)
}

func preferPackage(candidate, current *extractor.CodeUnit) bool {
	hasDoc := strings.TrimSpace(candidate.Description) != ""
	curDoc := strings.TrimSpace(current.Description) != ""
	if hasDoc != curDoc {
		return hasDoc
	}
	return candidate.Filepath < current.Filepath
}

// RebuildIndices recomputes lookup tables after Nodes was modified directly.
func (g *Graph) RebuildIndices() {
	g.nameIndex = make(map[string][]string)
	g.modules = make(map[string]string)
	for _, id := range g.sortedIDs() {
		g.index(g.Nodes[id].Unit)
	}
}

// RemoveFile drops every node extracted from path and returns how many were
// removed. Call LinkRelations afterwards.
func (g *Graph) RemoveFile(path string) int {
	removed := 0
	for id, node := range g.Nodes {
		if node.Unit.Filepath == path {
			delete(g.Nodes, id)
			removed++
		}
	}
	if removed > 0 {
		g.RebuildIndices()
	}
	return removed
}

// ModulePath is the dotted path of the directory a unit was extracted from,
// or the package name for units at the root.
func (g *Graph) ModulePath(unit *extractor.CodeUnit) string {
	dir := filepath.Dir(unit.Filepath)
	if g.root != "" {
		if rel, err := filepath.Rel(g.root, dir); err == nil {
			dir = rel
		}
	}
	dir = filepath.ToSlash(dir)
	if dir == "." || dir == "" || strings.HasPrefix(dir, "..") {
		return unit.Package
	}
	return strings.ReplaceAll(dir, "/", ".")
}

// RelPath is the unit's file path relative to the graph root.
func (g *Graph) RelPath(unit *extractor.CodeUnit) string {
	if g.root == "" {
		return filepath.ToSlash(unit.Filepath)
	}
	rel, err := filepath.Rel(g.root, unit.Filepath)
	if err != nil {
		return filepath.ToSlash(unit.Filepath)
	}
	return filepath.ToSlash(rel)
}

// LinkRelations resolves the owner of every unit.
func (g *Graph) LinkRelations() {
	g.Edges = []Edge{}
	g.Unresolved = nil

	for _, id := range g.sortedIDs() {
		unit := g.Nodes[id].Unit
		if unit.UnitType == "package" {
			continue
		}
		module := g.ModulePath(unit)
		pkgID, hasPkg := g.modules[module]

		if unit.UnitType == "method" {
			if owner, ok := g.resolveReceiver(unit, module); ok {
				g.Edges = append(g.Edges, Edge{From: id, To: owner, Kind: RelationBelongsTo})
				continue
			}
		}
		if hasPkg {
			g.Edges = append(g.Edges, Edge{From: id, To: pkgID, Kind: RelationBelongsTo})
		}
	}
}

// resolveReceiver finds the type declaring a method's receiver.
func (g *Graph) resolveReceiver(unit *extractor.CodeUnit, module string) (string, bool) {
	var types []string
	for _, cand := range g.nameIndex[module+"."+unit.Receiver] {
		if g.Nodes[cand].Unit.IsType() {
			types = append(types, cand)
		}
	}
	switch len(types) {
	case 0:
		g.Unresolved = append(g.Unresolved, Unresolved{UnitID: unit.ID, Target: unit.Receiver, Reason: ReasonNoCandidate})
		return "", false
	case 1:
		return types[0], true
	}
	g.sortByPosition(types)
	g.Unresolved = append(g.Unresolved, Unresolved{UnitID: unit.ID, Target: unit.Receiver, Reason: ReasonAmbiguous})
	return types[0], true
}

// GetMembers returns the nodes owned by id in source order.
func (g *Graph) GetMembers(id string) []*Node {
	var ids []string
	for _, edge := range g.Edges {
		if edge.To == id {
			ids = append(ids, edge.From)
		}
	}
	g.sortByPosition(ids)
	members := make([]*Node, 0, len(ids))
	for _, mid := range ids {
		if node, ok := g.Nodes[mid]; ok {
			members = append(members, node)
		}
	}
	return members
}

// GetOwner returns the node that owns id, or nil for packages.
func (g *Graph) GetOwner(id string) *Node {
	for _, edge := range g.Edges {
		if edge.From == id {
			return g.Nodes[edge.To]
		}
	}
	return nil
}

// Packages returns the documenting package node of every module, ordered by
// module path.
func (g *Graph) Packages() []*Node {
	modules := make([]string, 0, len(g.modules))
	for m := range g.modules {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	out := make([]*Node, 0, len(modules))
	for _, m := range modules {
		out = append(out, g.Nodes[g.modules[m]])
	}
	return out
}

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	g.sortByPosition(ids)
	return ids
}

func (g *Graph) sortByPosition(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := g.Nodes[ids[i]].Unit, g.Nodes[ids[j]].Unit
		if a.Filepath != b.Filepath {
			return a.Filepath < b.Filepath
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return ids[i] < ids[j]
	})
}
