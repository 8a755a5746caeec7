package analysis

import (
	"path/filepath"
	"sort"
	"strings"

	"docblocks/internal/git"
	"docblocks/internal/graph"
)

// ImpactReport summarizes the entities whose documentation changes.
type ImpactReport struct {
	// DirectlyAffected are units whose source overlaps a changed line.
	DirectlyAffected []*graph.Node
	// IndirectlyAffected are the owners of directly affected units, up to
	// their package.
	IndirectlyAffected []*graph.Node
}

// Pages returns the module paths whose pages contain an affected entity.
func (r *ImpactReport) Pages(g *graph.Graph) []string {
	seen := make(map[string]bool)
	var pages []string
	for _, list := range [][]*graph.Node{r.DirectlyAffected, r.IndirectlyAffected} {
		for _, n := range list {
			m := g.ModulePath(n.Unit)
			if !seen[m] {
				seen[m] = true
				pages = append(pages, m)
			}
		}
	}
	sort.Strings(pages)
	return pages
}

// Analyzer performs impact analysis on the entity graph.
type Analyzer struct {
	g *graph.Graph
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(g *graph.Graph) *Analyzer {
	return &Analyzer{g: g}
}

// AnalyzeImpact identifies which nodes are affected by the given changes. A
// change without line numbers affects every unit of the file.
func (a *Analyzer) AnalyzeImpact(changes []git.ChangedFile) (*ImpactReport, error) {
	report := &ImpactReport{
		DirectlyAffected:   []*graph.Node{},
		IndirectlyAffected: []*graph.Node{},
	}

	seenDirect := make(map[string]bool)
	seenIndirect := make(map[string]bool)

	byFile := make(map[string][]*graph.Node)
	for _, node := range a.g.Nodes {
		rel := a.g.RelPath(node.Unit)
		byFile[rel] = append(byFile[rel], node)
	}

	// 1. Direct impacts
	for _, change := range changes {
		for _, node := range byFile[filepath.ToSlash(change.Path)] {
			if seenDirect[node.Unit.ID] || !isAffected(node, change) {
				continue
			}
			report.DirectlyAffected = append(report.DirectlyAffected, node)
			seenDirect[node.Unit.ID] = true
		}
	}
	sortNodes(report.DirectlyAffected)

	// 2. Owners up to the package
	for _, node := range report.DirectlyAffected {
		for owner := a.g.GetOwner(node.Unit.ID); owner != nil; owner = a.g.GetOwner(owner.Unit.ID) {
			id := owner.Unit.ID
			if seenDirect[id] || seenIndirect[id] {
				break
			}
			report.IndirectlyAffected = append(report.IndirectlyAffected, owner)
			seenIndirect[id] = true
		}
	}
	sortNodes(report.IndirectlyAffected)

	return report, nil
}

func isAffected(node *graph.Node, change git.ChangedFile) bool {
	if len(change.ChangedLines) == 0 {
		return change.Untracked
	}
	for _, line := range change.ChangedLines {
		if line >= node.Unit.StartLine && line <= node.Unit.EndLine {
			return true
		}
	}
	return false
}

func sortNodes(nodes []*graph.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i].Unit, nodes[j].Unit
		if a.Filepath != b.Filepath {
			return a.Filepath < b.Filepath
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return strings.Compare(a.ID, b.ID) < 0
	})
}
