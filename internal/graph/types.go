package graph

import "docblocks/internal/extractor"

type RelationKind string

const (
	// RelationBelongsTo links a member to the entity documenting it:
	// methods to their receiver type, everything else to its package.
	RelationBelongsTo RelationKind = "belongs_to"
)

type UnresolvedReason string

const (
	ReasonNoCandidate UnresolvedReason = "no_candidate"
	ReasonAmbiguous   UnresolvedReason = "ambiguous"
)

// Node represents a vertex in the entity graph.
type Node struct {
	Unit *extractor.CodeUnit `json:"unit"`
}

// Edge represents a directed relationship between two nodes.
type Edge struct {
	From string       `json:"from"` // Member unit ID
	To   string       `json:"to"`   // Owner unit ID
	Kind RelationKind `json:"kind"`
}

// Unresolved records a member whose owner could not be determined exactly.
type Unresolved struct {
	UnitID string           `json:"unit_id"`
	Target string           `json:"target"`
	Reason UnresolvedReason `json:"reason"`
}
