package graph

import (
	"fmt"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/coloration"
)

// PublicInstance is the non-secret portion of an Instance: the graph
// topology, the coloration relation, and the declared blank budget. This
// is exactly what a verifier is handed out of band alongside a proof; it
// deliberately omits the witness coloring and the actual blank-edge
// positions, which only the prover ever materializes.
type PublicInstance struct {
	N           int
	Edges       []Edge // canonical lexicographic order
	Coloration  coloration.Set
	BlankBudget uint32
}

// Public extracts the non-secret view of inst.
func (inst *Instance) Public() *PublicInstance {
	edges := make([]Edge, len(inst.Edges))
	copy(edges, inst.Edges)
	return &PublicInstance{
		N:           inst.N,
		Edges:       edges,
		Coloration:  inst.Coloration,
		BlankBudget: inst.BlankBudget,
	}
}

// Validate checks the structural invariants a verifier can check without
// ever seeing a coloring or blank mask: vertex count positive, edges in
// range and canonically ordered.
func (pub *PublicInstance) Validate() error {
	if pub.N <= 0 {
		return fmt.Errorf("graph: n must be positive, got %d", pub.N)
	}
	for i, e := range pub.Edges {
		if e.U < 0 || e.U >= pub.N || e.V < 0 || e.V >= pub.N {
			return fmt.Errorf("graph: edge %d (%d,%d) has endpoint out of range [0,%d)", i, e.U, e.V, pub.N)
		}
		if i > 0 && !lessEdge(pub.Edges[i-1], e) {
			return fmt.Errorf("graph: edges not in canonical lexicographic order at index %d", i)
		}
	}
	return nil
}
