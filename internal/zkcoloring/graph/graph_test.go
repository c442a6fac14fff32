package graph

import (
	"testing"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/coloration"
)

func pathInstance() *Instance {
	return &Instance{
		N:           4,
		Edges:       []Edge{{0, 1}, {1, 2}, {2, 3}},
		Coloring:    []int{0, 1, 2, 0},
		BlankMask:   []bool{false, false, false},
		Coloration:  coloration.Distinct(),
		BlankBudget: 0,
	}
}

func TestValidateAcceptsProperColoring(t *testing.T) {
	inst := pathInstance()
	if err := inst.Validate(); err != nil {
		t.Errorf("Validate rejected a proper coloring: %v", err)
	}
}

func TestValidateRejectsViolatingEdge(t *testing.T) {
	inst := pathInstance()
	inst.Coloring = []int{0, 0, 2, 0} // edge (0,1) now monochromatic
	if err := inst.Validate(); err == nil {
		t.Errorf("Validate accepted a coloring violating the coloration relation")
	}
}

func TestValidateAllowsBudgetExceeded(t *testing.T) {
	// Over-budget instances are still structurally well-formed; the blank
	// budget is enforced later by the STARK, not by Validate.
	inst := pathInstance()
	inst.BlankMask = []bool{true, true, false}
	inst.BlankBudget = 1
	if err := inst.Validate(); err != nil {
		t.Errorf("Validate rejected a structurally valid, over-budget instance: %v", err)
	}
	if got := inst.BlankCount(); got != 2 {
		t.Errorf("BlankCount() = %d, want 2", got)
	}
}

func TestValidateAllowsBlankToViolate(t *testing.T) {
	inst := pathInstance()
	inst.Coloring = []int{0, 0, 2, 0}
	inst.BlankMask = []bool{true, false, false}
	inst.BlankBudget = 1
	if err := inst.Validate(); err != nil {
		t.Errorf("Validate rejected a violating edge that was declared blank: %v", err)
	}
}

func TestValidateRejectsOutOfOrderEdges(t *testing.T) {
	inst := pathInstance()
	inst.Edges = []Edge{{1, 2}, {0, 1}, {2, 3}}
	if err := inst.Validate(); err == nil {
		t.Errorf("Validate accepted a non-canonically-ordered edge list")
	}
}

func TestCommitInstanceDeterministic(t *testing.T) {
	a := pathInstance()
	b := pathInstance()
	da, err := CommitInstance(a)
	if err != nil {
		t.Fatalf("CommitInstance: %v", err)
	}
	db, err := CommitInstance(b)
	if err != nil {
		t.Fatalf("CommitInstance: %v", err)
	}
	if da != db {
		t.Errorf("identical instances produced different digests")
	}
}

func TestCommitInstanceSensitiveToColoring(t *testing.T) {
	a := pathInstance()
	b := pathInstance()
	b.Coloring = []int{1, 0, 2, 1}
	da, _ := CommitInstance(a)
	db, _ := CommitInstance(b)
	if da == db {
		t.Errorf("digest did not change when the coloring changed")
	}
}

func TestCommitInstanceRejectsInvalidInstance(t *testing.T) {
	inst := pathInstance()
	inst.Coloring = []int{0, 0, 2, 0}
	if _, err := CommitInstance(inst); err == nil {
		t.Errorf("CommitInstance accepted an invalid instance")
	}
}

func TestRandomPermutationIsBijection(t *testing.T) {
	for i := 0; i < 50; i++ {
		p, err := RandomPermutation()
		if err != nil {
			t.Fatalf("RandomPermutation: %v", err)
		}
		seen := map[int]bool{}
		for c := 0; c < 3; c++ {
			out := p.Apply(c)
			if out < 0 || out > 2 {
				t.Fatalf("permutation produced out-of-range color %d", out)
			}
			if seen[out] {
				t.Fatalf("permutation is not injective: %v", p)
			}
			seen[out] = true
		}
	}
}

func TestComputeRoundWitnessPreservesValidity(t *testing.T) {
	inst := pathInstance()
	sigma, err := RandomPermutation()
	if err != nil {
		t.Fatalf("RandomPermutation: %v", err)
	}
	w := ComputeRoundWitness(inst, sigma)
	for i, e := range inst.Edges {
		if inst.BlankMask[i] {
			continue
		}
		got := w.EdgeColors[i]
		if got[0] != w.Colored[e.U] || got[1] != w.Colored[e.V] {
			t.Errorf("edge %d color pair inconsistent with permuted vertex colors", i)
		}
		if !inst.Coloration.Valid(got[0], got[1]) {
			t.Errorf("permuting a valid coloring by sigma produced a relation violation at edge %d", i)
		}
	}
}

func TestComputeRoundWitnessCopiesBlankMask(t *testing.T) {
	inst := pathInstance()
	inst.BlankMask[0] = true
	w := ComputeRoundWitness(inst, Identity())
	if !w.BlankBits[0] {
		t.Errorf("round witness blank bits did not match instance blank mask")
	}
	w.BlankBits[0] = false
	if !inst.BlankMask[0] {
		t.Errorf("round witness blank bits aliased the instance's blank mask")
	}
}
