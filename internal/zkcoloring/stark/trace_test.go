package stark

import (
	"testing"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/field"
)

func TestBuildTraceBooleanAndRunningSum(t *testing.T) {
	bits := []bool{true, false, true, true, false}
	tr, err := BuildTrace(bits, 10)
	if err != nil {
		t.Fatalf("BuildTrace: %v", err)
	}
	if tr.M != len(bits) {
		t.Fatalf("M: got %d want %d", tr.M, len(bits))
	}
	wantN := nextPowerOfTwo(len(bits) + 1)
	if tr.N != wantN {
		t.Fatalf("N: got %d want %d", tr.N, wantN)
	}
	var running uint64
	for i := 0; i < tr.M; i++ {
		if !tr.Acc[i].Equal(field.New(running)) {
			t.Fatalf("acc[%d]: got %s want running sum %d", i, tr.Acc[i], running)
		}
		if bits[i] {
			running++
		}
	}
	if tr.AccAtBudgetRow().Uint64() != running {
		t.Fatalf("AccAtBudgetRow: got %d want %d", tr.AccAtBudgetRow().Uint64(), running)
	}
}

func TestBuildTraceAuxBitsDecomposeSlack(t *testing.T) {
	bits := []bool{true, true, false, false} // 2 blanks
	budget := uint32(5)
	tr, err := BuildTrace(bits, budget)
	if err != nil {
		t.Fatalf("BuildTrace: %v", err)
	}
	var reconstructed uint64
	weight := uint64(1)
	for _, b := range tr.AuxBits {
		if !b.IsZero() && b.Uint64() != 1 {
			t.Fatalf("aux bit is not boolean: %s", b)
		}
		reconstructed += b.Uint64() * weight
		weight <<= 1
	}
	wantSlack := uint64(budget) - 2
	if reconstructed != wantSlack {
		t.Fatalf("aux bit decomposition: got %d want %d", reconstructed, wantSlack)
	}
}

func TestBuildTraceOverBudgetLeavesAuxBitsZero(t *testing.T) {
	bits := []bool{true, true, true} // 3 blanks
	budget := uint32(1)
	tr, err := BuildTrace(bits, budget)
	if err != nil {
		t.Fatalf("BuildTrace: %v", err)
	}
	for i, b := range tr.AuxBits {
		if !b.IsZero() {
			t.Fatalf("expected zeroed aux bits for an over-budget trace, got nonzero at %d", i)
		}
	}
}

func TestBuildTraceRejectsEmptyInput(t *testing.T) {
	if _, err := BuildTrace(nil, 1); err == nil {
		t.Fatalf("expected an error for an empty blank-bit vector")
	}
}
