package transcript

import (
	"testing"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/field"
)

func TestDeterministic(t *testing.T) {
	run := func() uint64 {
		tr := New("zkp-coloring/v1")
		tr.Absorb("round1:perm-root", []byte("abc"))
		return tr.ChallengeU64("round1:coin")
	}
	if run() != run() {
		t.Errorf("identical transcript histories produced different challenges")
	}
}

func TestAbsorbOrderMatters(t *testing.T) {
	a := New("zkp-coloring/v1")
	a.Absorb("x", []byte("1"))
	a.Absorb("y", []byte("2"))

	b := New("zkp-coloring/v1")
	b.Absorb("y", []byte("2"))
	b.Absorb("x", []byte("1"))

	if a.ChallengeU64("out") == b.ChallengeU64("out") {
		t.Errorf("swapping absorb order did not change subsequent challenges")
	}
}

func TestAbsorbLabelMatters(t *testing.T) {
	a := New("zkp-coloring/v1")
	a.Absorb("label-a", []byte("same"))

	b := New("zkp-coloring/v1")
	b.Absorb("label-b", []byte("same"))

	if a.ChallengeU64("out") == b.ChallengeU64("out") {
		t.Errorf("identical data under different labels produced identical challenges")
	}
}

func TestRepeatedDrawsDiffer(t *testing.T) {
	tr := New("zkp-coloring/v1")
	tr.Absorb("seed", []byte("data"))
	seen := map[uint64]bool{}
	for i := 0; i < 20; i++ {
		v := tr.ChallengeU64("repeat")
		if seen[v] {
			t.Errorf("draw %d repeated a prior output", i)
		}
		seen[v] = true
	}
}

func TestChallengeIndexInRange(t *testing.T) {
	tr := New("zkp-coloring/v1")
	tr.Absorb("seed", []byte("data"))
	for i := 0; i < 200; i++ {
		v, err := tr.ChallengeIndex("idx", 7)
		if err != nil {
			t.Fatalf("ChallengeIndex: %v", err)
		}
		if v >= 7 {
			t.Errorf("index %d out of range [0,7)", v)
		}
	}
}

func TestChallengeIndexRejectsZero(t *testing.T) {
	tr := New("zkp-coloring/v1")
	if _, err := tr.ChallengeIndex("idx", 0); err == nil {
		t.Errorf("expected error drawing an index modulo zero")
	}
}

func TestChallengeFieldInRange(t *testing.T) {
	tr := New("zkp-coloring/v1")
	tr.Absorb("seed", []byte("data"))
	for i := 0; i < 50; i++ {
		e := tr.ChallengeField("coin")
		if e.Uint64() >= field.Modulus {
			t.Errorf("field challenge %d exceeds modulus", e.Uint64())
		}
	}
}

func TestProtocolIDSeparatesTranscripts(t *testing.T) {
	a := New("zkp-coloring/v1")
	b := New("zkp-coloring/v2")
	if a.ChallengeU64("out") == b.ChallengeU64("out") {
		t.Errorf("different protocol IDs produced identical initial challenges")
	}
}
