package field

import "testing"

func TestAddSubRoundTrip(t *testing.T) {
	cases := []struct {
		a, b uint64
	}{
		{0, 0},
		{1, 1},
		{Modulus - 1, 2},
		{Modulus - 1, Modulus - 1},
		{12345, 67890},
	}
	for _, c := range cases {
		a, b := New(c.a), New(c.b)
		sum := a.Add(b)
		back := sum.Sub(b)
		if !back.Equal(a) {
			t.Errorf("Add/Sub round trip failed for a=%d b=%d: got %v want %v", c.a, c.b, back, a)
		}
	}
}

func TestMulInv(t *testing.T) {
	t.Run("one is identity", func(t *testing.T) {
		a := New(424242)
		if !a.Mul(One()).Equal(a) {
			t.Errorf("a*1 != a")
		}
	})

	t.Run("inverse round trip", func(t *testing.T) {
		for _, v := range []uint64{1, 2, 3, 424242, Modulus - 1} {
			a := New(v)
			inv, err := a.Inv()
			if err != nil {
				t.Fatalf("Inv(%d) failed: %v", v, err)
			}
			if !a.Mul(inv).Equal(One()) {
				t.Errorf("a * a^-1 != 1 for a=%d", v)
			}
		}
	})

	t.Run("zero has no inverse", func(t *testing.T) {
		if _, err := Zero().Inv(); err == nil {
			t.Errorf("expected error inverting zero")
		}
	})
}

func TestNegSub(t *testing.T) {
	a := New(999)
	if !a.Add(a.Neg()).IsZero() {
		t.Errorf("a + (-a) != 0")
	}
}

func TestExp(t *testing.T) {
	a := New(3)
	got := a.Exp(10)
	want := New(59049) // 3^10
	if !got.Equal(want) {
		t.Errorf("3^10 = %v, want %v", got, want)
	}
}

func TestMulWraparound(t *testing.T) {
	a := New(Modulus - 1)
	b := New(Modulus - 1)
	got := a.Mul(b)
	// (-1) * (-1) = 1 mod p
	if !got.Equal(One()) {
		t.Errorf("(p-1)*(p-1) = %v, want 1", got)
	}
}

func TestRootOfUnity(t *testing.T) {
	for _, logOrder := range []int{1, 2, 8, 16, 32} {
		root, err := RootOfUnity(logOrder)
		if err != nil {
			t.Fatalf("RootOfUnity(%d): %v", logOrder, err)
		}
		order := uint64(1) << uint(logOrder)
		if !root.Exp(order).Equal(One()) {
			t.Errorf("root^%d != 1 for logOrder=%d", order, logOrder)
		}
		if logOrder > 0 && root.Exp(order/2).Equal(One()) {
			t.Errorf("root has order dividing %d, expected exactly %d", order/2, order)
		}
	}

	if _, err := RootOfUnity(33); err == nil {
		t.Errorf("expected error for logOrder exceeding two-adicity")
	}
}

func TestBytesRoundTrip(t *testing.T) {
	a := New(0x0123456789ABCDEF)
	if !FromBytes(a.Bytes()).Equal(a) {
		t.Errorf("Bytes/FromBytes round trip failed")
	}
}

func TestRandomDistinct(t *testing.T) {
	a, err := Random()
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	b, err := Random()
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	// Not a correctness guarantee, just a sanity check that Random doesn't
	// always return the same value.
	if a.Equal(b) {
		t.Logf("Random returned equal values twice; astronomically unlikely but not impossible")
	}
}
