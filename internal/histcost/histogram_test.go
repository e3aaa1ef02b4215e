package histcost

import "testing"

func TestEmptyHistogramCostZero(t *testing.T) {
	h := New(16)
	if c := h.Cost(); c != 0 {
		t.Fatalf("Cost() = %v, want 0", c)
	}
}

func TestUniformPopulationHasMaximalEntropy(t *testing.T) {
	uniform := New(4)
	for i := 0; i < 4; i++ {
		for n := 0; n < 10; n++ {
			uniform.AddSingle(i)
		}
	}
	skewed := New(4)
	for n := 0; n < 40; n++ {
		skewed.AddSingle(0)
	}
	if uniform.Cost() <= skewed.Cost() {
		t.Fatalf("uniform cost %v should exceed skewed cost %v", uniform.Cost(), skewed.Cost())
	}
}

func TestAddSubtractIsIdentity(t *testing.T) {
	h := New(8)
	for i := 0; i < 8; i++ {
		h.AddSingle(i % 3)
	}
	before := h.Cost()
	h.AddSingle(5)
	h.Subtract(5)
	after := h.Cost()
	if before != after {
		t.Fatalf("Add then Subtract changed cost: %v != %v", before, after)
	}
}

func TestAddEvalDoesNotMutate(t *testing.T) {
	h := New(4)
	h.AddSingle(0)
	h.AddSingle(1)
	before := append([]uint32{}, h.Population()...)
	h.AddEval(2)
	after := h.Population()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("AddEval mutated population at %d: %d != %d", i, before[i], after[i])
		}
	}
}
