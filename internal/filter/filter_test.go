package filter

import "testing"

func TestColorCatalogRoundTrip(t *testing.T) {
	samples := [][3]byte{
		{0, 0, 0}, {255, 255, 255}, {1, 2, 3}, {255, 0, 128},
		{17, 201, 44}, {128, 128, 128}, {0, 255, 0}, {254, 1, 254},
	}
	for id := 0; id < NumColorFilters; id++ {
		cf := Color[id]
		for _, s := range samples {
			yuv := cf.Forward(s)
			back := cf.Inverse(yuv)
			if back != s {
				t.Fatalf("CF id %d: Forward(%v)=%v Inverse=%v, want %v", id, s, yuv, back, s)
			}
		}
	}
}

func TestSpatialCatalogDeterministic(t *testing.T) {
	n := Neighbor{
		L:  [3]byte{10, 20, 30},
		T:  [3]byte{40, 50, 60},
		TL: [3]byte{5, 6, 7},
		TR: [3]byte{70, 80, 90},
	}
	for id := 0; id < NumSpatialFilters; id++ {
		p := Spatial[id]
		a := p(n)
		b := p(n)
		if a != b {
			t.Fatalf("SF id %d: not deterministic: %v vs %v", id, a, b)
		}
	}
}

func TestCanonicalSFWithinRange(t *testing.T) {
	for _, id := range CanonicalSF {
		if id < 0 || id >= NumSpatialFilters {
			t.Fatalf("canonical SF id %d out of range", id)
		}
	}
}

func TestSFLeftTopIdentity(t *testing.T) {
	n := Neighbor{L: [3]byte{9, 8, 7}, T: [3]byte{1, 2, 3}}
	if got := Spatial[sfLeft](n); got != n.L {
		t.Fatalf("sfLeft = %v, want %v", got, n.L)
	}
	if got := Spatial[sfTop](n); got != n.T {
		t.Fatalf("sfTop = %v, want %v", got, n.T)
	}
}
