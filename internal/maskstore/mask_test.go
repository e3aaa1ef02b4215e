package maskstore

import "testing"

func TestSetIsMasked(t *testing.T) {
	s := New(4, 4, [4]byte{0, 0, 0, 0})
	s.SetMasked(1, 2, true)
	if !s.IsMasked(1, 2) {
		t.Fatal("expected (1,2) masked")
	}
	if s.IsMasked(0, 0) {
		t.Fatal("expected (0,0) unmasked")
	}
	s.SetMasked(1, 2, false)
	if s.IsMasked(1, 2) {
		t.Fatal("expected (1,2) unmasked after clear")
	}
}

func TestTileFullyMasked(t *testing.T) {
	s := New(4, 4, [4]byte{1, 2, 3, 4})
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			s.SetMasked(x, y, true)
		}
	}
	if !s.TileFullyMasked(0, 0, 4) {
		t.Fatal("expected fully masked")
	}
	s.SetMasked(3, 3, false)
	if s.TileFullyMasked(0, 0, 4) {
		t.Fatal("expected not fully masked")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := New(9, 5, [4]byte{10, 20, 30, 40})
	s.SetMasked(0, 0, true)
	s.SetMasked(8, 4, true)
	data := s.Encode()
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Width() != 9 || got.Height() != 5 {
		t.Fatalf("dims = %dx%d, want 9x5", got.Width(), got.Height())
	}
	if !got.IsMasked(0, 0) || !got.IsMasked(8, 4) {
		t.Fatal("expected masked bits preserved")
	}
	if got.IsMasked(1, 1) {
		t.Fatal("expected unmasked bit preserved")
	}
	if got.Color() != s.Color() {
		t.Fatal("expected color preserved")
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error on truncated payload")
	}
}
