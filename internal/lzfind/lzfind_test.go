package lzfind

import "testing"

func makePixels(n int, fn func(i int) [4]byte) [][4]byte {
	out := make([][4]byte, n)
	for i := range out {
		out[i] = fn(i)
	}
	return out
}

func TestFindsExactRepeat(t *testing.T) {
	// 8 distinct pixels followed by an exact repeat of them.
	n := 16
	pixels := makePixels(n, func(i int) [4]byte {
		m := i % 8
		return [4]byte{byte(m), byte(m * 7), byte(m * 3), 255}
	})
	masked := make([]bool, n)

	f := NewFinder(n)
	f.Fill(pixels, masked)

	length, distance := f.BestAt(8)
	if length < MinMatch {
		t.Fatalf("expected a match at position 8, got length %d", length)
	}
	if distance != 8 {
		t.Fatalf("expected distance 8, got %d", distance)
	}
}

func TestNoMatchBelowMinLength(t *testing.T) {
	n := 8
	pixels := makePixels(n, func(i int) [4]byte {
		return [4]byte{byte(i), byte(i), byte(i), 255}
	})
	masked := make([]bool, n)
	f := NewFinder(n)
	f.Fill(pixels, masked)
	for pos := 0; pos < n; pos++ {
		length, _ := f.BestAt(pos)
		if length != 0 {
			t.Fatalf("pos %d: expected no match over an all-distinct sequence, got length %d", pos, length)
		}
	}
}

func TestMatchNeverCrossesMaskedPixel(t *testing.T) {
	n := 16
	pixels := makePixels(n, func(i int) [4]byte {
		return [4]byte{byte(i % 8), 0, 0, 255}
	})
	masked := make([]bool, n)
	masked[10] = true // breaks what would otherwise be an 8-long repeat

	f := NewFinder(n)
	f.Fill(pixels, masked)

	length, _ := f.BestAt(8)
	if length > 2 {
		t.Fatalf("match at position 8 crossed the masked pixel at 10: length %d", length)
	}
}

func TestSelectProducesNonOverlappingSortedMatches(t *testing.T) {
	n := 40
	pixels := makePixels(n, func(i int) [4]byte {
		return [4]byte{byte(i % 10), byte((i / 3) % 5), 0, 255}
	})
	masked := make([]bool, n)
	f := NewFinder(n)
	f.Fill(pixels, masked)
	matches := f.Select()

	prevEnd := -1
	for _, m := range matches {
		if m.Pos < prevEnd {
			t.Fatalf("matches overlap: previous ended at %d, next starts at %d", prevEnd, m.Pos)
		}
		if m.Length < MinMatch || m.Length > MaxMatch {
			t.Fatalf("match length %d out of bounds", m.Length)
		}
		if m.Distance < 1 {
			t.Fatalf("match distance %d must be >= 1", m.Distance)
		}
		if m.Pos-m.Distance < 0 {
			t.Fatalf("match source %d is before the start of the image", m.Pos-m.Distance)
		}
		prevEnd = m.Pos + m.Length
	}
}

func TestMaskedPositionsNeverStartAMatch(t *testing.T) {
	n := 16
	pixels := makePixels(n, func(i int) [4]byte {
		return [4]byte{byte(i % 4), 0, 0, 255}
	})
	masked := make([]bool, n)
	masked[5] = true
	f := NewFinder(n)
	f.Fill(pixels, masked)
	length, distance := f.BestAt(5)
	if length != 0 || distance != 0 {
		t.Fatalf("masked position 5 should never report a match, got length=%d distance=%d", length, distance)
	}
}
