package mono

import (
	"testing"

	"github.com/siddharths2710/gcif/internal/bitio"
	"github.com/siddharths2710/gcif/internal/filter"
)

func TestEncodeDecodePlaneRoundTrip(t *testing.T) {
	width, height := 16, 16
	plane := make([]byte, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			plane[y*width+x] = byte((x*7 + y*13) % 251)
		}
	}

	w := bitio.NewWriter(4096)
	if err := EncodePlane(w, plane, width, height, 4, nil, filter.CanonicalSF, 0.9); err != nil {
		t.Fatalf("EncodePlane: %v", err)
	}
	data := w.Finish()

	r := bitio.NewReader(data)
	got, err := DecodePlane(r, width, height, 4, nil, 0, filter.CanonicalSF, 0.9)
	if err != nil {
		t.Fatalf("DecodePlane: %v", err)
	}
	for i := range plane {
		if got[i] != plane[i] {
			t.Fatalf("byte %d: got %d, want %d", i, got[i], plane[i])
		}
	}
}

func TestEncodeDecodePlaneWithMask(t *testing.T) {
	width, height := 16, 16
	plane := make([]byte, width*height)
	masked := make([]bool, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if x < 8 {
				masked[idx] = true
			} else {
				plane[idx] = byte((x + y*3) % 200)
			}
		}
	}

	w := bitio.NewWriter(4096)
	if err := EncodePlane(w, plane, width, height, 4, masked, filter.CanonicalSF, 0.9); err != nil {
		t.Fatalf("EncodePlane: %v", err)
	}
	data := w.Finish()

	r := bitio.NewReader(data)
	got, err := DecodePlane(r, width, height, 4, masked, 0, filter.CanonicalSF, 0.9)
	if err != nil {
		t.Fatalf("DecodePlane: %v", err)
	}
	for y := 0; y < height; y++ {
		for x := 8; x < width; x++ {
			idx := y*width + x
			if got[idx] != plane[idx] {
				t.Fatalf("byte (%d,%d): got %d, want %d", x, y, got[idx], plane[idx])
			}
		}
	}
}

func TestEncodeDecodeUniformPlaneRoundTrip(t *testing.T) {
	width, height := 32, 32
	plane := make([]byte, width*height)
	for i := range plane {
		plane[i] = 42
	}
	w := bitio.NewWriter(4096)
	if err := EncodePlane(w, plane, width, height, 8, nil, filter.CanonicalSF, 0.5); err != nil {
		t.Fatalf("EncodePlane: %v", err)
	}
	data := w.Finish()
	r := bitio.NewReader(data)
	got, err := DecodePlane(r, width, height, 8, nil, 0, filter.CanonicalSF, 0.5)
	if err != nil {
		t.Fatalf("DecodePlane: %v", err)
	}
	for i := range plane {
		if got[i] != 42 {
			t.Fatalf("byte %d: got %d, want 42", i, got[i])
		}
	}
}
