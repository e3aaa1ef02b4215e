package residual

import (
	"testing"

	"github.com/siddharths2710/gcif/internal/filter"
)

func buildImage(width, height int, fn func(x, y int) [4]byte) [][4]byte {
	pix := make([][4]byte, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pix[y*width+x] = fn(x, y)
		}
	}
	return pix
}

func TestForwardInverseRoundTrip(t *testing.T) {
	width, height := 6, 6
	pix := buildImage(width, height, func(x, y int) [4]byte {
		return [4]byte{byte(x * 17), byte(y * 23), byte(x + y), 255}
	})

	for sf := 0; sf < filter.NumSpatialFilters; sf++ {
		for cf := 0; cf < filter.NumColorFilters; cf++ {
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					n := Gather(pix, width, height, x, y)
					yuv := Forward(pix, width, height, x, y, sf, cf, n)
					rgb := Inverse(sf, cf, n, yuv)
					want := pix[y*width+x]
					if rgb[0] != want[0] || rgb[1] != want[1] || rgb[2] != want[2] {
						t.Fatalf("sf=%d cf=%d (%d,%d): got %v want %v", sf, cf, x, y, rgb, want[:3])
					}
				}
			}
		}
	}
}

func TestGatherUnsafeMatchesGatherOnInteriorPixels(t *testing.T) {
	width, height := 8, 8
	pix := buildImage(width, height, func(x, y int) [4]byte {
		return [4]byte{byte(x * 31), byte(y * 11), byte(x ^ y), 255}
	})
	for y := 1; y < height; y++ {
		for x := 1; x < width-1; x++ {
			if !IsInterior(x, y, width) {
				continue
			}
			safe := Gather(pix, width, height, x, y)
			unsafe := GatherUnsafe(pix, width, x, y)
			if safe != unsafe {
				t.Fatalf("(%d,%d): safe %v != unsafe %v", x, y, safe, unsafe)
			}
		}
	}
}

func TestAlphaForwardInverseIsInvolution(t *testing.T) {
	for a := 0; a < 256; a++ {
		v := AlphaForward(byte(a))
		got := AlphaInverse(v)
		if got != byte(a) {
			t.Fatalf("alpha %d round-tripped to %d", a, got)
		}
	}
}

func TestGatherClampsAtEdges(t *testing.T) {
	width, height := 4, 4
	pix := buildImage(width, height, func(x, y int) [4]byte {
		return [4]byte{byte(x), byte(y), 0, 255}
	})
	n := Gather(pix, width, height, 0, 0)
	if n.L != n.TL || n.T != n.TL {
		t.Fatalf("top-left corner neighbors should all read the same zero value: %+v", n)
	}
}
