// Package residual is the residual engine of §4.3: applies a tile's
// chosen spatial filter (SF) then color filter (CF) to turn an RGB
// pixel into a (Y,U,V) residual, and inverts the same pair to
// reconstruct a pixel from a decoded residual. The alpha channel is
// handled separately by simple 255-A inversion; it never goes through
// SF/CF, it is routed to the monochrome sub-engine instead (§4.6).
//
// Grounded on internal/lossless/encode_predictor.go's predictPixel
// (gather four already-decoded neighbors, apply one of ~32 predictors,
// subtract mod 256) generalized to also apply a color transform
// afterward, and on transform.go's ApplyTransform/forward-then-inverse
// shape for how a spatial step composes with a color step.
package residual

import "github.com/siddharths2710/gcif/internal/filter"

// Gather reads the four neighbor pixels a predictor needs
// ({(-1,0),(0,-1),(-1,-1),(+1,-1)}), clamping out-of-bounds coordinates
// to the nearest edge pixel. A neighbor that clamps onto the pixel being
// coded or onto a later pixel in scan order (one a decoder has not
// reconstructed yet) reads as zero instead. This is the "safe" variant (§4.1: "two
// safe variants clamp coordinates at image edges"); it is correct
// everywhere, including the first row and the first/last column, at the
// cost of a few branches per call.
func Gather(pix [][4]byte, width, height, x, y int) filter.Neighbor {
	get := func(nx, ny int) [3]byte {
		if nx < 0 {
			nx = 0
		}
		if nx >= width {
			nx = width - 1
		}
		if ny < 0 {
			ny = 0
		}
		if ny >= height {
			ny = height - 1
		}
		if ny == y && nx >= x {
			return [3]byte{}
		}
		p := pix[ny*width+nx]
		return [3]byte{p[0], p[1], p[2]}
	}
	return filter.Neighbor{
		L:  get(x-1, y),
		T:  get(x, y-1),
		TL: get(x-1, y-1),
		TR: get(x+1, y-1),
	}
}

// IsInterior reports whether (x,y) is far enough from every edge that
// GatherUnsafe may be used in place of Gather.
func IsInterior(x, y, width int) bool {
	return x >= 1 && y >= 1 && x+1 < width
}

// GatherUnsafe is the "unsafe" variant (§4.1: "skip bounds checks") used
// by the residual engine's interior scan loop once a row is past its
// first and last column and past the first row; callers must check
// IsInterior first.
func GatherUnsafe(pix [][4]byte, width, x, y int) filter.Neighbor {
	l := pix[y*width+x-1]
	t := pix[(y-1)*width+x]
	tl := pix[(y-1)*width+x-1]
	tr := pix[(y-1)*width+x+1]
	return filter.Neighbor{
		L:  [3]byte{l[0], l[1], l[2]},
		T:  [3]byte{t[0], t[1], t[2]},
		TL: [3]byte{tl[0], tl[1], tl[2]},
		TR: [3]byte{tr[0], tr[1], tr[2]},
	}
}

// Forward computes the (Y,U,V) residual for the pixel at (x,y) given
// its tile's chosen SF and CF ids. pix must already hold the true pixel
// value at (x,y) and correct values at every already-scanned neighbor.
func Forward(pix [][4]byte, width, height, x, y, sf, cf int, n filter.Neighbor) [3]byte {
	pred := filter.Spatial[sf](n)
	actual := pix[y*width+x]
	var r [3]byte
	for i := 0; i < 3; i++ {
		r[i] = actual[i] - pred[i]
	}
	return filter.Color[cf].Forward(r)
}

// Inverse reconstructs the RGB pixel at (x,y) from a decoded residual,
// given the same SF/CF ids and already-reconstructed neighbors used by
// Forward.
func Inverse(sf, cf int, n filter.Neighbor, residualYUV [3]byte) [3]byte {
	pred := filter.Spatial[sf](n)
	r := filter.Color[cf].Inverse(residualYUV)
	var rgb [3]byte
	for i := 0; i < 3; i++ {
		rgb[i] = pred[i] + r[i]
	}
	return rgb
}

// AlphaForward inverts an alpha value for encoding (§4.3: "write 255-A
// into the alpha plane (inversion makes transparent runs encode to zero
// runs)").
func AlphaForward(a byte) byte { return 255 - a }

// AlphaInverse undoes AlphaForward; the operation is its own inverse.
func AlphaInverse(v byte) byte { return 255 - v }
