// Package filter holds the fixed, numbered catalog of spatial predictors
// (SF) and color transforms (CF) described in §4.1. Every entry is a pure
// function of its neighborhood; the wire format carries numeric catalog
// ids, never function pointers, so the catalog itself must never reorder
// or renumber existing entries.
//
// Grounded on internal/lossless/encode_predictor.go's predictPixel: the
// same "one switch over a small mode id, each case a short arithmetic
// expression over already-decoded neighbors" shape, generalized from one
// packed 32-bit ARGB word to an explicit [3]byte RGB neighborhood and
// expanded from 14 modes to the ~32 the core spec calls for.
package filter

// Neighbor bundles the four already-decoded RGB neighbors a spatial
// predictor may read: left, top, top-left, top-right.
type Neighbor struct {
	L, T, TL, TR [3]byte
}

// Predictor computes a predicted RGB pixel from a neighborhood.
type Predictor func(n Neighbor) [3]byte

// NumSpatialFilters is the size of the fixed SF catalog.
const NumSpatialFilters = 32

// CanonicalSF lists the catalog ids always shortlisted by the tile planner
// regardless of scoring (§4.2 step 2: "Always include the first handful of
// 'fixed' canonical SFs to guarantee coverage").
var CanonicalSF = []int{sfBlack, sfLeft, sfTop, sfAvgLT}

const (
	sfBlack = 0
	sfLeft  = 1
	sfTop   = 2
	sfAvgLT = 5
)

// Spatial is the fixed SF catalog, indexed by stable numeric id.
var Spatial = [NumSpatialFilters]Predictor{
	0:  func(n Neighbor) [3]byte { return [3]byte{} }, // fixed black
	1:  func(n Neighbor) [3]byte { return n.L },
	2:  func(n Neighbor) [3]byte { return n.T },
	3:  func(n Neighbor) [3]byte { return n.TR },
	4:  func(n Neighbor) [3]byte { return n.TL },
	5:  func(n Neighbor) [3]byte { return avg2v(n.L, n.T) },
	6:  func(n Neighbor) [3]byte { return avg2v(n.L, n.TL) },
	7:  func(n Neighbor) [3]byte { return avg2v(n.T, n.TL) },
	8:  func(n Neighbor) [3]byte { return avg2v(n.T, n.TR) },
	9:  func(n Neighbor) [3]byte { return avg2v(avg2v(n.L, n.TR), n.T) },
	10: func(n Neighbor) [3]byte { return avg2v(avg2v(n.L, n.TL), avg2v(n.T, n.TR)) },
	11: func(n Neighbor) [3]byte { return selectPred(n.L, n.T, n.TL) },
	12: func(n Neighbor) [3]byte { return clampAddSubFull(n.L, n.T, n.TL) },
	13: func(n Neighbor) [3]byte { return clampAddSubHalf(avg2v(n.L, n.T), n.TL) },
	14: func(n Neighbor) [3]byte { return avg2v(n.L, avg2v(n.T, n.TR)) },
	15: func(n Neighbor) [3]byte { return avg2v(n.TL, avg2v(n.L, n.T)) },
	16: func(n Neighbor) [3]byte { return avg3v(n.L, n.T, n.TR) },
	17: func(n Neighbor) [3]byte { return avg3v(n.L, n.T, n.TL) },
	18: func(n Neighbor) [3]byte { return avg4v(n.L, n.T, n.TL, n.TR) },
	19: func(n Neighbor) [3]byte { return median3v(n.L, n.T, n.TL) },
	20: func(n Neighbor) [3]byte { return paethClassic(n.L, n.T, n.TL) },
	21: func(n Neighbor) [3]byte { return clampGrad2(n.L, n.TL, 2) }, // 2L - TL
	22: func(n Neighbor) [3]byte { return clampGrad2(n.T, n.TL, 2) }, // 2T - TL
	23: func(n Neighbor) [3]byte { return weightedAvg(n.L, n.T, 3, 1) },
	24: func(n Neighbor) [3]byte { return weightedAvg(n.L, n.T, 1, 3) },
	25: func(n Neighbor) [3]byte { return weightedAvg(n.L, n.TR, 1, 1) },
	26: func(n Neighbor) [3]byte { return avg2v(n.TL, n.TR) },
	27: func(n Neighbor) [3]byte { return weightedAvg2(n.L, n.T, n.TR, 2, 1, 1) },
	28: func(n Neighbor) [3]byte { return weightedAvg2(n.L, n.T, n.TR, 1, 2, 1) },
	29: func(n Neighbor) [3]byte { return weightedAvg2(n.L, n.TL, n.TR, 1, 2, 1) },
	30: func(n Neighbor) [3]byte { return clampAddSubHalf(avg2v(n.T, n.TR), n.TL) },
	31: func(n Neighbor) [3]byte { return [3]byte{128, 128, 128} }, // fixed gray
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func perChannel(a, b, c [3]byte, fn func(a, b, c int) int) [3]byte {
	var out [3]byte
	for i := 0; i < 3; i++ {
		out[i] = clampByte(fn(int(a[i]), int(b[i]), int(c[i])))
	}
	return out
}

func avg2v(a, b [3]byte) [3]byte {
	var out [3]byte
	for i := 0; i < 3; i++ {
		out[i] = uint8((int(a[i]) + int(b[i]) + 1) / 2)
	}
	return out
}

func avg3v(a, b, c [3]byte) [3]byte {
	var out [3]byte
	for i := 0; i < 3; i++ {
		out[i] = uint8((int(a[i]) + int(b[i]) + int(c[i])) / 3)
	}
	return out
}

func avg4v(a, b, c, d [3]byte) [3]byte {
	var out [3]byte
	for i := 0; i < 3; i++ {
		out[i] = uint8((int(a[i]) + int(b[i]) + int(c[i]) + int(d[i]) + 2) / 4)
	}
	return out
}

func weightedAvg(a, b [3]byte, wa, wb int) [3]byte {
	var out [3]byte
	total := wa + wb
	for i := 0; i < 3; i++ {
		out[i] = uint8((int(a[i])*wa + int(b[i])*wb + total/2) / total)
	}
	return out
}

func weightedAvg2(a, b, c [3]byte, wa, wb, wc int) [3]byte {
	var out [3]byte
	total := wa + wb + wc
	for i := 0; i < 3; i++ {
		out[i] = uint8((int(a[i])*wa + int(b[i])*wb + int(c[i])*wc + total/2) / total)
	}
	return out
}

func median3v(a, b, c [3]byte) [3]byte {
	var out [3]byte
	for i := 0; i < 3; i++ {
		out[i] = median3(a[i], b[i], c[i])
	}
	return out
}

func median3(a, b, c uint8) uint8 {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b = c
	}
	if a > b {
		b = a
	}
	return b
}

// selectPred implements the classic Paeth-select decision: compare the sum
// of per-component distances |T-TL| vs |L-TL| across all channels, and
// return T as a whole if it's at least as close, L otherwise. Grounded on
// internal/lossless/encode_predictor.go's selectPred.
func selectPred(left, top, topLeft [3]byte) [3]byte {
	pa := 0
	for i := 0; i < 3; i++ {
		ac := int(top[i]) - int(topLeft[i])
		bc := int(left[i]) - int(topLeft[i])
		if ac < 0 {
			ac = -ac
		}
		if bc < 0 {
			bc = -bc
		}
		pa += ac - bc
	}
	if pa <= 0 {
		return top
	}
	return left
}

// clampAddSubFull computes (a + b - c) per component, clamped to [0,255].
// Grounded on internal/lossless/encode_predictor.go's clampAddSubFull.
func clampAddSubFull(a, b, c [3]byte) [3]byte {
	return perChannel(a, b, c, func(a, b, c int) int { return a + b - c })
}

// clampAddSubHalf computes avg + (avg - c)/2 per component, clamped.
func clampAddSubHalf(avg, c [3]byte) [3]byte {
	var out [3]byte
	for i := 0; i < 3; i++ {
		va := int(avg[i])
		vc := int(c[i])
		out[i] = clampByte(va + (va-vc)/2)
	}
	return out
}

// paethClassic is the standard PNG Paeth predictor: pick whichever of
// left, top, top-left is closest to (left + top - top-left).
func paethClassic(left, top, topLeft [3]byte) [3]byte {
	var out [3]byte
	for i := 0; i < 3; i++ {
		l, t, tl := int(left[i]), int(top[i]), int(topLeft[i])
		p := l + t - tl
		pa, pb, pc := abs(p-l), abs(p-t), abs(p-tl)
		switch {
		case pa <= pb && pa <= pc:
			out[i] = left[i]
		case pb <= pc:
			out[i] = top[i]
		default:
			out[i] = topLeft[i]
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// clampGrad2 computes (k*a - b) per component, clamped.
func clampGrad2(a, b [3]byte, k int) [3]byte {
	return perChannel(a, b, [3]byte{}, func(a, b, _ int) int { return k*a - b })
}
