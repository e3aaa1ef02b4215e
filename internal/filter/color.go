package filter

// NumColorFilters is the size of the fixed CF catalog.
const NumColorFilters = 16

// ColorFilter is an invertible, integer, 8-bit-in/8-bit-out RGB<->YUV
// transform applied to residual bytes (§4.1, §4.3). Because it operates on
// residuals that are already reduced mod 256, every entry below is built
// from an "additive lifting" shape: each output channel beyond the first
// is a plain mod-256 difference against a value recoverable, at decode
// time, purely from already-recovered output channels. That shape makes
// invertibility automatic regardless of the particular predictor function
// used inside the lift (see Inverse below), the same way
// internal/lossless's SubtractGreenTransform (Y=G, U=R-G, V=B-G) inverts
// trivially by re-adding G — this catalog generalizes that one fixed
// transform into a family of 16 by varying the channel permutation and the
// lifting predictor.
type ColorFilter struct {
	Forward func(r [3]byte) [3]byte
	Inverse func(yuv [3]byte) [3]byte
}

// permutations of (R=0, G=1, B=2) into lifting roles (a, b, c).
var cfPerms = [6][3]int{
	{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
}

func liftYCoCg(a, b, c uint8) (y, u, v uint8) {
	co := a - c
	t := c + (co >> 1)
	cg := b - t
	y = t + (cg >> 1)
	return y, co, cg
}

func unliftYCoCg(y, co, cg uint8) (a, b, c uint8) {
	t := y - (cg >> 1)
	b = cg + t
	c = t - (co >> 1)
	a = co + c
	return a, b, c
}

func liftRCT(a, b, c uint8) (y, d1, d2 uint8) {
	d1 = a - b
	d2 = b - c
	y = b + byte((uint16(d1)+uint16(d2))>>2)
	return y, d1, d2
}

func unliftRCT(y, d1, d2 uint8) (a, b, c uint8) {
	b = y - byte((uint16(d1)+uint16(d2))>>2)
	a = d1 + b
	c = b - d2
	return a, b, c
}

func permApply(rgb [3]byte, perm [3]int) (a, b, c uint8) {
	return rgb[perm[0]], rgb[perm[1]], rgb[perm[2]]
}

func permInvert(a, b, c uint8, perm [3]int) [3]byte {
	var rgb [3]byte
	rgb[perm[0]] = a
	rgb[perm[1]] = b
	rgb[perm[2]] = c
	return rgb
}

// Color is the fixed CF catalog, indexed by stable numeric id. Ids 0-5
// use the YCoCg-style half-sum lift over the 6 channel-role permutations;
// ids 6-11 use the RCT-style quarter-sum lift over the same permutations;
// ids 12-15 are the simple fixed transforms (identity and three
// subtract-dominant-channel variants, the last three a direct
// generalization of SubtractGreenTransform to subtract-red/subtract-blue).
var Color = buildColorCatalog()

func buildColorCatalog() [NumColorFilters]ColorFilter {
	var cat [NumColorFilters]ColorFilter
	for i, perm := range cfPerms {
		p := perm
		cat[i] = ColorFilter{
			Forward: func(r [3]byte) [3]byte {
				a, b, c := permApply(r, p)
				y, u, v := liftYCoCg(a, b, c)
				return [3]byte{y, u, v}
			},
			Inverse: func(yuv [3]byte) [3]byte {
				a, b, c := unliftYCoCg(yuv[0], yuv[1], yuv[2])
				return permInvert(a, b, c, p)
			},
		}
	}
	for i, perm := range cfPerms {
		p := perm
		cat[6+i] = ColorFilter{
			Forward: func(r [3]byte) [3]byte {
				a, b, c := permApply(r, p)
				y, d1, d2 := liftRCT(a, b, c)
				return [3]byte{y, d1, d2}
			},
			Inverse: func(yuv [3]byte) [3]byte {
				a, b, c := unliftRCT(yuv[0], yuv[1], yuv[2])
				return permInvert(a, b, c, p)
			},
		}
	}
	cat[12] = ColorFilter{
		Forward: func(r [3]byte) [3]byte { return [3]byte{r[1], r[0], r[2]} }, // Y=G,U=R,V=B
		Inverse: func(yuv [3]byte) [3]byte { return [3]byte{yuv[1], yuv[0], yuv[2]} },
	}
	cat[13] = ColorFilter{ // subtract-green: Y=G, U=R-G, V=B-G
		Forward: func(r [3]byte) [3]byte { return [3]byte{r[1], r[0] - r[1], r[2] - r[1]} },
		Inverse: func(yuv [3]byte) [3]byte { return [3]byte{yuv[1] + yuv[0], yuv[0], yuv[2] + yuv[0]} },
	}
	cat[14] = ColorFilter{ // subtract-red: Y=R, U=G-R, V=B-R
		Forward: func(r [3]byte) [3]byte { return [3]byte{r[0], r[1] - r[0], r[2] - r[0]} },
		Inverse: func(yuv [3]byte) [3]byte { return [3]byte{yuv[0], yuv[1] + yuv[0], yuv[2] + yuv[0]} },
	}
	cat[15] = ColorFilter{ // subtract-blue: Y=B, U=R-B, V=G-B
		Forward: func(r [3]byte) [3]byte { return [3]byte{r[2], r[0] - r[2], r[1] - r[2]} },
		Inverse: func(yuv [3]byte) [3]byte { return [3]byte{yuv[1] + yuv[0], yuv[2] + yuv[0], yuv[0]} },
	}
	return cat
}
