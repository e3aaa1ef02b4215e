// Package lzfind is the LZ-style pixel-copy matcher of §4.5: a hash
// chain over packed RGBA pixels, generalized from the teacher's 2-pixel
// ARGB hash to be mask-aware (matches may never start, end, or cross a
// masked pixel) and bounded to the core's own window/length limits
// (MIN_MATCH=2, MAX_MATCH=4096, window 2^20) instead of VP8L's.
//
// Grounded on internal/lossless/hashchain.go's HashChain: same
// multiplicative 2-pixel hash, same "walk the chain to a bounded depth,
// extend the best candidate forward" shape. Before walking the chain,
// Fill probes the pixel directly to the left (distance 1); there is no
// probe of the pixel directly above and no backward extension of a
// match. Two parallel slices hold length and distance in place of the
// teacher's single packed uint32, and matches stop at masked pixels.
package lzfind

// MinMatch is the shortest pixel-copy match the core will ever emit
// (§4.5: "MIN_MATCH = 2 pixels").
const MinMatch = 2

// MaxMatch is the longest pixel-copy match a single LZ escape can
// represent (§4.5: "extend match forward... up to MAX_MATCH=4096").
const MaxMatch = 4096

// WindowBits / WindowSize bound how far back a match may reach (§4.5:
// "window 2^20").
const WindowBits = 20
const WindowSize = 1 << WindowBits

const (
	hashBits = 18
	hashSize = 1 << hashBits
	iterMax  = 64
)

const (
	hashMulHi = uint32(0xc6a4a793)
	hashMulLo = uint32(0x5bd1e996)
)

// Match is one accepted pixel-copy: copy Length pixels from
// (Pos - Distance) to Pos.
type Match struct {
	Pos      int
	Distance int
	Length   int
}

func packRGBA(p [4]byte) uint32 {
	return uint32(p[0])<<24 | uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3])
}

func hashPixelPair(a, b uint32) uint32 {
	key := b*hashMulHi + a*hashMulLo
	return key >> (32 - hashBits)
}

// findMatchLength returns how many consecutive pixels starting at a and
// b agree, bounded by maxLimit and by the masked slice: a match can
// never incorporate a masked pixel on either side, since masked pixels
// are never transmitted through the LZ path at all (§4.5: "bail if match
// would cross masked pixels").
func findMatchLength(packed []uint32, masked []bool, aStart, bStart, maxLimit int) int {
	n := 0
	for n < maxLimit {
		ai, bi := aStart+n, bStart+n
		if masked[ai] || masked[bi] {
			break
		}
		if packed[ai] != packed[bi] {
			break
		}
		n++
	}
	return n
}

// Finder holds the per-image hash chain. Reusable across Fill calls on
// images of the same pixel count.
type Finder struct {
	size      int
	chain     []int32 // chain[pos] = previous position with the same 2-pixel hash, -1 if none
	bestLen   []int32
	bestDist  []int32
	firstSeen []int32 // hashToFirstIndex, reused between Fill calls
}

// NewFinder allocates a Finder for an image of the given pixel count.
func NewFinder(size int) *Finder {
	return &Finder{
		size:      size,
		chain:     make([]int32, size),
		bestLen:   make([]int32, size),
		bestDist:  make([]int32, size),
		firstSeen: make([]int32, hashSize),
	}
}

// Fill builds the hash chain and, for every position, records the best
// (length, distance) pair reachable without crossing a masked pixel.
// pixels and masked must have the same length as the Finder's size.
func (f *Finder) Fill(pixels [][4]byte, masked []bool) {
	size := f.size
	if size < 3 {
		for i := range f.bestLen {
			f.bestLen[i] = 0
			f.bestDist[i] = 0
		}
		return
	}

	packed := make([]uint32, size)
	for i, p := range pixels {
		packed[i] = packRGBA(p)
	}

	for i := range f.firstSeen {
		f.firstSeen[i] = -1
	}

	for pos := 0; pos < size-1; pos++ {
		h := hashPixelPair(packed[pos], packed[pos+1])
		f.chain[pos] = f.firstSeen[h]
		f.firstSeen[h] = int32(pos)
	}

	for basePos := size - 1; basePos >= 0; basePos-- {
		f.bestLen[basePos] = 0
		f.bestDist[basePos] = 0
		if masked[basePos] {
			continue
		}

		maxLen := size - basePos
		if maxLen > MaxMatch {
			maxLen = MaxMatch
		}

		minPos := 0
		if basePos > WindowSize {
			minPos = basePos - WindowSize
		}

		bestLength := 0
		bestDistance := 0

		if basePos >= 1 && basePos-1 >= minPos && !masked[basePos-1] {
			if l := findMatchLength(packed, masked, basePos-1, basePos, maxLen); l > bestLength {
				bestLength = l
				bestDistance = 1
			}
		}

		if basePos+1 < size {
			pos := int32(-1)
			if basePos < size-1 {
				pos = f.chain[basePos]
			}
			iter := iterMax
			for pos >= int32(minPos) && iter > 0 {
				iter--
				candidate := int(pos)
				if !masked[candidate] {
					l := findMatchLength(packed, masked, candidate, basePos, maxLen)
					if l > bestLength {
						bestLength = l
						bestDistance = basePos - candidate
					}
				}
				if int(pos) == 0 {
					break
				}
				pos = f.chain[pos]
			}
		}

		if bestLength >= MinMatch {
			f.bestLen[basePos] = int32(bestLength)
			f.bestDist[basePos] = int32(bestDistance)
		}
	}
}

// BestAt returns the best (length, distance) candidate found at pos, or
// (0, 0) if no qualifying match exists there.
func (f *Finder) BestAt(pos int) (length, distance int) {
	return int(f.bestLen[pos]), int(f.bestDist[pos])
}

// SavedPixelBits is the per-pixel entropy-bit cost a literal Y symbol is
// assumed to cost, for scoring whether a candidate match is worth its
// escape overhead (§4.5's scoring formula).
const SavedPixelBits = 8.0

// LenPrefixCost and DistPrefixCost are the fixed per-escape overhead
// bits (escape symbol plus raw extra-bit fields), chosen to roughly
// match the entropy.LZEscapeBase/LZDistanceBits layout without this
// package needing to import internal/entropy just to estimate a score.
const LenPrefixCost = 8.0
const DistPrefixCost = 4.0

func log2Ceil(v int) float64 {
	if v <= 1 {
		return 0
	}
	bits := 0
	for (1 << bits) < v {
		bits++
	}
	return float64(bits)
}

// Score returns the estimated bit savings of a length-L, distance-D
// match versus coding L pixels as literals. Positive means worth taking.
func Score(length, distance int) float64 {
	saved := float64(length) * SavedPixelBits
	cost := LenPrefixCost + log2Ceil(length) + DistPrefixCost + log2Ceil(distance)
	return saved - cost
}

// Select greedily walks the image left to right, taking the best match
// at each position whose score is positive, skipping past its length,
// and returns the chosen matches sorted by source offset (they already
// are, by construction of the scan order) for the codec driver to
// splice into the Y-channel symbol stream as escapes (§4.5: "Chosen
// matches are sorted by source offset and inserted into the main encode
// pass as Y-escape symbols at their start offsets").
func (f *Finder) Select() []Match {
	var matches []Match
	pos := 0
	for pos < f.size {
		length, distance := f.BestAt(pos)
		if length >= MinMatch && Score(length, distance) > 0 {
			matches = append(matches, Match{Pos: pos, Distance: distance, Length: length})
			pos += length
			continue
		}
		pos++
	}
	return matches
}
