package entropy

// Alphabet layouts (§6 points 10-11, §4.5). Every table in the bank is
// sized to one of these two alphabets: the Y channel carries LZ escape
// codes (pixel-copy matches are only ever detected and replayed against
// the Y plane's residual stream), every other channel — U, V, A, and the
// monochrome sub-engine's single plane — does not.
const (
	NumLiteral  = 256
	NumLZEscape = 16
	NumZRL      = 128

	// YAlphabetSize is literal + LZ-escape + ZRL, laid out as
	// [0,256) literal, [256,272) LZ escape, [272,400) ZRL.
	YAlphabetSize = NumLiteral + NumLZEscape + NumZRL

	// PlainAlphabetSize is literal + ZRL with no LZ-escape block,
	// laid out as [0,256) literal, [256,384) ZRL.
	PlainAlphabetSize = NumLiteral + NumZRL
)

// LZEscapeBase is the first symbol of the LZ-escape block in the Y
// alphabet.
const LZEscapeBase = NumLiteral

// ZRLBase returns the first symbol of the ZRL block for an alphabet that
// does, or does not, carry an LZ-escape block.
func ZRLBase(hasLZEscape bool) int {
	if hasLZEscape {
		return NumLiteral + NumLZEscape
	}
	return NumLiteral
}

// LZ-escape symbols partition match length into NumLZEscape coarse
// categories (§4.5); the exact length within a category, and the match
// distance, are carried as raw extra bits immediately following the
// Huffman codeword — this partitioning is this implementation's own
// choice (the core leaves the exact bit layout to the implementer) and
// is applied identically by the encoder and decoder.
//
// lzLengthBase[i] is the smallest match length the escape symbol
// LZEscapeBase+i represents; lzLengthExtraBits[i] is how many raw bits
// follow to recover the exact length via base + extraBits value.
var lzLengthBase = [NumLZEscape]int{
	2, 3, 4, 5, 6, 7, 8, 9, 10, 12, 16, 24, 40, 72, 136, 264,
}

var lzLengthExtraBits = [NumLZEscape]int{
	0, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8,
}

// MaxLZLength is the longest match length representable by the escape
// table (lzLengthBase[15] + 2^8 - 1).
const MaxLZLength = 264 + 255

// LZLengthSymbol returns the escape symbol index (0..NumLZEscape) and
// extra-bits value for an exact match length in [2, MaxLZLength].
func LZLengthSymbol(length int) (symbol int, extra uint32, extraBits int) {
	for i := NumLZEscape - 1; i >= 0; i-- {
		if length >= lzLengthBase[i] {
			return i, uint32(length - lzLengthBase[i]), lzLengthExtraBits[i]
		}
	}
	return 0, 0, 0
}

// LZLengthFromSymbol inverts LZLengthSymbol.
func LZLengthFromSymbol(symbol int, extra uint32) int {
	return lzLengthBase[symbol] + int(extra)
}

// LZLengthExtraBits returns how many raw extra bits follow the escape
// codeword for this symbol.
func LZLengthExtraBits(symbol int) int {
	return lzLengthExtraBits[symbol]
}

// Match distance is coded as a raw 20-bit value (window size 2^20, §4.5)
// immediately following the length's extra bits, with no Huffman
// modeling — distances in content-generated sprite art are dominated by
// a handful of common row strides, but those strides vary enormously
// across images, so a fixed code buys nothing a raw field doesn't.
const LZDistanceBits = 20

// ZRL run length is coded the same way as LZ length: the symbol index
// within the ZRL block selects a coarse category, raw extra bits refine
// it. Runs of exact zero residuals are extremely common after a good
// filter choice, so finer resolution near the low end pays for itself.
var zrlRunBase = [NumZRL]int{}
var zrlRunExtraBits = [NumZRL]int{}

// maxZRLExtraBits caps the raw extra bits of one ZRL category.
const maxZRLExtraBits = 16

func init() {
	// Categories double in width every two symbols starting from run
	// length 1: widths 1,1,2,2,4,4,8,8,... until the extra-bit count
	// reaches maxZRLExtraBits; every later category keeps that width.
	base := 1
	width := 1
	bits := 0
	sym := 0
	for sym < NumZRL {
		for i := 0; i < 2 && sym < NumZRL; i++ {
			zrlRunBase[sym] = base
			zrlRunExtraBits[sym] = bits
			base += width
			sym++
		}
		if bits < maxZRLExtraBits {
			width *= 2
			bits++
		}
	}
	MaxZRLRun = zrlRunBase[NumZRL-1] + (1<<zrlRunExtraBits[NumZRL-1] - 1)
}

// MaxZRLRun is the longest zero-run representable by the ZRL table; it is
// set by init once the table is filled.
var MaxZRLRun int

// ZRLRunSymbol returns the ZRL-block-relative symbol index and extra-bits
// value for an exact zero-run length in [1, MaxZRLRun].
func ZRLRunSymbol(run int) (symbol int, extra uint32, extraBits int) {
	for i := NumZRL - 1; i >= 0; i-- {
		if run >= zrlRunBase[i] {
			return i, uint32(run - zrlRunBase[i]), zrlRunExtraBits[i]
		}
	}
	return 0, 0, 0
}

// ZRLRunFromSymbol inverts ZRLRunSymbol.
func ZRLRunFromSymbol(symbol int, extra uint32) int {
	return zrlRunBase[symbol] + int(extra)
}

// ZRLRunExtraBits returns how many raw extra bits follow the ZRL
// codeword for this block-relative symbol.
func ZRLRunExtraBits(symbol int) int {
	return zrlRunExtraBits[symbol]
}
