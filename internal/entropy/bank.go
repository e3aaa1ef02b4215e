package entropy

import (
	"fmt"

	"github.com/siddharths2710/gcif/internal/bitio"
	"github.com/siddharths2710/gcif/internal/histcost"
)

// Table pairs one channel's one chaos bin's encode tree with its decode
// table. Encoding uses Tree directly (codeword + length per symbol);
// decoding uses the two-level Decode table built from the same code
// lengths.
type Table struct {
	AlphabetSize int
	Tree         *Tree
	Decode       []Code
}

// BuildTable constructs both encode and decode representations from a
// symbol histogram.
func BuildTable(histogram []uint32) (*Table, error) {
	tree := BuildTree(histogram, MaxCodeLength)
	lengths := make([]int, len(tree.CodeLengths))
	for i, l := range tree.CodeLengths {
		lengths[i] = int(l)
	}
	decode, err := BuildDecodeTable(lengths)
	if err != nil {
		return nil, fmt.Errorf("entropy: building decode table: %w", err)
	}
	return &Table{AlphabetSize: len(histogram), Tree: tree, Decode: decode}, nil
}

// Encode writes symbol's codeword to w.
func (t *Table) Encode(w *bitio.Writer, symbol int) {
	w.WriteBits(uint32(t.Tree.Codes[symbol]), int(t.Tree.CodeLengths[symbol]))
}

// Decode1 reads one symbol from r using this table.
func (t *Table) Decode1(r *bitio.Reader) (int, error) {
	value, bitsUsed := ReadSymbol(t.Decode, r.PrefetchBits())
	if bitsUsed < 0 {
		return 0, ErrInvalidTree
	}
	r.SetBitPos(r.BitPos() + bitsUsed)
	return int(value), nil
}

// Bank is one complete set of per-chaos-bin tables for a single channel
// (§4.4: "encoder designs K tables per channel, one per chaos bin").
type Bank struct {
	K            int
	HasLZEscape  bool
	AlphabetSize int
	Tables       []*Table // len == K
}

// Histograms is a K-sized array of running symbol counts, one per chaos
// bin, used by the "choose K" driver to score candidate values of K
// before committing to a Bank.
type Histograms struct {
	hasLZEscape bool
	perBin      []*histcost.Histogram
}

// NewHistograms allocates K empty per-bin histograms.
func NewHistograms(k int, hasLZEscape bool) *Histograms {
	size := PlainAlphabetSize
	if hasLZEscape {
		size = YAlphabetSize
	}
	perBin := make([]*histcost.Histogram, k)
	for i := range perBin {
		perBin[i] = histcost.New(size)
	}
	return &Histograms{hasLZEscape: hasLZEscape, perBin: perBin}
}

// Add records one symbol occurrence in chaos bin `bin`.
func (h *Histograms) Add(bin, symbol int) {
	h.perBin[bin].AddSingle(symbol)
}

// Cost returns the combined Shannon-entropy estimate across every bin's
// histogram, used to compare candidate K values cheaply before paying
// for an actual canonical Huffman tree build (§4.4: "try K in [1..8],
// minimize total encoded size including table-transmission cost").
func (h *Histograms) Cost() float64 {
	var total float64
	for _, pop := range h.perBin {
		total += pop.Cost()
	}
	return total
}

// Build constructs the real canonical-Huffman Bank from accumulated
// histograms, one Table per chaos bin. A bin that received no symbols
// gets a table coding symbol 0 alone, so it can still be transmitted.
func (h *Histograms) Build() (*Bank, error) {
	size := PlainAlphabetSize
	if h.hasLZEscape {
		size = YAlphabetSize
	}
	tables := make([]*Table, len(h.perBin))
	for i, pop := range h.perBin {
		counts := pop.Population()
		empty := true
		for _, c := range counts {
			if c != 0 {
				empty = false
				break
			}
		}
		if empty {
			counts = make([]uint32, len(counts))
			counts[0] = 1
		}
		t, err := BuildTable(counts)
		if err != nil {
			return nil, fmt.Errorf("entropy: building table for bin %d: %w", i, err)
		}
		tables[i] = t
	}
	return &Bank{K: len(tables), HasLZEscape: h.hasLZEscape, AlphabetSize: size, Tables: tables}, nil
}

// TableTransmissionCost estimates the bit cost of writing this table's
// code-length descriptor (see WriteLengths), used by the "choose K"
// driver to penalize larger K values against their better modeling.
func TableTransmissionCost(alphabetSize int) float64 {
	return float64(alphabetSize) * 4
}

// WriteLengths writes a table's code lengths as one raw 4-bit field per
// alphabet symbol (lengths are capped at MaxCodeLength=15, which fits
// exactly). This is a deliberate simplification: it forgoes a
// meta-Huffman-coded, run-length-compressed length descriptor in favor
// of a flat field, which costs more bits per table but is far simpler to
// get bit-exact across encoder and decoder, and alphabets here are small
// enough (<=400 symbols) that the difference is a rounding error against
// the pixel data itself.
func WriteLengths(w *bitio.Writer, tree *Tree) {
	for _, l := range tree.CodeLengths {
		w.WriteBits(uint32(l), 4)
	}
}

// ReadLengths is the inverse of WriteLengths.
func ReadLengths(r *bitio.Reader, alphabetSize int) []int {
	lengths := make([]int, alphabetSize)
	for i := range lengths {
		lengths[i] = int(r.ReadBits(4))
	}
	return lengths
}

// WriteBank serializes every table in a bank via WriteLengths, in bin
// order.
func WriteBank(w *bitio.Writer, bank *Bank) {
	for _, t := range bank.Tables {
		WriteLengths(w, t.Tree)
	}
}

// ReadBank deserializes a bank of K tables over the given alphabet size.
func ReadBank(r *bitio.Reader, k, alphabetSize int, hasLZEscape bool) (*Bank, error) {
	tables := make([]*Table, k)
	for i := 0; i < k; i++ {
		lengths := ReadLengths(r, alphabetSize)
		decode, err := BuildDecodeTable(lengths)
		if err != nil {
			return nil, fmt.Errorf("entropy: reading table for bin %d: %w", i, err)
		}
		tree := &Tree{NumSymbols: alphabetSize, CodeLengths: make([]uint8, alphabetSize), Codes: make([]uint16, alphabetSize)}
		for s, l := range lengths {
			tree.CodeLengths[s] = uint8(l)
		}
		generateCanonicalCodes(tree)
		tables[i] = &Table{AlphabetSize: alphabetSize, Tree: tree, Decode: decode}
	}
	return &Bank{K: k, HasLZEscape: hasLZEscape, AlphabetSize: alphabetSize, Tables: tables}, nil
}

// ChooseK tries every K in [1, maxK] against pre-binned per-K histogram
// sets supplied by the caller (the chaos model, not this package, knows
// how to re-bin residuals for a different K) and returns the index of
// the K minimizing total cost including table-transmission overhead.
func ChooseK(candidates []*Histograms) int {
	best := 0
	bestCost := candidates[0].Cost() + float64(len(candidates[0].perBin))*TableTransmissionCost(candidates[0].tableAlphabetSize())
	for i := 1; i < len(candidates); i++ {
		c := candidates[i].Cost() + float64(len(candidates[i].perBin))*TableTransmissionCost(candidates[i].tableAlphabetSize())
		if c < bestCost {
			bestCost = c
			best = i
		}
	}
	return best
}

func (h *Histograms) tableAlphabetSize() int {
	if h.hasLZEscape {
		return YAlphabetSize
	}
	return PlainAlphabetSize
}
