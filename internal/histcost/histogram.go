// Package histcost is the "running histogram model" §4.2 step 3 names for
// the tile planner's refined SF×CF selection: addSingle/subtract
// symmetric, fed into a Shannon entropy estimate used to score candidate
// filter pairs without actually building a Huffman table for each one.
//
// Grounded on internal/lossless/encode_histogram.go's Histogram type
// (population []uint32, AddSingle, BitsEntropy/fastSLog2). This package
// keeps the sum*log2(sum) - Σv*log2(v) entropy core of BitsEntropy but
// drops its empirical Huffman-overhead refinement terms (bitsEntropyRefine,
// finalHuffmanCost) — those model per-table transmission cost, which the
// tile planner's scoring pass (run once per tile per SF×CF candidate,
// §4.2 step 3) cannot afford without the teacher's heavier machinery, and
// adds Subtract, a new operation with no teacher counterpart, needed by
// §4.2 step 4's revisit pass ("subtracts a tile's current contribution
// from the global histogram before scoring"). Subtract is safe precisely
// because it mirrors AddSingle term for term on the same population array.
package histcost

import "math"

// Histogram is a per-symbol occurrence count array plus its precomputed
// entropy, invalidated lazily on every mutation.
type Histogram struct {
	population []uint32
	sum        uint32
	dirty      bool
	cached     float64
}

// New allocates a Histogram over an alphabet of the given size.
func New(alphabetSize int) *Histogram {
	return &Histogram{population: make([]uint32, alphabetSize)}
}

// Reset zeroes every count.
func (h *Histogram) Reset() {
	for i := range h.population {
		h.population[i] = 0
	}
	h.sum = 0
	h.dirty = true
}

// AddSingle records one occurrence of symbol.
func (h *Histogram) AddSingle(symbol int) {
	h.population[symbol]++
	h.sum++
	h.dirty = true
}

// Subtract removes one occurrence of symbol, the inverse of AddSingle. The
// caller must never subtract a symbol it did not previously add — the
// count would go negative and wrap, silently corrupting every later cost
// estimate.
func (h *Histogram) Subtract(symbol int) {
	h.population[symbol]--
	h.sum--
	h.dirty = true
}

// Population returns the raw occurrence counts.
func (h *Histogram) Population() []uint32 {
	return h.population
}

// Cost returns the estimated number of bits required to Huffman-code the
// current population, via Shannon entropy: sum*log2(sum) - Σv*log2(v).
func (h *Histogram) Cost() float64 {
	if !h.dirty {
		return h.cached
	}
	cost := fastSLog2(h.sum)
	for _, v := range h.population {
		if v != 0 {
			cost -= fastSLog2(v)
		}
	}
	if cost < 0 {
		cost = 0
	}
	h.cached = cost
	h.dirty = false
	return cost
}

// AddEval returns the cost of h as if sym had already been added, without
// mutating h — used by the tile planner to score a candidate before
// committing to it.
func (h *Histogram) AddEval(symbol int) float64 {
	h.AddSingle(symbol)
	c := h.Cost()
	h.Subtract(symbol)
	return c
}

const fastSLog2LUTSize = 4096

var fastSLog2LUT [fastSLog2LUTSize]float64

func init() {
	for i := 1; i < fastSLog2LUTSize; i++ {
		fv := float64(i)
		fastSLog2LUT[i] = fv * math.Log2(fv)
	}
}

func fastSLog2(v uint32) float64 {
	if v == 0 {
		return 0
	}
	if v < fastSLog2LUTSize {
		return fastSLog2LUT[v]
	}
	fv := float64(v)
	return fv * math.Log2(fv)
}
