package gcif

import (
	"fmt"
	"io"

	"github.com/siddharths2710/gcif/internal/bitio"
	"github.com/siddharths2710/gcif/internal/chaos"
	"github.com/siddharths2710/gcif/internal/entropy"
	"github.com/siddharths2710/gcif/internal/filter"
	"github.com/siddharths2710/gcif/internal/histcost"
	"github.com/siddharths2710/gcif/internal/lzfind"
	"github.com/siddharths2710/gcif/internal/maskstore"
	"github.com/siddharths2710/gcif/internal/mono"
	"github.com/siddharths2710/gcif/internal/pool"
	"github.com/siddharths2710/gcif/internal/residual"
	"github.com/siddharths2710/gcif/internal/tileplan"
)

// Encoder holds one image, its mask, and its encode knobs, ready to be
// written to a bit-stream (§6's NewEncoder/Write contract).
type Encoder struct {
	img   Image
	mask  Mask
	knobs Knobs
}

// NewEncoder validates its inputs and returns an Encoder ready to Write.
func NewEncoder(img Image, mask Mask, knobs Knobs) (*Encoder, error) {
	if img.Width <= 0 || img.Height <= 0 || len(img.Pix) != img.Width*img.Height*4 {
		return nil, fmt.Errorf("gcif: %w", ErrInputInvalid)
	}
	if mask != nil && (mask.Width() != img.Width || mask.Height() != img.Height) {
		return nil, fmt.Errorf("gcif: mask dimensions do not match image: %w", ErrInputInvalid)
	}
	if !knobs.valid() {
		return nil, fmt.Errorf("gcif: %w", ErrInputInvalid)
	}
	return &Encoder{img: img, mask: mask, knobs: knobs}, nil
}

// Write encodes the image to w as a complete bit-stream (§6 item list).
func (e *Encoder) Write(w io.Writer) error {
	width, height := e.img.Width, e.img.Height
	pix := pixSlice(e.img)
	maskStore := toMaskStore(e.mask, width, height)
	masked := pixelMasked(maskStore, width, height)

	grid, b := e.planGrid(pix, width, height, maskStore)
	activeSF, activeCF := deriveActiveSets(grid)

	sfPlane, cfPlane := buildFilterPlanes(grid)
	tileMasked := tileMaskedFromGrid(grid)
	auxEdge := monoAuxEdge(grid.Tx, grid.Ty)

	finder := lzfind.NewFinder(width * height)
	var matches []lzfind.Match
	if e.knobs.LZEnable {
		finder.Fill(pix, masked)
		matches = filterRowBoundedMatches(finder.Select(), width)
		matches = filterDistanceFits(matches)
		matches = clampLZLength(matches)
		// decodeY rejects a copy whose source lies on a position its Y
		// scan skips, and walkY never reaches a match that starts on one,
		// so matches touching sympal tiles that way are dropped.
		kept := matches[:0]
		for _, m := range matches {
			ok := !tileSympalAt(grid, width, m.Pos)
			for i := 0; ok && i < m.Length; i++ {
				ok = !tileSympalAt(grid, width, m.Pos+i-m.Distance)
			}
			if ok {
				kept = append(kept, m)
			}
		}
		matches = kept
	}
	lzByPos := make(map[int]lzfind.Match, len(matches))
	lzCovered := make([]bool, width*height)
	for _, m := range matches {
		lzByPos[m.Pos] = m
		for i := 0; i < m.Length; i++ {
			lzCovered[m.Pos+i] = true
		}
	}

	// yRes/uRes/vRes are only ever read at their own index and only once
	// skip() has already excluded masked/sympal/LZ-covered positions, so
	// pooling them is safe even though Get does not zero the buffer.
	// alphaPlane, by contrast, feeds mono.EncodePlane, which uses
	// neighboring plane bytes (including masked ones) as prediction
	// context; it must stay zero at every masked position to match the
	// decoder's own zero-valued, never-written masked plane bytes, so it
	// keeps the zero-initializing make() below instead of pool.Get.
	yRes := pool.Get(width * height)
	uRes := pool.Get(width * height)
	vRes := pool.Get(width * height)
	defer pool.Put(yRes)
	defer pool.Put(uRes)
	defer pool.Put(vRes)
	fillChannelResiduals(pix, width, height, grid, masked, lzCovered, yRes, uRes, vRes)
	alphaPlane := make([]byte, width*height)
	for i, p := range pix {
		if masked[i] {
			continue
		}
		alphaPlane[i] = residual.AlphaForward(p[3])
	}

	bw := bitio.NewWriter(width * height)
	bw.WriteBits(uint32(width), 16)
	bw.WriteBits(uint32(height), 16)
	bw.WriteBits(uint32(e.knobs.MaxBits-b), bitsForActive(e.knobs.MinBits, e.knobs.MaxBits))

	writeIDSubset(bw, activeSF, 5, 7)
	writeIDSubset(bw, activeCF, 4, 8)

	if err := mono.EncodePlane(bw, sfPlane, grid.Tx, grid.Ty, auxEdge, tileMasked, auxMonoSF, e.knobs.SympalThresh); err != nil {
		return fmt.Errorf("gcif: encoding filter-selection map: %w", err)
	}
	for _, t := range grid.Tiles {
		if t.Masked || !t.Sympal {
			continue
		}
		bw.WriteBits(uint32(t.SympalColor[0])<<8|uint32(t.SympalColor[1]), 16)
		bw.WriteBits(uint32(t.SympalColor[2])<<8|uint32(t.SympalColor[3]), 16)
	}
	if err := mono.EncodePlane(bw, cfPlane, grid.Tx, grid.Ty, auxEdge, tileMasked, auxMonoSF, e.knobs.SympalThresh); err != nil {
		return fmt.Errorf("gcif: encoding color-selection map: %w", err)
	}
	if err := mono.EncodePlane(bw, alphaPlane, width, height, grid.Edge, masked, fullSF, e.knobs.SympalThresh); err != nil {
		return fmt.Errorf("gcif: encoding alpha plane: %w", err)
	}

	skipUV := func(pos int) bool { return masked[pos] || tileSympalAt(grid, width, pos) || lzCovered[pos] }
	skipY := func(pos int) bool { return masked[pos] || tileSympalAt(grid, width, pos) }
	lzAt := func(pos int) (lzfind.Match, bool) { m, ok := lzByPos[pos]; return m, ok }

	k, hy, hu, hv := chooseSharedK(width, height, skipY, skipUV, lzAt, yRes, uRes, vRes)
	bw.WriteBits(uint32(k-1), 4)

	yBank, err := hy[k-1].Build()
	if err != nil {
		return fmt.Errorf("gcif: %w: %v", ErrInternalBudgetExceeded, err)
	}
	uBank, err := hu[k-1].Build()
	if err != nil {
		return fmt.Errorf("gcif: %w: %v", ErrInternalBudgetExceeded, err)
	}
	vBank, err := hv[k-1].Build()
	if err != nil {
		return fmt.Errorf("gcif: %w: %v", ErrInternalBudgetExceeded, err)
	}
	entropy.WriteBank(bw, yBank)
	entropy.WriteBank(bw, uBank)
	entropy.WriteBank(bw, vBank)

	windowY := chaos.NewWindow(width)
	walkY(width, height, windowY, k, skipY, lzAt, func(pos int) byte { return yRes[pos] }, writeSink{w: bw, bank: yBank})
	windowU := chaos.NewWindow(width)
	walkPlain(width, height, windowU, k, skipUV, func(pos int) byte { return uRes[pos] }, writeSink{w: bw, bank: uBank})
	windowV := chaos.NewWindow(width)
	walkPlain(width, height, windowV, k, skipUV, func(pos int) byte { return vRes[pos] }, writeSink{w: bw, bank: vBank})

	_, err = w.Write(bw.Finish())
	return err
}

// planGrid searches [MinBits,MaxBits] for the tile edge that minimizes
// the estimated Y/U/V residual entropy (§4.2's "pick the edge minimizing
// total entropy"), returning the winning grid and its B.
func (e *Encoder) planGrid(pix [][4]byte, width, height int, mask *maskstore.Store) (*tileplan.Grid, int) {
	cfg := tileplan.Config{
		ActiveSF:     fullSF,
		ActiveCF:     fullCF(),
		FilterThresh: e.knobs.FilterThresh,
		SympalThresh: e.knobs.SympalThresh,
	}
	var bestGrid *tileplan.Grid
	bestB := e.knobs.MinBits
	bestCost := -1.0
	for b := e.knobs.MinBits; b <= e.knobs.MaxBits; b++ {
		grid := tileplan.Plan(pix, width, height, mask, b, cfg)
		cost := estimateGridCost(grid, pix, width, height)
		if bestCost < 0 || cost < bestCost {
			bestCost, bestGrid, bestB = cost, grid, b
		}
	}
	return bestGrid, bestB
}

func fullCF() []int {
	ids := make([]int, filter.NumColorFilters)
	for i := range ids {
		ids[i] = i
	}
	return ids
}

func estimateGridCost(grid *tileplan.Grid, pix [][4]byte, width, height int) float64 {
	hist := [3]*histcost.Histogram{histcost.New(256), histcost.New(256), histcost.New(256)}
	for ty := 0; ty < grid.Ty; ty++ {
		for tx := 0; tx < grid.Tx; tx++ {
			t := grid.Tiles[ty*grid.Tx+tx]
			if t.Masked || t.Sympal {
				continue
			}
			x0, y0 := tx*grid.Edge, ty*grid.Edge
			for y := y0; y < y0+grid.Edge && y < height; y++ {
				for x := x0; x < x0+grid.Edge && x < width; x++ {
					n := residual.Gather(pix, width, height, x, y)
					yuv := residual.Forward(pix, width, height, x, y, t.SF, t.CF, n)
					hist[0].AddSingle(int(yuv[0]))
					hist[1].AddSingle(int(yuv[1]))
					hist[2].AddSingle(int(yuv[2]))
				}
			}
		}
	}
	return hist[0].Cost() + hist[1].Cost() + hist[2].Cost()
}

// deriveActiveSets collects the distinct SF and CF ids actually used by
// any live (non-masked, non-sympal) tile, the §6 item 4/5 subsets.
func deriveActiveSets(grid *tileplan.Grid) (sf, cf []int) {
	seenSF := map[int]bool{}
	seenCF := map[int]bool{}
	for _, t := range grid.Tiles {
		if t.Masked || t.Sympal {
			continue
		}
		seenSF[t.SF] = true
		seenCF[t.CF] = true
	}
	if len(seenSF) == 0 {
		seenSF[filter.CanonicalSF[0]] = true
	}
	if len(seenCF) == 0 {
		seenCF[12] = true
	}
	for id := range seenSF {
		sf = append(sf, id)
	}
	for id := range seenCF {
		cf = append(cf, id)
	}
	sortInts(sf)
	sortInts(cf)
	return sf, cf
}

func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j] < a[j-1]; j-- {
			a[j], a[j-1] = a[j-1], a[j]
		}
	}
}

func buildFilterPlanes(grid *tileplan.Grid) (sfPlane, cfPlane []byte) {
	sfPlane = make([]byte, len(grid.Tiles))
	cfPlane = make([]byte, len(grid.Tiles))
	for i, t := range grid.Tiles {
		if t.Masked {
			continue
		}
		if t.Sympal {
			sfPlane[i] = byte(sympalSentinel)
			continue
		}
		sfPlane[i] = byte(t.SF)
		cfPlane[i] = byte(t.CF)
	}
	return sfPlane, cfPlane
}

func writeIDSubset(w *bitio.Writer, ids []int, countBits, idBits int) {
	w.WriteBits(uint32(len(ids)-1), countBits)
	for _, id := range ids {
		w.WriteBits(uint32(id), idBits)
	}
}

func tileSympalAt(grid *tileplan.Grid, width, pos int) bool {
	x, y := pos%width, pos/width
	return grid.At(x, y).Sympal
}

// fillChannelResiduals runs the residual engine over every live,
// non-LZ-covered pixel, writing into the caller's y/u/v buffers; other
// positions are left untouched and never read by the scan functions,
// since skip() excludes them before any resAt lookup.
func fillChannelResiduals(pix [][4]byte, width, height int, grid *tileplan.Grid, masked, lzCovered []bool, y, u, v []byte) {
	for py := 0; py < height; py++ {
		for px := 0; px < width; px++ {
			pos := py*width + px
			if masked[pos] || lzCovered[pos] {
				continue
			}
			t := grid.At(px, py)
			if t.Sympal {
				continue
			}
			n := residual.Gather(pix, width, height, px, py)
			yuv := residual.Forward(pix, width, height, px, py, t.SF, t.CF, n)
			y[pos], u[pos], v[pos] = yuv[0], yuv[1], yuv[2]
		}
	}
}

// filterDistanceFits drops matches whose distance would not fit the
// 20-bit raw distance field (lzfind's window search can, at its extreme
// edge, offer a match exactly WindowSize pixels back).
func filterDistanceFits(matches []lzfind.Match) []lzfind.Match {
	const maxDist = (1 << entropy.LZDistanceBits) - 1
	out := make([]lzfind.Match, 0, len(matches))
	for _, m := range matches {
		if m.Distance <= maxDist {
			out = append(out, m)
		}
	}
	return out
}

// clampLZLength caps each match's length to entropy.MaxLZLength, the
// longest length the LZ escape table's extra-bits field can represent.
// lzfind bounds matches by its own, larger MaxMatch (4096) and by row
// width, neither of which accounts for the escape table's ceiling, so a
// longer match reaching the encoder untouched would have its extra-bits
// value silently wrap when written. A copy of the same source at a
// shorter length is still a correct match; the trimmed tail is simply
// left for the next scan position to pick up as a literal or a fresh
// match.
func clampLZLength(matches []lzfind.Match) []lzfind.Match {
	for i := range matches {
		if matches[i].Length > entropy.MaxLZLength {
			matches[i].Length = entropy.MaxLZLength
		}
	}
	return matches
}

// chooseSharedK simulates every K in [1,chaos.MaxK] jointly across
// Y, U, and V and returns the cheapest, together with every candidate's
// Histograms (§6 item 6: "one shared K for Y, U, and V").
func chooseSharedK(width, height int, skipY, skipUV func(pos int) bool, lzAt func(pos int) (lzfind.Match, bool), yRes, uRes, vRes []byte) (int, []*entropy.Histograms, []*entropy.Histograms, []*entropy.Histograms) {
	hy := make([]*entropy.Histograms, chaos.MaxK)
	hu := make([]*entropy.Histograms, chaos.MaxK)
	hv := make([]*entropy.Histograms, chaos.MaxK)
	costs := make([]float64, chaos.MaxK)
	for k := 1; k <= chaos.MaxK; k++ {
		hy[k-1] = entropy.NewHistograms(k, true)
		hu[k-1] = entropy.NewHistograms(k, false)
		hv[k-1] = entropy.NewHistograms(k, false)
		walkY(width, height, chaos.NewWindow(width), k, skipY, lzAt, func(pos int) byte { return yRes[pos] }, countSink{h: hy[k-1]})
		walkPlain(width, height, chaos.NewWindow(width), k, skipUV, func(pos int) byte { return uRes[pos] }, countSink{h: hu[k-1]})
		walkPlain(width, height, chaos.NewWindow(width), k, skipUV, func(pos int) byte { return vRes[pos] }, countSink{h: hv[k-1]})
		costs[k-1] = hy[k-1].Cost() + hu[k-1].Cost() + hv[k-1].Cost() + 3*float64(k)*entropy.TableTransmissionCost(entropy.PlainAlphabetSize)
	}
	best := 0
	for i := 1; i < len(costs); i++ {
		if costs[i] < costs[best] {
			best = i
		}
	}
	return best + 1, hy, hu, hv
}
