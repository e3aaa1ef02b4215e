// Package mono is the recursive monochrome sub-engine of §4.6: a
// self-contained instance that compresses one 2D byte plane under an
// external mask, reused for the alpha channel and for encoding the
// filter-selection maps (SF-index and CF-index tile grids) the tile
// planner itself produces. Those filter-id planes are small enough that
// the engine may recursively invoke another instance of itself on its
// own tile grid (Design Note 2: build the child only after the parent's
// design passes complete).
//
// Grounded on internal/tileplan for the tile-grid/shortlist/revisit
// shape (reused here over a single channel instead of three), on
// internal/filter's spatial catalog directly — §4.6 step 3 says "pick a
// subset of the ~32 monochrome predictors", which is exactly the same
// catalog internal/filter already holds, not a second one — and on
// internal/chaos + internal/entropy for the context model and static
// Huffman bank, identical to the main engine's per spec.md's "same
// mechanism is reused by the monochrome sub-engine over its single
// channel" (§4.4).
package mono

import (
	"fmt"
	"sort"

	"github.com/siddharths2710/gcif/internal/chaos"
	"github.com/siddharths2710/gcif/internal/entropy"
	"github.com/siddharths2710/gcif/internal/filter"
	"github.com/siddharths2710/gcif/internal/histcost"
)

// RecursiveThresh is the minimum tile count before the engine considers
// recursing onto its own filter-id plane (§4.6 step 8).
const RecursiveThresh = 64

// RowFilter identifies one of the four simple neighbor-subtract filters
// applied to a row of the filter-id plane before it is itself encoded
// (§4.6 step 7).
type RowFilter int

const (
	RFNoop RowFilter = iota
	RFLeft
	RFUp
	RFUpLeft
)

func predictByte(sf int, l, t, tl, tr byte) byte {
	n := filter.Neighbor{
		L:  [3]byte{l, l, l},
		T:  [3]byte{t, t, t},
		TL: [3]byte{tl, tl, tl},
		TR: [3]byte{tr, tr, tr},
	}
	return filter.Spatial[sf](n)[0]
}

// Tile is one monochrome tile's assignment.
type Tile struct {
	SF          int
	Masked      bool
	Sympal      bool
	SympalValue byte
}

// Grid is the monochrome engine's tile layout, structurally identical
// to tileplan.Grid minus the CF axis (there is no color transform for a
// single channel).
type Grid struct {
	Edge   int
	Tx, Ty int
	Tiles  []Tile
}

func (g *Grid) at(tx, ty int) *Tile { return &g.Tiles[ty*g.Tx+tx] }

// Design is the complete compression plan produced by one invocation of
// the pipeline: a tile grid, the active SF subset it draws from, a
// chosen chaos level, and either per-tile-row filters for the filter-id
// plane or a recursive child Design that replaces them.
type Design struct {
	Width, Height int
	Grid          *Grid
	ActiveSF      []int
	K             int
	RowFilters    []RowFilter // one per tile row; nil if Child is used instead
	Child         *Design
	ChildPlane    []byte // the filter-id plane the child engine compresses, kept for encode/decode
}

// maxSymbol is the number of literal values this engine's alphabet
// holds: 256, one per byte value, for every plane it encodes (8-bit
// channels and filter-id planes alike).
const maxSymbol = 256

// Plan runs the full 9-step pipeline (§4.6) over a byte plane.
func Plan(plane []byte, width, height int, masked []bool, edge int, candidateSF []int, sympalThresh float64) *Design {
	tx := (width + edge - 1) / edge
	ty := (height + edge - 1) / edge
	grid := &Grid{Edge: edge, Tx: tx, Ty: ty, Tiles: make([]Tile, tx*ty)}

	maskTiles(grid, masked, width, height)
	activeSF := designFilters(grid, plane, width, height, candidateSF)
	designPalette(grid, plane, width, height, sympalThresh)
	designTiles(grid, plane, width, height, activeSF)

	residuals := computeResiduals(grid, plane, width, height, activeSF)

	filterPlane := make([]byte, tx*ty)
	for i, t := range grid.Tiles {
		filterPlane[i] = byte(t.SF)
	}

	rowFilters, rowCost := designRowFilters(filterPlane, tx, ty)

	design := &Design{
		Width: width, Height: height, Grid: grid, ActiveSF: activeSF,
		RowFilters: rowFilters, ChildPlane: filterPlane,
	}

	if tx*ty >= RecursiveThresh {
		childMasked := make([]bool, tx*ty)
		child := Plan(filterPlane, tx, ty, childMasked, smallerEdge(tx, ty), candidateSF, sympalThresh)
		childCost := estimateCost(child, filterPlane)
		if childCost < rowCost {
			design.Child = child
			design.RowFilters = nil
		}
	}

	design.K = chooseK(residuals)
	return design
}

func smallerEdge(tx, ty int) int {
	e := 4
	for e*2 < tx && e*2 < ty && e < 32 {
		e *= 2
	}
	return e
}

func maskTiles(grid *Grid, masked []bool, width, height int) {
	if masked == nil {
		return
	}
	for ty := 0; ty < grid.Ty; ty++ {
		for tx := 0; tx < grid.Tx; tx++ {
			full := true
			for y := ty * grid.Edge; y < (ty+1)*grid.Edge && y < height && full; y++ {
				for x := tx * grid.Edge; x < (tx+1)*grid.Edge && x < width; x++ {
					if !masked[y*width+x] {
						full = false
						break
					}
				}
			}
			if full {
				grid.at(tx, ty).Masked = true
			}
		}
	}
}

// designFilters votes for the best-performing SF ids across live tiles
// and returns every id that received a vote, sorted by id (every
// candidate gets a nonzero vote on any live tile, so with at least one
// live tile this is the whole candidate list), using the same award-weighted scheme
// tileplan uses for the main engine (§4.2 step 2, reused per §4.6
// step 3).
func designFilters(grid *Grid, plane []byte, width, height int, candidates []int) []int {
	votes := make(map[int]float64)
	for ty := 0; ty < grid.Ty; ty++ {
		for tx := 0; tx < grid.Tx; tx++ {
			if grid.at(tx, ty).Masked {
				continue
			}
			type scored struct {
				sf   int
				cost int
			}
			var ranked []scored
			for _, sf := range candidates {
				ranked = append(ranked, scored{sf, tileCost(plane, width, height, tx*grid.Edge, ty*grid.Edge, grid.Edge, sf)})
			}
			for i := 1; i < len(ranked); i++ {
				for j := i; j > 0 && ranked[j].cost < ranked[j-1].cost; j-- {
					ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
				}
			}
			weight := 1.0
			for _, s := range ranked {
				votes[s.sf] += weight
				weight /= 2
			}
		}
	}
	var out []int
	for sf := range votes {
		out = append(out, sf)
	}
	if len(out) == 0 {
		return candidates
	}
	sort.Ints(out)
	return out
}

func tileCost(plane []byte, width, height, x0, y0, edge, sf int) int {
	total := 0
	for y := y0; y < y0+edge && y < height; y++ {
		for x := x0; x < x0+edge && x < width; x++ {
			l, t, tl, tr := neighborBytes(plane, width, height, x, y)
			pred := predictByte(sf, l, t, tl, tr)
			r := plane[y*width+x] - pred
			total += int(chaos.Score(r))
		}
	}
	return total
}

func neighborBytes(plane []byte, width, height, x, y int) (l, t, tl, tr byte) {
	get := func(nx, ny int) byte {
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
			return 0
		}
		return plane[ny*width+nx]
	}
	return get(x-1, y), get(x, y-1), get(x-1, y-1), get(x+1, y-1)
}

func designPalette(grid *Grid, plane []byte, width, height int, sympalThresh float64) {
	counts := make(map[byte]int)
	type candidate struct {
		tx, ty int
		value  byte
	}
	var candidates []candidate
	for ty := 0; ty < grid.Ty; ty++ {
		for tx := 0; tx < grid.Tx; tx++ {
			if grid.at(tx, ty).Masked {
				continue
			}
			v, ok := uniformTile(plane, width, height, tx*grid.Edge, ty*grid.Edge, grid.Edge)
			if ok {
				counts[v]++
				candidates = append(candidates, candidate{tx, ty, v})
			}
		}
	}
	threshold := sympalThresh * float64(grid.Tx*grid.Ty)
	for _, c := range candidates {
		if float64(counts[c.value]) >= threshold {
			t := grid.at(c.tx, c.ty)
			t.Sympal = true
			t.SympalValue = c.value
		}
	}
}

func uniformTile(plane []byte, width, height, x0, y0, edge int) (byte, bool) {
	seen := false
	var first byte
	for y := y0; y < y0+edge && y < height; y++ {
		for x := x0; x < x0+edge && x < width; x++ {
			v := plane[y*width+x]
			if !seen {
				first, seen = v, true
				continue
			}
			if v != first {
				return 0, false
			}
		}
	}
	return first, seen
}

// designTiles performs per-tile best-filter selection with the same
// revisit loop tileplan uses, specialized to one channel and no color
// axis.
func designTiles(grid *Grid, plane []byte, width, height int, activeSF []int) {
	hist := histcost.New(maxSymbol)

	assign := func(tx, ty int, revisit bool) {
		t := grid.at(tx, ty)
		if t.Masked || t.Sympal {
			return
		}
		x0, y0 := tx*grid.Edge, ty*grid.Edge
		if revisit {
			forEachPixel(width, height, x0, y0, grid.Edge, func(x, y int) {
				l, tp, tl, tr := neighborBytes(plane, width, height, x, y)
				pred := predictByte(t.SF, l, tp, tl, tr)
				hist.Subtract(int(plane[y*width+x] - pred))
			})
		}
		bestSF := activeSF[0]
		bestCost := -1.0
		for _, sf := range activeSF {
			var residuals []byte
			forEachPixel(width, height, x0, y0, grid.Edge, func(x, y int) {
				l, tp, tl, tr := neighborBytes(plane, width, height, x, y)
				pred := predictByte(sf, l, tp, tl, tr)
				residuals = append(residuals, plane[y*width+x]-pred)
			})
			for _, r := range residuals {
				hist.AddSingle(int(r))
			}
			cost := hist.Cost()
			for _, r := range residuals {
				hist.Subtract(int(r))
			}
			if bestCost < 0 || cost < bestCost {
				bestCost, bestSF = cost, sf
			}
		}
		t.SF = bestSF
		forEachPixel(width, height, x0, y0, grid.Edge, func(x, y int) {
			l, tp, tl, tr := neighborBytes(plane, width, height, x, y)
			pred := predictByte(bestSF, l, tp, tl, tr)
			hist.AddSingle(int(plane[y*width+x] - pred))
		})
	}

	for ty := 0; ty < grid.Ty; ty++ {
		for tx := 0; tx < grid.Tx; tx++ {
			assign(tx, ty, false)
		}
	}
	const maxPasses = 4
	for pass := 0; pass < maxPasses; pass++ {
		for ty := 0; ty < grid.Ty; ty++ {
			for tx := 0; tx < grid.Tx; tx++ {
				assign(tx, ty, true)
			}
		}
	}
}

func forEachPixel(width, height, x0, y0, edge int, fn func(x, y int)) {
	for y := y0; y < y0+edge && y < height; y++ {
		for x := x0; x < x0+edge && x < width; x++ {
			fn(x, y)
		}
	}
}

// computeResiduals stores each live pixel's residual mod 256 (§4.6
// step 6: "residuals mod num_syms"); masked and sympal pixels are
// skipped (sympal residuals are always exactly zero by construction of
// designPalette's uniformity check, so they need not be stored).
func computeResiduals(grid *Grid, plane []byte, width, height int, activeSF []int) []byte {
	residuals := make([]byte, 0, width*height)
	for ty := 0; ty < grid.Ty; ty++ {
		for tx := 0; tx < grid.Tx; tx++ {
			t := grid.at(tx, ty)
			if t.Masked || t.Sympal {
				continue
			}
			forEachPixel(width, height, tx*grid.Edge, ty*grid.Edge, grid.Edge, func(x, y int) {
				l, tp, tl, tr := neighborBytes(plane, width, height, x, y)
				pred := predictByte(t.SF, l, tp, tl, tr)
				residuals = append(residuals, plane[y*width+x]-pred)
			})
		}
	}
	return residuals
}

// designRowFilters picks, per tile row of the filter-id plane, whichever
// of {NOOP, left, up, up-left} minimizes the row's residual magnitude
// sum (§4.6 step 7), and returns the chosen filters plus the plane's
// total estimated cost under them.
func designRowFilters(filterPlane []byte, tx, ty int) ([]RowFilter, float64) {
	rowFilters := make([]RowFilter, ty)
	hist := histcost.New(maxSymbol)
	for row := 0; row < ty; row++ {
		bestRF := RFNoop
		bestCost := -1.0
		var bestResiduals []byte
		for _, rf := range []RowFilter{RFNoop, RFLeft, RFUp, RFUpLeft} {
			residuals := applyRowFilter(filterPlane, tx, ty, row, rf)
			for _, r := range residuals {
				hist.AddSingle(int(r))
			}
			cost := hist.Cost()
			for _, r := range residuals {
				hist.Subtract(int(r))
			}
			if bestCost < 0 || cost < bestCost {
				bestCost, bestRF, bestResiduals = cost, rf, residuals
			}
		}
		rowFilters[row] = bestRF
		for _, r := range bestResiduals {
			hist.AddSingle(int(r))
		}
	}
	return rowFilters, hist.Cost()
}

func applyRowFilter(filterPlane []byte, tx, ty, row int, rf RowFilter) []byte {
	out := make([]byte, tx)
	for col := 0; col < tx; col++ {
		v := filterPlane[row*tx+col]
		var pred byte
		switch rf {
		case RFLeft:
			if col > 0 {
				pred = filterPlane[row*tx+col-1]
			}
		case RFUp:
			if row > 0 {
				pred = filterPlane[(row-1)*tx+col]
			}
		case RFUpLeft:
			if row > 0 && col > 0 {
				pred = filterPlane[(row-1)*tx+col-1]
			}
		}
		out[col] = v - pred
	}
	return out
}

// estimateCost returns the Shannon-entropy cost of compressing plane
// with design's own filter choices, used to compare the recursive child
// option against the row-filter scheme (§4.6 step 8).
func estimateCost(design *Design, plane []byte) float64 {
	residuals := computeResiduals(design.Grid, plane, design.Width, design.Height, design.ActiveSF)
	hist := histcost.New(maxSymbol)
	for _, r := range residuals {
		hist.AddSingle(int(r))
	}
	return hist.Cost()
}

// chooseK tries every K in [1, chaos.MaxK] against the residual
// stream and returns the cheapest (§4.4, §4.6 step 9). The residual
// stream here is computeResiduals's tile-major order, a proxy good
// enough for comparing candidate K values; the codec driver's actual
// bitstream pass re-derives chaos bins in true raster order when it
// encodes, since decode causality depends on row/column adjacency, not
// on whatever order the design pass happened to visit tiles in.
func chooseK(residuals []byte) int {
	if len(residuals) == 0 {
		return 1
	}
	var candidates []*entropy.Histograms
	for k := 1; k <= chaos.MaxK; k++ {
		h := entropy.NewHistograms(k, false)
		window := chaos.NewWindow(len(residuals))
		window.StartRow()
		for i, r := range residuals {
			score := chaos.Score(r)
			bin := chaos.Bin(k, int(window.Left()), int(window.Above(i)))
			h.Add(bin, int(r))
			window.Advance(i, score)
		}
		candidates = append(candidates, h)
	}
	return ChooseKIndex(candidates) + 1
}

// ChooseKIndex returns the index of the cheapest candidate K via
// entropy.ChooseK. The root codec driver does not call it; its shared
// (Y,U,V) K comes from its own chooseSharedK.
func ChooseKIndex(candidates []*entropy.Histograms) int {
	return entropy.ChooseK(candidates)
}

// Validate checks internal consistency of a Design, returning an error
// if any tile references a filter id outside ActiveSF.
func Validate(d *Design) error {
	active := make(map[int]bool, len(d.ActiveSF))
	for _, sf := range d.ActiveSF {
		active[sf] = true
	}
	for i, t := range d.Grid.Tiles {
		if t.Masked || t.Sympal {
			continue
		}
		if !active[t.SF] {
			return fmt.Errorf("mono: tile %d selected SF %d outside its active set", i, t.SF)
		}
	}
	return nil
}
