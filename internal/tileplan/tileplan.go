// Package tileplan implements the tile planner of §4.2: partitions an
// image into fixed-size tiles, classifies mask-covered ones, shortlists
// a subset of spatial filters by cheap award-weighted voting, then
// refines a per-tile (SF, CF) choice by entropy-minimizing search with
// a neighbor-affinity bias, revisiting tiles across several passes.
//
// Grounded on the overall shape of internal/lossless's two-stage
// encoder: a cheap first pass that proposes candidates
// (encode_predictor.go's per-tile predictor scoring) followed by a
// refinement pass scored with encode_histogram.go's Histogram cost
// model, generalized here to also consider color filters and a
// same-SF neighbor reward, and to loop via explicit revisit passes
// instead of running once.
package tileplan

import (
	"sort"

	"github.com/siddharths2710/gcif/internal/chaos"
	"github.com/siddharths2710/gcif/internal/filter"
	"github.com/siddharths2710/gcif/internal/histcost"
	"github.com/siddharths2710/gcif/internal/maskstore"
	"github.com/siddharths2710/gcif/internal/residual"
)

// MinB / MaxB bound the tile edge exponent (§3: "edge 2^B, B in [3..5]").
const (
	MinB = 3
	MaxB = 5
)

// FuzzCandidates is F, the size of the SF shortlist kept after
// award-weighted voting (§4.2 step 2: "keep the top F=20 (FUZZ)").
const FuzzCandidates = 20

// MaxPasses bounds the revisit loop (§4.2 step 4).
const MaxPasses = 4

// NeighborReward is the tie-break bonus subtracted from a candidate's
// entropy cost per matching neighbor tile (§4.2 step 3: "NEIGHBOR_REWARD
// = 1 count").
const NeighborReward = 1.0

// Tile is one tile's final filter assignment.
type Tile struct {
	SF, CF      int
	Masked      bool
	Sympal      bool
	SympalColor [4]byte
}

// Grid is a planned tile layout over one image.
type Grid struct {
	B      int
	Edge   int
	Tx, Ty int
	Tiles  []Tile
}

// At returns the tile covering pixel (x, y).
func (g *Grid) At(x, y int) *Tile {
	tx, ty := x/g.Edge, y/g.Edge
	return &g.Tiles[ty*g.Tx+tx]
}

// Config bundles the thresholds the planner needs; each mirrors a named
// knob from §4.2.
type Config struct {
	ActiveSF     []int // catalog ids eligible for selection this image
	ActiveCF     []int
	FilterThresh float64 // step 2 coverage stop condition
	SympalThresh float64 // step 5 promotion threshold
}

// Plan runs the full tile-planner pipeline over an RGBA image.
func Plan(pix [][4]byte, width, height int, mask *maskstore.Store, b int, cfg Config) *Grid {
	edge := 1 << b
	tx := (width + edge - 1) / edge
	ty := (height + edge - 1) / edge
	grid := &Grid{B: b, Edge: edge, Tx: tx, Ty: ty, Tiles: make([]Tile, tx*ty)}

	maskTiles(grid, mask, width, height)
	sympalTiles(grid, pix, width, height, cfg.SympalThresh)

	shortlist := shortlistSF(grid, pix, width, height, cfg)
	refine(grid, pix, width, height, shortlist, cfg)

	return grid
}

// maskTiles marks every tile that is entirely covered by the mask
// (§4.2 step 1).
func maskTiles(grid *Grid, mask *maskstore.Store, width, height int) {
	if mask == nil {
		return
	}
	for ty := 0; ty < grid.Ty; ty++ {
		for tx := 0; tx < grid.Tx; tx++ {
			if mask.TileFullyMasked(tx*grid.Edge, ty*grid.Edge, grid.Edge) {
				grid.Tiles[ty*grid.Tx+tx].Masked = true
			}
		}
	}
}

// sympalTiles finds non-masked tiles whose every pixel (masked pixels
// included) is the same color, and promotes the ones whose color recurs often enough across
// the image into a synthetic palette filter that emits the color
// directly with no residual (§4.2 step 5).
func sympalTiles(grid *Grid, pix [][4]byte, width, height int, sympalThresh float64) {
	type uniform struct {
		tileIdx int
		color   [4]byte
	}
	var candidates []uniform

	for ty := 0; ty < grid.Ty; ty++ {
		for tx := 0; tx < grid.Tx; tx++ {
			idx := ty*grid.Tx + tx
			if grid.Tiles[idx].Masked {
				continue
			}
			uniformColor, ok := tileUniformColor(pix, width, height, tx*grid.Edge, ty*grid.Edge, grid.Edge)
			if ok {
				candidates = append(candidates, uniform{tileIdx: idx, color: uniformColor})
			}
		}
	}

	counts := make(map[[4]byte]int)
	for _, c := range candidates {
		counts[c.color]++
	}

	liveTiles := grid.Tx * grid.Ty
	threshold := sympalThresh * float64(liveTiles)
	for _, c := range candidates {
		if float64(counts[c.color]) >= threshold {
			grid.Tiles[c.tileIdx].Sympal = true
			grid.Tiles[c.tileIdx].SympalColor = c.color
		}
	}
}

func tileUniformColor(pix [][4]byte, width, height, x0, y0, edge int) ([4]byte, bool) {
	first := [4]byte{}
	seen := false
	for y := y0; y < y0+edge && y < height; y++ {
		for x := x0; x < x0+edge && x < width; x++ {
			p := pix[y*width+x]
			if !seen {
				first = p
				seen = true
				continue
			}
			if p != first {
				return [4]byte{}, false
			}
		}
	}
	if !seen {
		return [4]byte{}, false
	}
	return first, true
}

// shortlistSF scores every candidate SF on every live tile with a cheap
// magnitude proxy, then keeps the F highest-voted ids plus the fixed
// canonical set, stopping early once the running coverage target is met
// (§4.2 step 2).
func shortlistSF(grid *Grid, pix [][4]byte, width, height int, cfg Config) []int {
	votes := make([]float64, filter.NumSpatialFilters)
	liveTiles := 0

	identityCF := cfg.ActiveCF[0]

	for ty := 0; ty < grid.Ty; ty++ {
		for tx := 0; tx < grid.Tx; tx++ {
			idx := ty*grid.Tx + tx
			t := &grid.Tiles[idx]
			if t.Masked || t.Sympal {
				continue
			}
			liveTiles++

			type scored struct {
				sf   int
				cost int
			}
			var ranked []scored
			for _, sf := range cfg.ActiveSF {
				cost := tileMagnitudeProxy(pix, width, height, tx*grid.Edge, ty*grid.Edge, grid.Edge, sf, identityCF)
				ranked = append(ranked, scored{sf, cost})
			}
			for i := 1; i < len(ranked); i++ {
				for j := i; j > 0 && ranked[j].cost < ranked[j-1].cost; j-- {
					ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
				}
			}
			// Award-weighted voting: rank r gets weight 1/2^r, decaying
			// geometrically so the cheapest SF on this tile dominates the
			// global vote without shutting out its runners-up entirely.
			weight := 1.0
			for _, s := range ranked {
				votes[s.sf] += weight
				weight /= 2
			}
		}
	}

	type idVote struct {
		id   int
		vote float64
	}
	all := make([]idVote, filter.NumSpatialFilters)
	for i, v := range votes {
		all[i] = idVote{i, v}
	}
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].vote > all[j-1].vote; j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}

	shortlist := map[int]bool{}
	for _, id := range filter.CanonicalSF {
		shortlist[id] = true
	}

	coverageTarget := cfg.FilterThresh * float64(liveTiles)
	coverage := 0.0
	for _, iv := range all {
		if len(shortlist) >= FuzzCandidates || coverage >= coverageTarget {
			break
		}
		if !shortlist[iv.id] {
			shortlist[iv.id] = true
			coverage += iv.vote
		}
	}

	out := make([]int, 0, len(shortlist))
	for id := range shortlist {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// tileMagnitudeProxy is the cheap per-tile, per-SF scoring function of
// step 2: the sum of saturating residual magnitudes (via chaos.Score)
// over every non-masked pixel, using a fixed identity-like CF so the
// color step does not distort the spatial comparison.
func tileMagnitudeProxy(pix [][4]byte, width, height, x0, y0, edge, sf, cf int) int {
	total := 0
	for y := y0; y < y0+edge && y < height; y++ {
		for x := x0; x < x0+edge && x < width; x++ {
			n := residual.Gather(pix, width, height, x, y)
			yuv := residual.Forward(pix, width, height, x, y, sf, cf, n)
			for _, c := range yuv {
				total += int(chaos.Score(c))
			}
		}
	}
	return total
}

// refine performs the entropy-minimizing candidate selection of step 3
// and the revisit loop of step 4.
func refine(grid *Grid, pix [][4]byte, width, height int, shortlist []int, cfg Config) {
	hist := [3]*histcost.Histogram{
		histcost.New(256),
		histcost.New(256),
		histcost.New(256),
	}

	// Initial selection: every live, non-sympal tile picks its best
	// candidate against the histograms as they stand, committing its
	// symbols before moving to the next tile so later tiles see the
	// running population (mirrors the encoder mirroring the decoder's
	// causal, left-to-right, top-to-bottom symbol order).
	for ty := 0; ty < grid.Ty; ty++ {
		for tx := 0; tx < grid.Tx; tx++ {
			selectTile(grid, pix, width, height, tx, ty, shortlist, cfg.ActiveCF, hist, false)
		}
	}

	for pass := 0; pass < MaxPasses; pass++ {
		changed := false
		for ty := 0; ty < grid.Ty; ty++ {
			for tx := 0; tx < grid.Tx; tx++ {
				if selectTile(grid, pix, width, height, tx, ty, shortlist, cfg.ActiveCF, hist, true) {
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
}

// selectTile scores every (SF, CF) candidate for one tile against the
// shared histograms, minus the tile's own current contribution when
// revisiting, and commits the best one. Returns whether the tile's
// choice changed from what it held before this call.
func selectTile(grid *Grid, pix [][4]byte, width, height, tx, ty int, shortlist, activeCF []int, hist [3]*histcost.Histogram, revisit bool) bool {
	idx := ty*grid.Tx + tx
	t := &grid.Tiles[idx]
	if t.Masked || t.Sympal {
		return false
	}

	x0, y0 := tx*grid.Edge, ty*grid.Edge
	prevSF, prevCF := t.SF, t.CF

	if revisit {
		forEachTilePixel(pix, width, height, x0, y0, grid.Edge, func(x, y int) {
			n := residual.Gather(pix, width, height, x, y)
			yuv := residual.Forward(pix, width, height, x, y, prevSF, prevCF, n)
			hist[0].Subtract(int(yuv[0]))
			hist[1].Subtract(int(yuv[1]))
			hist[2].Subtract(int(yuv[2]))
		})
	}

	bestSF, bestCF := shortlist[0], activeCF[0]
	bestCost := -1.0

	for _, sf := range shortlist {
		for _, cf := range activeCF {
			var residuals [][3]byte
			forEachTilePixel(pix, width, height, x0, y0, grid.Edge, func(x, y int) {
				n := residual.Gather(pix, width, height, x, y)
				residuals = append(residuals, residual.Forward(pix, width, height, x, y, sf, cf, n))
			})

			for _, yuv := range residuals {
				hist[0].AddSingle(int(yuv[0]))
				hist[1].AddSingle(int(yuv[1]))
				hist[2].AddSingle(int(yuv[2]))
			}
			cost := hist[0].Cost() + hist[1].Cost() + hist[2].Cost()
			cost -= NeighborReward * float64(neighborMatches(grid, tx, ty, sf))
			for _, yuv := range residuals {
				hist[0].Subtract(int(yuv[0]))
				hist[1].Subtract(int(yuv[1]))
				hist[2].Subtract(int(yuv[2]))
			}

			if bestCost < 0 || cost < bestCost {
				bestCost = cost
				bestSF, bestCF = sf, cf
			}
		}
	}

	t.SF, t.CF = bestSF, bestCF
	forEachTilePixel(pix, width, height, x0, y0, grid.Edge, func(x, y int) {
		n := residual.Gather(pix, width, height, x, y)
		yuv := residual.Forward(pix, width, height, x, y, bestSF, bestCF, n)
		hist[0].AddSingle(int(yuv[0]))
		hist[1].AddSingle(int(yuv[1]))
		hist[2].AddSingle(int(yuv[2]))
	})

	return bestSF != prevSF || bestCF != prevCF
}

func forEachTilePixel(pix [][4]byte, width, height, x0, y0, edge int, fn func(x, y int)) {
	for y := y0; y < y0+edge && y < height; y++ {
		for x := x0; x < x0+edge && x < width; x++ {
			fn(x, y)
		}
	}
}

// neighborMatches counts how many of {left, up, up-left, up-right}
// tiles already have the same SF id (§4.2 step 3).
func neighborMatches(grid *Grid, tx, ty, sf int) int {
	matches := 0
	check := func(nx, ny int) {
		if nx < 0 || ny < 0 || nx >= grid.Tx || ny >= grid.Ty {
			return
		}
		if grid.Tiles[ny*grid.Tx+nx].SF == sf {
			matches++
		}
	}
	check(tx-1, ty)
	check(tx, ty-1)
	check(tx-1, ty-1)
	check(tx+1, ty-1)
	return matches
}
