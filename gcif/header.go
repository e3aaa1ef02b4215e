package gcif

import (
	"github.com/siddharths2710/gcif/internal/filter"
	"github.com/siddharths2710/gcif/internal/maskstore"
	"github.com/siddharths2710/gcif/internal/tileplan"
)

// sympalSentinel is the SF-map plane value (one past the last real
// catalog id) marking a tile as a synthetic-palette tile instead of a
// normal spatial-filter tile (§4.2 step 5: "numbered beyond the normal
// SF range").
const sympalSentinel = filter.NumSpatialFilters

// fullSF lists every spatial-filter catalog id, used as the alpha
// plane's monochrome-engine candidate set since alpha carries real
// per-pixel gradient data and benefits from the whole catalog, unlike
// the small, highly redundant SF-map/CF-map planes (auxMonoSF).
var fullSF = func() []int {
	ids := make([]int, filter.NumSpatialFilters)
	for i := range ids {
		ids[i] = i
	}
	return ids
}()

// auxMonoSF is the monochrome engine's candidate set for the SF-map and
// CF-map planes: both are small, low-variety byte planes, so the
// canonical four-filter set already used to seed the main tile
// planner's own shortlist is enough.
var auxMonoSF = filter.CanonicalSF

// toMaskStore adapts the abstract Mask collaborator into the concrete
// *maskstore.Store the tile planner requires, returning mask itself if
// it is already a Store and rebuilding one pixel at a time otherwise.
// A nil mask becomes an empty (nothing masked) Store.
func toMaskStore(mask Mask, width, height int) *maskstore.Store {
	if mask == nil {
		return maskstore.New(width, height, [4]byte{})
	}
	if s, ok := mask.(*maskstore.Store); ok {
		return s
	}
	s := maskstore.New(width, height, mask.Color())
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if mask.IsMasked(x, y) {
				s.SetMasked(x, y, true)
			}
		}
	}
	return s
}

// pixelMasked builds a flat width*height mask, true where masked.
func pixelMasked(mask *maskstore.Store, width, height int) []bool {
	out := make([]bool, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out[y*width+x] = mask.IsMasked(x, y)
		}
	}
	return out
}

// tileMaskedFromGrid extracts each tile's Masked flag in raster order,
// the pixel-resolution-equivalent input the monochrome engine expects
// for the SF-map/CF-map planes (one "pixel" per tile).
func tileMaskedFromGrid(grid *tileplan.Grid) []bool {
	out := make([]bool, len(grid.Tiles))
	for i, t := range grid.Tiles {
		out[i] = t.Masked
	}
	return out
}

// monoAuxEdge picks a fixed tile edge for the SF-map/CF-map monochrome
// passes. These planes are already small, so the cost of a full
// [min_bits,max_bits] search (§4.6 step 8 reuses §4.2's search range in
// principle) would outweigh any payoff; a small fixed edge clamped to
// the plane's own size is a deliberate simplification over searching.
func monoAuxEdge(tx, ty int) int {
	e := 4
	if e > tx {
		e = tx
	}
	if e > ty {
		e = ty
	}
	if e < 1 {
		e = 1
	}
	return e
}

func bitsForActive(minBits, maxBits int) int {
	return bitsForRange(maxBits - minBits + 1)
}
