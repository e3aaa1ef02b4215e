package tileplan

import (
	"testing"

	"github.com/siddharths2710/gcif/internal/filter"
	"github.com/siddharths2710/gcif/internal/maskstore"
)

func defaultConfig() Config {
	return Config{
		ActiveSF:     filter.CanonicalSF,
		ActiveCF:     []int{12, 13, 0, 1},
		FilterThresh: 0.8,
		SympalThresh: 0.5,
	}
}

func TestMaskedTilesAreSkipped(t *testing.T) {
	width, height := 16, 16
	pix := make([][4]byte, width*height)
	m := maskstore.New(width, height, [4]byte{1, 2, 3, 255})
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < 8 {
				m.SetMasked(x, y, true)
				pix[y*width+x] = [4]byte{1, 2, 3, 255}
			} else {
				pix[y*width+x] = [4]byte{byte(x * 7), byte(y * 5), 0, 255}
			}
		}
	}

	grid := Plan(pix, width, height, m, 3, defaultConfig())
	for ty := 0; ty < grid.Ty; ty++ {
		for tx := 0; tx < grid.Tx; tx++ {
			tile := grid.Tiles[ty*grid.Tx+tx]
			if tx*grid.Edge+grid.Edge <= 8 {
				if !tile.Masked {
					t.Fatalf("tile (%d,%d) should be fully masked", tx, ty)
				}
			}
		}
	}
}

func TestSympalPromotesDominantUniformColor(t *testing.T) {
	width, height := 32, 8
	pix := make([][4]byte, width*height)
	for i := range pix {
		pix[i] = [4]byte{9, 9, 9, 255}
	}
	grid := Plan(pix, width, height, nil, 3, defaultConfig())
	foundSympal := false
	for _, tile := range grid.Tiles {
		if tile.Sympal {
			foundSympal = true
			if tile.SympalColor != [4]byte{9, 9, 9, 255} {
				t.Fatalf("sympal color = %v, want {9,9,9,255}", tile.SympalColor)
			}
		}
	}
	if !foundSympal {
		t.Fatalf("expected at least one tile promoted to a sympal filter on a uniform image")
	}
}

func TestPlanAssignsValidFilterIdsToLiveTiles(t *testing.T) {
	width, height := 16, 16
	pix := make([][4]byte, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pix[y*width+x] = [4]byte{byte(x * 13), byte(y * 19), byte((x + y) * 3), 255}
		}
	}
	cfg := defaultConfig()
	grid := Plan(pix, width, height, nil, 3, cfg)

	activeSF := map[int]bool{}
	for _, sf := range cfg.ActiveSF {
		activeSF[sf] = true
	}
	for _, tile := range grid.Tiles {
		if tile.Masked || tile.Sympal {
			continue
		}
		if tile.SF < 0 || tile.SF >= filter.NumSpatialFilters {
			t.Fatalf("tile SF %d out of range", tile.SF)
		}
		if tile.CF < 0 || tile.CF >= filter.NumColorFilters {
			t.Fatalf("tile CF %d out of range", tile.CF)
		}
	}
}

func TestGridAtAddressesCorrectTile(t *testing.T) {
	width, height := 16, 16
	pix := make([][4]byte, width*height)
	grid := Plan(pix, width, height, nil, 3, defaultConfig())
	tile := grid.At(9, 1)
	want := &grid.Tiles[0*grid.Tx+1]
	if tile != want {
		t.Fatalf("At(9,1) returned wrong tile pointer")
	}
}
