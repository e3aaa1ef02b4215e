package mono

import (
	"fmt"

	"github.com/siddharths2710/gcif/internal/bitio"
	"github.com/siddharths2710/gcif/internal/chaos"
	"github.com/siddharths2710/gcif/internal/entropy"
)

// EncodePlane runs the full pipeline over plane and writes its complete
// wire representation (descriptor plus residual body) to w. This is the
// entry point the codec driver calls for the alpha channel and for each
// filter-selection map (§4.6).
func EncodePlane(w *bitio.Writer, plane []byte, width, height, edge int, masked []bool, candidateSF []int, sympalThresh float64) error {
	design := Plan(plane, width, height, masked, edge, candidateSF, sympalThresh)
	if err := Validate(design); err != nil {
		return err
	}

	if err := writeRecursiveHeader(w, design, candidateSF, sympalThresh); err != nil {
		return err
	}
	writeSFSubset(w, design.ActiveSF)
	writeTileAssignments(w, design.Grid)

	bank, hist, err := buildBank(design, plane, width, height, masked)
	if err != nil {
		return err
	}
	w.WriteBits(uint32(design.K-1), 4)
	entropy.WriteBank(w, bank)
	_ = hist

	return encodeBody(w, design, plane, width, height, masked, bank)
}

// DecodePlane is the inverse of EncodePlane. maskValue is the color a
// masked position takes (0 for filter-id maps, which have no mask; the
// mask store's reconstructed color's relevant byte for the alpha plane).
func DecodePlane(r *bitio.Reader, width, height, edge int, masked []bool, maskValue byte, candidateSF []int, sympalThresh float64) ([]byte, error) {
	design, filterIDPlane, err := readRecursiveHeader(r, width, height, edge, masked, candidateSF, sympalThresh)
	if err != nil {
		return nil, err
	}
	activeSF, err := readSFSubset(r)
	if err != nil {
		return nil, err
	}
	design.ActiveSF = activeSF
	if err := readTileAssignments(r, design, filterIDPlane); err != nil {
		return nil, err
	}

	k := int(r.ReadBits(4)) + 1
	design.K = k
	bank, err := entropy.ReadBank(r, k, entropy.PlainAlphabetSize, false)
	if err != nil {
		return nil, fmt.Errorf("mono: reading entropy bank: %w", err)
	}

	plane, err := decodeBody(r, design, width, height, masked, bank)
	if err != nil {
		return nil, err
	}
	return plane, nil
}

// writeRecursiveHeader writes the leading "1=recurse / 0=row filters"
// bit (§6 point 8) and, depending on which, either the child plane's
// own full descriptor or the row-filter table plus its entropy-coded
// residual stream. Either branch leaves the decoder able to fully
// reconstruct the filter-id plane (§4.6 steps 7-8); reconstruction is
// what feeds each non-sympal tile's SF back in readTileAssignments.
func writeRecursiveHeader(w *bitio.Writer, design *Design, candidateSF []int, sympalThresh float64) error {
	if design.Child != nil {
		w.WriteBit(1)
		tx, ty := design.Grid.Tx, design.Grid.Ty
		childEdge := smallerEdge(tx, ty)
		childMasked := make([]bool, tx*ty)
		return EncodePlane(w, design.ChildPlane, tx, ty, childEdge, childMasked, candidateSF, sympalThresh)
	}
	w.WriteBit(0)
	return encodeRowFilteredPlane(w, design)
}

func writeRowFilters(w *bitio.Writer, design *Design) {
	for _, rf := range design.RowFilters {
		w.WriteBits(uint32(rf), 2)
	}
}

// encodeRowFilteredPlane writes the per-row filter selectors (§4.6 step
// 7) followed by a single static-Huffman-coded stream of the residuals
// those filters produce over the filter-id plane; this is what lets the
// decoder's row-filter branch actually reconstruct SF ids instead of
// relying solely on the raw per-tile transmission.
func encodeRowFilteredPlane(w *bitio.Writer, design *Design) error {
	tx, ty := design.Grid.Tx, design.Grid.Ty
	writeRowFilters(w, design)

	rowResiduals := make([][]byte, ty)
	h := entropy.NewHistograms(1, false)
	for row := 0; row < ty; row++ {
		rowResiduals[row] = applyRowFilter(design.ChildPlane, tx, ty, row, design.RowFilters[row])
		for _, v := range rowResiduals[row] {
			h.Add(0, int(v))
		}
	}
	bank, err := h.Build()
	if err != nil {
		return fmt.Errorf("mono: building filter-id residual table: %w", err)
	}
	entropy.WriteBank(w, bank)
	for _, residuals := range rowResiduals {
		for _, v := range residuals {
			bank.Tables[0].Encode(w, int(v))
		}
	}
	return nil
}

func readRecursiveHeader(r *bitio.Reader, width, height, edge int, masked []bool, candidateSF []int, sympalThresh float64) (*Design, []byte, error) {
	tx := (width + edge - 1) / edge
	ty := (height + edge - 1) / edge
	grid := &Grid{Edge: edge, Tx: tx, Ty: ty, Tiles: make([]Tile, tx*ty)}
	maskTiles(grid, masked, width, height)
	design := &Design{Width: width, Height: height, Grid: grid}

	recurse := r.ReadBit()
	if recurse == 1 {
		childEdge := smallerEdge(tx, ty)
		childMasked := make([]bool, tx*ty)
		filterIDPlane, err := DecodePlane(r, tx, ty, childEdge, childMasked, 0, candidateSF, sympalThresh)
		if err != nil {
			return nil, nil, fmt.Errorf("mono: decoding recursive filter-id plane: %w", err)
		}
		return design, filterIDPlane, nil
	}

	filterIDPlane, err := decodeRowFilteredPlane(r, design, tx, ty)
	if err != nil {
		return nil, nil, err
	}
	return design, filterIDPlane, nil
}

// decodeRowFilteredPlane is encodeRowFilteredPlane's inverse.
func decodeRowFilteredPlane(r *bitio.Reader, design *Design, tx, ty int) ([]byte, error) {
	rowFilters := make([]RowFilter, ty)
	for row := range rowFilters {
		rowFilters[row] = RowFilter(r.ReadBits(2))
	}
	design.RowFilters = rowFilters

	bank, err := entropy.ReadBank(r, 1, entropy.PlainAlphabetSize, false)
	if err != nil {
		return nil, fmt.Errorf("mono: reading filter-id residual table: %w", err)
	}
	plane := make([]byte, tx*ty)
	for row := 0; row < ty; row++ {
		rf := rowFilters[row]
		for col := 0; col < tx; col++ {
			idx := row*tx + col
			r.FillBitWindow()
			sym, err := bank.Tables[0].Decode1(r)
			if err != nil {
				return nil, fmt.Errorf("mono: decoding filter-id residual at tile %d: %w", idx, err)
			}
			var pred byte
			switch rf {
			case RFLeft:
				if col > 0 {
					pred = plane[idx-1]
				}
			case RFUp:
				if row > 0 {
					pred = plane[idx-tx]
				}
			case RFUpLeft:
				if row > 0 && col > 0 {
					pred = plane[idx-tx-1]
				}
			}
			plane[idx] = pred + byte(sym)
		}
	}
	return plane, nil
}

func writeSFSubset(w *bitio.Writer, activeSF []int) {
	w.WriteBits(uint32(len(activeSF)-1), 5)
	for _, sf := range activeSF {
		w.WriteBits(uint32(sf), 7)
	}
}

func readSFSubset(r *bitio.Reader) ([]int, error) {
	count := int(r.ReadBits(5)) + 1
	ids := make([]int, count)
	for i := range ids {
		ids[i] = int(r.ReadBits(7))
	}
	return ids, nil
}

// writeTileAssignments writes, for every non-masked tile, one bit
// marking it sympal-or-not, then its raw value if so. A non-sympal
// tile's SF is not transmitted here at all: the row-filter/recursion
// header written just before it (§4.6 steps 7-8) already carries a
// compressed copy of the whole filter-id plane, and the decoder pulls
// each tile's SF back out of that reconstruction in readTileAssignments.
func writeTileAssignments(w *bitio.Writer, grid *Grid) {
	for _, t := range grid.Tiles {
		if t.Masked {
			continue
		}
		if t.Sympal {
			w.WriteBit(1)
			w.WriteBits(uint32(t.SympalValue), 8)
			continue
		}
		w.WriteBit(0)
	}
}

// readTileAssignments is writeTileAssignments's inverse; filterIDPlane
// is the already-reconstructed filter-id plane from readRecursiveHeader,
// the source of truth for every non-sympal tile's SF. Each recovered SF
// is checked against design.ActiveSF, the same guard the raw per-tile
// index transmission used to give for free, since it now comes from a
// reconstruction pass rather than a direct index into that set.
func readTileAssignments(r *bitio.Reader, design *Design, filterIDPlane []byte) error {
	active := make(map[int]bool, len(design.ActiveSF))
	for _, sf := range design.ActiveSF {
		active[sf] = true
	}
	for i := range design.Grid.Tiles {
		t := &design.Grid.Tiles[i]
		if t.Masked {
			continue
		}
		if r.ReadBit() == 1 {
			t.Sympal = true
			t.SympalValue = byte(r.ReadBits(8))
			continue
		}
		sf := int(filterIDPlane[i])
		if !active[sf] {
			return fmt.Errorf("mono: tile %d reconstructed SF %d outside active set", i, sf)
		}
		t.SF = sf
	}
	return nil
}

func buildBank(design *Design, plane []byte, width, height int, masked []bool) (*entropy.Bank, *entropy.Histograms, error) {
	h := entropy.NewHistograms(design.K, false)
	window := chaos.NewWindow(width)
	for y := 0; y < height; y++ {
		window.StartRow()
		for x := 0; x < width; x++ {
			idx := y*width + x
			if masked != nil && masked[idx] {
				window.AdvanceZero(x)
				continue
			}
			tx, ty := x/design.Grid.Edge, y/design.Grid.Edge
			tile := design.Grid.at(tx, ty)
			if tile.Sympal {
				window.AdvanceZero(x)
				continue
			}
			l, t, tl, tr := neighborBytes(plane, width, height, x, y)
			pred := predictByte(tile.SF, l, t, tl, tr)
			r := plane[idx] - pred
			bin := chaos.Bin(design.K, int(window.Left()), int(window.Above(x)))
			h.Add(bin, int(r))
			window.Advance(x, chaos.Score(r))
		}
	}
	bank, err := h.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("mono: building entropy bank: %w", err)
	}
	return bank, h, nil
}

func encodeBody(w *bitio.Writer, design *Design, plane []byte, width, height int, masked []bool, bank *entropy.Bank) error {
	window := chaos.NewWindow(width)
	for y := 0; y < height; y++ {
		window.StartRow()
		for x := 0; x < width; x++ {
			idx := y*width + x
			if masked != nil && masked[idx] {
				window.AdvanceZero(x)
				continue
			}
			tx, ty := x/design.Grid.Edge, y/design.Grid.Edge
			tile := design.Grid.at(tx, ty)
			if tile.Sympal {
				window.AdvanceZero(x)
				continue
			}
			l, t, tl, tr := neighborBytes(plane, width, height, x, y)
			pred := predictByte(tile.SF, l, t, tl, tr)
			residual := plane[idx] - pred
			bin := chaos.Bin(design.K, int(window.Left()), int(window.Above(x)))
			bank.Tables[bin].Encode(w, int(residual))
			window.Advance(x, chaos.Score(residual))
		}
	}
	return nil
}

func decodeBody(r *bitio.Reader, design *Design, width, height int, masked []bool, bank *entropy.Bank) ([]byte, error) {
	plane := make([]byte, width*height)
	window := chaos.NewWindow(width)
	for y := 0; y < height; y++ {
		window.StartRow()
		for x := 0; x < width; x++ {
			idx := y*width + x
			if masked != nil && masked[idx] {
				window.AdvanceZero(x)
				continue
			}
			tx, ty := x/design.Grid.Edge, y/design.Grid.Edge
			tile := design.Grid.at(tx, ty)
			if tile.Sympal {
				plane[idx] = tile.SympalValue
				window.AdvanceZero(x)
				continue
			}
			l, t, tl, tr := neighborBytes(plane, width, height, x, y)
			pred := predictByte(tile.SF, l, t, tl, tr)
			r.FillBitWindow()
			bin := chaos.Bin(design.K, int(window.Left()), int(window.Above(x)))
			sym, err := bank.Tables[bin].Decode1(r)
			if err != nil {
				return nil, fmt.Errorf("mono: decoding residual at (%d,%d): %w", x, y, err)
			}
			residual := byte(sym)
			plane[idx] = pred + residual
			window.Advance(x, chaos.Score(residual))
		}
	}
	return plane, nil
}
