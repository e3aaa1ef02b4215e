package gcif

import (
	"fmt"
	"io"

	"github.com/siddharths2710/gcif/internal/bitio"
	"github.com/siddharths2710/gcif/internal/chaos"
	"github.com/siddharths2710/gcif/internal/entropy"
	"github.com/siddharths2710/gcif/internal/mono"
	"github.com/siddharths2710/gcif/internal/residual"
	"github.com/siddharths2710/gcif/internal/tileplan"
)

// Decoder holds the mask and knobs a bit-stream will be read against
// (§6's NewDecoder/Read contract).
type Decoder struct {
	mask  Mask
	knobs Knobs
}

// NewDecoder returns a Decoder ready to Read a bit-stream produced by the
// matching Encoder configuration.
func NewDecoder(mask Mask, knobs Knobs) *Decoder {
	return &Decoder{mask: mask, knobs: knobs}
}

// Read decodes one complete image from r.
func (d *Decoder) Read(r io.Reader) (Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Image{}, fmt.Errorf("gcif: reading stream: %w", err)
	}
	br := bitio.NewReader(data)

	width := int(br.ReadBits(16))
	height := int(br.ReadBits(16))
	if width <= 0 || height <= 0 {
		return Image{}, fmt.Errorf("gcif: %w", ErrStreamCorrupt)
	}

	bBits := bitsForActive(d.knobs.MinBits, d.knobs.MaxBits)
	bOffset := int(br.ReadBits(bBits))
	b := d.knobs.MaxBits - bOffset
	if b < d.knobs.MinBits || b > d.knobs.MaxBits {
		return Image{}, fmt.Errorf("gcif: decoded tile edge out of range: %w", ErrStreamCorrupt)
	}
	edge := 1 << b
	tx := (width + edge - 1) / edge
	ty := (height + edge - 1) / edge

	activeSF, err := readIDSubset(br, 5, 7)
	if err != nil {
		return Image{}, err
	}
	activeCF, err := readIDSubset(br, 4, 8)
	if err != nil {
		return Image{}, err
	}

	maskStore := toMaskStore(d.mask, width, height)
	masked := pixelMasked(maskStore, width, height)
	tileMasked := make([]bool, tx*ty)
	for t := 0; t < ty; t++ {
		for s := 0; s < tx; s++ {
			tileMasked[t*tx+s] = maskStore.TileFullyMasked(s*edge, t*edge, edge)
		}
	}
	auxEdge := monoAuxEdge(tx, ty)

	sfPlane, err := mono.DecodePlane(br, tx, ty, auxEdge, tileMasked, 0, auxMonoSF, d.knobs.SympalThresh)
	if err != nil {
		return Image{}, fmt.Errorf("gcif: decoding filter-selection map: %w", err)
	}
	if err := validatePlaneIDs(sfPlane, tileMasked, activeSF, sympalSentinel); err != nil {
		return Image{}, err
	}

	grid := &tileplan.Grid{B: b, Edge: edge, Tx: tx, Ty: ty, Tiles: make([]tileplan.Tile, tx*ty)}
	for i := range grid.Tiles {
		t := &grid.Tiles[i]
		t.Masked = tileMasked[i]
		if t.Masked {
			continue
		}
		if int(sfPlane[i]) == sympalSentinel {
			t.Sympal = true
			hi := br.ReadBits(16)
			lo := br.ReadBits(16)
			t.SympalColor = [4]byte{byte(hi >> 8), byte(hi), byte(lo >> 8), byte(lo)}
			continue
		}
		t.SF = int(sfPlane[i])
	}

	cfPlane, err := mono.DecodePlane(br, tx, ty, auxEdge, tileMasked, 0, auxMonoSF, d.knobs.SympalThresh)
	if err != nil {
		return Image{}, fmt.Errorf("gcif: decoding color-selection map: %w", err)
	}
	if err := validatePlaneIDs(cfPlane, tileMaskedOrSympal(grid), activeCF, -1); err != nil {
		return Image{}, err
	}
	for i, t := range grid.Tiles {
		if t.Masked || t.Sympal {
			continue
		}
		grid.Tiles[i].CF = int(cfPlane[i])
	}

	alphaPlane, err := mono.DecodePlane(br, width, height, edge, masked, 0, fullSF, d.knobs.SympalThresh)
	if err != nil {
		return Image{}, fmt.Errorf("gcif: decoding alpha plane: %w", err)
	}

	k := int(br.ReadBits(4)) + 1
	yBank, err := entropy.ReadBank(br, k, entropy.YAlphabetSize, true)
	if err != nil {
		return Image{}, fmt.Errorf("gcif: %w: %v", ErrStreamCorrupt, err)
	}
	uBank, err := entropy.ReadBank(br, k, entropy.PlainAlphabetSize, false)
	if err != nil {
		return Image{}, fmt.Errorf("gcif: %w: %v", ErrStreamCorrupt, err)
	}
	vBank, err := entropy.ReadBank(br, k, entropy.PlainAlphabetSize, false)
	if err != nil {
		return Image{}, fmt.Errorf("gcif: %w: %v", ErrStreamCorrupt, err)
	}

	pix := make([][4]byte, width*height)
	lzCovered := make([]bool, width*height)
	lzDistance := make([]int, width*height)
	yRes := make([]byte, width*height)
	uRes := make([]byte, width*height)
	vRes := make([]byte, width*height)

	skipY := func(pos int) bool { return masked[pos] || tileSympalAt(grid, width, pos) }
	skipUV := func(pos int) bool { return masked[pos] || tileSympalAt(grid, width, pos) || lzCovered[pos] }

	windowY := chaos.NewWindow(width)
	if err := decodeY(br, width, height, windowY, k, yBank, skipY, lzDistance, lzCovered, func(pos int, v byte) { yRes[pos] = v }); err != nil {
		return Image{}, err
	}
	windowU := chaos.NewWindow(width)
	if err := decodePlain(br, width, height, windowU, k, uBank, skipUV, func(pos int, v byte) { uRes[pos] = v }); err != nil {
		return Image{}, fmt.Errorf("gcif: decoding U channel: %w", err)
	}
	windowV := chaos.NewWindow(width)
	if err := decodePlain(br, width, height, windowV, k, vBank, skipUV, func(pos int, v byte) { vRes[pos] = v }); err != nil {
		return Image{}, fmt.Errorf("gcif: decoding V channel: %w", err)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pos := y*width + x
			alpha := residual.AlphaInverse(alphaPlane[pos])
			switch {
			case masked[pos]:
				pix[pos] = maskStore.Color()
			case tileSympalAt(grid, width, pos):
				t := grid.At(x, y)
				pix[pos] = [4]byte{t.SympalColor[0], t.SympalColor[1], t.SympalColor[2], alpha}
			case lzCovered[pos]:
				src := pos - lzDistance[pos]
				pix[pos] = [4]byte{pix[src][0], pix[src][1], pix[src][2], alpha}
			default:
				t := grid.At(x, y)
				n := residual.Gather(pix, width, height, x, y)
				rgb := residual.Inverse(t.SF, t.CF, n, [3]byte{yRes[pos], uRes[pos], vRes[pos]})
				pix[pos] = [4]byte{rgb[0], rgb[1], rgb[2], alpha}
			}
		}
	}

	return fromPixSlice(pix, width, height), nil
}

func readIDSubset(r *bitio.Reader, countBits, idBits int) ([]int, error) {
	count := int(r.ReadBits(countBits)) + 1
	ids := make([]int, count)
	for i := range ids {
		ids[i] = int(r.ReadBits(idBits))
	}
	return ids, nil
}

// validatePlaneIDs confirms every non-masked tile plane value is either
// the sentinel (if one is given) or a member of the active set, guarding
// against a corrupt stream claiming an id outside the negotiated subset.
func validatePlaneIDs(plane []byte, skip []bool, active []int, sentinel int) error {
	allowed := make(map[int]bool, len(active))
	for _, id := range active {
		allowed[id] = true
	}
	for i, v := range plane {
		if skip[i] {
			continue
		}
		if sentinel >= 0 && int(v) == sentinel {
			continue
		}
		if !allowed[int(v)] {
			return fmt.Errorf("gcif: plane id %d outside active set: %w", v, ErrStreamCorrupt)
		}
	}
	return nil
}

func tileMaskedOrSympal(grid *tileplan.Grid) []bool {
	out := make([]bool, len(grid.Tiles))
	for i, t := range grid.Tiles {
		out[i] = t.Masked || t.Sympal
	}
	return out
}
