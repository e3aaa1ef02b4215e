package gcif

import (
	"fmt"

	"github.com/siddharths2710/gcif/internal/bitio"
	"github.com/siddharths2710/gcif/internal/chaos"
	"github.com/siddharths2710/gcif/internal/entropy"
	"github.com/siddharths2710/gcif/internal/lzfind"
)

// zrlThresh is the minimum run of consecutive zero residuals worth
// collapsing into a single ZRL escape rather than literal zero codes
// (§4.4's zero-run-length encoding).
const zrlThresh = 4

// tokenSink abstracts "count this token into a histogram" (for K
// selection) from "write this token to the bit-stream" (for the real
// pass), so the Y/U/V scan logic below is shared by both.
type tokenSink interface {
	token(bin, symbol int, extra uint32, extraBits int)
	rawBits(v uint32, n int)
}

type countSink struct{ h *entropy.Histograms }

func (s countSink) token(bin, symbol int, extra uint32, extraBits int) { s.h.Add(bin, symbol) }
func (s countSink) rawBits(v uint32, n int)                            {}

type writeSink struct {
	w    *bitio.Writer
	bank *entropy.Bank
}

func (s writeSink) token(bin, symbol int, extra uint32, extraBits int) {
	s.bank.Tables[bin].Encode(s.w, symbol)
	if extraBits > 0 {
		s.w.WriteBits(extra, extraBits)
	}
}
func (s writeSink) rawBits(v uint32, n int) { s.w.WriteBits(v, n) }

// walkPlain drives the U/V residual scan (no LZ): raster order, runs of
// literal zero residuals of length >= zrlThresh collapsed into one ZRL
// token, each row's run lookahead capped at the row boundary so the
// chaos window's row-pair ring (Design Note 1) never needs a mid-run
// StartRow.
func walkPlain(width, height int, window *chaos.Window, k int, skip func(pos int) bool, resAt func(pos int) byte, sink tokenSink) {
	zrlBase := entropy.ZRLBase(false)
	pos := 0
	for y := 0; y < height; y++ {
		window.StartRow()
		x := 0
		for x < width {
			if skip(pos) {
				window.AdvanceZero(x)
				pos++
				x++
				continue
			}
			bin := chaos.Bin(k, int(window.Left()), int(window.Above(x)))
			v := resAt(pos)
			if v != 0 {
				sink.token(bin, int(v), 0, 0)
				window.Advance(x, chaos.Score(v))
				pos++
				x++
				continue
			}
			run := 0
			for x+run < width && !skip(pos+run) && resAt(pos+run) == 0 {
				run++
			}
			if run >= zrlThresh {
				capped := run
				if capped > entropy.MaxZRLRun {
					capped = entropy.MaxZRLRun
				}
				sym, extra, extraBits := entropy.ZRLRunSymbol(capped)
				sink.token(bin, zrlBase+sym, extra, extraBits)
				for i := 0; i < capped; i++ {
					window.Advance(x+i, chaos.Score(0))
				}
				pos += capped
				x += capped
			} else {
				sink.token(bin, 0, 0, 0)
				window.Advance(x, chaos.Score(0))
				pos++
				x++
			}
		}
	}
}

// decodePlain is walkPlain's inverse.
func decodePlain(r *bitio.Reader, width, height int, window *chaos.Window, k int, bank *entropy.Bank, skip func(pos int) bool, setRes func(pos int, v byte)) error {
	zrlBase := entropy.ZRLBase(false)
	pendingZeros := 0
	pos := 0
	for y := 0; y < height; y++ {
		window.StartRow()
		x := 0
		for x < width {
			if skip(pos) {
				window.AdvanceZero(x)
				pos++
				x++
				continue
			}
			if pendingZeros > 0 {
				setRes(pos, 0)
				window.Advance(x, chaos.Score(0))
				pendingZeros--
				pos++
				x++
				continue
			}
			bin := chaos.Bin(k, int(window.Left()), int(window.Above(x)))
			r.FillBitWindow()
			sym, err := bank.Tables[bin].Decode1(r)
			if err != nil {
				return fmt.Errorf("gcif: decoding residual at %d: %w", pos, err)
			}
			if sym >= zrlBase {
				rel := sym - zrlBase
				extraBits := entropy.ZRLRunExtraBits(rel)
				var extra uint32
				if extraBits > 0 {
					extra = r.ReadBits(extraBits)
				}
				run := entropy.ZRLRunFromSymbol(rel, extra)
				setRes(pos, 0)
				window.Advance(x, chaos.Score(0))
				pendingZeros = run - 1
				pos++
				x++
				continue
			}
			setRes(pos, byte(sym))
			window.Advance(x, chaos.Score(byte(sym)))
			pos++
			x++
		}
	}
	return nil
}

// walkY drives the Y-channel scan, which additionally dispatches LZ
// escapes (§4.5) at the start of each accepted match; lzAt positions are
// guaranteed (by filterRowBoundedMatches) to never cross a row boundary,
// so the row lookahead here never needs a mid-run StartRow either.
func walkY(width, height int, window *chaos.Window, k int, skip func(pos int) bool, lzAt func(pos int) (lzfind.Match, bool), resAt func(pos int) byte, sink tokenSink) {
	zrlBase := entropy.ZRLBase(true)
	pos := 0
	for y := 0; y < height; y++ {
		window.StartRow()
		x := 0
		for x < width {
			if skip(pos) {
				window.AdvanceZero(x)
				pos++
				x++
				continue
			}
			bin := chaos.Bin(k, int(window.Left()), int(window.Above(x)))
			if m, ok := lzAt(pos); ok {
				lenSym, extra, extraBits := entropy.LZLengthSymbol(m.Length)
				sink.token(bin, entropy.LZEscapeBase+lenSym, extra, extraBits)
				sink.rawBits(uint32(m.Distance), entropy.LZDistanceBits)
				for i := 0; i < m.Length; i++ {
					window.Advance(x+i, chaos.Score(0))
				}
				pos += m.Length
				x += m.Length
				continue
			}
			v := resAt(pos)
			if v != 0 {
				sink.token(bin, int(v), 0, 0)
				window.Advance(x, chaos.Score(v))
				pos++
				x++
				continue
			}
			run := 0
			for x+run < width && !skip(pos+run) {
				if _, ok := lzAt(pos + run); ok {
					break
				}
				if resAt(pos+run) != 0 {
					break
				}
				run++
			}
			if run >= zrlThresh {
				capped := run
				if capped > entropy.MaxZRLRun {
					capped = entropy.MaxZRLRun
				}
				sym, extra, extraBits := entropy.ZRLRunSymbol(capped)
				sink.token(bin, zrlBase+sym, extra, extraBits)
				for i := 0; i < capped; i++ {
					window.Advance(x+i, chaos.Score(0))
				}
				pos += capped
				x += capped
			} else {
				sink.token(bin, 0, 0, 0)
				window.Advance(x, chaos.Score(0))
				pos++
				x++
			}
		}
	}
}

// decodeY is walkY's inverse. It cannot reconstruct RGB for LZ-copied
// positions itself, since the source pixel's RGB isn't filled in until
// the caller's final raster-order combine pass runs; instead it records
// each covered position's match distance in lzDistance and marks it in
// lzCovered, leaving the actual byte copy to that later pass, where
// src = pos - lzDistance[pos] is guaranteed already reconstructed by
// raster order. It writes decoded Y residuals for every other live
// position via setRes.
func decodeY(r *bitio.Reader, width, height int, window *chaos.Window, k int, bank *entropy.Bank, skip func(pos int) bool, lzDistance []int, lzCovered []bool, setRes func(pos int, v byte)) error {
	zrlBase := entropy.ZRLBase(true)
	pendingZeros := 0
	pos := 0
	for y := 0; y < height; y++ {
		window.StartRow()
		x := 0
		for x < width {
			if skip(pos) {
				window.AdvanceZero(x)
				pos++
				x++
				continue
			}
			if pendingZeros > 0 {
				setRes(pos, 0)
				window.Advance(x, chaos.Score(0))
				pendingZeros--
				pos++
				x++
				continue
			}
			bin := chaos.Bin(k, int(window.Left()), int(window.Above(x)))
			r.FillBitWindow()
			sym, err := bank.Tables[bin].Decode1(r)
			if err != nil {
				return fmt.Errorf("gcif: decoding Y at %d: %w", pos, err)
			}
			switch {
			case sym >= entropy.LZEscapeBase && sym < entropy.LZEscapeBase+entropy.NumLZEscape:
				lenSym := sym - entropy.LZEscapeBase
				extraBits := entropy.LZLengthExtraBits(lenSym)
				var extra uint32
				if extraBits > 0 {
					extra = r.ReadBits(extraBits)
				}
				length := entropy.LZLengthFromSymbol(lenSym, extra)
				distance := int(r.ReadBits(entropy.LZDistanceBits))
				if distance < 1 || length < lzfind.MinMatch || length > lzfind.MaxMatch || pos-distance < 0 || pos+length > width*height {
					return fmt.Errorf("gcif: %w", ErrLZOutOfBounds)
				}
				for i := 0; i < length; i++ {
					src := pos + i - distance
					if skip(src) {
						return fmt.Errorf("gcif: lz source crosses a masked pixel: %w", ErrLZOutOfBounds)
					}
					lzDistance[pos+i] = distance
					lzCovered[pos+i] = true
					window.Advance(x+i, chaos.Score(0))
				}
				pos += length
				x += length
			case sym >= zrlBase:
				rel := sym - zrlBase
				extraBits := entropy.ZRLRunExtraBits(rel)
				var extra uint32
				if extraBits > 0 {
					extra = r.ReadBits(extraBits)
				}
				run := entropy.ZRLRunFromSymbol(rel, extra)
				setRes(pos, 0)
				window.Advance(x, chaos.Score(0))
				pendingZeros = run - 1
				pos++
				x++
			default:
				setRes(pos, byte(sym))
				window.Advance(x, chaos.Score(byte(sym)))
				pos++
				x++
			}
		}
	}
	return nil
}

// filterRowBoundedMatches drops any accepted match that would cross a
// row boundary, trading a small amount of compression for keeping every
// chaos window advance within walkY/decodeY's single-row lookahead.
func filterRowBoundedMatches(matches []lzfind.Match, width int) []lzfind.Match {
	out := make([]lzfind.Match, 0, len(matches))
	for _, m := range matches {
		if (m.Pos%width)+m.Length <= width {
			out = append(out, m)
		}
	}
	return out
}

func bitsForRange(n int) int {
	if n <= 1 {
		return 1
	}
	b := 0
	for (1 << b) < n {
		b++
	}
	return b
}
