package bitio

import "encoding/binary"

const (
	// maxBitRead is the maximum number of bits that can be read in a
	// single ReadBits call.
	maxBitRead = 24
	// lBits is the total number of prefetched bits (bit-size of val).
	lBits = 64
	// wBits is the minimum number of ready bits after FillBitWindow.
	wBits = 32
)

// Reader reads bits out of a byte slice with a 64-bit sliding prefetch
// window, 4 bytes at a time, little-endian. Mirrors Writer's layout.
type Reader struct {
	val    uint64 // pre-fetched bits
	buf    []byte
	length int
	pos    int
	bitPos int
	eos    bool
}

// NewReader creates a Reader over data, pre-loading up to the first 8
// bytes into the val register.
func NewReader(data []byte) *Reader {
	br := &Reader{
		buf:    data,
		length: len(data),
	}
	n := len(data)
	if n > 8 {
		n = 8
	}
	var value uint64
	for i := 0; i < n; i++ {
		value |= uint64(data[i]) << uint(8*i)
	}
	br.val = value
	br.pos = n
	return br
}

// FillBitWindow ensures at least wBits (32) bits are available in val.
func (br *Reader) FillBitWindow() {
	if br.bitPos >= wBits {
		br.doFillBitWindow()
	}
}

func (br *Reader) doFillBitWindow() {
	if br.pos+4 <= br.length {
		br.val >>= wBits
		br.bitPos -= wBits
		br.val |= uint64(binary.LittleEndian.Uint32(br.buf[br.pos:])) << (lBits - wBits)
		br.pos += 4
		return
	}
	br.shiftBytes()
}

func (br *Reader) shiftBytes() {
	for br.bitPos >= 8 && br.pos < br.length {
		br.val >>= 8
		br.val |= uint64(br.buf[br.pos]) << (lBits - 8)
		br.pos++
		br.bitPos -= 8
	}
	if br.IsEndOfStream() {
		br.setEndOfStream()
	}
}

func (br *Reader) setEndOfStream() {
	br.eos = true
	br.bitPos = 0
}

// ReadBits reads nBits (0..24) and returns them as an unsigned value. Once
// the stream is exhausted it keeps returning 0 and sets the EOS flag —
// callers that need to distinguish "ran out of input" from "read a zero"
// must check IsEndOfStream after the read that matters.
func (br *Reader) ReadBits(nBits int) uint32 {
	if !br.eos && nBits >= 0 && nBits <= maxBitRead {
		val := br.PrefetchBits() & kBitMask[nBits]
		br.bitPos += nBits
		br.shiftBytes()
		return val
	}
	br.setEndOfStream()
	return 0
}

// ReadBit reads a single bit.
func (br *Reader) ReadBit() int {
	return int(br.ReadBits(1))
}

// PrefetchBits returns the next bits from val without advancing the
// position. Callers must call FillBitWindow first.
func (br *Reader) PrefetchBits() uint32 {
	return uint32(br.val >> uint(br.bitPos&(lBits-1)))
}

// SetBitPos overwrites the current bit position; used when a caller has
// inspected prefetched bits and wants to skip a known number of them.
func (br *Reader) SetBitPos(val int) {
	br.bitPos = val
}

// BitPos returns the current bit position inside the val register.
func (br *Reader) BitPos() int {
	return br.bitPos
}

// IsEndOfStream reports whether the reader has run past the end of the
// buffer.
func (br *Reader) IsEndOfStream() bool {
	limit := lBits
	if br.length < 8 {
		limit = 8 * br.length
	}
	return br.eos || (br.pos == br.length && br.bitPos > limit)
}

var kBitMask = [maxBitRead + 1]uint32{
	0x000000, 0x000001, 0x000003, 0x000007, 0x00000f,
	0x00001f, 0x00003f, 0x00007f, 0x0000ff, 0x0001ff,
	0x0003ff, 0x0007ff, 0x000fff, 0x001fff, 0x003fff,
	0x007fff, 0x00ffff, 0x01ffff, 0x03ffff, 0x07ffff,
	0x0fffff, 0x1fffff, 0x3fffff, 0x7fffff, 0xffffff,
}
