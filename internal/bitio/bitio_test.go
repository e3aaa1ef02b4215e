package bitio

import "testing"

func TestWriterReaderRoundTrip(t *testing.T) {
	bw := NewWriter(16)
	vals := []struct {
		v     uint32
		nBits int
	}{
		{1, 1},
		{0, 1},
		{0x2f, 8},
		{0x3fff, 14},
		{0, 14},
		{7, 3},
		{0xffffff, 24},
	}
	for _, c := range vals {
		bw.WriteBits(c.v, c.nBits)
	}
	data := bw.Finish()

	br := NewReader(data)
	for _, c := range vals {
		br.FillBitWindow()
		got := br.ReadBits(c.nBits)
		if got != c.v {
			t.Fatalf("ReadBits(%d) = %d, want %d", c.nBits, got, c.v)
		}
	}
}

func TestWriterFinishFlushesPartialByte(t *testing.T) {
	bw := NewWriter(16)
	bw.WriteBits(1, 1)
	data := bw.Finish()
	if len(data) != 1 {
		t.Fatalf("len(data) = %d, want 1", len(data))
	}
	if data[0] != 1 {
		t.Fatalf("data[0] = %d, want 1", data[0])
	}
}

func TestReaderEndOfStream(t *testing.T) {
	br := NewReader([]byte{0x01})
	br.FillBitWindow()
	br.ReadBits(8)
	br.FillBitWindow()
	br.ReadBits(8)
	if !br.IsEndOfStream() {
		t.Fatalf("expected end of stream after reading past buffer")
	}
}

func TestNumBits(t *testing.T) {
	bw := NewWriter(16)
	bw.WriteBits(1, 5)
	bw.WriteBits(1, 10)
	if bw.NumBits() != 15 {
		t.Fatalf("NumBits() = %d, want 15", bw.NumBits())
	}
}
