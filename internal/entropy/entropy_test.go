package entropy

import (
	"math/rand"
	"testing"

	"github.com/siddharths2710/gcif/internal/bitio"
)

func TestBuildDecodeTableRoundTrip(t *testing.T) {
	hist := make([]uint32, PlainAlphabetSize)
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		hist[r.Intn(len(hist))]++
	}

	table, err := BuildTable(hist)
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}

	w := bitio.NewWriter(256)
	var symbols []int
	for sym, count := range hist {
		for n := uint32(0); n < count; n++ {
			table.Encode(w, sym)
			symbols = append(symbols, sym)
		}
	}
	data := w.Finish()

	rd := bitio.NewReader(data)
	for _, want := range symbols {
		rd.FillBitWindow()
		got, err := table.Decode1(rd)
		if err != nil {
			t.Fatalf("Decode1: %v", err)
		}
		if got != want {
			t.Fatalf("decoded %d, want %d", got, want)
		}
	}
}

func TestBuildDecodeTableSingleSymbol(t *testing.T) {
	hist := make([]uint32, 8)
	hist[3] = 50
	table, err := BuildTable(hist)
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	w := bitio.NewWriter(16)
	table.Encode(w, 3)
	data := w.Finish()
	rd := bitio.NewReader(data)
	rd.FillBitWindow()
	got, err := table.Decode1(rd)
	if err != nil {
		t.Fatalf("Decode1: %v", err)
	}
	if got != 3 {
		t.Fatalf("got %d, want 3", got)
	}
}

func TestBuildDecodeTableEmptyHistogramErrors(t *testing.T) {
	hist := make([]uint32, 8)
	if _, err := BuildTable(hist); err == nil {
		t.Fatalf("expected error for all-zero histogram")
	}
}

func TestCanonicalCodesAreShorterForMoreFrequentSymbols(t *testing.T) {
	hist := []uint32{1, 1000, 1, 1}
	tree := BuildTree(hist, MaxCodeLength)
	for i := range hist {
		if i == 1 {
			continue
		}
		if tree.CodeLengths[1] > tree.CodeLengths[i] {
			t.Fatalf("frequent symbol 1 has longer code (%d) than rare symbol %d (%d)",
				tree.CodeLengths[1], i, tree.CodeLengths[i])
		}
	}
}

func TestCodeLengthLimitRespected(t *testing.T) {
	hist := make([]uint32, 64)
	hist[0] = 1 << 20
	for i := 1; i < len(hist); i++ {
		hist[i] = 1
	}
	tree := BuildTree(hist, 6)
	for i, l := range tree.CodeLengths {
		if int(l) > 6 {
			t.Fatalf("symbol %d has code length %d, exceeds limit 6", i, l)
		}
	}
}

func TestLZLengthSymbolRoundTrip(t *testing.T) {
	for length := 2; length <= MaxLZLength; length++ {
		sym, extra, bits := LZLengthSymbol(length)
		if extra >= (1 << bits) {
			t.Fatalf("length %d: extra %d overflows %d bits", length, extra, bits)
		}
		got := LZLengthFromSymbol(sym, extra)
		if got != length {
			t.Fatalf("length %d round-tripped to %d via symbol %d extra %d", length, got, sym, extra)
		}
	}
}

func TestZRLRunSymbolRoundTrip(t *testing.T) {
	for run := 1; run <= MaxZRLRun; run++ {
		sym, extra, bits := ZRLRunSymbol(run)
		if extra >= (1 << bits) {
			t.Fatalf("run %d: extra %d overflows %d bits", run, extra, bits)
		}
		got := ZRLRunFromSymbol(sym, extra)
		if got != run {
			t.Fatalf("run %d round-tripped to %d via symbol %d extra %d", run, got, sym, extra)
		}
	}
}

func TestBankWriteReadRoundTrip(t *testing.T) {
	const k = 3
	hgrams := NewHistograms(k, true)
	r := rand.New(rand.NewSource(2))
	for bin := 0; bin < k; bin++ {
		for i := 0; i < 500; i++ {
			hgrams.Add(bin, r.Intn(YAlphabetSize))
		}
	}
	bank, err := hgrams.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	w := bitio.NewWriter(1024)
	WriteBank(w, bank)
	data := w.Finish()

	rd := bitio.NewReader(data)
	got, err := ReadBank(rd, k, YAlphabetSize, true)
	if err != nil {
		t.Fatalf("ReadBank: %v", err)
	}
	for bin := 0; bin < k; bin++ {
		for sym := 0; sym < YAlphabetSize; sym++ {
			if got.Tables[bin].Tree.CodeLengths[sym] != bank.Tables[bin].Tree.CodeLengths[sym] {
				t.Fatalf("bin %d symbol %d: code length mismatch after round trip", bin, sym)
			}
		}
	}
}

func TestChooseKPrefersBetterModelingWhenCheaper(t *testing.T) {
	skewed := NewHistograms(1, false)
	for i := 0; i < 1000; i++ {
		skewed.Add(0, 0)
	}

	uniform := NewHistograms(4, false)
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 1000; i++ {
		uniform.Add(r.Intn(4), r.Intn(PlainAlphabetSize))
	}

	best := ChooseK([]*Histograms{skewed, uniform})
	if best != 0 {
		t.Fatalf("ChooseK picked %d, expected the single all-zero bin to win on an all-zero stream", best)
	}
}
