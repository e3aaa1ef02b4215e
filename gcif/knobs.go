package gcif

import "github.com/siddharths2710/gcif/internal/tileplan"

// Knobs bundles the encoder's tunable thresholds (§6), mirroring
// internal/lossless/encode.go's EncoderConfig/DefaultEncoderConfig
// plain-struct-plus-constructor idiom.
type Knobs struct {
	// SympalThresh is the fraction of tiles that must share a uniform
	// value for a palette filter to be added (§4.2 step 5).
	SympalThresh float64
	// FilterThresh is the coverage fraction sufficient to stop adding
	// candidate filters during shortlisting (§4.2 step 2).
	FilterThresh float64
	// AwardCount and Awards describe the per-rank vote-weight schedule
	// the tile planner's shortlisting pass uses (§4.2 step 2). The
	// planner currently applies its own fixed geometric decay
	// (weight, weight/2, weight/4, ...) rather than reading these
	// fields; like MonoRevisitCount, they exist for §6 API parity and
	// are reserved for threading through once a caller needs a
	// non-default schedule.
	AwardCount int
	Awards     []float64
	// MonoRevisitCount bounds the monochrome sub-engine's and tile
	// planner's revisit loops. The planner and sub-engine currently pin
	// this to a compile-time MaxPasses=4 (§4.2 step 4's literal value);
	// this field exists for §6 API parity and is reserved for threading
	// through once a scenario needs to vary it at runtime.
	MonoRevisitCount int
	// LZEnable toggles whether the LZ subsystem participates in Y
	// channel encoding.
	LZEnable bool
	// MinBits, MaxBits bound the tile-edge search range (edge = 2^B).
	MinBits, MaxBits int
}

// DefaultKnobs returns the configuration this module exercises in its
// own tests.
func DefaultKnobs() Knobs {
	awards := make([]float64, 8)
	w := 1.0
	for i := range awards {
		awards[i] = w
		w /= 2
	}
	return Knobs{
		SympalThresh:     0.5,
		FilterThresh:     0.8,
		AwardCount:       len(awards),
		Awards:           awards,
		MonoRevisitCount: 4,
		LZEnable:         true,
		MinBits:          tileplan.MinB,
		MaxBits:          tileplan.MaxB,
	}
}

func (k Knobs) valid() bool {
	if k.SympalThresh < 0 || k.SympalThresh > 1 {
		return false
	}
	if k.FilterThresh < 0 || k.FilterThresh > 1 {
		return false
	}
	if k.MinBits < 1 || k.MaxBits < k.MinBits {
		return false
	}
	return true
}
