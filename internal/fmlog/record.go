// Package fmlog reads the structured lines the mission logger writes to
// the simulator log and folds them into per-variant test results.
package fmlog

import "fmt"

// Defaults used when a Parser field is empty.
const (
	DefaultSentinel   = "[MIG17_FM_TEST]"
	DefaultVariantKey = "FM0"
)

// RecordKind is the first token after the sentinel.
type RecordKind string

const (
	KindStart     RecordKind = "START"
	KindData      RecordKind = "DATA"
	KindSpeedGate RecordKind = "SPEED_GATE"
	KindAltGate   RecordKind = "ALT_GATE"
	KindVmax      RecordKind = "VMAX"
	KindSummary   RecordKind = "SUMMARY"
	KindCeiling   RecordKind = "CEILING"
	KindRunStart  RecordKind = "RUN_START"
	KindRunEnd    RecordKind = "RUN_END"
)

// Start is the group state when logging began. Absent keys stay nil.
type Start struct {
	AltFt    *float64
	SpdKt    *float64
	FuelKg   *float64
	FuelPct  *float64
	WeightKg *float64
}

// Sample is one periodic DATA line.
type Sample struct {
	ElapsedS float64
	AltFt    float64
	SpdKt    float64
	VspdFpm  float64
	Mach     float64
}

// SpeedGate is the first crossing of a speed threshold.
type SpeedGate struct {
	GateKt   float64
	ElapsedS float64
	AltFt    float64
}

// AltGate is the first crossing of an altitude threshold.
type AltGate struct {
	GateFt   float64
	ElapsedS float64
	ClimbFpm float64
}

// Vmax is a stabilised top speed.
type Vmax struct {
	SpdKt float64
	AltFt float64
	Mach  float64
}

// Summary is the end-of-run digest of one group.
type Summary struct {
	MaxSpdKt   float64
	MaxAltFt   float64
	MaxVspdFpm float64
	FuelStart  *float64
	FuelEnd    *float64
	FuelUsed   *float64
}

// Ceiling is a reached altitude with the climb rate left at it.
type Ceiling struct {
	AltFt  float64
	RocFpm float64
	Mach   float64
}

// Record is one parsed log line. Exactly one payload field matching Kind
// is set; run markers carry only RunID.
type Record struct {
	Kind    RecordKind
	Line    int
	Group   string
	Variant string
	Test    string
	RunID   string

	Start     *Start
	Data      *Sample
	SpeedGate *SpeedGate
	AltGate   *AltGate
	Vmax      *Vmax
	Summary   *Summary
	Ceiling   *Ceiling
}

// ParseError describes a sentinel line that could not be decoded.
type ParseError struct {
	Line   int
	Kind   RecordKind
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	what := "record"
	if e.Kind != "" {
		what = string(e.Kind) + " record"
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: malformed %s: %s", e.Line, what, e.Reason)
	}
	return fmt.Sprintf("malformed %s: %s", what, e.Reason)
}
