package fmlog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vovakirdan/fmlab/internal/profile"
)

// Parser recognises structured lines by their sentinel.
type Parser struct {
	Sentinel       string
	DefaultVariant string
}

// NewParser returns a parser with empty arguments replaced by defaults.
func NewParser(sentinel, defaultVariant string) *Parser {
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	if defaultVariant == "" {
		defaultVariant = DefaultVariantKey
	}
	return &Parser{Sentinel: sentinel, DefaultVariant: defaultVariant}
}

// SplitGroupName splits a group name on its first underscore into variant
// key and test name. Names without an underscore, and legacy names whose
// first token is a profile family, belong to the default variant.
func SplitGroupName(group string) (variant, test string) {
	return splitGroup(group, DefaultVariantKey)
}

func splitGroup(group, defaultVariant string) (string, string) {
	variant, test, ok := strings.Cut(group, "_")
	if !ok || profile.IsFamily(variant) {
		return defaultVariant, group
	}
	return variant, test
}

// ParseLine decodes one log line. Lines without the sentinel, and
// informational sentinel lines that are not records, yield nil, nil.
// The sentinel may follow the simulator's own timestamp and level prefix.
func (p *Parser) ParseLine(line string) (*Record, error) {
	sentinel := p.Sentinel
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	idx := strings.Index(line, sentinel)
	if idx < 0 {
		return nil, nil
	}
	payload := strings.TrimSpace(line[idx+len(sentinel):])

	fields := strings.Split(payload, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	kind := RecordKind(fields[0])
	args := fields[1:]

	switch kind {
	case KindRunStart, KindRunEnd:
		if len(args) != 1 || args[0] == "" {
			return nil, p.fail(kind, payload, "expected a run id")
		}
		return &Record{Kind: kind, RunID: args[0]}, nil
	case KindStart, KindData, KindSpeedGate, KindAltGate, KindVmax, KindSummary, KindCeiling:
	default:
		if recordLike(fields) {
			return nil, p.fail(kind, payload, "unknown record kind")
		}
		return nil, nil
	}

	if len(args) == 0 || args[0] == "" {
		return nil, p.fail(kind, payload, "missing group name")
	}
	rec := &Record{Kind: kind, Group: args[0]}
	rec.Variant, rec.Test = splitGroup(rec.Group, p.variant())
	args = args[1:]

	var err error
	switch kind {
	case KindStart:
		rec.Start, err = parseStart(args)
	case KindData:
		var v []float64
		if v, err = numbers(args, 5); err == nil {
			rec.Data = &Sample{ElapsedS: v[0], AltFt: v[1], SpdKt: v[2], VspdFpm: v[3], Mach: v[4]}
		}
	case KindSpeedGate:
		var v []float64
		if v, err = numbers(args, 3); err == nil {
			rec.SpeedGate = &SpeedGate{GateKt: v[0], ElapsedS: v[1], AltFt: v[2]}
		}
	case KindAltGate:
		var v []float64
		if v, err = numbers(args, 3); err == nil {
			rec.AltGate = &AltGate{GateFt: v[0], ElapsedS: v[1], ClimbFpm: v[2]}
		}
	case KindVmax:
		var v []float64
		if v, err = numbers(args, 3); err == nil {
			rec.Vmax = &Vmax{SpdKt: v[0], AltFt: v[1], Mach: v[2]}
		}
	case KindCeiling:
		var v []float64
		if v, err = numbers(args, 3); err == nil {
			rec.Ceiling = &Ceiling{AltFt: v[0], RocFpm: v[1], Mach: v[2]}
		}
	case KindSummary:
		rec.Summary, err = parseSummary(args)
	}
	if err != nil {
		return nil, p.fail(kind, payload, err.Error())
	}
	return rec, nil
}

// recordLike reports whether fields look like a record with a kind this
// parser does not know: an upper-case identifier followed by values, or a
// bare prefix of a known kind cut off mid-line.
func recordLike(fields []string) bool {
	head := fields[0]
	if !kindPattern.MatchString(head) {
		return false
	}
	if len(fields) > 1 {
		return true
	}
	for _, k := range knownKinds {
		if strings.HasPrefix(string(k), head) {
			return true
		}
	}
	return false
}

var (
	kindPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
	knownKinds  = []RecordKind{KindRunStart, KindRunEnd, KindStart, KindData, KindSpeedGate, KindAltGate, KindVmax, KindSummary, KindCeiling}
)

func (p *Parser) variant() string {
	if p.DefaultVariant == "" {
		return DefaultVariantKey
	}
	return p.DefaultVariant
}

func (p *Parser) fail(kind RecordKind, text, reason string) *ParseError {
	return &ParseError{Kind: kind, Text: text, Reason: reason}
}

func numbers(args []string, want int) ([]float64, error) {
	if len(args) != want {
		return nil, fmt.Errorf("expected %d values, got %d", want, len(args))
	}
	out := make([]float64, want)
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("value %d %q is not a number", i+1, a)
		}
		out[i] = v
	}
	return out, nil
}

// keyValues decodes key=value pairs. Keys outside known are skipped.
func keyValues(args []string, known map[string]**float64) error {
	for _, a := range args {
		key, raw, ok := strings.Cut(a, "=")
		if !ok {
			return fmt.Errorf("%q is not key=value", a)
		}
		dst, ok := known[strings.TrimSpace(key)]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", key, raw)
		}
		*dst = &v
	}
	return nil
}

func parseStart(args []string) (*Start, error) {
	s := &Start{}
	err := keyValues(args, map[string]**float64{
		"alt":       &s.AltFt,
		"spd":       &s.SpdKt,
		"fuel_kg":   &s.FuelKg,
		"fuel_pct":  &s.FuelPct,
		"weight_kg": &s.WeightKg,
	})
	return s, err
}

func parseSummary(args []string) (*Summary, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("expected at least 3 values, got %d", len(args))
	}
	v, err := numbers(args[:3], 3)
	if err != nil {
		return nil, err
	}
	s := &Summary{MaxSpdKt: v[0], MaxAltFt: v[1], MaxVspdFpm: v[2]}
	err = keyValues(args[3:], map[string]**float64{
		"fuel_start": &s.FuelStart,
		"fuel_end":   &s.FuelEnd,
		"fuel_used":  &s.FuelUsed,
	})
	return s, err
}
