package fmlog

import (
	"sort"

	"github.com/vovakirdan/fmlab/internal/profile"
)

// GroupResult accumulates every record of one (variant, test) pair.
type GroupResult struct {
	Name    string
	Variant string
	Test    string

	StartAltFt    *float64
	StartSpdKt    *float64
	StartFuelKg   *float64
	StartFuelPct  *float64
	StartWeightKg *float64

	// Running maxima from DATA and SUMMARY lines; valid when HasMaxima.
	HasMaxima  bool
	Samples    int
	MaxSpdKt   float64
	MaxAltFt   float64
	MaxVspdFpm float64
	MaxMach    float64
	ElapsedS   float64

	SpeedGates []SpeedGate
	AltGates   []AltGate

	VmaxKt    *float64
	VmaxAltFt *float64
	VmaxMach  *float64

	CeilingAltFt  *float64
	CeilingRocFpm *float64
	CeilingMach   *float64

	EndFuelKg  *float64
	FuelUsedKg *float64
	Summarised bool
}

// TopSpeed is the stabilised VMAX if one was logged, else the running
// maximum.
func (g *GroupResult) TopSpeed() (float64, bool) {
	if g.VmaxKt != nil {
		return *g.VmaxKt, true
	}
	return g.MaxSpdKt, g.HasMaxima
}

func (g *GroupResult) observe(spd, alt, vspd float64) {
	if !g.HasMaxima {
		g.MaxSpdKt, g.MaxAltFt, g.MaxVspdFpm = spd, alt, vspd
		g.HasMaxima = true
		return
	}
	g.MaxSpdKt = max(g.MaxSpdKt, spd)
	g.MaxAltFt = max(g.MaxAltFt, alt)
	g.MaxVspdFpm = max(g.MaxVspdFpm, vspd)
}

func setIf(dst **float64, v *float64) {
	if v != nil {
		x := *v
		*dst = &x
	}
}

func ptr(v float64) *float64 { return &v }

// ResultTable maps variant key to test name to result.
type ResultTable struct {
	rows map[string]map[string]*GroupResult
}

// NewResultTable returns an empty table.
func NewResultTable() *ResultTable {
	return &ResultTable{rows: make(map[string]map[string]*GroupResult)}
}

// Aggregate folds records into a table. Records must be in log order for
// the last-write-wins fields to be meaningful.
func Aggregate(records []*Record) *ResultTable {
	t := NewResultTable()
	for _, r := range records {
		t.Add(r)
	}
	return t
}

func (t *ResultTable) group(r *Record) *GroupResult {
	tests, ok := t.rows[r.Variant]
	if !ok {
		tests = make(map[string]*GroupResult)
		t.rows[r.Variant] = tests
	}
	g, ok := tests[r.Test]
	if !ok {
		g = &GroupResult{Name: r.Group, Variant: r.Variant, Test: r.Test}
		tests[r.Test] = g
	}
	return g
}

// Add folds one record into the table. Run markers are ignored.
func (t *ResultTable) Add(r *Record) {
	if r == nil || r.Group == "" {
		return
	}
	g := t.group(r)

	switch {
	case r.Start != nil:
		s := r.Start
		setIf(&g.StartAltFt, s.AltFt)
		setIf(&g.StartSpdKt, s.SpdKt)
		setIf(&g.StartFuelKg, s.FuelKg)
		setIf(&g.StartFuelPct, s.FuelPct)
		setIf(&g.StartWeightKg, s.WeightKg)
	case r.Data != nil:
		d := r.Data
		g.observe(d.SpdKt, d.AltFt, d.VspdFpm)
		if g.Samples == 0 {
			g.MaxMach, g.ElapsedS = d.Mach, d.ElapsedS
		}
		g.MaxMach = max(g.MaxMach, d.Mach)
		g.ElapsedS = max(g.ElapsedS, d.ElapsedS)
		g.Samples++
	case r.SpeedGate != nil:
		g.SpeedGates = append(g.SpeedGates, *r.SpeedGate)
	case r.AltGate != nil:
		g.AltGates = append(g.AltGates, *r.AltGate)
	case r.Vmax != nil:
		v := r.Vmax
		if g.VmaxKt == nil || v.SpdKt > *g.VmaxKt {
			g.VmaxKt, g.VmaxAltFt, g.VmaxMach = ptr(v.SpdKt), ptr(v.AltFt), ptr(v.Mach)
		}
	case r.Ceiling != nil:
		c := r.Ceiling
		if g.CeilingAltFt == nil || c.AltFt > *g.CeilingAltFt {
			g.CeilingAltFt, g.CeilingRocFpm, g.CeilingMach = ptr(c.AltFt), ptr(c.RocFpm), ptr(c.Mach)
		}
	case r.Summary != nil:
		s := r.Summary
		g.observe(s.MaxSpdKt, s.MaxAltFt, s.MaxVspdFpm)
		setIf(&g.StartFuelKg, s.FuelStart)
		setIf(&g.EndFuelKg, s.FuelEnd)
		setIf(&g.FuelUsedKg, s.FuelUsed)
		g.Summarised = true
	}
}

// Put stores a result directly, replacing any previous one.
func (t *ResultTable) Put(g *GroupResult) {
	tests, ok := t.rows[g.Variant]
	if !ok {
		tests = make(map[string]*GroupResult)
		t.rows[g.Variant] = tests
	}
	tests[g.Test] = g
}

// Get returns the result for one pair.
func (t *ResultTable) Get(variant, test string) (*GroupResult, bool) {
	g, ok := t.rows[variant][test]
	return g, ok
}

// Variants returns the variant keys in sorted order.
func (t *ResultTable) Variants() []string {
	keys := make([]string, 0, len(t.rows))
	for k := range t.rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Tests returns a variant's results, catalogue profiles first in
// catalogue order, then any other tests by name.
func (t *ResultTable) Tests(variant string) []*GroupResult {
	tests := t.rows[variant]
	out := make([]*GroupResult, 0, len(tests))
	for _, g := range tests {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := profile.Index(out[i].Test), profile.Index(out[j].Test)
		switch {
		case a >= 0 && b >= 0:
			return a < b
		case a >= 0:
			return true
		case b >= 0:
			return false
		}
		return out[i].Test < out[j].Test
	})
	return out
}

// All returns every result, variants sorted, tests in report order.
func (t *ResultTable) All() []*GroupResult {
	var out []*GroupResult
	for _, v := range t.Variants() {
		out = append(out, t.Tests(v)...)
	}
	return out
}

// Len returns the number of (variant, test) pairs.
func (t *ResultTable) Len() int {
	n := 0
	for _, tests := range t.rows {
		n += len(tests)
	}
	return n
}
