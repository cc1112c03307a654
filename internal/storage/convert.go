package storage

import "github.com/vovakirdan/fmlab/internal/fmlog"

// FromGroup flattens an aggregated group into a storable result.
func FromGroup(runID string, g *fmlog.GroupResult) Result {
	r := Result{
		RunID:        runID,
		Variant:      g.Variant,
		Test:         g.Test,
		GroupName:    g.Name,
		Samples:      g.Samples,
		VmaxKt:       g.VmaxKt,
		CeilingAltFt: g.CeilingAltFt,
		FuelUsedKg:   g.FuelUsedKg,
	}
	if g.HasMaxima {
		spd, alt, vspd := g.MaxSpdKt, g.MaxAltFt, g.MaxVspdFpm
		r.MaxSpdKt, r.MaxAltFt, r.MaxVspdFpm = &spd, &alt, &vspd
	}
	return r
}

// Group rebuilds the aggregated view of a stored result. Fields the
// store does not keep are left empty.
func (r Result) Group() *fmlog.GroupResult {
	g := &fmlog.GroupResult{
		Name:         r.GroupName,
		Variant:      r.Variant,
		Test:         r.Test,
		Samples:      r.Samples,
		VmaxKt:       r.VmaxKt,
		CeilingAltFt: r.CeilingAltFt,
		FuelUsedKg:   r.FuelUsedKg,
		Summarised:   r.FuelUsedKg != nil,
	}
	if r.MaxSpdKt != nil && r.MaxAltFt != nil && r.MaxVspdFpm != nil {
		g.HasMaxima = true
		g.MaxSpdKt, g.MaxAltFt, g.MaxVspdFpm = *r.MaxSpdKt, *r.MaxAltFt, *r.MaxVspdFpm
	}
	return g
}

// Table rebuilds a result table from stored rows.
func Table(results []Result) *fmlog.ResultTable {
	t := fmlog.NewResultTable()
	for _, r := range results {
		t.Put(r.Group())
	}
	return t
}
