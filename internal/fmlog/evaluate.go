package fmlog

import (
	"math"

	"github.com/vovakirdan/fmlab/internal/config"
	"github.com/vovakirdan/fmlab/internal/core"
)

// CheckTolerance reports whether measured lies within pct percent of
// target. A zero target only accepts a zero measurement.
func CheckTolerance(measured, target, pct float64) bool {
	if target == 0 {
		return measured == 0
	}
	return math.Abs(measured-target) <= math.Abs(target)*pct/100
}

// Targets are the historical figures a variant is judged against.
type Targets struct {
	VmaxSLKt     float64
	Vmax10KKt    float64
	RocFpm       float64
	CeilingFt    float64
	TolerancePct float64
}

// DefaultTargets returns the published MiG-17F figures.
func DefaultTargets() Targets {
	return TargetsFromSettings(config.DefaultSettings().Targets)
}

// TargetsFromSettings converts the settings section.
func TargetsFromSettings(s config.TargetSettings) Targets {
	return Targets{
		VmaxSLKt:     s.VmaxSLKt,
		Vmax10KKt:    s.Vmax10KKt,
		RocFpm:       s.RocFpm,
		CeilingFt:    s.CeilingFt,
		TolerancePct: s.TolerancePct,
	}
}

// Check is one comparison of a measured metric against its target.
type Check struct {
	Name     string
	Test     string
	Unit     string
	Target   float64
	Measured float64
	HasData  bool
	Status   core.Status
}

// DeltaPct is the signed deviation from target in percent.
func (c Check) DeltaPct() float64 {
	if !c.HasData || c.Target == 0 {
		return 0
	}
	return (c.Measured - c.Target) / c.Target * 100
}

// Evaluation holds a variant's checks.
type Evaluation struct {
	Variant string
	Checks  []Check
	Status  core.Status
}

// Verdict covers the whole table.
type Verdict struct {
	Targets  Targets
	Variants []Evaluation
	Overall  core.Status
}

func (t Targets) judge(c Check) Check {
	if !c.HasData {
		c.Status = core.StatusNoData
		return c
	}
	if CheckTolerance(c.Measured, c.Target, t.TolerancePct) {
		c.Status = core.StatusPass
	} else {
		c.Status = core.StatusFail
	}
	return c
}

func topSpeed(table *ResultTable, variant, test string) (float64, bool) {
	g, ok := table.Get(variant, test)
	if !ok {
		return 0, false
	}
	return g.TopSpeed()
}

func climbRate(table *ResultTable, variant string) (float64, bool) {
	g, ok := table.Get(variant, "CLIMB_SL")
	if !ok || !g.HasMaxima {
		return 0, false
	}
	return g.MaxVspdFpm, true
}

func ceiling(table *ResultTable, variant string) (float64, bool) {
	best, found := 0.0, false
	for _, g := range table.Tests(variant) {
		if g.CeilingAltFt != nil && (!found || *g.CeilingAltFt > best) {
			best, found = *g.CeilingAltFt, true
		}
	}
	return best, found
}

// Evaluate compares every variant against targets. A variant passes when
// at least one check has data and none fails.
func Evaluate(table *ResultTable, targets Targets) Verdict {
	v := Verdict{Targets: targets, Overall: core.StatusNoData}
	for _, variant := range table.Variants() {
		ev := Evaluation{Variant: variant, Status: core.StatusNoData}

		checks := []Check{
			{Name: "Vmax at sea level", Test: "VMAX_SL", Unit: "kt", Target: targets.VmaxSLKt},
			{Name: "Vmax at 10,000 ft", Test: "VMAX_10K", Unit: "kt", Target: targets.Vmax10KKt},
			{Name: "Rate of climb at sea level", Test: "CLIMB_SL", Unit: "fpm", Target: targets.RocFpm},
			{Name: "Service ceiling", Test: "CEILING", Unit: "ft", Target: targets.CeilingFt},
		}
		checks[0].Measured, checks[0].HasData = topSpeed(table, variant, "VMAX_SL")
		checks[1].Measured, checks[1].HasData = topSpeed(table, variant, "VMAX_10K")
		checks[2].Measured, checks[2].HasData = climbRate(table, variant)
		checks[3].Measured, checks[3].HasData = ceiling(table, variant)

		for _, c := range checks {
			c = targets.judge(c)
			ev.Checks = append(ev.Checks, c)
			ev.Status = core.Merge(ev.Status, c.Status)
		}
		v.Variants = append(v.Variants, ev)
		v.Overall = core.Merge(v.Overall, ev.Status)
	}
	return v
}

// Variant returns the evaluation of one variant.
func (v Verdict) Variant(key string) (Evaluation, bool) {
	for _, ev := range v.Variants {
		if ev.Variant == key {
			return ev, true
		}
	}
	return Evaluation{}, false
}
