package report

import (
	"strconv"

	"github.com/vovakirdan/fmlab/internal/fmlog"
)

// column is one field of the tabular formats. value returns nil when the
// group has no data for it.
type column struct {
	name  string
	value func(g *fmlog.GroupResult) any
}

func opt(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func maxima(g *fmlog.GroupResult, v float64) any {
	if !g.HasMaxima {
		return nil
	}
	return v
}

// columns is the fixed layout shared by csv, xlsx and json.
var columns = []column{
	{"variant", func(g *fmlog.GroupResult) any { return g.Variant }},
	{"test", func(g *fmlog.GroupResult) any { return g.Test }},
	{"group_name", func(g *fmlog.GroupResult) any { return g.Name }},
	{"start_alt_ft", func(g *fmlog.GroupResult) any { return opt(g.StartAltFt) }},
	{"start_spd_kt", func(g *fmlog.GroupResult) any { return opt(g.StartSpdKt) }},
	{"start_fuel_kg", func(g *fmlog.GroupResult) any { return opt(g.StartFuelKg) }},
	{"start_fuel_pct", func(g *fmlog.GroupResult) any { return opt(g.StartFuelPct) }},
	{"start_weight_kg", func(g *fmlog.GroupResult) any { return opt(g.StartWeightKg) }},
	{"samples", func(g *fmlog.GroupResult) any { return g.Samples }},
	{"max_spd_kt", func(g *fmlog.GroupResult) any { return maxima(g, g.MaxSpdKt) }},
	{"max_alt_ft", func(g *fmlog.GroupResult) any { return maxima(g, g.MaxAltFt) }},
	{"max_vspd_fpm", func(g *fmlog.GroupResult) any { return maxima(g, g.MaxVspdFpm) }},
	{"max_mach", func(g *fmlog.GroupResult) any {
		if g.Samples == 0 {
			return nil
		}
		return g.MaxMach
	}},
	{"elapsed_s", func(g *fmlog.GroupResult) any {
		if g.Samples == 0 {
			return nil
		}
		return g.ElapsedS
	}},
	{"vmax_kt", func(g *fmlog.GroupResult) any { return opt(g.VmaxKt) }},
	{"vmax_alt_ft", func(g *fmlog.GroupResult) any { return opt(g.VmaxAltFt) }},
	{"vmax_mach", func(g *fmlog.GroupResult) any { return opt(g.VmaxMach) }},
	{"ceiling_alt_ft", func(g *fmlog.GroupResult) any { return opt(g.CeilingAltFt) }},
	{"ceiling_roc_fpm", func(g *fmlog.GroupResult) any { return opt(g.CeilingRocFpm) }},
	{"ceiling_mach", func(g *fmlog.GroupResult) any { return opt(g.CeilingMach) }},
	{"end_fuel_kg", func(g *fmlog.GroupResult) any { return opt(g.EndFuelKg) }},
	{"fuel_used_kg", func(g *fmlog.GroupResult) any { return opt(g.FuelUsedKg) }},
	{"speed_gates", func(g *fmlog.GroupResult) any { return len(g.SpeedGates) }},
	{"alt_gates", func(g *fmlog.GroupResult) any { return len(g.AltGates) }},
}

// Header returns the column names of the tabular formats.
func Header() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.name
	}
	return out
}

func values(g *fmlog.GroupResult) []any {
	out := make([]any, len(columns))
	for i, c := range columns {
		out[i] = c.value(g)
	}
	return out
}

func formatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
