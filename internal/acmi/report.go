package acmi

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/fmlab/internal/core"
)

const ruleWidth = 70

type reportStyles struct {
	title  lipgloss.Style
	head   lipgloss.Style
	status map[core.Status]lipgloss.Style
}

func newReportStyles(w io.Writer) reportStyles {
	r := lipgloss.NewRenderer(w)
	return reportStyles{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("229")),
		head:  r.NewStyle().Bold(true),
		status: map[core.Status]lipgloss.Style{
			core.StatusPass: r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
			core.StatusFail: r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		},
	}
}

// WriteEngagementReport writes the engagement results grouped by variant,
// followed by assessment counts.
func WriteEngagementReport(w io.Writer, results []EngagementResult) error {
	st := newReportStyles(w)
	var b strings.Builder
	heavy := strings.Repeat("=", ruleWidth)

	b.WriteString(heavy + "\n")
	b.WriteString(st.title.Render("BFM TEST ANALYSIS REPORT") + "\n")
	b.WriteString(heavy + "\n\n")

	byVariant := make(map[string][]EngagementResult)
	for _, r := range results {
		key := r.Variant
		if key == "" {
			key = "BASE"
		}
		byVariant[key] = append(byVariant[key], r)
	}
	variants := make([]string, 0, len(byVariant))
	for v := range byVariant {
		variants = append(variants, v)
	}
	sort.Strings(variants)

	for _, v := range variants {
		b.WriteString(st.head.Render("Variant: "+v) + "\n")
		b.WriteString(strings.Repeat("-", 40) + "\n")
		for _, r := range byVariant[v] {
			fmt.Fprintf(&b, "\n  Scenario: %s\n", r.ScenarioID)
			fmt.Fprintf(&b, "  Opponent: %s\n", r.OpponentType)
			fmt.Fprintf(&b, "  Assessment: %s\n", st.status[r.Assessment.Status()].Render(string(r.Assessment)))
			b.WriteString("  Turn Metrics:\n")
			fmt.Fprintf(&b, "    Max Turn Rate: %.1f deg/s\n", r.Turn.MaxRateDegS)
			fmt.Fprintf(&b, "    Avg Turn Rate: %.1f deg/s\n", r.Turn.AvgRateDegS)
			fmt.Fprintf(&b, "    Min Radius: %.0f ft\n", r.Turn.MinRadiusFt)
			b.WriteString("  Energy Metrics:\n")
			fmt.Fprintf(&b, "    Initial Speed: %.0f kt\n", r.Energy.InitialSpeedKt)
			fmt.Fprintf(&b, "    Min Speed: %.0f kt\n", r.Energy.MinSpeedKt)
			fmt.Fprintf(&b, "    Max Speed: %.0f kt\n", r.Energy.MaxSpeedKt)
			fmt.Fprintf(&b, "    Altitude Variation: %.0f ft\n", r.Energy.AltSpanFt)
			b.WriteString("  Maneuvering Metrics:\n")
			fmt.Fprintf(&b, "    Max G: %.1f\n", r.Maneuver.MaxG)
			fmt.Fprintf(&b, "    Max Bank: %.0f deg\n", r.Maneuver.MaxBankDeg)
			b.WriteString("  Engagement Metrics:\n")
			fmt.Fprintf(&b, "    Duration: %.1f s\n", r.Range.DurationS)
			fmt.Fprintf(&b, "    Initial Range: %.0f ft\n", r.Range.InitialRangeFt)
			fmt.Fprintf(&b, "    Min Range: %.0f ft\n", r.Range.MinRangeFt)
			if len(r.Notes) > 0 {
				b.WriteString("  Notes:\n")
				for _, n := range r.Notes {
					fmt.Fprintf(&b, "    - %s\n", n)
				}
			}
		}
		b.WriteString("\n")
	}

	counts := make(map[Assessment]int)
	for _, r := range results {
		counts[r.Assessment]++
	}
	b.WriteString(heavy + "\n")
	b.WriteString(st.head.Render("SUMMARY") + "\n")
	b.WriteString(heavy + "\n")
	fmt.Fprintf(&b, "Total Scenarios Analyzed: %d\n", len(results))
	fmt.Fprintf(&b, "  NOMINAL (within envelope): %d\n", counts[Nominal])
	fmt.Fprintf(&b, "  UNDER (below expected): %d\n", counts[Under])
	fmt.Fprintf(&b, "  OVER (exceeds expected): %d\n", counts[Over])

	_, err := io.WriteString(w, b.String())
	return err
}

// EngagementHeader is the CSV header of WriteEngagementCSV.
func EngagementHeader() []string {
	return []string{
		"variant", "scenario_id", "opponent_type", "envelope_assessment",
		"max_turn_rate_deg_s", "avg_turn_rate_deg_s", "min_turn_radius_ft",
		"initial_speed_kt", "min_speed_kt", "max_speed_kt", "altitude_variation_ft",
		"max_g", "max_bank_deg", "duration_s", "initial_range_ft", "min_range_ft",
	}
}

// WriteEngagementCSV writes one row per engagement.
func WriteEngagementCSV(w io.Writer, results []EngagementResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(EngagementHeader()); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.Variant, r.ScenarioID, r.OpponentType, string(r.Assessment),
			f1(r.Turn.MaxRateDegS), f1(r.Turn.AvgRateDegS), f0(r.Turn.MinRadiusFt),
			f0(r.Energy.InitialSpeedKt), f0(r.Energy.MinSpeedKt), f0(r.Energy.MaxSpeedKt), f0(r.Energy.AltSpanFt),
			f1(r.Maneuver.MaxG), f0(r.Maneuver.MaxBankDeg),
			f1(r.Range.DurationS), f0(r.Range.InitialRangeFt), f0(r.Range.MinRangeFt),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func f0(v float64) string { return fmt.Sprintf("%.0f", v) }
func f1(v float64) string { return fmt.Sprintf("%.1f", v) }

// opt formats an optional value, empty when missing.
func opt(p *float64) string {
	if p == nil {
		return ""
	}
	return fmt.Sprint(*p)
}

// WriteEnvelopeReport writes the thresholds and one block per flight.
func WriteEnvelopeReport(w io.Writer, env Envelope, flights []FlightMetrics) error {
	st := newReportStyles(w)
	var b strings.Builder

	fmt.Fprintf(&b, "Analyzed %d object(s).\n", len(flights))
	b.WriteString(st.head.Render("Envelope thresholds:") + "\n")
	fmt.Fprintf(&b, "  Sustained TR: %.1f-%.1f deg/s\n", env.SustainedMin, env.SustainedMax)
	fmt.Fprintf(&b, "  Instantaneous TR: %.1f-%.1f deg/s\n", env.InstantaneousMin, env.InstantaneousMax)
	fmt.Fprintf(&b, "  Corner speed: %.0f kt\n", env.CornerSpeedKt)
	fmt.Fprintf(&b, "  Min turn radius: %.0f ft\n", env.MinTurnRadiusFt)
	fmt.Fprintf(&b, "  Max G: %.1f (warning at %.1f)\n\n", env.GMax, env.GWarning)

	for _, m := range flights {
		b.WriteString(strings.Repeat("=", 72) + "\n")
		fmt.Fprintf(&b, "Object %s: name='%s', type='%s', group='%s'\n", m.ObjectID, m.Name, m.Type, m.Group)
		fmt.Fprintf(&b, "  Time: %.1f-%.1f s (duration %.1f s)\n", m.TimeStart, m.TimeEnd, m.DurationS)
		fmt.Fprintf(&b, "  Speed: %.1f-%.1f kt, Alt: %.0f-%.0f ft (span %.0f ft)\n",
			m.MinSpeedKt, m.MaxSpeedKt, m.MinAltFt, m.MaxAltFt, m.AltSpanFt)
		fmt.Fprintf(&b, "  Max inst TR: %.2f deg/s @ %.1f kt, %.0f ft, %.2f g [%s]\n",
			m.MaxInstRateDegS, m.SpeedAtMaxKt, m.AltAtMaxFt, m.GAtMax, m.Inst)
		if m.SustainedRateDegS > 0 {
			fmt.Fprintf(&b, "  Best sustained TR: %.2f deg/s over %.2f s @ ~%.1f kt, ~%.2f g [%s]\n",
				m.SustainedRateDegS, m.SustainedWindowS, deref(m.SustainedSpeedKt), deref(m.SustainedG), m.Sust)
		} else {
			b.WriteString("  Best sustained TR: N/A [no qualifying turn segments]\n")
		}
		if m.MinTurnRadiusFt != nil {
			fmt.Fprintf(&b, "  Min turn radius: %.0f ft [%s]\n", *m.MinTurnRadiusFt, m.Radius)
		} else {
			b.WriteString("  Min turn radius: N/A\n")
		}
		fmt.Fprintf(&b, "  Max G: %.2f g [%s]\n", m.MaxG, m.G)

		status := core.StatusPass
		if m.OverallStatus != WithinOrMixed {
			status = core.StatusFail
		}
		fmt.Fprintf(&b, "  Overall envelope assessment: %s\n\n", st.status[status].Render(m.OverallStatus))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// EnvelopeHeader is the CSV header of WriteEnvelopeCSV.
func EnvelopeHeader() []string {
	return []string{
		"object_id", "name", "type", "group",
		"time_start", "time_end", "duration_s",
		"min_speed_kt", "max_speed_kt", "min_alt_ft", "max_alt_ft", "alt_span_ft",
		"max_inst_tr_deg_s", "speed_at_max_tr_kt", "alt_at_max_tr_ft", "g_at_max_tr",
		"best_sustained_tr_deg_s", "sustained_window_s", "sustained_speed_kt", "sustained_g",
		"min_turn_radius_ft", "max_g",
		"inst_status", "sust_status", "g_status", "radius_status", "overall_status",
	}
}

// WriteEnvelopeCSV writes one row per analysed flight. Missing optional
// values are empty cells.
func WriteEnvelopeCSV(w io.Writer, flights []FlightMetrics) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(EnvelopeHeader()); err != nil {
		return err
	}
	num := func(v float64) string { return fmt.Sprint(v) }
	for _, m := range flights {
		row := []string{
			m.ObjectID, m.Name, m.Type, m.Group,
			num(m.TimeStart), num(m.TimeEnd), num(m.DurationS),
			num(m.MinSpeedKt), num(m.MaxSpeedKt), num(m.MinAltFt), num(m.MaxAltFt), num(m.AltSpanFt),
			num(m.MaxInstRateDegS), num(m.SpeedAtMaxKt), num(m.AltAtMaxFt), num(m.GAtMax),
			num(m.SustainedRateDegS), num(m.SustainedWindowS), opt(m.SustainedSpeedKt), opt(m.SustainedG),
			opt(m.MinTurnRadiusFt), num(m.MaxG),
			string(m.Inst), string(m.Sust), string(m.G), string(m.Radius), m.OverallStatus,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
