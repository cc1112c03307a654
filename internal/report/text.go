package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/fmlab/internal/core"
	"github.com/vovakirdan/fmlab/internal/fmlog"
	"github.com/vovakirdan/fmlab/internal/registry"
)

const ruleWidth = 70

func init() {
	registry.Register(FormatText, func() registry.Renderer { return textRenderer{} })
}

// textRenderer writes the human-readable report. Colour is only emitted
// when the destination is a terminal.
type textRenderer struct{}

func (textRenderer) Format() string { return FormatText }

func (textRenderer) Description() string { return "plain text report with a section per variant" }

type textStyles struct {
	title  lipgloss.Style
	head   lipgloss.Style
	dim    lipgloss.Style
	status map[core.Status]lipgloss.Style
}

func newTextStyles(w io.Writer) textStyles {
	r := lipgloss.NewRenderer(w)
	return textStyles{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("229")),
		head:  r.NewStyle().Bold(true),
		dim:   r.NewStyle().Foreground(lipgloss.Color("241")),
		status: map[core.Status]lipgloss.Style{
			core.StatusPass:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
			core.StatusFail:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
			core.StatusNoData: r.NewStyle().Foreground(lipgloss.Color("245")),
		},
	}
}

func (textRenderer) Render(w io.Writer, in registry.Input) error {
	st := newTextStyles(w)
	var b strings.Builder

	heavy := strings.Repeat("=", ruleWidth)
	light := strings.Repeat("-", ruleWidth)

	b.WriteString(heavy + "\n")
	b.WriteString(st.title.Render(in.Title) + "\n")
	b.WriteString(heavy + "\n")
	if in.RunID != "" {
		state := "incomplete"
		if in.Complete {
			state = "complete"
		}
		fmt.Fprintf(&b, "Run ID: %s (%s)\n", in.RunID, state)
	}
	variants := in.Table.Variants()
	if len(variants) > 1 {
		fmt.Fprintf(&b, "Multi-FM Mode: %d variants (%s)\n", len(variants), strings.Join(variants, ", "))
	}
	b.WriteString("\n")

	t := in.Verdict.Targets
	b.WriteString(st.head.Render(fmt.Sprintf("Historical Performance Targets (tolerance %g%%)", t.TolerancePct)) + "\n")
	fmt.Fprintf(&b, "  %-28s %8.0f kt\n", "Vmax at sea level", t.VmaxSLKt)
	fmt.Fprintf(&b, "  %-28s %8.0f kt\n", "Vmax at 10,000 ft", t.Vmax10KKt)
	fmt.Fprintf(&b, "  %-28s %8.0f fpm\n", "Rate of climb at sea level", t.RocFpm)
	fmt.Fprintf(&b, "  %-28s %8.0f ft\n", "Service ceiling", t.CeilingFt)

	for _, ev := range in.Verdict.Variants {
		b.WriteString("\n" + light + "\n")
		b.WriteString(st.head.Render("Variant "+ev.Variant) + "\n")
		b.WriteString(light + "\n")

		for _, g := range in.Table.Tests(ev.Variant) {
			writeGroup(&b, st, g)
		}

		b.WriteString("\n  Checks\n")
		for _, c := range ev.Checks {
			measured := "-"
			delta := ""
			if c.HasData {
				measured = fmt.Sprintf("%.1f", c.Measured)
				delta = fmt.Sprintf("%+.1f%%", c.DeltaPct())
			}
			fmt.Fprintf(&b, "    %-28s %9s / %-6.0f %-3s %7s  %s\n",
				c.Name, measured, c.Target, c.Unit, delta, st.status[c.Status].Render(c.Status.String()))
		}
		fmt.Fprintf(&b, "  Variant result: %s\n", st.status[ev.Status].Render(ev.Status.String()))
	}

	b.WriteString("\n" + heavy + "\n")
	fmt.Fprintf(&b, "OVERALL RESULT: %s\n", st.status[in.Verdict.Overall].Render(in.Verdict.Overall.String()))
	b.WriteString(heavy + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeGroup(b *strings.Builder, st textStyles, g *fmlog.GroupResult) {
	fmt.Fprintf(b, "\n  %s %s\n", g.Test, st.dim.Render("("+g.Name+")"))
	if g.StartAltFt != nil || g.StartSpdKt != nil {
		fmt.Fprintf(b, "    Start: %s ft, %s kt\n", num(g.StartAltFt, 0), num(g.StartSpdKt, 0))
	}
	for _, line := range FuelInfo(g) {
		b.WriteString("    " + line + "\n")
	}
	if g.HasMaxima {
		fmt.Fprintf(b, "    Max speed %.1f kt, max alt %.0f ft, max climb %.0f fpm", g.MaxSpdKt, g.MaxAltFt, g.MaxVspdFpm)
		if g.Samples > 0 {
			fmt.Fprintf(b, ", Mach %.3f over %.0f s (%d samples)", g.MaxMach, g.ElapsedS, g.Samples)
		}
		b.WriteString("\n")
	}
	if g.VmaxKt != nil {
		fmt.Fprintf(b, "    Vmax: %.1f kt at %s ft (M%s)\n", *g.VmaxKt, num(g.VmaxAltFt, 0), num(g.VmaxMach, 3))
	}
	if g.CeilingAltFt != nil {
		fmt.Fprintf(b, "    Ceiling: %.0f ft, climb %s fpm (M%s)\n", *g.CeilingAltFt, num(g.CeilingRocFpm, 0), num(g.CeilingMach, 3))
	}
	if len(g.SpeedGates) > 0 {
		parts := make([]string, len(g.SpeedGates))
		for i, sg := range g.SpeedGates {
			parts[i] = fmt.Sprintf("%.0f kt @ %.1f s", sg.GateKt, sg.ElapsedS)
		}
		b.WriteString("    Speed gates: " + strings.Join(parts, ", ") + "\n")
	}
	if len(g.AltGates) > 0 {
		parts := make([]string, len(g.AltGates))
		for i, ag := range g.AltGates {
			parts[i] = fmt.Sprintf("%.0f ft @ %.1f s (%.0f fpm)", ag.GateFt, ag.ElapsedS, ag.ClimbFpm)
		}
		b.WriteString("    Altitude gates: " + strings.Join(parts, ", ") + "\n")
	}
}

// FuelInfo returns the fuel lines of a group: start fuel (with its
// percentage when logged), start weight and fuel used, each only when
// present.
func FuelInfo(g *fmlog.GroupResult) []string {
	var lines []string
	if g.StartFuelKg != nil {
		line := fmt.Sprintf("Start fuel: %.0f kg", *g.StartFuelKg)
		if g.StartFuelPct != nil {
			line += fmt.Sprintf(" (%.0f%%)", *g.StartFuelPct)
		}
		lines = append(lines, line)
	}
	if g.StartWeightKg != nil {
		lines = append(lines, fmt.Sprintf("Start weight: %.0f kg", *g.StartWeightKg))
	}
	if g.FuelUsedKg != nil {
		lines = append(lines, fmt.Sprintf("Fuel used: %.0f kg", *g.FuelUsedKg))
	}
	return lines
}

func num(p *float64, prec int) string {
	if p == nil {
		return "?"
	}
	return fmt.Sprintf("%.*f", prec, *p)
}
