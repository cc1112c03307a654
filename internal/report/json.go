package report

import (
	"encoding/json"
	"io"

	"github.com/iancoleman/orderedmap"

	"github.com/vovakirdan/fmlab/internal/registry"
)

func init() {
	registry.Register(FormatJSON, func() registry.Renderer { return jsonRenderer{} })
}

// jsonRenderer writes a single document whose keys keep report order.
type jsonRenderer struct{}

func (jsonRenderer) Format() string { return FormatJSON }

func (jsonRenderer) Description() string { return "key-ordered JSON document with checks and per-test metrics" }

func (jsonRenderer) Render(w io.Writer, in registry.Input) error {
	doc := orderedmap.New()
	doc.SetEscapeHTML(false)
	doc.Set("title", in.Title)
	if in.RunID != "" {
		doc.Set("run_id", in.RunID)
		doc.Set("complete", in.Complete)
	}

	t := in.Verdict.Targets
	targets := orderedmap.New()
	targets.Set("tolerance_pct", t.TolerancePct)
	targets.Set("vmax_sl_kt", t.VmaxSLKt)
	targets.Set("vmax_10k_kt", t.Vmax10KKt)
	targets.Set("roc_fpm", t.RocFpm)
	targets.Set("ceiling_ft", t.CeilingFt)
	doc.Set("targets", targets)

	variants := []any{}
	for _, ev := range in.Verdict.Variants {
		v := orderedmap.New()
		v.Set("variant", ev.Variant)
		v.Set("status", ev.Status.String())

		checks := []any{}
		for _, c := range ev.Checks {
			cm := orderedmap.New()
			cm.Set("name", c.Name)
			cm.Set("test", c.Test)
			cm.Set("unit", c.Unit)
			cm.Set("target", c.Target)
			if c.HasData {
				cm.Set("measured", c.Measured)
				cm.Set("delta_pct", c.DeltaPct())
			} else {
				cm.Set("measured", nil)
				cm.Set("delta_pct", nil)
			}
			cm.Set("status", c.Status.String())
			checks = append(checks, cm)
		}
		v.Set("checks", checks)

		tests := []any{}
		for _, g := range in.Table.Tests(ev.Variant) {
			tm := orderedmap.New()
			for i, val := range values(g) {
				if columns[i].name == "variant" {
					continue
				}
				tm.Set(columns[i].name, val)
			}
			tests = append(tests, tm)
		}
		v.Set("tests", tests)
		variants = append(variants, v)
	}
	doc.Set("variants", variants)
	doc.Set("overall", in.Verdict.Overall.String())

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
