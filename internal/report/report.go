// Package report renders aggregated flight-test results. Each output
// format is a registry.Renderer registered at init; Render looks the format
// up by name.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/vovakirdan/fmlab/internal/fmlog"
	"github.com/vovakirdan/fmlab/internal/registry"
)

// DefaultTitle heads the text report.
const DefaultTitle = "MiG-17F Flight Model Test Report"

// Format names.
const (
	FormatText = "text"
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// Options control what a report shows besides the table itself.
type Options struct {
	Title    string
	RunID    string
	Complete bool
	// Targets defaults to fmlog.DefaultTargets when zero.
	Targets fmlog.Targets
}

// Render evaluates table against the targets and writes it in format.
func Render(w io.Writer, table *fmlog.ResultTable, format string, opts Options) error {
	r, err := registry.Create(format)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if table == nil {
		table = fmlog.NewResultTable()
	}
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.Targets == (fmlog.Targets{}) {
		opts.Targets = fmlog.DefaultTargets()
	}
	in := registry.Input{
		Title:    opts.Title,
		RunID:    opts.RunID,
		Complete: opts.Complete,
		Table:    table,
		Verdict:  fmlog.Evaluate(table, opts.Targets),
	}
	if err := r.Render(w, in); err != nil {
		return fmt.Errorf("report: %s: %w", format, err)
	}
	return nil
}

// CheckFormat returns an error naming the known formats when format is not
// registered.
func CheckFormat(format string) error {
	if registry.Exists(format) {
		return nil
	}
	return fmt.Errorf("report: unknown format %q (known: %s)", format, strings.Join(Formats(), ", "))
}

// Formats returns the registered format names.
func Formats() []string {
	var out []string
	for _, f := range registry.List() {
		out = append(out, f.Format)
	}
	return out
}
