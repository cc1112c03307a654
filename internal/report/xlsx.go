package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/vovakirdan/fmlab/internal/registry"
)

// Sheet names of the workbook.
const (
	SheetResults = "Results"
	SheetChecks  = "Checks"
)

func init() {
	registry.Register(FormatXLSX, func() registry.Renderer { return xlsxRenderer{} })
}

// xlsxRenderer writes a workbook with the csv columns on the results
// sheet and the target checks on a second sheet.
type xlsxRenderer struct{}

func (xlsxRenderer) Format() string { return FormatXLSX }

func (xlsxRenderer) Description() string { return "Excel workbook with results and checks sheets" }

func (xlsxRenderer) Render(w io.Writer, in registry.Input) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetResults); err != nil {
		return err
	}
	if err := setRow(f, SheetResults, 1, toAny(Header())); err != nil {
		return err
	}
	for i, g := range in.Table.All() {
		if err := setRow(f, SheetResults, i+2, values(g)); err != nil {
			return err
		}
	}
	if err := f.SetPanes(SheetResults, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetChecks); err != nil {
		return err
	}
	header := []any{"variant", "check", "test", "unit", "target", "measured", "delta_pct", "status"}
	if err := setRow(f, SheetChecks, 1, header); err != nil {
		return err
	}
	row := 2
	for _, ev := range in.Verdict.Variants {
		for _, c := range ev.Checks {
			var measured, delta any
			if c.HasData {
				measured, delta = c.Measured, c.DeltaPct()
			}
			vals := []any{ev.Variant, c.Name, c.Test, c.Unit, c.Target, measured, delta, c.Status.String()}
			if err := setRow(f, SheetChecks, row, vals); err != nil {
				return err
			}
			row++
		}
	}
	if err := setRow(f, SheetChecks, row+1, []any{"OVERALL", nil, nil, nil, nil, nil, nil, in.Verdict.Overall.String()}); err != nil {
		return err
	}

	_, err := f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, sheet string, row int, vals []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
		return fmt.Errorf("sheet %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
