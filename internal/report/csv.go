package report

import (
	"encoding/csv"
	"io"

	"github.com/vovakirdan/fmlab/internal/registry"
)

func init() {
	registry.Register(FormatCSV, func() registry.Renderer { return csvRenderer{} })
}

// csvRenderer writes one row per (variant, test) pair.
type csvRenderer struct{}

func (csvRenderer) Format() string { return FormatCSV }

func (csvRenderer) Description() string { return "one row per group, header starting variant,test,group_name" }

func (csvRenderer) Render(w io.Writer, in registry.Input) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, g := range in.Table.All() {
		vals := values(g)
		row := make([]string, len(vals))
		for i, v := range vals {
			row[i] = formatCell(v)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
