package sfm

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/vovakirdan/fmlab/internal/config"
)

// Table layouts. Column indexes are zero based.
const (
	aeroColumns   = 8 // M, Cx0, Cya, B2, B4, Omxmax, Aldop, Cymax
	aeroColCx0    = 1
	aeroColB2     = 3
	aeroColB4     = 4
	engineColumns = 3 // M, Pmax, Pfor
	engineColPfor = 2
)

// ErrorKind classifies a content error.
type ErrorKind string

const (
	KindNotFound   ErrorKind = "FieldNotFound"
	KindAmbiguous  ErrorKind = "FieldAmbiguous"
	KindTableShape ErrorKind = "TableShape"
	KindBadPatch   ErrorKind = "BadPatch"
)

// ContentError reports a data file that does not have the expected layout.
type ContentError struct {
	Kind   ErrorKind
	Field  string
	Count  int
	Detail string
}

func (e *ContentError) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("sfm: %s not found", e.Field)
	case KindAmbiguous:
		return fmt.Sprintf("sfm: %s found %d times, expected exactly once", e.Field, e.Count)
	default:
		return fmt.Sprintf("sfm: %s: %s", e.Field, e.Detail)
	}
}

// Patch lists the edits to apply. Empty identity values leave the field
// alone; identity scales leave the tables alone.
type Patch struct {
	TypeName      string
	DisplayName   string
	ShapeUsername string
	Scales        config.ScaleFactors
}

func (p Patch) check() error {
	for _, f := range []struct{ field, value string }{
		{"Name", p.TypeName},
		{"DisplayName", p.DisplayName},
		{"shape_table_data.username", p.ShapeUsername},
	} {
		if !config.SafeText(f.value) {
			return &ContentError{Kind: KindBadPatch, Field: f.field, Detail: fmt.Sprintf("%q cannot be written into a Lua string", f.value)}
		}
	}
	for _, f := range []struct {
		field string
		value float64
	}{
		{"scale cx0", p.Scales.Cx0},
		{"scale polar", p.Scales.Polar},
		{"scale engine_drag", p.Scales.EngineDrag},
		{"scale pfor", p.Scales.Pfor},
	} {
		if !config.ValidScale(f.value) {
			return &ContentError{Kind: KindBadPatch, Field: f.field, Detail: fmt.Sprintf("%v is not a finite positive factor", f.value)}
		}
	}
	return nil
}

// Stats counts the values an Apply call actually changed.
type Stats struct {
	IdentityFields int
	AeroRows       int
	AeroCells      int
	EngineDrag     int
	EngineRows     int
	ThrustCells    int
}

// FieldsChanged is the total number of rewritten values.
func (s Stats) FieldsChanged() int {
	return s.IdentityFields + s.AeroCells + s.EngineDrag + s.ThrustCells
}

// Identity holds the identity fields read from a data file.
type Identity struct {
	TypeName      string
	DisplayName   string
	ShapeUsername string
}

var (
	sfmBlockKey     = regexp.MustCompile(`\bSFM_Data\s*=\s*\{`)
	namePattern     = regexp.MustCompile(`\bName\s*=\s*['"]([^'"\n]*)['"]`)
	displayPattern  = regexp.MustCompile(`\bDisplayName\s*=\s*_\(\s*['"]([^'"\n]*)['"]\s*\)`)
	usernamePattern = regexp.MustCompile(`\busername\s*=\s*['"]([^'"\n]*)['"]`)
	dcxEngPattern   = regexp.MustCompile(`\bdcx_eng\s*=\s*(` + numberExpr + `)`)
	numberPattern   = regexp.MustCompile(numberExpr)
)

const numberExpr = `-?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`

type edit struct {
	start, end int
	text       string
}

// layout is the located structure of a data file.
type layout struct {
	doc       *document
	sfm       span
	aeroTable span
	engine    span
	engTable  span
	shape     span
}

// IsDataFile reports whether src contains a flight model block.
func IsDataFile(src string) bool {
	d := newDocument(src)
	return len(d.matches(sfmBlockKey, d.all())) > 0
}

func locate(src string) (*layout, error) {
	d := newDocument(src)
	l := &layout{doc: d}

	sfm, n := d.block("SFM_Data", d.all())
	if err := once("SFM_Data", n); err != nil {
		return nil, err
	}
	l.sfm = sfm

	aero, n := d.block("aerodynamics", sfm)
	if err := once("SFM_Data.aerodynamics", n); err != nil {
		return nil, err
	}
	table, n := d.block("table_data", aero)
	if err := once("aerodynamics.table_data", n); err != nil {
		return nil, err
	}
	l.aeroTable = table

	engine, n := d.block("engine", span{aero.end, sfm.end})
	if err := once("SFM_Data.engine", n); err != nil {
		return nil, err
	}
	l.engine = engine
	table, n = d.block("table_data", engine)
	if err := once("engine.table_data", n); err != nil {
		return nil, err
	}
	l.engTable = table

	shape, n := d.block("shape_table_data", d.all())
	if n > 0 {
		l.shape = shape
	}
	return l, nil
}

func once(field string, n int) error {
	switch {
	case n == 0:
		return &ContentError{Kind: KindNotFound, Field: field}
	case n > 1:
		return &ContentError{Kind: KindAmbiguous, Field: field, Count: n}
	}
	return nil
}

// single finds the one code match of re inside within.
func (l *layout) single(field string, re *regexp.Regexp, within span) ([]int, error) {
	ms := l.doc.matches(re, within)
	if err := once(field, len(ms)); err != nil {
		return nil, err
	}
	return ms[0], nil
}

func (l *layout) username() ([]int, error) {
	if l.shape.end == 0 {
		return nil, &ContentError{Kind: KindNotFound, Field: "shape_table_data"}
	}
	return l.single("shape_table_data.username", usernamePattern, l.shape)
}

// ReadIdentity returns the identity fields currently in src.
func ReadIdentity(src string) (Identity, error) {
	l, err := locate(src)
	if err != nil {
		return Identity{}, err
	}
	var id Identity
	m, err := l.single("Name", namePattern, l.doc.all())
	if err != nil {
		return id, err
	}
	id.TypeName = src[m[2]:m[3]]
	if m, err = l.single("DisplayName", displayPattern, l.doc.all()); err != nil {
		return id, err
	}
	id.DisplayName = src[m[2]:m[3]]
	if m, err = l.username(); err != nil {
		return id, err
	}
	id.ShapeUsername = src[m[2]:m[3]]
	return id, nil
}

// DetectTypeName returns the unit type name declared in src.
func DetectTypeName(src string) (string, bool) {
	d := newDocument(src)
	ms := d.matches(namePattern, d.all())
	if len(ms) == 0 {
		return "", false
	}
	return strings.TrimSpace(src[ms[0][2]:ms[0][3]]), true
}

// Apply rewrites src according to p. Every anchor is located and every
// table row is checked before any edit is made, so an error never yields
// partially rewritten output.
func Apply(src string, p Patch) (string, Stats, error) {
	var stats Stats
	if err := p.check(); err != nil {
		return "", stats, err
	}
	l, err := locate(src)
	if err != nil {
		return "", stats, err
	}

	var edits []edit
	identity := []struct {
		field string
		value string
		find  func() ([]int, error)
	}{
		{"Name", p.TypeName, func() ([]int, error) { return l.single("Name", namePattern, l.doc.all()) }},
		{"DisplayName", p.DisplayName, func() ([]int, error) { return l.single("DisplayName", displayPattern, l.doc.all()) }},
		{"shape_table_data.username", p.ShapeUsername, l.username},
	}
	for _, f := range identity {
		if f.value == "" {
			continue
		}
		m, err := f.find()
		if err != nil {
			return "", stats, err
		}
		if src[m[2]:m[3]] != f.value {
			edits = append(edits, edit{m[2], m[3], f.value})
			stats.IdentityFields++
		}
	}

	aeroEdits, rows, cells, err := scaleRows(l.doc, l.aeroTable, "aerodynamics.table_data", aeroColumns, map[int]float64{
		aeroColCx0: p.Scales.Cx0,
		aeroColB2:  p.Scales.Polar,
		aeroColB4:  p.Scales.Polar,
	})
	if err != nil {
		return "", stats, err
	}
	edits = append(edits, aeroEdits...)
	stats.AeroRows, stats.AeroCells = rows, cells

	m, err := l.single("engine.dcx_eng", dcxEngPattern, l.engine)
	if err != nil {
		return "", stats, err
	}
	if e, changed := scaleToken(src, m[2], m[3], p.Scales.EngineDrag); changed {
		edits = append(edits, e)
		stats.EngineDrag = 1
	}

	engEdits, rows, cells, err := scaleRows(l.doc, l.engTable, "engine.table_data", engineColumns, map[int]float64{
		engineColPfor: p.Scales.Pfor,
	})
	if err != nil {
		return "", stats, err
	}
	edits = append(edits, engEdits...)
	stats.EngineRows, stats.ThrustCells = rows, cells

	return applyEdits(src, edits), stats, nil
}

// scaleRows checks that every child row of table holds exactly columns
// numbers and produces edits for the scaled columns.
func scaleRows(d *document, table span, field string, columns int, factors map[int]float64) ([]edit, int, int, error) {
	rows := d.children(table)
	if len(rows) == 0 {
		return nil, 0, 0, &ContentError{Kind: KindTableShape, Field: field, Detail: "table has no rows"}
	}

	var edits []edit
	cells := 0
	for r, row := range rows {
		inner := span{row.start + 1, row.end - 1}
		nums := numberPattern.FindAllStringIndex(inner.text(d.src), -1)
		rest := numberPattern.ReplaceAllString(inner.text(d.src), "")
		if len(nums) != columns || strings.Trim(rest, " \t\r\n,") != "" || strings.Count(rest, ",") < columns-1 {
			return nil, 0, 0, &ContentError{
				Kind:   KindTableShape,
				Field:  field,
				Detail: fmt.Sprintf("row %d has %d numeric columns, expected %d", r+1, len(nums), columns),
			}
		}
		for col, factor := range factors {
			start, end := inner.start+nums[col][0], inner.start+nums[col][1]
			if e, changed := scaleToken(d.src, start, end, factor); changed {
				edits = append(edits, e)
				cells++
			}
		}
	}
	return edits, len(rows), cells, nil
}

// scaleToken multiplies the number at src[start:end]. A factor of exactly
// 1.0 never produces an edit.
func scaleToken(src string, start, end int, factor float64) (edit, bool) {
	if factor == 1.0 {
		return edit{}, false
	}
	orig := src[start:end]
	v, err := strconv.ParseFloat(orig, 64)
	if err != nil {
		return edit{}, false
	}
	text := FormatScaled(orig, v*factor)
	if text == orig {
		return edit{}, false
	}
	return edit{start, end, text}, true
}

func applyEdits(src string, edits []edit) string {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })
	var b strings.Builder
	b.Grow(len(src))
	prev := 0
	for _, e := range edits {
		b.WriteString(src[prev:e.start])
		b.WriteString(e.text)
		prev = e.end
	}
	b.WriteString(src[prev:])
	return b.String()
}
