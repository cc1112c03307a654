package sfm

import (
	"errors"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/fmlab/internal/config"
)

func loadFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("testdata/mig17f.lua")
	require.NoError(t, err)
	return string(data)
}

// cells returns the numeric tokens of every row of one of the two tables.
func cells(t *testing.T, src string, engine bool) [][]string {
	t.Helper()
	l, err := locate(src)
	require.NoError(t, err)
	table := l.aeroTable
	if engine {
		table = l.engTable
	}
	var out [][]string
	for _, row := range l.doc.children(table) {
		out = append(out, numberPattern.FindAllString(row.text(src), -1))
	}
	return out
}

func scales(cx0, polar, drag, pfor float64) config.ScaleFactors {
	return config.ScaleFactors{Cx0: cx0, Polar: polar, EngineDrag: drag, Pfor: pfor}
}

func TestIdentityScalingIsNoOp(t *testing.T) {
	src := loadFixture(t)
	out, stats, err := Apply(src, Patch{Scales: config.IdentityScales()})
	require.NoError(t, err)
	assert.Equal(t, src, out)
	assert.Equal(t, 0, stats.FieldsChanged())
	assert.Equal(t, 7, stats.AeroRows)
	assert.Equal(t, 7, stats.EngineRows)
}

func TestIdentityFieldsRewritten(t *testing.T) {
	src := loadFixture(t)
	out, stats, err := Apply(src, Patch{
		TypeName:      "vwv_mig17f_fm1",
		DisplayName:   "MiG-17F FM1",
		ShapeUsername: "MiG-17F-FM1",
		Scales:        config.IdentityScales(),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.IdentityFields)

	id, err := ReadIdentity(out)
	require.NoError(t, err)
	assert.Equal(t, Identity{TypeName: "vwv_mig17f_fm1", DisplayName: "MiG-17F FM1", ShapeUsername: "MiG-17F-FM1"}, id)

	// the wreck model's lowercase name is not an identity field
	assert.Contains(t, out, `name = "mig17f-oblomok"`)
	assert.Equal(t, strings.Count(src, "\n"), strings.Count(out, "\n"))
}

func TestScaledColumns(t *testing.T) {
	src := loadFixture(t)
	out, stats, err := Apply(src, Patch{Scales: scales(0.8, 1, 1.2, 1.1)})
	require.NoError(t, err)

	aero := cells(t, out, false)
	assert.Equal(t, "0.0112", aero[0][1])
	assert.Equal(t, "0.0368", aero[6][1])

	engine := cells(t, out, true)
	assert.Equal(t, "37180", engine[0][2])
	assert.Equal(t, "26500", engine[0][1], "military thrust must never change")

	assert.Contains(t, out, "dcx_eng  = 0.0102")
	assert.Equal(t, 7, stats.AeroCells)
	assert.Equal(t, 1, stats.EngineDrag)
	assert.Equal(t, 7, stats.ThrustCells)
	assert.Equal(t, 15, stats.FieldsChanged())
}

func TestUntouchedFieldInvariant(t *testing.T) {
	src := loadFixture(t)
	out, _, err := Apply(src, Patch{Scales: scales(0.7, 0.6, 1.3, 1.25)})
	require.NoError(t, err)

	before, after := cells(t, src, false), cells(t, out, false)
	require.Equal(t, len(before), len(after))
	for r := range before {
		for c := range before[r] {
			if c == aeroColCx0 || c == aeroColB2 || c == aeroColB4 {
				continue
			}
			assert.Equal(t, before[r][c], after[r][c], "aero row %d col %d", r, c)
		}
	}

	before, after = cells(t, src, true), cells(t, out, true)
	require.Equal(t, len(before), len(after))
	for r := range before {
		assert.Equal(t, before[r][0], after[r][0], "engine Mach row %d", r)
		assert.Equal(t, before[r][1], after[r][1], "engine Pmax row %d", r)
	}

	// everything outside the tables and dcx_eng is byte-identical
	strip := func(s string) string {
		l, err := locate(s)
		require.NoError(t, err)
		m := dcxEngPattern.FindStringSubmatchIndex(s[l.engine.start:l.engine.end])
		dcx := span{l.engine.start + m[2], l.engine.start + m[3]}
		return s[:l.aeroTable.start] + s[l.aeroTable.end:dcx.start] + s[dcx.end:l.engTable.start] + s[l.engTable.end:]
	}
	assert.Equal(t, strip(src), strip(out))
}

func TestRoundTripScaling(t *testing.T) {
	src := loadFixture(t)
	k := 0.8
	down, _, err := Apply(src, Patch{Scales: scales(k, k, k, k)})
	require.NoError(t, err)
	back, _, err := Apply(down, Patch{Scales: scales(1/k, 1/k, 1/k, 1/k)})
	require.NoError(t, err)

	for _, engine := range []bool{false, true} {
		want, got := cells(t, src, engine), cells(t, back, engine)
		for r := range want {
			for c := range want[r] {
				w, _ := strconv.ParseFloat(want[r][c], 64)
				g, _ := strconv.ParseFloat(got[r][c], 64)
				// two roundings at the column precision bound the drift
				assert.InDelta(t, w, g, 1.5*precisionOf(want[r][c]), "row %d col %d", r, c)
			}
		}
	}
}

func precisionOf(token string) float64 {
	if dot := strings.IndexByte(token, '.'); dot >= 0 {
		return math.Pow(10, -float64(len(token)-dot-1))
	}
	return 1
}

func TestMissingIdentityField(t *testing.T) {
	src := strings.Replace(loadFixture(t), "DisplayName   = _('MiG-17F'),", "", 1)
	_, _, err := Apply(src, Patch{TypeName: "x", DisplayName: "y", ShapeUsername: "z", Scales: config.IdentityScales()})

	var cerr *ContentError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, KindNotFound, cerr.Kind)
	assert.Equal(t, "DisplayName", cerr.Field)
}

func TestDuplicateIdentityField(t *testing.T) {
	src := strings.Replace(loadFixture(t), "Rate          = 40,", "Name = 'dup',", 1)
	_, _, err := Apply(src, Patch{TypeName: "x", Scales: config.IdentityScales()})

	var cerr *ContentError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, KindAmbiguous, cerr.Kind)
	assert.Equal(t, 2, cerr.Count)
}

func TestTableShapeMismatch(t *testing.T) {
	src := strings.Replace(loadFixture(t), "{ 0.4,  25500,  32900 },", "{ 0.4,  25500 },", 1)
	_, _, err := Apply(src, Patch{Scales: config.IdentityScales()})

	var cerr *ContentError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, KindTableShape, cerr.Kind)
	assert.Equal(t, "engine.table_data", cerr.Field)
}

func TestMissingEngineDrag(t *testing.T) {
	src := strings.Replace(loadFixture(t), "dcx_eng  = 0.0085,", "", 1)
	_, _, err := Apply(src, Patch{Scales: config.IdentityScales()})

	var cerr *ContentError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "engine.dcx_eng", cerr.Field)
}

func TestCommentedAnchorsIgnored(t *testing.T) {
	src := loadFixture(t)
	require.Contains(t, src, "dcx_eng = 9")
	out, stats, err := Apply(src, Patch{Scales: scales(1, 1, 2, 1)})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EngineDrag)
	assert.Contains(t, out, "dcx_eng = 9 only in comments")
	assert.Contains(t, out, "dcx_eng  = 0.0170")
}

func TestDetectTypeName(t *testing.T) {
	name, ok := DetectTypeName(loadFixture(t))
	require.True(t, ok)
	assert.Equal(t, "vwv_mig17f", name)

	_, ok = DetectTypeName("return {}")
	assert.False(t, ok)
}

func TestIsDataFile(t *testing.T) {
	assert.True(t, IsDataFile(loadFixture(t)))
	assert.False(t, IsDataFile("-- SFM_Data = { }\nreturn {}"))
}

func TestFormatScaled(t *testing.T) {
	tests := []struct {
		orig string
		v    float64
		want string
	}{
		{"26500", 29150.4, "29150"},
		{"0.0140", 0.0112, "0.0112"},
		{"1.4", 1.26, "1.3"},
		{"30.", 24.2, "24."},
		{"1.5e-3", 0.00123, "1.2e-03"},
	}
	for _, tc := range tests {
		t.Run(tc.orig, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatScaled(tc.orig, tc.v))
		})
	}
}

func TestApplyRejectsUnsafePatch(t *testing.T) {
	src := loadFixture(t)
	for name, p := range map[string]Patch{
		"single quote":  {DisplayName: "MiG-17F 'Fresco'", Scales: config.IdentityScales()},
		"double quote":  {ShapeUsername: `MiG-17F"`, Scales: config.IdentityScales()},
		"backslash":     {TypeName: `vwv\mig17f`, Scales: config.IdentityScales()},
		"newline":       {DisplayName: "MiG-17F\nFM1", Scales: config.IdentityScales()},
		"infinite cx0":  {Scales: scales(math.Inf(1), 1, 1, 1)},
		"nan pfor":      {Scales: scales(1, 1, 1, math.NaN())},
		"zero polar":    {Scales: scales(1, 0, 1, 1)},
	} {
		t.Run(name, func(t *testing.T) {
			out, _, err := Apply(src, p)
			var cerr *ContentError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, KindBadPatch, cerr.Kind)
			assert.Empty(t, out)
		})
	}
}
