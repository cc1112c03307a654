package acmi

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/fmlab/internal/config"
)

const sampleACMI = "\ufeffFileType=text/acmi/tacview\r\n" +
	"FileVersion=2.2\n" +
	"0,ReferenceTime=2024-06-01T12:00:00Z\n" +
	"// comment\n" +
	"#0\n" +
	"101,T=41.5|42.1|5000|10|2|90|1000|2000|95,Type=Air+FixedWing,Name=vwv_mig17f,Group=FM1_BFM_OFF6,TAS=200\n" +
	"102,T=41.6|42.2|4500,Type=Ground+Static,Name=Bunker\n" +
	"#1.5\n" +
	"101,T=||5100|||||1300|,AOA=8\n" +
	"-102\n" +
	"#2\n" +
	"101,T=41.7|42.3|5200|5000|6000\n"

func TestParse(t *testing.T) {
	rec, err := Parse(strings.NewReader(sampleACMI))
	require.NoError(t, err)
	require.Len(t, rec.Objects, 2, "global object 0 is not an entity")

	mig := rec.Objects[0]
	assert.Equal(t, "101", mig.ID)
	assert.Equal(t, "vwv_mig17f", mig.Name())
	assert.Equal(t, "FM1_BFM_OFF6", mig.Group())
	assert.True(t, mig.IsAircraft())
	assert.False(t, rec.Objects[1].IsAircraft())
	require.Len(t, mig.States, 3)

	first := mig.States[0]
	assert.Equal(t, 0.0, first.Time)
	assert.Equal(t, 10.0, first.Roll)
	assert.Equal(t, 95.0, first.Heading)
	assert.True(t, first.HasUV)
	require.NotNil(t, first.TAS)
	assert.Equal(t, 200.0, *first.TAS)

	// empty fields carry the previous value, telemetry does not
	second := mig.States[1]
	assert.Equal(t, 1.5, second.Time)
	assert.Equal(t, 41.5, second.Lon)
	assert.Equal(t, 5100.0, second.AltM)
	assert.Equal(t, 1000.0, second.U)
	assert.Equal(t, 1300.0, second.V)
	assert.Equal(t, 90.0, second.Yaw)
	assert.Equal(t, 90.0, second.Heading, "heading falls back to yaw")
	assert.Nil(t, second.TAS)
	require.NotNil(t, second.AOA)
	assert.Equal(t, 8.0, *second.AOA)

	// the five-field layout carries U/V in fields 3 and 4
	third := mig.States[2]
	assert.Equal(t, 5000.0, third.U)
	assert.Equal(t, 6000.0, third.V)
	assert.Equal(t, 10.0, third.Roll)

	// removal lines do not add objects or samples
	assert.Len(t, rec.Objects[1].States, 1)
}

func TestOpenZip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Tacview-test.zip.acmi")

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("Tacview-test.txt.acmi")
	require.NoError(t, err)
	_, err = w.Write([]byte(sampleACMI))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	rec, err := Open(path)
	require.NoError(t, err)
	require.Len(t, rec.Objects, 2)
	assert.Len(t, rec.Objects[0].States, 3)

	plain := filepath.Join(dir, "plain.acmi")
	require.NoError(t, os.WriteFile(plain, []byte(sampleACMI), 0o644))
	rec, err = Open(plain)
	require.NoError(t, err)
	assert.Len(t, rec.Objects, 2)

	_, err = Open(filepath.Join(dir, "missing.acmi"))
	assert.Error(t, err)
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	_, err := Latest(dir, time.Time{})
	require.ErrorIs(t, err, ErrNoRecording)

	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"old.acmi", "new.acmi", "newest.txt"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		mod := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(p, mod, mod))
	}

	got, err := Latest(dir, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "new.acmi"), got)

	_, err = Latest(dir, base.Add(5*time.Minute))
	assert.ErrorIs(t, err, ErrNoRecording)
}

func TestSplitVariant(t *testing.T) {
	tests := []struct {
		group, variant, scenario string
	}{
		{"FM3_BFM_OFF6", "FM3", "BFM_OFF6"},
		{"BFM_HEAD", "", "BFM_HEAD"},
		{"FM3", "", "FM3"},
	}
	for _, tt := range tests {
		v, s := splitVariant(tt.group)
		assert.Equal(t, tt.variant, v, tt.group)
		assert.Equal(t, tt.scenario, s, tt.group)
	}
}

// engagementACMI has the MiG of FM3_BFM_OFF6 turning at 20 deg/s with
// 60 deg of bank while flying through a stationary opponent.
func engagementACMI(states int) string {
	var b strings.Builder
	for i := 0; i < states; i++ {
		fmt.Fprintf(&b, "#%d\n", i)
		hdg := math.Mod(float64(i)*20, 360)
		fmt.Fprintf(&b, "201,T=41|42|3000|60|5|%g|%d|0|%g,TAS=180", hdg, i*100, hdg)
		if i == 0 {
			b.WriteString(",Type=Air+FixedWing,Name=vwv_mig17f,Group=FM3_BFM_OFF6")
		}
		b.WriteString("\n")
		b.WriteString("202,T=41|42|3000|0|0|0|1000|0|0")
		if i == 0 {
			b.WriteString(",Type=Air+FixedWing,Name=F-86F Sabre,Group=FM3_BFM_OFF6_OPP")
		}
		b.WriteString("\n")
	}
	b.WriteString("#0\n")
	b.WriteString("301,T=41|42|3000|0|0,Type=Air+FixedWing,Name=vwv_mig17f,Group=BFM_SHORT\n")
	b.WriteString("302,T=41|42|3000|0|0,Type=Air+FixedWing,Name=F-86F Sabre,Group=BFM_SHORT_OPP\n")
	b.WriteString("303,T=41|42|0,Type=Ground+Vehicle,Name=Truck,Group=FM3_BFM_OFF6_OPP_OPP\n")
	return b.String()
}

func TestAnalyzeEngagements(t *testing.T) {
	rec, err := Parse(strings.NewReader(engagementACMI(12)))
	require.NoError(t, err)
	require.Len(t, rec.Pairs(), 2)

	results, skipped := AnalyzeEngagements(rec, config.DefaultEnvelopeTargets())
	assert.Equal(t, []string{"BFM_SHORT"}, skipped)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "FM3", r.Variant)
	assert.Equal(t, "BFM_OFF6", r.ScenarioID)
	assert.Equal(t, "FM3_BFM_OFF6_OPP", r.OpponentGroup)
	assert.Equal(t, "F-86F Sabre", r.OpponentType)

	assert.InDelta(t, 20, r.Turn.MaxRateDegS, 1e-9)
	assert.InDelta(t, 20.0*11/12, r.Turn.AvgRateDegS, 1e-9)
	assert.InDelta(t, 180/(20*math.Pi/180)*FtPerM, r.Turn.MinRadiusFt, 1e-6)
	assert.InDelta(t, 180*KtPerMps, r.Energy.InitialSpeedKt, 1e-9)
	assert.Equal(t, 0.0, r.Energy.AltSpanFt)
	assert.InDelta(t, 2, r.Maneuver.MaxG, 1e-9)
	assert.Equal(t, 60.0, r.Maneuver.MaxBankDeg)

	assert.Equal(t, 11.0, r.Range.DurationS)
	assert.InDelta(t, 1000*FtPerM, r.Range.InitialRangeFt, 1e-6)
	assert.InDelta(t, 0, r.Range.MinRangeFt, 1e-6)
	assert.True(t, r.Range.Closure)

	assert.Equal(t, Nominal, r.Assessment)
	assert.Empty(t, r.Notes)
}

func TestEngagementAssessment(t *testing.T) {
	targets := config.DefaultEnvelopeTargets()
	tests := []struct {
		name  string
		rate  float64
		g     float64
		want  Assessment
		notes int
	}{
		{"nominal", 22, 7, Nominal, 0},
		{"slow turn", 15, 7, Under, 1},
		{"fast turn", 30, 7, Over, 1},
		{"over g", 22, 9, Over, 1},
		{"slow turn over g", 15, 9, Under, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := EngagementResult{Assessment: Nominal}
			r.Turn.MaxRateDegS = tt.rate
			r.Maneuver.MaxG = tt.g
			r.assess(targets)
			assert.Equal(t, tt.want, r.Assessment)
			assert.Len(t, r.Notes, tt.notes)
		})
	}
	assert.Equal(t, "FAIL", Over.Status().String())
	assert.Equal(t, "PASS", Nominal.Status().String())
}

// circleACMI flies one object around a level circle at speedMps and
// rateDegS, sampled every dt seconds.
func circleACMI(name string, samples int, speedMps, rateDegS, dt float64) string {
	omega := rateDegS * math.Pi / 180
	radius := speedMps / omega
	var b strings.Builder
	for i := 0; i < samples; i++ {
		t := float64(i) * dt
		u, v := radius*math.Cos(omega*t), radius*math.Sin(omega*t)
		fmt.Fprintf(&b, "#%g\n1,T=41|42|4000|%f|%f", t, u, v)
		if i == 0 {
			fmt.Fprintf(&b, ",Type=Air+FixedWing,Name=%s,Group=FM0_TURN", name)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func TestAnalyzeEnvelopeCircle(t *testing.T) {
	rec, err := Parse(strings.NewReader(circleACMI("VWV_MiG17F", 40, 200, 15, 0.5)))
	require.NoError(t, err)

	flights := AnalyzeEnvelope(rec, DefaultEnvelope(), "")
	require.Len(t, flights, 1)
	m := flights[0]

	assert.Equal(t, "1", m.ObjectID)
	assert.Equal(t, 19.5, m.DurationS)
	assert.InDelta(t, 4000*FtPerM, m.MinAltFt, 1e-6)
	assert.Equal(t, 0.0, m.AltSpanFt)
	assert.InDelta(t, 200*KtPerMps, m.MaxSpeedKt, 1)

	assert.InDelta(t, 15, m.MaxInstRateDegS, 0.01)
	assert.Equal(t, ClassUnder, m.Inst)

	// the run starts on the second smoothed sample, which still averages in zeros
	assert.InDelta(t, 282.5/19, m.SustainedRateDegS, 0.01)
	assert.InDelta(t, 19, m.SustainedWindowS, 1e-9)
	require.NotNil(t, m.SustainedSpeedKt)
	assert.Equal(t, ClassWithin, m.Sust)

	require.NotNil(t, m.MinTurnRadiusFt)
	assert.InDelta(t, 2505, *m.MinTurnRadiusFt, 3)
	assert.Equal(t, ClassWithin, m.Radius)
	assert.InDelta(t, 5.34, m.MaxG, 0.01)
	assert.Equal(t, ClassWithin, m.G)
	assert.Equal(t, WithinOrMixed, m.OverallStatus)

	assert.Empty(t, AnalyzeEnvelope(rec, DefaultEnvelope(), "sabre"))
	short, err := Parse(strings.NewReader(circleACMI("vwv_mig17f", 4, 200, 15, 0.5)))
	require.NoError(t, err)
	assert.Empty(t, AnalyzeEnvelope(short, DefaultEnvelope(), ""))
}

func TestEnvelopeFromConfig(t *testing.T) {
	def := DefaultEnvelope()
	assert.Equal(t, 12.0, def.SustainedMin)
	assert.Equal(t, 25.0, def.InstantaneousMax)
	assert.Equal(t, 2200.0, def.MinTurnRadiusFt)
	assert.Equal(t, 7.0, def.GWarning)

	cfg := &config.BFMConfig{
		Targets:  config.DefaultEnvelopeTargets(),
		Criteria: config.DefaultCriteria(),
	}
	cfg.Criteria.GLoading.Warning = 6
	assert.Equal(t, 6.0, EnvelopeFromConfig(cfg).GWarning)
}

func TestClassify(t *testing.T) {
	v := func(f float64) *float64 { return &f }

	assert.Equal(t, ClassNA, ClassifyRange(nil, 1, 2))
	assert.Equal(t, ClassUnder, ClassifyRange(v(0.5), 1, 2))
	assert.Equal(t, ClassWithin, ClassifyRange(v(2), 1, 2))
	assert.Equal(t, ClassOver, ClassifyRange(v(2.5), 1, 2))

	assert.Equal(t, ClassWithin, ClassifyG(7, 7, 8))
	assert.Equal(t, ClassWarning, ClassifyG(7.5, 7, 8))
	assert.Equal(t, ClassOver, ClassifyG(8.1, 7, 8))

	assert.Equal(t, ClassNA, ClassifyRadius(nil, 2200))
	assert.Equal(t, ClassTightOver, ClassifyRadius(v(1700), 2200))
	assert.Equal(t, ClassWithin, ClassifyRadius(v(2200), 2200))
	assert.Equal(t, ClassLooseUnder, ClassifyRadius(v(2800), 2200))

	assert.Equal(t, OverEnvelope, Overall(ClassWithin, ClassWithin, ClassOver, ClassWithin))
	assert.Equal(t, OverEnvelope, Overall(ClassWithin, ClassWithin, ClassWithin, ClassTightOver))
	assert.Equal(t, UnderEnvelope, Overall(ClassUnder, ClassUnder, ClassWithin, ClassWithin))
	assert.Equal(t, WithinOrMixed, Overall(ClassUnder, ClassWithin, ClassWarning, ClassLooseUnder))
}

func TestMatchesFilter(t *testing.T) {
	o := &Object{Meta: map[string]string{"Name": "MiG-17F", "Pilot": "VWV_MIG17F_FM2"}}
	assert.True(t, o.MatchesFilter("vwv_mig17f"))
	assert.True(t, o.MatchesFilter("mig-17"))
	assert.False(t, o.MatchesFilter("sabre"))
}

func TestEngagementReports(t *testing.T) {
	results := []EngagementResult{
		{ScenarioID: "BFM_OFF6", Variant: "FM3", OpponentType: "F-86F Sabre", Assessment: Nominal},
		{ScenarioID: "BFM_HEAD", OpponentType: "F-86F Sabre", Assessment: Under,
			Turn: TurnMetrics{MaxRateDegS: 12.34}, Notes: []string{"Turn rate 12.3 deg/s below target 22 by >15%"}},
	}

	var text bytes.Buffer
	require.NoError(t, WriteEngagementReport(&text, results))
	out := text.String()
	assert.Contains(t, out, "BFM TEST ANALYSIS REPORT")
	assert.Less(t, strings.Index(out, "Variant: BASE"), strings.Index(out, "Variant: FM3"))
	assert.Contains(t, out, "Max Turn Rate: 12.3 deg/s")
	assert.Contains(t, out, "    - Turn rate 12.3")
	assert.Contains(t, out, "Total Scenarios Analyzed: 2")
	assert.Contains(t, out, "NOMINAL (within envelope): 1")
	assert.Contains(t, out, "UNDER (below expected): 1")

	var buf bytes.Buffer
	require.NoError(t, WriteEngagementCSV(&buf, results))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, EngagementHeader(), rows[0])
	assert.Len(t, rows[0], 16)
	assert.Equal(t, []string{"", "BFM_HEAD", "F-86F Sabre", "UNDER", "12.3"}, rows[2][:5])
}

func TestEnvelopeReports(t *testing.T) {
	rec, err := Parse(strings.NewReader(circleACMI("vwv_mig17f", 40, 200, 15, 0.5)))
	require.NoError(t, err)
	flights := AnalyzeEnvelope(rec, DefaultEnvelope(), "")
	flights = append(flights, FlightMetrics{ObjectID: "2", Name: "idle", Inst: ClassUnder, Sust: ClassUnder,
		G: ClassWithin, Radius: ClassNA, OverallStatus: UnderEnvelope})

	var text bytes.Buffer
	require.NoError(t, WriteEnvelopeReport(&text, DefaultEnvelope(), flights))
	out := text.String()
	assert.Contains(t, out, "Analyzed 2 object(s).")
	assert.Contains(t, out, "Sustained TR: 12.0-18.0 deg/s")
	assert.Contains(t, out, "Object 1: name='vwv_mig17f'")
	assert.Contains(t, out, "Best sustained TR: N/A [no qualifying turn segments]")
	assert.Contains(t, out, "Min turn radius: N/A")
	assert.Contains(t, out, "Overall envelope assessment: UNDER_ENVELOPE")

	var buf bytes.Buffer
	require.NoError(t, WriteEnvelopeCSV(&buf, flights))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Len(t, rows[0], 27)
	assert.Equal(t, "overall_status", rows[0][26])
	assert.Equal(t, "", rows[2][20], "missing radius is an empty cell")
	assert.Equal(t, WithinOrMixed, rows[1][26])
}
