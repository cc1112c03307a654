package acmi

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/vovakirdan/fmlab/internal/config"
	"github.com/vovakirdan/fmlab/internal/core"
)

// Unit conversions used by the analyzers.
const (
	FtPerM   = 3.28084
	KtPerMps = 1.94384
	G0       = 9.80665

	earthRadiusM = 6371000
	opponentTag  = "_OPP"
	maxBankRad   = 1.48
)

// MinEngagementStates is the sample count each side needs to be analysed.
const MinEngagementStates = 10

// Assessment grades an engagement against the envelope targets.
type Assessment string

const (
	Nominal Assessment = "NOMINAL"
	Under   Assessment = "UNDER"
	Over    Assessment = "OVER"
)

// TurnMetrics describe the MiG's turning.
type TurnMetrics struct {
	MaxRateDegS float64
	AvgRateDegS float64
	MinRadiusFt float64
}

// EnergyMetrics describe speed and altitude management.
type EnergyMetrics struct {
	InitialSpeedKt float64
	MinSpeedKt     float64
	MaxSpeedKt     float64
	FinalSpeedKt   float64
	MaxAltFt       float64
	MinAltFt       float64
	AltSpanFt      float64
}

// ManeuverMetrics are bank-derived load estimates.
type ManeuverMetrics struct {
	MaxG       float64
	AvgG       float64
	MaxAOADeg  float64
	MaxBankDeg float64
}

// RangeMetrics describe the geometry between the two aircraft.
type RangeMetrics struct {
	DurationS      float64
	InitialRangeFt float64
	MinRangeFt     float64
	Closure        bool
}

// EngagementResult is the analysis of one MiG/opponent pair.
type EngagementResult struct {
	ScenarioID    string
	Variant       string // empty for the baseline
	MiGGroup      string
	OpponentGroup string
	OpponentType  string
	Turn          TurnMetrics
	Energy        EnergyMetrics
	Maneuver      ManeuverMetrics
	Range         RangeMetrics
	Assessment    Assessment
	Notes         []string
}

// Pair is a MiG track and the opponent placed against it.
type Pair struct {
	MiG, Opponent *Object
}

// Pairs matches aircraft groups X and X_OPP. The last object seen for a
// group name wins.
func (r *Recording) Pairs() []Pair {
	byGroup := make(map[string]*Object)
	var order []string
	for _, o := range r.Objects {
		g := o.Group()
		if g == "" || !o.IsAircraft() {
			continue
		}
		if _, ok := byGroup[g]; !ok {
			order = append(order, g)
		}
		byGroup[g] = o
	}

	var pairs []Pair
	for _, g := range order {
		base, ok := strings.CutSuffix(g, opponentTag)
		if !ok {
			continue
		}
		if mig, ok := byGroup[base]; ok {
			pairs = append(pairs, Pair{MiG: mig, Opponent: byGroup[g]})
		}
	}
	return pairs
}

// AnalyzeEngagements measures every pair with enough samples. Pairs that
// are too short are named in skipped.
func AnalyzeEngagements(rec *Recording, targets config.EnvelopeTargets) (results []EngagementResult, skipped []string) {
	for _, p := range rec.Pairs() {
		if len(p.MiG.States) < MinEngagementStates || len(p.Opponent.States) < MinEngagementStates {
			skipped = append(skipped, p.MiG.Group())
			continue
		}
		results = append(results, AnalyzeEngagement(p, targets))
	}
	return results, skipped
}

// splitVariant separates "FM3_SCENARIO" into FM3 and SCENARIO.
func splitVariant(group string) (variant, scenario string) {
	if !strings.HasPrefix(group, "FM") {
		return "", group
	}
	if v, s, ok := strings.Cut(group, "_"); ok {
		return v, s
	}
	return "", group
}

// speeds returns the TAS of each state in m/s, using the ground speed
// from U/V deltas where the recording has no TAS.
func speeds(states []State) []float64 {
	out := make([]float64, len(states))
	for i, s := range states {
		if s.TAS != nil {
			out[i] = *s.TAS
			continue
		}
		if i == 0 {
			continue
		}
		prev := states[i-1]
		dt := s.Time - prev.Time
		if dt <= 0 || !s.HasUV || !prev.HasUV {
			continue
		}
		out[i] = math.Hypot(s.U-prev.U, s.V-prev.V) / dt
	}
	return out
}

// wrap180 folds an angle difference into [-180, 180].
func wrap180(d float64) float64 {
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	return d
}

// turnRates returns the absolute heading rate at each state in deg/s.
// A non-positive time step repeats the previous rate.
func turnRates(states []State) []float64 {
	out := make([]float64, len(states))
	for i := 1; i < len(states); i++ {
		dt := states[i].Time - states[i-1].Time
		if dt <= 0 {
			out[i] = out[i-1]
			continue
		}
		out[i] = math.Abs(wrap180(states[i].Heading-states[i-1].Heading)) / dt
	}
	return out
}

func separation(a, b State) float64 {
	dz := a.AltM - b.AltM
	if a.HasUV && b.HasUV {
		return math.Sqrt((a.U-b.U)*(a.U-b.U) + (a.V-b.V)*(a.V-b.V) + dz*dz)
	}
	lat1, lat2 := a.Lat*math.Pi/180, b.Lat*math.Pi/180
	dlat := lat2 - lat1
	dlon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	horiz := earthRadiusM * 2 * math.Asin(math.Sqrt(h))
	return math.Hypot(horiz, dz)
}

// nearest returns the state closest in time to t.
func nearest(states []State, t float64) State {
	i := sort.Search(len(states), func(i int) bool { return states[i].Time >= t })
	switch {
	case i == 0:
		return states[0]
	case i == len(states):
		return states[i-1]
	case states[i].Time-t < t-states[i-1].Time:
		return states[i]
	default:
		return states[i-1]
	}
}

func minMax(vs []float64) (lo, hi float64) {
	if len(vs) == 0 {
		return 0, 0
	}
	lo, hi = vs[0], vs[0]
	for _, v := range vs[1:] {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	return lo, hi
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// AnalyzeEngagement measures one pair. Both tracks must be non-empty.
func AnalyzeEngagement(p Pair, targets config.EnvelopeTargets) EngagementResult {
	mig := p.MiG.States
	res := EngagementResult{
		MiGGroup:      p.MiG.Group(),
		OpponentGroup: p.Opponent.Group(),
		OpponentType:  p.Opponent.Name(),
		Assessment:    Nominal,
	}
	res.Variant, res.ScenarioID = splitVariant(res.MiGGroup)

	tas := speeds(mig)
	rates := turnRates(mig)
	_, res.Turn.MaxRateDegS = minMax(rates)
	if trim := len(rates) / 10; len(rates) > 20 {
		res.Turn.AvgRateDegS = mean(rates[trim : len(rates)-trim])
	} else {
		res.Turn.AvgRateDegS = mean(rates)
	}
	minRadius := math.Inf(1)
	for i := range mig {
		if rates[i] > 0 && tas[i] > 0 {
			minRadius = math.Min(minRadius, tas[i]/(rates[i]*math.Pi/180)*FtPerM)
		}
	}
	if !math.IsInf(minRadius, 1) {
		res.Turn.MinRadiusFt = minRadius
	}

	speedKt := make([]float64, len(mig))
	altFt := make([]float64, len(mig))
	gs := make([]float64, len(mig))
	var banks, aoas []float64
	for i, s := range mig {
		speedKt[i] = tas[i] * KtPerMps
		altFt[i] = s.AltM * FtPerM
		bank := math.Abs(s.Roll)
		banks = append(banks, bank)
		gs[i] = 1 / math.Cos(math.Min(bank*math.Pi/180, maxBankRad))
		if s.AOA != nil {
			aoas = append(aoas, *s.AOA)
		}
	}
	e := &res.Energy
	e.InitialSpeedKt, e.FinalSpeedKt = speedKt[0], speedKt[len(speedKt)-1]
	e.MinSpeedKt, e.MaxSpeedKt = minMax(speedKt)
	e.MinAltFt, e.MaxAltFt = minMax(altFt)
	e.AltSpanFt = e.MaxAltFt - e.MinAltFt

	_, res.Maneuver.MaxG = minMax(gs)
	res.Maneuver.AvgG = mean(gs)
	_, res.Maneuver.MaxAOADeg = minMax(aoas)
	_, res.Maneuver.MaxBankDeg = minMax(banks)

	res.Range.DurationS = mig[len(mig)-1].Time - mig[0].Time
	ranges := make([]float64, len(mig))
	for i, s := range mig {
		ranges[i] = separation(s, nearest(p.Opponent.States, s.Time)) * FtPerM
	}
	res.Range.InitialRangeFt = ranges[0]
	res.Range.MinRangeFt, _ = minMax(ranges)
	res.Range.Closure = res.Range.MinRangeFt < res.Range.InitialRangeFt

	res.assess(targets)
	return res
}

// assess grades the maximum turn rate against the instantaneous target
// (outside +/-15%) and the maximum load against the g limit (+10%).
func (r *EngagementResult) assess(t config.EnvelopeTargets) {
	inst := t.MaxInstantaneousTurnDegS
	switch rate := r.Turn.MaxRateDegS; {
	case rate > inst*1.15:
		r.Assessment = Over
		r.Notes = append(r.Notes, fmt.Sprintf("Turn rate %.1f deg/s exceeds target %g by >15%%", rate, inst))
	case rate < inst*0.85:
		r.Assessment = Under
		r.Notes = append(r.Notes, fmt.Sprintf("Turn rate %.1f deg/s below target %g by >15%%", rate, inst))
	}
	if r.Maneuver.MaxG > t.MaxG*1.1 {
		if r.Assessment == Nominal {
			r.Assessment = Over
		}
		r.Notes = append(r.Notes, fmt.Sprintf("G-loading %.1fG exceeds limit %gG", r.Maneuver.MaxG, t.MaxG))
	}
}

// Status maps an assessment onto the shared pass/fail scale.
func (a Assessment) Status() core.Status {
	if a == Nominal {
		return core.StatusPass
	}
	return core.StatusFail
}
