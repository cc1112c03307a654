package acmi

import (
	"math"
	"strings"

	"github.com/vovakirdan/fmlab/internal/config"
)

// DefaultObjectFilter selects the MiG-17F mod and its variants.
const DefaultObjectFilter = "vwv_mig17f"

// Envelope analysis thresholds.
const (
	minEnvelopeSamples = 5
	maxStepS           = 5.0
	turnMinSpeedKt     = 150.0
	turnMinRateDegS    = 1.0
	sustainedRateDegS  = 8.0
	sustainedMinS      = 1.5
	radiusTightFactor  = 0.8
	radiusLooseFactor  = 1.25
)

// Envelope holds the bounds a flight is classified against.
type Envelope struct {
	SustainedMin     float64 // deg/s
	SustainedMax     float64
	InstantaneousMin float64
	InstantaneousMax float64
	CornerSpeedKt    float64
	MinTurnRadiusFt  float64
	GWarning         float64
	GMax             float64
}

// DefaultEnvelope is the expected MiG-17F envelope.
func DefaultEnvelope() Envelope {
	return EnvelopeFromConfig(nil)
}

// EnvelopeFromConfig takes the bounds from a BFM config, or the
// defaults when cfg is nil.
func EnvelopeFromConfig(cfg *config.BFMConfig) Envelope {
	targets, crit := config.DefaultEnvelopeTargets(), config.DefaultCriteria()
	if cfg != nil {
		targets, crit = cfg.Targets, cfg.Criteria
	}
	return Envelope{
		SustainedMin:     crit.TurnRate.SustainedMin,
		SustainedMax:     crit.TurnRate.SustainedMax,
		InstantaneousMin: crit.TurnRate.InstantaneousMin,
		InstantaneousMax: crit.TurnRate.InstantaneousMax,
		CornerSpeedKt:    targets.CornerSpeedKt,
		MinTurnRadiusFt:  targets.MinTurnRadiusFt,
		GWarning:         crit.GLoading.Warning,
		GMax:             crit.GLoading.MaxExpected,
	}
}

// Class labels a measured value against a bound.
type Class string

const (
	ClassNA         Class = "N/A"
	ClassWithin     Class = "WITHIN"
	ClassUnder      Class = "UNDER"
	ClassOver       Class = "OVER"
	ClassWarning    Class = "WARNING"
	ClassTightOver  Class = "TIGHT_OVER"
	ClassLooseUnder Class = "LOOSE_UNDER"
)

// Overall envelope verdicts.
const (
	OverEnvelope  = "OVER_ENVELOPE"
	UnderEnvelope = "UNDER_ENVELOPE"
	WithinOrMixed = "WITHIN_OR_MIXED"
)

// ClassifyRange places value against [lo, hi].
func ClassifyRange(value *float64, lo, hi float64) Class {
	switch {
	case value == nil:
		return ClassNA
	case *value < lo:
		return ClassUnder
	case *value > hi:
		return ClassOver
	}
	return ClassWithin
}

// ClassifyG grades a load factor against the warning and maximum.
func ClassifyG(g, warn, limit float64) Class {
	switch {
	case g <= warn:
		return ClassWithin
	case g <= limit:
		return ClassWarning
	}
	return ClassOver
}

// ClassifyRadius grades the tightest turn against the expected minimum.
func ClassifyRadius(radiusFt *float64, targetFt float64) Class {
	switch {
	case radiusFt == nil:
		return ClassNA
	case *radiusFt < targetFt*radiusTightFactor:
		return ClassTightOver
	case *radiusFt > targetFt*radiusLooseFactor:
		return ClassLooseUnder
	}
	return ClassWithin
}

// Overall combines the per-metric classes.
func Overall(inst, sust, g, radius Class) string {
	if g == ClassOver || inst == ClassOver || radius == ClassTightOver {
		return OverEnvelope
	}
	if inst == ClassUnder && sust == ClassUnder {
		return UnderEnvelope
	}
	return WithinOrMixed
}

// FlightMetrics is the envelope analysis of one aircraft.
type FlightMetrics struct {
	ObjectID string
	Name     string
	Type     string
	Group    string

	TimeStart, TimeEnd, DurationS float64
	MinSpeedKt, MaxSpeedKt        float64
	MinAltFt, MaxAltFt, AltSpanFt float64

	MaxInstRateDegS float64
	SpeedAtMaxKt    float64
	AltAtMaxFt      float64
	GAtMax          float64

	SustainedRateDegS float64
	SustainedWindowS  float64
	SustainedSpeedKt  *float64
	SustainedG        *float64

	MinTurnRadiusFt *float64
	MaxG            float64

	Inst, Sust, G, Radius Class
	OverallStatus         string
}

// MatchesFilter reports whether any identity field contains filter,
// ignoring case.
func (o *Object) MatchesFilter(filter string) bool {
	f := strings.ToLower(filter)
	for _, k := range []string{"Name", "Type", "Group", "Pilot"} {
		if v := o.Meta[k]; v != "" && strings.Contains(strings.ToLower(v), f) {
			return true
		}
	}
	return false
}

// AnalyzeEnvelope measures every object matching filter (DefaultObjectFilter
// when empty) that has enough positioned samples.
func AnalyzeEnvelope(rec *Recording, env Envelope, filter string) []FlightMetrics {
	if filter == "" {
		filter = DefaultObjectFilter
	}
	var out []FlightMetrics
	for _, o := range rec.Objects {
		if !o.MatchesFilter(filter) {
			continue
		}
		var samples []State
		for _, s := range o.States {
			if s.HasAlt && s.HasUV {
				samples = append(samples, s)
			}
		}
		m, ok := flightMetrics(samples, env)
		if !ok {
			continue
		}
		m.ObjectID, m.Name, m.Type, m.Group = o.ID, o.Name(), o.Type(), o.Group()
		out = append(out, m)
	}
	return out
}

// runStats accumulates a dt-weighted turn segment.
type runStats struct {
	dt, rate, speed, g float64
}

func flightMetrics(samples []State, env Envelope) (FlightMetrics, bool) {
	n := len(samples)
	if n < minEnvelopeSamples {
		return FlightMetrics{}, false
	}

	speedMps := make([]float64, n)
	heading := make([]float64, n)
	for i := 1; i < n; i++ {
		dt := samples[i].Time - samples[i-1].Time
		if dt <= 0 || dt > maxStepS {
			speedMps[i], heading[i] = speedMps[i-1], heading[i-1]
			continue
		}
		vx := (samples[i].U - samples[i-1].U) / dt
		vy := (samples[i].V - samples[i-1].V) / dt
		speedMps[i] = math.Hypot(vx, vy)
		heading[i] = math.Atan2(vy, vx)
	}
	speedMps[0], heading[0] = speedMps[1], heading[1]

	unwrapped := make([]float64, n)
	unwrapped[0] = heading[0]
	for i := 1; i < n; i++ {
		d := heading[i] - heading[i-1]
		for d > math.Pi {
			d -= 2 * math.Pi
		}
		for d < -math.Pi {
			d += 2 * math.Pi
		}
		unwrapped[i] = unwrapped[i-1] + d
	}

	rate := make([]float64, n)
	for i := 1; i < n; i++ {
		dt := samples[i].Time - samples[i-1].Time
		if dt <= 0 || dt > maxStepS {
			continue
		}
		rate[i] = (unwrapped[i] - unwrapped[i-1]) / dt * 180 / math.Pi
	}
	smooth := append([]float64(nil), rate...)
	for i := 1; i < n-1; i++ {
		smooth[i] = (rate[i-1] + rate[i] + rate[i+1]) / 3
	}

	speedKt := make([]float64, n)
	altFt := make([]float64, n)
	gLoad := make([]float64, n)
	var minRadius *float64
	vMin := turnMinSpeedKt / KtPerMps
	for i := range samples {
		speedKt[i] = speedMps[i] * KtPerMps
		altFt[i] = samples[i].AltM * FtPerM
		omega := math.Abs(smooth[i]) * math.Pi / 180
		if speedMps[i] > vMin && omega > turnMinRateDegS*math.Pi/180 {
			r := speedMps[i] / omega * FtPerM
			if minRadius == nil || r < *minRadius {
				minRadius = &r
			}
			gLoad[i] = speedMps[i] * omega / G0
		}
	}

	m := FlightMetrics{
		TimeStart: samples[0].Time,
		TimeEnd:   samples[n-1].Time,
	}
	m.DurationS = m.TimeEnd - m.TimeStart
	m.MinSpeedKt, m.MaxSpeedKt = minMax(speedKt)
	m.MinAltFt, m.MaxAltFt = minMax(altFt)
	m.AltSpanFt = m.MaxAltFt - m.MinAltFt

	maxIdx := 0
	for i := range samples {
		if speedKt[i] < turnMinSpeedKt {
			continue
		}
		if v := math.Abs(smooth[i]); v > m.MaxInstRateDegS {
			m.MaxInstRateDegS, maxIdx = v, i
		}
	}
	m.SpeedAtMaxKt, m.AltAtMaxFt, m.GAtMax = speedKt[maxIdx], altFt[maxIdx], gLoad[maxIdx]

	// best sustained segment: |rate| >= 8 deg/s at >= 150 kt for 1.5 s
	closeRun := func(start, end int) {
		var s runStats
		for j := start + 1; j < end; j++ {
			dt := samples[j].Time - samples[j-1].Time
			if dt <= 0 || dt > maxStepS {
				continue
			}
			s.dt += dt
			s.rate += math.Abs(smooth[j]) * dt
			s.speed += speedKt[j] * dt
			s.g += gLoad[j] * dt
		}
		if s.dt < sustainedMinS {
			return
		}
		if avg := s.rate / s.dt; avg > m.SustainedRateDegS {
			speed, g := s.speed/s.dt, s.g/s.dt
			m.SustainedRateDegS, m.SustainedWindowS = avg, s.dt
			m.SustainedSpeedKt, m.SustainedG = &speed, &g
		}
	}
	inRun, start := false, 0
	for i := 1; i < n; i++ {
		turning := math.Abs(smooth[i]) >= sustainedRateDegS && speedKt[i] >= turnMinSpeedKt
		switch {
		case turning && !inRun:
			inRun, start = true, i-1
		case !turning && inRun:
			inRun = false
			closeRun(start, i)
		}
	}
	if inRun {
		closeRun(start, n)
	}

	m.MinTurnRadiusFt = minRadius
	_, m.MaxG = minMax(gLoad)

	inst, sust := m.MaxInstRateDegS, m.SustainedRateDegS
	m.Inst = ClassifyRange(&inst, env.InstantaneousMin, env.InstantaneousMax)
	m.Sust = ClassifyRange(&sust, env.SustainedMin, env.SustainedMax)
	m.G = ClassifyG(m.MaxG, env.GWarning, env.GMax)
	m.Radius = ClassifyRadius(m.MinTurnRadiusFt, env.MinTurnRadiusFt)
	m.OverallStatus = Overall(m.Inst, m.Sust, m.G, m.Radius)
	return m, true
}
