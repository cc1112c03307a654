package mission

import (
	_ "embed"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vovakirdan/fmlab/internal/config"
	"github.com/vovakirdan/fmlab/internal/core"
)

//go:embed bfm_marker.lua
var markerTemplate string

// BFM mission constants.
const (
	BFMSentinel        = "[BFM_TEST]"
	EngageRangeM       = 20000
	DefaultMaxPriority = 2

	bfmFuelFraction = 0.5
	legLengthM      = 10000
	opponentSuffix  = "_OPP"
)

// BFMOptions tune BFM mission assembly. Zero values take the defaults.
type BFMOptions struct {
	RunID       string
	MaxPriority int // scenarios above this priority are left out
	Theatre     string
	StartTime   time.Time
	FuelMaxKg   float64 // MiG internal fuel; the MiG starts at half
}

// BFMOptionsFromSettings maps tool settings onto BFM options.
func BFMOptionsFromSettings(s config.Settings) (BFMOptions, error) {
	base, err := OptionsFromSettings(s)
	if err != nil {
		return BFMOptions{}, err
	}
	return BFMOptions{
		MaxPriority: DefaultMaxPriority,
		Theatre:     base.Theatre,
		StartTime:   base.StartTime,
		FuelMaxKg:   base.Script.FuelMaxKg,
	}, nil
}

func (o BFMOptions) withDefaults() BFMOptions {
	def := DefaultOptions()
	if o.RunID == "" {
		o.RunID = NewRunID()
	}
	if o.MaxPriority == 0 {
		o.MaxPriority = DefaultMaxPriority
	}
	if o.Theatre == "" {
		o.Theatre = def.Theatre
	}
	if o.StartTime.IsZero() {
		o.StartTime = def.StartTime
	}
	if o.FuelMaxKg <= 0 {
		o.FuelMaxKg = def.Script.FuelMaxKg
	}
	return o
}

// Aircraft is the air start of one side of an engagement.
type Aircraft struct {
	Group      string
	TypeName   string
	Pos        core.Point
	AltM       float64
	SpeedMps   float64
	HeadingDeg float64
	FuelKg     int
}

// Engagement pairs one MiG variant with one opponent in a grid cell.
type Engagement struct {
	ScenarioID string
	VariantKey string // empty in Single mode
	Row, Col   int
	MiG        Aircraft
	Opponent   Aircraft
}

// Separation is the initial horizontal distance between the two aircraft.
func (e Engagement) Separation() float64 {
	return e.MiG.Pos.Dist(e.Opponent.Pos)
}

// bounds covers both start points and both forward legs.
func (e Engagement) bounds() core.Rect {
	return core.BoundsOf([]core.Point{
		e.MiG.Pos, e.MiG.leg(),
		e.Opponent.Pos, e.Opponent.leg(),
	})
}

// leg is the point legLengthM ahead of the start along the heading.
func (a Aircraft) leg() core.Point {
	rad := a.HeadingDeg * math.Pi / 180
	return a.Pos.Offset(legLengthM*math.Cos(rad), legLengthM*math.Sin(rad))
}

func (a Aircraft) flight(blue bool) flight {
	tasks := []any{engageTask(EngageRangeM)}
	return flight{
		name:     a.Group,
		typeName: a.TypeName,
		blue:     blue,
		altM:     a.AltM,
		speedMps: a.SpeedMps,
		heading:  a.HeadingDeg,
		fuelKg:   a.FuelKg,
		route: []routePoint{
			{pos: a.Pos, altM: a.AltM, speedMps: a.SpeedMps, tasks: tasks},
			{pos: a.leg(), altM: a.AltM, speedMps: a.SpeedMps},
		},
	}
}

// BFMArtifact is an assembled BFM mission ready to be written.
type BFMArtifact struct {
	RunID       string
	Mode        Mode
	Engagements []Engagement
	Script      string
	Skipped     []string // scenarios with dangling references
	Warnings    []string
	Options     BFMOptions
}

// GroupNames returns MiG and opponent group names in placement order.
func (a *BFMArtifact) GroupNames() []string {
	names := make([]string, 0, 2*len(a.Engagements))
	for _, e := range a.Engagements {
		names = append(names, e.MiG.Group, e.Opponent.Group)
	}
	return names
}

// EngagementPositions returns the MiG and opponent start points of a
// geometry centred on center, with altitudes in metres.
func EngagementPositions(g config.Geometry, baseAltFt float64, center core.Point) (mig, opp Aircraft) {
	rangeM := core.NauticalMiles(g.InitialRangeNm)
	theta := (g.OpponentHeading + g.MiGOffsetDeg) * math.Pi / 180
	dx, dy := rangeM*math.Cos(theta), rangeM*math.Sin(theta)

	mig = Aircraft{
		Pos:        center.Offset(dx/2, dy/2),
		AltM:       core.FeetToMeters(baseAltFt + g.MiGAltitudeOffset),
		HeadingDeg: g.MiGHeadingDeg,
	}
	opp = Aircraft{
		Pos:        center.Offset(-dx/2, -dy/2),
		AltM:       core.FeetToMeters(baseAltFt),
		HeadingDeg: g.OpponentHeading,
	}
	return mig, opp
}

// AssembleBFM places one engagement per (variant, scenario) pair on a grid:
// scenarios along x, variants along y. Scenarios above the priority cut are
// dropped; scenarios with dangling references keep their column but are
// skipped and reported.
func AssembleBFM(mode Mode, cfg *config.BFMConfig, opts BFMOptions) (*BFMArtifact, error) {
	opts = opts.withDefaults()
	if opts.MaxPriority < 1 || opts.MaxPriority > 3 {
		return nil, fmt.Errorf("mission: max priority must be 1, 2 or 3, got %d", opts.MaxPriority)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	descs := mode.descriptors()
	if err := validateDescriptors(mode, descs); err != nil {
		return nil, err
	}

	var active []config.Scenario
	for _, sc := range cfg.Scenarios {
		if sc.Priority <= opts.MaxPriority {
			active = append(active, sc)
		}
	}
	if len(active) == 0 {
		return nil, &AssemblyError{Kind: KindNoScenarios, Detail: fmt.Sprintf("priority <= %d", opts.MaxPriority)}
	}

	art := &BFMArtifact{RunID: opts.RunID, Mode: mode, Options: opts}
	spacing := core.NauticalMiles(cfg.Settings.GroupSpacingNm)
	origin := core.Point{X: cfg.Settings.Origin.X, Y: cfg.Settings.Origin.Y}
	migFuel := int(opts.FuelMaxKg * bfmFuelFraction)

	skipped := make(map[string]bool)
	for row, d := range descs {
		for col, sc := range active {
			opp, okOpp := cfg.Opponent(sc.Opponent)
			geom, okGeom := cfg.Geometry(sc.Geometry)
			alt, okAlt := cfg.Altitude(sc.Altitude)
			speed, okSpeed := cfg.Speed(sc.Speed)
			if !okOpp || !okGeom || !okAlt || !okSpeed {
				if !skipped[sc.ID] {
					skipped[sc.ID] = true
					art.Skipped = append(art.Skipped, sc.ID)
				}
				continue
			}
			oppSpeed := speed
			if sc.OpponentSpeed != "" {
				if s, ok := cfg.Speed(sc.OpponentSpeed); ok {
					oppSpeed = s
				} else if row == 0 {
					art.Warnings = append(art.Warnings,
						fmt.Sprintf("scenario %s: unknown opponent_speed %q, using %s", sc.ID, sc.OpponentSpeed, sc.Speed))
				}
			}

			center := origin.Offset(float64(col)*spacing, float64(row)*spacing)
			mig, foe := EngagementPositions(geom, alt.AltitudeFt, center)

			name := sc.ID
			if d.ShortName != "" {
				name = d.ShortName + "_" + sc.ID
			}
			mig.Group = name
			mig.TypeName = d.TypeName
			mig.SpeedMps = core.KnotsToMps(speed.SpeedKt)
			mig.FuelKg = migFuel

			foe.Group = name + opponentSuffix
			foe.TypeName = opp.TypeName
			foe.SpeedMps = core.KnotsToMps(oppSpeed.SpeedKt)
			foe.FuelKg = int(opts.FuelMaxKg)
			if opp.FuelKg > 0 {
				foe.FuelKg = int(opp.FuelKg)
			}

			e := Engagement{ScenarioID: sc.ID, VariantKey: d.ShortName, Row: row, Col: col, MiG: mig, Opponent: foe}
			if e.Separation() > EngageRangeM && row == 0 {
				art.Warnings = append(art.Warnings,
					fmt.Sprintf("scenario %s: aircraft start %.0f m apart, beyond the %d m engage range", sc.ID, e.Separation(), EngageRangeM))
			}
			art.Engagements = append(art.Engagements, e)
		}
	}
	if len(art.Engagements) == 0 {
		return nil, &AssemblyError{Kind: KindNoScenarios, Detail: "every active scenario is incomplete"}
	}
	if err := checkCrowding(art.Engagements); err != nil {
		return nil, err
	}

	art.Script = renderMarker(opts.RunID, len(art.GroupNames()), cfg.Settings.DurationSeconds)
	return art, nil
}

// checkCrowding rejects grids where aircraft of different cells could
// engage each other.
func checkCrowding(es []Engagement) error {
	boxes := make([]core.Rect, len(es))
	for i, e := range es {
		boxes[i] = e.bounds().Expand(EngageRangeM / 2)
	}
	for i := range es {
		for j := i + 1; j < len(es); j++ {
			if boxes[i].Intersects(boxes[j]) {
				return &AssemblyError{
					Kind:   KindCrowdedGrid,
					Detail: fmt.Sprintf("%s and %s are within %d m; raise test_group_spacing_nm", es[i].MiG.Group, es[j].MiG.Group, EngageRangeM),
				}
			}
		}
	}
	return nil
}

func renderMarker(runID string, groups int, durationS float64) string {
	r := strings.NewReplacer(
		sentinelPlaceholder, BFMSentinel,
		runIDPlaceholder, runID,
		"{GROUP_COUNT}", strconv.Itoa(groups),
		"{DURATION_S}", luaNumber(durationS),
	)
	return "\n" + r.Replace(markerTemplate)
}

func (a *BFMArtifact) document() document {
	doc := document{
		theatre:        a.Options.Theatre,
		start:          a.Options.StartTime,
		sortie:         "BFM test " + a.RunID,
		description:    fmt.Sprintf("BFM test run %s, %d engagements", a.RunID, len(a.Engagements)),
		triggerComment: "BFM Test Marker",
		script:         a.Script,
	}
	for _, e := range a.Engagements {
		doc.flights = append(doc.flights, e.MiG.flight(false), e.Opponent.flight(true))
	}
	return doc
}

// WriteMiz writes the mission archive.
func (a *BFMArtifact) WriteMiz(w io.Writer) error {
	return a.document().write(w)
}

// Save writes the archive to path, creating parent directories.
func (a *BFMArtifact) Save(path string) error {
	return saveArchive(path, a.WriteMiz)
}
