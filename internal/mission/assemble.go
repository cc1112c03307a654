package mission

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/fmlab/internal/config"
	"github.com/vovakirdan/fmlab/internal/core"
	"github.com/vovakirdan/fmlab/internal/profile"
)

// DefaultLaneSpacingM separates variant lanes along x.
const DefaultLaneSpacingM = 80000

// Options tune mission assembly. Zero values take the defaults.
type Options struct {
	LaneSpacingM   float64
	RunID          string
	Origin         core.Point
	Theatre        string
	StartTime      time.Time
	DefaultVariant string // variant key reported for Single-mode groups
	Script         ScriptParams
}

// DefaultOptions returns the options the legacy mission used.
func DefaultOptions() Options {
	return Options{
		LaneSpacingM:   DefaultLaneSpacingM,
		Origin:         core.Point{X: -275000, Y: 200000},
		Theatre:        "Caucasus",
		StartTime:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		DefaultVariant: "FM0",
		Script:         DefaultScriptParams(),
	}
}

// OptionsFromSettings maps tool settings onto assembly options.
func OptionsFromSettings(s config.Settings) (Options, error) {
	opts := DefaultOptions()
	m := s.Mission
	if m.LaneSpacingM > 0 {
		opts.LaneSpacingM = m.LaneSpacingM
	}
	opts.Origin = core.Point{X: m.OriginX, Y: m.OriginY}
	if m.Theatre != "" {
		opts.Theatre = m.Theatre
	}
	if m.StartTime != "" {
		t, err := time.Parse(time.RFC3339, m.StartTime)
		if err != nil {
			return opts, fmt.Errorf("mission: bad start_time %q: %w", m.StartTime, err)
		}
		opts.StartTime = t.UTC()
	}
	if m.FuelMaxKg > 0 {
		opts.Script.FuelMaxKg = m.FuelMaxKg
	}
	if m.EmptyMassKg > 0 {
		opts.Script.EmptyMassKg = m.EmptyMassKg
	}
	if m.SummaryAfter > 0 {
		opts.Script.SummaryAfterS = m.SummaryAfter
	}
	if s.Log.Sentinel != "" {
		opts.Script.Sentinel = s.Log.Sentinel
	}
	if s.Log.DefaultVariant != "" {
		opts.DefaultVariant = s.Log.DefaultVariant
	}
	return opts, nil
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.LaneSpacingM <= 0 {
		o.LaneSpacingM = def.LaneSpacingM
	}
	if o.RunID == "" {
		o.RunID = NewRunID()
	}
	if o.Theatre == "" {
		o.Theatre = def.Theatre
	}
	if o.StartTime.IsZero() {
		o.StartTime = def.StartTime
	}
	if o.DefaultVariant == "" {
		o.DefaultVariant = def.DefaultVariant
	}
	if o.Script == (ScriptParams{}) {
		o.Script = def.Script
	}
	return o
}

// NewRunID returns 12 hex characters from a random UUID.
func NewRunID() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:12]
}

// TestGroup is one profile flown by one variant.
type TestGroup struct {
	GroupName   string
	VariantKey  string
	ProfileName string
	TypeName    string
	Lane        int
	Origin      core.Point // first waypoint, in mission coordinates
	Profile     profile.TestProfile

	laneOffset float64
	base       core.Point
}

// Points returns the route in mission coordinates.
func (g TestGroup) Points() []core.Point {
	pts := make([]core.Point, len(g.Profile.Waypoints))
	for i, wp := range g.Profile.Waypoints {
		pts[i] = g.base.Offset(wp.Offset.X+g.laneOffset, wp.Offset.Y)
	}
	return pts
}

// Artifact is an assembled mission ready to be written.
type Artifact struct {
	RunID   string
	Mode    Mode
	Groups  []TestGroup
	Script  string
	Options Options
}

// GroupNames returns the group names in placement order.
func (a *Artifact) GroupNames() []string {
	names := make([]string, len(a.Groups))
	for i, g := range a.Groups {
		names[i] = g.GroupName
	}
	return names
}

// SelectProfiles resolves names against the built-in catalogue. An empty
// list selects every profile.
func SelectProfiles(names []string) ([]profile.TestProfile, error) {
	if len(names) == 0 {
		return profile.All(), nil
	}
	out := make([]profile.TestProfile, 0, len(names))
	for _, name := range names {
		p, ok := profile.Lookup(strings.TrimSpace(name))
		if !ok {
			return nil, &AssemblyError{Kind: KindUnknownProfile, Detail: name}
		}
		out = append(out, p)
	}
	return out, nil
}

func validate(mode Mode, descs []Descriptor, profiles []profile.TestProfile) error {
	if err := validateDescriptors(mode, descs); err != nil {
		return err
	}
	if len(profiles) == 0 {
		return &AssemblyError{Kind: KindUnknownProfile, Detail: "no profiles selected"}
	}

	names := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		if profile.Index(p.Name) < 0 || names[p.Name] {
			return &AssemblyError{Kind: KindUnknownProfile, Detail: p.Name}
		}
		if len(p.Waypoints) == 0 {
			return &AssemblyError{Kind: KindEmptyProfile, Detail: p.Name}
		}
		names[p.Name] = true
	}
	return nil
}

// validateDescriptors checks the variant side shared by every mission kind.
func validateDescriptors(mode Mode, descs []Descriptor) error {
	if len(descs) == 0 {
		return &AssemblyError{Kind: KindEmptyVariantList}
	}

	_, single := mode.(Single)
	seen := make(map[string]bool, len(descs))
	for _, d := range descs {
		if d.TypeName == "" {
			return &AssemblyError{Kind: KindMissingTypeName, Detail: d.ShortName}
		}
		if single {
			continue
		}
		if !config.ValidShortName(d.ShortName) || profile.IsFamily(d.ShortName) {
			return &AssemblyError{Kind: KindInvalidShortName, Detail: d.ShortName}
		}
		if seen[d.ShortName] {
			return &AssemblyError{Kind: KindDuplicateShortName, Detail: d.ShortName}
		}
		seen[d.ShortName] = true
	}
	return nil
}

// Assemble places one group per (variant, profile) pair and renders the
// logger script for the resulting group list. Nothing is placed if
// validation fails.
func Assemble(mode Mode, profiles []profile.TestProfile, opts Options) (*Artifact, error) {
	opts = opts.withDefaults()
	if err := checkScriptParams(opts.Script); err != nil {
		return nil, err
	}
	descs := mode.descriptors()
	if err := validate(mode, descs, profiles); err != nil {
		return nil, err
	}

	art := &Artifact{RunID: opts.RunID, Mode: mode, Options: opts}
	for lane, d := range descs {
		offset := float64(lane) * opts.LaneSpacingM
		key := d.ShortName
		if key == "" {
			key = opts.DefaultVariant
		}
		for _, p := range profiles {
			name := p.Name
			if d.ShortName != "" {
				name = d.ShortName + "_" + p.Name
			}
			first := p.Waypoints[0].Offset
			art.Groups = append(art.Groups, TestGroup{
				GroupName:   name,
				VariantKey:  key,
				ProfileName: p.Name,
				TypeName:    d.TypeName,
				Lane:        lane,
				Origin:      opts.Origin.Offset(first.X+offset, first.Y),
				Profile:     p,
				laneOffset:  offset,
				base:        opts.Origin,
			})
		}
	}

	art.Script = renderScript(art.GroupNames(), opts.RunID, opts.Script)
	return art, nil
}
