package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// BFM validation error codes.
const (
	CodeBadMissionSettings = "BAD_MISSION_SETTINGS"
	CodeBadScenario        = "BAD_SCENARIO"
)

// Opponent is an aircraft type the MiG is paired against.
type Opponent struct {
	ID          string  `json:"id" yaml:"id"`
	TypeName    string  `json:"dcs_type_name" yaml:"dcs_type_name"`
	DisplayName string  `json:"display_name" yaml:"display_name"`
	GroupPrefix string  `json:"group_prefix" yaml:"group_prefix"`
	FuelKg      float64 `json:"fuel_kg,omitempty" yaml:"fuel_kg,omitempty"` // 0 means full internal fuel
}

// Geometry is an engagement start geometry.
//
// Headings are map angles with 0 along +x. MiGOffsetDeg places the MiG
// around the opponent relative to the opponent's nose: 0 in front, 180
// behind, 90 on the left beam.
type Geometry struct {
	ID                string  `json:"id" yaml:"id"`
	Name              string  `json:"name" yaml:"name"`
	Description       string  `json:"description" yaml:"description"`
	MiGHeadingDeg     float64 `json:"mig17_heading_deg" yaml:"mig17_heading_deg"`
	OpponentHeading   float64 `json:"opponent_heading_deg" yaml:"opponent_heading_deg"`
	InitialRangeNm    float64 `json:"initial_range_nm" yaml:"initial_range_nm"`
	MiGOffsetDeg      float64 `json:"mig17_offset_deg" yaml:"mig17_offset_deg"`
	MiGAltitudeOffset float64 `json:"mig17_altitude_offset_ft" yaml:"mig17_altitude_offset_ft"`
}

// AltitudeBand is a named start altitude.
type AltitudeBand struct {
	ID         string  `json:"id" yaml:"id"`
	Name       string  `json:"name" yaml:"name"`
	AltitudeFt float64 `json:"altitude_ft" yaml:"altitude_ft"`
}

// InitialSpeed is a named start speed.
type InitialSpeed struct {
	ID      string  `json:"id" yaml:"id"`
	Name    string  `json:"name" yaml:"name"`
	SpeedKt float64 `json:"speed_kt" yaml:"speed_kt"`
}

// Scenario combines one entry of each table. OpponentSpeed overrides
// Speed for the opponent when set.
type Scenario struct {
	ID            string `json:"id" yaml:"id"`
	Opponent      string `json:"opponent" yaml:"opponent"`
	Geometry      string `json:"geometry" yaml:"geometry"`
	Altitude      string `json:"altitude" yaml:"altitude"`
	Speed         string `json:"speed" yaml:"speed"`
	Priority      int    `json:"priority" yaml:"priority"`
	OpponentSpeed string `json:"opponent_speed,omitempty" yaml:"opponent_speed,omitempty"`
}

// GridOrigin is the map position of the first scenario cell.
type GridOrigin struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// BFMMissionSettings places the scenario grid.
type BFMMissionSettings struct {
	DurationSeconds float64    `json:"duration_seconds" yaml:"duration_seconds"`
	GroupSpacingNm  float64    `json:"test_group_spacing_nm" yaml:"test_group_spacing_nm"`
	Origin          GridOrigin `json:"origin" yaml:"origin"`
}

// EnvelopeTargets are the expected MiG-17F turn figures.
type EnvelopeTargets struct {
	MaxSustainedTurnDegS     float64 `json:"max_sustained_turn_rate_deg_s" yaml:"max_sustained_turn_rate_deg_s"`
	MaxInstantaneousTurnDegS float64 `json:"max_instantaneous_turn_rate_deg_s" yaml:"max_instantaneous_turn_rate_deg_s"`
	MaxG                     float64 `json:"max_g_loading" yaml:"max_g_loading"`
	CornerSpeedKt            float64 `json:"corner_speed_kt" yaml:"corner_speed_kt"`
	MinTurnRadiusFt          float64 `json:"min_turn_radius_ft" yaml:"min_turn_radius_ft"`
}

// TurnRateCriteria bound the measured turn rates.
type TurnRateCriteria struct {
	SustainedMin     float64 `json:"sustained_min_deg_s" yaml:"sustained_min_deg_s"`
	SustainedMax     float64 `json:"sustained_max_deg_s" yaml:"sustained_max_deg_s"`
	InstantaneousMin float64 `json:"instantaneous_min_deg_s" yaml:"instantaneous_min_deg_s"`
	InstantaneousMax float64 `json:"instantaneous_max_deg_s" yaml:"instantaneous_max_deg_s"`
}

// GCriteria bound the measured load factor.
type GCriteria struct {
	MaxExpected float64 `json:"max_expected" yaml:"max_expected"`
	Warning     float64 `json:"warning_threshold" yaml:"warning_threshold"`
}

// PassFailCriteria grade a measured envelope.
type PassFailCriteria struct {
	TurnRate TurnRateCriteria `json:"turn_rate" yaml:"turn_rate"`
	GLoading GCriteria        `json:"g_loading" yaml:"g_loading"`
}

// BFMConfig is the BFM test document. It is never modified after load.
type BFMConfig struct {
	Version    int                `json:"version" yaml:"version"`
	Opponents  []Opponent         `json:"opponent_aircraft" yaml:"opponent_aircraft"`
	Geometries []Geometry         `json:"engagement_geometries" yaml:"engagement_geometries"`
	Altitudes  []AltitudeBand     `json:"altitude_bands" yaml:"altitude_bands"`
	Speeds     []InitialSpeed     `json:"initial_speeds" yaml:"initial_speeds"`
	Scenarios  []Scenario         `json:"test_scenarios" yaml:"test_scenarios"`
	Settings   BFMMissionSettings `json:"mission_settings" yaml:"mission_settings"`
	Targets    EnvelopeTargets    `json:"flight_envelope_targets" yaml:"flight_envelope_targets"`
	Criteria   PassFailCriteria   `json:"pass_fail_criteria" yaml:"pass_fail_criteria"`

	Path string `json:"-" yaml:"-"`
}

// DefaultEnvelopeTargets are used for every target the document omits.
func DefaultEnvelopeTargets() EnvelopeTargets {
	return EnvelopeTargets{
		MaxSustainedTurnDegS:     14.5,
		MaxInstantaneousTurnDegS: 22,
		MaxG:                     8,
		CornerSpeedKt:            350,
		MinTurnRadiusFt:          2200,
	}
}

// DefaultCriteria are used for every criterion the document omits.
func DefaultCriteria() PassFailCriteria {
	return PassFailCriteria{
		TurnRate: TurnRateCriteria{SustainedMin: 12, SustainedMax: 17, InstantaneousMin: 18, InstantaneousMax: 25},
		GLoading: GCriteria{MaxExpected: 8, Warning: 7},
	}
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func (c *BFMConfig) applyDefaults() {
	t, dt := &c.Targets, DefaultEnvelopeTargets()
	t.MaxSustainedTurnDegS = orDefault(t.MaxSustainedTurnDegS, dt.MaxSustainedTurnDegS)
	t.MaxInstantaneousTurnDegS = orDefault(t.MaxInstantaneousTurnDegS, dt.MaxInstantaneousTurnDegS)
	t.MaxG = orDefault(t.MaxG, dt.MaxG)
	t.CornerSpeedKt = orDefault(t.CornerSpeedKt, dt.CornerSpeedKt)
	t.MinTurnRadiusFt = orDefault(t.MinTurnRadiusFt, dt.MinTurnRadiusFt)

	tr, dc := &c.Criteria.TurnRate, DefaultCriteria()
	tr.SustainedMin = orDefault(tr.SustainedMin, dc.TurnRate.SustainedMin)
	tr.SustainedMax = orDefault(tr.SustainedMax, dc.TurnRate.SustainedMax)
	tr.InstantaneousMin = orDefault(tr.InstantaneousMin, dc.TurnRate.InstantaneousMin)
	tr.InstantaneousMax = orDefault(tr.InstantaneousMax, dc.TurnRate.InstantaneousMax)
	g := &c.Criteria.GLoading
	g.MaxExpected = orDefault(g.MaxExpected, dc.GLoading.MaxExpected)
	g.Warning = orDefault(g.Warning, dc.GLoading.Warning)
}

// Opponent returns the opponent with the given id.
func (c *BFMConfig) Opponent(id string) (Opponent, bool) {
	for _, o := range c.Opponents {
		if o.ID == id {
			return o, true
		}
	}
	return Opponent{}, false
}

// Geometry returns the geometry with the given id.
func (c *BFMConfig) Geometry(id string) (Geometry, bool) {
	for _, g := range c.Geometries {
		if g.ID == id {
			return g, true
		}
	}
	return Geometry{}, false
}

// Altitude returns the altitude band with the given id.
func (c *BFMConfig) Altitude(id string) (AltitudeBand, bool) {
	for _, a := range c.Altitudes {
		if a.ID == id {
			return a, true
		}
	}
	return AltitudeBand{}, false
}

// Speed returns the initial speed with the given id.
func (c *BFMConfig) Speed(id string) (InitialSpeed, bool) {
	for _, s := range c.Speeds {
		if s.ID == id {
			return s, true
		}
	}
	return InitialSpeed{}, false
}

// Validate checks the values the mission builder writes into Lua or uses
// for placement. Dangling scenario references are not errors; the
// builder skips those scenarios.
func (c *BFMConfig) Validate() error {
	s := c.Settings
	if s.DurationSeconds <= 0 {
		return ValidationError{Code: CodeBadMissionSettings, Message: fmt.Sprintf("duration_seconds must be > 0, got %v", s.DurationSeconds)}
	}
	if !ValidScale(s.GroupSpacingNm) {
		return ValidationError{Code: CodeBadMissionSettings, Message: fmt.Sprintf("test_group_spacing_nm must be a finite number > 0, got %v", s.GroupSpacingNm)}
	}

	for _, o := range c.Opponents {
		if o.TypeName == "" {
			return ValidationError{Code: CodeMissingField, Message: fmt.Sprintf("opponent %s: dcs_type_name is required", o.ID)}
		}
		if !SafeText(o.TypeName) {
			return ValidationError{Code: CodeInvalidText, Message: fmt.Sprintf("opponent %s: dcs_type_name %q contains a quote, backslash or line break", o.ID, o.TypeName)}
		}
		if o.FuelKg < 0 {
			return ValidationError{Code: CodeBadScenario, Message: fmt.Sprintf("opponent %s: fuel_kg must be >= 0", o.ID)}
		}
	}
	for _, g := range c.Geometries {
		if !ValidScale(g.InitialRangeNm) {
			return ValidationError{Code: CodeBadScenario, Message: fmt.Sprintf("geometry %s: initial_range_nm must be a finite number > 0, got %v", g.ID, g.InitialRangeNm)}
		}
	}

	seen := make(map[string]bool, len(c.Scenarios))
	for i, sc := range c.Scenarios {
		if sc.ID == "" {
			return ValidationError{Code: CodeMissingField, Message: fmt.Sprintf("scenario #%d: id is required", i)}
		}
		if !SafeText(sc.ID) || strings.ContainsAny(sc.ID, " \t,") {
			return ValidationError{Code: CodeInvalidText, Message: fmt.Sprintf("scenario %q: id must not contain quotes, separators or whitespace", sc.ID)}
		}
		if seen[sc.ID] {
			return ValidationError{Code: CodeDuplicate, Message: fmt.Sprintf("scenario %s is listed twice", sc.ID)}
		}
		seen[sc.ID] = true
		if sc.Priority < 1 || sc.Priority > 3 {
			return ValidationError{Code: CodeBadScenario, Message: fmt.Sprintf("scenario %s: priority must be 1, 2 or 3, got %d", sc.ID, sc.Priority)}
		}
	}
	return nil
}

// ParseBFM decodes a BFM document. The format is chosen by the file
// extension of name, as for variant configs.
func ParseBFM(data []byte, name string) (*BFMConfig, error) {
	cfg := &BFMConfig{}
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse BFM config %s: %w", name, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse BFM config %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("unsupported BFM config format: %s", ext)
	}
	cfg.applyDefaults()
	cfg.Path = name
	return cfg, nil
}

// LoadBFM reads and validates a BFM config file.
func LoadBFM(path string) (*BFMConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read BFM config %s: %w", path, err)
	}
	cfg, err := ParseBFM(data, path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid BFM config %s: %w", path, err)
	}
	return cfg, nil
}
