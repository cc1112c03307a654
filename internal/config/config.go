// Package config holds the tool settings and the variant configuration model.
//
// Settings are read from YAML with the usual search order (see LoadSettings).
// Variant configurations are read-only documents describing the baseline
// aircraft and the scaled variants derived from it.
package config

// Settings is the top-level tool configuration.
type Settings struct {
	Paths   PathSettings    `yaml:"paths"`
	Mission MissionSettings `yaml:"mission"`
	Log     LogSettings     `yaml:"log"`
	Targets TargetSettings  `yaml:"targets"`
}

// PathSettings locates the inputs and outputs of every command.
// A leading ~ is expanded to the user's home directory.
type PathSettings struct {
	VariantConfig string `yaml:"variant_config"`
	BaseModRoot   string `yaml:"base_mod_root"`
	VariantsRoot  string `yaml:"variants_root"`
	SavedGames    string `yaml:"saved_games"`
	MissionOut    string `yaml:"mission_out"`
	Database      string `yaml:"database"`
	ArchiveDir    string `yaml:"archive_dir"`
	BFMConfig     string `yaml:"bfm_config"`
	BFMMissionOut string `yaml:"bfm_mission_out"`
	TacviewDir    string `yaml:"tacview_dir"`
}

// MissionSettings controls test mission placement.
type MissionSettings struct {
	LaneSpacingM float64 `yaml:"lane_spacing_m"`
	OriginX      float64 `yaml:"origin_x"`
	OriginY      float64 `yaml:"origin_y"`
	Theatre      string  `yaml:"theatre"`
	StartTime    string  `yaml:"start_time"` // RFC 3339, UTC
	FuelMaxKg    float64 `yaml:"fuel_max_kg"`
	EmptyMassKg  float64 `yaml:"empty_mass_kg"`
	SummaryAfter float64 `yaml:"summary_after_s"`
}

// LogSettings describes the structured lines emitted by the logger script.
type LogSettings struct {
	Sentinel       string `yaml:"sentinel"`
	DefaultVariant string `yaml:"default_variant"`
	SimLog         string `yaml:"sim_log"` // relative to saved games
}

// TargetSettings are the historical performance figures reports compare against.
type TargetSettings struct {
	TolerancePct float64 `yaml:"tolerance_pct"`
	VmaxSLKt     float64 `yaml:"vmax_sl_kt"`
	Vmax10KKt    float64 `yaml:"vmax_10k_kt"`
	RocFpm       float64 `yaml:"roc_fpm"`
	CeilingFt    float64 `yaml:"ceiling_ft"`
}
