package config

import (
	_ "embed"
)

//go:embed defaults/settings.yaml
var defaultSettingsYAML []byte

// DefaultSettings returns the built-in settings.
func DefaultSettings() Settings {
	return Settings{
		Paths: PathSettings{
			VariantConfig: "fm_variants/variants.json",
			BaseModRoot:   "",
			VariantsRoot:  "fm_variants/mods",
			SavedGames:    "~/Saved Games/DCS",
			MissionOut:    "~/Saved Games/DCS/Missions/FM_Test.miz",
			Database:      "~/.fmlab/runs.db",
			ArchiveDir:    "test_runs",
			BFMConfig:     "bfm_mission_tests.json",
			BFMMissionOut: "~/Saved Games/DCS/Missions/MiG17F_BFM_Test.miz",
			TacviewDir:    "~/Documents/Tacview",
		},
		Mission: MissionSettings{
			LaneSpacingM: 80000,
			OriginX:      -275000,
			OriginY:      200000,
			Theatre:      "Caucasus",
			StartTime:    "2024-06-01T12:00:00Z",
			FuelMaxKg:    1140,
			EmptyMassKg:  3920,
			SummaryAfter: 600,
		},
		Log: LogSettings{
			Sentinel:       "[MIG17_FM_TEST]",
			DefaultVariant: "FM0",
			SimLog:         "Logs/dcs.log",
		},
		Targets: TargetSettings{
			TolerancePct: 5,
			VmaxSLKt:     593,
			Vmax10KKt:    618,
			RocFpm:       12800,
			CeilingFt:    54500,
		},
	}
}
