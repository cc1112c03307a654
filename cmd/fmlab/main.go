// fmlab builds flight-model variant mods, generates the matching test
// mission and turns the simulator log into a verification report.
//
// Usage:
//
//	fmlab build-variants            - Build variant mod folders from the variant config
//	fmlab install                   - Copy built variants into Saved Games
//	fmlab generate-mission          - Write the FM test mission (.miz)
//	fmlab generate-bfm-mission      - Write the BFM engagement mission (.miz)
//	fmlab analyze-bfm <acmi|latest> - Measure BFM engagements in a Tacview recording
//	fmlab parse-log [log]           - Aggregate a simulator log into a report
//	fmlab promote-variant <variant> - Make a tested variant the new baseline
//	fmlab list                      - Show variants, test profiles and report formats
//	fmlab runs                      - Show recorded runs
//	fmlab results [run-id]          - Show or browse the results of a run
//
// Global flags:
//
//	--settings <path>  - Settings file (default: search ~/.fmlab, ./fmlab.yaml)
//	--db <path>        - Run history database (default from settings)
//	--verbose          - Debug logging
//	--quiet            - Warnings and errors only
//	--log-file <path>  - Also write logs to a rotating file
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/fmlab/internal/config"
	"github.com/vovakirdan/fmlab/internal/logging"

	// Register report formats
	_ "github.com/vovakirdan/fmlab/internal/report"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitNoData  = 2 // also used for usage errors
)

var (
	// Global flags
	flagSettings string
	flagDBPath   string
	flagVerbose  bool
	flagQuiet    bool
	flagLogFile  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitNoData)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fmlab",
	Short: "fmlab - flight model variant lab",
	Long: `fmlab builds scaled flight-model variants of a baseline aircraft mod,
generates a test mission that flies every variant through the same test
profiles, and aggregates the simulator log into a per-variant report.

Available commands:
  build-variants   - Build variant mod folders
  install          - Install built variants into Saved Games
  generate-mission - Write the FM test mission
  generate-bfm-mission - Write the BFM engagement mission
  analyze-bfm      - Analyze a Tacview recording of the BFM mission
  parse-log        - Parse a simulator log into a report
  promote-variant  - Promote a variant to the new baseline
  list             - Show variants, profiles and formats
  runs             - Show recorded runs
  results          - Show or browse stored results

Examples:
  fmlab build-variants --overwrite
  fmlab generate-mission --record
  fmlab parse-log --csv results.csv --store
  fmlab analyze-bfm latest --csv bfm.csv
  fmlab results --browse`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagSettings, "settings", "", "Path to settings file")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to run history database (default from settings)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log warnings and errors")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Also write logs to this file (rotated)")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(missionCmd)
	rootCmd.AddCommand(bfmMissionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(resultsCmd)
}

// setup loads settings and builds the logger. Both are needed by every
// command; failures exit.
func setup() (config.Settings, *logging.Logger) {
	logger, err := logging.New(logging.Options{File: flagLogFile, Verbose: flagVerbose, Quiet: flagQuiet})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(exitFailure)
	}

	settings, err := config.LoadSettings(flagSettings)
	if err != nil {
		logger.Error("cannot load settings", "err", err)
		os.Exit(exitFailure)
	}
	return settings, logger
}

// expand applies ~ expansion and exits on failure.
func expand(logger *logging.Logger, path string) string {
	out, err := config.ExpandPath(path)
	if err != nil {
		logger.Error("cannot resolve path", "path", path, "err", err)
		os.Exit(exitFailure)
	}
	return out
}

// pick returns the first non-empty value.
func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func dbPath(settings config.Settings) string {
	return pick(flagDBPath, settings.Paths.Database)
}

// loadVariants reads the variant config at path or exits.
func loadVariants(logger *logging.Logger, path string) *config.VariantConfig {
	cfg, err := config.LoadVariants(path)
	if err != nil {
		logger.Error("cannot load variant config", "path", path, "err", err)
		os.Exit(exitFailure)
	}
	logger.Debug("loaded variant config", "path", path, "variants", len(cfg.Variants))
	return cfg
}
