package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/fmlab/internal/builder"
	"github.com/vovakirdan/fmlab/internal/config"
	"github.com/vovakirdan/fmlab/internal/logging"
	"github.com/vovakirdan/fmlab/internal/mission"
	"github.com/vovakirdan/fmlab/internal/storage"
)

var (
	missionOutfile       string
	missionTypeName      string
	missionModRoot       string
	missionVariantConfig string
	missionProfiles      []string
	missionRecord        bool
)

var missionCmd = &cobra.Command{
	Use:   "generate-mission",
	Short: "Generate the FM test mission (.miz)",
	Long: `Generate a test mission that flies every test profile once per variant.
Variants are placed in separate lanes so their groups never meet.

When no variant config is found the mission is generated for a single
aircraft with the legacy group names. The aircraft type is then taken from
--type-name or read from the baseline mod.

The run id embedded in the mission is printed as RUN_ID=<id>.

Examples:
  fmlab generate-mission
  fmlab generate-mission --outfile ./FM_Test.miz --profiles VMAX_SL,VMAX_10K
  fmlab generate-mission --type-name vwv_mig17f --record`,
	Args: cobra.NoArgs,
	Run:  runMission,
}

func init() {
	missionCmd.Flags().StringVar(&missionOutfile, "outfile", "", "Output .miz file (directories are created)")
	missionCmd.Flags().StringVar(&missionTypeName, "type-name", "", "Aircraft type for single-aircraft mode")
	missionCmd.Flags().StringVar(&missionModRoot, "mod-root", "", "Baseline mod folder used to detect the type name")
	missionCmd.Flags().StringVar(&missionVariantConfig, "variant-config", "", "Variant config (default from settings)")
	missionCmd.Flags().StringSliceVar(&missionProfiles, "profiles", nil, "Comma separated subset of test profiles")
	missionCmd.Flags().BoolVar(&missionRecord, "record", false, "Record the run in the history database")
}

func runMission(cmd *cobra.Command, args []string) {
	settings, logger := setup()
	defer logger.Close()

	variantPath := expand(logger, pick(missionVariantConfig, settings.Paths.VariantConfig))
	detect := func() (string, error) {
		if missionTypeName != "" {
			return missionTypeName, nil
		}
		return builder.DetectTypeName(expand(logger, pick(missionModRoot, settings.Paths.BaseModRoot)))
	}

	mode, err := mission.SelectMode(variantPath, detect)
	if err != nil {
		logger.Error("cannot select mission mode; fix the variant config or use --type-name", "err", err)
		os.Exit(exitFailure)
	}
	logger.Info("mission mode", "mode", mode.String(), "config", variantPath)

	profiles, err := mission.SelectProfiles(missionProfiles)
	if err != nil {
		logger.Error("bad profile selection", "err", err)
		os.Exit(exitNoData)
	}

	opts, err := mission.OptionsFromSettings(settings)
	if err != nil {
		logger.Error("bad mission settings", "err", err)
		os.Exit(exitFailure)
	}
	opts.RunID = mission.NewRunID()

	art, err := mission.Assemble(mode, profiles, opts)
	if err != nil {
		logger.Error("cannot assemble mission", "err", err)
		os.Exit(exitFailure)
	}

	outfile := expand(logger, pick(missionOutfile, settings.Paths.MissionOut))
	if err := art.Save(outfile); err != nil {
		logger.Error("cannot write mission", "err", err)
		os.Exit(exitFailure)
	}
	logger.Info("mission written",
		"path", outfile,
		"groups", len(art.Groups),
		"profiles", len(profiles),
		"run_id", art.RunID,
	)
	logger.Debug("groups", "names", strings.Join(art.GroupNames(), ","))

	if missionRecord {
		var variants []string
		seen := map[string]bool{}
		for _, g := range art.Groups {
			if !seen[g.VariantKey] {
				seen[g.VariantKey] = true
				variants = append(variants, g.VariantKey)
			}
		}
		recordRun(logger, settings, storage.Run{
			RunID:       art.RunID,
			Mode:        art.Mode.String(),
			MissionPath: outfile,
			GroupCount:  len(art.Groups),
			Variants:    variants,
		})
	}

	fmt.Printf("RUN_ID=%s\n", art.RunID)
}

// recordRun saves a generated mission in the history database. Failures
// only warn; the mission is already written.
func recordRun(logger *logging.Logger, settings config.Settings, run storage.Run) {
	store, err := storage.Open(dbPath(settings))
	if err != nil {
		logger.Warn("run not recorded: cannot open database", "err", err)
		return
	}
	defer store.Close()

	if err := store.SaveRun(run); err != nil {
		logger.Warn("run not recorded", "err", err)
		return
	}
	logger.Info("run recorded", "run_id", run.RunID)
}
