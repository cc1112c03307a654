package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/fmlab/internal/builder"
	"github.com/vovakirdan/fmlab/internal/config"
	"github.com/vovakirdan/fmlab/internal/mission"
	"github.com/vovakirdan/fmlab/internal/storage"
)

var (
	bfmOutfile       string
	bfmConfigPath    string
	bfmTypeName      string
	bfmVariantConfig string
	bfmMaxPriority   int
	bfmRecord        bool
)

var bfmMissionCmd = &cobra.Command{
	Use:   "generate-bfm-mission",
	Short: "Generate the BFM engagement test mission (.miz)",
	Long: `Generate a mission that sets up one engagement per BFM scenario and
variant: a MiG against an AI opponent at the configured geometry, altitude
and speed. Engagements are laid out on a grid, scenarios in columns and
variants in rows.

Scenarios with a priority above --max-priority are left out. Scenarios that
reference an unknown opponent, geometry, altitude band or speed are skipped
with a warning. Variant and single-aircraft mode are selected as for
generate-mission.

The run id embedded in the mission is printed as RUN_ID=<id>.

Examples:
  fmlab generate-bfm-mission
  fmlab generate-bfm-mission --max-priority 1 --outfile ./BFM_Test.miz
  fmlab generate-bfm-mission --type-name vwv_mig17f --record`,
	Args: cobra.NoArgs,
	Run:  runBFMMission,
}

func init() {
	bfmMissionCmd.Flags().StringVar(&bfmOutfile, "outfile", "", "Output .miz file (default from settings)")
	bfmMissionCmd.Flags().StringVar(&bfmConfigPath, "bfm-config", "", "BFM scenario config (default from settings)")
	bfmMissionCmd.Flags().StringVar(&bfmTypeName, "type-name", "", "Aircraft type for single-aircraft mode")
	bfmMissionCmd.Flags().StringVar(&bfmVariantConfig, "variant-config", "", "Variant config (default from settings)")
	bfmMissionCmd.Flags().IntVar(&bfmMaxPriority, "max-priority", mission.DefaultMaxPriority, "Highest scenario priority to include (1-3)")
	bfmMissionCmd.Flags().BoolVar(&bfmRecord, "record", false, "Record the run in the history database")
}

func runBFMMission(cmd *cobra.Command, args []string) {
	settings, logger := setup()
	defer logger.Close()
	if bfmMaxPriority < 1 || bfmMaxPriority > 3 {
		logger.Error("bad --max-priority: must be 1, 2 or 3", "value", bfmMaxPriority)
		os.Exit(exitNoData)
	}

	cfgPath := expand(logger, pick(bfmConfigPath, settings.Paths.BFMConfig))
	cfg, err := config.LoadBFM(cfgPath)
	if err != nil {
		logger.Error("cannot load BFM config", "path", cfgPath, "err", err)
		os.Exit(exitFailure)
	}
	logger.Debug("loaded BFM config", "path", cfgPath, "scenarios", len(cfg.Scenarios))

	variantPath := expand(logger, pick(bfmVariantConfig, settings.Paths.VariantConfig))
	detect := func() (string, error) {
		if bfmTypeName != "" {
			return bfmTypeName, nil
		}
		return builder.DetectTypeName(expand(logger, settings.Paths.BaseModRoot))
	}
	mode, err := mission.SelectMode(variantPath, detect)
	if err != nil {
		logger.Error("cannot select mission mode; fix the variant config or use --type-name", "err", err)
		os.Exit(exitFailure)
	}
	logger.Info("mission mode", "mode", mode.String(), "config", variantPath)

	opts, err := mission.BFMOptionsFromSettings(settings)
	if err != nil {
		logger.Error("bad mission settings", "err", err)
		os.Exit(exitFailure)
	}
	opts.RunID = mission.NewRunID()
	opts.MaxPriority = bfmMaxPriority

	art, err := mission.AssembleBFM(mode, cfg, opts)
	if err != nil {
		if mission.IsKind(err, mission.KindNoScenarios) {
			logger.Warn("no scenarios to generate", "max_priority", bfmMaxPriority, "err", err)
			os.Exit(exitNoData)
		}
		logger.Error("cannot assemble BFM mission", "err", err)
		os.Exit(exitFailure)
	}
	for _, id := range art.Skipped {
		logger.Warn("scenario skipped: unknown reference", "scenario", id)
	}
	for _, w := range art.Warnings {
		logger.Warn(w)
	}

	outfile := expand(logger, pick(bfmOutfile, settings.Paths.BFMMissionOut))
	if err := art.Save(outfile); err != nil {
		logger.Error("cannot write mission", "err", err)
		os.Exit(exitFailure)
	}
	logger.Info("BFM mission written",
		"path", outfile,
		"engagements", len(art.Engagements),
		"skipped", len(art.Skipped),
		"run_id", art.RunID,
	)
	logger.Debug("groups", "names", strings.Join(art.GroupNames(), ","))

	if bfmRecord {
		var variants []string
		seen := map[string]bool{}
		for _, e := range art.Engagements {
			if e.VariantKey != "" && !seen[e.VariantKey] {
				seen[e.VariantKey] = true
				variants = append(variants, e.VariantKey)
			}
		}
		recordRun(logger, settings, storage.Run{
			RunID:       art.RunID,
			Mode:        "bfm-" + art.Mode.String(),
			MissionPath: outfile,
			GroupCount:  2 * len(art.Engagements),
			Variants:    variants,
		})
	}

	fmt.Printf("RUN_ID=%s\n", art.RunID)
}
