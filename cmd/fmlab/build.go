package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/fmlab/internal/builder"
	"github.com/vovakirdan/fmlab/internal/config"
	"github.com/vovakirdan/fmlab/internal/logging"
)

var (
	buildVariantConfig string
	buildBaseModRoot   string
	buildVariantsRoot  string
	buildOverwrite     bool
	buildSavedGames    string
)

var buildCmd = &cobra.Command{
	Use:   "build-variants",
	Short: "Build FM variant mods from the variant config",
	Long: `Build one mod folder per variant. Each folder is a copy of the baseline
mod whose aircraft definition carries the variant's identity and scaled
flight-model coefficients.

The whole config is validated before anything is written. Existing variant
folders are an error unless --overwrite is given.

Examples:
  fmlab build-variants
  fmlab build-variants --config fm_variants/variants.yaml --overwrite
  fmlab build-variants --saved-games "~/Saved Games/DCS"`,
	Args: cobra.NoArgs,
	Run:  runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildVariantConfig, "config", "", "Variant config (JSON or YAML)")
	buildCmd.Flags().StringVar(&buildBaseModRoot, "base-mod-root", "", "Baseline mod folder (default: base_mod_dir from the config)")
	buildCmd.Flags().StringVar(&buildVariantsRoot, "variants-root", "", "Output directory for variant folders")
	buildCmd.Flags().BoolVar(&buildOverwrite, "overwrite", false, "Replace existing variant folders")
	buildCmd.Flags().StringVar(&buildSavedGames, "saved-games", "", "Also install into this Saved Games folder")
}

// baseModRoot resolves the baseline mod folder: flag, settings, then the
// directory named in the variant config.
func baseModRoot(logger *logging.Logger, flag string, settings config.Settings, cfg *config.VariantConfig) string {
	root := pick(flag, settings.Paths.BaseModRoot, cfg.Aircraft.BaseModDir)
	if root == "" {
		logger.Error("no baseline mod folder: set --base-mod-root or base_mod_dir in the variant config")
		os.Exit(exitFailure)
	}
	return expand(logger, root)
}

func runBuild(cmd *cobra.Command, args []string) {
	settings, logger := setup()
	defer logger.Close()

	cfg := loadVariants(logger, expand(logger, pick(buildVariantConfig, settings.Paths.VariantConfig)))
	base := baseModRoot(logger, buildBaseModRoot, settings, cfg)
	variantsRoot := expand(logger, pick(buildVariantsRoot, settings.Paths.VariantsRoot))

	results, err := builder.Build(cfg, base, variantsRoot, builder.Options{
		Overwrite: buildOverwrite,
		Logger:    logger.Logger,
	})
	if err != nil {
		logger.Error("build failed", "err", err)
		os.Exit(exitFailure)
	}

	fmt.Printf("Built %d variant(s) in %s\n\n", len(results), variantsRoot)
	fmt.Printf("  %-8s  %-32s  %6s  %s\n", "Short", "Folder", "Fields", "Digest")
	fmt.Printf("  %-8s  %-32s  %6s  %s\n", "-----", "------", "------", "------")
	for _, r := range results {
		note := ""
		if r.Control {
			note = "  (baseline model)"
		}
		fmt.Printf("  %-8s  %-32s  %6d  %s%s\n", r.ShortName, r.ModDirName, r.FieldsChanged, r.Digest[:16], note)
	}

	if buildSavedGames == "" {
		return
	}
	saved := expand(logger, buildSavedGames)
	installed := builder.Install(results, saved, logger.Logger)
	fmt.Println()
	printInstall(installed, saved)
	if builder.Failed(installed) > 0 {
		os.Exit(exitFailure)
	}
}

func printInstall(results []builder.InstallResult, saved string) {
	fmt.Printf("Install into %s\n", builder.InstallDir(saved))
	for _, r := range results {
		if r.OK() {
			fmt.Printf("  ok      %s -> %s\n", r.VariantID, filepath.Base(r.Target))
		} else {
			fmt.Printf("  FAILED  %s: %v\n", r.VariantID, r.Err)
		}
	}
}
