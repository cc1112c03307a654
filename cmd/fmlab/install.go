package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/fmlab/internal/builder"
)

var (
	installVariantConfig string
	installVariantsRoot  string
	installSavedGames    string
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install built variants into Saved Games",
	Long: `Copy every built variant folder into <saved-games>/Mods/aircraft,
replacing earlier installs of the same folder. A variant that fails to
install is reported and the rest continue.

Examples:
  fmlab install
  fmlab install --saved-games "D:/Saved Games/DCS.openbeta"`,
	Args: cobra.NoArgs,
	Run:  runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installVariantConfig, "config", "", "Variant config (JSON or YAML)")
	installCmd.Flags().StringVar(&installVariantsRoot, "variants-root", "", "Directory holding built variant folders")
	installCmd.Flags().StringVar(&installSavedGames, "saved-games", "", "Saved Games folder (default from settings)")
}

func runInstall(cmd *cobra.Command, args []string) {
	settings, logger := setup()
	defer logger.Close()

	cfg := loadVariants(logger, expand(logger, pick(installVariantConfig, settings.Paths.VariantConfig)))
	variantsRoot := expand(logger, pick(installVariantsRoot, settings.Paths.VariantsRoot))
	saved := expand(logger, pick(installSavedGames, settings.Paths.SavedGames))

	built := make([]builder.BuildResult, 0, len(cfg.Variants))
	for _, v := range cfg.Variants {
		built = append(built, builder.BuildResult{
			VariantID:  v.VariantID,
			ShortName:  v.ShortName,
			ModDirName: v.ModDirName,
			OutputDir:  filepath.Join(variantsRoot, v.ModDirName),
		})
	}

	results := builder.Install(built, saved, logger.Logger)
	printInstall(results, saved)
	if n := builder.Failed(results); n > 0 {
		logger.Warn("some variants were not installed", "failed", n, "total", len(results))
		os.Exit(exitFailure)
	}
}
