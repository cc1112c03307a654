package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/fmlab/internal/builder"
)

var (
	promoteVariantConfig string
	promoteVersion       string
	promoteCleanRoot     string
	promoteTargetRoot    string
	promoteSuffix        string
)

var promoteCmd = &cobra.Command{
	Use:   "promote-variant <variant>",
	Short: "Make a tested variant the new baseline mod",
	Long: `Apply a variant's scale factors to a clean copy of the baseline mod and
replace the baseline with the result. Type name and shape stay those of the
baseline so existing missions and liveries keep working; only the display
name changes to carry the version label.

The variant may be given by id or short name.

Examples:
  fmlab promote-variant FM3 --version RC2
  fmlab promote-variant FM3 --version RC2 --clean-root orig_mod/MiG-17F --target-root mods/MiG-17F`,
	Args: cobra.ExactArgs(1),
	Run:  runPromote,
}

func init() {
	promoteCmd.Flags().StringVar(&promoteVariantConfig, "config", "", "Variant config (JSON or YAML)")
	promoteCmd.Flags().StringVar(&promoteVersion, "version", "", "Release label for the display name, e.g. RC2")
	promoteCmd.Flags().StringVar(&promoteCleanRoot, "clean-root", "", "Untouched baseline copy (default: orig_mod/<base_mod_dir>)")
	promoteCmd.Flags().StringVar(&promoteTargetRoot, "target-root", "", "Baseline folder to replace (default: the baseline mod folder)")
	promoteCmd.Flags().StringVar(&promoteSuffix, "suffix", "Fresco C", "Text appended to the aircraft display name")
	_ = promoteCmd.MarkFlagRequired("version")
}

func runPromote(cmd *cobra.Command, args []string) {
	settings, logger := setup()
	defer logger.Close()

	cfg := loadVariants(logger, expand(logger, pick(promoteVariantConfig, settings.Paths.VariantConfig)))
	target := baseModRoot(logger, promoteTargetRoot, settings, cfg)

	clean := promoteCleanRoot
	if clean == "" {
		clean = filepath.Join("orig_mod", filepath.Base(target))
	}
	clean = expand(logger, clean)

	res, err := builder.Promote(cfg, builder.PromoteOptions{
		VariantID:     args[0],
		Version:       promoteVersion,
		CleanRoot:     clean,
		TargetRoot:    target,
		DisplaySuffix: promoteSuffix,
		Logger:        logger.Logger,
	})
	if err != nil {
		if builder.IsKind(err, builder.KindUnknownVariant) {
			logger.Error("unknown variant", "variant", args[0], "err", err)
			os.Exit(exitNoData)
		}
		logger.Error("promote failed", "err", err)
		os.Exit(exitFailure)
	}

	fmt.Printf("Promoted %s as %q\n", res.VariantID, res.DisplayName)
	fmt.Printf("  target:    %s\n", res.Target)
	fmt.Printf("  data file: %s\n", res.DataFile)
	fmt.Printf("  digest:    %s\n", res.Digest)
}
