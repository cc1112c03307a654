package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/fmlab/internal/config"
	"github.com/vovakirdan/fmlab/internal/profile"
	"github.com/vovakirdan/fmlab/internal/registry"
)

var listVariantConfig string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List variants, test profiles and report formats",
	Long: `Shows the variants of the variant config (when one exists), the built-in
test profiles in mission order, and the registered report formats.`,
	Args: cobra.NoArgs,
	Run:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listVariantConfig, "config", "", "Variant config (JSON or YAML)")
}

func runList(cmd *cobra.Command, args []string) {
	settings, logger := setup()
	defer logger.Close()

	path := expand(logger, pick(listVariantConfig, settings.Paths.VariantConfig))
	cfg, found, err := config.DiscoverVariants(path)
	if err != nil {
		logger.Error("cannot load variant config", "path", path, "err", err)
		os.Exit(exitFailure)
	}

	if found {
		fmt.Printf("Variants (%s):\n\n", path)
		fmt.Printf("  %-6s  %-10s  %-28s  %5s  %5s  %6s  %5s\n", "Short", "ID", "Type", "Cx0", "Polar", "EngDrg", "Pfor")
		fmt.Printf("  %-6s  %-10s  %-28s  %5s  %5s  %6s  %5s\n", "-----", "--", "----", "---", "-----", "------", "----")
		for _, v := range cfg.Variants {
			s := v.Scales
			fmt.Printf("  %-6s  %-10s  %-28s  %5.2f  %5.2f  %6.2f  %5.2f\n",
				v.ShortName, v.VariantID, v.TypeName, s.Cx0, s.Polar, s.EngineDrag, s.Pfor)
		}
	} else {
		fmt.Printf("No variant config at %s (missions use single mode).\n", path)
	}
	fmt.Println()

	fmt.Println("Test profiles:")
	fmt.Println()
	fmt.Printf("  %-12s  %-7s  %8s  %6s  %s\n", "Name", "Family", "Alt ft", "Spd kt", "Gates")
	fmt.Printf("  %-12s  %-7s  %8s  %6s  %s\n", "----", "------", "------", "------", "-----")
	for _, p := range profile.All() {
		fmt.Printf("  %-12s  %-7s  %8.0f  %6.0f  %s\n", p.Name, p.Kind, p.AltitudeFt, p.SpeedKt, gateSummary(p))
	}
	fmt.Println()

	formats := registry.List()
	maxLen := 6 // "Format"
	for _, f := range formats {
		if len(f.Format) > maxLen {
			maxLen = len(f.Format)
		}
	}
	fmt.Println("Report formats:")
	fmt.Println()
	fmt.Printf("  %-*s  %s\n", maxLen, "Format", "Description")
	fmt.Printf("  %-*s  %s\n", maxLen, "------", "-----------")
	for _, f := range formats {
		fmt.Printf("  %-*s  %s\n", maxLen, f.Format, f.Description)
	}
}

func gateSummary(p profile.TestProfile) string {
	var parts []string
	if n := len(p.SpeedGatesKt); n > 0 {
		parts = append(parts, fmt.Sprintf("%d speed", n))
	}
	if n := len(p.AltGatesFt); n > 0 {
		parts = append(parts, fmt.Sprintf("%d altitude", n))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}
