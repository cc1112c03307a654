package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/fmlab/internal/fmlog"
	"github.com/vovakirdan/fmlab/internal/logging"
	"github.com/vovakirdan/fmlab/internal/platform/tui"
	"github.com/vovakirdan/fmlab/internal/report"
	"github.com/vovakirdan/fmlab/internal/storage"
)

var (
	resultsFormat  string
	resultsOutput  string
	resultsBrowse  bool
	resultsHistory string
)

var resultsCmd = &cobra.Command{
	Use:   "results [run-id]",
	Short: "Show or browse the stored results of a run",
	Long: `Render the stored results of a run (the latest run by default) in any
report format, or browse them interactively.

With --history GROUP the command instead lists every stored result of one
test across runs; GROUP is a group name such as FM3_VMAX_SL or VMAX_SL.

Examples:
  fmlab results
  fmlab results 3f2a9c1b7d04 --format json
  fmlab results --browse
  fmlab results --history FM2_CLIMB_SL`,
	Args: cobra.MaximumNArgs(1),
	Run:  runResults,
}

func init() {
	resultsCmd.Flags().StringVarP(&resultsFormat, "format", "f", report.FormatText, "Report format")
	resultsCmd.Flags().StringVarP(&resultsOutput, "output", "o", "", "Write the report to this file instead of stdout")
	resultsCmd.Flags().BoolVarP(&resultsBrowse, "browse", "b", false, "Browse the results interactively")
	resultsCmd.Flags().StringVar(&resultsHistory, "history", "", "Show the history of one test group across runs")
}

func runResults(cmd *cobra.Command, args []string) {
	settings, logger := setup()
	defer logger.Close()
	if resultsHistory == "" {
		checkFormat(logger, resultsFormat)
	}

	store, err := storage.Open(dbPath(settings))
	if err != nil {
		logger.Error("cannot open database", "err", err)
		os.Exit(exitFailure)
	}
	defer store.Close()

	if resultsHistory != "" {
		showHistory(logger, store, resultsHistory)
		return
	}

	run := findRun(logger, store, args)
	results, err := store.Results(run.RunID)
	if err != nil {
		logger.Error("cannot load results", "run_id", run.RunID, "err", err)
		store.Close()
		os.Exit(exitFailure)
	}
	if len(results) == 0 {
		logger.Warn("run has no stored results", "run_id", run.RunID)
		fmt.Printf("Run %s has no results. Store some with 'fmlab parse-log --store'.\n", run.RunID)
		store.Close()
		os.Exit(exitNoData)
	}
	table := storage.Table(results)
	targets := fmlog.TargetsFromSettings(settings.Targets)

	if resultsBrowse {
		width, height, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			width, height = 100, 30
		}
		title := fmt.Sprintf("%s - run %s", report.DefaultTitle, run.RunID)
		if err := tui.RunResults(title, table, targets, width, height); err != nil {
			logger.Error("results browser failed", "err", err)
			store.Close()
			os.Exit(exitFailure)
		}
		return
	}

	writeReport(logger, table, resultsFormat, resultsOutput, report.Options{
		RunID:    run.RunID,
		Complete: run.Complete,
		Targets:  targets,
	})
}

// findRun returns the run named in args, or the newest one.
func findRun(logger *logging.Logger, store *storage.Store, args []string) *storage.Run {
	if len(args) > 0 {
		run, err := store.Run(args[0])
		if err != nil {
			logger.Error("cannot load run", "err", err)
			store.Close()
			os.Exit(exitFailure)
		}
		if run == nil {
			logger.Error("no such run", "run_id", args[0])
			store.Close()
			os.Exit(exitNoData)
		}
		return run
	}

	runs, err := store.Runs(1)
	if err != nil {
		logger.Error("cannot list runs", "err", err)
		store.Close()
		os.Exit(exitFailure)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		store.Close()
		os.Exit(exitNoData)
	}
	return &runs[0]
}

func showHistory(logger *logging.Logger, store *storage.Store, group string) {
	variant, test := fmlog.SplitGroupName(group)
	history, err := store.TestHistory(variant, test)
	if err != nil {
		logger.Error("cannot load history", "err", err)
		store.Close()
		os.Exit(exitFailure)
	}
	if len(history) == 0 {
		fmt.Printf("No stored results for %s %s.\n", variant, test)
		store.Close()
		os.Exit(exitNoData)
	}

	fmt.Printf("History - %s %s\n\n", variant, test)
	fmt.Printf("  %-12s  %-16s  %7s  %7s  %8s  %9s  %7s\n", "Run ID", "Date", "Samples", "Max kt", "Max ft", "Climb fpm", "Fuel kg")
	fmt.Printf("  %-12s  %-16s  %7s  %7s  %8s  %9s  %7s\n", "------", "----", "-------", "------", "------", "---------", "-------")
	for _, r := range history {
		fmt.Printf("  %-12s  %-16s  %7d  %7s  %8s  %9s  %7s\n",
			r.RunID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Samples,
			metric(topSpeed(r)),
			metric(r.MaxAltFt),
			metric(r.MaxVspdFpm),
			metric(r.FuelUsedKg),
		)
	}
}

// topSpeed prefers the recorded VMAX peak over the sampled maximum.
func topSpeed(r storage.Result) *float64 {
	if r.VmaxKt != nil {
		return r.VmaxKt
	}
	return r.MaxSpdKt
}

func metric(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f", *p)
}
