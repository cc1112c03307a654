package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/fmlab/internal/storage"
)

var (
	runsLimit  int
	runsDelete string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recorded test runs",
	Long: `List the runs in the history database, newest first. Runs are recorded
by 'generate-mission --record' and 'parse-log --store'.

Examples:
  fmlab runs
  fmlab runs --limit 5
  fmlab runs --delete 3f2a9c1b7d04`,
	Args: cobra.NoArgs,
	Run:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Maximum number of runs to show")
	runsCmd.Flags().StringVar(&runsDelete, "delete", "", "Delete the run with this id and its results")
}

func runRuns(cmd *cobra.Command, args []string) {
	settings, logger := setup()
	defer logger.Close()

	store, err := storage.Open(dbPath(settings))
	if err != nil {
		logger.Error("cannot open database", "err", err)
		os.Exit(exitFailure)
	}
	defer store.Close()

	if runsDelete != "" {
		if err := store.DeleteRun(runsDelete); err != nil {
			if errors.Is(err, storage.ErrRunNotFound) {
				logger.Error("no such run", "run_id", runsDelete)
				store.Close()
				os.Exit(exitNoData)
			}
			logger.Error("cannot delete run", "err", err)
			store.Close()
			os.Exit(exitFailure)
		}
		fmt.Printf("Deleted run %s\n", runsDelete)
		return
	}

	runs, err := store.Runs(runsLimit)
	if err != nil {
		logger.Error("cannot list runs", "err", err)
		store.Close()
		os.Exit(exitFailure)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		fmt.Println()
		fmt.Println("Run 'fmlab generate-mission --record' to record one.")
		return
	}

	fmt.Printf("  %-12s  %-16s  %-6s  %6s  %7s  %-8s  %s\n", "Run ID", "Created", "Mode", "Groups", "Records", "Status", "Variants")
	fmt.Printf("  %-12s  %-16s  %-6s  %6s  %7s  %-8s  %s\n", "------", "-------", "----", "------", "-------", "------", "--------")
	for _, r := range runs {
		fmt.Printf("  %-12s  %-16s  %-6s  %6d  %7d  %-8s  %s\n",
			r.RunID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			orDash(r.Mode),
			r.GroupCount,
			r.Records,
			runStatus(r),
			orDash(strings.Join(r.Variants, ",")),
		)
	}
}

func runStatus(r storage.Run) string {
	switch {
	case r.Complete:
		return "complete"
	case r.Records > 0:
		return "partial"
	default:
		return "pending"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
