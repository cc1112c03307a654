package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/fmlab/internal/config"
	"github.com/vovakirdan/fmlab/internal/fmlog"
	"github.com/vovakirdan/fmlab/internal/logging"
	"github.com/vovakirdan/fmlab/internal/mission"
	"github.com/vovakirdan/fmlab/internal/report"
	"github.com/vovakirdan/fmlab/internal/storage"
)

var (
	parseOutput  string
	parseCSV     string
	parseFormat  string
	parseStore   bool
	parseArchive bool
	parseRunID   string
)

var parseCmd = &cobra.Command{
	Use:   "parse-log [log]",
	Short: "Parse a simulator log into a test report",
	Long: `Read the structured lines written by the mission's logger script,
aggregate them per variant and test, and compare each variant against the
historical performance targets.

Without a log argument the simulator log under Saved Games is used.
Exits with status 2 when the log holds no test data.

Examples:
  fmlab parse-log
  fmlab parse-log dcs.log --output report.txt --csv results.csv
  fmlab parse-log --format xlsx --output results.xlsx
  fmlab parse-log --store --archive`,
	Args: cobra.MaximumNArgs(1),
	Run:  runParse,
}

func init() {
	parseCmd.Flags().StringVarP(&parseOutput, "output", "o", "", "Write the report to this file instead of stdout")
	parseCmd.Flags().StringVar(&parseCSV, "csv", "", "Also write a CSV table to this file")
	parseCmd.Flags().StringVarP(&parseFormat, "format", "f", report.FormatText, "Report format: "+strings.Join(report.Formats(), ", "))
	parseCmd.Flags().BoolVar(&parseStore, "store", false, "Save the results in the history database")
	parseCmd.Flags().BoolVar(&parseArchive, "archive", false, "Copy the log and a text report into the archive directory")
	parseCmd.Flags().StringVar(&parseRunID, "run-id", "", "Run id to store under (default: from the log, else a new id)")
}

func runParse(cmd *cobra.Command, args []string) {
	settings, logger := setup()
	defer logger.Close()
	checkFormat(logger, parseFormat)

	var logPath string
	if len(args) > 0 {
		logPath = expand(logger, args[0])
	} else {
		logPath = filepath.Join(expand(logger, settings.Paths.SavedGames), settings.Log.SimLog)
	}

	parser := fmlog.NewParser(settings.Log.Sentinel, settings.Log.DefaultVariant)
	res, err := fmlog.ParseFile(logPath, parser)
	if err != nil {
		logger.Error("cannot read log", "path", logPath, "err", err)
		os.Exit(exitFailure)
	}
	for _, perr := range res.Errors {
		logger.Debug("skipped malformed line", "line", perr.Line, "kind", perr.Kind, "reason", perr.Reason)
	}
	if len(res.Errors) > 0 {
		logger.Warn("skipped malformed lines", "count", len(res.Errors))
	}

	if res.Table.Len() == 0 {
		logger.Warn("no test data found in log", "path", logPath, "sentinel", parser.Sentinel)
		os.Exit(exitNoData)
	}
	logger.Info("parsed log",
		"path", logPath,
		"groups", res.Table.Len(),
		"variants", len(res.Table.Variants()),
		"records", res.Records,
	)

	opts := report.Options{
		RunID:    pick(parseRunID, res.RunID),
		Complete: res.Complete,
		Targets:  fmlog.TargetsFromSettings(settings.Targets),
	}
	if res.RunID != "" && !res.Complete {
		logger.Warn("log ends before the run finished", "run_id", res.RunID)
	}

	writeReport(logger, res.Table, parseFormat, parseOutput, opts)
	if parseCSV != "" {
		writeReport(logger, res.Table, report.FormatCSV, parseCSV, opts)
	}

	if opts.RunID == "" && (parseStore || parseArchive) {
		opts.RunID = mission.NewRunID()
		logger.Info("log carries no run id, using a new one", "run_id", opts.RunID)
	}
	if parseStore {
		storeResults(logger, settings, res, logPath, opts.RunID)
	}
	if parseArchive {
		archiveRun(logger, settings, res.Table, logPath, opts)
	}
}

// archiveRun keeps a copy of the log and its text report under
// archive_dir/<run id>/.
func archiveRun(logger *logging.Logger, settings config.Settings, table *fmlog.ResultTable, logPath string, opts report.Options) {
	dir := filepath.Join(expand(logger, settings.Paths.ArchiveDir), opts.RunID)
	raw, err := os.ReadFile(logPath)
	if err != nil {
		logger.Error("cannot read log for archive", "err", err)
		os.Exit(exitFailure)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("cannot create archive directory", "dir", dir, "err", err)
		os.Exit(exitFailure)
	}
	if err := os.WriteFile(filepath.Join(dir, filepath.Base(logPath)), raw, 0o644); err != nil {
		logger.Error("cannot archive log", "err", err)
		os.Exit(exitFailure)
	}
	writeReport(logger, table, report.FormatText, filepath.Join(dir, "report.txt"), opts)
	logger.Info("run archived", "dir", dir)
}

// writeReport renders to path, or to stdout when path is empty. Binary
// formats are not written to a terminal.
func writeReport(logger *logging.Logger, table *fmlog.ResultTable, format, path string, opts report.Options) {
	var buf bytes.Buffer
	if err := report.Render(&buf, table, format, opts); err != nil {
		logger.Error("cannot render report", "format", format, "err", err)
		os.Exit(exitFailure)
	}

	if path == "" {
		if format == report.FormatXLSX && term.IsTerminal(int(os.Stdout.Fd())) {
			logger.Error("refusing to write a workbook to the terminal; use --output")
			os.Exit(exitNoData)
		}
		if _, err := os.Stdout.Write(buf.Bytes()); err != nil {
			os.Exit(exitFailure)
		}
		return
	}

	path = expand(logger, path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Error("cannot create output directory", "err", err)
		os.Exit(exitFailure)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		logger.Error("cannot write report", "path", path, "err", err)
		os.Exit(exitFailure)
	}
	logger.Info("report written", "format", format, "path", path)
}

func storeResults(logger *logging.Logger, settings config.Settings, res *fmlog.ParseResult, logPath, runID string) {
	store, err := storage.Open(dbPath(settings))
	if err != nil {
		logger.Error("cannot open database", "err", err)
		os.Exit(exitFailure)
	}
	defer store.Close()

	if err := store.SaveRun(storage.Run{
		RunID:    runID,
		Variants: res.Table.Variants(),
		LogPath:  logPath,
		Records:  res.Records,
		Complete: res.Complete,
	}); err != nil {
		logger.Error("cannot store run", "err", err)
		os.Exit(exitFailure)
	}
	n, err := store.SaveResults(runID, res.Table)
	if err != nil {
		logger.Error("cannot store results", "err", err)
		os.Exit(exitFailure)
	}
	logger.Info("results stored", "run_id", runID, "rows", n)
}

// checkFormat exits with a usage error when format has no renderer.
func checkFormat(logger *logging.Logger, format string) {
	if err := report.CheckFormat(format); err != nil {
		logger.Error("bad --format", "err", err)
		os.Exit(exitNoData)
	}
}
