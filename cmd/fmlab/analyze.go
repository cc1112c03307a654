package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/fmlab/internal/acmi"
	"github.com/vovakirdan/fmlab/internal/config"
	"github.com/vovakirdan/fmlab/internal/logging"
)

var (
	analyzeConfigPath string
	analyzeOutput     string
	analyzeCSV        string
	analyzeEnvelope   bool
	analyzeFilter     string
	analyzeSince      time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze-bfm <acmi|latest>",
	Short: "Analyze a Tacview recording of the BFM mission",
	Long: `Read a Tacview ACMI recording (plain or zip-compressed) and measure the
MiG in every engagement: turn rates and radius, energy, bank-derived G and
the range to the opponent. Each engagement is graded against the envelope
targets of the BFM config.

With --envelope every object matching --object-filter is measured instead,
independent of the engagement pairing: instantaneous and best sustained
turn rate, minimum radius and load, each classified against the envelope.

"latest" picks the newest recording in the Tacview directory.
Exits with status 2 when nothing could be analysed.

Examples:
  fmlab analyze-bfm latest
  fmlab analyze-bfm Tacview-20240601.zip.acmi --csv bfm.csv
  fmlab analyze-bfm latest --envelope --object-filter mig17`,
	Args: cobra.ExactArgs(1),
	Run:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeConfigPath, "bfm-config", "", "BFM scenario config with the envelope targets (default from settings)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "Write the report to this file instead of stdout")
	analyzeCmd.Flags().StringVar(&analyzeCSV, "csv", "", "Also write a CSV table to this file")
	analyzeCmd.Flags().BoolVar(&analyzeEnvelope, "envelope", false, "Measure every matching aircraft against the envelope")
	analyzeCmd.Flags().StringVar(&analyzeFilter, "object-filter", acmi.DefaultObjectFilter, "Case-insensitive match on name, type, group or pilot (with --envelope)")
	analyzeCmd.Flags().DurationVar(&analyzeSince, "since", 0, "With latest: ignore recordings older than this")
}

func runAnalyze(cmd *cobra.Command, args []string) {
	settings, logger := setup()
	defer logger.Close()

	path := args[0]
	if path == "latest" {
		dir := expand(logger, settings.Paths.TacviewDir)
		var after time.Time
		if analyzeSince > 0 {
			after = time.Now().Add(-analyzeSince)
		}
		latest, err := acmi.Latest(dir, after)
		if err != nil {
			logger.Warn("no recording to analyze", "dir", dir, "err", err)
			os.Exit(exitNoData)
		}
		path = latest
	} else {
		path = expand(logger, path)
	}

	cfg := loadTargets(logger, pick(analyzeConfigPath, settings.Paths.BFMConfig))

	rec, err := acmi.Open(path)
	if err != nil {
		logger.Error("cannot read recording", "path", path, "err", err)
		os.Exit(exitFailure)
	}
	logger.Info("parsed recording", "path", path, "objects", len(rec.Objects), "lines", rec.Lines)

	if analyzeEnvelope {
		env := acmi.EnvelopeFromConfig(cfg)
		flights := acmi.AnalyzeEnvelope(rec, env, analyzeFilter)
		if len(flights) == 0 {
			logger.Warn("no matching aircraft with enough samples", "filter", analyzeFilter)
			os.Exit(exitNoData)
		}
		writeAnalysis(logger, analyzeOutput, func(w io.Writer) error {
			return acmi.WriteEnvelopeReport(w, env, flights)
		})
		if analyzeCSV != "" {
			writeAnalysis(logger, analyzeCSV, func(w io.Writer) error {
				return acmi.WriteEnvelopeCSV(w, flights)
			})
		}
		return
	}

	targets := config.DefaultEnvelopeTargets()
	if cfg != nil {
		targets = cfg.Targets
	}
	results, skipped := acmi.AnalyzeEngagements(rec, targets)
	for _, g := range skipped {
		logger.Warn("engagement skipped: too few samples", "group", g, "min", acmi.MinEngagementStates)
	}
	if len(results) == 0 {
		logger.Warn("no engagements found; groups must be named <scenario> and <scenario>_OPP", "path", path)
		os.Exit(exitNoData)
	}
	logger.Info("engagements analyzed", "count", len(results))

	writeAnalysis(logger, analyzeOutput, func(w io.Writer) error {
		return acmi.WriteEngagementReport(w, results)
	})
	if analyzeCSV != "" {
		writeAnalysis(logger, analyzeCSV, func(w io.Writer) error {
			return acmi.WriteEngagementCSV(w, results)
		})
	}
}

// loadTargets reads the BFM config for its envelope. A missing default
// config falls back to the built-in envelope.
func loadTargets(logger *logging.Logger, path string) *config.BFMConfig {
	path = expand(logger, path)
	if _, err := os.Stat(path); err != nil && analyzeConfigPath == "" {
		logger.Debug("no BFM config, using the default envelope", "path", path)
		return nil
	}
	cfg, err := config.LoadBFM(path)
	if err != nil {
		logger.Error("cannot load BFM config", "path", path, "err", err)
		os.Exit(exitFailure)
	}
	return cfg
}

// writeAnalysis renders to path, or to stdout when path is empty.
func writeAnalysis(logger *logging.Logger, path string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		logger.Error("cannot render analysis", "err", err)
		os.Exit(exitFailure)
	}
	if path == "" {
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
		logger.Error("cannot write analysis", "path", path, "err", err)
		os.Exit(exitFailure)
	}
	logger.Info("analysis written", "path", path)
}
