package builder

import (
	"path/filepath"

	"github.com/charmbracelet/log"
)

// InstallResult is the outcome of installing one variant.
type InstallResult struct {
	VariantID string
	Target    string
	Err       error
}

// OK reports whether the install succeeded.
func (r InstallResult) OK() bool { return r.Err == nil }

// InstallDir is where the simulator looks for aircraft mods.
func InstallDir(savedGamesRoot string) string {
	return filepath.Join(savedGamesRoot, "Mods", "aircraft")
}

// Install copies each built variant into the simulator's mod folder,
// replacing any previous install. A failure is recorded for that variant
// and the remaining installs still run.
func Install(results []BuildResult, savedGamesRoot string, logger *log.Logger) []InstallResult {
	logger = loggerOr(logger)
	root := InstallDir(savedGamesRoot)

	out := make([]InstallResult, 0, len(results))
	for _, r := range results {
		target := filepath.Join(root, r.ModDirName)
		res := InstallResult{VariantID: r.VariantID, Target: target}
		if err := replaceTree(r.OutputDir, target); err != nil {
			res.Err = &InstallError{Kind: KindPathUnwritable, Variant: r.VariantID, Path: target, Err: err}
			logger.Error("install failed", "variant", r.ShortName, "target", target, "err", err)
		} else {
			logger.Info("installed", "variant", r.ShortName, "target", target)
		}
		out = append(out, res)
	}
	return out
}

// Failed counts the unsuccessful installs.
func Failed(results []InstallResult) int {
	n := 0
	for _, r := range results {
		if !r.OK() {
			n++
		}
	}
	return n
}
