// Package builder materialises variant mod directories from a baseline mod.
//
// Each variant is a full copy of the baseline whose aircraft-definition
// file has its identity fields and a narrow set of flight-model values
// rewritten (see package sfm). Everything is validated before the first
// directory is touched.
package builder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/zeebo/blake3"

	"github.com/vovakirdan/fmlab/internal/config"
	"github.com/vovakirdan/fmlab/internal/logging"
	"github.com/vovakirdan/fmlab/internal/sfm"
)

// Options control a build.
type Options struct {
	// Overwrite removes existing variant directories instead of failing.
	Overwrite bool
	Logger    *log.Logger
}

// BuildResult describes one built variant directory.
type BuildResult struct {
	VariantID     string
	ShortName     string
	ModDirName    string
	OutputDir     string
	DataFile      string // relative to OutputDir
	FieldsChanged int
	Stats         sfm.Stats
	EntryPatched  int
	Digest        string // blake3 of the rewritten data file
	// Control is set when every scale is 1.0: the variant flies the
	// baseline model under its own identity.
	Control bool
}

type plan struct {
	variant config.VariantSpec
	dest    string
	content string
	stats   sfm.Stats
}

func loggerOr(l *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return logging.Discard()
}

// Digest returns the hex blake3 hash of data.
func Digest(data []byte) string {
	hasher := blake3.New()
	hasher.Write(data)
	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// Build creates one directory per variant under variantsRoot, in config order.
func Build(cfg *config.VariantConfig, baseModRoot, variantsRoot string, opts Options) ([]BuildResult, error) {
	logger := loggerOr(opts.Logger)

	if err := cfg.Validate(); err != nil {
		return nil, &BuildError{Kind: KindConfig, Path: cfg.Path, Err: err}
	}
	if info, err := os.Stat(baseModRoot); err != nil || !info.IsDir() {
		return nil, &BuildError{Kind: KindBaseModMissing, Path: baseModRoot, Err: err}
	}

	dataRel, err := FindDataFile(baseModRoot)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(filepath.Join(baseModRoot, dataRel))
	if err != nil {
		return nil, fmt.Errorf("builder: cannot read data file: %w", err)
	}
	baseline := string(raw)

	baseID, err := sfm.ReadIdentity(baseline)
	if err != nil {
		return nil, contentError("", dataRel, err)
	}
	logger.Debug("baseline identity", "type", baseID.TypeName, "shape", baseID.ShapeUsername, "file", dataRel)

	// Rewrite every variant in memory first so content errors surface
	// before any directory is created.
	plans := make([]plan, 0, len(cfg.Variants))
	for _, v := range cfg.Variants {
		if v.TypeName == baseID.TypeName || v.ShapeUsername == baseID.ShapeUsername {
			return nil, &BuildError{
				Kind:    KindIdentityCollision,
				Variant: v.VariantID,
				Err:     fmt.Errorf("type %q / shape %q collide with the baseline", v.TypeName, v.ShapeUsername),
			}
		}
		content, stats, err := sfm.Apply(baseline, sfm.Patch{
			TypeName:      v.TypeName,
			DisplayName:   v.DisplayName,
			ShapeUsername: v.ShapeUsername,
			Scales:        v.Scales,
		})
		if err != nil {
			return nil, contentError(v.VariantID, dataRel, err)
		}
		dest := filepath.Join(variantsRoot, v.ModDirName)
		if exists(dest) && !opts.Overwrite {
			return nil, &BuildError{Kind: KindDestinationExists, Variant: v.VariantID, Path: dest}
		}
		plans = append(plans, plan{variant: v, dest: dest, content: content, stats: stats})
	}

	if err := os.MkdirAll(variantsRoot, 0o755); err != nil {
		return nil, &BuildError{Kind: KindPathUnwritable, Path: variantsRoot, Err: err}
	}

	results := make([]BuildResult, 0, len(plans))
	for _, p := range plans {
		res, err := materialise(baseModRoot, dataRel, cfg.Aircraft.BaseDisplayName, p, logger)
		if err != nil {
			return results, err
		}
		if res.Control {
			logger.Warn("variant scales are all 1.0; it reproduces the baseline", "variant", p.variant.ShortName)
		}
		logger.Info("built variant",
			"variant", p.variant.ShortName,
			"dir", p.dest,
			"fields", res.FieldsChanged,
			"cx0", p.variant.Scales.Cx0,
			"polar", p.variant.Scales.Polar,
			"engine_drag", p.variant.Scales.EngineDrag,
			"pfor", p.variant.Scales.Pfor,
		)
		results = append(results, res)
	}
	return results, nil
}

func materialise(baseModRoot, dataRel, baseDisplay string, p plan, logger *log.Logger) (BuildResult, error) {
	v := p.variant
	if exists(p.dest) {
		logger.Info("removing existing variant folder", "dir", p.dest)
		if err := os.RemoveAll(p.dest); err != nil {
			return BuildResult{}, &BuildError{Kind: KindCopy, Variant: v.VariantID, Path: p.dest, Err: err}
		}
	}
	if err := copyTree(baseModRoot, p.dest); err != nil {
		return BuildResult{}, &BuildError{Kind: KindCopy, Variant: v.VariantID, Path: p.dest, Err: err}
	}

	dataPath := filepath.Join(p.dest, dataRel)
	if err := os.WriteFile(dataPath, []byte(p.content), 0o644); err != nil {
		return BuildResult{}, &BuildError{Kind: KindCopy, Variant: v.VariantID, Path: dataPath, Err: err}
	}

	res := BuildResult{
		VariantID:     v.VariantID,
		ShortName:     v.ShortName,
		ModDirName:    v.ModDirName,
		OutputDir:     p.dest,
		DataFile:      dataRel,
		FieldsChanged: p.stats.FieldsChanged(),
		Stats:         p.stats,
		Digest:        Digest([]byte(p.content)),
		Control:       v.Scales.IsIdentity(),
	}

	entryPath := filepath.Join(p.dest, entryFile)
	entry, err := os.ReadFile(entryPath)
	if err != nil {
		logger.Warn("entry.lua not found in variant", "dir", p.dest)
		return res, nil
	}
	patched, n := PatchEntry(string(entry), v, baseDisplay)
	if err := os.WriteFile(entryPath, []byte(patched), 0o644); err != nil {
		return res, &BuildError{Kind: KindCopy, Variant: v.VariantID, Path: entryPath, Err: err}
	}
	res.EntryPatched = n
	return res, nil
}
