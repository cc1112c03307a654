package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/fmlab/internal/config"
	"github.com/vovakirdan/fmlab/internal/sfm"
)

// PromoteOptions select the variant to promote and where it goes.
type PromoteOptions struct {
	VariantID string // variant id or short name
	Version   string // release label shown in the display name, e.g. RC2

	// CleanRoot is an untouched copy of the baseline mod. Identity fields
	// are taken from it unchanged.
	CleanRoot string
	// TargetRoot is the baseline directory that gets replaced.
	TargetRoot string
	// StagingDir holds the promoted tree until it is moved into place.
	// Defaults to a hidden directory next to TargetRoot.
	StagingDir string
	// DisplaySuffix is appended to the data file's DisplayName.
	DisplaySuffix string

	Logger *log.Logger
}

// PromoteResult describes the new baseline.
type PromoteResult struct {
	VariantID   string
	Version     string
	DisplayName string
	Target      string
	DataFile    string
	Digest      string
}

// PromoteDisplayName is the display name a promoted baseline carries.
func PromoteDisplayName(baseDisplayName, version string) string {
	return fmt.Sprintf("%s (%s)", baseDisplayName, version)
}

// Promote turns one variant into the new baseline mod. The variant's
// scales are applied to a clean baseline copy and only display fields
// change, so liveries and logbooks keyed on the baseline ids keep working.
func Promote(cfg *config.VariantConfig, opts PromoteOptions) (*PromoteResult, error) {
	logger := loggerOr(opts.Logger)

	v, ok := cfg.Variant(opts.VariantID)
	if !ok {
		return nil, &BuildError{
			Kind:    KindUnknownVariant,
			Variant: opts.VariantID,
			Err:     fmt.Errorf("available: %s", strings.Join(cfg.ShortNames(), ", ")),
		}
	}
	if strings.TrimSpace(opts.Version) == "" {
		return nil, &BuildError{Kind: KindConfig, Variant: v.VariantID, Err: fmt.Errorf("version label is required")}
	}
	if !config.SafeText(opts.Version) || !config.SafeText(opts.DisplaySuffix) {
		return nil, &BuildError{Kind: KindConfig, Variant: v.VariantID, Err: fmt.Errorf("version and suffix cannot contain quotes, backslashes or line breaks")}
	}
	if info, err := os.Stat(opts.CleanRoot); err != nil || !info.IsDir() {
		return nil, &BuildError{Kind: KindBaseModMissing, Path: opts.CleanRoot, Err: err}
	}

	dataRel, err := FindDataFile(opts.CleanRoot)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(filepath.Join(opts.CleanRoot, dataRel))
	if err != nil {
		return nil, fmt.Errorf("builder: cannot read data file: %w", err)
	}

	display := PromoteDisplayName(cfg.Aircraft.BaseDisplayName, opts.Version)
	dataDisplay := display
	if opts.DisplaySuffix != "" {
		dataDisplay += " " + opts.DisplaySuffix
	}
	content, stats, err := sfm.Apply(string(raw), sfm.Patch{DisplayName: dataDisplay, Scales: v.Scales})
	if err != nil {
		return nil, contentError(v.VariantID, dataRel, err)
	}
	logger.Info("promoting variant",
		"variant", v.VariantID,
		"version", opts.Version,
		"cx0", v.Scales.Cx0,
		"polar", v.Scales.Polar,
		"engine_drag", v.Scales.EngineDrag,
		"pfor", v.Scales.Pfor,
		"fields", stats.FieldsChanged(),
	)

	staging := opts.StagingDir
	if staging == "" {
		staging = filepath.Join(filepath.Dir(opts.TargetRoot), ".fmlab-promote")
	}
	staged := filepath.Join(staging, filepath.Base(opts.TargetRoot))
	if err := os.RemoveAll(staged); err != nil {
		return nil, &BuildError{Kind: KindCopy, Path: staged, Err: err}
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, &BuildError{Kind: KindPathUnwritable, Path: staging, Err: err}
	}
	if err := copyTree(opts.CleanRoot, staged); err != nil {
		return nil, &BuildError{Kind: KindCopy, Path: staged, Err: err}
	}
	if err := os.WriteFile(filepath.Join(staged, dataRel), []byte(content), 0o644); err != nil {
		return nil, &BuildError{Kind: KindCopy, Path: staged, Err: err}
	}

	entryPath := filepath.Join(staged, entryFile)
	if entry, err := os.ReadFile(entryPath); err == nil {
		menu := strings.TrimSpace(opts.Version + " " + cfg.Aircraft.BaseDisplayName)
		patched, _ := PatchEntryDisplay(string(entry), display, menu)
		if err := os.WriteFile(entryPath, []byte(patched), 0o644); err != nil {
			return nil, &BuildError{Kind: KindCopy, Path: entryPath, Err: err}
		}
	} else {
		logger.Warn("entry.lua not found in clean baseline", "dir", opts.CleanRoot)
	}

	logger.Info("replacing baseline", "target", opts.TargetRoot)
	if err := os.RemoveAll(opts.TargetRoot); err != nil {
		return nil, &BuildError{Kind: KindPathUnwritable, Path: opts.TargetRoot, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(opts.TargetRoot), 0o755); err != nil {
		return nil, &BuildError{Kind: KindPathUnwritable, Path: opts.TargetRoot, Err: err}
	}
	if err := moveTree(staged, opts.TargetRoot); err != nil {
		return nil, &BuildError{Kind: KindCopy, Path: opts.TargetRoot, Err: err}
	}
	if entries, err := os.ReadDir(staging); err == nil && len(entries) == 0 {
		_ = os.Remove(staging)
	}

	return &PromoteResult{
		VariantID:   v.VariantID,
		Version:     opts.Version,
		DisplayName: display,
		Target:      opts.TargetRoot,
		DataFile:    dataRel,
		Digest:      Digest([]byte(content)),
	}, nil
}

// DetectTypeName returns the unit type name declared by the mod at modRoot.
func DetectTypeName(modRoot string) (string, error) {
	dataRel, err := FindDataFile(modRoot)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(modRoot, dataRel))
	if err != nil {
		return "", fmt.Errorf("builder: cannot read data file: %w", err)
	}
	name, ok := sfm.DetectTypeName(string(data))
	if !ok || name == "" {
		return "", &BuildError{Kind: KindFieldNotFound, Path: dataRel, Err: fmt.Errorf("no Name field")}
	}
	return name, nil
}
