package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// AircraftIdentity is the baseline aircraft every variant derives from.
type AircraftIdentity struct {
	BaseTypeID      string `json:"base_type_id" yaml:"base_type_id"`
	BaseModDir      string `json:"base_mod_dir" yaml:"base_mod_dir"`
	BaseDisplayName string `json:"base_display_name" yaml:"base_display_name"`
	Description     string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ScaleFactors multiply specific fields of the baseline flight model.
// A factor of exactly 1.0 leaves the field untouched.
type ScaleFactors struct {
	Cx0        float64 `json:"cx0" yaml:"cx0"`
	Polar      float64 `json:"polar" yaml:"polar"`
	EngineDrag float64 `json:"engine_drag" yaml:"engine_drag"`
	Pfor       float64 `json:"pfor" yaml:"pfor"`
}

// IdentityScales returns factors that reproduce the baseline.
func IdentityScales() ScaleFactors {
	return ScaleFactors{Cx0: 1, Polar: 1, EngineDrag: 1, Pfor: 1}
}

// IsIdentity reports whether every factor is exactly 1.0.
func (s ScaleFactors) IsIdentity() bool {
	return s == IdentityScales()
}

// VariantSpec describes one scaled derivative of the baseline.
type VariantSpec struct {
	VariantID     string       `json:"variant_id" yaml:"variant_id"`
	ShortName     string       `json:"short_name" yaml:"short_name"`
	ModDirName    string       `json:"mod_dir_name" yaml:"mod_dir_name"`
	TypeName      string       `json:"type_name" yaml:"type_name"`
	ShapeUsername string       `json:"shape_username" yaml:"shape_username"`
	DisplayName   string       `json:"display_name" yaml:"display_name"`
	Scales        ScaleFactors `json:"scales" yaml:"scales"`
	Notes         string       `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// VariantConfig is the whole variant document. It is never modified after load.
type VariantConfig struct {
	Version  int              `json:"version" yaml:"version"`
	Aircraft AircraftIdentity `json:"aircraft" yaml:"aircraft"`
	Variants []VariantSpec    `json:"variants" yaml:"variants"`

	// Path is the file the config was loaded from, if any.
	Path string `json:"-" yaml:"-"`
}

// Variant returns the variant with the given id or short name.
func (c *VariantConfig) Variant(key string) (VariantSpec, bool) {
	for _, v := range c.Variants {
		if v.VariantID == key || v.ShortName == key {
			return v, true
		}
	}
	return VariantSpec{}, false
}

// ShortNames returns the variant short names in config order.
func (c *VariantConfig) ShortNames() []string {
	names := make([]string, len(c.Variants))
	for i, v := range c.Variants {
		names[i] = v.ShortName
	}
	return names
}

// rawDocument mirrors the on-disk layout. Older documents use "id" and
// "dcs_type_name"; scale factors are optional and default to 1.0.
type rawDocument struct {
	Version  int `json:"version" yaml:"version"`
	Aircraft struct {
		ID              string `json:"id" yaml:"id"`
		BaseTypeID      string `json:"base_type_id" yaml:"base_type_id"`
		BaseModDir      string `json:"base_mod_dir" yaml:"base_mod_dir"`
		BaseDisplayName string `json:"base_display_name" yaml:"base_display_name"`
		Description     string `json:"description" yaml:"description"`
	} `json:"aircraft" yaml:"aircraft"`
	Variants []rawVariant `json:"variants" yaml:"variants"`
}

type rawVariant struct {
	VariantID     string    `json:"variant_id" yaml:"variant_id"`
	ShortName     string    `json:"short_name" yaml:"short_name"`
	ModDirName    string    `json:"mod_dir_name" yaml:"mod_dir_name"`
	TypeName      string    `json:"type_name" yaml:"type_name"`
	DCSTypeName   string    `json:"dcs_type_name" yaml:"dcs_type_name"`
	ShapeUsername string    `json:"shape_username" yaml:"shape_username"`
	DisplayName   string    `json:"display_name" yaml:"display_name"`
	Scales        rawScales `json:"scales" yaml:"scales"`
	Notes         string    `json:"notes" yaml:"notes"`
}

type rawScales struct {
	Cx0        *float64 `json:"cx0" yaml:"cx0"`
	Polar      *float64 `json:"polar" yaml:"polar"`
	EngineDrag *float64 `json:"engine_drag" yaml:"engine_drag"`
	Pfor       *float64 `json:"pfor" yaml:"pfor"`
}

func orOne(v *float64) float64 {
	if v == nil {
		return 1.0
	}
	return *v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (d rawDocument) toConfig() *VariantConfig {
	cfg := &VariantConfig{
		Version: d.Version,
		Aircraft: AircraftIdentity{
			BaseTypeID:      firstNonEmpty(d.Aircraft.BaseTypeID, d.Aircraft.ID),
			BaseModDir:      d.Aircraft.BaseModDir,
			BaseDisplayName: d.Aircraft.BaseDisplayName,
			Description:     d.Aircraft.Description,
		},
		Variants: make([]VariantSpec, 0, len(d.Variants)),
	}
	for _, v := range d.Variants {
		cfg.Variants = append(cfg.Variants, VariantSpec{
			VariantID:     v.VariantID,
			ShortName:     v.ShortName,
			ModDirName:    v.ModDirName,
			TypeName:      firstNonEmpty(v.TypeName, v.DCSTypeName),
			ShapeUsername: v.ShapeUsername,
			DisplayName:   v.DisplayName,
			Scales: ScaleFactors{
				Cx0:        orOne(v.Scales.Cx0),
				Polar:      orOne(v.Scales.Polar),
				EngineDrag: orOne(v.Scales.EngineDrag),
				Pfor:       orOne(v.Scales.Pfor),
			},
			Notes: v.Notes,
		})
	}
	return cfg
}

// ParseVariants decodes a variant document. The format is chosen by the
// file extension of name (.json, .yaml or .yml).
func ParseVariants(data []byte, name string) (*VariantConfig, error) {
	var doc rawDocument
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse variant config %s: %w", name, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse variant config %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("unsupported variant config format: %s", ext)
	}
	cfg := doc.toConfig()
	cfg.Path = name
	return cfg, nil
}

// LoadVariants reads and validates a variant config file.
func LoadVariants(path string) (*VariantConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read variant config %s: %w", path, err)
	}
	cfg, err := ParseVariants(data, path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid variant config %s: %w", path, err)
	}
	return cfg, nil
}

// DiscoverVariants loads the variant config at its conventional location.
// A missing file is not an error: found is false and the caller falls
// back to single-aircraft operation.
func DiscoverVariants(path string) (cfg *VariantConfig, found bool, err error) {
	if path == "" {
		return nil, false, nil
	}
	if _, statErr := os.Stat(path); statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to stat variant config %s: %w", path, statErr)
	}
	cfg, err = LoadVariants(path)
	if err != nil {
		return nil, true, err
	}
	return cfg, true, nil
}
