package config

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/vovakirdan/fmlab/internal/profile"
)

// Validation error codes.
const (
	CodeNoVariants        = "NO_VARIANTS"
	CodeMissingField      = "MISSING_FIELD"
	CodeInvalidShortName  = "INVALID_SHORT_NAME"
	CodeReservedShortName = "RESERVED_SHORT_NAME"
	CodeDuplicate         = "DUPLICATE"
	CodeBaselineCollision = "BASELINE_COLLISION"
	CodeInvalidScale      = "INVALID_SCALE"
	CodeInvalidText       = "INVALID_TEXT"
)

// ValidationError contains details about a configuration failure.
type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

var shortNamePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// unsafeText are characters that cannot appear inside the Lua string
// literals identity fields are written into.
const unsafeText = "'\"\\\n\r"

// SafeText reports whether s can be written into a Lua string literal as is.
func SafeText(s string) bool {
	return !strings.ContainsAny(s, unsafeText)
}

// ValidScale reports whether v is a finite positive factor.
func ValidScale(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// ValidShortName reports whether s can prefix a group name.
func ValidShortName(s string) bool {
	return shortNamePattern.MatchString(s)
}

// Validate checks the invariants every command relies on. It returns the
// first violation found, walking variants in config order.
func (c *VariantConfig) Validate() error {
	if len(c.Variants) == 0 {
		return ValidationError{Code: CodeNoVariants, Message: "variant list is empty"}
	}
	for _, f := range []struct{ field, value string }{
		{"base_type_id", c.Aircraft.BaseTypeID},
		{"base_mod_dir", c.Aircraft.BaseModDir},
		{"base_display_name", c.Aircraft.BaseDisplayName},
	} {
		if !SafeText(f.value) {
			return ValidationError{
				Code:    CodeInvalidText,
				Message: fmt.Sprintf("aircraft: %s %q contains a quote, backslash or line break", f.field, f.value),
			}
		}
	}

	seen := map[string]map[string]string{
		"short_name":     {},
		"type_name":      {},
		"shape_username": {},
		"mod_dir_name":   {},
		"variant_id":     {},
	}

	for i, v := range c.Variants {
		label := v.VariantID
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}

		if err := requireFields(label, map[string]string{
			"variant_id":     v.VariantID,
			"short_name":     v.ShortName,
			"mod_dir_name":   v.ModDirName,
			"type_name":      v.TypeName,
			"shape_username": v.ShapeUsername,
			"display_name":   v.DisplayName,
		}); err != nil {
			return err
		}
		for _, f := range []struct{ field, value string }{
			{"variant_id", v.VariantID},
			{"mod_dir_name", v.ModDirName},
			{"type_name", v.TypeName},
			{"shape_username", v.ShapeUsername},
			{"display_name", v.DisplayName},
		} {
			if !SafeText(f.value) {
				return ValidationError{
					Code:    CodeInvalidText,
					Message: fmt.Sprintf("variant %s: %s %q contains a quote, backslash or line break", label, f.field, f.value),
				}
			}
		}

		if !ValidShortName(v.ShortName) {
			return ValidationError{
				Code:    CodeInvalidShortName,
				Message: fmt.Sprintf("variant %s: short_name %q must be alphanumeric", label, v.ShortName),
			}
		}
		if profile.IsFamily(v.ShortName) {
			return ValidationError{
				Code:    CodeReservedShortName,
				Message: fmt.Sprintf("variant %s: short_name %q collides with a test profile family", label, v.ShortName),
			}
		}

		for _, f := range []struct{ field, value string }{
			{"variant_id", v.VariantID},
			{"short_name", v.ShortName},
			{"type_name", v.TypeName},
			{"shape_username", v.ShapeUsername},
			{"mod_dir_name", v.ModDirName},
		} {
			if other, ok := seen[f.field][f.value]; ok {
				return ValidationError{
					Code:    CodeDuplicate,
					Message: fmt.Sprintf("variants %s and %s share %s %q", other, label, f.field, f.value),
				}
			}
			seen[f.field][f.value] = label
		}

		if c.Aircraft.BaseTypeID != "" && v.TypeName == c.Aircraft.BaseTypeID {
			return ValidationError{
				Code:    CodeBaselineCollision,
				Message: fmt.Sprintf("variant %s: type_name %q equals the baseline type", label, v.TypeName),
			}
		}
		if c.Aircraft.BaseModDir != "" && v.ModDirName == c.Aircraft.BaseModDir {
			return ValidationError{
				Code:    CodeBaselineCollision,
				Message: fmt.Sprintf("variant %s: mod_dir_name %q equals the baseline mod directory", label, v.ModDirName),
			}
		}

		for _, s := range []struct {
			name  string
			value float64
		}{
			{"cx0", v.Scales.Cx0},
			{"polar", v.Scales.Polar},
			{"engine_drag", v.Scales.EngineDrag},
			{"pfor", v.Scales.Pfor},
		} {
			if !ValidScale(s.value) {
				return ValidationError{
					Code:    CodeInvalidScale,
					Message: fmt.Sprintf("variant %s: scale %s must be a finite number > 0, got %v", label, s.name, s.value),
				}
			}
		}
	}
	return nil
}

func requireFields(label string, fields map[string]string) error {
	// fixed order keeps the reported field deterministic
	for _, name := range []string{"variant_id", "short_name", "mod_dir_name", "type_name", "shape_username", "display_name"} {
		if fields[name] == "" {
			return ValidationError{
				Code:    CodeMissingField,
				Message: fmt.Sprintf("variant %s: %s is required", label, name),
			}
		}
	}
	return nil
}
