package mission

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
)

//go:embed logger.lua
var loggerTemplate string

// Placeholders in the logger template.
const (
	groupsPlaceholder   = "{GROUPS_LUA_ARRAY}"
	runIDPlaceholder    = "{RUN_ID}"
	sentinelPlaceholder = "{SENTINEL}"
	fuelPlaceholder     = "{FUEL_MAX_KG}"
	emptyPlaceholder    = "{EMPTY_WEIGHT_KG}"
	summaryPlaceholder  = "{SUMMARY_AFTER_S}"
)

// multiLineGroups is the group count above which the list is written one
// name per line.
const multiLineGroups = 15

// ScriptParams are the constants baked into the logger script.
type ScriptParams struct {
	Sentinel      string
	FuelMaxKg     float64
	EmptyMassKg   float64
	SummaryAfterS float64
}

// DefaultScriptParams matches the legacy script.
func DefaultScriptParams() ScriptParams {
	return ScriptParams{
		Sentinel:      "[MIG17_FM_TEST]",
		FuelMaxKg:     1140,
		EmptyMassKg:   3920,
		SummaryAfterS: 600,
	}
}

// groupsArray renders names as a Lua array literal.
func groupsArray(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = `"` + n + `"`
	}
	sep := ", "
	if len(quoted) > multiLineGroups {
		sep = ",\n    "
	}
	return "{\n    " + strings.Join(quoted, sep) + ",\n  }"
}

func luaNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// renderScript returns the logger script watching groups and tagging its
// output with runID.
func renderScript(groups []string, runID string, p ScriptParams) string {
	r := strings.NewReplacer(
		groupsPlaceholder, groupsArray(groups),
		runIDPlaceholder, runID,
		sentinelPlaceholder, p.Sentinel,
		fuelPlaceholder, luaNumber(p.FuelMaxKg),
		emptyPlaceholder, luaNumber(p.EmptyMassKg),
		summaryPlaceholder, luaNumber(p.SummaryAfterS),
	)
	return "\n" + r.Replace(loggerTemplate)
}

// checkScriptParams rejects values that would break the script.
func checkScriptParams(p ScriptParams) error {
	if p.Sentinel == "" || strings.ContainsAny(p.Sentinel, "\"\\\n") {
		return fmt.Errorf("mission: invalid log sentinel %q", p.Sentinel)
	}
	if p.FuelMaxKg <= 0 || p.EmptyMassKg <= 0 || p.SummaryAfterS <= 0 {
		return fmt.Errorf("mission: fuel, mass and summary delay must be positive")
	}
	return nil
}
