package builder

import (
	"regexp"
	"strings"

	"github.com/vovakirdan/fmlab/internal/config"
)

// entryFile is the plugin declaration at the root of a mod.
const entryFile = "entry.lua"

var (
	selfIDPattern       = regexp.MustCompile(`(self_ID\s*=\s*["'])([^"']+)(["'])`)
	updateIDPattern     = regexp.MustCompile(`(update_id\s*=\s*["'])([^"']+)(["'])`)
	entryDisplayPattern = regexp.MustCompile(`(displayName\s*=\s*_\(\s*["'])([^"']+)(["'])`)
	fileMenuPattern     = regexp.MustCompile(`(fileMenuName\s*=\s*_\(\s*["'])([^"']+)(["'])`)
	logBookTypePattern  = regexp.MustCompile(`(?s)(LogBook\s*=\s*\{\s*\{[^}]*?type\s*=\s*["'])([^"']+)(["'])`)
)

// variantSuffix is the last underscore-separated token of the type name.
func variantSuffix(typeName string) string {
	if i := strings.LastIndex(typeName, "_"); i >= 0 {
		return typeName[i+1:]
	}
	return typeName
}

// rewriteValue replaces the second group of the first match of re.
// It reports whether a match was found.
func rewriteValue(src string, re *regexp.Regexp, value func(old string) string) (string, bool) {
	m := re.FindStringSubmatchIndex(src)
	if m == nil {
		return src, false
	}
	return src[:m[4]] + value(src[m[4]:m[5]]) + src[m[5]:], true
}

func appendSuffix(suffix string) func(string) string {
	return func(old string) string { return old + "_" + suffix }
}

func constant(v string) func(string) string {
	return func(string) string { return v }
}

// PatchEntry gives a variant's plugin declaration unique ids so several
// variants can be installed side by side. It returns the number of fields
// rewritten.
func PatchEntry(src string, v config.VariantSpec, baseDisplayName string) (string, int) {
	suffix := variantSuffix(v.TypeName)
	menuName := strings.TrimSpace(v.ShortName + " " + baseDisplayName)

	edits := []struct {
		re    *regexp.Regexp
		value func(string) string
	}{
		{selfIDPattern, appendSuffix(suffix)},
		{entryDisplayPattern, constant(v.DisplayName)},
		{fileMenuPattern, constant(menuName)},
		{updateIDPattern, appendSuffix(suffix)},
		{logBookTypePattern, appendSuffix(suffix)},
	}

	n := 0
	for _, e := range edits {
		var ok bool
		if src, ok = rewriteValue(src, e.re, e.value); ok {
			n++
		}
	}
	return src, n
}

// PatchEntryDisplay rewrites only the display fields of a plugin
// declaration. Ids stay untouched so liveries and logbooks keep working.
func PatchEntryDisplay(src, displayName, menuName string) (string, int) {
	n := 0
	var ok bool
	if src, ok = rewriteValue(src, entryDisplayPattern, constant(displayName)); ok {
		n++
	}
	if src, ok = rewriteValue(src, fileMenuPattern, constant(menuName)); ok {
		n++
	}
	return src, n
}
