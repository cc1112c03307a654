package sfm

import (
	"math"
	"strconv"
	"strings"
)

// FormatScaled renders v in the textual style of orig: integers stay
// integers, decimals keep their number of fractional digits and exponent
// notation stays exponent notation.
func FormatScaled(orig string, v float64) string {
	mantissa := orig
	exp := ""
	if i := strings.IndexAny(orig, "eE"); i >= 0 {
		mantissa, exp = orig[:i], orig[i:]
	}
	decimals := -1
	if dot := strings.IndexByte(mantissa, '.'); dot >= 0 {
		decimals = len(mantissa) - dot - 1
	}

	if exp != "" {
		prec := decimals
		if prec < 0 {
			prec = 0
		}
		return strconv.FormatFloat(v, byte(exp[0]), prec, 64)
	}
	if decimals < 0 {
		return strconv.FormatFloat(math.Round(v), 'f', 0, 64)
	}
	out := strconv.FormatFloat(v, 'f', decimals, 64)
	if decimals == 0 {
		out += "."
	}
	return out
}
