package core

// Conversion factors used by mission placement and the logger script.
const (
	FtToM   = 0.3048
	KtToMps = 0.514444
	KtToKph = 1.852
	NmToM   = 1852.0
)

// FeetToMeters converts an altitude in feet to metres.
func FeetToMeters(ft float64) float64 { return ft * FtToM }

// KnotsToMps converts knots to metres per second.
func KnotsToMps(kt float64) float64 { return kt * KtToMps }

// KnotsToKph converts knots to kilometres per hour.
func KnotsToKph(kt float64) float64 { return kt * KtToKph }

// NauticalMiles converts nautical miles to metres.
func NauticalMiles(nm float64) float64 { return nm * NmToM }
