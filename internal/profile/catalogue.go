package profile

import (
	"fmt"

	"github.com/vovakirdan/fmlab/internal/core"
)

// KindCeiling marks ceiling runs. No built-in profile uses it, but
// ceiling records from older missions still carry the prefix.
const KindCeiling Kind = "CEILING"

// Fuel loads as a fraction of internal capacity.
const (
	FuelHalf = 0.5
	FuelFull = 1.0
)

var (
	speedGatesKt = []float64{350, 400, 450, 500, 550, 593, 618}
	altGatesFt   = []float64{5000, 10000, 15000, 20000, 25000, 30000, 35000, 40000}
)

func nm(v float64) float64 { return core.NauticalMiles(v) }

func pt(x, y float64) core.Point { return core.Point{X: x, Y: y} }

func accel(name string, altFt float64, start core.Point, alongY bool) TestProfile {
	leg := func(d float64) core.Point {
		if alongY {
			return start.Offset(0, d)
		}
		return start.Offset(d, 0)
	}
	return TestProfile{
		Name:         name,
		Kind:         KindAccel,
		AltitudeFt:   altFt,
		FuelFraction: FuelHalf,
		Waypoints: []Waypoint{
			{Offset: start},
			{Offset: leg(nm(50)), SpeedKt: 800},
			{Offset: leg(nm(60)), SpeedKt: 800, Orbit: &Orbit{
				Pattern: OrbitRaceTrack, AltitudeFt: altFt, SpeedKt: 800, RadiusNm: 10,
			}},
		},
	}
}

func climb(name string, altFt float64, start core.Point) TestProfile {
	return TestProfile{
		Name:         name,
		Kind:         KindClimb,
		AltitudeFt:   altFt,
		SpeedKt:      380,
		FuelFraction: FuelFull,
		Waypoints: []Waypoint{
			{Offset: start, AltitudeFt: altFt, SpeedKt: 380},
			{Offset: start.Offset(0, nm(30)), AltitudeFt: 40000, SpeedKt: 380},
		},
	}
}

func turn(speedKt float64) TestProfile {
	center := pt(-15000, -speedKt*20)
	return TestProfile{
		Name:         fmt.Sprintf("TURN_10K_%.0f", speedKt),
		Kind:         KindTurn,
		AltitudeFt:   10000,
		SpeedKt:      speedKt,
		FuelFraction: FuelHalf,
		Waypoints: []Waypoint{
			{Offset: center, AltitudeFt: 10000, SpeedKt: speedKt},
			{Offset: center, AltitudeFt: 10000, SpeedKt: speedKt, Orbit: &Orbit{
				Pattern: OrbitCircle, AltitudeFt: 10000, SpeedKt: speedKt, RadiusNm: 6,
			}},
		},
	}
}

func dash(name string, kind Kind, altFt, fromKt, toKt float64, start core.Point, lengthNm float64) TestProfile {
	return TestProfile{
		Name:         name,
		Kind:         kind,
		AltitudeFt:   altFt,
		SpeedKt:      fromKt,
		FuelFraction: FuelHalf,
		Waypoints: []Waypoint{
			{Offset: start, AltitudeFt: altFt, SpeedKt: fromKt},
			{Offset: start.Offset(nm(lengthNm), 0), AltitudeFt: altFt, SpeedKt: toKt},
		},
	}
}

// catalogue builds the fixed profile list in mission order.
func catalogue() []TestProfile {
	profiles := []TestProfile{
		accel("ACCEL_SL", 1000, pt(5000, 0), false),
		accel("ACCEL_10K", 10000, pt(0, 5000), true),
		accel("ACCEL_20K", 20000, pt(-5000, 0), true),
		climb("CLIMB_SL", 1000, pt(15000, 15000)),
		climb("CLIMB_10K", 10000, pt(20000, -15000)),
		turn(300),
		turn(350),
		turn(400),
		dash("VMAX_SL", KindVmax, 1000, 400, 700, pt(-30000, 30000), 80),
		dash("VMAX_10K", KindVmax, 10000, 400, 700, pt(-30000, -30000), 80),
		dash("DECEL_10K", KindDecel, 10000, 400, 200, pt(30000, 0), 40),
	}
	profiles[0].SpeedKt = 230
	profiles[1].SpeedKt = 300
	profiles[2].SpeedKt = 300

	for i := range profiles {
		profiles[i].SpeedGatesKt = append([]float64(nil), speedGatesKt...)
		if profiles[i].Kind == KindClimb {
			profiles[i].AltGatesFt = append([]float64(nil), altGatesFt...)
		}
	}
	return profiles
}

// All returns a fresh copy of the built-in profiles in mission order.
func All() []TestProfile {
	return catalogue()
}

// Names returns the profile names in mission order.
func Names() []string {
	profiles := catalogue()
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names
}

// Lookup returns the profile with the given name.
func Lookup(name string) (TestProfile, bool) {
	for _, p := range catalogue() {
		if p.Name == name {
			return p, true
		}
	}
	return TestProfile{}, false
}

// Index returns the catalogue position of name, or -1 if unknown.
// Reports use it to order tests.
func Index(name string) int {
	for i, n := range Names() {
		if n == name {
			return i
		}
	}
	return -1
}

// SpeedGates returns the speed thresholds watched for every profile.
func SpeedGates() []float64 {
	return append([]float64(nil), speedGatesKt...)
}

// AltitudeGates returns the altitude thresholds watched on climbs.
func AltitudeGates() []float64 {
	return append([]float64(nil), altGatesFt...)
}
