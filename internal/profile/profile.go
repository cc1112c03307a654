// Package profile defines the fixed catalogue of flight-test profiles.
//
// Profiles are built in and never generated from configuration. Waypoint
// positions are offsets in metres from the mission origin; the assembler
// translates them into each variant's lane.
package profile

import (
	"math"
	"strings"

	"github.com/vovakirdan/fmlab/internal/core"
)

// Kind is the family a profile belongs to. It is also the first token of
// the profile name.
type Kind string

const (
	KindAccel Kind = "ACCEL"
	KindClimb Kind = "CLIMB"
	KindTurn  Kind = "TURN"
	KindVmax  Kind = "VMAX"
	KindDecel Kind = "DECEL"
)

// OrbitPattern selects the holding pattern flown at a waypoint.
type OrbitPattern int

const (
	OrbitRaceTrack OrbitPattern = iota
	OrbitCircle
)

// String returns the pattern name used in mission tasks.
func (p OrbitPattern) String() string {
	if p == OrbitCircle {
		return "Circle"
	}
	return "Race-Track"
}

// Orbit is a holding task attached to a waypoint.
type Orbit struct {
	Pattern    OrbitPattern
	AltitudeFt float64
	SpeedKt    float64
	RadiusNm   float64
}

// Waypoint is one point of a profile route. Zero altitude or speed means
// "inherit from the profile".
type Waypoint struct {
	Offset     core.Point
	AltitudeFt float64
	SpeedKt    float64
	Orbit      *Orbit
}

// TestProfile is a named flight-test pattern.
type TestProfile struct {
	Name         string
	Kind         Kind
	AltitudeFt   float64
	SpeedKt      float64
	FuelFraction float64
	Waypoints    []Waypoint
	SpeedGatesKt []float64
	AltGatesFt   []float64
}

// Heading returns the initial course in degrees, measured from the x axis
// toward y, derived from the first route leg. A route whose first leg has
// no length (an orbit in place) has heading 0.
func (p TestProfile) Heading() float64 {
	if len(p.Waypoints) < 2 {
		return 0
	}
	a, b := p.Waypoints[0].Offset, p.Waypoints[1].Offset
	if a == b {
		return 0
	}
	deg := math.Atan2(b.Y-a.Y, b.X-a.X) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// WaypointAltitude returns the altitude flown at waypoint i.
func (p TestProfile) WaypointAltitude(i int) float64 {
	if alt := p.Waypoints[i].AltitudeFt; alt != 0 {
		return alt
	}
	return p.AltitudeFt
}

// WaypointSpeed returns the speed flown toward waypoint i.
func (p TestProfile) WaypointSpeed(i int) float64 {
	if spd := p.Waypoints[i].SpeedKt; spd != 0 {
		return spd
	}
	return p.SpeedKt
}

// Family returns the kind encoded in a test or group name, if any.
func Family(name string) (Kind, bool) {
	head, _, _ := strings.Cut(name, "_")
	for _, k := range []Kind{KindAccel, KindClimb, KindTurn, KindVmax, KindDecel, KindCeiling} {
		if head == string(k) {
			return k, true
		}
	}
	return "", false
}

// IsFamily reports whether word is a profile family token. Such words
// cannot be used as variant prefixes because log group names would become
// ambiguous.
func IsFamily(word string) bool {
	k, ok := Family(word)
	return ok && string(k) == word
}
