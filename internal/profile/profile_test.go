package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogueOrder(t *testing.T) {
	want := []string{
		"ACCEL_SL", "ACCEL_10K", "ACCEL_20K",
		"CLIMB_SL", "CLIMB_10K",
		"TURN_10K_300", "TURN_10K_350", "TURN_10K_400",
		"VMAX_SL", "VMAX_10K",
		"DECEL_10K",
	}
	assert.Equal(t, want, Names())
	assert.Len(t, All(), 11)
}

func TestCatalogueNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range All() {
		require.False(t, seen[p.Name], "duplicate profile %s", p.Name)
		seen[p.Name] = true
		require.NotEmpty(t, p.Waypoints, "profile %s has no route", p.Name)
		kind, ok := Family(p.Name)
		require.True(t, ok)
		assert.Equal(t, p.Kind, kind)
	}
}

func TestLookupAndIndex(t *testing.T) {
	p, ok := Lookup("CLIMB_SL")
	require.True(t, ok)
	assert.Equal(t, KindClimb, p.Kind)
	assert.Equal(t, FuelFull, p.FuelFraction)
	assert.Len(t, p.AltGatesFt, 8)
	assert.Equal(t, 40000.0, p.WaypointAltitude(1))

	_, ok = Lookup("BARREL_ROLL")
	assert.False(t, ok)

	assert.Equal(t, 0, Index("ACCEL_SL"))
	assert.Equal(t, 10, Index("DECEL_10K"))
	assert.Equal(t, -1, Index("nope"))
}

func TestGates(t *testing.T) {
	for _, p := range All() {
		assert.Equal(t, SpeedGates(), p.SpeedGatesKt, p.Name)
		if p.Kind != KindClimb {
			assert.Empty(t, p.AltGatesFt, p.Name)
		}
	}
}

func TestAllReturnsCopy(t *testing.T) {
	a := All()
	a[0].Name = "mutated"
	a[0].SpeedGatesKt[0] = 1
	assert.Equal(t, "ACCEL_SL", All()[0].Name)
	assert.Equal(t, 350.0, All()[0].SpeedGatesKt[0])
}

func TestHeading(t *testing.T) {
	tests := []struct {
		name string
		want float64
	}{
		{"ACCEL_SL", 0},
		{"ACCEL_10K", 90},
		{"CLIMB_SL", 90},
		{"TURN_10K_300", 0},
		{"VMAX_SL", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, ok := Lookup(tc.name)
			require.True(t, ok)
			assert.InDelta(t, tc.want, p.Heading(), 1e-9)
		})
	}
}

func TestWaypointInheritance(t *testing.T) {
	p, _ := Lookup("ACCEL_SL")
	assert.Equal(t, 1000.0, p.WaypointAltitude(0))
	assert.Equal(t, 230.0, p.WaypointSpeed(0))
	assert.Equal(t, 800.0, p.WaypointSpeed(1))
	require.NotNil(t, p.Waypoints[2].Orbit)
	assert.Equal(t, OrbitRaceTrack, p.Waypoints[2].Orbit.Pattern)
}

func TestFamily(t *testing.T) {
	k, ok := Family("VMAX_10K")
	assert.True(t, ok)
	assert.Equal(t, KindVmax, k)

	k, ok = Family("CEILING_AB_FULL")
	assert.True(t, ok)
	assert.Equal(t, KindCeiling, k)

	_, ok = Family("FM6_VMAX_10K")
	assert.False(t, ok)

	assert.True(t, IsFamily("TURN"))
	assert.False(t, IsFamily("FM1"))
}
