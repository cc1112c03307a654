package mission

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/vovakirdan/fmlab/internal/config"
	"github.com/vovakirdan/fmlab/internal/profile"
)

func twoVariants() *config.VariantConfig {
	return &config.VariantConfig{
		Aircraft: config.AircraftIdentity{BaseTypeID: "vwv_mig17f", BaseModDir: "[VWV] MiG-17", BaseDisplayName: "MiG-17F"},
		Variants: []config.VariantSpec{
			{VariantID: "FM1_LOW_DRAG", ShortName: "FM1", ModDirName: "[VWV] MiG-17 FM1", TypeName: "vwv_mig17f_fm1",
				ShapeUsername: "MiG-17F-FM1", DisplayName: "MiG-17F FM1",
				Scales: config.ScaleFactors{Cx0: 0.8, Polar: 1, EngineDrag: 1, Pfor: 1}},
			{VariantID: "FM2_POLAR", ShortName: "FM2", ModDirName: "[VWV] MiG-17 FM2", TypeName: "vwv_mig17f_fm2",
				ShapeUsername: "MiG-17F-FM2", DisplayName: "MiG-17F FM2",
				Scales: config.ScaleFactors{Cx0: 1, Polar: 0.5, EngineDrag: 1, Pfor: 1}},
		},
	}
}

func fixedOptions() Options {
	opts := DefaultOptions()
	opts.RunID = "0123456789ab"
	return opts
}

func TestAssembleMultiGroupNames(t *testing.T) {
	art, err := Assemble(Multi{Config: twoVariants()}, profile.All(), fixedOptions())
	require.NoError(t, err)

	names := art.GroupNames()
	require.Len(t, names, 22)
	assert.Equal(t, "FM1_ACCEL_SL", names[0])
	assert.Equal(t, "FM2_DECEL_10K", names[21])

	seen := make(map[string]bool)
	pattern := regexp.MustCompile(`^FM[12]_[A-Z0-9_]+$`)
	for _, g := range art.Groups {
		assert.False(t, seen[g.GroupName], "duplicate %s", g.GroupName)
		seen[g.GroupName] = true
		assert.Regexp(t, pattern, g.GroupName)
		assert.Equal(t, g.VariantKey+"_"+g.ProfileName, g.GroupName)
	}
	assert.Equal(t, "vwv_mig17f_fm2", art.Groups[11].TypeName)
}

func TestAssembleLaneSeparation(t *testing.T) {
	cfg := twoVariants()
	third := cfg.Variants[1]
	third.ShortName, third.TypeName, third.ShapeUsername = "FM3", "vwv_mig17f_fm3", "MiG-17F-FM3"
	cfg.Variants = append(cfg.Variants, third)

	art, err := Assemble(Multi{Config: cfg}, profile.All(), fixedOptions())
	require.NoError(t, err)

	byProfile := make(map[string][]TestGroup)
	for _, g := range art.Groups {
		byProfile[g.ProfileName] = append(byProfile[g.ProfileName], g)
	}
	for name, groups := range byProfile {
		require.Len(t, groups, 3, name)
		for i := range groups {
			for j := i + 1; j < len(groups); j++ {
				dx := math.Abs(groups[i].Origin.X - groups[j].Origin.X)
				assert.GreaterOrEqual(t, dx, float64(DefaultLaneSpacingM), "%s lanes %d/%d", name, i, j)
				assert.Equal(t, groups[i].Origin.Y, groups[j].Origin.Y)

				pi, pj := groups[i].Points(), groups[j].Points()
				for k := range pi {
					assert.InDelta(t, float64(j-i)*DefaultLaneSpacingM, pj[k].X-pi[k].X, 1e-6)
				}
			}
		}
	}
}

func TestAssembleSingleIsLegacy(t *testing.T) {
	art, err := Assemble(Single{TypeName: "vwv_mig17f"}, profile.All(), fixedOptions())
	require.NoError(t, err)

	assert.Equal(t, profile.Names(), art.GroupNames())

	golden, err := os.ReadFile(filepath.Join("testdata", "legacy_logger.lua"))
	require.NoError(t, err)
	assert.Equal(t, string(golden), art.Script)
	for _, g := range art.Groups {
		assert.Equal(t, "FM0", g.VariantKey)
		assert.Equal(t, 0, g.Lane)
	}
	assert.Equal(t, -275000.0+5000, art.Groups[0].Origin.X)
	assert.Equal(t, 200000.0, art.Groups[0].Origin.Y)
}

func TestRenderScript(t *testing.T) {
	script := renderScript(profile.Names(), "feedfacecafe", DefaultScriptParams())

	assert.Contains(t, script, `MIG17_TEST.RUN_ID = "feedfacecafe"`)
	assert.Contains(t, script, "MIG17_TEST.GROUPS = {\n    \"ACCEL_SL\", \"ACCEL_10K\", ")
	assert.Contains(t, script, "\"DECEL_10K\",\n  }")
	assert.Contains(t, script, `env.info("[MIG17_FM_TEST] " .. msg)`)
	assert.Contains(t, script, "timer.getTime() + 600)")
	assert.Contains(t, script, "MIG17_TEST.FUEL_MAX_KG = 1140 ")
	assert.NotContains(t, script, "{RUN_ID}")
	assert.NotContains(t, script, "{GROUPS_LUA_ARRAY}")
	assert.NotContains(t, script, "{SENTINEL}")
	require.NoError(t, checkLua("logger", script))

	// Long lists go one name per line.
	art, err := Assemble(Multi{Config: twoVariants()}, profile.All(), fixedOptions())
	require.NoError(t, err)
	assert.Contains(t, art.Script, "{\n    \"FM1_ACCEL_SL\",\n    \"FM1_ACCEL_10K\",\n")
	assert.Contains(t, art.Script, "\"FM2_DECEL_10K\",\n  }")
}

func TestGroupsArrayThreshold(t *testing.T) {
	names := make([]string, multiLineGroups)
	for i := range names {
		names[i] = "G"
	}
	assert.NotContains(t, groupsArray(names), ",\n    \"G\"")
	assert.Contains(t, groupsArray(append(names, "G")), ",\n    \"G\"")
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		profiles []profile.TestProfile
		kind     ErrorKind
	}{
		{
			name: "duplicate short name",
			mode: func() Mode {
				cfg := twoVariants()
				cfg.Variants[1].ShortName = "FM1"
				return Multi{Config: cfg}
			}(),
			profiles: profile.All(),
			kind:     KindDuplicateShortName,
		},
		{
			name: "short name with delimiter",
			mode: func() Mode {
				cfg := twoVariants()
				cfg.Variants[0].ShortName = "FM_1"
				return Multi{Config: cfg}
			}(),
			profiles: profile.All(),
			kind:     KindInvalidShortName,
		},
		{
			name: "short name is a profile family",
			mode: func() Mode {
				cfg := twoVariants()
				cfg.Variants[0].ShortName = "VMAX"
				return Multi{Config: cfg}
			}(),
			profiles: profile.All(),
			kind:     KindInvalidShortName,
		},
		{
			name:     "empty variant list",
			mode:     Multi{Config: &config.VariantConfig{}},
			profiles: profile.All(),
			kind:     KindEmptyVariantList,
		},
		{
			name:     "unknown profile",
			mode:     Single{TypeName: "vwv_mig17f"},
			profiles: []profile.TestProfile{{Name: "LOOP_5K", Waypoints: []profile.Waypoint{{}}}},
			kind:     KindUnknownProfile,
		},
		{
			name:     "profile without waypoints",
			mode:     Multi{Config: twoVariants()},
			profiles: []profile.TestProfile{{Name: "VMAX_SL"}},
			kind:     KindEmptyProfile,
		},
		{
			name:     "missing type",
			mode:     Single{},
			profiles: profile.All(),
			kind:     KindMissingTypeName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art, err := Assemble(tt.mode, tt.profiles, fixedOptions())
			assert.Nil(t, art)
			var aerr *AssemblyError
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, tt.kind, aerr.Kind)
		})
	}
}

func TestSelectProfiles(t *testing.T) {
	all, err := SelectProfiles(nil)
	require.NoError(t, err)
	assert.Len(t, all, 11)

	some, err := SelectProfiles([]string{"VMAX_SL", " CLIMB_SL"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "CLIMB_SL", some[1].Name)

	_, err = SelectProfiles([]string{"VMAX_SL", "LOOP"})
	var aerr *AssemblyError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, KindUnknownProfile, aerr.Kind)
}

func TestSelectMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "variants.json")

	mode, err := SelectMode(path, FixedType("vwv_mig17f"))
	require.NoError(t, err)
	assert.Equal(t, Single{TypeName: "vwv_mig17f"}, mode)

	_, err = SelectMode(path, FixedType(""))
	assert.Error(t, err)

	_, err = SelectMode(path, func() (string, error) { return "", errors.New("no mod") })
	assert.ErrorContains(t, err, "no mod")

	doc := `{"aircraft": {"base_type_id": "vwv_mig17f", "base_mod_dir": "[VWV] MiG-17", "base_display_name": "MiG-17F"},
	 "variants": [{"variant_id": "FM1_X", "short_name": "FM1", "mod_dir_name": "m1", "type_name": "vwv_mig17f_fm1",
	   "shape_username": "MiG-17F-FM1", "display_name": "FM1"}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	mode, err = SelectMode(path, FixedType(""))
	require.NoError(t, err)
	multi, ok := mode.(Multi)
	require.True(t, ok)
	assert.Equal(t, []string{"FM1"}, multi.Config.ShortNames())
}

func TestSelectModeBrokenConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "variants.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"variants": [`), 0o644))

	called := false
	_, err := SelectMode(path, func() (string, error) {
		called = true
		return "vwv_mig17f", nil
	})
	require.Error(t, err)
	assert.False(t, called, "a broken config must not fall back to single mode")
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.Regexp(t, `^[0-9a-f]{12}$`, a)
	assert.NotEqual(t, a, b)

	art, err := Assemble(Single{TypeName: "x"}, profile.All(), Options{})
	require.NoError(t, err)
	assert.Len(t, art.RunID, 12)
	assert.Contains(t, art.Script, art.RunID)
}

func readArchive(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	files := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		files[f.Name] = string(body)
	}
	return files
}

func TestWriteMiz(t *testing.T) {
	art, err := Assemble(Multi{Config: twoVariants()}, profile.All(), fixedOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, art.WriteMiz(&buf))
	files := readArchive(t, buf.Bytes())

	for _, name := range []string{"mission", "options", "warehouses", "l10n/DEFAULT/dictionary", "l10n/DEFAULT/mapResource"} {
		assert.Contains(t, files, name)
	}

	L := lua.NewState()
	defer L.Close()
	require.NoError(t, L.DoString(files["mission"]))
	require.NoError(t, L.DoString(files["l10n/DEFAULT/dictionary"]))

	checks := []string{
		`assert(mission.theatre == "Caucasus")`,
		`assert(mission.start_time == 43200)`,
		`assert(mission.date.Year == 2024 and mission.date.Month == 6 and mission.date.Day == 1)`,
		`assert(mission.trigrules[1].comment == "MiG-17 FM Test Logger")`,
		`assert(mission.trigrules[1].actions[1].predicate == "a_do_script")`,
		`local groups = mission.coalition.red.country[1].plane.group
		 assert(#groups == 22)
		 assert(groups[1].name == "FM1_ACCEL_SL")
		 assert(groups[12].units[1].type == "vwv_mig17f_fm2")
		 assert(groups[4].units[1].payload.fuel == 1140)
		 assert(groups[1].units[1].payload.fuel == 570)
		 assert(groups[1].route.points[3].task.params.tasks[1].params.pattern == "Race-Track")
		 assert(groups[6].route.points[2].task.params.tasks[1].params.pattern == "Circle")
		 assert(groups[12].x - groups[1].x == 80000)`,
		`assert(mission.coalition.blue.country[1].plane == nil)`,
		`assert(string.find(dictionary.DictKey_ActionText_1, "0123456789ab", 1, true))`,
	}
	for _, c := range checks {
		assert.NoError(t, L.DoString(c), c)
	}

	assert.Equal(t, art.Script, luaString(t, L, "return dictionary.DictKey_ActionText_1"))
}

func luaString(t *testing.T, L *lua.LState, chunk string) string {
	t.Helper()
	require.NoError(t, L.DoString(chunk))
	v := L.Get(-1)
	L.Pop(1)
	return v.String()
}

func TestSaveCreatesParent(t *testing.T) {
	art, err := Assemble(Single{TypeName: "vwv_mig17f"}, profile.All(), fixedOptions())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "Missions", "FM_Test.miz")
	require.NoError(t, art.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	files := readArchive(t, data)
	assert.True(t, strings.Contains(files["mission"], `"ACCEL_SL"`))
}

func TestQuoteLua(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	for _, s := range []string{"plain", "quote \" and \\ slash", "line\nbreak\ttab", "bell\a", "[VWV] MiG-17"} {
		assert.Equal(t, s, luaString(t, L, "return "+quoteLua(s)))
	}
}

func TestOptionsFromSettings(t *testing.T) {
	s := config.DefaultSettings()
	s.Mission.LaneSpacingM = 100000
	s.Log.Sentinel = "[FM]"

	opts, err := OptionsFromSettings(s)
	require.NoError(t, err)
	assert.Equal(t, 100000.0, opts.LaneSpacingM)
	assert.Equal(t, "[FM]", opts.Script.Sentinel)
	assert.Equal(t, 12, opts.StartTime.Hour())

	s.Mission.StartTime = "noon"
	_, err = OptionsFromSettings(s)
	assert.Error(t, err)
}
