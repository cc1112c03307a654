package builder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/fmlab/internal/config"
	"github.com/vovakirdan/fmlab/internal/sfm"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "sfm", "testdata", name))
	require.NoError(t, err)
	return data
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// makeBaseMod lays out a minimal baseline mod under dir.
func makeBaseMod(t *testing.T, dir string) string {
	t.Helper()
	root := filepath.Join(dir, "[VWV] MiG-17")
	writeFile(t, filepath.Join(root, "Database", "mig17f.lua"), readFixture(t, "mig17f.lua"))
	writeFile(t, filepath.Join(root, "Database", "weapons.lua"), []byte("-- pylons\nlocal pylons = {}\n"))
	writeFile(t, filepath.Join(root, "entry.lua"), readFixture(t, "entry.lua"))
	writeFile(t, filepath.Join(root, "Shapes", "mig17f.edm"), []byte("binary-shape"))
	return root
}

func variant(short string, scales config.ScaleFactors) config.VariantSpec {
	lower := strings.ToLower(short)
	return config.VariantSpec{
		VariantID:     short + "_TEST",
		ShortName:     short,
		ModDirName:    "[VWV] MiG-17 " + short,
		TypeName:      "vwv_mig17f_" + lower,
		ShapeUsername: "MiG-17F-" + short,
		DisplayName:   "MiG-17F " + short,
		Scales:        scales,
	}
}

func testConfig(variants ...config.VariantSpec) *config.VariantConfig {
	return &config.VariantConfig{
		Version: 1,
		Aircraft: config.AircraftIdentity{
			BaseTypeID:      "vwv_mig17f",
			BaseModDir:      "[VWV] MiG-17",
			BaseDisplayName: "MiG-17F",
		},
		Variants: variants,
	}
}

func TestFindDataFile(t *testing.T) {
	root := makeBaseMod(t, t.TempDir())

	rel, err := FindDataFile(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("Database", "mig17f.lua"), rel)
}

func TestFindDataFileMissingAndAmbiguous(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.MkdirAll(filepath.Join(empty, "Database"), 0o755))

	_, err := FindDataFile(empty)
	assert.True(t, IsKind(err, KindDataFileNotFound), "got %v", err)

	root := makeBaseMod(t, dir)
	writeFile(t, filepath.Join(root, "Database", "copy.lua"), readFixture(t, "mig17f.lua"))
	_, err = FindDataFile(root)
	assert.True(t, IsKind(err, KindDataFileAmbiguous), "got %v", err)
}

func TestBuildTwoVariants(t *testing.T) {
	dir := t.TempDir()
	base := makeBaseMod(t, dir)
	out := filepath.Join(dir, "variants")

	cfg := testConfig(
		variant("FM1", config.ScaleFactors{Cx0: 0.8, Polar: 1, EngineDrag: 1, Pfor: 1}),
		variant("FM2", config.ScaleFactors{Cx0: 1, Polar: 0.9, EngineDrag: 1.2, Pfor: 1.05}),
	)

	results, err := Build(cfg, base, out, Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	for i, res := range results {
		v := cfg.Variants[i]
		assert.Equal(t, v.VariantID, res.VariantID)
		assert.Equal(t, filepath.Join(out, v.ModDirName), res.OutputDir)
		assert.Len(t, res.Digest, 64)
		assert.Equal(t, 5, res.EntryPatched)

		data, err := os.ReadFile(filepath.Join(res.OutputDir, res.DataFile))
		require.NoError(t, err)
		id, err := sfm.ReadIdentity(string(data))
		require.NoError(t, err)
		assert.Equal(t, v.TypeName, id.TypeName)
		assert.Equal(t, v.DisplayName, id.DisplayName)
		assert.Equal(t, v.ShapeUsername, id.ShapeUsername)
		assert.Equal(t, Digest(data), res.Digest)

		// Non-definition files are copied byte for byte.
		shape, err := os.ReadFile(filepath.Join(res.OutputDir, "Shapes", "mig17f.edm"))
		require.NoError(t, err)
		assert.Equal(t, "binary-shape", string(shape))
	}
	assert.NotEqual(t, results[0].Digest, results[1].Digest)
	assert.False(t, results[0].Control)

	// Only Cx0 columns change for FM1: 7 rows plus three identity fields.
	assert.Equal(t, 10, results[0].FieldsChanged)

	// The baseline is never modified.
	orig, err := os.ReadFile(filepath.Join(base, "Database", "mig17f.lua"))
	require.NoError(t, err)
	assert.Equal(t, readFixture(t, "mig17f.lua"), orig)
}

func TestBuildControlVariant(t *testing.T) {
	dir := t.TempDir()
	base := makeBaseMod(t, dir)

	results, err := Build(testConfig(variant("FM0C", config.IdentityScales())), base, filepath.Join(dir, "variants"), Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Control)
	// Only the three identity fields differ from the baseline.
	assert.Equal(t, 3, results[0].FieldsChanged)
}

func TestBuildDestinationExists(t *testing.T) {
	dir := t.TempDir()
	base := makeBaseMod(t, dir)
	out := filepath.Join(dir, "variants")
	cfg := testConfig(variant("FM1", config.IdentityScales()))

	_, err := Build(cfg, base, out, Options{})
	require.NoError(t, err)

	stale := filepath.Join(out, cfg.Variants[0].ModDirName, "stale.txt")
	writeFile(t, stale, []byte("old"))

	_, err = Build(cfg, base, out, Options{})
	assert.True(t, IsKind(err, KindDestinationExists), "got %v", err)
	assert.FileExists(t, stale)

	_, err = Build(cfg, base, out, Options{Overwrite: true})
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
}

func TestBuildInvalidConfigTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	base := makeBaseMod(t, dir)
	out := filepath.Join(dir, "variants")

	bad := variant("FM1", config.IdentityScales())
	bad.ShortName = "FM-1"
	_, err := Build(testConfig(bad), base, out, Options{})
	assert.True(t, IsKind(err, KindConfig), "got %v", err)
	assert.NoDirExists(t, out)
}

func TestBuildContentErrorTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	base := makeBaseMod(t, dir)
	out := filepath.Join(dir, "variants")

	data := strings.Replace(string(readFixture(t, "mig17f.lua")), "dcx_eng  = 0.0085,", "", 1)
	writeFile(t, filepath.Join(base, "Database", "mig17f.lua"), []byte(data))

	_, err := Build(testConfig(variant("FM1", config.IdentityScales())), base, out, Options{})
	assert.True(t, IsKind(err, KindFieldNotFound), "got %v", err)
	assert.NoDirExists(t, out)
}

func TestBuildBaselineCollision(t *testing.T) {
	dir := t.TempDir()
	base := makeBaseMod(t, dir)

	v := variant("FM1", config.IdentityScales())
	v.ShapeUsername = "MiG-17F"
	_, err := Build(testConfig(v), base, filepath.Join(dir, "variants"), Options{})
	assert.True(t, IsKind(err, KindIdentityCollision), "got %v", err)
}

func TestBuildMissingBase(t *testing.T) {
	dir := t.TempDir()
	_, err := Build(testConfig(variant("FM1", config.IdentityScales())), filepath.Join(dir, "nope"), dir, Options{})
	assert.True(t, IsKind(err, KindBaseModMissing), "got %v", err)
}

func TestPatchEntry(t *testing.T) {
	v := variant("FM1", config.IdentityScales())
	out, n := PatchEntry(string(readFixture(t, "entry.lua")), v, "MiG-17F")

	assert.Equal(t, 5, n)
	assert.Contains(t, out, `self_ID       = "VWV MiG-17F_fm1"`)
	assert.Contains(t, out, `update_id     = "vwv_mig17f_fm1"`)
	assert.Contains(t, out, `displayName   = _("MiG-17F FM1")`)
	assert.Contains(t, out, `fileMenuName  = _("FM1 MiG-17F")`)
	assert.Contains(t, out, `type = "vwv_mig17f_fm1"`)
	// Logbook display name is left alone.
	assert.Contains(t, out, `name = _("MiG-17F")`)
}

func TestPatchEntryDisplayKeepsIds(t *testing.T) {
	src := string(readFixture(t, "entry.lua"))
	out, n := PatchEntryDisplay(src, "MiG-17F (RC2)", "RC2 MiG-17F")

	assert.Equal(t, 2, n)
	assert.Contains(t, out, `displayName   = _("MiG-17F (RC2)")`)
	assert.Contains(t, out, `fileMenuName  = _("RC2 MiG-17F")`)
	assert.Contains(t, out, `self_ID       = "VWV MiG-17F"`)
	assert.Contains(t, out, `update_id     = "vwv_mig17f"`)
}

func TestInstallPartialFailure(t *testing.T) {
	dir := t.TempDir()
	base := makeBaseMod(t, dir)
	cfg := testConfig(
		variant("FM1", config.IdentityScales()),
		variant("FM2", config.IdentityScales()),
	)
	results, err := Build(cfg, base, filepath.Join(dir, "variants"), Options{})
	require.NoError(t, err)

	saved := filepath.Join(dir, "saved")
	// FM1's build output vanished before install.
	blocked := append([]BuildResult(nil), results...)
	blocked[0].OutputDir = filepath.Join(dir, "does-not-exist")

	installs := Install(blocked, saved, nil)
	require.Len(t, installs, 2)
	assert.False(t, installs[0].OK())
	assert.True(t, IsKind(installs[0].Err, KindPathUnwritable))
	assert.True(t, installs[1].OK())
	assert.Equal(t, 1, Failed(installs))
	assert.FileExists(t, filepath.Join(InstallDir(saved), "[VWV] MiG-17 FM2", "entry.lua"))
}

func TestInstallReplacesPrevious(t *testing.T) {
	dir := t.TempDir()
	base := makeBaseMod(t, dir)
	results, err := Build(testConfig(variant("FM1", config.IdentityScales())), base, filepath.Join(dir, "variants"), Options{})
	require.NoError(t, err)

	saved := filepath.Join(dir, "saved")
	stale := filepath.Join(InstallDir(saved), "[VWV] MiG-17 FM1", "stale.lua")
	writeFile(t, stale, []byte("--"))

	installs := Install(results, saved, nil)
	require.Equal(t, 0, Failed(installs))
	assert.NoFileExists(t, stale)
}

func TestPromoteKeepsIdentity(t *testing.T) {
	dir := t.TempDir()
	clean := makeBaseMod(t, filepath.Join(dir, "clean"))
	target := filepath.Join(dir, "mods", "[VWV] MiG-17")
	writeFile(t, filepath.Join(target, "old.txt"), []byte("previous baseline"))

	cfg := testConfig(variant("FM1", config.ScaleFactors{Cx0: 0.9, Polar: 1, EngineDrag: 1, Pfor: 1}))
	res, err := Promote(cfg, PromoteOptions{
		VariantID:     "FM1",
		Version:       "RC2",
		CleanRoot:     clean,
		TargetRoot:    target,
		DisplaySuffix: "Fresco C",
	})
	require.NoError(t, err)
	assert.Equal(t, "MiG-17F (RC2)", res.DisplayName)
	assert.NoFileExists(t, filepath.Join(target, "old.txt"))
	assert.NoDirExists(t, filepath.Join(dir, "mods", ".fmlab-promote"))

	data, err := os.ReadFile(filepath.Join(target, res.DataFile))
	require.NoError(t, err)
	id, err := sfm.ReadIdentity(string(data))
	require.NoError(t, err)
	assert.Equal(t, "vwv_mig17f", id.TypeName)
	assert.Equal(t, "MiG-17F", id.ShapeUsername)
	assert.Equal(t, "MiG-17F (RC2) Fresco C", id.DisplayName)
	assert.Contains(t, string(data), "0.0126")

	entry, err := os.ReadFile(filepath.Join(target, "entry.lua"))
	require.NoError(t, err)
	assert.Contains(t, string(entry), `self_ID       = "VWV MiG-17F"`)
	assert.Contains(t, string(entry), `fileMenuName  = _("RC2 MiG-17F")`)
}

func TestPromoteUnknownVariant(t *testing.T) {
	dir := t.TempDir()
	clean := makeBaseMod(t, dir)
	_, err := Promote(testConfig(variant("FM1", config.IdentityScales())), PromoteOptions{
		VariantID:  "FM9",
		Version:    "RC2",
		CleanRoot:  clean,
		TargetRoot: filepath.Join(dir, "target"),
	})
	assert.True(t, IsKind(err, KindUnknownVariant), "got %v", err)
}

func TestPromoteRejectsQuotedLabels(t *testing.T) {
	dir := t.TempDir()
	clean := makeBaseMod(t, filepath.Join(dir, "clean"))
	target := filepath.Join(dir, "mods", "[VWV] MiG-17")
	cfg := testConfig(variant("FM1", config.IdentityScales()))

	for _, opts := range []PromoteOptions{
		{Version: "RC'2"},
		{Version: "RC2", DisplaySuffix: `"Fresco C"`},
		{Version: `RC2\`},
	} {
		opts.VariantID, opts.CleanRoot, opts.TargetRoot = "FM1", clean, target
		_, err := Promote(cfg, opts)
		assert.True(t, IsKind(err, KindConfig), "got %v", err)
		assert.NoDirExists(t, target)
	}
}

func TestBuildRejectsQuotedIdentity(t *testing.T) {
	dir := t.TempDir()
	base := makeBaseMod(t, dir)
	out := filepath.Join(dir, "variants")

	v := variant("FM1", config.IdentityScales())
	v.DisplayName = "MiG-17F 'Fresco'"
	_, err := Build(testConfig(v), base, out, Options{})
	assert.True(t, IsKind(err, KindConfig), "got %v", err)
	assert.NoDirExists(t, out)
}

func TestDetectTypeName(t *testing.T) {
	root := makeBaseMod(t, t.TempDir())
	name, err := DetectTypeName(root)
	require.NoError(t, err)
	assert.Equal(t, "vwv_mig17f", name)
}
