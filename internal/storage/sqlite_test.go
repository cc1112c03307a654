package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vovakirdan/fmlab/internal/fmlog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "runs.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func f(v float64) *float64 { return &v }

func sampleTable() *fmlog.ResultTable {
	table := fmlog.NewResultTable()
	table.Put(&fmlog.GroupResult{
		Name: "FM1_VMAX_SL", Variant: "FM1", Test: "VMAX_SL",
		HasMaxima: true, MaxSpdKt: 590, MaxAltFt: 1100, MaxVspdFpm: 300,
		VmaxKt: f(590), FuelUsedKg: f(150), Samples: 40,
	})
	table.Put(&fmlog.GroupResult{
		Name: "FM1_ACCEL_SL", Variant: "FM1", Test: "ACCEL_SL",
	})
	table.Put(&fmlog.GroupResult{
		Name: "FM2_VMAX_SL", Variant: "FM2", Test: "VMAX_SL", VmaxKt: f(560),
	})
	return table
}

func TestStoreOpenClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestSaveRunUpsert(t *testing.T) {
	store := openTestStore(t)

	err := store.SaveRun(Run{
		RunID:       "0123456789ab",
		Mode:        "multi",
		MissionPath: "/tmp/FM_Test.miz",
		GroupCount:  22,
		Variants:    []string{"FM1", "FM2"},
	})
	if err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}

	// parse-log later fills in the log side only
	if err := store.SaveRun(Run{RunID: "0123456789ab", LogPath: "dcs.log", Records: 300, Complete: true}); err != nil {
		t.Fatalf("SaveRun() update failed: %v", err)
	}

	run, err := store.Run("0123456789ab")
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if run == nil {
		t.Fatal("Run() returned nil for a saved run")
	}
	if run.Mode != "multi" || run.GroupCount != 22 || run.MissionPath != "/tmp/FM_Test.miz" {
		t.Errorf("mission fields were overwritten: %+v", run)
	}
	if run.LogPath != "dcs.log" || run.Records != 300 || !run.Complete {
		t.Errorf("log fields not updated: %+v", run)
	}
	if len(run.Variants) != 2 || run.Variants[1] != "FM2" {
		t.Errorf("Variants = %v, want [FM1 FM2]", run.Variants)
	}
	if run.CreatedAt.IsZero() {
		t.Error("CreatedAt was not parsed")
	}

	if err := store.SaveRun(Run{}); err == nil {
		t.Error("SaveRun() without id should fail")
	}
}

func TestRunMissing(t *testing.T) {
	store := openTestStore(t)

	run, err := store.Run("missing")
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if run != nil {
		t.Errorf("expected nil run, got %+v", run)
	}
}

func TestRunsNewestFirst(t *testing.T) {
	store := openTestStore(t)

	for _, id := range []string{"aaa", "bbb", "ccc"} {
		if err := store.SaveRun(Run{RunID: id}); err != nil {
			t.Fatalf("SaveRun(%s) failed: %v", id, err)
		}
	}

	runs, err := store.Runs(2)
	if err != nil {
		t.Fatalf("Runs() failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "ccc" || runs[1].RunID != "bbb" {
		t.Errorf("unexpected order: %s, %s", runs[0].RunID, runs[1].RunID)
	}
}

func TestSaveResultsRoundTrip(t *testing.T) {
	store := openTestStore(t)

	n, err := store.SaveResults("run1", sampleTable())
	if err != nil {
		t.Fatalf("SaveResults() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("SaveResults() wrote %d rows, want 3", n)
	}

	results, err := store.Results("run1")
	if err != nil {
		t.Fatalf("Results() failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// saved in report order
	if results[0].Test != "ACCEL_SL" || results[1].Test != "VMAX_SL" || results[2].Variant != "FM2" {
		t.Errorf("unexpected order: %+v", results)
	}
	if results[0].MaxSpdKt != nil || results[0].VmaxKt != nil {
		t.Error("missing metrics should stay NULL")
	}
	if results[1].VmaxKt == nil || *results[1].VmaxKt != 590 {
		t.Errorf("VmaxKt = %v, want 590", results[1].VmaxKt)
	}
	if results[1].Samples != 40 {
		t.Errorf("Samples = %d, want 40", results[1].Samples)
	}

	table := Table(results)
	if table.Len() != 3 {
		t.Errorf("Table() has %d rows, want 3", table.Len())
	}
	g, ok := table.Get("FM1", "VMAX_SL")
	if !ok || !g.HasMaxima || g.MaxAltFt != 1100 {
		t.Errorf("rebuilt group lost maxima: %+v", g)
	}
	verdict := fmlog.Evaluate(table, fmlog.DefaultTargets())
	if verdict.Overall.String() != "FAIL" {
		t.Errorf("Overall = %s, want FAIL", verdict.Overall)
	}
}

func TestSaveResultsReplaces(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.SaveResults("run1", sampleTable()); err != nil {
		t.Fatalf("SaveResults() failed: %v", err)
	}
	small := fmlog.NewResultTable()
	small.Put(&fmlog.GroupResult{Name: "FM1_VMAX_SL", Variant: "FM1", Test: "VMAX_SL", VmaxKt: f(600)})
	if _, err := store.SaveResults("run1", small); err != nil {
		t.Fatalf("SaveResults() failed: %v", err)
	}

	results, err := store.Results("run1")
	if err != nil {
		t.Fatalf("Results() failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected results to be replaced, got %d rows", len(results))
	}
}

func TestTestHistory(t *testing.T) {
	store := openTestStore(t)

	for _, run := range []string{"run1", "run2"} {
		if _, err := store.SaveResults(run, sampleTable()); err != nil {
			t.Fatalf("SaveResults(%s) failed: %v", run, err)
		}
	}

	history, err := store.TestHistory("FM1", "VMAX_SL")
	if err != nil {
		t.Fatalf("TestHistory() failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].RunID != "run2" {
		t.Errorf("expected newest first, got %s", history[0].RunID)
	}

	none, err := store.TestHistory("FM9", "VMAX_SL")
	if err != nil {
		t.Fatalf("TestHistory() failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no history, got %d", len(none))
	}
}

func TestDeleteRun(t *testing.T) {
	store := openTestStore(t)

	if err := store.SaveRun(Run{RunID: "run1"}); err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}
	if _, err := store.SaveResults("run1", sampleTable()); err != nil {
		t.Fatalf("SaveResults() failed: %v", err)
	}

	if err := store.DeleteRun("run1"); err != nil {
		t.Fatalf("DeleteRun() failed: %v", err)
	}
	if run, _ := store.Run("run1"); run != nil {
		t.Error("run still present after delete")
	}
	if results, _ := store.Results("run1"); len(results) != 0 {
		t.Errorf("results still present after delete: %d", len(results))
	}

	if err := store.DeleteRun("run1"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("second DeleteRun() = %v, want ErrRunNotFound", err)
	}
}
