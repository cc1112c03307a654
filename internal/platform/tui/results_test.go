package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/fmlab/internal/fmlog"
)

func f(v float64) *float64 { return &v }

func sampleResults() *fmlog.ResultTable {
	t := fmlog.NewResultTable()
	t.Put(&fmlog.GroupResult{Name: "FM1_VMAX_SL", Variant: "FM1", Test: "VMAX_SL", VmaxKt: f(590)})
	t.Put(&fmlog.GroupResult{Name: "FM1_ACCEL_SL", Variant: "FM1", Test: "ACCEL_SL", HasMaxima: true, MaxSpdKt: 480})
	t.Put(&fmlog.GroupResult{Name: "FM2_VMAX_SL", Variant: "FM2", Test: "VMAX_SL", VmaxKt: f(530)})
	return t
}

func press(t *testing.T, m ResultsModel, msg tea.KeyMsg) ResultsModel {
	t.Helper()
	next, _ := m.Update(msg)
	rm, ok := next.(ResultsModel)
	require.True(t, ok)
	return rm
}

func TestResultsVariantCycling(t *testing.T) {
	m := NewResultsModel("Run 0123456789ab", sampleResults(), fmlog.DefaultTargets(), 100, 40)
	assert.Equal(t, "FM1", m.Selected())
	assert.Len(t, m.table.Rows(), 2)
	assert.Equal(t, "ACCEL_SL", m.table.Rows()[0][0])

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "FM2", m.Selected())
	assert.Len(t, m.table.Rows(), 1)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "FM1", m.Selected())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, "FM2", m.Selected())
}

func TestResultsView(t *testing.T) {
	m := NewResultsModel("Run 0123456789ab", sampleResults(), fmlog.DefaultTargets(), 100, 40)
	view := m.View()
	assert.Contains(t, view, "Run 0123456789ab - FM1")
	assert.Contains(t, view, "Variants")
	assert.Contains(t, view, "Vmax at sea level")
	assert.Contains(t, view, "OVERALL RESULT")

	narrow := NewResultsModel("Run", sampleResults(), fmlog.DefaultTargets(), 60, 30)
	assert.False(t, strings.Contains(narrow.View(), "Variants\n"))
}

func TestResultsEmpty(t *testing.T) {
	m := NewResultsModel("Run", nil, fmlog.DefaultTargets(), 100, 40)
	assert.Equal(t, "", m.Selected())
	assert.Contains(t, m.View(), "No results in this run.")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "", m.Selected())
}

func TestResultsQuit(t *testing.T) {
	m := NewResultsModel("Run", sampleResults(), fmlog.DefaultTargets(), 100, 40)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, next.(ResultsModel).IsQuitting())
	assert.Equal(t, "", next.(ResultsModel).View())
}

func TestResultsResize(t *testing.T) {
	m := NewResultsModel("Run", sampleResults(), fmlog.DefaultTargets(), 60, 30)
	assert.False(t, m.showSidebar)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 50})
	rm := next.(ResultsModel)
	assert.True(t, rm.showSidebar)
	assert.Len(t, rm.table.Rows(), 2)
}
