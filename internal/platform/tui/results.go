// Package tui contains the interactive results browser.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/fmlab/internal/core"
	"github.com/vovakirdan/fmlab/internal/fmlog"
)

// Layout constants
const (
	minWidthForSidebar = 80
	sidebarWidth       = 20
	checksHeight       = 7 // title + four checks + result + border
)

var (
	borderColor = lipgloss.Color("240")
	accentColor = lipgloss.Color("229")
	dimColor    = lipgloss.Color("241")

	statusStyles = map[core.Status]lipgloss.Style{
		core.StatusPass:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		core.StatusFail:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		core.StatusNoData: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
)

// ResultsModel is the Bubble Tea model for browsing one run's results.
type ResultsModel struct {
	title       string
	results     *fmlog.ResultTable
	verdict     fmlog.Verdict
	variants    []string
	cursor      int // selected variant
	table       table.Model
	help        help.Model
	keys        ResultsKeyMap
	width       int
	height      int
	quitting    bool
	showSidebar bool
}

// NewResultsModel creates a browser over results judged against targets.
func NewResultsModel(title string, results *fmlog.ResultTable, targets fmlog.Targets, width, height int) ResultsModel {
	if results == nil {
		results = fmlog.NewResultTable()
	}
	h := help.New()
	h.ShowAll = false

	m := ResultsModel{
		title:       title,
		results:     results,
		verdict:     fmlog.Evaluate(results, targets),
		variants:    results.Variants(),
		keys:        DefaultResultsKeyMap(),
		help:        h,
		width:       width,
		height:      height,
		showSidebar: width >= minWidthForSidebar,
	}
	m.table = m.createTable()
	m.updateTableRows()
	return m
}

// createTable creates a new table sized to the window.
func (m *ResultsModel) createTable() table.Model {
	columns := []table.Column{
		{Title: "Test", Width: 14},
		{Title: "Max kt", Width: 8},
		{Title: "Max ft", Width: 8},
		{Title: "Climb fpm", Width: 10},
		{Title: "Vmax kt", Width: 8},
		{Title: "Fuel kg", Width: 8},
		{Title: "Gates", Width: 6},
	}

	tableWidth := m.width - 4
	if m.showSidebar {
		tableWidth -= sidebarWidth + 3
	}
	used := 0
	for _, c := range columns {
		used += c.Width + 2
	}
	if extra := tableWidth - used; extra > 0 {
		columns[0].Width += min(extra, 10)
	}

	height := m.height - 10 - checksHeight
	if height < 3 {
		height = 3
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(borderColor).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(accentColor).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

func cell(v float64, ok bool, prec int) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, v)
}

func cellPtr(p *float64, prec int) string {
	if p == nil {
		return "-"
	}
	return cell(*p, true, prec)
}

// updateTableRows fills the table with the selected variant's tests.
func (m *ResultsModel) updateTableRows() {
	var rows []table.Row
	if v, ok := m.selected(); ok {
		for _, g := range m.results.Tests(v) {
			rows = append(rows, table.Row{
				g.Test,
				cell(g.MaxSpdKt, g.HasMaxima, 1),
				cell(g.MaxAltFt, g.HasMaxima, 0),
				cell(g.MaxVspdFpm, g.HasMaxima, 0),
				cellPtr(g.VmaxKt, 1),
				cellPtr(g.FuelUsedKg, 0),
				fmt.Sprintf("%d", len(g.SpeedGates)+len(g.AltGates)),
			})
		}
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

func (m ResultsModel) selected() (string, bool) {
	if len(m.variants) == 0 {
		return "", false
	}
	return m.variants[m.cursor], true
}

// Selected returns the variant currently shown.
func (m ResultsModel) Selected() string {
	v, _ := m.selected()
	return v
}

// Init initializes the results model.
func (m ResultsModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the results browser.
func (m ResultsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil

		case key.Matches(msg, m.keys.NextVariant):
			if len(m.variants) > 0 {
				m.cursor = (m.cursor + 1) % len(m.variants)
				m.updateTableRows()
			}
			return m, nil

		case key.Matches(msg, m.keys.PrevVariant):
			if len(m.variants) > 0 {
				m.cursor--
				if m.cursor < 0 {
					m.cursor = len(m.variants) - 1
				}
				m.updateTableRows()
			}
			return m, nil

		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.showSidebar = m.width >= minWidthForSidebar
		m.table = m.createTable()
		m.updateTableRows()
		m.help.Width = msg.Width
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the browser.
func (m ResultsModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColor)
	title := m.title
	if v, ok := m.selected(); ok {
		title = fmt.Sprintf("%s - %s", m.title, v)
	}
	b.WriteString(titleStyle.Render(centerText(title, m.width)))
	b.WriteString("\n\n")

	if m.showSidebar {
		b.WriteString(m.renderWideLayout())
	} else {
		b.WriteString(m.renderNarrowLayout())
	}

	b.WriteString("\n")
	overall := fmt.Sprintf("OVERALL RESULT: %s", statusStyles[m.verdict.Overall].Render(m.verdict.Overall.String()))
	b.WriteString(overall)
	b.WriteString("\n")

	helpStyle := lipgloss.NewStyle().Foreground(dimColor)
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func boxStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1)
}

// renderWideLayout renders the variant sidebar beside the table.
func (m ResultsModel) renderWideLayout() string {
	var sidebar strings.Builder
	sidebar.WriteString("Variants\n")
	sidebar.WriteString(strings.Repeat("-", sidebarWidth-4))
	sidebar.WriteString("\n")

	for i, v := range m.variants {
		cursor := "  "
		style := lipgloss.NewStyle()
		if i == m.cursor {
			cursor = "> "
			style = style.Bold(true).Foreground(accentColor)
		}
		status := core.StatusNoData
		if ev, ok := m.verdict.Variant(v); ok {
			status = ev.Status
		}

		name := v
		maxLen := sidebarWidth - 10
		if len(name) > maxLen {
			name = name[:maxLen-1] + "."
		}
		sidebar.WriteString(style.Render(cursor+name) + " " + statusStyles[status].Render(status.String()))
		sidebar.WriteString("\n")
	}

	sidebarRendered := boxStyle().Width(sidebarWidth).Render(sidebar.String())
	right := lipgloss.JoinVertical(lipgloss.Left,
		boxStyle().Render(m.renderTableContent()),
		boxStyle().Render(m.renderChecks()),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebarRendered, "  ", right)
}

// renderNarrowLayout renders variant tabs above the table.
func (m ResultsModel) renderNarrowLayout() string {
	var b strings.Builder

	tabStyle := lipgloss.NewStyle().Foreground(dimColor)
	activeTabStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColor).
		Background(lipgloss.Color("57")).
		Padding(0, 1)

	tabs := make([]string, len(m.variants))
	for i, v := range m.variants {
		if i == m.cursor {
			tabs[i] = activeTabStyle.Render(v)
		} else {
			tabs[i] = tabStyle.Render(" " + v + " ")
		}
	}
	tabLine := strings.Join(tabs, " ")
	if lipgloss.Width(tabLine) > m.width-4 && len(m.variants) > 0 {
		tabLine = fmt.Sprintf("< %s >", m.variants[m.cursor])
	}
	b.WriteString(centerText(tabLine, m.width))
	b.WriteString("\n\n")

	b.WriteString(boxStyle().Render(m.renderTableContent()))
	b.WriteString("\n")
	b.WriteString(boxStyle().Render(m.renderChecks()))
	return b.String()
}

// renderTableContent renders the table or empty message.
func (m ResultsModel) renderTableContent() string {
	if len(m.variants) == 0 {
		emptyStyle := lipgloss.NewStyle().
			Foreground(dimColor).
			Italic(true).
			Padding(2, 4)
		return emptyStyle.Render("No results in this run.\nFly the test mission and parse its log first.")
	}
	return m.table.View()
}

// renderChecks lists the selected variant's target checks.
func (m ResultsModel) renderChecks() string {
	v, ok := m.selected()
	if !ok {
		return "Checks: no data"
	}
	ev, _ := m.verdict.Variant(v)

	var b strings.Builder
	b.WriteString("Checks\n")
	for _, c := range ev.Checks {
		measured := "-"
		if c.HasData {
			measured = fmt.Sprintf("%.1f (%+.1f%%)", c.Measured, c.DeltaPct())
		}
		fmt.Fprintf(&b, "%-28s %-18s / %.0f %-4s %s\n",
			c.Name, measured, c.Target, c.Unit, statusStyles[c.Status].Render(c.Status.String()))
	}
	fmt.Fprintf(&b, "Variant result: %s", statusStyles[ev.Status].Render(ev.Status.String()))
	return b.String()
}

// IsQuitting returns true if the user asked to leave.
func (m ResultsModel) IsQuitting() bool {
	return m.quitting
}

func centerText(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return strings.Repeat(" ", (width-w)/2) + s
}

// RunResults runs the results browser until the user quits.
func RunResults(title string, results *fmlog.ResultTable, targets fmlog.Targets, width, height int) error {
	model := NewResultsModel(title, results, targets, width, height)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
