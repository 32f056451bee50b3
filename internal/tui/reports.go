package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/taskboard/internal/stats"
	"github.com/sadopc/taskboard/internal/task"
)

type reportMode int

const (
	reportStatus reportMode = iota
	reportProductivity
	reportMonthly
)

var reportModeNames = []string{"Status", "Productivity", "Monthly"}

// reportsModel is the statistics screen. It always summarizes the full
// collection, independent of the task table's view state.
type reportsModel struct {
	width  int
	height int

	mode    reportMode
	summary stats.Summary
	points  bool // productivity chart shows story points instead of task counts

	chart barchart.Model
}

func newReportsModel() reportsModel {
	return reportsModel{chart: barchart.New(60, 12)}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
	r.buildChart()
}

func (r *reportsModel) setTasks(tasks []task.Task) {
	r.summary = stats.Summarize(tasks)
	r.buildChart()
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return r, nil
	}
	switch {
	case key.Matches(km, keys.NextColumn):
		r.mode = (r.mode + 1) % reportMode(len(reportModeNames))
		r.buildChart()
	case key.Matches(km, keys.PrevColumn):
		r.mode = (r.mode + reportMode(len(reportModeNames)) - 1) % reportMode(len(reportModeNames))
		r.buildChart()
	case key.Matches(km, keys.Toggle):
		if r.mode == reportProductivity {
			r.points = !r.points
			r.buildChart()
		}
	}
	return r, nil
}

func (r *reportsModel) buildChart() {
	chartWidth := max(20, r.width-8)
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}
	r.chart = barchart.New(chartWidth, chartHeight)

	var bars []barchart.BarData
	switch r.mode {
	case reportStatus:
		for _, c := range r.summary.Distribution {
			bars = append(bars, barchart.BarData{
				Label: string(c.Status),
				Values: []barchart.BarValue{{
					Name:  string(c.Status),
					Value: float64(c.Count),
					Style: statusStyle(c.Status),
				}},
			})
		}
	case reportProductivity:
		style := lipgloss.NewStyle().Foreground(colorPrimary)
		for _, p := range r.summary.Productivity {
			v := float64(p.CompletedTasks)
			if r.points {
				v = float64(p.CompletedStoryPoints)
			}
			bars = append(bars, barchart.BarData{
				Label:  firstName(p.Assignee),
				Values: []barchart.BarValue{{Name: p.Assignee, Value: v, Style: style}},
			})
		}
	case reportMonthly:
		done := lipgloss.NewStyle().Foreground(colorSuccess)
		open := lipgloss.NewStyle().Foreground(colorSubtle)
		for _, m := range r.summary.Monthly {
			bars = append(bars, barchart.BarData{
				Label: shortMonth(m.Month),
				Values: []barchart.BarValue{
					{Name: "Done", Value: float64(m.CompletedTasks), Style: done},
					{Name: "Open", Value: float64(m.TotalTasks - m.CompletedTasks), Style: open},
				},
			})
		}
	}
	if len(bars) == 0 {
		return
	}
	r.chart.PushAll(bars)
	r.chart.Draw()
}

func firstName(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return "(none)"
}

// shortMonth turns "March 2024" into "Mar".
func shortMonth(label string) string {
	if len(label) >= 3 {
		return label[:3]
	}
	return label
}

func (r reportsModel) view() string {
	w := r.width - 4

	var tabs []string
	for i, name := range reportModeNames {
		if reportMode(i) == r.mode {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Statistics"), "  ", lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...),
		"  ", mutedStyle.Render(fmt.Sprintf("%d tasks", r.summary.Total)),
	)

	if r.summary.Total == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			header, "", mutedStyle.Render("  No tasks to summarize."),
		))
	}

	var table string
	nav := "  ←/→: switch chart"
	switch r.mode {
	case reportStatus:
		table = r.renderDistribution()
	case reportProductivity:
		table = r.renderProductivity(w)
		nav += "  space: tasks/points"
	case reportMonthly:
		table = r.renderMonthly(w)
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", table, "", mutedStyle.Render(nav),
		),
	)
}

func (r reportsModel) renderDistribution() string {
	total := max(1, r.summary.Distribution.Total())
	var items []string
	for _, c := range r.summary.Distribution {
		dot := statusStyle(c.Status).Render("●")
		pct := float64(c.Count) / float64(total) * 100
		items = append(items, fmt.Sprintf("%s %s %d (%.0f%%)", dot, c.Status, c.Count, pct))
	}
	return "  " + strings.Join(items, "  ")
}

func (r reportsModel) renderProductivity(w int) string {
	rows := []string{
		mutedStyle.Render(fmt.Sprintf("  %-22s %8s %8s %8s", "Assignee", "Done", "Points", "Share")),
		mutedStyle.Render("  " + strings.Repeat("─", min(w-6, 50))),
	}
	for _, p := range r.summary.Productivity {
		share := p.TasksPercent
		if r.points {
			share = p.PointsPercent
		}
		rows = append(rows, fmt.Sprintf("  %-22s %8d %8d %8s",
			truncate(p.Assignee, 22), p.CompletedTasks, p.CompletedStoryPoints, formatPercent(share)))
	}
	return strings.Join(rows, "\n")
}

func (r reportsModel) renderMonthly(w int) string {
	rows := []string{
		mutedStyle.Render(fmt.Sprintf("  %-15s %6s %6s %6s %7s %9s %9s",
			"Month", "Tasks", "Done", "Block", "Points", "Hours", "Avg days")),
		mutedStyle.Render("  " + strings.Repeat("─", min(w-6, 66))),
	}
	for _, m := range r.summary.Monthly {
		rows = append(rows, fmt.Sprintf("  %-15s %6d %6d %6d %3d/%-3d %9.1f %9.1f",
			m.Month, m.TotalTasks, m.CompletedTasks, m.BlockedTasks,
			m.CompletedStoryPoints, m.TotalStoryPoints, m.TotalTimeSpent, m.AverageResolutionDays))
	}
	return strings.Join(rows, "\n")
}
