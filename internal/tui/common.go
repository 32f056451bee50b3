package tui

import (
	"fmt"
	"strconv"

	"github.com/sadopc/taskboard/internal/source"
	"github.com/sadopc/taskboard/internal/task"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTasks viewState = iota
	viewStatistics
	viewSettings
)

var viewNames = []string{"Tasks", "Statistics", "Settings"}

// --- Messages ---

type datasetMsg struct {
	ds  source.Dataset
	err error
}

type statusMsg struct {
	text    string
	isError bool
}

type exportDoneMsg struct {
	path string
}

type taskSavedMsg struct {
	task *task.Task
}

type taskDeletedMsg struct {
	key string
}

// --- Helpers ---

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', 1, 64) + "h"
}

func formatPoints(p *int) string {
	if p == nil {
		return "—"
	}
	return strconv.Itoa(*p)
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.0f%%", p)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
