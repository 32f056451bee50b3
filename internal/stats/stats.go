// Package stats computes read-only aggregates over the full task collection.
package stats

import (
	"cmp"
	"slices"
	"time"

	"github.com/sadopc/taskboard/internal/task"
)

type StatusCount struct {
	Status task.Status `json:"status"`
	Count  int         `json:"count"`
}

type Distribution []StatusCount

func (d Distribution) Total() int {
	n := 0
	for _, c := range d {
		n += c.Count
	}
	return n
}

// Count returns the count for one status.
func (d Distribution) Count(s task.Status) int {
	for _, c := range d {
		if c.Status == s {
			return c.Count
		}
	}
	return 0
}

// StatusDistribution counts tasks per status. Every status is present, in
// canonical order, even with a zero count.
func StatusDistribution(tasks []task.Task) Distribution {
	counts := make(map[task.Status]int, len(task.Statuses))
	for _, t := range tasks {
		counts[t.Status]++
	}
	out := make(Distribution, len(task.Statuses))
	for i, s := range task.Statuses {
		out[i] = StatusCount{Status: s, Count: counts[s]}
	}
	return out
}

type Productivity struct {
	Assignee             string  `json:"assignee"`
	CompletedTasks       int     `json:"completedTasks"`
	CompletedStoryPoints int     `json:"completedStoryPoints"`
	TasksPercent         float64 `json:"tasksPercent"`
	PointsPercent        float64 `json:"pointsPercent"`
}

// AssigneeProductivity reports completed work per assignee. Every assignee
// appearing in tasks is listed, sorted by name. Percentages are relative to
// the highest value of each metric, with the maximum floored at 1.
func AssigneeProductivity(tasks []task.Task) []Productivity {
	byName := map[string]*Productivity{}
	for _, t := range tasks {
		p, ok := byName[t.Assignee]
		if !ok {
			p = &Productivity{Assignee: t.Assignee}
			byName[t.Assignee] = p
		}
		if t.IsDone() {
			p.CompletedTasks++
			p.CompletedStoryPoints += t.Points()
		}
	}

	maxTasks, maxPoints := 1, 1
	for _, p := range byName {
		maxTasks = max(maxTasks, p.CompletedTasks)
		maxPoints = max(maxPoints, p.CompletedStoryPoints)
	}

	out := make([]Productivity, 0, len(byName))
	for _, p := range byName {
		p.TasksPercent = float64(p.CompletedTasks) / float64(maxTasks) * 100
		p.PointsPercent = float64(p.CompletedStoryPoints) / float64(maxPoints) * 100
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b Productivity) int { return cmp.Compare(a.Assignee, b.Assignee) })
	return out
}

type MonthlyStats struct {
	Month                 string  `json:"month"`
	TotalTasks            int     `json:"totalTasks"`
	CompletedTasks        int     `json:"completedTasks"`
	InProgressTasks       int     `json:"inProgressTasks"`
	BlockedTasks          int     `json:"blockedTasks"`
	TotalStoryPoints      int     `json:"totalStoryPoints"`
	CompletedStoryPoints  int     `json:"completedStoryPoints"`
	TotalTimeSpent        float64 `json:"totalTimeSpent"`
	AverageResolutionDays float64 `json:"averageResolutionTime"`

	start time.Time
}

// Monthly rolls tasks up by creation month, in chronological order.
// AverageResolutionDays covers Done tasks only and is 0 when there are none.
func Monthly(tasks []task.Task) []MonthlyStats {
	byMonth := map[string]*MonthlyStats{}
	resolutionTotal := map[string]float64{}
	for _, t := range tasks {
		label := task.MonthLabel(t.CreatedDate)
		m, ok := byMonth[label]
		if !ok {
			y, mo, _ := t.CreatedDate.Date()
			m = &MonthlyStats{Month: label, start: time.Date(y, mo, 1, 0, 0, 0, 0, time.UTC)}
			byMonth[label] = m
		}
		m.TotalTasks++
		m.TotalStoryPoints += t.Points()
		m.TotalTimeSpent += t.TimeSpent
		switch t.Status {
		case task.StatusDone:
			m.CompletedTasks++
			m.CompletedStoryPoints += t.Points()
			if t.ResolvedDate != nil {
				resolutionTotal[label] += t.ResolvedDate.Sub(t.CreatedDate).Hours() / 24
			}
		case task.StatusInProgress:
			m.InProgressTasks++
		case task.StatusBlocked:
			m.BlockedTasks++
		}
	}

	out := make([]MonthlyStats, 0, len(byMonth))
	for label, m := range byMonth {
		if m.CompletedTasks > 0 {
			m.AverageResolutionDays = resolutionTotal[label] / float64(m.CompletedTasks)
		}
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b MonthlyStats) int { return a.start.Compare(b.start) })
	return out
}

type Level int

const (
	LevelNormal Level = iota
	LevelWarning
	LevelOver
)

const (
	WarningPercent = 80
	OverPercent    = 100
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelOver:
		return "over"
	default:
		return "normal"
	}
}

type Progress struct {
	Percent float64
	Level   Level
}

// TimeProgress classifies time spent against the estimate.
func TimeProgress(t task.Task) Progress {
	p := t.ProgressPercent()
	switch {
	case p >= OverPercent:
		return Progress{Percent: p, Level: LevelOver}
	case p >= WarningPercent:
		return Progress{Percent: p, Level: LevelWarning}
	default:
		return Progress{Percent: p, Level: LevelNormal}
	}
}

// Summary bundles the aggregates shown on the statistics screen and in the
// API's stats endpoint.
type Summary struct {
	Total        int            `json:"total"`
	Distribution Distribution   `json:"distribution"`
	Productivity []Productivity `json:"productivity"`
	Monthly      []MonthlyStats `json:"monthly"`
}

func Summarize(tasks []task.Task) Summary {
	return Summary{
		Total:        len(tasks),
		Distribution: StatusDistribution(tasks),
		Productivity: AssigneeProductivity(tasks),
		Monthly:      Monthly(tasks),
	}
}
