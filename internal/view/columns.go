package view

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/taskboard/internal/task"
)

type ColumnID string

const (
	ColKey          ColumnID = "key"
	ColTitle        ColumnID = "title"
	ColStatus       ColumnID = "status"
	ColPriority     ColumnID = "priority"
	ColType         ColumnID = "type"
	ColAssignee     ColumnID = "assignee"
	ColStoryPoints  ColumnID = "storyPoints"
	ColTimeProgress ColumnID = "timeProgress"
	ColCreatedDate  ColumnID = "createdDate"
	ColResolvedDate ColumnID = "resolvedDate"
	ColMonth        ColumnID = "month"
	ColSprint       ColumnID = "sprint"
	ColLabels       ColumnID = "labels"
	ColComponents   ColumnID = "components"
)

// Column describes how one column reads its value from a task. Value
// returns nil for an absent value, otherwise one of string, int, float64,
// time.Time or []string.
type Column struct {
	ID         ColumnID
	Label      string
	Value      func(task.Task) any
	Sortable   bool
	Groupable  bool
	Filterable bool
}

// DefaultColumns returns the task table columns in display order.
func DefaultColumns() []Column {
	return []Column{
		{ID: ColKey, Label: "Key", Sortable: true,
			Value: func(t task.Task) any { return t.Key }},
		{ID: ColTitle, Label: "Title", Sortable: true,
			Value: func(t task.Task) any { return t.Title }},
		{ID: ColStatus, Label: "Status", Sortable: true, Groupable: true, Filterable: true,
			Value: func(t task.Task) any { return string(t.Status) }},
		{ID: ColPriority, Label: "Priority", Sortable: true, Groupable: true, Filterable: true,
			Value: func(t task.Task) any { return string(t.Priority) }},
		{ID: ColType, Label: "Type", Sortable: true, Groupable: true, Filterable: true,
			Value: func(t task.Task) any { return string(t.Type) }},
		{ID: ColAssignee, Label: "Assignee", Sortable: true, Groupable: true, Filterable: true,
			Value: func(t task.Task) any { return t.Assignee }},
		{ID: ColStoryPoints, Label: "Story Points", Sortable: true, Groupable: true,
			Value: func(t task.Task) any {
				if t.StoryPoints == nil {
					return nil
				}
				return *t.StoryPoints
			}},
		{ID: ColTimeProgress, Label: "Time Progress (%)", Sortable: true,
			Value: func(t task.Task) any { return math.Round(t.ProgressPercent()) }},
		{ID: ColCreatedDate, Label: "Created", Sortable: true,
			Value: func(t task.Task) any { return t.CreatedDate }},
		{ID: ColResolvedDate, Label: "Resolved", Sortable: true,
			Value: func(t task.Task) any {
				if t.ResolvedDate == nil {
					return nil
				}
				return *t.ResolvedDate
			}},
		{ID: ColMonth, Label: "Month", Groupable: true, Filterable: true,
			Value: func(t task.Task) any { return t.Month }},
		{ID: ColSprint, Label: "Sprint", Sortable: true, Groupable: true, Filterable: true,
			Value: func(t task.Task) any { return t.Sprint }},
		{ID: ColLabels, Label: "Labels", Filterable: true,
			Value: func(t task.Task) any { return t.Labels }},
		{ID: ColComponents, Label: "Components", Filterable: true,
			Value: func(t task.Task) any { return t.Components }},
	}
}

// Lookup finds a column by ID.
func Lookup(columns []Column, id ColumnID) (Column, bool) {
	for _, c := range columns {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

// Stringify renders a column value for search and grouping.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.DateOnly)
	case []string:
		return strings.Join(x, ", ")
	default:
		return ""
	}
}

func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.([]string); ok && len(s) == 0 {
		return true
	}
	return false
}
