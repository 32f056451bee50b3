package task

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusDone       Status = "Done"
	StatusInProgress Status = "In Progress"
	StatusToDo       Status = "To Do"
	StatusBlocked    Status = "Blocked"
	StatusReview     Status = "Review"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusDone, StatusInProgress, StatusToDo, StatusBlocked, StatusReview}

type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

type Type string

const (
	TypeBug     Type = "Bug"
	TypeStory   Type = "Story"
	TypeTask    Type = "Task"
	TypeEpic    Type = "Epic"
	TypeSubtask Type = "Subtask"
)

var Types = []Type{TypeBug, TypeStory, TypeTask, TypeEpic, TypeSubtask}

// Defaults applied when a create request omits the field.
const (
	DefaultStatus   = StatusToDo
	DefaultPriority = PriorityLow
	DefaultType     = TypeTask
)

func (s Status) Valid() bool   { return contains(Statuses, s) }
func (p Priority) Valid() bool { return contains(Priorities, p) }
func (t Type) Valid() bool     { return contains(Types, t) }

// ParseStatus accepts the display form ("In Progress") and is lenient about
// case and separators ("in_progress", "in-progress").
func ParseStatus(s string) (Status, error) {
	v, ok := parse(Statuses, s)
	if !ok {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return v, nil
}

func ParsePriority(s string) (Priority, error) {
	v, ok := parse(Priorities, s)
	if !ok {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return v, nil
}

func ParseType(s string) (Type, error) {
	v, ok := parse(Types, s)
	if !ok {
		return "", fmt.Errorf("unknown type %q", s)
	}
	return v, nil
}

func contains[T ~string](all []T, v T) bool {
	for _, x := range all {
		if x == v {
			return true
		}
	}
	return false
}

func parse[T ~string](all []T, s string) (T, bool) {
	want := normalize(s)
	for _, v := range all {
		if normalize(string(v)) == want {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func normalize(s string) string {
	r := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(s)))
}
