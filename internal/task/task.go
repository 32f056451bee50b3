// Package task defines the task record shared by the generator, the view
// engine, the statistics aggregator and the storage layers.
package task

import (
	"fmt"
	"time"
)

// MonthLayout formats the month label derived from a task's creation date.
const MonthLayout = "January 2006"

const (
	MinStoryPoints = 1
	MaxStoryPoints = 13
)

type Task struct {
	ID            string     `json:"id" yaml:"id"`
	Key           string     `json:"key" yaml:"key"`
	Title         string     `json:"title" yaml:"title"`
	Status        Status     `json:"status" yaml:"status"`
	Priority      Priority   `json:"priority" yaml:"priority"`
	Type          Type       `json:"type" yaml:"type"`
	Assignee      string     `json:"assignee" yaml:"assignee"`
	Reporter      string     `json:"reporter" yaml:"reporter"`
	CreatedDate   time.Time  `json:"createdDate" yaml:"created_date"`
	ResolvedDate  *time.Time `json:"resolvedDate" yaml:"resolved_date"`
	StoryPoints   *int       `json:"storyPoints" yaml:"story_points"`
	TimeSpent     float64    `json:"timeSpent" yaml:"time_spent"`         // hours
	TimeEstimated float64    `json:"timeEstimated" yaml:"time_estimated"` // hours
	Month         string     `json:"month" yaml:"month"`
	Sprint        string     `json:"sprint" yaml:"sprint"`
	Labels        []string   `json:"labels" yaml:"labels"`
	Components    []string   `json:"components" yaml:"components"`
}

// MonthLabel returns the month label for t, e.g. "March 2024".
func MonthLabel(t time.Time) string {
	return t.Format(MonthLayout)
}

// IsDone reports whether the task counts as completed work.
func (t Task) IsDone() bool {
	return t.Status == StatusDone
}

// Points returns the story points, treating an absent estimate as 0.
func (t Task) Points() int {
	if t.StoryPoints == nil {
		return 0
	}
	return *t.StoryPoints
}

// ProgressPercent is time spent as a percentage of the estimate. It can
// exceed 100 when work overran.
func (t Task) ProgressPercent() float64 {
	if t.TimeEstimated <= 0 {
		return 0
	}
	return t.TimeSpent / t.TimeEstimated * 100
}

// Clone returns a deep copy so callers can edit without aliasing slices or
// pointers held by a shared collection.
func (t Task) Clone() Task {
	c := t
	if t.ResolvedDate != nil {
		d := *t.ResolvedDate
		c.ResolvedDate = &d
	}
	if t.StoryPoints != nil {
		p := *t.StoryPoints
		c.StoryPoints = &p
	}
	c.Labels = append([]string(nil), t.Labels...)
	c.Components = append([]string(nil), t.Components...)
	return c
}

// ValidationError reports a task field that violates the record contract.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid task %s: %s", e.Field, e.Reason)
}

// Validate checks the record-level invariants. TimeSpent exceeding
// TimeEstimated is allowed.
func (t Task) Validate() error {
	if t.Title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if !t.Status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown value %q", t.Status)}
	}
	if !t.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown value %q", t.Priority)}
	}
	if !t.Type.Valid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown value %q", t.Type)}
	}
	if t.StoryPoints != nil && (*t.StoryPoints < MinStoryPoints || *t.StoryPoints > MaxStoryPoints) {
		return &ValidationError{Field: "storyPoints", Reason: fmt.Sprintf("must be between %d and %d", MinStoryPoints, MaxStoryPoints)}
	}
	if t.TimeEstimated <= 0 {
		return &ValidationError{Field: "timeEstimated", Reason: "must be positive"}
	}
	if t.TimeSpent < 0 {
		return &ValidationError{Field: "timeSpent", Reason: "must not be negative"}
	}
	if t.IsDone() != (t.ResolvedDate != nil) {
		return &ValidationError{Field: "resolvedDate", Reason: "must be set exactly when status is Done"}
	}
	if t.ResolvedDate != nil && t.ResolvedDate.Before(t.CreatedDate) {
		return &ValidationError{Field: "resolvedDate", Reason: "must not precede createdDate"}
	}
	return nil
}
