package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/sadopc/taskboard/internal/task"
)

type formKind int

const (
	formNewTask formKind = iota
	formDeleteTask
)

// taskForm wraps a huh form. Field values live behind pointers so they
// survive the value copies of the Bubble Tea update loop.
type taskForm struct {
	kind formKind
	form *huh.Form

	title      *string
	status     *string
	priority   *string
	typ        *string
	assignee   *string
	reporter   *string
	points     *string
	estimate   *string
	sprint     *string
	labels     *string
	components *string

	confirm *bool
	target  *task.Task
}

func options[T ~string](values []T) []huh.Option[string] {
	out := make([]huh.Option[string], len(values))
	for i, v := range values {
		out[i] = huh.NewOption(string(v), string(v))
	}
	return out
}

func validatePoints(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < task.MinStoryPoints || n > task.MaxStoryPoints {
		return fmt.Errorf("story points must be %d-%d or empty", task.MinStoryPoints, task.MaxStoryPoints)
	}
	return nil
}

func validateEstimate(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return errors.New("estimate must be a positive number of hours")
	}
	return nil
}

func newTaskForm(assignees []string) (*taskForm, tea.Cmd) {
	str := func(v string) *string { return &v }
	f := &taskForm{
		kind:       formNewTask,
		title:      str(""),
		status:     str(string(task.DefaultStatus)),
		priority:   str(string(task.DefaultPriority)),
		typ:        str(string(task.DefaultType)),
		assignee:   str(""),
		reporter:   str(""),
		points:     str(""),
		estimate:   str("8"),
		sprint:     str(""),
		labels:     str(""),
		components: str(""),
	}

	var assigneeField huh.Field
	if len(assignees) > 0 {
		*f.assignee = assignees[0]
		assigneeField = huh.NewSelect[string]().Title("Assignee").Options(huh.NewOptions(assignees...)...).Value(f.assignee)
	} else {
		assigneeField = huh.NewInput().Title("Assignee").Value(f.assignee)
	}

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(f.title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("title is required")
					}
					return nil
				}),
			huh.NewSelect[string]().Title("Status").Options(options(task.Statuses)...).Value(f.status),
			huh.NewSelect[string]().Title("Priority").Options(options(task.Priorities)...).Value(f.priority),
			huh.NewSelect[string]().Title("Type").Options(options(task.Types)...).Value(f.typ),
		),
		huh.NewGroup(
			assigneeField,
			huh.NewInput().Title("Reporter").Value(f.reporter),
			huh.NewInput().Title("Story points (1-13, optional)").Value(f.points).Validate(validatePoints),
			huh.NewInput().Title("Estimate (hours)").Value(f.estimate).Validate(validateEstimate),
		),
		huh.NewGroup(
			huh.NewInput().Title("Sprint").Value(f.sprint),
			huh.NewInput().Title("Labels (comma-separated)").Value(f.labels),
			huh.NewInput().Title("Components (comma-separated)").Value(f.components),
		),
	).WithShowHelp(true).WithShowErrors(true)

	return f, f.form.Init()
}

func newDeleteForm(t task.Task) (*taskForm, tea.Cmd) {
	confirm := false
	f := &taskForm{kind: formDeleteTask, confirm: &confirm, target: &t}
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %s?", t.Key)).
				Description(t.Title).
				Affirmative("Delete").
				Negative("Keep").
				Value(f.confirm),
		),
	).WithShowHelp(true)
	return f, f.form.Init()
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// buildTask converts the completed form into a new task. The repository
// assigns ID, key and creation date.
func (f *taskForm) buildTask() (task.Task, error) {
	t := task.Task{
		Title:      strings.TrimSpace(*f.title),
		Status:     task.Status(*f.status),
		Priority:   task.Priority(*f.priority),
		Type:       task.Type(*f.typ),
		Assignee:   strings.TrimSpace(*f.assignee),
		Reporter:   strings.TrimSpace(*f.reporter),
		Sprint:     strings.TrimSpace(*f.sprint),
		Labels:     splitCSV(*f.labels),
		Components: splitCSV(*f.components),
	}
	if err := validatePoints(*f.points); err != nil {
		return task.Task{}, err
	}
	if p := strings.TrimSpace(*f.points); p != "" {
		n, _ := strconv.Atoi(p)
		t.StoryPoints = &n
	}
	if err := validateEstimate(*f.estimate); err != nil {
		return task.Task{}, err
	}
	t.TimeEstimated, _ = strconv.ParseFloat(strings.TrimSpace(*f.estimate), 64)
	return t, nil
}

func (f *taskForm) heading() string {
	if f.kind == formDeleteTask {
		return "Delete Task"
	}
	return "New Task"
}
