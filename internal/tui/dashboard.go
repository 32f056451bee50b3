package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/taskboard/internal/export"
	"github.com/sadopc/taskboard/internal/stats"
	"github.com/sadopc/taskboard/internal/task"
	"github.com/sadopc/taskboard/internal/view"
)

var columnWidths = map[view.ColumnID]int{
	view.ColKey:          13,
	view.ColTitle:        34,
	view.ColStatus:       12,
	view.ColPriority:     9,
	view.ColType:         8,
	view.ColAssignee:     18,
	view.ColStoryPoints:  6,
	view.ColTimeProgress: 17,
	view.ColCreatedDate:  11,
	view.ColResolvedDate: 11,
	view.ColMonth:        15,
	view.ColSprint:       9,
	view.ColLabels:       22,
	view.ColComponents:   22,
}

type filterOption struct {
	col   view.ColumnID
	value string
}

// dashboardModel is the task table: search, column filters, sorting,
// grouping and pagination over the loaded tasks.
type dashboardModel struct {
	width  int
	height int

	columns   []view.Column
	state     view.State
	pageSizes []int
	tasks     []task.Task
	result    view.Result
	err       error

	table     table.Model
	rowTasks  []*task.Task // parallel to the table rows, nil for group headers
	colCursor int

	search    textinput.Model
	searching bool

	filtering     bool
	filterOptions []filterOption
	filterCursor  int
}

func newDashboardModel(pageSize int, pageSizes []int) dashboardModel {
	ti := textinput.New()
	ti.Placeholder = "search visible columns"
	ti.Prompt = "/ "
	ti.CharLimit = 80

	t := table.New(table.WithFocused(true), table.WithHeight(10))
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorSubtle).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("#1A1B26")).Background(colorPrimary)
	t.SetStyles(s)

	st := view.DefaultState()
	if pageSize > 0 {
		st = st.WithPageSize(pageSize)
	}
	if len(pageSizes) == 0 {
		pageSizes = view.PageSizeOptions
	}

	d := dashboardModel{
		columns:   view.DefaultColumns(),
		state:     st,
		pageSizes: pageSizes,
		table:     t,
		search:    ti,
	}
	d.refresh()
	return d
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
	d.table.SetHeight(max(3, h-8))
	d.table.SetWidth(max(20, w-4))
}

func (d *dashboardModel) setTasks(tasks []task.Task) {
	d.tasks = tasks
	d.filterOptions = buildFilterOptions(tasks)
	d.filterCursor = min(d.filterCursor, max(0, len(d.filterOptions)-1))
	d.refresh()
}

func (d dashboardModel) inputActive() bool {
	return d.searching || d.filtering
}

func (d dashboardModel) visibleColumns() []view.Column {
	return d.state.Visible(d.columns)
}

func (d dashboardModel) currentColumn() (view.Column, bool) {
	vis := d.visibleColumns()
	if d.colCursor < 0 || d.colCursor >= len(vis) {
		return view.Column{}, false
	}
	return vis[d.colCursor], true
}

// selected returns the task under the table cursor, or nil on a group
// header or an empty table.
func (d dashboardModel) selected() *task.Task {
	i := d.table.Cursor()
	if i < 0 || i >= len(d.rowTasks) {
		return nil
	}
	return d.rowTasks[i]
}

// exportRows are the rows the current view exports: every filtered and
// sorted row, not just the current page.
func (d dashboardModel) exportRows() []task.Task {
	return d.result.Rows
}

func (d dashboardModel) exportColumns() []export.Column {
	return export.ColumnsFor(d.visibleColumns())
}

func buildFilterOptions(tasks []task.Task) []filterOption {
	var opts []filterOption
	for _, s := range task.Statuses {
		opts = append(opts, filterOption{view.ColStatus, string(s)})
	}
	for _, p := range task.Priorities {
		opts = append(opts, filterOption{view.ColPriority, string(p)})
	}
	for _, t := range task.Types {
		opts = append(opts, filterOption{view.ColType, string(t)})
	}
	var assignees []string
	for _, t := range tasks {
		if t.Assignee != "" && !slices.Contains(assignees, t.Assignee) {
			assignees = append(assignees, t.Assignee)
		}
	}
	slices.Sort(assignees)
	for _, a := range assignees {
		opts = append(opts, filterOption{view.ColAssignee, a})
	}
	return opts
}

// refresh re-applies the view state and rebuilds the table.
func (d *dashboardModel) refresh() {
	res, err := view.Apply(d.tasks, d.columns, d.state)
	d.err = err
	if err != nil {
		return
	}
	d.result = res
	d.state = d.state.WithPage(res.PageIndex)

	vis := d.visibleColumns()
	d.colCursor = min(d.colCursor, max(0, len(vis)-1))

	cols := make([]table.Column, len(vis))
	for i, c := range vis {
		title := c.Label
		if sorted, desc := d.state.SortDirection(c.ID); sorted {
			if desc {
				title += " ▼"
			} else {
				title += " ▲"
			}
		}
		if i == d.colCursor {
			title = "›" + title
		}
		w, ok := columnWidths[c.ID]
		if !ok {
			w = 12
		}
		cols[i] = table.Column{Title: title, Width: w}
	}

	var rows []table.Row
	var rowTasks []*task.Task
	addRow := func(t *task.Task) {
		cells := make(table.Row, len(vis))
		for i, c := range vis {
			cells[i] = cellText(c, *t)
		}
		rows = append(rows, cells)
		rowTasks = append(rowTasks, t)
	}
	if len(d.state.Group) > 0 {
		for gi := range res.PageGroups {
			g := &res.PageGroups[gi]
			header := make(table.Row, len(vis))
			header[0] = fmt.Sprintf("▸ %s (%d)", g.Label(), g.Count())
			if len(vis) > 1 {
				header[1] = fmt.Sprintf("%d pts · %s", g.StoryPoints, formatHours(g.TimeSpent))
			}
			rows = append(rows, header)
			rowTasks = append(rowTasks, nil)
			for ri := range g.Rows {
				addRow(&g.Rows[ri])
			}
		}
	} else {
		for i := range res.Page {
			addRow(&res.Page[i])
		}
	}

	// Rows go first so the old rows are never rendered against new columns.
	d.table.SetRows(nil)
	d.table.SetColumns(cols)
	d.table.SetRows(rows)
	d.rowTasks = rowTasks
	if d.table.Cursor() >= len(rows) {
		d.table.SetCursor(max(0, len(rows)-1))
	}
}

func cellText(c view.Column, t task.Task) string {
	switch c.ID {
	case view.ColCreatedDate:
		return export.FormatDisplayDate(&t.CreatedDate)
	case view.ColResolvedDate:
		return export.FormatDisplayDate(t.ResolvedDate)
	case view.ColStoryPoints:
		return formatPoints(t.StoryPoints)
	case view.ColTimeProgress:
		return fmt.Sprintf("%s/%s %s", formatHours(t.TimeSpent), formatHours(t.TimeEstimated),
			formatPercent(stats.TimeProgress(t).Percent))
	}
	return view.Stringify(c.Value(t))
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		if d.searching {
			d.search, cmd = d.search.Update(msg)
		}
		return d, cmd
	}
	switch {
	case d.searching:
		return d.updateSearch(km)
	case d.filtering:
		return d.updateFilterPicker(km), nil
	}

	switch {
	case key.Matches(km, keys.Search):
		d.searching = true
		return d, d.search.Focus()
	case key.Matches(km, keys.Filter):
		d.filtering = true
	case key.Matches(km, keys.ClearFilter):
		d.search.SetValue("")
		d.state = d.state.ClearFilters().WithSearch("")
		d.refresh()
	case key.Matches(km, keys.Sort):
		if c, ok := d.currentColumn(); ok && c.Sortable {
			d.state = d.state.ToggleSort(c.ID)
			d.refresh()
		}
	case key.Matches(km, keys.Group):
		if c, ok := d.currentColumn(); ok && c.Groupable {
			if slices.Equal(d.state.Group, []view.ColumnID{c.ID}) {
				d.state = d.state.WithGroup()
			} else {
				d.state = d.state.WithGroup(c.ID)
			}
			d.refresh()
		}
	case key.Matches(km, keys.Hide):
		if c, ok := d.currentColumn(); ok && len(d.visibleColumns()) > 1 {
			d.state = d.state.ToggleColumn(c.ID)
			d.refresh()
		}
	case key.Matches(km, keys.PrevColumn):
		if d.colCursor > 0 {
			d.colCursor--
			d.refresh()
		}
	case key.Matches(km, keys.NextColumn):
		if d.colCursor < len(d.visibleColumns())-1 {
			d.colCursor++
			d.refresh()
		}
	case key.Matches(km, keys.PrevPage):
		if d.state.PageIndex > 0 {
			d.state = d.state.WithPage(d.state.PageIndex - 1)
			d.refresh()
		}
	case key.Matches(km, keys.NextPage):
		if d.state.PageIndex < d.result.PageCount-1 {
			d.state = d.state.WithPage(d.state.PageIndex + 1)
			d.refresh()
		}
	case key.Matches(km, keys.PageSize):
		d.state = d.state.WithPageSize(nextPageSize(d.pageSizes, d.state.PageSize))
		d.refresh()
	default:
		var cmd tea.Cmd
		d.table, cmd = d.table.Update(km)
		return d, cmd
	}
	return d, nil
}

func nextPageSize(options []int, current int) int {
	for _, o := range options {
		if o > current {
			return o
		}
	}
	return options[0]
}

func (d dashboardModel) updateSearch(km tea.KeyMsg) (dashboardModel, tea.Cmd) {
	switch km.String() {
	case "esc":
		d.searching = false
		d.search.Blur()
		d.search.SetValue("")
		d.state = d.state.WithSearch("")
		d.refresh()
		return d, nil
	case "enter":
		d.searching = false
		d.search.Blur()
		return d, nil
	}
	var cmd tea.Cmd
	d.search, cmd = d.search.Update(km)
	if d.search.Value() != d.state.Search {
		d.state = d.state.WithSearch(d.search.Value())
		d.refresh()
	}
	return d, cmd
}

func (d dashboardModel) updateFilterPicker(km tea.KeyMsg) dashboardModel {
	switch {
	case key.Matches(km, keys.Back), key.Matches(km, keys.Filter):
		d.filtering = false
	case key.Matches(km, keys.Up):
		if d.filterCursor > 0 {
			d.filterCursor--
		}
	case key.Matches(km, keys.Down):
		if d.filterCursor < len(d.filterOptions)-1 {
			d.filterCursor++
		}
	case key.Matches(km, keys.Toggle), key.Matches(km, keys.Enter):
		if d.filterCursor < len(d.filterOptions) {
			o := d.filterOptions[d.filterCursor]
			d.state = d.state.ToggleFilter(o.col, o.value)
			d.refresh()
		}
	case key.Matches(km, keys.ClearFilter):
		d.state = d.state.ClearFilters()
		d.refresh()
	}
	return d
}

func (d dashboardModel) view() string {
	w := d.width - 4

	count := fmt.Sprintf("%d of %d tasks", d.result.Total, len(d.tasks))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Tasks"), "  ", mutedStyle.Render(count), "  ", highlightStyle.Render(d.filterSummary()),
	)

	var parts []string
	parts = append(parts, header)
	if d.searching || d.state.Search != "" {
		parts = append(parts, d.search.View())
	}

	switch {
	case d.err != nil:
		parts = append(parts, "", errorStyle.Render(d.err.Error()))
	case d.filtering:
		parts = append(parts, "", d.renderFilterPicker())
	default:
		parts = append(parts, d.table.View())
		if d.result.Total == 0 {
			parts = append(parts, mutedStyle.Render("  No tasks match the current view."))
		}
		parts = append(parts, d.renderPageLine(), d.renderSelected())
	}

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (d dashboardModel) filterSummary() string {
	var parts []string
	for _, c := range d.columns {
		if vals := d.state.Filters[c.ID]; len(vals) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", c.Label, strings.Join(vals, ", ")))
		}
	}
	return strings.Join(parts, " · ")
}

func (d dashboardModel) renderPageLine() string {
	line := fmt.Sprintf("  page %d/%d · %d per page", d.result.PageIndex+1, max(1, d.result.PageCount), d.state.PageSize)
	if len(d.state.Group) > 0 {
		var names []string
		for _, id := range d.state.Group {
			if c, ok := view.Lookup(d.columns, id); ok {
				names = append(names, c.Label)
			}
		}
		line += " · grouped by " + strings.Join(names, ", ")
	}
	return mutedStyle.Render(line)
}

func (d dashboardModel) renderSelected() string {
	t := d.selected()
	if t == nil {
		return ""
	}
	p := stats.TimeProgress(*t)
	return fmt.Sprintf("  %s %s  %s  %s",
		highlightStyle.Render(t.Key),
		normalItemStyle.Render(truncate(t.Title, max(10, d.width-60))),
		statusStyle(t.Status).Render(string(t.Status)),
		progressStyle(p.Level).Render(formatPercent(p.Percent)+" of estimate"),
	)
}

func (d dashboardModel) renderFilterPicker() string {
	rows := []string{titleStyle.Render("Filters"), ""}
	cursorRow := 0
	var last view.ColumnID
	for i, o := range d.filterOptions {
		if o.col != last {
			if c, ok := view.Lookup(d.columns, o.col); ok {
				rows = append(rows, subtitleStyle.Render(c.Label))
			}
			last = o.col
		}
		check := "[ ]"
		if slices.Contains(d.state.Filters[o.col], o.value) {
			check = "[x]"
		}
		cursor := "  "
		style := normalItemStyle
		if i == d.filterCursor {
			cursor = "> "
			style = selectedItemStyle
			cursorRow = len(rows)
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%s %s", cursor, check, o.value)))
	}
	rows = append(rows, "", mutedStyle.Render("  space: toggle  x: clear  esc: close"))

	// Keep the cursor on screen.
	limit := max(8, d.height-4)
	if len(rows) > limit {
		start := min(max(0, cursorRow-limit/2), len(rows)-limit)
		rows = rows[start : start+limit]
	}
	return strings.Join(rows, "\n")
}
