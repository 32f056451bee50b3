package tui

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/taskboard/internal/config"
	"github.com/sadopc/taskboard/internal/export"
	"github.com/sadopc/taskboard/internal/source"
	"github.com/sadopc/taskboard/internal/storage"
	"github.com/sadopc/taskboard/internal/task"
)

// Options wires the App to its data source and export sink.
type Options struct {
	Loader      *source.Loader
	Sink        storage.Storage
	Preferences config.Preferences
	Settings    SettingsStore // nil for remote sources
	Logger      *slog.Logger
	Now         func() time.Time
}

// App is the root Bubble Tea model.
type App struct {
	loader *source.Loader
	sink   storage.Storage
	prefs  config.Preferences
	logger *slog.Logger
	now    func() time.Time

	width  int
	height int

	tasks   []task.Task
	origin  string
	demo    bool
	loading bool

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	dashboard dashboardModel
	reports   reportsModel
	settings  settingsModel
	form      *taskForm

	help          help.Model
	status        string
	statusIsError bool
}

func NewApp(opts Options) App {
	h := help.New()
	h.ShowAll = false

	prefs := opts.Preferences
	if prefs.PageSize == 0 {
		prefs = config.DefaultPreferences()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	a := App{
		loader:     opts.Loader,
		sink:       opts.Sink,
		prefs:      prefs,
		logger:     logger,
		now:        now,
		loading:    opts.Loader != nil,
		activeView: viewTasks,
		dashboard:  newDashboardModel(prefs.PageSize, prefs.PageSizeOptions),
		reports:    newReportsModel(),
		settings:   newSettingsModel(opts.Settings),
		help:       h,
	}
	a.syncSettings()
	return a
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.load(), a.settings.refresh())
}

func (a App) load() tea.Cmd {
	if a.loader == nil {
		return nil
	}
	loader := a.loader
	return func() tea.Msg {
		ds, err := loader.Load(context.Background())
		return datasetMsg{ds: ds, err: err}
	}
}

// syncSettings copies the values the settings screen displays.
func (a *App) syncSettings() {
	a.settings.origin = a.origin
	a.settings.demo = a.demo
	a.settings.pageSize = a.dashboard.state.PageSize
	a.settings.prefix = a.prefs.ExportPrefix
	if a.sink != nil {
		a.settings.sinkTarget = storage.Describe(a.sink, "")
	} else {
		a.settings.sinkTarget = "(none)"
	}
}

func (a *App) setStatus(text string, isError bool) {
	a.status = text
	a.statusIsError = isError
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}
		if a.form != nil {
			return a.updateForm(msg)
		}

		// A child view capturing text input gets every key.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Reload):
			a.loading = true
			a.setStatus("Reloading…", false)
			return a, a.load()
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewTasks
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewStatistics
			return a, nil
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			if a.activeView == viewSettings {
				return a, a.settings.refresh()
			}
			return a, nil
		}

		if a.activeView == viewTasks {
			switch {
			case key.Matches(msg, keys.New):
				return a.openNewForm()
			case key.Matches(msg, keys.Delete):
				return a.openDeleteForm()
			}
		}

	case datasetMsg:
		a.loading = false
		if msg.err != nil {
			a.setStatus(fmt.Sprintf("Load error: %v", msg.err), true)
			return a, nil
		}
		a.tasks = msg.ds.Tasks
		a.origin = msg.ds.Origin
		a.demo = msg.ds.Demo
		a.settings.loadErr = msg.ds.Err
		a.dashboard.setTasks(a.tasks)
		a.reports.setTasks(a.tasks)
		a.syncSettings()
		if a.demo {
			a.setStatus(fmt.Sprintf("Showing %d generated demo tasks", len(a.tasks)), false)
		} else {
			a.setStatus(fmt.Sprintf("Loaded %d tasks from %s", len(a.tasks), a.origin), false)
		}
		return a, nil

	case settingsDataMsg:
		if size, prefix, ok := overrides(msg.settings); ok {
			a.applyPreferences(size, prefix)
		}
		a.settings.settings = msg.settings
		return a, nil

	case settingsSavedMsg:
		a.applyPreferences(msg.pageSize, msg.prefix)
		a.setStatus("Settings saved", false)
		return a, a.settings.refresh()

	case statusMsg:
		a.setStatus(msg.text, msg.isError)
		return a, nil

	case exportDoneMsg:
		a.setStatus("Exported to "+msg.path, false)
		a.exportPicking = false
		return a, nil

	case taskSavedMsg:
		a.setStatus("Created "+msg.task.Key, false)
		return a, a.load()

	case taskDeletedMsg:
		a.setStatus("Deleted "+msg.key, false)
		return a, a.load()
	}

	if a.form != nil {
		return a.updateForm(msg)
	}
	return a.updateActiveView(msg)
}

func (a *App) applyPreferences(pageSize int, prefix string) {
	if pageSize > 0 {
		a.prefs.PageSize = pageSize
		a.dashboard.state = a.dashboard.state.WithPageSize(pageSize)
		if !slices.Contains(a.dashboard.pageSizes, pageSize) {
			a.dashboard.pageSizes = append(slices.Clone(a.dashboard.pageSizes), pageSize)
			slices.Sort(a.dashboard.pageSizes)
		}
		a.dashboard.refresh()
	}
	if prefix != "" {
		a.prefs.ExportPrefix = prefix
	}
	a.syncSettings()
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTasks:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewStatistics:
		a.reports, cmd = a.reports.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	if a.form != nil {
		return true
	}
	switch a.activeView {
	case viewTasks:
		return a.dashboard.inputActive()
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

// --- Task forms ---

func (a App) repository() task.Repository {
	if a.loader == nil || a.demo {
		return nil
	}
	return a.loader.Repository()
}

func (a App) openNewForm() (tea.Model, tea.Cmd) {
	if a.repository() == nil {
		a.setStatus("Read-only demo data: tasks cannot be created", true)
		return a, nil
	}
	var assignees []string
	for _, t := range a.tasks {
		if t.Assignee != "" && !slices.Contains(assignees, t.Assignee) {
			assignees = append(assignees, t.Assignee)
		}
	}
	slices.Sort(assignees)

	f, cmd := newTaskForm(assignees)
	a.form = f
	return a, cmd
}

func (a App) openDeleteForm() (tea.Model, tea.Cmd) {
	t := a.dashboard.selected()
	if t == nil {
		return a, nil
	}
	if a.repository() == nil {
		a.setStatus("Read-only demo data: tasks cannot be deleted", true)
		return a, nil
	}
	f, cmd := newDeleteForm(*t)
	a.form = f
	return a, cmd
}

func (a App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
		a.form = nil
		return a, nil
	}

	form, cmd := a.form.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form.form = f
	}

	switch a.form.form.State {
	case huh.StateCompleted:
		f := a.form
		a.form = nil
		switch f.kind {
		case formNewTask:
			return a, a.createTask(f)
		case formDeleteTask:
			if *f.confirm {
				return a, a.deleteTask(*f.target)
			}
		}
		return a, nil
	case huh.StateAborted:
		a.form = nil
		return a, nil
	}
	return a, cmd
}

func (a App) createTask(f *taskForm) tea.Cmd {
	t, err := f.buildTask()
	if err != nil {
		return func() tea.Msg { return statusMsg{text: err.Error(), isError: true} }
	}
	now := a.now().UTC().Truncate(time.Second)
	t.CreatedDate = now
	if t.IsDone() {
		t.ResolvedDate = &now
	}
	repo := a.repository()
	return func() tea.Msg {
		saved, err := repo.Save(context.Background(), t)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Create error: %v", err), isError: true}
		}
		return taskSavedMsg{task: saved}
	}
}

func (a App) deleteTask(t task.Task) tea.Cmd {
	repo := a.repository()
	return func() tea.Msg {
		if err := repo.DeleteByID(context.Background(), t.ID); err != nil {
			return statusMsg{text: fmt.Sprintf("Delete error: %v", err), isError: true}
		}
		return taskDeletedMsg{key: t.Key}
	}
}

// --- Rendering ---

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTasks:
		content = a.dashboard.view()
	case viewStatistics:
		content = a.reports.view()
	case viewSettings:
		content = a.settings.view()
	}

	contentHeight := max(1, a.height-lipgloss.Height(header)-lipgloss.Height(footer))

	switch {
	case a.exportPicking:
		content = a.renderExportPicker()
	case a.form != nil:
		content = activePanelStyle.Width(a.width - 4).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(a.form.heading()), "", a.form.form.View()),
		)
	case a.loading && len(a.tasks) == 0:
		content = panelStyle.Width(a.width - 4).Render(mutedStyle.Render("Loading tasks…"))
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("taskboard")
	if a.demo {
		title = lipgloss.JoinHorizontal(lipgloss.Bottom, title, " ", demoBannerStyle.Render("DEMO DATA"))
	}
	gap := max(1, a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	left := footerStyle.Render(a.help.View(keys))

	right := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusIsError {
			style = errorStyle
		}
		right = style.Render(" " + a.status)
	}

	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	rows := []string{
		titleStyle.Render("Export Format"),
		mutedStyle.Render(fmt.Sprintf("  %d rows, %d columns", len(a.dashboard.exportRows()), len(a.dashboard.exportColumns()))),
		"",
	}
	for i, f := range export.Formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+strings.ToUpper(string(f))))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(export.Formats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(export.Formats[a.exportCursor])
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format export.Format) tea.Cmd {
	if a.sink == nil {
		return func() tea.Msg { return statusMsg{text: "No export destination configured", isError: true} }
	}
	sink := a.sink
	prefix := a.prefs.ExportPrefix
	req := export.Request{
		Format:  format,
		Rows:    a.dashboard.exportRows(),
		Columns: a.dashboard.exportColumns(),
		All:     a.tasks,
		Demo:    a.demo,
		Now:     a.now(),
	}
	logger := a.logger
	return func() tea.Msg {
		ctx := context.Background()
		name, err := export.Save(ctx, sink, prefix, req)
		if err != nil {
			logger.ErrorContext(ctx, "export failed", "format", format, "error", err)
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		return exportDoneMsg{path: storage.Describe(sink, name)}
	}
}
