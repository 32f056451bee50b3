package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/taskboard/internal/clog"
	"github.com/sadopc/taskboard/internal/config"
	"github.com/sadopc/taskboard/internal/export"
	"github.com/sadopc/taskboard/internal/generate"
	"github.com/sadopc/taskboard/internal/random"
	"github.com/sadopc/taskboard/internal/source"
	"github.com/sadopc/taskboard/internal/storage"
	"github.com/sadopc/taskboard/internal/store"
	"github.com/sadopc/taskboard/internal/task"
	"github.com/sadopc/taskboard/internal/view"
)

var testNow = time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return clog.NewLogger(io.Discard, false, slog.LevelError)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func demoGenerator() func() ([]task.Task, error) {
	g := generate.New(generate.WithRand(random.NewSeeded(3)), generate.WithSequentialKeys())
	return g.GenerateDataset
}

func newStoreApp(t *testing.T, st *store.Store) App {
	t.Helper()
	sink, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("new local sink: %v", err)
	}
	return NewApp(Options{
		Loader:      source.NewLoader(st, source.OriginStore, nil, testLogger()),
		Sink:        sink,
		Preferences: config.DefaultPreferences(),
		Settings:    st,
		Logger:      testLogger(),
		Now:         func() time.Time { return testNow },
	})
}

// loaded runs the app's load command and feeds the result back in.
func loaded(t *testing.T, a App) App {
	t.Helper()
	cmd := a.load()
	if cmd == nil {
		t.Fatal("expected a load command")
	}
	return update(a, cmd())
}

func update(a App, msg tea.Msg) App {
	m, _ := a.Update(msg)
	return m.(App)
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	escKey   = tea.KeyMsg{Type: tea.KeyEsc}
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	spaceKey = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
)

func mkTask(i int, status task.Status, assignee string) task.Task {
	created := time.Date(2024, time.Month(1+i%3), 1+i, 9, 0, 0, 0, time.UTC)
	t := task.Task{
		ID:            fmt.Sprintf("id-%02d", i),
		Key:           fmt.Sprintf("TASK-%02d-%04d", created.Month(), i+1),
		Title:         fmt.Sprintf("Task number %d", i),
		Status:        status,
		Priority:      task.PriorityMedium,
		Type:          task.TypeStory,
		Assignee:      assignee,
		CreatedDate:   created,
		TimeSpent:     2,
		TimeEstimated: 8,
		Month:         task.MonthLabel(created),
		Labels:        []string{},
		Components:    []string{},
	}
	if status == task.StatusDone {
		r := created.Add(48 * time.Hour)
		t.ResolvedDate = &r
	}
	return t
}

func sampleTasks(n int) []task.Task {
	statuses := []task.Status{task.StatusDone, task.StatusToDo, task.StatusInProgress}
	people := []string{"Alice Smith", "Bob Jones"}
	out := make([]task.Task, n)
	for i := range out {
		out[i] = mkTask(i, statuses[i%len(statuses)], people[i%len(people)])
	}
	return out
}

// ============================================================
// App
// ============================================================

func TestNewAppDefaults(t *testing.T) {
	a := NewApp(Options{})
	if a.activeView != viewTasks {
		t.Fatalf("expected tasks view, got %d", a.activeView)
	}
	if a.prefs.PageSize != config.DefaultPreferences().PageSize {
		t.Fatalf("expected default page size, got %d", a.prefs.PageSize)
	}
	if a.View() != "Loading..." {
		t.Fatalf("expected loading view before the first resize, got %q", a.View())
	}
	if a.load() != nil {
		t.Fatal("app without loader should not issue a load command")
	}
}

func TestAppLoadsFromStore(t *testing.T) {
	st := newTestStore(t)
	if err := st.SaveAll(context.Background(), sampleTasks(5)); err != nil {
		t.Fatal(err)
	}
	a := loaded(t, newStoreApp(t, st))

	if len(a.tasks) != 5 {
		t.Fatalf("expected 5 tasks, got %d", len(a.tasks))
	}
	if a.demo {
		t.Fatal("store data should not be marked demo")
	}
	if !strings.Contains(a.status, "Loaded 5 tasks") {
		t.Fatalf("unexpected status %q", a.status)
	}
	if a.dashboard.result.Total != 5 {
		t.Fatalf("dashboard should show 5 rows, got %d", a.dashboard.result.Total)
	}
	if a.reports.summary.Total != 5 {
		t.Fatalf("reports should summarize 5 tasks, got %d", a.reports.summary.Total)
	}
}

func TestAppDemoFallback(t *testing.T) {
	a := NewApp(Options{
		Loader: source.NewLoader(nil, "", demoGenerator(), testLogger()),
		Logger: testLogger(),
	})
	a = loaded(t, a)
	a = update(a, tea.WindowSizeMsg{Width: 160, Height: 50})

	if !a.demo {
		t.Fatal("expected demo dataset")
	}
	if len(a.tasks) < 12*generate.MinTasksPerMonth {
		t.Fatalf("expected a full demo year, got %d tasks", len(a.tasks))
	}
	if !containsString(a.View(), "DEMO DATA") {
		t.Fatal("header should carry the demo banner")
	}

	a = update(a, runeKey("n"))
	if a.form != nil {
		t.Fatal("demo data should not open the new-task form")
	}
	if !a.statusIsError || !strings.Contains(a.status, "Read-only") {
		t.Fatalf("expected read-only status, got %q", a.status)
	}
}

func TestAppLoadError(t *testing.T) {
	failing := func() ([]task.Task, error) { return nil, errors.New("boom") }
	a := NewApp(Options{Loader: source.NewLoader(nil, "", failing, testLogger())})
	a = loaded(t, a)
	if !a.statusIsError || !strings.Contains(a.status, "boom") {
		t.Fatalf("expected load error status, got %q", a.status)
	}
}

func TestAppTabSwitching(t *testing.T) {
	a := NewApp(Options{})
	a = update(a, tea.WindowSizeMsg{Width: 120, Height: 40})

	a = update(a, runeKey("2"))
	if a.activeView != viewStatistics {
		t.Fatalf("expected statistics view, got %d", a.activeView)
	}
	if !containsString(a.View(), "Statistics") {
		t.Fatal("statistics view should render its title")
	}

	a = update(a, runeKey("3"))
	if a.activeView != viewSettings {
		t.Fatalf("expected settings view, got %d", a.activeView)
	}
	if !containsString(a.View(), "Settings") {
		t.Fatal("settings view should render its title")
	}

	a = update(a, tea.KeyMsg{Type: tea.KeyTab})
	if a.activeView != viewTasks {
		t.Fatalf("tab should wrap to tasks, got %d", a.activeView)
	}
}

func TestAppHeaderContainsTabs(t *testing.T) {
	a := NewApp(Options{})
	a = update(a, tea.WindowSizeMsg{Width: 120, Height: 40})
	header := a.renderHeader()
	for _, name := range viewNames {
		if !containsString(header, name) {
			t.Fatalf("header missing tab %q", name)
		}
	}
}

func TestAppHelpToggle(t *testing.T) {
	a := NewApp(Options{})
	a = update(a, runeKey("?"))
	if !a.showHelp || !a.help.ShowAll {
		t.Fatal("? should expand the help")
	}
	a = update(a, runeKey("?"))
	if a.showHelp {
		t.Fatal("? should collapse the help again")
	}
}

// ============================================================
// Task forms
// ============================================================

func TestAppCreateAndDeleteTask(t *testing.T) {
	st := newTestStore(t)
	a := loaded(t, newStoreApp(t, st))

	a = update(a, runeKey("n"))
	if a.form == nil || a.form.kind != formNewTask {
		t.Fatal("n should open the new-task form")
	}

	f := a.form
	*f.title = "Write release notes"
	*f.status = string(task.StatusDone)
	*f.points = "3"
	*f.labels = "docs, release"

	msg := a.createTask(f)()
	saved, ok := msg.(taskSavedMsg)
	if !ok {
		t.Fatalf("expected taskSavedMsg, got %#v", msg)
	}
	if saved.task.Key != "TASK-03-0001" {
		t.Fatalf("unexpected key %q", saved.task.Key)
	}
	if saved.task.ResolvedDate == nil || !saved.task.ResolvedDate.Equal(testNow) {
		t.Fatalf("done task should be resolved at creation, got %v", saved.task.ResolvedDate)
	}
	if len(saved.task.Labels) != 2 {
		t.Fatalf("expected 2 labels, got %v", saved.task.Labels)
	}

	a = update(a, saved)
	if !strings.Contains(a.status, "Created TASK-03-0001") {
		t.Fatalf("unexpected status %q", a.status)
	}

	msg = a.deleteTask(*saved.task)()
	if _, ok := msg.(taskDeletedMsg); !ok {
		t.Fatalf("expected taskDeletedMsg, got %#v", msg)
	}
	n, err := st.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected empty store after delete, got %d", n)
	}
}

func TestAppFormEscCancels(t *testing.T) {
	st := newTestStore(t)
	a := loaded(t, newStoreApp(t, st))
	a = update(a, runeKey("n"))
	a = update(a, escKey)
	if a.form != nil {
		t.Fatal("esc should close the form")
	}
}

func TestTaskFormBuildTask(t *testing.T) {
	f, _ := newTaskForm([]string{"Alice Smith"})
	if *f.assignee != "Alice Smith" {
		t.Fatalf("assignee should default to the first option, got %q", *f.assignee)
	}
	*f.title = "  Fix login  "
	*f.points = ""
	*f.estimate = "4.5"
	*f.components = "api,, web "

	got, err := f.buildTask()
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Fix login" {
		t.Fatalf("title should be trimmed, got %q", got.Title)
	}
	if got.StoryPoints != nil {
		t.Fatal("empty points should stay unset")
	}
	if got.TimeEstimated != 4.5 {
		t.Fatalf("expected estimate 4.5, got %v", got.TimeEstimated)
	}
	if len(got.Components) != 2 || got.Components[1] != "web" {
		t.Fatalf("unexpected components %v", got.Components)
	}
	if got.Status != task.DefaultStatus || got.Priority != task.DefaultPriority || got.Type != task.DefaultType {
		t.Fatal("enum fields should keep their defaults")
	}
}

func TestTaskFormRejectsBadInput(t *testing.T) {
	for _, tc := range []struct {
		name            string
		points, estimate string
	}{
		{"points too high", "21", "8"},
		{"points not a number", "many", "8"},
		{"zero estimate", "", "0"},
		{"estimate not a number", "", "soon"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f, _ := newTaskForm(nil)
			*f.title = "x"
			*f.points = tc.points
			*f.estimate = tc.estimate
			if _, err := f.buildTask(); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

// ============================================================
// Dashboard
// ============================================================

func newTestDashboard(n int) dashboardModel {
	d := newDashboardModel(10, []int{10, 20, 50})
	d.setSize(160, 40)
	d.setTasks(sampleTasks(n))
	return d
}

func press(d dashboardModel, msgs ...tea.Msg) dashboardModel {
	for _, m := range msgs {
		d, _ = d.update(m)
	}
	return d
}

func TestDashboardFilterToggle(t *testing.T) {
	d := newTestDashboard(12)

	d = press(d, runeKey("f"))
	if !d.filtering || !d.inputActive() {
		t.Fatal("f should open the filter picker")
	}
	// The first option is the first status.
	d = press(d, spaceKey)
	if got := d.state.Filters[view.ColStatus]; len(got) != 1 || got[0] != string(task.Statuses[0]) {
		t.Fatalf("unexpected status filter %v", got)
	}
	for _, r := range d.result.Rows {
		if r.Status != task.Statuses[0] {
			t.Fatalf("row %s has status %s", r.Key, r.Status)
		}
	}

	d = press(d, spaceKey)
	if len(d.state.Filters) != 0 {
		t.Fatal("second toggle should clear the filter")
	}

	d = press(d, escKey)
	if d.filtering {
		t.Fatal("esc should close the filter picker")
	}
}

func TestDashboardFilterOptionsIncludeAssignees(t *testing.T) {
	d := newTestDashboard(4)
	var names []string
	for _, o := range d.filterOptions {
		if o.col == view.ColAssignee {
			names = append(names, o.value)
		}
	}
	if len(names) != 2 || names[0] != "Alice Smith" || names[1] != "Bob Jones" {
		t.Fatalf("unexpected assignee options %v", names)
	}
}

func TestDashboardSortAndGroup(t *testing.T) {
	d := newTestDashboard(12)

	// Cursor starts on the key column.
	d = press(d, runeKey("s"))
	if sorted, desc := d.state.SortDirection(view.ColKey); !sorted || desc {
		t.Fatal("first s should sort key ascending")
	}
	d = press(d, runeKey("s"))
	if sorted, desc := d.state.SortDirection(view.ColKey); !sorted || !desc {
		t.Fatal("second s should sort key descending")
	}

	// Key is not groupable.
	d = press(d, runeKey("g"))
	if len(d.state.Group) != 0 {
		t.Fatal("key column should not group")
	}

	d = press(d, runeKey("l"), runeKey("l"))
	if c, _ := d.currentColumn(); c.ID != view.ColStatus {
		t.Fatalf("expected cursor on status, got %s", c.ID)
	}
	d = press(d, runeKey("g"))
	if len(d.state.Group) != 1 || d.state.Group[0] != view.ColStatus {
		t.Fatalf("expected grouping by status, got %v", d.state.Group)
	}
	headers := 0
	for _, rt := range d.rowTasks {
		if rt == nil {
			headers++
		}
	}
	if headers == 0 {
		t.Fatal("grouped table should contain group header rows")
	}

	d = press(d, runeKey("g"))
	if len(d.state.Group) != 0 {
		t.Fatal("g again should ungroup")
	}
}

func TestDashboardHideColumn(t *testing.T) {
	d := newTestDashboard(3)
	before := len(d.visibleColumns())
	d = press(d, runeKey("v"))
	if len(d.visibleColumns()) != before-1 {
		t.Fatal("v should hide the current column")
	}
	if len(d.exportColumns()) != before-1 {
		t.Fatal("export should follow visible columns")
	}
}

func TestDashboardPaging(t *testing.T) {
	d := newTestDashboard(25)
	if d.result.PageCount != 3 {
		t.Fatalf("expected 3 pages, got %d", d.result.PageCount)
	}

	d = press(d, runeKey("]"), runeKey("]"), runeKey("]"))
	if d.state.PageIndex != 2 {
		t.Fatalf("paging should stop at the last page, got %d", d.state.PageIndex)
	}
	if len(d.result.Page) != 5 {
		t.Fatalf("last page should hold 5 rows, got %d", len(d.result.Page))
	}
	if len(d.exportRows()) != 25 {
		t.Fatalf("export should include every filtered row, got %d", len(d.exportRows()))
	}

	d = press(d, runeKey("["))
	if d.state.PageIndex != 1 {
		t.Fatalf("expected page 1, got %d", d.state.PageIndex)
	}

	d = press(d, runeKey("z"))
	if d.state.PageSize != 20 || d.state.PageIndex != 0 {
		t.Fatalf("z should advance page size and reset the page, got size %d page %d", d.state.PageSize, d.state.PageIndex)
	}
}

func TestNextPageSizeWraps(t *testing.T) {
	if got := nextPageSize([]int{10, 20}, 20); got != 10 {
		t.Fatalf("expected wrap to 10, got %d", got)
	}
	if got := nextPageSize([]int{10, 20}, 15); got != 20 {
		t.Fatalf("expected 20, got %d", got)
	}
}

func TestDashboardSearch(t *testing.T) {
	d := newTestDashboard(12)
	d = press(d, runeKey("/"))
	if !d.searching {
		t.Fatal("/ should start searching")
	}
	d = press(d, runeKey("number 1"))
	if d.state.Search != "number 1" {
		t.Fatalf("unexpected search %q", d.state.Search)
	}
	// "Task number 1", 10 and 11
	if d.result.Total != 3 {
		t.Fatalf("expected 3 matches, got %d", d.result.Total)
	}

	d = press(d, enterKey)
	if d.searching || d.state.Search == "" {
		t.Fatal("enter should keep the search and leave input mode")
	}

	d = press(d, runeKey("x"))
	if d.state.Search != "" || d.result.Total != 12 {
		t.Fatal("x should clear search and filters")
	}
}

func TestDashboardViewEmpty(t *testing.T) {
	d := newDashboardModel(10, nil)
	d.setSize(120, 30)
	if !containsString(d.view(), "No tasks match") {
		t.Fatal("empty dashboard should say so")
	}
}

// ============================================================
// Reports
// ============================================================

func TestReportsModeSwitch(t *testing.T) {
	r := newReportsModel()
	r.setSize(120, 40)
	r.setTasks(sampleTasks(9))

	if r.mode != reportStatus {
		t.Fatal("reports should open on the status chart")
	}
	r, _ = r.update(runeKey("l"))
	if r.mode != reportProductivity {
		t.Fatalf("expected productivity, got %d", r.mode)
	}
	r, _ = r.update(spaceKey)
	if !r.points {
		t.Fatal("space should switch productivity to points")
	}
	r, _ = r.update(runeKey("l"))
	r, _ = r.update(runeKey("l"))
	if r.mode != reportStatus {
		t.Fatalf("mode should wrap, got %d", r.mode)
	}
	r, _ = r.update(runeKey("h"))
	if r.mode != reportMonthly {
		t.Fatalf("h should go back to monthly, got %d", r.mode)
	}
	if !containsString(r.view(), "Avg days") {
		t.Fatal("monthly view should render its table")
	}
}

func TestReportsEmpty(t *testing.T) {
	r := newReportsModel()
	r.setSize(100, 30)
	r.setTasks(nil)
	if !containsString(r.view(), "No tasks to summarize") {
		t.Fatal("empty reports should say so")
	}
}

// ============================================================
// Export
// ============================================================

func TestAppExportToLocalSink(t *testing.T) {
	dir := t.TempDir()
	sink, err := storage.NewLocal(dir)
	if err != nil {
		t.Fatal(err)
	}
	a := NewApp(Options{
		Loader: source.NewLoader(nil, "", demoGenerator(), testLogger()),
		Sink:   sink,
		Now:    func() time.Time { return testNow },
	})
	a = loaded(t, a)

	for _, f := range export.Formats {
		msg := a.doExport(f)()
		done, ok := msg.(exportDoneMsg)
		if !ok {
			t.Fatalf("%s: expected exportDoneMsg, got %#v", f, msg)
		}
		name := export.Filename(a.prefs.ExportPrefix, string(f), testNow)
		if !strings.HasSuffix(done.path, name) {
			t.Fatalf("%s: unexpected path %q", f, done.path)
		}
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("%s: export file missing: %v", f, err)
		}
	}
}

func TestAppExportPickerNavigation(t *testing.T) {
	a := NewApp(Options{})
	a = update(a, runeKey("e"))
	if !a.exportPicking {
		t.Fatal("e should open the export picker")
	}
	a = update(a, runeKey("j"))
	a = update(a, runeKey("j"))
	if a.exportCursor != 2 {
		t.Fatalf("expected cursor 2, got %d", a.exportCursor)
	}
	a = update(a, escKey)
	if a.exportPicking {
		t.Fatal("esc should close the export picker")
	}
}

func TestAppExportWithoutSink(t *testing.T) {
	a := NewApp(Options{})
	msg := a.doExport(export.FormatCSV)()
	if st, ok := msg.(statusMsg); !ok || !st.isError {
		t.Fatalf("expected error status, got %#v", msg)
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsSavePersists(t *testing.T) {
	st := newTestStore(t)
	s := newSettingsModel(st)
	*s.formPageSize = " 50 "
	*s.formPrefix = "weekly"

	msg := s.save()()
	saved, ok := msg.(settingsSavedMsg)
	if !ok {
		t.Fatalf("expected settingsSavedMsg, got %#v", msg)
	}
	if saved.pageSize != 50 || saved.prefix != "weekly" {
		t.Fatalf("unexpected saved values %+v", saved)
	}

	all, err := st.GetAllSettings(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	size, prefix, ok := overrides(all)
	if !ok || size != 50 || prefix != "weekly" {
		t.Fatalf("overrides = %d %q %v", size, prefix, ok)
	}
}

func TestAppAppliesStoredSettings(t *testing.T) {
	st := newTestStore(t)
	a := newStoreApp(t, st)
	a = update(a, settingsDataMsg{settings: []store.Setting{
		{Key: SettingPageSize, Value: "15"},
		{Key: SettingExportPrefix, Value: "board"},
		{Key: store.SettingSeedSource, Value: "generator"},
	}})
	if a.dashboard.state.PageSize != 15 {
		t.Fatalf("expected page size 15, got %d", a.dashboard.state.PageSize)
	}
	if a.prefs.ExportPrefix != "board" || a.settings.prefix != "board" {
		t.Fatalf("expected prefix board, got %q", a.prefs.ExportPrefix)
	}
	if a.settings.settings == nil {
		t.Fatal("settings view should receive the stored settings")
	}
}

func TestOverridesIgnoresBadValues(t *testing.T) {
	_, _, ok := overrides([]store.Setting{{Key: SettingPageSize, Value: "-3"}})
	if ok {
		t.Fatal("negative page size should be ignored")
	}
}

func TestValidatePageSize(t *testing.T) {
	if validatePageSize("20") != nil {
		t.Fatal("20 should be valid")
	}
	if validatePageSize("0") == nil || validatePageSize("x") == nil {
		t.Fatal("0 and x should be rejected")
	}
}

// ============================================================
// Helpers
// ============================================================

func TestFormatHelpers(t *testing.T) {
	if got := formatHours(2.25); got != "2.2h" && got != "2.3h" {
		t.Fatalf("formatHours = %q", got)
	}
	if got := formatPoints(nil); got != "—" {
		t.Fatalf("formatPoints(nil) = %q", got)
	}
	five := 5
	if got := formatPoints(&five); got != "5" {
		t.Fatalf("formatPoints(5) = %q", got)
	}
	if got := formatPercent(49.6); got != "50%" {
		t.Fatalf("formatPercent = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hell…"},
		{"hello", 1, "…"},
		{"héllo", 3, "hé…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestKeyMapHelp(t *testing.T) {
	if len(keys.ShortHelp()) == 0 {
		t.Fatal("short help should not be empty")
	}
	if len(keys.FullHelp()) == 0 {
		t.Fatal("full help should not be empty")
	}
}

func TestStylesRender(t *testing.T) {
	for _, s := range task.Statuses {
		if statusStyle(s).Render(string(s)) == "" {
			t.Fatalf("status style for %s rendered nothing", s)
		}
	}
	if demoBannerStyle.Render("DEMO") == "" {
		t.Fatal("demo banner rendered nothing")
	}
}

func containsString(s, substr string) bool {
	return len(s) > 0 && len(substr) > 0 && strings.Contains(s, substr)
}
