package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/taskboard/internal/store"
)

// Session preferences the settings screen persists next to the seed
// bookkeeping in the store's settings table.
const (
	SettingPageSize     = "page_size"
	SettingExportPrefix = "export_prefix"
)

// SettingsStore is the part of the store the settings screen needs. It is
// nil when the dashboard reads from a remote API.
type SettingsStore interface {
	GetAllSettings(ctx context.Context) ([]store.Setting, error)
	SetSetting(ctx context.Context, key, value string) error
}

type settingsModel struct {
	store  SettingsStore
	width  int
	height int

	settings   []store.Setting
	origin     string
	demo       bool
	loadErr    error
	pageSize   int
	prefix     string
	sinkTarget string

	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	formPageSize *string
	formPrefix   *string
}

func newSettingsModel(s SettingsStore) settingsModel {
	ps, pre := "", ""
	return settingsModel{
		store:        s,
		formPageSize: &ps,
		formPrefix:   &pre,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
}

type settingsSavedMsg struct {
	pageSize int
	prefix   string
}

func (s settingsModel) refresh() tea.Cmd {
	if s.store == nil {
		return nil
	}
	return func() tea.Msg {
		settings, err := s.store.GetAllSettings(context.Background())
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Settings error: %v", err), isError: true}
		}
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Enter) {
			return s.showForm()
		}
	}
	return s, nil
}

func validatePageSize(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return errors.New("page size must be a positive integer")
	}
	return nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.formPageSize = strconv.Itoa(s.pageSize)
	*s.formPrefix = s.prefix

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Rows per page").Value(s.formPageSize).Validate(validatePageSize),
			huh.NewInput().Title("Export file prefix").Value(s.formPrefix),
		).Title("Dashboard"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.form = nil
		return s, s.save()
	}

	return s, cmd
}

func (s settingsModel) save() tea.Cmd {
	size, _ := strconv.Atoi(strings.TrimSpace(*s.formPageSize))
	prefix := strings.TrimSpace(*s.formPrefix)
	st := s.store
	return func() tea.Msg {
		if st != nil {
			ctx := context.Background()
			if err := st.SetSetting(ctx, SettingPageSize, strconv.Itoa(size)); err != nil {
				return statusMsg{text: fmt.Sprintf("Settings error: %v", err), isError: true}
			}
			if err := st.SetSetting(ctx, SettingExportPrefix, prefix); err != nil {
				return statusMsg{text: fmt.Sprintf("Settings error: %v", err), isError: true}
			}
		}
		return settingsSavedMsg{pageSize: size, prefix: prefix}
	}
}

// overrides returns the dashboard preferences stored in the settings table.
func overrides(settings []store.Setting) (pageSize int, prefix string, ok bool) {
	for _, st := range settings {
		switch st.Key {
		case SettingPageSize:
			if n, err := strconv.Atoi(st.Value); err == nil && n > 0 {
				pageSize, ok = n, true
			}
		case SettingExportPrefix:
			prefix, ok = st.Value, true
		}
	}
	return pageSize, prefix, ok
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	row := func(k, v string) string {
		label := lipgloss.NewStyle().Width(24).Render(k)
		return fmt.Sprintf("  %s %s", label, highlightStyle.Render(v))
	}

	rows := []string{title, "", subtitleStyle.Render("Data")}
	origin := s.origin
	if s.demo {
		origin += warningStyle.Render(" (generated demo data)")
	}
	rows = append(rows, row("source", origin))
	if s.loadErr != nil {
		rows = append(rows, row("last error", errorStyle.Render(s.loadErr.Error())))
	}
	for _, st := range s.settings {
		if st.Key == SettingPageSize || st.Key == SettingExportPrefix {
			continue
		}
		rows = append(rows, row(st.Key, st.Value))
	}

	rows = append(rows, "", subtitleStyle.Render("Dashboard"))
	rows = append(rows, row("rows per page", strconv.Itoa(s.pageSize)))
	rows = append(rows, row("export prefix", s.prefix))
	rows = append(rows, row("exports go to", s.sinkTarget))

	rows = append(rows, "", mutedStyle.Render("Press enter to edit"))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
