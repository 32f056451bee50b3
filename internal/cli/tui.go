package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/taskboard/internal/clog"
	"github.com/sadopc/taskboard/internal/source"
	"github.com/sadopc/taskboard/internal/task"
	"github.com/sadopc/taskboard/internal/tui"
)

// runTUI opens the dashboard. The terminal belongs to Bubble Tea, so logs
// go to logFile or nowhere.
func runTUI(ctx context.Context, o *options, demo bool, logFile string) error {
	var logOut io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	o.logger = clog.NewLogger(logOut, o.env.IsLocal(), o.env.SlogLevel())

	gen := o.generator(0, false)

	var (
		repo     task.Repository
		origin   string
		settings tui.SettingsStore
	)
	switch {
	case demo:
	case o.apiURL != "":
		c, err := source.NewClient(o.apiURL, nil)
		if err != nil {
			return err
		}
		repo, origin = c, source.OriginRemote
	default:
		st, err := o.openStore()
		if err != nil {
			// The dashboard still works on demo data.
			o.logger.WarnContext(ctx, "database unavailable", "error", err)
			break
		}
		defer st.Close()
		seeder := o.generator(0, true)
		if n, err := st.SeedIfEmpty(ctx, "generator", seeder.GenerateDataset); err != nil {
			o.logger.WarnContext(ctx, "seeding failed", "error", err)
		} else if n > 0 {
			o.logger.InfoContext(ctx, "seeded empty database", "tasks", n)
		}
		repo, origin, settings = st, source.OriginStore, st
	}

	sink, err := o.openSink(ctx, "")
	if err != nil {
		o.logger.WarnContext(ctx, "export sink unavailable", "error", err)
		sink = nil
	}

	app := tui.NewApp(tui.Options{
		Loader:      source.NewLoader(repo, origin, gen.GenerateDataset, o.logger),
		Sink:        sink,
		Preferences: o.prefs,
		Settings:    settings,
		Logger:      o.logger,
	})
	if _, err := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}
