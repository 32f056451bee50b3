// Package cli wires configuration, storage and the dashboards into the
// taskboard command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sadopc/taskboard/internal/clog"
	"github.com/sadopc/taskboard/internal/config"
	"github.com/sadopc/taskboard/internal/generate"
	"github.com/sadopc/taskboard/internal/random"
	"github.com/sadopc/taskboard/internal/source"
	"github.com/sadopc/taskboard/internal/storage"
	"github.com/sadopc/taskboard/internal/store"
	"github.com/sadopc/taskboard/internal/task"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// options are the persistent flags plus everything resolved from them
// before a command runs.
type options struct {
	dbPath    string
	configDir string
	apiURL    string

	env    *config.Env
	prefs  config.Preferences
	logger *slog.Logger
}

func NewRootCmd() *cobra.Command {
	o := &options{}
	var (
		demo    bool
		logFile string
	)

	root := &cobra.Command{
		Use:   "taskboard",
		Short: "Task statistics dashboard",
		Long: `taskboard shows a team's tasks as a searchable, filterable table with
status, productivity and monthly statistics.

Without a subcommand it opens the terminal dashboard on the local database,
or on a running API when --api-url is set. When neither can be read the
dashboard falls back to generated demo data.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.load(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), o, demo, logFile)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.dbPath, "db", "", "SQLite database path (default $TASKBOARD_DB_PATH or the user config dir)")
	pf.StringVar(&o.configDir, "config-dir", "", "directory holding taskboard.yaml (default the user config dir)")
	pf.StringVar(&o.apiURL, "api-url", "", "read tasks from a running taskboard API instead of the database")

	root.Flags().BoolVar(&demo, "demo", false, "show generated demo data only")
	root.Flags().StringVar(&logFile, "log-file", "", "write dashboard logs to this file")

	root.AddCommand(
		serveCmd(o),
		seedCmd(o),
		generateCmd(o),
		exportCmd(o),
		exportsCmd(o),
		statsCmd(o),
		versionCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taskboard %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
		},
	}
}

func (o *options) load(logOut io.Writer) error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	o.env = env
	if o.apiURL == "" {
		o.apiURL = env.APIURL
	}

	if o.configDir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			o.configDir = filepath.Join(dir, "taskboard")
		}
	}
	prefs, err := config.LoadPreferences(o.configDir)
	if err != nil {
		return err
	}
	o.prefs = prefs

	o.setLogger(logOut)
	return nil
}

func (o *options) setLogger(w io.Writer) {
	o.logger = clog.NewLogger(w, o.env.IsLocal(), o.env.SlogLevel())
	slog.SetDefault(o.logger)
}

func (o *options) databasePath() (string, error) {
	switch {
	case o.dbPath != "":
		return o.dbPath, nil
	case o.env.DBPath != "":
		return o.env.DBPath, nil
	}
	return store.DefaultDBPath()
}

func (o *options) openStore() (*store.Store, error) {
	path, err := o.databasePath()
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	o.logger.Debug("opened database", "path", path)
	return st, nil
}

// openSink opens the export sink. dir overrides STORAGE_BASE_DIR for local
// sinks; the home directory is the last fallback.
func (o *options) openSink(ctx context.Context, dir string) (storage.Storage, error) {
	opts := o.env.StorageOptions("")
	if dir != "" {
		opts.BaseDir = dir
	}
	if opts.BaseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve export directory: %w", err)
		}
		opts.BaseDir = home
	}
	return storage.Open(ctx, opts)
}

// generator builds the demo data generator from the preferences. A zero
// seed means a randomly seeded source.
func (o *options) generator(seed uint64, sequential bool) *generate.Generator {
	opts := []generate.Option{generate.WithYear(o.prefs.GeneratorYear)}
	if seed != 0 {
		opts = append(opts, generate.WithRand(random.NewSeeded(seed)))
	}
	if sequential || o.prefs.SequentialKeys {
		opts = append(opts, generate.WithSequentialKeys())
	}
	return generate.New(opts...)
}

// repository returns the task source the data commands read from: the
// remote API when configured, the local database otherwise. The returned
// close func is never nil.
func (o *options) repository() (task.Repository, string, func(), error) {
	if o.apiURL != "" {
		c, err := source.NewClient(o.apiURL, nil)
		if err != nil {
			return nil, "", func() {}, err
		}
		return c, source.OriginRemote, func() {}, nil
	}
	st, err := o.openStore()
	if err != nil {
		return nil, "", func() {}, err
	}
	return st, source.OriginStore, func() { st.Close() }, nil
}
