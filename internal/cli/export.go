package cli

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/taskboard/internal/export"
	"github.com/sadopc/taskboard/internal/storage"
	"github.com/sadopc/taskboard/internal/task"
	"github.com/sadopc/taskboard/internal/view"
)

type viewFlags struct {
	search     string
	statuses   []string
	priorities []string
	types      []string
	assignees  []string
	sort       []string
	hide       []string
}

func (f *viewFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.search, "search", "", "keep rows where a visible column contains this text")
	fl.StringSliceVar(&f.statuses, "status", nil, "keep these statuses (repeatable, comma-separated)")
	fl.StringSliceVar(&f.priorities, "priority", nil, "keep these priorities")
	fl.StringSliceVar(&f.types, "type", nil, "keep these task types")
	fl.StringSliceVar(&f.assignees, "assignee", nil, "keep these assignees")
	fl.StringSliceVar(&f.sort, "sort", nil, "sort columns, prefix with - for descending (e.g. -createdDate,key)")
	fl.StringSliceVar(&f.hide, "hide", nil, "columns to leave out")
}

// state turns the flags into a view state. Enum filters are parsed
// leniently so "in progress" and "In Progress" both work.
func (f *viewFlags) state(columns []view.Column) (view.State, error) {
	st := view.DefaultState().WithSearch(f.search)

	type enumFilter struct {
		col   view.ColumnID
		vals  []string
		parse func(string) (string, error)
	}
	filters := []enumFilter{
		{view.ColStatus, f.statuses, lenient(task.ParseStatus)},
		{view.ColPriority, f.priorities, lenient(task.ParsePriority)},
		{view.ColType, f.types, lenient(task.ParseType)},
		{view.ColAssignee, f.assignees, func(s string) (string, error) { return strings.TrimSpace(s), nil }},
	}
	for _, ef := range filters {
		var vals []string
		for _, raw := range ef.vals {
			v, err := ef.parse(raw)
			if err != nil {
				return st, err
			}
			vals = append(vals, v)
		}
		if len(vals) > 0 {
			st = st.WithFilter(ef.col, vals...)
		}
	}

	var keys []view.SortKey
	for _, raw := range f.sort {
		desc := strings.HasPrefix(raw, "-")
		c, ok := view.Lookup(columns, view.ColumnID(strings.TrimPrefix(raw, "-")))
		if !ok || !c.Sortable {
			return st, fmt.Errorf("cannot sort by %q", raw)
		}
		keys = append(keys, view.SortKey{Column: c.ID, Desc: desc})
	}
	st = st.WithSort(keys...)

	for _, raw := range f.hide {
		if _, ok := view.Lookup(columns, view.ColumnID(raw)); !ok {
			return st, fmt.Errorf("unknown column %q", raw)
		}
		st = st.ToggleColumn(view.ColumnID(raw))
	}
	return st, nil
}

func lenient[T ~string](parse func(string) (T, error)) func(string) (string, error) {
	return func(s string) (string, error) {
		v, err := parse(s)
		return string(v), err
	}
}

func exportCmd(o *options) *cobra.Command {
	var (
		format string
		out    string
		prefix string
		vf     viewFlags
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the filtered task view",
		Long: `Export every row of the filtered and sorted task view over the visible
columns. csv, json and yaml carry the rows; pdf is a statistics report over
all tasks. The file is named <prefix>-<YYYY-MM-DD>.<ext> and written to the
configured storage sink (local directory or S3).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			columns := view.DefaultColumns()
			st, err := vf.state(columns)
			if err != nil {
				return err
			}

			repo, _, closeRepo, err := o.repository()
			if err != nil {
				return err
			}
			defer closeRepo()
			tasks, err := repo.LoadAll(ctx)
			if err != nil {
				return fmt.Errorf("load tasks: %w", err)
			}
			res, err := view.Apply(tasks, columns, st)
			if err != nil {
				return err
			}

			sink, err := o.openSink(ctx, out)
			if err != nil {
				return err
			}
			if prefix == "" {
				prefix = o.prefs.ExportPrefix
			}
			name, err := export.Save(ctx, sink, prefix, export.Request{
				Format:  f,
				Rows:    res.Rows,
				Columns: export.ColumnsFor(st.Visible(columns)),
				All:     tasks,
				Now:     time.Now(),
			})
			if err != nil {
				return err
			}
			o.logger.InfoContext(ctx, "exported tasks", "format", f, "rows", len(res.Rows), "name", name)
			fmt.Fprintln(cmd.OutOrStdout(), storage.Describe(sink, name))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatCSV), "csv, json, yaml or pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "", "local directory to write to (overrides TASKBOARD_STORAGE_BASE_DIR)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "file name prefix (overrides export.prefix)")
	vf.register(cmd)
	return cmd
}

func exportsCmd(o *options) *cobra.Command {
	var (
		dir string
		all bool
	)
	cmd := &cobra.Command{
		Use:   "exports",
		Short: "Inspect written exports",
	}
	list := &cobra.Command{
		Use:   "list [dir]",
		Short: "List exports in the export sink",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sink, err := o.openSink(cmd.Context(), dir)
			if err != nil {
				return err
			}
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			listed, err := sink.List(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			var names []string
			for _, n := range listed {
				if all || strings.HasPrefix(path.Base(n), o.prefs.ExportPrefix+"-") {
					names = append(names, n)
				}
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No exports found.")
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
	list.Flags().StringVarP(&dir, "dir", "d", "", "local directory to list (overrides TASKBOARD_STORAGE_BASE_DIR)")
	list.Flags().BoolVarP(&all, "all", "a", false, "list every file, not only files named with the export prefix")
	cmd.AddCommand(list)
	return cmd
}
