package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/sadopc/taskboard/internal/stats"
)

func statsCmd(o *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print status, productivity and monthly statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, origin, closeRepo, err := o.repository()
			if err != nil {
				return err
			}
			defer closeRepo()
			tasks, err := repo.LoadAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("load tasks from %s: %w", origin, err)
			}
			summary := stats.Summarize(tasks)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

func printSummary(w io.Writer, s stats.Summary) {
	fmt.Fprintf(w, "%d tasks\n\n", s.Total)
	if s.Total == 0 {
		return
	}

	total := max(1, s.Distribution.Total())
	dist := newTable("Status", "Tasks", "Share")
	for _, c := range s.Distribution {
		dist.Row(string(c.Status), strconv.Itoa(c.Count), fmt.Sprintf("%.0f%%", float64(c.Count)/float64(total)*100))
	}
	fmt.Fprintln(w, dist.String())

	prod := newTable("Assignee", "Done", "Points", "Task share", "Point share")
	for _, p := range s.Productivity {
		prod.Row(p.Assignee, strconv.Itoa(p.CompletedTasks), strconv.Itoa(p.CompletedStoryPoints),
			fmt.Sprintf("%.1f%%", p.TasksPercent), fmt.Sprintf("%.1f%%", p.PointsPercent))
	}
	fmt.Fprintln(w, prod.String())

	monthly := newTable("Month", "Tasks", "Done", "In progress", "Blocked", "Points", "Hours", "Avg days")
	for _, m := range s.Monthly {
		monthly.Row(m.Month, strconv.Itoa(m.TotalTasks), strconv.Itoa(m.CompletedTasks),
			strconv.Itoa(m.InProgressTasks), strconv.Itoa(m.BlockedTasks),
			fmt.Sprintf("%d/%d", m.CompletedStoryPoints, m.TotalStoryPoints),
			fmt.Sprintf("%.1f", m.TotalTimeSpent), fmt.Sprintf("%.1f", m.AverageResolutionDays))
	}
	fmt.Fprintln(w, monthly.String())
}
