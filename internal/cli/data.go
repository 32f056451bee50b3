package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sadopc/taskboard/internal/export"
	"github.com/sadopc/taskboard/internal/task"
)

func seedCmd(o *options) *cobra.Command {
	var (
		from string
		seed uint64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty database with tasks",
		Long: `Fill an empty database with a generated year of tasks, or with the
tasks of a YAML dataset written by 'taskboard generate' when --from is set.
A database that already holds tasks is left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := o.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			source := "generator"
			load := o.generator(seed, true).GenerateDataset
			if from != "" {
				source = from
				load = func() ([]task.Task, error) {
					data, err := os.ReadFile(from)
					if err != nil {
						return nil, fmt.Errorf("read dataset: %w", err)
					}
					return export.ParseYAML(data)
				}
			}

			n, err := st.SeedIfEmpty(cmd.Context(), source, load)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Database already has tasks, nothing seeded.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d tasks from %s.\n", n, source)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "YAML dataset to import instead of generating")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed for reproducible data (0 = random)")
	return cmd
}

func generateCmd(o *options) *cobra.Command {
	var (
		seed       uint64
		year       int
		out        string
		sequential bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a demo dataset as YAML",
		Long: `Generate a year of realistic demo tasks, at least 15 per month, and print
them as YAML. The output can be loaded back with 'taskboard seed --from'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("year") {
				o.prefs.GeneratorYear = year
				if err := o.prefs.Validate(); err != nil {
					return err
				}
			}
			tasks, err := o.generator(seed, sequential).GenerateDataset()
			if err != nil {
				return err
			}
			data, err := export.YAML(tasks)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d tasks to %s\n", len(tasks), out)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed for reproducible data (0 = random)")
	cmd.Flags().IntVar(&year, "year", 0, "reference year (overrides generator.year)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	cmd.Flags().BoolVar(&sequential, "sequential-keys", false, "number keys per month instead of randomly")
	return cmd
}
