package commands

import (
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command: print the benchmark catalog.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured benchmarks and their revision labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, envErr := loadEnvironment(cmd)
			if envErr != nil {
				return envErr
			}

			names := make([]string, 0, len(env.cfg.Benches))
			for name := range env.cfg.Benches {
				names = append(names, name)
			}

			sort.Strings(names)

			writer := table.NewWriter()
			writer.SetOutputMirror(cmd.OutOrStdout())
			writer.AppendHeader(table.Row{"Benchmark", "Label", "Revision", "Entry Point", "Description"})

			for _, name := range names {
				bench := env.cfg.Benches[name]

				labels := make([]string, 0, len(bench.Benches))
				for label := range bench.Benches {
					labels = append(labels, label)
				}

				sort.Strings(labels)

				for _, label := range labels {
					series := bench.Benches[label]
					writer.AppendRow(table.Row{name, label, series.Commit,
						series.BenchFunction, bench.Description})
				}
			}

			writer.SetStyle(table.StyleLight)
			writer.Render()

			return nil
		},
	}
}
