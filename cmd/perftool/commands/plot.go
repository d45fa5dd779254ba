package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/0xmozak/perftool/internal/plotpage"
	"github.com/0xmozak/perftool/internal/report"
	"github.com/0xmozak/perftool/internal/workspace"
)

const plotFilePerm = 0o640

// NewPlotCommand creates the plot command: assemble the benchmark's measured
// series and render the comparison page.
func NewPlotCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "plot <benchmark>",
		Short: "Render a benchmark's trend comparison as a standalone HTML page",
		Long: `Plot reads every label's measurement table for the benchmark, fits a
least-squares line per label, and renders one scatter chart with fitted
overlays. The page is self-contained HTML.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, envErr := loadEnvironment(cmd)
			if envErr != nil {
				return envErr
			}

			bench, benchErr := env.resolveBench(args[0])
			if benchErr != nil {
				return benchErr
			}

			rep, assembleErr := report.NewAssembler(env.layout).Assemble(args[0], bench)
			if assembleErr != nil {
				return assembleErr
			}

			page := plotpage.NewPage(args[0], bench.Description)
			page.Add(plotpage.Section{
				Title:    args[0],
				Subtitle: fmt.Sprintf("%s vs %s, %d samples", bench.Output, bench.Parameter, rep.SampleCount),
				Chart:    plotpage.BenchChart(rep),
			})

			path := output
			if path == "" {
				path = env.layout.PlotFile(args[0])
			}

			mkErr := os.MkdirAll(filepath.Dir(path), workspace.DirPerm)
			if mkErr != nil {
				return fmt.Errorf("create plot dir: %w", mkErr)
			}

			file, createErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, plotFilePerm)
			if createErr != nil {
				return fmt.Errorf("create plot: %w", createErr)
			}
			defer file.Close()

			renderErr := page.Render(file)
			if renderErr != nil {
				return renderErr
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d samples).\n", path, rep.SampleCount)

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the page here instead of the plots directory")

	return cmd
}
