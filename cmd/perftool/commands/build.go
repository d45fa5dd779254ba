package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/0xmozak/perftool/internal/benchproc"
	"github.com/0xmozak/perftool/internal/buildtool"
	"github.com/0xmozak/perftool/internal/config"
	"github.com/0xmozak/perftool/internal/observability"
	"github.com/0xmozak/perftool/internal/orchestrator"
	"github.com/0xmozak/perftool/internal/revision"
)

// NewBuildCommand creates the build command: materialize and build every
// revision of one benchmark without sampling.
func NewBuildCommand() *cobra.Command {
	var jobs int

	cmd := &cobra.Command{
		Use:   "build <benchmark>",
		Short: "Materialize and build every revision of a benchmark",
		Long: `Build resolves each labelled revision of the benchmark, materializes it as
an isolated worktree, runs the build tool in its cli directory, and records
the build link. Already materialized revisions are reused.`,
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

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orc := newOrchestrator(env, args[0], bench, observability.NewMetrics())
			if jobs > 0 {
				orc.Jobs = jobs
			}

			color.Cyan("Building %s (%d revisions)...", args[0], len(bench.Benches))

			buildErr := orc.Build(ctx)
			if buildErr != nil {
				return buildErr
			}

			color.Green("Build complete.")

			return nil
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "parallel builds (defaults to the configured value)")

	return cmd
}

// newOrchestrator assembles the run-time collaborators for one benchmark.
func newOrchestrator(
	env *environment,
	name string,
	bench config.Bench,
	metrics *observability.Metrics,
) *orchestrator.Orchestrator {
	store := revision.NewStore(env.cfg.Repo, env.layout)
	builder := buildtool.NewBuilder()
	runner := benchproc.NewRunner(env.cfg.BenchTimeoutDuration())

	return orchestrator.New(env.cfg, name, bench, env.layout, store, builder, runner, metrics)
}
