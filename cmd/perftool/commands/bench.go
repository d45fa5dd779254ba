package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/0xmozak/perftool/internal/observability"
	"github.com/0xmozak/perftool/internal/orchestrator"
)

const benchArgCount = 3

// NewBenchCommand creates the bench command: build every revision, then
// sample continuously until interrupted or the sample budget runs out.
func NewBenchCommand() *cobra.Command {
	var (
		samples     int
		jobs        int
		onError     string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "bench <benchmark> <min> <max>",
		Short: "Continuously benchmark a benchmark over a parameter range",
		Long: `Bench builds every labelled revision of the benchmark, then loops: pick a
revision at random, draw a parameter in [min, max), run one benchmark
invocation, and append the measurement to the revision's table. Interrupt
with Ctrl-C; everything appended so far stays on disk.`,
		Args: cobra.ExactArgs(benchArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, envErr := loadEnvironment(cmd)
			if envErr != nil {
				return envErr
			}

			bench, benchErr := env.resolveBench(args[0])
			if benchErr != nil {
				return benchErr
			}

			minValue, maxValue, rangeErr := parseRange(args[1], args[2])
			if rangeErr != nil {
				return rangeErr
			}

			policy, policyErr := orchestrator.ParseErrorPolicy(onError)
			if policyErr != nil {
				return policyErr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			metrics := observability.NewMetrics()

			if metricsAddr != "" {
				go func() {
					serveErr := metrics.Serve(ctx, metricsAddr)
					if serveErr != nil {
						slog.Error("metrics listener failed", "error", serveErr)
					}
				}()
			}

			orc := newOrchestrator(env, args[0], bench, metrics)
			orc.Policy = policy
			orc.MaxSamples = samples

			if jobs > 0 {
				orc.Jobs = jobs
			}

			color.Cyan("Benchmarking %s over [%g, %g)...", args[0], minValue, maxValue)

			runErr := orc.Run(ctx, minValue, maxValue)
			if runErr != nil {
				return runErr
			}

			color.Green("Sampling finished.")

			return nil
		},
	}

	cmd.Flags().IntVarP(&samples, "samples", "n", 0, "stop after this many samples (0 = until interrupted)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "parallel builds (defaults to the configured value)")
	cmd.Flags().StringVar(&onError, "on-error", string(orchestrator.FailOnSampleError),
		"what a failed sample does to the run (fail or skip)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address")

	return cmd
}

// parseRange parses the sampling bounds and rejects an empty interval.
func parseRange(minArg, maxArg string) (float64, float64, error) {
	minValue, minErr := strconv.ParseFloat(minArg, 64)
	if minErr != nil {
		return 0, 0, fmt.Errorf("invalid min %q: %w", minArg, minErr)
	}

	maxValue, maxErr := strconv.ParseFloat(maxArg, 64)
	if maxErr != nil {
		return 0, 0, fmt.Errorf("invalid max %q: %w", maxArg, maxErr)
	}

	if minValue >= maxValue {
		return 0, 0, fmt.Errorf("empty parameter range [%g, %g)", minValue, maxValue)
	}

	return minValue, maxValue, nil
}
