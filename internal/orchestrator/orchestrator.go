// Package orchestrator wires revision materialization, building, sampling,
// benchmarking and measurement persistence into one cancellable run per
// benchmark. The loop is sequential on purpose: one benchmark subprocess in
// flight at a time keeps timing measurements honest on shared hardware.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/0xmozak/perftool/internal/benchproc"
	"github.com/0xmozak/perftool/internal/buildtool"
	"github.com/0xmozak/perftool/internal/config"
	"github.com/0xmozak/perftool/internal/measure"
	"github.com/0xmozak/perftool/internal/observability"
	"github.com/0xmozak/perftool/internal/revision"
	"github.com/0xmozak/perftool/internal/sampler"
	"github.com/0xmozak/perftool/internal/workspace"
)

// State names the phases of one benchmark run.
type State string

// Run states.
const (
	StateIdle     State = "idle"
	StateBuilding State = "building"
	StateSampling State = "sampling"
	StateStopped  State = "stopped"
	StateFailed   State = "failed"
)

// ErrorPolicy decides what a benchmark failure inside the sampling loop does.
type ErrorPolicy string

// Sampling-loop error policies. Fail-fast is the default: a mis-measurement
// is a design signal, not noise. Skip logs and keeps sampling.
const (
	FailOnSampleError ErrorPolicy = "fail"
	SkipOnSampleError ErrorPolicy = "skip"
)

// ParseErrorPolicy validates a policy name from a flag.
func ParseErrorPolicy(name string) (ErrorPolicy, error) {
	switch ErrorPolicy(name) {
	case FailOnSampleError, SkipOnSampleError:
		return ErrorPolicy(name), nil
	default:
		return "", fmt.Errorf("unknown sample error policy %q (want %q or %q)",
			name, FailOnSampleError, SkipOnSampleError)
	}
}

// pair is one (label, revision) comparison series with its run-time
// collaborators.
type pair struct {
	label   string
	series  config.Series
	workDir string
	sampler sampler.Sampler
	table   *measure.Table
}

// Orchestrator drives one benchmark run.
type Orchestrator struct {
	cfg       *config.Config
	benchName string
	bench     config.Bench
	layout    workspace.Layout
	store     *revision.Store
	builder   *buildtool.Builder
	runner    *benchproc.Runner
	metrics   *observability.Metrics
	log       *slog.Logger

	// Policy controls what a single failed sample does to the run.
	Policy ErrorPolicy

	// MaxSamples bounds the loop; zero means sample until cancelled.
	MaxSamples int

	// Jobs bounds build-phase parallelism across labels.
	Jobs int

	state State
	rng   *rand.Rand
}

// New creates an orchestrator for one benchmark.
func New(
	cfg *config.Config,
	benchName string,
	bench config.Bench,
	layout workspace.Layout,
	store *revision.Store,
	builder *buildtool.Builder,
	runner *benchproc.Runner,
	metrics *observability.Metrics,
) *Orchestrator {
	jobs := cfg.Jobs
	if jobs < 1 {
		jobs = 1
	}

	return &Orchestrator{
		cfg:       cfg,
		benchName: benchName,
		bench:     bench,
		layout:    layout,
		store:     store,
		builder:   builder,
		runner:    runner,
		metrics:   metrics,
		log:       slog.Default(),
		Policy:    FailOnSampleError,
		Jobs:      jobs,
		state:     StateIdle,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// State returns the current run state.
func (o *Orchestrator) State() State {
	return o.state
}

// labels returns the comparison set in deterministic order.
func (o *Orchestrator) labels() []string {
	labels := make([]string, 0, len(o.bench.Benches))
	for label := range o.bench.Benches {
		labels = append(labels, label)
	}

	sort.Strings(labels)

	return labels
}

// Build materializes and builds every (label, revision) in the comparison
// set. Any failure fails the whole run and names the label: a silently
// skipped revision would produce misleadingly sparse comparison data.
func (o *Orchestrator) Build(ctx context.Context) error {
	o.state = StateBuilding

	dirsErr := o.layout.EnsureBenchDirs(o.benchName)
	if dirsErr != nil {
		o.state = StateFailed

		return dirsErr
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.Jobs)

	for _, label := range o.labels() {
		series := o.bench.Benches[label]

		group.Go(func() error {
			buildErr := o.buildOne(groupCtx, label, series)
			if buildErr != nil {
				return fmt.Errorf("build %s/%s: %w", o.benchName, label, buildErr)
			}

			return nil
		})
	}

	waitErr := group.Wait()
	if waitErr != nil {
		o.state = StateFailed

		return waitErr
	}

	o.log.Info("benchmark built", "bench", o.benchName, "labels", len(o.bench.Benches))

	return nil
}

func (o *Orchestrator) buildOne(ctx context.Context, label string, series config.Series) error {
	worktree, materializeErr := o.store.EnsureMaterialized(ctx, series.Commit)
	if materializeErr != nil {
		return fmt.Errorf("materialize: %w", materializeErr)
	}

	retainErr := o.store.Retain(o.benchName, label, series.Commit)
	if retainErr != nil {
		return fmt.Errorf("retain: %w", retainErr)
	}

	buildErr := o.builder.Build(ctx, workspace.CLIDir(worktree))
	if buildErr != nil {
		return buildErr
	}

	if series.ELF != "" {
		elfErr := o.builder.BuildELF(ctx, worktree, series.ELF)
		if elfErr != nil {
			return fmt.Errorf("guest elf: %w", elfErr)
		}
	}

	return nil
}

// Run executes the full state machine: build every revision, open every
// measurement table, then sample until cancelled, a failure (under the fail
// policy), or MaxSamples. Cancellation is checked once per iteration
// boundary; everything appended before it stays valid, no rollback exists.
func (o *Orchestrator) Run(ctx context.Context, minValue, maxValue float64) error {
	buildErr := o.Build(ctx)
	if buildErr != nil {
		return buildErr
	}

	pairs, openErr := o.openPairs(ctx, minValue, maxValue)
	if openErr != nil {
		o.state = StateFailed

		return openErr
	}

	defer closePairs(pairs)

	o.state = StateSampling
	o.log.Info("sampling started", "bench", o.benchName,
		"min", minValue, "max", maxValue, "policy", o.Policy)

	return o.sampleLoop(ctx, pairs)
}

// openPairs opens every table before the loop starts, so a schema conflict
// is caught before any time is spent sampling.
func (o *Orchestrator) openPairs(ctx context.Context, minValue, maxValue float64) ([]*pair, error) {
	schema := measure.Schema{Parameter: o.bench.Parameter, Output: o.bench.Output}
	pairs := make([]*pair, 0, len(o.bench.Benches))

	for _, label := range o.labels() {
		series := o.bench.Benches[label]

		worktree, materializeErr := o.store.EnsureMaterialized(ctx, series.Commit)
		if materializeErr != nil {
			closePairs(pairs)

			return nil, fmt.Errorf("materialize %s/%s: %w", o.benchName, label, materializeErr)
		}

		table, tableErr := measure.OpenOrInit(o.layout.TableFile(o.benchName, label), schema)
		if tableErr != nil {
			closePairs(pairs)

			return nil, fmt.Errorf("open table %s/%s: %w", o.benchName, label, tableErr)
		}

		pairs = append(pairs, &pair{
			label:   label,
			series:  series,
			workDir: workspace.CLIDir(worktree),
			sampler: o.newSampler(minValue, maxValue),
			table:   table,
		})
	}

	return pairs, nil
}

func (o *Orchestrator) newSampler(minValue, maxValue float64) sampler.Sampler {
	if o.cfg.Sampler.Policy == config.PolicyLogNormal {
		return sampler.NewLogNormal(minValue, maxValue,
			o.cfg.Sampler.Mean, o.cfg.Sampler.Sigma, o.cfg.Sampler.MaxRetries, nil)
	}

	return sampler.NewUniform(minValue, maxValue, nil)
}

func (o *Orchestrator) sampleLoop(ctx context.Context, pairs []*pair) error {
	count := 0

	for {
		select {
		case <-ctx.Done():
			o.state = StateStopped
			o.log.Info("sampling stopped", "bench", o.benchName, "samples", count)

			return nil
		default:
		}

		// Uniform random choice among pairs: over a long run every revision
		// accumulates comparable sample counts.
		p := pairs[o.rng.IntN(len(pairs))]

		sampleErr := o.sampleOnce(ctx, p)
		if sampleErr != nil {
			if ctx.Err() != nil {
				// The subprocess was interrupted by cancellation, not by a
				// genuine benchmark failure; nothing was appended.
				o.state = StateStopped

				return nil
			}

			o.metrics.Failures.WithLabelValues(o.benchName, p.label).Inc()

			if o.Policy == FailOnSampleError {
				o.state = StateFailed

				return fmt.Errorf("sample %s/%s: %w", o.benchName, p.label, sampleErr)
			}

			o.log.Warn("sample failed, skipping", "bench", o.benchName,
				"label", p.label, "error", sampleErr)

			continue
		}

		count++

		if o.MaxSamples > 0 && count >= o.MaxSamples {
			o.state = StateStopped
			o.log.Info("sample budget reached", "bench", o.benchName, "samples", count)

			return nil
		}
	}
}

func (o *Orchestrator) sampleOnce(ctx context.Context, p *pair) error {
	parameter := p.sampler.Next()

	started := time.Now()

	metric, runErr := o.runner.Run(ctx, p.series.BenchFunction, parameter, p.workDir)
	if runErr != nil {
		return runErr
	}

	o.metrics.Duration.Observe(time.Since(started).Seconds())

	appendErr := p.table.Append(parameter, metric)
	if appendErr != nil {
		return fmt.Errorf("append: %w", appendErr)
	}

	o.metrics.Samples.WithLabelValues(o.benchName, p.label).Inc()
	o.log.Info("sampled", "bench", o.benchName, "label", p.label,
		"parameter", parameter, "metric", metric)

	return nil
}

func closePairs(pairs []*pair) {
	for _, p := range pairs {
		if p.table != nil {
			_ = p.table.Close()
		}
	}
}
