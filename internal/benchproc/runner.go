// Package benchproc runs the built target's benchmark entry point as a
// subprocess and extracts one numeric result from its stdout. This is the
// only place where process output crosses into structured data; the rest of
// the system sees a parsed float or an error.
package benchproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"time"
)

// DefaultTimeout bounds one benchmark invocation.
const DefaultTimeout = 5 * time.Minute

// defaultTool is the build/run toolchain binary.
const defaultTool = "cargo"

// stderrTailLimit bounds how much captured stderr travels with an error.
const stderrTailLimit = 2048

// ErrBenchFailed is returned when the benchmark subprocess exits non-zero or
// times out.
var ErrBenchFailed = errors.New("benchmark invocation failed")

// ErrOutputParse is returned when the subprocess succeeds but prints no
// numeric result. Distinct from ErrBenchFailed: it signals a benchmark
// protocol violation, not a transient process failure.
var ErrOutputParse = errors.New("no numeric result in benchmark output")

// resultPattern extracts the first decimal number from stdout. The benchmark
// protocol only promises that one appears somewhere in the output.
var resultPattern = regexp.MustCompile(`\d+\.\d+|\d+`)

// ParseError carries the stdout that failed to yield a number.
type ParseError struct {
	EntryPoint string
	Stdout     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bench %s: no numeric result in output %q", e.EntryPoint, tail(e.Stdout, stderrTailLimit))
}

func (e *ParseError) Unwrap() error {
	return ErrOutputParse
}

// Runner invokes benchmark entry points. Tool is the toolchain binary,
// overridable in tests.
type Runner struct {
	Tool    string
	Timeout time.Duration
}

// NewRunner creates a Runner with the given invocation timeout. A zero
// timeout selects DefaultTimeout.
func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Runner{Tool: defaultTool, Timeout: timeout}
}

// Run executes the benchmark entry point with one parameter, working
// directory set to dir, and returns the first decimal number found in its
// stdout. stderr does not carry the metric by protocol; it is captured only
// for error diagnostics.
func (r *Runner) Run(ctx context.Context, entryPoint string, parameter float64, dir string) (float64, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	arg := strconv.FormatFloat(parameter, 'g', -1, 64)

	cmd := exec.CommandContext(runCtx, r.Tool, "run", "--release", "bench", entryPoint, arg)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w: bench %s timed out after %s", ErrBenchFailed, entryPoint, r.Timeout)
		}

		return 0, fmt.Errorf("%w: bench %s: %v: %s",
			ErrBenchFailed, entryPoint, runErr, tail(stderr.String(), stderrTailLimit))
	}

	match := resultPattern.FindString(stdout.String())
	if match == "" {
		return 0, &ParseError{EntryPoint: entryPoint, Stdout: stdout.String()}
	}

	value, parseErr := strconv.ParseFloat(match, 64)
	if parseErr != nil {
		return 0, &ParseError{EntryPoint: entryPoint, Stdout: stdout.String()}
	}

	return value, nil
}

func tail(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	return "..." + s[len(s)-limit:]
}
