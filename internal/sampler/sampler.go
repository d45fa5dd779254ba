// Package sampler produces lazy, infinite sequences of benchmark input
// parameters bounded to a configured range. Samplers hold no state beyond
// their RNG, so one can be created per (benchmark, label) pair without
// shared mutable state.
package sampler

import (
	"log/slog"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultMaxRetries caps the rejection loop of the log-normal sampler before
// it falls back to a uniform draw.
const DefaultMaxRetries = 1000

// Sampler draws one parameter value per call, indefinitely.
type Sampler interface {
	Next() float64
}

// Uniform draws uniformly at random in [min, max).
type Uniform struct {
	min, max float64
	rng      *rand.Rand
}

// NewUniform creates a uniform sampler over [min, max). A nil src seeds a
// fresh PCG from the global generator.
func NewUniform(minValue, maxValue float64, src rand.Source) *Uniform {
	return &Uniform{
		min: minValue,
		max: maxValue,
		rng: rand.New(sourceOrSeed(src)),
	}
}

// Next returns a value v with min <= v < max.
func (u *Uniform) Next() float64 {
	return u.min + u.rng.Float64()*(u.max-u.min)
}

// LogNormal draws from a log-normal distribution centered at a configured
// mean, rejection-sampled to fall strictly inside (min, max). The underlying
// distribution has unbounded support, so the rejection loop is capped: after
// maxRetries rejections the draw falls back to uniform and a configuration
// warning is logged.
type LogNormal struct {
	min, max   float64
	maxRetries int
	dist       distuv.LogNormal
	fallback   *Uniform
	log        *slog.Logger
}

// NewLogNormal creates a log-normal sampler over (min, max) centered at mean
// with the given shape parameter sigma.
func NewLogNormal(minValue, maxValue, mean, sigma float64, maxRetries int, src rand.Source) *LogNormal {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	seeded := sourceOrSeed(src)

	return &LogNormal{
		min:        minValue,
		max:        maxValue,
		maxRetries: maxRetries,
		dist: distuv.LogNormal{
			Mu:    math.Log(mean),
			Sigma: sigma,
			Src:   seeded,
		},
		fallback: NewUniform(minValue, maxValue, seeded),
		log:      slog.Default(),
	}
}

// Next returns a value v with min <= v < max.
func (l *LogNormal) Next() float64 {
	for range l.maxRetries {
		v := l.dist.Rand()
		if v > l.min && v < l.max {
			return v
		}
	}

	// Pathological configuration (mean far outside the range) starves the
	// rejection loop; surface it and keep the in-range contract.
	l.log.Warn("sampler configuration warning: rejection cap hit, falling back to uniform draw",
		"min", l.min, "max", l.max, "mean", math.Exp(l.dist.Mu), "retries", l.maxRetries)

	return l.fallback.Next()
}

func sourceOrSeed(src rand.Source) rand.Source {
	if src != nil {
		return src
	}

	return rand.NewPCG(rand.Uint64(), rand.Uint64())
}
