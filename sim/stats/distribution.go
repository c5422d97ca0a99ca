// Package stats provides the discrete samplers used by the engine. Every
// sampler takes the caller's *rand.Rand so draw order stays visible at the
// call site.
package stats

import (
	"math"
	"math/rand"
	"sort"
)

// knuthLimit is the largest mean sampled with Knuth's multiplication method.
const knuthLimit = 30.0

// Poisson draws a Poisson-distributed count with mean lambda.
// Non-positive or NaN means yield 0 without consuming randomness.
func Poisson(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 || math.IsNaN(lambda) {
		return 0
	}
	if lambda <= knuthLimit {
		return poissonKnuth(rng, lambda)
	}
	return poissonPTRS(rng, lambda)
}

func poissonKnuth(rng *rand.Rand, lambda float64) int {
	limit := math.Exp(-lambda)
	k := 0
	p := rng.Float64()
	for p > limit {
		k++
		p *= rng.Float64()
	}
	return k
}

// poissonPTRS is Hörmann's transformed rejection with squeeze, used for large means.
func poissonPTRS(rng *rand.Rand, lambda float64) int {
	slam := math.Sqrt(lambda)
	loglam := math.Log(lambda)
	b := 0.931 + 2.53*slam
	a := -0.059 + 0.02483*b
	invAlpha := 1.1239 + 1.1328/(b-3.4)
	vr := 0.9277 - 3.6224/(b-2)
	for {
		u := rng.Float64() - 0.5
		v := rng.Float64()
		us := 0.5 - math.Abs(u)
		k := math.Floor((2*a/us+b)*u + lambda + 0.43)
		if us >= 0.07 && v <= vr {
			return int(k)
		}
		if k < 0 || (us < 0.013 && v > us) {
			continue
		}
		lg, _ := math.Lgamma(k + 1)
		if math.Log(v)+math.Log(invAlpha)-math.Log(a/(us*us)+b) <= -lambda+k*loglam-lg {
			return int(k)
		}
	}
}

// Bernoulli reports whether a uniform draw falls below p.
func Bernoulli(rng *rand.Rand, p float64) bool {
	return rng.Float64() < p
}

// Binomial draws the number of successes among n Bernoulli(p) trials.
func Binomial(rng *rand.Rand, n int, p float64) int {
	if n <= 0 || p <= 0 {
		return 0
	}
	if p >= 1 {
		return n
	}
	k := 0
	for i := 0; i < n; i++ {
		if rng.Float64() < p {
			k++
		}
	}
	return k
}

// Categorical draws an index from a (not necessarily normalized) weight vector
// using one uniform draw and inverse CDF lookup. Empty or massless weights yield 0.
func Categorical(rng *rand.Rand, weights []float64) int {
	cdf := make([]float64, len(weights))
	total := 0.0
	for i, w := range weights {
		if w > 0 && !math.IsNaN(w) {
			total += w
		}
		cdf[i] = total
	}
	if total <= 0 {
		return 0
	}
	u := rng.Float64() * total
	idx := sort.Search(len(cdf), func(i int) bool { return cdf[i] > u })
	if idx >= len(cdf) {
		idx = len(cdf) - 1
	}
	return idx
}

// Multinomial splits n trials across categories with the given probabilities.
// Each trial consumes one uniform draw, so the sample is exact for any n.
func Multinomial(rng *rand.Rand, n int, probs []float64) []int {
	out := make([]int, len(probs))
	if len(probs) == 0 {
		return out
	}
	for i := 0; i < n; i++ {
		out[Categorical(rng, probs)]++
	}
	return out
}

// UniformInt draws an integer uniformly from [lo, hi].
func UniformInt(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// Uniform draws a float uniformly from [lo, hi).
func Uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
