package rnd

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// WithCovN draws n random samples from a zero-mean Normal (aka Gaussian) distribution with covariance cov.
// It returns matrix which contains the randomly generated samples stored in its columns.
// Samples are drawn from src; if src is nil the global source is used.
// It fails with error if n is non-positive or if SVD factorization of cov fails.
func WithCovN(cov mat.Symmetric, n int, src rand.Source) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid number of samples requested: %d", n)
	}

	// Use SVD instead of Cholesky as Cholesky can be numerically unstable if cov is (almost) singular
	var svd mat.SVD
	ok := svd.Factorize(cov, mat.SVDFull)
	if !ok {
		return nil, fmt.Errorf("SVD factorization failed")
	}

	U := new(mat.Dense)
	svd.UTo(U)
	vals := svd.Values(nil)
	for i := range vals {
		vals[i] = math.Sqrt(vals[i])
	}
	diag := mat.NewDiagDense(len(vals), vals)
	U.Mul(U, diag)

	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	rows, _ := cov.Dims()
	data := make([]float64, rows*n)
	for i := range data {
		data[i] = norm.Rand()
	}
	samples := mat.NewDense(rows, n, data)
	samples.Mul(U, samples)

	return samples, nil
}

// SystematicDrawN draws n indices from the probability mass function defined by weights in p
// using systematic resampling: the cumulative sum of p has its final entry forced to exactly 1.0
// to absorb floating-point drift, a single offset u0 is drawn uniformly from [0, 1/n) and the
// evenly spaced points u_j = u0 + j/n are mapped through the cumulative distribution.
// Systematic resampling has lower variance than multinomial resampling and consumes a single
// random draw, which keeps seeded runs reproducible.
// It returns a slice of n indices into the vector p, in ascending order.
// It fails with error if p is empty or n is non-positive.
func SystematicDrawN(p []float64, n int, src rand.Source) ([]int, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("invalid probability weights: %v", p)
	}
	if n <= 0 {
		return nil, fmt.Errorf("invalid number of samples requested: %d", n)
	}

	cdf := make([]float64, len(p))
	floats.CumSum(cdf, p)
	// force the final cumulative weight to exactly 1.0
	cdf[len(cdf)-1] = 1.0

	u := distuv.Uniform{Min: 0, Max: 1 / float64(n), Src: src}.Rand()

	indices := make([]int, n)
	for j := range indices {
		uj := u + float64(j)/float64(n)
		// Search returns the smallest index i such that cdf[i] >= uj
		indices[j] = sort.Search(len(cdf), func(i int) bool { return cdf[i] >= uj })
	}

	return indices, nil
}

// MultinomialDrawN draws n numbers randomly from a probability mass function (PMF) defined by weights in p.
// MultinomialDrawN implements the Roulette Wheel Draw a.k.a. Fitness Proportionate Selection:
// - https://en.wikipedia.org/wiki/Fitness_proportionate_selection
// It consumes n draws from src, one per selected index.
// It returns a slice of n indices into the vector p.
// It fails with error if p is empty or nil.
func MultinomialDrawN(p []float64, n int, src rand.Source) ([]int, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("invalid probability weights: %v", p)
	}

	// Initialization: create the discrete CDF
	// We know that cdf is sorted in ascending order
	cdf := make([]float64, len(p))
	floats.CumSum(cdf, p)

	uniform := distuv.Uniform{Min: 0, Max: 1, Src: src}

	// Generation:
	// 1. Generate a uniformly-random value x in the range [0,1)
	// 2. Using a binary search, find the index of the smallest element in cdf larger than x
	var val float64
	indices := make([]int, n)
	for i := range indices {
		// multiply the sample with the largest CDF value; easier than normalizing to [0,1)
		val = uniform.Rand() * cdf[len(cdf)-1]
		indices[i] = sort.Search(len(cdf), func(i int) bool { return cdf[i] > val })
	}

	return indices, nil
}
