package rnd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

func TestWithCovN(t *testing.T) {
	assert := assert.New(t)

	data := []float64{1.0, 0.0, 0.0, 1.0}
	covTest := mat.NewSymDense(2, data)
	covR, _ := covTest.Dims()

	// n must be bigger than 1
	nTest := -3
	res, err := WithCovN(covTest, nTest, nil)
	assert.Error(err)
	assert.Nil(res)

	nTest = 1
	res, err = WithCovN(covTest, nTest, nil)
	assert.NoError(err)
	assert.NotNil(res)

	// 2 samples
	nTest = 2
	res, err = WithCovN(covTest, nTest, nil)
	assert.NoError(err)
	assert.NotNil(res)
	r, c := res.Dims()
	assert.Equal(r, covR)
	assert.Equal(c, nTest)

	// zero covariance degrades to zero samples
	zeroCov := mat.NewSymDense(2, nil)
	res, err = WithCovN(zeroCov, 3, rand.NewSource(1999))
	assert.NoError(err)
	assert.True(mat.EqualApprox(res, mat.NewDense(2, 3, nil), 1e-12))
}

func TestWithCovNSeeded(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(2, []float64{1.0, 0.0, 0.0, 1.0})

	a, err := WithCovN(cov, 5, rand.NewSource(42))
	assert.NoError(err)
	b, err := WithCovN(cov, 5, rand.NewSource(42))
	assert.NoError(err)
	assert.True(mat.Equal(a, b))
}

func TestSystematicDrawN(t *testing.T) {
	assert := assert.New(t)

	// p can't be nil or empty
	indices, err := SystematicDrawN(nil, 10, nil)
	assert.Error(err)
	assert.Nil(indices)

	// n must be positive
	indices, err = SystematicDrawN([]float64{0.5, 0.5}, 0, nil)
	assert.Error(err)
	assert.Nil(indices)

	// uniform weights select every index exactly once regardless of the offset
	p := []float64{0.25, 0.25, 0.25, 0.25}
	indices, err = SystematicDrawN(p, 4, rand.NewSource(1999))
	assert.NoError(err)
	assert.Equal([]int{0, 1, 2, 3}, indices)

	// fully peaked weights select the peak only
	p = []float64{0.0, 0.0, 1.0}
	indices, err = SystematicDrawN(p, 3, rand.NewSource(1999))
	assert.NoError(err)
	assert.Equal([]int{2, 2, 2}, indices)
}

func TestSystematicDrawNSeeded(t *testing.T) {
	assert := assert.New(t)

	p := []float64{0.1, 0.2, 0.3, 0.4}

	a, err := SystematicDrawN(p, 4, rand.NewSource(7))
	assert.NoError(err)
	b, err := SystematicDrawN(p, 4, rand.NewSource(7))
	assert.NoError(err)
	assert.Equal(a, b)
}

func TestMultinomialDrawN(t *testing.T) {
	assert := assert.New(t)

	// p can't be nil or empty
	indices, err := MultinomialDrawN(nil, 10, nil)
	assert.Error(err)
	assert.Nil(indices)

	p := []float64{0.1, 0.7, 0.3, 0.4}
	n := 10
	indices, err = MultinomialDrawN(p, n, rand.NewSource(1999))
	assert.NoError(err)
	assert.NotNil(indices)
	assert.Equal(n, len(indices))
	for _, i := range indices {
		assert.True(i >= 0 && i < len(p))
	}
}
