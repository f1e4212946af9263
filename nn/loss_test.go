package nn

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMSE(t *testing.T) {
	out, target := vec(1, 2, 3), vec(1, -2, 3)

	c, err := MSE{}.Cost(out, target)
	require.NoError(t, err)
	require.Equal(t, 8.0, c)

	d, err := MSE{}.DCost(out, target)
	require.NoError(t, err)
	require.True(t, mat.Equal(vec(0, 4, 0), d))
}

func TestCrossEntropy(t *testing.T) {
	out, target := vec(0.9, 0.2), vec(1, 0)
	c, err := CrossEntropy{}.Cost(out, target)
	require.NoError(t, err)
	require.InDelta(t, -math.Log(0.9)-math.Log(0.8), c, 1e-12)

	d, err := CrossEntropy{}.DCost(out, target)
	require.NoError(t, err)
	require.InDelta(t, -1/0.9, d.AtVec(0), 1e-12)
	require.InDelta(t, 1/0.8, d.AtVec(1), 1e-12)
}

func TestCrossEntropySaturatedOutputIsFinite(t *testing.T) {
	c, err := CrossEntropy{}.Cost(vec(0, 1), vec(1, 0))
	require.NoError(t, err)
	require.False(t, math.IsInf(c, 0) || math.IsNaN(c))

	d, err := CrossEntropy{}.DCost(vec(0, 1), vec(1, 0))
	require.NoError(t, err)
	for i := 0; i < d.Len(); i++ {
		require.False(t, math.IsInf(d.AtVec(i), 0) || math.IsNaN(d.AtVec(i)))
	}
}

func TestCostShapeMismatch(t *testing.T) {
	for name, cost := range CostLookup {
		_, err := cost.Cost(vec(1, 2), vec(1))
		require.True(t, errors.Is(err, ErrShapeMismatch), name)
		_, err = cost.DCost(vec(1), nil)
		require.True(t, errors.Is(err, ErrShapeMismatch), name)
		require.Equal(t, name, cost.String())
	}
}
