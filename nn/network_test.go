package nn

import (
	"testing"

	"perceptron/nn/layers"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

func vec(xs ...float64) *mat.VecDense {
	return mat.NewVecDense(len(xs), xs)
}

func TestZeroNetworkOutputsHalf(t *testing.T) {
	net, err := NewZeroNetwork([]int{3, 5, 6, 7, 4})
	require.NoError(t, err)

	out, err := net.Predict(mat.NewVecDense(3, nil))
	require.NoError(t, err)
	require.Equal(t, 4, out.Len())
	for i := 0; i < out.Len(); i++ {
		require.Equal(t, 0.5, out.AtVec(i))
	}
}

func TestNetworkShapes(t *testing.T) {
	net, err := NewMNIST(rand.NewSource(1))
	require.NoError(t, err)
	require.Equal(t, []int{784, 30, 10}, net.Sizes())
	require.Equal(t, 2, net.Transitions())

	r, c := net.Weights(0).Dims()
	require.Equal(t, 30, r)
	require.Equal(t, 784, c)
	r, c = net.Weights(1).Dims()
	require.Equal(t, 10, r)
	require.Equal(t, 30, c)
	require.Equal(t, 30, net.Biases(0).Len())
	require.Equal(t, 10, net.Biases(1).Len())
}

func TestInitWithinRange(t *testing.T) {
	net, err := NewNetwork([]int{4, 8, 3}, rand.NewSource(7))
	require.NoError(t, err)
	for i := 0; i < net.Transitions(); i++ {
		r, c := net.Weights(i).Dims()
		for j := 0; j < r; j++ {
			for k := 0; k < c; k++ {
				w := net.Weights(i).At(j, k)
				require.True(t, w >= -1 && w <= 1, "weight %v out of range", w)
			}
			b := net.Biases(i).AtVec(j)
			require.True(t, b >= -1 && b <= 1, "bias %v out of range", b)
		}
	}
}

func TestSeededNetworksAreIdentical(t *testing.T) {
	a, err := NewNetwork([]int{5, 4, 3}, rand.NewSource(42))
	require.NoError(t, err)
	b, err := NewNetwork([]int{5, 4, 3}, rand.NewSource(42))
	require.NoError(t, err)
	for i := 0; i < a.Transitions(); i++ {
		require.True(t, mat.Equal(a.Weights(i), b.Weights(i)))
		require.True(t, mat.Equal(a.Biases(i), b.Biases(i)))
	}
}

func TestInvalidTopology(t *testing.T) {
	_, err := NewNetwork([]int{3}, rand.NewSource(1))
	require.True(t, errors.Is(err, ErrInvalidTopology))

	_, err = NewZeroNetwork(nil)
	require.True(t, errors.Is(err, ErrInvalidTopology))

	_, err = NewNetworkWithLayers([]Layer{layers.NewSigmoid(3), layers.NewSigmoid(2)}, rand.NewSource(1))
	require.True(t, errors.Is(err, ErrInvalidTopology))

	_, err = NewNetworkWithLayers([]Layer{layers.NewInput(3), layers.NewInput(2)}, rand.NewSource(1))
	require.True(t, errors.Is(err, ErrInvalidTopology))

	_, err = NewZeroNetwork([]int{3, 0, 2})
	require.True(t, errors.Is(err, ErrInvalidTopology))
}

func TestForwardInputMismatch(t *testing.T) {
	net, err := NewZeroNetwork([]int{3, 2})
	require.NoError(t, err)
	_, err = net.Forward(vec(1, 2))
	require.True(t, errors.Is(err, ErrShapeMismatch))
	_, err = net.Forward(nil)
	require.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestForwardTrace(t *testing.T) {
	net, err := NewNetwork([]int{3, 4, 2}, rand.NewSource(3))
	require.NoError(t, err)
	x := vec(0.1, -0.2, 0.3)
	tr, err := net.Forward(x)
	require.NoError(t, err)
	require.Len(t, tr.PreActivations, 2)
	require.Len(t, tr.Activations, 3)
	require.True(t, mat.Equal(x, tr.Activations[0]))
	require.Equal(t, 4, tr.PreActivations[0].Len())
	require.Equal(t, 2, tr.Output().Len())

	want := affine(net.Weights(0), x, net.Biases(0))
	require.True(t, mat.EqualApprox(want, tr.PreActivations[0], 1e-12))
}

func TestForwardFromMatchesPredict(t *testing.T) {
	net, err := NewNetwork([]int{4, 5, 3, 2}, rand.NewSource(11))
	require.NoError(t, err)
	x := vec(0.5, -1, 0.25, 0)

	tr, err := net.Forward(x)
	require.NoError(t, err)
	out, err := net.ForwardFrom(0, tr.PreActivations[0])
	require.NoError(t, err)
	require.True(t, mat.EqualApprox(tr.Output(), out, 1e-12))

	out, err = net.ForwardFrom(2, tr.PreActivations[2])
	require.NoError(t, err)
	require.True(t, mat.EqualApprox(tr.Output(), out, 1e-12))

	_, err = net.ForwardFrom(3, tr.PreActivations[2])
	require.Error(t, err)
	_, err = net.ForwardFrom(0, vec(1))
	require.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestBackwardShapes(t *testing.T) {
	net, err := NewNetwork([]int{3, 5, 6, 4}, rand.NewSource(5))
	require.NoError(t, err)
	tr, err := net.Forward(vec(1, 0, -1))
	require.NoError(t, err)
	g, err := net.Backward(tr, vec(0, 1, 0, 0), MSE{})
	require.NoError(t, err)
	require.Len(t, g.Weights, net.Transitions())
	for i := 0; i < net.Transitions(); i++ {
		require.True(t, sameShape(net.Weights(i), g.Weights[i]))
		require.Equal(t, net.Biases(i).Len(), g.Biases[i].Len())
	}

	_, err = net.Backward(tr, vec(0, 1), MSE{})
	require.True(t, errors.Is(err, ErrShapeMismatch))
	_, err = net.Backward(&Trace{}, vec(0, 1, 0, 0), MSE{})
	require.True(t, errors.Is(err, ErrShapeMismatch))
}

func costAt(t *testing.T, net *Network, x, target *mat.VecDense, cost Cost) float64 {
	out, err := net.Predict(x)
	require.NoError(t, err)
	c, err := cost.Cost(out, target)
	require.NoError(t, err)
	return c
}

func TestBackwardMatchesFiniteDifference(t *testing.T) {
	central := &fd.Settings{Formula: fd.Central}
	for name, cost := range CostLookup {
		t.Run(name, func(t *testing.T) {
			net, err := NewNetwork([]int{3, 4, 2}, rand.NewSource(9))
			require.NoError(t, err)
			x := vec(0.3, -0.7, 0.2)
			target := vec(1, 0)

			tr, err := net.Forward(x)
			require.NoError(t, err)
			g, err := net.Backward(tr, target, cost)
			require.NoError(t, err)

			for i := 0; i < net.Transitions(); i++ {
				w := net.weights[i]
				r, c := w.Dims()
				for j := 0; j < r; j++ {
					for k := 0; k < c; k++ {
						orig := w.At(j, k)
						num := fd.Derivative(func(v float64) float64 {
							w.Set(j, k, v)
							return costAt(t, net, x, target, cost)
						}, orig, central)
						w.Set(j, k, orig)
						require.InDelta(t, num, g.Weights[i].At(j, k), 1e-5, "w[%d][%d,%d]", i, j, k)
					}
				}

				b := net.biases[i]
				orig := mat.VecDenseCopyOf(b)
				grad := make([]float64, b.Len())
				fd.Gradient(grad, func(p []float64) float64 {
					for j, v := range p {
						b.SetVec(j, v)
					}
					return costAt(t, net, x, target, cost)
				}, vecData(orig), central)
				b.CopyVec(orig)
				for j := range grad {
					require.InDelta(t, grad[j], g.Biases[i].AtVec(j), 1e-5, "b[%d][%d]", i, j)
				}
			}
		})
	}
}

func TestApplyUpdate(t *testing.T) {
	net, err := NewZeroNetwork([]int{2, 2})
	require.NoError(t, err)
	g := NewGradients([]int{2, 2})
	g.Weights[0].Set(0, 1, 2)
	g.Biases[0].SetVec(1, -4)

	require.NoError(t, net.ApplyUpdate(g, 0.5))
	require.Equal(t, -1.0, net.Weights(0).At(0, 1))
	require.Equal(t, 2.0, net.Biases(0).AtVec(1))
	require.Equal(t, 0.0, net.Weights(0).At(1, 0))
}

func TestApplyUpdateMismatchLeavesNetwork(t *testing.T) {
	net, err := NewNetwork([]int{3, 4, 2}, rand.NewSource(2))
	require.NoError(t, err)
	before := net.Snapshot()

	g := NewGradients([]int{3, 4, 2})
	g.Weights[0].Set(0, 0, 1)
	g.Biases[1] = mat.NewVecDense(3, nil)
	err = net.ApplyUpdate(g, 1)
	require.True(t, errors.Is(err, ErrShapeMismatch))

	for i := 0; i < net.Transitions(); i++ {
		require.True(t, mat.Equal(before.Weights(i), net.Weights(i)))
		require.True(t, mat.Equal(before.Biases(i), net.Biases(i)))
	}
	require.Error(t, net.ApplyUpdate(nil, 1))
}

func TestSnapshotIsIndependent(t *testing.T) {
	net, err := NewNetwork([]int{2, 3, 2}, rand.NewSource(4))
	require.NoError(t, err)
	snap := net.Snapshot()

	g := NewGradients(net.Sizes())
	g.Weights[0].Set(0, 0, 10)
	require.NoError(t, net.ApplyUpdate(g, 1))
	require.NotEqual(t, net.Weights(0).At(0, 0), snap.Weights(0).At(0, 0))
	require.True(t, mat.Equal(net.Weights(1), snap.Weights(1)))
}

func TestArgMaxFirstOnTies(t *testing.T) {
	require.Equal(t, 1, ArgMax(vec(0, 3, 3, 1)))
	require.Equal(t, 0, ArgMax(vec(7)))
}

func TestMixedActivations(t *testing.T) {
	relu, err := layers.NewActivation("relu", 4)
	require.NoError(t, err)
	net, err := NewNetworkWithLayers([]Layer{layers.NewInput(2), relu, layers.NewSigmoid(3)}, rand.NewSource(6))
	require.NoError(t, err)
	require.Equal(t, []int{2, 4, 3}, net.Sizes())
	out, err := net.Predict(vec(1, -1))
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())
}
