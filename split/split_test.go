package split

import (
	"testing"

	"perceptron/core/ckkswrapper"
	"perceptron/nn"
	"perceptron/utils"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

const testLogN = 12

func testNetwork(t *testing.T) *nn.Network {
	net, err := nn.NewNetwork([]int{4, 3, 2}, rand.NewSource(1))
	require.NoError(t, err)
	return net
}

func TestServerLinearMatchesPlaintext(t *testing.T) {
	he, err := ckkswrapper.NewHeContext(testLogN)
	require.NoError(t, err)
	net := testNetwork(t)
	srv, err := NewServer(he.GenServerKit(ckkswrapper.SumRotations(4)), net.Weights(0), net.Biases(0))
	require.NoError(t, err)
	require.Equal(t, 3, srv.Outputs())

	x := []float64{0.1, 0.9, 0.4, 0}
	ct, err := he.EncryptVector(x)
	require.NoError(t, err)
	res, err := srv.Linear(ct)
	require.NoError(t, err)
	require.Len(t, res, 3)

	tr, err := net.Forward(mat.NewVecDense(4, x))
	require.NoError(t, err)
	for i, c := range res {
		got, err := he.DecryptVector(c, 1)
		require.NoError(t, err)
		require.InDelta(t, tr.PreActivations[0].AtVec(i), got[0], 1e-4, "neuron %d", i)
	}
}

func TestServerRejectsOversizedInput(t *testing.T) {
	he, err := ckkswrapper.NewHeContext(testLogN)
	require.NoError(t, err)
	w := mat.NewDense(2, he.Slots()+1, nil)
	_, err = NewServer(he.GenServerKit(nil), w, mat.NewVecDense(2, nil))
	require.Error(t, err)
	_, err = NewServer(he.GenServerKit(nil), mat.NewDense(2, 3, nil), mat.NewVecDense(3, nil))
	require.Error(t, err)
}

func TestLocalClientMatchesPlaintext(t *testing.T) {
	he, err := ckkswrapper.NewHeContext(testLogN)
	require.NoError(t, err)
	net := testNetwork(t)
	stats := &utils.TimingStats{}
	c, err := StartLocal(he, net, stats)
	require.NoError(t, err)

	inputs := []*mat.VecDense{
		mat.NewVecDense(4, []float64{0, 0, 0, 0}),
		mat.NewVecDense(4, []float64{1, 0.5, 0.25, 0}),
		mat.NewVecDense(4, []float64{0.3, 0.3, 0.9, 1}),
	}
	labels := make([]int, len(inputs))
	for i, x := range inputs {
		want, err := net.Predict(x)
		require.NoError(t, err)
		got, err := c.Predict(x)
		require.NoError(t, err)
		require.InDeltaSlice(t, mat.Col(nil, 0, want), mat.Col(nil, 0, got), 1e-4)
		labels[i] = nn.ArgMax(want)
	}

	correct, total, err := Evaluate(c, inputs, labels)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Equal(t, 3, correct)

	_, err = c.Predict(mat.NewVecDense(3, nil))
	require.Error(t, err)

	require.NoError(t, c.Close())
	require.Greater(t, int64(stats.ServerLinearTime), int64(0))
	require.Greater(t, int64(stats.EncryptionTime), int64(0))
}

func TestServerReportsEmptyCiphertext(t *testing.T) {
	he, err := ckkswrapper.NewHeContext(testLogN)
	require.NoError(t, err)
	net := testNetwork(t)
	c, err := StartLocal(he, net, nil)
	require.NoError(t, err)

	require.NoError(t, c.proto.SendInput(0, nil))
	_, err = c.proto.ReceiveOutput()
	require.ErrorIs(t, err, ErrRemote)

	// the server keeps serving after a bad request
	c.next = 1
	_, err = c.Predict(mat.NewVecDense(4, []float64{1, 1, 1, 1}))
	require.NoError(t, err)
	require.NoError(t, c.Close())
}
