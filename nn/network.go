package nn

import (
	"perceptron/nn/layers"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MNISTSizes holds the layer sizes of the MNIST digit network.
var MNISTSizes = []int{784, 30, 10}

// initRange bounds the uniform distribution parameters are drawn from.
const initRange = 1.0

// Network is an ordered stack of layers with a weight matrix and a bias vector for
// every pair of adjacent layers. weights[i] has shape sizes[i+1] × sizes[i].
//
// The parameters are only mutated by ApplyUpdate. A Network is not safe for
// concurrent use while it is being trained; hand readers a Snapshot instead.
type Network struct {
	sizes   []int
	layers  []Layer
	weights []*mat.Dense
	biases  []*mat.VecDense
}

// Trace is the record of a single forward pass: one pre-activation per non-input
// layer and one activation per layer, the input included. It belongs to the
// example that produced it and is consumed by Backward.
type Trace struct {
	PreActivations []*mat.VecDense
	Activations    []*mat.VecDense
}

// Output returns the activation of the last layer.
func (t *Trace) Output() *mat.VecDense {
	return t.Activations[len(t.Activations)-1]
}

// NewNetwork builds an input layer followed by sigmoid layers with the given
// sizes, and draws every weight and bias uniformly from [-1, 1] using src.
func NewNetwork(sizes []int, src rand.Source) (*Network, error) {
	ls, err := sigmoidStack(sizes)
	if err != nil {
		return nil, err
	}
	return NewNetworkWithLayers(ls, src)
}

// NewMNIST builds the [784, 30, 10] sigmoid network.
func NewMNIST(src rand.Source) (*Network, error) {
	return NewNetwork(MNISTSizes, src)
}

// NewNetworkWithLayers builds a network from an explicit layer stack. The first
// layer must be an input layer.
func NewNetworkWithLayers(ls []Layer, src rand.Source) (*Network, error) {
	n, err := newNetwork(ls)
	if err != nil {
		return nil, err
	}
	dist := distuv.Uniform{Min: -initRange, Max: initRange, Src: src}
	for i := range n.weights {
		w := n.weights[i].RawMatrix()
		for j := range w.Data {
			w.Data[j] = dist.Rand()
		}
		for j := 0; j < n.biases[i].Len(); j++ {
			n.biases[i].SetVec(j, dist.Rand())
		}
	}
	return n, nil
}

// NewZeroNetwork builds a sigmoid network whose weights and biases are all zero.
func NewZeroNetwork(sizes []int) (*Network, error) {
	ls, err := sigmoidStack(sizes)
	if err != nil {
		return nil, err
	}
	return newNetwork(ls)
}

func sigmoidStack(sizes []int) ([]Layer, error) {
	if len(sizes) < 2 {
		return nil, errors.Wrapf(ErrInvalidTopology, "need at least 2 layers, got %d", len(sizes))
	}
	ls := make([]Layer, len(sizes))
	ls[0] = layers.NewInput(sizes[0])
	for i := 1; i < len(sizes); i++ {
		ls[i] = layers.NewSigmoid(sizes[i])
	}
	return ls, nil
}

func newNetwork(ls []Layer) (*Network, error) {
	if len(ls) < 2 {
		return nil, errors.Wrapf(ErrInvalidTopology, "need at least 2 layers, got %d", len(ls))
	}
	if _, ok := ls[0].(*layers.Input); !ok {
		return nil, errors.Wrapf(ErrInvalidTopology, "first layer is %s, want an input layer", ls[0])
	}
	sizes := make([]int, len(ls))
	for i, l := range ls {
		if l.InputShape() <= 0 || l.InputShape() != l.OutputShape() {
			return nil, errors.Wrapf(ErrInvalidTopology, "layer %d (%s) has shape %d -> %d",
				i, l, l.InputShape(), l.OutputShape())
		}
		if i > 0 {
			if _, ok := l.(*layers.Input); ok {
				return nil, errors.Wrapf(ErrInvalidTopology, "layer %d is an input layer", i)
			}
		}
		sizes[i] = l.OutputShape()
	}

	n := &Network{
		sizes:   sizes,
		layers:  append([]Layer(nil), ls...),
		weights: make([]*mat.Dense, len(ls)-1),
		biases:  make([]*mat.VecDense, len(ls)-1),
	}
	for i := range n.weights {
		n.weights[i] = mat.NewDense(sizes[i+1], sizes[i], nil)
		n.biases[i] = mat.NewVecDense(sizes[i+1], nil)
	}
	return n, nil
}

// Sizes returns a copy of the layer sizes.
func (n *Network) Sizes() []int {
	return append([]int(nil), n.sizes...)
}

// Layers returns the layer stack.
func (n *Network) Layers() []Layer {
	return append([]Layer(nil), n.layers...)
}

// Transitions returns the number of weight/bias pairs.
func (n *Network) Transitions() int { return len(n.weights) }

// Weights returns the weight matrix of transition i. Callers must not modify it.
func (n *Network) Weights(i int) mat.Matrix { return n.weights[i] }

// Biases returns the bias vector of transition i. Callers must not modify it.
func (n *Network) Biases(i int) mat.Vector { return n.biases[i] }

// Forward propagates input through every transition and returns the full trace.
func (n *Network) Forward(input *mat.VecDense) (*Trace, error) {
	if err := checkVec(input, n.sizes[0], "Forward: input"); err != nil {
		return nil, err
	}
	a, err := n.layers[0].FeedForward(input)
	if err != nil {
		return nil, errors.Wrap(err, "Forward: layer 0")
	}
	tr := &Trace{
		PreActivations: make([]*mat.VecDense, 0, len(n.weights)),
		Activations:    append(make([]*mat.VecDense, 0, len(n.layers)), a),
	}
	for i := range n.weights {
		z := affine(n.weights[i], a, n.biases[i])
		a, err = n.layers[i+1].FeedForward(z)
		if err != nil {
			return nil, errors.Wrapf(err, "Forward: layer %d", i+1)
		}
		tr.PreActivations = append(tr.PreActivations, z)
		tr.Activations = append(tr.Activations, a)
	}
	return tr, nil
}

// Predict returns the output activation for input.
func (n *Network) Predict(input *mat.VecDense) (*mat.VecDense, error) {
	tr, err := n.Forward(input)
	if err != nil {
		return nil, err
	}
	return tr.Output(), nil
}

// ForwardFrom resumes forward propagation from z, the pre-activation produced by
// transition t, and returns the output activation.
func (n *Network) ForwardFrom(t int, z *mat.VecDense) (*mat.VecDense, error) {
	if t < 0 || t >= len(n.weights) {
		return nil, errors.Errorf("ForwardFrom: transition %d out of range [0, %d)", t, len(n.weights))
	}
	if err := checkVec(z, n.sizes[t+1], "ForwardFrom: z"); err != nil {
		return nil, err
	}
	a, err := n.layers[t+1].FeedForward(z)
	if err != nil {
		return nil, errors.Wrapf(err, "ForwardFrom: layer %d", t+1)
	}
	for i := t + 1; i < len(n.weights); i++ {
		a, err = n.layers[i+1].FeedForward(affine(n.weights[i], a, n.biases[i]))
		if err != nil {
			return nil, errors.Wrapf(err, "ForwardFrom: layer %d", i+1)
		}
	}
	return a, nil
}

// Backward computes the cost gradient of every weight and bias for the example
// recorded in tr. It walks from the output layer down to the input: the weight
// gradient of transition i is delta·a[i]ᵀ, its bias gradient is delta, and the
// error is carried to layer i through W[i]ᵀ. The input layer gets no gradient.
func (n *Network) Backward(tr *Trace, target *mat.VecDense, cost Cost) (*Gradients, error) {
	last := len(n.weights)
	if tr == nil || len(tr.PreActivations) != last || len(tr.Activations) != last+1 {
		return nil, errors.Wrap(ErrShapeMismatch, "Backward: trace does not match network depth")
	}
	if err := checkVec(target, n.sizes[last], "Backward: target"); err != nil {
		return nil, err
	}

	nabla, err := cost.DCost(tr.Output(), target)
	if err != nil {
		return nil, errors.Wrap(err, "Backward")
	}
	delta, err := n.layers[last].BackProp(nabla, tr.PreActivations[last-1])
	if err != nil {
		return nil, errors.Wrapf(err, "Backward: layer %d", last)
	}

	g := &Gradients{
		Weights: make([]*mat.Dense, last),
		Biases:  make([]*mat.VecDense, last),
	}
	for i := last - 1; i >= 0; i-- {
		if err := checkVec(tr.Activations[i], n.sizes[i], "Backward: activation"); err != nil {
			return nil, err
		}
		g.Weights[i] = outer(delta, tr.Activations[i])
		g.Biases[i] = delta
		if i == 0 {
			break
		}
		back := mat.NewVecDense(n.sizes[i], nil)
		back.MulVec(n.weights[i].T(), delta)
		delta, err = n.layers[i].BackProp(back, tr.PreActivations[i-1])
		if err != nil {
			return nil, errors.Wrapf(err, "Backward: layer %d", i)
		}
	}
	return g, nil
}

// ApplyUpdate subtracts rate·g from the parameters. Shapes are checked before
// anything is written, so a rejected update leaves the network untouched.
func (n *Network) ApplyUpdate(g *Gradients, rate float64) error {
	ref := Gradients{Weights: n.weights, Biases: n.biases}
	if err := ref.sameShape(g); err != nil {
		return errors.Wrap(err, "ApplyUpdate")
	}
	for i := range n.weights {
		var step mat.Dense
		step.Scale(rate, g.Weights[i])
		n.weights[i].Sub(n.weights[i], &step)
		n.biases[i].AddScaledVec(n.biases[i], -rate, g.Biases[i])
	}
	return nil
}

// Snapshot returns a deep copy of the parameters sharing the (immutable) layers.
func (n *Network) Snapshot() *Network {
	c := &Network{
		sizes:   n.Sizes(),
		layers:  n.Layers(),
		weights: make([]*mat.Dense, len(n.weights)),
		biases:  make([]*mat.VecDense, len(n.biases)),
	}
	for i := range n.weights {
		c.weights[i] = mat.DenseCopyOf(n.weights[i])
		c.biases[i] = mat.VecDenseCopyOf(n.biases[i])
	}
	return c
}
