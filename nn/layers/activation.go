package layers

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Func holds an element-wise activation function and its derivative. Both are
// evaluated at the pre-activation value, never at the activation itself.
type Func struct {
	Name  string
	F     func(x float64) float64
	Deriv func(x float64) float64
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func sigmoidPrime(x float64) float64 {
	s := sigmoid(x)
	return s * (1 - s)
}

func tanhPrime(x float64) float64 {
	t := math.Tanh(x)
	return 1 - t*t
}

// leaky slope below zero
const reluLeak = 0.0001

func relu(x float64) float64 {
	if x < 0 {
		return reluLeak * x
	}
	return x
}

func reluPrime(x float64) float64 {
	if x < 0 {
		return reluLeak
	}
	return 1
}

// SupportedActivations lists the activation functions available by name.
var SupportedActivations = map[string]Func{
	"sigmoid": {Name: "sigmoid", F: sigmoid, Deriv: sigmoidPrime},
	"tanh":    {Name: "tanh", F: math.Tanh, Deriv: tanhPrime},
	"relu":    {Name: "relu", F: relu, Deriv: reluPrime},
}

// Activation is a layer that applies an activation function element-wise. It does
// not change dimensionality; the weight matrix feeding it does.
type Activation struct {
	fn      Func
	neurons int
}

// NewActivation creates an activation layer of the given size from a name in
// SupportedActivations.
func NewActivation(name string, neurons int) (*Activation, error) {
	fn, ok := SupportedActivations[name]
	if !ok {
		return nil, errors.Errorf("unsupported activation: %q", name)
	}
	if neurons <= 0 {
		return nil, errors.Errorf("activation layer needs a positive size, got %d", neurons)
	}
	return &Activation{fn: fn, neurons: neurons}, nil
}

func NewSigmoid(neurons int) *Activation {
	return &Activation{fn: SupportedActivations["sigmoid"], neurons: neurons}
}

func NewTanh(neurons int) *Activation {
	return &Activation{fn: SupportedActivations["tanh"], neurons: neurons}
}

func NewReLU(neurons int) *Activation {
	return &Activation{fn: SupportedActivations["relu"], neurons: neurons}
}

func (a *Activation) InputShape() int  { return a.neurons }
func (a *Activation) OutputShape() int { return a.neurons }

// Func returns the activation function of the layer.
func (a *Activation) Func() Func { return a.fn }

// FeedForward applies the activation to the pre-activation vector x.
func (a *Activation) FeedForward(x *mat.VecDense) (*mat.VecDense, error) {
	if err := checkLen(x, a.neurons, a.String()+": x"); err != nil {
		return nil, err
	}
	out := mat.NewVecDense(a.neurons, nil)
	for i := 0; i < a.neurons; i++ {
		out.SetVec(i, a.fn.F(x.AtVec(i)))
	}
	return out, nil
}

// BackProp returns nabla ⊙ f'(x), where x is the pre-activation this layer saw on
// the forward pass.
func (a *Activation) BackProp(nabla, x *mat.VecDense) (*mat.VecDense, error) {
	if err := checkLen(nabla, a.neurons, a.String()+": nabla"); err != nil {
		return nil, err
	}
	if err := checkLen(x, a.neurons, a.String()+": x"); err != nil {
		return nil, err
	}
	out := mat.NewVecDense(a.neurons, nil)
	for i := 0; i < a.neurons; i++ {
		out.SetVec(i, nabla.AtVec(i)*a.fn.Deriv(x.AtVec(i)))
	}
	return out, nil
}

func (a *Activation) String() string {
	return fmt.Sprintf("%s_%d", a.fn.Name, a.neurons)
}
