package nn

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Cost is a scalar loss comparing a network output with a target vector.
type Cost interface {
	Cost(output, target *mat.VecDense) (float64, error)
	// DCost is the gradient of Cost with respect to output. It seeds the
	// backward pass at the output layer.
	DCost(output, target *mat.VecDense) (*mat.VecDense, error)
	String() string
}

// CostLookup lists the cost functions available by name.
var CostLookup = map[string]Cost{
	"mse":          MSE{},
	"crossentropy": CrossEntropy{},
}

func checkPair(output, target *mat.VecDense) error {
	if output == nil || target == nil {
		return errors.Wrap(ErrShapeMismatch, "cost: nil vector")
	}
	if output.Len() != target.Len() {
		return errors.Wrapf(ErrShapeMismatch, "cost: output has length %d, target %d", output.Len(), target.Len())
	}
	return nil
}

// MSE is the mean squared error 0.5·Σ(o-t)².
type MSE struct{}

func (MSE) Cost(output, target *mat.VecDense) (float64, error) {
	if err := checkPair(output, target); err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < output.Len(); i++ {
		d := output.AtVec(i) - target.AtVec(i)
		sum += d * d
	}
	return 0.5 * sum, nil
}

func (MSE) DCost(output, target *mat.VecDense) (*mat.VecDense, error) {
	if err := checkPair(output, target); err != nil {
		return nil, err
	}
	d := mat.NewVecDense(output.Len(), nil)
	d.SubVec(output, target)
	return d, nil
}

func (MSE) String() string { return "mse" }

// CrossEntropy is the binary cross-entropy summed over the outputs,
// -Σ[t·ln(o) + (1-t)·ln(1-o)]. Outputs are expected in (0, 1); they are clamped to
// [epsilon, 1-epsilon] before use.
type CrossEntropy struct{}

const epsilon = 1e-12

func clamp(o float64) float64 {
	return math.Min(math.Max(o, epsilon), 1-epsilon)
}

func (CrossEntropy) Cost(output, target *mat.VecDense) (float64, error) {
	if err := checkPair(output, target); err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < output.Len(); i++ {
		o, t := clamp(output.AtVec(i)), target.AtVec(i)
		sum -= t*math.Log(o) + (1-t)*math.Log(1-o)
	}
	return sum, nil
}

func (CrossEntropy) DCost(output, target *mat.VecDense) (*mat.VecDense, error) {
	if err := checkPair(output, target); err != nil {
		return nil, err
	}
	d := mat.NewVecDense(output.Len(), nil)
	for i := 0; i < output.Len(); i++ {
		o, t := clamp(output.AtVec(i)), target.AtVec(i)
		d.SetVec(i, (o-t)/(o*(1-o)))
	}
	return d, nil
}

func (CrossEntropy) String() string { return "crossentropy" }
