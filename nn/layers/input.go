package layers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Input is the first layer of a network. It has no activation function: FeedForward
// hands the input through unchanged and BackProp always fails.
type Input struct {
	neurons int
}

func NewInput(neurons int) *Input { return &Input{neurons: neurons} }

func (l *Input) InputShape() int  { return l.neurons }
func (l *Input) OutputShape() int { return l.neurons }

func (l *Input) FeedForward(x *mat.VecDense) (*mat.VecDense, error) {
	if err := checkLen(x, l.neurons, "Input: x"); err != nil {
		return nil, err
	}
	out := mat.NewVecDense(l.neurons, nil)
	out.CopyVec(x)
	return out, nil
}

func (l *Input) BackProp(nabla, x *mat.VecDense) (*mat.VecDense, error) {
	return nil, ErrInputBackProp
}

func (l *Input) String() string {
	return fmt.Sprintf("Input_%d", l.neurons)
}
