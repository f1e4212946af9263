package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Layer is a single unit of the network stack. A Layer never changes
// dimensionality: InputShape and OutputShape are both its neuron count, and the
// weight matrix feeding it maps the previous layer onto it.
type Layer interface {
	InputShape() int
	OutputShape() int
	// FeedForward applies the layer to its pre-activation input.
	FeedForward(x *mat.VecDense) (*mat.VecDense, error)
	// BackProp takes the error signal arriving from the layer above and the
	// pre-activation this layer saw on the forward pass, and returns
	// nabla ⊙ activation'(x).
	BackProp(nabla, x *mat.VecDense) (*mat.VecDense, error)
	fmt.Stringer
}
