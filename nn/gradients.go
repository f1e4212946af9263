package nn

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Gradients holds one weight gradient and one bias gradient per layer transition.
// Its shapes always equal the shapes of the parameters it was derived from.
type Gradients struct {
	Weights []*mat.Dense
	Biases  []*mat.VecDense
}

// NewGradients returns a zeroed accumulator for a network with the given layer
// sizes.
func NewGradients(sizes []int) *Gradients {
	g := &Gradients{
		Weights: make([]*mat.Dense, len(sizes)-1),
		Biases:  make([]*mat.VecDense, len(sizes)-1),
	}
	for i := range g.Weights {
		g.Weights[i] = mat.NewDense(sizes[i+1], sizes[i], nil)
		g.Biases[i] = mat.NewVecDense(sizes[i+1], nil)
	}
	return g
}

// Add sums o into g element-wise. Nothing is added unless every shape matches.
func (g *Gradients) Add(o *Gradients) error {
	if err := g.sameShape(o); err != nil {
		return errors.Wrap(err, "Gradients.Add")
	}
	for i := range g.Weights {
		g.Weights[i].Add(g.Weights[i], o.Weights[i])
		g.Biases[i].AddVec(g.Biases[i], o.Biases[i])
	}
	return nil
}

func (g *Gradients) sameShape(o *Gradients) error {
	if o == nil {
		return errors.Wrap(ErrShapeMismatch, "nil gradients")
	}
	if len(o.Weights) != len(g.Weights) || len(o.Biases) != len(g.Biases) {
		return errors.Wrapf(ErrShapeMismatch, "%d/%d transitions, want %d",
			len(o.Weights), len(o.Biases), len(g.Weights))
	}
	for i := range g.Weights {
		if o.Weights[i] == nil || !sameShape(g.Weights[i], o.Weights[i]) {
			return errors.Wrapf(ErrShapeMismatch, "weight gradient %d", i)
		}
		if o.Biases[i] == nil || g.Biases[i].Len() != o.Biases[i].Len() {
			return errors.Wrapf(ErrShapeMismatch, "bias gradient %d", i)
		}
	}
	return nil
}
