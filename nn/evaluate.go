package nn

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Evaluate runs every test input through net and counts how often the index of the
// largest output equals the label. It does not modify net.
func Evaluate(net *Network, inputs []*mat.VecDense, labels []int) (correct, total int, err error) {
	if len(inputs) != len(labels) {
		return 0, 0, errors.Errorf("Evaluate: %d inputs but %d labels", len(inputs), len(labels))
	}
	for i, x := range inputs {
		out, err := net.Predict(x)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "Evaluate: example %d", i)
		}
		if ArgMax(out) == labels[i] {
			correct++
		}
	}
	return correct, len(inputs), nil
}
