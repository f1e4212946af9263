package layers

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrShapeMismatch is returned when a vector does not have the length a layer expects.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrInputBackProp is returned when backpropagation reaches an Input layer.
	ErrInputBackProp = errors.New("cannot back prop on input layer")
)

func checkLen(v *mat.VecDense, want int, what string) error {
	if v == nil {
		return errors.Wrapf(ErrShapeMismatch, "%s is nil, want length %d", what, want)
	}
	if v.Len() != want {
		return errors.Wrapf(ErrShapeMismatch, "%s has length %d, want %d", what, v.Len(), want)
	}
	return nil
}
