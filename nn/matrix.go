package nn

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// outer returns the column vector u times the row vector vᵀ.
func outer(u, v mat.Vector) *mat.Dense {
	o := mat.NewDense(u.Len(), v.Len(), nil)
	o.Outer(1, u, v)
	return o
}

// affine returns w·x + b.
func affine(w mat.Matrix, x, b mat.Vector) *mat.VecDense {
	r, _ := w.Dims()
	o := mat.NewVecDense(r, nil)
	o.MulVec(w, x)
	o.AddVec(o, b)
	return o
}

// vecData copies the elements of v into a new slice.
func vecData(v mat.Vector) []float64 {
	return mat.Col(nil, 0, v)
}

// ArgMax returns the index of the largest element of v. Ties go to the lowest
// index.
func ArgMax(v mat.Vector) int {
	return floats.MaxIdx(vecData(v))
}

func sameShape(a, b mat.Matrix) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	return ar == br && ac == bc
}

func checkVec(v *mat.VecDense, want int, what string) error {
	if v == nil {
		return errors.Wrapf(ErrShapeMismatch, "%s is nil, want length %d", what, want)
	}
	if v.Len() != want {
		return errors.Wrapf(ErrShapeMismatch, "%s has length %d, want %d", what, v.Len(), want)
	}
	return nil
}
