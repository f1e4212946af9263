package dataset

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Synthetic generates n examples assigned round-robin to the classes. Each class
// owns a random prototype in [0.2, 0.8]^inputs and its examples are that
// prototype plus Gaussian noise (sigma 0.05), clipped to [0, 1].
func Synthetic(rnd *rand.Rand, n, inputs, classes int) (*Set, error) {
	if n < 0 || inputs <= 0 || classes <= 0 {
		return nil, errors.Errorf("synthetic set needs n >= 0, positive inputs and classes; got %d, %d, %d", n, inputs, classes)
	}
	proto := distuv.Uniform{Min: 0.2, Max: 0.8, Src: rnd}
	noise := distuv.Normal{Mu: 0, Sigma: 0.05, Src: rnd}

	centers := make([][]float64, classes)
	for c := range centers {
		centers[c] = make([]float64, inputs)
		for i := range centers[c] {
			centers[c][i] = proto.Rand()
		}
	}

	s := &Set{
		Inputs: make([]*mat.VecDense, n),
		Labels: make([]int, n),
	}
	for k := 0; k < n; k++ {
		c := k % classes
		data := make([]float64, inputs)
		for i := range data {
			data[i] = clip(centers[c][i] + noise.Rand())
		}
		s.Inputs[k] = mat.NewVecDense(inputs, data)
		s.Labels[k] = c
	}
	return s, nil
}

func clip(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
