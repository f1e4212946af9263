package dataset

import (
	"github.com/petar/GoMNIST"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// MNIST dimensions.
const (
	MNISTInputs  = 28 * 28
	MNISTClasses = 10
)

// LoadMNIST reads the four gzip idx files (train-images-idx3-ubyte.gz and
// friends) from dir. Pixels are scaled to [0, 1]. A positive limit keeps only the
// first examples of the corresponding set.
func LoadMNIST(dir string, trainLimit, testLimit int) (train, test *Set, err error) {
	rawTrain, rawTest, err := GoMNIST.Load(dir)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "loading MNIST from %s", dir)
	}
	if train, err = fromMNIST(rawTrain, trainLimit); err != nil {
		return nil, nil, errors.Wrap(err, "train set")
	}
	if test, err = fromMNIST(rawTest, testLimit); err != nil {
		return nil, nil, errors.Wrap(err, "test set")
	}
	return train, test, nil
}

func fromMNIST(raw *GoMNIST.Set, limit int) (*Set, error) {
	if raw.NRow*raw.NCol != MNISTInputs {
		return nil, errors.Errorf("images are %dx%d, want 28x28", raw.NRow, raw.NCol)
	}
	n := raw.Count()
	if limit > 0 && limit < n {
		n = limit
	}
	s := &Set{
		Inputs: make([]*mat.VecDense, n),
		Labels: make([]int, n),
	}
	for i := 0; i < n; i++ {
		img, label := raw.Get(i)
		s.Inputs[i] = pixels(img)
		s.Labels[i] = int(label)
	}
	return s, s.Validate(MNISTInputs, MNISTClasses)
}

func pixels(img []byte) *mat.VecDense {
	data := make([]float64, len(img))
	for i, p := range img {
		data[i] = float64(p) / 255
	}
	return mat.NewVecDense(len(data), data)
}
