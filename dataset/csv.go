package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ReadCSV reads rows of the form label,p1,...,pN where every p is a pixel
// intensity in [0, 255]. Pixels are scaled to [0, 1].
func ReadCSV(r io.Reader, inputs int) (*Set, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = inputs + 1
	cr.ReuseRecord = true
	s := &Set{}
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		label, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: parsing label", line)
		}
		data := make([]float64, inputs)
		for i := range data {
			x, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: parsing input %d", line, i)
			}
			if x < 0 || x > 255 {
				return nil, errors.Errorf("line %d: input %d is %v, want [0, 255]", line, i, x)
			}
			data[i] = x / 255
		}
		s.Inputs = append(s.Inputs, mat.NewVecDense(inputs, data))
		s.Labels = append(s.Labels, label)
	}
	return s, nil
}

// LoadCSV opens filename and reads it with ReadCSV.
func LoadCSV(filename string, inputs int) (*Set, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "opening csv")
	}
	defer f.Close()
	s, err := ReadCSV(f, inputs)
	if err != nil {
		return nil, errors.Wrap(err, filename)
	}
	return s, nil
}
