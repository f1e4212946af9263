// Package dataset loads labelled examples for the trainer: MNIST from its gzip
// idx files, CSV rows, or a generated synthetic set.
package dataset

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Set is a list of input vectors with one class label each. Inputs are in [0, 1].
type Set struct {
	Inputs []*mat.VecDense
	Labels []int
}

// Len returns the number of examples.
func (s *Set) Len() int { return len(s.Inputs) }

// Limit truncates the set to its first n examples. n <= 0 keeps everything.
func (s *Set) Limit(n int) {
	if n > 0 && n < len(s.Inputs) {
		s.Inputs = s.Inputs[:n]
		s.Labels = s.Labels[:n]
	}
}

// Validate checks that every input has the given size and every label lies in
// [0, classes).
func (s *Set) Validate(inputs, classes int) error {
	if len(s.Inputs) != len(s.Labels) {
		return errors.Errorf("%d inputs but %d labels", len(s.Inputs), len(s.Labels))
	}
	for i, x := range s.Inputs {
		if x.Len() != inputs {
			return errors.Errorf("example %d has %d inputs, want %d", i, x.Len(), inputs)
		}
		if l := s.Labels[i]; l < 0 || l >= classes {
			return errors.Errorf("example %d has label %d, want [0, %d)", i, l, classes)
		}
	}
	return nil
}
