package nn

import (
	"perceptron/nn/layers"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidTopology is returned when a network would have no weight transitions.
	ErrInvalidTopology = errors.New("invalid topology")
	// ErrShapeMismatch is returned for any vector or matrix of the wrong shape.
	ErrShapeMismatch = layers.ErrShapeMismatch
)
