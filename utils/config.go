package utils

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Config holds training configuration
type Config struct {
	Architecture []int
	DataRoot     string
	BatchSize    int
	Epochs       int
	LearningRate float64
	Cost         string
	Activation   string
	Seed         uint64
	TrainLimit   int
	TestLimit    int
	// HESamples is the number of test samples to evaluate under encryption
	// after training; 0 disables encrypted evaluation.
	HESamples int
	LogN      int
}

// DefaultConfig mirrors the reference MNIST run: [784 30 10], batches of 20,
// learning rate 1.0.
func DefaultConfig() Config {
	return Config{
		Architecture: []int{784, 30, 10},
		BatchSize:    20,
		Epochs:       30,
		LearningRate: 1.0,
		Cost:         "mse",
		Activation:   "sigmoid",
		Seed:         1,
		TrainLimit:   50000,
		TestLimit:    10000,
		LogN:         13,
	}
}

// ParseArchitecture parses architecture string into slice of integers.
// Sizes may be separated by spaces or commas.
func ParseArchitecture(archStr string) ([]int, error) {
	archParts := strings.FieldsFunc(archStr, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	arch := make([]int, len(archParts))
	for i, s := range archParts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		arch[i] = n
	}
	return arch, nil
}

// ValidateConfig validates training configuration
func ValidateConfig(config *Config) error {
	if len(config.Architecture) < 2 {
		return errors.New("architecture must have at least 2 layers (input and output)")
	}
	for i, n := range config.Architecture {
		if n <= 0 {
			return errors.Errorf("layer %d must have a positive size, got %d", i, n)
		}
	}

	if config.BatchSize <= 0 {
		return errors.New("batch size must be positive")
	}

	if config.Epochs <= 0 {
		return errors.New("epochs must be positive")
	}

	if config.LearningRate <= 0 {
		return errors.New("learning rate must be positive")
	}

	if config.TrainLimit < 0 || config.TestLimit < 0 || config.HESamples < 0 {
		return errors.New("limits must not be negative")
	}

	if config.HESamples > 0 && (config.LogN < 12 || config.LogN > 16) {
		return errors.Errorf("logN must be in [12, 16], got %d", config.LogN)
	}

	return nil
}
