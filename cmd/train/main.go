// train: single-process MNIST perceptron trainer
//
// Usage:
//
//	train -data=./data -arch="784 30 10" -epochs=30 -batch=20 -lr=1.0
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"perceptron/core/ckkswrapper"
	"perceptron/dataset"
	"perceptron/nn"
	"perceptron/nn/layers"
	"perceptron/split"
	"perceptron/utils"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

var (
	dataDir      = flag.String("data", "", "MNIST directory (gzip idx files, or mnist_train.csv/mnist_test.csv); empty uses synthetic data")
	arch         = flag.String("arch", "784 30 10", "Layer sizes, input first")
	epochs       = flag.Int("epochs", 30, "Number of training epochs")
	batchSize    = flag.Int("batch", 20, "Mini-batch size")
	learningRate = flag.Float64("lr", 1.0, "Learning rate")
	costName     = flag.String("cost", "mse", "Cost function: mse, crossentropy")
	activation   = flag.String("activation", "sigmoid", "Hidden layer activation: sigmoid, tanh, relu")
	seed         = flag.Uint64("seed", 1, "Random seed for initialization and shuffling")
	trainLimit   = flag.Int("train-limit", 50000, "Use at most this many training examples (0 = all)")
	testLimit    = flag.Int("test-limit", 10000, "Use at most this many test examples (0 = all)")
	samples      = flag.Int("samples", 1000, "Number of synthetic samples when -data is empty")
	verbose      = flag.Bool("verbose", false, "Verbose output")
	heSamples    = flag.Int("he-samples", 0, "Evaluate this many test samples with an encrypted first layer after training")
	logN         = flag.Int("logN", ckkswrapper.DefaultLogN, "Ring dimension log2 for encrypted evaluation (12-16)")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	layerSizes, err := utils.ParseArchitecture(*arch)
	if err != nil {
		return errors.Wrap(err, "parsing -arch")
	}
	cfg := utils.Config{
		Architecture: layerSizes,
		DataRoot:     *dataDir,
		BatchSize:    *batchSize,
		Epochs:       *epochs,
		LearningRate: *learningRate,
		Cost:         *costName,
		Activation:   *activation,
		Seed:         *seed,
		TrainLimit:   *trainLimit,
		TestLimit:    *testLimit,
		HESamples:    *heSamples,
		LogN:         *logN,
	}
	if err := utils.ValidateConfig(&cfg); err != nil {
		return err
	}
	cost, ok := nn.CostLookup[cfg.Cost]
	if !ok {
		return errors.Errorf("unknown cost %q", cfg.Cost)
	}

	stats := &utils.TimingStats{}
	totalStart := time.Now()
	rnd := rand.New(rand.NewSource(cfg.Seed))

	start := time.Now()
	train, test, err := loadData(&cfg, rnd)
	if err != nil {
		return err
	}
	stats.DataLoadingTime = time.Since(start)
	utils.Logf("Loaded %d training and %d test examples in %v\n", train.Len(), test.Len(), stats.DataLoadingTime)

	start = time.Now()
	net, err := buildNetwork(&cfg, rnd)
	if err != nil {
		return err
	}
	stats.ModelInitTime = time.Since(start)
	utils.Logf("Network %v, cost %s, batch %d, rate %v\n", net.Layers(), cost, cfg.BatchSize, cfg.LearningRate)

	trainer := nn.NewTrainer(net, cost)
	trainer.Stats = stats
	steps := 0
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		es, err := trainer.TrainEpoch(rnd, train.Inputs, train.Labels, cfg.BatchSize, cfg.LearningRate)
		if err != nil {
			return errors.Wrapf(err, "epoch %d", epoch)
		}
		steps += es.Examples

		start = time.Now()
		correct, total, err := nn.Evaluate(net, test.Inputs, test.Labels)
		if err != nil {
			return errors.Wrapf(err, "epoch %d", epoch)
		}
		stats.EvaluationTime += time.Since(start)

		fmt.Printf("Epoch %d: %d/%d\n", epoch, correct, total)
		utils.Logf("  mean cost %.6f over %d batches in %v\n", es.MeanCost, es.Batches, es.Duration)
	}

	if cfg.HESamples > 0 {
		if err := evaluateEncrypted(&cfg, net, test, stats); err != nil {
			return err
		}
	}

	stats.TotalTime = time.Since(totalStart)
	utils.PrintTimingStats(stats, steps)
	return nil
}

func loadData(cfg *utils.Config, rnd *rand.Rand) (train, test *dataset.Set, err error) {
	inputs := cfg.Architecture[0]
	classes := cfg.Architecture[len(cfg.Architecture)-1]
	switch {
	case cfg.DataRoot == "":
		all, err := dataset.Synthetic(rnd, *samples, inputs, classes)
		if err != nil {
			return nil, nil, err
		}
		cut := all.Len() * 5 / 6
		train = &dataset.Set{Inputs: all.Inputs[:cut], Labels: all.Labels[:cut]}
		test = &dataset.Set{Inputs: all.Inputs[cut:], Labels: all.Labels[cut:]}
	case fileExists(filepath.Join(cfg.DataRoot, "mnist_train.csv")):
		if train, err = dataset.LoadCSV(filepath.Join(cfg.DataRoot, "mnist_train.csv"), inputs); err != nil {
			return nil, nil, err
		}
		if test, err = dataset.LoadCSV(filepath.Join(cfg.DataRoot, "mnist_test.csv"), inputs); err != nil {
			return nil, nil, err
		}
	default:
		if inputs != dataset.MNISTInputs {
			return nil, nil, errors.Errorf("MNIST needs %d inputs, architecture has %d", dataset.MNISTInputs, inputs)
		}
		if train, test, err = dataset.LoadMNIST(cfg.DataRoot, 0, 0); err != nil {
			return nil, nil, err
		}
	}
	train.Limit(cfg.TrainLimit)
	test.Limit(cfg.TestLimit)
	if err := train.Validate(inputs, classes); err != nil {
		return nil, nil, errors.Wrap(err, "training set")
	}
	if err := test.Validate(inputs, classes); err != nil {
		return nil, nil, errors.Wrap(err, "test set")
	}
	return train, test, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// buildNetwork uses the configured activation for hidden layers and a sigmoid
// output layer.
func buildNetwork(cfg *utils.Config, rnd *rand.Rand) (*nn.Network, error) {
	sizes := cfg.Architecture
	ls := make([]nn.Layer, len(sizes))
	ls[0] = layers.NewInput(sizes[0])
	for i := 1; i < len(sizes)-1; i++ {
		act, err := layers.NewActivation(cfg.Activation, sizes[i])
		if err != nil {
			return nil, err
		}
		ls[i] = act
	}
	ls[len(sizes)-1] = layers.NewSigmoid(sizes[len(sizes)-1])
	return nn.NewNetworkWithLayers(ls, rnd)
}

func evaluateEncrypted(cfg *utils.Config, net *nn.Network, test *dataset.Set, stats *utils.TimingStats) error {
	n := cfg.HESamples
	if n > test.Len() {
		n = test.Len()
	}
	utils.Logf("Generating CKKS keys (logN=%d)...\n", cfg.LogN)
	he, err := ckkswrapper.NewHeContext(cfg.LogN)
	if err != nil {
		return err
	}
	client, err := split.StartLocal(he, net.Snapshot(), stats)
	if err != nil {
		return err
	}
	correct, total, err := split.Evaluate(client, test.Inputs[:n], test.Labels[:n])
	if cerr := client.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrap(err, "encrypted evaluation")
	}
	fmt.Printf("Encrypted: %d/%d\n", correct, total)
	return nil
}
