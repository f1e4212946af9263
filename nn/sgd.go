package nn

import (
	"time"

	"perceptron/utils"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Trainer runs mini-batch stochastic gradient descent on a Network. While an epoch
// runs the Trainer is the only writer of the network's parameters.
type Trainer struct {
	net  *Network
	cost Cost

	// Stats, when set, accumulates forward, backward and update time.
	Stats *utils.TimingStats
}

// EpochStats summarises one pass over the training set.
type EpochStats struct {
	Batches  int
	Examples int
	// MeanCost is the average cost of the examples used, measured on the forward
	// pass that preceded each update.
	MeanCost float64
	Duration time.Duration
}

func NewTrainer(net *Network, cost Cost) *Trainer {
	return &Trainer{net: net, cost: cost}
}

// Network returns the network being trained.
func (t *Trainer) Network() *Network { return t.net }

// OneHot returns a vector of length n with 1 at index label and 0 elsewhere.
func OneHot(label, n int) (*mat.VecDense, error) {
	if label < 0 || label >= n {
		return nil, errors.Errorf("label %d out of range [0, %d)", label, n)
	}
	v := mat.NewVecDense(n, nil)
	v.SetVec(label, 1)
	return v, nil
}

// TrainEpoch makes one pass over a fresh random permutation of the training set.
// The permutation is cut into consecutive batches of batchSize examples; a final
// partial batch is dropped. Each batch is applied with rate/batchSize so the step
// follows the averaged gradient.
func (t *Trainer) TrainEpoch(rnd *rand.Rand, inputs []*mat.VecDense, labels []int, batchSize int, rate float64) (*EpochStats, error) {
	start := time.Now()
	if batchSize <= 0 {
		return nil, errors.Errorf("TrainEpoch: batch size must be positive, got %d", batchSize)
	}
	if len(inputs) != len(labels) {
		return nil, errors.Errorf("TrainEpoch: %d inputs but %d labels", len(inputs), len(labels))
	}
	outputs := t.net.sizes[len(t.net.sizes)-1]
	targets := make([]*mat.VecDense, len(labels))
	for i, l := range labels {
		target, err := OneHot(l, outputs)
		if err != nil {
			return nil, errors.Wrapf(err, "TrainEpoch: example %d", i)
		}
		targets[i] = target
	}

	order := rnd.Perm(len(inputs))
	stats := &EpochStats{}
	var costSum float64
	batchIn := make([]*mat.VecDense, batchSize)
	batchTgt := make([]*mat.VecDense, batchSize)
	for b := 0; b+batchSize <= len(order); b += batchSize {
		for j, idx := range order[b : b+batchSize] {
			batchIn[j] = inputs[idx]
			batchTgt[j] = targets[idx]
		}
		c, err := t.TrainBatch(batchIn, batchTgt, rate)
		if err != nil {
			return nil, errors.Wrapf(err, "TrainEpoch: batch %d", stats.Batches)
		}
		costSum += c
		stats.Batches++
		stats.Examples += batchSize
	}
	if stats.Examples > 0 {
		stats.MeanCost = costSum / float64(stats.Examples)
	}
	stats.Duration = time.Since(start)
	return stats, nil
}

// TrainBatch accumulates the gradients of every example of the batch and then
// updates the network once with rate/len(inputs). It returns the summed cost of
// the batch before the update.
func (t *Trainer) TrainBatch(inputs, targets []*mat.VecDense, rate float64) (float64, error) {
	if len(inputs) == 0 {
		return 0, errors.New("TrainBatch: empty batch")
	}
	if len(inputs) != len(targets) {
		return 0, errors.Errorf("TrainBatch: %d inputs but %d targets", len(inputs), len(targets))
	}

	sum := NewGradients(t.net.sizes)
	var costSum float64
	for i := range inputs {
		fwd := time.Now()
		tr, err := t.net.Forward(inputs[i])
		if err != nil {
			return 0, errors.Wrapf(err, "example %d", i)
		}
		c, err := t.cost.Cost(tr.Output(), targets[i])
		if err != nil {
			return 0, errors.Wrapf(err, "example %d", i)
		}
		costSum += c

		bwd := time.Now()
		g, err := t.net.Backward(tr, targets[i], t.cost)
		if err != nil {
			return 0, errors.Wrapf(err, "example %d", i)
		}
		if err := sum.Add(g); err != nil {
			return 0, errors.Wrapf(err, "example %d", i)
		}
		if t.Stats != nil {
			t.Stats.ForwardPassTime += bwd.Sub(fwd)
			t.Stats.BackwardPassTime += time.Since(bwd)
		}
	}

	upd := time.Now()
	if err := t.net.ApplyUpdate(sum, rate/float64(len(inputs))); err != nil {
		return 0, err
	}
	if t.Stats != nil {
		t.Stats.UpdateTime += time.Since(upd)
	}
	return costSum, nil
}
