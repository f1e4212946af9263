package split

import (
	"io"
	"time"

	"perceptron/core/ckkswrapper"
	"perceptron/utils"

	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/he/hefloat"
	"gonum.org/v1/gonum/mat"
)

// Server evaluates z = W·x + b on an encrypted x. It keeps its own copy of W and
// b taken at construction, so training may go on while it serves.
type Server struct {
	kit     *ckkswrapper.ServerKit
	inputs  int
	weights [][]float64
	biases  []float64
	rots    []int

	// Stats, when set, accumulates the time spent in Linear.
	Stats *utils.TimingStats
}

// NewServer copies w (outputs × inputs) and b (outputs). The kit must carry
// Galois keys for ckkswrapper.SumRotations(inputs).
func NewServer(kit *ckkswrapper.ServerKit, w mat.Matrix, b mat.Vector) (*Server, error) {
	r, c := w.Dims()
	if b.Len() != r {
		return nil, errors.Errorf("bias has length %d, want %d", b.Len(), r)
	}
	if slots := kit.Params.MaxSlots(); pow2(c) > slots {
		return nil, errors.Errorf("%d inputs do not fit in %d slots", c, slots)
	}
	s := &Server{
		kit:     kit,
		inputs:  c,
		weights: make([][]float64, r),
		biases:  mat.Col(nil, 0, b),
		rots:    ckkswrapper.SumRotations(c),
	}
	for i := range s.weights {
		s.weights[i] = mat.Row(nil, i, w)
	}
	return s, nil
}

func pow2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

// Outputs returns the number of ciphertexts Linear produces.
func (s *Server) Outputs() int { return len(s.weights) }

// Linear returns one ciphertext per output neuron i whose slot 0 holds
// Σ_j W[i][j]·x_j + b[i]. The row is multiplied into ct slot-wise, rescaled, and
// folded into slot 0 by rotations of 1, 2, 4, ... slots. Other slots hold
// partial sums and must be ignored.
func (s *Server) Linear(ct *rlwe.Ciphertext) ([]*rlwe.Ciphertext, error) {
	start := time.Now()
	if ct.Level() < 1 {
		return nil, errors.Errorf("ciphertext at level %d cannot be rescaled", ct.Level())
	}
	params, eval := s.kit.Params, s.kit.Evaluator
	out := make([]*rlwe.Ciphertext, len(s.weights))
	for i, row := range s.weights {
		pt := hefloat.NewPlaintext(params, ct.Level())
		if err := s.kit.Encoder.Encode(row, pt); err != nil {
			return nil, errors.Wrapf(err, "encoding row %d", i)
		}
		prod, err := eval.MulNew(ct, pt)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		acc := rlwe.NewCiphertext(params, prod.Degree(), prod.Level()-1)
		if err := eval.Rescale(prod, acc); err != nil {
			return nil, errors.Wrapf(err, "rescaling row %d", i)
		}
		for _, k := range s.rots {
			rot, err := eval.RotateNew(acc, k)
			if err != nil {
				return nil, errors.Wrapf(err, "rotating row %d by %d", i, k)
			}
			if err := eval.Add(acc, rot, acc); err != nil {
				return nil, errors.Wrapf(err, "row %d", i)
			}
		}
		if err := eval.Add(acc, s.biases[i], acc); err != nil {
			return nil, errors.Wrapf(err, "adding bias %d", i)
		}
		out[i] = acc
	}
	if s.Stats != nil {
		s.Stats.ServerLinearTime += time.Since(start)
	}
	return out, nil
}

// Serve answers forward inputs until the peer sends Done. Errors in a single
// request are reported back and the loop continues; transport errors end it.
func (s *Server) Serve(p *Protocol) error {
	for {
		in, err := p.ReceiveInput()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		cts, err := s.handle(in)
		if err != nil {
			if err := p.SendError(errors.Wrapf(err, "request %d", in.RequestID)); err != nil {
				return err
			}
			continue
		}
		if err := p.SendOutput(in.RequestID, cts); err != nil {
			return err
		}
	}
}

func (s *Server) handle(in *ForwardInput) ([][]byte, error) {
	ct := new(rlwe.Ciphertext)
	if err := ct.UnmarshalBinary(in.Ciphertext); err != nil {
		return nil, errors.Wrap(err, "decoding ciphertext")
	}
	res, err := s.Linear(ct)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(res))
	for i, c := range res {
		if out[i], err = c.MarshalBinary(); err != nil {
			return nil, errors.Wrapf(err, "encoding output %d", i)
		}
	}
	return out, nil
}
