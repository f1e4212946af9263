package split

import (
	"io"
	"time"

	"perceptron/core/ckkswrapper"
	"perceptron/nn"
	"perceptron/utils"

	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"gonum.org/v1/gonum/mat"
)

// Client encrypts inputs, lets the server evaluate the first transition, and
// finishes the forward pass in the clear with its own copy of the network.
type Client struct {
	he    *ckkswrapper.HeContext
	net   *nn.Network
	proto *Protocol
	next  int

	// closing is called by Close after Done has been sent.
	closing func() error

	// Stats, when set, accumulates encryption and decryption time.
	Stats *utils.TimingStats
}

func NewClient(he *ckkswrapper.HeContext, net *nn.Network, proto *Protocol) *Client {
	return &Client{he: he, net: net, proto: proto}
}

// Predict returns the output activation for x, computed with an encrypted first
// transition.
func (c *Client) Predict(x *mat.VecDense) (*mat.VecDense, error) {
	sizes := c.net.Sizes()
	if x == nil || x.Len() != sizes[0] {
		return nil, errors.Wrapf(nn.ErrShapeMismatch, "split predict: input does not have length %d", sizes[0])
	}

	enc := time.Now()
	ct, err := c.he.EncryptVector(mat.Col(nil, 0, x))
	if err != nil {
		return nil, err
	}
	data, err := ct.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "encoding ciphertext")
	}
	if c.Stats != nil {
		c.Stats.EncryptionTime += time.Since(enc)
	}

	id := c.next
	c.next++
	if err := c.proto.SendInput(id, data); err != nil {
		return nil, err
	}
	out, err := c.proto.ReceiveOutput()
	if err != nil {
		return nil, err
	}
	if out.RequestID != id {
		return nil, errors.Errorf("got answer to request %d, want %d", out.RequestID, id)
	}
	if len(out.Ciphertexts) != sizes[1] {
		return nil, errors.Wrapf(nn.ErrShapeMismatch, "server returned %d pre-activations, want %d", len(out.Ciphertexts), sizes[1])
	}

	dec := time.Now()
	z := mat.NewVecDense(sizes[1], nil)
	for i, b := range out.Ciphertexts {
		ct := new(rlwe.Ciphertext)
		if err := ct.UnmarshalBinary(b); err != nil {
			return nil, errors.Wrapf(err, "decoding output %d", i)
		}
		v, err := c.he.DecryptVector(ct, 1)
		if err != nil {
			return nil, errors.Wrapf(err, "output %d", i)
		}
		z.SetVec(i, v[0])
	}
	if c.Stats != nil {
		c.Stats.DecryptionTime += time.Since(dec)
	}
	return c.net.ForwardFrom(0, z)
}

// Close tells the server no more requests follow.
func (c *Client) Close() error {
	if err := c.proto.SendDone(); err != nil {
		return err
	}
	if c.closing != nil {
		return c.closing()
	}
	return nil
}

// StartLocal runs a server for the first transition of net in a goroutine and
// connects a client to it through in-memory pipes. The server works on a copy of
// the first weight matrix and bias. Closing the client stops the server and
// returns its error.
func StartLocal(he *ckkswrapper.HeContext, net *nn.Network, stats *utils.TimingStats) (*Client, error) {
	kit := he.GenServerKit(ckkswrapper.SumRotations(net.Sizes()[0]))
	srv, err := NewServer(kit, net.Weights(0), net.Biases(0))
	if err != nil {
		return nil, err
	}
	srv.Stats = stats

	srvIn, cliOut := io.Pipe()
	cliIn, srvOut := io.Pipe()
	errc := make(chan error, 1)
	go func() {
		err := srv.Serve(NewProtocol(srvIn, srvOut))
		srvOut.Close()
		srvIn.Close()
		errc <- err
	}()

	c := NewClient(he, net, NewProtocol(cliIn, cliOut))
	c.Stats = stats
	c.closing = func() error {
		err := <-errc
		cliOut.Close()
		cliIn.Close()
		return err
	}
	return c, nil
}

// Evaluate is nn.Evaluate with every prediction made through c.
func Evaluate(c *Client, inputs []*mat.VecDense, labels []int) (correct, total int, err error) {
	if len(inputs) != len(labels) {
		return 0, 0, errors.Errorf("Evaluate: %d inputs but %d labels", len(inputs), len(labels))
	}
	for i, x := range inputs {
		out, err := c.Predict(x)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "Evaluate: example %d", i)
		}
		if nn.ArgMax(out) == labels[i] {
			correct++
		}
	}
	return correct, len(inputs), nil
}
