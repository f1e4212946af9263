// Package split runs the first weight transition of a trained network on
// encrypted inputs. The client holds the secret key and the rest of the
// network; the server holds the first weight matrix and bias and only ever sees
// ciphertexts.
package split

import (
	"encoding/gob"
	"io"

	"github.com/pkg/errors"
)

func init() {
	gob.Register(ForwardInput{})
	gob.Register(ForwardOutput{})
}

// MessageType defines message types for the split inference protocol
type MessageType int

const (
	MsgForwardInput MessageType = iota
	MsgForwardOutput
	MsgDone
	MsgError
)

func (t MessageType) String() string {
	switch t {
	case MsgForwardInput:
		return "forward-input"
	case MsgForwardOutput:
		return "forward-output"
	case MsgDone:
		return "done"
	case MsgError:
		return "error"
	}
	return "unknown"
}

// ErrRemote wraps an error reported by the other side.
var ErrRemote = errors.New("remote error")

// Message represents a message in the split inference protocol
type Message struct {
	Type    MessageType
	Payload interface{}
}

// ForwardInput carries one encrypted input vector.
type ForwardInput struct {
	RequestID  int
	Ciphertext []byte
}

// ForwardOutput carries one ciphertext per output neuron of the first
// transition. Slot 0 of ciphertext i holds pre-activation i.
type ForwardOutput struct {
	RequestID   int
	Ciphertexts [][]byte
}

// Protocol handles split inference communication
type Protocol struct {
	encoder *gob.Encoder
	decoder *gob.Decoder
}

// NewProtocol creates a new protocol handler
func NewProtocol(r io.Reader, w io.Writer) *Protocol {
	return &Protocol{
		encoder: gob.NewEncoder(w),
		decoder: gob.NewDecoder(r),
	}
}

// Send sends a message
func (p *Protocol) Send(msg *Message) error {
	return errors.Wrapf(p.encoder.Encode(msg), "sending %s", msg.Type)
}

// Receive receives a message
func (p *Protocol) Receive() (*Message, error) {
	var msg Message
	if err := p.decoder.Decode(&msg); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, errors.Wrap(err, "receiving message")
	}
	return &msg, nil
}

func (p *Protocol) SendInput(id int, ct []byte) error {
	return p.Send(&Message{Type: MsgForwardInput, Payload: ForwardInput{RequestID: id, Ciphertext: ct}})
}

func (p *Protocol) SendOutput(id int, cts [][]byte) error {
	return p.Send(&Message{Type: MsgForwardOutput, Payload: ForwardOutput{RequestID: id, Ciphertexts: cts}})
}

// SendDone signals completion
func (p *Protocol) SendDone() error {
	return p.Send(&Message{Type: MsgDone})
}

// SendError sends an error message
func (p *Protocol) SendError(err error) error {
	return p.Send(&Message{Type: MsgError, Payload: err.Error()})
}

// receive reads the next message and turns Done into io.EOF and Error into an
// error wrapping ErrRemote.
func (p *Protocol) receive(want MessageType) (*Message, error) {
	msg, err := p.Receive()
	if err != nil {
		return nil, err
	}
	switch msg.Type {
	case want:
		return msg, nil
	case MsgDone:
		return nil, io.EOF
	case MsgError:
		return nil, errors.Wrapf(ErrRemote, "%v", msg.Payload)
	}
	return nil, errors.Errorf("expected %s message, got %s", want, msg.Type)
}

// ReceiveInput receives a forward input. It returns io.EOF once the peer sent
// Done.
func (p *Protocol) ReceiveInput() (*ForwardInput, error) {
	msg, err := p.receive(MsgForwardInput)
	if err != nil {
		return nil, err
	}
	payload, ok := msg.Payload.(ForwardInput)
	if !ok {
		return nil, errors.Errorf("invalid forward input payload %T", msg.Payload)
	}
	return &payload, nil
}

// ReceiveOutput receives the server's answer to a forward input.
func (p *Protocol) ReceiveOutput() (*ForwardOutput, error) {
	msg, err := p.receive(MsgForwardOutput)
	if err != nil {
		return nil, err
	}
	payload, ok := msg.Payload.(ForwardOutput)
	if !ok {
		return nil, errors.Errorf("invalid forward output payload %T", msg.Payload)
	}
	return &payload, nil
}
