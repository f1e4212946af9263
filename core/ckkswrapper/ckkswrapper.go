// Package ckkswrapper bundles the CKKS objects (parameters, keys, encoder,
// encryptor, decryptor) a client needs, and hands out secret-key-free
// evaluation kits to the party that computes on its ciphertexts.
package ckkswrapper

import (
	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/he/hefloat"
)

// DefaultLogN gives 4096 slots, enough for a 784-pixel image padded to 1024.
const DefaultLogN = 13

// HeContext is owned by the client: it holds the secret key.
type HeContext struct {
	Params    hefloat.Parameters
	Encoder   *hefloat.Encoder
	Encryptor *rlwe.Encryptor
	Decryptor *rlwe.Decryptor

	kgen *rlwe.KeyGenerator
	sk   *rlwe.SecretKey
	rlk  *rlwe.RelinearizationKey
}

// ServerKit is what the evaluating party receives. It can multiply, add and
// rotate ciphertexts but cannot decrypt them.
type ServerKit struct {
	Params    hefloat.Parameters
	Encoder   *hefloat.Encoder
	Evaluator *hefloat.Evaluator
}

// NewHeContext generates fresh keys for a ring of degree 2^logN with two 40-bit
// levels above a 55-bit base modulus and a default scale of 2^40.
func NewHeContext(logN int) (*HeContext, error) {
	params, err := hefloat.NewParametersFromLiteral(hefloat.ParametersLiteral{
		LogN:            logN,
		LogQ:            []int{55, 40, 40},
		LogP:            []int{61},
		LogDefaultScale: 40,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "ckks parameters for logN=%d", logN)
	}

	kgen := hefloat.NewKeyGenerator(params)
	sk, pk := kgen.GenKeyPairNew()
	return &HeContext{
		Params:    params,
		Encoder:   hefloat.NewEncoder(params),
		Encryptor: hefloat.NewEncryptor(params, pk),
		Decryptor: hefloat.NewDecryptor(params, sk),
		kgen:      kgen,
		sk:        sk,
		rlk:       kgen.GenRelinearizationKeyNew(sk),
	}, nil
}

// Slots returns the number of values one ciphertext carries.
func (h *HeContext) Slots() int { return h.Params.MaxSlots() }

// GenServerKit generates the relinearization key and one Galois key per
// rotation step, and wraps them in an evaluator.
func (h *HeContext) GenServerKit(rotations []int) *ServerKit {
	galEls := make([]uint64, len(rotations))
	for i, k := range rotations {
		galEls[i] = h.Params.GaloisElement(k)
	}
	evk := rlwe.NewMemEvaluationKeySet(h.rlk, h.kgen.GenGaloisKeysNew(galEls, h.sk)...)
	return &ServerKit{
		Params:    h.Params,
		Encoder:   hefloat.NewEncoder(h.Params),
		Evaluator: hefloat.NewEvaluator(h.Params, evk),
	}
}

// EncryptVector encodes values into the first slots of a fresh plaintext at the
// top level and encrypts it. Unused slots are zero.
func (h *HeContext) EncryptVector(values []float64) (*rlwe.Ciphertext, error) {
	if len(values) > h.Slots() {
		return nil, errors.Errorf("%d values do not fit in %d slots", len(values), h.Slots())
	}
	pt := hefloat.NewPlaintext(h.Params, h.Params.MaxLevel())
	if err := h.Encoder.Encode(values, pt); err != nil {
		return nil, errors.Wrap(err, "encode")
	}
	ct, err := h.Encryptor.EncryptNew(pt)
	if err != nil {
		return nil, errors.Wrap(err, "encrypt")
	}
	return ct, nil
}

// DecryptVector decrypts ct and returns the real parts of its first n slots.
func (h *HeContext) DecryptVector(ct *rlwe.Ciphertext, n int) ([]float64, error) {
	if n < 0 || n > h.Slots() {
		return nil, errors.Errorf("cannot read %d of %d slots", n, h.Slots())
	}
	values := make([]float64, h.Slots())
	if err := h.Encoder.Decode(h.Decryptor.DecryptNew(ct), values); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	return values[:n], nil
}

// SumRotations returns the rotation steps 1, 2, 4, ... below n that fold the
// first n slots of a ciphertext into slot 0.
func SumRotations(n int) []int {
	var rots []int
	for step := 1; step < n; step *= 2 {
		rots = append(rots, step)
	}
	return rots
}
