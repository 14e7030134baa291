// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package bdhke implements the blind Diffie-Hellman key exchange used to
// obtain mint signatures on secrets the mint never sees.
//
//	Y  = HashToCurve(secret)
//	B_ = Y + rG          (wallet, blinding)
//	C_ = kB_             (mint, signing)
//	C  = C_ - rK = kY    (wallet, unblinding with the mint pubkey K = kG)
package bdhke

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// DomainSeparator prefixes the message before hashing to the curve.
var DomainSeparator = []byte("Secp256k1_HashToCurve_Cashu_")

const maxHashToCurveIterations = 1 << 16

// ErrNoPoint is returned when no valid point was found for a message. This
// happens with negligible probability.
var ErrNoPoint = errors.New("no valid curve point found for message")

// HashToCurve deterministically maps the message to a point with an even y
// coordinate.
func HashToCurve(msg []byte) (*secp256k1.PublicKey, error) {
	msgHash := sha256.Sum256(append(append([]byte{}, DomainSeparator...), msg...))
	var counter [4]byte
	for i := uint32(0); i < maxHashToCurveIterations; i++ {
		binary.LittleEndian.PutUint32(counter[:], i)
		h := sha256.Sum256(append(msgHash[:], counter[:]...))
		pk, err := secp256k1.ParsePubKey(append([]byte{0x02}, h[:]...))
		if err == nil {
			return pk, nil
		}
	}
	return nil, ErrNoPoint
}

// ProofY is the hex-encoded compressed Y point of a proof secret. It uniquely
// identifies a proof to both the wallet and the mint.
func ProofY(secret string) (string, error) {
	Y, err := HashToCurve([]byte(secret))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(Y.SerializeCompressed()), nil
}

// BlindMessage computes B_ = Y + rG for the secret and blinding factor r.
func BlindMessage(secret []byte, r *secp256k1.PrivateKey) (*secp256k1.PublicKey, error) {
	Y, err := HashToCurve(secret)
	if err != nil {
		return nil, err
	}
	var yJ, rG, sum secp256k1.JacobianPoint
	Y.AsJacobian(&yJ)
	secp256k1.ScalarBaseMultNonConst(&r.Key, &rG)
	secp256k1.AddNonConst(&yJ, &rG, &sum)
	return toPubKey(&sum)
}

// SignBlinded computes C_ = kB_. Wallets don't sign. This is here for mint
// test harnesses.
func SignBlinded(k *secp256k1.PrivateKey, B_ *secp256k1.PublicKey) (*secp256k1.PublicKey, error) {
	var bJ, res secp256k1.JacobianPoint
	B_.AsJacobian(&bJ)
	secp256k1.ScalarMultNonConst(&k.Key, &bJ, &res)
	return toPubKey(&res)
}

// UnblindSignature computes C = C_ - rK.
func UnblindSignature(C_ *secp256k1.PublicKey, r *secp256k1.PrivateKey, K *secp256k1.PublicKey) (*secp256k1.PublicKey, error) {
	var kJ, rK, cJ, res secp256k1.JacobianPoint
	K.AsJacobian(&kJ)
	negR := new(secp256k1.ModNScalar).Set(&r.Key).Negate()
	secp256k1.ScalarMultNonConst(negR, &kJ, &rK)
	C_.AsJacobian(&cJ)
	secp256k1.AddNonConst(&cJ, &rK, &res)
	return toPubKey(&res)
}

// Verify checks that C = kY for the secret. Only the mint, holding k, can
// verify a proof.
func Verify(k *secp256k1.PrivateKey, C *secp256k1.PublicKey, secret []byte) bool {
	Y, err := HashToCurve(secret)
	if err != nil {
		return false
	}
	var yJ, kY secp256k1.JacobianPoint
	Y.AsJacobian(&yJ)
	secp256k1.ScalarMultNonConst(&k.Key, &yJ, &kY)
	expected, err := toPubKey(&kY)
	if err != nil {
		return false
	}
	return expected.IsEqual(C)
}

// PrivKeyFromBytes parses a 32-byte scalar, rejecting zero and values not less
// than the group order.
func PrivKeyFromBytes(b []byte) (*secp256k1.PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(b); overflow || s.IsZero() {
		return nil, errors.New("invalid scalar")
	}
	return secp256k1.NewPrivateKey(&s), nil
}

func toPubKey(p *secp256k1.JacobianPoint) (*secp256k1.PublicKey, error) {
	if p.Z.Normalize().IsZero() || (p.X.Normalize().IsZero() && p.Y.Normalize().IsZero()) {
		return nil, errors.New("point at infinity")
	}
	p.ToAffine()
	return secp256k1.NewPublicKey(&p.X, &p.Y), nil
}
