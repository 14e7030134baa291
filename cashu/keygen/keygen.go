// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package keygen derives the deterministic proof secrets and blinding factors
// of a wallet seed, so that proofs can be restored from the seed alone.
//
// The derivation path of the i'th output of a keyset is
//
//	m/129372'/0'/keyset_int'/i'/0 for the secret
//	m/129372'/0'/keyset_int'/i'/1 for the blinding factor
//
// where keyset_int is the big-endian integer value of the keyset id modulo
// 2^31-1.
package keygen

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"

	"decred.org/wadwallet/cashu/bdhke"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/hdkeychain/v3"
)

const (
	// Purpose is the first path element.
	Purpose = hdkeychain.HardenedKeyStart + 129372
	// CoinType is the second path element.
	CoinType = hdkeychain.HardenedKeyStart + 0
)

// RootKeyParams implements hdkeychain.NetworkParams with the BIP32 mainnet
// version bytes. The versions only matter for serialization, which the wallet
// never does.
type RootKeyParams struct{}

func (*RootKeyParams) HDPrivKeyVersion() [4]byte {
	return [4]byte{0x04, 0x88, 0xad, 0xe4} // xprv
}
func (*RootKeyParams) HDPubKeyVersion() [4]byte {
	return [4]byte{0x04, 0x88, 0xb2, 0x1e} // xpub
}

var maxKeysetInt = big.NewInt(1<<31 - 1)

// KeysetInt maps the hex keyset id into the hardened index range.
func KeysetInt(keysetID string) (uint32, error) {
	b, err := hex.DecodeString(keysetID)
	if err != nil || len(b) == 0 {
		return 0, fmt.Errorf("invalid keyset id %q", keysetID)
	}
	i := new(big.Int).SetBytes(b)
	return uint32(i.Mod(i, maxKeysetInt).Uint64()), nil
}

// KeysetKey derives m/129372'/0'/keyset_int' from the master key.
func KeysetKey(master *hdkeychain.ExtendedKey, keysetID string) (*hdkeychain.ExtendedKey, error) {
	ki, err := KeysetInt(keysetID)
	if err != nil {
		return nil, err
	}
	return GenDeepChildFromXPriv(master, []uint32{Purpose, CoinType, hdkeychain.HardenedKeyStart + ki})
}

// NewMaster creates the master extended key from a BIP39 seed.
func NewMaster(seed []byte) (*hdkeychain.ExtendedKey, error) {
	return hdkeychain.NewMaster(seed, &RootKeyParams{})
}

// Output is a deterministic secret and its blinding factor.
type Output struct {
	Counter uint32
	Secret  string
	R       *secp256k1.PrivateKey
}

// DeriveOutput derives the secret and blinding factor for the counter from the
// keyset key returned by KeysetKey. The secret is the hex encoding of the
// derived private key.
func DeriveOutput(keysetKey *hdkeychain.ExtendedKey, counter uint32) (*Output, error) {
	if counter >= hdkeychain.HardenedKeyStart {
		return nil, fmt.Errorf("counter %d out of range", counter)
	}
	counterKey, err := keysetKey.ChildBIP32Std(hdkeychain.HardenedKeyStart + counter)
	if err != nil {
		return nil, fmt.Errorf("counter child error: %w", err)
	}
	defer counterKey.Zero()
	leaf := func(i uint32) ([]byte, error) {
		k, err := counterKey.ChildBIP32Std(i)
		if err != nil {
			return nil, err
		}
		defer k.Zero()
		b, err := k.SerializedPrivKey()
		if err != nil {
			return nil, err
		}
		// Zero wipes the slice SerializedPrivKey returned.
		return bytes.Clone(b), nil
	}
	secretB, err := leaf(0)
	if err != nil {
		return nil, fmt.Errorf("secret derivation error: %w", err)
	}
	rB, err := leaf(1)
	if err != nil {
		return nil, fmt.Errorf("blinding factor derivation error: %w", err)
	}
	r, err := bdhke.PrivKeyFromBytes(rB)
	if err != nil {
		return nil, err
	}
	return &Output{
		Counter: counter,
		Secret:  hex.EncodeToString(secretB),
		R:       r,
	}, nil
}

// GenDeepChildFromXPriv derives the leaf of a path of children from a parent
// extended key. Invalid child indexes, a less than 1 in 2^127 chance, are
// skipped.
func GenDeepChildFromXPriv(root *hdkeychain.ExtendedKey, kids []uint32) (*hdkeychain.ExtendedKey, error) {
	genChild := func(parent *hdkeychain.ExtendedKey, childIdx uint32) (*hdkeychain.ExtendedKey, error) {
		err := hdkeychain.ErrInvalidChild
		for err == hdkeychain.ErrInvalidChild {
			var kid *hdkeychain.ExtendedKey
			kid, err = parent.ChildBIP32Std(childIdx)
			if err == nil {
				return kid, nil
			}
			childIdx++
		}
		return nil, err
	}

	extKey := root
	for i, childIdx := range kids {
		childExtKey, err := genChild(extKey, childIdx)
		if i > 0 { // don't zero the input arg
			extKey.Zero()
		}
		extKey = childExtKey
		if err != nil {
			return nil, fmt.Errorf("genChild error: %w", err)
		}
	}

	return extKey, nil
}
