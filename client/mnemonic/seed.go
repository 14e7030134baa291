// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package mnemonic encodes wallet seed entropy as a BIP39 mnemonic.
package mnemonic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bisoncraft/go-bip39"
)

const (
	// EntropyBytes is the length of the wallet seed entropy.
	EntropyBytes = 16 // 128 bits
	seedWords    = 12
)

// ErrInvalidMnemonic is returned for a mnemonic with an unknown word or a bad
// checksum.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// New generates new random entropy and its mnemonic.
func New() ([]byte, string, error) {
	entropy, err := bip39.NewEntropy(EntropyBytes * 8)
	if err != nil {
		return nil, "", fmt.Errorf("error generating entropy: %w", err)
	}
	m, err := FromEntropy(entropy)
	if err != nil {
		return nil, "", err
	}
	return entropy, m, nil
}

// FromEntropy encodes the entropy as a mnemonic.
func FromEntropy(entropy []byte) (string, error) {
	if len(entropy) != EntropyBytes {
		return "", fmt.Errorf("expected %d bytes of entropy, got %d", EntropyBytes, len(entropy))
	}
	return bip39.NewMnemonic(entropy)
}

// Normalize lowercases the mnemonic and collapses whitespace.
func Normalize(mnemonic string) string {
	return strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
}

// DecodeMnemonic validates the mnemonic and returns its entropy.
func DecodeMnemonic(mnemonic string) ([]byte, error) {
	mnemonic = Normalize(mnemonic)
	if n := len(strings.Fields(mnemonic)); n != seedWords {
		return nil, fmt.Errorf("%w: expected %d words, got %d", ErrInvalidMnemonic, seedWords, n)
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	entropy, err := bip39.EntropyFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return entropy, nil
}

// Seed is the BIP39 seed, with an empty passphrase, for the entropy's
// mnemonic. It is the root of the wallet's deterministic secrets.
func Seed(entropy []byte) ([]byte, error) {
	m, err := FromEntropy(entropy)
	if err != nil {
		return nil, err
	}
	return bip39.NewSeed(m, ""), nil
}
