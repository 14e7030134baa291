// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package encrypt seals the wallet seed at rest with a key derived from the
// wallet password.
package encrypt

import (
	"crypto/rand"
	"fmt"
	"runtime"

	"decred.org/wadwallet/cashu"
	"decred.org/wadwallet/cashu/encode"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/poly1305"
)

// ErrPassword is returned by Deserialize when the password does not match the
// one the Crypter was created with.
const ErrPassword = cashu.ErrorKind("incorrect password")

// Crypter is an encryption key with its encryption/decryption algorithms.
// Create a Crypter with NewCrypter.
type Crypter interface {
	// Encrypt encrypts the plaintext.
	Encrypt(b []byte) ([]byte, error)
	// Decrypt decrypts the ciphertext created by Encrypt.
	Decrypt(b []byte) ([]byte, error)
	// Serialize serializes the Crypter's parameters, without the key.
	// Deserialize recreates the Crypter given the same password.
	Serialize() []byte
	// Close zeros the encryption key.
	Close()
}

const (
	defaultTime = 1
	defaultMem  = 64 * 1024
	// KeySize is the size of the encryption key.
	KeySize = 32
	// SaltSize is the size of the argon2id salt.
	SaltSize = 16
)

var intCoder = encode.IntCoder

type argonParams struct {
	time    uint32
	memory  uint32
	threads uint8
}

// argonPolyCrypter derives its key with argon2id and encrypts with
// xchacha20poly1305. A poly1305 tag over the serialized parameters, keyed
// with the second half of the argon2id output, authenticates the password.
type argonPolyCrypter struct {
	key    [KeySize]byte
	tag    [poly1305.TagSize]byte
	salt   [SaltSize]byte
	params *argonParams
}

// NewCrypter derives an encryption key from a password string.
func NewCrypter(pw []byte) Crypter {
	c := &argonPolyCrypter{
		params: &argonParams{
			time:    defaultTime,
			memory:  defaultMem,
			threads: uint8(runtime.NumCPU()),
		},
	}
	if _, err := rand.Read(c.salt[:]); err != nil {
		panic("salt: " + err.Error())
	}
	polyKey := c.deriveKeys(pw)
	poly1305.Sum(&c.tag, c.serializeParams(), &polyKey)
	return c
}

// Deserialize recreates the Crypter for the password. ErrPassword is returned
// if the password is wrong.
func Deserialize(pw []byte, encCrypter []byte) (Crypter, error) {
	ver, pushes, err := encode.DecodeBlob(encCrypter)
	if err != nil {
		return nil, err
	}
	if ver != 0 {
		return nil, fmt.Errorf("unknown Crypter version %d", ver)
	}
	if len(pushes) != 5 {
		return nil, fmt.Errorf("expected 5 pushes, got %d", len(pushes))
	}
	saltB, timeB, memB, threadsB, tagB := pushes[0], pushes[1], pushes[2], pushes[3], pushes[4]
	if len(saltB) != SaltSize {
		return nil, fmt.Errorf("expected salt of length %d, got %d", SaltSize, len(saltB))
	}
	if len(timeB) != 4 || len(memB) != 4 || len(threadsB) != 1 {
		return nil, fmt.Errorf("malformed key derivation parameters")
	}
	if len(tagB) != poly1305.TagSize {
		return nil, fmt.Errorf("mac authenticator of incorrect length %d", len(tagB))
	}
	c := &argonPolyCrypter{
		params: &argonParams{
			time:    intCoder.Uint32(timeB),
			memory:  intCoder.Uint32(memB),
			threads: threadsB[0],
		},
	}
	copy(c.salt[:], saltB)
	copy(c.tag[:], tagB)
	polyKey := c.deriveKeys(pw)
	if !poly1305.Verify(&c.tag, c.serializeParams(), &polyKey) {
		c.Close()
		return nil, ErrPassword
	}
	return c, nil
}

// deriveKeys sets the encryption key and returns the mac key.
func (c *argonPolyCrypter) deriveKeys(pw []byte) (polyKey [KeySize]byte) {
	keyB := argon2.IDKey(pw, c.salt[:], c.params.time, c.params.memory, c.params.threads, KeySize*2)
	copy(c.key[:], keyB[:KeySize])
	copy(polyKey[:], keyB[KeySize:])
	encode.ClearBytes(keyB)
	return
}

// Encrypt encrypts the plaintext.
func (c *argonPolyCrypter) Encrypt(plainText []byte) ([]byte, error) {
	boxer, err := chacha20poly1305.NewX(c.key[:])
	if err != nil {
		return nil, fmt.Errorf("aead error: %w", err)
	}
	nonce := make([]byte, boxer.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce generation error: %w", err)
	}
	cipherText := boxer.Seal(nil, nonce, plainText, nil)
	return encode.BuildyBytes{0}.AddData(nonce).AddData(cipherText), nil
}

// Decrypt decrypts the ciphertext created by Encrypt.
func (c *argonPolyCrypter) Decrypt(encrypted []byte) ([]byte, error) {
	ver, pushes, err := encode.DecodeBlob(encrypted)
	if err != nil {
		return nil, fmt.Errorf("DecodeBlob: %w", err)
	}
	if ver != 0 {
		return nil, fmt.Errorf("only version 0 encryptions are known. got version %d", ver)
	}
	if len(pushes) != 2 {
		return nil, fmt.Errorf("expected 2 pushes. got %d", len(pushes))
	}
	boxer, err := chacha20poly1305.NewX(c.key[:])
	if err != nil {
		return nil, fmt.Errorf("aead error: %w", err)
	}
	nonce, cipherText := pushes[0], pushes[1]
	if len(nonce) != boxer.NonceSize() {
		return nil, fmt.Errorf("incompatible nonce length. expected %d, got %d", boxer.NonceSize(), len(nonce))
	}
	plainText, err := boxer.Open(nil, nonce, cipherText, nil)
	if err != nil {
		return nil, fmt.Errorf("aead.Open: %w", err)
	}
	return plainText, nil
}

// Serialize serializes the parameters and the authenticator.
func (c *argonPolyCrypter) Serialize() []byte {
	return c.serializeParams().AddData(c.tag[:])
}

func (c *argonPolyCrypter) serializeParams() encode.BuildyBytes {
	return encode.BuildyBytes{0}.
		AddData(c.salt[:]).
		AddData(encode.Uint32Bytes(c.params.time)).
		AddData(encode.Uint32Bytes(c.params.memory)).
		AddData([]byte{c.params.threads})
}

// Close zeros the key.
func (c *argonPolyCrypter) Close() {
	encode.ClearBytes(c.key[:])
}
