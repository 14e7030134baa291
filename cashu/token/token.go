// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package token encodes and decodes wads. A wad is a single-mint bundle of
// proofs serialized as a version 4 cashu token: the literal prefix "cashuB"
// followed by the base64url encoding of a CBOR map. A bundle of several wads
// joins the serialized wads with colons.
package token

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"decred.org/wadwallet/cashu"
	"github.com/fxamacker/cbor/v2"
)

const (
	// Prefix tags every serialized wad.
	Prefix = "cashuB"
	// Separator joins the wads of a bundle.
	Separator = ":"

	// ErrInvalidWad is wrapped by every parsing error.
	ErrInvalidWad = cashu.ErrorKind("invalid wad")
)

// Wad is a self-contained single-mint bundle of proofs.
type Wad struct {
	MintURL string
	Unit    cashu.Unit
	Memo    *string
	Proofs  cashu.Proofs
}

// Amount is the sum of the proof amounts.
func (w *Wad) Amount() (uint64, error) {
	return w.Proofs.Amount()
}

type tokenV4 struct {
	MintURL string         `cbor:"m"`
	Unit    string         `cbor:"u"`
	Memo    *string        `cbor:"d,omitempty"`
	Tokens  []keysetProofs `cbor:"t"`
}

type keysetProofs struct {
	KeysetID []byte    `cbor:"i"`
	Proofs   []proofV4 `cbor:"p"`
}

type proofV4 struct {
	Amount uint64 `cbor:"a"`
	Secret string `cbor:"s"`
	C      []byte `cbor:"c"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{}.EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		MaxArrayElements: 1 << 16,
		MaxMapPairs:      1 << 10,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Encode serializes the wad. Consecutive proofs from the same keyset share a
// keyset entry, so decoding preserves proof order.
func (w *Wad) Encode() (string, error) {
	if w.MintURL == "" {
		return "", fmt.Errorf("wad has no mint url")
	}
	if len(w.Proofs) == 0 {
		return "", fmt.Errorf("wad has no proofs")
	}
	tok := &tokenV4{
		MintURL: w.MintURL,
		Unit:    w.Unit.String(),
		Memo:    w.Memo,
	}
	var cur *keysetProofs
	for _, p := range w.Proofs {
		if cur == nil || hex.EncodeToString(cur.KeysetID) != p.ID {
			id, err := cashu.KeysetIDBytes(p.ID)
			if err != nil {
				return "", err
			}
			tok.Tokens = append(tok.Tokens, keysetProofs{KeysetID: id})
			cur = &tok.Tokens[len(tok.Tokens)-1]
		}
		cur.Proofs = append(cur.Proofs, proofV4{
			Amount: p.Amount,
			Secret: p.Secret,
			C:      p.C,
		})
	}
	b, err := encMode.Marshal(tok)
	if err != nil {
		return "", fmt.Errorf("cbor encoding error: %w", err)
	}
	return Prefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeWad parses a single serialized wad. Both padded and unpadded, url-safe
// and standard base64 alphabets are accepted.
func DecodeWad(s string) (*Wad, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, Prefix) {
		return nil, cashu.NewError(ErrInvalidWad, fmt.Sprintf("missing %q prefix", Prefix))
	}
	enc := strings.TrimRight(s[len(Prefix):], "=")
	enc = strings.NewReplacer("+", "-", "/", "_").Replace(enc)
	b, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		return nil, cashu.NewError(ErrInvalidWad, "base64 decoding error: "+err.Error())
	}
	var tok tokenV4
	if err := decMode.Unmarshal(b, &tok); err != nil {
		return nil, cashu.NewError(ErrInvalidWad, "cbor decoding error: "+err.Error())
	}
	if tok.MintURL == "" {
		return nil, cashu.NewError(ErrInvalidWad, "no mint url")
	}
	w := &Wad{
		MintURL: tok.MintURL,
		Unit:    cashu.ParseUnit(tok.Unit),
		Memo:    tok.Memo,
	}
	for _, kp := range tok.Tokens {
		if len(kp.KeysetID) == 0 {
			return nil, cashu.NewError(ErrInvalidWad, "empty keyset id")
		}
		id := hex.EncodeToString(kp.KeysetID)
		for _, p := range kp.Proofs {
			if len(p.C) == 0 || p.Secret == "" {
				return nil, cashu.NewError(ErrInvalidWad, "incomplete proof")
			}
			w.Proofs = append(w.Proofs, &cashu.Proof{
				Amount: p.Amount,
				ID:     id,
				Secret: p.Secret,
				C:      bytes.Clone(p.C),
			})
		}
	}
	if len(w.Proofs) == 0 {
		return nil, cashu.NewError(ErrInvalidWad, "no proofs")
	}
	if _, err := w.Amount(); err != nil {
		return nil, cashu.NewError(ErrInvalidWad, err.Error())
	}
	return w, nil
}

// ParseBundle parses colon-separated wads, preserving their order. An empty or
// all-whitespace string is an empty bundle.
func ParseBundle(s string) ([]*Wad, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []*Wad{}, nil
	}
	segments := strings.Split(s, Separator)
	wads := make([]*Wad, 0, len(segments))
	for i, seg := range segments {
		w, err := DecodeWad(seg)
		if err != nil {
			return nil, fmt.Errorf("wad %d: %w", i, err)
		}
		wads = append(wads, w)
	}
	return wads, nil
}

// SerializeBundle encodes the wads and joins them with colons.
func SerializeBundle(wads []*Wad) (string, error) {
	segments := make([]string, 0, len(wads))
	for i, w := range wads {
		s, err := w.Encode()
		if err != nil {
			return "", fmt.Errorf("wad %d: %w", i, err)
		}
		segments = append(segments, s)
	}
	return strings.Join(segments, Separator), nil
}
