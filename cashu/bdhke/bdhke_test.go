// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package bdhke

import (
	"encoding/hex"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"
)

func scalar(t *testing.T, s string) *secp256k1.PrivateKey {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	k, err := PrivKeyFromBytes(b)
	require.NoError(t, err)
	return k
}

const one = "0000000000000000000000000000000000000000000000000000000000000001"

func TestHashToCurve(t *testing.T) {
	tests := []struct {
		msg string
		Y   string
	}{
		{
			msg: "0000000000000000000000000000000000000000000000000000000000000000",
			Y:   "024cce997d3b518f739663b757deaec95bcd9473c30a14ac2fd04023a739d1a725",
		},
		{
			msg: "0000000000000000000000000000000000000000000000000000000000000001",
			Y:   "022e7158e11c9506f1aa4248bf531298daa7febd6194f003edcd9b93ade6253acf",
		},
		{
			msg: "0000000000000000000000000000000000000000000000000000000000000002",
			Y:   "026cdbe15362df59cd1dd3c9c11de8aedac2106eca69236ecd9fbe117af897be4f",
		},
	}
	for _, tt := range tests {
		msg, _ := hex.DecodeString(tt.msg)
		Y, err := HashToCurve(msg)
		require.NoError(t, err)
		require.Equal(t, tt.Y, hex.EncodeToString(Y.SerializeCompressed()))
	}
}

func TestBlindSignUnblind(t *testing.T) {
	r := scalar(t, one)
	B_, err := BlindMessage([]byte("test_message"), r)
	require.NoError(t, err)
	require.Equal(t, "025cc16fe33b953e2ace39653efb3e7a7049711ae1d8a2f7a9108753f1cdea742b",
		hex.EncodeToString(B_.SerializeCompressed()))

	r2 := scalar(t, "6d7e0abffc83267de28ed8ecc8760f17697e51252e13333ba69b4ddad1f95d05")
	B2, err := BlindMessage([]byte("test_message"), r2)
	require.NoError(t, err)
	require.Equal(t, "020d2ce3b5b914d9bbd54d21e8fddbf6aba75bb3d2af3b5ea637f0690db4fbb8a6",
		hex.EncodeToString(B2.SerializeCompressed()))

	k := scalar(t, one)
	C_, err := SignBlinded(k, B_)
	require.NoError(t, err)
	C, err := UnblindSignature(C_, r, k.PubKey())
	require.NoError(t, err)
	require.Equal(t, "0215fdc277c704590f3c3bcc08cf9a8f748f46619b96268cece86442b6c3ac461b",
		hex.EncodeToString(C.SerializeCompressed()))
	require.True(t, Verify(k, C, []byte("test_message")))
	require.False(t, Verify(k, C, []byte("other_message")))
}

func TestRandomRoundTrip(t *testing.T) {
	for i := 0; i < 20; i++ {
		k, err := secp256k1.GeneratePrivateKey()
		require.NoError(t, err)
		r, err := secp256k1.GeneratePrivateKey()
		require.NoError(t, err)
		secret := []byte(hex.EncodeToString(r.Serialize()))
		B_, err := BlindMessage(secret, r)
		require.NoError(t, err)
		C_, err := SignBlinded(k, B_)
		require.NoError(t, err)
		C, err := UnblindSignature(C_, r, k.PubKey())
		require.NoError(t, err)
		require.True(t, Verify(k, C, secret))
	}
}

func TestPrivKeyFromBytes(t *testing.T) {
	_, err := PrivKeyFromBytes(make([]byte, 32))
	require.Error(t, err)
	_, err = PrivKeyFromBytes(make([]byte, 31))
	require.Error(t, err)
	order, _ := hex.DecodeString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")
	_, err = PrivKeyFromBytes(order)
	require.Error(t, err)
}

func TestProofY(t *testing.T) {
	y1, err := ProofY("secret one")
	require.NoError(t, err)
	y2, err := ProofY("secret two")
	require.NoError(t, err)
	require.Len(t, y1, 66)
	require.NotEqual(t, y1, y2)
}
