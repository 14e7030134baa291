// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package token

import (
	"encoding/hex"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"decred.org/wadwallet/cashu"
	"github.com/stretchr/testify/require"
)

const tSampleWad = "cashuBo2F0gqJhaUgA_9SLj17PgGFwgaNhYQFhc3hAYWNjMTI0MzVlN2I4NDg0YzNjZjE4NTAxNDkyMThhZjkwZjcxNmE1MmJmNGE1ZWQzNDdlNDhlY2MxM2Y3NzM4OGFjWCECRFODGd5IXVW-07KaZCvuWHk3WrnnpiDhHki6SCQh88-iYWlIAK0mjE0fWCZhcIKjYWECYXN4QDEzMjNkM2Q0NzA3YTU4YWQyZTIzYWRhNGU5ZjFmNDlmNWE1YjRhYzdiNzA4ZWIwZDYxZjczOGY0ODMwN2U4ZWVhY1ghAjRWqhENhLSsdHrr2Cw7AFrKUL9Ffr1XN6RBT6w659lNo2FhAWFzeEA1NmJjYmNiYjdjYzY0MDZiM2ZhNWQ1N2QyMTc0ZjRlZmY4YjQ0MDJiMTc2OTI2ZDNhNTdkM2MzZGNiYjU5ZDU3YWNYIQJzEpxXGeWZN5qXSmJjY8MzxWyvwObQGr5G1YCCgHicY2FtdWh0dHA6Ly9sb2NhbGhvc3Q6MzMzOGF1Y3NhdA=="

func randomWad(mint string, unit cashu.Unit, memo *string, n int) *Wad {
	ids := []string{"00ffd48b8f5ecf80", "00ad268c4d1f5826"}
	w := &Wad{MintURL: mint, Unit: unit, Memo: memo}
	for i := 0; i < n; i++ {
		c := make([]byte, 33)
		rand.Read(c)
		c[0] = 0x02
		w.Proofs = append(w.Proofs, &cashu.Proof{
			Amount: 1 << rand.Intn(20),
			ID:     ids[rand.Intn(len(ids))],
			Secret: hex.EncodeToString(c[1:]),
			C:      c,
		})
	}
	return w
}

func TestDecodeSample(t *testing.T) {
	w, err := DecodeWad(tSampleWad)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:3338", w.MintURL)
	require.Equal(t, cashu.Satoshi, w.Unit)
	require.Nil(t, w.Memo)
	require.Len(t, w.Proofs, 3)
	require.Equal(t, "00ffd48b8f5ecf80", w.Proofs[0].ID)
	require.Equal(t, "00ad268c4d1f5826", w.Proofs[1].ID)
	require.Equal(t, "acc12435e7b8484c3cf1850149218af90f716a52bf4a5ed347e48ecc13f77388", w.Proofs[0].Secret)
	require.Equal(t, "0244538319de485d55bed3b29a642bee5879375ab9e7a620e11e48ba482421f3cf", w.Proofs[0].C.String())
	amt, err := w.Amount()
	require.NoError(t, err)
	require.EqualValues(t, 4, amt)

	// Unpadded works too.
	w2, err := DecodeWad(strings.TrimRight(tSampleWad, "="))
	require.NoError(t, err)
	require.Equal(t, w, w2)
}

func TestBundleRoundTrip(t *testing.T) {
	memo := "for the coffee"
	emptyMemo := ""
	wads := []*Wad{
		randomWad("http://localhost:3338", cashu.Satoshi, nil, 1),
		randomWad("https://mint.example.com", cashu.MilliStrk, &memo, 12),
		randomWad("https://mint.example.com/sub/path", cashu.ParseUnit("points"), &emptyMemo, 5),
	}
	s, err := SerializeBundle(wads)
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(s, Prefix))
	require.Equal(t, 2, strings.Count(s, Separator))

	reWads, err := ParseBundle(s)
	require.NoError(t, err)
	require.Equal(t, wads, reWads)
}

func TestParseBundleErrors(t *testing.T) {
	good := randomWad("http://localhost:3338", cashu.Satoshi, nil, 2)
	goodS, err := good.Encode()
	require.NoError(t, err)

	for _, s := range []string{"", "   ", "\n"} {
		wads, err := ParseBundle(s)
		require.NoError(t, err)
		require.Empty(t, wads)
	}

	bad := []string{
		"cashuA" + goodS[len(Prefix):],
		goodS + ":",
		goodS + "::" + goodS,
		Prefix + "!!!",
		Prefix + "AAAA",
		goodS + ":" + tSampleWad[:60],
	}
	for i, s := range bad {
		_, err := ParseBundle(s)
		if !errors.Is(err, ErrInvalidWad) {
			t.Fatalf("case %d: expected ErrInvalidWad, got %v", i, err)
		}
	}
}

func TestEncodeErrors(t *testing.T) {
	_, err := (&Wad{MintURL: "http://localhost:3338", Unit: cashu.Satoshi}).Encode()
	require.Error(t, err)
	w := randomWad("", cashu.Satoshi, nil, 1)
	_, err = w.Encode()
	require.Error(t, err)
	w = randomWad("http://localhost:3338", cashu.Satoshi, nil, 1)
	w.Proofs[0].ID = "abc"
	_, err = w.Encode()
	require.Error(t, err)
}
