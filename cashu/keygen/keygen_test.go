// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package keygen

import (
	"encoding/hex"
	"testing"
)

// BIP39 seed of "half depart obvious quality work element tank gorilla view
// sugar picture humble".
const tSeedHex = "dd44ee516b0647e80b488e8dcc56d736a148f15276bef588b37057476d4b2b25" +
	"780d3688a32b37353d6995997842c0fd8b412475c891c16310471fbc86dcbda8"

func TestKeysetInt(t *testing.T) {
	ki, err := KeysetInt("009a1f293253e41e")
	if err != nil {
		t.Fatalf("KeysetInt error: %v", err)
	}
	if ki != 864559728 {
		t.Fatalf("wrong keyset int %d", ki)
	}
	for _, bad := range []string{"", "0x12", "abc"} {
		if _, err := KeysetInt(bad); err == nil {
			t.Fatalf("no error for keyset id %q", bad)
		}
	}
}

func TestDeriveOutput(t *testing.T) {
	seed, _ := hex.DecodeString(tSeedHex)
	master, err := NewMaster(seed)
	if err != nil {
		t.Fatalf("NewMaster error: %v", err)
	}
	keysetKey, err := KeysetKey(master, "009a1f293253e41e")
	if err != nil {
		t.Fatalf("KeysetKey error: %v", err)
	}
	tests := []struct {
		secret, r string
	}{
		{
			"485875df74771877439ac06339e284c3acfcd9be7abf3bc20b516faeadfe77ae",
			"ad00d431add9c673e843d4c2bf9a778a5f402b985b8da2d5550bf39cda41d679",
		},
		{
			"8f2b39e8e594a4056eb1e6dbb4b0c38ef13b1b2c751f64f810ec04ee35b77270",
			"967d5232515e10b81ff226ecf5a9e2e2aff92d66ebc3edf0987eb56357fd6248",
		},
	}
	for i, tt := range tests {
		out, err := DeriveOutput(keysetKey, uint32(i))
		if err != nil {
			t.Fatalf("DeriveOutput(%d) error: %v", i, err)
		}
		if out.Secret != tt.secret {
			t.Fatalf("counter %d: wrong secret %s", i, out.Secret)
		}
		if rHex := hex.EncodeToString(out.R.Serialize()); rHex != tt.r {
			t.Fatalf("counter %d: wrong blinding factor %s", i, rHex)
		}
	}
	if _, err := DeriveOutput(keysetKey, 1<<31); err == nil {
		t.Fatalf("no error for out of range counter")
	}
}
