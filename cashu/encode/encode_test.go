// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package encode

import (
	"bytes"
	"testing"
	"time"
)

func TestBlobRoundTrip(t *testing.T) {
	long := RandomBytes(300)
	huge := RandomBytes(70_000)
	tests := []struct {
		name   string
		pushes [][]byte
	}{
		{"single", [][]byte{{0xaa}}},
		{"with nil", [][]byte{{0xaa}, nil, {0xbb, 0xbb}}},
		{"long", [][]byte{long, {0x01}}},
		{"huge", [][]byte{huge}},
	}
	for _, tt := range tests {
		b := BuildyBytes{3}
		for _, p := range tt.pushes {
			b = b.AddData(p)
		}
		ver, pushes, err := DecodeBlob(b)
		if err != nil {
			t.Fatalf("%s: DecodeBlob error: %v", tt.name, err)
		}
		if ver != 3 {
			t.Fatalf("%s: wrong version %d", tt.name, ver)
		}
		if len(pushes) != len(tt.pushes) {
			t.Fatalf("%s: wanted %d pushes, got %d", tt.name, len(tt.pushes), len(pushes))
		}
		for i := range pushes {
			if !bytes.Equal(pushes[i], tt.pushes[i]) {
				t.Fatalf("%s: push %d mismatch", tt.name, i)
			}
		}
	}

	if _, _, err := DecodeBlob(nil); err == nil {
		t.Fatalf("no error for empty blob")
	}
	if _, _, err := DecodeBlob([]byte{0, 5, 1}); err == nil {
		t.Fatalf("no error for truncated push")
	}
}

func TestIntegers(t *testing.T) {
	if BytesToUint32(Uint32Bytes(0xdeadbeef)) != 0xdeadbeef {
		t.Fatalf("uint32 round trip failed")
	}
	if BytesToUint64(Uint64Bytes(1<<63+5)) != 1<<63+5 {
		t.Fatalf("uint64 round trip failed")
	}
	if !bytes.Equal(Uint32Bytes(1), []byte{0, 0, 0, 1}) {
		t.Fatalf("not big endian")
	}
	now := time.UnixMilli(time.Now().UnixMilli())
	if !DecodeUTime(UTimeBytes(now)).Equal(now) {
		t.Fatalf("time round trip failed")
	}
}
