package cashu

import (
	"encoding/json"
	"testing"
)

func TestKeysetIDBytes(t *testing.T) {
	b, err := KeysetIDBytes("009a1f293253e41e")
	if err != nil {
		t.Fatalf("KeysetIDBytes error: %v", err)
	}
	if len(b) != 8 || b[0] != 0x00 || b[1] != 0x9a {
		t.Fatalf("wrong bytes %x", b)
	}
	for _, id := range []string{"", "abc", "zz"} {
		if _, err := KeysetIDBytes(id); err == nil {
			t.Fatalf("no error for keyset id %q", id)
		}
	}
}

func TestProofJSON(t *testing.T) {
	const js = `{"amount":2,"id":"009a1f293253e41e","secret":"407915bc212be61a77e3e6d2aeb4c727980bda51cd06a6afc29e2861768a7837","C":"02bc9097997d81afb2cc7346b5e4345a9346bd2a506eb7958598a72f0cf85163ea"}`
	var p Proof
	if err := json.Unmarshal([]byte(js), &p); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if p.Amount != 2 || len(p.C) != 33 || p.C[0] != 0x02 {
		t.Fatalf("wrong proof %+v", p)
	}
	b, err := json.Marshal(&p)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(b) != js {
		t.Fatalf("wrong json\n%s\n%s", b, js)
	}
	if err := json.Unmarshal([]byte(`{"C":"xyz"}`), &p); err == nil {
		t.Fatalf("no error for bad hex")
	}
}
