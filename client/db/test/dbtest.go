// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package dbtest

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/rand"
	"time"

	"decred.org/wadwallet/cashu"
	"decred.org/wadwallet/client/db"
	"github.com/google/uuid"
)

var units = []cashu.Unit{cashu.Satoshi, cashu.Gwei, cashu.MilliStrk, cashu.MicroUsdC, cashu.MicroUsdT, "custom"}

func randBytes(l int) []byte {
	b := make([]byte, l)
	rand.Read(b)
	return b
}

// RandomUnit picks one of the known units or a passthrough unit.
func RandomUnit() cashu.Unit {
	return units[rand.Intn(len(units))]
}

// RandomKeysetID creates a version 00 hex keyset id.
func RandomKeysetID() string {
	return "00" + hex.EncodeToString(randBytes(7))
}

func randStamp() time.Time {
	return time.UnixMilli(rand.Int63n(1 << 42))
}

// RandomNode creates a Node with random values.
func RandomNode() *db.Node {
	return &db.Node{
		ID:         rand.Uint32(),
		URL:        fmt.Sprintf("https://mint%d.example.com", rand.Intn(1e6)),
		Registered: randStamp(),
	}
}

// RandomKeyset creates a Keyset with random values.
func RandomKeyset() *db.Keyset {
	return &db.Keyset{
		ID:          RandomKeysetID(),
		NodeID:      rand.Uint32(),
		Unit:        RandomUnit(),
		Active:      rand.Intn(2) == 0,
		InputFeePPK: uint64(rand.Intn(1000)),
		Counter:     rand.Uint32(),
	}
}

// RandomProof creates an unspent Proof with random values.
func RandomProof() *db.Proof {
	return &db.Proof{
		Proof: cashu.Proof{
			Amount: 1 << rand.Intn(20),
			ID:     RandomKeysetID(),
			Secret: hex.EncodeToString(randBytes(32)),
			C:      randBytes(33),
		},
		Y:      hex.EncodeToString(randBytes(33)),
		NodeID: rand.Uint32(),
		Unit:   RandomUnit(),
		State:  db.ProofUnspent,
		Stamp:  randStamp(),
	}
}

// RandomWadRecord creates a WadRecord with random values and nProofs random
// proof ids. About half of the records carry a memo.
func RandomWadRecord(nProofs int) *db.WadRecord {
	rec := &db.WadRecord{
		ID:        uuid.Must(uuid.NewV7()),
		Direction: db.WadDirection(rand.Intn(2)),
		NodeID:    rand.Uint32(),
		NodeURL:   RandomNode().URL,
		Unit:      RandomUnit(),
		Amount:    rand.Uint64(),
		Stamp:     randStamp(),
	}
	if rand.Intn(2) == 0 {
		memo := hex.EncodeToString(randBytes(rand.Intn(40)))
		rec.Memo = &memo
	}
	for i := 0; i < nProofs; i++ {
		rec.ProofIDs = append(rec.ProofIDs, hex.EncodeToString(randBytes(33)))
	}
	return rec
}

type testKiller interface {
	Fatalf(string, ...any)
}

// MustCompareNodes ensures the two Nodes are identical, calling the Fatalf
// method of the testKiller if not.
func MustCompareNodes(t testKiller, n1, n2 *db.Node) {
	if n1.ID != n2.ID {
		t.Fatalf("ID mismatch. %d != %d", n1.ID, n2.ID)
	}
	if n1.URL != n2.URL {
		t.Fatalf("URL mismatch. %s != %s", n1.URL, n2.URL)
	}
	if !n1.Registered.Equal(n2.Registered) {
		t.Fatalf("Registered mismatch. %s != %s", n1.Registered, n2.Registered)
	}
}

// MustCompareKeysets ensures the two Keysets are identical.
func MustCompareKeysets(t testKiller, k1, k2 *db.Keyset) {
	if *k1 != *k2 {
		t.Fatalf("keyset mismatch. %+v != %+v", k1, k2)
	}
}

// MustCompareProofs ensures the two Proofs are identical.
func MustCompareProofs(t testKiller, p1, p2 *db.Proof) {
	if p1.Y != p2.Y {
		t.Fatalf("Y mismatch. %s != %s", p1.Y, p2.Y)
	}
	if p1.Amount != p2.Amount {
		t.Fatalf("Amount mismatch. %d != %d", p1.Amount, p2.Amount)
	}
	if p1.ID != p2.ID {
		t.Fatalf("keyset ID mismatch. %s != %s", p1.ID, p2.ID)
	}
	if p1.Secret != p2.Secret {
		t.Fatalf("Secret mismatch. %s != %s", p1.Secret, p2.Secret)
	}
	if !bytes.Equal(p1.C, p2.C) {
		t.Fatalf("C mismatch. %x != %x", p1.C, p2.C)
	}
	if p1.NodeID != p2.NodeID {
		t.Fatalf("NodeID mismatch. %d != %d", p1.NodeID, p2.NodeID)
	}
	if p1.Unit != p2.Unit {
		t.Fatalf("Unit mismatch. %s != %s", p1.Unit, p2.Unit)
	}
	if p1.State != p2.State {
		t.Fatalf("State mismatch. %s != %s", p1.State, p2.State)
	}
	if !p1.Stamp.Equal(p2.Stamp) {
		t.Fatalf("Stamp mismatch. %s != %s", p1.Stamp, p2.Stamp)
	}
}

// MustCompareWadRecords ensures the two WadRecords are identical.
func MustCompareWadRecords(t testKiller, w1, w2 *db.WadRecord) {
	if w1.ID != w2.ID {
		t.Fatalf("ID mismatch. %s != %s", w1.ID, w2.ID)
	}
	if w1.Direction != w2.Direction {
		t.Fatalf("Direction mismatch. %s != %s", w1.Direction, w2.Direction)
	}
	if w1.NodeID != w2.NodeID || w1.NodeURL != w2.NodeURL {
		t.Fatalf("node mismatch. %d:%s != %d:%s", w1.NodeID, w1.NodeURL, w2.NodeID, w2.NodeURL)
	}
	if w1.Unit != w2.Unit {
		t.Fatalf("Unit mismatch. %s != %s", w1.Unit, w2.Unit)
	}
	if (w1.Memo == nil) != (w2.Memo == nil) {
		t.Fatalf("Memo presence mismatch. %v != %v", w1.Memo != nil, w2.Memo != nil)
	}
	if w1.Memo != nil && *w1.Memo != *w2.Memo {
		t.Fatalf("Memo mismatch. %q != %q", *w1.Memo, *w2.Memo)
	}
	if w1.Amount != w2.Amount {
		t.Fatalf("Amount mismatch. %d != %d", w1.Amount, w2.Amount)
	}
	if len(w1.ProofIDs) != len(w2.ProofIDs) {
		t.Fatalf("wrong number of proof ids. %d != %d", len(w1.ProofIDs), len(w2.ProofIDs))
	}
	for i := range w1.ProofIDs {
		if w1.ProofIDs[i] != w2.ProofIDs[i] {
			t.Fatalf("proof id %d mismatch. %s != %s", i, w1.ProofIDs[i], w2.ProofIDs[i])
		}
	}
	if !w1.Stamp.Equal(w2.Stamp) {
		t.Fatalf("Stamp mismatch. %s != %s", w1.Stamp, w2.Stamp)
	}
}
