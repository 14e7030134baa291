package bolt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"decred.org/wadwallet/cashu"
	clientdb "decred.org/wadwallet/client/db"
	dbtest "decred.org/wadwallet/client/db/test"
	"go.etcd.io/bbolt"
)

var (
	tDir     string
	tCtx     context.Context
	tCounter int
)

func newTestDB(t *testing.T) *BoltDB {
	t.Helper()
	tCounter++
	dbPath := filepath.Join(tDir, fmt.Sprintf("db%d.db", tCounter))
	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("error creating DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMain(m *testing.M) {
	doIt := func() int {
		var err error
		tDir, err = os.MkdirTemp("", "dbtest")
		if err != nil {
			fmt.Println("error creating temporary directory:", err)
			return -1
		}
		defer os.RemoveAll(tDir)
		var shutdown func()
		tCtx, shutdown = context.WithCancel(context.Background())
		defer shutdown()
		return m.Run()
	}
	os.Exit(doIt())
}

// fundNode registers a node and credits it with proofs of the given amounts.
func fundNode(t *testing.T, db *BoltDB, url string, unit cashu.Unit, amts ...uint64) (uint32, []*clientdb.Proof) {
	t.Helper()
	nodeID, err := db.RegisterNode(url)
	if err != nil {
		t.Fatalf("RegisterNode error: %v", err)
	}
	proofs := make([]*clientdb.Proof, 0, len(amts))
	var total uint64
	for _, amt := range amts {
		p := dbtest.RandomProof()
		p.NodeID, p.Unit, p.Amount = nodeID, unit, amt
		proofs = append(proofs, p)
		total += amt
	}
	rec := &clientdb.WadRecord{
		Direction: clientdb.WadInbound,
		NodeID:    nodeID,
		NodeURL:   url,
		Unit:      unit,
		Amount:    total,
		ProofIDs:  proofIDs(proofs),
	}
	if err := db.CreditInbound(rec, proofs); err != nil {
		t.Fatalf("CreditInbound error: %v", err)
	}
	return nodeID, proofs
}

func proofIDs(proofs []*clientdb.Proof) []string {
	ids := make([]string, 0, len(proofs))
	for _, p := range proofs {
		ids = append(ids, p.Y)
	}
	return ids
}

func TestNodes(t *testing.T) {
	boltdb := newTestDB(t)
	nodes, err := boltdb.Nodes()
	if err != nil {
		t.Fatalf("Nodes error: %v", err)
	}
	if len(nodes) != 0 {
		t.Fatalf("unexpected nodes in fresh DB")
	}

	numToDo := 100
	urls := make([]string, numToDo)
	tStart := time.Now()
	nTimes(numToDo, func(i int) {
		urls[i] = fmt.Sprintf("https://mint%d.example.com", i)
		id, err := boltdb.RegisterNode(urls[i])
		if err != nil {
			t.Fatalf("RegisterNode error: %v", err)
		}
		if id != uint32(i+1) {
			t.Fatalf("expected node id %d, got %d", i+1, id)
		}
	})
	t.Logf("%d milliseconds to register %d nodes", time.Since(tStart)/time.Millisecond, numToDo)

	// Registration is idempotent.
	id, err := boltdb.RegisterNode(urls[41])
	if err != nil {
		t.Fatalf("repeat RegisterNode error: %v", err)
	}
	if id != 42 {
		t.Fatalf("repeat registration changed the id to %d", id)
	}

	nodes, err = boltdb.Nodes()
	if err != nil {
		t.Fatalf("Nodes error: %v", err)
	}
	if len(nodes) != numToDo {
		t.Fatalf("expected %d nodes, got %d", numToDo, len(nodes))
	}
	for i, n := range nodes {
		if n.ID != uint32(i+1) || n.URL != urls[i] {
			t.Fatalf("node %d out of order: %d %s", i, n.ID, n.URL)
		}
	}

	n, err := boltdb.NodeByURL(urls[9])
	if err != nil {
		t.Fatalf("NodeByURL error: %v", err)
	}
	reN, err := boltdb.Node(n.ID)
	if err != nil {
		t.Fatalf("Node error: %v", err)
	}
	dbtest.MustCompareNodes(t, n, reN)

	if _, err := boltdb.Node(1e6); !errors.Is(err, clientdb.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
	if _, err := boltdb.NodeByURL("https://nope"); !errors.Is(err, clientdb.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown url, got %v", err)
	}
	if _, err := boltdb.RegisterNode(""); err == nil {
		t.Fatalf("no error for empty url")
	}
}

func TestKeysets(t *testing.T) {
	boltdb := newTestDB(t)
	nodeID, _ := boltdb.RegisterNode("https://a")
	otherID, _ := boltdb.RegisterNode("https://b")

	ks := dbtest.RandomKeyset()
	ks.Counter = 0
	if err := boltdb.StoreKeysets(nodeID, []*clientdb.Keyset{ks}); err != nil {
		t.Fatalf("StoreKeysets error: %v", err)
	}

	first, err := boltdb.ReserveCounter(ks.ID, 5)
	if err != nil {
		t.Fatalf("ReserveCounter error: %v", err)
	}
	if first != 0 {
		t.Fatalf("expected first counter 0, got %d", first)
	}
	first, err = boltdb.ReserveCounter(ks.ID, 3)
	if err != nil {
		t.Fatalf("ReserveCounter error: %v", err)
	}
	if first != 5 {
		t.Fatalf("expected first counter 5, got %d", first)
	}

	// Refreshing keysets from the mint must not roll back the counter.
	refreshed := *ks
	refreshed.Active = !ks.Active
	refreshed.Counter = 0
	if err := boltdb.StoreKeysets(nodeID, []*clientdb.Keyset{&refreshed}); err != nil {
		t.Fatalf("StoreKeysets refresh error: %v", err)
	}
	reKS, err := boltdb.Keyset(ks.ID)
	if err != nil {
		t.Fatalf("Keyset error: %v", err)
	}
	if reKS.Counter != 8 {
		t.Fatalf("expected counter 8 after refresh, got %d", reKS.Counter)
	}
	if reKS.Active == ks.Active || reKS.NodeID != nodeID {
		t.Fatalf("keyset not updated: %+v", reKS)
	}

	// The same keyset id can't belong to two nodes.
	if err := boltdb.StoreKeysets(otherID, []*clientdb.Keyset{ks}); err == nil {
		t.Fatalf("no error storing a keyset for a second node")
	}

	if _, err := boltdb.ReserveCounter("00ffffffffffffff", 1); !errors.Is(err, clientdb.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown keyset, got %v", err)
	}
}

func TestBalances(t *testing.T) {
	boltdb := newTestDB(t)

	bals, err := boltdb.Balances()
	if err != nil {
		t.Fatalf("Balances error: %v", err)
	}
	if len(bals) != 0 {
		t.Fatalf("fresh DB has balances")
	}

	a, _ := fundNode(t, boltdb, "https://a", cashu.Satoshi, 1, 2, 8)
	fundNode(t, boltdb, "https://a", cashu.Gwei, 16)
	b, bProofs := fundNode(t, boltdb, "https://b", cashu.Satoshi, 4)
	// A node with nothing but a zero proof is omitted.
	fundNode(t, boltdb, "https://c", cashu.Satoshi, 0)

	// Spending all of b's proofs drops b from the balances.
	err = boltdb.RegisterOutbound(&clientdb.WadRecord{
		Direction: clientdb.WadOutbound,
		NodeID:    b,
		NodeURL:   "https://b",
		Unit:      cashu.Satoshi,
		Amount:    4,
		ProofIDs:  proofIDs(bProofs),
	})
	if err != nil {
		t.Fatalf("RegisterOutbound error: %v", err)
	}

	bals, err = boltdb.Balances()
	if err != nil {
		t.Fatalf("Balances error: %v", err)
	}
	exp := []clientdb.Balance{
		{NodeID: a, URL: "https://a", Unit: cashu.Gwei, Amount: 16},
		{NodeID: a, URL: "https://a", Unit: cashu.Satoshi, Amount: 11},
	}
	if len(bals) != len(exp) {
		t.Fatalf("expected %d balances, got %d", len(exp), len(bals))
	}
	for i, bal := range bals {
		if *bal != exp[i] {
			t.Fatalf("balance %d: expected %+v, got %+v", i, exp[i], *bal)
		}
	}
}

func TestRegisterOutbound(t *testing.T) {
	boltdb := newTestDB(t)
	nodeID, proofs := fundNode(t, boltdb, "https://a", cashu.Satoshi, 1, 2, 4)

	rec := &clientdb.WadRecord{
		Direction: clientdb.WadOutbound,
		NodeID:    nodeID,
		NodeURL:   "https://a",
		Unit:      cashu.Satoshi,
		Amount:    3,
		ProofIDs:  []string{proofs[0].Y, proofs[1].Y},
	}
	if err := boltdb.RegisterOutbound(rec); err != nil {
		t.Fatalf("RegisterOutbound error: %v", err)
	}

	// Reusing a spent proof alongside an unspent one fails and writes nothing.
	again := &clientdb.WadRecord{
		Direction: clientdb.WadOutbound,
		NodeID:    nodeID,
		Unit:      cashu.Satoshi,
		Amount:    5,
		ProofIDs:  []string{proofs[2].Y, proofs[0].Y},
	}
	if err := boltdb.RegisterOutbound(again); !errors.Is(err, clientdb.ErrProofNotUnspent) {
		t.Fatalf("expected ErrProofNotUnspent, got %v", err)
	}
	unspent, err := boltdb.UnspentProofs(nodeID, cashu.Satoshi)
	if err != nil {
		t.Fatalf("UnspentProofs error: %v", err)
	}
	if len(unspent) != 1 || unspent[0].Y != proofs[2].Y {
		t.Fatalf("failed outbound changed the unspent set: %v", proofIDs(unspent))
	}
	wads, err := boltdb.Wads(0)
	if err != nil {
		t.Fatalf("Wads error: %v", err)
	}
	if len(wads) != 2 {
		t.Fatalf("expected 2 wad records, got %d", len(wads))
	}

	// Proofs from another node are rejected.
	otherID, _ := boltdb.RegisterNode("https://b")
	err = boltdb.RegisterOutbound(&clientdb.WadRecord{NodeID: otherID, ProofIDs: []string{proofs[2].Y}})
	if !errors.Is(err, clientdb.ErrProofNotUnspent) {
		t.Fatalf("expected ErrProofNotUnspent for foreign proof, got %v", err)
	}
	if err := boltdb.RegisterOutbound(&clientdb.WadRecord{NodeID: nodeID}); err == nil {
		t.Fatalf("no error for empty outbound wad")
	}

	reProofs, err := boltdb.Proofs([]string{proofs[1].Y, proofs[2].Y})
	if err != nil {
		t.Fatalf("Proofs error: %v", err)
	}
	if reProofs[0].State != clientdb.ProofSpent || reProofs[1].State != clientdb.ProofUnspent {
		t.Fatalf("wrong proof states %s, %s", reProofs[0].State, reProofs[1].State)
	}
}

func TestConcurrentSpend(t *testing.T) {
	boltdb := newTestDB(t)
	nodeID, proofs := fundNode(t, boltdb, "https://a", cashu.Satoshi, 8)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- boltdb.RegisterOutbound(&clientdb.WadRecord{
				Direction: clientdb.WadOutbound,
				NodeID:    nodeID,
				Unit:      cashu.Satoshi,
				Amount:    8,
				ProofIDs:  proofIDs(proofs),
			})
		}()
	}
	wg.Wait()
	close(errs)
	var successes int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case !errors.Is(err, clientdb.ErrProofNotUnspent):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one successful spend, got %d", successes)
	}
}

func TestSwapProofs(t *testing.T) {
	boltdb := newTestDB(t)
	nodeID, proofs := fundNode(t, boltdb, "https://a", cashu.Satoshi, 8)

	fresh := []*clientdb.Proof{dbtest.RandomProof(), dbtest.RandomProof()}
	for _, p := range fresh {
		p.NodeID, p.Unit, p.Amount = nodeID, cashu.Satoshi, 4
		p.State = clientdb.ProofSpent // stored as unspent regardless
	}
	if err := boltdb.SwapProofs(nodeID, proofIDs(proofs), fresh); err != nil {
		t.Fatalf("SwapProofs error: %v", err)
	}
	unspent, _ := boltdb.UnspentProofs(nodeID, cashu.Satoshi)
	if len(unspent) != 2 {
		t.Fatalf("expected 2 unspent proofs, got %d", len(unspent))
	}

	// Swapping the spent input again fails and stores none of the outputs.
	more := []*clientdb.Proof{dbtest.RandomProof()}
	more[0].NodeID, more[0].Unit = nodeID, cashu.Satoshi
	if err := boltdb.SwapProofs(nodeID, proofIDs(proofs), more); !errors.Is(err, clientdb.ErrProofNotUnspent) {
		t.Fatalf("expected ErrProofNotUnspent, got %v", err)
	}
	if _, err := boltdb.Proofs(proofIDs(more)); !errors.Is(err, clientdb.ErrNotFound) {
		t.Fatalf("failed swap stored its outputs")
	}
}

func TestWads(t *testing.T) {
	boltdb := newTestDB(t)
	numToDo := 20
	recs := make([]*clientdb.WadRecord, 0, numToDo)
	nTimes(numToDo, func(i int) {
		rec := dbtest.RandomWadRecord(i % 4)
		rec.Direction = clientdb.WadInbound
		if err := boltdb.CreditInbound(rec, nil); err != nil {
			t.Fatalf("CreditInbound error: %v", err)
		}
		recs = append(recs, rec)
	})

	wads, err := boltdb.Wads(5)
	if err != nil {
		t.Fatalf("Wads error: %v", err)
	}
	if len(wads) != 5 {
		t.Fatalf("expected 5 records, got %d", len(wads))
	}
	for i, w := range wads {
		dbtest.MustCompareWadRecords(t, recs[numToDo-1-i], w)
	}

	all, _ := boltdb.Wads(0)
	if len(all) != numToDo {
		t.Fatalf("expected %d records, got %d", numToDo, len(all))
	}
}

func TestSeed(t *testing.T) {
	boltdb := newTestDB(t)
	if _, _, err := boltdb.Seed(); !errors.Is(err, clientdb.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing seed, got %v", err)
	}
	if err := boltdb.SetSeed([]byte{1}, []byte{2, 3}); err != nil {
		t.Fatalf("SetSeed error: %v", err)
	}
	if err := boltdb.SetSeed([]byte{1}, []byte{4}); !errors.Is(err, clientdb.ErrSeedExists) {
		t.Fatalf("expected ErrSeedExists, got %v", err)
	}
	crypter, seed, err := boltdb.Seed()
	if err != nil {
		t.Fatalf("Seed error: %v", err)
	}
	if len(crypter) != 1 || crypter[0] != 1 || len(seed) != 2 || seed[1] != 3 {
		t.Fatalf("wrong seed data %x %x", crypter, seed)
	}
}

func TestRunBackup(t *testing.T) {
	boltdb := newTestDB(t)
	fundNode(t, boltdb, "https://a", cashu.Satoshi, 1)
	ctx, cancel := context.WithCancel(tCtx)
	done := make(chan struct{})
	go func() {
		boltdb.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return")
	}
	backup := filepath.Join(filepath.Dir(boltdb.Path()), backupDir, filepath.Base(boltdb.Path()))
	if _, err := os.Stat(backup); err != nil {
		t.Fatalf("backup not written: %v", err)
	}
}

func TestUpgrades(t *testing.T) {
	dbPath := filepath.Join(tDir, "unversioned.db")
	raw, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		t.Fatalf("bbolt.Open error: %v", err)
	}
	raw.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucket(appBucket)
		return err
	})
	raw.Close()

	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB error: %v", err)
	}
	var version uint32
	db.View(func(tx *bbolt.Tx) error {
		version, err = fetchDBVersion(tx)
		return nil
	})
	if err != nil || version != DBVersion {
		t.Fatalf("expected version %d, got %d (%v)", DBVersion, version, err)
	}

	// A newer database is refused.
	db.Update(func(tx *bbolt.Tx) error {
		return setDBVersion(tx, DBVersion+1)
	})
	db.Close()
	if _, err := NewDB(dbPath); err == nil {
		t.Fatalf("no error opening a database from the future")
	}
}

func nTimes(n int, f func(int)) {
	for i := 0; i < n; i++ {
		f(i)
	}
}
