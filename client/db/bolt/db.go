// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package bolt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"os"
	"path/filepath"
	"sort"
	"time"

	"decred.org/wadwallet/cashu"
	"decred.org/wadwallet/cashu/encode"
	clientdb "decred.org/wadwallet/client/db"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

// Short names for some commonly used imported functions.
var (
	intCoder    = encode.IntCoder
	uint32Bytes = encode.Uint32Bytes
	bCopy       = encode.CopySlice
)

// Bolt works on []byte keys and values. These are some commonly used key and
// value encodings.
var (
	appBucket      = []byte("appBucket")
	nodesBucket    = []byte("nodes")
	nodeURLsBucket = []byte("nodeURLs")
	keysetsBucket  = []byte("keysets")
	proofsBucket   = []byte("proofs")
	wadsBucket     = []byte("wads")
	versionKey     = []byte("version")
	crypterKey     = []byte("crypter")
	seedKey        = []byte("seed")
	backupDir      = "backup"
)

// BoltDB is a bbolt-based ledger for the wallet. BoltDB satisfies the db.DB
// interface defined at decred.org/wadwallet/client/db.
type BoltDB struct {
	*bbolt.DB
}

// Check that BoltDB satisfies the db.DB interface.
var _ clientdb.DB = (*BoltDB)(nil)

// NewDB is a constructor for a *BoltDB.
func NewDB(dbPath string) (*BoltDB, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	bdb := &BoltDB{
		DB: db,
	}

	err = bdb.makeTopLevelBuckets([][]byte{appBucket, nodesBucket, nodeURLsBucket,
		keysetsBucket, proofsBucket, wadsBucket})
	if err != nil {
		db.Close()
		return nil, err
	}

	if err = upgradeDB(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Infof("Opened ledger at %s", dbPath)
	return bdb, nil
}

// Run waits for context cancellation and closes the database.
func (db *BoltDB) Run(ctx context.Context) {
	<-ctx.Done()
	err := db.Backup()
	if err != nil {
		log.Errorf("unable to backup database: %v", err)
	}
	db.Close()
}

// RegisterNode stores the node URL, assigning the next node id. A known URL
// keeps its id.
func (db *BoltDB) RegisterNode(url string) (id uint32, err error) {
	if url == "" {
		return 0, errors.New("cannot register a node with an empty url")
	}
	urlB := []byte(url)
	return id, db.Update(func(tx *bbolt.Tx) error {
		urls, nodes := tx.Bucket(nodeURLsBucket), tx.Bucket(nodesBucket)
		if idB := urls.Get(urlB); idB != nil {
			id = intCoder.Uint32(idB)
			return nil
		}
		seq, err := nodes.NextSequence()
		if err != nil {
			return err
		}
		if seq > math.MaxUint32 {
			return errors.New("node id space exhausted")
		}
		id = uint32(seq)
		node := &clientdb.Node{
			ID:         id,
			URL:        url,
			Registered: time.Now(),
		}
		idB := uint32Bytes(id)
		if err := nodes.Put(idB, node.Encode()); err != nil {
			return fmt.Errorf("error storing node %s: %w", url, err)
		}
		log.Debugf("Registered node %d at %s", id, url)
		return urls.Put(urlB, idB)
	})
}

// Node retrieves the node with the id.
func (db *BoltDB) Node(id uint32) (node *clientdb.Node, err error) {
	return node, db.nodesView(func(nodes *bbolt.Bucket) error {
		node, err = getNode(nodes, id)
		return err
	})
}

// NodeByURL retrieves the node registered for the URL.
func (db *BoltDB) NodeByURL(url string) (node *clientdb.Node, err error) {
	return node, db.View(func(tx *bbolt.Tx) error {
		idB := tx.Bucket(nodeURLsBucket).Get([]byte(url))
		if idB == nil {
			return fmt.Errorf("%w: node %s", clientdb.ErrNotFound, url)
		}
		node, err = getNode(tx.Bucket(nodesBucket), intCoder.Uint32(idB))
		return err
	})
}

// Nodes lists the registered nodes by ascending id.
func (db *BoltDB) Nodes() ([]*clientdb.Node, error) {
	var nodes []*clientdb.Node
	return nodes, db.nodesView(func(bkt *bbolt.Bucket) error {
		return bkt.ForEach(func(k, v []byte) error {
			node, err := clientdb.DecodeNode(intCoder.Uint32(k), v)
			if err != nil {
				return fmt.Errorf("error decoding node %x: %w", k, err)
			}
			nodes = append(nodes, node)
			return nil
		})
	})
}

func getNode(nodes *bbolt.Bucket, id uint32) (*clientdb.Node, error) {
	nodeB := nodes.Get(uint32Bytes(id))
	if nodeB == nil {
		return nil, fmt.Errorf("%w: node %d", clientdb.ErrNotFound, id)
	}
	return clientdb.DecodeNode(id, nodeB)
}

func (db *BoltDB) nodesView(f bucketFunc) error {
	return db.withBucket(nodesBucket, db.View, f)
}

// StoreKeysets inserts new keysets and updates known ones. The derivation
// counter of a known keyset is never rolled back.
func (db *BoltDB) StoreKeysets(nodeID uint32, keysets []*clientdb.Keyset) error {
	return db.keysetsUpdate(func(bkt *bbolt.Bucket) error {
		for _, ks := range keysets {
			idB := []byte(ks.ID)
			rec := *ks
			rec.NodeID = nodeID
			if oldB := bkt.Get(idB); oldB != nil {
				old, err := clientdb.DecodeKeyset(ks.ID, oldB)
				if err != nil {
					return fmt.Errorf("error decoding keyset %s: %w", ks.ID, err)
				}
				if old.NodeID != nodeID {
					return fmt.Errorf("keyset %s already registered to node %d", ks.ID, old.NodeID)
				}
				if old.Counter > rec.Counter {
					rec.Counter = old.Counter
				}
			}
			if err := bkt.Put(idB, rec.Encode()); err != nil {
				return err
			}
		}
		return nil
	})
}

// Keyset retrieves a keyset by its hex id.
func (db *BoltDB) Keyset(id string) (ks *clientdb.Keyset, err error) {
	return ks, db.withBucket(keysetsBucket, db.View, func(bkt *bbolt.Bucket) error {
		ks, err = getKeyset(bkt, id)
		return err
	})
}

func getKeyset(bkt *bbolt.Bucket, id string) (*clientdb.Keyset, error) {
	ksB := bkt.Get([]byte(id))
	if ksB == nil {
		return nil, fmt.Errorf("%w: keyset %s", clientdb.ErrNotFound, id)
	}
	return clientdb.DecodeKeyset(id, ksB)
}

// ReserveCounter advances the keyset's derivation counter by n, returning the
// first reserved counter.
func (db *BoltDB) ReserveCounter(keysetID string, n uint32) (first uint32, err error) {
	return first, db.keysetsUpdate(func(bkt *bbolt.Bucket) error {
		ks, err := getKeyset(bkt, keysetID)
		if err != nil {
			return err
		}
		next, carry := bits.Add32(ks.Counter, n, 0)
		if carry != 0 {
			return fmt.Errorf("derivation counter exhausted for keyset %s", keysetID)
		}
		first, ks.Counter = ks.Counter, next
		return bkt.Put([]byte(keysetID), ks.Encode())
	})
}

func (db *BoltDB) keysetsUpdate(f bucketFunc) error {
	return db.withBucket(keysetsBucket, db.Update, f)
}

// CreditInbound stores the fresh proofs and the inbound wad record.
func (db *BoltDB) CreditInbound(rec *clientdb.WadRecord, proofs []*clientdb.Proof) error {
	if err := prepareRecord(rec); err != nil {
		return err
	}
	return db.Update(func(tx *bbolt.Tx) error {
		if err := putFreshProofs(tx.Bucket(proofsBucket), proofs); err != nil {
			return err
		}
		return tx.Bucket(wadsBucket).Put(rec.ID[:], rec.Encode())
	})
}

// SwapProofs marks the spent proofs and stores the fresh ones.
func (db *BoltDB) SwapProofs(nodeID uint32, spent []string, fresh []*clientdb.Proof) error {
	return db.withBucket(proofsBucket, db.Update, func(bkt *bbolt.Bucket) error {
		if err := markSpent(bkt, nodeID, spent); err != nil {
			return err
		}
		return putFreshProofs(bkt, fresh)
	})
}

// RegisterOutbound marks the record's proofs spent and stores the record.
func (db *BoltDB) RegisterOutbound(rec *clientdb.WadRecord) error {
	if len(rec.ProofIDs) == 0 {
		return errors.New("outbound wad has no proofs")
	}
	if err := prepareRecord(rec); err != nil {
		return err
	}
	return db.Update(func(tx *bbolt.Tx) error {
		if err := markSpent(tx.Bucket(proofsBucket), rec.NodeID, rec.ProofIDs); err != nil {
			return err
		}
		return tx.Bucket(wadsBucket).Put(rec.ID[:], rec.Encode())
	})
}

// prepareRecord assigns a time-ordered id and a stamp to a new record.
func prepareRecord(rec *clientdb.WadRecord) error {
	if rec.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("error generating wad id: %w", err)
		}
		rec.ID = id
	}
	if rec.Stamp.IsZero() {
		rec.Stamp = time.Now()
	}
	return nil
}

func putFreshProofs(bkt *bbolt.Bucket, proofs []*clientdb.Proof) error {
	now := time.Now()
	for _, p := range proofs {
		yB := []byte(p.Y)
		if len(yB) == 0 {
			return errors.New("proof with no Y")
		}
		if bkt.Get(yB) != nil {
			return fmt.Errorf("proof %s already stored", p.Y)
		}
		p.State = clientdb.ProofUnspent
		if p.Stamp.IsZero() {
			p.Stamp = now
		}
		if err := bkt.Put(yB, p.Encode()); err != nil {
			return err
		}
	}
	return nil
}

// markSpent flips the proofs from unspent to spent. Any proof that is unknown,
// already spent, or held at a different node fails the whole batch.
func markSpent(bkt *bbolt.Bucket, nodeID uint32, ys []string) error {
	for _, y := range ys {
		yB := []byte(y)
		pB := bkt.Get(yB)
		if pB == nil {
			return fmt.Errorf("%w: unknown proof %s", clientdb.ErrProofNotUnspent, y)
		}
		p, err := clientdb.DecodeProof(y, pB)
		if err != nil {
			return fmt.Errorf("error decoding proof %s: %w", y, err)
		}
		if p.State != clientdb.ProofUnspent {
			return fmt.Errorf("%w: proof %s is %s", clientdb.ErrProofNotUnspent, y, p.State)
		}
		if p.NodeID != nodeID {
			return fmt.Errorf("%w: proof %s is held at node %d, not %d",
				clientdb.ErrProofNotUnspent, y, p.NodeID, nodeID)
		}
		p.State = clientdb.ProofSpent
		if err := bkt.Put(yB, p.Encode()); err != nil {
			return err
		}
	}
	return nil
}

// UnspentProofs lists the node's unspent proofs in the unit, smallest first.
func (db *BoltDB) UnspentProofs(nodeID uint32, unit cashu.Unit) ([]*clientdb.Proof, error) {
	var proofs []*clientdb.Proof
	err := db.proofsView(func(bkt *bbolt.Bucket) error {
		return bkt.ForEach(func(k, v []byte) error {
			p, err := clientdb.DecodeProof(string(k), v)
			if err != nil {
				return fmt.Errorf("error decoding proof %s: %w", string(k), err)
			}
			if p.State == clientdb.ProofUnspent && p.NodeID == nodeID && p.Unit == unit {
				proofs = append(proofs, p)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(proofs, func(i, j int) bool {
		if proofs[i].Amount == proofs[j].Amount {
			return proofs[i].Y < proofs[j].Y
		}
		return proofs[i].Amount < proofs[j].Amount
	})
	return proofs, nil
}

// Proofs retrieves the proofs by Y, in the order requested.
func (db *BoltDB) Proofs(ys []string) ([]*clientdb.Proof, error) {
	proofs := make([]*clientdb.Proof, 0, len(ys))
	return proofs, db.proofsView(func(bkt *bbolt.Bucket) error {
		for _, y := range ys {
			pB := bkt.Get([]byte(y))
			if pB == nil {
				return fmt.Errorf("%w: proof %s", clientdb.ErrNotFound, y)
			}
			p, err := clientdb.DecodeProof(y, pB)
			if err != nil {
				return fmt.Errorf("error decoding proof %s: %w", y, err)
			}
			proofs = append(proofs, p)
		}
		return nil
	})
}

func (db *BoltDB) proofsView(f bucketFunc) error {
	return db.withBucket(proofsBucket, db.View, f)
}

// Balances totals the unspent proofs per node and unit. Results are ordered
// by node id, then unit.
func (db *BoltDB) Balances() ([]*clientdb.Balance, error) {
	var bals []*clientdb.Balance
	return bals, db.View(func(tx *bbolt.Tx) error {
		totals := make(map[uint32]map[cashu.Unit]uint64)
		err := tx.Bucket(proofsBucket).ForEach(func(k, v []byte) error {
			p, err := clientdb.DecodeProof(string(k), v)
			if err != nil {
				return fmt.Errorf("error decoding proof %s: %w", string(k), err)
			}
			if p.State != clientdb.ProofUnspent || p.Amount == 0 {
				return nil
			}
			units, found := totals[p.NodeID]
			if !found {
				units = make(map[cashu.Unit]uint64)
				totals[p.NodeID] = units
			}
			sum, carry := bits.Add64(units[p.Unit], p.Amount, 0)
			if carry != 0 {
				return fmt.Errorf("%s balance overflow at node %d", p.Unit, p.NodeID)
			}
			units[p.Unit] = sum
			return nil
		})
		if err != nil {
			return err
		}

		nodeIDs := make([]uint32, 0, len(totals))
		for id := range totals {
			nodeIDs = append(nodeIDs, id)
		}
		sort.Slice(nodeIDs, func(i, j int) bool { return nodeIDs[i] < nodeIDs[j] })

		nodes := tx.Bucket(nodesBucket)
		for _, id := range nodeIDs {
			node, err := getNode(nodes, id)
			if err != nil {
				return err
			}
			units := make([]cashu.Unit, 0, len(totals[id]))
			for u := range totals[id] {
				units = append(units, u)
			}
			sort.Slice(units, func(i, j int) bool { return units[i] < units[j] })
			for _, u := range units {
				bals = append(bals, &clientdb.Balance{
					NodeID: id,
					URL:    node.URL,
					Unit:   u,
					Amount: totals[id][u],
				})
			}
		}
		return nil
	})
}

// Wads lists the newest n wad records, newest first. n = 0 lists them all.
// Record ids are version 7 UUIDs, so key order is creation order.
func (db *BoltDB) Wads(n int) ([]*clientdb.WadRecord, error) {
	var recs []*clientdb.WadRecord
	return recs, db.withBucket(wadsBucket, db.View, func(bkt *bbolt.Bucket) error {
		c := bkt.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if n > 0 && len(recs) >= n {
				break
			}
			id, err := uuid.FromBytes(k)
			if err != nil {
				return fmt.Errorf("bad wad key %x: %w", k, err)
			}
			rec, err := clientdb.DecodeWadRecord(id, v)
			if err != nil {
				return fmt.Errorf("error decoding wad %s: %w", id, err)
			}
			recs = append(recs, rec)
		}
		return nil
	})
}

// SetSeed stores the serialized crypter and the encrypted seed.
func (db *BoltDB) SetSeed(crypter, encSeed []byte) error {
	if len(crypter) == 0 || len(encSeed) == 0 {
		return errors.New("empty seed or crypter")
	}
	return db.withBucket(appBucket, db.Update, func(bkt *bbolt.Bucket) error {
		if bkt.Get(seedKey) != nil {
			return clientdb.ErrSeedExists
		}
		return newBucketPutter(bkt).
			put(crypterKey, crypter).
			put(seedKey, encSeed).
			err()
	})
}

// Seed retrieves the serialized crypter and the encrypted seed.
func (db *BoltDB) Seed() (crypter, encSeed []byte, err error) {
	return crypter, encSeed, db.withBucket(appBucket, db.View, func(bkt *bbolt.Bucket) error {
		crypterB, seedB := bkt.Get(crypterKey), bkt.Get(seedKey)
		if crypterB == nil || seedB == nil {
			return fmt.Errorf("%w: wallet seed", clientdb.ErrNotFound)
		}
		crypter, encSeed = bCopy(crypterB), bCopy(seedB)
		return nil
	})
}

// makeTopLevelBuckets creates a top-level bucket for each of the provided keys,
// if the bucket doesn't already exist.
func (db *BoltDB) makeTopLevelBuckets(buckets [][]byte) error {
	return db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range buckets {
			_, err := tx.CreateBucketIfNotExists(bucket)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// withBucket is a creates a view into a (probably nested) bucket. The viewer
// can be read-only (db.View), or read-write (db.Update). The provided
// bucketFunc will be called with the requested bucket as its only argument.
func (db *BoltDB) withBucket(bkt []byte, viewer txFunc, f bucketFunc) error {
	return viewer(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bkt)
		if bucket == nil {
			return fmt.Errorf("failed to open %s bucket", string(bkt))
		}
		return f(bucket)
	})
}

// Backup makes a copy of the database in the backup directory next to the
// database file.
func (db *BoltDB) Backup() error {
	dir := filepath.Join(filepath.Dir(db.Path()), backupDir)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		err := os.Mkdir(dir, 0700)
		if err != nil {
			return fmt.Errorf("unable to create backup directory: %w", err)
		}
	}

	path := filepath.Join(dir, filepath.Base(db.Path()))
	return db.View(func(tx *bbolt.Tx) error {
		return tx.CopyFile(path, 0600)
	})
}

// bucketPutter enables chained calls to (*bbolt.Bucket).Put with error
// deferment.
type bucketPutter struct {
	bucket *bbolt.Bucket
	putErr error
}

// newBucketPutter is a constructor for a bucketPutter.
func newBucketPutter(bkt *bbolt.Bucket) *bucketPutter {
	return &bucketPutter{bucket: bkt}
}

// put calls Put on the underlying bucket. If an error has been encountered in a
// previous call to put, nothing is done.
func (bp *bucketPutter) put(k, v []byte) *bucketPutter {
	if bp.putErr != nil {
		return bp
	}
	bp.putErr = bp.bucket.Put(k, v)
	return bp
}

// Return any put error encountered.
func (bp *bucketPutter) err() error {
	return bp.putErr
}

// A couple of common bbolt functions.
type bucketFunc func(*bbolt.Bucket) error
type txFunc func(func(*bbolt.Tx) error) error
