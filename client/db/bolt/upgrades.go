// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package bolt

import (
	"fmt"

	"decred.org/wadwallet/cashu/encode"
	"go.etcd.io/bbolt"
)

const (
	// versionedDBVersion is the first persisted version of the ledger.
	versionedDBVersion = 1

	// DBVersion is the latest version of the database that is understood by the
	// program. Databases with recorded versions higher than this will fail to
	// open.
	DBVersion = versionedDBVersion
)

// upgrades are keyed by the database version they upgrade from.
var upgrades = [...]func(tx *bbolt.Tx) error{
	versionedDBVersion - 1: versionedDBUpgrade,
}

func fetchDBVersion(tx *bbolt.Tx) (uint32, error) {
	bucket := tx.Bucket(appBucket)
	if bucket == nil {
		return 0, fmt.Errorf("app bucket not found")
	}
	versionB := bucket.Get(versionKey)
	if versionB == nil {
		return 0, fmt.Errorf("database version not found")
	}
	return encode.BytesToUint32(versionB), nil
}

func setDBVersion(tx *bbolt.Tx, newVersion uint32) error {
	bucket := tx.Bucket(appBucket)
	if bucket == nil {
		return fmt.Errorf("app bucket not found")
	}
	return bucket.Put(versionKey, encode.Uint32Bytes(newVersion))
}

// upgradeDB runs any upgrades needed to bring the ledger to DBVersion.
func upgradeDB(db *bbolt.DB) error {
	var version uint32
	err := db.View(func(tx *bbolt.Tx) error {
		v, err := fetchDBVersion(tx)
		if err == nil {
			version = v
		}
		// A missing version is an unversioned ledger.
		return nil
	})
	if err != nil {
		return err
	}

	if version > DBVersion {
		return fmt.Errorf("unknown database version %d, wallet recognizes up to %d",
			version, DBVersion)
	}
	if version == DBVersion {
		return nil
	}

	log.Infof("Upgrading database from version %d to %d", version, DBVersion)

	return db.Update(func(tx *bbolt.Tx) error {
		for _, upgrade := range upgrades[version:] {
			if err := upgrade(tx); err != nil {
				return err
			}
		}
		return nil
	})
}

// versionedDBUpgrade stamps an unversioned ledger with version 1.
func versionedDBUpgrade(tx *bbolt.Tx) error {
	if _, err := fetchDBVersion(tx); err == nil {
		return fmt.Errorf("versionedDBUpgrade called on a versioned database")
	}
	return setDBVersion(tx, versionedDBVersion)
}
