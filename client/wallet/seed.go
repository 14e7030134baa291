// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package wallet

import (
	"context"
	"errors"
	"fmt"

	"decred.org/wadwallet/cashu"
	"decred.org/wadwallet/cashu/bdhke"
	"decred.org/wadwallet/cashu/encode"
	"decred.org/wadwallet/cashu/encrypt"
	"decred.org/wadwallet/cashu/keygen"
	"decred.org/wadwallet/client/db"
	"decred.org/wadwallet/client/db/pool"
	"decred.org/wadwallet/client/mnemonic"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/hdkeychain/v3"
)

// InitSeed prepares the wallet seed at startup. A wallet without a seed gets
// a new random one, or the seed of the restore mnemonic if one is given. An
// existing seed is checked against the password. The returned Crypter
// decrypts the stored seed.
func InitSeed(ledger db.DB, pw []byte, restore string) (crypter encrypt.Crypter, created bool, err error) {
	if len(pw) == 0 {
		return nil, false, errors.New("empty wallet password")
	}
	crypterB, encSeed, err := ledger.Seed()
	switch {
	case err == nil:
		if restore != "" {
			return nil, false, errors.New("cannot restore: the wallet already has a seed")
		}
		crypter, err = encrypt.Deserialize(pw, crypterB)
		if err != nil {
			return nil, false, fmt.Errorf("error decoding seed crypter: %w", err)
		}
		entropy, err := crypter.Decrypt(encSeed)
		if err != nil {
			crypter.Close()
			return nil, false, fmt.Errorf("error decrypting seed: %w", err)
		}
		encode.ClearBytes(entropy)
		return crypter, false, nil
	case !errors.Is(err, db.ErrNotFound):
		return nil, false, err
	}

	var entropy []byte
	if restore != "" {
		if entropy, err = mnemonic.DecodeMnemonic(restore); err != nil {
			return nil, false, err
		}
		log.Infof("Restoring wallet seed from mnemonic")
	} else {
		if entropy, _, err = mnemonic.New(); err != nil {
			return nil, false, err
		}
		log.Infof("Created a new wallet seed")
	}
	defer encode.ClearBytes(entropy)

	crypter = encrypt.NewCrypter(pw)
	encSeed, err = crypter.Encrypt(entropy)
	if err != nil {
		crypter.Close()
		return nil, false, fmt.Errorf("error encrypting seed: %w", err)
	}
	if err = ledger.SetSeed(crypter.Serialize(), encSeed); err != nil {
		crypter.Close()
		return nil, false, fmt.Errorf("error storing seed: %w", err)
	}
	return crypter, true, nil
}

// SeedManager reads the encrypted wallet seed from the ledger.
type SeedManager struct {
	pool    *pool.Pool
	crypter encrypt.Crypter
}

// NewSeedManager is the constructor for a SeedManager.
func NewSeedManager(p *pool.Pool, crypter encrypt.Crypter) *SeedManager {
	return &SeedManager{
		pool:    p,
		crypter: crypter,
	}
}

func (sm *SeedManager) entropy(ctx context.Context) ([]byte, error) {
	var encSeed []byte
	err := sm.pool.With(ctx, func(conn db.DB) (err error) {
		_, encSeed, err = conn.Seed()
		return err
	})
	if err != nil {
		return nil, err
	}
	return sm.crypter.Decrypt(encSeed)
}

// Mnemonic is the wallet seed's mnemonic.
func (sm *SeedManager) Mnemonic(ctx context.Context) (string, error) {
	entropy, err := sm.entropy(ctx)
	if err != nil {
		return "", err
	}
	defer encode.ClearBytes(entropy)
	return mnemonic.FromEntropy(entropy)
}

// Secrets loads the seed and returns the deterministic secret generator.
func (sm *SeedManager) Secrets(ctx context.Context) (*Secrets, error) {
	entropy, err := sm.entropy(ctx)
	if err != nil {
		return nil, err
	}
	defer encode.ClearBytes(entropy)
	seed, err := mnemonic.Seed(entropy)
	if err != nil {
		return nil, err
	}
	defer encode.ClearBytes(seed)
	master, err := keygen.NewMaster(seed)
	if err != nil {
		return nil, fmt.Errorf("error creating master key: %w", err)
	}
	return &Secrets{master: master}, nil
}

// Secrets derives the wallet's deterministic output secrets.
type Secrets struct {
	master *hdkeychain.ExtendedKey
}

// NewSecrets wraps a master key.
func NewSecrets(master *hdkeychain.ExtendedKey) *Secrets {
	return &Secrets{master: master}
}

// preMint is a blinded output awaiting the mint's signature.
type preMint struct {
	amount uint64
	secret string
	r      *secp256k1.PrivateKey
	msg    *cashu.BlindedMessage
}

// outputs derives blinded messages for the amounts from consecutive counters
// starting at first.
func (s *Secrets) outputs(keysetID string, first uint32, amounts []uint64) ([]*preMint, error) {
	ksKey, err := keygen.KeysetKey(s.master, keysetID)
	if err != nil {
		return nil, err
	}
	defer ksKey.Zero()
	pms := make([]*preMint, 0, len(amounts))
	for i, amt := range amounts {
		out, err := keygen.DeriveOutput(ksKey, first+uint32(i))
		if err != nil {
			return nil, err
		}
		B_, err := bdhke.BlindMessage([]byte(out.Secret), out.R)
		if err != nil {
			return nil, err
		}
		pms = append(pms, &preMint{
			amount: amt,
			secret: out.Secret,
			r:      out.R,
			msg: &cashu.BlindedMessage{
				Amount: amt,
				ID:     keysetID,
				B_:     B_.SerializeCompressed(),
			},
		})
	}
	return pms, nil
}
