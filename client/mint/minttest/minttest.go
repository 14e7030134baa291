// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package minttest is an in-process cashu mint for tests. It serves the REST
// endpoints used by the wallet and signs with real BDHKE keys.
package minttest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"decred.org/wadwallet/cashu"
	"decred.org/wadwallet/cashu/bdhke"
	"decred.org/wadwallet/cashu/mintnet"
	"decred.org/wadwallet/client/mint"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Mint error codes.
const (
	CodeProofInvalid   = 10003
	CodeAlreadySpent   = 11001
	CodeUnbalanced     = 11002
	CodeKeysetUnknown  = 12001
	CodeKeysetInactive = 12002
)

// maxOrder is the number of power-of-two denominations per keyset.
const maxOrder = 32

type keyset struct {
	info *mint.KeysetInfo
	priv map[uint64]*secp256k1.PrivateKey
}

// Mint is a fake mint backed by an httptest.Server.
type Mint struct {
	*httptest.Server

	mtx      sync.Mutex
	salt     []byte
	info     mint.Info
	keysets  []*keyset
	byID     map[string]*keyset
	spent    map[string]bool
	swapErr  *mintnet.MintError
	down     bool
	swaps    int
	requests map[string]int
}

// NewMint starts a mint with one active, fee-free keyset per unit. Close the
// mint when done.
func NewMint(units ...cashu.Unit) *Mint {
	salt := make([]byte, 16)
	rand.Read(salt)
	m := &Mint{
		salt:     salt,
		info:     mint.Info{Name: "test mint", Version: "minttest/1.0", Pubkey: hex.EncodeToString(salt)},
		byID:     make(map[string]*keyset),
		spent:    make(map[string]bool),
		requests: make(map[string]int),
	}
	for _, u := range units {
		m.AddKeyset(u, true, 0)
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// AddKeyset adds a keyset and returns its id.
func (m *Mint) AddKeyset(unit cashu.Unit, active bool, feePPK uint64) string {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	ks := &keyset{priv: make(map[uint64]*secp256k1.PrivateKey, maxOrder)}
	amts := make([]uint64, 0, maxOrder)
	for i := 0; i < maxOrder; i++ {
		amt := uint64(1) << i
		h := sha256.Sum256([]byte(fmt.Sprintf("%x/%s/%d/%d", m.salt, unit, len(m.keysets), amt)))
		k, err := bdhke.PrivKeyFromBytes(h[:])
		if err != nil {
			panic(err)
		}
		ks.priv[amt] = k
		amts = append(amts, amt)
	}
	// Version 00 keyset id: the truncated hash of the sorted public keys.
	hasher := sha256.New()
	sort.Slice(amts, func(i, j int) bool { return amts[i] < amts[j] })
	for _, amt := range amts {
		hasher.Write(ks.priv[amt].PubKey().SerializeCompressed())
	}
	id := "00" + hex.EncodeToString(hasher.Sum(nil))[:14]
	ks.info = &mint.KeysetInfo{
		ID:          id,
		Unit:        unit.String(),
		Active:      active,
		InputFeePPK: feePPK,
	}
	m.keysets = append(m.keysets, ks)
	m.byID[id] = ks
	return id
}

// ActiveKeyset is the id of the first active keyset for the unit.
func (m *Mint) ActiveKeyset(unit cashu.Unit) string {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	for _, ks := range m.keysets {
		if ks.info.Active && ks.info.Unit == unit.String() {
			return ks.info.ID
		}
	}
	panic("no active keyset for " + unit.String())
}

// Issue creates valid proofs from the unit's active keyset, as if they were
// minted. Amounts must be powers of two.
func (m *Mint) Issue(unit cashu.Unit, amounts ...uint64) cashu.Proofs {
	id := m.ActiveKeyset(unit)
	m.mtx.Lock()
	defer m.mtx.Unlock()
	ks := m.byID[id]
	proofs := make(cashu.Proofs, 0, len(amounts))
	for _, amt := range amounts {
		k, found := ks.priv[amt]
		if !found {
			panic(fmt.Sprintf("no key for amount %d", amt))
		}
		secretB := make([]byte, 32)
		rand.Read(secretB)
		secret := hex.EncodeToString(secretB)
		Y, err := bdhke.HashToCurve([]byte(secret))
		if err != nil {
			panic(err)
		}
		C, err := bdhke.SignBlinded(k, Y)
		if err != nil {
			panic(err)
		}
		proofs = append(proofs, &cashu.Proof{
			Amount: amt,
			ID:     id,
			Secret: secret,
			C:      C.SerializeCompressed(),
		})
	}
	return proofs
}

// IsSpent checks whether the mint has seen the secret spent.
func (m *Mint) IsSpent(secret string) bool {
	y, err := bdhke.ProofY(secret)
	if err != nil {
		return false
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.spent[y]
}

// SetSwapError makes every swap fail with the mint error. nil clears it.
func (m *Mint) SetSwapError(err *mintnet.MintError) {
	m.mtx.Lock()
	m.swapErr = err
	m.mtx.Unlock()
}

// SetDown makes every request fail with 503 Service Unavailable.
func (m *Mint) SetDown(down bool) {
	m.mtx.Lock()
	m.down = down
	m.mtx.Unlock()
}

// Swaps is the number of successful swaps.
func (m *Mint) Swaps() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.swaps
}

// Requests is the number of requests received for the path.
func (m *Mint) Requests(path string) int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.requests[path]
}

func (m *Mint) serve(w http.ResponseWriter, r *http.Request) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.requests[r.URL.Path]++
	if m.down {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	switch {
	case r.Method == http.MethodGet && r.URL.Path == mint.InfoPath:
		writeJSON(w, &m.info)
	case r.Method == http.MethodGet && r.URL.Path == mint.KeysetsPath:
		resp := &mint.KeysetsResponse{}
		for _, ks := range m.keysets {
			resp.Keysets = append(resp.Keysets, ks.info)
		}
		writeJSON(w, resp)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, mint.KeysPath):
		m.serveKeys(w, strings.TrimPrefix(r.URL.Path, mint.KeysPath))
	case r.Method == http.MethodPost && r.URL.Path == mint.SwapPath:
		m.serveSwap(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (m *Mint) serveKeys(w http.ResponseWriter, id string) {
	ks, found := m.byID[id]
	if !found {
		writeError(w, CodeKeysetUnknown, "keyset not found")
		return
	}
	keys := make(map[string]string, len(ks.priv))
	for amt, k := range ks.priv {
		keys[strconv.FormatUint(amt, 10)] = hex.EncodeToString(k.PubKey().SerializeCompressed())
	}
	resp := map[string]any{
		"keysets": []any{map[string]any{
			"id":   id,
			"unit": ks.info.Unit,
			"keys": keys,
		}},
	}
	writeJSON(w, resp)
}

func (m *Mint) serveSwap(w http.ResponseWriter, r *http.Request) {
	if m.swapErr != nil {
		writeError(w, m.swapErr.Code, m.swapErr.Detail)
		return
	}
	var req mint.SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 0, "bad request body")
		return
	}
	if len(req.Inputs) == 0 || len(req.Outputs) == 0 {
		writeError(w, CodeUnbalanced, "no inputs or outputs")
		return
	}

	var sumIn, sumOut, ppk uint64
	var unit string
	ys := make(map[string]bool, len(req.Inputs))
	for _, p := range req.Inputs {
		ks, found := m.byID[p.ID]
		if !found {
			writeError(w, CodeKeysetUnknown, "keyset not found")
			return
		}
		if unit == "" {
			unit = ks.info.Unit
		} else if unit != ks.info.Unit {
			writeError(w, CodeUnbalanced, "inputs of mixed units")
			return
		}
		k, found := ks.priv[p.Amount]
		C, err := secp256k1.ParsePubKey(p.C)
		if !found || err != nil || !bdhke.Verify(k, C, []byte(p.Secret)) {
			writeError(w, CodeProofInvalid, "could not verify proof")
			return
		}
		y, _ := bdhke.ProofY(p.Secret)
		if m.spent[y] || ys[y] {
			writeError(w, CodeAlreadySpent, "Token already spent.")
			return
		}
		ys[y] = true
		sumIn += p.Amount
		ppk += ks.info.InputFeePPK
	}

	sigs := make([]*cashu.BlindedSignature, 0, len(req.Outputs))
	for _, o := range req.Outputs {
		ks, found := m.byID[o.ID]
		if !found {
			writeError(w, CodeKeysetUnknown, "keyset not found")
			return
		}
		if !ks.info.Active {
			writeError(w, CodeKeysetInactive, "keyset is inactive")
			return
		}
		if ks.info.Unit != unit {
			writeError(w, CodeUnbalanced, "outputs in a different unit")
			return
		}
		k, found := ks.priv[o.Amount]
		if !found {
			writeError(w, CodeUnbalanced, "unsupported output amount")
			return
		}
		B_, err := secp256k1.ParsePubKey(o.B_)
		if err != nil {
			writeError(w, CodeProofInvalid, "invalid blinded message")
			return
		}
		C_, err := bdhke.SignBlinded(k, B_)
		if err != nil {
			writeError(w, CodeProofInvalid, "invalid blinded message")
			return
		}
		sumOut += o.Amount
		sigs = append(sigs, &cashu.BlindedSignature{
			Amount: o.Amount,
			ID:     o.ID,
			C_:     C_.SerializeCompressed(),
		})
	}

	fee := (ppk + 999) / 1000
	if sumIn < fee || sumIn-fee != sumOut {
		writeError(w, CodeUnbalanced, fmt.Sprintf("inputs (%d) - fee (%d) != outputs (%d)", sumIn, fee, sumOut))
		return
	}
	for y := range ys {
		m.spent[y] = true
	}
	m.swaps++
	writeJSON(w, &mint.SwapResponse{Signatures: sigs})
}

func writeJSON(w http.ResponseWriter, thing any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(thing)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(&mintnet.MintError{Code: code, Detail: detail})
}
