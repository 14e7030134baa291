// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package db

import (
	"errors"
	"fmt"
	"time"

	"decred.org/wadwallet/cashu"
	"decred.org/wadwallet/cashu/encode"
	"github.com/google/uuid"
)

type dbBytes = encode.BuildyBytes

var intCoder = encode.IntCoder

// Node is a registered mint node.
type Node struct {
	ID         uint32
	URL        string
	Registered time.Time
}

// Encode encodes the Node. The id is the database key and is not encoded.
func (n *Node) Encode() []byte {
	return dbBytes{0}.
		AddData([]byte(n.URL)).
		AddData(encode.UTimeBytes(n.Registered))
}

// DecodeNode decodes the versioned blob into a *Node.
func DecodeNode(id uint32, b []byte) (*Node, error) {
	ver, pushes, err := encode.DecodeBlob(b)
	if err != nil {
		return nil, err
	}
	switch ver {
	case 0:
		return decodeNode_v0(id, pushes)
	}
	return nil, fmt.Errorf("unknown Node version %d", ver)
}

func decodeNode_v0(id uint32, pushes [][]byte) (*Node, error) {
	if len(pushes) != 2 {
		return nil, fmt.Errorf("decodeNode_v0: expected 2 pushes, got %d", len(pushes))
	}
	if len(pushes[1]) != 8 {
		return nil, fmt.Errorf("decodeNode_v0: bad stamp length %d", len(pushes[1]))
	}
	return &Node{
		ID:         id,
		URL:        string(pushes[0]),
		Registered: encode.DecodeUTime(pushes[1]),
	}, nil
}

// Keyset is a mint keyset the wallet has seen, along with the next unused
// deterministic derivation counter.
type Keyset struct {
	ID          string
	NodeID      uint32
	Unit        cashu.Unit
	Active      bool
	InputFeePPK uint64
	Counter     uint32
}

// Encode encodes the Keyset. The id is the database key and is not encoded.
func (k *Keyset) Encode() []byte {
	active := encode.ByteFalse
	if k.Active {
		active = encode.ByteTrue
	}
	return dbBytes{0}.
		AddData(encode.Uint32Bytes(k.NodeID)).
		AddData([]byte(k.Unit)).
		AddData(active).
		AddData(encode.Uint64Bytes(k.InputFeePPK)).
		AddData(encode.Uint32Bytes(k.Counter))
}

// DecodeKeyset decodes the versioned blob into a *Keyset.
func DecodeKeyset(id string, b []byte) (*Keyset, error) {
	ver, pushes, err := encode.DecodeBlob(b, 5)
	if err != nil {
		return nil, err
	}
	switch ver {
	case 0:
		return decodeKeyset_v0(id, pushes)
	}
	return nil, fmt.Errorf("unknown Keyset version %d", ver)
}

func decodeKeyset_v0(id string, pushes [][]byte) (*Keyset, error) {
	if len(pushes) != 5 {
		return nil, fmt.Errorf("decodeKeyset_v0: expected 5 pushes, got %d", len(pushes))
	}
	nodeB, unitB, activeB, feeB, counterB := pushes[0], pushes[1], pushes[2], pushes[3], pushes[4]
	if len(nodeB) != 4 || len(activeB) != 1 || len(feeB) != 8 || len(counterB) != 4 {
		return nil, errors.New("decodeKeyset_v0: malformed keyset")
	}
	return &Keyset{
		ID:          id,
		NodeID:      intCoder.Uint32(nodeB),
		Unit:        cashu.ParseUnit(string(unitB)),
		Active:      activeB[0] == 1,
		InputFeePPK: intCoder.Uint64(feeB),
		Counter:     intCoder.Uint32(counterB),
	}, nil
}

// ProofState is the spend state of a stored proof.
type ProofState uint8

const (
	ProofUnspent ProofState = iota
	ProofSpent
)

// String satisfies the Stringer interface.
func (s ProofState) String() string {
	switch s {
	case ProofUnspent:
		return "unspent"
	case ProofSpent:
		return "spent"
	}
	return "unknown"
}

// Proof is a proof held by the wallet. Y is the hex-encoded hash_to_curve of
// the secret and identifies the proof in the ledger.
type Proof struct {
	cashu.Proof
	Y      string
	NodeID uint32
	Unit   cashu.Unit
	State  ProofState
	Stamp  time.Time
}

// Encode encodes the Proof. Y is the database key and is not encoded.
func (p *Proof) Encode() []byte {
	return dbBytes{0}.
		AddData(encode.Uint64Bytes(p.Amount)).
		AddData([]byte(p.ID)).
		AddData([]byte(p.Secret)).
		AddData(p.C).
		AddData(encode.Uint32Bytes(p.NodeID)).
		AddData([]byte(p.Unit)).
		AddData([]byte{byte(p.State)}).
		AddData(encode.UTimeBytes(p.Stamp))
}

// DecodeProof decodes the versioned blob into a *Proof.
func DecodeProof(y string, b []byte) (*Proof, error) {
	ver, pushes, err := encode.DecodeBlob(b, 8)
	if err != nil {
		return nil, err
	}
	switch ver {
	case 0:
		return decodeProof_v0(y, pushes)
	}
	return nil, fmt.Errorf("unknown Proof version %d", ver)
}

func decodeProof_v0(y string, pushes [][]byte) (*Proof, error) {
	if len(pushes) != 8 {
		return nil, fmt.Errorf("decodeProof_v0: expected 8 pushes, got %d", len(pushes))
	}
	amtB, idB, secretB, cB, nodeB, unitB, stateB, stampB := pushes[0], pushes[1], pushes[2],
		pushes[3], pushes[4], pushes[5], pushes[6], pushes[7]
	if len(amtB) != 8 || len(nodeB) != 4 || len(stateB) != 1 || len(stampB) != 8 {
		return nil, errors.New("decodeProof_v0: malformed proof")
	}
	return &Proof{
		Proof: cashu.Proof{
			Amount: intCoder.Uint64(amtB),
			ID:     string(idB),
			Secret: string(secretB),
			C:      encode.CopySlice(cB),
		},
		Y:      y,
		NodeID: intCoder.Uint32(nodeB),
		Unit:   cashu.ParseUnit(string(unitB)),
		State:  ProofState(stateB[0]),
		Stamp:  encode.DecodeUTime(stampB),
	}, nil
}

// WadDirection says whether a wad was received or created by the wallet.
type WadDirection uint8

const (
	WadInbound WadDirection = iota
	WadOutbound
)

// String satisfies the Stringer interface.
func (d WadDirection) String() string {
	switch d {
	case WadInbound:
		return "inbound"
	case WadOutbound:
		return "outbound"
	}
	return "unknown"
}

// WadRecord is the ledger's record of a received or created wad. For an
// inbound wad, ProofIDs are the fresh proofs credited to the wallet. For an
// outbound wad, they are the proofs handed out.
type WadRecord struct {
	ID        uuid.UUID
	Direction WadDirection
	NodeID    uint32
	NodeURL   string
	Unit      cashu.Unit
	Memo      *string
	Amount    uint64
	ProofIDs  []string
	Stamp     time.Time
}

// Encode encodes the WadRecord. The id is the database key and is not encoded.
func (w *WadRecord) Encode() []byte {
	var ids dbBytes
	for _, id := range w.ProofIDs {
		ids = ids.AddData([]byte(id))
	}
	hasMemo, memo := encode.ByteFalse, []byte(nil)
	if w.Memo != nil {
		hasMemo, memo = encode.ByteTrue, []byte(*w.Memo)
	}
	return dbBytes{0}.
		AddData([]byte{byte(w.Direction)}).
		AddData(encode.Uint32Bytes(w.NodeID)).
		AddData([]byte(w.NodeURL)).
		AddData([]byte(w.Unit)).
		AddData(hasMemo).
		AddData(memo).
		AddData(encode.Uint64Bytes(w.Amount)).
		AddData(ids).
		AddData(encode.UTimeBytes(w.Stamp))
}

// DecodeWadRecord decodes the versioned blob into a *WadRecord.
func DecodeWadRecord(id uuid.UUID, b []byte) (*WadRecord, error) {
	ver, pushes, err := encode.DecodeBlob(b, 9)
	if err != nil {
		return nil, err
	}
	switch ver {
	case 0:
		return decodeWadRecord_v0(id, pushes)
	}
	return nil, fmt.Errorf("unknown WadRecord version %d", ver)
}

func decodeWadRecord_v0(id uuid.UUID, pushes [][]byte) (*WadRecord, error) {
	if len(pushes) != 9 {
		return nil, fmt.Errorf("decodeWadRecord_v0: expected 9 pushes, got %d", len(pushes))
	}
	dirB, nodeB, urlB, unitB, hasMemoB, memoB, amtB, idsB, stampB := pushes[0], pushes[1],
		pushes[2], pushes[3], pushes[4], pushes[5], pushes[6], pushes[7], pushes[8]
	if len(dirB) != 1 || len(nodeB) != 4 || len(hasMemoB) != 1 || len(amtB) != 8 || len(stampB) != 8 {
		return nil, errors.New("decodeWadRecord_v0: malformed record")
	}
	idPushes, err := encode.ExtractPushes(idsB)
	if err != nil {
		return nil, fmt.Errorf("decodeWadRecord_v0: proof ids: %w", err)
	}
	proofIDs := make([]string, 0, len(idPushes))
	for _, b := range idPushes {
		proofIDs = append(proofIDs, string(b))
	}
	var memo *string
	if hasMemoB[0] == 1 {
		s := string(memoB)
		memo = &s
	}
	return &WadRecord{
		ID:        id,
		Direction: WadDirection(dirB[0]),
		NodeID:    intCoder.Uint32(nodeB),
		NodeURL:   string(urlB),
		Unit:      cashu.ParseUnit(string(unitB)),
		Memo:      memo,
		Amount:    intCoder.Uint64(amtB),
		ProofIDs:  proofIDs,
		Stamp:     encode.DecodeUTime(stampB),
	}, nil
}

// Balance is the unspent total held at a node in a unit.
type Balance struct {
	NodeID uint32
	URL    string
	Unit   cashu.Unit
	Amount uint64
}
