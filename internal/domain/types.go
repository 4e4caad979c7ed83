// Package domain holds the plain data types shared by the wallet's
// internal packages: outpoints, UTXOs, rune identifiers, and the
// owner/subaccount addressing scheme.
package domain

import (
	"encoding/hex"
	"fmt"

	"lukechampine.com/uint128"
)

// OutPoint identifies a transaction output, matching the wire.OutPoint
// shape but kept dependency-free so non-btcsuite packages (the UTXO
// manager, the synchronizer) don't need to import txscript/wire.
type OutPoint struct {
	TxID [32]byte
	Vout uint32
}

func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", hex.EncodeToString(reverseCopy(o.TxID)), o.Vout)
}

func reverseCopy(b [32]byte) []byte {
	out := make([]byte, 32)
	for i := range b {
		out[i] = b[31-i]
	}
	return out
}

// Utxo is a plain bitcoin-value output held by an address's pool.
type Utxo struct {
	OutPoint      OutPoint
	Value         uint64
	Confirmations uint32
}

// RuneId identifies a rune by its etching transaction's block height and
// position within that block, following the ord convention.
type RuneId struct {
	Block uint64
	Tx    uint32
}

func (r RuneId) String() string {
	return fmt.Sprintf("%d:%d", r.Block, r.Tx)
}

// Less gives RuneId a total order so maps of rune balances can be
// iterated deterministically in logs and tests.
func (r RuneId) Less(o RuneId) bool {
	if r.Block != o.Block {
		return r.Block < o.Block
	}
	return r.Tx < o.Tx
}

// RunicUtxo is an output that carries both a small bitcoin-value
// postage and a rune balance.
type RunicUtxo struct {
	Utxo    Utxo
	RuneID  RuneId
	Balance uint128.Uint128
}

// Account identifies a deposit address owner: an opaque owner identity
// plus a 32-byte subaccount discriminator. Two accounts with the same
// owner and subaccount always derive the same address.
type Account struct {
	Owner      []byte
	Subaccount [32]byte
}

func (a Account) String() string {
	return fmt.Sprintf("%s:%s", hex.EncodeToString(a.Owner), hex.EncodeToString(a.Subaccount[:]))
}

// DerivationPath is the ordered list of byte-string path components fed
// to the child-key-derivation function. Unlike classic BIP-32 it is not
// a list of uint32 indices — components are arbitrary-length byte
// strings tied to caller identity, matched to concrete indices only at
// the derivation boundary.
type DerivationPath [][]byte

// ToDerivationPath builds the canonical two-component path for an
// account: the owner's raw identity bytes, then the subaccount.
func (a Account) ToDerivationPath() DerivationPath {
	sub := make([]byte, 32)
	copy(sub, a.Subaccount[:])
	return DerivationPath{append([]byte(nil), a.Owner...), sub}
}
