// Package txbuilder is the Fee-Converging Builder: it assembles one of
// four transaction shapes (plain send, two-sender send, rune transfer,
// combined BTC+rune transfer) by repeatedly selecting inputs, building
// outputs, mock-signing, and recomputing the fee until it stabilizes.
package txbuilder

import (
	"github.com/Fantasim/hdwallet/internal/domain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"lukechampine.com/uint128"
)

// SignerInput is one transaction input paired with the address whose
// key must sign it, so the signing coordinator doesn't need to
// re-derive which party owns which input.
type SignerInput struct {
	Utxo    domain.Utxo
	Address *btcutil.AddressPubKeyHash
	Account domain.Account
}

// PlainSendResult is the finished (but unsigned) output of BuildPlainSend.
type PlainSendResult struct {
	Tx          *wire.MsgTx
	Inputs      []SignerInput
	Fee         uint64
	SenderAddr  string
	ReceiverAddr string
}

// TwoSenderSendResult is the finished (but unsigned) output of BuildTwoSenderSend.
type TwoSenderSendResult struct {
	Tx           *wire.MsgTx
	Inputs0      []SignerInput
	Inputs1      []SignerInput
	Fee          uint64
	Fee0         uint64
	Fee1         uint64
	Amount0      uint64
	Amount1      uint64
	PaidBySender bool
}

// RuneTransferResult is the finished (but unsigned) output of BuildRuneTransfer.
type RuneTransferResult struct {
	Tx              *wire.MsgTx
	RunicInputs     []SignerInput
	FeeInputs       []SignerInput
	Fee             uint64
	RuneID          domain.RuneId
	Amount          uint128.Uint128
	PaidBySender    bool
	SenderAddr      string
	ReceiverAddr    string
	NeedsChangeRune bool
}

// CombinedResult is the finished (but unsigned) output of BuildCombined.
type CombinedResult struct {
	Tx              *wire.MsgTx
	RunicInputs     []SignerInput
	BtcInputs       []SignerInput
	FeeInputs       []SignerInput
	Fee             uint64
	RuneID          domain.RuneId
	RuneAmount      uint128.Uint128
	BtcAmount       uint64
	PaidBySender    bool
	SenderAddr      string
	ReceiverAddr    string
	NeedsChangeRune bool
}
