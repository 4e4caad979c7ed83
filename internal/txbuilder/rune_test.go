package txbuilder

import (
	"testing"

	"github.com/Fantasim/hdwallet/internal/domain"
	"github.com/Fantasim/hdwallet/internal/utxostore"
	"github.com/btcsuite/btcd/chaincfg"
	"lukechampine.com/uint128"
)

func TestBuildRuneTransfer_ExactMatchOmitsRunestone(t *testing.T) {
	pool := utxostore.NewManager()
	sender := testAddr(t, 1)
	receiver := testAddr(t, 2)
	runeID := domain.RuneId{Block: 840_000, Tx: 1}
	amount := uint128.From64(1_000)

	pool.RecordRunic(sender.EncodeAddress(), runeID, []domain.RunicUtxo{
		{Utxo: domain.Utxo{OutPoint: op(1, 0), Value: 10_000}, RuneID: runeID, Balance: amount},
	})
	pool.RecordPlain(sender.EncodeAddress(), []domain.Utxo{{OutPoint: op(2, 0), Value: 20_000}})

	result, err := BuildRuneTransfer(pool, RuneTransferParams{
		SenderAddr:      sender,
		ReceiverAddr:    receiver,
		ReceiverAddrStr: receiver.EncodeAddress(),
		RuneID:          runeID,
		Amount:          amount,
		PaidBySender:    true,
		FeeRate:         10,
		NetParams:       &chaincfg.RegressionNetParams,
	})
	if err != nil {
		t.Fatalf("BuildRuneTransfer: %v", err)
	}
	if result.NeedsChangeRune {
		t.Fatalf("exact match should not need rune change")
	}
	// first output must be the receiver postage, not an OP_RETURN
	if result.Tx.TxOut[0].PkScript[0] == 0x6a {
		t.Fatalf("expected no runestone output for exact-match transfer")
	}
}

func TestBuildRuneTransfer_OverpaymentIncludesRunestone(t *testing.T) {
	pool := utxostore.NewManager()
	sender := testAddr(t, 1)
	receiver := testAddr(t, 2)
	runeID := domain.RuneId{Block: 840_000, Tx: 1}
	amount := uint128.From64(1_000)

	pool.RecordRunic(sender.EncodeAddress(), runeID, []domain.RunicUtxo{
		{Utxo: domain.Utxo{OutPoint: op(1, 0), Value: 10_000}, RuneID: runeID, Balance: uint128.From64(5_000)},
	})
	pool.RecordPlain(sender.EncodeAddress(), []domain.Utxo{{OutPoint: op(2, 0), Value: 20_000}})

	result, err := BuildRuneTransfer(pool, RuneTransferParams{
		SenderAddr:      sender,
		ReceiverAddr:    receiver,
		ReceiverAddrStr: receiver.EncodeAddress(),
		RuneID:          runeID,
		Amount:          amount,
		PaidBySender:    true,
		FeeRate:         10,
		NetParams:       &chaincfg.RegressionNetParams,
	})
	if err != nil {
		t.Fatalf("BuildRuneTransfer: %v", err)
	}
	if !result.NeedsChangeRune {
		t.Fatalf("overpayment should need rune change")
	}
	if result.Tx.TxOut[0].PkScript[0] != 0x6a {
		t.Fatalf("expected runestone OP_RETURN as first output")
	}
}

func TestBuildRuneTransfer_ShortfallWhenRunicPoolInsufficient(t *testing.T) {
	pool := utxostore.NewManager()
	sender := testAddr(t, 1)
	receiver := testAddr(t, 2)
	runeID := domain.RuneId{Block: 840_000, Tx: 1}

	pool.RecordRunic(sender.EncodeAddress(), runeID, []domain.RunicUtxo{
		{Utxo: domain.Utxo{OutPoint: op(1, 0), Value: 10_000}, RuneID: runeID, Balance: uint128.From64(500)},
	})

	_, err := BuildRuneTransfer(pool, RuneTransferParams{
		SenderAddr:      sender,
		ReceiverAddr:    receiver,
		ReceiverAddrStr: receiver.EncodeAddress(),
		RuneID:          runeID,
		Amount:          uint128.From64(1_000),
		PaidBySender:    true,
		FeeRate:         10,
		NetParams:       &chaincfg.RegressionNetParams,
	})
	if err == nil {
		t.Fatalf("expected rune shortfall error")
	}
	if got := pool.BalanceRune(sender.EncodeAddress(), runeID); got.Cmp(uint128.From64(500)) != 0 {
		t.Fatalf("expected unused runic utxo returned, got balance %s", got.String())
	}
}
