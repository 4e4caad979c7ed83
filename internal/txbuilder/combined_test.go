package txbuilder

import (
	"testing"

	"github.com/Fantasim/hdwallet/internal/domain"
	"github.com/Fantasim/hdwallet/internal/utxostore"
	"github.com/btcsuite/btcd/chaincfg"
	"lukechampine.com/uint128"
)

func TestBuildCombined_PaidBySenderSingleChangeOutput(t *testing.T) {
	pool := utxostore.NewManager()
	sender := testAddr(t, 1)
	receiver := testAddr(t, 2)
	runeID := domain.RuneId{Block: 840_000, Tx: 5}
	amount := uint128.From64(2_000)

	pool.RecordRunic(sender.EncodeAddress(), runeID, []domain.RunicUtxo{
		{Utxo: domain.Utxo{OutPoint: op(1, 0), Value: 10_000}, RuneID: runeID, Balance: amount},
	})
	pool.RecordPlain(sender.EncodeAddress(), []domain.Utxo{{OutPoint: op(2, 0), Value: 100_000}})

	result, err := BuildCombined(pool, CombinedParams{
		SenderAddr:      sender,
		ReceiverAddr:    receiver,
		ReceiverAddrStr: receiver.EncodeAddress(),
		RuneID:          runeID,
		RuneAmount:      amount,
		BtcAmount:       30_000,
		PaidBySender:    true,
		FeeRate:         10,
		NetParams:       &chaincfg.RegressionNetParams,
	})
	if err != nil {
		t.Fatalf("BuildCombined: %v", err)
	}
	if result.NeedsChangeRune {
		t.Fatalf("exact rune match should not need rune change")
	}
	if len(result.FeeInputs) != 0 {
		t.Fatalf("paid-by-sender combined should not draw a separate fee pool")
	}
	if len(result.BtcInputs) == 0 {
		t.Fatalf("expected sender plain inputs for btc leg")
	}

	var totalOut int64
	for _, o := range result.Tx.TxOut {
		totalOut += o.Value
	}
	var totalIn uint64
	for _, u := range result.RunicInputs {
		totalIn += u.Utxo.Value
	}
	for _, u := range result.BtcInputs {
		totalIn += u.Utxo.Value
	}
	if totalIn != uint64(totalOut)+result.Fee {
		t.Fatalf("value not conserved: in=%d out=%d fee=%d", totalIn, totalOut, result.Fee)
	}
}

func TestBuildCombined_ReceiverPaysFeeSeparatePools(t *testing.T) {
	pool := utxostore.NewManager()
	sender := testAddr(t, 1)
	receiver := testAddr(t, 2)
	runeID := domain.RuneId{Block: 840_000, Tx: 5}

	pool.RecordRunic(sender.EncodeAddress(), runeID, []domain.RunicUtxo{
		{Utxo: domain.Utxo{OutPoint: op(1, 0), Value: 5_000}, RuneID: runeID, Balance: uint128.From64(3_000)},
	})
	pool.RecordPlain(sender.EncodeAddress(), []domain.Utxo{{OutPoint: op(2, 0), Value: 50_000}})
	pool.RecordPlain(receiver.EncodeAddress(), []domain.Utxo{{OutPoint: op(3, 0), Value: 50_000}})

	result, err := BuildCombined(pool, CombinedParams{
		SenderAddr:      sender,
		ReceiverAddr:    receiver,
		ReceiverAddrStr: receiver.EncodeAddress(),
		RuneID:          runeID,
		RuneAmount:      uint128.From64(1_000),
		BtcAmount:       20_000,
		PaidBySender:    false,
		FeeRate:         10,
		NetParams:       &chaincfg.RegressionNetParams,
	})
	if err != nil {
		t.Fatalf("BuildCombined: %v", err)
	}
	if !result.NeedsChangeRune {
		t.Fatalf("overpayment should need rune change")
	}
	if len(result.FeeInputs) == 0 {
		t.Fatalf("receiver-pays combined should draw from receiver's plain pool")
	}
	if len(result.BtcInputs) == 0 {
		t.Fatalf("expected sender plain inputs for btc leg")
	}
}

func TestBuildCombined_ShortfallReturnsRunicAndPlainUtxos(t *testing.T) {
	pool := utxostore.NewManager()
	sender := testAddr(t, 1)
	receiver := testAddr(t, 2)
	runeID := domain.RuneId{Block: 840_000, Tx: 5}

	pool.RecordRunic(sender.EncodeAddress(), runeID, []domain.RunicUtxo{
		{Utxo: domain.Utxo{OutPoint: op(1, 0), Value: 5_000}, RuneID: runeID, Balance: uint128.From64(100)},
	})
	pool.RecordPlain(sender.EncodeAddress(), []domain.Utxo{{OutPoint: op(2, 0), Value: 50_000}})

	_, err := BuildCombined(pool, CombinedParams{
		SenderAddr:      sender,
		ReceiverAddr:    receiver,
		ReceiverAddrStr: receiver.EncodeAddress(),
		RuneID:          runeID,
		RuneAmount:      uint128.From64(1_000),
		BtcAmount:       20_000,
		PaidBySender:    true,
		FeeRate:         10,
		NetParams:       &chaincfg.RegressionNetParams,
	})
	if err == nil {
		t.Fatalf("expected rune shortfall")
	}
	if got := pool.BalanceRune(sender.EncodeAddress(), runeID); got.Cmp(uint128.From64(100)) != 0 {
		t.Fatalf("runic utxo not returned, balance=%s", got.String())
	}
	if got := pool.BalancePlain(sender.EncodeAddress()); got != 50_000 {
		t.Fatalf("plain pool should be untouched on early rune shortfall, got %d", got)
	}
}
