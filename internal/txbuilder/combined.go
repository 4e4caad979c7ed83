package txbuilder

import (
	"github.com/Fantasim/hdwallet/internal/config"
	"github.com/Fantasim/hdwallet/internal/domain"
	"github.com/Fantasim/hdwallet/internal/runestone"
	"github.com/Fantasim/hdwallet/internal/utxostore"
	"github.com/Fantasim/hdwallet/internal/walleterr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"lukechampine.com/uint128"
)

// CombinedParams describes a single transaction that both transfers a
// rune balance and pays a plain BTC amount to the same receiver.
type CombinedParams struct {
	Sender, Receiver         domain.Account
	SenderAddr, ReceiverAddr *btcutil.AddressPubKeyHash
	ReceiverAddrStr          string
	RuneID                   domain.RuneId
	RuneAmount               uint128.Uint128
	BtcAmount                uint64
	PaidBySender             bool
	FeeRate                  uint64
	Postage                  uint64
	NetParams                *chaincfg.Params
}

// BuildCombined runs the fee-convergence loop for a combined BTC+Rune
// transfer: one rune leg (sender's runic pool) and one plain-BTC leg
// (sender's plain pool for the payment amount, plus whichever party
// pays fees and postage).
func BuildCombined(pool *utxostore.Manager, p CombinedParams) (*CombinedResult, error) {
	senderAddrStr := p.SenderAddr.EncodeAddress()

	runicDrawer := newRunicDrawer(pool.TakeAllRunic(senderAddrStr, p.RuneID))
	built := false
	defer func() { pool.ReturnRunic(senderAddrStr, p.RuneID, runicDrawer.release(built)) }()
	if !runicDrawer.drawUntilAtLeast(p.RuneAmount) {
		return nil, &walleterr.ShortfallRune{Required: p.RuneAmount.String()}
	}
	changeNeeded := runicDrawer.sum.Cmp(p.RuneAmount) > 0 || len(runicDrawer.taken) > 1

	postage := p.Postage
	if postage == 0 {
		postage = config.DefaultRunePostage
	}
	targetPostage := postage
	if changeNeeded {
		targetPostage = 2 * postage
	}
	btcInRunic := runicDrawer.btcCarried()
	var extraBTC uint64
	if targetPostage > btcInRunic {
		extraBTC = targetPostage - btcInRunic
	}

	senderScript, err := addrScript(p.SenderAddr)
	if err != nil {
		return nil, err
	}
	receiverScript, err := addrScript(p.ReceiverAddr)
	if err != nil {
		return nil, err
	}

	senderPlainDrawer := newPlainDrawer(pool.TakeAllPlain(senderAddrStr))
	defer func() { pool.ReturnPlain(senderAddrStr, senderPlainDrawer.release(built)) }()

	var feePlainDrawer *plainDrawer
	var feeAddrStr string
	if !p.PaidBySender {
		feeAddrStr = p.ReceiverAddr.EncodeAddress()
		feePlainDrawer = newPlainDrawer(pool.TakeAllPlain(feeAddrStr))
		defer func() { pool.ReturnPlain(feeAddrStr, feePlainDrawer.release(built)) }()
	}

	var fee uint64
	for {
		var senderRequired, feeRequired uint64
		if p.PaidBySender {
			senderRequired = p.BtcAmount + fee + extraBTC
		} else {
			senderRequired = p.BtcAmount
			feeRequired = fee + extraBTC
		}

		if !senderPlainDrawer.drawUntil(senderRequired) {
			return nil, &walleterr.ShortfallPlain{Address: senderAddrStr, Required: senderRequired - senderPlainDrawer.sum}
		}
		if !p.PaidBySender {
			if !feePlainDrawer.drawUntil(feeRequired) {
				return nil, &walleterr.ShortfallPlain{Address: feeAddrStr, Required: feeRequired - feePlainDrawer.sum}
			}
		}

		tx := newUnsignedTx()
		for _, u := range runicDrawer.taken {
			addInput(tx, u.Utxo)
		}
		for _, u := range senderPlainDrawer.taken {
			addInput(tx, u)
		}
		if !p.PaidBySender {
			for _, u := range feePlainDrawer.taken {
				addInput(tx, u)
			}
		}

		if changeNeeded {
			edictScript, err := runestone.EncipherTransfer(p.RuneID, p.RuneAmount, 2)
			if err != nil {
				return nil, err
			}
			addOutput(tx, edictScript, 0)
			addOutput(tx, senderScript, postage)
		}
		addOutput(tx, receiverScript, postage)
		addOutput(tx, receiverScript, p.BtcAmount)

		if p.PaidBySender {
			senderChange := senderPlainDrawer.sum + btcInRunic - targetPostage - p.BtcAmount - fee
			if senderChange > config.DustThreshold {
				addOutput(tx, senderScript, senderChange)
			}
		} else {
			senderChange := senderPlainDrawer.sum - p.BtcAmount
			if senderChange > config.DustThreshold {
				addOutput(tx, senderScript, senderChange)
			}
			feeChange := feePlainDrawer.sum + btcInRunic - targetPostage - fee
			if feeChange > config.DustThreshold {
				addOutput(tx, receiverScript, feeChange)
			}
		}

		newFee, err := feeForTx(tx, p.FeeRate)
		if err != nil {
			return nil, err
		}
		if newFee == fee {
			built = true
			result := &CombinedResult{
				Tx:              tx,
				Fee:             fee,
				RuneID:          p.RuneID,
				RuneAmount:      p.RuneAmount,
				BtcAmount:       p.BtcAmount,
				PaidBySender:    p.PaidBySender,
				SenderAddr:      senderAddrStr,
				ReceiverAddr:    p.ReceiverAddrStr,
				NeedsChangeRune: changeNeeded,
				RunicInputs:     signerInputs(utxoValuesOf(runicDrawer.taken), p.SenderAddr, p.Sender),
				BtcInputs:       signerInputs(senderPlainDrawer.taken, p.SenderAddr, p.Sender),
			}
			if !p.PaidBySender {
				result.FeeInputs = signerInputs(feePlainDrawer.taken, p.ReceiverAddr, p.Receiver)
			}
			return result, nil
		}
		fee = newFee
	}
}
