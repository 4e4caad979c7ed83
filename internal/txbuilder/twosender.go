package txbuilder

import (
	"github.com/Fantasim/hdwallet/internal/config"
	"github.com/Fantasim/hdwallet/internal/domain"
	"github.com/Fantasim/hdwallet/internal/utxostore"
	"github.com/Fantasim/hdwallet/internal/walleterr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// TwoSenderSendParams describes a send drawn from two independent
// sender addresses into a single receiver output.
type TwoSenderSendParams struct {
	Sender0, Sender1         domain.Account
	SenderAddr0, SenderAddr1 *btcutil.AddressPubKeyHash
	Receiver                 *btcutil.AddressPubKeyHash
	ReceiverAddr             string
	Amount0, Amount1         uint64
	PaidBySender             bool
	FeeRate                  uint64
	NetParams                *chaincfg.Params
}

// SplitCeilFirst divides total between two parties, giving the first
// the odd unit when total doesn't split evenly — the same
// ceil-to-first-party convention the two-sender withdrawal uses both
// for its fee share and for dividing the caller's single amount into
// amount0/amount1.
func SplitCeilFirst(total uint64) (first, second uint64) {
	first = (total + 1) / 2
	second = total / 2
	return
}

// splitFee divides fee between the two senders using the same
// ceil-to-first-party convention as SplitCeilFirst.
func splitFee(fee uint64) (fee0, fee1 uint64) {
	return SplitCeilFirst(fee)
}

// BuildTwoSenderSend runs the fee-convergence loop for a send funded by
// two independent sender pools paying into one receiver output.
func BuildTwoSenderSend(pool *utxostore.Manager, p TwoSenderSendParams) (*TwoSenderSendResult, error) {
	drawer0 := newPlainDrawer(pool.TakeAllPlain(p.SenderAddr0.EncodeAddress()))
	drawer1 := newPlainDrawer(pool.TakeAllPlain(p.SenderAddr1.EncodeAddress()))
	built := false
	defer func() {
		pool.ReturnPlain(p.SenderAddr0.EncodeAddress(), drawer0.release(built))
		pool.ReturnPlain(p.SenderAddr1.EncodeAddress(), drawer1.release(built))
	}()

	script0, err := addrScript(p.SenderAddr0)
	if err != nil {
		return nil, err
	}
	script1, err := addrScript(p.SenderAddr1)
	if err != nil {
		return nil, err
	}
	receiverScript, err := addrScript(p.Receiver)
	if err != nil {
		return nil, err
	}

	var fee uint64
	for {
		fee0, fee1 := splitFee(fee)
		required0, required1 := p.Amount0, p.Amount1
		if p.PaidBySender {
			required0 += fee0
			required1 += fee1
		}

		ok0 := drawer0.drawUntil(required0)
		ok1 := drawer1.drawUntil(required1)
		if !ok0 || !ok1 {
			shortfall := &walleterr.ShortfallPlainPair{}
			if !ok0 {
				shortfall.Required0 = required0 - drawer0.sum
			}
			if !ok1 {
				shortfall.Required1 = required1 - drawer1.sum
			}
			return nil, shortfall
		}

		tx := newUnsignedTx()
		for _, u := range drawer0.taken {
			addInput(tx, u)
		}
		for _, u := range drawer1.taken {
			addInput(tx, u)
		}

		var receiverAmount uint64
		if p.PaidBySender {
			receiverAmount = p.Amount0 + p.Amount1
		} else {
			receiverAmount = p.Amount0 + p.Amount1 - fee0 - fee1
		}
		addOutput(tx, receiverScript, receiverAmount)

		change0 := drawer0.sum - required0
		change1 := drawer1.sum - required1
		if change0 > config.DustThreshold {
			addOutput(tx, script0, change0)
		}
		if change1 > config.DustThreshold {
			addOutput(tx, script1, change1)
		}

		newFee, err := feeForTx(tx, p.FeeRate)
		if err != nil {
			return nil, err
		}
		if newFee == fee {
			built = true
			nf0, nf1 := splitFee(fee)
			return &TwoSenderSendResult{
				Tx:           tx,
				Fee:          fee,
				Fee0:         nf0,
				Fee1:         nf1,
				Amount0:      p.Amount0,
				Amount1:      p.Amount1,
				PaidBySender: p.PaidBySender,
				Inputs0:      signerInputs(drawer0.taken, p.SenderAddr0, p.Sender0),
				Inputs1:      signerInputs(drawer1.taken, p.SenderAddr1, p.Sender1),
			}, nil
		}
		fee = newFee
	}
}
