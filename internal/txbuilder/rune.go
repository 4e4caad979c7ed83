package txbuilder

import (
	"sort"

	"github.com/Fantasim/hdwallet/internal/config"
	"github.com/Fantasim/hdwallet/internal/domain"
	"github.com/Fantasim/hdwallet/internal/runestone"
	"github.com/Fantasim/hdwallet/internal/utxostore"
	"github.com/Fantasim/hdwallet/internal/walleterr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"lukechampine.com/uint128"
)

// runicDrawer incrementally selects runic UTXOs of a single rune from a
// fixed snapshot, largest-balance-first, stopping as soon as the
// cumulative balance reaches (not necessarily exceeds) the target —
// unlike plainDrawer, an exact match is sufficient and ends the draw.
type runicDrawer struct {
	available []domain.RunicUtxo
	taken     []domain.RunicUtxo
	sum       uint128.Uint128
}

func newRunicDrawer(utxos []domain.RunicUtxo) *runicDrawer {
	sorted := append([]domain.RunicUtxo(nil), utxos...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Balance.Cmp(sorted[j].Balance) > 0 })
	return &runicDrawer{available: sorted}
}

func (d *runicDrawer) drawUntilAtLeast(target uint128.Uint128) bool {
	for d.sum.Cmp(target) < 0 {
		if len(d.available) == 0 {
			return false
		}
		next := d.available[0]
		d.available = d.available[1:]
		d.taken = append(d.taken, next)
		d.sum = d.sum.Add(next.Balance)
	}
	return true
}

func (d *runicDrawer) unused() []domain.RunicUtxo { return d.available }

// release returns the UTXOs to hand back to the pool: the undrawn ones
// after a successful build, the whole snapshot after a failed one.
func (d *runicDrawer) release(built bool) []domain.RunicUtxo {
	if built {
		return d.unused()
	}
	return append(append([]domain.RunicUtxo(nil), d.taken...), d.available...)
}

func (d *runicDrawer) btcCarried() uint64 {
	var total uint64
	for _, u := range d.taken {
		total += u.Utxo.Value
	}
	return total
}

// RuneTransferParams describes a pure Rune transfer, optionally with
// the BTC fee paid by the receiver instead of the sender.
type RuneTransferParams struct {
	Sender, Receiver         domain.Account
	SenderAddr, ReceiverAddr *btcutil.AddressPubKeyHash
	ReceiverAddrStr          string
	RuneID                   domain.RuneId
	Amount                   uint128.Uint128
	PaidBySender             bool
	FeeRate                  uint64
	Postage                  uint64
	NetParams                *chaincfg.Params
}

// BuildRuneTransfer runs the fee-convergence loop for a single-rune
// transfer, drawing runic UTXOs from the sender and plain BTC UTXOs
// from whichever party pays fees and postage.
func BuildRuneTransfer(pool *utxostore.Manager, p RuneTransferParams) (*RuneTransferResult, error) {
	senderAddrStr := p.SenderAddr.EncodeAddress()
	runicDrawer := newRunicDrawer(pool.TakeAllRunic(senderAddrStr, p.RuneID))
	built := false
	defer func() { pool.ReturnRunic(senderAddrStr, p.RuneID, runicDrawer.release(built)) }()

	if !runicDrawer.drawUntilAtLeast(p.Amount) {
		return nil, &walleterr.ShortfallRune{Required: p.Amount.String()}
	}
	changeNeeded := runicDrawer.sum.Cmp(p.Amount) > 0 || len(runicDrawer.taken) > 1

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

	feePayerAddr := p.SenderAddr
	if !p.PaidBySender {
		feePayerAddr = p.ReceiverAddr
	}
	feePayerAddrStr := feePayerAddr.EncodeAddress()
	feeAccount := p.Sender
	if !p.PaidBySender {
		feeAccount = p.Receiver
	}
	feeDrawer := newPlainDrawer(pool.TakeAllPlain(feePayerAddrStr))
	defer func() { pool.ReturnPlain(feePayerAddrStr, feeDrawer.release(built)) }()

	senderScript, err := addrScript(p.SenderAddr)
	if err != nil {
		return nil, err
	}
	receiverScript, err := addrScript(p.ReceiverAddr)
	if err != nil {
		return nil, err
	}
	feePayerScript, err := addrScript(feePayerAddr)
	if err != nil {
		return nil, err
	}

	var fee uint64
	for {
		required := fee + extraBTC
		if !feeDrawer.drawUntil(required) {
			return nil, &walleterr.ShortfallPlain{Address: feePayerAddrStr, Required: required - feeDrawer.sum}
		}

		tx := newUnsignedTx()
		for _, u := range runicDrawer.taken {
			addInput(tx, u.Utxo)
		}
		for _, u := range feeDrawer.taken {
			addInput(tx, u)
		}

		if changeNeeded {
			edictScript, err := runestone.EncipherTransfer(p.RuneID, p.Amount, 2)
			if err != nil {
				return nil, err
			}
			addOutput(tx, edictScript, 0)
			addOutput(tx, senderScript, postage)
		}
		addOutput(tx, receiverScript, postage)

		totalIn := btcInRunic + feeDrawer.sum
		change := totalIn - targetPostage - fee
		if change > config.DustThreshold {
			addOutput(tx, feePayerScript, change)
		}

		newFee, err := feeForTx(tx, p.FeeRate)
		if err != nil {
			return nil, err
		}
		if newFee == fee {
			built = true
			return &RuneTransferResult{
				Tx:              tx,
				Fee:             fee,
				RuneID:          p.RuneID,
				Amount:          p.Amount,
				PaidBySender:    p.PaidBySender,
				SenderAddr:      senderAddrStr,
				ReceiverAddr:    p.ReceiverAddrStr,
				NeedsChangeRune: changeNeeded,
				RunicInputs:     signerInputs(utxoValuesOf(runicDrawer.taken), p.SenderAddr, p.Sender),
				FeeInputs:       signerInputs(feeDrawer.taken, feePayerAddr, feeAccount),
			}, nil
		}
		fee = newFee
	}
}

func utxoValuesOf(runic []domain.RunicUtxo) []domain.Utxo {
	out := make([]domain.Utxo, len(runic))
	for i, u := range runic {
		out[i] = u.Utxo
	}
	return out
}
