package txbuilder

import (
	"fmt"
	"sort"

	"github.com/Fantasim/hdwallet/internal/config"
	"github.com/Fantasim/hdwallet/internal/domain"
	"github.com/Fantasim/hdwallet/internal/utxostore"
	"github.com/Fantasim/hdwallet/internal/walleterr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// plainDrawer incrementally selects plain UTXOs from a fixed snapshot,
// largest-first, growing the selection across fee-convergence rounds
// instead of re-drawing from scratch each time.
type plainDrawer struct {
	available []domain.Utxo
	taken     []domain.Utxo
	sum       uint64
}

func newPlainDrawer(utxos []domain.Utxo) *plainDrawer {
	sorted := append([]domain.Utxo(nil), utxos...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Value > sorted[j].Value })
	return &plainDrawer{available: sorted}
}

// drawUntil grows the selection so its sum is strictly greater than
// target, matching the source semantics of "keep adding UTXOs while
// the running total does not exceed what's needed". Returns false if
// the snapshot is exhausted before reaching target.
func (d *plainDrawer) drawUntil(target uint64) bool {
	for d.sum <= target {
		if len(d.available) == 0 {
			return false
		}
		next := d.available[0]
		d.available = d.available[1:]
		d.taken = append(d.taken, next)
		d.sum += next.Value
	}
	return true
}

func (d *plainDrawer) unused() []domain.Utxo { return d.available }

// release returns the UTXOs to hand back to the pool: the undrawn ones
// after a successful build, the whole snapshot after a failed one.
func (d *plainDrawer) release(built bool) []domain.Utxo {
	if built {
		return d.unused()
	}
	return append(append([]domain.Utxo(nil), d.taken...), d.available...)
}

// PlainSendParams describes a single-sender, single-receiver BTC send.
type PlainSendParams struct {
	Sender       domain.Account
	SenderAddr   *btcutil.AddressPubKeyHash
	Receiver     *btcutil.AddressPubKeyHash
	ReceiverAddr string
	AmountSats   uint64
	PaidBySender bool
	FeeRate      uint64
	NetParams    *chaincfg.Params
}

// BuildPlainSend runs the fee-convergence loop for a plain BTC send:
// draw UTXOs, build outputs, mock-sign, recompute fee, repeat until the
// fee stabilizes. Unused UTXOs are returned to pool before returning;
// when the build fails, every drawn UTXO is returned as well.
func BuildPlainSend(pool *utxostore.Manager, p PlainSendParams) (*PlainSendResult, error) {
	drawer := newPlainDrawer(pool.TakeAllPlain(p.SenderAddr.EncodeAddress()))
	built := false
	defer func() { pool.ReturnPlain(p.SenderAddr.EncodeAddress(), drawer.release(built)) }()

	senderScript, err := addrScript(p.SenderAddr)
	if err != nil {
		return nil, err
	}
	receiverScript, err := addrScript(p.Receiver)
	if err != nil {
		return nil, err
	}

	var fee uint64
	for {
		required := p.AmountSats
		if p.PaidBySender {
			required += fee
		}
		if !drawer.drawUntil(required) {
			return nil, &walleterr.ShortfallPlain{Address: p.SenderAddr.EncodeAddress(), Required: required - drawer.sum}
		}

		tx := newUnsignedTx()
		for _, u := range drawer.taken {
			addInput(tx, u)
		}

		receiverAmount := p.AmountSats
		if !p.PaidBySender {
			if receiverAmount < fee {
				return nil, fmt.Errorf("%w: fee exceeds send amount", walleterr.ErrInsufficientFunds)
			}
			receiverAmount -= fee
		}
		addOutput(tx, receiverScript, receiverAmount)

		var changeAmount uint64
		if p.PaidBySender {
			changeAmount = drawer.sum - p.AmountSats - fee
		} else {
			changeAmount = drawer.sum - p.AmountSats
		}
		if changeAmount > config.DustThreshold {
			addOutput(tx, senderScript, changeAmount)
		}

		newFee, err := feeForTx(tx, p.FeeRate)
		if err != nil {
			return nil, err
		}
		if newFee == fee {
			built = true
			return &PlainSendResult{
				Tx:           tx,
				Fee:          fee,
				SenderAddr:   p.SenderAddr.EncodeAddress(),
				ReceiverAddr: p.ReceiverAddr,
				Inputs:       signerInputs(drawer.taken, p.SenderAddr, p.Sender),
			}, nil
		}
		fee = newFee
	}
}

func addrScript(addr *btcutil.AddressPubKeyHash) ([]byte, error) {
	return txscript.PayToAddrScript(addr)
}

func addInput(tx *wire.MsgTx, u domain.Utxo) {
	hash := chainhash.Hash(u.OutPoint.TxID)
	op := wire.NewOutPoint(&hash, u.OutPoint.Vout)
	tx.AddTxIn(wire.NewTxIn(op, nil, nil))
}

func addOutput(tx *wire.MsgTx, script []byte, amount uint64) {
	tx.AddTxOut(wire.NewTxOut(int64(amount), script))
}

func signerInputs(utxos []domain.Utxo, addr *btcutil.AddressPubKeyHash, account domain.Account) []SignerInput {
	out := make([]SignerInput, len(utxos))
	for i, u := range utxos {
		out[i] = SignerInput{Utxo: u, Address: addr, Account: account}
	}
	return out
}
