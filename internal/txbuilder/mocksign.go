package txbuilder

import (
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// dummySignature and dummyPubKey are canonical-size stand-ins for a
// real DER signature (72 bytes: the largest low-S DER encoding plus
// the sighash-type byte) and a compressed public key (33 bytes). Mock
// signing a clone of the in-progress transaction with these fixed
// sizes gives a vsize estimate that never changes once the input/output
// set stops changing, which is what lets the fee-convergence loop
// terminate.
var (
	dummySignature = make([]byte, 72)
	dummyPubKey    = make([]byte, 33)
)

// mockSign clones tx and fills every input's scriptSig with a
// canonical-size dummy push-script, returning the cloned tx's
// serialized size — legacy (non-segwit) transactions carry no witness
// discount, so this size doubles as the vsize used for fee math.
func mockSign(tx *wire.MsgTx) (int, error) {
	clone := tx.Copy()
	script, err := txscript.NewScriptBuilder().
		AddData(dummySignature).
		AddData(dummyPubKey).
		Script()
	if err != nil {
		return 0, err
	}
	for _, in := range clone.TxIn {
		in.SignatureScript = script
	}
	return clone.SerializeSize(), nil
}

// feeForTx mock-signs tx and multiplies the resulting vsize by
// feeRateSatPerVByte.
func feeForTx(tx *wire.MsgTx, feeRateSatPerVByte uint64) (uint64, error) {
	vsize, err := mockSign(tx)
	if err != nil {
		return 0, err
	}
	return uint64(vsize) * feeRateSatPerVByte, nil
}

func newUnsignedTx() *wire.MsgTx {
	tx := wire.NewMsgTx(2)
	tx.LockTime = 0
	return tx
}
