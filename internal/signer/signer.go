// Package signer is the Signing Coordinator: it turns an unsigned
// legacy P2PKH transaction assembled by internal/txbuilder into a
// broadcast-ready one, fetching each input's signature from the
// external ECDSA oracle rather than holding key material locally.
package signer

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/Fantasim/hdwallet/internal/addressing"
	"github.com/Fantasim/hdwallet/internal/config"
	"github.com/Fantasim/hdwallet/internal/oracle"
	"github.com/Fantasim/hdwallet/internal/txbuilder"
)

// Sign walks every input of tx, computes its legacy SIGHASH_ALL digest
// against the scriptPubKey of the address that funded it, asks the
// oracle for a DER signature over it using the input owner's
// derivation path, and assembles the scriptSig. inputs must be in the
// same order as tx.TxIn.
func Sign(ctx context.Context, oracleClient oracle.Signer, keyName string, rootPub *config.OraclePublicKey, netParams *chaincfg.Params, tx *wire.MsgTx, inputs []txbuilder.SignerInput) error {
	if len(tx.TxIn) != len(inputs) {
		return fmt.Errorf("signer: tx has %d inputs, got %d signer inputs", len(tx.TxIn), len(inputs))
	}

	for i, in := range inputs {
		prevScript, err := txscript.PayToAddrScript(in.Address)
		if err != nil {
			return fmt.Errorf("signer: prevScript for input %d: %w", i, err)
		}

		digest, err := txscript.CalcSignatureHash(prevScript, txscript.SigHashAll, tx, i)
		if err != nil {
			return fmt.Errorf("signer: compute sighash for input %d: %w", i, err)
		}

		path := in.Account.ToDerivationPath()
		derSig, err := oracleClient.Sign(ctx, digest, keyName, path)
		if err != nil {
			return fmt.Errorf("signer: oracle sign input %d: %w", i, err)
		}
		sig := append(append([]byte(nil), derSig...), byte(txscript.SigHashAll))

		pubKey, err := addressing.DeriveChildPublicKey(rootPub, netParams, path)
		if err != nil {
			return fmt.Errorf("signer: derive pubkey for input %d: %w", i, err)
		}

		scriptSig, err := txscript.NewScriptBuilder().
			AddData(sig).
			AddData(pubKey.SerializeCompressed()).
			Script()
		if err != nil {
			return fmt.Errorf("signer: build scriptSig for input %d: %w", i, err)
		}

		tx.TxIn[i].SignatureScript = scriptSig
		tx.TxIn[i].Witness = nil
	}

	return nil
}
