package orchestrator

import (
	"bytes"
	"context"
	"fmt"

	"github.com/btcsuite/btcd/wire"

	"github.com/Fantasim/hdwallet/internal/addressing"
	"github.com/Fantasim/hdwallet/internal/config"
	"github.com/Fantasim/hdwallet/internal/domain"
	"github.com/Fantasim/hdwallet/internal/signer"
	"github.com/Fantasim/hdwallet/internal/txbuilder"
	"github.com/Fantasim/hdwallet/internal/walleterr"
	"lukechampine.com/uint128"
)

// WithdrawalResult is the broadcast-confirmed outcome of any of the
// withdrawal operations below.
type WithdrawalResult struct {
	TxID string
	Fee  uint64
	Tx   *wire.MsgTx
}

func (o *Orchestrator) signAndBroadcast(ctx context.Context, root *config.OraclePublicKey, tx *wire.MsgTx, inputs []txbuilder.SignerInput, fee uint64) (*WithdrawalResult, error) {
	if err := signer.Sign(ctx, o.oracle, o.cfg.KeyName(), root, o.net, tx, inputs); err != nil {
		return nil, fmt.Errorf("sign withdrawal: %w", err)
	}

	var raw bytes.Buffer
	if err := tx.Serialize(&raw); err != nil {
		return nil, fmt.Errorf("serialize withdrawal: %w", err)
	}
	txid, err := o.chain.SubmitRawTransaction(ctx, raw.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", walleterr.ErrBroadcastFailed, err)
	}
	return &WithdrawalResult{TxID: txid, Fee: fee, Tx: tx}, nil
}

// WithdrawBitcoin sends amountSats of plain BTC from sender's deposit
// address to receiverAddr.
func (o *Orchestrator) WithdrawBitcoin(ctx context.Context, sender domain.Account, receiverAddr string, amountSats uint64, paidBySender bool) (*WithdrawalResult, error) {
	root, err := o.rootPublicKey(ctx)
	if err != nil {
		return nil, err
	}
	senderDerived, err := addressing.AddressForAccount(root, o.net, sender)
	if err != nil {
		return nil, err
	}
	receiver, err := addressing.ParseAddress(receiverAddr, o.net)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", walleterr.ErrInvalidAddress, err)
	}
	feeRate, err := o.feeRate(ctx)
	if err != nil {
		return nil, err
	}

	senderAddrStr := senderDerived.Address.EncodeAddress()
	build := func() (*txbuilder.PlainSendResult, error) {
		return txbuilder.BuildPlainSend(o.pool, txbuilder.PlainSendParams{
			Sender:       sender,
			SenderAddr:   senderDerived.Address,
			Receiver:     receiver,
			ReceiverAddr: receiverAddr,
			AmountSats:   amountSats,
			PaidBySender: paidBySender,
			FeeRate:      feeRate,
			NetParams:    o.net,
		})
	}
	result, err := withShortfallRetry(ctx, o, []string{senderAddrStr}, build)
	if err != nil {
		return nil, err
	}
	return o.signAndBroadcast(ctx, root, result.Tx, result.Inputs, result.Fee)
}

// WithdrawBitcoinTwoSenders sends amount of plain BTC split across two
// independent sender deposit addresses into one receiver output. The
// split gives sender0 the odd sat when amount doesn't divide evenly,
// matching withdraw_bitcoin_from_multiple_addresses' amount_in_half
// convention.
func (o *Orchestrator) WithdrawBitcoinTwoSenders(ctx context.Context, sender0, sender1 domain.Account, receiverAddr string, amount uint64, paidBySender bool) (*WithdrawalResult, error) {
	amount0, amount1 := txbuilder.SplitCeilFirst(amount)
	root, err := o.rootPublicKey(ctx)
	if err != nil {
		return nil, err
	}
	derived0, err := addressing.AddressForAccount(root, o.net, sender0)
	if err != nil {
		return nil, err
	}
	derived1, err := addressing.AddressForAccount(root, o.net, sender1)
	if err != nil {
		return nil, err
	}
	receiver, err := addressing.ParseAddress(receiverAddr, o.net)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", walleterr.ErrInvalidAddress, err)
	}
	feeRate, err := o.feeRate(ctx)
	if err != nil {
		return nil, err
	}

	addr0, addr1 := derived0.Address.EncodeAddress(), derived1.Address.EncodeAddress()
	build := func() (*txbuilder.TwoSenderSendResult, error) {
		return txbuilder.BuildTwoSenderSend(o.pool, txbuilder.TwoSenderSendParams{
			Sender0:      sender0,
			Sender1:      sender1,
			SenderAddr0:  derived0.Address,
			SenderAddr1:  derived1.Address,
			Receiver:     receiver,
			ReceiverAddr: receiverAddr,
			Amount0:      amount0,
			Amount1:      amount1,
			PaidBySender: paidBySender,
			FeeRate:      feeRate,
			NetParams:    o.net,
		})
	}
	result, err := withShortfallRetry(ctx, o, []string{addr0, addr1}, build)
	if err != nil {
		return nil, err
	}
	inputs := append(append([]txbuilder.SignerInput(nil), result.Inputs0...), result.Inputs1...)
	return o.signAndBroadcast(ctx, root, result.Tx, inputs, result.Fee)
}

// WithdrawRune transfers amount of runeID from sender to receiverAddr,
// with the sender's own plain pool covering the BTC fee and postage.
func (o *Orchestrator) WithdrawRune(ctx context.Context, sender, receiver domain.Account, receiverAddr string, runeID domain.RuneId, amount uint128.Uint128) (*WithdrawalResult, error) {
	return o.withdrawRune(ctx, sender, receiver, receiverAddr, runeID, amount, true)
}

// WithdrawRuneReceiverPays is the same transfer as WithdrawRune but the
// receiver's own plain pool pays the BTC fee and postage instead of the
// sender's.
func (o *Orchestrator) WithdrawRuneReceiverPays(ctx context.Context, sender, receiver domain.Account, receiverAddr string, runeID domain.RuneId, amount uint128.Uint128) (*WithdrawalResult, error) {
	return o.withdrawRune(ctx, sender, receiver, receiverAddr, runeID, amount, false)
}

func (o *Orchestrator) withdrawRune(ctx context.Context, sender, receiver domain.Account, receiverAddr string, runeID domain.RuneId, amount uint128.Uint128, paidBySender bool) (*WithdrawalResult, error) {
	root, err := o.rootPublicKey(ctx)
	if err != nil {
		return nil, err
	}
	senderDerived, err := addressing.AddressForAccount(root, o.net, sender)
	if err != nil {
		return nil, err
	}
	receiverDerived, err := addressing.AddressForAccount(root, o.net, receiver)
	if err != nil {
		return nil, err
	}
	feeRate, err := o.feeRate(ctx)
	if err != nil {
		return nil, err
	}

	feePayerAddrStr := senderDerived.Address.EncodeAddress()
	if !paidBySender {
		feePayerAddrStr = receiverDerived.Address.EncodeAddress()
	}
	build := func() (*txbuilder.RuneTransferResult, error) {
		return txbuilder.BuildRuneTransfer(o.pool, txbuilder.RuneTransferParams{
			Sender:          sender,
			Receiver:        receiver,
			SenderAddr:      senderDerived.Address,
			ReceiverAddr:    receiverDerived.Address,
			ReceiverAddrStr: receiverAddr,
			RuneID:          runeID,
			Amount:          amount,
			PaidBySender:    paidBySender,
			FeeRate:         feeRate,
			NetParams:       o.net,
		})
	}
	result, err := withShortfallRetry(ctx, o, []string{senderDerived.Address.EncodeAddress(), feePayerAddrStr}, build)
	if err != nil {
		return nil, err
	}
	inputs := append(append([]txbuilder.SignerInput(nil), result.RunicInputs...), result.FeeInputs...)
	return o.signAndBroadcast(ctx, root, result.Tx, inputs, result.Fee)
}

// WithdrawCombined transfers runeAmount of runeID and pays btcAmount of
// plain BTC to the same receiver in a single transaction.
func (o *Orchestrator) WithdrawCombined(ctx context.Context, sender, receiver domain.Account, receiverAddr string, runeID domain.RuneId, runeAmount uint128.Uint128, btcAmount uint64, paidBySender bool) (*WithdrawalResult, error) {
	root, err := o.rootPublicKey(ctx)
	if err != nil {
		return nil, err
	}
	senderDerived, err := addressing.AddressForAccount(root, o.net, sender)
	if err != nil {
		return nil, err
	}
	receiverDerived, err := addressing.AddressForAccount(root, o.net, receiver)
	if err != nil {
		return nil, err
	}
	feeRate, err := o.feeRate(ctx)
	if err != nil {
		return nil, err
	}

	senderAddrStr := senderDerived.Address.EncodeAddress()
	addrs := []string{senderAddrStr}
	if !paidBySender {
		addrs = append(addrs, receiverDerived.Address.EncodeAddress())
	}
	build := func() (*txbuilder.CombinedResult, error) {
		return txbuilder.BuildCombined(o.pool, txbuilder.CombinedParams{
			Sender:          sender,
			Receiver:        receiver,
			SenderAddr:      senderDerived.Address,
			ReceiverAddr:    receiverDerived.Address,
			ReceiverAddrStr: receiverAddr,
			RuneID:          runeID,
			RuneAmount:      runeAmount,
			BtcAmount:       btcAmount,
			PaidBySender:    paidBySender,
			FeeRate:         feeRate,
			NetParams:       o.net,
		})
	}
	result, err := withShortfallRetry(ctx, o, addrs, build)
	if err != nil {
		return nil, err
	}
	inputs := append(append([]txbuilder.SignerInput(nil), result.RunicInputs...), result.BtcInputs...)
	inputs = append(inputs, result.FeeInputs...)
	return o.signAndBroadcast(ctx, root, result.Tx, inputs, result.Fee)
}
