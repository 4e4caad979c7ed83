// Package handlers adapts the orchestrator's plain Go methods to thin
// HTTP handlers: decode request, call the service, encode response. No
// business logic lives here.
package handlers

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Fantasim/hdwallet/internal/domain"
	"github.com/Fantasim/hdwallet/internal/oracle"
	"github.com/Fantasim/hdwallet/internal/orchestrator"
	"github.com/Fantasim/hdwallet/internal/walleterr"
	"lukechampine.com/uint128"
)

// statusForError maps a wallet sentinel error to an HTTP status code,
// falling back to 500 for anything the handlers don't recognize.
func statusForError(err error) int {
	switch {
	case errors.Is(err, walleterr.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, walleterr.ErrInsufficientFunds):
		return http.StatusConflict
	case errors.Is(err, walleterr.ErrOracleUnavailable), errors.Is(err, oracle.ErrUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, walleterr.ErrBroadcastFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeWalletError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), "wallet_error", err.Error())
}

func decodeOwner(hexStr string) ([]byte, error) {
	return hex.DecodeString(hexStr)
}

func decodeAccount(ownerHex, subaccountHex string) (domain.Account, error) {
	owner, err := hex.DecodeString(ownerHex)
	if err != nil {
		return domain.Account{}, err
	}
	var sub [32]byte
	if subaccountHex != "" {
		raw, err := hex.DecodeString(subaccountHex)
		if err != nil {
			return domain.Account{}, err
		}
		copy(sub[:], raw)
	}
	return domain.Account{Owner: owner, Subaccount: sub}, nil
}

// DepositAddress handles GET /api/deposit-address?owner=<hex>&subaccount=<hex>.
// The address returned is always owner's principal-bound deposit
// address; subaccount is only checked to be valid hex.
func DepositAddress(o *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		account, err := decodeAccount(r.URL.Query().Get("owner"), r.URL.Query().Get("subaccount"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_owner", err.Error())
			return
		}

		derived, err := o.DepositAddresses(r.Context(), account.Owner)
		if err != nil {
			slog.Error("deposit address derivation failed", "owner", r.URL.Query().Get("owner"), "error", err)
			writeWalletError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, apiResponse{
			Data: map[string]string{"address": derived.Address.EncodeAddress()},
			Meta: &apiMeta{ExecutionTime: time.Since(start).Milliseconds()},
		})
	}
}

// BalanceBTC handles GET /api/balance/btc?owner=<hex>.
func BalanceBTC(o *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		owner, err := decodeOwner(r.URL.Query().Get("owner"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_owner", err.Error())
			return
		}

		sats, err := o.BalanceBTC(r.Context(), owner)
		if err != nil {
			slog.Error("balance query failed", "owner", r.URL.Query().Get("owner"), "error", err)
			writeWalletError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, apiResponse{
			Data: map[string]uint64{"sats": sats},
			Meta: &apiMeta{ExecutionTime: time.Since(start).Milliseconds()},
		})
	}
}

type runeBalanceEntry struct {
	RuneID  string `json:"runeId"`
	Balance string `json:"balance"`
}

func flattenRuneBalances(balances map[domain.RuneId]uint128.Uint128) []runeBalanceEntry {
	out := make([]runeBalanceEntry, 0, len(balances))
	for id, bal := range balances {
		out = append(out, runeBalanceEntry{RuneID: id.String(), Balance: bal.String()})
	}
	return out
}

// BalanceRunes handles GET /api/balance/runes?owner=<hex>.
func BalanceRunes(o *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		owner, err := decodeOwner(r.URL.Query().Get("owner"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_owner", err.Error())
			return
		}

		balances, err := o.BalanceRunes(r.Context(), owner)
		if err != nil {
			slog.Error("rune balance query failed", "owner", r.URL.Query().Get("owner"), "error", err)
			writeWalletError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, apiResponse{
			Data: flattenRuneBalances(balances),
			Meta: &apiMeta{ExecutionTime: time.Since(start).Milliseconds()},
		})
	}
}

// RuneBalancesOf handles GET /api/balance/runes-of?address=<btc-address>,
// the supplemented arbitrary-address balance lookup.
func RuneBalancesOf(o *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		address := r.URL.Query().Get("address")
		if address == "" {
			writeError(w, http.StatusBadRequest, "missing_address", "address query parameter is required")
			return
		}

		balances, err := o.RuneBalancesOf(r.Context(), address)
		if err != nil {
			slog.Error("rune balance-of query failed", "address", address, "error", err)
			writeWalletError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, apiResponse{
			Data: flattenRuneBalances(balances),
			Meta: &apiMeta{ExecutionTime: time.Since(start).Milliseconds()},
		})
	}
}

func decodeJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

type withdrawResultDTO struct {
	TxID string `json:"txid"`
	Fee  uint64 `json:"fee"`
}

func writeWithdrawalResult(w http.ResponseWriter, start time.Time, result *orchestrator.WithdrawalResult) {
	writeJSON(w, http.StatusOK, apiResponse{
		Data: withdrawResultDTO{TxID: result.TxID, Fee: result.Fee},
		Meta: &apiMeta{ExecutionTime: time.Since(start).Milliseconds()},
	})
}

type withdrawBitcoinRequest struct {
	OwnerHex      string `json:"owner"`
	SubaccountHex string `json:"subaccount"`
	ReceiverAddr  string `json:"receiverAddress"`
	AmountSats    uint64 `json:"amountSats"`
	PaidBySender  bool   `json:"paidBySender"`
}

// WithdrawBitcoin handles POST /api/withdraw/btc.
func WithdrawBitcoin(o *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		var req withdrawBitcoinRequest
		if err := decodeJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
			return
		}
		sender, err := decodeAccount(req.OwnerHex, req.SubaccountHex)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_owner", err.Error())
			return
		}

		result, err := o.WithdrawBitcoin(r.Context(), sender, req.ReceiverAddr, req.AmountSats, req.PaidBySender)
		if err != nil {
			slog.Error("btc withdrawal failed", "receiver", req.ReceiverAddr, "error", err)
			writeWalletError(w, err)
			return
		}
		writeWithdrawalResult(w, start, result)
	}
}

type withdrawBitcoinTwoSendersRequest struct {
	Owner0Hex      string `json:"owner0"`
	Subaccount0Hex string `json:"subaccount0"`
	Owner1Hex      string `json:"owner1"`
	Subaccount1Hex string `json:"subaccount1"`
	ReceiverAddr   string `json:"receiverAddress"`
	AmountSats     uint64 `json:"amountSats"`
	PaidBySender   bool   `json:"paidBySender"`
}

// WithdrawBitcoinTwoSenders handles POST /api/withdraw/btc/two-senders.
func WithdrawBitcoinTwoSenders(o *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		var req withdrawBitcoinTwoSendersRequest
		if err := decodeJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
			return
		}
		sender0, err := decodeAccount(req.Owner0Hex, req.Subaccount0Hex)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_owner0", err.Error())
			return
		}
		sender1, err := decodeAccount(req.Owner1Hex, req.Subaccount1Hex)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_owner1", err.Error())
			return
		}

		result, err := o.WithdrawBitcoinTwoSenders(r.Context(), sender0, sender1, req.ReceiverAddr, req.AmountSats, req.PaidBySender)
		if err != nil {
			slog.Error("two-sender btc withdrawal failed", "receiver", req.ReceiverAddr, "error", err)
			writeWalletError(w, err)
			return
		}
		writeWithdrawalResult(w, start, result)
	}
}

type withdrawRuneRequest struct {
	SenderOwnerHex        string `json:"senderOwner"`
	SenderSubaccountHex   string `json:"senderSubaccount"`
	ReceiverOwnerHex      string `json:"receiverOwner"`
	ReceiverSubaccountHex string `json:"receiverSubaccount"`
	ReceiverAddr          string `json:"receiverAddress"`
	RuneBlock             uint64 `json:"runeBlock"`
	RuneTx                uint32 `json:"runeTx"`
	Amount                string `json:"amount"`
	ReceiverPays          bool   `json:"receiverPays"`
}

func (req withdrawRuneRequest) parse() (sender, receiver domain.Account, runeID domain.RuneId, amount uint128.Uint128, err error) {
	sender, err = decodeAccount(req.SenderOwnerHex, req.SenderSubaccountHex)
	if err != nil {
		return
	}
	receiver, err = decodeAccount(req.ReceiverOwnerHex, req.ReceiverSubaccountHex)
	if err != nil {
		return
	}
	runeID = domain.RuneId{Block: req.RuneBlock, Tx: req.RuneTx}
	amount, err = uint128.FromString(req.Amount)
	return
}

// WithdrawRune handles POST /api/withdraw/rune.
func WithdrawRune(o *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		var req withdrawRuneRequest
		if err := decodeJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
			return
		}
		sender, receiver, runeID, amount, err := req.parse()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		var result *orchestrator.WithdrawalResult
		if req.ReceiverPays {
			result, err = o.WithdrawRuneReceiverPays(r.Context(), sender, receiver, req.ReceiverAddr, runeID, amount)
		} else {
			result, err = o.WithdrawRune(r.Context(), sender, receiver, req.ReceiverAddr, runeID, amount)
		}
		if err != nil {
			slog.Error("rune withdrawal failed", "receiver", req.ReceiverAddr, "rune", runeID, "error", err)
			writeWalletError(w, err)
			return
		}
		writeWithdrawalResult(w, start, result)
	}
}

type withdrawCombinedRequest struct {
	withdrawRuneRequest
	BtcAmountSats uint64 `json:"btcAmountSats"`
}

// WithdrawCombined handles POST /api/withdraw/combined.
func WithdrawCombined(o *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		var req withdrawCombinedRequest
		if err := decodeJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
			return
		}
		sender, receiver, runeID, amount, err := req.parse()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		result, err := o.WithdrawCombined(r.Context(), sender, receiver, req.ReceiverAddr, runeID, amount, req.BtcAmountSats, !req.ReceiverPays)
		if err != nil {
			slog.Error("combined withdrawal failed", "receiver", req.ReceiverAddr, "rune", runeID, "error", err)
			writeWalletError(w, err)
			return
		}
		writeWithdrawalResult(w, start, result)
	}
}
