package config

import "errors"

// Sentinel errors for internal use.
var (
	ErrInvalidConfig     = errors.New("invalid config")
	ErrOraclePubKeyUnset = errors.New("oracle public key not yet fetched")
)

// Error codes — shared with the HTTP surface's API responses.
const (
	ErrorInvalidConfig     = "ERROR_INVALID_CONFIG"
	ErrorInvalidAddress    = "ERROR_INVALID_ADDRESS"
	ErrorOracleUnavailable = "ERROR_ORACLE_UNAVAILABLE"
	ErrorInsufficientFunds = "ERROR_INSUFFICIENT_FUNDS"
	ErrorTxBuildFailed     = "ERROR_TX_BUILD_FAILED"
	ErrorTxSignFailed      = "ERROR_TX_SIGN_FAILED"
	ErrorTxBroadcastFailed = "ERROR_TX_BROADCAST_FAILED"
	ErrorUTXOFetchFailed   = "ERROR_UTXO_FETCH_FAILED"
	ErrorFeeEstimateFailed = "ERROR_FEE_ESTIMATE_FAILED"
)
