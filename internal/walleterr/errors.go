// Package walleterr collects the sentinel errors surfaced across the
// wallet core, mirroring the flat error-file convention the rest of the
// codebase uses for its own packages.
package walleterr

import "errors"

var (
	// ErrInvalidAddress is returned when an address fails network
	// validation or cannot be parsed.
	ErrInvalidAddress = errors.New("invalid bitcoin address")

	// ErrOracleUnavailable is returned when the ECDSA signing oracle
	// cannot be reached or returns an error. Treated as fatal for the
	// request.
	ErrOracleUnavailable = errors.New("ecdsa oracle unavailable")

	// ErrBroadcastFailed is returned when the Bitcoin interface rejects
	// a raw transaction submission. Never retried.
	ErrBroadcastFailed = errors.New("broadcast failed")

	// ErrInsufficientFunds is the abstract error surfaced to callers
	// after a second build attempt still falls short.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvariantViolated marks a programmer-bug state — mismatched
	// rune-balance accounting or similar — that must never be recovered
	// from silently.
	ErrInvariantViolated = errors.New("invariant violated")

	// ErrConfigUninitialized is returned when a caller reaches for the
	// config singleton's network, keyname, or cached public key before
	// init has run.
	ErrConfigUninitialized = errors.New("config uninitialized")
)

// ShortfallPlain names a plain-bitcoin pool that must be replenished.
type ShortfallPlain struct {
	Address  string
	Required uint64
}

func (e *ShortfallPlain) Error() string {
	return "shortfall: address " + e.Address + " needs more plain bitcoin"
}

// ShortfallRune names a runic pool that must be replenished.
type ShortfallRune struct {
	Required string // decimal-formatted u128, kept as string to avoid a big.Int import here
}

func (e *ShortfallRune) Error() string {
	return "shortfall: rune pool needs replenishing to " + e.Required
}

// ShortfallPlainPair names a two-sender shortfall, one requirement per party.
type ShortfallPlainPair struct {
	Required0 uint64
	Required1 uint64
}

func (e *ShortfallPlainPair) Error() string {
	return "shortfall: two-sender pools need replenishing"
}
