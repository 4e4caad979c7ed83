package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fantasim/hdwallet/internal/walleterr"
)

// insufficientFundsError wraps the structured shortfall from a second,
// post-resync build failure. Both errors.Is(err, walleterr.ErrInsufficientFunds)
// and errors.As against the original ShortfallPlain/ShortfallRune/
// ShortfallPlainPair cause keep working against it, per the decision in
// DESIGN.md to surface the abstract error outward while keeping the
// structured cause retrievable underneath.
type insufficientFundsError struct {
	cause error
}

func (e *insufficientFundsError) Error() string {
	return fmt.Sprintf("%s: %v", walleterr.ErrInsufficientFunds, e.cause)
}

func (e *insufficientFundsError) Unwrap() []error {
	return []error{walleterr.ErrInsufficientFunds, e.cause}
}

func isShortfall(err error) bool {
	var p *walleterr.ShortfallPlain
	var r *walleterr.ShortfallRune
	var pp *walleterr.ShortfallPlainPair
	return errors.As(err, &p) || errors.As(err, &r) || errors.As(err, &pp)
}

// withShortfallRetry runs build once; if it fails with a structured
// shortfall, it resyncs every address in addrs and tries exactly once
// more. Any other error from the first attempt is returned unchanged.
// A shortfall on the second attempt is wrapped as insufficientFundsError
// rather than retried further; any other second-attempt error is
// returned unchanged. This resync is the only sync a withdrawal
// triggers: no balance check runs before the first build.
func withShortfallRetry[T any](ctx context.Context, o *Orchestrator, addrs []string, build func() (T, error)) (T, error) {
	result, err := build()
	if err == nil {
		return result, nil
	}
	if !isShortfall(err) {
		var zero T
		return zero, err
	}

	if syncErr := o.syncer.SyncMany(ctx, addrs); syncErr != nil {
		var zero T
		return zero, fmt.Errorf("resync after shortfall: %w", syncErr)
	}

	result, err = build()
	if err != nil {
		var zero T
		if !isShortfall(err) {
			return zero, err
		}
		return zero, &insufficientFundsError{cause: err}
	}
	return result, nil
}
