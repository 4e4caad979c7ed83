// Package oracle defines the contract for the external ECDSA signing
// service the wallet delegates all private-key operations to. No
// private key material is ever held in this process; every signature
// and public key is fetched across this interface.
package oracle

import (
	"context"
	"errors"

	"github.com/Fantasim/hdwallet/internal/domain"
)

var ErrUnavailable = errors.New("ecdsa oracle unavailable")

// Signer is implemented by the external threshold-ECDSA service. A
// production implementation calls out over gRPC or an HTTP API; tests
// use an in-memory fake backed by a real secp256k1 key so signatures
// can be verified end to end.
type Signer interface {
	// PublicKey returns the root extended public key (SEC1-compressed
	// point, 32-byte chain code) for the named key. Called once per
	// process and cached by internal/config.
	PublicKey(ctx context.Context, keyName string) (pubKey, chainCode []byte, err error)

	// Sign returns a DER-encoded ECDSA signature (no sighash type byte)
	// over digest, using the child key reached by deriving path from
	// the named key's root.
	Sign(ctx context.Context, digest []byte, keyName string, path domain.DerivationPath) ([]byte, error)
}
