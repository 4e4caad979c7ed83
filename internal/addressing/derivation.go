// Package addressing turns an Account (owner + subaccount) into a
// deposit address and the scriptPubKey that locks it, by walking a
// child-key-derivation chain rooted at the oracle's cached extended
// public key. No private key material ever touches this package.
package addressing

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/Fantasim/hdwallet/internal/domain"
	"golang.org/x/crypto/sha3"
	"lukechampine.com/uint128"
)

// hardenedStart mirrors hdkeychain.HardenedKeyStart; duplicated here so
// this file doesn't need to import btcutil just for one constant.
const hardenedStart = uint32(1) << 31

// PathToChildIndices maps an arbitrary-length-byte-string derivation
// path onto a sequence of standard non-hardened BIP-32 child indices.
// Hashing each path component keeps the mapping uniform regardless of
// how the caller constructed the component, and clearing the top bit
// guarantees the index stays below hardenedStart so derivation remains
// possible from a public (non-hardened) extended key.
func PathToChildIndices(path domain.DerivationPath) []uint32 {
	out := make([]uint32, len(path))
	for i, component := range path {
		h := sha256.Sum256(component)
		out[i] = binary.BigEndian.Uint32(h[:4]) &^ hardenedStart
	}
	return out
}

// PrincipalToSubaccount derives the subaccount used for an owner's
// default, principal-bound deposit address: the SHA3-256 digest of the
// owner's raw identity bytes.
func PrincipalToSubaccount(owner []byte) [32]byte {
	return sha3.Sum256(owner)
}

// SubaccountWithNum derives the subaccount for the Nth numbered address
// issued to a service: the SHA3-256 digest of the service identity
// bytes followed by the big-endian u128 encoding of num.
func SubaccountWithNum(serviceID []byte, num uint128.Uint128) [32]byte {
	var numBytes [16]byte
	binary.BigEndian.PutUint64(numBytes[0:8], num.Hi)
	binary.BigEndian.PutUint64(numBytes[8:16], num.Lo)

	h := sha3.New256()
	h.Write(serviceID)
	h.Write(numBytes[:])
	sum := h.Sum(nil)

	var out [32]byte
	copy(out[:], sum)
	return out
}
