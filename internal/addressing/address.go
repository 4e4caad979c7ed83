package addressing

import (
	"fmt"

	"github.com/Fantasim/hdwallet/internal/config"
	"github.com/Fantasim/hdwallet/internal/domain"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// Derived is a deposit address together with the scriptPubKey that
// locks it and the derivation path used to reach it, which the signing
// coordinator replays to find the matching private key.
type Derived struct {
	Account      domain.Account
	Address      *btcutil.AddressPubKeyHash
	ScriptPubKey []byte
	Path         domain.DerivationPath
}

func (d Derived) String() string { return d.Address.EncodeAddress() }

// DeriveChildPublicKey walks path as a non-hardened public-parent,
// public-child BIP-32 derivation rooted at root, using the standard
// extended-key machinery so the result is bit-for-bit interchangeable
// with whatever derives the matching private key on the oracle side.
func DeriveChildPublicKey(root *config.OraclePublicKey, netParams *chaincfg.Params, path domain.DerivationPath) (*btcec.PublicKey, error) {
	key := hdkeychain.NewExtendedKey(
		netParams.HDPublicKeyID[:],
		root.PublicKey,
		root.ChainCode,
		[]byte{0, 0, 0, 0},
		0,
		0,
		false,
	)
	for _, idx := range PathToChildIndices(path) {
		child, err := key.Derive(idx)
		if err != nil {
			return nil, fmt.Errorf("derive child index %d: %w", idx, err)
		}
		key = child
	}
	return key.ECPubKey()
}

// AddressForAccount derives the P2PKH deposit address and scriptPubKey
// for account against the oracle's cached public key.
func AddressForAccount(root *config.OraclePublicKey, netParams *chaincfg.Params, account domain.Account) (*Derived, error) {
	path := account.ToDerivationPath()
	pub, err := DeriveChildPublicKey(root, netParams, path)
	if err != nil {
		return nil, err
	}
	return fromPubKey(pub, netParams, account, path)
}

// AddressForPath is the same as AddressForAccount but takes an
// already-built path, used by the numbered-address supplement where
// the subaccount isn't a plain Account.
func AddressForPath(root *config.OraclePublicKey, netParams *chaincfg.Params, owner []byte, subaccount [32]byte, path domain.DerivationPath) (*Derived, error) {
	pub, err := DeriveChildPublicKey(root, netParams, path)
	if err != nil {
		return nil, err
	}
	account := domain.Account{Owner: owner, Subaccount: subaccount}
	return fromPubKey(pub, netParams, account, path)
}

func fromPubKey(pub *btcec.PublicKey, netParams *chaincfg.Params, account domain.Account, path domain.DerivationPath) (*Derived, error) {
	pubKeyHash := btcutil.Hash160(pub.SerializeCompressed())
	addr, err := btcutil.NewAddressPubKeyHash(pubKeyHash, netParams)
	if err != nil {
		return nil, fmt.Errorf("build p2pkh address: %w", err)
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, fmt.Errorf("build scriptPubKey: %w", err)
	}
	return &Derived{
		Account:      account,
		Address:      addr,
		ScriptPubKey: script,
		Path:         path,
	}, nil
}

// ParseAddress validates addr against netParams and returns its P2PKH
// form, or an error if it isn't a legacy P2PKH address on this network.
func ParseAddress(addr string, netParams *chaincfg.Params) (*btcutil.AddressPubKeyHash, error) {
	parsed, err := btcutil.DecodeAddress(addr, netParams)
	if err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	p2pkh, ok := parsed.(*btcutil.AddressPubKeyHash)
	if !ok {
		return nil, fmt.Errorf("address %s is not a legacy P2PKH address", addr)
	}
	return p2pkh, nil
}
