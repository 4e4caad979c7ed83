package config

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

// Network is the Bitcoin network the wallet is addressing funds on.
type Network string

const (
	Mainnet   Network = "mainnet"
	Testnet   Network = "testnet"
	Regtest   Network = "regtest"
)

// Params returns the btcsuite chain parameters backing this network,
// used for address version bytes and HD extended-key version bytes.
func (n Network) Params() (*chaincfg.Params, error) {
	switch n {
	case Mainnet:
		return &chaincfg.MainNetParams, nil
	case Testnet:
		return &chaincfg.TestNet3Params, nil
	case Regtest:
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("%w: unknown network %q", ErrInvalidConfig, n)
	}
}

// KeyName is the identifier the ECDSA oracle uses to select which
// threshold key material to sign with. Each network is pinned to a
// fixed key name so a misconfigured deployment can never accidentally
// sign mainnet-shaped transactions with a test key, or vice versa.
func (n Network) KeyName() (string, error) {
	switch n {
	case Mainnet:
		return "key_1", nil
	case Testnet:
		return "test_key_1", nil
	case Regtest:
		return "dfx_test_key", nil
	default:
		return "", fmt.Errorf("%w: unknown network %q", ErrInvalidConfig, n)
	}
}

func ParseNetwork(s string) (Network, error) {
	switch Network(s) {
	case Mainnet, Testnet, Regtest:
		return Network(s), nil
	default:
		return "", fmt.Errorf("%w: network must be one of mainnet, testnet, regtest, got %q", ErrInvalidConfig, s)
	}
}
