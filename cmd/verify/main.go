// Command verify is a manual smoke-check: given an oracle public key and
// chain code on the command line (hex-encoded), it derives and prints
// the deposit addresses for a handful of owners, the way a developer
// would eyeball output against a known-good reference during a signer
// integration.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/Fantasim/hdwallet/internal/addressing"
	"github.com/Fantasim/hdwallet/internal/config"
	"github.com/Fantasim/hdwallet/internal/domain"
	"github.com/btcsuite/btcd/chaincfg"
)

func main() {
	pubKeyHex := flag.String("pubkey", "", "hex-encoded SEC1-compressed oracle public key (33 bytes)")
	chainCodeHex := flag.String("chaincode", "", "hex-encoded oracle chain code (32 bytes)")
	network := flag.String("network", "testnet", "mainnet, testnet, or regtest")
	owners := flag.Int("owners", 3, "number of synthetic owners to derive")
	flag.Parse()

	if *pubKeyHex == "" || *chainCodeHex == "" {
		fmt.Fprintln(os.Stderr, "usage: verify -pubkey <hex> -chaincode <hex> [-network testnet] [-owners 3]")
		os.Exit(1)
	}

	pubKey, err := hex.DecodeString(*pubKeyHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode pubkey: %v\n", err)
		os.Exit(1)
	}
	chainCode, err := hex.DecodeString(*chainCodeHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode chaincode: %v\n", err)
		os.Exit(1)
	}

	net, err := config.ParseNetwork(*network)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	var netParams *chaincfg.Params
	netParams, err = net.Params()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	root := &config.OraclePublicKey{PublicKey: pubKey, ChainCode: chainCode}

	fmt.Printf("=== deposit addresses (%s) ===\n", *network)
	for i := 0; i < *owners; i++ {
		owner := []byte(fmt.Sprintf("owner-%d", i))
		account := domain.Account{Owner: owner, Subaccount: addressing.PrincipalToSubaccount(owner)}
		derived, err := addressing.AddressForAccount(root, netParams, account)
		if err != nil {
			fmt.Fprintf(os.Stderr, "owner %d: %v\n", i, err)
			continue
		}
		fmt.Printf("  owner %-10s -> %s\n", string(owner), derived.Address.EncodeAddress())
	}
}
