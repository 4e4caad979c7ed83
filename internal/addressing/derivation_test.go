package addressing

import (
	"bytes"
	"testing"

	"github.com/Fantasim/hdwallet/internal/config"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"lukechampine.com/uint128"
)

func TestPrincipalToSubaccount_Deterministic(t *testing.T) {
	owner := []byte("owner-a")
	a := PrincipalToSubaccount(owner)
	b := PrincipalToSubaccount(owner)
	if a != b {
		t.Fatalf("PrincipalToSubaccount not deterministic: %x != %x", a, b)
	}
	other := PrincipalToSubaccount([]byte("owner-b"))
	if a == other {
		t.Fatalf("different owners collided")
	}
}

func TestSubaccountWithNum_DiffersPerNum(t *testing.T) {
	svc := []byte("service-1")
	s1 := SubaccountWithNum(svc, uint128.From64(1))
	s2 := SubaccountWithNum(svc, uint128.From64(2))
	if s1 == s2 {
		t.Fatalf("expected different subaccounts for different nums")
	}
	again := SubaccountWithNum(svc, uint128.From64(1))
	if s1 != again {
		t.Fatalf("SubaccountWithNum not deterministic")
	}
}

func TestPathToChildIndices_AllNonHardened(t *testing.T) {
	path := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc")}
	indices := PathToChildIndices(path)
	if len(indices) != 3 {
		t.Fatalf("expected 3 indices, got %d", len(indices))
	}
	for _, idx := range indices {
		if idx >= hardenedStart {
			t.Fatalf("index %d is hardened", idx)
		}
	}
}

func testOracleRoot(t *testing.T) (*config.OraclePublicKey, *chaincfg.Params) {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	chainCode := make([]byte, 32)
	for i := range chainCode {
		chainCode[i] = byte(i)
	}
	return &config.OraclePublicKey{
		PublicKey: priv.PubKey().SerializeCompressed(),
		ChainCode: chainCode,
	}, &chaincfg.RegressionNetParams
}

func TestDeriveChildPublicKey_DeterministicSamePath(t *testing.T) {
	root, netParams := testOracleRoot(t)
	path := [][]byte{[]byte("owner-x"), make([]byte, 32)}

	k1, err := DeriveChildPublicKey(root, netParams, path)
	if err != nil {
		t.Fatalf("DeriveChildPublicKey: %v", err)
	}
	k2, err := DeriveChildPublicKey(root, netParams, path)
	if err != nil {
		t.Fatalf("DeriveChildPublicKey: %v", err)
	}
	if !bytes.Equal(k1.SerializeCompressed(), k2.SerializeCompressed()) {
		t.Fatalf("expected identical derivation for identical path")
	}
}

func TestDeriveChildPublicKey_DifferentPathsDiverge(t *testing.T) {
	root, netParams := testOracleRoot(t)
	var sub1, sub2 [32]byte
	sub2[0] = 1

	k1, err := DeriveChildPublicKey(root, netParams, [][]byte{[]byte("owner"), sub1[:]})
	if err != nil {
		t.Fatalf("DeriveChildPublicKey: %v", err)
	}
	k2, err := DeriveChildPublicKey(root, netParams, [][]byte{[]byte("owner"), sub2[:]})
	if err != nil {
		t.Fatalf("DeriveChildPublicKey: %v", err)
	}
	if bytes.Equal(k1.SerializeCompressed(), k2.SerializeCompressed()) {
		t.Fatalf("expected divergent derivation for divergent subaccounts")
	}
}
