package handlers

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/go-chi/chi/v5"

	"github.com/Fantasim/hdwallet/internal/addressing"
	"github.com/Fantasim/hdwallet/internal/config"
	"github.com/Fantasim/hdwallet/internal/domain"
	"github.com/Fantasim/hdwallet/internal/orchestrator"
	"github.com/Fantasim/hdwallet/internal/sync"
	"github.com/Fantasim/hdwallet/internal/utxostore"
)

type fakeOracle struct {
	priv      *btcec.PrivateKey
	chainCode []byte
	net       *chaincfg.Params
}

func (f *fakeOracle) PublicKey(ctx context.Context, keyName string) ([]byte, []byte, error) {
	return f.priv.PubKey().SerializeCompressed(), f.chainCode, nil
}

func (f *fakeOracle) Sign(ctx context.Context, digest []byte, keyName string, path domain.DerivationPath) ([]byte, error) {
	key := hdkeychain.NewExtendedKey(f.net.HDPrivateKeyID[:], f.priv.Serialize(), f.chainCode, []byte{0, 0, 0, 0}, 0, 0, true)
	for _, idx := range addressing.PathToChildIndices(path) {
		child, err := key.Derive(idx)
		if err != nil {
			return nil, err
		}
		key = child
	}
	childPriv, err := key.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return ecdsa.Sign(childPriv, digest).Serialize(), nil
}

type fakeChain struct {
	utxos map[string][]domain.Utxo
}

func (f *fakeChain) FeePercentiles(ctx context.Context) ([]uint64, error) { return []uint64{10_000}, nil }
func (f *fakeChain) ListUTXOs(ctx context.Context, address string) ([]domain.Utxo, error) {
	return f.utxos[address], nil
}
func (f *fakeChain) BalanceSats(ctx context.Context, address string) (uint64, error) {
	var total uint64
	for _, u := range f.utxos[address] {
		total += u.Value
	}
	return total, nil
}
func (f *fakeChain) SubmitRawTransaction(ctx context.Context, raw []byte) (string, error) {
	return "feedface", nil
}

type fakeRuneIndex struct{}

func (fakeRuneIndex) RunicUTXOs(ctx context.Context, address string) ([]domain.RunicUtxo, error) {
	return nil, nil
}

// newTestOrchestrator wires a regtest Orchestrator against in-memory
// fakes, mirroring internal/orchestrator's own test fixture but kept
// local since these handler tests only need the HTTP surface, not the
// orchestrator package's unexported pool access.
func newTestOrchestrator(t *testing.T) (*orchestrator.Orchestrator, domain.Account, string) {
	t.Helper()
	net := &chaincfg.RegressionNetParams
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	chainCode := make([]byte, 32)
	for i := range chainCode {
		chainCode[i] = byte(i + 1)
	}
	fo := &fakeOracle{priv: priv, chainCode: chainCode, net: net}

	cfg := &config.Config{Network: "regtest"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	owner := []byte("owner-1")
	sender := domain.Account{Owner: owner, Subaccount: addressing.PrincipalToSubaccount(owner)}
	root, err := cfg.EnsureOraclePublicKey(context.Background(), fo)
	if err != nil {
		t.Fatalf("EnsureOraclePublicKey: %v", err)
	}
	derived, err := addressing.AddressForAccount(root, net, sender)
	if err != nil {
		t.Fatalf("AddressForAccount: %v", err)
	}

	pool := utxostore.NewManager()
	chain := &fakeChain{utxos: map[string][]domain.Utxo{}}
	syncer := sync.New(chain, fakeRuneIndex{}, pool, nil)
	o := orchestrator.New(cfg, pool, syncer, chain, fo, net, nil)
	return o, sender, derived.Address.EncodeAddress()
}

func TestDepositAddress_ReturnsDerivedAddress(t *testing.T) {
	o, sender, wantAddr := newTestOrchestrator(t)

	req := httptest.NewRequest(http.MethodGet, "/api/deposit-address?owner="+hex.EncodeToString(sender.Owner), nil)
	rr := httptest.NewRecorder()
	DepositAddress(o)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body apiResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data, ok := body.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data shape: %#v", body.Data)
	}
	if data["address"] != wantAddr {
		t.Fatalf("expected address %s, got %v", wantAddr, data["address"])
	}
}

func TestDepositAddress_RejectsBadOwnerHex(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	req := httptest.NewRequest(http.MethodGet, "/api/deposit-address?owner=not-hex", nil)
	rr := httptest.NewRecorder()
	DepositAddress(o)(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestBalanceBTC_ReflectsSyncedPool(t *testing.T) {
	o, _, addr := newTestOrchestrator(t)
	// The fake chain holds no UTXOs for owner-1's deposit address, so the
	// balance query runs the sync path end to end and must report zero.
	req := httptest.NewRequest(http.MethodGet, "/api/balance/btc?owner=6f776e65722d31", nil) // hex("owner-1")
	rr := httptest.NewRecorder()
	BalanceBTC(o)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body apiResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data, ok := body.Data.(map[string]interface{})
	if !ok || data["sats"] != float64(0) {
		t.Fatalf("expected a zero sats balance, got %v", body.Data)
	}
	_ = addr
}

func TestWithdrawBitcoin_InvalidBodyRejected(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	req := httptest.NewRequest(http.MethodPost, "/api/withdraw/btc", bytes.NewReader([]byte("not json")))
	rr := httptest.NewRecorder()
	WithdrawBitcoin(o)(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestRuneBalancesOf_RequiresAddress(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	req := httptest.NewRequest(http.MethodGet, "/api/balance/runes-of", nil)
	rr := httptest.NewRecorder()
	RuneBalancesOf(o)(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

var _ = chi.NewRouter // keep chi imported for route-param-shaped handlers added later
