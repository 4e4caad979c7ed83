package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/Fantasim/hdwallet/internal/domain"
	"github.com/Fantasim/hdwallet/internal/utxostore"
	"lukechampine.com/uint128"
)

type fakeChain struct {
	utxos map[string][]domain.Utxo
}

func (f *fakeChain) FeePercentiles(ctx context.Context) ([]uint64, error) { return nil, nil }

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
	return "deadbeef", nil
}

// erroringChain fails every ListUTXOs call and records which addresses
// were asked for.
type erroringChain struct {
	fakeChain
	calls []string
}

func (f *erroringChain) ListUTXOs(ctx context.Context, address string) ([]domain.Utxo, error) {
	f.calls = append(f.calls, address)
	return nil, errors.New("chain unavailable")
}

type fakeRuneIndex struct {
	runic map[string][]domain.RunicUtxo
}

func (f *fakeRuneIndex) RunicUTXOs(ctx context.Context, address string) ([]domain.RunicUtxo, error) {
	return f.runic[address], nil
}

func op(b byte, vout uint32) domain.OutPoint {
	var o domain.OutPoint
	o.TxID[0] = b
	o.Vout = vout
	return o
}

func TestSync_SplitsPlainAndRunicPools(t *testing.T) {
	const addr = "addr-1"
	runeID := domain.RuneId{Block: 840_000, Tx: 7}

	chain := &fakeChain{utxos: map[string][]domain.Utxo{
		addr: {
			{OutPoint: op(1, 0), Value: 10_000, Confirmations: 1},
			{OutPoint: op(2, 0), Value: 5_000, Confirmations: 1},
		},
	}}
	runes := &fakeRuneIndex{runic: map[string][]domain.RunicUtxo{
		addr: {
			{Utxo: domain.Utxo{OutPoint: op(2, 0), Value: 5_000, Confirmations: 1}, RuneID: runeID, Balance: uint128.From64(300)},
		},
	}}

	pool := utxostore.NewManager()
	s := New(chain, runes, pool, nil)

	if err := s.Sync(context.Background(), addr); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if got := pool.BalancePlain(addr); got != 10_000 {
		t.Fatalf("expected plain pool to exclude the runic outpoint, got %d", got)
	}
	if got := pool.BalanceRune(addr, runeID); got.Cmp(uint128.From64(300)) != 0 {
		t.Fatalf("unexpected rune balance: %s", got.String())
	}
}

func TestSync_IdempotentOnRepeatedCalls(t *testing.T) {
	const addr = "addr-1"
	chain := &fakeChain{utxos: map[string][]domain.Utxo{
		addr: {{OutPoint: op(1, 0), Value: 1_000, Confirmations: 1}},
	}}
	runes := &fakeRuneIndex{}

	pool := utxostore.NewManager()
	s := New(chain, runes, pool, nil)

	if err := s.Sync(context.Background(), addr); err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	if err := s.Sync(context.Background(), addr); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if got := pool.BalancePlain(addr); got != 1_000 {
		t.Fatalf("expected balance unchanged after repeated sync, got %d", got)
	}
}

func TestSyncMany_StopsAtFirstError(t *testing.T) {
	chain := &fakeChain{utxos: map[string][]domain.Utxo{}}
	runes := &fakeRuneIndex{}
	pool := utxostore.NewManager()
	s := New(chain, runes, pool, nil)

	if err := s.SyncMany(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("SyncMany: %v", err)
	}

	failing := &erroringChain{}
	s = New(failing, runes, pool, nil)
	if err := s.SyncMany(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected SyncMany to return the first sync error")
	}
	if len(failing.calls) != 1 || failing.calls[0] != "a" {
		t.Fatalf("expected SyncMany to stop after the first failing address, got calls %v", failing.calls)
	}
}
