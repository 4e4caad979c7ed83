// Package sync is the UTXO Synchronizer: it pulls the current UTXO set
// for an address from the Bitcoin node interface and the Rune indexer
// and reconciles both into the UTXO Manager's pools. It holds no state
// of its own beyond the collaborators it was built with.
package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Fantasim/hdwallet/internal/chainrpc"
	"github.com/Fantasim/hdwallet/internal/domain"
	"github.com/Fantasim/hdwallet/internal/runeindex"
	"github.com/Fantasim/hdwallet/internal/utxostore"
)

// Synchronizer reconciles the Bitcoin-interface and Rune-indexer views
// of an address's UTXOs into the manager's pools.
type Synchronizer struct {
	chain chainrpc.Client
	runes runeindex.Client
	pool  *utxostore.Manager
	log   *slog.Logger
}

func New(chain chainrpc.Client, runes runeindex.Client, pool *utxostore.Manager, log *slog.Logger) *Synchronizer {
	if log == nil {
		log = slog.Default()
	}
	return &Synchronizer{chain: chain, runes: runes, pool: pool, log: log}
}

// Sync fetches every confirmed UTXO at address from both collaborators
// and records them into the pool, replacing whatever the pool held for
// address before. Replacing on OutPoint keys makes this operation
// idempotent: calling Sync twice in a row with an unchanged remote view
// leaves the pool in the same state.
//
// A runic UTXO reported by the indexer is excluded from the plain pool
// even if the node interface also lists it among address's confirmed
// outputs, since runic UTXOs are never eligible for plain selection.
func (s *Synchronizer) Sync(ctx context.Context, address string) error {
	chainUTXOs, err := s.chain.ListUTXOs(ctx, address)
	if err != nil {
		return fmt.Errorf("sync %s: list chain utxos: %w", address, err)
	}

	runicUTXOs, err := s.runes.RunicUTXOs(ctx, address)
	if err != nil {
		return fmt.Errorf("sync %s: list runic utxos: %w", address, err)
	}

	runic := make(map[domain.OutPoint]bool, len(runicUTXOs))
	byRune := make(map[domain.RuneId][]domain.RunicUtxo)
	for _, ru := range runicUTXOs {
		runic[ru.Utxo.OutPoint] = true
		byRune[ru.RuneID] = append(byRune[ru.RuneID], ru)
	}

	plain := make([]domain.Utxo, 0, len(chainUTXOs))
	for _, u := range chainUTXOs {
		if runic[u.OutPoint] {
			continue
		}
		plain = append(plain, u)
	}

	s.pool.RecordPlain(address, plain)
	for runeID, utxos := range byRune {
		s.pool.RecordRunic(address, runeID, utxos)
	}
	for runeID := range s.pool.RuneBalances(address) {
		if _, ok := byRune[runeID]; !ok {
			s.pool.TakeAllRunic(address, runeID)
		}
	}

	s.log.Debug("synced address",
		"address", address,
		"plain_utxos", len(plain),
		"runes_held", len(byRune),
	)
	return nil
}

// SyncMany syncs every address in addresses, stopping at the first
// error. Used by the orchestrator when a withdrawal needs a fresh view
// of more than one address (e.g. the two-sender and combined shapes).
func (s *Synchronizer) SyncMany(ctx context.Context, addresses []string) error {
	for _, addr := range addresses {
		if err := s.Sync(ctx, addr); err != nil {
			return err
		}
	}
	return nil
}
