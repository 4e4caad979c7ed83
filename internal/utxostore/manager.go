// Package utxostore is the UTXO Manager: the mutex-guarded, in-memory
// source of truth for which unspent outputs belong to which address,
// split into a plain-bitcoin pool and a per-rune pool. All mutation
// happens inside short, non-blocking critical sections — no network or
// disk I/O runs while the lock is held.
package utxostore

import (
	"sync"

	"github.com/Fantasim/hdwallet/internal/domain"
	"lukechampine.com/uint128"
)

// Manager owns the plain and runic UTXO pools for every address the
// wallet controls. A UTXO belongs to exactly one pool at a time: taken
// UTXOs are removed from the pool until they are either spent (dropped
// for good) or returned (the ones a successful build left undrawn, or
// every drawn one when a build fails). UTXOs of a transaction whose
// broadcast fails are not returned.
type Manager struct {
	mu    sync.Mutex
	plain map[string]map[domain.OutPoint]domain.Utxo
	runic map[string]map[domain.RuneId]map[domain.OutPoint]domain.RunicUtxo
}

func NewManager() *Manager {
	return &Manager{
		plain: make(map[string]map[domain.OutPoint]domain.Utxo),
		runic: make(map[string]map[domain.RuneId]map[domain.OutPoint]domain.RunicUtxo),
	}
}

// RecordPlain replaces the plain-bitcoin pool for addr with utxos,
// idempotent on OutPoint. Called by the synchronizer after a fetch.
func (m *Manager) RecordPlain(addr string, utxos []domain.Utxo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pool := make(map[domain.OutPoint]domain.Utxo, len(utxos))
	for _, u := range utxos {
		pool[u.OutPoint] = u
	}
	m.plain[addr] = pool
}

// RecordRunic replaces the pool of a single rune for addr.
func (m *Manager) RecordRunic(addr string, runeID domain.RuneId, utxos []domain.RunicUtxo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byRune, ok := m.runic[addr]
	if !ok {
		byRune = make(map[domain.RuneId]map[domain.OutPoint]domain.RunicUtxo)
		m.runic[addr] = byRune
	}
	pool := make(map[domain.OutPoint]domain.RunicUtxo, len(utxos))
	for _, u := range utxos {
		pool[u.Utxo.OutPoint] = u
	}
	byRune[runeID] = pool
}

// TakeAllPlain removes and returns every plain UTXO currently held for
// addr. The fee-converging builder draws from this set directly; any
// UTXO not consumed in the final build must be returned with
// ReturnPlain.
func (m *Manager) TakeAllPlain(addr string) []domain.Utxo {
	m.mu.Lock()
	defer m.mu.Unlock()
	pool := m.plain[addr]
	if len(pool) == 0 {
		return nil
	}
	out := make([]domain.Utxo, 0, len(pool))
	for _, u := range pool {
		out = append(out, u)
	}
	delete(m.plain, addr)
	return out
}

// TakeAllRunic removes and returns every UTXO of rune currently held
// for addr.
func (m *Manager) TakeAllRunic(addr string, runeID domain.RuneId) []domain.RunicUtxo {
	m.mu.Lock()
	defer m.mu.Unlock()
	byRune, ok := m.runic[addr]
	if !ok {
		return nil
	}
	pool := byRune[runeID]
	if len(pool) == 0 {
		return nil
	}
	out := make([]domain.RunicUtxo, 0, len(pool))
	for _, u := range pool {
		out = append(out, u)
	}
	delete(byRune, runeID)
	return out
}

// ReturnPlain puts utxos back into addr's plain pool. A no-op for an
// empty slice. Used to give back UTXOs drawn speculatively during fee
// convergence but not needed by the final build.
func (m *Manager) ReturnPlain(addr string, utxos []domain.Utxo) {
	if len(utxos) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	pool, ok := m.plain[addr]
	if !ok {
		pool = make(map[domain.OutPoint]domain.Utxo)
		m.plain[addr] = pool
	}
	for _, u := range utxos {
		pool[u.OutPoint] = u
	}
}

// ReturnRunic puts utxos back into addr's pool for rune.
func (m *Manager) ReturnRunic(addr string, runeID domain.RuneId, utxos []domain.RunicUtxo) {
	if len(utxos) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byRune, ok := m.runic[addr]
	if !ok {
		byRune = make(map[domain.RuneId]map[domain.OutPoint]domain.RunicUtxo)
		m.runic[addr] = byRune
	}
	pool, ok := byRune[runeID]
	if !ok {
		pool = make(map[domain.OutPoint]domain.RunicUtxo)
		byRune[runeID] = pool
	}
	for _, u := range utxos {
		pool[u.Utxo.OutPoint] = u
	}
}

// BalancePlain sums the plain pool's value for addr without consuming
// it, for balance-query operations.
func (m *Manager) BalancePlain(addr string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total uint64
	for _, u := range m.plain[addr] {
		total += u.Value
	}
	return total
}

// BalanceRune sums rune's balance for addr without consuming it.
func (m *Manager) BalanceRune(addr string, runeID domain.RuneId) uint128.Uint128 {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := uint128.Zero
	for _, u := range m.runic[addr][runeID] {
		total = total.Add(u.Balance)
	}
	return total
}

// RuneBalances returns every rune balance currently held for addr,
// keyed by RuneId, without consuming the pools.
func (m *Manager) RuneBalances(addr string) map[domain.RuneId]uint128.Uint128 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[domain.RuneId]uint128.Uint128)
	for runeID, pool := range m.runic[addr] {
		total := uint128.Zero
		for _, u := range pool {
			total = total.Add(u.Balance)
		}
		out[runeID] = total
	}
	return out
}
