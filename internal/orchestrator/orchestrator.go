// Package orchestrator is the Withdrawal Orchestrator: the thin state
// machine that turns a user-facing request (build, resync-and-rebuild
// once on shortfall, sign, broadcast) into a fee-converging, signed,
// broadcast transaction. No balance check or sync runs before the first
// build; a shortfall from that build triggers the one resync. It owns no
// business logic of its own beyond that pipeline — every step below it
// is delegated to internal/txbuilder, internal/signer, internal/sync.
package orchestrator

import (
	"context"
	"log/slog"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/Fantasim/hdwallet/internal/addressing"
	"github.com/Fantasim/hdwallet/internal/chainrpc"
	"github.com/Fantasim/hdwallet/internal/config"
	"github.com/Fantasim/hdwallet/internal/domain"
	"github.com/Fantasim/hdwallet/internal/oracle"
	"github.com/Fantasim/hdwallet/internal/sync"
	"github.com/Fantasim/hdwallet/internal/utxostore"
	"lukechampine.com/uint128"
)

// Orchestrator wires the core packages together into the seven
// user-facing operations spec.md names, plus the RuneBalancesOf
// supplement.
type Orchestrator struct {
	cfg    *config.Config
	pool   *utxostore.Manager
	syncer *sync.Synchronizer
	chain  chainrpc.Client
	oracle oracle.Signer
	net    *chaincfg.Params
	log    *slog.Logger
}

func New(cfg *config.Config, pool *utxostore.Manager, syncer *sync.Synchronizer, chain chainrpc.Client, oracleClient oracle.Signer, netParams *chaincfg.Params, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{cfg: cfg, pool: pool, syncer: syncer, chain: chain, oracle: oracleClient, net: netParams, log: log}
}

func (o *Orchestrator) rootPublicKey(ctx context.Context) (*config.OraclePublicKey, error) {
	return o.cfg.EnsureOraclePublicKey(ctx, o.oracle)
}

// DepositAddresses derives the principal-bound deposit address for
// owner, the address every plain BTC and rune balance is held under.
func (o *Orchestrator) DepositAddresses(ctx context.Context, owner []byte) (*addressing.Derived, error) {
	root, err := o.rootPublicKey(ctx)
	if err != nil {
		return nil, err
	}
	account := domain.Account{Owner: owner, Subaccount: addressing.PrincipalToSubaccount(owner)}
	return addressing.AddressForAccount(root, o.net, account)
}

// DepositAddressForNum derives the Nth numbered address issued to a
// service identity, the supplemented generate_address(num) operation.
func (o *Orchestrator) DepositAddressForNum(ctx context.Context, serviceID []byte, num uint128.Uint128) (*addressing.Derived, error) {
	root, err := o.rootPublicKey(ctx)
	if err != nil {
		return nil, err
	}
	subaccount := addressing.SubaccountWithNum(serviceID, num)
	account := domain.Account{Owner: serviceID, Subaccount: subaccount}
	path := account.ToDerivationPath()
	return addressing.AddressForPath(root, o.net, serviceID, subaccount, path)
}

// BalanceBTC resyncs owner's deposit address and returns its plain
// bitcoin balance in sats.
func (o *Orchestrator) BalanceBTC(ctx context.Context, owner []byte) (uint64, error) {
	derived, err := o.DepositAddresses(ctx, owner)
	if err != nil {
		return 0, err
	}
	addr := derived.Address.EncodeAddress()
	if err := o.syncer.Sync(ctx, addr); err != nil {
		return 0, err
	}
	return o.pool.BalancePlain(addr), nil
}

// BalanceRunes resyncs owner's deposit address and returns every rune
// balance it currently holds.
func (o *Orchestrator) BalanceRunes(ctx context.Context, owner []byte) (map[domain.RuneId]uint128.Uint128, error) {
	derived, err := o.DepositAddresses(ctx, owner)
	if err != nil {
		return nil, err
	}
	addr := derived.Address.EncodeAddress()
	if err := o.syncer.Sync(ctx, addr); err != nil {
		return nil, err
	}
	return o.pool.RuneBalances(addr), nil
}

// RuneBalancesOf is the supplemented get_runestone_balance_of
// operation: a force-resync-then-read of rune balances for an
// arbitrary address, not just one of the wallet's own deposit
// addresses.
func (o *Orchestrator) RuneBalancesOf(ctx context.Context, address string) (map[domain.RuneId]uint128.Uint128, error) {
	if err := o.syncer.Sync(ctx, address); err != nil {
		return nil, err
	}
	return o.pool.RuneBalances(address), nil
}

func (o *Orchestrator) feeRate(ctx context.Context) (uint64, error) {
	return chainrpc.FeeRatePerVByte(ctx, o.chain)
}
