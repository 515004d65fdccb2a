package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-security-token/internal/observability"
	"solana-security-token/internal/storage"
)

// Store implements storage.Store using PostgreSQL transactions.
// Reads inside a transaction lock the rows they return, so concurrent
// operations on the same records serialize.
type Store struct {
	pool *Pool
}

// NewStore creates a new Store.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Compile-time interface check.
var (
	_ storage.Store = (*Store)(nil)
	_ storage.Tx    = (*tx)(nil)
)

// RunInTx runs fn in a database transaction and commits it if fn returns nil.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) (err error) {
	start := time.Now()
	defer func() { observability.RecordDBQuery("postgres", "tx", time.Since(start).Seconds(), err) }()

	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer pgTx.Rollback(ctx)

	if err := fn(ctx, &tx{q: pgTx}); err != nil {
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// tx binds the record stores to one pgx transaction.
type tx struct {
	q querier
}

func (t *tx) Registries() storage.RegistryStore { return &RegistryStore{q: t.q} }
func (t *tx) Groups() storage.GroupStore { return &GroupStore{q: t.q} }
func (t *tx) Holders() storage.HolderStore { return &HolderStore{q: t.q} }
func (t *tx) HolderGroups() storage.HolderGroupStore { return &HolderGroupStore{q: t.q} }
func (t *tx) Wallets() storage.WalletStore { return &WalletStore{q: t.q} }
func (t *tx) TransferRules() storage.TransferRuleStore { return &TransferRuleStore{q: t.q} }
func (t *tx) Balances() storage.BalanceStore { return &BalanceStore{q: t.q} }
func (t *tx) Deployments() storage.DeploymentStore { return &DeploymentStore{q: t.q} }
func (t *tx) Schedules() storage.ScheduleStore { return &ScheduleStore{q: t.q} }
func (t *tx) Timelocks() storage.TimelockStore { return &TimelockStore{q: t.q} }
