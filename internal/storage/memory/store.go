// Package memory provides in-memory storage implementations for tests and
// single-process deployments.
package memory

import (
	"context"
	"maps"
	"sync"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/storage"
)

type idKey struct {
	mint string
	id   uint64
}

type holderGroupKey struct {
	mint   string
	group  uint64
	holder uint64
}

type walletKey struct {
	mint   string
	wallet string
}

type ruleKey struct {
	mint     string
	from, to uint64
}

type scheduleKey struct {
	deployment string
	id         uint64
}

type recipientKey struct {
	deployment string
	recipient  string
}

type timelockKey struct {
	recipientKey
	id uint64
}

// state holds every record. Values are owned by the state and never handed out.
type state struct {
	registries   map[string]*domain.RestrictionRegistry
	groups       map[idKey]*domain.Group
	holders      map[idKey]*domain.Holder
	holderGroups map[holderGroupKey]*domain.HolderGroup
	wallets      map[walletKey]*domain.WalletBinding
	rules        map[ruleKey]*domain.TransferRule
	balances     map[walletKey]uint64
	deployments  map[string]*domain.VestingDeployment
	schedules    map[scheduleKey]*domain.ReleaseSchedule
	timelocks    map[timelockKey]*domain.Timelock
	counts       map[recipientKey]uint64
}

func newState() *state {
	return &state{
		registries:   make(map[string]*domain.RestrictionRegistry),
		groups:       make(map[idKey]*domain.Group),
		holders:      make(map[idKey]*domain.Holder),
		holderGroups: make(map[holderGroupKey]*domain.HolderGroup),
		wallets:      make(map[walletKey]*domain.WalletBinding),
		rules:        make(map[ruleKey]*domain.TransferRule),
		balances:     make(map[walletKey]uint64),
		deployments:  make(map[string]*domain.VestingDeployment),
		schedules:    make(map[scheduleKey]*domain.ReleaseSchedule),
		timelocks:    make(map[timelockKey]*domain.Timelock),
		counts:       make(map[recipientKey]uint64),
	}
}

// clone copies the maps. Records are replaced, never mutated in place, so the
// pointers can be shared between a state and its clone.
func (s *state) clone() *state {
	return &state{
		registries:   maps.Clone(s.registries),
		groups:       maps.Clone(s.groups),
		holders:      maps.Clone(s.holders),
		holderGroups: maps.Clone(s.holderGroups),
		wallets:      maps.Clone(s.wallets),
		rules:        maps.Clone(s.rules),
		balances:     maps.Clone(s.balances),
		deployments:  maps.Clone(s.deployments),
		schedules:    maps.Clone(s.schedules),
		timelocks:    maps.Clone(s.timelocks),
		counts:       maps.Clone(s.counts),
	}
}

// Store is an in-memory implementation of storage.Store.
// Operations are serialized; each runs against a working copy that replaces
// the committed state only when the operation succeeds.
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{state: newState()}
}

// RunInTx runs fn on a working copy and commits it if fn returns nil.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.state.clone()
	if err := fn(ctx, &tx{s: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// tx binds the record stores to one working copy.
type tx struct {
	s *state
}

func (t *tx) Registries() storage.RegistryStore { return &RegistryStore{s: t.s} }
func (t *tx) Groups() storage.GroupStore { return &GroupStore{s: t.s} }
func (t *tx) Holders() storage.HolderStore { return &HolderStore{s: t.s} }
func (t *tx) HolderGroups() storage.HolderGroupStore { return &HolderGroupStore{s: t.s} }
func (t *tx) Wallets() storage.WalletStore { return &WalletStore{s: t.s} }
func (t *tx) TransferRules() storage.TransferRuleStore { return &TransferRuleStore{s: t.s} }
func (t *tx) Balances() storage.BalanceStore { return &BalanceStore{s: t.s} }
func (t *tx) Deployments() storage.DeploymentStore { return &DeploymentStore{s: t.s} }
func (t *tx) Schedules() storage.ScheduleStore { return &ScheduleStore{s: t.s} }
func (t *tx) Timelocks() storage.TimelockStore { return &TimelockStore{s: t.s} }

// Verify interface compliance at compile time.
var (
	_ storage.Store = (*Store)(nil)
	_ storage.Tx    = (*tx)(nil)
)
