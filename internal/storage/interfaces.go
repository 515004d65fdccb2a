package storage

import (
	"context"

	"solana-security-token/internal/domain"
)

// RegistryStore provides access to restriction_registries storage.
type RegistryStore interface {
	// Insert adds a new registry. Returns ErrDuplicateKey if mint exists.
	Insert(ctx context.Context, r *domain.RestrictionRegistry) error

	// Get retrieves the registry of a mint. Returns ErrNotFound if not exists.
	Get(ctx context.Context, mint string) (*domain.RestrictionRegistry, error)

	// Update overwrites an existing registry. Returns ErrNotFound if not exists.
	Update(ctx context.Context, r *domain.RestrictionRegistry) error
}

// GroupStore provides access to transfer_groups storage.
type GroupStore interface {
	// Insert adds a new group. Returns ErrDuplicateKey if (mint, id) exists.
	Insert(ctx context.Context, g *domain.Group) error

	// Get retrieves a group. Returns ErrNotFound if not exists.
	Get(ctx context.Context, mint string, id uint64) (*domain.Group, error)

	// Update overwrites an existing group. Returns ErrNotFound if not exists.
	Update(ctx context.Context, g *domain.Group) error

	// ListByMint retrieves all groups of a mint, ordered by id ASC.
	ListByMint(ctx context.Context, mint string) ([]*domain.Group, error)
}

// HolderStore provides access to holders storage.
type HolderStore interface {
	// Insert adds a new holder. Returns ErrDuplicateKey if (mint, id) exists.
	Insert(ctx context.Context, h *domain.Holder) error

	// Get retrieves a holder. Returns ErrNotFound if not exists.
	Get(ctx context.Context, mint string, id uint64) (*domain.Holder, error)

	// Update overwrites an existing holder. Returns ErrNotFound if not exists.
	Update(ctx context.Context, h *domain.Holder) error

	// Delete removes a holder. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, mint string, id uint64) error
}

// HolderGroupStore provides access to holder_groups storage.
type HolderGroupStore interface {
	// Insert adds a new association. Returns ErrDuplicateKey if (mint, group, holder) exists.
	Insert(ctx context.Context, hg *domain.HolderGroup) error

	// Get retrieves an association. Returns ErrNotFound if not exists.
	Get(ctx context.Context, mint string, group, holder uint64) (*domain.HolderGroup, error)

	// Update overwrites an existing association. Returns ErrNotFound if not exists.
	Update(ctx context.Context, hg *domain.HolderGroup) error

	// Delete removes an association. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, mint string, group, holder uint64) error
}

// WalletStore provides access to wallet_bindings storage.
type WalletStore interface {
	// Insert adds a new binding. Returns ErrDuplicateKey if (mint, wallet) exists.
	Insert(ctx context.Context, w *domain.WalletBinding) error

	// Get retrieves the binding of a wallet. Returns ErrNotFound if not exists.
	Get(ctx context.Context, mint, wallet string) (*domain.WalletBinding, error)

	// Update overwrites an existing binding. Returns ErrNotFound if not exists.
	Update(ctx context.Context, w *domain.WalletBinding) error

	// Delete removes a binding. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, mint, wallet string) error
}

// TransferRuleStore provides access to transfer_rules storage.
type TransferRuleStore interface {
	// Insert adds a new rule. Returns ErrDuplicateKey if (mint, from, to) exists.
	Insert(ctx context.Context, r *domain.TransferRule) error

	// Get retrieves a rule. Returns ErrNotFound if not exists.
	Get(ctx context.Context, mint string, groupFrom, groupTo uint64) (*domain.TransferRule, error)

	// Update overwrites an existing rule. Returns ErrNotFound if not exists.
	Update(ctx context.Context, r *domain.TransferRule) error
}

// BalanceStore provides access to token_balances storage.
type BalanceStore interface {
	// Get returns the balance of a wallet. Missing wallets have a zero balance.
	Get(ctx context.Context, mint, wallet string) (uint64, error)

	// Set overwrites the balance of a wallet.
	Set(ctx context.Context, mint, wallet string, amount uint64) error
}

// DeploymentStore provides access to vesting_deployments storage.
type DeploymentStore interface {
	// Insert adds a new deployment. Returns ErrDuplicateKey if address exists.
	Insert(ctx context.Context, d *domain.VestingDeployment) error

	// Get retrieves a deployment. Returns ErrNotFound if not exists.
	Get(ctx context.Context, address string) (*domain.VestingDeployment, error)

	// GetByEscrow retrieves the deployment of mint whose escrow is wallet.
	// Returns ErrNotFound if wallet is no escrow of mint.
	GetByEscrow(ctx context.Context, mint, wallet string) (*domain.VestingDeployment, error)

	// Update overwrites an existing deployment. Returns ErrNotFound if not exists.
	Update(ctx context.Context, d *domain.VestingDeployment) error
}

// ScheduleStore provides access to release_schedules storage. Append-only.
type ScheduleStore interface {
	// Insert adds a new schedule. Returns ErrDuplicateKey if (deployment, id) exists.
	Insert(ctx context.Context, s *domain.ReleaseSchedule) error

	// Get retrieves a schedule. Returns ErrNotFound if not exists.
	Get(ctx context.Context, deployment string, id uint64) (*domain.ReleaseSchedule, error)

	// ListByDeployment retrieves all schedules of a deployment, ordered by id ASC.
	ListByDeployment(ctx context.Context, deployment string) ([]*domain.ReleaseSchedule, error)
}

// TimelockStore provides access to timelocks storage.
type TimelockStore interface {
	// Insert adds a new timelock. Returns ErrDuplicateKey if (deployment, recipient, id) exists.
	Insert(ctx context.Context, t *domain.Timelock) error

	// Get retrieves a timelock. Returns ErrNotFound if not exists.
	Get(ctx context.Context, deployment, recipient string, id uint64) (*domain.Timelock, error)

	// Update overwrites an existing timelock. Returns ErrNotFound if not exists.
	Update(ctx context.Context, t *domain.Timelock) error

	// ListByRecipient retrieves all timelocks of a recipient, ordered by id ASC.
	ListByRecipient(ctx context.Context, deployment, recipient string) ([]*domain.Timelock, error)

	// CountByRecipient returns the number of timelocks ever created for a recipient.
	CountByRecipient(ctx context.Context, deployment, recipient string) (uint64, error)
}

// Tx exposes every record store bound to one atomic unit of work.
type Tx interface {
	Registries() RegistryStore
	Groups() GroupStore
	Holders() HolderStore
	HolderGroups() HolderGroupStore
	Wallets() WalletStore
	TransferRules() TransferRuleStore
	Balances() BalanceStore
	Deployments() DeploymentStore
	Schedules() ScheduleStore
	Timelocks() TimelockStore
}

// Store runs operations atomically. When fn returns an error every mutation
// made through tx is discarded.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// AuditEventStore provides access to audit_events storage. Append-only.
type AuditEventStore interface {
	// InsertBulk appends events. Returns ErrDuplicateKey if an id exists.
	InsertBulk(ctx context.Context, events []*domain.AuditEvent) error

	// ListByMint retrieves the most recent events of a mint, newest first.
	ListByMint(ctx context.Context, mint string, limit int) ([]*domain.AuditEvent, error)
}
