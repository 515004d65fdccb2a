package memory

import (
	"context"
	"sort"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/storage"
)

// DeploymentStore is an in-memory implementation of storage.DeploymentStore.
type DeploymentStore struct {
	s *state
}

// Insert adds a new deployment. Returns ErrDuplicateKey if address exists.
func (d *DeploymentStore) Insert(_ context.Context, dep *domain.VestingDeployment) error {
	if dep == nil || dep.Address == "" {
		return storage.ErrInvalidInput
	}
	if _, exists := d.s.deployments[dep.Address]; exists {
		return storage.ErrDuplicateKey
	}
	depCopy := *dep
	d.s.deployments[dep.Address] = &depCopy
	return nil
}

// Get retrieves a deployment. Returns ErrNotFound if not exists.
func (d *DeploymentStore) Get(_ context.Context, address string) (*domain.VestingDeployment, error) {
	dep, exists := d.s.deployments[address]
	if !exists {
		return nil, storage.ErrNotFound
	}
	depCopy := *dep
	return &depCopy, nil
}

// GetByEscrow retrieves the deployment of mint whose escrow is wallet.
// Returns ErrNotFound if wallet is no escrow of mint.
func (d *DeploymentStore) GetByEscrow(_ context.Context, mint, wallet string) (*domain.VestingDeployment, error) {
	for _, dep := range d.s.deployments {
		if dep.Mint == mint && dep.EscrowWallet == wallet {
			depCopy := *dep
			return &depCopy, nil
		}
	}
	return nil, storage.ErrNotFound
}

// Update overwrites an existing deployment. Returns ErrNotFound if not exists.
func (d *DeploymentStore) Update(_ context.Context, dep *domain.VestingDeployment) error {
	if dep == nil {
		return storage.ErrInvalidInput
	}
	if _, exists := d.s.deployments[dep.Address]; !exists {
		return storage.ErrNotFound
	}
	depCopy := *dep
	d.s.deployments[dep.Address] = &depCopy
	return nil
}

// ScheduleStore is an in-memory implementation of storage.ScheduleStore.
type ScheduleStore struct {
	s *state
}

// Insert adds a new schedule. Returns ErrDuplicateKey if (deployment, id) exists.
func (sc *ScheduleStore) Insert(_ context.Context, rs *domain.ReleaseSchedule) error {
	if rs == nil || rs.Deployment == "" {
		return storage.ErrInvalidInput
	}
	key := scheduleKey{rs.Deployment, rs.ID}
	if _, exists := sc.s.schedules[key]; exists {
		return storage.ErrDuplicateKey
	}
	rsCopy := *rs
	sc.s.schedules[key] = &rsCopy
	return nil
}

// Get retrieves a schedule. Returns ErrNotFound if not exists.
func (sc *ScheduleStore) Get(_ context.Context, deployment string, id uint64) (*domain.ReleaseSchedule, error) {
	rs, exists := sc.s.schedules[scheduleKey{deployment, id}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	rsCopy := *rs
	return &rsCopy, nil
}

// ListByDeployment retrieves all schedules of a deployment, ordered by id ASC.
func (sc *ScheduleStore) ListByDeployment(_ context.Context, deployment string) ([]*domain.ReleaseSchedule, error) {
	var result []*domain.ReleaseSchedule
	for key, rs := range sc.s.schedules {
		if key.deployment == deployment {
			rsCopy := *rs
			result = append(result, &rsCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// TimelockStore is an in-memory implementation of storage.TimelockStore.
type TimelockStore struct {
	s *state
}

// Insert adds a new timelock. Returns ErrDuplicateKey if (deployment, recipient, id) exists.
func (tl *TimelockStore) Insert(_ context.Context, t *domain.Timelock) error {
	if t == nil || t.Deployment == "" || t.Recipient == "" {
		return storage.ErrInvalidInput
	}
	rk := recipientKey{t.Deployment, t.Recipient}
	key := timelockKey{rk, t.ID}
	if _, exists := tl.s.timelocks[key]; exists {
		return storage.ErrDuplicateKey
	}
	tl.s.timelocks[key] = t.Clone()
	if t.ID >= tl.s.counts[rk] {
		tl.s.counts[rk] = t.ID + 1
	}
	return nil
}

// Get retrieves a timelock. Returns ErrNotFound if not exists.
func (tl *TimelockStore) Get(_ context.Context, deployment, recipient string, id uint64) (*domain.Timelock, error) {
	t, exists := tl.s.timelocks[timelockKey{recipientKey{deployment, recipient}, id}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return t.Clone(), nil
}

// Update overwrites an existing timelock. Returns ErrNotFound if not exists.
func (tl *TimelockStore) Update(_ context.Context, t *domain.Timelock) error {
	if t == nil {
		return storage.ErrInvalidInput
	}
	key := timelockKey{recipientKey{t.Deployment, t.Recipient}, t.ID}
	if _, exists := tl.s.timelocks[key]; !exists {
		return storage.ErrNotFound
	}
	tl.s.timelocks[key] = t.Clone()
	return nil
}

// ListByRecipient retrieves all timelocks of a recipient, ordered by id ASC.
func (tl *TimelockStore) ListByRecipient(_ context.Context, deployment, recipient string) ([]*domain.Timelock, error) {
	rk := recipientKey{deployment, recipient}
	var result []*domain.Timelock
	for key, t := range tl.s.timelocks {
		if key.recipientKey == rk {
			result = append(result, t.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// CountByRecipient returns the number of timelocks ever created for a recipient.
func (tl *TimelockStore) CountByRecipient(_ context.Context, deployment, recipient string) (uint64, error) {
	return tl.s.counts[recipientKey{deployment, recipient}], nil
}

var (
	_ storage.DeploymentStore = (*DeploymentStore)(nil)
	_ storage.ScheduleStore   = (*ScheduleStore)(nil)
	_ storage.TimelockStore   = (*TimelockStore)(nil)
)
