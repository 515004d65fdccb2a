package vesting

import (
	"context"
	"fmt"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/storage"
)

// Balances splits the principal still held in escrow at one instant.
type Balances struct {
	Total    uint64 `json:"total"`    // not yet moved out of escrow
	Unlocked uint64 `json:"unlocked"` // withdrawable now
	Locked   uint64 `json:"locked"`   // not yet released
}

func (b *Balances) add(t *domain.Timelock, s *domain.ReleaseSchedule, now uint64) {
	b.Total += t.Remaining()
	b.Unlocked += TransferableBalance(t, s, now)
	b.Locked += LockedBalance(t, s, now)
}

// Deployment returns one deployment.
func (s *Service) Deployment(ctx context.Context, addr string) (*domain.VestingDeployment, error) {
	var out *domain.VestingDeployment
	err := s.runner.Read(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		out, err = loadDeployment(ctx, tx, nil, addr)
		return err
	})
	return out, err
}

// Schedules returns the schedules of a deployment in creation order.
func (s *Service) Schedules(ctx context.Context, deployment string) ([]*domain.ReleaseSchedule, error) {
	var out []*domain.ReleaseSchedule
	err := s.runner.Read(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := loadDeployment(ctx, tx, nil, deployment); err != nil {
			return err
		}
		var err error
		out, err = tx.Schedules().ListByDeployment(ctx, deployment)
		return err
	})
	return out, err
}

// Schedule returns one schedule of a deployment.
func (s *Service) Schedule(ctx context.Context, deployment string, id uint64) (*domain.ReleaseSchedule, error) {
	var out *domain.ReleaseSchedule
	err := s.runner.Read(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		out, err = loadSchedule(ctx, tx, deployment, id)
		return err
	})
	return out, err
}

// ScheduleCount returns the number of schedules of a deployment.
func (s *Service) ScheduleCount(ctx context.Context, deployment string) (uint64, error) {
	d, err := s.Deployment(ctx, deployment)
	if err != nil {
		return 0, err
	}
	return d.ScheduleCount, nil
}

// Timelocks returns every timelock of recipient, cancelled and exhausted ones
// included.
func (s *Service) Timelocks(ctx context.Context, deployment, recipient string) ([]*domain.Timelock, error) {
	var out []*domain.Timelock
	err := s.runner.Read(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := loadDeployment(ctx, tx, nil, deployment); err != nil {
			return err
		}
		var err error
		out, err = tx.Timelocks().ListByRecipient(ctx, deployment, recipient)
		return err
	})
	return out, err
}

// TimelockCountOf returns how many timelocks were ever minted for recipient.
func (s *Service) TimelockCountOf(ctx context.Context, deployment, recipient string) (uint64, error) {
	var n uint64
	err := s.runner.Read(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := loadDeployment(ctx, tx, nil, deployment); err != nil {
			return err
		}
		var err error
		n, err = tx.Timelocks().CountByRecipient(ctx, deployment, recipient)
		return err
	})
	return n, err
}

// TimelockBalance returns the balances of one timelock now.
func (s *Service) TimelockBalance(ctx context.Context, deployment, recipient string, id uint64) (Balances, error) {
	now, err := s.now(ctx)
	if err != nil {
		return Balances{}, err
	}
	var b Balances
	err = s.runner.Read(ctx, func(ctx context.Context, tx storage.Tx) error {
		t, err := loadTimelock(ctx, tx, deployment, recipient, id)
		if err != nil {
			return err
		}
		sched, err := loadSchedule(ctx, tx, deployment, t.ScheduleID)
		if err != nil {
			return err
		}
		b.add(t, sched, now)
		return nil
	})
	return b, err
}

// RecipientBalance sums the balances of every timelock of recipient now.
func (s *Service) RecipientBalance(ctx context.Context, deployment, recipient string) (Balances, error) {
	now, err := s.now(ctx)
	if err != nil {
		return Balances{}, err
	}
	var b Balances
	err = s.runner.Read(ctx, func(ctx context.Context, tx storage.Tx) error {
		b = Balances{}
		if _, err := loadDeployment(ctx, tx, nil, deployment); err != nil {
			return err
		}
		locks, err := tx.Timelocks().ListByRecipient(ctx, deployment, recipient)
		if err != nil {
			return fmt.Errorf("list timelocks: %w", err)
		}
		schedules := make(map[uint64]*domain.ReleaseSchedule)
		for _, t := range locks {
			sched, ok := schedules[t.ScheduleID]
			if !ok {
				if sched, err = loadSchedule(ctx, tx, deployment, t.ScheduleID); err != nil {
					return err
				}
				schedules[t.ScheduleID] = sched
			}
			b.add(t, sched, now)
		}
		return nil
	})
	return b, err
}

// ScheduleTimeline returns the release points of schedule id for a grant of
// amount commencing at commencement.
func (s *Service) ScheduleTimeline(ctx context.Context, deployment string, id, commencement, amount uint64) ([]ReleasePoint, error) {
	sched, err := s.Schedule(ctx, deployment, id)
	if err != nil {
		return nil, err
	}
	return Timeline(sched, commencement, amount), nil
}
