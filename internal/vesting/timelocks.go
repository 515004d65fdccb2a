package vesting

import (
	"context"
	"fmt"
	"math"

	"solana-security-token/internal/access"
	"solana-security-token/internal/audit"
	"solana-security-token/internal/domain"
	"solana-security-token/internal/enforcement"
	"solana-security-token/internal/observability"
	"solana-security-token/internal/solana"
	"solana-security-token/internal/storage"
	"solana-security-token/internal/token"
)

// MintParams describe a new timelock.
type MintParams struct {
	Recipient    string
	Amount       uint64
	Commencement uint64
	ScheduleID   uint64
	CancelableBy []string
}

// MintTimelock creates a timelock for p.Recipient and mints p.Amount into the
// deployment escrow. Returns the timelock id.
func (s *Service) MintTimelock(ctx context.Context, caller, deployment string, p MintParams) (uint64, error) {
	meta := s.meta("mint_timelock", caller, deployment, map[string]string{
		"recipient":    p.Recipient,
		"amount":       itoa(p.Amount),
		"commencement": itoa(p.Commencement),
		"schedule_id":  itoa(p.ScheduleID),
	})
	var id uint64
	err := s.runner.Run(ctx, meta, func(ctx context.Context, tx storage.Tx, rec *audit.Recorder) error {
		d, err := loadDeployment(ctx, tx, rec, deployment)
		if err != nil {
			return err
		}
		if err := access.Require(ctx, s.checker, d.Mint, caller, domain.RoleReserveAdmin); err != nil {
			return err
		}
		if !solana.IsValidAddress(p.Recipient) {
			return domain.ErrInvalidAddress
		}
		now, err := s.now(ctx)
		if err != nil {
			return err
		}
		sched, err := loadSchedule(ctx, tx, deployment, p.ScheduleID)
		if err != nil {
			return err
		}
		if err := checkMint(d, sched, p, now); err != nil {
			return err
		}
		for _, c := range p.CancelableBy {
			if !solana.IsValidAddress(c) {
				return domain.ErrInvalidAddress
			}
		}

		id, err = tx.Timelocks().CountByRecipient(ctx, deployment, p.Recipient)
		if err != nil {
			return fmt.Errorf("count timelocks: %w", err)
		}
		t := &domain.Timelock{
			Deployment:            deployment,
			Recipient:             p.Recipient,
			ID:                    id,
			ScheduleID:            p.ScheduleID,
			TotalAmount:           p.Amount,
			CommencementTimestamp: p.Commencement,
			CancelableBy:          append([]string(nil), p.CancelableBy...),
		}
		if err := tx.Timelocks().Insert(ctx, t); err != nil {
			return fmt.Errorf("insert timelock: %w", err)
		}
		if err := token.MintTo(ctx, tx, d.Mint, d.EscrowWallet, p.Amount); err != nil {
			return err
		}
		rec.Annotate("timelock_id", itoa(id))
		return nil
	})
	if err != nil {
		return 0, err
	}
	observability.RecordTimelockMinted(p.Amount)
	return id, nil
}

// checkMint applies the mint preconditions in the order they are reported.
func checkMint(d *domain.VestingDeployment, sched *domain.ReleaseSchedule, p MintParams, now uint64) error {
	if p.Amount < sched.ReleaseCount {
		return domain.ErrPerReleaseTokenLessThanOne
	}
	if p.Amount < d.MinTimelockAmount {
		return domain.ErrAmountBelowMinTimelockAmount
	}
	lo, hi := satSub(now, d.MaxReleaseDelay), satAdd(now, d.MaxReleaseDelay)
	if p.Commencement < lo || p.Commencement > hi {
		return domain.ErrCommencementOutOfRange
	}
	first := satAdd(p.Commencement, sched.DelayUntilFirstReleaseSeconds)
	if first < lo || first > hi {
		return domain.ErrInitialReleaseOutOfRange
	}
	if len(p.CancelableBy) > domain.MaxCancelableAddresses {
		return domain.ErrTooManyCancelableAddresses
	}
	return nil
}

// Withdraw moves amount of the unlocked balance of timelock id from escrow to
// the caller, who must be its recipient.
func (s *Service) Withdraw(ctx context.Context, caller, deployment string, id, amount uint64) error {
	meta := s.meta("withdraw", caller, deployment, map[string]string{
		"timelock_id": itoa(id),
		"amount":      itoa(amount),
	})
	err := s.runner.Run(ctx, meta, func(ctx context.Context, tx storage.Tx, rec *audit.Recorder) error {
		d, err := loadDeployment(ctx, tx, rec, deployment)
		if err != nil {
			return err
		}
		t, err := loadTimelock(ctx, tx, deployment, caller, id)
		if err != nil {
			return err
		}
		if amount == 0 {
			return domain.ErrAmountMustBePositive
		}
		sched, err := loadSchedule(ctx, tx, deployment, t.ScheduleID)
		if err != nil {
			return err
		}
		now, err := s.now(ctx)
		if err != nil {
			return err
		}
		if amount > TransferableBalance(t, sched, now) {
			return domain.ErrAmountExceedsUnlocked
		}

		t.TokensTransferred += amount
		if err := tx.Timelocks().Update(ctx, t); err != nil {
			return fmt.Errorf("update timelock: %w", err)
		}
		return s.release(ctx, tx, rec, d, caller, caller, amount, domain.MovementWithdrawal, now)
	})
	if err != nil {
		return err
	}
	observability.RecordWithdrawal(amount)
	return nil
}

// TransferUnlocked withdraws amount from the caller's timelocks in id order,
// taking each one's unlocked balance until amount is covered.
func (s *Service) TransferUnlocked(ctx context.Context, caller, deployment string, amount uint64) error {
	meta := s.meta("transfer_unlocked", caller, deployment, map[string]string{"amount": itoa(amount)})
	err := s.runner.Run(ctx, meta, func(ctx context.Context, tx storage.Tx, rec *audit.Recorder) error {
		d, err := loadDeployment(ctx, tx, rec, deployment)
		if err != nil {
			return err
		}
		if amount == 0 {
			return domain.ErrAmountMustBePositive
		}
		now, err := s.now(ctx)
		if err != nil {
			return err
		}
		locks, err := tx.Timelocks().ListByRecipient(ctx, deployment, caller)
		if err != nil {
			return fmt.Errorf("list timelocks: %w", err)
		}

		left := amount
		for _, t := range locks {
			if left == 0 {
				break
			}
			sched, err := loadSchedule(ctx, tx, deployment, t.ScheduleID)
			if err != nil {
				return err
			}
			take := min(TransferableBalance(t, sched, now), left)
			if take == 0 {
				continue
			}
			t.TokensTransferred += take
			if err := tx.Timelocks().Update(ctx, t); err != nil {
				return fmt.Errorf("update timelock: %w", err)
			}
			left -= take
		}
		if left != 0 {
			return domain.ErrAmountExceedsUnlocked
		}
		return s.release(ctx, tx, rec, d, caller, caller, amount, domain.MovementWithdrawal, now)
	})
	if err != nil {
		return err
	}
	observability.RecordWithdrawal(amount)
	return nil
}

// CancelResult reports where a cancelled timelock's remaining principal went.
type CancelResult struct {
	PaidOut   uint64 // unlocked, not yet withdrawn; sent to the recipient
	Reclaimed uint64 // still locked; sent to the reclaim wallet
}

// Cancel terminates timelock id of recipient. The caller must be one of its
// cancelers.
func (s *Service) Cancel(ctx context.Context, caller, deployment, recipient string, id uint64, reclaimTo string) (CancelResult, error) {
	meta := s.meta("cancel_timelock", caller, deployment, map[string]string{
		"recipient":   recipient,
		"timelock_id": itoa(id),
		"reclaim_to":  reclaimTo,
	})
	var res CancelResult
	err := s.runner.Run(ctx, meta, func(ctx context.Context, tx storage.Tx, rec *audit.Recorder) error {
		res = CancelResult{}
		d, err := loadDeployment(ctx, tx, rec, deployment)
		if err != nil {
			return err
		}
		t, err := loadTimelock(ctx, tx, deployment, recipient, id)
		if err != nil {
			return err
		}
		if !t.CanBeCancelledBy(caller) {
			return domain.ErrPermissionDenied
		}
		if t.Exhausted() {
			return domain.ErrTimelockHasNoValueLeft
		}
		if !solana.IsValidAddress(reclaimTo) {
			return domain.ErrInvalidAddress
		}
		sched, err := loadSchedule(ctx, tx, deployment, t.ScheduleID)
		if err != nil {
			return err
		}
		now, err := s.now(ctx)
		if err != nil {
			return err
		}

		res.PaidOut = TransferableBalance(t, sched, now)
		res.Reclaimed = LockedBalance(t, sched, now)
		t.TokensTransferred = t.TotalAmount
		if err := tx.Timelocks().Update(ctx, t); err != nil {
			return fmt.Errorf("update timelock: %w", err)
		}
		if res.PaidOut > 0 {
			if err := s.release(ctx, tx, rec, d, caller, recipient, res.PaidOut, domain.MovementCancellation, now); err != nil {
				return err
			}
		}
		if res.Reclaimed > 0 {
			if err := s.release(ctx, tx, rec, d, caller, reclaimTo, res.Reclaimed, domain.MovementCancellation, now); err != nil {
				return err
			}
		}
		rec.Annotate("paid_out", itoa(res.PaidOut))
		rec.Annotate("reclaimed", itoa(res.Reclaimed))
		return nil
	})
	if err != nil {
		return CancelResult{}, err
	}
	observability.RecordCancellation(res.PaidOut, res.Reclaimed)
	return res, nil
}

// release moves amount out of escrow to wallet after enforcement allows it.
func (s *Service) release(ctx context.Context, tx storage.Tx, rec *audit.Recorder, d *domain.VestingDeployment,
	caller, wallet string, amount uint64, kind domain.MovementKind, now uint64,
) error {
	req := domain.MovementRequest{Mint: d.Mint, From: d.EscrowWallet, To: wallet, Amount: amount, Kind: kind}
	dec, err := enforcement.Evaluate(ctx, tx, now, req)
	if err != nil {
		return err
	}
	if !dec.Allowed {
		return dec.Reason
	}
	rec.Record(audit.NewDecisionEvent(req, dec, caller))
	return token.Move(ctx, tx, d.Mint, d.EscrowWallet, wallet, amount)
}

func satAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func satSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
