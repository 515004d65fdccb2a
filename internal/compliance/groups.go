package compliance

import (
	"context"

	"solana-security-token/internal/audit"
	"solana-security-token/internal/domain"
	"solana-security-token/internal/storage"
)

// InitializeGroup creates a compliance group. Group 0 exists from registry
// initialization and cannot be created again.
func (s *Service) InitializeGroup(ctx context.Context, caller, mint string, id, maxHolders uint64) error {
	return s.run(ctx, "initialize_group", caller, mint, transferAdmin, attrs("group", itoa(id), "max_holders", itoa(maxHolders)),
		func(ctx context.Context, tx storage.Tx, _ *audit.Recorder) error {
			if _, err := registry(ctx, tx, mint); err != nil {
				return err
			}
			if id == domain.DefaultGroupID && maxHolders != 0 {
				return domain.ErrZeroGroupHolderGroupMaxCannotBeNonZero
			}
			err := tx.Groups().Insert(ctx, &domain.Group{Mint: mint, ID: id, MaxHolders: maxHolders})
			return duplicate(err, domain.ErrGroupAlreadyExists)
		})
}

// SetHolderGroupMax changes the holder cap of a group. Zero means unlimited.
func (s *Service) SetHolderGroupMax(ctx context.Context, caller, mint string, id, maxHolders uint64) error {
	return s.run(ctx, "set_holder_group_max", caller, mint, transferAdmin, attrs("group", itoa(id), "max_holders", itoa(maxHolders)),
		func(ctx context.Context, tx storage.Tx, _ *audit.Recorder) error {
			g, err := group(ctx, tx, mint, id)
			if err != nil {
				return err
			}
			if id == domain.DefaultGroupID && maxHolders != 0 {
				return domain.ErrZeroGroupHolderGroupMaxCannotBeNonZero
			}
			if g.MaxHolders == maxHolders {
				return domain.ErrValueUnchanged
			}
			if maxHolders != 0 && maxHolders < g.CurrentHoldersCount {
				return domain.ErrNewHolderGroupMaxMustExceedCurrentHolderGroupCnt
			}
			g.MaxHolders = maxHolders
			return tx.Groups().Update(ctx, g)
		})
}

// InitializeTransferRule permits transfers from groupFrom to groupTo once
// lockedUntil has passed.
func (s *Service) InitializeTransferRule(ctx context.Context, caller, mint string, groupFrom, groupTo, lockedUntil uint64) error {
	return s.run(ctx, "initialize_transfer_rule", caller, mint, transferAdmin,
		attrs("group_from", itoa(groupFrom), "group_to", itoa(groupTo), "locked_until", itoa(lockedUntil)),
		func(ctx context.Context, tx storage.Tx, _ *audit.Recorder) error {
			if _, err := group(ctx, tx, mint, groupFrom); err != nil {
				return err
			}
			if _, err := group(ctx, tx, mint, groupTo); err != nil {
				return err
			}
			err := tx.TransferRules().Insert(ctx, &domain.TransferRule{
				Mint:        mint,
				GroupFrom:   groupFrom,
				GroupTo:     groupTo,
				LockedUntil: lockedUntil,
			})
			return duplicate(err, domain.ErrTransferRuleExists)
		})
}

// SetTransferRuleLockedUntil moves the unlock instant of an existing rule.
func (s *Service) SetTransferRuleLockedUntil(ctx context.Context, caller, mint string, groupFrom, groupTo, lockedUntil uint64) error {
	return s.run(ctx, "set_transfer_rule_locked_until", caller, mint, transferAdmin,
		attrs("group_from", itoa(groupFrom), "group_to", itoa(groupTo), "locked_until", itoa(lockedUntil)),
		func(ctx context.Context, tx storage.Tx, _ *audit.Recorder) error {
			r, err := tx.TransferRules().Get(ctx, mint, groupFrom, groupTo)
			if err != nil {
				return notFound(err, domain.ErrTransferRuleNotFound)
			}
			if r.LockedUntil == lockedUntil {
				return domain.ErrValueUnchanged
			}
			r.LockedUntil = lockedUntil
			return tx.TransferRules().Update(ctx, r)
		})
}

// Group returns one group.
func (s *Service) Group(ctx context.Context, mint string, id uint64) (*domain.Group, error) {
	var out *domain.Group
	err := s.read(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		out, err = group(ctx, tx, mint, id)
		return err
	})
	return out, err
}

// Groups returns every group of mint ordered by id.
func (s *Service) Groups(ctx context.Context, mint string) ([]*domain.Group, error) {
	var out []*domain.Group
	err := s.read(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := registry(ctx, tx, mint); err != nil {
			return err
		}
		var err error
		out, err = tx.Groups().ListByMint(ctx, mint)
		return err
	})
	return out, err
}

// TransferRule returns the rule from groupFrom to groupTo.
func (s *Service) TransferRule(ctx context.Context, mint string, groupFrom, groupTo uint64) (*domain.TransferRule, error) {
	var out *domain.TransferRule
	err := s.read(ctx, func(ctx context.Context, tx storage.Tx) error {
		r, err := tx.TransferRules().Get(ctx, mint, groupFrom, groupTo)
		if err != nil {
			return notFound(err, domain.ErrTransferRuleNotFound)
		}
		out = r
		return nil
	})
	return out, err
}
