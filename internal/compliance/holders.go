package compliance

import (
	"context"
	"errors"
	"fmt"

	"solana-security-token/internal/audit"
	"solana-security-token/internal/domain"
	"solana-security-token/internal/storage"
)

// CreateHolder registers a holder under id. id may be the next issuance id or
// a previously freed one.
func (s *Service) CreateHolder(ctx context.Context, caller, mint string, id uint64) error {
	return s.run(ctx, "create_holder", caller, mint, walletsOrTransfer, attrs("holder", itoa(id)),
		func(ctx context.Context, tx storage.Tx, _ *audit.Recorder) error {
			reg, err := registry(ctx, tx, mint)
			if err != nil {
				return err
			}
			if id > reg.NextHolderID {
				return domain.ErrInvalidHolderIndex
			}
			if _, err := tx.Holders().Get(ctx, mint, id); err == nil {
				return domain.ErrHolderAlreadyExists
			} else if !errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("get holder: %w", err)
			}
			if reg.CurrentHoldersCount >= reg.MaxHolders {
				return domain.ErrMaxHoldersReached
			}

			if err := tx.Holders().Insert(ctx, &domain.Holder{Mint: mint, ID: id, Active: true}); err != nil {
				return duplicate(err, domain.ErrHolderAlreadyExists)
			}
			reg.CurrentHoldersCount++
			if id == reg.NextHolderID {
				reg.NextHolderID++
			}
			return tx.Registries().Update(ctx, reg)
		})
}

// RevokeHolder removes a holder that has no group memberships and no wallets.
func (s *Service) RevokeHolder(ctx context.Context, caller, mint string, id uint64) error {
	return s.run(ctx, "revoke_holder", caller, mint, walletsOrTransfer, attrs("holder", itoa(id)),
		func(ctx context.Context, tx storage.Tx, _ *audit.Recorder) error {
			reg, err := registry(ctx, tx, mint)
			if err != nil {
				return err
			}
			h, err := holder(ctx, tx, mint, id)
			if err != nil {
				return err
			}
			if h.CurrentHolderGroupCount != 0 {
				return domain.ErrCurrentHolderGroupCountMustBeZero
			}
			if h.CurrentWalletsCount != 0 {
				return domain.ErrCurrentWalletsCountMustBeZero
			}
			if err := tx.Holders().Delete(ctx, mint, id); err != nil {
				return fmt.Errorf("delete holder: %w", err)
			}
			reg.CurrentHoldersCount--
			return tx.Registries().Update(ctx, reg)
		})
}

// CreateHolderGroup makes holderID a member of groupID.
func (s *Service) CreateHolderGroup(ctx context.Context, caller, mint string, holderID, groupID uint64) error {
	return s.run(ctx, "create_holder_group", caller, mint, walletsOrTransfer, attrs("holder", itoa(holderID), "group", itoa(groupID)),
		func(ctx context.Context, tx storage.Tx, _ *audit.Recorder) error {
			h, err := holder(ctx, tx, mint, holderID)
			if err != nil {
				return err
			}
			g, err := group(ctx, tx, mint, groupID)
			if err != nil {
				return err
			}
			if _, err := tx.HolderGroups().Get(ctx, mint, groupID, holderID); err == nil {
				return domain.ErrHolderGroupExists
			} else if !errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("get holder group: %w", err)
			}
			return joinGroup(ctx, tx, h, g, 0)
		})
}

// RevokeHolderGroup ends a membership that has no wallets left.
func (s *Service) RevokeHolderGroup(ctx context.Context, caller, mint string, holderID, groupID uint64) error {
	return s.run(ctx, "revoke_holder_group", caller, mint, walletsOrTransfer, attrs("holder", itoa(holderID), "group", itoa(groupID)),
		func(ctx context.Context, tx storage.Tx, _ *audit.Recorder) error {
			hg, err := holderGroup(ctx, tx, mint, groupID, holderID)
			if err != nil {
				return err
			}
			if hg.CurrentWalletsCount != 0 {
				return domain.ErrCurrentWalletsCountMustBeZero
			}
			h, err := holder(ctx, tx, mint, holderID)
			if err != nil {
				return err
			}
			g, err := group(ctx, tx, mint, groupID)
			if err != nil {
				return err
			}
			return leaveGroup(ctx, tx, h, g)
		})
}

// joinGroup creates the membership of h in g with wallets wallets, enforcing
// the group cap and bumping both counters.
func joinGroup(ctx context.Context, tx storage.Tx, h *domain.Holder, g *domain.Group, wallets uint64) error {
	if !g.HasCapacity() {
		return domain.ErrMaxHoldersReachedInsideTheGroup
	}
	hg := &domain.HolderGroup{Mint: h.Mint, Group: g.ID, Holder: h.ID, CurrentWalletsCount: wallets}
	if err := tx.HolderGroups().Insert(ctx, hg); err != nil {
		return duplicate(err, domain.ErrHolderGroupExists)
	}
	g.CurrentHoldersCount++
	if err := tx.Groups().Update(ctx, g); err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	h.CurrentHolderGroupCount++
	if err := tx.Holders().Update(ctx, h); err != nil {
		return fmt.Errorf("update holder: %w", err)
	}
	return nil
}

// leaveGroup deletes the membership of h in g and releases both counters.
func leaveGroup(ctx context.Context, tx storage.Tx, h *domain.Holder, g *domain.Group) error {
	if err := tx.HolderGroups().Delete(ctx, h.Mint, g.ID, h.ID); err != nil {
		return fmt.Errorf("delete holder group: %w", err)
	}
	g.CurrentHoldersCount--
	if err := tx.Groups().Update(ctx, g); err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	h.CurrentHolderGroupCount--
	if err := tx.Holders().Update(ctx, h); err != nil {
		return fmt.Errorf("update holder: %w", err)
	}
	return nil
}

// Holder returns one holder.
func (s *Service) Holder(ctx context.Context, mint string, id uint64) (*domain.Holder, error) {
	var out *domain.Holder
	err := s.read(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		out, err = holder(ctx, tx, mint, id)
		return err
	})
	return out, err
}

// HolderGroup returns the membership of holderID in groupID.
func (s *Service) HolderGroup(ctx context.Context, mint string, holderID, groupID uint64) (*domain.HolderGroup, error) {
	var out *domain.HolderGroup
	err := s.read(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		out, err = holderGroup(ctx, tx, mint, groupID, holderID)
		return err
	})
	return out, err
}
