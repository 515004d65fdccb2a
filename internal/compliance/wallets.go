package compliance

import (
	"context"
	"errors"
	"fmt"

	"solana-security-token/internal/audit"
	"solana-security-token/internal/domain"
	"solana-security-token/internal/solana"
	"solana-security-token/internal/storage"
)

// BindWallet attaches addr to groupID. With a holder the holder must already
// be a member of the group.
func (s *Service) BindWallet(ctx context.Context, caller, mint, addr string, groupID uint64, holderID *uint64) (*domain.WalletBinding, error) {
	a := attrs("wallet", addr, "group", itoa(groupID))
	if holderID != nil {
		a["holder"] = itoa(*holderID)
	}
	var out *domain.WalletBinding
	err := s.run(ctx, "bind_wallet", caller, mint, walletsOrTransfer, a,
		func(ctx context.Context, tx storage.Tx, rec *audit.Recorder) error {
			if !solana.IsValidAddress(addr) {
				return domain.ErrInvalidAddress
			}
			if _, err := registry(ctx, tx, mint); err != nil {
				return err
			}
			if _, err := tx.Wallets().Get(ctx, mint, addr); err == nil {
				return domain.ErrWalletAlreadyBound
			} else if !errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("get wallet binding: %w", err)
			}
			if _, err := group(ctx, tx, mint, groupID); err != nil {
				return err
			}

			if holderID != nil {
				h, err := holder(ctx, tx, mint, *holderID)
				if err != nil {
					return err
				}
				hg, err := holderGroup(ctx, tx, mint, groupID, *holderID)
				if err != nil {
					return err
				}
				if err := addWallet(ctx, tx, h, hg); err != nil {
					return err
				}
			}

			pda, err := s.deriver.WalletBindingAddress(mint, addr)
			if err != nil {
				return fmt.Errorf("derive wallet binding address: %w", err)
			}
			b := &domain.WalletBinding{Address: pda, Mint: mint, Wallet: addr, Group: groupID}
			if holderID != nil {
				id := *holderID
				b.Holder = &id
			}
			if err := tx.Wallets().Insert(ctx, b); err != nil {
				return duplicate(err, domain.ErrWalletAlreadyBound)
			}
			rec.Annotate("address", pda)
			out = b
			return nil
		})
	return out, err
}

// UnbindWallet deletes the binding of addr and releases its wallet counters.
func (s *Service) UnbindWallet(ctx context.Context, caller, mint, addr string) error {
	return s.run(ctx, "unbind_wallet", caller, mint, walletsOrTransfer, attrs("wallet", addr),
		func(ctx context.Context, tx storage.Tx, _ *audit.Recorder) error {
			b, err := wallet(ctx, tx, mint, addr)
			if err != nil {
				return err
			}
			if b.Holder != nil {
				h, err := holder(ctx, tx, mint, *b.Holder)
				if err != nil {
					return err
				}
				hg, err := holderGroup(ctx, tx, mint, b.Group, *b.Holder)
				if err != nil {
					return err
				}
				if err := removeWallet(ctx, tx, h, hg); err != nil {
					return err
				}
			}
			if err := tx.Wallets().Delete(ctx, mint, addr); err != nil {
				return fmt.Errorf("delete wallet binding: %w", err)
			}
			return nil
		})
}

// MoveWallet rebinds addr to groupID. For a holder-owned wallet the source
// membership is revoked when its last wallet leaves, and a destination
// membership is created, subject to the group cap, for the holder's first
// wallet there.
func (s *Service) MoveWallet(ctx context.Context, caller, mint, addr string, groupID uint64) error {
	return s.run(ctx, "move_wallet", caller, mint, walletsOrTransfer, attrs("wallet", addr, "group", itoa(groupID)),
		func(ctx context.Context, tx storage.Tx, rec *audit.Recorder) error {
			b, err := wallet(ctx, tx, mint, addr)
			if err != nil {
				return err
			}
			if b.Group == groupID {
				return domain.ErrNewGroupIsTheSameAsTheCurrentGroup
			}
			dst, err := group(ctx, tx, mint, groupID)
			if err != nil {
				return err
			}
			rec.Annotate("group_from", itoa(b.Group))

			if b.Holder != nil {
				if err := moveHolderWallet(ctx, tx, b, dst); err != nil {
					return err
				}
			}
			b.Group = groupID
			if err := tx.Wallets().Update(ctx, b); err != nil {
				return fmt.Errorf("update wallet binding: %w", err)
			}
			return nil
		})
}

func moveHolderWallet(ctx context.Context, tx storage.Tx, b *domain.WalletBinding, dst *domain.Group) error {
	h, err := holder(ctx, tx, b.Mint, *b.Holder)
	if err != nil {
		return err
	}
	src, err := holderGroup(ctx, tx, b.Mint, b.Group, h.ID)
	if err != nil {
		return err
	}

	src.CurrentWalletsCount--
	if src.CurrentWalletsCount == 0 {
		srcGroup, err := group(ctx, tx, b.Mint, b.Group)
		if err != nil {
			return err
		}
		if err := leaveGroup(ctx, tx, h, srcGroup); err != nil {
			return err
		}
	} else if err := tx.HolderGroups().Update(ctx, src); err != nil {
		return fmt.Errorf("update holder group: %w", err)
	}

	next, err := tx.HolderGroups().Get(ctx, b.Mint, dst.ID, h.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return joinGroup(ctx, tx, h, dst, 1)
	case err != nil:
		return fmt.Errorf("get holder group: %w", err)
	}
	next.CurrentWalletsCount++
	if err := tx.HolderGroups().Update(ctx, next); err != nil {
		return fmt.Errorf("update holder group: %w", err)
	}
	return nil
}

func addWallet(ctx context.Context, tx storage.Tx, h *domain.Holder, hg *domain.HolderGroup) error {
	hg.CurrentWalletsCount++
	if err := tx.HolderGroups().Update(ctx, hg); err != nil {
		return fmt.Errorf("update holder group: %w", err)
	}
	h.CurrentWalletsCount++
	if err := tx.Holders().Update(ctx, h); err != nil {
		return fmt.Errorf("update holder: %w", err)
	}
	return nil
}

func removeWallet(ctx context.Context, tx storage.Tx, h *domain.Holder, hg *domain.HolderGroup) error {
	hg.CurrentWalletsCount--
	if err := tx.HolderGroups().Update(ctx, hg); err != nil {
		return fmt.Errorf("update holder group: %w", err)
	}
	h.CurrentWalletsCount--
	if err := tx.Holders().Update(ctx, h); err != nil {
		return fmt.Errorf("update holder: %w", err)
	}
	return nil
}

// WalletBinding returns the binding of addr.
func (s *Service) WalletBinding(ctx context.Context, mint, addr string) (*domain.WalletBinding, error) {
	var out *domain.WalletBinding
	err := s.read(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		out, err = wallet(ctx, tx, mint, addr)
		return err
	})
	return out, err
}
