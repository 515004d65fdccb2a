package compliance

import (
	"context"
	"fmt"
	"strconv"

	"solana-security-token/internal/audit"
	"solana-security-token/internal/domain"
	"solana-security-token/internal/solana"
	"solana-security-token/internal/storage"
)

// InitializeRegistry creates the registry of mint together with group 0.
func (s *Service) InitializeRegistry(ctx context.Context, caller, mint string, maxHolders uint64) (*domain.RestrictionRegistry, error) {
	var out *domain.RestrictionRegistry
	err := s.run(ctx, "initialize_registry", caller, mint, contractAdmin, attrs("max_holders", itoa(maxHolders)),
		func(ctx context.Context, tx storage.Tx, rec *audit.Recorder) error {
			if !solana.IsValidAddress(mint) {
				return domain.ErrInvalidAddress
			}
			addr, err := s.deriver.RegistryAddress(mint)
			if err != nil {
				return fmt.Errorf("derive registry address: %w", err)
			}
			reg := &domain.RestrictionRegistry{Address: addr, Mint: mint, MaxHolders: maxHolders}
			if err := tx.Registries().Insert(ctx, reg); err != nil {
				return duplicate(err, domain.ErrRegistryAlreadyExists)
			}
			if err := tx.Groups().Insert(ctx, &domain.Group{Mint: mint, ID: domain.DefaultGroupID}); err != nil {
				return fmt.Errorf("insert default group: %w", err)
			}
			rec.Annotate("address", addr)
			out = reg
			return nil
		})
	return out, err
}

// SetHolderMax changes the holder cap of the registry.
func (s *Service) SetHolderMax(ctx context.Context, caller, mint string, maxHolders uint64) error {
	return s.run(ctx, "set_holder_max", caller, mint, transferAdmin, attrs("max_holders", itoa(maxHolders)),
		func(ctx context.Context, tx storage.Tx, _ *audit.Recorder) error {
			reg, err := registry(ctx, tx, mint)
			if err != nil {
				return err
			}
			if reg.MaxHolders == maxHolders {
				return domain.ErrValueUnchanged
			}
			if maxHolders < reg.CurrentHoldersCount {
				return domain.ErrNewHolderMaxMustExceedCurrentHolderCount
			}
			reg.MaxHolders = maxHolders
			return tx.Registries().Update(ctx, reg)
		})
}

// SetPaused pauses or resumes every transfer of the token.
func (s *Service) SetPaused(ctx context.Context, caller, mint string, paused bool) error {
	return s.run(ctx, "set_paused", caller, mint, transferAdmin, attrs("paused", strconv.FormatBool(paused)),
		func(ctx context.Context, tx storage.Tx, _ *audit.Recorder) error {
			reg, err := registry(ctx, tx, mint)
			if err != nil {
				return err
			}
			if reg.Paused == paused {
				return domain.ErrValueUnchanged
			}
			reg.Paused = paused
			return tx.Registries().Update(ctx, reg)
		})
}

// SetLockupEscrow records the vesting escrow wallet. It can be set once.
func (s *Service) SetLockupEscrow(ctx context.Context, caller, mint, escrow string) error {
	return s.run(ctx, "set_lockup_escrow", caller, mint, contractAdmin, attrs("escrow", escrow),
		func(ctx context.Context, tx storage.Tx, _ *audit.Recorder) error {
			if !solana.IsValidAddress(escrow) {
				return domain.ErrInvalidAddress
			}
			reg, err := registry(ctx, tx, mint)
			if err != nil {
				return err
			}
			if reg.LockupEscrowAccount != nil {
				if *reg.LockupEscrowAccount == escrow {
					return domain.ErrValueUnchanged
				}
				return domain.ErrLockupEscrowAlreadySet
			}
			reg.LockupEscrowAccount = &escrow
			return tx.Registries().Update(ctx, reg)
		})
}

// Registry returns the registry of mint.
func (s *Service) Registry(ctx context.Context, mint string) (*domain.RestrictionRegistry, error) {
	var out *domain.RestrictionRegistry
	err := s.read(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		out, err = registry(ctx, tx, mint)
		return err
	})
	return out, err
}
