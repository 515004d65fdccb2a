// Package enforcement decides whether a token movement is permitted by the
// compliance registry.
package enforcement

import (
	"context"
	"errors"
	"fmt"

	"solana-security-token/internal/clock"
	"solana-security-token/internal/domain"
	"solana-security-token/internal/observability"
	"solana-security-token/internal/storage"
)

// Evaluate runs the transfer checks for req against the registry visible in tx.
// A denial is a Decision, not an error; the error is reserved for storage
// failures.
func Evaluate(ctx context.Context, tx storage.Tx, now uint64, req domain.MovementRequest) (domain.Decision, error) {
	d, err := evaluate(ctx, tx, now, req)
	if err != nil {
		return domain.Decision{}, err
	}
	reason := ""
	if !d.Allowed {
		reason = string(domain.CodeOf(d.Reason))
	}
	observability.RecordDecision(string(req.Kind), d.Allowed, reason)
	return d, nil
}

func evaluate(ctx context.Context, tx storage.Tx, now uint64, req domain.MovementRequest) (domain.Decision, error) {
	reg, err := tx.Registries().Get(ctx, req.Mint)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Deny(domain.ErrRegistryNotFound), nil
	}
	if err != nil {
		return domain.Decision{}, fmt.Errorf("get registry: %w", err)
	}

	if req.Kind == domain.MovementForcedTransfer {
		between, err := betweenEscrows(ctx, tx, reg, req.From, req.To)
		if err != nil {
			return domain.Decision{}, err
		}
		if between {
			return domain.Deny(domain.ErrForceTransferBetweenEscrows), nil
		}
	}

	if reg.Paused && !req.BypassPause {
		return domain.Deny(domain.ErrAllTransfersPaused), nil
	}

	from, err := binding(ctx, tx, req.Mint, req.From)
	if err != nil || from == nil {
		return domain.Deny(domain.ErrInvalidPda), err
	}
	to, err := binding(ctx, tx, req.Mint, req.To)
	if err != nil || to == nil {
		return domain.Deny(domain.ErrInvalidPda), err
	}

	rule, err := tx.TransferRules().Get(ctx, req.Mint, from.Group, to.Group)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Deny(domain.ErrTransferGroupNotApproved), nil
	}
	if err != nil {
		return domain.Decision{}, fmt.Errorf("get transfer rule: %w", err)
	}

	if now < rule.LockedUntil {
		return domain.Deny(domain.ErrTransferRuleNotAllowedUntilLater), nil
	}
	return domain.Allow(), nil
}

// betweenEscrows reports whether both wallets hold vesting principal: the
// registry's lockup escrow or the escrow of any deployment of the mint.
func betweenEscrows(ctx context.Context, tx storage.Tx, reg *domain.RestrictionRegistry, from, to string) (bool, error) {
	for _, wallet := range []string{from, to} {
		ok, err := isEscrow(ctx, tx, reg, wallet)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func isEscrow(ctx context.Context, tx storage.Tx, reg *domain.RestrictionRegistry, wallet string) (bool, error) {
	if reg.IsLockupEscrow(wallet) {
		return true, nil
	}
	_, err := tx.Deployments().GetByEscrow(ctx, reg.Mint, wallet)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("get deployment by escrow %s: %w", wallet, err)
	}
}

// binding returns nil without error for an unbound wallet.
func binding(ctx context.Context, tx storage.Tx, mint, wallet string) (*domain.WalletBinding, error) {
	b, err := tx.Wallets().Get(ctx, mint, wallet)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet binding %s: %w", wallet, err)
	}
	return b, nil
}

// Require evaluates req and converts a denial into its error.
func Require(ctx context.Context, tx storage.Tx, now uint64, req domain.MovementRequest) error {
	d, err := Evaluate(ctx, tx, now, req)
	if err != nil {
		return err
	}
	return d.Err()
}

// Hook is the transfer-hook boundary: one read-only check per movement with
// no side effects.
type Hook struct {
	store storage.Store
	clock clock.Clock
}

// NewHook creates a hook over store.
func NewHook(store storage.Store, clk clock.Clock) *Hook {
	return &Hook{store: store, clock: clk}
}

// Enforce returns nil if a transfer from source to destination is permitted now.
func (h *Hook) Enforce(ctx context.Context, mint, source, destination string) error {
	d, err := h.Decide(ctx, domain.MovementRequest{
		Mint: mint,
		From: source,
		To:   destination,
		Kind: domain.MovementTransfer,
	})
	if err != nil {
		return err
	}
	return d.Err()
}

// Decide evaluates req in its own transaction.
func (h *Hook) Decide(ctx context.Context, req domain.MovementRequest) (domain.Decision, error) {
	now, err := h.clock.Now(ctx)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("read clock: %w", err)
	}
	var d domain.Decision
	err = h.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		d, err = Evaluate(ctx, tx, now, req)
		return err
	})
	if err != nil {
		return domain.Decision{}, fmt.Errorf("enforce: %w", err)
	}
	return d, nil
}
