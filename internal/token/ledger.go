// Package token is the ledger collaborator: balances per (mint, wallet),
// minting and movement. Every movement except minting passes enforcement.
package token

import (
	"context"
	"fmt"
	"math/bits"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/storage"
)

// MintTo credits amount to wallet.
func MintTo(ctx context.Context, tx storage.Tx, mint, wallet string, amount uint64) error {
	if amount == 0 {
		return domain.ErrAmountMustBePositive
	}
	bal, err := tx.Balances().Get(ctx, mint, wallet)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}
	sum, carry := bits.Add64(bal, amount, 0)
	if carry != 0 {
		return domain.ErrArithmeticOverflow
	}
	if err := tx.Balances().Set(ctx, mint, wallet, sum); err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

// Move debits from and credits to. It performs no compliance check.
func Move(ctx context.Context, tx storage.Tx, mint, from, to string, amount uint64) error {
	if amount == 0 {
		return domain.ErrAmountMustBePositive
	}
	src, err := tx.Balances().Get(ctx, mint, from)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}
	if src < amount {
		return domain.ErrInsufficientFunds
	}
	if from == to {
		return nil
	}
	dst, err := tx.Balances().Get(ctx, mint, to)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}
	sum, carry := bits.Add64(dst, amount, 0)
	if carry != 0 {
		return domain.ErrArithmeticOverflow
	}
	if err := tx.Balances().Set(ctx, mint, from, src-amount); err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	if err := tx.Balances().Set(ctx, mint, to, sum); err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}
