package postgres

import (
	"context"
	"fmt"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/storage"
)

// WalletStore implements storage.WalletStore using PostgreSQL.
type WalletStore struct {
	q querier
}

// Insert adds a new binding. Returns ErrDuplicateKey if (mint, wallet) exists.
func (s *WalletStore) Insert(ctx context.Context, w *domain.WalletBinding) error {
	if w == nil || w.Mint == "" || w.Wallet == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO wallet_bindings (mint, wallet, address, group_id, holder_id)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.q.Exec(ctx, query, w.Mint, w.Wallet, w.Address, i64(w.Group), nullableI64(w.Holder))
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isForeignKeyError(err) {
			return storage.ErrInvalidInput
		}
		return fmt.Errorf("insert wallet binding: %w", err)
	}
	return nil
}

// Get retrieves the binding of a wallet. Returns ErrNotFound if not exists.
func (s *WalletStore) Get(ctx context.Context, mint, wallet string) (*domain.WalletBinding, error) {
	query := `
		SELECT mint, wallet, address, group_id, holder_id
		FROM wallet_bindings
		WHERE mint = $1 AND wallet = $2
		FOR UPDATE
	`

	var (
		w      domain.WalletBinding
		group  int64
		holder *int64
	)
	err := s.q.QueryRow(ctx, query, mint, wallet).Scan(&w.Mint, &w.Wallet, &w.Address, &group, &holder)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet binding: %w", err)
	}
	w.Group = u64(group)
	w.Holder = nullableU64(holder)
	return &w, nil
}

// Update overwrites an existing binding. Returns ErrNotFound if not exists.
func (s *WalletStore) Update(ctx context.Context, w *domain.WalletBinding) error {
	if w == nil {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE wallet_bindings
		SET address = $3, group_id = $4, holder_id = $5
		WHERE mint = $1 AND wallet = $2
	`

	tag, err := s.q.Exec(ctx, query, w.Mint, w.Wallet, w.Address, i64(w.Group), nullableI64(w.Holder))
	if err != nil {
		return fmt.Errorf("update wallet binding: %w", err)
	}
	if !updated(tag) {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a binding. Returns ErrNotFound if not exists.
func (s *WalletStore) Delete(ctx context.Context, mint, wallet string) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM wallet_bindings WHERE mint = $1 AND wallet = $2`, mint, wallet)
	if err != nil {
		return fmt.Errorf("delete wallet binding: %w", err)
	}
	if !updated(tag) {
		return storage.ErrNotFound
	}
	return nil
}

// TransferRuleStore implements storage.TransferRuleStore using PostgreSQL.
type TransferRuleStore struct {
	q querier
}

// Insert adds a new rule. Returns ErrDuplicateKey if (mint, from, to) exists.
func (s *TransferRuleStore) Insert(ctx context.Context, r *domain.TransferRule) error {
	if r == nil || r.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO transfer_rules (mint, group_from, group_to, locked_until)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.q.Exec(ctx, query, r.Mint, i64(r.GroupFrom), i64(r.GroupTo), i64(r.LockedUntil))
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transfer rule: %w", err)
	}
	return nil
}

// Get retrieves a rule. Returns ErrNotFound if not exists.
func (s *TransferRuleStore) Get(ctx context.Context, mint string, groupFrom, groupTo uint64) (*domain.TransferRule, error) {
	query := `
		SELECT mint, group_from, group_to, locked_until
		FROM transfer_rules
		WHERE mint = $1 AND group_from = $2 AND group_to = $3
	`

	var (
		r              domain.TransferRule
		from, to, lock int64
	)
	err := s.q.QueryRow(ctx, query, mint, i64(groupFrom), i64(groupTo)).Scan(&r.Mint, &from, &to, &lock)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transfer rule: %w", err)
	}
	r.GroupFrom = u64(from)
	r.GroupTo = u64(to)
	r.LockedUntil = u64(lock)
	return &r, nil
}

// Update overwrites an existing rule. Returns ErrNotFound if not exists.
func (s *TransferRuleStore) Update(ctx context.Context, r *domain.TransferRule) error {
	if r == nil {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE transfer_rules
		SET locked_until = $4
		WHERE mint = $1 AND group_from = $2 AND group_to = $3
	`

	tag, err := s.q.Exec(ctx, query, r.Mint, i64(r.GroupFrom), i64(r.GroupTo), i64(r.LockedUntil))
	if err != nil {
		return fmt.Errorf("update transfer rule: %w", err)
	}
	if !updated(tag) {
		return storage.ErrNotFound
	}
	return nil
}

// BalanceStore implements storage.BalanceStore using PostgreSQL.
type BalanceStore struct {
	q querier
}

// Get returns the balance of a wallet. Missing wallets have a zero balance.
func (s *BalanceStore) Get(ctx context.Context, mint, wallet string) (uint64, error) {
	query := `
		SELECT amount
		FROM token_balances
		WHERE mint = $1 AND wallet = $2
		FOR UPDATE
	`

	var amount int64
	err := s.q.QueryRow(ctx, query, mint, wallet).Scan(&amount)
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return u64(amount), nil
}

// Set overwrites the balance of a wallet.
func (s *BalanceStore) Set(ctx context.Context, mint, wallet string, amount uint64) error {
	query := `
		INSERT INTO token_balances (mint, wallet, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (mint, wallet) DO UPDATE SET amount = EXCLUDED.amount
	`

	if _, err := s.q.Exec(ctx, query, mint, wallet, i64(amount)); err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

// Compile-time interface check.
var (
	_ storage.WalletStore       = (*WalletStore)(nil)
	_ storage.TransferRuleStore = (*TransferRuleStore)(nil)
	_ storage.BalanceStore      = (*BalanceStore)(nil)
)
