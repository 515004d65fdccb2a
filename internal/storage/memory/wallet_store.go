package memory

import (
	"context"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/storage"
)

// WalletStore is an in-memory implementation of storage.WalletStore.
type WalletStore struct {
	s *state
}

// Insert adds a new binding. Returns ErrDuplicateKey if (mint, wallet) exists.
func (w *WalletStore) Insert(_ context.Context, b *domain.WalletBinding) error {
	if b == nil || b.Mint == "" || b.Wallet == "" {
		return storage.ErrInvalidInput
	}
	key := walletKey{b.Mint, b.Wallet}
	if _, exists := w.s.wallets[key]; exists {
		return storage.ErrDuplicateKey
	}
	w.s.wallets[key] = b.Clone()
	return nil
}

// Get retrieves the binding of a wallet. Returns ErrNotFound if not exists.
func (w *WalletStore) Get(_ context.Context, mint, wallet string) (*domain.WalletBinding, error) {
	b, exists := w.s.wallets[walletKey{mint, wallet}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return b.Clone(), nil
}

// Update overwrites an existing binding. Returns ErrNotFound if not exists.
func (w *WalletStore) Update(_ context.Context, b *domain.WalletBinding) error {
	if b == nil {
		return storage.ErrInvalidInput
	}
	key := walletKey{b.Mint, b.Wallet}
	if _, exists := w.s.wallets[key]; !exists {
		return storage.ErrNotFound
	}
	w.s.wallets[key] = b.Clone()
	return nil
}

// Delete removes a binding. Returns ErrNotFound if not exists.
func (w *WalletStore) Delete(_ context.Context, mint, wallet string) error {
	key := walletKey{mint, wallet}
	if _, exists := w.s.wallets[key]; !exists {
		return storage.ErrNotFound
	}
	delete(w.s.wallets, key)
	return nil
}

// TransferRuleStore is an in-memory implementation of storage.TransferRuleStore.
type TransferRuleStore struct {
	s *state
}

// Insert adds a new rule. Returns ErrDuplicateKey if (mint, from, to) exists.
func (t *TransferRuleStore) Insert(_ context.Context, r *domain.TransferRule) error {
	if r == nil || r.Mint == "" {
		return storage.ErrInvalidInput
	}
	key := ruleKey{r.Mint, r.GroupFrom, r.GroupTo}
	if _, exists := t.s.rules[key]; exists {
		return storage.ErrDuplicateKey
	}
	ruleCopy := *r
	t.s.rules[key] = &ruleCopy
	return nil
}

// Get retrieves a rule. Returns ErrNotFound if not exists.
func (t *TransferRuleStore) Get(_ context.Context, mint string, groupFrom, groupTo uint64) (*domain.TransferRule, error) {
	r, exists := t.s.rules[ruleKey{mint, groupFrom, groupTo}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	ruleCopy := *r
	return &ruleCopy, nil
}

// Update overwrites an existing rule. Returns ErrNotFound if not exists.
func (t *TransferRuleStore) Update(_ context.Context, r *domain.TransferRule) error {
	if r == nil {
		return storage.ErrInvalidInput
	}
	key := ruleKey{r.Mint, r.GroupFrom, r.GroupTo}
	if _, exists := t.s.rules[key]; !exists {
		return storage.ErrNotFound
	}
	ruleCopy := *r
	t.s.rules[key] = &ruleCopy
	return nil
}

// BalanceStore is an in-memory implementation of storage.BalanceStore.
type BalanceStore struct {
	s *state
}

// Get returns the balance of a wallet. Missing wallets have a zero balance.
func (b *BalanceStore) Get(_ context.Context, mint, wallet string) (uint64, error) {
	return b.s.balances[walletKey{mint, wallet}], nil
}

// Set overwrites the balance of a wallet.
func (b *BalanceStore) Set(_ context.Context, mint, wallet string, amount uint64) error {
	if mint == "" || wallet == "" {
		return storage.ErrInvalidInput
	}
	b.s.balances[walletKey{mint, wallet}] = amount
	return nil
}

var (
	_ storage.WalletStore       = (*WalletStore)(nil)
	_ storage.TransferRuleStore = (*TransferRuleStore)(nil)
	_ storage.BalanceStore      = (*BalanceStore)(nil)
)
