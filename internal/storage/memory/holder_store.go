package memory

import (
	"context"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/storage"
)

// HolderStore is an in-memory implementation of storage.HolderStore.
type HolderStore struct {
	s *state
}

// Insert adds a new holder. Returns ErrDuplicateKey if (mint, id) exists.
func (h *HolderStore) Insert(_ context.Context, holder *domain.Holder) error {
	if holder == nil || holder.Mint == "" {
		return storage.ErrInvalidInput
	}
	key := idKey{holder.Mint, holder.ID}
	if _, exists := h.s.holders[key]; exists {
		return storage.ErrDuplicateKey
	}
	holderCopy := *holder
	h.s.holders[key] = &holderCopy
	return nil
}

// Get retrieves a holder. Returns ErrNotFound if not exists.
func (h *HolderStore) Get(_ context.Context, mint string, id uint64) (*domain.Holder, error) {
	holder, exists := h.s.holders[idKey{mint, id}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	holderCopy := *holder
	return &holderCopy, nil
}

// Update overwrites an existing holder. Returns ErrNotFound if not exists.
func (h *HolderStore) Update(_ context.Context, holder *domain.Holder) error {
	if holder == nil {
		return storage.ErrInvalidInput
	}
	key := idKey{holder.Mint, holder.ID}
	if _, exists := h.s.holders[key]; !exists {
		return storage.ErrNotFound
	}
	holderCopy := *holder
	h.s.holders[key] = &holderCopy
	return nil
}

// Delete removes a holder. Returns ErrNotFound if not exists.
func (h *HolderStore) Delete(_ context.Context, mint string, id uint64) error {
	key := idKey{mint, id}
	if _, exists := h.s.holders[key]; !exists {
		return storage.ErrNotFound
	}
	delete(h.s.holders, key)
	return nil
}

// HolderGroupStore is an in-memory implementation of storage.HolderGroupStore.
type HolderGroupStore struct {
	s *state
}

// Insert adds a new association. Returns ErrDuplicateKey if (mint, group, holder) exists.
func (h *HolderGroupStore) Insert(_ context.Context, hg *domain.HolderGroup) error {
	if hg == nil || hg.Mint == "" {
		return storage.ErrInvalidInput
	}
	key := holderGroupKey{hg.Mint, hg.Group, hg.Holder}
	if _, exists := h.s.holderGroups[key]; exists {
		return storage.ErrDuplicateKey
	}
	hgCopy := *hg
	h.s.holderGroups[key] = &hgCopy
	return nil
}

// Get retrieves an association. Returns ErrNotFound if not exists.
func (h *HolderGroupStore) Get(_ context.Context, mint string, group, holder uint64) (*domain.HolderGroup, error) {
	hg, exists := h.s.holderGroups[holderGroupKey{mint, group, holder}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	hgCopy := *hg
	return &hgCopy, nil
}

// Update overwrites an existing association. Returns ErrNotFound if not exists.
func (h *HolderGroupStore) Update(_ context.Context, hg *domain.HolderGroup) error {
	if hg == nil {
		return storage.ErrInvalidInput
	}
	key := holderGroupKey{hg.Mint, hg.Group, hg.Holder}
	if _, exists := h.s.holderGroups[key]; !exists {
		return storage.ErrNotFound
	}
	hgCopy := *hg
	h.s.holderGroups[key] = &hgCopy
	return nil
}

// Delete removes an association. Returns ErrNotFound if not exists.
func (h *HolderGroupStore) Delete(_ context.Context, mint string, group, holder uint64) error {
	key := holderGroupKey{mint, group, holder}
	if _, exists := h.s.holderGroups[key]; !exists {
		return storage.ErrNotFound
	}
	delete(h.s.holderGroups, key)
	return nil
}

var (
	_ storage.HolderStore      = (*HolderStore)(nil)
	_ storage.HolderGroupStore = (*HolderGroupStore)(nil)
)
