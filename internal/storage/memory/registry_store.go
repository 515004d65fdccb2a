package memory

import (
	"context"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/storage"
)

// RegistryStore is an in-memory implementation of storage.RegistryStore.
type RegistryStore struct {
	s *state
}

// Insert adds a new registry. Returns ErrDuplicateKey if mint exists.
func (r *RegistryStore) Insert(_ context.Context, reg *domain.RestrictionRegistry) error {
	if reg == nil || reg.Mint == "" {
		return storage.ErrInvalidInput
	}
	if _, exists := r.s.registries[reg.Mint]; exists {
		return storage.ErrDuplicateKey
	}
	r.s.registries[reg.Mint] = reg.Clone()
	return nil
}

// Get retrieves the registry of a mint. Returns ErrNotFound if not exists.
func (r *RegistryStore) Get(_ context.Context, mint string) (*domain.RestrictionRegistry, error) {
	reg, exists := r.s.registries[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return reg.Clone(), nil
}

// Update overwrites an existing registry. Returns ErrNotFound if not exists.
func (r *RegistryStore) Update(_ context.Context, reg *domain.RestrictionRegistry) error {
	if reg == nil {
		return storage.ErrInvalidInput
	}
	if _, exists := r.s.registries[reg.Mint]; !exists {
		return storage.ErrNotFound
	}
	r.s.registries[reg.Mint] = reg.Clone()
	return nil
}

var _ storage.RegistryStore = (*RegistryStore)(nil)
