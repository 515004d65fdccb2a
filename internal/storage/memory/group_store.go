package memory

import (
	"context"
	"sort"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/storage"
)

// GroupStore is an in-memory implementation of storage.GroupStore.
type GroupStore struct {
	s *state
}

// Insert adds a new group. Returns ErrDuplicateKey if (mint, id) exists.
func (g *GroupStore) Insert(_ context.Context, grp *domain.Group) error {
	if grp == nil || grp.Mint == "" {
		return storage.ErrInvalidInput
	}
	key := idKey{grp.Mint, grp.ID}
	if _, exists := g.s.groups[key]; exists {
		return storage.ErrDuplicateKey
	}
	groupCopy := *grp
	g.s.groups[key] = &groupCopy
	return nil
}

// Get retrieves a group. Returns ErrNotFound if not exists.
func (g *GroupStore) Get(_ context.Context, mint string, id uint64) (*domain.Group, error) {
	grp, exists := g.s.groups[idKey{mint, id}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	groupCopy := *grp
	return &groupCopy, nil
}

// Update overwrites an existing group. Returns ErrNotFound if not exists.
func (g *GroupStore) Update(_ context.Context, grp *domain.Group) error {
	if grp == nil {
		return storage.ErrInvalidInput
	}
	key := idKey{grp.Mint, grp.ID}
	if _, exists := g.s.groups[key]; !exists {
		return storage.ErrNotFound
	}
	groupCopy := *grp
	g.s.groups[key] = &groupCopy
	return nil
}

// ListByMint retrieves all groups of a mint, ordered by id ASC.
func (g *GroupStore) ListByMint(_ context.Context, mint string) ([]*domain.Group, error) {
	var result []*domain.Group
	for key, grp := range g.s.groups {
		if key.mint == mint {
			groupCopy := *grp
			result = append(result, &groupCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

var _ storage.GroupStore = (*GroupStore)(nil)
