package postgres

import (
	"context"
	"fmt"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/storage"
)

// RegistryStore implements storage.RegistryStore using PostgreSQL.
type RegistryStore struct {
	q querier
}

// Insert adds a new registry. Returns ErrDuplicateKey if mint exists.
func (s *RegistryStore) Insert(ctx context.Context, r *domain.RestrictionRegistry) error {
	if r == nil || r.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO restriction_registries (
			mint, address, current_holders_count, next_holder_id, max_holders, paused, lockup_escrow_account
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.q.Exec(ctx, query,
		r.Mint,
		r.Address,
		i64(r.CurrentHoldersCount),
		i64(r.NextHolderID),
		i64(r.MaxHolders),
		r.Paused,
		r.LockupEscrowAccount,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert registry: %w", err)
	}
	return nil
}

// Get retrieves the registry of a mint. Returns ErrNotFound if not exists.
func (s *RegistryStore) Get(ctx context.Context, mint string) (*domain.RestrictionRegistry, error) {
	query := `
		SELECT mint, address, current_holders_count, next_holder_id, max_holders, paused, lockup_escrow_account
		FROM restriction_registries
		WHERE mint = $1
		FOR UPDATE
	`

	var (
		r                     domain.RestrictionRegistry
		holders, next, maxCap int64
	)
	err := s.q.QueryRow(ctx, query, mint).Scan(
		&r.Mint,
		&r.Address,
		&holders,
		&next,
		&maxCap,
		&r.Paused,
		&r.LockupEscrowAccount,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get registry: %w", err)
	}
	r.CurrentHoldersCount = u64(holders)
	r.NextHolderID = u64(next)
	r.MaxHolders = u64(maxCap)
	return &r, nil
}

// Update overwrites an existing registry. Returns ErrNotFound if not exists.
func (s *RegistryStore) Update(ctx context.Context, r *domain.RestrictionRegistry) error {
	if r == nil {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE restriction_registries
		SET address = $2, current_holders_count = $3, next_holder_id = $4,
			max_holders = $5, paused = $6, lockup_escrow_account = $7
		WHERE mint = $1
	`

	tag, err := s.q.Exec(ctx, query,
		r.Mint,
		r.Address,
		i64(r.CurrentHoldersCount),
		i64(r.NextHolderID),
		i64(r.MaxHolders),
		r.Paused,
		r.LockupEscrowAccount,
	)
	if err != nil {
		return fmt.Errorf("update registry: %w", err)
	}
	if !updated(tag) {
		return storage.ErrNotFound
	}
	return nil
}

// GroupStore implements storage.GroupStore using PostgreSQL.
type GroupStore struct {
	q querier
}

// Insert adds a new group. Returns ErrDuplicateKey if (mint, id) exists.
func (s *GroupStore) Insert(ctx context.Context, g *domain.Group) error {
	if g == nil || g.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO transfer_groups (mint, id, current_holders_count, max_holders)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.q.Exec(ctx, query, g.Mint, i64(g.ID), i64(g.CurrentHoldersCount), i64(g.MaxHolders))
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isForeignKeyError(err) {
			return storage.ErrInvalidInput
		}
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

// Get retrieves a group. Returns ErrNotFound if not exists.
func (s *GroupStore) Get(ctx context.Context, mint string, id uint64) (*domain.Group, error) {
	query := `
		SELECT mint, id, current_holders_count, max_holders
		FROM transfer_groups
		WHERE mint = $1 AND id = $2
		FOR UPDATE
	`

	g, err := scanGroup(s.q.QueryRow(ctx, query, mint, i64(id)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

// Update overwrites an existing group. Returns ErrNotFound if not exists.
func (s *GroupStore) Update(ctx context.Context, g *domain.Group) error {
	if g == nil {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE transfer_groups
		SET current_holders_count = $3, max_holders = $4
		WHERE mint = $1 AND id = $2
	`

	tag, err := s.q.Exec(ctx, query, g.Mint, i64(g.ID), i64(g.CurrentHoldersCount), i64(g.MaxHolders))
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if !updated(tag) {
		return storage.ErrNotFound
	}
	return nil
}

// ListByMint retrieves all groups of a mint, ordered by id ASC.
func (s *GroupStore) ListByMint(ctx context.Context, mint string) ([]*domain.Group, error) {
	query := `
		SELECT mint, id, current_holders_count, max_holders
		FROM transfer_groups
		WHERE mint = $1
		ORDER BY id ASC
	`

	rows, err := s.q.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []*domain.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group row: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group rows: %w", err)
	}
	return groups, nil
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*domain.Group, error) {
	var (
		g              domain.Group
		id, cur, limit int64
	)
	if err := row.Scan(&g.Mint, &id, &cur, &limit); err != nil {
		return nil, err
	}
	g.ID = u64(id)
	g.CurrentHoldersCount = u64(cur)
	g.MaxHolders = u64(limit)
	return &g, nil
}

// HolderStore implements storage.HolderStore using PostgreSQL.
type HolderStore struct {
	q querier
}

// Insert adds a new holder. Returns ErrDuplicateKey if (mint, id) exists.
func (s *HolderStore) Insert(ctx context.Context, h *domain.Holder) error {
	if h == nil || h.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO holders (mint, id, active, current_wallets_count, current_holder_group_count)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.q.Exec(ctx, query,
		h.Mint,
		i64(h.ID),
		h.Active,
		i64(h.CurrentWalletsCount),
		i64(h.CurrentHolderGroupCount),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isForeignKeyError(err) {
			return storage.ErrInvalidInput
		}
		return fmt.Errorf("insert holder: %w", err)
	}
	return nil
}

// Get retrieves a holder. Returns ErrNotFound if not exists.
func (s *HolderStore) Get(ctx context.Context, mint string, id uint64) (*domain.Holder, error) {
	query := `
		SELECT mint, id, active, current_wallets_count, current_holder_group_count
		FROM holders
		WHERE mint = $1 AND id = $2
		FOR UPDATE
	`

	var (
		h                     domain.Holder
		hid, wallets, hgCount int64
	)
	err := s.q.QueryRow(ctx, query, mint, i64(id)).Scan(&h.Mint, &hid, &h.Active, &wallets, &hgCount)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get holder: %w", err)
	}
	h.ID = u64(hid)
	h.CurrentWalletsCount = u64(wallets)
	h.CurrentHolderGroupCount = u64(hgCount)
	return &h, nil
}

// Update overwrites an existing holder. Returns ErrNotFound if not exists.
func (s *HolderStore) Update(ctx context.Context, h *domain.Holder) error {
	if h == nil {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE holders
		SET active = $3, current_wallets_count = $4, current_holder_group_count = $5
		WHERE mint = $1 AND id = $2
	`

	tag, err := s.q.Exec(ctx, query,
		h.Mint,
		i64(h.ID),
		h.Active,
		i64(h.CurrentWalletsCount),
		i64(h.CurrentHolderGroupCount),
	)
	if err != nil {
		return fmt.Errorf("update holder: %w", err)
	}
	if !updated(tag) {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a holder. Returns ErrNotFound if not exists.
func (s *HolderStore) Delete(ctx context.Context, mint string, id uint64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM holders WHERE mint = $1 AND id = $2`, mint, i64(id))
	if err != nil {
		return fmt.Errorf("delete holder: %w", err)
	}
	if !updated(tag) {
		return storage.ErrNotFound
	}
	return nil
}

// HolderGroupStore implements storage.HolderGroupStore using PostgreSQL.
type HolderGroupStore struct {
	q querier
}

// Insert adds a new association. Returns ErrDuplicateKey if (mint, group, holder) exists.
func (s *HolderGroupStore) Insert(ctx context.Context, hg *domain.HolderGroup) error {
	if hg == nil || hg.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO holder_groups (mint, group_id, holder_id, current_wallets_count)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.q.Exec(ctx, query, hg.Mint, i64(hg.Group), i64(hg.Holder), i64(hg.CurrentWalletsCount))
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isForeignKeyError(err) {
			return storage.ErrInvalidInput
		}
		return fmt.Errorf("insert holder group: %w", err)
	}
	return nil
}

// Get retrieves an association. Returns ErrNotFound if not exists.
func (s *HolderGroupStore) Get(ctx context.Context, mint string, group, holder uint64) (*domain.HolderGroup, error) {
	query := `
		SELECT mint, group_id, holder_id, current_wallets_count
		FROM holder_groups
		WHERE mint = $1 AND group_id = $2 AND holder_id = $3
		FOR UPDATE
	`

	var (
		hg                domain.HolderGroup
		gid, hid, wallets int64
	)
	err := s.q.QueryRow(ctx, query, mint, i64(group), i64(holder)).Scan(&hg.Mint, &gid, &hid, &wallets)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get holder group: %w", err)
	}
	hg.Group = u64(gid)
	hg.Holder = u64(hid)
	hg.CurrentWalletsCount = u64(wallets)
	return &hg, nil
}

// Update overwrites an existing association. Returns ErrNotFound if not exists.
func (s *HolderGroupStore) Update(ctx context.Context, hg *domain.HolderGroup) error {
	if hg == nil {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE holder_groups
		SET current_wallets_count = $4
		WHERE mint = $1 AND group_id = $2 AND holder_id = $3
	`

	tag, err := s.q.Exec(ctx, query, hg.Mint, i64(hg.Group), i64(hg.Holder), i64(hg.CurrentWalletsCount))
	if err != nil {
		return fmt.Errorf("update holder group: %w", err)
	}
	if !updated(tag) {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes an association. Returns ErrNotFound if not exists.
func (s *HolderGroupStore) Delete(ctx context.Context, mint string, group, holder uint64) error {
	query := `DELETE FROM holder_groups WHERE mint = $1 AND group_id = $2 AND holder_id = $3`

	tag, err := s.q.Exec(ctx, query, mint, i64(group), i64(holder))
	if err != nil {
		return fmt.Errorf("delete holder group: %w", err)
	}
	if !updated(tag) {
		return storage.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var (
	_ storage.RegistryStore    = (*RegistryStore)(nil)
	_ storage.GroupStore       = (*GroupStore)(nil)
	_ storage.HolderStore      = (*HolderStore)(nil)
	_ storage.HolderGroupStore = (*HolderGroupStore)(nil)
)
