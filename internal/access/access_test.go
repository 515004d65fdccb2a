package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-security-token/internal/domain"
)

func TestTable_GrantAndRevoke(t *testing.T) {
	table := NewTable()
	ctx := context.Background()

	table.Grant("mint1", "alice", domain.RoleTransferAdmin|domain.RoleWalletsAdmin)

	ok, err := table.HasRole(ctx, "mint1", "alice", domain.RoleTransferAdmin)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = table.HasRole(ctx, "mint2", "alice", domain.RoleTransferAdmin)
	assert.False(t, ok, "grant must be scoped to its mint")

	table.Revoke("mint1", "alice", domain.RoleTransferAdmin)
	ok, _ = table.HasRole(ctx, "mint1", "alice", domain.RoleTransferAdmin)
	assert.False(t, ok)
	ok, _ = table.HasRole(ctx, "mint1", "alice", domain.RoleWalletsAdmin)
	assert.True(t, ok)
}

func TestTable_WildcardMint(t *testing.T) {
	table := NewTable()
	table.Grant(AnyMint, "root", domain.RoleContractAdmin)

	assert.Equal(t, domain.RoleContractAdmin, table.Roles("anything", "root"))
}

func TestTable_GrantAll(t *testing.T) {
	table := NewTable()
	ctx := context.Background()
	table.Grant("mint1", "admin", domain.RoleAll)

	for _, role := range domain.AllRoles {
		ok, err := table.HasRole(ctx, "mint1", "admin", role)
		require.NoError(t, err)
		assert.True(t, ok, role.String())
	}
	assert.Equal(t, "contract_admin|reserve_admin|wallets_admin|transfer_admin", table.Roles("mint1", "admin").String())

	table.Revoke("mint1", "admin", domain.RoleReserveAdmin)
	assert.False(t, table.Roles("mint1", "admin").Has(domain.RoleAll))
	assert.True(t, table.Roles("mint1", "admin").Has(domain.RoleContractAdmin|domain.RoleTransferAdmin))
}

func TestRequire(t *testing.T) {
	table := NewTable()
	ctx := context.Background()
	table.Grant("mint1", "wallets", domain.RoleWalletsAdmin)

	assert.NoError(t, Require(ctx, table, "mint1", "wallets", domain.RoleTransferAdmin, domain.RoleWalletsAdmin))
	assert.ErrorIs(t, Require(ctx, table, "mint1", "wallets", domain.RoleTransferAdmin), domain.ErrUnauthorized)
	assert.ErrorIs(t, Require(ctx, table, "mint1", "nobody", domain.RoleReserveAdmin), domain.ErrUnauthorized)
}

type failingChecker struct{}

func (failingChecker) HasRole(context.Context, string, string, domain.Role) (bool, error) {
	return false, errors.New("backend down")
}

func TestRequire_PropagatesCheckerError(t *testing.T) {
	err := Require(context.Background(), failingChecker{}, "mint1", "alice", domain.RoleContractAdmin)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUnauthorized)
	assert.Contains(t, err.Error(), "backend down")
}
