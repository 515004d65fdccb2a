// Package access answers "does caller hold role X for this token".
package access

//go:generate mockgen -source=access.go -destination=mocks/mocks.go -package=mocks Checker

import (
	"context"
	"fmt"
	"sync"

	"solana-security-token/internal/domain"
)

// AnyMint grants a role for every token.
const AnyMint = "*"

// Checker is the authorization collaborator consumed by the services.
type Checker interface {
	HasRole(ctx context.Context, mint, caller string, role domain.Role) (bool, error)
}

// Require returns domain.ErrUnauthorized unless caller holds at least one of roles.
func Require(ctx context.Context, c Checker, mint, caller string, roles ...domain.Role) error {
	for _, role := range roles {
		ok, err := c.HasRole(ctx, mint, caller, role)
		if err != nil {
			return fmt.Errorf("check role %s: %w", role, err)
		}
		if ok {
			return nil
		}
	}
	return domain.ErrUnauthorized
}

type grantKey struct {
	mint   string
	caller string
}

// Table is an in-memory role table.
type Table struct {
	mu     sync.RWMutex
	grants map[grantKey]domain.Role
}

// NewTable creates an empty role table.
func NewTable() *Table {
	return &Table{grants: make(map[grantKey]domain.Role)}
}

// Grant adds roles to caller for mint. Use AnyMint for every token.
func (t *Table) Grant(mint, caller string, roles domain.Role) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.grants[grantKey{mint, caller}] |= roles
}

// Revoke removes roles from caller for mint.
func (t *Table) Revoke(mint, caller string, roles domain.Role) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := grantKey{mint, caller}
	left := t.grants[key] &^ roles
	if left == 0 {
		delete(t.grants, key)
		return
	}
	t.grants[key] = left
}

// Roles returns the roles caller holds for mint, wildcard grants included.
func (t *Table) Roles(mint, caller string) domain.Role {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.grants[grantKey{mint, caller}] | t.grants[grantKey{AnyMint, caller}]
}

// HasRole implements Checker.
func (t *Table) HasRole(_ context.Context, mint, caller string, role domain.Role) (bool, error) {
	return t.Roles(mint, caller).Has(role), nil
}

var _ Checker = (*Table)(nil)
