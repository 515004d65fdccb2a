package domain

import (
	"fmt"
	"strings"
)

// Role is an administrative capability. Roles combine as bit flags.
type Role uint8

const (
	RoleContractAdmin Role = 1 << iota
	RoleReserveAdmin
	RoleWalletsAdmin
	RoleTransferAdmin

	// RoleAll combines every role.
	RoleAll = RoleContractAdmin | RoleReserveAdmin | RoleWalletsAdmin | RoleTransferAdmin
)

// AllRoles lists every role in flag order.
var AllRoles = []Role{RoleContractAdmin, RoleReserveAdmin, RoleWalletsAdmin, RoleTransferAdmin}

func (r Role) String() string {
	switch r {
	case RoleContractAdmin:
		return "contract_admin"
	case RoleReserveAdmin:
		return "reserve_admin"
	case RoleWalletsAdmin:
		return "wallets_admin"
	case RoleTransferAdmin:
		return "transfer_admin"
	}
	var names []string
	for _, one := range AllRoles {
		if r&one != 0 {
			names = append(names, one.String())
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("role(%d)", uint8(r))
	}
	return strings.Join(names, "|")
}

// Has reports whether r includes every flag of other.
func (r Role) Has(other Role) bool {
	return other != 0 && r&other == other
}

// ParseRole parses a role name as printed by String.
func ParseRole(s string) (Role, error) {
	for _, r := range AllRoles {
		if r.String() == strings.ToLower(strings.TrimSpace(s)) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}
