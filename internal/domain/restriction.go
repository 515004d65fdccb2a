package domain

// RestrictionRegistry is the global transfer restriction record of one token.
// Corresponds to restriction_registries table in PostgreSQL.
type RestrictionRegistry struct {
	Address             string  // PDA ["trd", mint]
	Mint                string  // security token mint address
	CurrentHoldersCount uint64  // active holders
	NextHolderID        uint64  // issuance counter, never decremented
	MaxHolders          uint64  // cap on CurrentHoldersCount
	Paused              bool    // all transfers paused
	LockupEscrowAccount *string // vesting escrow wallet (nullable)
}

// Clone returns a deep copy of the registry.
func (r *RestrictionRegistry) Clone() *RestrictionRegistry {
	c := *r
	if r.LockupEscrowAccount != nil {
		v := *r.LockupEscrowAccount
		c.LockupEscrowAccount = &v
	}
	return &c
}

// IsLockupEscrow reports whether wallet is the registry's lockup escrow.
func (r *RestrictionRegistry) IsLockupEscrow(wallet string) bool {
	return r.LockupEscrowAccount != nil && *r.LockupEscrowAccount == wallet
}

// DefaultGroupID is the reserved group every registry starts with.
const DefaultGroupID uint64 = 0

// Group is a compliance class.
type Group struct {
	Mint                string
	ID                  uint64
	CurrentHoldersCount uint64 // holders with a HolderGroup in this group
	MaxHolders          uint64 // 0 = unlimited; always 0 for group 0
}

// HasCapacity reports whether one more holder fits into the group.
func (g *Group) HasCapacity() bool {
	if g.ID == DefaultGroupID || g.MaxHolders == 0 {
		return true
	}
	return g.CurrentHoldersCount < g.MaxHolders
}

// Holder is a legal identity that may own many wallets.
type Holder struct {
	Mint                    string
	ID                      uint64
	Active                  bool
	CurrentWalletsCount     uint64
	CurrentHolderGroupCount uint64
}

// HolderGroup associates a Holder with a Group.
type HolderGroup struct {
	Mint                string
	Group               uint64
	Holder              uint64
	CurrentWalletsCount uint64
}

// WalletBinding is the security associated account of one token wallet.
type WalletBinding struct {
	Address string  // PDA ["saa", mint, wallet]
	Mint    string  // security token mint address
	Wallet  string  // token-holding wallet
	Group   uint64  // compliance group
	Holder  *uint64 // owning holder (nullable)
}

// Clone returns a deep copy of the binding.
func (w *WalletBinding) Clone() *WalletBinding {
	c := *w
	if w.Holder != nil {
		v := *w.Holder
		c.Holder = &v
	}
	return &c
}

// TransferRule permits transfers from one group to another once LockedUntil passes.
type TransferRule struct {
	Mint        string
	GroupFrom   uint64
	GroupTo     uint64
	LockedUntil uint64 // unix seconds
}

// Balance is a wallet's token balance.
type Balance struct {
	Mint   string
	Wallet string
	Amount uint64
}
