package api

import (
	"solana-security-token/internal/domain"
	"solana-security-token/internal/vesting"
)

type registryView struct {
	Address             string  `json:"address"`
	Mint                string  `json:"mint"`
	CurrentHoldersCount uint64  `json:"current_holders_count"`
	NextHolderID        uint64  `json:"next_holder_id"`
	MaxHolders          uint64  `json:"max_holders"`
	Paused              bool    `json:"paused"`
	LockupEscrowAccount *string `json:"lockup_escrow_account"`
}

func newRegistryView(r *domain.RestrictionRegistry) registryView {
	return registryView{
		Address:             r.Address,
		Mint:                r.Mint,
		CurrentHoldersCount: r.CurrentHoldersCount,
		NextHolderID:        r.NextHolderID,
		MaxHolders:          r.MaxHolders,
		Paused:              r.Paused,
		LockupEscrowAccount: r.LockupEscrowAccount,
	}
}

type groupView struct {
	ID                  uint64 `json:"id"`
	CurrentHoldersCount uint64 `json:"current_holders_count"`
	MaxHolders          uint64 `json:"max_holders"`
}

func newGroupView(g *domain.Group) groupView {
	return groupView{ID: g.ID, CurrentHoldersCount: g.CurrentHoldersCount, MaxHolders: g.MaxHolders}
}

type holderView struct {
	ID                      uint64 `json:"id"`
	Active                  bool   `json:"active"`
	CurrentWalletsCount     uint64 `json:"current_wallets_count"`
	CurrentHolderGroupCount uint64 `json:"current_holder_group_count"`
}

type holderGroupView struct {
	Group               uint64 `json:"group"`
	Holder              uint64 `json:"holder"`
	CurrentWalletsCount uint64 `json:"current_wallets_count"`
}

type walletView struct {
	Address string  `json:"address"`
	Wallet  string  `json:"wallet"`
	Group   uint64  `json:"group"`
	Holder  *uint64 `json:"holder"`
}

func newWalletView(w *domain.WalletBinding) walletView {
	return walletView{Address: w.Address, Wallet: w.Wallet, Group: w.Group, Holder: w.Holder}
}

type ruleView struct {
	From        uint64 `json:"from"`
	To          uint64 `json:"to"`
	LockedUntil uint64 `json:"locked_until"`
}

type eventView struct {
	ID         string            `json:"id"`
	Scope      string            `json:"scope"`
	Operation  string            `json:"operation"`
	Caller     string            `json:"caller"`
	Outcome    string            `json:"outcome"`
	Code       string            `json:"code,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  int64             `json:"timestamp"`
}

type deploymentView struct {
	Address           string `json:"address"`
	Mint              string `json:"mint"`
	Nonce             uint64 `json:"nonce"`
	EscrowWallet      string `json:"escrow_wallet"`
	MaxReleaseDelay   uint64 `json:"max_release_delay"`
	MinTimelockAmount uint64 `json:"min_timelock_amount"`
	ScheduleCount     uint64 `json:"schedule_count"`
}

func newDeploymentView(d *domain.VestingDeployment) deploymentView {
	return deploymentView{
		Address:           d.Address,
		Mint:              d.Mint,
		Nonce:             d.Nonce,
		EscrowWallet:      d.EscrowWallet,
		MaxReleaseDelay:   d.MaxReleaseDelay,
		MinTimelockAmount: d.MinTimelockAmount,
		ScheduleCount:     d.ScheduleCount,
	}
}

type scheduleView struct {
	ID                            uint64 `json:"id"`
	ReleaseCount                  uint64 `json:"release_count"`
	DelayUntilFirstReleaseSeconds uint64 `json:"delay_until_first_release_seconds"`
	InitialReleaseBips            uint64 `json:"initial_release_bips"`
	PeriodBetweenReleasesSeconds  uint64 `json:"period_between_releases_seconds"`
	SignerHash                    string `json:"signer_hash"`
}

func newScheduleView(s *domain.ReleaseSchedule) scheduleView {
	return scheduleView{
		ID:                            s.ID,
		ReleaseCount:                  s.ReleaseCount,
		DelayUntilFirstReleaseSeconds: s.DelayUntilFirstReleaseSeconds,
		InitialReleaseBips:            s.InitialReleaseBips,
		PeriodBetweenReleasesSeconds:  s.PeriodBetweenReleasesSeconds,
		SignerHash:                    s.SignerHash,
	}
}

type timelockView struct {
	ID                    uint64           `json:"id"`
	ScheduleID            uint64           `json:"schedule_id"`
	TotalAmount           uint64           `json:"total_amount"`
	CommencementTimestamp uint64           `json:"commencement_timestamp"`
	TokensTransferred     uint64           `json:"tokens_transferred"`
	CancelableBy          []string         `json:"cancelable_by"`
	Balance               vesting.Balances `json:"balance"`
}
