package vesting

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"solana-security-token/internal/access"
	"solana-security-token/internal/clock"
	"solana-security-token/internal/compliance"
	"solana-security-token/internal/domain"
	"solana-security-token/internal/idhash"
	"solana-security-token/internal/solana"
	"solana-security-token/internal/storage/memory"
	"solana-security-token/internal/token"
)

const (
	start    = uint64(1_000_000)
	maxDelay = uint64(1000)
	minLock  = uint64(10)
)

var (
	programID = solana.MustParsePublicKey("6yEnqdEjX3zBBDkzhwTRGJwv1jRaN4QE4gywmgdcfPBZ")
	mint      = solana.PublicKey{1}.String()
	admin     = solana.PublicKey{2}.String()
	recipient = solana.PublicKey{3}.String()
	canceler  = solana.PublicKey{4}.String()
	outsider  = solana.PublicKey{5}.String()
	stranger  = solana.PublicKey{6}.String() // bound to a group without rules
)

// =============================================================================
// Vesting Service Test Suite
// =============================================================================
// Escrow sits in group 1, recipient and canceler in group 2 and the stranger
// in group 3. Only 1 -> 2 is approved.

type VestingSuite struct {
	suite.Suite
	ctx        context.Context
	clock      *clock.Fixed
	compliance *compliance.Service
	tokens     *token.Service
	service    *Service
	deployment *domain.VestingDeployment
}

func TestVestingSuite(t *testing.T) {
	suite.Run(t, new(VestingSuite))
}

func (s *VestingSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clock.NewFixed(start)

	deriver, err := solana.NewDeriver(programID, 64)
	s.Require().NoError(err)
	roles := access.NewTable()
	roles.Grant(access.AnyMint, admin, domain.RoleAll)
	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.compliance = compliance.New(store, roles, deriver, compliance.WithLogger(logger))
	s.tokens = token.New(store, roles, token.WithClock(s.clock), token.WithLogger(logger))
	s.service = New(store, roles, deriver, WithClock(s.clock), WithLogger(logger))

	_, err = s.compliance.InitializeRegistry(s.ctx, admin, mint, 10)
	s.Require().NoError(err)
	s.deployment, err = s.service.InitializeDeployment(s.ctx, admin, mint, 0, maxDelay, minLock)
	s.Require().NoError(err)
	escrow := s.deployment.EscrowWallet
	s.Require().NoError(s.compliance.SetLockupEscrow(s.ctx, admin, mint, escrow))

	for id := uint64(1); id <= 3; id++ {
		s.Require().NoError(s.compliance.InitializeGroup(s.ctx, admin, mint, id, 0))
	}
	bindings := []struct {
		wallet string
		group  uint64
		holder uint64
	}{
		{escrow, 1, 0},
		{recipient, 2, 1},
		{canceler, 2, 2},
		{stranger, 3, 3},
	}
	for _, b := range bindings {
		s.Require().NoError(s.compliance.CreateHolder(s.ctx, admin, mint, b.holder))
		s.Require().NoError(s.compliance.CreateHolderGroup(s.ctx, admin, mint, b.holder, b.group))
		h := b.holder
		_, err := s.compliance.BindWallet(s.ctx, admin, mint, b.wallet, b.group, &h)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.compliance.InitializeTransferRule(s.ctx, admin, mint, 1, 2, 0))
}

func (s *VestingSuite) createSchedule(count, delay, bips, period uint64) uint64 {
	id, err := s.service.CreateSchedule(s.ctx, admin, s.deployment.Address, ScheduleParams{
		ReleaseCount:                  count,
		DelayUntilFirstReleaseSeconds: delay,
		InitialReleaseBips:            bips,
		PeriodBetweenReleasesSeconds:  period,
	})
	s.Require().NoError(err)
	return id
}

func (s *VestingSuite) mintLock(amount, commencement, scheduleID uint64) uint64 {
	id, err := s.service.MintTimelock(s.ctx, admin, s.deployment.Address, MintParams{
		Recipient:    recipient,
		Amount:       amount,
		Commencement: commencement,
		ScheduleID:   scheduleID,
		CancelableBy: []string{canceler},
	})
	s.Require().NoError(err)
	return id
}

func (s *VestingSuite) balance(wallet string) uint64 {
	b, err := s.tokens.BalanceOf(s.ctx, mint, wallet)
	s.Require().NoError(err)
	return b
}

func (s *VestingSuite) timelock(id uint64) Balances {
	b, err := s.service.TimelockBalance(s.ctx, s.deployment.Address, recipient, id)
	s.Require().NoError(err)
	return b
}

// =============================================================================
// Deployments and schedules
// =============================================================================

func (s *VestingSuite) TestInitializeDeployment() {
	deriver, err := solana.NewDeriver(programID, 1)
	s.Require().NoError(err)
	wantAddr, err := deriver.DeploymentAddress(mint, 0)
	s.Require().NoError(err)
	wantEscrow, err := deriver.EscrowAddress(wantAddr)
	s.Require().NoError(err)
	s.Equal(wantAddr, s.deployment.Address)
	s.Equal(wantEscrow, s.deployment.EscrowWallet)

	_, err = s.service.InitializeDeployment(s.ctx, admin, mint, 0, maxDelay, minLock)
	s.ErrorIs(err, domain.ErrDeploymentAlreadyExists)

	other, err := s.service.InitializeDeployment(s.ctx, admin, mint, 1, maxDelay, minLock)
	s.Require().NoError(err)
	s.NotEqual(s.deployment.Address, other.Address)

	_, err = s.service.InitializeDeployment(s.ctx, admin, solana.PublicKey{9}.String(), 0, maxDelay, minLock)
	s.ErrorIs(err, domain.ErrRegistryNotFound)
	_, err = s.service.InitializeDeployment(s.ctx, outsider, mint, 2, maxDelay, minLock)
	s.ErrorIs(err, domain.ErrUnauthorized)
}

func (s *VestingSuite) TestCreateSchedule() {
	s.Equal(uint64(0), s.createSchedule(2, 0, 5000, 1))
	s.Equal(uint64(1), s.createSchedule(1, 0, 10000, 0))

	schedules, err := s.service.Schedules(s.ctx, s.deployment.Address)
	s.Require().NoError(err)
	s.Require().Len(schedules, 2)
	s.Equal(idhash.ComputeSignerHash(admin, 1), schedules[1].SignerHash)

	n, err := s.service.ScheduleCount(s.ctx, s.deployment.Address)
	s.Require().NoError(err)
	s.Equal(uint64(2), n)

	tests := []struct {
		name string
		p    ScheduleParams
		want error
	}{
		{"zero releases", ScheduleParams{ReleaseCount: 0, InitialReleaseBips: 10000}, domain.ErrReleaseCountLessThanOne},
		{"delay above max", ScheduleParams{ReleaseCount: 1, InitialReleaseBips: 10000, DelayUntilFirstReleaseSeconds: maxDelay + 1}, domain.ErrFirstReleaseExceedsMaxDelay},
		{"zero period", ScheduleParams{ReleaseCount: 3, InitialReleaseBips: 0}, domain.ErrReleasePeriodIsZero},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.CreateSchedule(s.ctx, admin, s.deployment.Address, tt.p)
			s.ErrorIs(err, tt.want)
		})
	}

	_, err = s.service.CreateSchedule(s.ctx, outsider, s.deployment.Address, ScheduleParams{ReleaseCount: 1, InitialReleaseBips: 10000})
	s.ErrorIs(err, domain.ErrUnauthorized)
	_, err = s.service.CreateSchedule(s.ctx, admin, "missing", ScheduleParams{ReleaseCount: 1, InitialReleaseBips: 10000})
	s.ErrorIs(err, domain.ErrDeploymentNotFound)

	n, err = s.service.ScheduleCount(s.ctx, s.deployment.Address)
	s.Require().NoError(err)
	s.Equal(uint64(2), n)
}

// =============================================================================
// Minting
// =============================================================================

func (s *VestingSuite) TestMintTimelock() {
	sched := s.createSchedule(4, 0, 0, 100)

	s.Equal(uint64(0), s.mintLock(100, start, sched))
	s.Equal(uint64(1), s.mintLock(40, start, sched))
	s.Equal(uint64(140), s.balance(s.deployment.EscrowWallet))

	n, err := s.service.TimelockCountOf(s.ctx, s.deployment.Address, recipient)
	s.Require().NoError(err)
	s.Equal(uint64(2), n)

	b, err := s.service.RecipientBalance(s.ctx, s.deployment.Address, recipient)
	s.Require().NoError(err)
	s.Equal(Balances{Total: 140, Unlocked: 0, Locked: 140}, b)
}

func (s *VestingSuite) TestMintTimelock_Validation() {
	delayed := s.createSchedule(4, 100, 0, 100)
	immediate := s.createSchedule(4, 0, 0, 100)
	tooMany := make([]string, domain.MaxCancelableAddresses+1)
	for i := range tooMany {
		tooMany[i] = solana.PublicKey{0xC0, byte(i)}.String()
	}

	tests := []struct {
		name string
		p    MintParams
		want error
	}{
		{"unknown schedule", MintParams{Amount: 100, Commencement: start, ScheduleID: 9}, domain.ErrInvalidScheduleID},
		{"less than one token per release", MintParams{Amount: 3, Commencement: start, ScheduleID: immediate}, domain.ErrPerReleaseTokenLessThanOne},
		{"below minimum", MintParams{Amount: minLock - 1, Commencement: start, ScheduleID: immediate}, domain.ErrAmountBelowMinTimelockAmount},
		{"commencement too early", MintParams{Amount: 100, Commencement: start - maxDelay - 1, ScheduleID: immediate}, domain.ErrCommencementOutOfRange},
		{"commencement too late", MintParams{Amount: 100, Commencement: start + maxDelay + 1, ScheduleID: immediate}, domain.ErrCommencementOutOfRange},
		{"first release too late", MintParams{Amount: 100, Commencement: start + maxDelay, ScheduleID: delayed}, domain.ErrInitialReleaseOutOfRange},
		{"too many cancelers", MintParams{Amount: 100, Commencement: start, ScheduleID: immediate, CancelableBy: tooMany}, domain.ErrTooManyCancelableAddresses},
		{"earliest commencement", MintParams{Amount: 100, Commencement: start - maxDelay, ScheduleID: immediate}, nil},
		{"latest commencement", MintParams{Amount: 100, Commencement: start + maxDelay, ScheduleID: immediate}, nil},
		{"cancelers at limit", MintParams{Amount: 100, Commencement: start, ScheduleID: immediate, CancelableBy: tooMany[1:]}, nil},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			tt.p.Recipient = recipient
			_, err := s.service.MintTimelock(s.ctx, admin, s.deployment.Address, tt.p)
			if tt.want == nil {
				s.NoError(err)
				return
			}
			s.ErrorIs(err, tt.want)
		})
	}

	_, err := s.service.MintTimelock(s.ctx, outsider, s.deployment.Address, MintParams{Recipient: recipient, Amount: 100, Commencement: start, ScheduleID: immediate})
	s.ErrorIs(err, domain.ErrUnauthorized)
	_, err = s.service.MintTimelock(s.ctx, admin, s.deployment.Address, MintParams{Recipient: "nobody", Amount: 100, Commencement: start, ScheduleID: immediate})
	s.ErrorIs(err, domain.ErrInvalidAddress)

	// Only the three accepted mints reached the escrow.
	s.Equal(uint64(300), s.balance(s.deployment.EscrowWallet))
}

// =============================================================================
// Withdrawal
// =============================================================================

func (s *VestingSuite) TestWithdraw() {
	sched := s.createSchedule(2, 0, 5000, 100)
	id := s.mintLock(100, start, sched)
	addr := s.deployment.Address

	s.ErrorIs(s.service.Withdraw(s.ctx, recipient, addr, 3, 1), domain.ErrInvalidTimelockID)
	s.ErrorIs(s.service.Withdraw(s.ctx, outsider, addr, id, 1), domain.ErrInvalidTimelockID)
	s.ErrorIs(s.service.Withdraw(s.ctx, recipient, addr, id, 0), domain.ErrAmountMustBePositive)
	s.ErrorIs(s.service.Withdraw(s.ctx, recipient, addr, id, 51), domain.ErrAmountExceedsUnlocked)

	s.Require().NoError(s.service.Withdraw(s.ctx, recipient, addr, id, 30))
	s.Equal(uint64(30), s.balance(recipient))
	s.Equal(uint64(70), s.balance(s.deployment.EscrowWallet))
	s.Equal(Balances{Total: 70, Unlocked: 20, Locked: 50}, s.timelock(id))

	s.clock.Set(start + 100)
	s.Require().NoError(s.service.Withdraw(s.ctx, recipient, addr, id, 70))
	s.Equal(uint64(100), s.balance(recipient))
	s.Equal(Balances{}, s.timelock(id))

	_, err := s.service.Cancel(s.ctx, canceler, addr, recipient, id, canceler)
	s.ErrorIs(err, domain.ErrTimelockHasNoValueLeft)
}

func (s *VestingSuite) TestForceTransferBetweenDeploymentEscrows() {
	// A second deployment whose escrow the registry does not name.
	other, err := s.service.InitializeDeployment(s.ctx, admin, mint, 1, maxDelay, minLock)
	s.Require().NoError(err)
	s.Require().NoError(s.compliance.CreateHolder(s.ctx, admin, mint, 4))
	s.Require().NoError(s.compliance.CreateHolderGroup(s.ctx, admin, mint, 4, 1))
	holder := uint64(4)
	_, err = s.compliance.BindWallet(s.ctx, admin, mint, other.EscrowWallet, 1, &holder)
	s.Require().NoError(err)
	s.Require().NoError(s.compliance.InitializeTransferRule(s.ctx, admin, mint, 1, 1, 0))

	sched := s.createSchedule(1, 0, 10000, 0)
	id := s.mintLock(100, start, sched)
	escrow := s.deployment.EscrowWallet

	err = s.tokens.ForceTransfer(s.ctx, admin, mint, escrow, other.EscrowWallet, 100)
	s.ErrorIs(err, domain.ErrForceTransferBetweenEscrows)
	err = s.tokens.ForceTransfer(s.ctx, admin, mint, other.EscrowWallet, escrow, 1)
	s.ErrorIs(err, domain.ErrForceTransferBetweenEscrows)

	// The escrow still backs the timelock.
	s.Equal(uint64(100), s.balance(escrow))
	s.Equal(uint64(0), s.balance(other.EscrowWallet))
	s.Require().NoError(s.service.Withdraw(s.ctx, recipient, s.deployment.Address, id, 100))
	s.Equal(uint64(100), s.balance(recipient))
}

func (s *VestingSuite) TestWithdraw_Enforced() {
	sched := s.createSchedule(1, 0, 10000, 0)
	id := s.mintLock(100, start, sched)
	addr := s.deployment.Address

	s.Require().NoError(s.compliance.SetPaused(s.ctx, admin, mint, true))
	s.ErrorIs(s.service.Withdraw(s.ctx, recipient, addr, id, 10), domain.ErrAllTransfersPaused)
	s.Equal(uint64(100), s.timelock(id).Unlocked)
	s.Require().NoError(s.compliance.SetPaused(s.ctx, admin, mint, false))

	s.Require().NoError(s.compliance.SetTransferRuleLockedUntil(s.ctx, admin, mint, 1, 2, start+50))
	s.ErrorIs(s.service.Withdraw(s.ctx, recipient, addr, id, 10), domain.ErrTransferRuleNotAllowedUntilLater)
	s.clock.Set(start + 50)
	s.NoError(s.service.Withdraw(s.ctx, recipient, addr, id, 10))
	s.Equal(uint64(90), s.timelock(id).Total)
}

func (s *VestingSuite) TestTransferUnlocked() {
	sched := s.createSchedule(2, 0, 5000, 100)
	first := s.mintLock(100, start, sched)
	second := s.mintLock(100, start, sched)
	addr := s.deployment.Address

	s.ErrorIs(s.service.TransferUnlocked(s.ctx, recipient, addr, 101), domain.ErrAmountExceedsUnlocked)
	s.Equal(uint64(50), s.timelock(first).Unlocked)

	s.Require().NoError(s.service.TransferUnlocked(s.ctx, recipient, addr, 80))
	s.Equal(uint64(80), s.balance(recipient))
	s.Equal(Balances{Total: 50, Unlocked: 0, Locked: 50}, s.timelock(first))
	s.Equal(Balances{Total: 70, Unlocked: 20, Locked: 50}, s.timelock(second))
	s.ErrorIs(s.service.TransferUnlocked(s.ctx, recipient, addr, 0), domain.ErrAmountMustBePositive)
}

// =============================================================================
// Cancellation
// =============================================================================

func (s *VestingSuite) TestCancel_NothingUnlocked() {
	sched := s.createSchedule(4, 100, 0, 100)
	id := s.mintLock(100, start, sched)

	res, err := s.service.Cancel(s.ctx, canceler, s.deployment.Address, recipient, id, canceler)
	s.Require().NoError(err)
	s.Equal(CancelResult{PaidOut: 0, Reclaimed: 100}, res)

	s.Equal(uint64(100), s.balance(canceler))
	s.Zero(s.balance(s.deployment.EscrowWallet))
	s.Zero(s.timelock(id).Total)

	// The id stays allocated.
	s.Equal(uint64(1), s.mintLock(100, start, sched))
}

func (s *VestingSuite) TestCancel_SplitsUnlockedAndLocked() {
	sched := s.createSchedule(2, 0, 5000, 100)
	id := s.mintLock(100, start, sched)
	s.Require().NoError(s.service.Withdraw(s.ctx, recipient, s.deployment.Address, id, 20))

	_, err := s.service.Cancel(s.ctx, outsider, s.deployment.Address, recipient, id, outsider)
	s.ErrorIs(err, domain.ErrPermissionDenied)
	_, err = s.service.Cancel(s.ctx, canceler, s.deployment.Address, recipient, 5, canceler)
	s.ErrorIs(err, domain.ErrInvalidTimelockID)

	res, err := s.service.Cancel(s.ctx, canceler, s.deployment.Address, recipient, id, canceler)
	s.Require().NoError(err)
	s.Equal(CancelResult{PaidOut: 30, Reclaimed: 50}, res)
	s.Equal(uint64(50), s.balance(recipient))
	s.Equal(uint64(50), s.balance(canceler))
	s.Zero(s.balance(s.deployment.EscrowWallet))
}

func (s *VestingSuite) TestCancel_ReclaimIsEnforced() {
	sched := s.createSchedule(4, 100, 0, 100)
	id := s.mintLock(100, start, sched)

	_, err := s.service.Cancel(s.ctx, canceler, s.deployment.Address, recipient, id, stranger)
	s.ErrorIs(err, domain.ErrTransferGroupNotApproved)
	_, err = s.service.Cancel(s.ctx, canceler, s.deployment.Address, recipient, id, outsider)
	s.ErrorIs(err, domain.ErrInvalidPda)

	// Both rejections rolled back.
	s.Equal(uint64(100), s.timelock(id).Total)
	s.Equal(uint64(100), s.balance(s.deployment.EscrowWallet))
}

func (s *VestingSuite) TestScheduleTimeline() {
	sched := s.createSchedule(4, 0, 800, 90*day)

	points, err := s.service.ScheduleTimeline(s.ctx, s.deployment.Address, sched, 0, 100)
	s.Require().NoError(err)
	s.Require().Len(points, 4)
	s.Equal(uint64(8), points[0].Unlocked)
	s.Equal(uint64(100), points[3].Unlocked)

	_, err = s.service.ScheduleTimeline(s.ctx, s.deployment.Address, 7, 0, 100)
	s.ErrorIs(err, domain.ErrInvalidScheduleID)
}
