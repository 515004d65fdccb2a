package compliance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"solana-security-token/internal/access/mocks"
	"solana-security-token/internal/domain"
	"solana-security-token/internal/storage/memory"
)

// =============================================================================
// Authorization Test Suite
// =============================================================================
// The role checker is mocked so each test pins exactly which roles a mutator
// asks for and in what order.

type AuthorizationSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	checker *mocks.MockChecker
	service *Service
}

func TestAuthorizationSuite(t *testing.T) {
	suite.Run(t, new(AuthorizationSuite))
}

func (s *AuthorizationSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.checker = mocks.NewMockChecker(s.ctrl)
	s.service = New(memory.NewStore(), s.checker, newDeriver(s.T()))
}

func (s *AuthorizationSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *AuthorizationSuite) TestWalletsAdminFallsBackToTransferAdmin() {
	gomock.InOrder(
		s.checker.EXPECT().HasRole(gomock.Any(), testMint, outsider, domain.RoleWalletsAdmin).Return(false, nil),
		s.checker.EXPECT().HasRole(gomock.Any(), testMint, outsider, domain.RoleTransferAdmin).Return(true, nil),
	)

	// Authorization passed; the missing registry is the next failure.
	err := s.service.CreateHolder(context.Background(), outsider, testMint, 0)
	s.ErrorIs(err, domain.ErrRegistryNotFound)
}

func (s *AuthorizationSuite) TestMissingRoleIsUnauthorized() {
	s.checker.EXPECT().HasRole(gomock.Any(), testMint, outsider, domain.RoleTransferAdmin).Return(false, nil)

	err := s.service.SetPaused(context.Background(), outsider, testMint, true)
	s.ErrorIs(err, domain.ErrUnauthorized)
}

func (s *AuthorizationSuite) TestEscrowConfigurationNeedsContractAdmin() {
	s.checker.EXPECT().HasRole(gomock.Any(), testMint, admin, domain.RoleContractAdmin).Return(false, nil)

	err := s.service.SetLockupEscrow(context.Background(), admin, testMint, walletAddr(1))
	s.ErrorIs(err, domain.ErrUnauthorized)
}

func (s *AuthorizationSuite) TestCheckerFailureIsNotABusinessError() {
	boom := errors.New("role backend unavailable")
	s.checker.EXPECT().HasRole(gomock.Any(), testMint, admin, domain.RoleTransferAdmin).Return(false, boom)

	err := s.service.InitializeGroup(context.Background(), admin, testMint, 1, 0)
	s.ErrorIs(err, boom)
	s.False(domain.IsBusiness(err))
	s.Contains(err.Error(), "initialize_group")
}
