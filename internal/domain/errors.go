package domain

import "errors"

// ErrorCode is the stable identifier of a business-rule rejection.
type ErrorCode string

// Error is a typed, non-retryable rejection. Callers compare with errors.Is
// against the exported sentinels below.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func newError(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsBusiness reports whether err is a business-rule rejection rather than an
// infrastructure failure.
func IsBusiness(err error) bool {
	return CodeOf(err) != ""
}

// Authorization.
var (
	ErrUnauthorized = newError("Unauthorized", "caller does not hold a role permitted for this operation")
)

// Input validation.
var (
	ErrInvalidAddress       = newError("InvalidAddress", "address is not a valid base58 public key")
	ErrAmountMustBePositive = newError("AmountMustBePositive", "amount must be greater than zero")
	ErrArithmeticOverflow   = newError("ArithmeticOverflow", "arithmetic overflow")
)

// Compliance registry.
var (
	ErrRegistryNotFound                                 = newError("RegistryNotFound", "transfer restriction registry not found")
	ErrRegistryAlreadyExists                            = newError("RegistryAlreadyExists", "transfer restriction registry already initialized")
	ErrGroupNotFound                                    = newError("GroupNotFound", "transfer restriction group not found")
	ErrGroupAlreadyExists                               = newError("GroupAlreadyExists", "transfer restriction group already initialized")
	ErrHolderNotFound                                   = newError("HolderNotFound", "transfer restriction holder not found")
	ErrHolderAlreadyExists                              = newError("HolderAlreadyExists", "transfer restriction holder already initialized")
	ErrInvalidHolderIndex                               = newError("InvalidHolderIndex", "holder id must not exceed the next holder id")
	ErrHolderGroupNotFound                              = newError("HolderGroupNotFound", "holder is not a member of the group")
	ErrHolderGroupExists                                = newError("HolderGroupAlreadyExists", "holder group already initialized")
	ErrWalletNotFound                                   = newError("WalletNotFound", "wallet has no security associated account")
	ErrWalletAlreadyBound                               = newError("WalletAlreadyBound", "wallet already has a security associated account")
	ErrTransferRuleNotFound                             = newError("TransferRuleNotFound", "transfer rule not found")
	ErrTransferRuleExists                               = newError("TransferRuleAlreadyExists", "transfer rule already initialized")
	ErrMaxHoldersReached                                = newError("MaxHoldersReached", "max holders reached")
	ErrMaxHoldersReachedInsideTheGroup                  = newError("MaxHoldersReachedInsideTheGroup", "max holders reached inside the group")
	ErrCurrentHolderGroupCountMustBeZero                = newError("CurrentHolderGroupCountMustBeZero", "holder still belongs to at least one group")
	ErrCurrentWalletsCountMustBeZero                    = newError("CurrentWalletsCountMustBeZero", "wallets are still attached")
	ErrNewGroupIsTheSameAsTheCurrentGroup               = newError("NewGroupIsTheSameAsTheCurrentGroup", "new group is the same as the current group")
	ErrNewHolderMaxMustExceedCurrentHolderCount         = newError("NewHolderMaxMustExceedCurrentHolderCount", "new holder max must not be below the current holder count")
	ErrNewHolderGroupMaxMustExceedCurrentHolderGroupCnt = newError("NewHolderGroupMaxMustExceedCurrentHolderGroupCount", "new holder group max must not be below the current holder count of the group")
	ErrZeroGroupHolderGroupMaxCannotBeNonZero           = newError("ZeroGroupHolderGroupMaxCannotBeNonZero", "group 0 holder max must stay 0")
	ErrValueUnchanged                                   = newError("ValueUnchanged", "new value equals the current value")
	ErrLockupEscrowAlreadySet                           = newError("LockupEscrowAlreadySet", "lockup escrow account is already set")
)

// Transfer enforcement.
var (
	ErrAllTransfersPaused               = newError("AllTransfersPaused", "all transfers are paused")
	ErrInvalidPda                       = newError("InvalidPda", "wallet is not bound to a security associated account")
	ErrTransferGroupNotApproved         = newError("TransferGroupNotApproved", "no transfer rule between the groups")
	ErrTransferRuleNotAllowedUntilLater = newError("TransferRuleNotAllowedUntilLater", "transfer rule is locked until later")
	ErrForceTransferBetweenEscrows      = newError("ForceTransferBetweenEscrows", "forced transfer between lockup escrow accounts is not allowed")
	ErrInsufficientFunds                = newError("InsufficientFunds", "insufficient token balance")
)

// Vesting.
var (
	ErrDeploymentNotFound              = newError("DeploymentNotFound", "vesting deployment not found")
	ErrDeploymentAlreadyExists         = newError("DeploymentAlreadyExists", "vesting deployment already initialized")
	ErrReleaseCountLessThanOne         = newError("ReleaseCountLessThanOne", "release count must be at least 1")
	ErrInitReleasePortionBiggerThan100 = newError("InitReleasePortionBiggerThan100Pct", "initial release portion is bigger than 100%")
	ErrInitReleasePortionMustBe100Pct  = newError("InitReleasePortionMustBe100Pct", "a single release must unlock 100%")
	ErrReleasePeriodIsZero             = newError("ReleasePeriodIsZero", "release period must be at least 1 second")
	ErrFirstReleaseExceedsMaxDelay     = newError("FirstReleaseExceedsMaxDelay", "first release delay exceeds the max release delay")
	ErrInvalidScheduleID               = newError("InvalidScheduleId", "release schedule id is out of range")
	ErrPerReleaseTokenLessThanOne      = newError("PerReleaseTokenLessThanOne", "each release must carry at least one token")
	ErrAmountBelowMinTimelockAmount    = newError("AmountBelowMinTimelockAmount", "amount is below the minimum timelock amount")
	ErrCommencementOutOfRange          = newError("CommencementOutOfRange", "commencement timestamp is out of range")
	ErrInitialReleaseOutOfRange        = newError("InitialReleaseOutOfRange", "initial release timestamp is out of range")
	ErrTooManyCancelableAddresses      = newError("TooManyCancelableAddresses", "too many cancelable addresses")
	ErrInvalidTimelockID               = newError("InvalidTimelockId", "timelock id is out of range")
	ErrPermissionDenied                = newError("PermissionDenied", "caller may not cancel this timelock")
	ErrTimelockHasNoValueLeft          = newError("TimelockHasNoValueLeft", "timelock has no value left")
	ErrAmountExceedsUnlocked           = newError("AmountExceedsUnlocked", "amount exceeds the unlocked balance")
	ErrRecipientWalletRequired         = newError("RecipientWalletRequired", "a recipient wallet is required to pay out the unlocked balance")
)

// notFoundCodes lists the codes that denote a missing record.
var notFoundCodes = map[ErrorCode]bool{
	ErrRegistryNotFound.Code:     true,
	ErrGroupNotFound.Code:        true,
	ErrHolderNotFound.Code:       true,
	ErrHolderGroupNotFound.Code:  true,
	ErrWalletNotFound.Code:       true,
	ErrTransferRuleNotFound.Code: true,
	ErrDeploymentNotFound.Code:   true,
	ErrInvalidScheduleID.Code:    true,
	ErrInvalidTimelockID.Code:    true,
}

// IsNotFound reports whether err denotes a missing record.
func IsNotFound(err error) bool {
	return notFoundCodes[CodeOf(err)]
}
