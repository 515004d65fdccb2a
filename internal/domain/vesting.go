package domain

// MaxCancelableAddresses bounds Timelock.CancelableBy.
const MaxCancelableAddresses = 10

// BipsPrecision is 100% expressed in bips.
const BipsPrecision uint64 = 10000

// VestingDeployment scopes release schedules and timelocks to one escrow.
type VestingDeployment struct {
	Address           string // PDA ["tokenlock", mint, nonce]
	Mint              string
	Nonce             uint64
	EscrowWallet      string // PDA ["escrow", address]
	MaxReleaseDelay   uint64 // seconds
	MinTimelockAmount uint64
	ScheduleCount     uint64
}

// ReleaseSchedule defines how a timelock principal unlocks over time.
type ReleaseSchedule struct {
	Deployment                    string
	ID                            uint64 // 0-based, append order
	ReleaseCount                  uint64
	DelayUntilFirstReleaseSeconds uint64
	InitialReleaseBips            uint64
	PeriodBetweenReleasesSeconds  uint64
	SignerHash                    string // sha256(creator|nonce), hex
}

// Timelock is one vesting grant of a recipient.
type Timelock struct {
	Deployment            string
	Recipient             string
	ID                    uint64 // 0-based per (deployment, recipient), never reused
	ScheduleID            uint64
	TotalAmount           uint64
	CommencementTimestamp uint64
	TokensTransferred     uint64
	CancelableBy          []string
}

// Clone returns a deep copy of the timelock.
func (t *Timelock) Clone() *Timelock {
	c := *t
	c.CancelableBy = append([]string(nil), t.CancelableBy...)
	return &c
}

// Remaining returns the principal not yet moved out of escrow.
func (t *Timelock) Remaining() uint64 {
	return t.TotalAmount - t.TokensTransferred
}

// Exhausted reports whether all principal has left escrow.
func (t *Timelock) Exhausted() bool {
	return t.TokensTransferred >= t.TotalAmount
}

// CanBeCancelledBy reports whether addr is an authorized canceler.
func (t *Timelock) CanBeCancelledBy(addr string) bool {
	for _, c := range t.CancelableBy {
		if c == addr {
			return true
		}
	}
	return false
}
