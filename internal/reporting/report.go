package reporting

import (
	"time"

	"solana-security-token/internal/vesting"
)

// Report is the unlock timeline of one schedule applied to one grant.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Deployment  string // empty for ad hoc schedules
	ScheduleID  *uint64

	// Schedule parameters
	Schedule ScheduleSummary

	// Grant
	Commencement uint64 // unix seconds
	Amount       uint64

	// Timeline (sorted by release index)
	Points        []vesting.ReleasePoint
	FullyVestedAt uint64 // commencement + full vesting offset, saturating
	Truncated     bool   // releases beyond the uint64 time range were omitted
}

// ScheduleSummary lists the parameters of a release schedule.
type ScheduleSummary struct {
	ReleaseCount       uint64
	FirstReleaseDelay  uint64 // seconds
	InitialReleaseBips uint64
	ReleasePeriod      uint64 // seconds
}
