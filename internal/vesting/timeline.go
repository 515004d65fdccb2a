package vesting

import (
	"solana-security-token/internal/domain"
)

// ReleasePoint is one release instant of a schedule applied to an amount.
type ReleasePoint struct {
	Index     uint64 `json:"index"`     // 0 = initial release
	Timestamp uint64 `json:"timestamp"` // unix seconds
	Released  uint64 `json:"released"`  // tokens released at this instant
	Unlocked  uint64 `json:"unlocked"`  // cumulative unlocked amount
	Locked    uint64 `json:"locked"`
}

// Timeline lists every release of s for amount starting at commencement.
// Releases that would fall beyond the uint64 time range are omitted.
func Timeline(s *domain.ReleaseSchedule, commencement, amount uint64) []ReleasePoint {
	points := make([]ReleasePoint, 0, min(s.ReleaseCount, 1024))
	var prev uint64
	for i := uint64(0); i < s.ReleaseCount; i++ {
		offset, ok := releaseOffset(s, i)
		if !ok || offset > ^uint64(0)-commencement {
			break
		}
		ts := commencement + offset
		unlocked := UnlockedAmount(commencement, ts, amount, s)
		points = append(points, ReleasePoint{
			Index:     i,
			Timestamp: ts,
			Released:  unlocked - prev,
			Unlocked:  unlocked,
			Locked:    amount - unlocked,
		})
		prev = unlocked
	}
	return points
}

func releaseOffset(s *domain.ReleaseSchedule, i uint64) (uint64, bool) {
	if i == 0 {
		return s.DelayUntilFirstReleaseSeconds, true
	}
	if s.PeriodBetweenReleasesSeconds != 0 && i > (^uint64(0)-s.DelayUntilFirstReleaseSeconds)/s.PeriodBetweenReleasesSeconds {
		return 0, false
	}
	return s.DelayUntilFirstReleaseSeconds + i*s.PeriodBetweenReleasesSeconds, true
}
