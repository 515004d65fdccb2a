package vesting

import (
	"math"
	"math/bits"

	"solana-security-token/internal/domain"
)

// ScheduleParams are the caller supplied fields of a release schedule.
type ScheduleParams struct {
	ReleaseCount                  uint64
	DelayUntilFirstReleaseSeconds uint64
	InitialReleaseBips            uint64
	PeriodBetweenReleasesSeconds  uint64
}

// ValidateSchedule checks params in the order the rejections are reported.
func ValidateSchedule(p ScheduleParams, maxReleaseDelay uint64) error {
	if p.ReleaseCount < 1 {
		return domain.ErrReleaseCountLessThanOne
	}
	if p.InitialReleaseBips > domain.BipsPrecision {
		return domain.ErrInitReleasePortionBiggerThan100
	}
	if p.ReleaseCount == 1 && p.InitialReleaseBips != domain.BipsPrecision {
		return domain.ErrInitReleasePortionMustBe100Pct
	}
	if p.ReleaseCount > 1 && p.PeriodBetweenReleasesSeconds < 1 {
		return domain.ErrReleasePeriodIsZero
	}
	if p.DelayUntilFirstReleaseSeconds > maxReleaseDelay {
		return domain.ErrFirstReleaseExceedsMaxDelay
	}
	return nil
}

// FullVestingOffset is the number of seconds after commencement at which the
// whole amount is unlocked. Saturates at math.MaxUint64.
func FullVestingOffset(s *domain.ReleaseSchedule) uint64 {
	hi, span := bits.Mul64(s.PeriodBetweenReleasesSeconds, s.ReleaseCount-1)
	if hi != 0 {
		return math.MaxUint64
	}
	total, carry := bits.Add64(s.DelayUntilFirstReleaseSeconds, span, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return total
}

// UnlockedAmount returns how much of totalAmount the schedule has released at
// now. Truncation is deferred: each period re-divides the remainder left by
// the initial release, so integer remainders spread across periods and the
// full amount is returned exactly at the end.
func UnlockedAmount(commencement, now, totalAmount uint64, s *domain.ReleaseSchedule) uint64 {
	if now < commencement {
		return 0
	}
	elapsed := now - commencement
	if elapsed >= FullVestingOffset(s) {
		return totalAmount
	}
	if elapsed < s.DelayUntilFirstReleaseSeconds {
		return 0
	}

	unlocked := mulDiv(totalAmount, s.InitialReleaseBips, domain.BipsPrecision)
	// elapsed < full vesting offset implies period >= 1 and releaseCount >= 2.
	periodsElapsed := (elapsed - s.DelayUntilFirstReleaseSeconds) / s.PeriodBetweenReleasesSeconds
	if periodsElapsed >= 1 {
		unlocked += mulDiv(totalAmount-unlocked, periodsElapsed, s.ReleaseCount-1)
	}
	return unlocked
}

// LockedAmount is the part of totalAmount not yet released at now.
func LockedAmount(commencement, now, totalAmount uint64, s *domain.ReleaseSchedule) uint64 {
	return totalAmount - UnlockedAmount(commencement, now, totalAmount, s)
}

// TransferableBalance is what the recipient may still withdraw from t at now.
func TransferableBalance(t *domain.Timelock, s *domain.ReleaseSchedule, now uint64) uint64 {
	unlocked := UnlockedAmount(t.CommencementTimestamp, now, t.TotalAmount, s)
	if unlocked <= t.TokensTransferred {
		return 0
	}
	return unlocked - t.TokensTransferred
}

// LockedBalance is the remaining principal of t that is still locked at now.
func LockedBalance(t *domain.Timelock, s *domain.ReleaseSchedule, now uint64) uint64 {
	locked := LockedAmount(t.CommencementTimestamp, now, t.TotalAmount, s)
	return min(locked, t.Remaining())
}

// mulDiv returns floor(a*b/c) with a 128-bit intermediate product.
// Callers guarantee b <= c, so the quotient fits in 64 bits.
func mulDiv(a, b, c uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, c)
	return q
}
