package vesting

import "math/big"

const (
	secondsPerDay  = 86_400
	secondsPerHour = 3_600
	hoursPerDay    = 24
)

// ReleasedDays counts the calendar days whose release cutoff has been reached
// at now. Day N is released once now's time-of-day reaches releaseHour on day
// N; the boundary is inclusive.
func ReleasedDays(now uint64, releaseHour uint8) uint64 {
	days := now / secondsPerDay
	if now%secondsPerDay >= uint64(releaseHour)*secondsPerHour {
		days++
	}
	return days
}

// Claimable computes the amount owed to the cursor at now. A nil or unclaimed
// cursor owes the one-time bonus plus every released day; a claimed cursor
// owes only the days released since it was last settled. The result is never
// negative.
func Claimable(plan *Plan, cursor *ClaimCursor, now uint64) *big.Int {
	if plan == nil {
		return big.NewInt(0)
	}
	released := ReleasedDays(now, plan.ReleaseHour)
	rate := plan.ReleaseAmount
	if rate == nil {
		rate = big.NewInt(0)
	}
	if cursor == nil || !cursor.Claimed {
		owed := new(big.Int).Mul(rate, new(big.Int).SetUint64(released))
		if plan.SpecialRelease != nil {
			owed.Add(owed, plan.SpecialRelease)
		}
		return owed
	}
	if released <= cursor.ReleasedDays {
		return big.NewInt(0)
	}
	delta := new(big.Int).SetUint64(released - cursor.ReleasedDays)
	return delta.Mul(delta, rate)
}

// TimeUntilRelease returns the seconds from now until the next daily release
// boundary of releaseHour. At the boundary itself the result is zero; past
// it, the result wraps to tomorrow's boundary.
func TimeUntilRelease(now uint64, releaseHour uint8) uint64 {
	target := uint64(releaseHour) * secondsPerHour
	timeOfDay := now % secondsPerDay
	if timeOfDay <= target {
		return target - timeOfDay
	}
	return secondsPerDay - timeOfDay + target
}
