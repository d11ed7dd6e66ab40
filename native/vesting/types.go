package vesting

import "math/big"

// PlanID identifies a vesting plan. Plans are numbered sequentially from 1.
type PlanID = uint64

// CampaignID is the caller-chosen identifier of a campaign.
type CampaignID [32]byte

// Address is a 20-byte account identifier.
type Address [20]byte

// Plan is an immutable vesting schedule: a daily accrual released once the
// cutoff hour is reached, plus an optional one-time bonus paid on the first
// claim. No maximum supply is enforced per plan.
type Plan struct {
	ID             PlanID
	ReleaseHour    uint8
	ReleaseAmount  *big.Int
	SpecialRelease *big.Int
	MetadataURI    string
}

// Clone produces a deep copy of the plan.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	out := *p
	out.ReleaseAmount = cloneBigInt(p.ReleaseAmount)
	out.SpecialRelease = cloneBigInt(p.SpecialRelease)
	return &out
}

// Campaign is a time-boxed instance of a plan. Only the expiration is
// mutable after registration; the owner may extend it, including after it has
// already lapsed.
type Campaign struct {
	ID         CampaignID
	PlanID     PlanID
	Creator    Address
	Expiration uint64
}

// ClaimCursor tracks what a (plan, campaign, account) triple has already been
// paid. Claimed false is the unclaimed sentinel; once true the one-time bonus
// is spent and ReleasedDays records the day count settled so far.
type ClaimCursor struct {
	Claimed      bool
	ReleasedDays uint64
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
