package events

import (
	"encoding/hex"
	"math/big"
	"strconv"
)

const (
	// TypeVestingPlanCreated is emitted when a vesting plan is registered.
	TypeVestingPlanCreated = "vesting.plan.created"
	// TypeVestingCampaignRegistered is emitted when a campaign is bound to a
	// plan.
	TypeVestingCampaignRegistered = "vesting.campaign.registered"
	// TypeVestingCampaignExtended is emitted when the owner moves a campaign
	// expiration.
	TypeVestingCampaignExtended = "vesting.campaign.extended"
	// TypeVestingWhitelistAdded is emitted when an account is whitelisted for
	// a campaign.
	TypeVestingWhitelistAdded = "vesting.whitelist.added"
	// TypeVestingWhitelistRemoved is emitted when an account loses its
	// whitelist entry.
	TypeVestingWhitelistRemoved = "vesting.whitelist.removed"
	// TypeVestingClaimed is emitted when a claim mints accrued balance.
	TypeVestingClaimed = "vesting.claimed"
)

// VestingPlanCreated captures the immutable schedule of a new plan.
type VestingPlanCreated struct {
	PlanID         uint64
	ReleaseHour    uint8
	ReleaseAmount  *big.Int
	SpecialRelease *big.Int
	MetadataURI    string
}

func (VestingPlanCreated) EventType() string { return TypeVestingPlanCreated }

func (e VestingPlanCreated) Record() *Record {
	return &Record{
		Type: TypeVestingPlanCreated,
		Attributes: map[string]string{
			"planId":         strconv.FormatUint(e.PlanID, 10),
			"releaseHour":    strconv.FormatUint(uint64(e.ReleaseHour), 10),
			"releaseAmount":  formatAmount(e.ReleaseAmount),
			"specialRelease": formatAmount(e.SpecialRelease),
			"metadataUri":    e.MetadataURI,
		},
	}
}

// VestingCampaignRegistered records a campaign binding and its deadline.
type VestingCampaignRegistered struct {
	CampaignID [32]byte
	PlanID     uint64
	Creator    [20]byte
	Expiration uint64
}

func (VestingCampaignRegistered) EventType() string { return TypeVestingCampaignRegistered }

func (e VestingCampaignRegistered) Record() *Record {
	return &Record{
		Type: TypeVestingCampaignRegistered,
		Attributes: map[string]string{
			"campaignId": formatID(e.CampaignID),
			"planId":     strconv.FormatUint(e.PlanID, 10),
			"creator":    formatAddress(e.Creator),
			"expiration": strconv.FormatUint(e.Expiration, 10),
		},
	}
}

// VestingCampaignExtended records an expiration update.
type VestingCampaignExtended struct {
	CampaignID    [32]byte
	PlanID        uint64
	OldExpiration uint64
	NewExpiration uint64
}

func (VestingCampaignExtended) EventType() string { return TypeVestingCampaignExtended }

func (e VestingCampaignExtended) Record() *Record {
	return &Record{
		Type: TypeVestingCampaignExtended,
		Attributes: map[string]string{
			"campaignId":    formatID(e.CampaignID),
			"planId":        strconv.FormatUint(e.PlanID, 10),
			"oldExpiration": strconv.FormatUint(e.OldExpiration, 10),
			"newExpiration": strconv.FormatUint(e.NewExpiration, 10),
		},
	}
}

// VestingWhitelistUpdated records a whitelist add or remove.
type VestingWhitelistUpdated struct {
	PlanID     uint64
	CampaignID [32]byte
	Account    [20]byte
	Added      bool
}

func (e VestingWhitelistUpdated) EventType() string {
	if e.Added {
		return TypeVestingWhitelistAdded
	}
	return TypeVestingWhitelistRemoved
}

func (e VestingWhitelistUpdated) Record() *Record {
	return &Record{
		Type: e.EventType(),
		Attributes: map[string]string{
			"planId":     strconv.FormatUint(e.PlanID, 10),
			"campaignId": formatID(e.CampaignID),
			"account":    formatAddress(e.Account),
		},
	}
}

// VestingClaimed records a successful claim and the cursor it left behind.
type VestingClaimed struct {
	PlanID       uint64
	CampaignID   [32]byte
	Account      [20]byte
	Amount       *big.Int
	ReleasedDays uint64
}

func (VestingClaimed) EventType() string { return TypeVestingClaimed }

func (e VestingClaimed) Record() *Record {
	return &Record{
		Type: TypeVestingClaimed,
		Attributes: map[string]string{
			"planId":       strconv.FormatUint(e.PlanID, 10),
			"campaignId":   formatID(e.CampaignID),
			"account":      formatAddress(e.Account),
			"amount":       formatAmount(e.Amount),
			"releasedDays": strconv.FormatUint(e.ReleasedDays, 10),
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func formatID(id [32]byte) string {
	return "0x" + hex.EncodeToString(id[:])
}
