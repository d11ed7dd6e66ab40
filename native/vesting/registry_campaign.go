package vesting

import (
	"fmt"

	"kliver/core/events"
	nativecommon "kliver/native/common"
)

// RegisterCampaign binds a caller-chosen campaign id to an existing plan.
// Restricted to the configured registrar. The expiration must lie in the
// future relative to now.
func (r *Registry) RegisterCampaign(caller Address, id CampaignID, planID PlanID, expiration, now uint64) error {
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if !r.st.HasRole(roleRegistrar, caller[:]) {
		return ErrUnauthorized
	}
	if _, err := loadPlan(r.st, planID); err != nil {
		return err
	}
	if expiration <= now {
		return fmt.Errorf("%w: expiration %d <= now %d", ErrInvalidExpiration, expiration, now)
	}
	exists, err := r.st.KVGet(campaignKey(id), nil)
	if err != nil {
		return err
	}
	if exists {
		return ErrCampaignExists
	}
	campaign := &Campaign{ID: id, PlanID: planID, Creator: caller, Expiration: expiration}
	if err := r.st.KVPut(campaignKey(id), campaign); err != nil {
		return err
	}
	r.emit(events.VestingCampaignRegistered{
		CampaignID: id,
		PlanID:     planID,
		Creator:    caller,
		Expiration: expiration,
	})
	return nil
}

// UpdateExpiration moves a campaign's deadline. Owner only. Extending an
// already-expired campaign un-expires it; outstanding cursors are untouched
// and eligibility is reevaluated purely from the new deadline.
func (r *Registry) UpdateExpiration(caller Address, id CampaignID, expiration, now uint64) error {
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if !r.st.HasRole(roleOwner, caller[:]) {
		return ErrUnauthorized
	}
	campaign, err := loadCampaign(r.st, id)
	if err != nil {
		return err
	}
	if expiration <= now {
		return fmt.Errorf("%w: expiration %d <= now %d", ErrInvalidExpiration, expiration, now)
	}
	previous := campaign.Expiration
	campaign.Expiration = expiration
	if err := r.st.KVPut(campaignKey(id), campaign); err != nil {
		return err
	}
	r.emit(events.VestingCampaignExtended{
		CampaignID:    id,
		PlanID:        campaign.PlanID,
		OldExpiration: previous,
		NewExpiration: expiration,
	})
	return nil
}

// GetCampaign retrieves a campaign by its identifier.
func (r *Registry) GetCampaign(id CampaignID) (*Campaign, error) {
	return loadCampaign(r.st, id)
}

// IsExpired reports whether the campaign's deadline has been reached at now.
// The deadline itself counts as expired.
func (r *Registry) IsExpired(id CampaignID, now uint64) (bool, error) {
	campaign, err := loadCampaign(r.st, id)
	if err != nil {
		return false, err
	}
	return now >= campaign.Expiration, nil
}

// AddToWhitelist authorises an account to claim against (planID, campaignID).
// Owner only. The campaign must belong to the plan.
func (r *Registry) AddToWhitelist(caller Address, planID PlanID, campaignID CampaignID, account Address) error {
	return r.setWhitelisted(caller, planID, campaignID, account, true)
}

// RemoveFromWhitelist revokes an account's claim authorisation. Owner only.
func (r *Registry) RemoveFromWhitelist(caller Address, planID PlanID, campaignID CampaignID, account Address) error {
	return r.setWhitelisted(caller, planID, campaignID, account, false)
}

func (r *Registry) setWhitelisted(caller Address, planID PlanID, campaignID CampaignID, account Address, listed bool) error {
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if !r.st.HasRole(roleOwner, caller[:]) {
		return ErrUnauthorized
	}
	if _, err := loadPlan(r.st, planID); err != nil {
		return err
	}
	campaign, err := loadCampaign(r.st, campaignID)
	if err != nil {
		return err
	}
	if campaign.PlanID != planID {
		return fmt.Errorf("%w: campaign bound to plan %d", ErrCampaignPlanMismatch, campaign.PlanID)
	}
	if err := r.st.KVPut(whitelistKey(planID, campaignID, account), listed); err != nil {
		return err
	}
	r.emit(events.VestingWhitelistUpdated{
		PlanID:     planID,
		CampaignID: campaignID,
		Account:    account,
		Added:      listed,
	})
	return nil
}

// IsWhitelisted reports whether the account may claim against the campaign.
// Absent entries read as false.
func (r *Registry) IsWhitelisted(planID PlanID, campaignID CampaignID, account Address) (bool, error) {
	return isWhitelisted(r.st, planID, campaignID, account)
}
