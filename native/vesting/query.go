package vesting

import (
	"errors"
	"fmt"
	"math/big"
)

// BatchEntry is one cell of the claimable matrix returned by
// GetClaimableBatch.
type BatchEntry struct {
	CampaignID CampaignID
	Account    Address
	Amount     *big.Int
}

// CampaignClaim is the per-campaign line of a wallet summary.
type CampaignClaim struct {
	CampaignID CampaignID
	Amount     *big.Int
}

// PlanSummary aggregates an account's live claim position against one plan.
type PlanSummary struct {
	Plan           *Plan
	Account        Address
	CurrentBalance *big.Int
	TotalClaimable *big.Int
	Campaigns      []CampaignClaim
}

// GetClaimable returns the raw accrued amount for the triple at now. It does
// not gate on whitelist or expiration; callers that need gating use the
// wallet summaries.
func (e *Engine) GetClaimable(planID PlanID, campaignID CampaignID, account Address, now uint64) (*big.Int, error) {
	plan, err := loadPlan(e.st, planID)
	if err != nil {
		return nil, err
	}
	campaign, err := loadCampaign(e.st, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.PlanID != planID {
		return nil, fmt.Errorf("%w: campaign bound to plan %d", ErrCampaignPlanMismatch, campaign.PlanID)
	}
	cursor, err := loadCursor(e.st, planID, campaignID, account)
	if err != nil {
		return nil, err
	}
	return Claimable(plan, cursor, now), nil
}

// GetClaimableBatch computes the cartesian product of campaign ids and
// accounts, each entry resolved exactly as GetClaimable would. Empty inputs
// yield an empty result.
func (e *Engine) GetClaimableBatch(planID PlanID, campaignIDs []CampaignID, accounts []Address, now uint64) ([]BatchEntry, error) {
	entries := make([]BatchEntry, 0, len(campaignIDs)*len(accounts))
	if len(campaignIDs) == 0 || len(accounts) == 0 {
		return entries, nil
	}
	plan, err := loadPlan(e.st, planID)
	if err != nil {
		return nil, err
	}
	for _, campaignID := range campaignIDs {
		campaign, err := loadCampaign(e.st, campaignID)
		if err != nil {
			return nil, err
		}
		if campaign.PlanID != planID {
			return nil, fmt.Errorf("%w: campaign bound to plan %d", ErrCampaignPlanMismatch, campaign.PlanID)
		}
		for _, account := range accounts {
			cursor, err := loadCursor(e.st, planID, campaignID, account)
			if err != nil {
				return nil, err
			}
			entries = append(entries, BatchEntry{
				CampaignID: campaignID,
				Account:    account,
				Amount:     Claimable(plan, cursor, now),
			})
		}
	}
	return entries, nil
}

// WalletPlanSummary aggregates the account's position against one plan over
// the requested campaigns. A campaign contributes only while the account is
// whitelisted for it and it has not expired; everything else is skipped
// rather than reported as an error. The current balance is read from the
// token ledger.
func (e *Engine) WalletPlanSummary(planID PlanID, account Address, campaignIDs []CampaignID, now uint64) (*PlanSummary, error) {
	plan, err := loadPlan(e.st, planID)
	if err != nil {
		return nil, err
	}
	balance, err := e.ledger.BalanceOf(account, planID)
	if err != nil {
		return nil, err
	}
	summary := &PlanSummary{
		Plan:           plan,
		Account:        account,
		CurrentBalance: balance,
		TotalClaimable: big.NewInt(0),
		Campaigns:      make([]CampaignClaim, 0, len(campaignIDs)),
	}
	for _, campaignID := range campaignIDs {
		campaign, err := loadCampaign(e.st, campaignID)
		if err != nil {
			if errors.Is(err, ErrCampaignNotFound) {
				continue
			}
			return nil, err
		}
		if campaign.PlanID != planID || now >= campaign.Expiration {
			continue
		}
		listed, err := isWhitelisted(e.st, planID, campaignID, account)
		if err != nil {
			return nil, err
		}
		if !listed {
			continue
		}
		cursor, err := loadCursor(e.st, planID, campaignID, account)
		if err != nil {
			return nil, err
		}
		amount := Claimable(plan, cursor, now)
		summary.Campaigns = append(summary.Campaigns, CampaignClaim{CampaignID: campaignID, Amount: amount})
		summary.TotalClaimable.Add(summary.TotalClaimable, amount)
	}
	return summary, nil
}

// WalletCampaignsSummary groups the requested campaigns by their owning plan
// (first-seen order) and produces one WalletPlanSummary-shaped entry per
// distinct plan. Unknown campaign ids are skipped.
func (e *Engine) WalletCampaignsSummary(account Address, campaignIDs []CampaignID, now uint64) ([]*PlanSummary, error) {
	planOrder := make([]PlanID, 0, len(campaignIDs))
	grouped := make(map[PlanID][]CampaignID, len(campaignIDs))
	for _, campaignID := range campaignIDs {
		campaign, err := loadCampaign(e.st, campaignID)
		if err != nil {
			if errors.Is(err, ErrCampaignNotFound) {
				continue
			}
			return nil, err
		}
		if _, seen := grouped[campaign.PlanID]; !seen {
			planOrder = append(planOrder, campaign.PlanID)
		}
		grouped[campaign.PlanID] = append(grouped[campaign.PlanID], campaignID)
	}
	summaries := make([]*PlanSummary, 0, len(planOrder))
	for _, planID := range planOrder {
		summary, err := e.WalletPlanSummary(planID, account, grouped[planID], now)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
