package vesting

import "errors"

var (
	ErrUnauthorized         = errors.New("vesting: unauthorized")
	ErrPlanNotFound         = errors.New("vesting: plan not found")
	ErrCampaignNotFound     = errors.New("vesting: campaign not found")
	ErrCampaignExists       = errors.New("vesting: campaign already exists")
	ErrInvalidPlan          = errors.New("vesting: invalid plan")
	ErrInvalidExpiration    = errors.New("vesting: expiration must be in the future")
	ErrCampaignPlanMismatch = errors.New("vesting: campaign does not belong to plan")
	ErrNotWhitelisted       = errors.New("vesting: account not whitelisted")
	ErrCampaignExpired      = errors.New("vesting: campaign expired")
	ErrNothingToClaim       = errors.New("vesting: nothing to claim")
)
