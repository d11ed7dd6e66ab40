package rpc

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	nativecommon "kliver/native/common"
	"kliver/native/vesting"
)

// PlanResult mirrors a stored vesting schedule for RPC consumers.
type PlanResult struct {
	ID             uint64 `json:"id"`
	ReleaseHour    uint8  `json:"releaseHour"`
	ReleaseAmount  string `json:"releaseAmount"`
	SpecialRelease string `json:"specialRelease"`
	MetadataURI    string `json:"metadataUri,omitempty"`
}

// CampaignResult mirrors a stored campaign.
type CampaignResult struct {
	ID         string `json:"id"`
	PlanID     uint64 `json:"planId"`
	Creator    string `json:"creator"`
	Expiration uint64 `json:"expiration"`
}

// ClaimResult reports the outcome of a successful claim.
type ClaimResult struct {
	Amount       string `json:"amount"`
	ReleasedDays uint64 `json:"releasedDays"`
	Balance      string `json:"balance"`
}

// BatchEntryResult is a single cell of a claimable batch read.
type BatchEntryResult struct {
	CampaignID string `json:"campaignId"`
	Account    string `json:"account"`
	Amount     string `json:"amount"`
}

// CampaignClaimResult is one campaign line in a wallet summary.
type CampaignClaimResult struct {
	CampaignID string `json:"campaignId"`
	Amount     string `json:"amount"`
}

// PlanSummaryResult is a wallet's position in one plan.
type PlanSummaryResult struct {
	Plan           PlanResult            `json:"plan"`
	Account        string                `json:"account"`
	CurrentBalance string                `json:"currentBalance"`
	TotalClaimable string                `json:"totalClaimable"`
	Campaigns      []CampaignClaimResult `json:"campaigns"`
}

func formatPlan(plan *vesting.Plan) PlanResult {
	return PlanResult{
		ID:             uint64(plan.ID),
		ReleaseHour:    plan.ReleaseHour,
		ReleaseAmount:  formatAmount(plan.ReleaseAmount),
		SpecialRelease: formatAmount(plan.SpecialRelease),
		MetadataURI:    plan.MetadataURI,
	}
}

func formatCampaign(campaign *vesting.Campaign) CampaignResult {
	return CampaignResult{
		ID:         formatCampaignID(campaign.ID),
		PlanID:     uint64(campaign.PlanID),
		Creator:    formatAddress(campaign.Creator),
		Expiration: campaign.Expiration,
	}
}

func formatPlanSummary(summary *vesting.PlanSummary) PlanSummaryResult {
	lines := make([]CampaignClaimResult, 0, len(summary.Campaigns))
	for _, line := range summary.Campaigns {
		lines = append(lines, CampaignClaimResult{
			CampaignID: formatCampaignID(line.CampaignID),
			Amount:     formatAmount(line.Amount),
		})
	}
	return PlanSummaryResult{
		Plan:           formatPlan(summary.Plan),
		Account:        formatAddress(summary.Account),
		CurrentBalance: formatAmount(summary.CurrentBalance),
		TotalClaimable: formatAmount(summary.TotalClaimable),
		Campaigns:      lines,
	}
}

// formatAmount renders a big integer as a decimal string, nil as "0".
func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatAddress(addr vesting.Address) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func formatCampaignID(id vesting.CampaignID) string {
	return "0x" + hex.EncodeToString(id[:])
}

func parseAddress(value string) (vesting.Address, error) {
	var out vesting.Address
	raw, err := parseHexBytes(value, len(out))
	if err != nil {
		return out, err
	}
	copy(out[:], raw)
	return out, nil
}

func parseCampaignID(value string) (vesting.CampaignID, error) {
	var out vesting.CampaignID
	raw, err := parseHexBytes(value, len(out))
	if err != nil {
		return out, err
	}
	copy(out[:], raw)
	return out, nil
}

func parseHexBytes(value string, want int) ([]byte, error) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "0x") && !strings.HasPrefix(trimmed, "0X") {
		return nil, fmt.Errorf("value %q missing 0x prefix", value)
	}
	raw, err := hex.DecodeString(trimmed[2:])
	if err != nil {
		return nil, fmt.Errorf("value %q is not hex: %w", value, err)
	}
	if len(raw) != want {
		return nil, fmt.Errorf("value %q must be %d bytes, got %d", value, want, len(raw))
	}
	return raw, nil
}

// parseAmount parses a non-negative decimal amount string. Empty means zero.
func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("amount %q is not a decimal integer", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must not be negative", value)
	}
	return amount, nil
}

// resolveNow falls back to the server clock when the request omits "now".
func (s *Server) resolveNow(now *uint64) uint64 {
	if now != nil {
		return *now
	}
	return s.clock()
}

// writeEngineError maps vesting module errors onto RPC status codes.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, nativecommon.ErrModulePaused):
		writeError(w, http.StatusServiceUnavailable, id, codeModulePaused, "module paused", err.Error())
	case errors.Is(err, vesting.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeUnauthorized, "caller not authorized", err.Error())
	case errors.Is(err, vesting.ErrPlanNotFound),
		errors.Is(err, vesting.ErrCampaignNotFound):
		writeError(w, http.StatusNotFound, id, codeInvalidParams, "not found", err.Error())
	case errors.Is(err, vesting.ErrCampaignExists),
		errors.Is(err, vesting.ErrInvalidPlan),
		errors.Is(err, vesting.ErrInvalidExpiration),
		errors.Is(err, vesting.ErrCampaignPlanMismatch),
		errors.Is(err, vesting.ErrNotWhitelisted),
		errors.Is(err, vesting.ErrCampaignExpired),
		errors.Is(err, vesting.ErrNothingToClaim):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, "request rejected", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, "internal error", err.Error())
	}
}
