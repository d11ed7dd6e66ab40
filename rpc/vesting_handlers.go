package rpc

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	nativecommon "kliver/native/common"
	"kliver/native/vesting"
	"kliver/observability"
)

type registerPlanParams struct {
	Caller         string `json:"caller"`
	ReleaseHour    uint8  `json:"releaseHour"`
	ReleaseAmount  string `json:"releaseAmount"`
	SpecialRelease string `json:"specialRelease"`
	MetadataURI    string `json:"metadataUri"`
}

type planQueryParams struct {
	PlanID uint64 `json:"planId"`
}

type timeUntilReleaseParams struct {
	PlanID uint64  `json:"planId"`
	Now    *uint64 `json:"now,omitempty"`
}

type registerCampaignParams struct {
	Caller     string  `json:"caller"`
	CampaignID string  `json:"campaignId"`
	PlanID     uint64  `json:"planId"`
	Expiration uint64  `json:"expiration"`
	Now        *uint64 `json:"now,omitempty"`
}

type updateExpirationParams struct {
	Caller     string  `json:"caller"`
	CampaignID string  `json:"campaignId"`
	Expiration uint64  `json:"expiration"`
	Now        *uint64 `json:"now,omitempty"`
}

type campaignQueryParams struct {
	CampaignID string  `json:"campaignId"`
	Now        *uint64 `json:"now,omitempty"`
}

type whitelistParams struct {
	Caller     string `json:"caller"`
	PlanID     uint64 `json:"planId"`
	CampaignID string `json:"campaignId"`
	Account    string `json:"account"`
}

type whitelistQueryParams struct {
	PlanID     uint64 `json:"planId"`
	CampaignID string `json:"campaignId"`
	Account    string `json:"account"`
}

type claimParams struct {
	Caller     string  `json:"caller"`
	PlanID     uint64  `json:"planId"`
	CampaignID string  `json:"campaignId"`
	Now        *uint64 `json:"now,omitempty"`
}

type claimableParams struct {
	PlanID     uint64  `json:"planId"`
	CampaignID string  `json:"campaignId"`
	Account    string  `json:"account"`
	Now        *uint64 `json:"now,omitempty"`
}

type claimableBatchParams struct {
	PlanID      uint64   `json:"planId"`
	CampaignIDs []string `json:"campaignIds"`
	Accounts    []string `json:"accounts"`
	Now         *uint64  `json:"now,omitempty"`
}

type walletPlanSummaryParams struct {
	PlanID      uint64   `json:"planId"`
	Account     string   `json:"account"`
	CampaignIDs []string `json:"campaignIds"`
	Now         *uint64  `json:"now,omitempty"`
}

type walletCampaignsSummaryParams struct {
	Account     string   `json:"account"`
	CampaignIDs []string `json:"campaignIds"`
	Now         *uint64  `json:"now,omitempty"`
}

func decodeSingleParam(req *RPCRequest, out interface{}) *RPCError {
	if len(req.Params) != 1 {
		return &RPCError{Code: codeInvalidParams, Message: "exactly one parameter object expected"}
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "invalid parameter object", Data: err.Error()}
	}
	return nil
}

func (s *Server) handleVestingRegisterPlan(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params registerPlanParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	releaseAmount, err := parseAmount(params.ReleaseAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid releaseAmount", err.Error())
		return
	}
	specialRelease, err := parseAmount(params.SpecialRelease)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid specialRelease", err.Error())
		return
	}
	planID, err := s.registry.RegisterPlan(caller, params.ReleaseHour, releaseAmount, specialRelease, params.MetadataURI)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, uint64(planID))
}

func (s *Server) handleVestingGetPlan(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params planQueryParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	plan, err := s.registry.GetPlan(vesting.PlanID(params.PlanID))
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatPlan(plan))
}

func (s *Server) handleVestingPlanCount(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	count, err := s.registry.PlanCount()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, count)
}

func (s *Server) handleVestingTimeUntilRelease(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params timeUntilReleaseParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	seconds, err := s.registry.TimeUntilRelease(vesting.PlanID(params.PlanID), s.resolveNow(params.Now))
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, seconds)
}

func (s *Server) handleVestingRegisterCampaign(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params registerCampaignParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	campaignID, err := parseCampaignID(params.CampaignID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid campaignId", err.Error())
		return
	}
	if err := s.registry.RegisterCampaign(caller, campaignID, vesting.PlanID(params.PlanID), params.Expiration, s.resolveNow(params.Now)); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "ok")
}

func (s *Server) handleVestingUpdateExpiration(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params updateExpirationParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	campaignID, err := parseCampaignID(params.CampaignID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid campaignId", err.Error())
		return
	}
	if err := s.registry.UpdateExpiration(caller, campaignID, params.Expiration, s.resolveNow(params.Now)); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "ok")
}

func (s *Server) handleVestingGetCampaign(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params campaignQueryParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	campaignID, err := parseCampaignID(params.CampaignID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid campaignId", err.Error())
		return
	}
	campaign, err := s.registry.GetCampaign(campaignID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatCampaign(campaign))
}

func (s *Server) handleVestingIsExpired(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params campaignQueryParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	campaignID, err := parseCampaignID(params.CampaignID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid campaignId", err.Error())
		return
	}
	expired, err := s.registry.IsExpired(campaignID, s.resolveNow(params.Now))
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, expired)
}

func (s *Server) handleVestingAddToWhitelist(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleWhitelistMutation(w, req, true)
}

func (s *Server) handleVestingRemoveFromWhitelist(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleWhitelistMutation(w, req, false)
}

func (s *Server) handleWhitelistMutation(w http.ResponseWriter, req *RPCRequest, add bool) {
	var params whitelistParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	campaignID, err := parseCampaignID(params.CampaignID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid campaignId", err.Error())
		return
	}
	account, err := parseAddress(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account address", err.Error())
		return
	}
	if add {
		err = s.registry.AddToWhitelist(caller, vesting.PlanID(params.PlanID), campaignID, account)
	} else {
		err = s.registry.RemoveFromWhitelist(caller, vesting.PlanID(params.PlanID), campaignID, account)
	}
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "ok")
}

func (s *Server) handleVestingIsWhitelisted(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params whitelistQueryParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	campaignID, err := parseCampaignID(params.CampaignID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid campaignId", err.Error())
		return
	}
	account, err := parseAddress(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account address", err.Error())
		return
	}
	listed, err := s.registry.IsWhitelisted(vesting.PlanID(params.PlanID), campaignID, account)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, listed)
}

func (s *Server) handleVestingClaim(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params claimParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	campaignID, err := parseCampaignID(params.CampaignID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid campaignId", err.Error())
		return
	}
	planID := vesting.PlanID(params.PlanID)
	minted, err := s.engine.Claim(caller, planID, campaignID, s.resolveNow(params.Now))
	if err != nil {
		observability.Vesting().RecordClaimFailure(claimFailureReason(err))
		writeEngineError(w, req.ID, err)
		return
	}
	observability.Vesting().RecordClaim(strconv.FormatUint(params.PlanID, 10))

	cursor, err := s.engine.Cursor(planID, campaignID, caller)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	balance, err := s.ledger.BalanceOf(caller, uint64(planID))
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ClaimResult{
		Amount:       formatAmount(minted),
		ReleasedDays: cursor.ReleasedDays,
		Balance:      formatAmount(balance),
	})
}

func claimFailureReason(err error) string {
	switch {
	case errors.Is(err, nativecommon.ErrModulePaused):
		return "paused"
	case errors.Is(err, vesting.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, vesting.ErrPlanNotFound):
		return "plan_not_found"
	case errors.Is(err, vesting.ErrCampaignNotFound):
		return "campaign_not_found"
	case errors.Is(err, vesting.ErrCampaignPlanMismatch):
		return "plan_mismatch"
	case errors.Is(err, vesting.ErrNotWhitelisted):
		return "not_whitelisted"
	case errors.Is(err, vesting.ErrCampaignExpired):
		return "expired"
	case errors.Is(err, vesting.ErrNothingToClaim):
		return "nothing_to_claim"
	default:
		return "internal"
	}
}

func (s *Server) handleVestingGetClaimable(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params claimableParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	campaignID, err := parseCampaignID(params.CampaignID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid campaignId", err.Error())
		return
	}
	account, err := parseAddress(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account address", err.Error())
		return
	}
	owed, err := s.engine.GetClaimable(vesting.PlanID(params.PlanID), campaignID, account, s.resolveNow(params.Now))
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatAmount(owed))
}

func (s *Server) handleVestingGetClaimableBatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params claimableBatchParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	campaignIDs, err := parseCampaignIDs(params.CampaignIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid campaignIds", err.Error())
		return
	}
	accounts, err := parseAddresses(params.Accounts)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid accounts", err.Error())
		return
	}
	entries, err := s.engine.GetClaimableBatch(vesting.PlanID(params.PlanID), campaignIDs, accounts, s.resolveNow(params.Now))
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	results := make([]BatchEntryResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, BatchEntryResult{
			CampaignID: formatCampaignID(entry.CampaignID),
			Account:    formatAddress(entry.Account),
			Amount:     formatAmount(entry.Amount),
		})
	}
	writeResult(w, req.ID, results)
}

func (s *Server) handleVestingWalletPlanSummary(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params walletPlanSummaryParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	account, err := parseAddress(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account address", err.Error())
		return
	}
	campaignIDs, err := parseCampaignIDs(params.CampaignIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid campaignIds", err.Error())
		return
	}
	summary, err := s.engine.WalletPlanSummary(vesting.PlanID(params.PlanID), account, campaignIDs, s.resolveNow(params.Now))
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatPlanSummary(summary))
}

func (s *Server) handleVestingWalletCampaignsSummary(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params walletCampaignsSummaryParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	account, err := parseAddress(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account address", err.Error())
		return
	}
	campaignIDs, err := parseCampaignIDs(params.CampaignIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid campaignIds", err.Error())
		return
	}
	summaries, err := s.engine.WalletCampaignsSummary(account, campaignIDs, s.resolveNow(params.Now))
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	results := make([]PlanSummaryResult, 0, len(summaries))
	for _, summary := range summaries {
		results = append(results, formatPlanSummary(summary))
	}
	writeResult(w, req.ID, results)
}

func parseCampaignIDs(values []string) ([]vesting.CampaignID, error) {
	out := make([]vesting.CampaignID, 0, len(values))
	for _, value := range values {
		id, err := parseCampaignID(value)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func parseAddresses(values []string) ([]vesting.Address, error) {
	out := make([]vesting.Address, 0, len(values))
	for _, value := range values {
		addr, err := parseAddress(value)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}
