package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kliver/core/events"
	"kliver/core/state"
	"kliver/native/tokens"
	"kliver/native/vesting"
	"kliver/storage"
)

const testAuthToken = "test-token"

var (
	testOwner     = "0x" + strings.Repeat("a0", 20)
	testRegistrar = "0x" + strings.Repeat("b0", 20)
	testAlice     = "0x" + strings.Repeat("11", 20)
	testCampaign  = "0x" + strings.Repeat("01", 32)
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mgr := state.NewManager(storage.NewMemDB())
	for _, grant := range []struct{ role, addr string }{
		{state.RoleVestingOwner, testOwner},
		{state.RoleCampaignRegistrar, testRegistrar},
	} {
		addr, err := parseAddress(grant.addr)
		if err != nil {
			t.Fatalf("parse %s: %v", grant.addr, err)
		}
		if err := mgr.GrantRole(grant.role, addr[:]); err != nil {
			t.Fatalf("grant %s: %v", grant.role, err)
		}
	}
	ledger := tokens.NewLedger(mgr)
	registry := vesting.NewRegistry(mgr)
	engine := vesting.NewEngine(mgr, ledger)
	log := events.NewLog(32)
	registry.SetEmitter(log)
	engine.SetEmitter(log)

	srv := NewServer(registry, engine, ledger, log, testAuthToken)
	srv.SetClock(func() uint64 { return 1 })
	return srv
}

func rpcCall(t *testing.T, srv *Server, authed bool, method string, params ...interface{}) *RPCResponse {
	t.Helper()
	rawParams := make([]json.RawMessage, 0, len(params))
	for _, param := range params {
		encoded, err := json.Marshal(param)
		if err != nil {
			t.Fatalf("marshal param: %v", err)
		}
		rawParams = append(rawParams, encoded)
	}
	body, err := json.Marshal(&RPCRequest{JSONRPC: jsonRPCVersion, Method: method, Params: rawParams, ID: 1})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if authed {
		req.Header.Set("Authorization", "Bearer "+testAuthToken)
	}
	recorder := httptest.NewRecorder()
	srv.handle(recorder, req)

	resp := &RPCResponse{}
	if err := json.Unmarshal(recorder.Body.Bytes(), resp); err != nil {
		t.Fatalf("decode response for %s: %v", method, err)
	}
	return resp
}

func mustResult(t *testing.T, resp *RPCResponse, out interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected RPC error: %+v", resp.Error)
	}
	encoded, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("re-encode result: %v", err)
	}
	if err := json.Unmarshal(encoded, out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func TestHandleRejectsMalformedEnvelopes(t *testing.T) {
	srv := newTestServer(t)

	for _, tc := range []struct {
		name string
		body string
		code int
	}{
		{name: "empty body", body: "", code: codeInvalidRequest},
		{name: "invalid json", body: "{not-json", code: codeParseError},
		{name: "bad version", body: `{"jsonrpc":"1.0","method":"vesting_planCount","id":1}`, code: codeInvalidRequest},
		{name: "missing method", body: `{"jsonrpc":"2.0","id":1}`, code: codeInvalidRequest},
	} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
		recorder := httptest.NewRecorder()
		srv.handle(recorder, req)

		resp := &RPCResponse{}
		if err := json.Unmarshal(recorder.Body.Bytes(), resp); err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if resp.Error == nil || resp.Error.Code != tc.code {
			t.Fatalf("%s: error = %+v, want code %d", tc.name, resp.Error, tc.code)
		}
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	srv := newTestServer(t)
	resp := rpcCall(t, srv, false, "vesting_unknown")
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("error = %+v, want method not found", resp.Error)
	}
}

func TestMutationsRequireBearerToken(t *testing.T) {
	srv := newTestServer(t)

	params := registerPlanParams{Caller: testOwner, ReleaseHour: 14, ReleaseAmount: "1000"}
	resp := rpcCall(t, srv, false, "vesting_registerPlan", params)
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("unauthenticated error = %+v, want unauthorized", resp.Error)
	}

	body, _ := json.Marshal(&RPCRequest{JSONRPC: jsonRPCVersion, Method: "vesting_registerPlan", ID: 1})
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer wrong-token")
	recorder := httptest.NewRecorder()
	srv.handle(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", recorder.Code)
	}

	// Reads stay open.
	resp = rpcCall(t, srv, false, "vesting_planCount")
	if resp.Error != nil {
		t.Fatalf("unauthenticated read error = %+v", resp.Error)
	}
}

func TestRequireAuthUnconfiguredToken(t *testing.T) {
	srv := newTestServer(t)
	srv.authToken = ""

	resp := rpcCall(t, srv, true, "vesting_registerPlan", registerPlanParams{Caller: testOwner})
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("error = %+v, want unauthorized when token unset", resp.Error)
	}
}

func TestPlanLifecycleOverRPC(t *testing.T) {
	srv := newTestServer(t)

	var planID uint64
	resp := rpcCall(t, srv, true, "vesting_registerPlan", registerPlanParams{
		Caller:         testOwner,
		ReleaseHour:    14,
		ReleaseAmount:  "1000",
		SpecialRelease: "500",
		MetadataURI:    "ipfs://plan",
	})
	mustResult(t, resp, &planID)
	if planID != 1 {
		t.Fatalf("plan id = %d, want 1", planID)
	}

	var plan PlanResult
	mustResult(t, rpcCall(t, srv, false, "vesting_getPlan", planQueryParams{PlanID: planID}), &plan)
	if plan.ReleaseHour != 14 || plan.ReleaseAmount != "1000" || plan.SpecialRelease != "500" {
		t.Fatalf("plan = %+v", plan)
	}

	var count uint64
	mustResult(t, rpcCall(t, srv, false, "vesting_planCount"), &count)
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	now := uint64(10 * 3600)
	var seconds uint64
	mustResult(t, rpcCall(t, srv, false, "vesting_timeUntilRelease", timeUntilReleaseParams{PlanID: planID, Now: &now}), &seconds)
	if seconds != 4*3600 {
		t.Fatalf("seconds = %d, want %d", seconds, 4*3600)
	}

	resp = rpcCall(t, srv, false, "vesting_getPlan", planQueryParams{PlanID: 99})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("unknown plan error = %+v", resp.Error)
	}
}

func TestClaimFlowOverRPC(t *testing.T) {
	srv := newTestServer(t)

	var planID uint64
	mustResult(t, rpcCall(t, srv, true, "vesting_registerPlan", registerPlanParams{
		Caller:         testOwner,
		ReleaseHour:    14,
		ReleaseAmount:  "1000",
		SpecialRelease: "500",
	}), &planID)

	now := uint64(3600)
	farFuture := uint64(1) << 40
	resp := rpcCall(t, srv, true, "vesting_registerCampaign", registerCampaignParams{
		Caller:     testRegistrar,
		CampaignID: testCampaign,
		PlanID:     planID,
		Expiration: farFuture,
		Now:        &now,
	})
	if resp.Error != nil {
		t.Fatalf("register campaign: %+v", resp.Error)
	}

	var campaign CampaignResult
	mustResult(t, rpcCall(t, srv, false, "vesting_getCampaign", campaignQueryParams{CampaignID: testCampaign}), &campaign)
	if campaign.PlanID != planID || campaign.Creator != testRegistrar {
		t.Fatalf("campaign = %+v", campaign)
	}

	var expired bool
	mustResult(t, rpcCall(t, srv, false, "vesting_isExpired", campaignQueryParams{CampaignID: testCampaign, Now: &now}), &expired)
	if expired {
		t.Fatalf("fresh campaign reported expired")
	}

	// Claim before whitelisting fails and mutates nothing.
	claimNow := uint64(16 * 3600)
	resp = rpcCall(t, srv, true, "vesting_claim", claimParams{Caller: testAlice, PlanID: planID, CampaignID: testCampaign, Now: &claimNow})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("unlisted claim error = %+v", resp.Error)
	}

	resp = rpcCall(t, srv, true, "vesting_addToWhitelist", whitelistParams{
		Caller: testOwner, PlanID: planID, CampaignID: testCampaign, Account: testAlice,
	})
	if resp.Error != nil {
		t.Fatalf("whitelist: %+v", resp.Error)
	}
	var listed bool
	mustResult(t, rpcCall(t, srv, false, "vesting_isWhitelisted", whitelistQueryParams{PlanID: planID, CampaignID: testCampaign, Account: testAlice}), &listed)
	if !listed {
		t.Fatalf("account not whitelisted after add")
	}

	var claim ClaimResult
	mustResult(t, rpcCall(t, srv, true, "vesting_claim", claimParams{Caller: testAlice, PlanID: planID, CampaignID: testCampaign, Now: &claimNow}), &claim)
	if claim.Amount != "1500" || claim.ReleasedDays != 1 || claim.Balance != "1500" {
		t.Fatalf("claim = %+v", claim)
	}

	var owed string
	mustResult(t, rpcCall(t, srv, false, "vesting_getClaimable", claimableParams{PlanID: planID, CampaignID: testCampaign, Account: testAlice, Now: &claimNow}), &owed)
	if owed != "0" {
		t.Fatalf("claimable after claim = %s", owed)
	}
}

func TestBatchAndSummaryOverRPC(t *testing.T) {
	srv := newTestServer(t)

	var planID uint64
	mustResult(t, rpcCall(t, srv, true, "vesting_registerPlan", registerPlanParams{
		Caller:        testOwner,
		ReleaseHour:   14,
		ReleaseAmount: "1000",
	}), &planID)

	now := uint64(3600)
	farFuture := uint64(1) << 40
	second := "0x" + strings.Repeat("02", 32)
	for _, id := range []string{testCampaign, second} {
		resp := rpcCall(t, srv, true, "vesting_registerCampaign", registerCampaignParams{
			Caller: testRegistrar, CampaignID: id, PlanID: planID, Expiration: farFuture, Now: &now,
		})
		if resp.Error != nil {
			t.Fatalf("register campaign %s: %+v", id, resp.Error)
		}
		resp = rpcCall(t, srv, true, "vesting_addToWhitelist", whitelistParams{
			Caller: testOwner, PlanID: planID, CampaignID: id, Account: testAlice,
		})
		if resp.Error != nil {
			t.Fatalf("whitelist %s: %+v", id, resp.Error)
		}
	}

	readNow := uint64(2*86400 + 16*3600)
	var entries []BatchEntryResult
	mustResult(t, rpcCall(t, srv, false, "vesting_getClaimableBatch", claimableBatchParams{
		PlanID:      planID,
		CampaignIDs: []string{testCampaign, second},
		Accounts:    []string{testAlice},
		Now:         &readNow,
	}), &entries)
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	for _, entry := range entries {
		if entry.Amount != "3000" {
			t.Fatalf("entry = %+v, want 3 released days", entry)
		}
	}

	var summary PlanSummaryResult
	mustResult(t, rpcCall(t, srv, false, "vesting_walletPlanSummary", walletPlanSummaryParams{
		PlanID:      planID,
		Account:     testAlice,
		CampaignIDs: []string{testCampaign, second},
		Now:         &readNow,
	}), &summary)
	if summary.TotalClaimable != "6000" || len(summary.Campaigns) != 2 {
		t.Fatalf("summary = %+v", summary)
	}

	var summaries []PlanSummaryResult
	mustResult(t, rpcCall(t, srv, false, "vesting_walletCampaignsSummary", walletCampaignsSummaryParams{
		Account:     testAlice,
		CampaignIDs: []string{testCampaign, second},
		Now:         &readNow,
	}), &summaries)
	if len(summaries) != 1 || summaries[0].TotalClaimable != "6000" {
		t.Fatalf("summaries = %+v", summaries)
	}
}

func TestTokensEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var planID uint64
	mustResult(t, rpcCall(t, srv, true, "vesting_registerPlan", registerPlanParams{
		Caller:         testOwner,
		ReleaseHour:    14,
		SpecialRelease: "2000",
	}), &planID)

	now := uint64(3600)
	farFuture := uint64(1) << 40
	resp := rpcCall(t, srv, true, "vesting_registerCampaign", registerCampaignParams{
		Caller: testRegistrar, CampaignID: testCampaign, PlanID: planID, Expiration: farFuture, Now: &now,
	})
	if resp.Error != nil {
		t.Fatalf("register campaign: %+v", resp.Error)
	}
	resp = rpcCall(t, srv, true, "vesting_addToWhitelist", whitelistParams{
		Caller: testOwner, PlanID: planID, CampaignID: testCampaign, Account: testAlice,
	})
	if resp.Error != nil {
		t.Fatalf("whitelist: %+v", resp.Error)
	}
	claimNow := uint64(16 * 3600)
	resp = rpcCall(t, srv, true, "vesting_claim", claimParams{Caller: testAlice, PlanID: planID, CampaignID: testCampaign, Now: &claimNow})
	if resp.Error != nil {
		t.Fatalf("claim: %+v", resp.Error)
	}

	var balance string
	mustResult(t, rpcCall(t, srv, false, "tokens_balanceOf", balanceParams{Account: testAlice, TokenID: planID}), &balance)
	if balance != "2000" {
		t.Fatalf("balance = %s", balance)
	}

	var balances []string
	mustResult(t, rpcCall(t, srv, false, "tokens_batchBalanceOf", batchBalanceParams{
		Accounts: []string{testAlice, testOwner},
		TokenIDs: []uint64{planID, planID},
	}), &balances)
	if len(balances) != 2 || balances[0] != "2000" || balances[1] != "0" {
		t.Fatalf("balances = %v", balances)
	}

	var supply string
	mustResult(t, rpcCall(t, srv, false, "tokens_totalSupply", supplyParams{TokenID: planID}), &supply)
	if supply != "2000" {
		t.Fatalf("supply = %s", supply)
	}

	resp = rpcCall(t, srv, true, "tokens_setBaseURI", setBaseURIParams{Caller: testOwner, BaseURI: "https://example.test/meta/"})
	if resp.Error != nil {
		t.Fatalf("set base uri: %+v", resp.Error)
	}
	var uri string
	mustResult(t, rpcCall(t, srv, false, "tokens_uri", supplyParams{TokenID: planID}), &uri)
	if want := fmt.Sprintf("https://example.test/meta/%d", planID); uri != want {
		t.Fatalf("uri = %s, want %s", uri, want)
	}

	resp = rpcCall(t, srv, true, "tokens_setBaseURI", setBaseURIParams{Caller: testAlice, BaseURI: "https://rogue.test/"})
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("rogue set base uri error = %+v", resp.Error)
	}
}

func TestEventsLatestOverRPC(t *testing.T) {
	srv := newTestServer(t)

	var planID uint64
	mustResult(t, rpcCall(t, srv, true, "vesting_registerPlan", registerPlanParams{
		Caller:        testOwner,
		ReleaseHour:   14,
		ReleaseAmount: "1000",
	}), &planID)

	var results []EventResult
	mustResult(t, rpcCall(t, srv, false, "events_latest", eventsLatestParams{Limit: 10}), &results)
	if len(results) != 1 {
		t.Fatalf("events = %d, want 1", len(results))
	}
	if results[0].Type != "vesting.plan.created" {
		t.Fatalf("event type = %s", results[0].Type)
	}
}
