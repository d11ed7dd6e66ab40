package gateway

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"kliver/core/events"
	"kliver/gateway/middleware"
	"kliver/native/vesting"
)

// TokenReader is the slice of the token ledger the gateway exposes.
type TokenReader interface {
	BalanceOf(account [20]byte, tokenID uint64) (*big.Int, error)
	TotalSupply(tokenID uint64) (*big.Int, error)
	URI(tokenID uint64) (string, error)
}

// Gateway serves the read-only REST surface over the vesting and token state.
// Mutations go through the JSON-RPC endpoint; the gateway never writes.
type Gateway struct {
	registry *vesting.Registry
	engine   *vesting.Engine
	ledger   TokenReader
	eventLog *events.Log

	clock func() uint64
	log   *slog.Logger
}

func New(registry *vesting.Registry, engine *vesting.Engine, ledger TokenReader, eventLog *events.Log) *Gateway {
	return &Gateway{
		registry: registry,
		engine:   engine,
		ledger:   ledger,
		eventLog: eventLog,
		clock:    func() uint64 { return uint64(time.Now().Unix()) },
		log:      slog.Default(),
	}
}

// SetClock overrides the wall clock used when a request omits "now".
func (g *Gateway) SetClock(clock func() uint64) {
	if clock != nil {
		g.clock = clock
	}
}

// Router assembles the chi handler, applying the provided rate limiter to the
// versioned API when one is configured.
func (g *Gateway) Router(limiter *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(v1 chi.Router) {
		if limiter != nil {
			v1.Use(limiter.Middleware)
		}
		v1.Get("/vesting/plans", g.handlePlanCount)
		v1.Get("/vesting/plans/{planID}", g.handleGetPlan)
		v1.Get("/vesting/plans/{planID}/next-release", g.handleNextRelease)
		v1.Get("/vesting/plans/{planID}/claimable", g.handleClaimableBatch)
		v1.Get("/vesting/plans/{planID}/campaigns/{campaignID}/whitelist/{account}", g.handleIsWhitelisted)
		v1.Get("/vesting/plans/{planID}/campaigns/{campaignID}/claimable/{account}", g.handleGetClaimable)
		v1.Get("/vesting/campaigns/{campaignID}", g.handleGetCampaign)
		v1.Get("/vesting/campaigns/{campaignID}/expired", g.handleIsExpired)
		v1.Get("/wallets/{account}/plans/{planID}", g.handleWalletPlanSummary)
		v1.Get("/wallets/{account}/summary", g.handleWalletCampaignsSummary)
		v1.Get("/tokens/{tokenID}/supply", g.handleTotalSupply)
		v1.Get("/tokens/{tokenID}/uri", g.handleURI)
		v1.Get("/tokens/{tokenID}/balances/{account}", g.handleBalanceOf)
		v1.Get("/events", g.handleEvents)
	})

	return r
}

// Start serves the gateway on addr.
func (g *Gateway) Start(addr string, limiter *middleware.RateLimiter) error {
	g.log.Info("starting REST gateway", "addr", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           g.Router(limiter),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

type planPayload struct {
	ID             uint64 `json:"id"`
	ReleaseHour    uint8  `json:"releaseHour"`
	ReleaseAmount  string `json:"releaseAmount"`
	SpecialRelease string `json:"specialRelease"`
	MetadataURI    string `json:"metadataUri,omitempty"`
}

type campaignPayload struct {
	ID         string `json:"id"`
	PlanID     uint64 `json:"planId"`
	Creator    string `json:"creator"`
	Expiration uint64 `json:"expiration"`
}

type campaignClaimPayload struct {
	CampaignID string `json:"campaignId"`
	Amount     string `json:"amount"`
}

type planSummaryPayload struct {
	Plan           planPayload            `json:"plan"`
	Account        string                 `json:"account"`
	CurrentBalance string                 `json:"currentBalance"`
	TotalClaimable string                 `json:"totalClaimable"`
	Campaigns      []campaignClaimPayload `json:"campaigns"`
}

type batchEntryPayload struct {
	CampaignID string `json:"campaignId"`
	Account    string `json:"account"`
	Amount     string `json:"amount"`
}

func (g *Gateway) handlePlanCount(w http.ResponseWriter, r *http.Request) {
	count, err := g.registry.PlanCount()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"count": count})
}

func (g *Gateway) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	planID, err := parsePlanID(chi.URLParam(r, "planID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	plan, err := g.registry.GetPlan(planID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatPlan(plan))
}

func (g *Gateway) handleNextRelease(w http.ResponseWriter, r *http.Request) {
	planID, err := parsePlanID(chi.URLParam(r, "planID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	now, err := g.resolveNow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	seconds, err := g.registry.TimeUntilRelease(planID, now)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"secondsUntilRelease": seconds})
}

func (g *Gateway) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, err := parseCampaignID(chi.URLParam(r, "campaignID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	campaign, err := g.registry.GetCampaign(campaignID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatCampaign(campaign))
}

func (g *Gateway) handleIsExpired(w http.ResponseWriter, r *http.Request) {
	campaignID, err := parseCampaignID(chi.URLParam(r, "campaignID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	now, err := g.resolveNow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	expired, err := g.registry.IsExpired(campaignID, now)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"expired": expired})
}

func (g *Gateway) handleIsWhitelisted(w http.ResponseWriter, r *http.Request) {
	planID, err := parsePlanID(chi.URLParam(r, "planID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	campaignID, err := parseCampaignID(chi.URLParam(r, "campaignID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	account, err := parseAddress(chi.URLParam(r, "account"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	listed, err := g.registry.IsWhitelisted(planID, campaignID, account)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"whitelisted": listed})
}

func (g *Gateway) handleGetClaimable(w http.ResponseWriter, r *http.Request) {
	planID, err := parsePlanID(chi.URLParam(r, "planID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	campaignID, err := parseCampaignID(chi.URLParam(r, "campaignID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	account, err := parseAddress(chi.URLParam(r, "account"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	now, err := g.resolveNow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	owed, err := g.engine.GetClaimable(planID, campaignID, account, now)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"claimable": formatAmount(owed)})
}

func (g *Gateway) handleClaimableBatch(w http.ResponseWriter, r *http.Request) {
	planID, err := parsePlanID(chi.URLParam(r, "planID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	campaignIDs, err := parseCampaignIDs(r.URL.Query()["campaign"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	accounts, err := parseAddresses(r.URL.Query()["account"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	now, err := g.resolveNow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	entries, err := g.engine.GetClaimableBatch(planID, campaignIDs, accounts, now)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	payload := make([]batchEntryPayload, 0, len(entries))
	for _, entry := range entries {
		payload = append(payload, batchEntryPayload{
			CampaignID: formatCampaignID(entry.CampaignID),
			Account:    formatAddress(entry.Account),
			Amount:     formatAmount(entry.Amount),
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (g *Gateway) handleWalletPlanSummary(w http.ResponseWriter, r *http.Request) {
	account, err := parseAddress(chi.URLParam(r, "account"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	planID, err := parsePlanID(chi.URLParam(r, "planID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	campaignIDs, err := parseCampaignIDs(r.URL.Query()["campaign"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	now, err := g.resolveNow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	summary, err := g.engine.WalletPlanSummary(planID, account, campaignIDs, now)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatPlanSummary(summary))
}

func (g *Gateway) handleWalletCampaignsSummary(w http.ResponseWriter, r *http.Request) {
	account, err := parseAddress(chi.URLParam(r, "account"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	campaignIDs, err := parseCampaignIDs(r.URL.Query()["campaign"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	now, err := g.resolveNow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	summaries, err := g.engine.WalletCampaignsSummary(account, campaignIDs, now)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	payload := make([]planSummaryPayload, 0, len(summaries))
	for _, summary := range summaries {
		payload = append(payload, formatPlanSummary(summary))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (g *Gateway) handleTotalSupply(w http.ResponseWriter, r *http.Request) {
	tokenID, err := parsePlanID(chi.URLParam(r, "tokenID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	supply, err := g.ledger.TotalSupply(tokenID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"totalSupply": formatAmount(supply)})
}

func (g *Gateway) handleURI(w http.ResponseWriter, r *http.Request) {
	tokenID, err := parsePlanID(chi.URLParam(r, "tokenID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	uri, err := g.ledger.URI(tokenID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"uri": uri})
}

func (g *Gateway) handleBalanceOf(w http.ResponseWriter, r *http.Request) {
	tokenID, err := parsePlanID(chi.URLParam(r, "tokenID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	account, err := parseAddress(chi.URLParam(r, "account"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	balance, err := g.ledger.BalanceOf(account, tokenID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"balance": formatAmount(balance)})
}

func (g *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}
	if g.eventLog == nil {
		writeJSON(w, http.StatusOK, []*events.Record{})
		return
	}
	writeJSON(w, http.StatusOK, g.eventLog.Latest(limit))
}

func (g *Gateway) resolveNow(r *http.Request) (uint64, error) {
	raw := r.URL.Query().Get("now")
	if raw == "" {
		return g.clock(), nil
	}
	now, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid now %q", raw)
	}
	return now, nil
}

func formatPlan(plan *vesting.Plan) planPayload {
	return planPayload{
		ID:             plan.ID,
		ReleaseHour:    plan.ReleaseHour,
		ReleaseAmount:  formatAmount(plan.ReleaseAmount),
		SpecialRelease: formatAmount(plan.SpecialRelease),
		MetadataURI:    plan.MetadataURI,
	}
}

func formatCampaign(campaign *vesting.Campaign) campaignPayload {
	return campaignPayload{
		ID:         formatCampaignID(campaign.ID),
		PlanID:     campaign.PlanID,
		Creator:    formatAddress(campaign.Creator),
		Expiration: campaign.Expiration,
	}
}

func formatPlanSummary(summary *vesting.PlanSummary) planSummaryPayload {
	lines := make([]campaignClaimPayload, 0, len(summary.Campaigns))
	for _, line := range summary.Campaigns {
		lines = append(lines, campaignClaimPayload{
			CampaignID: formatCampaignID(line.CampaignID),
			Amount:     formatAmount(line.Amount),
		})
	}
	return planSummaryPayload{
		Plan:           formatPlan(summary.Plan),
		Account:        formatAddress(summary.Account),
		CurrentBalance: formatAmount(summary.CurrentBalance),
		TotalClaimable: formatAmount(summary.TotalClaimable),
		Campaigns:      lines,
	}
}

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

func parsePlanID(value string) (vesting.PlanID, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid plan id %q", value)
	}
	return id, nil
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

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vesting.ErrPlanNotFound),
		errors.Is(err, vesting.ErrCampaignNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, vesting.ErrCampaignPlanMismatch):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
