package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kliver/core/events"
	"kliver/native/tokens"
	"kliver/native/vesting"
	"kliver/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeModulePaused   = -32030
)

// Server exposes the vesting and token engines over JSON-RPC 2.0.
type Server struct {
	registry *vesting.Registry
	engine   *vesting.Engine
	ledger   *tokens.Ledger
	eventLog *events.Log

	authToken string
	clock     func() uint64
	log       *slog.Logger
}

func NewServer(registry *vesting.Registry, engine *vesting.Engine, ledger *tokens.Ledger, eventLog *events.Log, authToken string) *Server {
	return &Server{
		registry:  registry,
		engine:    engine,
		ledger:    ledger,
		eventLog:  eventLog,
		authToken: strings.TrimSpace(authToken),
		clock:     func() uint64 { return uint64(time.Now().Unix()) },
		log:       slog.Default(),
	}
}

// SetClock overrides the wall clock used when a request omits "now".
func (s *Server) SetClock(clock func() uint64) {
	if clock != nil {
		s.clock = clock
	}
}

func (s *Server) Start(addr string) error {
	s.log.Info("starting JSON-RPC server", "addr", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

// Handler returns the HTTP mux serving the RPC endpoint and /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	recorder := &statusRecorder{ResponseWriter: w}
	s.route(recorder, r, req)
	outcome := "ok"
	if recorder.status >= http.StatusBadRequest {
		outcome = "error"
	}
	observability.Vesting().RecordRPC(req.Method, outcome)
}

func (s *Server) route(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	switch req.Method {
	case "vesting_registerPlan":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleVestingRegisterPlan(w, r, req)
	case "vesting_getPlan":
		s.handleVestingGetPlan(w, r, req)
	case "vesting_planCount":
		s.handleVestingPlanCount(w, r, req)
	case "vesting_timeUntilRelease":
		s.handleVestingTimeUntilRelease(w, r, req)
	case "vesting_registerCampaign":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleVestingRegisterCampaign(w, r, req)
	case "vesting_updateExpiration":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleVestingUpdateExpiration(w, r, req)
	case "vesting_getCampaign":
		s.handleVestingGetCampaign(w, r, req)
	case "vesting_isExpired":
		s.handleVestingIsExpired(w, r, req)
	case "vesting_addToWhitelist":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleVestingAddToWhitelist(w, r, req)
	case "vesting_removeFromWhitelist":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleVestingRemoveFromWhitelist(w, r, req)
	case "vesting_isWhitelisted":
		s.handleVestingIsWhitelisted(w, r, req)
	case "vesting_claim":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleVestingClaim(w, r, req)
	case "vesting_getClaimable":
		s.handleVestingGetClaimable(w, r, req)
	case "vesting_getClaimableBatch":
		s.handleVestingGetClaimableBatch(w, r, req)
	case "vesting_walletPlanSummary":
		s.handleVestingWalletPlanSummary(w, r, req)
	case "vesting_walletCampaignsSummary":
		s.handleVestingWalletCampaignsSummary(w, r, req)
	case "tokens_balanceOf":
		s.handleTokensBalanceOf(w, r, req)
	case "tokens_batchBalanceOf":
		s.handleTokensBatchBalanceOf(w, r, req)
	case "tokens_totalSupply":
		s.handleTokensTotalSupply(w, r, req)
	case "tokens_uri":
		s.handleTokensURI(w, r, req)
	case "tokens_setBaseURI":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleTokensSetBaseURI(w, r, req)
	case "events_latest":
		s.handleEventsLatest(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
	}
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}
