package rpc

import (
	"errors"
	"net/http"
	"strings"

	"kliver/native/tokens"
)

type balanceParams struct {
	Account string `json:"account"`
	TokenID uint64 `json:"tokenId"`
}

type batchBalanceParams struct {
	Accounts []string `json:"accounts"`
	TokenIDs []uint64 `json:"tokenIds"`
}

type supplyParams struct {
	TokenID uint64 `json:"tokenId"`
}

type setBaseURIParams struct {
	Caller  string `json:"caller"`
	BaseURI string `json:"baseUri"`
}

func (s *Server) handleTokensBalanceOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params balanceParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	account, err := parseAddress(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account address", err.Error())
		return
	}
	balance, err := s.ledger.BalanceOf(account, params.TokenID)
	if err != nil {
		writeTokenError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatAmount(balance))
}

func (s *Server) handleTokensBatchBalanceOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params batchBalanceParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	accounts := make([][20]byte, 0, len(params.Accounts))
	for _, value := range params.Accounts {
		account, err := parseAddress(value)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid accounts", err.Error())
			return
		}
		accounts = append(accounts, account)
	}
	balances, err := s.ledger.BatchBalanceOf(accounts, params.TokenIDs)
	if err != nil {
		writeTokenError(w, req.ID, err)
		return
	}
	results := make([]string, 0, len(balances))
	for _, balance := range balances {
		results = append(results, formatAmount(balance))
	}
	writeResult(w, req.ID, results)
}

func (s *Server) handleTokensTotalSupply(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params supplyParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	supply, err := s.ledger.TotalSupply(params.TokenID)
	if err != nil {
		writeTokenError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatAmount(supply))
}

func (s *Server) handleTokensURI(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params supplyParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	uri, err := s.ledger.URI(params.TokenID)
	if err != nil {
		writeTokenError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, uri)
}

func (s *Server) handleTokensSetBaseURI(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setBaseURIParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if strings.TrimSpace(params.BaseURI) == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "baseUri is required", nil)
		return
	}
	if err := s.ledger.SetBaseURI(caller, params.BaseURI); err != nil {
		writeTokenError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "ok")
}

func writeTokenError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, tokens.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeUnauthorized, "caller not authorized", err.Error())
	case errors.Is(err, tokens.ErrInvalidAmount),
		errors.Is(err, tokens.ErrLengthMismatch):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, "request rejected", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, "internal error", err.Error())
	}
}
