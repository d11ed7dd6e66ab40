package rpc

import (
	"encoding/json"
	"net/http"
)

type eventsLatestParams struct {
	Limit int `json:"limit"`
}

// EventResult is a structured event entry from the in-memory log.
type EventResult struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

func (s *Server) handleEventsLatest(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params eventsLatestParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params[0], &params); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
			return
		}
	}
	if s.eventLog == nil {
		writeResult(w, req.ID, []EventResult{})
		return
	}
	records := s.eventLog.Latest(params.Limit)
	results := make([]EventResult, 0, len(records))
	for _, record := range records {
		results = append(results, EventResult{Type: record.Type, Attributes: record.Attributes})
	}
	writeResult(w, req.ID, results)
}
