package api

import (
	"net/http"
	"strings"

	"github.com/krishisetu/sahayak/internal/orchestrator"
)

// handleAsk processes POST /v1/ask. Malformed JSON is the only 4xx after
// auth; everything else (empty text, over-length text, blocked content)
// returns 200 with the guardrail outcome in the body, so the app server has
// one response shape to handle.
func (d *Dependencies) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.Request
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.IdentityID) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "identity_id is required"})
		return
	}

	resp := d.Advisor.Handle(r.Context(), req)
	writeJSON(w, http.StatusOK, resp)
}
