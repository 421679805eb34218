package api

import (
	"encoding/json"
	"net/http"

	"github.com/jasiri-lending/jasiri-sub001/internal/security"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	if cid := security.CorrelationIDFromContext(r.Context()); cid != "" {
		w.Header().Set(security.CorrelationIDHeader, cid)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
