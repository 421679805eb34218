package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jasiri-lending/jasiri-sub001/internal/security"
	"github.com/jasiri-lending/jasiri-sub001/internal/statement"
)

type statementResponse struct {
	CorrelationID string               `json:"correlation_id"`
	Statement     *statement.Statement `json:"statement"`
}

type summaryResponse struct {
	CorrelationID string                     `json:"correlation_id"`
	CustomerID    string                     `json:"customer_id"`
	Summary       statement.StatementSummary `json:"summary"`
	Degraded      []string                   `json:"degraded_sources,omitempty"`
	Warnings      []string                   `json:"warnings,omitempty"`
}

func handleGetStatement(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Statements == nil {
			security.WriteJSONError(w, r, http.StatusServiceUnavailable, "statements_unavailable")
			return
		}

		customerID := chi.URLParam(r, "customer_id")
		if customerID == "" {
			security.WriteJSONError(w, r, http.StatusBadRequest, "validation_error")
			return
		}

		stmt, err := deps.Statements.BuildStatement(r.Context(), customerID)
		if err != nil {
			writeStatementError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, statementResponse{
			CorrelationID: security.CorrelationIDFromContext(r.Context()),
			Statement:     stmt,
		})
	}
}

func handleGetSummary(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Statements == nil {
			security.WriteJSONError(w, r, http.StatusServiceUnavailable, "statements_unavailable")
			return
		}

		customerID := chi.URLParam(r, "customer_id")
		if customerID == "" {
			security.WriteJSONError(w, r, http.StatusBadRequest, "validation_error")
			return
		}

		result, err := deps.Statements.BuildSummary(r.Context(), customerID)
		if err != nil {
			writeStatementError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, summaryResponse{
			CorrelationID: security.CorrelationIDFromContext(r.Context()),
			CustomerID:    customerID,
			Summary:       result.Summary,
			Degraded:      result.Degraded,
			Warnings:      result.Warnings,
		})
	}
}

// writeStatementError maps the engine's error taxonomy onto HTTP statuses.
// Non-critical source failures never reach here; they degrade the statement
// instead.
func writeStatementError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, statement.ErrCustomerNotFound) {
		security.WriteJSONError(w, r, http.StatusNotFound, "customer_not_found")
		return
	}

	var upstream *statement.UpstreamError
	if errors.As(err, &upstream) {
		security.WriteJSONError(w, r, http.StatusBadGateway, "upstream_unavailable")
		return
	}

	security.WriteJSONError(w, r, http.StatusInternalServerError, "internal_error")
}
