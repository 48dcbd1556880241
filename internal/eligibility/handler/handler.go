package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"amicale/internal/eligibility"
	dErrors "amicale/pkg/domain-errors"
	"amicale/pkg/platform/httputil"
)

// Evaluator is the eligibility surface the handler exposes over HTTP.
type Evaluator interface {
	Compute(ctx context.Context, memberUID string, electionID *uuid.UUID) (*eligibility.Verdict, error)
}

// Handler exposes the read-only eligibility check.
type Handler struct {
	evaluator Evaluator
	logger    *slog.Logger
}

func New(evaluator Evaluator, logger *slog.Logger) *Handler {
	return &Handler{evaluator: evaluator, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/members/{uid}/eligibility", h.handleComputeEligibility)
}

func (h *Handler) handleComputeEligibility(w http.ResponseWriter, r *http.Request) {
	var electionID *uuid.UUID
	if raw := r.URL.Query().Get("electionId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid election id"))
			return
		}
		electionID = &id
	}

	verdict, err := h.evaluator.Compute(r.Context(), chi.URLParam(r, "uid"), electionID)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(r.Context(), "eligibility computation failed", "error", err)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verdict)
}
