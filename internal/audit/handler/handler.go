package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"amicale/internal/audit"
	dErrors "amicale/pkg/domain-errors"
	"amicale/pkg/platform/httputil"
)

// Query is the audit read surface the handler exposes over HTTP.
type Query interface {
	ByTarget(ctx context.Context, targetType, targetID string) ([]audit.Entry, error)
	ByActor(ctx context.Context, actorID string) ([]audit.Entry, error)
}

// Handler exposes the audit trail, admin+ enforced in the query layer.
type Handler struct {
	query  Query
	logger *slog.Logger
}

func New(query Query, logger *slog.Logger) *Handler {
	return &Handler{query: query, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/audit", h.handleListEntries)
}

type entryDTO struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	ActorID    string         `json:"actorId"`
	ActorRole  string         `json:"actorRole,omitempty"`
	TargetType string         `json:"targetType"`
	TargetID   string         `json:"targetId"`
	Details    map[string]any `json:"details,omitempty"`
	RequestID  string         `json:"requestId,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// handleListEntries serves /audit?targetType=member&targetId=... or
// /audit?actorId=....
func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		entries []audit.Entry
		err     error
	)
	switch {
	case q.Get("actorId") != "":
		entries, err = h.query.ByActor(r.Context(), q.Get("actorId"))
	case q.Get("targetType") != "" && q.Get("targetId") != "":
		entries, err = h.query.ByTarget(r.Context(), q.Get("targetType"), q.Get("targetId"))
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation,
			"either actorId or targetType and targetId are required"))
		return
	}
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(r.Context(), "audit query failed", "error", err)
		}
		httputil.WriteError(w, err)
		return
	}

	out := make([]entryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryDTO{
			ID:         e.ID.String(),
			Action:     string(e.Action),
			ActorID:    e.ActorID,
			ActorRole:  e.ActorRole,
			TargetType: e.TargetType,
			TargetID:   e.TargetID,
			Details:    e.Details,
			RequestID:  e.RequestID,
			Timestamp:  e.Timestamp,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
