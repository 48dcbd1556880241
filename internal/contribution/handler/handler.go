package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"amicale/internal/contribution/models"
	dErrors "amicale/pkg/domain-errors"
	"amicale/pkg/platform/httputil"
)

// Service is the contribution surface the handler exposes over HTTP.
type Service interface {
	SetActivePolicy(ctx context.Context, params models.SetPolicyParams) (*models.Policy, error)
	GetActivePolicy(ctx context.Context) (*models.Policy, error)
	ListPolicies(ctx context.Context) ([]*models.Policy, error)
	RecordPayment(ctx context.Context, params models.RecordPaymentParams) (*models.PaymentRecord, error)
	ListPayments(ctx context.Context, memberUID string) ([]*models.PaymentRecord, error)
}

// Handler exposes contribution policies and the payment ledger.
type Handler struct {
	contributions Service
	logger        *slog.Logger
}

func New(contributions Service, logger *slog.Logger) *Handler {
	return &Handler{contributions: contributions, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/contribution/policy", h.handleGetActivePolicy)
	r.Put("/contribution/policy", h.handleSetActivePolicy)
	r.Get("/contribution/policies", h.handleListPolicies)
	r.Post("/contribution/payments", h.handleRecordPayment)
	r.Get("/members/{uid}/payments", h.handleListPayments)
}

type policyRequest struct {
	Name            string  `json:"name"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Periodicity     string  `json:"periodicity"`
	GracePeriodDays int     `json:"gracePeriodDays"`
}

type policyDTO struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	Periodicity     string    `json:"periodicity"`
	GracePeriodDays int       `json:"gracePeriodDays"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func policyResponse(p *models.Policy) policyDTO {
	return policyDTO{
		ID:              p.ID.String(),
		Name:            p.Name,
		Amount:          p.Amount,
		Currency:        p.Currency,
		Periodicity:     string(p.Periodicity),
		GracePeriodDays: p.GracePeriodDays,
		IsActive:        p.IsActive,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

type paymentRequest struct {
	MemberID    string    `json:"memberId"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	Reference   string    `json:"reference"`
	Note        string    `json:"note"`
}

type paymentDTO struct {
	ID          string    `json:"id"`
	MemberID    string    `json:"memberId"`
	PolicyID    string    `json:"policyId"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	Reference   string    `json:"reference,omitempty"`
	Note        string    `json:"note,omitempty"`
	RecordedBy  string    `json:"recordedBy"`
	RecordedAt  time.Time `json:"recordedAt"`
}

func paymentResponse(r *models.PaymentRecord) paymentDTO {
	return paymentDTO{
		ID:          r.ID.String(),
		MemberID:    r.MemberUID,
		PolicyID:    r.PolicyID.String(),
		Amount:      r.Amount,
		Currency:    r.Currency,
		PeriodStart: r.PeriodStart,
		PeriodEnd:   r.PeriodEnd,
		Reference:   r.Reference,
		Note:        r.Note,
		RecordedBy:  r.RecordedBy,
		RecordedAt:  r.RecordedAt,
	}
}

func (h *Handler) handleSetActivePolicy(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	policy, err := h.contributions.SetActivePolicy(r.Context(), models.SetPolicyParams{
		Name:            req.Name,
		Amount:          req.Amount,
		Currency:        req.Currency,
		Periodicity:     models.Periodicity(req.Periodicity),
		GracePeriodDays: req.GracePeriodDays,
	})
	if err != nil {
		h.writeError(r.Context(), w, "set policy failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, policyResponse(policy))
}

func (h *Handler) handleGetActivePolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := h.contributions.GetActivePolicy(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "get active policy failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, policyResponse(policy))
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.contributions.ListPolicies(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "list policies failed", err)
		return
	}
	out := make([]policyDTO, 0, len(policies))
	for _, p := range policies {
		out = append(out, policyResponse(p))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	record, err := h.contributions.RecordPayment(r.Context(), models.RecordPaymentParams{
		MemberUID:   req.MemberID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		Reference:   req.Reference,
		Note:        req.Note,
	})
	if err != nil {
		h.writeError(r.Context(), w, "record payment failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, paymentResponse(record))
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	records, err := h.contributions.ListPayments(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		h.writeError(r.Context(), w, "list payments failed", err)
		return
	}
	out := make([]paymentDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, paymentResponse(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "error", err)
	}
	httputil.WriteError(w, err)
}
