package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"amicale/internal/condition/models"
	dErrors "amicale/pkg/domain-errors"
	"amicale/pkg/platform/httputil"
)

// Service is the condition surface the handler exposes over HTTP.
type Service interface {
	CreateCondition(ctx context.Context, params models.CreateConditionParams) (*models.Condition, error)
	UpdateCondition(ctx context.Context, conditionID uuid.UUID, params models.UpdateConditionParams) (*models.Condition, error)
	ListConditions(ctx context.Context) ([]*models.Condition, error)
	ValidateCondition(ctx context.Context, params models.ValidateConditionParams) (*models.MemberCondition, error)
	ListMemberConditions(ctx context.Context, memberUID string) ([]*models.MemberCondition, error)
}

// Handler exposes the condition registry and member validations.
type Handler struct {
	conditions Service
	logger     *slog.Logger
}

func New(conditions Service, logger *slog.Logger) *Handler {
	return &Handler{conditions: conditions, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/conditions", h.handleListConditions)
	r.Post("/conditions", h.handleCreateCondition)
	r.Patch("/conditions/{id}", h.handleUpdateCondition)
	r.Post("/conditions/{id}/validate", h.handleValidateCondition)
	r.Get("/members/{uid}/conditions", h.handleListMemberConditions)
}

type createConditionRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Type         string `json:"type"`
	ValidityDays *int   `json:"validityDuration"`
}

type updateConditionRequest struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	ValidityDays  *int    `json:"validityDuration"`
	ClearValidity bool    `json:"clearValidityDuration"`
	IsActive      *bool   `json:"isActive"`
}

type validateConditionRequest struct {
	MemberID  string `json:"memberId"`
	Validated bool   `json:"validated"`
	Note      string `json:"note"`
	Evidence  string `json:"evidence"`
}

type conditionDTO struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Type         string    `json:"type"`
	ValidityDays *int      `json:"validityDuration,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func conditionResponse(c *models.Condition) conditionDTO {
	return conditionDTO{
		ID:           c.ID.String(),
		Name:         c.Name,
		Description:  c.Description,
		Type:         string(c.Type),
		ValidityDays: c.ValidityDays,
		IsActive:     c.IsActive,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

type memberConditionDTO struct {
	MemberID    string     `json:"memberId"`
	ConditionID string     `json:"conditionId"`
	Validated   bool       `json:"validated"`
	ValidatedBy string     `json:"validatedBy"`
	ValidatedAt time.Time  `json:"validatedAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	Note        string     `json:"note,omitempty"`
	Evidence    string     `json:"evidence,omitempty"`
}

func memberConditionResponse(mc *models.MemberCondition) memberConditionDTO {
	return memberConditionDTO{
		MemberID:    mc.MemberUID,
		ConditionID: mc.ConditionID.String(),
		Validated:   mc.Validated,
		ValidatedBy: mc.ValidatedBy,
		ValidatedAt: mc.ValidatedAt,
		ExpiresAt:   mc.ExpiresAt,
		Note:        mc.Note,
		Evidence:    mc.Evidence,
	}
}

func (h *Handler) handleCreateCondition(w http.ResponseWriter, r *http.Request) {
	var req createConditionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	condition, err := h.conditions.CreateCondition(r.Context(), models.CreateConditionParams{
		Name:         req.Name,
		Description:  req.Description,
		Type:         models.Type(req.Type),
		ValidityDays: req.ValidityDays,
	})
	if err != nil {
		h.writeError(r.Context(), w, "create condition failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, conditionResponse(condition))
}

func (h *Handler) handleUpdateCondition(w http.ResponseWriter, r *http.Request) {
	id, err := conditionID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req updateConditionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	condition, err := h.conditions.UpdateCondition(r.Context(), id, models.UpdateConditionParams{
		Name:          req.Name,
		Description:   req.Description,
		ValidityDays:  req.ValidityDays,
		ClearValidity: req.ClearValidity,
		IsActive:      req.IsActive,
	})
	if err != nil {
		h.writeError(r.Context(), w, "update condition failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, conditionResponse(condition))
}

func (h *Handler) handleListConditions(w http.ResponseWriter, r *http.Request) {
	conditions, err := h.conditions.ListConditions(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "list conditions failed", err)
		return
	}
	out := make([]conditionDTO, 0, len(conditions))
	for _, c := range conditions {
		out = append(out, conditionResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleValidateCondition(w http.ResponseWriter, r *http.Request) {
	id, err := conditionID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req validateConditionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	state, err := h.conditions.ValidateCondition(r.Context(), models.ValidateConditionParams{
		MemberUID:   req.MemberID,
		ConditionID: id,
		Validated:   req.Validated,
		Note:        req.Note,
		Evidence:    req.Evidence,
	})
	if err != nil {
		h.writeError(r.Context(), w, "validate condition failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, memberConditionResponse(state))
}

func (h *Handler) handleListMemberConditions(w http.ResponseWriter, r *http.Request) {
	states, err := h.conditions.ListMemberConditions(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		h.writeError(r.Context(), w, "list member conditions failed", err)
		return
	}
	out := make([]memberConditionDTO, 0, len(states))
	for _, mc := range states {
		out = append(out, memberConditionResponse(mc))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func conditionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "invalid condition id")
	}
	return id, nil
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "error", err)
	}
	httputil.WriteError(w, err)
}
