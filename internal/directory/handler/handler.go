package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"amicale/internal/directory/models"
	dErrors "amicale/pkg/domain-errors"
	"amicale/pkg/platform/httputil"
)

// Service is the directory surface the handler exposes over HTTP.
type Service interface {
	EnsureProfile(ctx context.Context) (*models.Member, error)
	BootstrapRole(ctx context.Context) (*models.Member, error)
	CreateMember(ctx context.Context, params models.CreateMemberParams) (*models.Member, error)
	UpdateMember(ctx context.Context, memberUID string, params models.AdminUpdateParams) (*models.Member, error)
	ChangeRole(ctx context.Context, memberUID string, newRole models.Role) (*models.Member, error)
	GetMember(ctx context.Context, memberUID string) (*models.Member, error)
	ListMembers(ctx context.Context) ([]*models.Member, error)
	CreateSection(ctx context.Context, params models.CreateSectionParams) (*models.Section, error)
	UpdateSection(ctx context.Context, sectionID uuid.UUID, params models.UpdateSectionParams) (*models.Section, error)
	DeleteSection(ctx context.Context, sectionID uuid.UUID) error
	GetSection(ctx context.Context, sectionID uuid.UUID) (*models.Section, error)
	ListSections(ctx context.Context) ([]*models.Section, error)
}

// Handler exposes the member and section directory. Authentication is applied
// by the router; the service layer enforces roles.
type Handler struct {
	directory Service
	logger    *slog.Logger
}

func New(directory Service, logger *slog.Logger) *Handler {
	return &Handler{directory: directory, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/profile/ensure", h.handleEnsureProfile)
	r.Post("/profile/bootstrap", h.handleBootstrapRole)

	// Flat registrations: other handlers add member-scoped routes
	// (payments, conditions, eligibility) under the same subtree.
	r.Get("/members", h.handleListMembers)
	r.Post("/members", h.handleCreateMember)
	r.Get("/members/{uid}", h.handleGetMember)
	r.Patch("/members/{uid}", h.handleUpdateMember)
	r.Put("/members/{uid}/role", h.handleChangeRole)

	r.Get("/sections", h.handleListSections)
	r.Post("/sections", h.handleCreateSection)
	r.Get("/sections/{id}", h.handleGetSection)
	r.Patch("/sections/{id}", h.handleUpdateSection)
	r.Delete("/sections/{id}", h.handleDeleteSection)
}

func (h *Handler) handleEnsureProfile(w http.ResponseWriter, r *http.Request) {
	member, err := h.directory.EnsureProfile(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "ensure profile failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, memberResponse(member))
}

func (h *Handler) handleBootstrapRole(w http.ResponseWriter, r *http.Request) {
	member, err := h.directory.BootstrapRole(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "bootstrap escalation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, memberResponse(member))
}

func (h *Handler) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var req createMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	params, err := req.toParams()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	member, err := h.directory.CreateMember(r.Context(), params)
	if err != nil {
		h.writeError(r.Context(), w, "create member failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, memberResponse(member))
}

func (h *Handler) handleGetMember(w http.ResponseWriter, r *http.Request) {
	member, err := h.directory.GetMember(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		h.writeError(r.Context(), w, "get member failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, memberResponse(member))
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.directory.ListMembers(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "list members failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, membersResponse(members))
}

func (h *Handler) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	var req updateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	params, err := req.toParams()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	member, err := h.directory.UpdateMember(r.Context(), chi.URLParam(r, "uid"), params)
	if err != nil {
		h.writeError(r.Context(), w, "update member failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, memberResponse(member))
}

func (h *Handler) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	var req changeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	member, err := h.directory.ChangeRole(r.Context(), chi.URLParam(r, "uid"), models.Role(req.Role))
	if err != nil {
		h.writeError(r.Context(), w, "change role failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, memberResponse(member))
}

func (h *Handler) handleCreateSection(w http.ResponseWriter, r *http.Request) {
	var req sectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	section, err := h.directory.CreateSection(r.Context(), models.CreateSectionParams{
		Name:   req.Name,
		City:   req.City,
		Region: req.Region,
	})
	if err != nil {
		h.writeError(r.Context(), w, "create section failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sectionResponse(section))
}

func (h *Handler) handleGetSection(w http.ResponseWriter, r *http.Request) {
	id, err := sectionID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	section, err := h.directory.GetSection(r.Context(), id)
	if err != nil {
		h.writeError(r.Context(), w, "get section failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sectionResponse(section))
}

func (h *Handler) handleListSections(w http.ResponseWriter, r *http.Request) {
	sections, err := h.directory.ListSections(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "list sections failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sectionsResponse(sections))
}

func (h *Handler) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	id, err := sectionID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req updateSectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	section, err := h.directory.UpdateSection(r.Context(), id, models.UpdateSectionParams{
		Name:   req.Name,
		City:   req.City,
		Region: req.Region,
	})
	if err != nil {
		h.writeError(r.Context(), w, "update section failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sectionResponse(section))
}

func (h *Handler) handleDeleteSection(w http.ResponseWriter, r *http.Request) {
	id, err := sectionID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.directory.DeleteSection(r.Context(), id); err != nil {
		h.writeError(r.Context(), w, "delete section failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sectionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "invalid section id")
	}
	return id, nil
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "error", err)
	}
	httputil.WriteError(w, err)
}
