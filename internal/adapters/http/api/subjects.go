package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/gympulse/internal/app"
	"github.com/okian/gympulse/internal/domain/access"
	"github.com/okian/gympulse/internal/domain/model"
	"github.com/okian/gympulse/pkg/logger"
)

// SubjectResolver looks up a single lead or client.
type SubjectResolver interface {
	Subject(ctx context.Context, tenantID, id string, caller access.Caller) (model.Subject, error)
}

type subjectResponse struct {
	ID            string `json:"id"`
	TenantID      string `json:"tenant_id"`
	Source        string `json:"source"`
	AssignedRepID string `json:"assigned_rep_id,omitempty"`
}

// SubjectsHandler handles subject lookups.
type SubjectsHandler struct {
	svc    SubjectResolver
	auth   *Authenticator
	logger logger.Logger
}

// NewSubjectsHandler creates a new subjects handler.
func NewSubjectsHandler(svc SubjectResolver, auth *Authenticator, log logger.Logger) *SubjectsHandler {
	return &SubjectsHandler{svc: svc, auth: auth, logger: log}
}

// HandleGetSubject handles GET /subjects/{id}[?tenant_id=]. The tenant
// defaults to the caller's own.
func (h *SubjectsHandler) HandleGetSubject(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_subject"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	caller, err := h.auth.Caller(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", WrapKind(op, ErrUnauthorized, err))
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	tenantID := strings.TrimSpace(r.URL.Query().Get("tenant_id"))
	if tenantID == "" {
		tenantID = caller.TenantID
	}
	if id == "" || tenantID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing tenant or subject id")))
		return
	}

	ctx := logger.WithTenant(r.Context(), tenantID)
	subj, err := h.svc.Subject(ctx, tenantID, id, caller)
	switch {
	case errors.Is(err, app.ErrNoPermission):
		writeError(w, http.StatusForbidden, "forbidden", NewKind(op, ErrForbidden))
	case errors.Is(err, app.ErrSubjectNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case err != nil:
		h.logger.Error(ctx, "subject lookup failed", logger.String("subject_id", id), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", WrapKind(op, ErrInternal, err))
	default:
		writeJSON(w, http.StatusOK, subjectResponse{
			ID:            subj.ID,
			TenantID:      subj.TenantID,
			Source:        subj.Source,
			AssignedRepID: subj.AssignedRepID,
		})
	}
}
