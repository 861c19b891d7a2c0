package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/gympulse/internal/app"
	"github.com/okian/gympulse/internal/domain/access"
	"github.com/okian/gympulse/internal/domain/types"
	"github.com/okian/gympulse/pkg/logger"
)

// HeaderSnapshotStatus mirrors the snapshot's status field.
const HeaderSnapshotStatus = "X-Snapshot-Status"

// SnapshotComputer computes metric snapshots.
type SnapshotComputer interface {
	Compute(ctx context.Context, tenantID string, start, end time.Time, caller access.Caller) (types.Snapshot, error)
}

// SnapshotHandler handles snapshot requests.
type SnapshotHandler struct {
	svc    SnapshotComputer
	auth   *Authenticator
	logger logger.Logger
}

// NewSnapshotHandler creates a new snapshot handler.
func NewSnapshotHandler(svc SnapshotComputer, auth *Authenticator, log logger.Logger) *SnapshotHandler {
	return &SnapshotHandler{svc: svc, auth: auth, logger: log}
}

// HandleGetSnapshot handles GET /snapshot?start=&end=[&tenant_id=].
// The tenant defaults to the caller's own. An unavailable scope is still a
// 200 carrying the zero snapshot, flagged in X-Snapshot-Status.
func (h *SnapshotHandler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_snapshot"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	caller, err := h.auth.Caller(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", WrapKind(op, ErrUnauthorized, err))
		return
	}

	q := r.URL.Query()
	start, err := parseTime(q.Get("start"), "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	end, err := parseTime(q.Get("end"), "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	tenantID := strings.TrimSpace(q.Get("tenant_id"))
	if tenantID == "" {
		tenantID = caller.TenantID
	}
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing tenant")))
		return
	}

	ctx := logger.WithTenant(r.Context(), tenantID)
	snap, err := h.svc.Compute(ctx, tenantID, start, end, caller)
	if err != nil && !errors.Is(err, app.ErrScopeUnavailable) {
		h.logger.Error(ctx, "snapshot failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", WrapKind(op, ErrInternal, err))
		return
	}
	w.Header().Set(HeaderSnapshotStatus, string(snap.Status))
	writeJSON(w, http.StatusOK, snap)
}

func parseTime(v, name string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("missing %s", name)
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s; must be RFC3339", name)
	}
	return t, nil
}
