package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/gympulse/internal/app"
)

// maxEventBytes caps a single POST /events body.
const maxEventBytes = 1 << 20

// Ingester accepts event envelopes.
type Ingester interface {
	Ingest(ctx context.Context, env app.Envelope) (app.IngestResult, error)
}

// EventsHandler handles event requests.
type EventsHandler struct {
	svc  Ingester
	auth *Authenticator
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(svc Ingester, auth *Authenticator) *EventsHandler {
	return &EventsHandler{svc: svc, auth: auth}
}

// HandlePostEvent handles POST /events requests. With token verification
// enabled every post needs a bearer token of the event's tenant.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	env, err := app.DecodeEnvelope(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if h.auth.Enabled() {
		caller, err := h.auth.Caller(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", WrapKind(op, ErrUnauthorized, err))
			return
		}
		if caller.TenantID != env.TenantID {
			writeError(w, http.StatusForbidden, "forbidden", NewKind(op, ErrForbidden))
			return
		}
	}

	res, err := h.svc.Ingest(r.Context(), env)
	switch {
	case errors.Is(err, app.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, app.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrInternal, err))
	case res.Status == app.IngestDuplicate:
		writeJSON(w, http.StatusOK, res)
	default:
		writeJSON(w, http.StatusAccepted, res)
	}
}
