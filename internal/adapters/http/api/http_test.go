package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/gympulse/internal/adapters/http/api"
	"github.com/okian/gympulse/internal/app"
	"github.com/okian/gympulse/internal/domain/access"
	"github.com/okian/gympulse/internal/domain/model"
	"github.com/okian/gympulse/internal/domain/types"
	"github.com/okian/gympulse/pkg/logger"
)

type mockService struct {
	mu         sync.Mutex
	seen       map[string]bool
	queueFull  bool
	computeErr error
	lastCaller access.Caller
	lastTenant string
}

func (m *mockService) Ingest(_ context.Context, env app.Envelope) (app.IngestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if env.Type == "" {
		return app.IngestResult{}, fmt.Errorf("%w: type failed required", app.ErrInvalidEvent)
	}
	if m.queueFull {
		return app.IngestResult{}, app.ErrQueueFull
	}
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[env.EventID] {
		return app.IngestResult{EventID: env.EventID, Status: app.IngestDuplicate}, nil
	}
	m.seen[env.EventID] = true
	return app.IngestResult{EventID: env.EventID, Status: app.IngestAccepted}, nil
}

func (m *mockService) Compute(_ context.Context, tenantID string, start, end time.Time, caller access.Caller) (types.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCaller = caller
	m.lastTenant = tenantID
	snap := types.Snapshot{TenantID: tenantID, Start: start, End: end, Status: types.StatusComputed, Funnel: types.Funnel{Leads: 7}}
	if m.computeErr != nil {
		if errors.Is(m.computeErr, app.ErrScopeUnavailable) {
			snap.Status = types.StatusScopeUnavailable
			snap.Funnel = types.Funnel{}
			return snap, m.computeErr
		}
		return types.Snapshot{}, m.computeErr
	}
	return snap, nil
}

func (m *mockService) Subject(_ context.Context, tenantID, id string, caller access.Caller) (model.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCaller = caller
	m.lastTenant = tenantID
	switch {
	case caller.Role == "front_desk":
		return model.Subject{}, app.ErrNoPermission
	case id == "lead-1":
		return model.Subject{ID: id, TenantID: tenantID, Source: "facebook_ads", AssignedRepID: "rep-1"}, nil
	case id == "broken":
		return model.Subject{}, errors.New("connection reset")
	default:
		return model.Subject{}, fmt.Errorf("%w: %s", app.ErrSubjectNotFound, id)
	}
}

func (m *mockService) GetStats(context.Context) app.Stats {
	return app.Stats{Started: true, Workers: 4, QueueCapacity: 100}
}

func newMux(svc *mockService, opts ...api.Option) *http.ServeMux {
	_ = logger.Init()
	mux := http.NewServeMux()
	api.NewServer(svc, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

const (
	window    = "/snapshot?start=2024-01-01T00:00:00Z&end=2024-02-01T00:00:00Z"
	leadEvent = `{"event_id":"e1","tenant_id":"gym-1","type":"LeadCreated","occurred_at":"2024-01-02T00:00:00Z"}`
)

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(&mockService{})

		Convey("Then health serves the metrics registry", func() {
			w := do(mux, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats are served as JSON", func() {
			w := do(mux, httptest.NewRequest(http.MethodGet, "/stats", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusOK)
			var st app.Stats
			So(json.Unmarshal(w.Body.Bytes(), &st), ShouldBeNil)
			So(st.Workers, ShouldEqual, 4)
		})

		Convey("Then every response carries a request id", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", http.NoBody)
			req.Header.Set(api.HeaderRequestID, "req-42")
			So(do(mux, req).Header().Get(api.HeaderRequestID), ShouldEqual, "req-42")
			So(do(mux, httptest.NewRequest(http.MethodGet, "/stats", http.NoBody)).Header().Get(api.HeaderRequestID), ShouldNotBeEmpty)
		})

		Convey("Then wrong methods are not found", func() {
			So(do(mux, httptest.NewRequest(http.MethodGet, "/events", http.NoBody)).Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, httptest.NewRequest(http.MethodPost, window, http.NoBody)).Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestEventsHandler(t *testing.T) {
	Convey("Given the events endpoint", t, func() {
		svc := &mockService{}
		mux := newMux(svc)
		post := func(body string) *httptest.ResponseRecorder {
			return do(mux, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body)))
		}

		Convey("When a new event is posted", func() {
			w := post(leadEvent)

			Convey("Then it is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"status":"accepted"`)
			})

			Convey("And posting it again is a duplicate", func() {
				again := post(leadEvent)
				So(again.Code, ShouldEqual, http.StatusOK)
				So(again.Body.String(), ShouldContainSubstring, `"status":"duplicate"`)
			})
		})

		Convey("When the body is not JSON", func() {
			w := post("{")

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "bad_request")
			})
		})

		Convey("When the event is invalid", func() {
			So(post(`{"tenant_id":"gym-1"}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the queue is full", func() {
			svc.queueFull = true
			w := post(leadEvent)

			Convey("Then backpressure is signalled", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(w.Body.String(), ShouldContainSubstring, "backpressure")
			})
		})
	})

	Convey("Given token verification", t, func() {
		mux := newMux(&mockService{}, api.WithJWTSecret("s3cret"))
		post := func(token string) int {
			req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(leadEvent))
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			return do(mux, req).Code
		}

		Convey("Then anonymous posts are unauthorized", func() {
			So(post(""), ShouldEqual, http.StatusUnauthorized)
		})

		Convey("Then a token for the event's tenant is accepted", func() {
			tok, err := api.SignToken("s3cret", access.Caller{TenantID: "gym-1", Role: "front_desk"}, time.Minute)
			So(err, ShouldBeNil)
			So(post(tok), ShouldEqual, http.StatusAccepted)
		})

		Convey("Then a token for another tenant is forbidden", func() {
			tok, err := api.SignToken("s3cret", access.Caller{TenantID: "gym-2", Role: "owner"}, time.Minute)
			So(err, ShouldBeNil)
			So(post(tok), ShouldEqual, http.StatusForbidden)
		})

		Convey("Then a forged token is unauthorized", func() {
			tok, _ := api.SignToken("other", access.Caller{TenantID: "gym-1", Role: "owner"}, time.Minute)
			So(post(tok), ShouldEqual, http.StatusUnauthorized)
		})
	})
}

func TestSnapshotHandler(t *testing.T) {
	Convey("Given the snapshot endpoint with token verification", t, func() {
		svc := &mockService{}
		mux := newMux(svc, api.WithJWTSecret("s3cret"))
		get := func(path, token string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			return do(mux, req)
		}
		token, err := api.SignToken("s3cret", access.Caller{TenantID: "gym-1", Role: "sales", RepID: "rep-3"}, time.Minute)
		So(err, ShouldBeNil)

		Convey("When a signed caller asks for a window", func() {
			w := get(window, token)

			Convey("Then the snapshot is computed for the caller's tenant", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get(api.HeaderSnapshotStatus), ShouldEqual, "computed")
				So(svc.lastTenant, ShouldEqual, "gym-1")
				So(svc.lastCaller, ShouldResemble, access.Caller{TenantID: "gym-1", Role: "sales", RepID: "rep-3"})
				var snap types.Snapshot
				So(json.Unmarshal(w.Body.Bytes(), &snap), ShouldBeNil)
				So(snap.Funnel.Leads, ShouldEqual, 7)
			})
		})

		Convey("When no token is sent", func() {
			So(get(window, "").Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When the token has expired", func() {
			expired, _ := api.SignToken("s3cret", access.Caller{TenantID: "gym-1", Role: "owner"}, -time.Minute)
			So(get(window, expired).Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When the window is malformed", func() {
			w := get("/snapshot?start=yesterday&end=2024-02-01T00:00:00Z", token)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "invalid start")
			})
		})

		Convey("When the scope is unavailable", func() {
			svc.computeErr = fmt.Errorf("%w: store down", app.ErrScopeUnavailable)
			w := get(window, token)

			Convey("Then the zero snapshot is returned with the status header", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get(api.HeaderSnapshotStatus), ShouldEqual, "scope_unavailable")
				So(w.Body.String(), ShouldContainSubstring, `"leads":0`)
			})
		})

		Convey("When computing fails for another reason", func() {
			svc.computeErr = errors.New("boom")
			So(get(window, token).Code, ShouldEqual, http.StatusInternalServerError)
		})
	})

	Convey("Given the snapshot endpoint without token verification", t, func() {
		svc := &mockService{}
		mux := newMux(svc)

		Convey("When the caller is described by headers", func() {
			req := httptest.NewRequest(http.MethodGet, window+"&tenant_id=gym-9", http.NoBody)
			req.Header.Set(api.HeaderTenantID, "gym-9")
			req.Header.Set(api.HeaderRole, "owner")
			w := do(mux, req)

			Convey("Then the headers become the caller", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(svc.lastTenant, ShouldEqual, "gym-9")
				So(svc.lastCaller.Role, ShouldEqual, "owner")
			})
		})

		Convey("When no tenant is known", func() {
			So(do(mux, httptest.NewRequest(http.MethodGet, window, http.NoBody)).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given a wrapped API error", t, func() {
		cause := errors.New("eof")
		err := api.WrapKind("api.post_event", api.ErrBadRequest, cause)

		Convey("Then both the kind and the cause match", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.post_event: bad request: eof")
			So(api.NewKind("op", api.ErrForbidden).Error(), ShouldEqual, "op: forbidden")
		})
	})
}

func TestSubjectsHandler(t *testing.T) {
	Convey("Given the subjects endpoint trusting identity headers", t, func() {
		svc := &mockService{}
		mux := newMux(svc)
		get := func(path, role string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
			req.Header.Set(api.HeaderTenantID, "gym-1")
			req.Header.Set(api.HeaderRole, role)
			return do(mux, req)
		}

		Convey("When a known lead is looked up", func() {
			w := get("/subjects/lead-1", "owner")

			Convey("Then its attribution is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(svc.lastTenant, ShouldEqual, "gym-1")
				var body map[string]string
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["source"], ShouldEqual, "facebook_ads")
				So(body["assigned_rep_id"], ShouldEqual, "rep-1")
			})
		})

		Convey("When the lead is unknown", func() {
			So(get("/subjects/lead-404", "owner").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the role cannot see attribution", func() {
			So(get("/subjects/lead-1", "front_desk").Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("When the store fails", func() {
			So(get("/subjects/broken", "owner").Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When no tenant is known", func() {
			w := do(mux, httptest.NewRequest(http.MethodGet, "/subjects/lead-1", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the method is wrong", func() {
			w := do(mux, httptest.NewRequest(http.MethodPost, "/subjects/lead-1", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
