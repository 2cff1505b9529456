// Package httpapi is the HTTP surface of one gridpoint service. Per-request
// authorization happens inside the validation saga, not in middleware, so
// the outcome ordering (credential before dependency before uniqueness) is
// identical no matter which endpoint triggered it.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"gridpoint.org/internal/identity"
	"gridpoint.org/internal/obs"
	"gridpoint.org/internal/records"
)

// ReadyProbe reports whether the service's dependencies answer (DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer of one service process.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	service    string
	version    string

	users   *identity.Service
	records *records.Service

	rateBurst  int
	ratePerSec int
}

func newAPI(rp ReadyProbe, service, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		service:    service,
		version:    version,
		rateBurst:  50,
		ratePerSec: 25,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())
	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// NewIdentity builds the identity service surface: login, has-permission,
// and the user resource.
func NewIdentity(rp ReadyProbe, version string, users *identity.Service) *API {
	a := newAPI(rp, "identity", version)
	a.users = users

	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/has-permission/", a.handleHasPermission)
	a.mux.HandleFunc("/v1/users", a.handleUsersCollection)
	a.mux.HandleFunc("/v1/users/exist", a.handleUserExist)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)

	return a
}

// NewRecords builds the surface of one record service.
func NewRecords(rp ReadyProbe, version string, svc *records.Service) *API {
	desc := svc.Descriptor()
	a := newAPI(rp, desc.Singular, version)
	a.records = svc

	base := "/v1/" + desc.Plural
	a.mux.HandleFunc(base, a.handleRecordCollection)
	a.mux.HandleFunc(base+"/exist", a.handleRecordExist)

	return a
}

// Handler returns the full middleware-wrapped handler for the server.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = Credential(h)
	h = SecurityHeaders(h)
	h = obs.Instrument(h)
	h = Logging(h)
	h = RequestID(h)
	return h
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": a.service,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": a.service,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
