package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"gridpoint.org/internal/audit"
	"gridpoint.org/internal/auth"
	"gridpoint.org/internal/obs"
	"gridpoint.org/internal/saga"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"status":  "error",
		"message": msg,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// statusForOutcome maps the saga taxonomy to wire status codes.
// notFoundStatus is the endpoint-specific absence status (404 for most,
// the inherited 204 for the measurement-place-item exist endpoint).
func statusForOutcome(o saga.Outcome, notFoundStatus int) int {
	switch o.Kind {
	case saga.KindCreated:
		return http.StatusCreated
	case saga.KindDeleted, saga.KindFound:
		return http.StatusOK
	case saga.KindNotFound:
		if notFoundStatus != 0 {
			return notFoundStatus
		}
		return http.StatusNotFound
	case saga.KindConflict:
		return http.StatusConflict
	case saga.KindForbidden:
		return http.StatusForbidden
	case saga.KindActionUnknown:
		return http.StatusNotFound
	case saga.KindCredentialInvalid, saga.KindCredentialExpired:
		return http.StatusUnauthorized
	case saga.KindDependencyMissing:
		return http.StatusNotFound
	case saga.KindDependencyUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeOutcome renders a saga outcome. Every reply carries a status token
// and a failure-specific message; consumers branch on both.
func writeOutcome(w http.ResponseWriter, r *http.Request, action string, o saga.Outcome, notFoundStatus int) {
	obs.ObserveOutcome(action, o.Kind.String())
	code := statusForOutcome(o, notFoundStatus)
	if code == http.StatusNoContent {
		w.WriteHeader(code)
		return
	}
	payload := map[string]any{
		"status":  o.Kind.String(),
		"message": o.Message,
	}
	if o.Ref != "" {
		payload["id"] = o.Ref
	}
	if o.Dependency != "" {
		payload["dependency"] = o.Dependency
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// bearerToken extracts the caller's credential. The prefix is stripped once
// here so the saga, gate, and peer clients all carry the bare token.
func bearerToken(r *http.Request) string {
	return auth.StripBearer(r.Header.Get("Authorization"))
}
