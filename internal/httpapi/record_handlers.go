package httpapi

import (
	"net/http"

	"gridpoint.org/internal/audit"
	"gridpoint.org/internal/records"
	"gridpoint.org/internal/saga"
)

func (a *API) decodeKey(w http.ResponseWriter, r *http.Request) (records.Key, bool) {
	desc := a.records.Descriptor()
	var body map[string]string
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return nil, false
	}
	key, err := desc.NewKey(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return key, true
}

func (a *API) handleRecordCollection(w http.ResponseWriter, r *http.Request) {
	desc := a.records.Descriptor()
	switch r.Method {
	case http.MethodPost:
		key, ok := a.decodeKey(w, r)
		if !ok {
			return
		}
		outcome := a.records.Create(r.Context(), bearerToken(r), key)
		if outcome.Kind == saga.KindCreated {
			_ = audit.LogEvent(r.Context(), desc.Singular+".create", map[string]any{
				"id":  outcome.Ref,
				"key": key.Values(),
			})
		}
		writeOutcome(w, r, string(desc.CreateAction), outcome, 0)
	case http.MethodDelete:
		key, ok := a.decodeKey(w, r)
		if !ok {
			return
		}
		outcome := a.records.Delete(r.Context(), bearerToken(r), key)
		if outcome.Kind == saga.KindDeleted {
			_ = audit.LogEvent(r.Context(), desc.Singular+".delete", map[string]any{
				"id":  outcome.Ref,
				"key": key.Values(),
			})
		}
		writeOutcome(w, r, string(desc.DeleteAction), outcome, 0)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodDelete)
	}
}

// handleRecordExist answers the peer existence protocol. The absence
// status comes from the descriptor because one legacy endpoint replies
// 204 instead of 404 and its callers depend on that.
func (a *API) handleRecordExist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	desc := a.records.Descriptor()
	key, ok := a.decodeKey(w, r)
	if !ok {
		return
	}
	outcome := a.records.Exists(r.Context(), bearerToken(r), key)
	writeOutcome(w, r, string(desc.ExistAction), outcome, desc.NotFoundStatus)
}
