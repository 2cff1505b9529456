package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gridpoint.org/internal/audit"
	"gridpoint.org/internal/auth"
	"gridpoint.org/internal/identity"
	"gridpoint.org/internal/saga"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	token, expiresAt, err := a.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrBadCredentials) {
			writeError(w, r, http.StatusUnauthorized, "bad credentials")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "login failed")
		return
	}
	_ = audit.LogEvent(r.Context(), "identity.login", map[string]any{
		"email":      strings.ToLower(strings.TrimSpace(req.Email)),
		"expires_at": expiresAt.Format(time.RFC3339),
	})
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}

// handleHasPermission is the central gate the peer services call. The wire
// contract is part of the constellation protocol: 200 granted, 403
// forbidden, 404 unknown action, 401 invalid or expired credential.
func (a *API) handleHasPermission(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/auth/has-permission/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		writeError(w, r, http.StatusBadRequest, "token and action are required")
		return
	}
	token, err := url.PathUnescape(parts[0])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed token segment")
		return
	}
	action, err := url.PathUnescape(parts[1])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed action segment")
		return
	}

	verdict := a.users.HasPermission(token, auth.Action(action))
	switch verdict {
	case auth.VerdictGranted:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  verdict.String(),
			"message": "action " + action + " granted",
		})
	case auth.VerdictForbidden:
		writeError(w, r, http.StatusForbidden, "role is not allowed to "+action)
	case auth.VerdictActionUnknown:
		writeError(w, r, http.StatusNotFound, "unknown action "+action)
	case auth.VerdictCredentialExpired:
		writeError(w, r, http.StatusUnauthorized, "credential expired, log in again")
	default:
		writeError(w, r, http.StatusUnauthorized, "invalid credential")
	}
}

type createUserRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Password     string `json:"password"`
	SecretPhrase string `json:"secret_phrase"`
}

type deleteUserRequest struct {
	Email string `json:"email"`
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createUser(w, r)
	case http.MethodDelete:
		a.deleteUser(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodDelete)
	}
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, r, http.StatusBadRequest, "valid email is required")
		return
	}
	role, ok := auth.ParseRole(req.Role)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "unknown role "+req.Role)
		return
	}
	if strings.TrimSpace(req.Password) == "" || strings.TrimSpace(req.SecretPhrase) == "" {
		writeError(w, r, http.StatusBadRequest, "password and secret_phrase are required")
		return
	}

	outcome := a.users.Register(r.Context(), bearerToken(r), identity.Registration{
		Name:         req.Name,
		Email:        email,
		Role:         role,
		Password:     req.Password,
		SecretPhrase: req.SecretPhrase,
	})
	if outcome.Kind == saga.KindCreated {
		_ = audit.LogEvent(r.Context(), "identity.user.create", map[string]any{
			"user_id": outcome.Ref,
			"email":   email,
			"role":    string(role),
		})
		w.Header().Set("Location", "/v1/users/"+outcome.Ref)
	}
	writeOutcome(w, r, string(auth.ActionCreateUser), outcome, 0)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	var req deleteUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, r, http.StatusBadRequest, "email is required")
		return
	}
	outcome := a.users.Delete(r.Context(), bearerToken(r), req.Email)
	if outcome.Kind == saga.KindDeleted {
		_ = audit.LogEvent(r.Context(), "identity.user.delete", map[string]any{
			"user_id": outcome.Ref,
			"email":   strings.ToLower(strings.TrimSpace(req.Email)),
		})
	}
	writeOutcome(w, r, string(auth.ActionDeleteUser), outcome, 0)
}

type existUserRequest struct {
	Email string `json:"email"`
}

func (a *API) handleUserExist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req existUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, r, http.StatusBadRequest, "email is required")
		return
	}
	outcome := a.users.Exists(r.Context(), bearerToken(r), req.Email)
	writeOutcome(w, r, string(auth.ActionExistUser), outcome, 0)
}

type updateUserRequest struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Password     *string `json:"password"`
	SecretPhrase string  `json:"secret_phrase"`
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, outcome := a.users.Get(r.Context(), bearerToken(r), id)
		if outcome.Kind == saga.KindFound {
			writeJSON(w, http.StatusOK, user)
			return
		}
		writeOutcome(w, r, string(auth.ActionReadUser), outcome, 0)
	case http.MethodPut:
		var req updateUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(req.SecretPhrase) == "" {
			writeError(w, r, http.StatusBadRequest, "secret_phrase is required")
			return
		}
		user, outcome := a.users.Apply(r.Context(), bearerToken(r), id, identity.Update{
			Name:         req.Name,
			Email:        req.Email,
			Password:     req.Password,
			SecretPhrase: req.SecretPhrase,
		})
		if outcome.Kind == saga.KindFound {
			_ = audit.LogEvent(r.Context(), "identity.user.update", map[string]any{
				"user_id": user.ID,
			})
			writeJSON(w, http.StatusOK, user)
			return
		}
		writeOutcome(w, r, string(auth.ActionUpdateUser), outcome, 0)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}
