package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gridpoint.org/internal/auth"
)

// IdentityGate resolves authorization verdicts through the identity
// service's has-permission endpoint. The wire contract: 200 granted,
// 403 forbidden, 404 action unknown, 401 invalid or expired credential
// (told apart by message), anything else is a peer failure surfaced as an
// error so the saga reports dependency-unavailable instead of forbidden.
type IdentityGate struct {
	base string
	http *http.Client
}

// NewIdentityGate builds a gate backed by the identity service at baseURL.
func NewIdentityGate(baseURL string, timeout time.Duration) *IdentityGate {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &IdentityGate{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

func (g *IdentityGate) Authorize(ctx context.Context, bearerToken string, action auth.Action) (auth.Verdict, error) {
	token := auth.StripBearer(bearerToken)
	if token == "" {
		// No round trip for an absent credential; it cannot be valid.
		return auth.VerdictCredentialInvalid, nil
	}
	target := fmt.Sprintf("%s/v1/auth/has-permission/%s/%s", g.base, url.PathEscape(token), url.PathEscape(string(action)))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
	if err != nil {
		return auth.VerdictCredentialInvalid, fmt.Errorf("build authorization request: %w", err)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return auth.VerdictCredentialInvalid, fmt.Errorf("identity service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return auth.VerdictGranted, nil
	case http.StatusForbidden:
		return auth.VerdictForbidden, nil
	case http.StatusNotFound:
		return auth.VerdictActionUnknown, nil
	case http.StatusUnauthorized:
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil &&
			strings.Contains(payload.Message, "expired") {
			return auth.VerdictCredentialExpired, nil
		}
		return auth.VerdictCredentialInvalid, nil
	default:
		return auth.VerdictCredentialInvalid, fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}
}
