package auth

import (
	"context"
	"errors"
	"strings"
)

// Verdict is the authorization decision for one (credential, action) pair.
// Produced fresh per request and never cached; caching would risk serving a
// stale role after a user record change.
type Verdict int

const (
	VerdictGranted Verdict = iota
	VerdictForbidden
	VerdictActionUnknown
	VerdictCredentialInvalid
	VerdictCredentialExpired
)

func (v Verdict) String() string {
	switch v {
	case VerdictGranted:
		return "granted"
	case VerdictForbidden:
		return "forbidden"
	case VerdictActionUnknown:
		return "action_unknown"
	case VerdictCredentialInvalid:
		return "credential_invalid"
	case VerdictCredentialExpired:
		return "credential_expired"
	default:
		return "unknown"
	}
}

const bearerPrefix = "Bearer "

// StripBearer removes a leading "Bearer " scheme if present. The match is
// case-sensitive and exact; internal calls may send the bare token.
func StripBearer(header string) string {
	header = strings.TrimSpace(header)
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	return header
}

// Authorize is the pure decision function: parse the credential, then
// resolve the role's capability for the action. Credential failures win over
// action-vocabulary failures, which win over capability denials.
func Authorize(bearerToken string, action Action) Verdict {
	claims, err := Parse(StripBearer(bearerToken))
	switch {
	case errors.Is(err, ErrCredentialExpired):
		return VerdictCredentialExpired
	case err != nil:
		return VerdictCredentialInvalid
	}
	if !KnownAction(action) {
		return VerdictActionUnknown
	}
	role, ok := ParseRole(claims.Role)
	if !ok {
		return VerdictCredentialInvalid
	}
	if Capable(role, action) {
		return VerdictGranted
	}
	return VerdictForbidden
}

// LocalGate evaluates authorization in-process. The identity service uses it
// directly; every other service reaches the same decision through the
// identity service's has-permission endpoint.
type LocalGate struct{}

func (LocalGate) Authorize(ctx context.Context, bearerToken string, action Action) (Verdict, error) {
	return Authorize(bearerToken, action), nil
}
