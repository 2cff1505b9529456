package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer            = "gridpoint-identity"
	secretEnvVariable = "GRIDPOINT_AUTH_SECRET"

	// TokenValidity is the fixed credential lifetime. There is no revocation:
	// a signed credential stays usable for the whole window even if the user
	// record changes underneath it.
	TokenValidity = 24 * time.Hour
)

var (
	errMissingSecret = errors.New("auth secret is not configured")

	secretMu sync.Mutex
	secret   cachedSecret
)

type cachedSecret struct {
	value []byte
	err   error
	ready bool
}

// ErrCredentialInvalid indicates the credential failed signature or claim
// validation.
var ErrCredentialInvalid = errors.New("invalid credential")

// ErrCredentialExpired indicates a well-formed credential past its expiry.
// Kept distinct from ErrCredentialInvalid so callers can answer "log in
// again" instead of "malformed request".
var ErrCredentialExpired = errors.New("credential expired")

// Claims represents the credential claims shared by every service.
// The role travels under a custom claim as its string name.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs an HS256 credential for the given subject and role. Expiry is
// issue time plus TokenValidity.
func Issue(subject string, role Role) (string, time.Time, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, errors.New("subject is required")
	}
	if _, ok := ParseRole(string(role)); !ok {
		return "", time.Time{}, fmt.Errorf("unknown role %q", role)
	}
	secretBytes, err := loadSecret()
	if err != nil {
		return "", time.Time{}, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(TokenValidity)
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secretBytes)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign credential: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies the credential signature and claims. Expired credentials
// surface as ErrCredentialExpired; every other failure is
// ErrCredentialInvalid.
func Parse(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrCredentialInvalid
	}
	secretBytes, err := loadSecret()
	if err != nil {
		return nil, err
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrCredentialInvalid
		}
		return secretBytes, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrCredentialExpired
		}
		return nil, ErrCredentialInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrCredentialInvalid
	}
	if err := validateClaims(claims); err != nil {
		return nil, ErrCredentialInvalid
	}
	return claims, nil
}

// Expired reports whether an otherwise-valid credential is past its expiry.
func Expired(token string) bool {
	_, err := Parse(token)
	return errors.Is(err, ErrCredentialExpired)
}

func validateClaims(claims *Claims) error {
	if claims.Issuer != issuer {
		return fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	if _, ok := ParseRole(claims.Role); !ok {
		return fmt.Errorf("unknown role: %s", claims.Role)
	}
	now := time.Now().UTC()
	// Allow a small clock skew of 5 seconds when validating issued-at.
	if claims.IssuedAt.Time.After(now.Add(5 * time.Second)) {
		return errors.New("credential issued in the future")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return errors.New("credential expiry precedes issued-at")
	}
	return nil
}

// loadSecret reads and caches the shared signing secret. Every service in
// the constellation must be configured with the byte-identical base64 value
// or cross-service parsing fails; secret distribution is an operational
// precondition, not something this package manages.
func loadSecret() ([]byte, error) {
	secretMu.Lock()
	defer secretMu.Unlock()
	if secret.ready {
		return secret.value, secret.err
	}
	raw := strings.TrimSpace(os.Getenv(secretEnvVariable))
	if raw == "" {
		secret.err = errMissingSecret
		secret.ready = true
		return nil, secret.err
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		secret.err = fmt.Errorf("decode auth secret: %w", err)
		secret.ready = true
		return nil, secret.err
	}
	secret.value = decoded
	secret.err = nil
	secret.ready = true
	return secret.value, nil
}

// ResetSecretForTests clears the cached secret value. Only intended for test use.
func ResetSecretForTests() {
	secretMu.Lock()
	defer secretMu.Unlock()
	secret = cachedSecret{}
}
