package auth

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func setTestSecret(t *testing.T) []byte {
	t.Helper()
	raw := []byte("0123456789abcdef0123456789abcdef")
	t.Setenv(secretEnvVariable, base64.StdEncoding.EncodeToString(raw))
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)
	return raw
}

func signWithClaims(t *testing.T, key []byte, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestIssueAndParse(t *testing.T) {
	setTestSecret(t)

	token, expiresAt, err := Issue("user-42", RoleEngineer)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if got, want := time.Until(expiresAt).Round(time.Minute), TokenValidity; got != want {
		t.Fatalf("expiry window = %v, want %v", got, want)
	}

	claims, err := Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.Role != string(RoleEngineer) {
		t.Fatalf("unexpected role %q", claims.Role)
	}
	if claims.ID == "" {
		t.Fatal("expected a credential id")
	}
}

func TestIssueRejectsBadInput(t *testing.T) {
	setTestSecret(t)

	if _, _, err := Issue("  ", RoleAdmin); err == nil {
		t.Fatal("expected error for blank subject")
	}
	if _, _, err := Issue("user-1", Role("manager")); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestParseExpired(t *testing.T) {
	key := setTestSecret(t)

	now := time.Now().UTC()
	token := signWithClaims(t, key, Claims{
		Role: string(RoleAdmin),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "user-7",
			IssuedAt:  jwt.NewNumericDate(now.Add(-25 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
			ID:        "cred-1",
		},
	})

	_, err := Parse(token)
	if !errors.Is(err, ErrCredentialExpired) {
		t.Fatalf("expected ErrCredentialExpired, got %v", err)
	}
	if !Expired(token) {
		t.Fatal("Expired should report true")
	}
	if Expired("garbage") {
		t.Fatal("Expired should be false for an invalid token")
	}
}

func TestParseRejectsTampering(t *testing.T) {
	setTestSecret(t)

	token, _, err := Issue("user-1", RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	tampered := token[:len(token)-2] + "xx"
	if _, err := Parse(tampered); !errors.Is(err, ErrCredentialInvalid) {
		t.Fatalf("expected ErrCredentialInvalid, got %v", err)
	}
	if _, err := Parse(""); !errors.Is(err, ErrCredentialInvalid) {
		t.Fatalf("expected ErrCredentialInvalid for empty token, got %v", err)
	}
	if _, err := Parse("not-a-jwt"); !errors.Is(err, ErrCredentialInvalid) {
		t.Fatalf("expected ErrCredentialInvalid for garbage, got %v", err)
	}
}

func TestParseRejectsForeignSignerAndClaims(t *testing.T) {
	key := setTestSecret(t)
	now := time.Now().UTC()

	foreign := signWithClaims(t, []byte("another-service-secret-value!!!!"), Claims{
		Role: string(RoleAdmin),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	if _, err := Parse(foreign); !errors.Is(err, ErrCredentialInvalid) {
		t.Fatalf("foreign signer: expected ErrCredentialInvalid, got %v", err)
	}

	wrongIssuer := signWithClaims(t, key, Claims{
		Role: string(RoleAdmin),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "somebody-else",
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	if _, err := Parse(wrongIssuer); !errors.Is(err, ErrCredentialInvalid) {
		t.Fatalf("wrong issuer: expected ErrCredentialInvalid, got %v", err)
	}

	unknownRole := signWithClaims(t, key, Claims{
		Role: "manager",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	if _, err := Parse(unknownRole); !errors.Is(err, ErrCredentialInvalid) {
		t.Fatalf("unknown role claim: expected ErrCredentialInvalid, got %v", err)
	}
}

func TestParseMissingSecret(t *testing.T) {
	t.Setenv(secretEnvVariable, "")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, _, err := Issue("user-1", RoleAdmin); err == nil {
		t.Fatal("expected error when secret is not configured")
	}
}

func TestStripBearer(t *testing.T) {
	cases := map[string]string{
		"Bearer abc.def.ghi":   "abc.def.ghi",
		"abc.def.ghi":          "abc.def.ghi",
		"  Bearer abc.def  ":   "abc.def",
		"bearer abc.def":       "bearer abc.def",
		"BearerNoSpace":        "BearerNoSpace",
		"Bearer Bearer nested": "Bearer nested",
	}
	for in, want := range cases {
		if got := StripBearer(in); got != want {
			t.Fatalf("StripBearer(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAuthorizeOrdering(t *testing.T) {
	key := setTestSecret(t)
	now := time.Now().UTC()

	expired := signWithClaims(t, key, Claims{
		Role: string(RoleAdmin),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now.Add(-25 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	})

	// Credential failures outrank the action vocabulary: an expired admin
	// credential with a bogus action still reports expiry.
	if v := Authorize(expired, Action("frobnicate")); v != VerdictCredentialExpired {
		t.Fatalf("expired credential: got %v", v)
	}
	if v := Authorize("garbage", Action("frobnicate")); v != VerdictCredentialInvalid {
		t.Fatalf("invalid credential: got %v", v)
	}

	valid, _, err := Issue("user-1", RoleTechnician)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if v := Authorize(valid, Action("frobnicate")); v != VerdictActionUnknown {
		t.Fatalf("unknown action: got %v", v)
	}
	if v := Authorize(valid, ActionCreatePlace); v != VerdictForbidden {
		t.Fatalf("forbidden action: got %v", v)
	}
	if v := Authorize("Bearer "+valid, ActionExistPlace); v != VerdictGranted {
		t.Fatalf("granted action with bearer prefix: got %v", v)
	}
}

func TestVerdictString(t *testing.T) {
	for v, want := range map[Verdict]string{
		VerdictGranted:           "granted",
		VerdictForbidden:         "forbidden",
		VerdictActionUnknown:     "action_unknown",
		VerdictCredentialInvalid: "credential_invalid",
		VerdictCredentialExpired: "credential_expired",
	} {
		if got := v.String(); got != want {
			t.Fatalf("Verdict(%d).String() = %q, want %q", v, got, want)
		}
	}
}

func TestParseRole(t *testing.T) {
	for _, raw := range []string{"ADMIN", "admin", " Admin "} {
		role, ok := ParseRole(raw)
		if !ok || role != RoleAdmin {
			t.Fatalf("ParseRole(%q) = %v, %v", raw, role, ok)
		}
	}
	if _, ok := ParseRole("manager"); ok {
		t.Fatal("expected manager to be unknown")
	}
	if _, ok := ParseRole(""); ok {
		t.Fatal("expected empty role to be unknown")
	}
}

func TestHashAndVerifySecret(t *testing.T) {
	hash, err := HashSecret("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}
	if strings.Contains(hash, "correct horse") {
		t.Fatal("hash leaks the plaintext")
	}
	if err := VerifySecret(hash, "correct horse battery staple"); err != nil {
		t.Fatalf("expected matching secret to verify: %v", err)
	}
	if err := VerifySecret(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch to fail")
	}
}
