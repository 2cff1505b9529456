package auth

import (
	"context"
	"strings"
)

type subjectContextKey struct{}
type roleContextKey struct{}

// ContextWithSubject stores the authenticated subject and role in the context.
func ContextWithSubject(ctx context.Context, subject string, role Role) context.Context {
	ctx = context.WithValue(ctx, subjectContextKey{}, strings.TrimSpace(subject))
	return context.WithValue(ctx, roleContextKey{}, role)
}

// SubjectFromContext extracts the authenticated subject from context.
func SubjectFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(subjectContextKey{}).(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// RoleFromContext returns the role stored in context.
func RoleFromContext(ctx context.Context) (Role, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(roleContextKey{}).(Role)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
