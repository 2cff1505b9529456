// Package saga runs the validation pipeline every record mutation shares:
// authorize, confirm peer dependencies in order, check local uniqueness,
// then touch the local store. Each step is a value-returning total function;
// the first failing step decides the outcome and nothing after it runs.
package saga

import (
	"context"
	"errors"
	"fmt"

	"gridpoint.org/internal/auth"
	"gridpoint.org/internal/peer"
)

// ErrConflict is returned by Store.Insert when the natural key already
// exists at the storage layer. The storage-level unique constraint, not the
// preceding lookup, is what resolves two racing creates to one success and
// one conflict.
var ErrConflict = errors.New("resource conflict")

// Kind classifies a saga outcome.
type Kind int

const (
	KindCreated Kind = iota
	KindDeleted
	KindFound
	KindNotFound
	KindConflict
	KindForbidden
	KindActionUnknown
	KindCredentialInvalid
	KindCredentialExpired
	KindDependencyMissing
	KindDependencyUnavailable
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindCreated:
		return "created"
	case KindDeleted:
		return "deleted"
	case KindFound:
		return "found"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindActionUnknown:
		return "action_unknown"
	case KindCredentialInvalid:
		return "credential_invalid"
	case KindCredentialExpired:
		return "credential_expired"
	case KindDependencyMissing:
		return "dependency_missing"
	case KindDependencyUnavailable:
		return "dependency_unavailable"
	default:
		return "unexpected"
	}
}

// Outcome is the terminal result of one saga execution. Message is always
// populated and distinct per failure kind; callers branch on both.
type Outcome struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Ref        string `json:"ref,omitempty"`
	Dependency string `json:"dependency,omitempty"`
}

// Gate decides whether the bearer credential may perform an action. A
// non-nil error means the decision itself could not be obtained (the
// identity peer was unreachable or errored), which is a dependency failure,
// never a denial.
type Gate interface {
	Authorize(ctx context.Context, bearerToken string, action auth.Action) (auth.Verdict, error)
}

// Dependency is one ordered peer existence check, already bound to the
// request's natural-key fields.
type Dependency struct {
	Name  string
	Check func(ctx context.Context, token string) peer.Result
}

// Store gives the saga keyed access to the local resource store, already
// bound to the request's natural key.
type Store interface {
	// Find returns the surrogate ref of the entity with the bound natural
	// key, if any.
	Find(ctx context.Context) (ref string, found bool, err error)
	// Insert persists a new entity under the bound natural key and returns
	// its surrogate ref. Returns ErrConflict when the key is already taken.
	Insert(ctx context.Context) (ref string, err error)
	// Remove deletes the entity with the given surrogate ref.
	Remove(ctx context.Context, ref string) error
}

// Saga is one use-case instantiation of the pipeline.
type Saga struct {
	Gate    Gate
	Action  auth.Action
	Subject string // human description of the target, woven into messages
	Deps    []Dependency
	Store   Store
}

// Create runs authorize, dependency checks, the uniqueness check, and the
// insert. Repeating an identical create deterministically yields a conflict.
func (s Saga) Create(ctx context.Context, token string) Outcome {
	if out, stop := s.Gatekeep(ctx, token); stop {
		return out
	}
	_, found, err := s.Store.Find(ctx)
	if err != nil {
		return unexpected(err)
	}
	if found {
		return Outcome{Kind: KindConflict, Message: fmt.Sprintf("%s already exists", s.Subject)}
	}
	ref, err := s.Store.Insert(ctx)
	if errors.Is(err, ErrConflict) {
		// A concurrent create won the race to the unique constraint.
		return Outcome{Kind: KindConflict, Message: fmt.Sprintf("%s already exists", s.Subject)}
	}
	if err != nil {
		return unexpected(err)
	}
	return Outcome{Kind: KindCreated, Message: fmt.Sprintf("%s created", s.Subject), Ref: ref}
}

// Delete runs authorize, dependency checks, and removes the entity. A
// missing entity is the terminal not-found outcome, not a conflict.
func (s Saga) Delete(ctx context.Context, token string) Outcome {
	if out, stop := s.Gatekeep(ctx, token); stop {
		return out
	}
	ref, found, err := s.Store.Find(ctx)
	if err != nil {
		return unexpected(err)
	}
	if !found {
		return Outcome{Kind: KindNotFound, Message: fmt.Sprintf("%s does not exist", s.Subject)}
	}
	if err := s.Store.Remove(ctx, ref); err != nil {
		return unexpected(err)
	}
	return Outcome{Kind: KindDeleted, Message: fmt.Sprintf("%s deleted", s.Subject), Ref: ref}
}

// Exists runs authorize and dependency checks, then reports whether the
// entity is present. Both answers are success-shaped: "not found" is a
// legitimate reply to an existence query, distinct from a missing
// dependency.
func (s Saga) Exists(ctx context.Context, token string) Outcome {
	if out, stop := s.Gatekeep(ctx, token); stop {
		return out
	}
	ref, found, err := s.Store.Find(ctx)
	if err != nil {
		return unexpected(err)
	}
	if !found {
		return Outcome{Kind: KindNotFound, Message: fmt.Sprintf("%s does not exist", s.Subject)}
	}
	return Outcome{Kind: KindFound, Message: fmt.Sprintf("%s exists", s.Subject), Ref: ref}
}

// Gatekeep runs the authorization verdict and the ordered dependency chain.
// Authorization always precedes dependency checks: a caller lacking
// permission hears forbidden even when a dependency is also missing.
func (s Saga) Gatekeep(ctx context.Context, token string) (Outcome, bool) {
	verdict, err := s.Gate.Authorize(ctx, token, s.Action)
	if err != nil {
		return Outcome{
			Kind:       KindDependencyUnavailable,
			Dependency: "authorization",
			Message:    fmt.Sprintf("authorization could not be confirmed: %v", err),
		}, true
	}
	switch verdict {
	case auth.VerdictGranted:
	case auth.VerdictForbidden:
		return Outcome{Kind: KindForbidden, Message: fmt.Sprintf("role is not allowed to %s", s.Action)}, true
	case auth.VerdictActionUnknown:
		return Outcome{Kind: KindActionUnknown, Message: fmt.Sprintf("unknown action %s", s.Action)}, true
	case auth.VerdictCredentialExpired:
		return Outcome{Kind: KindCredentialExpired, Message: "credential expired, log in again"}, true
	default:
		return Outcome{Kind: KindCredentialInvalid, Message: "invalid credential"}, true
	}

	for _, dep := range s.Deps {
		res := dep.Check(ctx, token)
		switch res.Status {
		case peer.StatusFound:
		case peer.StatusNotFound:
			return Outcome{
				Kind:       KindDependencyMissing,
				Dependency: dep.Name,
				Message:    fmt.Sprintf("required %s does not exist", dep.Name),
			}, true
		default:
			return Outcome{
				Kind:       KindDependencyUnavailable,
				Dependency: dep.Name,
				Message:    fmt.Sprintf("%s check could not be confirmed: %v", dep.Name, res.Err),
			}, true
		}
	}
	return Outcome{}, false
}

func unexpected(err error) Outcome {
	return Outcome{Kind: KindUnexpected, Message: fmt.Sprintf("unexpected failure: %v", err)}
}
