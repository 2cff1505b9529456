// Package identity owns user records, credential issuance, and the central
// has-permission decision the other services call. User mutations run the
// same validation saga as record mutations; login and has-permission are
// the only public operations.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gridpoint.org/internal/auth"
	"gridpoint.org/internal/ids"
	"gridpoint.org/internal/saga"
)

// ErrBadCredentials covers both unknown email and wrong password so login
// failures do not leak which half was wrong.
var ErrBadCredentials = errors.New("identity: bad credentials")

// User is the only entity with update-in-place: name, email, and password
// rotate under secret-phrase re-authentication.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         auth.Role `json:"role"`
	PasswordHash string    `json:"-"`
	SecretHash   string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Registration is the validated input for creating a user.
type Registration struct {
	Name         string
	Email        string
	Role         auth.Role
	Password     string
	SecretPhrase string
}

// Update rotates user fields. Nil means keep. SecretPhrase is the re-auth
// proof, not a new value.
type Update struct {
	Name         *string
	Email        *string
	Password     *string
	SecretPhrase string
}

// Service executes identity use cases over a user store.
type Service struct {
	store Store
	gate  saga.Gate
}

// NewService wires the identity service. The gate is local here; other
// services reach the same table remotely.
func NewService(store Store, gate saga.Gate) (*Service, error) {
	if store == nil {
		return nil, errors.New("identity store is required")
	}
	if gate == nil {
		gate = auth.LocalGate{}
	}
	return &Service{store: store, gate: gate}, nil
}

// Login verifies email and password and issues a fresh credential.
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return "", time.Time{}, ErrBadCredentials
	}
	user, found, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return "", time.Time{}, err
	}
	if !found {
		return "", time.Time{}, ErrBadCredentials
	}
	if err := auth.VerifySecret(user.PasswordHash, password); err != nil {
		return "", time.Time{}, ErrBadCredentials
	}
	return auth.Issue(user.ID, user.Role)
}

// HasPermission evaluates the gate for a peer's token and action.
func (s *Service) HasPermission(bearerToken string, action auth.Action) auth.Verdict {
	return auth.Authorize(bearerToken, action)
}

// Register creates a user through the create saga, keyed by email.
func (s *Service) Register(ctx context.Context, token string, reg Registration) saga.Outcome {
	reg.Email = normalizeEmail(reg.Email)
	passwordHash, err := auth.HashSecret(reg.Password)
	if err != nil {
		return saga.Outcome{Kind: saga.KindUnexpected, Message: fmt.Sprintf("unexpected failure: %v", err)}
	}
	secretHash, err := auth.HashSecret(reg.SecretPhrase)
	if err != nil {
		return saga.Outcome{Kind: saga.KindUnexpected, Message: fmt.Sprintf("unexpected failure: %v", err)}
	}
	user := User{
		Name:         strings.TrimSpace(reg.Name),
		Email:        reg.Email,
		Role:         reg.Role,
		PasswordHash: passwordHash,
		SecretHash:   secretHash,
	}
	run := saga.Saga{
		Gate:    s.gate,
		Action:  auth.ActionCreateUser,
		Subject: fmt.Sprintf("user with email %q", reg.Email),
		Store:   userAdapter{store: s.store, email: reg.Email, user: user},
	}
	return run.Create(ctx, token)
}

// Exists answers the existence saga for a user email.
func (s *Service) Exists(ctx context.Context, token, email string) saga.Outcome {
	email = normalizeEmail(email)
	run := saga.Saga{
		Gate:    s.gate,
		Action:  auth.ActionExistUser,
		Subject: fmt.Sprintf("user with email %q", email),
		Store:   userAdapter{store: s.store, email: email},
	}
	return run.Exists(ctx, token)
}

// Delete removes a user through the delete saga, keyed by email.
func (s *Service) Delete(ctx context.Context, token, email string) saga.Outcome {
	email = normalizeEmail(email)
	run := saga.Saga{
		Gate:    s.gate,
		Action:  auth.ActionDeleteUser,
		Subject: fmt.Sprintf("user with email %q", email),
		Store:   userAdapter{store: s.store, email: email},
	}
	return run.Delete(ctx, token)
}

// Get fetches a user by surrogate id under the readUser action.
func (s *Service) Get(ctx context.Context, token, id string) (User, saga.Outcome) {
	if out, stop := s.authorize(ctx, token, auth.ActionReadUser); stop {
		return User{}, out
	}
	user, found, err := s.store.FindByID(ctx, id)
	if err != nil {
		return User{}, saga.Outcome{Kind: saga.KindUnexpected, Message: fmt.Sprintf("unexpected failure: %v", err)}
	}
	if !found {
		return User{}, saga.Outcome{Kind: saga.KindNotFound, Message: fmt.Sprintf("user %q does not exist", id)}
	}
	return user, saga.Outcome{Kind: saga.KindFound, Message: fmt.Sprintf("user %q exists", id), Ref: user.ID}
}

// Apply rotates user fields. The caller proves possession of the account's
// secret phrase; a valid bearer credential alone is not enough, since a
// stolen credential stays valid for its whole window.
func (s *Service) Apply(ctx context.Context, token, id string, upd Update) (User, saga.Outcome) {
	if out, stop := s.authorize(ctx, token, auth.ActionUpdateUser); stop {
		return User{}, out
	}
	user, found, err := s.store.FindByID(ctx, id)
	if err != nil {
		return User{}, saga.Outcome{Kind: saga.KindUnexpected, Message: fmt.Sprintf("unexpected failure: %v", err)}
	}
	if !found {
		return User{}, saga.Outcome{Kind: saga.KindNotFound, Message: fmt.Sprintf("user %q does not exist", id)}
	}
	if err := auth.VerifySecret(user.SecretHash, upd.SecretPhrase); err != nil {
		return User{}, saga.Outcome{Kind: saga.KindForbidden, Message: "secret phrase does not match"}
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return User{}, saga.Outcome{Kind: saga.KindUnexpected, Message: "unexpected failure: user name is required"}
		}
		user.Name = name
	}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		if email == "" {
			return User{}, saga.Outcome{Kind: saga.KindUnexpected, Message: "unexpected failure: valid email is required"}
		}
		if email != user.Email {
			other, taken, err := s.store.FindByEmail(ctx, email)
			if err != nil {
				return User{}, saga.Outcome{Kind: saga.KindUnexpected, Message: fmt.Sprintf("unexpected failure: %v", err)}
			}
			if taken && other.ID != user.ID {
				return User{}, saga.Outcome{Kind: saga.KindConflict, Message: fmt.Sprintf("user with email %q already exists", email)}
			}
			user.Email = email
		}
	}
	if upd.Password != nil {
		hash, err := auth.HashSecret(*upd.Password)
		if err != nil {
			return User{}, saga.Outcome{Kind: saga.KindUnexpected, Message: fmt.Sprintf("unexpected failure: %v", err)}
		}
		user.PasswordHash = hash
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, user); err != nil {
		return User{}, saga.Outcome{Kind: saga.KindUnexpected, Message: fmt.Sprintf("unexpected failure: %v", err)}
	}
	return user, saga.Outcome{Kind: saga.KindFound, Message: fmt.Sprintf("user %q updated", user.ID), Ref: user.ID}
}

func (s *Service) authorize(ctx context.Context, token string, action auth.Action) (saga.Outcome, bool) {
	run := saga.Saga{Gate: s.gate, Action: action}
	return run.Gatekeep(ctx, token)
}

func normalizeEmail(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	if !strings.Contains(email, "@") {
		return ""
	}
	return email
}

// userAdapter binds the user store and one request's email key to the
// saga's store contract.
type userAdapter struct {
	store Store
	email string
	user  User
}

func (a userAdapter) Find(ctx context.Context) (string, bool, error) {
	user, found, err := a.store.FindByEmail(ctx, a.email)
	if err != nil || !found {
		return "", false, err
	}
	return user.ID, true, nil
}

func (a userAdapter) Insert(ctx context.Context) (string, error) {
	user := a.user
	user.ID = ids.New()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if err := a.store.Insert(ctx, user); err != nil {
		return "", err
	}
	return user.ID, nil
}

func (a userAdapter) Remove(ctx context.Context, ref string) error {
	return a.store.Delete(ctx, ref)
}
