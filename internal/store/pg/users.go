package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"gridpoint.org/internal/auth"
	"gridpoint.org/internal/identity"
	"gridpoint.org/internal/saga"
)

// UserStore persists users with a unique email constraint.
type UserStore struct {
	db *sql.DB
}

var _ identity.Store = (*UserStore)(nil)

// NewUserStore builds the user store.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Insert(ctx context.Context, user identity.User) error {
	_, err := s.db.ExecContext(ctx, `
		insert into users(id, name, email, role, password_hash, secret_hash, created_at, updated_at)
		values($1, $2, $3, $4, $5, $6, $7, $8)
	`, user.ID, user.Name, user.Email, string(user.Role), user.PasswordHash, user.SecretHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return saga.ErrConflict
		}
		return err
	}
	return nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (identity.User, bool, error) {
	return s.findOne(ctx, `where email=$1`, email)
}

func (s *UserStore) FindByID(ctx context.Context, id string) (identity.User, bool, error) {
	return s.findOne(ctx, `where id=$1`, id)
}

func (s *UserStore) Update(ctx context.Context, user identity.User) error {
	_, err := s.db.ExecContext(ctx, `
		update users
		set name=$2, email=$3, password_hash=$4, updated_at=$5
		where id=$1
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return saga.ErrConflict
		}
	}
	return err
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	return err
}

func (s *UserStore) findOne(ctx context.Context, where string, arg any) (identity.User, bool, error) {
	var (
		user identity.User
		role string
	)
	err := s.db.QueryRowContext(ctx, `
		select id, name, email, role, password_hash, secret_hash, created_at, updated_at
		from users `+where,
		arg,
	).Scan(&user.ID, &user.Name, &user.Email, &role, &user.PasswordHash, &user.SecretHash, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.User{}, false, nil
	}
	if err != nil {
		return identity.User{}, false, err
	}
	parsed, ok := auth.ParseRole(role)
	if !ok {
		return identity.User{}, false, errors.New("stored user has unknown role " + role)
	}
	user.Role = parsed
	return user, true, nil
}
