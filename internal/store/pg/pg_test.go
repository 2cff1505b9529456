package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"gridpoint.org/internal/auth"
	"gridpoint.org/internal/identity"
	"gridpoint.org/internal/records"
	"gridpoint.org/internal/saga"
)

func placeKey(t *testing.T) records.Key {
	t.Helper()
	key, err := records.PlaceDescriptor.NewKey(map[string]string{"name": "Place-1", "contract": "C-1"})
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	return key
}

func TestRecordStoreFind(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := NewRecordStore(db, records.PlaceDescriptor)

	mock.ExpectQuery(`select id from places where name=\$1 and contract=\$2`).
		WithArgs("Place-1", "C-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("01HXZ"))

	id, found, err := store.Find(context.Background(), placeKey(t))
	if err != nil || !found || id != "01HXZ" {
		t.Fatalf("id=%q found=%v err=%v", id, found, err)
	}

	mock.ExpectQuery(`select id from places`).
		WithArgs("Place-1", "C-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, found, err = store.Find(context.Background(), placeKey(t))
	if err != nil || found {
		t.Fatalf("found=%v err=%v", found, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordStoreInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := NewRecordStore(db, records.PlaceDescriptor)

	mock.ExpectExec(`insert into places\(id, name, contract, created_at\)`).
		WithArgs("01HXZ", "Place-1", "C-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Insert(context.Background(), "01HXZ", placeKey(t)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	mock.ExpectExec(`insert into places`).
		WithArgs("01HXY", "Place-1", "C-1").
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})

	if err := store.Insert(context.Background(), "01HXY", placeKey(t)); !errors.Is(err, saga.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordStoreDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := NewRecordStore(db, records.MeasurementPlaceItemDescriptor)

	// Dashed plural names map onto underscored tables.
	mock.ExpectExec(`delete from measurement_place_items where id=\$1`).
		WithArgs("01HXZ").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Delete(context.Background(), "01HXZ"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserStoreRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := NewUserStore(db)
	now := time.Now().UTC()
	user := identity.User{
		ID: "01HXZ", Name: "Dana", Email: "dana@example.org", Role: auth.RoleEngineer,
		PasswordHash: "pw-hash", SecretHash: "sp-hash", CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectExec(`insert into users`).
		WithArgs("01HXZ", "Dana", "dana@example.org", "ENGINEER", "pw-hash", "sp-hash", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.Insert(context.Background(), user); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "name", "email", "role", "password_hash", "secret_hash", "created_at", "updated_at"}).
		AddRow("01HXZ", "Dana", "dana@example.org", "ENGINEER", "pw-hash", "sp-hash", now, now)
	mock.ExpectQuery(`select id, name, email, role, password_hash, secret_hash, created_at, updated_at\s+from users where email=\$1`).
		WithArgs("dana@example.org").
		WillReturnRows(rows)

	got, found, err := store.FindByEmail(context.Background(), "dana@example.org")
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if got.Role != auth.RoleEngineer || got.PasswordHash != "pw-hash" {
		t.Fatalf("user = %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserStoreConflictsAndMisses(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := NewUserStore(db)
	now := time.Now().UTC()
	user := identity.User{ID: "01HXZ", Email: "dana@example.org", Role: auth.RoleEngineer, CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec(`insert into users`).
		WithArgs("01HXZ", "", "dana@example.org", "ENGINEER", "", "", now, now).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})
	if err := store.Insert(context.Background(), user); !errors.Is(err, saga.ErrConflict) {
		t.Fatalf("insert: expected conflict, got %v", err)
	}

	mock.ExpectExec(`update users`).
		WithArgs("01HXZ", "", "dana@example.org", "", now).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})
	if err := store.Update(context.Background(), user); !errors.Is(err, saga.ErrConflict) {
		t.Fatalf("update: expected conflict, got %v", err)
	}

	mock.ExpectQuery(`from users where id=\$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "password_hash", "secret_hash", "created_at", "updated_at"}))
	if _, found, err := store.FindByID(context.Background(), "missing"); err != nil || found {
		t.Fatalf("found=%v err=%v", found, err)
	}

	// A row carrying a role outside the closed set is a defect, not a miss.
	mock.ExpectQuery(`from users where id=\$1`).
		WithArgs("01HXW").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "password_hash", "secret_hash", "created_at", "updated_at"}).
			AddRow("01HXW", "X", "x@example.org", "MANAGER", "h", "h", now, now))
	if _, _, err := store.FindByID(context.Background(), "01HXW"); err == nil {
		t.Fatal("expected error for unknown stored role")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
