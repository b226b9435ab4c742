// Package testutil sets up migrated in-memory databases, validators and fixtures for tests.
package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/college/core"
	"github.com/trezcool/college/core/fee"
	"github.com/trezcool/college/core/user"
	"github.com/trezcool/college/storage/database"
)

// OpenDB opens a migrated in-memory SQLite database, closed when the test ends.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conf := core.NewTestConfig()
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db, conf.Database.Engine); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	return db
}

// NewValidator returns a validator with every custom validation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	fee.InitValidators(validate, translator)
	return validate, translator
}

// CreateUser inserts a user straight through the repository, bypassing validation.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:              uuid.NewString(),
		FullName:        name,
		Username:        uname,
		Email:           email,
		Role:            role,
		IsActive:        isActive,
		DateOfAdmission: tstamp,
		CreatedAt:       tstamp,
		UpdatedAt:       tstamp,
	}
	if role == user.RoleStudent {
		usr.RegNo = uname
		usr.PhotoURL = user.PlaceholderPhotoURL
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateStudent inserts a student with the given fee totals.
func CreateStudent(t *testing.T, repo user.Repository, name, uname string, totalFees, feesPaid float64) user.User {
	t.Helper()

	usr := CreateUser(t, repo, name, uname, uname+"@test.edu", "", user.RoleStudent, true)
	usr, err := repo.UpdateUser(context.Background(), usr.ID, func(u *user.User) error {
		u.TotalFees = totalFees
		u.FeesPaid = feesPaid
		return nil
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return usr
}
