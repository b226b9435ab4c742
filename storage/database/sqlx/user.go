package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"modernc.org/sqlite"

	"github.com/trezcool/college/core"
	"github.com/trezcool/college/core/user"
)

const userColumns = `id, username, password_hash, role, full_name, email, mobile_number, guardian_name,
	guardian_mobile, address, city, state, pincode, date_of_birth, reg_no, course, semester,
	date_of_admission, total_fees, fees_paid, library_fine, photo_url, is_active,
	created_at, updated_at, last_login`

var userUniques = map[string]error{
	"username": user.ErrUsernameExists,
	"email":    user.ErrEmailExists,
}

// sqliteLower folds case like strings.ToLower; SQLite's LOWER() only folds ASCII.
const sqliteLower = "go_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(sqliteLower, 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return strings.ToLower(v), nil
		case []byte:
			return strings.ToLower(string(v)), nil
		}
		return args[0], nil
	})
}

func lowerFunc(ext sqlx.ExtContext) string {
	if ext.DriverName() == "sqlite" {
		return sqliteLower
	}
	return "LOWER"
}

type userRepository struct {
	db core.DB
}

func NewUserRepository(db core.DB) user.Repository {
	return &userRepository{db: db}
}

// checkUniqueness looks for another user holding the username or email of usr.
func checkUniqueness(ctx context.Context, ext sqlx.ExtContext, usr user.User) error {
	var taken []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	q := ext.Rebind(`SELECT username, email FROM users WHERE (username = ? OR email = ?) AND id <> ?`)
	if err := sqlx.SelectContext(ctx, ext, &taken, q, usr.Username, usr.Email, usr.ID); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, t := range taken {
		if t.Username == usr.Username {
			return user.ErrUsernameExists
		}
	}
	if len(taken) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func getUser(ctx context.Context, ext sqlx.ExtContext, where string, args ...interface{}) (user.User, error) {
	var usr user.User
	q := ext.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + where)
	if err := sqlx.GetContext(ctx, ext, &usr, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return usr, nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := checkUniqueness(ctx, tx, usr); err != nil {
			return err
		}
		q := `INSERT INTO users (` + userColumns + `) VALUES (
			:id, :username, :password_hash, :role, :full_name, :email, :mobile_number, :guardian_name,
			:guardian_mobile, :address, :city, :state, :pincode, :date_of_birth, :reg_no, :course, :semester,
			:date_of_admission, :total_fees, :fees_paid, :library_fine, :photo_url, :is_active,
			:created_at, :updated_at, :last_login)`
		if _, err := sqlx.NamedExecContext(ctx, tx, q, usr); err != nil {
			return mapUnique(err, "inserting user", userUniques)
		}
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return getUser(ctx, repo.db, "id = ?", id)
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return getUser(ctx, repo.db, "username = ?", username)
}

func (repo *userRepository) UpdateUser(ctx context.Context, id string, apply func(usr *user.User) error) (user.User, error) {
	var usr user.User
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var err error
		if usr, err = getUser(ctx, tx, "id = ?"+forUpdate(tx), id); err != nil {
			return err
		}
		if err = apply(&usr); err != nil {
			return err
		}
		usr.ID = id
		if err = checkUniqueness(ctx, tx, usr); err != nil {
			return err
		}

		q := `UPDATE users SET
			username = :username, password_hash = :password_hash, role = :role, full_name = :full_name,
			email = :email, mobile_number = :mobile_number, guardian_name = :guardian_name,
			guardian_mobile = :guardian_mobile, address = :address, city = :city, state = :state,
			pincode = :pincode, date_of_birth = :date_of_birth, reg_no = :reg_no, course = :course,
			semester = :semester, date_of_admission = :date_of_admission, total_fees = :total_fees,
			fees_paid = :fees_paid, library_fine = :library_fine, photo_url = :photo_url,
			is_active = :is_active, updated_at = :updated_at
			WHERE id = :id`
		if _, err = sqlx.NamedExecContext(ctx, tx, q, usr); err != nil {
			return mapUnique(err, "updating user", userUniques)
		}
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	q := repo.db.Rebind(`UPDATE users SET last_login = ? WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q, at, id)
	if err != nil {
		return errors.Wrap(err, "setting last login")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) CountUsers(ctx context.Context, role string) (int, error) {
	var (
		count int
		err   error
	)
	if role == "" {
		err = sqlx.GetContext(ctx, repo.db, &count, `SELECT COUNT(*) FROM users`)
	} else {
		err = sqlx.GetContext(ctx, repo.db, &count, repo.db.Rebind(`SELECT COUNT(*) FROM users WHERE role = ?`), role)
	}
	if err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return count, nil
}

// EachUser streams the matching rows; fn runs while the rows are open.
func (repo *userRepository) EachUser(ctx context.Context, filter user.QueryFilter, fn func(user.User) error) error {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Role != "" {
		conds = append(conds, "role = ?")
		args = append(args, filter.Role)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		lower := lowerFunc(repo.db)
		conds = append(conds, `(`+lower+`(full_name) LIKE ? ESCAPE '\' OR `+lower+`(username) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	q := `SELECT ` + userColumns + ` FROM users`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY created_at, id`

	rows, err := repo.db.QueryxContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var usr user.User
		if err = rows.StructScan(&usr); err != nil {
			return errors.Wrap(err, "scanning user")
		}
		if err = fn(usr); err != nil {
			return err
		}
	}
	return errors.Wrap(rows.Err(), "iterating users")
}
