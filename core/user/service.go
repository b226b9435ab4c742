package user

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/college/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrUsernameExists     = errors.New("a user with this username already exists")
	ErrAuthFailure        = errors.New("invalid username or password")
	ErrAccountDeactivated = errors.New("this account is deactivated")

	errStopIteration = errors.New("stop iteration")
)

// IsDuplicate reports whether err is a username or email uniqueness violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrUsernameExists) || errors.Is(err, ErrEmailExists)
}

type (
	Repository interface {
		// CreateUser checks username & email uniqueness and inserts usr in one unit;
		// it returns ErrUsernameExists or ErrEmailExists on conflict.
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsername(ctx context.Context, username string) (User, error)
		// UpdateUser loads the user, lets apply modify it and saves it back in one unit.
		// Email uniqueness is checked against every other user.
		UpdateUser(ctx context.Context, id string, apply func(usr *User) error) (User, error)
		SetLastLogin(ctx context.Context, id string, at time.Time) error
		CountUsers(ctx context.Context, role string) (int, error)
		// EachUser calls fn for every user matching filter, in insertion order,
		// stopping at the first error fn returns.
		EachUser(ctx context.Context, filter QueryFilter, fn func(User) error) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		admin    core.AdminConfig
	}
)

func NewService(repo Repository, validate *validator.Validate, conf *core.Config) *Service {
	return &Service{repo: repo, validate: validate, admin: conf.Admin}
}

// uniquenessError turns a duplicate error into a validation error on the matching field.
func uniquenessError(err error) error {
	switch {
	case errors.Is(err, ErrUsernameExists):
		return core.NewValidationError(ErrUsernameExists, core.FieldError{Field: "username", Error: ErrUsernameExists.Error()})
	case errors.Is(err, ErrEmailExists):
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	return err
}

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (User, error) {
	ns.clean()
	if err := svc.validate.Struct(ns); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		ID:              uuid.NewString(),
		Username:        ns.Username,
		Role:            RoleStudent,
		FullName:        ns.FullName,
		Email:           ns.Email,
		MobileNumber:    ns.MobileNumber,
		GuardianName:    ns.GuardianName,
		GuardianMobile:  ns.GuardianMobile,
		Address:         ns.Address,
		City:            ns.City,
		State:           ns.State,
		Pincode:         ns.Pincode,
		RegNo:           ns.Username,
		Course:          ns.Course,
		Semester:        null.NewString(ns.Semester, ns.Semester != ""),
		DateOfAdmission: ns.DateOfAdmission.UTC(),
		TotalFees:       ns.TotalFees,
		FeesPaid:        ns.FeesPaid,
		PhotoURL:        ns.PhotoURL,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if ns.DateOfBirth != nil && !ns.DateOfBirth.IsZero() {
		usr.DateOfBirth = null.TimeFrom(ns.DateOfBirth.UTC())
	}
	if usr.PhotoURL == "" {
		usr.PhotoURL = PlaceholderPhotoURL
	}
	if err := usr.SetPassword(ns.Password); err != nil {
		return User{}, err
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, uniquenessError(err)
	}
	return usr, nil
}

// UpdateStudent applies the provided fields of us to the student with that id.
func (svc *Service) UpdateStudent(ctx context.Context, id string, us UpdateStudent) (User, error) {
	us.clean()
	if err := svc.validate.Struct(us); err != nil {
		return User{}, err
	}

	orig, err := svc.GetStudent(ctx, id)
	if err != nil {
		return User{}, err
	}

	var pwdHash string
	if us.Password != nil {
		check := passwordCheck{Password: *us.Password, FullName: orig.FullName, Username: orig.Username, Email: orig.Email}
		if us.FullName != nil {
			check.FullName = *us.FullName
		}
		if us.Email != nil {
			check.Email = *us.Email
		}
		if err := svc.validate.Struct(check); err != nil {
			return User{}, err
		}
		if pwdHash, err = hashPassword(*us.Password); err != nil {
			return User{}, err
		}
	}

	usr, err := svc.repo.UpdateUser(ctx, id, func(usr *User) error {
		if !usr.IsStudent() {
			return ErrNotFound
		}
		us.apply(usr)
		if pwdHash != "" {
			usr.PasswordHash = pwdHash
		}
		usr.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return User{}, uniquenessError(err)
	}
	return usr, nil
}

// SearchStudents returns a lazy sequence of the students whose full name or username contains query
// (case-insensitive), or of every student when query is blank, in insertion order.
// Every range runs a new store query. The store must not be used from inside the loop
// with single-connection engines (in-memory SQLite).
func (svc *Service) SearchStudents(ctx context.Context, query string) iter.Seq2[User, error] {
	filter := QueryFilter{Role: RoleStudent, Search: query}
	filter.Clean()

	return func(yield func(User, error) bool) {
		err := svc.repo.EachUser(ctx, filter, func(usr User) error {
			if !yield(usr, nil) {
				return errStopIteration
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopIteration) {
			yield(User{}, err)
		}
	}
}

// GetStudent returns ErrNotFound when id does not resolve to a student.
func (svc *Service) GetStudent(ctx context.Context, id string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !usr.IsStudent() {
		return User{}, ErrNotFound
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
}

// CountUsers counts the users with that role, or every user when role is empty.
func (svc *Service) CountUsers(ctx context.Context, role string) (int, error) {
	return svc.repo.CountUsers(ctx, role)
}

func (svc *Service) EachUser(ctx context.Context, filter QueryFilter, fn func(User) error) error {
	filter.Clean()
	return svc.repo.EachUser(ctx, filter, fn)
}

// Authenticate checks the credentials and stamps the last login on success.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsername(ctx, uname)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = compareHashAndPassword(dummyPasswordHash(), []byte(pwd))
			return User{}, ErrAuthFailure
		}
		return User{}, err
	}
	if err := usr.CheckPassword(pwd); err != nil {
		return User{}, ErrAuthFailure
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	now := time.Now().UTC()
	if err := svc.repo.SetLastLogin(ctx, usr.ID, now); err != nil {
		return User{}, err
	}
	usr.LastLogin = null.TimeFrom(now)
	return usr, nil
}

// AddUser creates an account with any role.
func (svc *Service) AddUser(ctx context.Context, nu NewUser) (User, error) {
	nu.clean()
	if err := svc.validate.Struct(nu); err != nil {
		return User{}, err
	}
	return svc.addUser(ctx, nu)
}

func (svc *Service) addUser(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		ID:              uuid.NewString(),
		Username:        nu.Username,
		Role:            nu.Role,
		FullName:        nu.FullName,
		Email:           nu.Email,
		DateOfAdmission: now,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if usr.IsStudent() {
		usr.RegNo = usr.Username
		usr.PhotoURL = PlaceholderPhotoURL
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, uniquenessError(err)
	}
	return usr, nil
}

// SetupAdmin creates the bootstrap admin from config unless an admin already exists.
// The bootstrap password skips the password policy.
func (svc *Service) SetupAdmin(ctx context.Context) (User, bool, error) {
	count, err := svc.repo.CountUsers(ctx, RoleAdmin)
	if err != nil {
		return User{}, false, err
	}
	if count > 0 {
		return User{}, false, nil
	}

	usr, err := svc.addUser(ctx, NewUser{
		FullName: svc.admin.Name,
		Username: core.CleanString(svc.admin.Username, true /* lower */),
		Email:    core.CleanString(svc.admin.Email, true /* lower */),
		Password: svc.admin.Password,
		Role:     RoleAdmin,
	})
	if err != nil {
		if !IsDuplicate(err) {
			return User{}, false, err
		}
		// either created concurrently or the username/email belongs to a non-admin
		if count, cerr := svc.repo.CountUsers(ctx, RoleAdmin); cerr == nil && count > 0 {
			return User{}, false, nil
		}
		return User{}, false, err
	}
	return usr, true, nil
}

// ResetPassword sets a new password, subject to the password policy.
func (svc *Service) ResetPassword(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsername(ctx, uname)
	if err != nil {
		return User{}, err
	}
	check := passwordCheck{Password: pwd, FullName: usr.FullName, Username: usr.Username, Email: usr.Email}
	if err := svc.validate.Struct(check); err != nil {
		return User{}, err
	}
	hash, err := hashPassword(pwd)
	if err != nil {
		return User{}, err
	}
	return svc.repo.UpdateUser(ctx, usr.ID, func(u *User) error {
		u.PasswordHash = hash
		u.UpdatedAt = time.Now().UTC()
		return nil
	})
}
