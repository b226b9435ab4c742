package user

import (
	"sync"
	"time"

	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/college/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
	RoleFaculty = "faculty"
)

// PlaceholderPhotoURL is used for students created without a photo.
const PlaceholderPhotoURL = "https://i.ibb.co/6P0qXy2/dummy-profile.png"

var (
	AllRoles = []string{RoleAdmin, RoleFaculty, RoleStudent}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Faculty", Value: RoleFaculty},
		{Name: "Admin", Value: RoleAdmin},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID              string      `db:"id" json:"id"`
	Username        string      `db:"username" json:"username"`
	PasswordHash    string      `db:"password_hash" json:"-"`
	Role            string      `db:"role" json:"role"`
	FullName        string      `db:"full_name" json:"fullName"`
	Email           string      `db:"email" json:"email"`
	MobileNumber    string      `db:"mobile_number" json:"mobileNumber"`
	GuardianName    string      `db:"guardian_name" json:"guardianName"`
	GuardianMobile  string      `db:"guardian_mobile" json:"guardianMobile"`
	Address         string      `db:"address" json:"address"`
	City            string      `db:"city" json:"city"`
	State           string      `db:"state" json:"state"`
	Pincode         string      `db:"pincode" json:"pincode"`
	DateOfBirth     null.Time   `db:"date_of_birth" json:"dateOfBirth"`
	RegNo           string      `db:"reg_no" json:"regNo"`
	Course          string      `db:"course" json:"course"`
	Semester        null.String `db:"semester" json:"semester"`
	DateOfAdmission time.Time   `db:"date_of_admission" json:"dateOfAdmission"`
	TotalFees       float64     `db:"total_fees" json:"totalFees"`
	FeesPaid        float64     `db:"fees_paid" json:"feesPaid"`
	LibraryFine     float64     `db:"library_fine" json:"libraryFine"`
	PhotoURL        string      `db:"photo_url" json:"photoUrl"`
	IsActive        bool        `db:"is_active" json:"isActive"`
	CreatedAt       time.Time   `db:"created_at" json:"createdAt"` // UTC
	UpdatedAt       time.Time   `db:"updated_at" json:"updatedAt"` // UTC
	LastLogin       null.Time   `db:"last_login" json:"lastLogin"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := hashPassword(pwd)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

var compareHashAndPassword = bcrypt.CompareHashAndPassword

// dummyPasswordHash stands in for the hash of an unknown username.
var dummyPasswordHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	return hash
})

func (u *User) CheckPassword(pwd string) error {
	return compareHashAndPassword([]byte(u.PasswordHash), []byte(pwd))
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }
func (u *User) IsFaculty() bool { return u.Role == RoleFaculty }

// Balance is what the student still owes; negative when overpaid.
func (u *User) Balance() float64 { return u.TotalFees - u.FeesPaid }

func hashPassword(pwd string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// NewStudent contains information needed to create a new student.
type NewStudent struct {
	FullName        string     `json:"fullName" form:"fullName" validate:"required,notblank,max=255"`
	Username        string     `json:"username" form:"username" validate:"required,max=150,alphanum_"`
	Email           string     `json:"email" form:"email" validate:"required,email"`
	Password        string     `json:"password" form:"password" validate:"required"`
	MobileNumber    string     `json:"mobileNumber" form:"mobileNumber" validate:"max=30"`
	GuardianName    string     `json:"guardianName" form:"guardianName" validate:"max=255"`
	GuardianMobile  string     `json:"guardianMobile" form:"guardianMobile" validate:"max=30"`
	Address         string     `json:"address" form:"address"`
	City            string     `json:"city" form:"city" validate:"max=100"`
	State           string     `json:"state" form:"state" validate:"max=100"`
	Pincode         string     `json:"pincode" form:"pincode" validate:"max=20"`
	DateOfBirth     *time.Time `json:"dateOfBirth" form:"dateOfBirth"`
	Course          string     `json:"course" form:"course" validate:"max=255"`
	Semester        string     `json:"semester" form:"semester" validate:"max=50"`
	DateOfAdmission time.Time  `json:"dateOfAdmission" form:"dateOfAdmission" validate:"required"`
	TotalFees       float64    `json:"totalFees" form:"totalFees" validate:"finite,gte=0"`
	FeesPaid        float64    `json:"feesPaid" form:"feesPaid" validate:"finite,gte=0"`
	PhotoURL        string     `json:"photoUrl" form:"-"`
}

func (ns *NewStudent) clean() {
	ns.FullName = core.CleanString(ns.FullName)
	ns.Username = core.CleanString(ns.Username, true /* lower */)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.MobileNumber = core.CleanString(ns.MobileNumber)
	ns.GuardianName = core.CleanString(ns.GuardianName)
	ns.GuardianMobile = core.CleanString(ns.GuardianMobile)
	ns.Address = core.CleanString(ns.Address)
	ns.City = core.CleanString(ns.City)
	ns.State = core.CleanString(ns.State)
	ns.Pincode = core.CleanString(ns.Pincode)
	ns.Course = core.CleanString(ns.Course)
	ns.Semester = core.CleanString(ns.Semester)
}

// UpdateStudent defines what information may be provided to modify an existing student.
// A nil field is left untouched.
type UpdateStudent struct {
	FullName        *string    `json:"fullName" form:"fullName" validate:"omitempty,notblank,max=255"`
	Email           *string    `json:"email" form:"email" validate:"omitempty,email"`
	Password        *string    `json:"password" form:"password" validate:"omitempty,min=1"`
	MobileNumber    *string    `json:"mobileNumber" form:"mobileNumber" validate:"omitempty,max=30"`
	GuardianName    *string    `json:"guardianName" form:"guardianName" validate:"omitempty,max=255"`
	GuardianMobile  *string    `json:"guardianMobile" form:"guardianMobile" validate:"omitempty,max=30"`
	Address         *string    `json:"address" form:"address"`
	City            *string    `json:"city" form:"city" validate:"omitempty,max=100"`
	State           *string    `json:"state" form:"state" validate:"omitempty,max=100"`
	Pincode         *string    `json:"pincode" form:"pincode" validate:"omitempty,max=20"`
	DateOfBirth     *time.Time `json:"dateOfBirth" form:"dateOfBirth"`
	Course          *string    `json:"course" form:"course" validate:"omitempty,max=255"`
	Semester        *string    `json:"semester" form:"semester" validate:"omitempty,max=50"`
	DateOfAdmission *time.Time `json:"dateOfAdmission" form:"dateOfAdmission"`
	TotalFees       *float64   `json:"totalFees" form:"totalFees" validate:"omitempty,finite,gte=0"`
	FeesPaid        *float64   `json:"feesPaid" form:"feesPaid" validate:"omitempty,finite,gte=0"`
	LibraryFine     *float64   `json:"libraryFine" form:"libraryFine" validate:"omitempty,finite,gte=0"`
	PhotoURL        *string    `json:"photoUrl" form:"-"`
	IsActive        *bool      `json:"isActive" form:"isActive"`
}

func cleanPtr(s *string, lower ...bool) {
	if s != nil {
		*s = core.CleanString(*s, lower...)
	}
}

func (us *UpdateStudent) clean() {
	cleanPtr(us.FullName)
	cleanPtr(us.Email, true /* lower */)
	cleanPtr(us.MobileNumber)
	cleanPtr(us.GuardianName)
	cleanPtr(us.GuardianMobile)
	cleanPtr(us.Address)
	cleanPtr(us.City)
	cleanPtr(us.State)
	cleanPtr(us.Pincode)
	cleanPtr(us.Course)
	cleanPtr(us.Semester)
}

// apply copies every provided field onto usr. The password is handled by the service.
func (us *UpdateStudent) apply(usr *User) {
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}

	setStr(&usr.FullName, us.FullName)
	setStr(&usr.Email, us.Email)
	setStr(&usr.MobileNumber, us.MobileNumber)
	setStr(&usr.GuardianName, us.GuardianName)
	setStr(&usr.GuardianMobile, us.GuardianMobile)
	setStr(&usr.Address, us.Address)
	setStr(&usr.City, us.City)
	setStr(&usr.State, us.State)
	setStr(&usr.Pincode, us.Pincode)
	setStr(&usr.Course, us.Course)
	setStr(&usr.PhotoURL, us.PhotoURL)
	setFloat(&usr.TotalFees, us.TotalFees)
	setFloat(&usr.FeesPaid, us.FeesPaid)
	setFloat(&usr.LibraryFine, us.LibraryFine)

	if us.Semester != nil {
		usr.Semester = null.NewString(*us.Semester, *us.Semester != "")
	}
	if us.DateOfBirth != nil {
		usr.DateOfBirth = null.NewTime(us.DateOfBirth.UTC(), !us.DateOfBirth.IsZero())
	}
	if us.DateOfAdmission != nil && !us.DateOfAdmission.IsZero() {
		usr.DateOfAdmission = us.DateOfAdmission.UTC()
	}
	if us.IsActive != nil {
		usr.IsActive = *us.IsActive
	}
}

// NewUser contains information needed to create any account (admin CLI).
type NewUser struct {
	FullName string `json:"fullName" validate:"required,notblank"`
	Username string `json:"username" validate:"required,max=150,alphanum_"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,allroles"`
}

func (nu *NewUser) clean() {
	nu.FullName = core.CleanString(nu.FullName)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
}

// passwordCheck runs the password policy against the attributes of an existing user.
type passwordCheck struct {
	Password string `json:"password" validate:"required"`
	FullName string `json:"-"`
	Username string `json:"-"`
	Email    string `json:"-"`
}

// QueryFilter narrows EachUser. Search does a case-insensitive substring match
// on User.FullName or User.Username.
type QueryFilter struct {
	Role   string `query:"role"`
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}
