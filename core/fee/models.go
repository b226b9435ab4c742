package fee

import (
	"math"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/college/core"
	"github.com/trezcool/college/core/user"
)

type Method string

// Payment methods
const (
	MethodCash         Method = "Cash"
	MethodUPI          Method = "UPI"
	MethodCard         Method = "Card"
	MethodBankTransfer Method = "Bank Transfer"
)

var Methods = []Method{MethodCash, MethodUPI, MethodCard, MethodBankTransfer}

// Payment is a ledger entry. It is never modified once written.
type Payment struct {
	ID        string      `db:"id" json:"id"`
	StudentID string      `db:"student_id" json:"studentId"`
	RegNo     string      `db:"reg_no" json:"regNo"`
	Amount    float64     `db:"amount" json:"amount"`
	Method    Method      `db:"method" json:"method"`
	Semester  null.String `db:"semester" json:"semester"`
	PaidAt    time.Time   `db:"paid_at" json:"paidAt"` // UTC
}

// Record is the fee position of a student, derived from its User row.
type Record struct {
	StudentID string  `json:"studentId"`
	TotalFees float64 `json:"totalFees"`
	FeesPaid  float64 `json:"feesPaid"`
}

func RecordOf(usr user.User) Record {
	return Record{StudentID: usr.ID, TotalFees: usr.TotalFees, FeesPaid: usr.FeesPaid}
}

// Balance is negative when the student overpaid.
func (r Record) Balance() float64 { return r.TotalFees - r.FeesPaid }

// Pending is the balance floored at zero.
func (r Record) Pending() float64 { return math.Max(0, r.Balance()) }

type Receipt struct {
	Payment Payment `json:"payment"`
	Record  Record  `json:"record"`
}

func (r Receipt) Balance() float64 { return r.Record.Balance() }

type NewPayment struct {
	StudentID string  `json:"studentId" form:"studentId" validate:"required"`
	Amount    float64 `json:"amountPaid" form:"amountPaid" validate:"finite,gt=0"`
	Method    Method  `json:"paymentMethod" form:"paymentMethod" validate:"paymethod"`
	Semester  string  `json:"semester" form:"semester" validate:"max=50"`
}

func (np *NewPayment) clean() {
	np.StudentID = core.CleanString(np.StudentID)
	np.Method = Method(core.CleanString(string(np.Method)))
	if np.Method == "" {
		np.Method = MethodCash
	}
	np.Semester = core.CleanString(np.Semester)
}

// Structure is the fee structure of a course.
type Structure struct {
	ID           string    `db:"id" json:"id"`
	Course       string    `db:"course" json:"course"`
	AcademicYear string    `db:"academic_year" json:"academicYear"`
	TotalFee     float64   `db:"total_fee" json:"totalFee"`
	Details      string    `db:"details" json:"details"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"` // UTC
}

type NewStructure struct {
	Course       string  `json:"course" form:"course" validate:"required,notblank,max=255"`
	AcademicYear string  `json:"academicYear" form:"academicYear" validate:"max=20"`
	TotalFee     float64 `json:"totalFee" form:"totalFee" validate:"finite,gte=0"`
	Details      string  `json:"details" form:"details" validate:"required,notblank"`
}

func (ns *NewStructure) clean() {
	ns.Course = core.CleanString(ns.Course)
	ns.AcademicYear = core.CleanString(ns.AcademicYear)
	ns.Details = core.CleanString(ns.Details)
}

// UpdateStructure holds the fields to change; nil ones are untouched.
type UpdateStructure struct {
	Course       *string  `json:"course" form:"course" validate:"omitempty,notblank,max=255"`
	AcademicYear *string  `json:"academicYear" form:"academicYear" validate:"omitempty,notblank,max=20"`
	TotalFee     *float64 `json:"totalFee" form:"totalFee" validate:"omitempty,finite,gte=0"`
	Details      *string  `json:"details" form:"details" validate:"omitempty,notblank"`
}

func (us *UpdateStructure) clean() {
	for _, s := range []*string{us.Course, us.AcademicYear, us.Details} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
}

func (us *UpdateStructure) apply(s *Structure) {
	if us.Course != nil {
		s.Course = *us.Course
	}
	if us.AcademicYear != nil {
		s.AcademicYear = *us.AcademicYear
	}
	if us.TotalFee != nil {
		s.TotalFee = *us.TotalFee
	}
	if us.Details != nil {
		s.Details = *us.Details
	}
}

type StudentBalance struct {
	ID        string  `json:"id"`
	FullName  string  `json:"fullName"`
	RegNo     string  `json:"regNo"`
	Course    string  `json:"course"`
	TotalFees float64 `json:"totalFees"`
	FeesPaid  float64 `json:"feesPaid"`
	Balance   float64 `json:"balance"`
}

type Overview struct {
	Structures []Structure      `json:"structures"`
	Students   []StudentBalance `json:"students"`
}

type StudentLedger struct {
	Student  user.User `json:"student"`
	Record   Record    `json:"record"`
	Balance  float64   `json:"balance"`
	Payments []Payment `json:"payments"`
}

// receiptData feeds the payment_receipt email templates.
type receiptData struct {
	Name      string
	RegNo     string
	Amount    float64
	Method    Method
	PaidAt    time.Time
	TotalFees float64
	FeesPaid  float64
	Balance   float64
}
