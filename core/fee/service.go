package fee

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/college/core"
	"github.com/trezcool/college/core/user"
)

const receiptTemplate = "payment_receipt"

var (
	// errors
	ErrInvalidAmount     = errors.New("amount must be a positive number")
	ErrInvalidMethod     = errors.New("invalid payment method")
	ErrStructureNotFound = errors.New("fee structure not found")
	ErrCourseExists      = errors.New("a fee structure already exists for this course")
)

// ParseAmount parses a form amount. Non-numeric, NaN and infinite values are ErrInvalidAmount.
func ParseAmount(s string) (float64, error) {
	amount, err := strconv.ParseFloat(core.CleanString(s), 64)
	if err != nil || !core.IsFinite(amount) {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

// ParseMethod parses a payment method; empty means Cash.
func ParseMethod(s string) (Method, error) {
	s = core.CleanString(s)
	if s == "" {
		return MethodCash, nil
	}
	for _, m := range Methods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", ErrInvalidMethod
}

// DefaultAcademicYear returns "<Y>-<Y+1>" for the year of t.
func DefaultAcademicYear(t time.Time) string {
	return fmt.Sprintf("%d-%d", t.Year(), t.Year()+1)
}

type (
	Repository interface {
		// RecordPayment appends p to the ledger and adds p.Amount to the student's feesPaid
		// as one unit, filling p.RegNo from the student. It returns the updated student,
		// or user.ErrNotFound, with nothing written, when p.StudentID is not a student.
		RecordPayment(ctx context.Context, p Payment) (Payment, user.User, error)
		// ListPayments returns the ledger of a student, newest first.
		ListPayments(ctx context.Context, studentID string) ([]Payment, error)
		// CreateStructure returns ErrCourseExists when the course already has a structure.
		CreateStructure(ctx context.Context, s Structure) (Structure, error)
		GetStructure(ctx context.Context, id string) (Structure, error)
		UpdateStructure(ctx context.Context, id string, apply func(s *Structure) error) (Structure, error)
		QueryStructures(ctx context.Context) ([]Structure, error)
	}

	Service struct {
		repo     Repository
		users    *user.Service
		mailSvc  core.EmailService
		validate *validator.Validate
	}
)

func NewService(repo Repository, users *user.Service, mailSvc core.EmailService, validate *validator.Validate) *Service {
	return &Service{repo: repo, users: users, mailSvc: mailSvc, validate: validate}
}

// validatePayment reports amount and method errors with their sentinels.
func (svc *Service) validatePayment(np NewPayment) error {
	err := svc.validate.Struct(np)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		switch fe.StructField() {
		case "Amount":
			return core.NewValidationError(ErrInvalidAmount, core.FieldError{Field: fe.Field(), Error: ErrInvalidAmount.Error()})
		case "Method":
			return core.NewValidationError(ErrInvalidMethod, core.FieldError{Field: fe.Field(), Error: ErrInvalidMethod.Error()})
		}
	}
	return err
}

// RecordPayment writes a ledger entry and increments the student's fees paid.
// Overpayment is allowed. A receipt email is then sent in the background.
func (svc *Service) RecordPayment(ctx context.Context, np NewPayment) (Receipt, error) {
	np.clean()
	if err := svc.validatePayment(np); err != nil {
		return Receipt{}, err
	}

	p := Payment{
		ID:        uuid.NewString(),
		StudentID: np.StudentID,
		Amount:    np.Amount,
		Method:    np.Method,
		Semester:  null.NewString(np.Semester, np.Semester != ""),
		PaidAt:    time.Now().UTC(),
	}
	p, student, err := svc.repo.RecordPayment(ctx, p)
	if err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{Payment: p, Record: RecordOf(student)}
	svc.sendReceipt(student, receipt)
	return receipt, nil
}

func (svc *Service) sendReceipt(student user.User, receipt Receipt) {
	if student.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.FullName, Address: student.Email}},
		Subject:      "Fee payment receipt",
		TemplateName: receiptTemplate,
		TemplateData: receiptData{
			Name:      student.FullName,
			RegNo:     receipt.Payment.RegNo,
			Amount:    receipt.Payment.Amount,
			Method:    receipt.Payment.Method,
			PaidAt:    receipt.Payment.PaidAt,
			TotalFees: receipt.Record.TotalFees,
			FeesPaid:  receipt.Record.FeesPaid,
			Balance:   receipt.Balance(),
		},
	})
}

// Overview lists the fee structures and the balance of every student.
func (svc *Service) Overview(ctx context.Context) (Overview, error) {
	structures, err := svc.repo.QueryStructures(ctx)
	if err != nil {
		return Overview{}, err
	}

	students := make([]StudentBalance, 0)
	err = svc.users.EachUser(ctx, user.QueryFilter{Role: user.RoleStudent}, func(usr user.User) error {
		students = append(students, StudentBalance{
			ID:        usr.ID,
			FullName:  usr.FullName,
			RegNo:     usr.RegNo,
			Course:    usr.Course,
			TotalFees: usr.TotalFees,
			FeesPaid:  usr.FeesPaid,
			Balance:   usr.Balance(),
		})
		return nil
	})
	if err != nil {
		return Overview{}, err
	}
	return Overview{Structures: structures, Students: students}, nil
}

// Ledger returns a student with its fee record and payments, newest first.
func (svc *Service) Ledger(ctx context.Context, studentID string) (StudentLedger, error) {
	student, err := svc.users.GetStudent(ctx, studentID)
	if err != nil {
		return StudentLedger{}, err
	}
	payments, err := svc.repo.ListPayments(ctx, student.ID)
	if err != nil {
		return StudentLedger{}, err
	}
	rec := RecordOf(student)
	return StudentLedger{Student: student, Record: rec, Balance: rec.Balance(), Payments: payments}, nil
}

func courseExistsError(err error) error {
	if errors.Is(err, ErrCourseExists) {
		return core.NewValidationError(ErrCourseExists, core.FieldError{Field: "course", Error: ErrCourseExists.Error()})
	}
	return err
}

func (svc *Service) CreateStructure(ctx context.Context, ns NewStructure) (Structure, error) {
	ns.clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Structure{}, err
	}

	now := time.Now().UTC()
	s := Structure{
		ID:           uuid.NewString(),
		Course:       ns.Course,
		AcademicYear: ns.AcademicYear,
		TotalFee:     ns.TotalFee,
		Details:      ns.Details,
		CreatedAt:    now,
	}
	if s.AcademicYear == "" {
		s.AcademicYear = DefaultAcademicYear(now)
	}

	s, err := svc.repo.CreateStructure(ctx, s)
	if err != nil {
		return Structure{}, courseExistsError(err)
	}
	return s, nil
}

func (svc *Service) UpdateStructure(ctx context.Context, id string, us UpdateStructure) (Structure, error) {
	us.clean()
	if err := svc.validate.Struct(us); err != nil {
		return Structure{}, err
	}
	s, err := svc.repo.UpdateStructure(ctx, id, func(s *Structure) error {
		us.apply(s)
		return nil
	})
	if err != nil {
		return Structure{}, courseExistsError(err)
	}
	return s, nil
}

func (svc *Service) GetStructure(ctx context.Context, id string) (Structure, error) {
	return svc.repo.GetStructure(ctx, id)
}

// QueryStructures returns every fee structure, ordered by course.
func (svc *Service) QueryStructures(ctx context.Context) ([]Structure, error) {
	return svc.repo.QueryStructures(ctx)
}
