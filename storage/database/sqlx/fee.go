package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/college/core"
	"github.com/trezcool/college/core/fee"
	"github.com/trezcool/college/core/user"
)

const (
	paymentColumns   = `id, student_id, reg_no, amount, method, semester, paid_at`
	structureColumns = `id, course, academic_year, total_fee, details, created_at`
)

var structureUniques = map[string]error{"course": fee.ErrCourseExists}

type feeRepository struct {
	db core.DB
}

func NewFeeRepository(db core.DB) fee.Repository {
	return &feeRepository{db: db}
}

// RecordPayment increments fees_paid first: the guarded UPDATE both resolves the student and
// takes the row lock, so concurrent payments on one student serialize.
func (repo *feeRepository) RecordPayment(ctx context.Context, p fee.Payment) (fee.Payment, user.User, error) {
	var student user.User
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := tx.Rebind(`UPDATE users SET fees_paid = fees_paid + ?, updated_at = ? WHERE id = ? AND role = ?`)
		res, err := tx.ExecContext(ctx, q, p.Amount, p.PaidAt, p.StudentID, user.RoleStudent)
		if err != nil {
			return errors.Wrap(err, "incrementing fees paid")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "incrementing fees paid")
		}
		if n == 0 {
			return user.ErrNotFound
		}

		if student, err = getUser(ctx, tx, "id = ?", p.StudentID); err != nil {
			return err
		}
		p.RegNo = student.RegNo

		q = `INSERT INTO fee_payments (` + paymentColumns + `)
			VALUES (:id, :student_id, :reg_no, :amount, :method, :semester, :paid_at)`
		if _, err = sqlx.NamedExecContext(ctx, tx, q, p); err != nil {
			return errors.Wrap(err, "inserting payment")
		}
		return nil
	})
	if err != nil {
		return fee.Payment{}, user.User{}, err
	}
	return p, student, nil
}

func (repo *feeRepository) ListPayments(ctx context.Context, studentID string) ([]fee.Payment, error) {
	payments := make([]fee.Payment, 0)
	q := repo.db.Rebind(`SELECT ` + paymentColumns + ` FROM fee_payments WHERE student_id = ? ORDER BY paid_at DESC, id DESC`)
	if err := sqlx.SelectContext(ctx, repo.db, &payments, q, studentID); err != nil {
		return nil, errors.Wrap(err, "selecting payments")
	}
	return payments, nil
}

func (repo *feeRepository) CreateStructure(ctx context.Context, s fee.Structure) (fee.Structure, error) {
	q := `INSERT INTO fee_structures (` + structureColumns + `)
		VALUES (:id, :course, :academic_year, :total_fee, :details, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, s); err != nil {
		return fee.Structure{}, mapUnique(err, "inserting fee structure", structureUniques)
	}
	return s, nil
}

func getStructure(ctx context.Context, ext sqlx.ExtContext, id string, suffix string) (fee.Structure, error) {
	var s fee.Structure
	q := ext.Rebind(`SELECT ` + structureColumns + ` FROM fee_structures WHERE id = ?` + suffix)
	if err := sqlx.GetContext(ctx, ext, &s, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fee.Structure{}, fee.ErrStructureNotFound
		}
		return fee.Structure{}, errors.Wrap(err, "selecting fee structure")
	}
	return s, nil
}

func (repo *feeRepository) GetStructure(ctx context.Context, id string) (fee.Structure, error) {
	return getStructure(ctx, repo.db, id, "")
}

func (repo *feeRepository) UpdateStructure(ctx context.Context, id string, apply func(s *fee.Structure) error) (fee.Structure, error) {
	var s fee.Structure
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var err error
		if s, err = getStructure(ctx, tx, id, forUpdate(tx)); err != nil {
			return err
		}
		if err = apply(&s); err != nil {
			return err
		}
		s.ID = id
		q := `UPDATE fee_structures SET course = :course, academic_year = :academic_year,
			total_fee = :total_fee, details = :details WHERE id = :id`
		if _, err = sqlx.NamedExecContext(ctx, tx, q, s); err != nil {
			return mapUnique(err, "updating fee structure", structureUniques)
		}
		return nil
	})
	if err != nil {
		return fee.Structure{}, err
	}
	return s, nil
}

func (repo *feeRepository) QueryStructures(ctx context.Context) ([]fee.Structure, error) {
	structures := make([]fee.Structure, 0)
	q := `SELECT ` + structureColumns + ` FROM fee_structures ORDER BY course`
	if err := sqlx.SelectContext(ctx, repo.db, &structures, q); err != nil {
		return nil, errors.Wrap(err, "selecting fee structures")
	}
	return structures, nil
}
