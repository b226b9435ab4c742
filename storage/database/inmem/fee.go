package inmemdb

import (
	"context"
	"slices"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/college/core/fee"
	"github.com/trezcool/college/core/user"
)

type feeRepository struct {
	db *DB
}

func NewFeeRepository(db *DB) fee.Repository {
	return &feeRepository{db: db}
}

// RecordPayment holds the write lock across both writes, so readers never see one without the other.
func (repo *feeRepository) RecordPayment(_ context.Context, p fee.Payment) (fee.Payment, user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	student, ok := repo.db.user.t[p.StudentID]
	if !ok || !student.IsStudent() {
		return fee.Payment{}, user.User{}, user.ErrNotFound
	}

	for _, existing := range repo.db.payment {
		if existing.ID == p.ID {
			return fee.Payment{}, user.User{}, errors.Errorf("inserting payment: duplicate id %s", p.ID)
		}
	}

	p.RegNo = student.RegNo
	updated := *student
	updated.FeesPaid += p.Amount
	updated.UpdatedAt = p.PaidAt
	repo.db.user.t[p.StudentID] = &updated
	repo.db.payment = append(repo.db.payment, p)
	return p, updated, nil
}

func (repo *feeRepository) ListPayments(_ context.Context, studentID string) ([]fee.Payment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	payments := make([]fee.Payment, 0)
	for _, p := range repo.db.payment {
		if p.StudentID == studentID {
			payments = append(payments, p)
		}
	}
	slices.Reverse(payments) // appended in time order
	return payments, nil
}

// courseTaken must be called with the lock held.
func (repo *feeRepository) courseTaken(s fee.Structure) bool {
	for _, other := range repo.db.structure.t {
		if other.ID != s.ID && other.Course == s.Course {
			return true
		}
	}
	return false
}

func (repo *feeRepository) CreateStructure(_ context.Context, s fee.Structure) (fee.Structure, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.courseTaken(s) {
		return fee.Structure{}, fee.ErrCourseExists
	}
	repo.db.structure.t[s.ID] = &s
	repo.db.structure.ids = append(repo.db.structure.ids, s.ID)
	return s, nil
}

func (repo *feeRepository) GetStructure(_ context.Context, id string) (fee.Structure, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.structure.t[id]; ok {
		return *s, nil
	}
	return fee.Structure{}, fee.ErrStructureNotFound
}

func (repo *feeRepository) UpdateStructure(_ context.Context, id string, apply func(s *fee.Structure) error) (fee.Structure, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.structure.t[id]
	if !ok {
		return fee.Structure{}, fee.ErrStructureNotFound
	}
	s := *orig
	if err := apply(&s); err != nil {
		return fee.Structure{}, err
	}
	s.ID = orig.ID
	if repo.courseTaken(s) {
		return fee.Structure{}, fee.ErrCourseExists
	}
	repo.db.structure.t[id] = &s
	return s, nil
}

func (repo *feeRepository) QueryStructures(_ context.Context) ([]fee.Structure, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	structures := make([]fee.Structure, 0, len(repo.db.structure.ids))
	for _, id := range repo.db.structure.ids {
		structures = append(structures, *repo.db.structure.t[id])
	}
	sort.SliceStable(structures, func(i, j int) bool { return structures[i].Course < structures[j].Course })
	return structures, nil
}
