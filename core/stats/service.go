// Package stats aggregates the admin dashboard figures.
package stats

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/college/core/fee"
	"github.com/trezcool/college/core/notice"
	"github.com/trezcool/college/core/user"
)

type DashboardStats struct {
	StudentCount     int     `json:"studentCount"`
	FacultyCount     int     `json:"facultyCount"`
	NoticeCount      int     `json:"noticeCount"`
	TotalPendingFees float64 `json:"totalPendingFees"`
}

type Service struct {
	users   *user.Service
	notices *notice.Service
}

func NewService(users *user.Service, notices *notice.Service) *Service {
	return &Service{users: users, notices: notices}
}

// ComputeDashboardStats counts students, faculty and notices, and sums the pending fees of
// every student (balances floored at zero). Nothing is cached.
func (svc *Service) ComputeDashboardStats(ctx context.Context) (DashboardStats, error) {
	var (
		stats DashboardStats
		err   error
	)
	if stats.StudentCount, err = svc.users.CountUsers(ctx, user.RoleStudent); err != nil {
		return DashboardStats{}, errors.Wrap(err, "counting students")
	}
	if stats.FacultyCount, err = svc.users.CountUsers(ctx, user.RoleFaculty); err != nil {
		return DashboardStats{}, errors.Wrap(err, "counting faculty")
	}
	if stats.NoticeCount, err = svc.notices.Count(ctx); err != nil {
		return DashboardStats{}, errors.Wrap(err, "counting notices")
	}

	err = svc.users.EachUser(ctx, user.QueryFilter{Role: user.RoleStudent}, func(usr user.User) error {
		stats.TotalPendingFees += fee.RecordOf(usr).Pending()
		return nil
	})
	if err != nil {
		return DashboardStats{}, errors.Wrap(err, "summing pending fees")
	}
	return stats, nil
}
