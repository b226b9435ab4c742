package stats_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/college/core"
	"github.com/trezcool/college/core/notice"
	"github.com/trezcool/college/core/stats"
	"github.com/trezcool/college/core/user"
	inmemdb "github.com/trezcool/college/storage/database/inmem"
	"github.com/trezcool/college/testutil"
)

func TestService_ComputeDashboardStats(t *testing.T) {
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	validate, _ := testutil.NewValidator()
	noticeSvc := notice.NewService(inmemdb.NewNoticeRepository(db), validate)
	svc := stats.NewService(user.NewService(usrRepo, validate, core.NewTestConfig()), noticeSvc)
	ctx := context.Background()

	got, err := svc.ComputeDashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats.DashboardStats{}, got)

	testutil.CreateStudent(t, usrRepo, "Ravi", "ravi", 1000, 250)
	testutil.CreateStudent(t, usrRepo, "Priya", "priya", 500, 900) // overpaid: counts as 0
	testutil.CreateStudent(t, usrRepo, "Anil", "anil", 300, 0)
	testutil.CreateUser(t, usrRepo, "Prof", "prof", "prof@test.edu", "", user.RoleFaculty, true)
	testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.edu", "", user.RoleAdmin, true)
	_, err = noticeSvc.Create(ctx, notice.NewNotice{Title: "Holiday"})
	require.NoError(t, err)

	got, err = svc.ComputeDashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats.DashboardStats{
		StudentCount:     3,
		FacultyCount:     1,
		NoticeCount:      1,
		TotalPendingFees: 1050,
	}, got)
}
