package fee_test

import (
	"context"
	"io"
	"log"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/college/core"
	"github.com/trezcool/college/core/fee"
	"github.com/trezcool/college/core/user"
	appfs "github.com/trezcool/college/fs"
	emailsvc "github.com/trezcool/college/services/email"
	logsvc "github.com/trezcool/college/services/logger"
	inmemdb "github.com/trezcool/college/storage/database/inmem"
	"github.com/trezcool/college/testutil"
)

type fixture struct {
	svc     *fee.Service
	users   user.Repository
	mailSvc *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) fixture {
	t.Helper()

	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	templates, err := core.ParseEmailTemplates(appfs.FS, conf)
	require.NoError(t, err)

	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	validate, _ := testutil.NewValidator()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, templates, logger)

	return fixture{
		svc:     fee.NewService(inmemdb.NewFeeRepository(db), user.NewService(usrRepo, validate, conf), mailSvc, validate),
		users:   usrRepo,
		mailSvc: mailSvc,
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "1500", want: 1500},
		{in: " 99.5 ", want: 99.5},
		{in: "-3", want: -3}, // sign is checked by RecordPayment
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "NaN", wantErr: true},
		{in: "Inf", wantErr: true},
		{in: "-Infinity", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := fee.ParseAmount(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, fee.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMethod(t *testing.T) {
	for _, m := range fee.Methods {
		got, err := fee.ParseMethod(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	got, err := fee.ParseMethod("  ")
	require.NoError(t, err)
	assert.Equal(t, fee.MethodCash, got)

	_, err = fee.ParseMethod("cheque")
	assert.ErrorIs(t, err, fee.ErrInvalidMethod)
}

func TestDefaultAcademicYear(t *testing.T) {
	assert.Equal(t, "2025-2026", fee.DefaultAcademicYear(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestService_RecordPayment(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	student := testutil.CreateStudent(t, fx.users, "Ravi Kumar", "ravi", 50000, 10000)
	faculty := testutil.CreateUser(t, fx.users, "Prof", "prof", "prof@test.edu", "", user.RoleFaculty, true)

	t.Run("invalid input", func(t *testing.T) {
		tests := []struct {
			name    string
			np      fee.NewPayment
			wantErr error
		}{
			{name: "zero amount", np: fee.NewPayment{StudentID: student.ID, Amount: 0}, wantErr: fee.ErrInvalidAmount},
			{name: "negative amount", np: fee.NewPayment{StudentID: student.ID, Amount: -10}, wantErr: fee.ErrInvalidAmount},
			{name: "NaN", np: fee.NewPayment{StudentID: student.ID, Amount: math.NaN()}, wantErr: fee.ErrInvalidAmount},
			{name: "infinite", np: fee.NewPayment{StudentID: student.ID, Amount: math.Inf(1)}, wantErr: fee.ErrInvalidAmount},
			{name: "unknown method", np: fee.NewPayment{StudentID: student.ID, Amount: 10, Method: "Cheque"}, wantErr: fee.ErrInvalidMethod},
			{name: "unknown student", np: fee.NewPayment{StudentID: "nope", Amount: 10}, wantErr: user.ErrNotFound},
			{name: "not a student", np: fee.NewPayment{StudentID: faculty.ID, Amount: 10}, wantErr: user.ErrNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := fx.svc.RecordPayment(ctx, tt.np)
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}

		ledger, err := fx.svc.Ledger(ctx, student.ID)
		require.NoError(t, err)
		assert.Empty(t, ledger.Payments)
		assert.Equal(t, float64(10000), ledger.Record.FeesPaid)
		assert.Empty(t, fx.mailSvc.SentMessages())
	})

	t.Run("payment", func(t *testing.T) {
		receipt, err := fx.svc.RecordPayment(ctx, fee.NewPayment{StudentID: student.ID, Amount: 15000, Method: fee.MethodUPI, Semester: "2"})
		require.NoError(t, err)

		assert.Equal(t, student.RegNo, receipt.Payment.RegNo)
		assert.Equal(t, fee.MethodUPI, receipt.Payment.Method)
		assert.Equal(t, "2", receipt.Payment.Semester.String)
		assert.Equal(t, float64(25000), receipt.Record.FeesPaid)
		assert.Equal(t, float64(25000), receipt.Balance())

		sent := fx.mailSvc.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, student.Email, sent[0].To[0].Address)
		assert.Contains(t, sent[0].TextContent, "15000.00 (UPI)")
		assert.Contains(t, sent[0].TextContent, "25000.00")
		assert.True(t, strings.Contains(sent[0].HTMLContent, "Ravi Kumar"))
	})

	t.Run("default method and overpayment", func(t *testing.T) {
		receipt, err := fx.svc.RecordPayment(ctx, fee.NewPayment{StudentID: student.ID, Amount: 30000})
		require.NoError(t, err)
		assert.Equal(t, fee.MethodCash, receipt.Payment.Method)
		assert.False(t, receipt.Payment.Semester.Valid)
		assert.Equal(t, float64(-5000), receipt.Balance())
		assert.Equal(t, float64(0), receipt.Record.Pending())
	})

	ledger, err := fx.svc.Ledger(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, ledger.Payments, 2)
	assert.Equal(t, float64(30000), ledger.Payments[0].Amount) // newest first
	assert.Equal(t, float64(15000), ledger.Payments[1].Amount)
	assert.Equal(t, float64(55000), ledger.Record.FeesPaid)
	assert.Equal(t, float64(-5000), ledger.Balance)
}

func TestService_Ledger(t *testing.T) {
	fx := setup(t)

	faculty := testutil.CreateUser(t, fx.users, "Prof", "prof", "prof@test.edu", "", user.RoleFaculty, true)
	_, err := fx.svc.Ledger(context.Background(), faculty.ID)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestService_Structures(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	bsc, err := fx.svc.CreateStructure(ctx, fee.NewStructure{Course: " BSc ", TotalFee: 40000, Details: "Tuition"})
	require.NoError(t, err)
	assert.Equal(t, "BSc", bsc.Course)
	assert.Equal(t, fee.DefaultAcademicYear(time.Now().UTC()), bsc.AcademicYear)

	_, err = fx.svc.CreateStructure(ctx, fee.NewStructure{Course: "BCom", AcademicYear: "2024-2025", TotalFee: 30000, Details: "Tuition"})
	require.NoError(t, err)

	_, err = fx.svc.CreateStructure(ctx, fee.NewStructure{Course: "BSc", TotalFee: 1, Details: "dup"})
	assert.ErrorIs(t, err, fee.ErrCourseExists)

	_, err = fx.svc.CreateStructure(ctx, fee.NewStructure{Course: "MSc", TotalFee: -1})
	assert.Error(t, err)

	course := "BCom"
	_, err = fx.svc.UpdateStructure(ctx, bsc.ID, fee.UpdateStructure{Course: &course})
	assert.ErrorIs(t, err, fee.ErrCourseExists)

	total := 45000.0
	updated, err := fx.svc.UpdateStructure(ctx, bsc.ID, fee.UpdateStructure{TotalFee: &total})
	require.NoError(t, err)
	assert.Equal(t, total, updated.TotalFee)
	assert.Equal(t, "Tuition", updated.Details)

	_, err = fx.svc.UpdateStructure(ctx, "nope", fee.UpdateStructure{TotalFee: &total})
	assert.ErrorIs(t, err, fee.ErrStructureNotFound)

	structures, err := fx.svc.QueryStructures(ctx)
	require.NoError(t, err)
	require.Len(t, structures, 2)
	assert.Equal(t, "BCom", structures[0].Course)
	assert.Equal(t, "BSc", structures[1].Course)
}

func TestService_Overview(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	testutil.CreateStudent(t, fx.users, "Ravi", "ravi", 1000, 200)
	testutil.CreateStudent(t, fx.users, "Priya", "priya", 500, 700)
	testutil.CreateUser(t, fx.users, "Admin", "admin", "admin@test.edu", "", user.RoleAdmin, true)

	overview, err := fx.svc.Overview(ctx)
	require.NoError(t, err)
	assert.Empty(t, overview.Structures)
	require.Len(t, overview.Students, 2)
	assert.Equal(t, float64(800), overview.Students[0].Balance)
	assert.Equal(t, float64(-200), overview.Students[1].Balance)
}
