package echoapi_test

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/college/core/user"
	"github.com/trezcool/college/testutil"
)

func studentForm(uname string) url.Values {
	return url.Values{
		"fullName":        {"Student " + uname},
		"username":        {uname},
		"email":           {uname + "@test.edu"},
		"password":        {strongPwd},
		"course":          {"BSc"},
		"semester":        {"1"},
		"dateOfBirth":     {"2004-05-06"},
		"dateOfAdmission": {"2024-07-01"},
		"totalFees":       {"50000"},
		"feesPaid":        {""},
	}
}

func with(form url.Values, key, value string) url.Values {
	cp := make(url.Values, len(form))
	for k, v := range form {
		cp[k] = append([]string(nil), v...)
	}
	cp.Set(key, value)
	return cp
}

func TestServer_addStudent(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@test.edu", strongPwd, user.RoleAdmin, true)
	token := app.token(t, admin)

	tests := []httpTest{
		{
			name: "ok", method: http.MethodPost, path: "/admin/add-student", token: token, form: studentForm("ravi"),
			wantCode: http.StatusSeeOther, wantLoc: "/admin/manage-students",
		},
		{
			name: "duplicate username", method: http.MethodPost, path: "/admin/add-student", token: token,
			form:     with(studentForm("ravi"), "email", "other@test.edu"),
			wantCode: http.StatusBadRequest, wantErr: user.ErrUsernameExists.Error(), wantFlds: []string{"username"}, wantBack: "/admin/add-student",
		},
		{
			name: "duplicate email", method: http.MethodPost, path: "/admin/add-student", token: token,
			form:     with(studentForm("other"), "email", "ravi@test.edu"),
			wantCode: http.StatusBadRequest, wantFlds: []string{"email"},
		},
		{
			name: "missing fields", method: http.MethodPost, path: "/admin/add-student", token: token, form: url.Values{},
			wantCode: http.StatusBadRequest, wantErr: "invalid data",
			wantFlds: []string{"fullName", "username", "email", "password", "dateOfAdmission"},
			wantBack: "/admin/add-student",
		},
		{
			name: "weak password", method: http.MethodPost, path: "/admin/add-student", token: token,
			form:     with(studentForm("weak"), "password", "password1"),
			wantCode: http.StatusBadRequest, wantFlds: []string{"password"},
		},
		{
			name: "malformed number", method: http.MethodPost, path: "/admin/add-student", token: token,
			form:     with(studentForm("num"), "totalFees", "lots"),
			wantCode: http.StatusBadRequest, wantFlds: []string{"totalFees"},
		},
		{
			name: "malformed date", method: http.MethodPost, path: "/admin/add-student", token: token,
			form:     with(studentForm("date"), "dateOfBirth", "06/05/2004"),
			wantCode: http.StatusBadRequest, wantFlds: []string{"dateOfBirth"},
		},
	}
	run(t, app, tests)

	ravi, err := app.usrRepo.GetUserByUsername(context.Background(), "ravi")
	require.NoError(t, err)
	assert.Equal(t, "ravi", ravi.RegNo)
	assert.Equal(t, float64(50000), ravi.TotalFees)
	assert.Zero(t, ravi.FeesPaid)
	assert.Equal(t, user.PlaceholderPhotoURL, ravi.PhotoURL)
	assert.Equal(t, "2004-05-06", ravi.DateOfBirth.Time.Format("2006-01-02"))

	count, err := app.usrRepo.CountUsers(context.Background(), user.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	t.Run("with photo", func(t *testing.T) {
		rec := app.postMultipart(t, "/admin/add-student", token, studentForm("priya"),
			upload{field: "studentPhoto", filename: "me.png", contentType: "image/png", content: "png"})
		check(t, httpTest{wantCode: http.StatusSeeOther, wantLoc: "/admin/manage-students"}, rec)

		priya, err := app.usrRepo.GetUserByUsername(context.Background(), "priya")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(priya.PhotoURL, "/uploads/students/"), priya.PhotoURL)
		assert.True(t, strings.HasSuffix(priya.PhotoURL, "-me.png"), priya.PhotoURL)

		content, err := os.ReadFile(filepath.Join(app.conf.Uploads.Dir, "students", filepath.Base(priya.PhotoURL)))
		require.NoError(t, err)
		assert.Equal(t, "png", string(content))
	})

	t.Run("json body", func(t *testing.T) {
		rec := app.postJSON(t, "/admin/add-student", token, map[string]interface{}{
			"fullName":        "Anil",
			"username":        "anil",
			"email":           "anil@test.edu",
			"password":        strongPwd,
			"dateOfAdmission": "2024-07-01T00:00:00Z",
			"totalFees":       1000,
		})
		check(t, httpTest{wantCode: http.StatusSeeOther}, rec)
	})

	t.Run("form page", func(t *testing.T) {
		data := decode(t, app.get("/admin/add-student", token))
		assert.Equal(t, "/admin/add-student", data["action"])
		assert.Equal(t, []interface{}{}, data["courses"])
	})
}

func TestServer_manageStudents(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin Kumar", "admin", "admin@test.edu", strongPwd, user.RoleAdmin, true)
	token := app.token(t, admin)

	testutil.CreateStudent(t, app.usrRepo, "Ravi Kumar", "ravi", 100, 0)
	testutil.CreateStudent(t, app.usrRepo, "Priya Sharma", "priya", 100, 0)

	usernames := func(data map[string]interface{}) []string {
		var unames []string
		for _, s := range data["students"].([]interface{}) {
			unames = append(unames, s.(map[string]interface{})["username"].(string))
		}
		return unames
	}

	tests := []struct {
		search string
		want   []string
	}{
		{search: "", want: []string{"ravi", "priya"}},
		{search: "kumar", want: []string{"ravi"}}, // the admin is not a student
		{search: "PRI", want: []string{"priya"}},
		{search: "nobody", want: nil},
	}
	for _, tt := range tests {
		t.Run("search="+tt.search, func(t *testing.T) {
			rec := app.get("/admin/manage-students?search="+url.QueryEscape(tt.search), token)
			require.Equal(t, http.StatusOK, rec.Code)
			data := decode(t, rec)
			assert.Equal(t, tt.search, data["search"])
			assert.ElementsMatch(t, tt.want, usernames(data))
			assert.NotContains(t, rec.Body.String(), "password")
		})
	}
}

func TestServer_updateStudent(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@test.edu", strongPwd, user.RoleAdmin, true)
	token := app.token(t, admin)

	ravi := testutil.CreateUser(t, app.usrRepo, "Ravi", "ravi", "ravi@test.edu", strongPwd, user.RoleStudent, true)
	testutil.CreateStudent(t, app.usrRepo, "Priya", "priya", 100, 0)
	path := "/admin/update-student/" + ravi.ID

	tests := []httpTest{
		{
			name: "ok", method: http.MethodPost, path: path, token: token,
			form:     url.Values{"city": {"Pune"}, "password": {""}, "totalFees": {"1200"}, "semester": {""}},
			wantCode: http.StatusSeeOther, wantLoc: "/admin/manage-students",
		},
		{
			name: "email taken", method: http.MethodPost, path: path, token: token, form: url.Values{"email": {"priya@test.edu"}},
			wantCode: http.StatusBadRequest, wantFlds: []string{"email"}, wantBack: "/admin/edit-student/" + ravi.ID,
		},
		{
			name: "negative fees", method: http.MethodPost, path: path, token: token, form: url.Values{"feesPaid": {"-1"}},
			wantCode: http.StatusBadRequest, wantFlds: []string{"feesPaid"},
		},
		{
			name: "unknown student", method: http.MethodPost, path: "/admin/update-student/nope", token: token, form: url.Values{"city": {"Pune"}},
			wantCode: http.StatusNotFound, wantErr: user.ErrNotFound.Error(),
		},
		{
			name: "admin is not a student", method: http.MethodPost, path: "/admin/update-student/" + admin.ID, token: token, form: url.Values{"city": {"Pune"}},
			wantCode: http.StatusNotFound,
		},
		{name: "edit form", path: "/admin/edit-student/" + ravi.ID, token: token, wantCode: http.StatusOK},
		{name: "edit form: unknown", path: "/admin/edit-student/nope", token: token, wantCode: http.StatusNotFound},
	}
	run(t, app, tests)

	got, err := app.usrRepo.GetUserByID(context.Background(), ravi.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pune", got.City)
	assert.Equal(t, float64(1200), got.TotalFees)
	assert.False(t, got.Semester.Valid)
	assert.Equal(t, "ravi@test.edu", got.Email)
	assert.NoError(t, got.CheckPassword(strongPwd)) // blank password keeps the current one

	t.Run("new password and photo", func(t *testing.T) {
		rec := app.postMultipart(t, path, token, url.Values{"password": {"N3w&Strong"}},
			upload{field: "studentPhoto", filename: "new.jpg", contentType: "image/jpeg", content: "jpg"})
		check(t, httpTest{wantCode: http.StatusSeeOther}, rec)

		got, err := app.usrRepo.GetUserByID(context.Background(), ravi.ID)
		require.NoError(t, err)
		assert.NoError(t, got.CheckPassword("N3w&Strong"))
		assert.True(t, strings.HasSuffix(got.PhotoURL, "-new.jpg"), got.PhotoURL)
		assert.Equal(t, "Pune", got.City)
	})
}
