package echoapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/college/apps/api/echo"
	"github.com/trezcool/college/core"
	"github.com/trezcool/college/core/fee"
	"github.com/trezcool/college/core/notice"
	"github.com/trezcool/college/core/stats"
	"github.com/trezcool/college/core/user"
	appfs "github.com/trezcool/college/fs"
	emailsvc "github.com/trezcool/college/services/email"
	filesvc "github.com/trezcool/college/services/files"
	logsvc "github.com/trezcool/college/services/logger"
	sqlxrepos "github.com/trezcool/college/storage/database/sqlx"
	"github.com/trezcool/college/testutil"
)

const strongPwd = "S3cure!Pass"

type testApp struct {
	conf      *core.Config
	srv       *echoapi.Server
	usrRepo   user.Repository
	feeSvc    *fee.Service
	noticeSvc *notice.Service
	mailSvc   *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := core.NewTestConfig()
	conf.Uploads.Dir = t.TempDir()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)

	// set up DB & repos
	db := testutil.OpenDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)

	// set up services
	validate, translator := testutil.NewValidator()
	templates, err := core.ParseEmailTemplates(appfs.FS, conf)
	require.NoError(t, err)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, templates, logger)
	files, err := filesvc.NewLocalStorage(conf)
	require.NoError(t, err)

	usrSvc := user.NewService(usrRepo, validate, conf)
	feeSvc := fee.NewService(sqlxrepos.NewFeeRepository(db), usrSvc, mailSvc, validate)
	noticeSvc := notice.NewService(sqlxrepos.NewNoticeRepository(db), validate)

	// set up server
	srv := echoapi.NewServer(&echoapi.Options{
		Conf:       conf,
		Logger:     logger,
		Translator: translator,
		Files:      files,
		UserSvc:    usrSvc,
		FeeSvc:     feeSvc,
		NoticeSvc:  noticeSvc,
		StatsSvc:   stats.NewService(usrSvc, noticeSvc),
	})
	return &testApp{conf: conf, srv: srv, usrRepo: usrRepo, feeSvc: feeSvc, noticeSvc: noticeSvc, mailSvc: mailSvc}
}

type httpTest struct {
	name     string
	method   string
	path     string
	form     url.Values
	token    string
	wantCode int
	wantLoc  string
	wantErr  string
	wantFlds []string
	wantBack string
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateToken(app.conf, usr)
	require.NoError(t, err)
	return token
}

func (app *testApp) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.srv.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) get(path, token string) *httptest.ResponseRecorder {
	return app.do(httptest.NewRequest(http.MethodGet, path, nil), token)
}

func (app *testApp) postForm(path, token string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return app.do(req, token)
}

func (app *testApp) postJSON(t *testing.T, path, token string, body interface{}) *httptest.ResponseRecorder {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return app.do(req, token)
}

type upload struct {
	field, filename, contentType, content string
}

func (app *testApp) postMultipart(t *testing.T, path, token string, form url.Values, files ...upload) *httptest.ResponseRecorder {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for key, values := range form {
		for _, v := range values {
			require.NoError(t, w.WriteField(key, v))
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = io.WriteString(part, f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return app.do(req, token)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data), rec.Body.String())
	return data
}

// check asserts the status code, the redirect location and the error payload of tt.
func check(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantLoc != "" {
		if loc := rec.Header().Get("Location"); loc != tt.wantLoc {
			t.Errorf("failed! location = %s; wantLoc %s", loc, tt.wantLoc)
		}
	}
	if tt.wantErr == "" && len(tt.wantFlds) == 0 {
		return
	}

	data := decode(t, rec)
	if tt.wantErr != "" && data["error"] != tt.wantErr {
		t.Errorf("failed! error = %v; wantErr %s", data["error"], tt.wantErr)
	}
	if len(tt.wantFlds) > 0 {
		flds, _ := data["fields"].(map[string]interface{})
		for _, f := range tt.wantFlds {
			if _, ok := flds[f]; !ok {
				t.Errorf("failed! fields = %v; missing %s", flds, f)
			}
		}
	}
	if tt.wantBack != "" && data["back"] != tt.wantBack {
		t.Errorf("failed! back = %v; wantBack %s", data["back"], tt.wantBack)
	}
}

func run(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec *httptest.ResponseRecorder
			if tt.method == http.MethodPost {
				rec = app.postForm(tt.path, tt.token, tt.form)
			} else {
				rec = app.get(tt.path, tt.token)
			}
			check(t, tt, rec)
		})
	}
}
