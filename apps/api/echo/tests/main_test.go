package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	echoapi "github.com/mamamind47/sfa-efilling-sub001/apps/api/echo"
	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/academic"
	"github.com/mamamind47/sfa-efilling-sub001/core/certificate"
	"github.com/mamamind47/sfa-efilling-sub001/core/importer"
	"github.com/mamamind47/sfa-efilling-sub001/core/post"
	"github.com/mamamind47/sfa-efilling-sub001/core/project"
	"github.com/mamamind47/sfa-efilling-sub001/core/stats"
	"github.com/mamamind47/sfa-efilling-sub001/core/submission"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
	emailsvc "github.com/mamamind47/sfa-efilling-sub001/services/email"
	logsvc "github.com/mamamind47/sfa-efilling-sub001/services/logger"
	storagesvc "github.com/mamamind47/sfa-efilling-sub001/services/storage"
	"github.com/mamamind47/sfa-efilling-sub001/storage/database"
	inmemdb "github.com/mamamind47/sfa-efilling-sub001/storage/database/inmem"
)

const testPassword = "Vol-Hours#2026"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// testEnv is one API server over a fresh in-memory store.
type testEnv struct {
	app    *echoapi.Server
	conf   *core.Config
	store  *database.Store
	outbox *emailsvc.Outbox
}

func newTestConfig(t *testing.T) *core.Config {
	return &core.Config{
		TestMode:                  true,
		AppName:                   "SFA e-Filing",
		Env:                       "TEST",
		SecretKey:                 "test-secret",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		FrontendBaseURL:           "http://efiling.test",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
		Database: core.DatabaseConfig{Engine: database.EngineMemory},
		Media: core.MediaConfig{
			Root:          t.TempDir(),
			BaseURL:       "/media",
			MaxUploadSize: 1 << 20,
		},
	}
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	conf := newTestConfig(t)
	logger := logsvc.NewRollbarLogger(log.New(bytes.NewBuffer(nil), "", 0), conf)

	// set up validation & templates
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	submission.InitValidators(validate, translator)
	core.ParseEmailTemplates(logger)

	// set up DB & repos
	store := database.NewMemoryStore(inmemdb.Open())

	// set up services
	outbox := emailsvc.NewOutbox(logger, conf)
	files := storagesvc.NewLocalStorage(logger, conf)
	usrSvc := user.NewService(store.Users, outbox, validate, conf)
	yearSvc := academic.NewService(store.Years, validate)
	certSvc := certificate.NewService(store.Certificates, validate)

	app := echoapi.NewServer(echoapi.Options{
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         logger,
		Translator:     translator,
		Registerer:     prometheus.NewRegistry(),
		UserSvc:        usrSvc,
		AcademicSvc:    yearSvc,
		CertificateSvc: certSvc,
		SubmissionSvc:  submission.NewService(store.Tx, store.Submissions, yearSvc, certSvc, usrSvc, files, outbox, validate, conf),
		ProjectSvc:     project.NewService(store.Tx, store.Projects, yearSvc, usrSvc, files, outbox, validate, conf),
		PostSvc:        post.NewService(store.Posts, files, validate, conf),
		ImportSvc:      importer.NewService(store.Tx, store.Imports, yearSvc, usrSvc, validate),
		StatsSvc:       stats.NewService(store.Stats),
	})
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })

	return &testEnv{app: app, conf: conf, store: store, outbox: outbox}
}

// Fixtures

func (env *testEnv) createUser(t *testing.T, name, uname, studentCode, role string, isActive bool) user.User {
	t.Helper()
	now := core.NowFunc()
	usr := user.User{
		Name:        name,
		Username:    uname,
		Email:       uname + "@test.ac.th",
		StudentCode: null.NewString(studentCode, studentCode != ""),
		Role:        role,
		IsActive:    isActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, usr.SetPassword(testPassword))
	usr, err := env.store.Users.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func (env *testEnv) createAdmin(t *testing.T, uname string) user.User {
	return env.createUser(t, "Admin "+uname, uname, "", user.RoleAdmin, true)
}

func (env *testEnv) createStudent(t *testing.T, uname, code string) user.User {
	return env.createUser(t, "Student "+uname, uname, code, user.RoleStudent, true)
}

// createYear adds an academic year forced to the given status.
func (env *testEnv) createYear(t *testing.T, year int, status academic.Status) academic.AcademicYear {
	t.Helper()
	now := core.NowFunc()
	y, err := env.store.Years.CreateAcademicYear(context.Background(), academic.AcademicYear{
		Year:      year,
		Name:      "Academic year test",
		StartDate: time.Date(now.Year()-1, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(now.Year()+1, 5, 31, 0, 0, 0, 0, time.UTC),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return y
}

func (env *testEnv) createCertType(t *testing.T, code string, hours int, active bool) certificate.Type {
	t.Helper()
	now := core.NowFunc()
	ct, err := env.store.Certificates.CreateCertificateType(context.Background(), certificate.Type{
		Code:      code,
		Name:      "Course " + code,
		Hours:     hours,
		Category:  "e-Learning",
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return ct
}

// Requests

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// formFile is one file part of a multipart request.
type formFile struct {
	field    string
	filename string
	content  []byte
}

func newMultipartRequest(t *testing.T, method, path, token string, fields map[string]string, files ...formFile) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = fw.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func (env *testEnv) do(t *testing.T, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var data []byte
	if payload != nil {
		data = marchallObj(t, payload)
	}
	req, rec := newAuthRequest(method, path, token, data)
	env.app.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	claims := echoapi.GetUserClaims(usr, env.conf)
	token, err := echoapi.GenerateToken(claims, env.conf)
	require.NoError(t, err, "getToken()")
	return token
}

var pngContent = func() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}()

var pdfContent = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

// Payloads

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), "body: %s", rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCode(t *testing.T, rec *httptest.ResponseRecorder, wantCode int) {
	t.Helper()
	if rec.Code != wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, wantCode, rec.Body.String())
	}
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	checkCode(t, rec, tt.wantCode)
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

type listBody[T any] struct {
	Data       []T           `json:"data"`
	Pagination core.PageInfo `json:"pagination"`
}

func TestHome(t *testing.T) {
	env := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	env.app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)
	assert.Contains(t, rec.Body.String(), "Welcome")

	req, rec = newRequest(http.MethodGet, "/api/projects")
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
}
