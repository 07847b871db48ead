package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4/middleware"

	"github.com/trezcool/masomo-learn/core"
	"github.com/trezcool/masomo-learn/core/analytics"
	emailsvc "github.com/trezcool/masomo-learn/services/email"
	dummydb "github.com/trezcool/masomo-learn/storage/database/dummy"
	testutil "github.com/trezcool/masomo-learn/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	conf   *core.Config
	db     *dummydb.DB
	clock  *testutil.Clock
	logger *testutil.Logger
	server *Server
}

type failingCatalog struct{}

func (failingCatalog) QueryMaterials(context.Context, string, int) ([]analytics.MaterialSummary, error) {
	return nil, context.DeadlineExceeded
}

type failingBank struct{}

func (failingBank) QuestionPool(context.Context, string) ([]analytics.Question, error) {
	return nil, context.DeadlineExceeded
}

// setup starts an app over empty dummy stores; pass catalogDown to make the catalog & question bank fail.
func setup(t *testing.T, catalogDown ...bool) testApp {
	t.Helper()
	app := testApp{
		conf:   testutil.Config(),
		db:     testutil.OpenDummyDB(t),
		clock:  testutil.NewClock(testutil.Now),
		logger: &testutil.Logger{},
	}

	svc := testutil.NewService(app.db, app.clock)
	if len(catalogDown) > 0 && catalogDown[0] {
		opts := analytics.OptionsFromConfig(app.conf)
		opts.Clock = app.clock.Now
		svc = analytics.NewService(dummydb.NewRecordRepository(app.db), &failingCatalog{}, &failingBank{}, opts)
	}

	validate, translator := testutil.NewValidator()
	core.ParseEmailTemplates(app.conf, app.logger)
	emailsvc.ClearSentMessages()
	mailSvc := emailsvc.NewConsoleServiceMock(app.conf, app.logger)

	app.server = NewServer(app.conf, app.logger, svc, mailSvc, validate, translator)
	return app
}

func (app testApp) token(t *testing.T, subject, email string, roles ...string) string {
	t.Helper()
	token, err := generateToken(app.conf, newClaims(app.conf, subject, "Amani", email, roles...))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

func (app testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.server.ServeHTTP(rec, req)
	return rec
}

// newClaims returns claims like the ones the school platform issues, valid for the configured JWT expiration delta.
func newClaims(conf *core.Config, subject, name, email string, roles ...string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   subject,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:  name,
		Email: email,
		Roles: roles,
	}
}

func generateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	return token.SignedString([]byte(conf.SecretKey))
}

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

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarshall() failed: %v; body %s", err, rec.Body.String())
	}
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

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
