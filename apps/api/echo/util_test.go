package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/jamii/apps/api/echo"
	"github.com/trezcool/jamii/apps/portal"
	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/session"
	"github.com/trezcool/jamii/core/user"
	emailsvc "github.com/trezcool/jamii/services/email"
	metricsvc "github.com/trezcool/jamii/services/metrics"
	inmemdb "github.com/trezcool/jamii/storage/database/inmem"
	inmemstore "github.com/trezcool/jamii/storage/local/inmem"
	testutil "github.com/trezcool/jamii/tests"
)

const pwd = inmemdb.MockPassword

type env struct {
	server *Server
	app    *portal.App
	mailer *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) env {
	t.Helper()
	conf := testutil.Config()
	logger := new(testutil.Logger)

	reg := inmemdb.NewUserRegistry(inmemdb.Open())
	require.NoError(t, inmemdb.Seed(context.Background(), reg))
	mailer := emailsvc.NewConsoleServiceMock(conf, logger)

	app, err := portal.New(context.Background(), conf, portal.Deps{
		Registry: reg,
		Storage:  inmemstore.New(),
		Mailer:   mailer,
		Logger:   logger,
		Metrics:  metricsvc.New("jamii"),
	})
	require.NoError(t, err)

	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)

	server := NewServer(ServerDeps{App: app, Validate: validate, Translator: translator})
	return env{server: server, app: app, mailer: mailer}
}

func (e env) login(t *testing.T, email string) user.User {
	t.Helper()
	usr, err := e.app.Session.Login(context.Background(), email, pwd)
	require.NoError(t, err)
	return usr
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func (e env) do(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path, data...)
	e.server.ServeHTTP(rec, req)
	return rec
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func stateOf(usr *user.User) session.State {
	return session.State{User: usr, Authenticated: usr != nil}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, e env, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(tt.method, tt.path, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
