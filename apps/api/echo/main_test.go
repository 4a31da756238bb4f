package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/chuo/apps/api/echo"
	"github.com/trezcool/chuo/core/user"
	"github.com/trezcool/chuo/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func setup(t *testing.T) (*testutil.Env, *Server) {
	env := testutil.NewEnv(t)
	srv := NewServer(ServerDeps{
		Conf:           env.Conf,
		Logger:         env.Logger,
		Clock:          env.Clock,
		DisableReqLogs: true,
		UserSvc:        env.UserSvc,
		AcademicSvc:    env.AcademicSvc,
		Reports:        env.Reports,
		Cache:          env.Cache,
		AuditRepo:      env.AuditRepo,
		Queue:          env.Queue,
	})
	return env, srv
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

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, env *testutil.Env, usr user.User) string {
	claims := GetUserClaims(usr, env.Conf, time.Now())
	token, err := GenerateToken(claims, env.Conf.SecretKey)
	require.NoError(t, err, "getToken()")
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	require.NoError(t, err, "marshalObj()")
	return data
}

// serve runs the request and decodes the response body into dest, when given.
func serve(t *testing.T, srv *Server, tt httpTest, dest ...interface{}) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	srv.ServeHTTP(rec, req)
	if len(dest) > 0 && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest[0]), "decoding %s", rec.Body.String())
	}
	return rec
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "code; body %s", rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}

func runHTTPTests(t *testing.T, srv *Server, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, serve(t, srv, tt))
		})
	}
}

func ids[T any](objs []T, id func(T) string) []string {
	list := make([]string, 0, len(objs))
	for _, obj := range objs {
		list = append(list, id(obj))
	}
	return list
}

func TestServer_home(t *testing.T) {
	_, srv := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Chuo API!", rec.Body.String())
}

func TestServer_auth(t *testing.T) {
	env, srv := setup(t)
	admin := testutil.CreateUser(t, env.UserRepo, "admin", user.RoleAdmin)

	ghost := user.User{ID: "6f7c1dd4-0f4e-4b55-a3a4-5fbd3f3e59b4", Username: "ghost", Role: user.RoleAdmin}
	expired := GetUserClaims(admin, env.Conf, time.Now().Add(-2*env.Conf.Server.JWTExpirationDelta))
	expiredToken, err := GenerateToken(expired, env.Conf.SecretKey)
	require.NoError(t, err)
	forged, err := GenerateToken(GetUserClaims(admin, env.Conf, time.Now()), "not-the-secret")
	require.NoError(t, err)

	runHTTPTests(t, srv, []httpTest{
		{name: "missing token", path: "/v1/users/me", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "expired token", path: "/v1/users/me", token: expiredToken, wantCode: http.StatusUnauthorized},
		{name: "forged token", path: "/v1/users/me", token: forged, wantCode: http.StatusUnauthorized},
		{
			name: "unknown user", path: "/v1/users/me", token: getToken(t, env, ghost), wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "user not authenticated"}),
		},
		{name: "valid token", path: "/v1/users/me", token: getToken(t, env, admin), wantCode: http.StatusOK},
	})
}

func TestServer_unknownRoute(t *testing.T) {
	env, srv := setup(t)
	admin := testutil.CreateUser(t, env.UserRepo, "admin", user.RoleAdmin)

	rec := serve(t, srv, httpTest{path: "/v1/nothing-here", token: getToken(t, env, admin)})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
