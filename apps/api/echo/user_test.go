package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chuo/core/audit"
	"github.com/trezcool/chuo/core/user"
	"github.com/trezcool/chuo/tests"
)

func Test_userApi_me(t *testing.T) {
	env, srv := setup(t)
	student := testutil.CreateStudent(t, env.Repo, "Amani Kisanga", "amani@chuo.test", "3.10")
	usr := testutil.CreateUser(t, env.UserRepo, "amani", user.RoleStudent, student.ID)

	var got user.User
	rec := serve(t, srv, httpTest{path: "/v1/users/me", token: getToken(t, env, usr)}, &got)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usr.ID, got.ID)
	assert.Equal(t, student.ID, got.StudentID.String)
	assert.NotContains(t, rec.Body.String(), "password")
}

func Test_userApi_save(t *testing.T) {
	env, srv := setup(t)
	admin := testutil.CreateUser(t, env.UserRepo, "admin", user.RoleAdmin)
	teacher := testutil.CreateTeacher(t, env.Repo, "Baraka Mollel", "baraka@chuo.test", "")
	teacherUsr := testutil.CreateUser(t, env.UserRepo, "baraka", user.RoleTeacher, teacher.ID)
	adminToken := getToken(t, env, admin)

	tests := []httpTest{
		{
			name: "admin only", method: http.MethodPost, path: "/v1/users", token: getToken(t, env, teacherUsr),
			body:     []byte(`{"username": "neema", "role": "student", "password": "Str0ng!Passw0rd"}`),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "invalid payload", method: http.MethodPost, path: "/v1/users", token: adminToken,
			body:     []byte(`{"username": "", "role": "dean", "password": "Str0ng!Passw0rd"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown teacher profile", method: http.MethodPost, path: "/v1/users", token: adminToken,
			body: []byte(`{"username": "juma", "role": "teacher", "teacher_id": "6f7c1dd4-0f4e-4b55-a3a4-5fbd3f3e59b4",
				"password": "Str0ng!Passw0rd"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"teacher_id": "invalid reference"}`),
		},
		{
			name: "created", method: http.MethodPost, path: "/v1/users", token: adminToken,
			body:     []byte(`{"username": "neema", "email": "neema@chuo.test", "role": "admin", "password": "Str0ng!Passw0rd"}`),
			wantCode: http.StatusCreated,
		},
	}
	runHTTPTests(t, srv, tests)

	usr, err := env.UserSvc.GetByUsernameOrEmail(context.Background(), "NEEMA@chuo.test")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, usr.Role)
	assert.NoError(t, usr.CheckPassword("Str0ng!Passw0rd"))

	// saved users are audited, credentials are never diffed
	rec := serve(t, srv, httpTest{
		method: http.MethodPost, path: "/v1/users", token: adminToken,
		body: []byte(`{"username": "neema", "email": "neema@chuo.test", "role": "student", "password": "N3w!Passw0rd"}`),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var logs []audit.Log
	rec = serve(t, srv, httpTest{path: "/v1/audit-logs?model_name=user", token: adminToken}, &logs)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, logs, 2)
	assert.Equal(t, audit.ActionUpdate, logs[0].Action)
	assert.Equal(t, audit.ActionCreate, logs[1].Action)
	for _, l := range logs {
		assert.Equal(t, usr.ID, l.ObjectID)
		assert.Equal(t, admin.ID, l.UserID.String)
	}
	assert.JSONEq(t, `{"role": {"old": "admin", "new": "student"}}`, string(logs[0].Changes.JSON))
}
