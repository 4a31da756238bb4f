package echoapi_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/user"
	"github.com/trezcool/chuo/tests"
)

func Test_academicApi_departmentCRUD(t *testing.T) {
	env, srv := setup(t)
	admin := testutil.CreateUser(t, env.UserRepo, "admin", user.RoleAdmin)
	token := getToken(t, env, admin)

	var dept academic.Department
	rec := serve(t, srv, httpTest{
		method: http.MethodPost, path: "/v1/departments", token: token, body: []byte(`{"name": "  Physics "}`),
	}, &dept)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Physics", dept.Name)
	assert.NotEmpty(t, dept.ID)

	path := "/v1/departments/" + dept.ID
	runHTTPTests(t, srv, []httpTest{
		{name: "retrieve", path: path, token: token, wantCode: http.StatusOK, wantData: marshalObj(t, dept)},
		{
			name: "duplicate name", method: http.MethodPost, path: "/v1/departments", token: token,
			body:     []byte(`{"name": "Physics"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"name": "department with this name already exists"}`),
		},
		{
			name: "blank name", method: http.MethodPost, path: "/v1/departments", token: token,
			body: []byte(`{"name": ""}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"name": "this field is required"}`),
		},
		{
			name: "malformed payload", method: http.MethodPost, path: "/v1/departments", token: token,
			body: []byte(`{"name": `), wantCode: http.StatusBadRequest,
		},
		{
			name: "update", method: http.MethodPut, path: path, token: token, body: []byte(`{"name": "Applied Physics"}`),
			wantCode: http.StatusOK, wantData: []byte(`{"id": "` + dept.ID + `", "name": "Applied Physics"}`),
		},
		{name: "delete", method: http.MethodDelete, path: path, token: token, wantCode: http.StatusNoContent},
		{name: "gone", path: path, token: token, wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "not found"})},
		{name: "malformed id", path: "/v1/departments/42", token: token, wantCode: http.StatusNotFound},
		{name: "list", path: "/v1/departments", token: token, wantCode: http.StatusOK, wantData: []byte(`[]`)},
	})
}

func Test_academicApi_scopes(t *testing.T) {
	env, srv := setup(t)
	repo := env.Repo

	dept := testutil.CreateDepartment(t, repo, "Mathematics")
	kim := testutil.CreateTeacher(t, repo, "Kim Otieno", "kim@chuo.test", dept.ID)
	lea := testutil.CreateTeacher(t, repo, "Lea Mushi", "lea@chuo.test", dept.ID)
	algebra := testutil.CreateCourse(t, repo, "Algebra", kim.ID)
	calculus := testutil.CreateCourse(t, repo, "Calculus", lea.ID)
	asha := testutil.CreateStudent(t, repo, "Asha Ndege", "asha@chuo.test", "3.60")
	bakari := testutil.CreateStudent(t, repo, "Bakari Said", "bakari@chuo.test", "2.40")
	e1 := testutil.Enroll(t, repo, asha.ID, algebra.ID, 75)
	testutil.Enroll(t, repo, bakari.ID, calculus.ID)
	pay := testutil.CreatePayment(t, repo, asha.ID, "150.00", academic.PaymentPending)
	testutil.CreatePayment(t, repo, bakari.ID, "80.00", academic.PaymentOverdue)

	admin := getToken(t, env, testutil.CreateUser(t, env.UserRepo, "admin", user.RoleAdmin))
	kimToken := getToken(t, env, testutil.CreateUser(t, env.UserRepo, "kim", user.RoleTeacher, kim.ID))
	noProfile := getToken(t, env, testutil.CreateUser(t, env.UserRepo, "orphan", user.RoleTeacher))
	ashaToken := getToken(t, env, testutil.CreateUser(t, env.UserRepo, "asha", user.RoleStudent, asha.ID))

	courseIDs := func(t *testing.T, token string) []string {
		var courses []academic.Course
		rec := serve(t, srv, httpTest{path: "/v1/courses", token: token}, &courses)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return ids(courses, func(c academic.Course) string { return c.ID })
	}
	t.Run("courses", func(t *testing.T) {
		assert.Equal(t, []string{algebra.ID, calculus.ID}, courseIDs(t, admin))
		assert.Equal(t, []string{algebra.ID}, courseIDs(t, kimToken))
		assert.Equal(t, []string{algebra.ID}, courseIDs(t, ashaToken))
		assert.Empty(t, courseIDs(t, noProfile))
	})

	t.Run("students", func(t *testing.T) {
		var students []academic.Student
		rec := serve(t, srv, httpTest{path: "/v1/students", token: kimToken}, &students)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{asha.ID}, ids(students, func(s academic.Student) string { return s.ID }))
	})

	runHTTPTests(t, srv, []httpTest{
		{name: "teacher sees no payments", path: "/v1/payments", token: kimToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "teacher cannot read other course", path: "/v1/courses/" + calculus.ID, token: kimToken, wantCode: http.StatusNotFound},
		{name: "student reads own payment", path: "/v1/payments/" + pay.ID, token: ashaToken, wantCode: http.StatusOK},
		{name: "student reads own enrollment", path: "/v1/enrollments/" + e1.ID, token: ashaToken, wantCode: http.StatusOK},
		{name: "student cannot list departments", path: "/v1/departments", token: ashaToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{
			name: "student cannot write", method: http.MethodPost, path: "/v1/departments", token: ashaToken,
			body: []byte(`{"name": "Chemistry"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "teacher creates own course", method: http.MethodPost, path: "/v1/courses", token: kimToken,
			body: []byte(`{"name": "Geometry", "credits": 4, "teacher": "` + kim.ID + `"}`), wantCode: http.StatusCreated,
		},
		{
			name: "teacher cannot create course for another teacher", method: http.MethodPost, path: "/v1/courses", token: kimToken,
			body: []byte(`{"name": "Topology", "credits": 4, "teacher": "` + lea.ID + `"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "teacher grades own enrollment", method: http.MethodPut, path: "/v1/enrollments/" + e1.ID, token: kimToken,
			body:     []byte(`{"student": "` + asha.ID + `", "course": "` + algebra.ID + `", "grade": 59}`),
			wantCode: http.StatusOK,
		},
		{
			name: "teacher cannot enroll", method: http.MethodPost, path: "/v1/enrollments", token: kimToken,
			body:     []byte(`{"student": "` + bakari.ID + `", "course": "` + algebra.ID + `"}`),
			wantCode: http.StatusForbidden,
		},
	})

	var graded academic.Enrollment
	rec := serve(t, srv, httpTest{path: "/v1/enrollments/" + e1.ID, token: admin}, &graded)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 59, graded.Grade.Int)
	assert.False(t, graded.Passed)
}

func Test_academicApi_filters(t *testing.T) {
	env, srv := setup(t)
	repo := env.Repo

	teacher := testutil.CreateTeacher(t, repo, "Rehema Juma", "", "")
	chem := testutil.CreateCourse(t, repo, "Chemistry", teacher.ID)
	bio := testutil.CreateCourse(t, repo, "Biology", teacher.ID)
	zawadi := testutil.CreateStudent(t, repo, "Zawadi Mrema", "zawadi@chuo.test", "3.00")
	tumaini := testutil.CreateStudent(t, repo, "Tumaini Lyimo", "tumaini@chuo.test", "2.00")
	testutil.Enroll(t, repo, zawadi.ID, chem.ID)
	testutil.Enroll(t, repo, tumaini.ID, bio.ID)
	march := testutil.CreateExam(t, repo, chem.ID, time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC))
	april := testutil.CreateExam(t, repo, bio.ID, time.Date(2024, time.April, 2, 9, 0, 0, 0, time.UTC))
	testutil.CreatePayment(t, repo, zawadi.ID, "10.00", academic.PaymentPaid)
	overdue := testutil.CreatePayment(t, repo, tumaini.ID, "25.00", academic.PaymentOverdue)

	token := getToken(t, env, testutil.CreateUser(t, env.UserRepo, "admin", user.RoleAdmin))
	query := func(path string, params map[string]string) string {
		v := make(url.Values)
		for key, val := range params {
			v.Set(key, val)
		}
		return path + "?" + v.Encode()
	}

	tests := []struct {
		name    string
		path    string
		wantIDs []string
	}{
		{"students: search", query("/v1/students", map[string]string{"search": "MREMA"}), []string{zawadi.ID}},
		{"students: course", query("/v1/students", map[string]string{"course": bio.ID}), []string{tumaini.ID}},
		{"students: bad course id", query("/v1/students", map[string]string{"course": "nope"}), []string{}},
		{"courses: search", query("/v1/courses", map[string]string{"search": "bio"}), []string{bio.ID}},
		{"exams: course", query("/v1/exams", map[string]string{"course": chem.ID}), []string{march.ID}},
		{"exams: date_from (inclusive)", query("/v1/exams", map[string]string{"date_from": "2024-04-02T09:00:00Z"}), []string{april.ID}},
		{"exams: date_to (exclusive)", query("/v1/exams", map[string]string{"date_to": "2024-03-20T09:00:00Z"}), []string{}},
		{"exams: date range", query("/v1/exams", map[string]string{"date_from": "2024-03-01", "date_to": "2024-04-01"}), []string{march.ID}},
		{"payments: status", query("/v1/payments", map[string]string{"status": "OVERDUE"}), []string{overdue.ID}},
		{"payments: student", query("/v1/payments", map[string]string{"student": tumaini.ID}), []string{overdue.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var objs []struct {
				ID string `json:"id"`
			}
			rec := serve(t, srv, httpTest{path: tt.path, token: token}, &objs)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			got := make([]string, 0, len(objs))
			for _, obj := range objs {
				got = append(got, obj.ID)
			}
			assert.Equal(t, tt.wantIDs, got)
		})
	}

	t.Run("invalid date", func(t *testing.T) {
		rec := serve(t, srv, httpTest{path: "/v1/exams?date_from=13/03/2024", token: token})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"date_from": "invalid date"}`, rec.Body.String())
	})
}

type auditChange map[string]string

func Test_academicApi_audit(t *testing.T) {
	env, srv := setup(t)
	admin := testutil.CreateUser(t, env.UserRepo, "admin", user.RoleAdmin)
	token := getToken(t, env, admin)

	var student academic.Student
	rec := serve(t, srv, httpTest{
		method: http.MethodPost, path: "/v1/students", token: token,
		body: []byte(`{"full_name": "Imani Kweka", "email": "imani@chuo.test", "gpa": "3.2"}`),
	}, &student)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(t, srv, httpTest{
		method: http.MethodPut, path: "/v1/students/" + student.ID, token: token,
		body: []byte(`{"full_name": "Imani Kweka", "email": "imani@chuo.test", "gpa": "3.5", "status": "active"}`),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var logs []struct {
		UserID    *string                `json:"user_id"`
		Action    string                 `json:"action"`
		ModelName string                 `json:"model_name"`
		ObjectID  string                 `json:"object_id"`
		Changes   map[string]auditChange `json:"changes"`
	}
	rec = serve(t, srv, httpTest{path: "/v1/audit-logs?model_name=student", token: token}, &logs)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, logs, 2)

	assert.Equal(t, "update", logs[0].Action)
	assert.Equal(t, "create", logs[1].Action)
	for _, l := range logs {
		assert.Equal(t, student.ID, l.ObjectID)
		if assert.NotNil(t, l.UserID) {
			assert.Equal(t, admin.ID, *l.UserID)
		}
	}
	assert.Equal(t, auditChange{"old": "3.20", "new": "3.50"}, logs[0].Changes["gpa"])

	rec = serve(t, srv, httpTest{path: "/v1/audit-logs?action=delete", token: token})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
