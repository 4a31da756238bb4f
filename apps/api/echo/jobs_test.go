package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/chuo/apps/api/echo"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/access"
	"github.com/trezcool/chuo/core/jobs"
	"github.com/trezcool/chuo/core/task"
	"github.com/trezcool/chuo/core/user"
	"github.com/trezcool/chuo/tests"
)

const studentsCSV = `email,full_name,gpa,status
neema@chuo.test,Neema Massawe,3.456,active
not-an-email,Broken Row,2.00,active
juma@chuo.test,Juma Kombo,1.5,
`

func uploadRequest(t *testing.T, srv *Server, token, filename, content string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/import-students", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func Test_jobApi_importStudents(t *testing.T) {
	env, srv := setup(t)
	admin := testutil.CreateUser(t, env.UserRepo, "admin", user.RoleAdmin)
	token := getToken(t, env, admin)

	t.Run("admin only", func(t *testing.T) {
		teacher := testutil.CreateTeacher(t, env.Repo, "Kim Otieno", "", "")
		usr := testutil.CreateUser(t, env.UserRepo, "kim", user.RoleTeacher, teacher.ID)
		rec := uploadRequest(t, srv, getToken(t, env, usr), "students.csv", studentsCSV)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("file required", func(t *testing.T) {
		rec := uploadRequest(t, srv, token, "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"file": "file is a required field"}`, rec.Body.String())
	})

	t.Run("unsupported format", func(t *testing.T) {
		rec := uploadRequest(t, srv, token, "students.pdf", "%PDF")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("queued and imported", func(t *testing.T) {
		env.Mailer.Reset()
		rec := uploadRequest(t, srv, token, "students.csv", studentsCSV)
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

		var job task.Job
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
		assert.Equal(t, jobs.ImportStudents, job.Name)
		var args jobs.ImportArgs
		require.NoError(t, job.Decode(&args))
		assert.Equal(t, admin.Email, args.RequestedBy)
		assert.Equal(t, admin.ID, args.UserID)
		assert.Equal(t, env.Conf.UploadsDir, filepath.Dir(args.Path))
		assert.FileExists(t, args.Path)

		// the test queue runs jobs synchronously
		students, err := env.AcademicSvc.ListStudents(context.Background(), access.Admin{ID: admin.ID}, academic.QueryFilter{})
		require.NoError(t, err)
		require.Len(t, students, 2)
		assert.Equal(t, "Juma Kombo", students[0].FullName)
		assert.Equal(t, academic.StudentActive, students[0].Status)
		assert.Equal(t, "3.46", students[1].GPA.StringFixed(2))

		sent := env.Mailer.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, admin.Email, sent[0].To[0].Address)
		assert.Equal(t, "Student import finished", sent[0].Subject)
	})
}

func Test_jobApi_performanceReport(t *testing.T) {
	env, srv := setup(t)
	repo := env.Repo
	teacher := testutil.CreateTeacher(t, repo, "Kim Otieno", "", "")
	course := testutil.CreateCourse(t, repo, "Algebra", teacher.ID)
	asha := testutil.CreateStudent(t, repo, "Asha Ndege", "asha@chuo.test", "3.60")
	bakari := testutil.CreateStudent(t, repo, "Bakari Said", "bakari@chuo.test", "2.40")
	testutil.Enroll(t, repo, asha.ID, course.ID, 88)

	ashaToken := getToken(t, env, testutil.CreateUser(t, env.UserRepo, "asha", user.RoleStudent, asha.ID))
	teacherToken := getToken(t, env, testutil.CreateUser(t, env.UserRepo, "kim", user.RoleTeacher, teacher.ID))

	runHTTPTests(t, srv, []httpTest{
		{name: "other student", method: http.MethodPost, path: "/v1/students/" + bakari.ID + "/performance-report", token: ashaToken, wantCode: http.StatusNotFound},
		{name: "teacher of the student", method: http.MethodPost, path: "/v1/students/" + asha.ID + "/performance-report", token: teacherToken, wantCode: http.StatusAccepted},
		{name: "own report", method: http.MethodPost, path: "/v1/students/" + asha.ID + "/performance-report", token: ashaToken, wantCode: http.StatusAccepted},
	})

	path := filepath.Join(env.Conf.ReportsDir, "report_"+asha.ID+"_20240313_1000.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"student": "Asha Ndege"`)
	assert.Contains(t, string(data), `"name": "Algebra"`)
}

func Test_jobApi_examReminders(t *testing.T) {
	env, srv := setup(t)
	repo := env.Repo
	course := testutil.CreateCourse(t, repo, "Algebra", "")
	asha := testutil.CreateStudent(t, repo, "Asha Ndege", "asha@chuo.test", "3.60")
	testutil.Enroll(t, repo, asha.ID, course.ID)
	testutil.CreateExam(t, repo, course.ID, testutil.Now.AddDate(0, 0, 1))

	adminToken := getToken(t, env, testutil.CreateUser(t, env.UserRepo, "admin", user.RoleAdmin))
	studentToken := getToken(t, env, testutil.CreateUser(t, env.UserRepo, "asha", user.RoleStudent, asha.ID))

	rec := serve(t, srv, httpTest{method: http.MethodPost, path: "/v1/jobs/exam-reminders", token: studentToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, env.Mailer.SentMessages())

	rec = serve(t, srv, httpTest{method: http.MethodPost, path: "/v1/jobs/exam-reminders", token: adminToken})
	assert.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	sent := env.Mailer.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "asha@chuo.test", sent[0].To[0].Address)
}
