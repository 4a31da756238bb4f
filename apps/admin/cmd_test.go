package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/chuo/apps/api/echo"
	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/access"
	"github.com/trezcool/chuo/core/cache"
	"github.com/trezcool/chuo/core/user"
	"github.com/trezcool/chuo/tests"
)

func setup(t *testing.T) (*testutil.Env, *commandLine, *bytes.Buffer) {
	env := testutil.NewEnv(t)
	out := new(bytes.Buffer)
	cli := &commandLine{
		conf:        env.Conf,
		out:         out,
		usrSvc:      env.UserSvc,
		cache:       env.Cache,
		importer:    env.Importer,
		reminder:    env.Reminder,
		perfReports: env.PerfReports,
	}
	return env, cli, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    string // substring of the output
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, cli *commandLine, out *bytes.Buffer) {
	out.Reset()
	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), tt.wantErrStr)
		}
	default:
		assert.NoError(t, err)
	}
	if tt.wantOut != "" {
		assert.Contains(t, out.String(), tt.wantOut)
	}
}

func Test_commandLine_help(t *testing.T) {
	_, cli, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: "Usage:"},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp, wantOut: "importstudents -file PATH"},
		{name: "token: no username", args: []string{"token"}, wantErr: errHelp},
		{name: "importstudents: no file", args: []string{"importstudents"}, wantErr: errHelp},
		{name: "perfreport: no student", args: []string{"perfreport"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"token", "-lol"}, wantErrStr: "flag provided but not defined: -lol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli, out)
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	_, cli, out := setup(t)

	t.Run("inmem engine", func(t *testing.T) {
		cliTest{args: []string{"migrate", "up"}, wantErr: errNoDatabase}.check(t, cli, out)
	})

	cli.db = sqlx.NewDb(nil, "postgres")
	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	defer func(orig func(*sql.DB, string, ...string) error) { gooseRunFunc = orig }(gooseRunFunc)

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "exam_rooms", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli, out)
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	env, cli, out := setup(t)
	teacher := testutil.CreateTeacher(t, env.Repo, "Kim Mwangi", "", "")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no role", args: []string{"adduser", "-username", "root"}, extra: extra{pwd: "S3cure!pwd"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "root", "-role", "admin"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"adduser", "-username", "root", "-role", "dean"}, extra: extra{pwd: "S3cure!pwd"}, wantErrStr: "oneof"},
		{name: "weak password", args: []string{"adduser", "-username", "root", "-role", "admin"}, extra: extra{pwd: "password"}, wantErrStr: "pwdcplx"},
		{
			name:       "profile of another role",
			args:       []string{"adduser", "-username", "kim", "-role", "student", "-teacher", teacher.ID},
			extra:      extra{pwd: "S3cure!pwd"},
			wantErrStr: "profile",
		},
		{name: "admin", args: []string{"adduser", "-username", "Root", "-role", "admin"}, extra: extra{pwd: "S3cure!pwd"}, wantOut: "User root (admin) saved"},
		{
			name:    "teacher",
			args:    []string{"adduser", "-username", "kim", "-email", "kim@chuo.test", "-role", "teacher", "-teacher", teacher.ID},
			extra:   extra{pwd: "S3cure!pwd"},
			wantOut: "User kim (teacher) saved",
		},
	}
	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli, out)
		})
	}

	root, err := env.UserRepo.GetUserByUsernameOrEmail(context.Background(), "root")
	require.NoError(t, err)
	assert.True(t, root.IsAdmin())
	assert.NoError(t, root.CheckPassword("S3cure!pwd"))

	kim, err := env.UserRepo.GetUserByUsernameOrEmail(context.Background(), "kim@chuo.test")
	require.NoError(t, err)
	assert.Equal(t, teacher.ID, kim.TeacherID.String)

	t.Run("password reset", func(t *testing.T) {
		readPasswordFunc = func(int) ([]byte, error) { return []byte("N3w!secret"), nil }
		cliTest{args: []string{"adduser", "-username", "root", "-role", "admin"}}.check(t, cli, out)

		root, err := env.UserRepo.GetUserByUsernameOrEmail(context.Background(), "root")
		require.NoError(t, err)
		assert.NoError(t, root.CheckPassword("N3w!secret"))
	})
}

func Test_commandLine_token(t *testing.T) {
	env, cli, out := setup(t)
	usr := testutil.CreateUser(t, env.UserRepo, "amina", user.RoleAdmin)

	cliTest{args: []string{"token", "-username", "nobody"}, wantErr: core.ErrNotFound}.check(t, cli, out)
	cliTest{args: []string{"token", "-username", "amina@chuo.test"}}.check(t, cli, out)

	claims := new(echoapi.Claims)
	_, err := jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims, func(*jwt.Token) (interface{}, error) {
		return []byte(env.Conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, claims.Subject)
	assert.Equal(t, user.RoleAdmin, claims.Role)
}

func Test_commandLine_importStudents(t *testing.T) {
	env, cli, out := setup(t)

	var sb strings.Builder
	sb.WriteString("email,full_name,gpa,status\n")
	sb.WriteString("neema@chuo.test,Neema Massawe,3.4,active\n")
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&sb, "broken%d,Broken Row,2.0,active\n", i)
	}
	path := filepath.Join(t.TempDir(), "students.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))

	tests := []cliTest{
		{name: "missing file", args: []string{"importstudents", "-file", filepath.Join(t.TempDir(), "nope.csv")}, wantErrStr: "nope.csv"},
		{name: "import", args: []string{"importstudents", "-file", path}, wantOut: "Import finished: created 1, updated 0, 12 errors"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli, out)
		})
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 12) // summary, 10 errors, remainder
	assert.Contains(t, lines[1], "Row 3: email:")
	assert.Equal(t, "... and 2 more", lines[11])

	students, err := env.Repo.QueryStudents(context.Background(), access.All(), academic.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "neema@chuo.test", students[0].Email)
}

func Test_commandLine_warmCache(t *testing.T) {
	env, cli, out := setup(t)
	testutil.CreateCourse(t, env.Repo, "Algebra", "")

	cliTest{args: []string{"warmcache"}, wantOut: "Cache warmed"}.check(t, cli, out)

	var courses []interface{}
	require.NoError(t, env.CacheStore.Get(context.Background(), cache.CoursesKey, &courses))
	assert.Len(t, courses, 1)
	assert.NoError(t, env.CacheStore.Get(context.Background(), cache.ScheduleKey, &courses))
	assert.NoError(t, env.CacheStore.Get(context.Background(), cache.DebtorsKey, &courses))
}

func Test_commandLine_remindExams(t *testing.T) {
	env, cli, out := setup(t)
	course := testutil.CreateCourse(t, env.Repo, "Algebra", "")
	student := testutil.CreateStudent(t, env.Repo, "Asha Juma", "asha@chuo.test", "3.1")
	testutil.Enroll(t, env.Repo, student.ID, course.ID)
	testutil.CreateExam(t, env.Repo, course.ID, testutil.Now.AddDate(0, 0, 1))

	cliTest{args: []string{"remindexams"}, wantOut: "Sent 1 exam reminders"}.check(t, cli, out)
	require.Len(t, env.Mailer.SentMessages(), 1)
	assert.Equal(t, "asha@chuo.test", env.Mailer.SentMessages()[0].To[0].Address)
}

func Test_commandLine_performanceReport(t *testing.T) {
	env, cli, out := setup(t)
	student := testutil.CreateStudent(t, env.Repo, "Asha Juma", "asha@chuo.test", "3.1")

	cliTest{args: []string{"perfreport", "-student", "lol"}, wantErr: core.ErrNotFound}.check(t, cli, out)
	cliTest{args: []string{"perfreport", "-student", student.ID}, wantOut: "Report saved to"}.check(t, cli, out)

	path := strings.TrimPrefix(strings.TrimSpace(out.String()), "Report saved to ")
	assert.FileExists(t, path)
	assert.Equal(t, env.Conf.ReportsDir, filepath.Dir(path))
}
