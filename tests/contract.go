package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/access"
	"github.com/trezcool/chuo/core/audit"
	"github.com/trezcool/chuo/core/report"
	"github.com/trezcool/chuo/core/user"
)

// Repos are the stores of one database engine, emptied for every subtest.
type Repos struct {
	Academic academic.Repository
	Reports  report.Repository
	Users    user.Repository
	Audit    audit.Repository
}

// RunRepositoryContract checks the behaviour every database engine must share.
func RunRepositoryContract(t *testing.T, open func(t *testing.T) Repos) {
	ctx := context.Background()

	isDuplicate := func(t *testing.T, err error) {
		t.Helper()
		vErr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, academic.ErrDuplicate, vErr.Err)
	}

	t.Run("uniqueness", func(t *testing.T) {
		r := open(t)
		asha := CreateStudent(t, r.Academic, "Asha", "asha@chuo.test", "3.0")
		algebra := CreateCourse(t, r.Academic, "Algebra", "")
		Enroll(t, r.Academic, asha.ID, algebra.ID)

		_, err := r.Academic.CreateStudent(ctx, academic.Student{
			FullName: "Asha Bis", Email: "asha@chuo.test", Status: academic.StudentActive,
		})
		isDuplicate(t, err)

		_, err = r.Academic.CreateEnrollment(ctx, academic.Enrollment{StudentID: asha.ID, CourseID: algebra.ID})
		isDuplicate(t, err)

		CreateDepartment(t, r.Academic, "Maths")
		_, err = r.Academic.CreateDepartment(ctx, academic.Department{Name: "Maths"})
		isDuplicate(t, err)
	})

	t.Run("scopes", func(t *testing.T) {
		r := open(t)
		kim := CreateTeacher(t, r.Academic, "Kim", "kim@chuo.test", "")
		lea := CreateTeacher(t, r.Academic, "Lea", "", "")
		algebra := CreateCourse(t, r.Academic, "Algebra", kim.ID)
		physics := CreateCourse(t, r.Academic, "Physics", lea.ID)
		asha := CreateStudent(t, r.Academic, "Asha", "asha@chuo.test", "3.0")
		bakari := CreateStudent(t, r.Academic, "Bakari", "bakari@chuo.test", "2.0")
		Enroll(t, r.Academic, asha.ID, algebra.ID)
		Enroll(t, r.Academic, bakari.ID, physics.ID)

		courses, err := r.Academic.QueryCourses(ctx, access.OwnedByTeacher(kim.ID), academic.QueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"Algebra"}, courseNames(courses))

		students, err := r.Academic.QueryStudents(ctx, access.OwnedByTeacher(kim.ID), academic.QueryFilter{})
		require.NoError(t, err)
		require.Len(t, students, 1)
		assert.Equal(t, asha.ID, students[0].ID)

		courses, err = r.Academic.QueryCourses(ctx, access.OwnedByStudent(bakari.ID), academic.QueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"Physics"}, courseNames(courses))

		courses, err = r.Academic.QueryCourses(ctx, access.All(), academic.QueryFilter{Search: "PHYS"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Physics"}, courseNames(courses))

		for _, scope := range []access.Scope{access.None(), access.Deny()} {
			courses, err = r.Academic.QueryCourses(ctx, scope, academic.QueryFilter{})
			require.NoError(t, err)
			assert.Empty(t, courses)
		}

		_, err = r.Academic.GetCourse(ctx, physics.ID, access.OwnedByTeacher(kim.ID))
		assert.Equal(t, core.ErrNotFound, errors.Cause(err), "outside the scope")
		_, err = r.Academic.GetCourse(ctx, physics.ID, access.OwnedByStudent(bakari.ID))
		assert.NoError(t, err)
		_, err = r.Academic.GetCourse(ctx, "42", access.All())
		assert.Equal(t, core.ErrNotFound, errors.Cause(err), "not a uuid")
		_, err = r.Academic.GetCourse(ctx, uuid.New().String(), access.All())
		assert.Equal(t, core.ErrNotFound, errors.Cause(err))

		// teachers own no teacher or department rows, not even their own profile
		teachers, err := r.Academic.QueryTeachers(ctx, access.OwnedByTeacher(kim.ID), academic.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, teachers)
		_, err = r.Academic.GetTeacher(ctx, kim.ID, access.OwnedByTeacher(kim.ID))
		assert.Equal(t, core.ErrNotFound, errors.Cause(err))
		depts, err := r.Academic.QueryDepartments(ctx, access.OwnedByTeacher(kim.ID), academic.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, depts)
	})

	t.Run("enrollments", func(t *testing.T) {
		r := open(t)
		asha := CreateStudent(t, r.Academic, "Asha", "asha@chuo.test", "3.0")
		algebra := CreateCourse(t, r.Academic, "Algebra", "")

		e := Enroll(t, r.Academic, asha.ID, algebra.ID, 60)
		assert.True(t, e.Passed)
		assert.False(t, e.EnrollmentDate.IsZero())
		assert.Equal(t, "Asha", e.StudentName)
		assert.Equal(t, "Algebra", e.CourseName)

		e.Grade = null.IntFrom(59)
		e.EnrollmentDate = time.Time{}
		updated, err := r.Academic.UpdateEnrollment(ctx, e)
		require.NoError(t, err)
		assert.False(t, updated.Passed)
		assert.False(t, updated.EnrollmentDate.IsZero(), "kept")

		updated.Grade = null.Int{}
		updated, err = r.Academic.UpdateEnrollment(ctx, updated)
		require.NoError(t, err)
		assert.False(t, updated.Passed, "ungraded")
	})

	t.Run("schedule order", func(t *testing.T) {
		r := open(t)
		kim := CreateTeacher(t, r.Academic, "Kim", "", "")
		algebra := CreateCourse(t, r.Academic, "Algebra", kim.ID)
		CreateSchedule(t, r.Academic, algebra.ID, kim.ID, "B12", academic.Friday, "08:00", "09:30")
		CreateSchedule(t, r.Academic, algebra.ID, kim.ID, "B12", academic.Monday, "10:00", "11:30")
		CreateSchedule(t, r.Academic, algebra.ID, kim.ID, "B12", academic.Monday, "08:00", "09:30")

		_, err := r.Academic.CreateSchedule(ctx, academic.Schedule{
			CourseID: algebra.ID, TeacherID: kim.ID, Room: "B12", DayOfWeek: academic.Monday,
			StartTime: "08:00", EndTime: "09:00",
		})
		isDuplicate(t, err)

		slots, err := r.Academic.QuerySchedules(ctx, access.All(), academic.QueryFilter{})
		require.NoError(t, err)
		var got []string
		for _, sc := range slots {
			got = append(got, string(sc.DayOfWeek)+" "+sc.StartTime)
		}
		assert.Equal(t, []string{"monday 08:00", "monday 10:00", "friday 08:00"}, got)

		entries, err := r.Reports.TeacherWeekSchedule(ctx, kim.ID)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "Kim", entries[0].TeacherName)
		assert.Equal(t, academic.Friday, entries[2].DayOfWeek)
	})

	t.Run("cascades", func(t *testing.T) {
		r := open(t)
		dept := CreateDepartment(t, r.Academic, "Maths")
		kim := CreateTeacher(t, r.Academic, "Kim", "", dept.ID)
		algebra := CreateCourse(t, r.Academic, "Algebra", kim.ID)
		physics := CreateCourse(t, r.Academic, "Physics", kim.ID)
		asha := CreateStudent(t, r.Academic, "Asha", "asha@chuo.test", "3.0")
		Enroll(t, r.Academic, asha.ID, algebra.ID)
		Enroll(t, r.Academic, asha.ID, physics.ID)
		CreateSchedule(t, r.Academic, algebra.ID, kim.ID, "B12", academic.Monday, "08:00", "09:30")
		exam := CreateExam(t, r.Academic, algebra.ID, Now)
		CreateExamResult(t, r.Academic, exam.ID, asha.ID, 80)
		CreatePayment(t, r.Academic, asha.ID, "100", academic.PaymentPending)

		require.NoError(t, r.Academic.DeleteDepartment(ctx, dept.ID))
		kimAfter, err := r.Academic.GetTeacher(ctx, kim.ID, access.All())
		require.NoError(t, err)
		assert.False(t, kimAfter.DepartmentID.Valid)

		require.NoError(t, r.Academic.DeleteCourse(ctx, algebra.ID))
		enrollments, err := r.Academic.QueryEnrollments(ctx, access.All(), academic.QueryFilter{})
		require.NoError(t, err)
		require.Len(t, enrollments, 1)
		assert.Equal(t, physics.ID, enrollments[0].CourseID)
		exams, err := r.Academic.QueryExams(ctx, access.All(), academic.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, exams)
		results, err := r.Academic.QueryExamResults(ctx, access.All(), academic.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, results)
		slots, err := r.Academic.QuerySchedules(ctx, access.All(), academic.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, slots)

		CreateSchedule(t, r.Academic, physics.ID, kim.ID, "B12", academic.Monday, "08:00", "09:30")
		require.NoError(t, r.Academic.DeleteTeacher(ctx, kim.ID))
		physicsAfter, err := r.Academic.GetCourse(ctx, physics.ID, access.All())
		require.NoError(t, err)
		assert.False(t, physicsAfter.TeacherID.Valid)
		slots, err = r.Academic.QuerySchedules(ctx, access.All(), academic.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, slots)

		require.NoError(t, r.Academic.DeleteStudent(ctx, asha.ID))
		payments, err := r.Academic.QueryPayments(ctx, access.All(), academic.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, payments)
		enrollments, err = r.Academic.QueryEnrollments(ctx, access.All(), academic.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, enrollments)

		assert.Equal(t, core.ErrNotFound, errors.Cause(r.Academic.DeleteStudent(ctx, asha.ID)))
	})

	t.Run("transactions", func(t *testing.T) {
		r := open(t)
		boom := errors.New("boom")

		err := r.Academic.InTx(ctx, func(tx academic.Repository) error {
			if _, err := tx.CreateStudent(ctx, academic.Student{FullName: "Asha", Email: "asha@chuo.test", Status: academic.StudentActive}); err != nil {
				return err
			}
			// the transaction sees its own writes
			if _, err := tx.GetStudentByEmail(ctx, "asha@chuo.test"); err != nil {
				return err
			}
			return boom
		})
		assert.Equal(t, boom, errors.Cause(err))
		_, err = r.Academic.GetStudentByEmail(ctx, "asha@chuo.test")
		assert.Equal(t, core.ErrNotFound, errors.Cause(err), "rolled back")

		err = r.Academic.InTx(ctx, func(tx academic.Repository) error {
			_, err := tx.CreateStudent(ctx, academic.Student{FullName: "Asha", Email: "asha@chuo.test", Status: academic.StudentActive})
			return err
		})
		require.NoError(t, err)
		_, err = r.Academic.GetStudentByEmail(ctx, "asha@chuo.test")
		assert.NoError(t, err, "committed")

		// a failed audit entry never aborts the transaction
		rec := audit.NewRecorder(NewLogger(&core.Config{TestMode: true}), clockwork.NewFakeClockAt(Now))
		ghostCtx := audit.WithActor(ctx, uuid.New().String()) // no such user
		err = academic.NewAuditedRepository(r.Academic, rec).InTx(ghostCtx, func(tx academic.Repository) error {
			if _, err := tx.CreateStudent(ghostCtx, academic.Student{FullName: "Bakari", Email: "bakari@chuo.test", Status: academic.StudentActive}); err != nil {
				return err
			}
			_, err := tx.CreateCourse(ghostCtx, academic.Course{Name: "Physics", Credits: 3})
			return err
		})
		require.NoError(t, err)
		_, err = r.Academic.GetStudentByEmail(ctx, "bakari@chuo.test")
		assert.NoError(t, err, "committed")
	})

	t.Run("reports", func(t *testing.T) {
		r := open(t)
		algebra := CreateCourse(t, r.Academic, "Algebra", "")
		asha := CreateStudent(t, r.Academic, "Asha", "asha@chuo.test", "3.5")
		bakari := CreateStudent(t, r.Academic, "Bakari", "bakari@chuo.test", "2")
		CreateStudent(t, r.Academic, "Chidi", "chidi@chuo.test", "0")
		dina := CreateStudent(t, r.Academic, "Dina", "dina@chuo.test", "3.5")
		Enroll(t, r.Academic, asha.ID, algebra.ID, 75)
		Enroll(t, r.Academic, dina.ID, algebra.ID, 50)
		Enroll(t, r.Academic, bakari.ID, algebra.ID)

		above, err := r.Reports.StudentsAboveAverage(ctx)
		require.NoError(t, err)
		require.Len(t, above, 1, "only graded-free students with a positive GPA")
		assert.Equal(t, bakari.ID, above[0].ID)
		assert.True(t, above[0].CourseAvgGrade.IsZero())

		stats, err := r.Reports.CourseGradeStats(ctx, algebra.ID)
		require.NoError(t, err)
		assert.Equal(t, "62.5", stats.AverageGrade.StringFixed(1))
		assert.Equal(t, 1, stats.PassedStudents)
		assert.Equal(t, 3, stats.TotalStudents)

		stats, err = r.Reports.CourseGradeStats(ctx, uuid.New().String())
		require.NoError(t, err)
		assert.Zero(t, stats.TotalStudents)
		assert.True(t, stats.AverageGrade.IsZero())

		ranked, err := r.Reports.RankStudentsByGPA(ctx, 3)
		require.NoError(t, err)
		var ranks []string
		for _, s := range ranked {
			ranks = append(ranks, s.FullName+" "+decimal.NewFromInt(int64(s.RankPosition)).String())
		}
		assert.ElementsMatch(t, []string{"Asha 1", "Dina 1", "Bakari 3"}, ranks)

		CreatePayment(t, r.Academic, asha.ID, "100", academic.PaymentPending)
		CreatePayment(t, r.Academic, asha.ID, "50.50", academic.PaymentOverdue)
		CreatePayment(t, r.Academic, asha.ID, "300", academic.PaymentPaid)
		CreatePayment(t, r.Academic, bakari.ID, "20", academic.PaymentCanceled)
		CreatePayment(t, r.Academic, dina.ID, "200", academic.PaymentOverdue)

		debtors, err := r.Reports.Debtors(ctx)
		require.NoError(t, err)
		require.Len(t, debtors, 2)
		assert.Equal(t, dina.ID, debtors[0].ID, "largest debt first")
		assert.Equal(t, "200.00", debtors[0].Debt.StringFixed(2))
		assert.Equal(t, "150.50", debtors[1].Debt.StringFixed(2))
	})

	t.Run("users", func(t *testing.T) {
		r := open(t)
		asha := CreateStudent(t, r.Academic, "Asha", "asha@chuo.test", "3.0")
		usr := CreateUser(t, r.Users, "asha", user.RoleStudent, asha.ID)

		got, err := r.Users.GetUserByUsernameOrEmail(ctx, "asha@chuo.test")
		require.NoError(t, err)
		assert.Equal(t, usr.ID, got.ID)
		assert.Equal(t, asha.ID, got.StudentID.String)

		got.Email = "asha.m@chuo.test"
		updated, err := r.Users.UpdateOrCreateUser(ctx, got)
		require.NoError(t, err)
		assert.Equal(t, usr.ID, updated.ID, "matched on the username")

		got, err = r.Users.GetUserByID(ctx, usr.ID)
		require.NoError(t, err)
		assert.Equal(t, "asha.m@chuo.test", got.Email)

		_, err = r.Users.UpdateOrCreateUser(ctx, user.User{
			Username:     "impostor",
			Role:         user.RoleStudent,
			StudentID:    null.StringFrom(asha.ID),
			PasswordHash: []byte("!"),
			CreatedAt:    Now,
		})
		isDuplicate(t, err)

		_, err = r.Users.GetUserByID(ctx, "42")
		assert.Equal(t, core.ErrNotFound, errors.Cause(err))
	})

	t.Run("audit logs", func(t *testing.T) {
		r := open(t)
		for i, action := range []audit.Action{audit.ActionCreate, audit.ActionUpdate, audit.ActionDelete} {
			require.NoError(t, r.Audit.CreateAuditLog(ctx, audit.Log{
				ID:         uuid.New().String(),
				Action:     action,
				ModelName:  "Course",
				ObjectID:   "c1",
				ObjectRepr: "Algebra",
				Changes:    null.JSONFrom([]byte(`{"credits": {"old": "3", "new": "4"}}`)),
				Timestamp:  Now.Add(time.Duration(i) * time.Minute),
			}))
		}

		logs, err := r.Audit.QueryAuditLogs(ctx, audit.QueryFilter{})
		require.NoError(t, err)
		require.Len(t, logs, 3)
		assert.Equal(t, audit.ActionDelete, logs[0].Action, "newest first")
		assert.False(t, logs[0].UserID.Valid, "system")
		assert.JSONEq(t, `{"credits": {"old": "3", "new": "4"}}`, string(logs[0].Changes.JSON))

		logs, err = r.Audit.QueryAuditLogs(ctx, audit.QueryFilter{Action: string(audit.ActionUpdate)})
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.True(t, Now.Add(time.Minute).Equal(logs[0].Timestamp))
	})
}

func courseNames(courses []academic.Course) []string {
	names := make([]string, 0, len(courses))
	for _, c := range courses {
		names = append(names, c.Name)
	}
	return names
}
