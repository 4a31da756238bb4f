package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/user"
)

// CreateUser stores an active user. profileID links the teacher or student profile matching role.
func CreateUser(t *testing.T, repo user.Repository, uname, role string, profileID ...string) user.User {
	t.Helper()
	usr := user.User{
		Username:     uname,
		Email:        uname + "@chuo.test",
		Role:         role,
		IsActive:     true,
		PasswordHash: []byte("!"), // unusable
		CreatedAt:    time.Now().UTC(),
	}
	if len(profileID) > 0 && profileID[0] != "" {
		switch role {
		case user.RoleTeacher:
			usr.TeacherID = null.StringFrom(profileID[0])
		case user.RoleStudent:
			usr.StudentID = null.StringFrom(profileID[0])
		}
	}
	usr, err := repo.UpdateOrCreateUser(context.Background(), usr)
	require.NoError(t, err, "createUser()")
	return usr
}

func CreateDepartment(t *testing.T, repo academic.Repository, name string) academic.Department {
	t.Helper()
	dept, err := repo.CreateDepartment(context.Background(), academic.Department{Name: name})
	require.NoError(t, err, "createDepartment()")
	return dept
}

func CreateTeacher(t *testing.T, repo academic.Repository, name, email, deptID string) academic.Teacher {
	t.Helper()
	teacher, err := repo.CreateTeacher(context.Background(), academic.Teacher{
		FullName:     name,
		Email:        null.NewString(email, email != ""),
		DepartmentID: null.NewString(deptID, deptID != ""),
		Position:     academic.PositionLecturer,
	})
	require.NoError(t, err, "createTeacher()")
	return teacher
}

func CreateStudent(t *testing.T, repo academic.Repository, name, email, gpa string) academic.Student {
	t.Helper()
	student, err := repo.CreateStudent(context.Background(), academic.Student{
		FullName: name,
		Email:    email,
		Status:   academic.StudentActive,
		GPA:      decimal.RequireFromString(gpa),
	})
	require.NoError(t, err, "createStudent()")
	return student
}

func CreateCourse(t *testing.T, repo academic.Repository, name, teacherID string) academic.Course {
	t.Helper()
	course, err := repo.CreateCourse(context.Background(), academic.Course{
		Name:      name,
		Credits:   3,
		TeacherID: null.NewString(teacherID, teacherID != ""),
	})
	require.NoError(t, err, "createCourse()")
	return course
}

// Enroll enrolls the student in the course, graded when grade is given.
func Enroll(t *testing.T, repo academic.Repository, studentID, courseID string, grade ...int) academic.Enrollment {
	t.Helper()
	e := academic.Enrollment{StudentID: studentID, CourseID: courseID}
	if len(grade) > 0 {
		e.Grade = null.IntFrom(grade[0])
	}
	e, err := repo.CreateEnrollment(context.Background(), e)
	require.NoError(t, err, "enroll()")
	return e
}

func CreateSchedule(
	t *testing.T,
	repo academic.Repository,
	courseID, teacherID, room string,
	day academic.Weekday,
	start, end string,
) academic.Schedule {
	t.Helper()
	s, err := repo.CreateSchedule(context.Background(), academic.Schedule{
		CourseID:  courseID,
		TeacherID: teacherID,
		Room:      room,
		DayOfWeek: day,
		StartTime: start,
		EndTime:   end,
	})
	require.NoError(t, err, "createSchedule()")
	return s
}

func CreateExam(t *testing.T, repo academic.Repository, courseID string, date time.Time) academic.Exam {
	t.Helper()
	exam, err := repo.CreateExam(context.Background(), academic.Exam{CourseID: courseID, Date: date.UTC()})
	require.NoError(t, err, "createExam()")
	return exam
}

func CreateExamResult(t *testing.T, repo academic.Repository, examID, studentID string, grade int) academic.ExamResult {
	t.Helper()
	res, err := repo.CreateExamResult(context.Background(), academic.ExamResult{
		ExamID:    examID,
		StudentID: studentID,
		Grade:     grade,
		Attended:  true,
	})
	require.NoError(t, err, "createExamResult()")
	return res
}

func CreatePayment(t *testing.T, repo academic.Repository, studentID, amount, status string) academic.Payment {
	t.Helper()
	p, err := repo.CreatePayment(context.Background(), academic.Payment{
		StudentID: studentID,
		Amount:    decimal.RequireFromString(amount),
		Status:    status,
	})
	require.NoError(t, err, "createPayment()")
	return p
}
