package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core/user"
)

var collections = []Collection{
	Departments, Teachers, Students, Courses, Enrollments, Schedules, Exams, ExamResults, Payments, AuditLogs,
}

func TestFromUser(t *testing.T) {
	tests := []struct {
		name string
		usr  user.User
		want Principal
	}{
		{name: "admin", usr: user.User{ID: "u1", Role: user.RoleAdmin, IsActive: true}, want: Admin{ID: "u1"}},
		{
			name: "teacher",
			usr:  user.User{ID: "u2", Role: user.RoleTeacher, TeacherID: null.StringFrom("t1"), IsActive: true},
			want: Teacher{ID: "u2", TeacherID: "t1"},
		},
		{name: "unlinked teacher", usr: user.User{ID: "u3", Role: user.RoleTeacher, IsActive: true}, want: Teacher{ID: "u3"}},
		{
			name: "student",
			usr:  user.User{ID: "u4", Role: user.RoleStudent, StudentID: null.StringFrom("s1"), IsActive: true},
			want: Student{ID: "u4", StudentID: "s1"},
		},
		{name: "inactive admin", usr: user.User{ID: "u5", Role: user.RoleAdmin}, want: Anonymous{}},
		{name: "unknown role", usr: user.User{ID: "u6", Role: "dean", IsActive: true}, want: Anonymous{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromUser(tt.usr))
		})
	}
}

func TestScopeOf(t *testing.T) {
	teacher := Teacher{ID: "u2", TeacherID: "t1"}
	student := Student{ID: "u4", StudentID: "s1"}

	tests := []struct {
		name      string
		principal Principal
		want      map[Collection]Scope
	}{
		{
			name:      "admin",
			principal: Admin{ID: "u1"},
			want: map[Collection]Scope{
				Departments: All(), Teachers: All(), Students: All(), Courses: All(), Enrollments: All(),
				Schedules: All(), Exams: All(), ExamResults: All(), Payments: All(), AuditLogs: All(),
			},
		},
		{
			name:      "teacher",
			principal: teacher,
			want: map[Collection]Scope{
				Departments: None(), Teachers: None(),
				Students:    OwnedByTeacher("t1"), Courses: OwnedByTeacher("t1"),
				Enrollments: OwnedByTeacher("t1"), Schedules: OwnedByTeacher("t1"),
				Exams: None(), ExamResults: None(), Payments: None(), AuditLogs: None(),
			},
		},
		{
			name:      "student",
			principal: student,
			want: map[Collection]Scope{
				Departments: None(), Teachers: None(),
				Students:    OwnedByStudent("s1"), Courses: OwnedByStudent("s1"),
				Enrollments: OwnedByStudent("s1"), Schedules: OwnedByStudent("s1"),
				Exams:       OwnedByStudent("s1"), ExamResults: OwnedByStudent("s1"),
				Payments:    OwnedByStudent("s1"), AuditLogs: None(),
			},
		},
		{
			name:      "anonymous",
			principal: Anonymous{},
			want: map[Collection]Scope{
				Departments: Deny(), Teachers: Deny(), Students: Deny(), Courses: Deny(), Enrollments: Deny(),
				Schedules: Deny(), Exams: Deny(), ExamResults: Deny(), Payments: Deny(), AuditLogs: Deny(),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, c := range collections {
				assert.Equal(t, tt.want[c], ScopeOf(tt.principal, c), "collection %s", c)
			}
		})
	}

	assert.Equal(t, Deny(), ScopeOf(Admin{}, "lol"))
}

func TestScope_unlinkedProfiles(t *testing.T) {
	for _, c := range collections {
		assert.False(t, ScopeOf(Teacher{ID: "u3"}, c).Visible(), "teacher %s", c)
		assert.False(t, ScopeOf(Student{ID: "u7"}, c).Visible(), "student %s", c)
	}
	assert.Equal(t, Empty, OwnedByTeacher("").Decision)
	assert.Equal(t, Empty, OwnedByStudent("").Decision)
	assert.True(t, Scope{}.IsDenied())
	assert.Equal(t, "denied", Scope{}.Decision.String())
}

func TestPrincipal_CanWrite(t *testing.T) {
	teacher := Teacher{ID: "u2", TeacherID: "t1"}

	tests := []struct {
		name      string
		principal Principal
		write     Write
		want      bool
	}{
		{name: "admin anything", principal: Admin{}, write: Write{Collection: Payments, Action: Delete}, want: true},
		{name: "teacher creates own course", principal: teacher, write: Write{Collection: Courses, Action: Create, TeacherRef: "t1"}, want: true},
		{name: "teacher deletes own course", principal: teacher, write: Write{Collection: Courses, Action: Delete, TeacherRef: "t1"}, want: true},
		{name: "teacher moves course away", principal: teacher, write: Write{Collection: Courses, Action: Update, TeacherRef: "t2"}},
		{name: "teacher creates unassigned course", principal: teacher, write: Write{Collection: Courses, Action: Create}},
		{name: "teacher grades own enrollment", principal: teacher, write: Write{Collection: Enrollments, Action: Update, TeacherRef: "t1"}, want: true},
		{name: "teacher enrolls", principal: teacher, write: Write{Collection: Enrollments, Action: Create, TeacherRef: "t1"}},
		{name: "teacher schedules", principal: teacher, write: Write{Collection: Schedules, Action: Create, TeacherRef: "t1"}},
		{name: "unlinked teacher", principal: Teacher{ID: "u3"}, write: Write{Collection: Courses, Action: Create}},
		{name: "student", principal: Student{StudentID: "s1"}, write: Write{Collection: Enrollments, Action: Update}},
		{name: "anonymous", principal: Anonymous{}, write: Write{Collection: Courses, Action: Create}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.principal.CanWrite(tt.write))
		})
	}
}
