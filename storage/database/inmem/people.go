package inmemdb

import (
	"context"
	"strings"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/access"
)

// Departments

func (t *tables) checkDepartment(dept academic.Department) error {
	for _, d := range t.departments {
		if d.ID != dept.ID && d.Name == dept.Name {
			return academic.NewDuplicateError("department", "name")
		}
	}
	return nil
}

func (r *academicRepository) QueryDepartments(_ context.Context, scope access.Scope, _ academic.QueryFilter) (depts []academic.Department, err error) {
	err = r.read(func(t *tables) error {
		depts = rows(t.departments,
			func(d academic.Department) bool { return visible(scope, func() bool { return unowned(scope, d) }) },
			func(a, b academic.Department) bool { return a.Name < b.Name })
		return nil
	})
	return depts, err
}

func (r *academicRepository) GetDepartment(_ context.Context, id string, scope access.Scope) (dept academic.Department, err error) {
	err = r.read(func(t *tables) error {
		dept, err = getRow(t.departments, id, scope, unowned[academic.Department])
		return err
	})
	return dept, err
}

func (r *academicRepository) CreateDepartment(_ context.Context, dept academic.Department) (academic.Department, error) {
	dept.ID = newID()
	err := r.write(func(t *tables) error {
		if err := t.checkDepartment(dept); err != nil {
			return err
		}
		t.departments[dept.ID] = dept
		return nil
	})
	return dept, err
}

func (r *academicRepository) UpdateDepartment(_ context.Context, dept academic.Department) (academic.Department, error) {
	err := r.write(func(t *tables) error {
		if _, ok := t.departments[dept.ID]; !ok {
			return core.ErrNotFound
		}
		if err := t.checkDepartment(dept); err != nil {
			return err
		}
		t.departments[dept.ID] = dept
		return nil
	})
	return dept, err
}

func (r *academicRepository) DeleteDepartment(_ context.Context, id string) error {
	return r.write(func(t *tables) error {
		if _, ok := t.departments[id]; !ok {
			return core.ErrNotFound
		}
		delete(t.departments, id)
		for tid, teacher := range t.teachers {
			if teacher.DepartmentID.Valid && teacher.DepartmentID.String == id {
				teacher.DepartmentID = null.String{}
				t.teachers[tid] = teacher
			}
		}
		return nil
	})
}

// Teachers

func (t *tables) teacherRow(teacher academic.Teacher) academic.Teacher {
	teacher.DepartmentName = null.String{}
	if teacher.DepartmentID.Valid {
		if d, ok := t.departments[teacher.DepartmentID.String]; ok {
			teacher.DepartmentName = null.StringFrom(d.Name)
		}
	}
	return teacher
}

func (t *tables) checkTeacher(teacher academic.Teacher) error {
	if teacher.DepartmentID.Valid {
		if _, ok := t.departments[teacher.DepartmentID.String]; !ok {
			return invalidReference("department")
		}
	}
	if teacher.Email.Valid {
		for _, other := range t.teachers {
			if other.ID != teacher.ID && other.Email.Valid && other.Email.String == teacher.Email.String {
				return academic.NewDuplicateError("teacher", "email")
			}
		}
	}
	return nil
}

func (r *academicRepository) QueryTeachers(_ context.Context, scope access.Scope, filter academic.QueryFilter) (teachers []academic.Teacher, err error) {
	err = r.read(func(t *tables) error {
		teachers = rows(t.teachers,
			func(teacher academic.Teacher) bool {
				if filter.Search != "" && !contains(filter.Search, teacher.FullName, teacher.Email.String) {
					return false
				}
				return visible(scope, func() bool { return unowned(scope, teacher) })
			},
			func(a, b academic.Teacher) bool {
				if a.FullName != b.FullName {
					return a.FullName < b.FullName
				}
				return a.ID < b.ID
			})
		for i := range teachers {
			teachers[i] = t.teacherRow(teachers[i])
		}
		return nil
	})
	return teachers, err
}

func (r *academicRepository) GetTeacher(_ context.Context, id string, scope access.Scope) (teacher academic.Teacher, err error) {
	err = r.read(func(t *tables) error {
		teacher, err = getRow(t.teachers, id, scope, unowned[academic.Teacher])
		teacher = t.teacherRow(teacher)
		return err
	})
	return teacher, err
}

func (r *academicRepository) CreateTeacher(_ context.Context, teacher academic.Teacher) (academic.Teacher, error) {
	teacher.ID = newID()
	err := r.write(func(t *tables) error {
		if err := t.checkTeacher(teacher); err != nil {
			return err
		}
		t.teachers[teacher.ID] = teacher
		teacher = t.teacherRow(teacher)
		return nil
	})
	return teacher, err
}

func (r *academicRepository) UpdateTeacher(_ context.Context, teacher academic.Teacher) (academic.Teacher, error) {
	err := r.write(func(t *tables) error {
		if _, ok := t.teachers[teacher.ID]; !ok {
			return core.ErrNotFound
		}
		if err := t.checkTeacher(teacher); err != nil {
			return err
		}
		t.teachers[teacher.ID] = teacher
		teacher = t.teacherRow(teacher)
		return nil
	})
	return teacher, err
}

func (r *academicRepository) DeleteTeacher(_ context.Context, id string) error {
	return r.write(func(t *tables) error {
		if _, ok := t.teachers[id]; !ok {
			return core.ErrNotFound
		}
		delete(t.teachers, id)
		for cid, c := range t.courses {
			if c.TeacherID.Valid && c.TeacherID.String == id {
				c.TeacherID = null.String{}
				t.courses[cid] = c
			}
		}
		for sid, sc := range t.schedules {
			if sc.TeacherID == id {
				delete(t.schedules, sid)
			}
		}
		t.unlinkUsers(id, "")
		return nil
	})
}

// Students

func (t *tables) checkStudent(st academic.Student) error {
	for _, other := range t.students {
		if other.ID != st.ID && other.Email == st.Email {
			return academic.NewDuplicateError("student", "email")
		}
	}
	return nil
}

func (r *academicRepository) QueryStudents(_ context.Context, scope access.Scope, filter academic.QueryFilter) (students []academic.Student, err error) {
	err = r.read(func(t *tables) error {
		students = rows(t.students,
			func(st academic.Student) bool {
				if filter.Search != "" && !contains(filter.Search, st.FullName, st.Email) {
					return false
				}
				if filter.Status != "" && st.Status != filter.Status {
					return false
				}
				if filter.CourseID != "" && !t.enrolled(st.ID, filter.CourseID) {
					return false
				}
				return visible(scope, func() bool { return t.studentVisible(scope, st) })
			},
			func(a, b academic.Student) bool {
				if a.FullName != b.FullName {
					return a.FullName < b.FullName
				}
				return a.ID < b.ID
			})
		return nil
	})
	return students, err
}

func (r *academicRepository) GetStudent(_ context.Context, id string, scope access.Scope) (st academic.Student, err error) {
	err = r.read(func(t *tables) error {
		st, err = getRow(t.students, id, scope, t.studentVisible)
		return err
	})
	return st, err
}

func (r *academicRepository) GetStudentByEmail(_ context.Context, email string) (st academic.Student, err error) {
	email = strings.ToLower(email)
	err = r.read(func(t *tables) error {
		for _, s := range t.students {
			if s.Email == email {
				st = s
				return nil
			}
		}
		return core.ErrNotFound
	})
	return st, err
}

func (r *academicRepository) CreateStudent(_ context.Context, st academic.Student) (academic.Student, error) {
	st.ID = newID()
	err := r.write(func(t *tables) error {
		if err := t.checkStudent(st); err != nil {
			return err
		}
		t.students[st.ID] = st
		return nil
	})
	return st, err
}

func (r *academicRepository) UpdateStudent(_ context.Context, st academic.Student) (academic.Student, error) {
	err := r.write(func(t *tables) error {
		if _, ok := t.students[st.ID]; !ok {
			return core.ErrNotFound
		}
		if err := t.checkStudent(st); err != nil {
			return err
		}
		t.students[st.ID] = st
		return nil
	})
	return st, err
}

func (r *academicRepository) DeleteStudent(_ context.Context, id string) error {
	return r.write(func(t *tables) error {
		if _, ok := t.students[id]; !ok {
			return core.ErrNotFound
		}
		delete(t.students, id)
		for eid, e := range t.enrollments {
			if e.StudentID == id {
				delete(t.enrollments, eid)
			}
		}
		for rid, res := range t.examResults {
			if res.StudentID == id {
				delete(t.examResults, rid)
			}
		}
		for pid, p := range t.payments {
			if p.StudentID == id {
				delete(t.payments, pid)
			}
		}
		t.unlinkUsers("", id)
		return nil
	})
}

// unlinkUsers clears the profile links of the users pointing to a deleted teacher or student.
func (t *tables) unlinkUsers(teacherID, studentID string) {
	for uid, u := range t.users {
		changed := false
		if teacherID != "" && u.TeacherID.Valid && u.TeacherID.String == teacherID {
			u.TeacherID = null.String{}
			changed = true
		}
		if studentID != "" && u.StudentID.Valid && u.StudentID.String == studentID {
			u.StudentID = null.String{}
			changed = true
		}
		if changed {
			t.users[uid] = u
		}
	}
}
