package sqlxrepos

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/access"
)

// Departments

func (r *academicRepository) selectDepartments() sq.SelectBuilder {
	return psql.Select("d.id", "d.name").From("departments d")
}

func (r *academicRepository) QueryDepartments(ctx context.Context, scope access.Scope, _ academic.QueryFilter) ([]academic.Department, error) {
	depts := make([]academic.Department, 0)
	b := scoped(r.selectDepartments(), scope, unownedPredicate).OrderBy("d.name")
	if err := r.selectAll(ctx, &depts, b, "querying departments"); err != nil {
		return nil, err
	}
	return depts, nil
}

func (r *academicRepository) GetDepartment(ctx context.Context, id string, scope access.Scope) (academic.Department, error) {
	var dept academic.Department
	if !validID(id) {
		return dept, core.ErrNotFound
	}
	b := scoped(r.selectDepartments(), scope, unownedPredicate).Where(sq.Eq{"d.id": id})
	err := r.get(ctx, &dept, b, "getting department")
	return dept, err
}

func (r *academicRepository) CreateDepartment(ctx context.Context, dept academic.Department) (academic.Department, error) {
	dept.ID = newID()
	b := psql.Insert("departments").Columns("id", "name").Values(dept.ID, dept.Name)
	if err := r.write(ctx, b, false, "inserting department"); err != nil {
		return academic.Department{}, err
	}
	return r.GetDepartment(ctx, dept.ID, access.All())
}

func (r *academicRepository) UpdateDepartment(ctx context.Context, dept academic.Department) (academic.Department, error) {
	if !validID(dept.ID) {
		return academic.Department{}, core.ErrNotFound
	}
	b := psql.Update("departments").Set("name", dept.Name).Where(sq.Eq{"id": dept.ID})
	if err := r.write(ctx, b, true, "updating department"); err != nil {
		return academic.Department{}, err
	}
	return r.GetDepartment(ctx, dept.ID, access.All())
}

func (r *academicRepository) DeleteDepartment(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "departments", id, "deleting department")
}

// Teachers

func (r *academicRepository) selectTeachers() sq.SelectBuilder {
	return psql.
		Select("t.id", "t.full_name", "t.email", "t.department_id", "dp.name AS department_name", "t.position").
		From("teachers t").
		LeftJoin("departments dp ON dp.id = t.department_id")
}

func (r *academicRepository) QueryTeachers(ctx context.Context, scope access.Scope, filter academic.QueryFilter) ([]academic.Teacher, error) {
	b := scoped(r.selectTeachers(), scope, unownedPredicate)
	if filter.Search != "" {
		b = b.Where(ilike(filter.Search, "t.full_name", "t.email"))
	}

	teachers := make([]academic.Teacher, 0)
	if err := r.selectAll(ctx, &teachers, b.OrderBy("t.full_name", "t.id"), "querying teachers"); err != nil {
		return nil, err
	}
	return teachers, nil
}

func (r *academicRepository) GetTeacher(ctx context.Context, id string, scope access.Scope) (academic.Teacher, error) {
	var t academic.Teacher
	if !validID(id) {
		return t, core.ErrNotFound
	}
	b := scoped(r.selectTeachers(), scope, unownedPredicate).Where(sq.Eq{"t.id": id})
	err := r.get(ctx, &t, b, "getting teacher")
	return t, err
}

func (r *academicRepository) CreateTeacher(ctx context.Context, t academic.Teacher) (academic.Teacher, error) {
	t.ID = newID()
	b := psql.Insert("teachers").
		Columns("id", "full_name", "email", "department_id", "position").
		Values(t.ID, t.FullName, t.Email, t.DepartmentID, t.Position)
	if err := r.write(ctx, b, false, "inserting teacher"); err != nil {
		return academic.Teacher{}, err
	}
	return r.GetTeacher(ctx, t.ID, access.All())
}

func (r *academicRepository) UpdateTeacher(ctx context.Context, t academic.Teacher) (academic.Teacher, error) {
	if !validID(t.ID) {
		return academic.Teacher{}, core.ErrNotFound
	}
	b := psql.Update("teachers").
		Set("full_name", t.FullName).
		Set("email", t.Email).
		Set("department_id", t.DepartmentID).
		Set("position", t.Position).
		Where(sq.Eq{"id": t.ID})
	if err := r.write(ctx, b, true, "updating teacher"); err != nil {
		return academic.Teacher{}, err
	}
	return r.GetTeacher(ctx, t.ID, access.All())
}

func (r *academicRepository) DeleteTeacher(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "teachers", id, "deleting teacher")
}

// Students

func (r *academicRepository) selectStudents() sq.SelectBuilder {
	return psql.Select("s.id", "s.full_name", "s.email", "s.status", "s.gpa").From("students s")
}

func (r *academicRepository) QueryStudents(ctx context.Context, scope access.Scope, filter academic.QueryFilter) ([]academic.Student, error) {
	b := scoped(r.selectStudents(), scope, studentPredicate)
	if filter.Search != "" {
		b = b.Where(ilike(filter.Search, "s.full_name", "s.email"))
	}
	if filter.Status != "" {
		b = b.Where(sq.Eq{"s.status": filter.Status})
	}
	if filter.CourseID != "" {
		if !validID(filter.CourseID) {
			return []academic.Student{}, nil
		}
		b = b.Where("s.id IN (SELECT student_id FROM enrollments WHERE course_id = ?)", filter.CourseID)
	}

	students := make([]academic.Student, 0)
	if err := r.selectAll(ctx, &students, b.OrderBy("s.full_name", "s.id"), "querying students"); err != nil {
		return nil, err
	}
	return students, nil
}

func (r *academicRepository) GetStudent(ctx context.Context, id string, scope access.Scope) (academic.Student, error) {
	var s academic.Student
	if !validID(id) {
		return s, core.ErrNotFound
	}
	b := scoped(r.selectStudents(), scope, studentPredicate).Where(sq.Eq{"s.id": id})
	err := r.get(ctx, &s, b, "getting student")
	return s, err
}

func (r *academicRepository) GetStudentByEmail(ctx context.Context, email string) (academic.Student, error) {
	var s academic.Student
	b := r.selectStudents().Where(sq.Eq{"s.email": strings.ToLower(email)})
	err := r.get(ctx, &s, b, "getting student by email")
	return s, err
}

func (r *academicRepository) CreateStudent(ctx context.Context, s academic.Student) (academic.Student, error) {
	s.ID = newID()
	b := psql.Insert("students").
		Columns("id", "full_name", "email", "status", "gpa").
		Values(s.ID, s.FullName, s.Email, s.Status, s.GPA)
	if err := r.write(ctx, b, false, "inserting student"); err != nil {
		return academic.Student{}, err
	}
	return r.GetStudent(ctx, s.ID, access.All())
}

func (r *academicRepository) UpdateStudent(ctx context.Context, s academic.Student) (academic.Student, error) {
	if !validID(s.ID) {
		return academic.Student{}, core.ErrNotFound
	}
	b := psql.Update("students").
		Set("full_name", s.FullName).
		Set("email", s.Email).
		Set("status", s.Status).
		Set("gpa", s.GPA).
		Where(sq.Eq{"id": s.ID})
	if err := r.write(ctx, b, true, "updating student"); err != nil {
		return academic.Student{}, err
	}
	return r.GetStudent(ctx, s.ID, access.All())
}

func (r *academicRepository) DeleteStudent(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "students", id, "deleting student")
}
