package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/access"
)

// Courses

func (r *academicRepository) selectCourses() sq.SelectBuilder {
	return psql.
		Select("c.id", "c.name", "c.description", "c.credits", "c.teacher_id", "t.full_name AS teacher_name").
		From("courses c").
		LeftJoin("teachers t ON t.id = c.teacher_id")
}

func (r *academicRepository) QueryCourses(ctx context.Context, scope access.Scope, filter academic.QueryFilter) ([]academic.Course, error) {
	b := scoped(r.selectCourses(), scope, coursePredicate)
	if filter.Search != "" {
		b = b.Where(ilike(filter.Search, "c.name", "c.description"))
	}

	courses := make([]academic.Course, 0)
	if err := r.selectAll(ctx, &courses, b.OrderBy("c.name", "c.id"), "querying courses"); err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *academicRepository) GetCourse(ctx context.Context, id string, scope access.Scope) (academic.Course, error) {
	var c academic.Course
	if !validID(id) {
		return c, core.ErrNotFound
	}
	b := scoped(r.selectCourses(), scope, coursePredicate).Where(sq.Eq{"c.id": id})
	err := r.get(ctx, &c, b, "getting course")
	return c, err
}

func (r *academicRepository) CreateCourse(ctx context.Context, c academic.Course) (academic.Course, error) {
	c.ID = newID()
	b := psql.Insert("courses").
		Columns("id", "name", "description", "credits", "teacher_id").
		Values(c.ID, c.Name, c.Description, c.Credits, c.TeacherID)
	if err := r.write(ctx, b, false, "inserting course"); err != nil {
		return academic.Course{}, err
	}
	return r.GetCourse(ctx, c.ID, access.All())
}

func (r *academicRepository) UpdateCourse(ctx context.Context, c academic.Course) (academic.Course, error) {
	if !validID(c.ID) {
		return academic.Course{}, core.ErrNotFound
	}
	b := psql.Update("courses").
		Set("name", c.Name).
		Set("description", c.Description).
		Set("credits", c.Credits).
		Set("teacher_id", c.TeacherID).
		Where(sq.Eq{"id": c.ID})
	if err := r.write(ctx, b, true, "updating course"); err != nil {
		return academic.Course{}, err
	}
	return r.GetCourse(ctx, c.ID, access.All())
}

func (r *academicRepository) DeleteCourse(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "courses", id, "deleting course")
}

// Enrollments

func (r *academicRepository) selectEnrollments() sq.SelectBuilder {
	return psql.
		Select(
			"e.id", "e.student_id", "s.full_name AS student_name", "e.course_id", "c.name AS course_name",
			"e.enrollment_date", "e.grade", "e.passed",
		).
		From("enrollments e").
		Join("students s ON s.id = e.student_id").
		Join("courses c ON c.id = e.course_id")
}

func (r *academicRepository) QueryEnrollments(ctx context.Context, scope access.Scope, filter academic.QueryFilter) ([]academic.Enrollment, error) {
	b := scoped(r.selectEnrollments(), scope, enrollmentPredicate)
	if filter.CourseID != "" {
		if !validID(filter.CourseID) {
			return []academic.Enrollment{}, nil
		}
		b = b.Where(sq.Eq{"e.course_id": filter.CourseID})
	}
	if filter.StudentID != "" {
		if !validID(filter.StudentID) {
			return []academic.Enrollment{}, nil
		}
		b = b.Where(sq.Eq{"e.student_id": filter.StudentID})
	}

	enrollments := make([]academic.Enrollment, 0)
	b = b.OrderBy("e.enrollment_date DESC", "s.full_name", "e.id")
	if err := r.selectAll(ctx, &enrollments, b, "querying enrollments"); err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (r *academicRepository) GetEnrollment(ctx context.Context, id string, scope access.Scope) (academic.Enrollment, error) {
	var e academic.Enrollment
	if !validID(id) {
		return e, core.ErrNotFound
	}
	b := scoped(r.selectEnrollments(), scope, enrollmentPredicate).Where(sq.Eq{"e.id": id})
	err := r.get(ctx, &e, b, "getting enrollment")
	return e, err
}

func (r *academicRepository) CreateEnrollment(ctx context.Context, e academic.Enrollment) (academic.Enrollment, error) {
	e.ID = newID()
	e.RefreshPassed()
	b := psql.Insert("enrollments").
		Columns("id", "student_id", "course_id", "grade", "passed").
		Values(e.ID, e.StudentID, e.CourseID, e.Grade, e.Passed)
	if err := r.write(ctx, b, false, "inserting enrollment"); err != nil {
		return academic.Enrollment{}, err
	}
	return r.GetEnrollment(ctx, e.ID, access.All())
}

func (r *academicRepository) UpdateEnrollment(ctx context.Context, e academic.Enrollment) (academic.Enrollment, error) {
	if !validID(e.ID) {
		return academic.Enrollment{}, core.ErrNotFound
	}
	e.RefreshPassed()
	b := psql.Update("enrollments").
		Set("student_id", e.StudentID).
		Set("course_id", e.CourseID).
		Set("grade", e.Grade).
		Set("passed", e.Passed).
		Where(sq.Eq{"id": e.ID})
	if err := r.write(ctx, b, true, "updating enrollment"); err != nil {
		return academic.Enrollment{}, err
	}
	return r.GetEnrollment(ctx, e.ID, access.All())
}

func (r *academicRepository) DeleteEnrollment(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "enrollments", id, "deleting enrollment")
}

// Schedules

func (r *academicRepository) selectSchedules() sq.SelectBuilder {
	return psql.
		Select(
			"sc.id", "sc.course_id", "c.name AS course_name", "sc.teacher_id", "t.full_name AS teacher_name",
			"sc.room", "sc.day_of_week",
			"to_char(sc.start_time, 'HH24:MI') AS start_time", "to_char(sc.end_time, 'HH24:MI') AS end_time",
		).
		From("schedules sc").
		Join("courses c ON c.id = sc.course_id").
		Join("teachers t ON t.id = sc.teacher_id")
}

func (r *academicRepository) QuerySchedules(ctx context.Context, scope access.Scope, filter academic.QueryFilter) ([]academic.Schedule, error) {
	b := scoped(r.selectSchedules(), scope, schedulePredicate)
	if filter.CourseID != "" {
		if !validID(filter.CourseID) {
			return []academic.Schedule{}, nil
		}
		b = b.Where(sq.Eq{"sc.course_id": filter.CourseID})
	}

	schedules := make([]academic.Schedule, 0)
	if err := r.selectAll(ctx, &schedules, b.OrderBy(dayOrder, "sc.start_time", "sc.room"), "querying schedules"); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *academicRepository) GetSchedule(ctx context.Context, id string, scope access.Scope) (academic.Schedule, error) {
	var s academic.Schedule
	if !validID(id) {
		return s, core.ErrNotFound
	}
	b := scoped(r.selectSchedules(), scope, schedulePredicate).Where(sq.Eq{"sc.id": id})
	err := r.get(ctx, &s, b, "getting schedule")
	return s, err
}

func (r *academicRepository) CreateSchedule(ctx context.Context, s academic.Schedule) (academic.Schedule, error) {
	s.ID = newID()
	b := psql.Insert("schedules").
		Columns("id", "course_id", "teacher_id", "room", "day_of_week", "start_time", "end_time").
		Values(s.ID, s.CourseID, s.TeacherID, s.Room, string(s.DayOfWeek), s.StartTime, s.EndTime)
	if err := r.write(ctx, b, false, "inserting schedule"); err != nil {
		return academic.Schedule{}, err
	}
	return r.GetSchedule(ctx, s.ID, access.All())
}

func (r *academicRepository) UpdateSchedule(ctx context.Context, s academic.Schedule) (academic.Schedule, error) {
	if !validID(s.ID) {
		return academic.Schedule{}, core.ErrNotFound
	}
	b := psql.Update("schedules").
		Set("course_id", s.CourseID).
		Set("teacher_id", s.TeacherID).
		Set("room", s.Room).
		Set("day_of_week", string(s.DayOfWeek)).
		Set("start_time", s.StartTime).
		Set("end_time", s.EndTime).
		Where(sq.Eq{"id": s.ID})
	if err := r.write(ctx, b, true, "updating schedule"); err != nil {
		return academic.Schedule{}, err
	}
	return r.GetSchedule(ctx, s.ID, access.All())
}

func (r *academicRepository) DeleteSchedule(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "schedules", id, "deleting schedule")
}
