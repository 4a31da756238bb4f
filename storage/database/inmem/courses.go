package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/access"
)

// Courses

func (t *tables) courseRow(c academic.Course) academic.Course {
	c.TeacherName = null.String{}
	if c.TeacherID.Valid {
		if teacher, ok := t.teachers[c.TeacherID.String]; ok {
			c.TeacherName = null.StringFrom(teacher.FullName)
		}
	}
	return c
}

func (t *tables) checkCourse(c academic.Course) error {
	if c.TeacherID.Valid {
		if _, ok := t.teachers[c.TeacherID.String]; !ok {
			return invalidReference("teacher")
		}
	}
	return nil
}

func (r *academicRepository) QueryCourses(_ context.Context, scope access.Scope, filter academic.QueryFilter) (courses []academic.Course, err error) {
	err = r.read(func(t *tables) error {
		courses = rows(t.courses,
			func(c academic.Course) bool {
				if filter.Search != "" && !contains(filter.Search, c.Name, c.Description) {
					return false
				}
				return visible(scope, func() bool { return t.courseVisible(scope, c) })
			},
			func(a, b academic.Course) bool {
				if a.Name != b.Name {
					return a.Name < b.Name
				}
				return a.ID < b.ID
			})
		for i := range courses {
			courses[i] = t.courseRow(courses[i])
		}
		return nil
	})
	return courses, err
}

func (r *academicRepository) GetCourse(_ context.Context, id string, scope access.Scope) (c academic.Course, err error) {
	err = r.read(func(t *tables) error {
		c, err = getRow(t.courses, id, scope, t.courseVisible)
		c = t.courseRow(c)
		return err
	})
	return c, err
}

func (r *academicRepository) CreateCourse(_ context.Context, c academic.Course) (academic.Course, error) {
	c.ID = newID()
	err := r.write(func(t *tables) error {
		if err := t.checkCourse(c); err != nil {
			return err
		}
		t.courses[c.ID] = c
		c = t.courseRow(c)
		return nil
	})
	return c, err
}

func (r *academicRepository) UpdateCourse(_ context.Context, c academic.Course) (academic.Course, error) {
	err := r.write(func(t *tables) error {
		if _, ok := t.courses[c.ID]; !ok {
			return core.ErrNotFound
		}
		if err := t.checkCourse(c); err != nil {
			return err
		}
		t.courses[c.ID] = c
		c = t.courseRow(c)
		return nil
	})
	return c, err
}

func (r *academicRepository) DeleteCourse(_ context.Context, id string) error {
	return r.write(func(t *tables) error {
		if _, ok := t.courses[id]; !ok {
			return core.ErrNotFound
		}
		delete(t.courses, id)
		for eid, e := range t.enrollments {
			if e.CourseID == id {
				delete(t.enrollments, eid)
			}
		}
		for sid, sc := range t.schedules {
			if sc.CourseID == id {
				delete(t.schedules, sid)
			}
		}
		for xid, x := range t.exams {
			if x.CourseID == id {
				t.deleteExam(xid)
			}
		}
		return nil
	})
}

// Enrollments

func (t *tables) enrollmentRow(e academic.Enrollment) academic.Enrollment {
	e.StudentName = t.students[e.StudentID].FullName
	e.CourseName = t.courses[e.CourseID].Name
	return e
}

func (t *tables) checkEnrollment(e academic.Enrollment) error {
	if _, ok := t.students[e.StudentID]; !ok {
		return invalidReference("student")
	}
	if _, ok := t.courses[e.CourseID]; !ok {
		return invalidReference("course")
	}
	for _, other := range t.enrollments {
		if other.ID != e.ID && other.StudentID == e.StudentID && other.CourseID == e.CourseID {
			return academic.NewDuplicateError("enrollment", "course")
		}
	}
	return nil
}

func (r *academicRepository) QueryEnrollments(_ context.Context, scope access.Scope, filter academic.QueryFilter) (enrollments []academic.Enrollment, err error) {
	err = r.read(func(t *tables) error {
		enrollments = rows(t.enrollments,
			func(e academic.Enrollment) bool {
				if filter.CourseID != "" && e.CourseID != filter.CourseID {
					return false
				}
				if filter.StudentID != "" && e.StudentID != filter.StudentID {
					return false
				}
				return visible(scope, func() bool { return t.enrollmentVisible(scope, e) })
			},
			nil)
		for i := range enrollments {
			enrollments[i] = t.enrollmentRow(enrollments[i])
		}
		return nil
	})
	sortEnrollments(enrollments)
	return enrollments, err
}

// sortEnrollments orders the newest enrollments first, then by student name.
func sortEnrollments(enrollments []academic.Enrollment) {
	sort.Slice(enrollments, func(i, j int) bool {
		a, b := enrollments[i], enrollments[j]
		if !a.EnrollmentDate.Equal(b.EnrollmentDate) {
			return a.EnrollmentDate.After(b.EnrollmentDate)
		}
		if a.StudentName != b.StudentName {
			return a.StudentName < b.StudentName
		}
		return a.ID < b.ID
	})
}

// sortByName orders rows by the (name, id) pair returned by key.
func sortByName[T any](list []T, key func(T) (string, string)) {
	sort.Slice(list, func(i, j int) bool {
		ni, ii := key(list[i])
		nj, ij := key(list[j])
		if ni != nj {
			return ni < nj
		}
		return ii < ij
	})
}

func (r *academicRepository) GetEnrollment(_ context.Context, id string, scope access.Scope) (e academic.Enrollment, err error) {
	err = r.read(func(t *tables) error {
		e, err = getRow(t.enrollments, id, scope, t.enrollmentVisible)
		e = t.enrollmentRow(e)
		return err
	})
	return e, err
}

func (r *academicRepository) CreateEnrollment(_ context.Context, e academic.Enrollment) (academic.Enrollment, error) {
	e.ID = newID()
	now := r.db.clock.Now().UTC()
	e.EnrollmentDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	e.RefreshPassed()
	err := r.write(func(t *tables) error {
		if err := t.checkEnrollment(e); err != nil {
			return err
		}
		t.enrollments[e.ID] = e
		e = t.enrollmentRow(e)
		return nil
	})
	return e, err
}

func (r *academicRepository) UpdateEnrollment(_ context.Context, e academic.Enrollment) (academic.Enrollment, error) {
	e.RefreshPassed()
	err := r.write(func(t *tables) error {
		orig, ok := t.enrollments[e.ID]
		if !ok {
			return core.ErrNotFound
		}
		if err := t.checkEnrollment(e); err != nil {
			return err
		}
		e.EnrollmentDate = orig.EnrollmentDate
		t.enrollments[e.ID] = e
		e = t.enrollmentRow(e)
		return nil
	})
	return e, err
}

func (r *academicRepository) DeleteEnrollment(_ context.Context, id string) error {
	return r.write(func(t *tables) error {
		if _, ok := t.enrollments[id]; !ok {
			return core.ErrNotFound
		}
		delete(t.enrollments, id)
		return nil
	})
}

// Schedules

func (t *tables) scheduleRow(sc academic.Schedule) academic.Schedule {
	sc.CourseName = t.courses[sc.CourseID].Name
	sc.TeacherName = t.teachers[sc.TeacherID].FullName
	return sc
}

func (t *tables) checkSchedule(sc academic.Schedule) error {
	if _, ok := t.courses[sc.CourseID]; !ok {
		return invalidReference("course")
	}
	if _, ok := t.teachers[sc.TeacherID]; !ok {
		return invalidReference("teacher")
	}
	for _, other := range t.schedules {
		if other.ID != sc.ID && other.DayOfWeek == sc.DayOfWeek && other.StartTime == sc.StartTime && other.Room == sc.Room {
			return academic.NewDuplicateError("schedule", "room")
		}
	}
	return nil
}

// scheduleLess orders slots by calendar day, then start time, then room.
func scheduleLess(a, b academic.Schedule) bool {
	if a.DayOfWeek != b.DayOfWeek {
		return a.DayOfWeek.Index() < b.DayOfWeek.Index()
	}
	if a.StartTime != b.StartTime {
		return a.StartTime < b.StartTime
	}
	return a.Room < b.Room
}

func (r *academicRepository) QuerySchedules(_ context.Context, scope access.Scope, filter academic.QueryFilter) (schedules []academic.Schedule, err error) {
	err = r.read(func(t *tables) error {
		schedules = rows(t.schedules,
			func(sc academic.Schedule) bool {
				if filter.CourseID != "" && sc.CourseID != filter.CourseID {
					return false
				}
				return visible(scope, func() bool { return t.scheduleVisible(scope, sc) })
			},
			scheduleLess)
		for i := range schedules {
			schedules[i] = t.scheduleRow(schedules[i])
		}
		return nil
	})
	return schedules, err
}

func (r *academicRepository) GetSchedule(_ context.Context, id string, scope access.Scope) (sc academic.Schedule, err error) {
	err = r.read(func(t *tables) error {
		sc, err = getRow(t.schedules, id, scope, t.scheduleVisible)
		sc = t.scheduleRow(sc)
		return err
	})
	return sc, err
}

func (r *academicRepository) CreateSchedule(_ context.Context, sc academic.Schedule) (academic.Schedule, error) {
	sc.ID = newID()
	err := r.write(func(t *tables) error {
		if err := t.checkSchedule(sc); err != nil {
			return err
		}
		t.schedules[sc.ID] = sc
		sc = t.scheduleRow(sc)
		return nil
	})
	return sc, err
}

func (r *academicRepository) UpdateSchedule(_ context.Context, sc academic.Schedule) (academic.Schedule, error) {
	err := r.write(func(t *tables) error {
		if _, ok := t.schedules[sc.ID]; !ok {
			return core.ErrNotFound
		}
		if err := t.checkSchedule(sc); err != nil {
			return err
		}
		t.schedules[sc.ID] = sc
		sc = t.scheduleRow(sc)
		return nil
	})
	return sc, err
}

func (r *academicRepository) DeleteSchedule(_ context.Context, id string) error {
	return r.write(func(t *tables) error {
		if _, ok := t.schedules[id]; !ok {
			return core.ErrNotFound
		}
		delete(t.schedules, id)
		return nil
	})
}
