package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
)

const dateLayout = "2006-01-02"

// bindQueryFilter reads the list filters from the query string.
func bindQueryFilter(ctx echo.Context) (academic.QueryFilter, error) {
	filter := academic.QueryFilter{
		Search:    ctx.QueryParam("search"),
		Status:    ctx.QueryParam("status"),
		CourseID:  ctx.QueryParam("course"),
		StudentID: ctx.QueryParam("student"),
		ExamID:    ctx.QueryParam("exam"),
	}
	var err error
	if filter.DateFrom, err = parseDate("date_from", ctx.QueryParam("date_from")); err != nil {
		return filter, err
	}
	if filter.DateTo, err = parseDate("date_to", ctx.QueryParam("date_to")); err != nil {
		return filter, err
	}
	filter.Clean()
	return filter, nil
}

// parseDate accepts RFC 3339 timestamps and plain dates (midnight UTC); "" is the zero time.
func parseDate(field, value string) (time.Time, error) {
	value = core.CleanString(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, core.NewValidationError(err, core.FieldError{Field: field, Error: "invalid date"})
	}
	return t, nil
}
