package academic

import "strings"

// Weekday is a calendar day name, stored lowercase ("monday".."sunday").
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// Weekdays lists the days in calendar order, Monday first.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Index returns the 1-based calendar position of the day (Monday = 1), or 0 for an unknown day.
func (d Weekday) Index() int {
	for i, wd := range Weekdays {
		if wd == d {
			return i + 1
		}
	}
	return 0
}

func (d Weekday) Label() string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}
