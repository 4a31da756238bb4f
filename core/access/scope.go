// Package access resolves what each kind of caller may read and write.
//
// A Principal answers, for every entity collection, which rows are visible (a Scope).
// Repositories turn a Restricted scope into the collection's own predicate and use
// that same predicate for listing and for single-object lookups.
package access

type Decision int

const (
	// Denied is returned for unauthenticated callers; the zero Scope denies.
	Denied Decision = iota
	// Empty: authenticated but nothing is visible.
	Empty
	// Restricted: only rows owned by Scope.TeacherID or Scope.StudentID are visible.
	Restricted
	// Unrestricted: every row is visible.
	Unrestricted
)

func (d Decision) String() string {
	switch d {
	case Empty:
		return "empty"
	case Restricted:
		return "restricted"
	case Unrestricted:
		return "unrestricted"
	default:
		return "denied"
	}
}

// Scope is a declarative row filter for one collection.
// At most one of TeacherID or StudentID is set, and only when Decision is Restricted.
type Scope struct {
	Decision  Decision
	TeacherID string
	StudentID string
}

func All() Scope  { return Scope{Decision: Unrestricted} }
func None() Scope { return Scope{Decision: Empty} }
func Deny() Scope { return Scope{Decision: Denied} }

// OwnedByTeacher restricts to rows tied to teacher id; an unlinked teacher sees nothing.
func OwnedByTeacher(id string) Scope {
	if id == "" {
		return None()
	}
	return Scope{Decision: Restricted, TeacherID: id}
}

// OwnedByStudent restricts to rows tied to student id; an unlinked student sees nothing.
func OwnedByStudent(id string) Scope {
	if id == "" {
		return None()
	}
	return Scope{Decision: Restricted, StudentID: id}
}

func (s Scope) IsDenied() bool { return s.Decision == Denied }

// Visible reports whether the scope may contain any row at all.
func (s Scope) Visible() bool {
	return s.Decision == Unrestricted || s.Decision == Restricted
}

func (s Scope) IsRestricted() bool { return s.Decision == Restricted }
