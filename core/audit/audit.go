package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/kat-co/vala"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

const maxReprLen = 200

// never diffed
var sensitiveFields = map[string]bool{
	"password":      true,
	"password_hash": true,
	"last_login":    true,
}

type Log struct {
	ID         string      `json:"id" db:"id"`
	UserID     null.String `json:"user_id" db:"user_id"` // null: system
	Action     Action      `json:"action" db:"action"`
	ModelName  string      `json:"model_name" db:"model_name"`
	ObjectID   string      `json:"object_id" db:"object_id"`
	ObjectRepr string      `json:"object_repr" db:"object_repr"`
	Changes    null.JSON   `json:"changes" db:"changes"`
	Timestamp  time.Time   `json:"timestamp" db:"timestamp"`
}

// Change holds the string forms of a field value before and after an update; nil for a null value.
type Change struct {
	Old *string `json:"old"`
	New *string `json:"new"`
}

// Trackable is implemented by every audited entity.
type Trackable interface {
	AuditModel() string
	AuditID() string
	String() string
	// AuditFields returns the persisted fields of the entity, keyed by column name.
	AuditFields() map[string]interface{}
}

type (
	Writer interface {
		CreateAuditLog(ctx context.Context, l Log) error
	}

	QueryFilter struct {
		ModelName string `query:"model_name"`
		Action    string `query:"action"`
		ObjectID  string `query:"object_id"`
	}

	Repository interface {
		Writer
		// QueryAuditLogs returns the newest entries first.
		QueryAuditLogs(ctx context.Context, filter QueryFilter) ([]Log, error)
	}
)

type actorKey struct{}

// WithActor attributes the mutations made with ctx to the user userID.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom returns the user attributed to ctx, or "" for the system.
func ActorFrom(ctx context.Context) string {
	id, _ := ctx.Value(actorKey{}).(string)
	return id
}

// Recorder writes audit entries. Failures are logged, never returned: an audit write never breaks a business write.
type Recorder struct {
	logger core.Logger
	clock  clockwork.Clock
}

func NewRecorder(logger core.Logger, clock clockwork.Clock) *Recorder {
	vala.BeginValidation().Validate(
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(clock, "clock"),
	).CheckAndPanic()

	return &Recorder{logger: logger, clock: clock}
}

func (r *Recorder) Created(ctx context.Context, w Writer, obj Trackable) {
	r.record(ctx, w, ActionCreate, obj, nil)
}

// Updated records an update of after. The field diff is only computed when a before snapshot is available.
func (r *Recorder) Updated(ctx context.Context, w Writer, before, after Trackable) {
	var changes map[string]Change
	if before != nil {
		changes = Diff(before.AuditFields(), after.AuditFields())
	}
	r.record(ctx, w, ActionUpdate, after, changes)
}

func (r *Recorder) Deleted(ctx context.Context, w Writer, obj Trackable) {
	r.record(ctx, w, ActionDelete, obj, nil)
}

func (r *Recorder) record(ctx context.Context, w Writer, action Action, obj Trackable, changes map[string]Change) {
	l := Log{
		ID:         uuid.New().String(),
		Action:     action,
		ModelName:  obj.AuditModel(),
		ObjectID:   obj.AuditID(),
		ObjectRepr: truncate(obj.String(), maxReprLen),
		Timestamp:  r.clock.Now().UTC(),
	}
	if actor := ActorFrom(ctx); actor != "" {
		l.UserID = null.StringFrom(actor)
	}
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			r.logger.Error(fmt.Sprintf("audit: encoding changes of %s %s: %v", l.ModelName, l.ObjectID, err), err)
		} else {
			l.Changes = null.JSONFrom(data)
		}
	}

	if err := w.CreateAuditLog(ctx, l); err != nil {
		r.logger.Error(fmt.Sprintf("audit: recording %s of %s %s: %v", action, l.ModelName, l.ObjectID, err), err)
	}
}

// Diff returns the fields whose value differs between before and after, skipping sensitive fields.
// Values are compared by their string form.
func Diff(before, after map[string]interface{}) map[string]Change {
	changes := make(map[string]Change)
	for field, newVal := range after {
		if sensitiveFields[field] {
			continue
		}
		oldStr, newStr := stringify(before[field]), stringify(newVal)
		if !equal(oldStr, newStr) {
			changes[field] = Change{Old: oldStr, New: newStr}
		}
	}
	return changes
}

func stringify(v interface{}) *string {
	if v == nil {
		return nil
	}
	s := fmt.Sprint(v)
	return &s
}

func equal(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
