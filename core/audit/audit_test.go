package audit_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/audit"
	"github.com/trezcool/chuo/tests"
)

type room struct {
	id     string
	name   string
	seats  int
	secret string
}

func (r room) AuditModel() string { return "room" }
func (r room) AuditID() string    { return r.id }
func (r room) String() string     { return r.name }
func (r room) AuditFields() map[string]interface{} {
	return map[string]interface{}{"name": r.name, "seats": r.seats, "password": r.secret}
}

type logWriter struct {
	logs []audit.Log
	err  error
}

func (w *logWriter) CreateAuditLog(_ context.Context, l audit.Log) error {
	if w.err != nil {
		return w.err
	}
	w.logs = append(w.logs, l)
	return nil
}

func strPtr(s string) *string { return &s }

func TestDiff(t *testing.T) {
	tests := []struct {
		name          string
		before, after map[string]interface{}
		want          map[string]audit.Change
	}{
		{
			name:   "no change",
			before: map[string]interface{}{"name": "A", "seats": 10},
			after:  map[string]interface{}{"name": "A", "seats": 10},
			want:   map[string]audit.Change{},
		},
		{
			name:   "changed fields",
			before: map[string]interface{}{"name": "A", "seats": 10},
			after:  map[string]interface{}{"name": "B", "seats": 10},
			want:   map[string]audit.Change{"name": {Old: strPtr("A"), New: strPtr("B")}},
		},
		{
			name:   "compared by string form",
			before: map[string]interface{}{"seats": int64(10)},
			after:  map[string]interface{}{"seats": "10"},
			want:   map[string]audit.Change{},
		},
		{
			name:   "null to value",
			before: map[string]interface{}{"teacher_id": nil},
			after:  map[string]interface{}{"teacher_id": "t1"},
			want:   map[string]audit.Change{"teacher_id": {Old: nil, New: strPtr("t1")}},
		},
		{
			name:   "value to null",
			before: map[string]interface{}{"teacher_id": "t1"},
			after:  map[string]interface{}{"teacher_id": nil},
			want:   map[string]audit.Change{"teacher_id": {Old: strPtr("t1"), New: nil}},
		},
		{
			name:   "sensitive fields skipped",
			before: map[string]interface{}{"password_hash": "x", "last_login": "y", "password": "z"},
			after:  map[string]interface{}{"password_hash": "x2", "last_login": "y2", "password": "z2"},
			want:   map[string]audit.Change{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, audit.Diff(tt.before, tt.after))
		})
	}
}

func TestRecorder(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testutil.Now)
	rec := audit.NewRecorder(testutil.NewLogger(&core.Config{TestMode: true}), clock)
	ctx := audit.WithActor(context.Background(), "u1")
	w := new(logWriter)

	before := room{id: "r1", name: "Hall A", seats: 100, secret: "a"}
	after := room{id: "r1", name: "Hall A", seats: 120, secret: "b"}

	rec.Created(ctx, w, before)
	rec.Updated(ctx, w, before, after)
	rec.Updated(context.Background(), w, nil, after)
	rec.Deleted(context.Background(), w, after)

	require.Len(t, w.logs, 4)
	for _, l := range w.logs {
		assert.Equal(t, "room", l.ModelName)
		assert.Equal(t, "r1", l.ObjectID)
		assert.Equal(t, "Hall A", l.ObjectRepr)
		assert.Equal(t, testutil.Now, l.Timestamp)
		assert.NotEmpty(t, l.ID)
	}

	assert.Equal(t, audit.ActionCreate, w.logs[0].Action)
	assert.Equal(t, "u1", w.logs[0].UserID.String)
	assert.False(t, w.logs[0].Changes.Valid)

	assert.Equal(t, audit.ActionUpdate, w.logs[1].Action)
	var changes map[string]audit.Change
	require.NoError(t, json.Unmarshal(w.logs[1].Changes.JSON, &changes))
	assert.Equal(t, map[string]audit.Change{"seats": {Old: strPtr("100"), New: strPtr("120")}}, changes)

	// no snapshot: no diff, system actor
	assert.Equal(t, audit.ActionUpdate, w.logs[2].Action)
	assert.False(t, w.logs[2].Changes.Valid)
	assert.False(t, w.logs[2].UserID.Valid)

	assert.Equal(t, audit.ActionDelete, w.logs[3].Action)
}

func TestRecorder_truncatesRepr(t *testing.T) {
	rec := audit.NewRecorder(testutil.NewLogger(&core.Config{TestMode: true}), clockwork.NewFakeClock())
	w := new(logWriter)

	rec.Created(context.Background(), w, room{id: "r1", name: strings.Repeat("é", 250)})
	require.Len(t, w.logs, 1)
	assert.Equal(t, strings.Repeat("é", 200), w.logs[0].ObjectRepr)
}

func TestRecorder_writeFailure(t *testing.T) {
	rec := audit.NewRecorder(testutil.NewLogger(&core.Config{TestMode: true}), clockwork.NewFakeClock())
	w := &logWriter{err: errors.New("disk full")}

	assert.NotPanics(t, func() {
		rec.Created(context.Background(), w, room{id: "r1", name: "Hall A"})
	})
	assert.Empty(t, w.logs)
}
