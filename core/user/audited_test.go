package user

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chuo/core/audit"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type logWriter struct {
	logs []audit.Log
}

func (w *logWriter) CreateAuditLog(_ context.Context, l audit.Log) error {
	w.logs = append(w.logs, l)
	return nil
}

func TestAuditedRepository(t *testing.T) {
	ctx := audit.WithActor(context.Background(), "7d2a3c1e-5b7f-4c39-9a51-0f0e6c2b8d44")
	now := time.Date(2024, time.March, 13, 10, 0, 0, 0, time.UTC)
	w := new(logWriter)
	rec := audit.NewRecorder(nopLogger{}, clockwork.NewFakeClockAt(now))
	svc := NewService(NewAuditedRepository(&memRepository{users: make(map[string]User)}, w, rec))

	usr, err := svc.Save(ctx, NewUser{Username: "kim42", Email: "kim@chuo.test", Role: RoleAdmin, Password: "S3cure!pwd"})
	require.NoError(t, err)
	require.Len(t, w.logs, 1)
	assert.Equal(t, audit.ActionCreate, w.logs[0].Action)
	assert.Equal(t, "user", w.logs[0].ModelName)
	assert.Equal(t, usr.ID, w.logs[0].ObjectID)
	assert.Equal(t, "kim42", w.logs[0].ObjectRepr)
	assert.Equal(t, "7d2a3c1e-5b7f-4c39-9a51-0f0e6c2b8d44", w.logs[0].UserID.String)
	assert.False(t, w.logs[0].Changes.Valid)

	// new password and role: only the role is diffed
	_, err = svc.Save(ctx, NewUser{Username: "kim42", Email: "kim@chuo.test", Role: RoleTeacher, Password: "N3w!secret"})
	require.NoError(t, err)
	require.Len(t, w.logs, 2)
	assert.Equal(t, audit.ActionUpdate, w.logs[1].Action)
	assert.Equal(t, usr.ID, w.logs[1].ObjectID)

	var changes map[string]audit.Change
	require.NoError(t, json.Unmarshal(w.logs[1].Changes.JSON, &changes))
	assert.NotContains(t, changes, "password_hash")
	assert.NotContains(t, changes, "last_login")
	require.Contains(t, changes, "role")
	assert.Equal(t, RoleAdmin, *changes["role"].Old)
	assert.Equal(t, RoleTeacher, *changes["role"].New)
	assert.Len(t, changes, 1)

	// invalid input never reaches the store
	_, err = svc.Save(ctx, NewUser{Username: "kim42", Role: "dean", Password: "N3w!secret"})
	assert.Error(t, err)
	assert.Len(t, w.logs, 2)
}
