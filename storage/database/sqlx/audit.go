package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/audit"
)

func insertAuditLog(ctx context.Context, exec core.DBExecutor, l audit.Log) error {
	query, args, err := psql.Insert("audit_logs").
		Columns("id", "user_id", "action", "model_name", "object_id", "object_repr", "changes", "timestamp").
		Values(l.ID, l.UserID, string(l.Action), l.ModelName, l.ObjectID, l.ObjectRepr, l.Changes, l.Timestamp.UTC()).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "inserting audit log")
	}
	_, err = exec.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "inserting audit log")
}

type auditRepository struct {
	exec core.DBExecutor
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(exec core.DBExecutor) audit.Repository {
	return &auditRepository{exec: exec}
}

func (repo *auditRepository) CreateAuditLog(ctx context.Context, l audit.Log) error {
	return insertAuditLog(ctx, repo.exec, l)
}

func (repo *auditRepository) QueryAuditLogs(ctx context.Context, filter audit.QueryFilter) ([]audit.Log, error) {
	b := psql.
		Select("id", "user_id", "action", "model_name", "object_id", "object_repr", "changes", "timestamp").
		From("audit_logs")
	if filter.ModelName != "" {
		b = b.Where(sq.Eq{"model_name": filter.ModelName})
	}
	if filter.Action != "" {
		b = b.Where(sq.Eq{"action": filter.Action})
	}
	if filter.ObjectID != "" {
		b = b.Where(sq.Eq{"object_id": filter.ObjectID})
	}

	query, args, err := b.OrderBy("timestamp DESC", "id").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "querying audit logs")
	}
	logs := make([]audit.Log, 0)
	if err := repo.exec.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying audit logs")
	}
	return logs, nil
}
