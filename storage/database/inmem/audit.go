package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/chuo/core/audit"
)

type auditRepository struct {
	db *DB
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *DB) audit.Repository {
	return &auditRepository{db: db}
}

func (t *tables) insertAuditLog(l audit.Log) error {
	l.Timestamp = l.Timestamp.UTC()
	t.auditLogs = append(t.auditLogs, l)
	return nil
}

func (repo *auditRepository) CreateAuditLog(_ context.Context, l audit.Log) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.db.data.insertAuditLog(l)
}

func (repo *auditRepository) QueryAuditLogs(_ context.Context, filter audit.QueryFilter) ([]audit.Log, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	logs := make([]audit.Log, 0)
	for _, l := range repo.db.data.auditLogs {
		if filter.ModelName != "" && l.ModelName != filter.ModelName {
			continue
		}
		if filter.Action != "" && string(l.Action) != filter.Action {
			continue
		}
		if filter.ObjectID != "" && l.ObjectID != filter.ObjectID {
			continue
		}
		logs = append(logs, l)
	}
	// newest first; entries sharing a timestamp keep their reverse insertion order
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Timestamp.After(logs[j].Timestamp) })
	return logs, nil
}
