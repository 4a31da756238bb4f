package inmemdb_test

import (
	"testing"

	"github.com/jonboulle/clockwork"

	inmemdb "github.com/trezcool/chuo/storage/database/inmem"
	"github.com/trezcool/chuo/tests"
)

func TestRepositories(t *testing.T) {
	testutil.RunRepositoryContract(t, func(t *testing.T) testutil.Repos {
		db := inmemdb.Open(clockwork.NewFakeClockAt(testutil.Now))
		return testutil.Repos{
			Academic: inmemdb.NewAcademicRepository(db),
			Reports:  inmemdb.NewReportRepository(db),
			Users:    inmemdb.NewUserRepository(db),
			Audit:    inmemdb.NewAuditRepository(db),
		}
	})
}
