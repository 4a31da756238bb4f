package sqlxrepos_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/chuo/storage/database"
	sqlxrepos "github.com/trezcool/chuo/storage/database/sqlx"
	"github.com/trezcool/chuo/tests"
)

const truncateSQL = `TRUNCATE audit_logs, users, payments, exam_results, exams, schedules, enrollments,
courses, students, teachers, departments CASCADE`

// TestRepositories needs a disposable Postgres database: TEST_DATABASE_URL=postgres://...
func TestRepositories(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	db, err := database.OpenURL(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db.DB, "up"))

	testutil.RunRepositoryContract(t, func(t *testing.T) testutil.Repos {
		_, err := db.Exec(truncateSQL)
		require.NoError(t, err)
		return testutil.Repos{
			Academic: sqlxrepos.NewAcademicRepository(db),
			Reports:  sqlxrepos.NewReportRepository(db),
			Users:    sqlxrepos.NewUserRepository(db),
			Audit:    sqlxrepos.NewAuditRepository(db),
		}
	})
}
