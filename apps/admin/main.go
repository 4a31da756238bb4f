package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	dig_container "github.com/trezcool/chuo/apps/api/di/dig"
	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/cache"
	"github.com/trezcool/chuo/core/jobs"
	"github.com/trezcool/chuo/core/user"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	c := dig_container.New()

	var code int
	errAndDie(c.Invoke(func(
		conf *core.Config,
		db *sqlx.DB,
		usrSvc *user.Service,
		uc *cache.UniversityCache,
		importer *jobs.Importer,
		reminder *jobs.ExamReminder,
		perfReports *jobs.PerformanceReports,
	) {
		if db != nil {
			defer db.Close()
		}

		// start CLI
		cli := commandLine{
			conf:        conf,
			db:          db,
			out:         os.Stdout,
			usrSvc:      usrSvc,
			cache:       uc,
			importer:    importer,
			reminder:    reminder,
			perfReports: perfReports,
		}
		if err := cli.run(os.Args); err != nil {
			if err != errHelp {
				logger.Printf("\nerror: %s\n", err)
			}
			code = 1
		}
	}))
	os.Exit(code)
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
