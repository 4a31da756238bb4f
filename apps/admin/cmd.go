package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/cache"
	"github.com/trezcool/chuo/core/jobs"
	"github.com/trezcool/chuo/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("migrate: the database engine is not postgres")
)

type commandLine struct {
	conf *core.Config
	db   *sqlx.DB // nil with the inmem engine
	out  io.Writer

	usrSvc      *user.Service
	cache       *cache.UniversityCache
	importer    *jobs.Importer
	reminder    *jobs.ExamReminder
	perfReports *jobs.PerformanceReports
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, version, redo, reset, up-to, down-to...)")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME -role ROLE [-email EMAIL] [-teacher ID] [-student ID] - create or update a user")
	fmt.Fprintln(cli.out, "  token -username USERNAME|EMAIL - issue an API token")
	fmt.Fprintln(cli.out, "  importstudents -file PATH [-notify EMAIL] - import students from a .csv or .xlsx file")
	fmt.Fprintln(cli.out, "  warmcache - recompute the cached courses, schedule and debtors")
	fmt.Fprintln(cli.out, "  remindexams - email the students with an exam tomorrow")
	fmt.Fprintln(cli.out, "  perfreport -student ID - save a student's performance report")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserRole := addUserCmd.String("role", "", "admin, teacher or student.")
	addUserTeacher := addUserCmd.String("teacher", "", "The teacher profile of a teacher user.")
	addUserStudent := addUserCmd.String("student", "", "The student profile of a student user.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenCmd.SetOutput(cli.out)
	tokenUname := tokenCmd.String("username", "", "The user's username or email.")

	importCmd := flag.NewFlagSet("importstudents", flag.ContinueOnError)
	importCmd.SetOutput(cli.out)
	importFile := importCmd.String("file", "", "The .csv or .xlsx file (columns email, full_name, gpa, status).")
	importNotify := importCmd.String("notify", "", "Email the outcome to this address.")

	perfReportCmd := flag.NewFlagSet("perfreport", flag.ContinueOnError)
	perfReportCmd.SetOutput(cli.out)
	perfReportStudent := perfReportCmd.String("student", "", "The student ID.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserRole == "" {
			addUserCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		usr, err := cli.addUser(user.NewUser{
			Username:  *addUserUname,
			Email:     *addUserEmail,
			Role:      *addUserRole,
			TeacherID: *addUserTeacher,
			StudentID: *addUserStudent,
			Password:  string(pwd),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "User %s (%s) saved\n", usr.Username, usr.Role)
		return nil

	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenUname == "" {
			tokenCmd.Usage()
			return errHelp
		}
		token, err := cli.token(*tokenUname)
		if err != nil {
			return err
		}
		fmt.Fprintln(cli.out, token)
		return nil

	case "importstudents":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importStudents(*importFile, *importNotify)

	case "warmcache":
		return cli.warmCache()

	case "remindexams":
		return cli.remindExams()

	case "perfreport":
		if err := perfReportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *perfReportStudent == "" {
			perfReportCmd.Usage()
			return errHelp
		}
		return cli.performanceReport(*perfReportStudent)

	default:
		cli.printUsage()
		return errHelp
	}
}
