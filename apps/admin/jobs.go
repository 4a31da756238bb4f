package main

import (
	"context"
	"fmt"
)

// maxPrintedErrors caps the row errors printed by importstudents.
const maxPrintedErrors = 10

func (cli *commandLine) importStudents(path, notify string) error {
	// audited as a system change
	res, err := cli.importer.ImportAndNotify(context.Background(), path, notify)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "Import finished: %s\n", res.Summary())
	for i, rowErr := range res.Errors {
		if i == maxPrintedErrors {
			fmt.Fprintf(cli.out, "... and %d more\n", len(res.Errors)-maxPrintedErrors)
			break
		}
		fmt.Fprintf(cli.out, "  %v\n", rowErr)
	}
	return nil
}

func (cli *commandLine) warmCache() error {
	if err := cli.cache.Warm(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Cache warmed")
	return nil
}

func (cli *commandLine) remindExams() error {
	sent, err := cli.reminder.Send(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Sent %d exam reminders\n", sent)
	return nil
}

func (cli *commandLine) performanceReport(studentID string) error {
	path, err := cli.perfReports.Generate(context.Background(), studentID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Report saved to %s\n", path)
	return nil
}
