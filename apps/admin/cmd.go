package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/trezcool/masomo-learn/core"
	"github.com/trezcool/masomo-learn/core/analytics"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf *core.Config
	db   *sql.DB
	svc  *analytics.Service
	out  io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command against the catalog database")
	fmt.Fprintln(cli.out, "  enroll -student ID - create the analytics record of a student")
	fmt.Fprintln(cli.out, "  streak -student ID - compare the stored streak with the one computed from the ledger")
	fmt.Fprintln(cli.out, "  plan -student ID [-budget MINUTES] [-subjects A,B] - generate a weekly study plan")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	enrollCmd := flag.NewFlagSet("enroll", flag.ExitOnError)
	enrollStudent := enrollCmd.String("student", "", "The student's id.")

	streakCmd := flag.NewFlagSet("streak", flag.ExitOnError)
	streakStudent := streakCmd.String("student", "", "The student's id.")

	planCmd := flag.NewFlagSet("plan", flag.ExitOnError)
	planStudent := planCmd.String("student", "", "The student's id.")
	planBudget := planCmd.Float64("budget", 60, "The daily study budget, in minutes.")
	planSubjects := planCmd.String("subjects", "", "Comma separated subjects. Defaults to the subjects of the student's quizzes.")

	ctx := context.Background()

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "enroll":
		if err := enrollCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *enrollStudent == "" {
			enrollCmd.Usage()
			return errHelp
		}
		rec, err := cli.svc.Enroll(ctx, *enrollStudent)
		if err != nil {
			return err
		}
		return cli.print(rec)
	case "streak":
		if err := streakCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *streakStudent == "" {
			streakCmd.Usage()
			return errHelp
		}
		summary, err := cli.svc.ComputeStreakFromLedger(ctx, *streakStudent)
		if err != nil {
			return err
		}
		return cli.print(summary)
	case "plan":
		if err := planCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *planStudent == "" {
			planCmd.Usage()
			return errHelp
		}
		plan, err := cli.svc.GenerateStudyPlan(ctx, *planStudent, analytics.StudyPlanRequest{
			Subjects:           splitSubjects(*planSubjects),
			DailyBudgetMinutes: *planBudget,
		})
		if err != nil {
			return err
		}
		return cli.print(plan)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) print(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cli.out, string(data))
	return err
}

func splitSubjects(s string) []string {
	var subjects []string
	for _, subject := range strings.Split(s, ",") {
		if subject = core.CleanString(subject); subject != "" {
			subjects = append(subjects, subject)
		}
	}
	return subjects
}
