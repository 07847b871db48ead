package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-learn/core/analytics"
	"github.com/trezcool/masomo-learn/storage/database"
	testutil "github.com/trezcool/masomo-learn/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	conf := testutil.Config()
	conf.Database.Engine = "postgres"
	db := testutil.OpenDummyDB(t)
	var out bytes.Buffer

	return &commandLine{
		conf: conf,
		svc:  testutil.NewService(db, testutil.NewClock(testutil.Now)),
		out:  &out,
	}, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	var gotDir string
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		gotDir = dir
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "question_tags", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
	assert.Equal(t, database.MigrationsDir, gotDir)
}

func Test_commandLine_enroll(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "no student", args: []string{"enroll"}, wantErr: errHelp},
		{name: "blank student", args: []string{"enroll", "-student", " "}, wantErr: analytics.ErrInvalidStudent},
		{name: "new student", args: []string{"enroll", "-student", "s1"}},
		{name: "enrolled student", args: []string{"enroll", "-student", "s1"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			tt.check(t, err)
			if err == nil {
				var rec analytics.StudentRecord
				require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
				assert.Equal(t, "s1", rec.StudentID)
				assert.Equal(t, int64(1), rec.Version)
			}
		})
	}
}

func Test_commandLine_streak(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()
	_, err := cli.svc.Enroll(ctx, "s1")
	require.NoError(t, err)
	_, err = cli.svc.RecordStudySession(ctx, "s1", analytics.NewStudySession{DurationMinutes: 15})
	require.NoError(t, err)

	tests := []cliTest{
		{name: "no student", args: []string{"streak"}, wantErr: errHelp},
		{name: "unknown student", args: []string{"streak", "-student", "s2"}, wantErr: analytics.ErrRecordNotFound},
		{name: "enrolled student", args: []string{"streak", "-student", "s1"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			tt.check(t, err)
			if err == nil {
				var summary analytics.StreakSummary
				require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
				assert.Equal(t, 1, summary.StreakDays)
				assert.True(t, summary.Consistent())
			}
		})
	}
}

func Test_commandLine_plan(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()
	_, err := cli.svc.Enroll(ctx, "s1")
	require.NoError(t, err)

	tests := []cliTest{
		{name: "no student", args: []string{"plan"}, wantErr: errHelp},
		{name: "no subjects", args: []string{"plan", "-student", "s1"}, wantErr: analytics.ErrNoSubjects},
		{name: "bad budget", args: []string{"plan", "-student", "s1", "-budget", "0", "-subjects", "Algebra"}, wantErr: analytics.ErrInvalidDuration},
		{name: "subjects", args: []string{"plan", "-student", "s1", "-budget", "30", "-subjects", "Algebra, Biology,"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			tt.check(t, err)
			if err == nil {
				var plan analytics.StudyPlan
				require.NoError(t, json.Unmarshal(out.Bytes(), &plan))
				assert.Equal(t, 210.0, plan.TotalStudyTime)
				require.Len(t, plan.Subjects, 2)
			}
		})
	}
}

func Test_splitSubjects(t *testing.T) {
	assert.Nil(t, splitSubjects(""))
	assert.Equal(t, []string{"Algebra", "Biology"}, splitSubjects(" Algebra ,, Biology "))
}
