package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/participant"
	"github.com/reelbingo/promo/storage/database/inmem"
	"github.com/reelbingo/promo/tests"
)

var (
	partRepo participant.Repository
	partSvc  participant.Service
)

func setup(t *testing.T) *commandLine {
	// set up DB & repos
	db := inmemdb.Open()
	partRepo = inmemdb.NewParticipantRepository(db)
	partSvc = participant.NewService(db, partRepo, inmemdb.NewProgressRepository(db))

	// start CLI
	return &commandLine{
		partSvc:  partSvc,
		validate: validator.New(),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLITest(t *testing.T, cli *commandLine, tt cliTest) error {
	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErr, err)
		}
	case tt.wantErrStr != "":
		assert.EqualError(t, err, tt.wantErrStr)
	default:
		assert.NoError(t, err)
	}
	return err
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
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
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_prizes", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runCLITest(t, cli, tt)
		})
	}
}

func Test_commandLine_addManager(t *testing.T) {
	ctx := context.Background()
	cli := setup(t)
	existing := testutil.CreateParticipant(t, partRepo, nil, "jane@test.test", "Passw0rd!")

	tests := []cliTest{
		{name: "no args", args: []string{"addmanager"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"addmanager", "-email", "mgr@test.test"}, wantErr: errHelp},
		{name: "invalid email", args: []string{"addmanager", "-email", "mgr"}, extra: "S3cret-pass", wantErrStr: `invalid email "mgr"`},
		{name: "new manager", args: []string{"addmanager", "-email", " Mgr@Test.test "}, extra: "S3cret-pass"},
		{name: "promote participant", args: []string{"addmanager", "-email", existing.Email}, extra: "S3cret-pass"},
	}
	for _, tt := range tests {
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			if err := runCLITest(t, cli, tt); err != nil {
				return
			}
			email := core.CleanString(tt.args[2], true /* lower */)
			mgr, err := partSvc.GetByEmail(ctx, email)
			require.NoError(t, err)
			assert.True(t, mgr.IsManager)
			assert.NoError(t, mgr.CheckPassword(pwd))
		})
	}

	promoted, err := partSvc.GetByEmail(ctx, existing.Email)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, promoted.ID)
}

func Test_commandLine_resetPassword(t *testing.T) {
	ctx := context.Background()
	cli := setup(t)
	p := testutil.CreateParticipant(t, partRepo, nil, "jane@test.test", "Passw0rd!")

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", p.Email}, wantErr: errHelp},
		{name: "participant not found", args: []string{"resetpassword", "-email", "lol@test.test"}, extra: "lol", wantErrStr: "participant not found"},
		{name: "reset", args: []string{"resetpassword", "-email", p.Email}, extra: "N3w-password"},
	}
	for _, tt := range tests {
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			if err := runCLITest(t, cli, tt); err != nil {
				return
			}
			refreshed, err := partSvc.GetByID(ctx, p.ID)
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword(pwd))
			assert.Error(t, refreshed.CheckPassword("Passw0rd!"))
		})
	}
}
