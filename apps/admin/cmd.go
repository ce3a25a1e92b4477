package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/reelbingo/promo/core/participant"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sql.DB
	partSvc  participant.Service
	validate *validator.Validate
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, create NAME sql, ...)")
	fmt.Println("  addmanager -email EMAIL - create a manager account, or promote an existing one")
	fmt.Println("  resetpassword -email EMAIL - reset an account's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addManagerCmd := flag.NewFlagSet("addmanager", flag.ExitOnError)
	addManagerEmail := addManagerCmd.String("email", "", "The manager's email. The password will be prompted next.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addmanager":
		if err := addManagerCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addManagerEmail == "" {
			addManagerCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addManagerCmd.Usage()
			return errHelp
		}
		return cli.addManager(*addManagerEmail, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
