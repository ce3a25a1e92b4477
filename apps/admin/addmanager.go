package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/reelbingo/promo/core"
)

// addManager creates a manager account or promotes an existing participant.
func (cli *commandLine) addManager(email, pwd string) error {
	email = core.CleanString(email, true /* lower */)
	if err := cli.validate.Var(email, "email"); err != nil {
		return errors.Errorf("invalid email %q", email)
	}
	mgr, err := cli.partSvc.AddManager(context.Background(), email, pwd)
	if err != nil {
		return err
	}
	logger.Printf("manager %s (%s) is ready", mgr.Email, mgr.ID)
	return nil
}
