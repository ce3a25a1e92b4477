package main

import (
	"context"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	return cli.partSvc.ResetPassword(context.Background(), email, pwd)
}
