package main

import (
	"context"
	"time"

	echoapi "github.com/trezcool/chuo/apps/api/echo"
)

// token issues an API token for the user named (or with the email) uname.
func (cli *commandLine) token(uname string) (string, error) {
	usr, err := cli.usrSvc.GetByUsernameOrEmail(context.Background(), uname)
	if err != nil {
		return "", err
	}
	return echoapi.GenerateToken(echoapi.GetUserClaims(usr, cli.conf, time.Now()), cli.conf.SecretKey)
}
