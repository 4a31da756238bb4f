package main

import (
	"context"

	"github.com/trezcool/chuo/core/user"
)

// addUser updates or creates the user.User named uname and (re)sets its password.
func (cli *commandLine) addUser(nu user.NewUser) (user.User, error) {
	return cli.usrSvc.Save(context.Background(), nu)
}
