package main

import (
	"context"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

type newUserArgs struct {
	username    string
	email       string
	name        string
	studentCode string
	isAdmin     bool
	password    string
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(a newUserArgs) error {
	ctx := context.Background()
	uname := core.CleanString(a.username, true /* lower */)

	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if !core.IsNotFound(err) {
			return err
		}
		nu := user.NewUser{
			Name:            a.name,
			Username:        uname,
			Email:           a.email,
			StudentCode:     a.studentCode,
			Role:            user.RoleStudent,
			Password:        a.password,
			PasswordConfirm: a.password,
		}
		if nu.Name == "" {
			nu.Name = uname
		}
		if a.isAdmin {
			nu.Role = user.RoleAdmin
		}
		_, err = cli.usrSvc.Create(ctx, nu)
		return err
	}

	active := true
	uu := user.UpdateUser{
		Name:            a.name,
		Email:           a.email,
		IsActive:        &active,
		Password:        a.password,
		PasswordConfirm: a.password,
	}
	if a.studentCode != "" {
		uu.StudentCode = &a.studentCode
	}
	if a.isAdmin {
		uu.Role = user.RoleAdmin
	}
	_, err = cli.usrSvc.Update(ctx, usr, uu)
	return err
}
