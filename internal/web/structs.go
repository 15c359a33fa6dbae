package web

import (
	"errors"

	"leapsail/auth/users"

	"github.com/gofiber/fiber/v2"
)

type loginRequest struct {
	username string
	password string
}

func parseLoginRequest(ctx *fiber.Ctx) (loginRequest, error) {
	var err error
	username := ctx.FormValue("username", "")
	err = errors.Join(err, validateUsername(username))
	password := ctx.FormValue("password", "")
	err = errors.Join(err, validatePassword(password))
	if err != nil {
		return loginRequest{}, err
	}
	return loginRequest{
		username: username,
		password: password,
	}, nil
}

type registerRequest struct {
	username string
	password string
	profile  users.Profile
}

func parseRegisterRequest(ctx *fiber.Ctx) (registerRequest, error) {
	var err error
	username := ctx.FormValue("username", "")
	err = errors.Join(err, validateUsername(username))
	password := ctx.FormValue("password", "")
	err = errors.Join(err, validatePassword(password))
	if err != nil {
		return registerRequest{}, err
	}
	return registerRequest{
		username: username,
		password: password,
		profile: users.Profile{
			FirstName: ctx.FormValue("fname", ""),
			LastName:  ctx.FormValue("lname", ""),
			Role:      ctx.FormValue("role", ""),
			Phone:     ctx.FormValue("phone", ""),
		},
	}, nil
}

func validateUsername(username string) error {
	if username == "" {
		return errors.New("username must not be empty")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return errors.New("password must not be empty")
	}
	return nil
}
