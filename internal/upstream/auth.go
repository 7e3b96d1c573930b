package upstream

import (
	"context"
	"fmt"
	"net/http"

	"github.com/m3rciful/servicebot/internal/apperr"
	"github.com/m3rciful/servicebot/internal/model"
	"github.com/m3rciful/servicebot/internal/normalize"
)

const (
	msgBadCredentials  = "Неверный логин или пароль"
	msgRegisterFailed  = "Не удалось зарегистрироваться"
	serverErrorPattern = "Ошибка сервера (код %d)"
)

// Registration is the payload of /auth/register. Phone is already in the
// upstream format without the country prefix.
type Registration struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

type credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Login authenticates a user. Success requires status 200 and a non-empty
// user object.
func (c *Client) Login(ctx context.Context, login, password string) (model.User, error) {
	resp, err := c.Do(ctx, http.MethodPost, "/auth/login", nil, credentials{Login: login, Password: password})
	if err != nil {
		return model.User{}, err
	}
	if resp.Status == http.StatusOK {
		if u, ok := normalize.User(ctx, resp.Data); ok {
			return u, nil
		}
	}
	msg := resp.Field("message")
	switch {
	case msg != "":
	case resp.Status != http.StatusOK:
		msg = fmt.Sprintf(serverErrorPattern, resp.Status)
	default:
		msg = msgBadCredentials
	}
	return model.User{}, apperr.Rejected("auth.login", resp.Status, msg)
}

// Register creates an account. Status 200 and 201 count as success.
func (c *Client) Register(ctx context.Context, r Registration) error {
	resp, err := c.Do(ctx, http.MethodPost, "/auth/register", nil, r)
	if err != nil {
		return err
	}
	if resp.Status == http.StatusOK || resp.Status == http.StatusCreated {
		return nil
	}
	var msg string
	if resp.Object() != nil {
		msg = resp.Field("message")
		if msg == "" {
			msg = msgRegisterFailed
		}
	} else {
		msg = fmt.Sprintf("Ошибка (код %d): %v", resp.Status, resp.Data)
	}
	return apperr.Rejected("auth.register", resp.Status, msg)
}

// Logout ends the upstream session.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.Do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return rejected("auth.logout", resp)
	}
	return nil
}
