package middleware

import (
	"context"

	tghelpers "github.com/m3rciful/servicebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware ensures that only the admin user can invoke downstream handlers.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.AdminID != 0 && senderID(c) != opts.AdminID {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}

// Authorizer decides whether a user may run protected handlers.
type Authorizer interface {
	Authorized(ctx context.Context, userID int64) bool
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, userID int64) bool

// Authorized implements Authorizer.
func (f AuthorizerFunc) Authorized(ctx context.Context, userID int64) bool { return f(ctx, userID) }

// AccessOptions configures RequireAuth. AdminID always passes.
type AccessOptions struct {
	AdminID  int64
	Auth     Authorizer
	OnReject tele.HandlerFunc
}

// RequireAuth wraps a handler so only authorized users reach it.
func RequireAuth(opts AccessOptions, h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		id := senderID(c)
		if id != 0 && (id == opts.AdminID || (opts.Auth != nil && opts.Auth.Authorized(tghelpers.BuildContext(c), id))) {
			return h(c)
		}
		if opts.OnReject != nil {
			return opts.OnReject(c)
		}
		return nil
	}
}

func senderID(c tele.Context) int64 {
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}
