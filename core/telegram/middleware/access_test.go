package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func message(from int64) tele.Context {
	return tele.NewContext(nil, tele.Update{ID: 1, Message: &tele.Message{
		ID:     10,
		Sender: &tele.User{ID: from},
		Chat:   &tele.Chat{ID: from},
	}})
}

type recorder struct{ calls []string }

func (r *recorder) handler(name string) tele.HandlerFunc {
	return func(tele.Context) error {
		r.calls = append(r.calls, name)
		return nil
	}
}

func TestRequireAuth(t *testing.T) {
	allowed := AuthorizerFunc(func(_ context.Context, id int64) bool { return id == 7 })
	tests := []struct {
		name string
		from int64
		opts AccessOptions
		want string
	}{
		{"authorized", 7, AccessOptions{Auth: allowed}, "ok"},
		{"unknown user", 8, AccessOptions{Auth: allowed}, "reject"},
		{"admin bypass", 1, AccessOptions{AdminID: 1, Auth: allowed}, "ok"},
		{"no authorizer", 7, AccessOptions{}, "reject"},
		{"no sender", 0, AccessOptions{AdminID: 0, Auth: AuthorizerFunc(func(context.Context, int64) bool { return true })}, "reject"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			tt.opts.OnReject = rec.handler("reject")
			err := RequireAuth(tt.opts, rec.handler("ok"))(message(tt.from))
			assert.NoError(t, err)
			assert.Equal(t, []string{tt.want}, rec.calls)
		})
	}
}

func TestRequireAuthWithoutRejectHandler(t *testing.T) {
	rec := &recorder{}
	err := RequireAuth(AccessOptions{}, rec.handler("ok"))(message(5))
	assert.NoError(t, err)
	assert.Empty(t, rec.calls)
}

func TestAdminOnly(t *testing.T) {
	rec := &recorder{}
	mw := AdminOnlyMiddleware(AdminOptions{AdminID: 1, OnReject: rec.handler("reject")})
	h := mw(rec.handler("ok"))

	assert.NoError(t, h(message(1)))
	assert.NoError(t, h(message(2)))
	assert.Equal(t, []string{"ok", "reject"}, rec.calls)

	open := AdminOnlyMiddleware(AdminOptions{})(rec.handler("open"))
	assert.NoError(t, open(message(3)))
	assert.Equal(t, "open", rec.calls[2])
}

type fixedState string

func (s fixedState) CurrentState(tele.Context) string { return string(s) }

func TestStateGuard(t *testing.T) {
	rec := &recorder{}
	assert.NoError(t, State(fixedState("reg_login_choice"), "reg_login_choice")(rec.handler("match"))(message(1)))
	assert.NoError(t, State(fixedState("idle"), "reg_login_choice")(rec.handler("skip"))(message(1)))
	assert.Equal(t, []string{"match"}, rec.calls)
}
