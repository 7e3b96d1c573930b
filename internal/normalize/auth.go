package normalize

import (
	"context"

	"github.com/m3rciful/servicebot/internal/model"
)

// User normalizes the "user" object of an auth payload. The flag is false
// when no user data is present.
func User(ctx context.Context, raw any) (model.User, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		anomaly(ctx, KindAuth, "malformed_payload", -1, raw)
		return model.User{}, false
	}
	inner, ok := m["user"].(map[string]any)
	if !ok {
		return model.User{}, false
	}
	r := record(inner)
	u := model.User{
		Name:     r.text("name", "Наименование"),
		Phone:    r.text("phone", "Телефон"),
		Email:    r.text("email", "Email"),
		Username: r.text("username", "login"),
	}
	return u, !u.IsZero()
}
