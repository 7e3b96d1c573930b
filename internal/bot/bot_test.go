package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/servicebot/core/telegram/state"
	"github.com/m3rciful/servicebot/internal/dialog"
)

func update(u tele.Update) tele.Context { return tele.NewContext(nil, u) }

func TestInput(t *testing.T) {
	user := &tele.User{ID: 5, FirstName: "Ирина"}
	chat := &tele.Chat{ID: 5}

	tests := []struct {
		name string
		upd  tele.Update
		want dialog.Input
	}{
		{
			name: "text is trimmed",
			upd:  tele.Update{Message: &tele.Message{ID: 3, Sender: user, Chat: chat, Text: "  ivan@example.com "}},
			want: dialog.Input{Text: "ivan@example.com", MessageID: 3},
		},
		{
			name: "shared contact",
			upd: tele.Update{Message: &tele.Message{ID: 4, Sender: user, Chat: chat,
				Contact: &tele.Contact{PhoneNumber: "+79161234567", UserID: 5}}},
			want: dialog.Input{Contact: "+79161234567", MessageID: 4},
		},
		{
			name: "button press",
			upd: tele.Update{Callback: &tele.Callback{Sender: user, Data: "\fuse_email_as_login",
				Message: &tele.Message{ID: 9, Chat: chat}}},
			want: dialog.Input{Choice: "use_email_as_login"},
		},
		{
			name: "empty update",
			upd:  tele.Update{},
			want: dialog.Input{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Input(update(tt.upd)))
		})
	}
}

func TestFirstName(t *testing.T) {
	c := update(tele.Update{Message: &tele.Message{Sender: &tele.User{ID: 1, FirstName: "Ирина"}}})
	assert.Equal(t, "Ирина", FirstName(c))
	assert.Empty(t, FirstName(update(tele.Update{})))
}

type failures int

func (f *failures) CleanupFailed() { *f++ }

func TestDetachedCleanerIsNoop(t *testing.T) {
	var f failures
	cl := NewCleaner(&f)
	cl.Delete(context.Background(), state.Key{ChatID: 1, UserID: 1}, []int{1, 2})
	assert.Zero(t, int(f))
}
