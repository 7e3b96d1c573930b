package state

import (
	"strconv"

	tele "gopkg.in/telebot.v4"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Key identifies one conversation.
type Key struct {
	ChatID int64
	UserID int64
}

// KeyFrom derives the conversation key of an update.
func KeyFrom(c tele.Context) Key {
	var k Key
	if chat := c.Chat(); chat != nil {
		k.ChatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		k.UserID = user.ID
	}
	if k.ChatID == 0 {
		k.ChatID = k.UserID
	}
	return k
}

func (k Key) String() string {
	return strconv.FormatInt(k.ChatID, 10) + ":" + strconv.FormatInt(k.UserID, 10)
}

// Session stores conversation state and temporary data for a user. It is only
// mutated while the store holds the session lock.
type Session struct {
	State   State
	Fields  map[string]string
	Pending []int
	Temp    map[string]any
}

func newSession() *Session {
	return &Session{
		State:  StateIdle,
		Fields: make(map[string]string),
		Temp:   make(map[string]any),
	}
}

// InDialog reports whether a dialog step is active.
func (s *Session) InDialog() bool { return s.State != StateIdle && s.State != "" }

// reset ends the dialog: fields are discarded, pending ids are handed back.
func (s *Session) reset(keepPending bool) []int {
	s.State = StateIdle
	clear(s.Fields)
	if keepPending {
		return nil
	}
	ids := s.Pending
	s.Pending = nil
	return ids
}
