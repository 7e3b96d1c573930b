package state

import (
	"log/slog"

	"github.com/m3rciful/servicebot/core/logger"
	tghelpers "github.com/m3rciful/servicebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

type handlerEntry struct {
	name string
	h    tele.HandlerFunc
}

// RegisterHandler associates a state with its handler. name labels the
// handler in logs and metrics.
func (s *Store) RegisterHandler(st State, name string, h tele.HandlerFunc) {
	if h == nil {
		return
	}
	s.handlers[st] = handlerEntry{name: name, h: h}
}

// InDialog reports whether the sender of c is inside a dialog with a
// registered handler.
func (s *Store) InDialog(c tele.Context) bool {
	st := s.State(KeyFrom(c))
	_, ok := s.handlers[st]
	return ok
}

// HandlerName returns the label of the handler serving c, if any.
func (s *Store) HandlerName(c tele.Context) string {
	return s.handlers[s.State(KeyFrom(c))].name
}

// ManagerHandler executes the handler registered for the current state.
func (s *Store) ManagerHandler(c tele.Context) error {
	key := KeyFrom(c)
	current := s.State(key)
	ctx := tghelpers.BuildContext(c)
	logger.Debug(ctx, "tg", "fsm.manager",
		slog.String("status", "ok"),
		slog.String("state", string(current)),
	)

	if he, ok := s.handlers[current]; ok {
		return he.h(c)
	}
	return nil
}

// CurrentState exposes the state of c for guard middleware.
func (s *Store) CurrentState(c tele.Context) string {
	return string(s.State(KeyFrom(c)))
}
