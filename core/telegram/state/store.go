package state

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/m3rciful/servicebot/core/logger"
)

const (
	component = "session"

	// DefaultTTL is the inactivity window after which a session expires.
	DefaultTTL = 30 * time.Minute
	// DefaultCleanup is the janitor interval.
	DefaultCleanup = 5 * time.Minute
)

// Options tune a Store.
type Options struct {
	TTL     time.Duration
	Cleanup time.Duration
	// OnExpired runs after a session was evicted for inactivity.
	OnExpired func(key Key, last State)
}

type entry struct {
	mu      sync.Mutex
	key     Key
	s       *Session
	removed atomic.Bool
}

// Store keeps sessions in a go-cache with sliding expiry. Every access to a
// session runs under that session's own mutex, so updates from one
// conversation never interleave.
type Store struct {
	cache     *cache.Cache
	ttl       time.Duration
	createMu  sync.Mutex
	onExpired func(Key, State)
	handlers  map[State]handlerEntry
}

// NewStore builds an empty store.
func NewStore(opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Cleanup <= 0 {
		opts.Cleanup = DefaultCleanup
	}
	s := &Store{
		cache:     cache.New(opts.TTL, opts.Cleanup),
		ttl:       opts.TTL,
		onExpired: opts.OnExpired,
		handlers:  make(map[State]handlerEntry),
	}
	s.cache.OnEvicted(s.evicted)
	return s
}

func (s *Store) evicted(_ string, v any) {
	e, ok := v.(*entry)
	if !ok || e.removed.Load() {
		return
	}
	e.mu.Lock()
	last := e.s.State
	e.mu.Unlock()

	logger.Info(context.Background(), component, "session.expired",
		slog.Int64("chat_id", e.key.ChatID),
		slog.Int64("user_id", e.key.UserID),
		slog.String("state", string(last)),
	)
	if s.onExpired != nil {
		s.onExpired(e.key, last)
	}
}

// lookup returns the live entry for key and slides its expiry. With create
// set, a missing session is created.
func (s *Store) lookup(key Key, create bool) *entry {
	k := key.String()
	if v, ok := s.cache.Get(k); ok {
		e := v.(*entry)
		s.cache.Set(k, e, s.ttl)
		return e
	}
	if !create {
		return nil
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()
	if v, ok := s.cache.Get(k); ok {
		return v.(*entry)
	}
	e := &entry{key: key, s: newSession()}
	s.cache.Set(k, e, s.ttl)
	return e
}

// Do runs fn with exclusive access to the session of key, creating it if
// needed. fn must not call back into the store for the same key.
func (s *Store) Do(key Key, fn func(*Session)) {
	e := s.lookup(key, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.s)
}

// View runs fn on an existing session. It reports false when there is none.
func (s *Store) View(key Key, fn func(*Session)) bool {
	e := s.lookup(key, false)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.s)
	return true
}

// State returns the dialog state, or StateIdle when there is no session.
func (s *Store) State(key Key) State {
	st := StateIdle
	s.View(key, func(sess *Session) { st = sess.State })
	return st
}

// SetState moves the dialog to st.
func (s *Store) SetState(key Key, st State) {
	s.Do(key, func(sess *Session) { sess.State = st })
}

// InProgress reports whether key has an active dialog.
func (s *Store) InProgress(key Key) bool {
	active := false
	s.View(key, func(sess *Session) { active = sess.InDialog() })
	return active
}

// Field returns one collected form field.
func (s *Store) Field(key Key, name string) string {
	var v string
	s.View(key, func(sess *Session) { v = sess.Fields[name] })
	return v
}

// SetField records a form field.
func (s *Store) SetField(key Key, name, value string) {
	s.Do(key, func(sess *Session) { sess.Fields[name] = value })
}

// Fields returns a copy of the collected form fields.
func (s *Store) Fields(key Key) map[string]string {
	out := make(map[string]string)
	s.View(key, func(sess *Session) {
		for k, v := range sess.Fields {
			out[k] = v
		}
	})
	return out
}

// Track appends message ids to the pending-deletion buffer.
func (s *Store) Track(key Key, ids ...int) {
	if len(ids) == 0 {
		return
	}
	s.Do(key, func(sess *Session) { sess.Pending = append(sess.Pending, ids...) })
}

// Pending returns a copy of the pending-deletion buffer.
func (s *Store) Pending(key Key) []int {
	var out []int
	s.View(key, func(sess *Session) { out = append(out, sess.Pending...) })
	return out
}

// Finish ends the dialog, discarding its fields, and hands back the pending
// ids exactly once. Paging cursors and other temp values survive.
func (s *Store) Finish(key Key) []int {
	var ids []int
	s.View(key, func(sess *Session) { ids = sess.reset(false) })
	return ids
}

// Abort ends the dialog and discards its fields but keeps the pending ids.
func (s *Store) Abort(key Key) {
	s.View(key, func(sess *Session) { sess.reset(true) })
}

// Temp returns a free-form value.
func (s *Store) Temp(key Key, name string) (any, bool) {
	var (
		v  any
		ok bool
	)
	s.View(key, func(sess *Session) { v, ok = sess.Temp[name] })
	return v, ok
}

// SetTemp stores a free-form value.
func (s *Store) SetTemp(key Key, name string, value any) {
	s.Do(key, func(sess *Session) { sess.Temp[name] = value })
}

// ClearTemp removes a free-form value.
func (s *Store) ClearTemp(key Key, name string) {
	s.View(key, func(sess *Session) { delete(sess.Temp, name) })
}

// Clear drops the whole session without running the expiry hook.
func (s *Store) Clear(key Key) {
	e := s.lookup(key, false)
	if e == nil {
		return
	}
	e.removed.Store(true)
	s.cache.Delete(key.String())
}

// Len returns the number of live sessions.
func (s *Store) Len() int { return s.cache.ItemCount() }

// Sweep evicts expired sessions now instead of waiting for the janitor.
func (s *Store) Sweep() { s.cache.DeleteExpired() }
