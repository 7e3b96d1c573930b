package dialog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/servicebot/core/telegram/state"
	"github.com/m3rciful/servicebot/internal/apperr"
	"github.com/m3rciful/servicebot/internal/authcache"
	"github.com/m3rciful/servicebot/internal/model"
	"github.com/m3rciful/servicebot/internal/upstream"
)

type fakeAuth struct {
	mu         sync.Mutex
	registered []upstream.Registration
	logins     int
	user       model.User
	err        error
}

func (f *fakeAuth) Login(_ context.Context, login, _ string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	if f.err != nil {
		return model.User{}, f.err
	}
	u := f.user
	if u.IsZero() {
		u = model.User{Name: "Иван", Username: login}
	}
	return u, nil
}

func (f *fakeAuth) Register(_ context.Context, r upstream.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, r)
	return f.err
}

type recordingCleaner struct {
	mu    sync.Mutex
	calls [][]int
}

func (r *recordingCleaner) Delete(_ context.Context, _ state.Key, ids []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]int(nil), ids...))
}

type harness struct {
	engine  *Engine
	store   *state.Store
	auth    *fakeAuth
	cache   *authcache.Memory
	cleaner *recordingCleaner
	key     state.Key
	nextID  int
}

func newHarness(t *testing.T, auth Authenticator) *harness {
	t.Helper()
	h := &harness{
		store:   state.NewStore(state.Options{TTL: time.Minute}),
		cache:   authcache.NewMemory(),
		cleaner: &recordingCleaner{},
		key:     state.Key{ChatID: 100, UserID: 100},
		nextID:  1,
	}
	switch a := auth.(type) {
	case nil:
		h.auth = &fakeAuth{}
		auth = h.auth
	case *fakeAuth:
		h.auth = a
	}
	h.engine = New(Options{Store: h.store, Auth: auth, Cache: h.cache, Cleaner: h.cleaner})
	return h
}

// send feeds user text and tracks the bot answer the way the messaging
// layer does.
func (h *harness) send(in Input) Reply {
	in.MessageID = h.id()
	r := h.engine.Handle(context.Background(), h.key, in)
	if r.Track {
		h.engine.Track(h.key, h.id())
	}
	return r
}

func (h *harness) id() int {
	id := h.nextID
	h.nextID++
	return id
}

func TestRegistrationHappyPath(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	start := h.engine.StartRegistration(ctx, h.key)
	require.Equal(t, OutcomePrompt, start.Outcome)
	h.engine.Track(h.key, h.id())

	assert.Equal(t, OutcomePrompt, h.send(Input{Text: "Иван Иванов"}).Outcome)
	r := h.send(Input{Text: "+79161234567"})
	require.Equal(t, OutcomePrompt, r.Outcome)
	assert.Equal(t, KeyboardRemove, r.Keyboard)
	assert.Equal(t, KeyboardLoginChoice, h.send(Input{Text: "ivan@example.com"}).Keyboard)
	r = h.send(Input{Choice: ChoiceEmail})
	require.Equal(t, OutcomePrompt, r.Outcome)
	assert.Contains(t, r.Text, "ivan@example.com")

	pending := h.store.Pending(h.key)
	require.NotEmpty(t, pending)

	done := h.send(Input{Text: "secret1"})
	require.Equal(t, OutcomeSucceeded, done.Outcome)
	assert.True(t, done.Done())
	assert.False(t, done.Track)

	require.Len(t, h.auth.registered, 1)
	assert.Equal(t, upstream.Registration{
		Name:     "Иван Иванов",
		Phone:    "9161234567",
		Email:    "ivan@example.com",
		Login:    "ivan@example.com",
		Password: "secret1",
	}, h.auth.registered[0])

	assert.Equal(t, state.StateIdle, h.store.State(h.key))
	assert.Empty(t, h.store.Pending(h.key))
	assert.Empty(t, h.store.Fields(h.key))

	require.Len(t, h.cleaner.calls, 1)
	// the password message was tracked before submission
	assert.Equal(t, append(pending, h.nextID-1), h.cleaner.calls[0])

	ok, err := h.cache.Get(ctx, h.key.UserID)
	require.NoError(t, err)
	assert.False(t, ok, "registration alone does not authenticate")
}

func TestManualLoginBranch(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.StartRegistration(context.Background(), h.key)
	h.send(Input{Text: "Иван"})
	h.send(Input{Contact: "79161234567"})
	h.send(Input{Text: "ivan@example.com"})

	r := h.send(Input{Text: "typed instead of pressing"})
	assert.Equal(t, OutcomeInvalid, r.Outcome)
	assert.Equal(t, StateRegLoginChoice, h.store.State(h.key))

	h.send(Input{Choice: ChoiceManual})
	assert.Equal(t, StateRegManualLogin, h.store.State(h.key))

	assert.Equal(t, OutcomeInvalid, h.send(Input{Text: "iv"}).Outcome)
	assert.Equal(t, OutcomePrompt, h.send(Input{Text: "ivan"}).Outcome)
	assert.Equal(t, OutcomeInvalid, h.send(Input{Text: "12345"}).Outcome)
	assert.Equal(t, StateRegPassword, h.store.State(h.key))

	done := h.send(Input{Text: "123456"})
	require.Equal(t, OutcomeSucceeded, done.Outcome)
	require.Len(t, h.auth.registered, 1)
	assert.Equal(t, "ivan", h.auth.registered[0].Login)
	assert.Equal(t, "9161234567", h.auth.registered[0].Phone)
}

func TestInvalidInputKeepsState(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.StartRegistration(context.Background(), h.key)
	h.send(Input{Text: "Иван"})

	r := h.send(Input{Text: "123"})
	assert.Equal(t, OutcomeInvalid, r.Outcome)
	assert.Equal(t, KeyboardContact, r.Keyboard)
	assert.Equal(t, StateRegPhone, h.store.State(h.key))
	assert.Empty(t, h.store.Field(h.key, FieldPhone))

	r = h.send(Input{Text: "+79161234567"})
	assert.Equal(t, OutcomePrompt, r.Outcome)
	h.send(Input{Text: "not-an-email"})
	assert.Equal(t, StateRegEmail, h.store.State(h.key))
}

func TestStrictPhoneRejectedAtSubmit(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.StartRegistration(context.Background(), h.key)
	h.send(Input{Text: "Иван"})
	require.Equal(t, OutcomePrompt, h.send(Input{Text: "89991234567"}).Outcome)
	h.send(Input{Text: "ivan@example.com"})
	h.send(Input{Choice: ChoiceEmail})

	r := h.send(Input{Text: "secret1"})
	assert.Equal(t, OutcomeFailed, r.Outcome)
	assert.Contains(t, r.Text, "начните регистрацию заново")
	assert.Empty(t, h.auth.registered)
	assert.Equal(t, state.StateIdle, h.store.State(h.key))
	assert.Empty(t, h.store.Fields(h.key))
	assert.NotEmpty(t, h.store.Pending(h.key), "failed dialogs keep their prompts")
	assert.Empty(t, h.cleaner.calls)
}

func TestRegistrationRejected(t *testing.T) {
	auth := &fakeAuth{err: apperr.Rejected("auth.register", 409, "Пользователь уже существует")}
	h := newHarness(t, auth)
	h.engine.StartRegistration(context.Background(), h.key)
	h.send(Input{Text: "Иван"})
	h.send(Input{Text: "+79161234567"})
	h.send(Input{Text: "ivan@example.com"})
	h.send(Input{Choice: ChoiceEmail})

	r := h.send(Input{Text: "secret1"})
	assert.Equal(t, OutcomeFailed, r.Outcome)
	assert.Equal(t, "❌ Ошибка регистрации: Пользователь уже существует", r.Text)
	assert.Equal(t, KeyboardAuthMenu, r.Keyboard)
	assert.NotEmpty(t, h.store.Pending(h.key))
	assert.Empty(t, h.cleaner.calls)
}

func TestLoginFailureLeavesCacheUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":401,"data":{"message":"bad credentials"}}`))
	}))
	defer srv.Close()

	client := upstream.New(upstream.Config{BaseURL: srv.URL, Timeout: time.Second})
	h := newHarness(t, client)
	ctx := context.Background()

	h.engine.StartLogin(ctx, h.key)
	h.send(Input{Text: "ivan@example.com"})
	r := h.send(Input{Text: "wrong"})

	assert.Equal(t, OutcomeFailed, r.Outcome)
	assert.Contains(t, r.Text, "Ошибка входа: bad credentials")
	ok, err := h.cache.Get(ctx, h.key.UserID)
	require.NoError(t, err)
	assert.False(t, ok)
	_, remembered := h.engine.Profile(h.key)
	assert.False(t, remembered)
	assert.Equal(t, state.StateIdle, h.store.State(h.key))
	assert.Empty(t, h.store.Fields(h.key))
}

func TestLoginSuccess(t *testing.T) {
	auth := &fakeAuth{user: model.User{Name: "Иван", Phone: "9161234567"}}
	h := newHarness(t, auth)
	ctx := context.Background()

	h.engine.StartLogin(ctx, h.key)
	h.send(Input{Text: "ivan"})
	r := h.send(Input{Text: "pw"})

	require.Equal(t, OutcomeSucceeded, r.Outcome)
	assert.Equal(t, "Иван", r.User.Name)
	ok, err := h.cache.Get(ctx, h.key.UserID)
	require.NoError(t, err)
	assert.True(t, ok)

	u, remembered := h.engine.Profile(h.key)
	require.True(t, remembered)
	assert.Equal(t, "9161234567", u.Phone)
	assert.Equal(t, "ivan", u.Username)
	require.Len(t, h.cleaner.calls, 1)

	require.NoError(t, h.engine.Logout(ctx, h.key))
	ok, _ = h.cache.Get(ctx, h.key.UserID)
	assert.False(t, ok)
	_, remembered = h.engine.Profile(h.key)
	assert.False(t, remembered)
}

func TestCancelFlushesAndDiscards(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.engine.StartRegistration(ctx, h.key)
	h.engine.Track(h.key, h.id())
	h.send(Input{Text: "Иван"})

	r := h.engine.Cancel(ctx, h.key)
	assert.Equal(t, OutcomeCancelled, r.Outcome)
	assert.Equal(t, FlowRegister, r.Flow)
	assert.Equal(t, KeyboardMainMenu, r.Keyboard)
	assert.Equal(t, state.StateIdle, h.store.State(h.key))
	assert.Empty(t, h.store.Fields(h.key))
	require.Len(t, h.cleaner.calls, 1)
	assert.Len(t, h.cleaner.calls[0], 3)

	// a second cancel has nothing left to flush
	h.engine.Cancel(ctx, h.key)
	assert.Len(t, h.cleaner.calls, 1)
}

func TestInputOutsideDialogIgnored(t *testing.T) {
	h := newHarness(t, nil)
	r := h.send(Input{Text: "hello"})
	assert.Equal(t, OutcomeIgnored, r.Outcome)
	assert.False(t, h.engine.Active(h.key))
	assert.Empty(t, h.store.Pending(h.key))
}

func TestRestartDiscardsPreviousFields(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.engine.StartRegistration(ctx, h.key)
	h.send(Input{Text: "Иван"})
	require.Equal(t, "Иван", h.store.Field(h.key, FieldName))

	h.engine.StartLogin(ctx, h.key)
	assert.Empty(t, h.store.Field(h.key, FieldName))
	assert.Equal(t, StateLogin, h.store.State(h.key))
	assert.True(t, h.engine.Active(h.key))
}
