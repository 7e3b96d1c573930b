package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var k1 = Key{ChatID: 10, UserID: 1}

func TestStoreDefaults(t *testing.T) {
	s := NewStore(Options{})
	assert.Equal(t, StateIdle, s.State(k1))
	assert.False(t, s.InProgress(k1))
	assert.Empty(t, s.Pending(k1))
	assert.Equal(t, 0, s.Len(), "reads must not create sessions")
}

func TestFinishFlushesPendingOnce(t *testing.T) {
	s := NewStore(Options{})
	s.SetState(k1, "register.phone")
	s.SetField(k1, "name", "Иван")
	s.Track(k1, 5, 6)
	s.Track(k1, 7)
	s.SetTemp(k1, "cursor.products", 2)

	ids := s.Finish(k1)
	assert.Equal(t, []int{5, 6, 7}, ids)
	assert.Equal(t, StateIdle, s.State(k1))
	assert.Empty(t, s.Fields(k1))
	assert.Empty(t, s.Finish(k1), "second flush returns nothing")

	v, ok := s.Temp(k1, "cursor.products")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestAbortKeepsPending(t *testing.T) {
	s := NewStore(Options{})
	s.SetState(k1, "login.password")
	s.SetField(k1, "password", "secret")
	s.Track(k1, 11)

	s.Abort(k1)
	assert.Equal(t, StateIdle, s.State(k1))
	assert.Empty(t, s.Field(k1, "password"))
	assert.Equal(t, []int{11}, s.Pending(k1))
}

func TestFieldsReturnsCopy(t *testing.T) {
	s := NewStore(Options{})
	s.SetField(k1, "email", "a@b.ru")
	f := s.Fields(k1)
	f["email"] = "changed"
	assert.Equal(t, "a@b.ru", s.Field(k1, "email"))
}

func TestSessionsAreIndependent(t *testing.T) {
	s := NewStore(Options{})
	k2 := Key{ChatID: 20, UserID: 2}
	s.SetState(k1, "login.login")
	s.Track(k2, 1)
	assert.Equal(t, StateIdle, s.State(k2))
	assert.Empty(t, s.Pending(k1))
}

func TestConcurrentTrackDoesNotLoseIDs(t *testing.T) {
	s := NewStore(Options{})
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.Track(k1, id)
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.Pending(k1), 100)
}

func TestExpiryReadsAsIdleAndNotifies(t *testing.T) {
	var (
		mu      sync.Mutex
		expired []State
	)
	s := NewStore(Options{
		TTL:     20 * time.Millisecond,
		Cleanup: time.Hour,
		OnExpired: func(_ Key, last State) {
			mu.Lock()
			expired = append(expired, last)
			mu.Unlock()
		},
	})
	s.SetState(k1, "register.email")
	time.Sleep(40 * time.Millisecond)

	assert.Equal(t, StateIdle, s.State(k1))
	s.Sweep()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{"register.email"}, expired)
}

func TestClearSkipsExpiryHook(t *testing.T) {
	called := false
	s := NewStore(Options{OnExpired: func(Key, State) { called = true }})
	s.SetState(k1, "login.login")
	s.Clear(k1)
	assert.Equal(t, StateIdle, s.State(k1))
	assert.False(t, called)
}

func TestAccessSlidesExpiry(t *testing.T) {
	s := NewStore(Options{TTL: 60 * time.Millisecond, Cleanup: time.Hour})
	s.SetState(k1, "login.login")
	for i := 0; i < 4; i++ {
		time.Sleep(25 * time.Millisecond)
		require.Equal(t, State("login.login"), s.State(k1))
	}
}
