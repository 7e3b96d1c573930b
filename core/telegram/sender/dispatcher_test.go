package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func fast() Options {
	return Options{Workers: 3, QueueSize: 32, MaxRetries: 2, RetryBackoff: time.Millisecond, PerSecond: 10000}
}

func TestChatOrderIsPreserved(t *testing.T) {
	d := NewDispatcher(fast())
	var (
		mu  sync.Mutex
		got = map[int64][]int{}
	)
	for i := range 10 {
		for _, chat := range []int64{1, 2, -3} {
			require.NoError(t, d.Enqueue(context.Background(), chat, "send.text", "sendMessage", func() error {
				mu.Lock()
				got[chat] = append(got[chat], i)
				mu.Unlock()
				return nil
			}))
		}
	}
	d.Close()

	want := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	for _, chat := range []int64{1, 2, -3} {
		assert.Equal(t, want, got[chat], "chat %d", chat)
	}
	assert.Zero(t, d.ErrorCount())
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestCallRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(fast())
	defer d.Close()

	calls := 0
	err := d.Call(context.Background(), 5, "send.tracked", "sendMessage", func() error {
		calls++
		if calls < 3 {
			return timeoutErr{}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestCallReturnsPermanentError(t *testing.T) {
	d := NewDispatcher(fast())
	defer d.Close()

	calls := 0
	boom := &tele.Error{Code: 400, Description: "Bad Request: chat not found"}
	err := d.Call(context.Background(), 5, "send.tracked", "sendMessage", func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestClosedDispatcherRejects(t *testing.T) {
	d := NewDispatcher(fast())
	d.Close()
	d.Close()
	err := d.Enqueue(context.Background(), 1, "send.text", "", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "timeout", classify(context.DeadlineExceeded))
	assert.Equal(t, "timeout", classify(timeoutErr{}))
	assert.Equal(t, "dial", classify(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.Equal(t, "http_4xx", classify(&tele.Error{Code: 403}))
	assert.Equal(t, "http_5xx", classify(&tele.Error{Code: 502}))
	assert.Equal(t, "unknown", classify(errors.New("x")))
	assert.Equal(t, "bot<redacted>/sendMessage failed",
		redactToken(errors.New("bot123:ABC-def_9/sendMessage failed")))
}
