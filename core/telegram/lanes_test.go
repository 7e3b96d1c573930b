package telegram

import (
	"math"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

// feedPoller sends a fixed batch of updates and then waits for stop.
type feedPoller struct {
	updates []tele.Update
}

func (p *feedPoller) Poll(_ *tele.Bot, dest chan tele.Update, stop chan struct{}) {
	for _, upd := range p.updates {
		select {
		case dest <- upd:
		case <-stop:
			return
		}
	}
	<-stop
}

// floodPoller keeps sending until stopped.
type floodPoller struct{}

func (floodPoller) Poll(_ *tele.Bot, dest chan tele.Update, stop chan struct{}) {
	for i := 0; ; i++ {
		select {
		case dest <- textUpdate(1, strconv.Itoa(i)):
		case <-stop:
			return
		}
	}
}

func textUpdate(chat int64, text string) tele.Update {
	return tele.Update{Message: &tele.Message{
		Chat:   &tele.Chat{ID: chat},
		Sender: &tele.User{ID: chat},
		Text:   text,
	}}
}

func newLaneBot(t *testing.T, p *LanePoller) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true, Synchronous: true, Poller: p})
	require.NoError(t, err)
	return b
}

func stopWithin(t *testing.T, b *tele.Bot, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		b.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("bot did not stop")
	}
}

func TestLanePollerKeepsChatOrder(t *testing.T) {
	var updates []tele.Update
	for i := 0; i < 20; i++ {
		updates = append(updates, textUpdate(10, strconv.Itoa(i)), textUpdate(11, strconv.Itoa(i)))
	}

	var (
		mu   sync.Mutex
		seen = map[int64][]string{}
		wg   sync.WaitGroup
	)
	wg.Add(len(updates))

	b := newLaneBot(t, &LanePoller{Poller: &feedPoller{updates: updates}, Lanes: 4, Depth: 2})
	b.Handle(tele.OnText, func(c tele.Context) error {
		defer wg.Done()
		mu.Lock()
		seen[c.Chat().ID] = append(seen[c.Chat().ID], c.Text())
		mu.Unlock()
		return nil
	})
	go b.Start()

	waitGroupWithin(t, &wg, 2*time.Second)
	stopWithin(t, b, 2*time.Second)

	want := make([]string, 20)
	for i := range want {
		want[i] = strconv.Itoa(i)
	}
	assert.Equal(t, want, seen[10])
	assert.Equal(t, want, seen[11])
}

func TestLanePollerRunsChatsInParallel(t *testing.T) {
	// Chat 1 waits for chat 2, which only works when they sit on different lanes.
	released := make(chan struct{})
	handled := make(chan int64, 2)

	b := newLaneBot(t, &LanePoller{
		Poller: &feedPoller{updates: []tele.Update{textUpdate(1, "a"), textUpdate(2, "b")}},
		Lanes:  2,
	})
	b.Handle(tele.OnText, func(c tele.Context) error {
		switch c.Chat().ID {
		case 1:
			select {
			case <-released:
			case <-time.After(2 * time.Second):
			}
		case 2:
			close(released)
		}
		handled <- c.Chat().ID
		return nil
	})
	go b.Start()

	first := <-handled
	second := <-handled
	assert.Equal(t, int64(2), first)
	assert.Equal(t, int64(1), second)
	stopWithin(t, b, 2*time.Second)
}

func TestLanePollerStopsWhileLanesAreFull(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 1)

	b := newLaneBot(t, &LanePoller{Poller: floodPoller{}, Lanes: 1, Depth: 1})
	b.Handle(tele.OnText, func(c tele.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-gate
		return nil
	})
	go b.Start()
	<-started

	done := make(chan struct{})
	go func() {
		b.Stop()
		close(done)
	}()
	// Give Stop a moment to reach the poller while the only lane is blocked.
	time.Sleep(50 * time.Millisecond)
	close(gate)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bot did not stop")
	}
}

func TestLanePollerStopsIdle(t *testing.T) {
	b := newLaneBot(t, &LanePoller{Poller: &feedPoller{}})
	go b.Start()
	time.Sleep(10 * time.Millisecond)
	assert.NotPanics(t, func() { stopWithin(t, b, 2*time.Second) })
}

func TestConversationID(t *testing.T) {
	chat := &tele.Chat{ID: 42}
	user := &tele.User{ID: 7}

	assert.Equal(t, int64(42), ConversationID(tele.Update{Message: &tele.Message{Chat: chat, Sender: user}}))
	assert.Equal(t, int64(7), ConversationID(tele.Update{Message: &tele.Message{Sender: user}}))
	assert.Equal(t, int64(42), ConversationID(tele.Update{EditedMessage: &tele.Message{Chat: chat}}))
	assert.Equal(t, int64(42), ConversationID(tele.Update{Callback: &tele.Callback{Message: &tele.Message{Chat: chat}, Sender: user}}))
	assert.Equal(t, int64(7), ConversationID(tele.Update{Callback: &tele.Callback{Sender: user}}))
	assert.Equal(t, int64(7), ConversationID(tele.Update{Query: &tele.Query{Sender: user}}))
	assert.Zero(t, ConversationID(tele.Update{}))
}

func TestLaneIndex(t *testing.T) {
	assert.Equal(t, 1, laneIndex(10, 3))
	for _, id := range []int64{-1, -1001234567890, math.MinInt64, math.MaxInt64} {
		i := laneIndex(id, 8)
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 8)
	}
}

func waitGroupWithin(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("updates were not handled in time")
	}
}
