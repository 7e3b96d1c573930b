package telegram

import (
	"context"
	"log/slog"
	"sync"

	"github.com/m3rciful/servicebot/core/logger"
	tghelpers "github.com/m3rciful/servicebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const (
	defaultLanes     = 8
	defaultLaneDepth = 64
)

// LanePoller wraps another poller and hands updates to a fixed set of
// workers. Updates of one chat always land on the same worker, so a
// conversation is processed strictly in arrival order while different
// conversations run in parallel. The bot must be Synchronous so that
// handlers run on the worker goroutine.
type LanePoller struct {
	Poller tele.Poller
	Lanes  int
	Depth  int
}

// Poll implements tele.Poller. It returns once the inner poller has stopped
// and every update it produced has been handled. The stop channel belongs to
// the bot and is never closed here.
func (p *LanePoller) Poll(b *tele.Bot, dest chan tele.Update, stop chan struct{}) {
	n := p.Lanes
	if n <= 0 {
		n = defaultLanes
	}
	depth := p.Depth
	if depth <= 0 {
		depth = defaultLaneDepth
	}

	middle := make(chan tele.Update, depth)
	stopInner := make(chan struct{})
	innerDone := make(chan struct{})
	go func() {
		p.Poller.Poll(b, middle, stopInner)
		close(innerDone)
	}()

	ls := newLaneSet(b, n, depth)
	shutdown := func(pending ...tele.Update) {
		close(stopInner)
		for _, upd := range pending {
			ls.dispatch(upd)
		}
		// The inner poller may be blocked on middle, keep draining until it exits.
		for {
			select {
			case upd := <-middle:
				ls.dispatch(upd)
			case <-innerDone:
				for len(middle) > 0 {
					ls.dispatch(<-middle)
				}
				ls.close()
				return
			}
		}
	}

	for {
		select {
		case <-stop:
			shutdown()
			return
		case upd := <-middle:
			select {
			case ls.lane(upd) <- upd:
			case <-stop:
				shutdown(upd)
				return
			}
		}
	}
}

type laneSet struct {
	lanes []chan tele.Update
	wg    sync.WaitGroup
}

func newLaneSet(b *tele.Bot, n, depth int) *laneSet {
	ls := &laneSet{lanes: make([]chan tele.Update, n)}
	for i := range ls.lanes {
		ls.lanes[i] = make(chan tele.Update, depth)
		ls.wg.Add(1)
		go func(in <-chan tele.Update) {
			defer ls.wg.Done()
			for upd := range in {
				b.ProcessUpdate(upd)
			}
		}(ls.lanes[i])
	}
	return ls
}

func (ls *laneSet) lane(upd tele.Update) chan tele.Update {
	return ls.lanes[laneIndex(ConversationID(upd), len(ls.lanes))]
}

// dispatch blocks until the lane accepts upd. Lane workers keep running until
// close, so this always makes progress.
func (ls *laneSet) dispatch(upd tele.Update) {
	ls.lane(upd) <- upd
}

func (ls *laneSet) close() {
	for _, l := range ls.lanes {
		close(l)
	}
	ls.wg.Wait()
}

// ConversationID returns the chat an update belongs to, falling back to the
// sender. Updates without either map to 0.
func ConversationID(upd tele.Update) int64 {
	switch {
	case upd.Message != nil:
		if upd.Message.Chat != nil {
			return upd.Message.Chat.ID
		}
		if upd.Message.Sender != nil {
			return upd.Message.Sender.ID
		}
	case upd.EditedMessage != nil && upd.EditedMessage.Chat != nil:
		return upd.EditedMessage.Chat.ID
	case upd.Callback != nil:
		if upd.Callback.Message != nil && upd.Callback.Message.Chat != nil {
			return upd.Callback.Message.Chat.ID
		}
		if upd.Callback.Sender != nil {
			return upd.Callback.Sender.ID
		}
	case upd.Query != nil && upd.Query.Sender != nil:
		return upd.Query.Sender.ID
	}
	return 0
}

func laneIndex(id int64, n int) int {
	return int(uint64(id) % uint64(n))
}

func onBotError(err error, c tele.Context) {
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.Error(ctx, "tg", "handler.error", slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
}
