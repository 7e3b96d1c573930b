package logger

import (
	"errors"
	"io"
	"sync"
)

// lineWriter copies complete log lines to its sinks from one goroutine so
// handlers never block on slow files. A full queue makes Write wait.
type lineWriter struct {
	sinks []io.Writer
	queue chan []byte
	flush chan chan struct{}
	done  chan struct{}

	state  sync.RWMutex
	closed bool

	mu  sync.Mutex
	err error
}

func newLineWriter(sinks []io.Writer, depth int) *lineWriter {
	w := &lineWriter{
		sinks: sinks,
		queue: make(chan []byte, depth),
		flush: make(chan chan struct{}),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *lineWriter) run() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.queue:
			if !ok {
				return
			}
			w.emit(line)
		case ack := <-w.flush:
			// drain what was queued before the flush request
			for n := len(w.queue); n > 0; n-- {
				line, ok := <-w.queue
				if !ok {
					break
				}
				w.emit(line)
			}
			close(ack)
		}
	}
}

func (w *lineWriter) emit(line []byte) {
	for _, s := range w.sinks {
		if _, err := s.Write(line); err != nil {
			w.mu.Lock()
			if w.err == nil {
				w.err = err
			}
			w.mu.Unlock()
		}
	}
}

// Write queues a copy of line. It returns the first sink error seen so far.
func (w *lineWriter) Write(line []byte) error {
	if err := w.Err(); err != nil {
		return err
	}
	if len(line) == 0 {
		return nil
	}
	w.state.RLock()
	defer w.state.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.queue <- append([]byte(nil), line...)
	return nil
}

// Flush waits until every line queued before the call is written.
func (w *lineWriter) Flush() error {
	select {
	case <-w.done:
		return w.Err()
	default:
	}
	ack := make(chan struct{})
	select {
	case w.flush <- ack:
		<-ack
	case <-w.done:
	}
	return w.Err()
}

// Close writes the remaining lines and stops the goroutine.
func (w *lineWriter) Close() error {
	w.state.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.state.Unlock()
	<-w.done
	return w.Err()
}

// Err reports the first sink failure.
func (w *lineWriter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

var errWriterClosed = errors.New("logger: writer closed")
