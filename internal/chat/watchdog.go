package chat

import (
	"context"
	"strings"
)

// TransportEvent is a low-level event read from the client transport.
type TransportEvent struct {
	Type string
}

// IsDisconnect reports whether the event means the client has gone away
// (e.g. "http.disconnect").
func (e TransportEvent) IsDisconnect() bool { return strings.HasSuffix(e.Type, "disconnect") }

// Receiver is the transport's lowest-level receive primitive. Receive blocks
// until an event arrives and must return promptly with an error once ctx is
// done.
type Receiver interface {
	Receive(ctx context.Context) (TransportEvent, error)
}

// ReceiverFunc adapts a function to the Receiver interface.
type ReceiverFunc func(ctx context.Context) (TransportEvent, error)

func (f ReceiverFunc) Receive(ctx context.Context) (TransportEvent, error) { return f(ctx) }

// Watchdog watches a transport for disconnects while a handler is blocked
// draining a stream, and sets the request's Signal when one arrives.
type Watchdog struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartWatchdog starts watching r in a new goroutine. The caller must call
// Stop before the request handler returns.
func StartWatchdog(r Receiver, signal *Signal) *Watchdog {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watchdog{cancel: cancel, done: make(chan struct{})}
	go w.run(ctx, r, signal)
	return w
}

func (w *Watchdog) run(ctx context.Context, r Receiver, signal *Signal) {
	defer close(w.done)
	for {
		ev, err := r.Receive(ctx)
		if err != nil {
			return
		}
		if ev.IsDisconnect() {
			signal.Set()
			return
		}
	}
}

// Stop cancels the watchdog and waits for its goroutine to exit. It is safe
// to call more than once.
func (w *Watchdog) Stop() {
	w.cancel()
	<-w.done
}

// Fired reports whether the watchdog goroutine has already exited, either
// after seeing a disconnect or after Stop.
func (w *Watchdog) Fired() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}
