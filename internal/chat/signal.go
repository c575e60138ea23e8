package chat

import (
	"sync"
	"sync/atomic"
)

// Signal is a per-request cancellation flag. It is set at most once and can be
// polled any number of times from any goroutine. The zero value is ready to
// use; a Signal must not be reused across requests.
type Signal struct {
	set  atomic.Bool
	init sync.Once
	once sync.Once
	done chan struct{}
}

// NewSignal returns an unset Signal.
func NewSignal() *Signal { return &Signal{} }

func (s *Signal) lazyInit() {
	s.init.Do(func() { s.done = make(chan struct{}) })
}

// Set marks the signal. Calls after the first are no-ops.
func (s *Signal) Set() {
	s.lazyInit()
	s.once.Do(func() {
		s.set.Store(true)
		close(s.done)
	})
}

// IsSet reports whether Set has been called. It never blocks.
func (s *Signal) IsSet() bool { return s.set.Load() }

// Done returns a channel that is closed when the signal is set.
func (s *Signal) Done() <-chan struct{} {
	s.lazyInit()
	return s.done
}
