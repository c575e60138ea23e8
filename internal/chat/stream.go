package chat

import (
	"context"
	"errors"
	"io"
	"sync"
)

// Outcome describes how a FragmentStream ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeError     Outcome = "error"
)

// FragmentStream adapts an engine Generation into decoded text fragments. The
// signal and ctx are checked at every fragment boundary; once either fires no
// further steps are pulled from the engine. The underlying Generation is
// closed exactly once, on whichever exit path comes first.
//
// A FragmentStream is consumed by a single goroutine.
type FragmentStream struct {
	ctx    context.Context
	engine Engine
	gen    Generation
	signal *Signal
	onEnd  func(Outcome, int)

	count   int
	done    bool
	err     error
	outcome Outcome
	once    sync.Once
}

func newFragmentStream(ctx context.Context, engine Engine, gen Generation, signal *Signal, onEnd func(Outcome, int)) *FragmentStream {
	return &FragmentStream{ctx: ctx, engine: engine, gen: gen, signal: signal, onEnd: onEnd}
}

// Recv returns the next fragment. It returns io.EOF when the stream has ended
// naturally or was cancelled, and the engine's error on a fault.
func (s *FragmentStream) Recv() (string, error) {
	if s.done {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	if s.cancelled() {
		s.finish(OutcomeCancelled, nil)
		return "", io.EOF
	}
	step, err := s.gen.Recv()
	switch {
	case errors.Is(err, io.EOF):
		s.finish(OutcomeCompleted, nil)
		return "", io.EOF
	case err != nil && s.cancelled():
		s.finish(OutcomeCancelled, nil)
		return "", io.EOF
	case err != nil:
		s.finish(OutcomeError, err)
		return "", err
	case step.Last:
		s.finish(OutcomeCompleted, nil)
		return "", io.EOF
	}
	s.count++
	return s.engine.Decode(step), nil
}

// Count is the number of fragments returned so far.
func (s *FragmentStream) Count() int { return s.count }

// Outcome reports how the stream ended; empty while it is still open.
func (s *FragmentStream) Outcome() Outcome { return s.outcome }

// Close ends the stream early, releasing the generation. Closing an already
// finished stream is a no-op.
func (s *FragmentStream) Close() error {
	s.finish(OutcomeCancelled, nil)
	return nil
}

func (s *FragmentStream) cancelled() bool {
	return s.signal.IsSet() || s.ctx.Err() != nil
}

func (s *FragmentStream) finish(outcome Outcome, err error) {
	s.once.Do(func() {
		s.done = true
		s.err = err
		s.outcome = outcome
		_ = s.gen.Close()
		if s.onEnd != nil {
			s.onEnd(outcome, s.count)
		}
	})
}
