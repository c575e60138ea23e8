package chat

import (
	"context"
	"time"
)

// admitter bounds concurrent generations: a queue of waiting requests in front
// of a fixed number of in-flight slots. A nil admitter admits everything.
type admitter struct {
	genCh   chan struct{} // in-flight generations
	queueCh chan struct{} // in-flight plus queued
	maxWait time.Duration
}

func newAdmitter(maxInflight, maxQueue int, maxWait time.Duration) *admitter {
	if maxInflight <= 0 {
		return nil
	}
	if maxQueue < 0 {
		maxQueue = 0
	}
	return &admitter{
		genCh:   make(chan struct{}, maxInflight),
		queueCh: make(chan struct{}, maxInflight+maxQueue),
		maxWait: maxWait,
	}
}

// acquire reserves a queue slot and then an in-flight slot.
// Returns a release func to be called exactly once.
func (a *admitter) acquire(ctx context.Context) (func(), error) {
	if a == nil {
		return func() {}, nil
	}
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer := time.NewTimer(a.maxWait)
	defer timer.Stop()
	select {
	case a.queueCh <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, tooBusyError{}
	}

	acquired := false
	defer func() {
		if !acquired {
			<-a.queueCh
		}
	}()
	select {
	case a.genCh <- struct{}{}:
		acquired = true
		return func() { <-a.genCh; <-a.queueCh }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, tooBusyError{}
	}
}

func (a *admitter) inflight() int {
	if a == nil {
		return 0
	}
	return len(a.genCh)
}

func (a *admitter) queued() int {
	if a == nil {
		return 0
	}
	if n := len(a.queueCh) - len(a.genCh); n > 0 {
		return n
	}
	return 0
}
