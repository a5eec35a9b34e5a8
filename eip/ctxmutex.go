package eip

import "context"

// ctxMutex is a single-flight lock with the same blocking Lock/Unlock shape
// as sync.Mutex, plus a LockContext that also honors ctx cancellation while
// waiting for the lock. It backs EipClient.mu so that the cooperative call
// path can suspend at mutex acquisition per §5 without changing the
// behavior of the existing blocking callers.
type ctxMutex struct {
	ch chan struct{}
}

func newCtxMutex() ctxMutex {
	return ctxMutex{ch: make(chan struct{}, 1)}
}

func (m *ctxMutex) Lock() {
	m.ch <- struct{}{}
}

func (m *ctxMutex) Unlock() {
	<-m.ch
}

// LockContext blocks until the lock is acquired or ctx is done, whichever
// comes first.
func (m *ctxMutex) LockContext(ctx context.Context) error {
	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
