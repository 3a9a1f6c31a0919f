package payrun

import (
	"context"
	"sync"

	"github.com/warp/paye-engine/generic"
)

// employeeLocks serialises load-compute-save per employee. Different
// employees never block each other.
type employeeLocks struct {
	mu    sync.Mutex
	locks map[generic.EmployeeID]*employeeLock
}

type employeeLock struct {
	ch   chan struct{}
	refs int
}

func newEmployeeLocks() *employeeLocks {
	return &employeeLocks{locks: make(map[generic.EmployeeID]*employeeLock)}
}

// lock blocks until the employee is free or ctx is done. The returned
// function releases the lock.
func (l *employeeLocks) lock(ctx context.Context, id generic.EmployeeID) (func(), error) {
	l.mu.Lock()
	el, ok := l.locks[id]
	if !ok {
		el = &employeeLock{ch: make(chan struct{}, 1)}
		l.locks[id] = el
	}
	el.refs++
	l.mu.Unlock()

	select {
	case el.ch <- struct{}{}:
		return func() {
			<-el.ch
			l.release(id, el)
		}, nil
	case <-ctx.Done():
		l.release(id, el)
		return nil, ctx.Err()
	}
}

func (l *employeeLocks) release(id generic.EmployeeID, el *employeeLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	el.refs--
	if el.refs == 0 {
		delete(l.locks, id)
	}
}
