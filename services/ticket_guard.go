package services

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// TicketGuard serializes the read-then-write ticket mutations for one user.
// Acquire blocks until the caller may proceed; release must be called exactly once.
type TicketGuard interface {
	Acquire(ctx context.Context, userID string) (release func(), err error)
}

// NoopGuard lets every caller through. Two concurrent consumptions for the same
// user can both read the same count and one decrement is lost; this is the
// service's default behaviour.
type NoopGuard struct{}

func (NoopGuard) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

// KeyedGuard admits one writer per user id within this process.
// It does not coordinate across replicas; a conditional UPDATE in the store would.
type KeyedGuard struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sem  *semaphore.Weighted
	refs int
}

func NewKeyedGuard() *KeyedGuard {
	return &KeyedGuard{locks: make(map[string]*keyedLock)}
}

func (g *KeyedGuard) Acquire(ctx context.Context, userID string) (func(), error) {
	g.mu.Lock()
	l, ok := g.locks[userID]
	if !ok {
		l = &keyedLock{sem: semaphore.NewWeighted(1)}
		g.locks[userID] = l
	}
	l.refs++
	g.mu.Unlock()

	if err := l.sem.Acquire(ctx, 1); err != nil {
		g.drop(userID, l)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.sem.Release(1)
			g.drop(userID, l)
		})
	}, nil
}

// drop forgets the lock once nobody holds or waits on it.
func (g *KeyedGuard) drop(userID string, l *keyedLock) {
	g.mu.Lock()
	defer g.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(g.locks, userID)
	}
}

// held reports how many user ids currently have a lock entry.
func (g *KeyedGuard) held() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.locks)
}

// NewTicketGuard picks a guard by name: "keyed" or anything else for NoopGuard.
func NewTicketGuard(name string) TicketGuard {
	if name == "keyed" {
		return NewKeyedGuard()
	}
	return NoopGuard{}
}
