// Package state serializes per-user update handling so a user's search
// session is never mutated by two updates at once.
package state

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locker hands out one mutex per user id. Entries are dropped once no
// goroutine holds or waits on them.
type Locker struct {
	mu    sync.Mutex
	users map[int64]*entry
}

// NewLocker returns an empty Locker.
func NewLocker() *Locker {
	return &Locker{users: make(map[int64]*entry)}
}

// Lock blocks until the caller owns userID and returns the release func.
func (l *Locker) Lock(userID int64) (unlock func()) {
	l.mu.Lock()
	e, ok := l.users[userID]
	if !ok {
		e = &entry{}
		l.users[userID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.users, userID)
		}
		l.mu.Unlock()
	}
}

// Len reports how many users currently hold or wait on a lock.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}

// Serialize runs handlers of the same sender one at a time.
func (l *Locker) Serialize(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		user := c.Sender()
		if user == nil {
			return next(c)
		}
		unlock := l.Lock(user.ID)
		defer unlock()
		return next(c)
	}
}
