package chat

import "sync"

// sessionLocks hands out one advisory mutex per session id, making the
// one-writer-per-session assumption explicit. Locks are never released from
// the map; session counts are small.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// acquire locks the session and returns its unlock func.
func (l *sessionLocks) acquire(sessionID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sessionID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
