package access

import "sync"

// Gate holds the authorized-user set and the in-flight job set. Both sets
// share one mutex and the lock is only held for membership updates.
type Gate struct {
	mu         sync.Mutex
	authorized map[int64]struct{}
	active     map[int64]struct{}
}

func NewGate() *Gate {
	return &Gate{
		authorized: make(map[int64]struct{}),
		active:     make(map[int64]struct{}),
	}
}

func (g *Gate) Authorize(userID int64) {
	g.mu.Lock()
	g.authorized[userID] = struct{}{}
	g.mu.Unlock()
}

func (g *Gate) IsAuthorized(userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.authorized[userID]
	return ok
}

// TryAcquire marks a job as in flight for the user. It returns false when one
// is already running.
func (g *Gate) TryAcquire(userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[userID]; busy {
		return false
	}
	g.active[userID] = struct{}{}
	return true
}

func (g *Gate) Release(userID int64) {
	g.mu.Lock()
	delete(g.active, userID)
	g.mu.Unlock()
}

// Admit checks authorization and acquires the user's job slot in one step.
func (g *Gate) Admit(userID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.authorized[userID]; !ok {
		return ErrNotAuthorized
	}
	if _, busy := g.active[userID]; busy {
		return ErrBusy
	}
	g.active[userID] = struct{}{}
	return nil
}

func (g *Gate) Counts() (authorized int, active int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.authorized), len(g.active)
}
