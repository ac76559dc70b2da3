package relay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

// ClientType identifies the capture surface that owns a session. Responses
// are only ever routed back to the surface that produced the input.
type ClientType string

const (
	ClientBrowser ClientType = "browser"
	ClientDesktop ClientType = "desktop"
	ClientCLI     ClientType = "cli"
)

// KnownClientType reports whether clientType is one of the supported capture
// surfaces.
func KnownClientType(clientType ClientType) bool {
	switch clientType {
	case ClientBrowser, ClientDesktop, ClientCLI:
		return true
	}
	return false
}

// Session is a point-in-time view of one voice interaction session.
// PendingEntries holds the journal entry ids of its outbound events still
// owing a delivery outcome.
type Session struct {
	ID             string
	ClientType     ClientType
	State          State
	CreatedAt      time.Time
	LastActivityAt time.Time
	PendingEntries []string
}

type session struct {
	mu           sync.Mutex
	id           string
	clientType   ClientType
	machine      *stateMachine
	createdAt    time.Time
	lastActivity time.Time
	pending      []string
}

func (s *session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *session) trackPending(entryID string) {
	s.mu.Lock()
	s.pending = append(s.pending, entryID)
	s.mu.Unlock()
}

func (s *session) resolvePending(entryID string) {
	s.mu.Lock()
	for i, id := range s.pending {
		if id == entryID {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}

// snapshot returns a detached copy; copier deep-copies the pending slice so
// callers never alias registry internals.
func (s *session) snapshot() Session {
	s.mu.Lock()
	view := Session{
		ID:             s.id,
		ClientType:     s.clientType,
		State:          s.machine.current(),
		CreatedAt:      s.createdAt,
		LastActivityAt: s.lastActivity,
		PendingEntries: s.pending,
	}

	var out Session
	copier.Copy(&out, &view)
	s.mu.Unlock()
	return out
}

// sessionRegistry exclusively owns live sessions and their state machines. A
// background sweep closes sessions idle past the inactivity timeout and
// evicts them; historical records live in the journal, not here.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*session

	inactivityTimeout time.Duration
	sweepInterval     time.Duration

	// onExpired runs outside the registry lock for every swept session.
	onExpired func(*session)

	started   atomic.Bool
	closeOnce sync.Once
	closeCh   chan struct{}
	done      chan struct{}
}

func newSessionRegistry(inactivityTimeout, sweepInterval time.Duration, onExpired func(*session)) *sessionRegistry {
	return &sessionRegistry{
		sessions:          map[string]*session{},
		inactivityTimeout: inactivityTimeout,
		sweepInterval:     sweepInterval,
		onExpired:         onExpired,
		closeCh:           make(chan struct{}),
		done:              make(chan struct{}),
	}
}

func (r *sessionRegistry) create(clientType ClientType, machineFor func(sessionID string) *stateMachine) *session {
	now := time.Now()
	created := &session{
		id:           uuid.NewString(),
		clientType:   clientType,
		createdAt:    now,
		lastActivity: now,
	}
	created.machine = machineFor(created.id)

	r.mu.Lock()
	r.sessions[created.id] = created
	r.mu.Unlock()

	return created
}

func (r *sessionRegistry) lookup(id string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found, ok := r.sessions[id]
	return found, ok
}

// remove evicts a session from memory. The caller is responsible for having
// driven the machine to Closed first.
func (r *sessionRegistry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *sessionRegistry) snapshots() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	views := make([]Session, 0, len(r.sessions))
	for _, live := range r.sessions {
		views = append(views, live.snapshot())
	}
	return views
}

// startSweep runs the expiry loop until close.
func (r *sessionRegistry) startSweep() {
	if r.started.Swap(true) {
		return
	}

	go func() {
		defer close(r.done)

		ticker := time.NewTicker(r.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.sweep()
			case <-r.closeCh:
				return
			}
		}
	}()
}

func (r *sessionRegistry) sweep() {
	cutoff := time.Now().Add(-r.inactivityTimeout)

	var expired []*session
	r.mu.Lock()
	for id, live := range r.sessions {
		live.mu.Lock()
		idle := live.lastActivity.Before(cutoff)
		live.mu.Unlock()
		if idle {
			expired = append(expired, live)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, live := range expired {
		logger.Info("session expired", "session_id", live.id, "client_type", string(live.clientType))
		if r.onExpired != nil {
			r.onExpired(live)
		}
	}
}

func (r *sessionRegistry) close() {
	r.closeOnce.Do(func() {
		close(r.closeCh)
		if r.started.Load() {
			<-r.done
		}
	})
}
