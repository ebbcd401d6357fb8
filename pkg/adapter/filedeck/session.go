package filedeck

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/filedeck/pkg/metrics"
	"github.com/marmos91/filedeck/pkg/pathguard"
)

// Session is the server-side state of one connected client. The owning
// connection goroutine is the only writer; the tracker reads it through
// Info for the admin API.
type Session struct {
	ID          string
	RemoteAddr  string
	ConnectedAt time.Time

	mu         sync.RWMutex
	username   string
	guard      *pathguard.Guard
	currentDir string
}

// SessionInfo is a point-in-time copy of a Session. It never carries
// credentials.
type SessionInfo struct {
	ID            string    `json:"id"`
	RemoteAddr    string    `json:"remote_addr"`
	Username      string    `json:"username,omitempty"`
	CurrentDir    string    `json:"current_dir,omitempty"`
	Authenticated bool      `json:"authenticated"`
	ConnectedAt   time.Time `json:"connected_at"`
}

func newSession(remoteAddr string) *Session {
	return &Session{
		ID:          uuid.NewString(),
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now(),
	}
}

// login binds the session to username and places the cursor at home.
func (s *Session) login(username string, guard *pathguard.Guard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = username
	s.guard = guard
	s.currentDir = guard.Root()
}

// Authenticated reports whether login has succeeded on this session.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guard != nil
}

// Username returns the logged-in user, or "".
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// CurrentDir returns the navigational cursor.
func (s *Session) CurrentDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentDir
}

// Home returns the directory the session is confined to, or "" before login.
func (s *Session) Home() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.guard == nil {
		return ""
	}
	return s.guard.Root()
}

func (s *Session) setCurrentDir(dir string) {
	s.mu.Lock()
	s.currentDir = dir
	s.mu.Unlock()
}

// Guard returns the confinement guard, or nil before login.
func (s *Session) Guard() *pathguard.Guard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guard
}

// Info returns a snapshot of the session.
func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionInfo{
		ID:            s.ID,
		RemoteAddr:    s.RemoteAddr,
		Username:      s.username,
		CurrentDir:    s.currentDir,
		Authenticated: s.guard != nil,
		ConnectedAt:   s.ConnectedAt,
	}
}

// Tracker holds every live session.
type Tracker struct {
	sessions      sync.Map // session ID -> *Session
	authenticated atomic.Int32
	metrics       metrics.SessionMetrics
}

// NewTracker returns an empty tracker. m may be nil.
func NewTracker(m metrics.SessionMetrics) *Tracker {
	return &Tracker{metrics: m}
}

func (t *Tracker) add(s *Session) {
	t.sessions.Store(s.ID, s)
}

// loggedIn is called once per session after a successful login.
func (t *Tracker) loggedIn() {
	n := t.authenticated.Add(1)
	if t.metrics != nil {
		t.metrics.SetActiveSessions(int(n))
	}
}

func (t *Tracker) remove(s *Session) {
	if _, ok := t.sessions.LoadAndDelete(s.ID); !ok {
		return
	}
	if s.Authenticated() {
		n := t.authenticated.Add(-1)
		if t.metrics != nil {
			t.metrics.SetActiveSessions(int(n))
		}
	}
}

// Get returns the session with id.
func (t *Tracker) Get(id string) (SessionInfo, bool) {
	v, ok := t.sessions.Load(id)
	if !ok {
		return SessionInfo{}, false
	}
	return v.(*Session).Info(), true
}

// List returns all live sessions, oldest first.
func (t *Tracker) List() []SessionInfo {
	var out []SessionInfo
	t.sessions.Range(func(_, v any) bool {
		out = append(out, v.(*Session).Info())
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

// Len returns the number of live sessions.
func (t *Tracker) Len() int {
	n := 0
	t.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Authenticated returns the number of live sessions that have logged in.
func (t *Tracker) Authenticated() int {
	return int(t.authenticated.Load())
}
