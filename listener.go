package linktap

import (
	"sync"
	"sync/atomic"

	"github.com/linktap/go-linktap-sdk/api"
)

// Listener receives notifications from a StreamingClient. Callbacks run on the
// goroutine that produced the notification and should return quickly.
// Implementations must be comparable (typically a pointer) so they can be
// removed again. Callbacks run while the client holds a lock that Start and
// Stop wait on, so they must not call Start or Stop synchronously; hand off to
// another goroutine instead.
type Listener interface {
	OnConnected()
	OnDisconnected()
	OnAuthorizationRevoked(token string)
	OnError(message string)
	OnNewSnapshot(data *api.TopLevelData)
}

// ListenerFuncs adapts plain functions to a Listener. Nil fields are skipped.
// Register it by pointer.
type ListenerFuncs struct {
	Connected            func()
	Disconnected         func()
	AuthorizationRevoked func(token string)
	Error                func(message string)
	NewSnapshot          func(data *api.TopLevelData)
}

func (l *ListenerFuncs) OnConnected() {
	if l.Connected != nil {
		l.Connected()
	}
}

func (l *ListenerFuncs) OnDisconnected() {
	if l.Disconnected != nil {
		l.Disconnected()
	}
}

func (l *ListenerFuncs) OnAuthorizationRevoked(token string) {
	if l.AuthorizationRevoked != nil {
		l.AuthorizationRevoked(token)
	}
}

func (l *ListenerFuncs) OnError(message string) {
	if l.Error != nil {
		l.Error(message)
	}
}

func (l *ListenerFuncs) OnNewSnapshot(data *api.TopLevelData) {
	if l.NewSnapshot != nil {
		l.NewSnapshot(data)
	}
}

// listenerSet is copy-on-write: dispatch iterates an immutable slice, so
// listeners may add or remove listeners from inside a callback.
type listenerSet struct {
	mu        sync.Mutex
	listeners atomic.Pointer[[]Listener]
}

func (s *listenerSet) add(l Listener) bool {
	if l == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.snapshot()
	next := make([]Listener, len(current), len(current)+1)
	copy(next, current)
	next = append(next, l)
	s.listeners.Store(&next)
	return true
}

func (s *listenerSet) remove(l Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.snapshot()
	for i, existing := range current {
		if existing == l {
			next := make([]Listener, 0, len(current)-1)
			next = append(next, current[:i]...)
			next = append(next, current[i+1:]...)
			s.listeners.Store(&next)
			return true
		}
	}
	return false
}

func (s *listenerSet) snapshot() []Listener {
	if p := s.listeners.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *listenerSet) forEach(fn func(Listener)) {
	for _, l := range s.snapshot() {
		fn(l)
	}
}

func (s *listenerSet) len() int {
	return len(s.snapshot())
}
