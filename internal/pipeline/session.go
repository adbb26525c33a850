package pipeline

import (
	"sync"

	"github.com/nadzzz/signalbox/internal/utterance"
)

// session is one conversation's state. Its mutex serializes complete
// invocations: the engine holds it from cache lookup to result, so two
// concurrent requests for the same session never interleave stages.
type session struct {
	mu sync.Mutex

	// turns is the bounded history, oldest first.
	turns []utterance.Turn
}

// recent returns up to n turns as a copy, newest first.
func (s *session) recent(n int) []utterance.Turn {
	if n > len(s.turns) {
		n = len(s.turns)
	}
	out := make([]utterance.Turn, 0, n)
	for i := len(s.turns) - 1; i >= len(s.turns)-n; i-- {
		out = append(out, s.turns[i])
	}
	return out
}

// appendTurn records a completed turn, dropping the oldest once the history
// reaches capacity.
func (s *session) appendTurn(turn utterance.Turn, capacity int) {
	s.turns = append(s.turns, turn)
	if capacity > 0 && len(s.turns) > capacity {
		s.turns = s.turns[len(s.turns)-capacity:]
	}
}

// sessionStore hands out per-session state, creating it on first use.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*session)}
}

// get returns the session for id, creating it when missing.
func (ss *sessionStore) get(id string) *session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	s, ok := ss.sessions[id]
	if !ok {
		s = &session{}
		ss.sessions[id] = s
	}
	return s
}

// sessionKey picks the identity an invocation's state hangs off: the
// explicit session, else the user, else a shared anonymous bucket.
func sessionKey(req utterance.Request) string {
	switch {
	case req.SessionID != "":
		return req.SessionID
	case req.UserID != "":
		return req.UserID
	default:
		return "anonymous"
	}
}
