package memory

import (
	"sync"

	"eduscroll-service/internal/app"
)

type sessionKey struct {
	userID   int
	lessonID int
}

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[sessionKey]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[sessionKey]*app.Session),
	}
}

func (s *SessionStore) Put(userID, lessonID int, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionKey{userID, lessonID}] = session
}

func (s *SessionStore) Get(userID, lessonID int) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionKey{userID, lessonID}]
	return session, ok
}

func (s *SessionStore) Delete(userID, lessonID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey{userID, lessonID})
}
