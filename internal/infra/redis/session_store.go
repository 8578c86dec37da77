package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"eduscroll-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions stay in a local map (the broadcast machinery is in-process);
// Redis marks session liveness so other instances and operators can see
// which lessons are open.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[sessionKey]*app.Session
}

type sessionKey struct {
	userID   int
	lessonID int
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[sessionKey]*app.Session),
	}
}

func (s *SessionStore) Put(userID, lessonID int, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionKey{userID, lessonID}] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(userID, lessonID), "1", s.ttl).Err()
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
	_ = s.client.Del(context.Background(), s.key(userID, lessonID)).Err()
}

func (s *SessionStore) key(userID, lessonID int) string {
	return fmt.Sprintf("lesson:session:%d:%d", userID, lessonID)
}
