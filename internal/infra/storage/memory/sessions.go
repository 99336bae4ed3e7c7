package memory

import (
	"context"
	"sync"
	"time"

	domainauth "hostelhunt/internal/domain/auth"
	domainuser "hostelhunt/internal/domain/user"
)

// SessionStore keeps refresh sessions in memory; expired entries are dropped on read.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domainauth.SessionID]domainauth.Session
	byUser   map[domainuser.ID]map[domainauth.SessionID]struct{}
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[domainauth.SessionID]domainauth.Session),
		byUser:   make(map[domainuser.ID]map[domainauth.SessionID]struct{}),
		now:      time.Now,
	}
}

func (s *SessionStore) Save(_ context.Context, session *domainauth.Session) error {
	if session == nil || session.ID == "" {
		return domainauth.ErrSessionIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	ids, ok := s.byUser[session.UserID]
	if !ok {
		ids = make(map[domainauth.SessionID]struct{})
		s.byUser[session.UserID] = ids
	}
	ids[session.ID] = struct{}{}
	return nil
}

func (s *SessionStore) Get(_ context.Context, id domainauth.SessionID) (*domainauth.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domainauth.ErrSessionNotFound
	}
	if session.Expired(s.now()) {
		s.mu.Lock()
		s.remove(id)
		s.mu.Unlock()
		return nil, domainauth.ErrSessionNotFound
	}
	return &session, nil
}

func (s *SessionStore) Delete(_ context.Context, id domainauth.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(id)
	return nil
}

func (s *SessionStore) DeleteByUser(_ context.Context, userID domainuser.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.byUser[userID] {
		delete(s.sessions, id)
	}
	delete(s.byUser, userID)
	return nil
}

func (s *SessionStore) remove(id domainauth.SessionID) {
	session, ok := s.sessions[id]
	if !ok {
		return
	}
	delete(s.sessions, id)
	if ids := s.byUser[session.UserID]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.byUser, session.UserID)
		}
	}
}

var _ domainauth.SessionStore = (*SessionStore)(nil)
