package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used in development mode and tests.
//
// A single mutex serializes every operation, so each method behaves like one SQL statement.
// Token ids are remembered after deletion and are never accepted again.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]*Session
	byToken map[string]string
	issued  map[string]struct{}
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*Session),
		byToken: make(map[string]string),
		issued:  make(map[string]struct{}),
	}
}

func (s *MemoryStore) Insert(_ context.Context, row Session) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.issued[row.TokenID]; dup {
		return "", ErrDuplicateTokenID
	}
	if row.ID == "" {
		row.ID = newSessionID()
	}
	if _, dup := s.byID[row.ID]; dup {
		return "", ErrDuplicateTokenID
	}

	row.IsActive = true
	s.byID[row.ID] = &row
	s.byToken[row.TokenID] = row.ID
	s.issued[row.TokenID] = struct{}{}
	return row.ID, nil
}

func (s *MemoryStore) FindByTokenID(_ context.Context, tokenID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byToken[tokenID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return *s.byID[id], nil
}

func (s *MemoryStore) FindByID(_ context.Context, sessionID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byID[sessionID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return *row, nil
}

func (s *MemoryStore) ListActiveByUser(_ context.Context, userID string, now time.Time) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Session
	for _, row := range s.byID {
		if row.UserID == userID && row.Alive(now) {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) SetInactive(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deactivateLocked(s.byID[sessionID]), nil
}

func (s *MemoryStore) SetInactiveByTokenID(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byToken[tokenID]
	if !ok {
		return false, nil
	}
	return s.deactivateLocked(s.byID[id]), nil
}

func (s *MemoryStore) SetInactiveOwned(_ context.Context, sessionID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byID[sessionID]
	if !ok || row.UserID != userID {
		return false, nil
	}
	return s.deactivateLocked(row), nil
}

func (s *MemoryStore) SetInactiveAllForUserExcept(_ context.Context, userID, exceptTokenID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, row := range s.byID {
		if row.UserID != userID || row.TokenID == exceptTokenID {
			continue
		}
		if s.deactivateLocked(row) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) MarkInactiveExpired(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, row := range s.byID {
		if row.ExpiresAt.Before(before) && s.deactivateLocked(row) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) DeleteInactiveBefore(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, row := range s.byID {
		if row.IsActive || !row.ExpiresAt.Before(before) {
			continue
		}
		delete(s.byID, id)
		delete(s.byToken, row.TokenID)
		n++
	}
	return n, nil
}

func (s *MemoryStore) Touch(_ context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byID[sessionID]
	if !ok || !row.IsActive {
		return nil
	}
	if at.After(row.LastActivityAt) {
		row.LastActivityAt = at
	}
	return nil
}

// Len returns the number of stored rows, active or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *MemoryStore) deactivateLocked(row *Session) bool {
	if row == nil || !row.IsActive {
		return false
	}
	row.IsActive = false
	return true
}
