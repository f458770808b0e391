package kvstore

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/khanhnv2901/pagesentry/internal/infrastructure/kv"
	sharedErrors "github.com/khanhnv2901/pagesentry/internal/shared/errors"
)

const (
	guestSessionKey    = "session:guest"
	guestSessionPrefix = "guest_"
)

// SessionStore hands out the persisted guest session identity used when the
// caller did not name a session.
type SessionStore struct {
	store kv.Store
	mu    sync.Mutex
}

// NewSessionStore creates a session store over store
func NewSessionStore(store kv.Store) *SessionStore {
	return &SessionStore{store: store}
}

// GuestID returns the guest session ID, creating and persisting it on first use
func (s *SessionStore) GuestID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.store.Get(ctx, guestSessionKey)
	switch {
	case err == nil && strings.TrimSpace(string(data)) != "":
		return strings.TrimSpace(string(data)), nil
	case err != nil && !errors.Is(err, sharedErrors.ErrKeyNotFound):
		return "", repoErr("load guest session", err)
	}

	id := guestSessionPrefix + uuid.NewString()
	if err := s.store.Set(ctx, guestSessionKey, []byte(id)); err != nil {
		return "", repoErr("save guest session", err)
	}
	return id, nil
}
