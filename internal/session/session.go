// Package session holds the user's crawler cookie across restarts.
package session

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Store persists the cookie value. An empty string means no cookie saved.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, cookie string) error
}

// Session is the in-memory cookie holder backed by a Store. The cookie is
// loaded once at startup and written through on every change.
type Session struct {
	mu     sync.RWMutex
	cookie string
	store  Store
	logger *zap.Logger
}

// New loads the persisted cookie and returns the session. A load failure is
// logged and treated as an empty cookie so the service still starts.
func New(ctx context.Context, store Store, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{store: store, logger: logger}
	cookie, err := store.Load(ctx)
	if err != nil {
		logger.Warn("loading saved cookie failed", zap.Error(err))
		return s
	}
	s.cookie = cookie
	return s
}

// Cookie returns the current cookie value.
func (s *Session) Cookie() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cookie
}

// SetCookie updates the cookie and writes it through to the store.
func (s *Session) SetCookie(ctx context.Context, cookie string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(ctx, cookie); err != nil {
		return err
	}
	s.cookie = cookie
	return nil
}

// Masked returns a display-safe form of the cookie for API responses.
func Masked(cookie string) string {
	trimmed := strings.TrimSpace(cookie)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 8 {
		return strings.Repeat("*", len(trimmed))
	}
	return trimmed[:4] + strings.Repeat("*", 8) + trimmed[len(trimmed)-4:]
}
