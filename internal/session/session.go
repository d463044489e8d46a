// Package session holds the bridge's process-wide state.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is created once at startup and lives until the process exits.
type Session struct {
	ID           string
	Endpoint     string
	Timeout      time.Duration
	DefaultLimit int
	MaxLimit     int
	StartedAt    time.Time
}

// New validates the settings and stamps a fresh session id.
func New(endpoint string, timeout time.Duration, defaultLimit, maxLimit int) (*Session, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("empty endpoint")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", timeout)
	}
	if maxLimit <= 0 || defaultLimit <= 0 || defaultLimit > maxLimit {
		return nil, fmt.Errorf("invalid page limits: default=%d max=%d", defaultLimit, maxLimit)
	}
	return &Session{
		ID:           uuid.NewString(),
		Endpoint:     endpoint,
		Timeout:      timeout,
		DefaultLimit: defaultLimit,
		MaxLimit:     maxLimit,
		StartedAt:    time.Now(),
	}, nil
}

// Uptime reports how long the session has been running.
func (s *Session) Uptime() time.Duration {
	return time.Since(s.StartedAt)
}

func (s *Session) String() string {
	return fmt.Sprintf("session %s -> %s (timeout %s)", s.ID, s.Endpoint, s.Timeout)
}
