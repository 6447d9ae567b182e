package yahoo

import (
	"context"
	"sync"
	"time"

	"sectorview/database/types"
	"sectorview/provider"
)

// sessionTTL bounds how long one cookie+crumb pair is trusted. Yahoo
// rotates crumbs unpredictably; half an hour stays well inside it.
const sessionTTL = 30 * time.Minute

// SessionFetcher lazily establishes a Yahoo session and renews it once
// it ages out. Safe for concurrent use by the fetch workers; the lock
// only covers session management, not the fetches themselves.
type SessionFetcher struct {
	mu          sync.Mutex
	timeout     time.Duration
	client      *Client
	established time.Time
}

func NewSessionFetcher(timeout time.Duration) *SessionFetcher {
	return &SessionFetcher{timeout: timeout}
}

// Fetch implements provider.Fetcher
func (s *SessionFetcher) Fetch(ctx context.Context, symbol string) (*types.Snapshot, error) {
	client, err := s.session(symbol)
	if err != nil {
		return nil, err
	}
	return client.Fetch(ctx, symbol)
}

func (s *SessionFetcher) session(symbol string) (*Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil && time.Since(s.established) < sessionTTL {
		return s.client, nil
	}

	client, err := NewClient(s.timeout)
	if err != nil {
		return nil, provider.NewError(provider.KindNetworkError, symbol, err)
	}
	s.client = client
	s.established = time.Now()
	return client, nil
}
