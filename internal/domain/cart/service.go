// internal/domain/cart/service.go
package cart

import (
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
)

// Service is the per-identity store registry: it constructs a store on
// first touch (restoring from persistence exactly once), caches it, and
// tears every store down at shutdown. It is the single construction and
// teardown point for cart state; no package-level cart exists.
type Service struct {
	mu     sync.Mutex
	stores map[string]*Store

	persist   Persistence
	remote    RemoteCart
	reporter  Reporter
	clock     Clock
	threshold time.Duration
	logger    *logrus.Logger
}

// NewService creates the cart service. Remote mirroring and abandonment
// reporting are wired only when configured; a store without them runs in
// local-only mode.
func NewService(cfg *config.Config, redisClient *redis.Client, logger *logrus.Logger) *Service {
	s := &Service{
		stores:    make(map[string]*Store),
		persist:   NewRedisPersistence(redisClient, cfg.Cart.PersistTTL, logger),
		clock:     SystemClock(),
		threshold: cfg.Cart.AbandonAfter,
		logger:    logger,
	}

	if cfg.Cart.RemoteMirror && cfg.Cart.RemoteBaseURL != "" {
		s.remote = NewHTTPRemoteCart(cfg.Cart.RemoteBaseURL, cfg.Cart.Currency)
	}
	if cfg.Cart.AbandonReportURL != "" {
		s.reporter = NewHTTPReporter(cfg.Cart.AbandonReportURL)
	}

	return s
}

// Store returns the cart store for a session, constructing and restoring
// it on first use. An empty session ID yields a fresh cart with a newly
// generated identifier; the caller is expected to hand that identifier
// back to the client.
func (s *Service) Store(sessionID string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID != "" {
		if store, ok := s.stores[sessionID]; ok {
			return store
		}
	}

	store := NewStore(Options{
		SessionID:    sessionID,
		Persistence:  s.persist,
		Remote:       s.remote,
		Reporter:     s.reporter,
		Clock:        s.clock,
		AbandonAfter: s.threshold,
		Logger:       s.logger,
	})
	s.stores[store.SessionID()] = store
	return store
}

// Release closes and evicts a single session's store. Its persisted
// snapshot survives for the next construction.
func (s *Service) Release(sessionID string) {
	s.mu.Lock()
	store, ok := s.stores[sessionID]
	if ok {
		delete(s.stores, sessionID)
	}
	s.mu.Unlock()

	if ok {
		store.Close()
	}
}

// Close tears down all live stores. Pending abandonment timers are
// cancelled and will not fire afterwards.
func (s *Service) Close() {
	s.mu.Lock()
	stores := make([]*Store, 0, len(s.stores))
	for _, store := range s.stores {
		stores = append(stores, store)
	}
	s.stores = make(map[string]*Store)
	s.mu.Unlock()

	for _, store := range stores {
		store.Close()
	}
}
