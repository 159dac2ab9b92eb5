// internal/domain/cart/store.go
package cart

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const effectTimeout = 10 * time.Second

// Options configures a cart store. A nil Remote selects local-only mode;
// a non-nil one selects server-backed mode with optimistic mirroring.
type Options struct {
	// SessionID restores an existing cart session. Empty means a fresh
	// cart with a newly generated session identifier.
	SessionID string

	Persistence  Persistence
	Remote       RemoteCart
	Reporter     Reporter
	Clock        Clock
	AbandonAfter time.Duration
	Logger       *logrus.Logger
}

// Store is the public cart facade: the only surface through which cart
// state changes. Transitions are serialized under a mutex and computed by
// the pure Apply function; persistence writes, remote mirroring and
// abandonment reports run as fire-and-forget effects after each
// transition commits, so callers never block on I/O.
type Store struct {
	persist  Persistence
	remote   RemoteCart
	reporter Reporter
	clock    Clock
	monitor  *Monitor
	logger   *logrus.Entry

	mu        sync.Mutex
	state     State
	cartID    string
	userAgent string
	pageURL   string
	closed    bool
}

// NewStore constructs a cart store. The persisted snapshot for the given
// session is loaded exactly once, here; a missing or malformed snapshot
// falls back to a fresh state that keeps the caller's session identifier.
// In server-backed mode a one-shot reconciliation pull starts in the
// background and overwrites local items with the server's version.
func NewStore(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	persist := opts.Persistence
	if persist == nil {
		persist = noopPersistence{}
	}

	s := &Store{
		persist:  persist,
		remote:   opts.Remote,
		reporter: opts.Reporter,
		clock:    clock,
	}

	now := clock.Now()
	if opts.SessionID != "" {
		if snapshot, ok := persist.Load(context.Background(), opts.SessionID); ok {
			s.state, _ = Apply(State{}, Restore{Snapshot: snapshot}, now)
		} else {
			s.state = State{Items: []Line{}, SessionID: opts.SessionID, LastActivity: now}
		}
	} else {
		s.state = NewState(now)
	}

	s.logger = logger.WithField("session_id", s.state.SessionID)
	s.monitor = NewMonitor(opts.AbandonAfter, clock, s.onAbandonExpire)
	s.monitor.Observe(s.state)

	if s.remote != nil {
		go s.reconcile()
	}

	return s
}

// Add appends a line or bumps the quantity of an existing one.
func (s *Store) Add(line Line) State {
	return s.apply(AddLine{Line: line})
}

// Remove deletes a line. Unknown ids are a no-op.
func (s *Store) Remove(id string) State {
	return s.apply(RemoveLine{ID: id})
}

// SetQuantity sets a line's quantity exactly; zero or below removes it.
func (s *Store) SetQuantity(id string, quantity int) State {
	return s.apply(SetQuantity{ID: id, Quantity: quantity})
}

// Clear empties the cart, preserving session and user identity.
func (s *Store) Clear() State {
	return s.apply(Clear{})
}

// SetUserID records the authenticated identity on the cart.
func (s *Store) SetUserID(userID string) State {
	return s.apply(SetUserID{UserID: userID})
}

// Pulse resets the abandonment clock without changing cart contents.
func (s *Store) Pulse() State {
	return s.apply(Pulse{})
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state
	state.Items = cloneItems(s.state.Items)
	return state
}

// SessionID returns the cart's session identifier.
func (s *Store) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SessionID
}

// SetClientContext records best-effort client context carried on
// abandonment reports.
func (s *Store) SetClientContext(userAgent, pageURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if userAgent != "" {
		s.userAgent = userAgent
	}
	if pageURL != "" {
		s.pageURL = pageURL
	}
}

// Close tears the store down. The abandonment timer is stopped and will
// not fire afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.monitor.Stop()
}

func (s *Store) apply(action Action) State {
	s.mu.Lock()
	if s.closed {
		state := s.state
		state.Items = cloneItems(s.state.Items)
		s.mu.Unlock()
		return state
	}

	next, effects := Apply(s.state, action, s.clock.Now())
	s.state = next
	s.monitor.Observe(next)
	identity := Identity{SessionID: next.SessionID, UserID: next.UserID}
	s.mu.Unlock()

	s.dispatch(next, effects, identity)

	result := next
	result.Items = cloneItems(next.Items)
	return result
}

// dispatch executes transition effects asynchronously. Effects never block
// the caller and never propagate failures; the in-memory state stays the
// user-visible truth.
func (s *Store) dispatch(state State, effects []Effect, identity Identity) {
	for _, effect := range effects {
		switch e := effect.(type) {
		case PersistEffect:
			go s.persistSnapshot(state)
		case MirrorAddEffect:
			if s.remote != nil {
				go s.mirrorAdd(identity, e.Line)
			}
		case MirrorUpdateEffect:
			if s.remote != nil {
				go s.mirrorUpdate(identity, e.ID, e.Quantity)
			}
		case MirrorRemoveEffect:
			if s.remote != nil {
				go s.mirrorRemove(identity, e.ID)
			}
		}
	}
}

func (s *Store) persistSnapshot(state State) {
	ctx, cancel := context.WithTimeout(context.Background(), effectTimeout)
	defer cancel()
	s.persist.Save(ctx, state)
}

func (s *Store) mirrorAdd(identity Identity, line Line) {
	ctx, cancel := context.WithTimeout(context.Background(), effectTimeout)
	defer cancel()

	cartID, err := s.remote.AddLine(ctx, identity, line)
	if err != nil {
		s.logger.WithError(err).WithField("line_id", line.ID).
			Warn("Failed to mirror cart add to remote service")
		return
	}
	if cartID == "" {
		return
	}

	s.mu.Lock()
	if s.cartID == "" {
		s.cartID = cartID
	}
	s.mu.Unlock()
}

func (s *Store) mirrorUpdate(identity Identity, lineID string, quantity int) {
	ctx, cancel := context.WithTimeout(context.Background(), effectTimeout)
	defer cancel()

	if err := s.remote.UpdateLine(ctx, s.remoteCartID(), identity, lineID, quantity); err != nil {
		s.logger.WithError(err).WithField("line_id", lineID).
			Warn("Failed to mirror cart update to remote service")
	}
}

func (s *Store) mirrorRemove(identity Identity, lineID string) {
	ctx, cancel := context.WithTimeout(context.Background(), effectTimeout)
	defer cancel()

	if err := s.remote.RemoveLine(ctx, s.remoteCartID(), identity, lineID); err != nil {
		s.logger.WithError(err).WithField("line_id", lineID).
			Warn("Failed to mirror cart removal to remote service")
	}
}

func (s *Store) remoteCartID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartID
}

// reconcile performs the one-shot startup pull: the server's cart
// overwrites locally persisted items, identity fields are kept. Failure
// leaves the local optimistic state usable.
func (s *Store) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), effectTimeout)
	defer cancel()

	s.mu.Lock()
	identity := Identity{SessionID: s.state.SessionID, UserID: s.state.UserID}
	s.mu.Unlock()

	remoteState, err := s.remote.Fetch(ctx, identity)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to pull remote cart for reconciliation")
		return
	}
	if remoteState == nil {
		// No remote cart for this identity; the local cart stands.
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	snapshot := State{
		Items:        remoteState.Lines(),
		SessionID:    s.state.SessionID,
		UserID:       s.state.UserID,
		LastActivity: s.state.LastActivity,
		IsAbandoned:  s.state.IsAbandoned,
	}
	next, _ := Apply(s.state, Restore{Snapshot: snapshot}, s.clock.Now())
	s.state = next
	if remoteState.ID != "" {
		s.cartID = remoteState.ID
	}
	s.monitor.Observe(next)
	s.mu.Unlock()

	go s.persistSnapshot(next)
}

// onAbandonExpire runs when the inactivity timer fires. The cart is
// re-checked for staleness under the lock: activity may have raced the
// timer, in which case the monitor is simply rearmed.
func (s *Store) onAbandonExpire() {
	s.mu.Lock()
	if s.closed || s.state.IsEmpty() || s.state.IsAbandoned {
		s.mu.Unlock()
		return
	}

	now := s.clock.Now()
	if now.Sub(s.state.LastActivity) < s.monitor.Threshold() {
		s.monitor.Observe(s.state)
		s.mu.Unlock()
		return
	}

	next, effects := Apply(s.state, MarkAbandoned{}, now)
	s.state = next
	report := Report{
		SessionID:   next.SessionID,
		UserID:      next.UserID,
		Items:       cloneItems(next.Items),
		Total:       next.Total,
		AbandonedAt: now,
		UserAgent:   s.userAgent,
		URL:         s.pageURL,
	}
	identity := Identity{SessionID: next.SessionID, UserID: next.UserID}
	s.mu.Unlock()

	s.logger.WithField("total", report.Total).Info("Cart marked as abandoned")
	s.dispatch(next, effects, identity)

	if s.reporter != nil {
		go s.sendReport(report)
	}
}

func (s *Store) sendReport(report Report) {
	ctx, cancel := context.WithTimeout(context.Background(), effectTimeout)
	defer cancel()

	if err := s.reporter.Report(ctx, report); err != nil {
		s.logger.WithError(err).Warn("Failed to deliver abandonment report")
	}
}

// noopPersistence is used when no durable storage is wired; the cart then
// lives only in memory.
type noopPersistence struct{}

func (noopPersistence) Save(ctx context.Context, state State) {}

func (noopPersistence) Load(ctx context.Context, sessionID string) (State, bool) {
	return State{}, false
}
