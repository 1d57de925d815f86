// Package session owns one in-flight completion attempt: its
// CompleteOption, its providers' results, and its cancellation token.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/naripok/complete-coordinator/internal/logger"
	"github.com/naripok/complete-coordinator/internal/types"
)

// Event is what a running Session reports back to whoever started it.
// The coordinator feeds these through its own single-threaded event
// loop rather than touching Session/editor state from the provider
// goroutines directly.
type Event struct {
	Session *Session
	// FirstResults fires exactly once, after the first provider
	// completes, carrying the union so far.
	FirstResults []*types.Item
	// Updated fires every time a provider completes, carrying the
	// full union and whether any provider remains isIncomplete.
	Updated    []*types.Item
	Incomplete bool
	// Done fires once every provider has finished (or the token fired).
	Done bool
	// ProviderErr carries a per-provider failure; the provider is
	// dropped from the union, others continue.
	ProviderErr error
}

// Session is one in-flight completion attempt.
type Session struct {
	ID     string
	Option *types.CompleteOption

	mu          sync.Mutex
	providers   []types.Provider
	results     map[string][]*types.Item
	incomplete  map[string]bool
	failed      map[string]bool
	pending     int
	input       string
	changedTick int64

	ctx    context.Context
	cancel context.CancelFunc

	firstOnce sync.Once
}

// New creates a fresh Session with its own cancellation token, derived
// from parent so stopping the engine stops every in-flight Session.
func New(parent context.Context, option *types.CompleteOption, providers []types.Provider, timeout time.Duration) *Session {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return &Session{
		ID:         uuid.New().String(),
		Option:     option,
		providers:  providers,
		results:    make(map[string][]*types.Item, len(providers)),
		incomplete: make(map[string]bool, len(providers)),
		failed:     make(map[string]bool, len(providers)),
		input:      option.Input,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Input returns the session's live prefix.
func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// SetInput updates the live prefix as the user keeps typing.
func (s *Session) SetInput(in string) {
	s.mu.Lock()
	s.input = in
	s.mu.Unlock()
}

// ChangedTick returns the tick recorded at the last Show, or 0 if the
// session has never shown its popup.
func (s *Session) ChangedTick() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changedTick
}

// SetChangedTick records the document's changedtick at Show time.
func (s *Session) SetChangedTick(tick int64) {
	s.mu.Lock()
	s.changedTick = tick
	s.mu.Unlock()
}

// Cancelled reports whether the session's token has fired.
func (s *Session) Cancelled() bool {
	select {
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}

// Dispose cancels the token; idempotent, and the single place callers
// should reach for to tear a session down.
func (s *Session) Dispose() {
	s.cancel()
}

// IsCompleting reports whether any provider is still running.
func (s *Session) IsCompleting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending > 0
}

// IsIncomplete reports whether any provider reported its set as a
// partial view.
func (s *Session) IsIncomplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.incomplete {
		if v {
			return true
		}
	}
	return false
}

// Union returns the current union of every provider's results, in
// provider-priority order (the order Providers was constructed with).
func (s *Session) Union() []*types.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unionLocked()
}

func (s *Session) unionLocked() []*types.Item {
	out := make([]*types.Item, 0)
	for _, p := range s.providers {
		out = append(out, s.results[p.Name()]...)
	}
	return out
}

// Run launches every provider concurrently and delivers Events to
// emit. emit must be safe to call from arbitrary goroutines; the
// coordinator is expected to funnel it back through its own event
// channel rather than mutate shared state here.
func (s *Session) Run(recency types.Recency, emit func(Event)) {
	s.mu.Lock()
	s.pending = len(s.providers)
	providers := append([]types.Provider{}, s.providers...)
	s.mu.Unlock()

	if len(providers) == 0 {
		emit(Event{Session: s, Done: true})
		return
	}

	for _, p := range providers {
		go s.runProvider(p, recency, emit)
	}
}

func (s *Session) runProvider(p types.Provider, recency types.Recency, emit func(Event)) {
	result, err := p.DoComplete(s.ctx, s.Option, recency)

	s.mu.Lock()
	s.pending--
	done := s.pending == 0
	if err != nil {
		s.failed[p.Name()] = true
		logger.Warn("provider %s failed: %v", p.Name(), err)
	} else if result != nil {
		s.results[p.Name()] = result.Items
		s.incomplete[p.Name()] = result.Incomplete
	}
	union := s.unionLocked()
	anyIncomplete := false
	for _, v := range s.incomplete {
		if v {
			anyIncomplete = true
			break
		}
	}
	s.mu.Unlock()

	ev := Event{Session: s, Updated: union, Incomplete: anyIncomplete, Done: done}
	if err != nil {
		ev.ProviderErr = err
	}

	s.firstOnce.Do(func() {
		ev.FirstResults = union
	})

	emit(ev)
}
