// Package engine implements the Coordinator: the top-level state
// machine combining the input classifier, trigger policy, session,
// filter/resume engine, popup driver, and commit/resolve into the
// coordinator's only externally visible surface. Single-threaded and
// channel-driven: every state transition runs on one event loop
// goroutine.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/naripok/complete-coordinator/internal/classifier"
	"github.com/naripok/complete-coordinator/internal/commit"
	"github.com/naripok/complete-coordinator/internal/config"
	"github.com/naripok/complete-coordinator/internal/editorbridge"
	"github.com/naripok/complete-coordinator/internal/logger"
	"github.com/naripok/complete-coordinator/internal/metrics"
	"github.com/naripok/complete-coordinator/internal/recency"
	"github.com/naripok/complete-coordinator/internal/session"
	"github.com/naripok/complete-coordinator/internal/types"
)

type coordState int

const (
	stateIdle coordState = iota
	stateActive
)

// eventKind distinguishes the two sources the event loop multiplexes:
// classifier transitions from raw editor events, and async completions
// from a running Session or debounce timer.
type eventKind int

const (
	kindTransition eventKind = iota
	kindSessionUpdate
	kindSelectionFire
)

type engineEvent struct {
	kind       eventKind
	transition classifier.Transition
	sessEvent  session.Event
	sess       *session.Session // which Session a sessEvent belongs to
}

// Coordinator is the only externally visible surface of this module.
type Coordinator struct {
	cfgStore   *config.Store
	recency    *recency.Map
	bridge     *editorbridge.Bridge
	classifier *classifier.Classifier
	resolver   *commit.Resolver
	clock      func() time.Time

	providersMu sync.RWMutex
	providers   []types.Provider

	mu               sync.Mutex
	state            coordState
	pretext          string
	lastChangedTick  int64
	sess             *session.Session
	currentItem      *types.Item
	savedCompleteopt string
	activated        bool

	selectionTimer   *time.Timer
	pendingSelection *classifier.PopupChangeEvent

	metricsSender    metrics.Sender
	sessionShown     bool
	sessionCommitted bool
	sessionID        string
	sessionShownAt   time.Time

	eventCh    chan engineEvent
	mainCtx    context.Context
	mainCancel context.CancelFunc
	stopped    bool
	stopOnce   sync.Once
}

// New builds a Coordinator. clock defaults to time.Now when nil.
func New(bridge *editorbridge.Bridge, cfgStore *config.Store, rec *recency.Map, resolver *commit.Resolver, clock func() time.Time) *Coordinator {
	if clock == nil {
		clock = time.Now
	}
	return &Coordinator{
		cfgStore:   cfgStore,
		recency:    rec,
		bridge:     bridge,
		classifier: classifier.New(clock),
		resolver:   resolver,
		clock:      clock,
		eventCh:    make(chan engineEvent, 256),
	}
}

// RegisterProvider adds a source provider, ordered by Priority
// (highest first).
func (c *Coordinator) RegisterProvider(p types.Provider) {
	c.providersMu.Lock()
	defer c.providersMu.Unlock()
	c.providers = append(c.providers, p)
	sortProvidersByPriority(c.providers)
}

func sortProvidersByPriority(ps []types.Provider) {
	for i := 1; i < len(ps); i++ {
		j := i
		for j > 0 && ps[j-1].Priority() < ps[j].Priority() {
			ps[j-1], ps[j] = ps[j], ps[j-1]
			j--
		}
	}
}

// SetMetricsSender attaches a metrics backend. Optional: a Coordinator
// with none attached just skips the SendMetric calls.
func (c *Coordinator) SetMetricsSender(s metrics.Sender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metricsSender = s
}

func (c *Coordinator) sendMetric(ctx context.Context, evType metrics.EventType, word string) {
	if c.metricsSender == nil || c.sessionID == "" {
		return
	}
	c.metricsSender.SendMetric(ctx, metrics.Event{
		Type: evType,
		Info: metrics.CompletionInfo{ID: c.sessionID + ":" + word, ShownAt: c.sessionShownAt},
	})
}

func (c *Coordinator) providersSnapshot() []types.Provider {
	c.providersMu.RLock()
	defer c.providersMu.RUnlock()
	out := make([]types.Provider, len(c.providers))
	copy(out, c.providers)
	return out
}

// Start launches the event loop. Must be called once.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.mainCtx, c.mainCancel = context.WithCancel(ctx)
	c.mu.Unlock()

	go c.eventLoop(c.mainCtx)
	logger.Info("coordinator started")
}

// Stop idempotently tears down the coordinator and any live session.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.stopped = true
		if c.mainCancel != nil {
			c.mainCancel()
		}
		c.doStopLocked()
		close(c.eventCh)
		logger.Info("coordinator stopped")
	})
}

func (c *Coordinator) eventLoop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event loop panic recovered: %v", r)
			go c.eventLoop(c.mainCtx)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.mu.Lock()
			stopped := c.stopped
			c.mu.Unlock()
			if stopped {
				return
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("event handler panic recovered: %v", r)
					}
				}()
				c.handle(ev)
			}()
		}
	}
}

func (c *Coordinator) emit(ev engineEvent) {
	select {
	case c.eventCh <- ev:
	default:
		logger.Warn("event channel full, dropping event kind=%d", ev.kind)
	}
}

// deliverSession funnels Session.Run's async callback back through
// the single-threaded event loop.
func (c *Coordinator) deliverSession(s *session.Session) func(session.Event) {
	return func(ev session.Event) {
		select {
		case c.eventCh <- engineEvent{kind: kindSessionUpdate, sessEvent: ev, sess: s}:
		case <-c.mainCtx.Done():
		}
	}
}

func (c *Coordinator) config() types.Config {
	return c.cfgStore.Get()
}

// --- Raw editor event entry points (called by whatever decodes the
// editor RPC payload; kept thin so classifier.Classifier stays the
// single owner of freshness tracking). ---

func (c *Coordinator) InsertCharPre(ch string) { c.classifier.OnInsertCharPre(ch) }

func (c *Coordinator) InsertEnter(pre string) {
	if t := c.classifier.OnInsertEnter(c.config(), pre); t != nil {
		c.emit(engineEvent{kind: kindTransition, transition: *t})
	}
}

func (c *Coordinator) InsertLeave() {
	c.emit(engineEvent{kind: kindTransition, transition: c.classifier.OnInsertLeave()})
}

func (c *Coordinator) TextChangedI(info types.InsertChange) {
	c.emit(engineEvent{kind: kindTransition, transition: c.classifier.OnTextChangedI(info)})
}

func (c *Coordinator) TextChangedP(info types.InsertChange) {
	c.emit(engineEvent{kind: kindTransition, transition: c.classifier.OnTextChangedP(info)})
}

func (c *Coordinator) CompleteDone(item *types.Item) {
	c.emit(engineEvent{kind: kindTransition, transition: c.classifier.OnCompleteDone(item)})
}

func (c *Coordinator) MenuPopupChanged(ev classifier.PopupChangeEvent) {
	c.emit(engineEvent{kind: kindTransition, transition: c.classifier.OnMenuPopupChanged(ev)})
}

func (c *Coordinator) ConfigChanged() {
	c.emit(engineEvent{kind: kindTransition, transition: c.classifier.OnConfigChanged()})
}

// Tab-equivalent: a number-select digit key was pressed while the
// popup is visible.
func (c *Coordinator) NumberSelect(digit rune) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateActive || c.sess == nil {
		return
	}
	// No Plan is kept after showLocked, so the digit is not resolved to
	// an item here; the accept itself arrives as a CompleteDone.
	_ = digit
}

