package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/naripok/complete-coordinator/internal/classifier"
	"github.com/naripok/complete-coordinator/internal/commit"
	"github.com/naripok/complete-coordinator/internal/config"
	"github.com/naripok/complete-coordinator/internal/editorbridge"
	"github.com/naripok/complete-coordinator/internal/recency"
	"github.com/naripok/complete-coordinator/internal/types"
)

// stubProvider is the single registered source for every coordinator
// test below: a synchronous, no-delay provider so Session.Run settles
// without any timing games.
type stubProvider struct {
	items       []*types.Item
	shouldCommit func(item *types.Item, ch string) bool
}

func (p *stubProvider) Name() string                             { return "stub" }
func (p *stubProvider) ShouldComplete(*types.CompleteOption) bool { return true }
func (p *stubProvider) Triggers(string) []string                  { return nil }
func (p *stubProvider) DoComplete(_ context.Context, _ *types.CompleteOption, _ types.Recency) (*types.ProviderResult, error) {
	return &types.ProviderResult{Items: p.items}, nil
}
func (p *stubProvider) ShouldCommit(item *types.Item, ch string) bool {
	if p.shouldCommit == nil {
		return false
	}
	return p.shouldCommit(item, ch)
}
func (p *stubProvider) Resolve(_ context.Context, item *types.Item) (*types.Item, error) {
	return item, nil
}
func (p *stubProvider) OnCompleteDone(context.Context, *types.Item, *types.CompleteOption) error {
	return nil
}
func (p *stubProvider) Priority() int { return 0 }

// noopFloat is a FloatingWindow that never renders anything, standing
// in for the out-of-scope documentation surface.
type noopFloat struct{}

func (noopFloat) Show(context.Context, types.Documentation, commit.Bounds) error { return nil }
func (noopFloat) Close()                                                        {}

// spyCall records one PopupShow invocation.
type spyCall struct {
	col       int
	items     []*types.Item
	preselect int
}

func newTestCoordinator(t *testing.T, opt *types.CompleteOption, cfgPatch func(*types.Config), provider *stubProvider) (*Coordinator, *sync.Mutex, *[]spyCall, *[]string, *[]struct {
	linenr int
	col    int
}) {
	t.Helper()

	var mu sync.Mutex
	var showCalls []spyCall
	var setLineCalls []string
	var setCursorCalls []struct {
		linenr int
		col    int
	}

	spy := &editorbridge.Spy{
		PopupShow: func(col int, items []*types.Item, preselect int) {
			mu.Lock()
			defer mu.Unlock()
			showCalls = append(showCalls, spyCall{col: col, items: items, preselect: preselect})
		},
		SetLine: func(linenr int, text string) {
			mu.Lock()
			defer mu.Unlock()
			setLineCalls = append(setLineCalls, text)
			_ = linenr
		},
		SetCursor: func(linenr, col int) {
			mu.Lock()
			defer mu.Unlock()
			setCursorCalls = append(setCursorCalls, struct {
				linenr int
				col    int
			}{linenr, col})
		},
	}

	bridge := editorbridge.NewFake(opt, spy)
	cfgStore, err := config.Load("")
	require.NoError(t, err)
	if cfgPatch != nil {
		cfgStore.Update(cfgPatch)
	}
	rec := recency.New()
	resolver := commit.New(noopFloat{})

	fixedNow := time.Now()
	coord := New(bridge, cfgStore, rec, resolver, func() time.Time { return fixedNow })
	coord.RegisterProvider(provider)

	return coord, &mu, &showCalls, &setLineCalls, &setCursorCalls
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}

// TestCoordinator_SelfInducedPopupEditIgnored exercises spec.md
// scenario S5: once Show has recorded the editor's changedtick onto
// the session, a later TextChangedP bearing that same tick must be
// treated as self-induced and left alone.
func TestCoordinator_SelfInducedPopupEditIgnored(t *testing.T) {
	opt := &types.CompleteOption{Bufnr: 1, Linenr: 1, Col: 0, Colnr: 2, Line: "f", Filetype: "go"}
	provider := &stubProvider{items: []*types.Item{{Word: "foo"}}}
	coord, mu, showCalls, _, _ := newTestCoordinator(t, opt, nil, provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	coord.Start(ctx)
	defer coord.Stop()

	coord.InsertCharPre("f")
	coord.TextChangedI(types.InsertChange{Bufnr: 1, Linenr: 1, Col: 2, Pre: "f", ChangedTick: 10})

	waitUntil(t, time.Second, func() bool {
		coord.mu.Lock()
		defer coord.mu.Unlock()
		return coord.state == stateActive && coord.sess != nil
	})

	waitUntil(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(*showCalls) >= 1
	})

	waitUntil(t, time.Second, func() bool {
		coord.mu.Lock()
		defer coord.mu.Unlock()
		return coord.sess.ChangedTick() == 10
	})

	coord.mu.Lock()
	sessBefore := coord.sess
	coord.mu.Unlock()

	mu.Lock()
	showsBefore := len(*showCalls)
	mu.Unlock()

	// Same changedtick the session just recorded at Show time: must be
	// recognized as self-induced and produce no state change at all.
	coord.TextChangedP(types.InsertChange{Bufnr: 1, Linenr: 1, Col: 2, Pre: "f", ChangedTick: 10})

	time.Sleep(50 * time.Millisecond)

	coord.mu.Lock()
	defer coord.mu.Unlock()
	require.Equal(t, stateActive, coord.state, "self-induced edit must not stop the session")
	require.True(t, coord.sess == sessBefore, "self-induced edit must not restart the session")

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, showsBefore, len(*showCalls), "self-induced edit must not trigger a re-show")
}

// TestCoordinator_CommitCharacterAcceptsAndStopsSession exercises
// spec.md scenario S6: a fresh insert char that the provider declares
// a commit character for the highlighted item accepts it by editing
// the buffer directly and stopping the session, rather than resuming.
func TestCoordinator_CommitCharacterAcceptsAndStopsSession(t *testing.T) {
	opt := &types.CompleteOption{Bufnr: 1, Linenr: 1, Col: 0, Colnr: 1, Line: "", Filetype: "go"}
	provider := &stubProvider{
		items: []*types.Item{{Word: "foo"}},
		shouldCommit: func(item *types.Item, ch string) bool {
			return item != nil && item.Word == "foo" && ch == "."
		},
	}
	coord, mu, _, setLineCalls, setCursorCalls := newTestCoordinator(t, opt, func(c *types.Config) {
		c.AcceptSuggestionOnCommitCharacter = true
	}, provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	coord.Start(ctx)
	defer coord.Stop()

	coord.InsertCharPre("f")
	coord.TextChangedI(types.InsertChange{Bufnr: 1, Linenr: 1, Col: 2, Pre: "f", ChangedTick: 10})

	waitUntil(t, time.Second, func() bool {
		coord.mu.Lock()
		defer coord.mu.Unlock()
		return coord.state == stateActive && coord.sess != nil
	})

	coord.MenuPopupChanged(classifier.PopupChangeEvent{CompletedItem: &types.Item{Word: "foo"}})

	waitUntil(t, time.Second, func() bool {
		coord.mu.Lock()
		defer coord.mu.Unlock()
		return coord.currentItem != nil
	})

	coord.InsertCharPre(".")
	coord.TextChangedI(types.InsertChange{Bufnr: 1, Linenr: 1, Col: 5, Pre: "foo.", ChangedTick: 11})

	waitUntil(t, time.Second, func() bool {
		coord.mu.Lock()
		defer coord.mu.Unlock()
		return coord.state == stateIdle
	})

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"foo."}, *setLineCalls, "commit character inserts word + char into the line")
	require.Len(t, *setCursorCalls, 1, "cursor moved exactly once")
	require.Equal(t, 1, (*setCursorCalls)[0].linenr)
	require.Equal(t, len("foo")+2, (*setCursorCalls)[0].col, "cursor lands at col+len(word)+2")
}
