// Package commit implements Commit/Resolve: resolving item documentation on selection
// change, and the post-accept verification/edit-application sequence
// on CompleteDone.
package commit

import (
	"context"
	"regexp"
	"sync"
	"time"

	diffmatchpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/naripok/complete-coordinator/internal/logger"
	"github.com/naripok/complete-coordinator/internal/types"
)

var dmp = diffmatchpatch.New()

// Bounds is the screen rectangle the floating window should occupy.
type Bounds struct {
	Col, Row, Height, Width int
}

// FloatingWindow is the documentation-rendering handle: show(docs,
// bounds, cancel) / close(), nothing more.
type FloatingWindow interface {
	Show(ctx context.Context, docs types.Documentation, bounds Bounds) error
	Close()
}

var plainTextRe = regexp.MustCompile(`^[\w\-\s.,\t]+$`)

// ClassifyInfo classifies item.Info as plain text vs. code via a
// regex heuristic.
func ClassifyInfo(info, bufferFiletype string) string {
	if plainTextRe.MatchString(info) {
		return "txt"
	}
	return bufferFiletype
}

// Resolver drives onPumChange: it owns the resolve cancellation token,
// independent of the Session's own token.
type Resolver struct {
	floating FloatingWindow

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a Resolver bound to a floating-window handle.
func New(floating FloatingWindow) *Resolver {
	return &Resolver{floating: floating}
}

// Close cancels any in-flight resolve and closes the floating window.
// Called on CompleteDone.
func (r *Resolver) Close() {
	r.CancelResolve()
	r.floating.Close()
}

// CancelResolve cancels any in-flight resolve without affecting the
// Session's own cancellation token.
func (r *Resolver) CancelResolve() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// OnPumChange resolves and shows documentation for the highlighted
// item. It must be called at most once per Selection transition,
// after the configured debounce.
func (r *Resolver) OnPumChange(parent context.Context, item *types.Item, provider types.Provider, bufferFiletype string, bounds Bounds, sessionStillActive func() bool) {
	r.CancelResolve()

	if item == nil || (item.Documentation == nil && item.Info == "") {
		r.floating.Close()
		return
	}

	ctx, cancel := context.WithCancel(parent)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	go func() {
		resolved, err := provider.Resolve(ctx, item)
		if err != nil {
			logger.Warn("resolve failed: %v", err)
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
		if !sessionStillActive() {
			r.floating.Close()
			return
		}

		docs := docsFor(resolved, bufferFiletype)
		if docs == nil {
			r.floating.Close()
			return
		}
		if err := r.floating.Show(ctx, *docs, bounds); err != nil {
			logger.Warn("floating window show failed: %v", err)
		}
	}()
}

func docsFor(item *types.Item, bufferFiletype string) *types.Documentation {
	if item == nil {
		return nil
	}
	if item.Documentation != nil {
		return item.Documentation
	}
	if item.Info == "" {
		return nil
	}
	return &types.Documentation{
		Filetype: ClassifyInfo(item.Info, bufferFiletype),
		Content:  item.Info,
	}
}

// PreEndsWithWord reports whether pre's trailing edit still reflects
// the inserted word: the diff between a line ending in word and pre
// must bottom out in an Equal block covering word, i.e. nothing after
// the word itself was deleted out from under the completion.
func PreEndsWithWord(pre, word string) bool {
	if word == "" {
		return true
	}
	if len(pre) < len(word) {
		return false
	}
	diffs := dmp.DiffMain(word, pre[len(pre)-len(word):], false)
	for _, d := range diffs {
		if d.Type != diffmatchpatch.DiffEqual {
			return false
		}
	}
	return true
}

// PostCommit implements the "Done" row: resolve the
// item once more, wait `wait`, abort if insertCharTs/insertLeaveTs
// moved, verify pre still ends with the inserted word, then run the
// provider's OnCompleteDone and record recency.
type PostCommit struct {
	Wait time.Duration
}

// Run executes the post-commit sequence. witnessesMoved is called
// after the wait to check the re-entrancy witnesses captured before
// it; preStillEndsWithWord is the live check against the
// editor's current pretext.
func (pc PostCommit) Run(
	ctx context.Context,
	item *types.Item,
	option *types.CompleteOption,
	provider types.Provider,
	witnessesMoved func() bool,
	preStillEndsWithWord func() bool,
	recordRecency func(bufnr int, word string, now time.Time),
	now func() time.Time,
) {
	if item == nil {
		return
	}

	if _, err := provider.Resolve(ctx, item); err != nil {
		logger.Warn("post-commit resolve failed: %v", err)
	}

	select {
	case <-time.After(pc.Wait):
	case <-ctx.Done():
		return
	}

	if witnessesMoved() {
		return
	}
	if !preStillEndsWithWord() {
		return
	}

	if err := provider.OnCompleteDone(ctx, item, option); err != nil {
		logger.Warn("onCompleteDone failed: %v", err)
	}

	recordRecency(option.Bufnr, item.Word, now())
}
