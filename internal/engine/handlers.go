package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/naripok/complete-coordinator/internal/classifier"
	"github.com/naripok/complete-coordinator/internal/commit"
	"github.com/naripok/complete-coordinator/internal/filterengine"
	"github.com/naripok/complete-coordinator/internal/logger"
	"github.com/naripok/complete-coordinator/internal/metrics"
	"github.com/naripok/complete-coordinator/internal/popup"
	"github.com/naripok/complete-coordinator/internal/session"
	"github.com/naripok/complete-coordinator/internal/triggerpolicy"
	"github.com/naripok/complete-coordinator/internal/types"
)

// handle dispatches one event through the event-to-action table. It
// runs entirely under c.mu: one lock for the whole switch.
func (c *Coordinator) handle(ev engineEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	switch ev.kind {
	case kindTransition:
		c.handleTransitionLocked(ev.transition)
	case kindSessionUpdate:
		c.handleSessionUpdateLocked(ev)
	case kindSelectionFire:
		c.handleSelectionFireLocked()
	}
}

func (c *Coordinator) handleTransitionLocked(t classifier.Transition) {
	switch t.Type {
	case classifier.TransitionConfigChanged:
		logger.Debug("config changed, no session restart")
		return
	case classifier.TransitionMaybeTrigger:
		if c.state == stateIdle {
			c.tryTriggerLocked(t.Pre)
		}
		return
	case classifier.TransitionStop:
		c.classifier.ClearLastInsert()
		c.doStopLocked()
		return
	}

	switch c.state {
	case stateIdle:
		c.handleIdleLocked(t)
	case stateActive:
		c.handleActiveLocked(t)
	}
}

func (c *Coordinator) handleIdleLocked(t classifier.Transition) {
	switch t.Type {
	case classifier.TransitionUserEdit:
		c.pretext = t.Change.Pre
		c.lastChangedTick = t.Change.ChangedTick
		fresh := c.classifier.LatestInsertChar() != ""
		c.classifier.ClearLastInsert()
		if !fresh {
			return
		}
		c.tryTriggerLocked(t.Change.Pre)
	}
}

func (c *Coordinator) handleActiveLocked(t classifier.Transition) {
	switch t.Type {
	case classifier.TransitionUserEdit:
		c.handleActiveUserEditLocked(t)
	case classifier.TransitionPopupEdit:
		c.handleActivePopupEditLocked(t)
	case classifier.TransitionSelection:
		c.handleSelectionLocked(t.Selection)
	case classifier.TransitionDone:
		c.handleDoneLocked(t.Item)
	}
}

func (c *Coordinator) handleActiveUserEditLocked(t classifier.Transition) {
	info := t.Change
	c.pretext = info.Pre
	c.lastChangedTick = info.ChangedTick
	insertChar := c.classifier.LatestInsertChar()
	c.classifier.ClearLastInsert()

	option := c.sess.Option

	// Cursor moved to a different line, or back at/before the column
	// the session started from.
	if info.Linenr != option.Linenr || info.Col-1 <= option.Col {
		if c.tryTriggerDecisionLocked(info.Pre).Trigger {
			c.startLocked(info.Pre)
		} else {
			c.doStopLocked()
		}
		return
	}

	if c.tryCommitCharacterLocked(info, insertChar) {
		return
	}

	decision := c.tryTriggerDecisionLocked(info.Pre)
	if decision.Trigger {
		c.startLocked(info.Pre)
		return
	}
	c.resumeLocked(false)
}

func (c *Coordinator) handleActivePopupEditLocked(t classifier.Transition) {
	info := t.Change
	c.pretext = info.Pre
	c.lastChangedTick = info.ChangedTick

	if c.sess != nil && info.ChangedTick == c.sess.ChangedTick() {
		return // self-induced by our own last Show.
	}

	if leadingWhitespace(info.Pre) != leadingWhitespace(c.sess.Option.Line) {
		c.doStopLocked()
		return
	}

	fresh := c.classifier.LatestInsertChar() != ""
	c.classifier.ClearLastInsert()
	if !fresh {
		return
	}

	decision := c.tryTriggerDecisionLocked(info.Pre)
	if decision.Trigger {
		c.startLocked(info.Pre)
		return
	}
	c.resumeLocked(false)
}

func leadingWhitespace(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[:i]
}

// --- Trigger Policy glue ---

func (c *Coordinator) tryTriggerDecisionLocked(pre string) triggerpolicy.Decision {
	providerTriggers := c.flattenTriggersLocked()
	return triggerpolicy.ShouldTrigger(triggerpolicy.Input{
		Pre:              pre,
		Config:           c.config(),
		IsActivated:      c.activated,
		ProviderTriggers: providerTriggers,
	})
}

func (c *Coordinator) flattenTriggersLocked() []string {
	filetype := ""
	if c.sess != nil {
		filetype = c.sess.Option.Filetype
	}
	var out []string
	for _, p := range c.providersSnapshot() {
		out = append(out, p.Triggers(filetype)...)
	}
	return out
}

func (c *Coordinator) tryTriggerLocked(pre string) {
	if c.tryTriggerDecisionLocked(pre).Trigger {
		c.startLocked(pre)
	}
}

// --- Start / Run ---

func (c *Coordinator) startLocked(pre string) {
	option, err := c.bridge.GetCompleteOption()
	if err != nil {
		logger.Error("startCompletion: get_complete_option failed: %v", err)
		c.bridge.Echo("Complete error: " + err.Error())
		c.doStopLocked()
		return
	}
	if option.Input == "" {
		option.Input = pre
	}
	if types.IsCommandLineBuffer(option.BufferURI) {
		return
	}

	providers := c.selectProvidersLocked(option)
	if len(providers) == 0 {
		return
	}

	if c.sess != nil {
		c.sess.Dispose()
	}

	cfg := c.config()
	c.sess = session.New(c.mainCtx, option, providers, cfg.Timeout)
	c.activated = true
	c.state = stateActive

	c.sessionID = fmt.Sprintf("%d:%d:%d", option.Bufnr, option.Linenr, option.Col)
	c.sessionShown = false
	c.sessionCommitted = false

	if !cfg.KeepCompleteopt {
		c.pushCompleteoptLocked(cfg)
	}

	sess := c.sess
	sess.Run(c.recency, c.deliverSession(sess))
}

func (c *Coordinator) selectProvidersLocked(option *types.CompleteOption) []types.Provider {
	all := c.providersSnapshot()
	if option.Source != "" {
		for _, p := range all {
			if p.Name() == option.Source {
				return []types.Provider{p}
			}
		}
		return nil
	}
	out := make([]types.Provider, 0, len(all))
	for _, p := range all {
		if p.ShouldComplete(option) {
			out = append(out, p)
		}
	}
	return out
}

func (c *Coordinator) pushCompleteoptLocked(cfg types.Config) {
	if err := c.bridge.SetCompleteopt(cfg.NoSelect, cfg.EnablePreview); err != nil {
		logger.Warn("set_completeopt failed: %v", err)
	}
}

// --- Session async delivery ---

func (c *Coordinator) handleSessionUpdateLocked(ev engineEvent) {
	if c.sess == nil || ev.sess != c.sess {
		return // stale continuation from a disposed session.
	}
	if c.sess.Cancelled() {
		return
	}

	se := ev.sessEvent
	if se.ProviderErr != nil {
		// dropped provider; others continue.
	}

	if se.FirstResults != nil {
		c.showLocked(se.FirstResults)
	} else if se.Updated != nil {
		c.showLocked(se.Updated)
	}

	if se.Done && !c.sess.IsCompleting() {
		union := c.sess.Union()
		if len(union) == 0 {
			c.doStopLocked()
		}
	}
}

// --- Filter / Resume ---

func (c *Coordinator) resumeLocked(force bool) {
	if c.sess == nil {
		return
	}
	search, ok := filterengine.GetResumeInput(c.pretext, c.sess.Option)
	if !ok {
		c.doStopLocked()
		return
	}

	if search == c.sess.Input() && !force {
		return
	}
	// The extension check runs against the input the session started
	// with, so deleting back toward it re-filters instead of stopping.
	if filterengine.Decide(search, c.sess.Option.Input, true) == filterengine.DecisionStop {
		c.doStopLocked()
		return
	}

	c.sess.SetInput(search)

	if c.sess.IsIncomplete() {
		c.requeryLocked(search)
		return
	}

	items := filterengine.Filter(c.sess.Union(), search, filterengine.RankOptions{
		Bufnr:   c.sess.Option.Bufnr,
		Config:  c.config(),
		Recency: c.recency,
		Now:     c.clock(),
	})

	if len(items) == 0 && !c.sess.IsCompleting() {
		c.doStopLocked()
		return
	}
	c.showLocked(items)
}

// requeryLocked asks incomplete providers to re-query with the new
// prefix by re-running the Session against the extended option.
func (c *Coordinator) requeryLocked(search string) {
	sess := c.sess
	option := *sess.Option
	option.Input = search

	startTick := sess.ChangedTick()
	pretext := c.pretext
	newSess := session.New(c.mainCtx, &option, c.selectProvidersLocked(&option), c.config().Timeout)

	go func() {
		// Wait for the document to be back in sync before accepting
		// results — a synchronous strpart round-trip stands in for
		// "document change-counter equals the in-flight value".
		cur, err := c.bridge.StrpartBeforeCursor()
		if err != nil || cur != pretext {
			newSess.Dispose()
			return
		}
		_ = startTick
		newSess.Run(c.recency, c.deliverSession(newSess))
	}()

	sess.Dispose()
	c.sess = newSess
}

// --- Show ---

func (c *Coordinator) showLocked(items []*types.Item) {
	if c.sess == nil {
		return
	}
	cfg := c.config()
	plan := popup.Build(c.sess.Option.Col, items, c.sess.Input(), cfg)

	if err := c.bridge.PopupShow(plan.Col, plan.Items, plan.Preselect); err != nil {
		logger.Error("popup_show failed: %v", err)
		c.doStopLocked()
		return
	}

	if !c.sessionShown && len(items) > 0 {
		c.sessionShown = true
		c.sessionShownAt = c.clock()
		c.sendMetric(c.mainCtx, metrics.EventShown, "")
	}

	if cfg.NumberSelect && len(plan.NumberKeys) > 0 {
		if err := c.bridge.MapNumberSelect(); err != nil {
			logger.Warn("map_number_select failed: %v", err)
		}
	}

	// Record the editor's own changedtick, last observed on
	// TextChangedI/P, so the next PopupEdit bearing this same tick is
	// recognized as self-induced by this very show and ignored.
	c.sess.SetChangedTick(c.lastChangedTick)
}

// --- Commit character rule ---

// tryCommitCharacterLocked applies the commit-character rule; ch is the
// fresh insert char captured before the edit cleared it ("" if none).
func (c *Coordinator) tryCommitCharacterLocked(info *types.InsertChange, ch string) bool {
	cfg := c.config()
	if !cfg.AcceptSuggestionOnCommitCharacter {
		return false
	}
	if ch == "" || c.currentItem == nil || c.sess == nil {
		return false
	}

	providers := c.selectProvidersLocked(c.sess.Option)
	var committing bool
	for _, p := range providers {
		if p.ShouldCommit(c.currentItem, ch) {
			committing = true
			break
		}
	}
	if !committing {
		return false
	}
	if !strings.HasSuffix(info.Pre, ch) {
		return false
	}

	option := c.sess.Option
	word := c.currentItem.Word
	line := option.Line
	col := option.Col
	before := line
	if col <= len(line) {
		before = line[:col]
	}
	after := ""
	if option.Colnr >= 1 && option.Colnr-1 <= len(line) {
		after = line[option.Colnr-1:]
	}
	newLine := before + word + ch + after

	c.doStopLocked()
	if err := c.bridge.SetLine(option.Linenr, newLine); err != nil {
		logger.Error("setline failed: %v", err)
		return true
	}
	if err := c.bridge.SetCursor(option.Linenr, col+len(word)+2); err != nil {
		logger.Error("cursor failed: %v", err)
	}
	return true
}

// --- Selection / Commit-Resolve ---

func (c *Coordinator) handleSelectionLocked(ev *classifier.PopupChangeEvent) {
	if ev.CompletedItem != nil && ev.CompletedItem.Word != "" {
		c.currentItem = ev.CompletedItem
	} else {
		c.currentItem = nil
	}
	c.resolver.CancelResolve()

	c.pendingSelection = ev
	debounce := time.Duration(c.config().SelectionDebounceMs) * time.Millisecond
	c.resetSelectionTimerLocked(debounce)
}

func (c *Coordinator) resetSelectionTimerLocked(d time.Duration) {
	if c.selectionTimer != nil {
		c.selectionTimer.Stop()
	}
	c.selectionTimer = time.AfterFunc(d, func() {
		select {
		case c.eventCh <- engineEvent{kind: kindSelectionFire}:
		case <-c.mainCtx.Done():
		}
	})
}

func (c *Coordinator) handleSelectionFireLocked() {
	if c.state != stateActive || c.sess == nil {
		return
	}
	item := c.currentItem
	option := c.sess.Option
	providers := c.selectProvidersLocked(option)
	if len(providers) == 0 {
		return
	}
	sessRef := c.sess
	c.resolver.OnPumChange(c.mainCtx, item, providers[0], option.Filetype, boundsFrom(c.pendingSelection), func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.sess == sessRef && !c.sess.Cancelled()
	})
}

func boundsFrom(ev *classifier.PopupChangeEvent) commit.Bounds {
	if ev == nil {
		return commit.Bounds{}
	}
	return commit.Bounds{Col: ev.Col, Row: ev.Row, Height: ev.Height, Width: ev.Width}
}

// --- Done ---

func (c *Coordinator) handleDoneLocked(item *types.Item) {
	c.currentItem = nil
	c.resolver.CancelResolve()
	c.resolver.Close()

	if c.sess == nil {
		c.doStopLocked()
		return
	}

	sess := c.sess
	option := sess.Option
	providers := c.selectProvidersLocked(option)
	if item == nil || item.Word == "" || len(providers) == 0 {
		c.doStopLocked()
		return
	}

	c.sessionCommitted = true
	c.sendMetric(c.mainCtx, metrics.EventAccepted, item.Word)

	insertTsBefore := c.classifier.InsertCharTs()
	leaveTsBefore := c.classifier.InsertLeaveTs()
	pc := commit.PostCommit{Wait: time.Duration(c.config().PostCommitWaitMs) * time.Millisecond}

	go pc.Run(
		c.mainCtx,
		item,
		option,
		providers[0],
		func() bool {
			return c.classifier.InsertCharTs() != insertTsBefore || c.classifier.InsertLeaveTs() != leaveTsBefore
		},
		func() bool {
			cur, err := c.bridge.StrpartBeforeCursor()
			if err != nil {
				return true
			}
			return commit.PreEndsWithWord(cur, item.Word)
		},
		func(bufnr int, word string, now time.Time) {
			c.recency.Touch(bufnr, word, now)
		},
		c.clock,
	)

	c.doStopLocked()
}

// --- Stop ---

// doStopLocked is idempotent: if not active, no-op.
func (c *Coordinator) doStopLocked() {
	if c.state != stateActive && c.sess == nil && !c.activated {
		return
	}

	if c.selectionTimer != nil {
		c.selectionTimer.Stop()
		c.selectionTimer = nil
	}
	c.resolver.CancelResolve()

	cfg := c.config()
	batch := c.bridge.NewStopBatch()
	batch.HidePopup()
	batch.ClearCandidates()
	if !cfg.KeepCompleteopt {
		batch.RestoreCompleteopt(c.savedCompleteopt)
	}
	if cfg.NumberSelect {
		batch.UnmapNumberSelect()
	}
	if err := batch.Execute(); err != nil {
		logger.Warn("stop batch failed: %v", err)
	}

	if c.sess != nil {
		c.sess.Dispose()
		c.sess = nil
	}
	if c.sessionShown && !c.sessionCommitted {
		c.sendMetric(c.mainCtx, metrics.EventIgnored, "")
	}
	c.sessionShown = false
	c.sessionCommitted = false
	c.sessionID = ""
	c.currentItem = nil
	c.activated = false
	c.state = stateIdle
}

