// Package classifier implements the Input Classifier:
// it translates raw editor events into a typed Transition over the
// Coordinator's state machine, and is the sole keeper of freshness
// tracking for "was this text change caused by a keystroke".
package classifier

import (
	"time"

	"github.com/naripok/complete-coordinator/internal/types"
)

// TransitionType enumerates the transitions the Coordinator reacts to.
type TransitionType int

const (
	TransitionMaybeTrigger TransitionType = iota
	TransitionUserEdit
	TransitionPopupEdit
	TransitionStop
	TransitionSelection
	TransitionDone
	TransitionConfigChanged
)

// PopupChangeEvent mirrors MenuPopupChanged payload.
type PopupChangeEvent struct {
	CompletedItem *types.Item `json:"completed_item"`
	Col           int         `json:"col"`
	Row           int         `json:"row"`
	Height        int         `json:"height"`
	Width         int         `json:"width"`
	Scrollbar     bool        `json:"scrollbar"`
}

// Transition is the Classifier's single output type.
type Transition struct {
	Type      TransitionType
	Pre       string
	Change    *types.InsertChange
	Selection *PopupChangeEvent
	Item      *types.Item // nil means CompleteDone(∅)
}

// Classifier holds the freshness-tracking state: the only signal that
// distinguishes a user keystroke from an editor-induced text change.
type Classifier struct {
	now func() time.Time

	lastInsert    *types.LastInsert
	insertCharTs  time.Time
	insertLeaveTs time.Time
}

// New creates a Classifier. now defaults to time.Now if nil, letting
// tests inject a fake clock.
func New(now func() time.Time) *Classifier {
	if now == nil {
		now = time.Now
	}
	return &Classifier{now: now}
}

// OnInsertCharPre records LastInsert{ch, now}; no transition is
// emitted.
func (c *Classifier) OnInsertCharPre(ch string) {
	t := c.now()
	c.lastInsert = &types.LastInsert{Character: ch, Timestamp: t}
	c.insertCharTs = t
}

// OnInsertEnter emits MaybeTrigger(pre) when triggerAfterInsertEnter
// and autoTrigger==always; otherwise nil.
func (c *Classifier) OnInsertEnter(cfg types.Config, pre string) *Transition {
	if cfg.TriggerAfterInsertEnter && cfg.AutoTrigger == types.AutoTriggerAlways {
		return &Transition{Type: TransitionMaybeTrigger, Pre: pre}
	}
	return nil
}

// OnInsertLeave records insertLeaveTs and emits Stop.
func (c *Classifier) OnInsertLeave() Transition {
	c.insertLeaveTs = c.now()
	return Transition{Type: TransitionStop}
}

// OnTextChangedI emits UserEdit(info) — insert-mode change, popup
// hidden.
func (c *Classifier) OnTextChangedI(info types.InsertChange) Transition {
	return Transition{Type: TransitionUserEdit, Change: &info}
}

// OnTextChangedP emits PopupEdit(info) — insert-mode change, popup
// visible.
func (c *Classifier) OnTextChangedP(info types.InsertChange) Transition {
	return Transition{Type: TransitionPopupEdit, Change: &info}
}

// OnCompleteDone emits Done(item).
func (c *Classifier) OnCompleteDone(item *types.Item) Transition {
	return Transition{Type: TransitionDone, Item: item}
}

// OnMenuPopupChanged emits Selection(ev).
func (c *Classifier) OnMenuPopupChanged(ev PopupChangeEvent) Transition {
	return Transition{Type: TransitionSelection, Selection: &ev}
}

// OnConfigChanged emits ConfigChanged; no session is restarted.
func (c *Classifier) OnConfigChanged() Transition {
	return Transition{Type: TransitionConfigChanged}
}

// LatestInsert returns the stored LastInsert iff now-timestamp <= 500ms,
// else nil.
func (c *Classifier) LatestInsert() *types.LastInsert {
	if c.lastInsert == nil {
		return nil
	}
	if !c.lastInsert.Fresh(c.now()) {
		return nil
	}
	return c.lastInsert
}

// LatestInsertChar is LatestInsert's character, or "" if none is
// fresh.
func (c *Classifier) LatestInsertChar() string {
	if li := c.LatestInsert(); li != nil {
		return li.Character
	}
	return ""
}

// ClearLastInsert drops the freshness signal, used after it has been
// consumed by an edit transition.
func (c *Classifier) ClearLastInsert() {
	c.lastInsert = nil
}

// InsertCharTs and InsertLeaveTs expose the re-entrancy witnesses:
// capture before an await, compare after.
func (c *Classifier) InsertCharTs() time.Time  { return c.insertCharTs }
func (c *Classifier) InsertLeaveTs() time.Time { return c.insertLeaveTs }
