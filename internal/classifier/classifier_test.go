package classifier

import (
	"testing"
	"time"

	"github.com/naripok/complete-coordinator/internal/assert"
	"github.com/naripok/complete-coordinator/internal/types"
)

func fakeClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestOnInsertEnter_OnlyWhenConfigured(t *testing.T) {
	c := New(nil)
	cfg := types.Default()

	assert.Nil(t, c.OnInsertEnter(cfg, "foo"), "TriggerAfterInsertEnter off by default")

	cfg.TriggerAfterInsertEnter = true
	tr := c.OnInsertEnter(cfg, "foo")
	assert.NotNil(t, tr, "enabled and autoTrigger always")
	assert.Equal(t, TransitionMaybeTrigger, tr.Type, "transition type")
	assert.Equal(t, "foo", tr.Pre, "pre carried through")

	cfg.AutoTrigger = types.AutoTriggerNone
	assert.Nil(t, c.OnInsertEnter(cfg, "foo"), "autoTrigger none suppresses it even when enabled")
}

func TestLatestInsertChar_Freshness(t *testing.T) {
	now := time.Now()
	clock := now
	c := New(func() time.Time { return clock })

	c.OnInsertCharPre("x")
	assert.Equal(t, "x", c.LatestInsertChar(), "fresh insert returns its character")

	clock = now.Add(time.Second)
	assert.Equal(t, "", c.LatestInsertChar(), "stale insert (>500ms) returns empty")
}

func TestClearLastInsert(t *testing.T) {
	c := New(nil)
	c.OnInsertCharPre("x")
	c.ClearLastInsert()
	assert.Equal(t, "", c.LatestInsertChar(), "cleared insert is gone")
}

func TestOnInsertLeave_RecordsTimestampAndStops(t *testing.T) {
	now := time.Now()
	c := New(fakeClock(now))
	tr := c.OnInsertLeave()
	assert.Equal(t, TransitionStop, tr.Type, "InsertLeave always stops")
	assert.True(t, c.InsertLeaveTs().Equal(now), "insertLeaveTs recorded")
}

func TestOnTextChangedI_And_P(t *testing.T) {
	c := New(nil)
	info := types.InsertChange{Bufnr: 1, Pre: "foo"}

	tr := c.OnTextChangedI(info)
	assert.Equal(t, TransitionUserEdit, tr.Type, "TextChangedI is a UserEdit transition")
	assert.Equal(t, "foo", tr.Change.Pre, "change payload carried through")

	tr = c.OnTextChangedP(info)
	assert.Equal(t, TransitionPopupEdit, tr.Type, "TextChangedP is a PopupEdit transition")
}

func TestOnCompleteDone_AndMenuPopupChanged(t *testing.T) {
	c := New(nil)
	item := &types.Item{Word: "foo"}
	tr := c.OnCompleteDone(item)
	assert.Equal(t, TransitionDone, tr.Type, "CompleteDone transition type")
	assert.Equal(t, item, tr.Item, "item carried through")

	tr = c.OnMenuPopupChanged(PopupChangeEvent{Col: 3})
	assert.Equal(t, TransitionSelection, tr.Type, "MenuPopupChanged transition type")
	assert.Equal(t, 3, tr.Selection.Col, "selection payload carried through")
}
