// Package editorbridge wraps the neovim/go-client RPC session with a
// narrow surface: event registration, the popup RPC calls, and the
// synchronous queries the coordinator needs. It is the only package
// allowed to touch *nvim.Nvim directly.
package editorbridge

import (
	"context"
	"fmt"

	"github.com/neovim/go-client/nvim"

	"github.com/naripok/complete-coordinator/internal/commit"
	"github.com/naripok/complete-coordinator/internal/logger"
	"github.com/naripok/complete-coordinator/internal/types"
)

// Bridge is the editor bridge handle. Nil-safe: a Bridge with no Nvim
// attached silently no-ops writes, so the coordinator can be exercised
// in tests without a live RPC session.
type Bridge struct {
	n      *nvim.Nvim
	option *types.CompleteOption
	spy    *Spy
}

// New wraps an established nvim RPC session.
func New(n *nvim.Nvim) *Bridge { return &Bridge{n: n} }

// Spy lets a test observe the RPC calls a Bridge built by NewFake
// would otherwise have made against a live nvim session. Every field
// is optional; a nil field behaves exactly like a production Bridge
// with no nvim session attached — a silent no-op.
type Spy struct {
	PopupShow func(col int, items []*types.Item, preselect int)
	SetLine   func(linenr int, text string)
	SetCursor func(linenr, col int)
}

// NewFake builds a Bridge with no nvim session attached, for tests
// that drive a Coordinator without a live editor: GetCompleteOption
// returns opt instead of erroring, PopupShow/SetLine/SetCursor calls
// are reported to spy (if non-nil), and every other RPC call is a
// silent no-op.
func NewFake(opt *types.CompleteOption, spy *Spy) *Bridge {
	if spy == nil {
		spy = &Spy{}
	}
	return &Bridge{option: opt, spy: spy}
}

// RegisterEvents wires the editor event stream to
// dispatch. dispatch receives the event name and an opaque payload
// decoded by the caller.
func (b *Bridge) RegisterEvents(dispatch func(event string, payload []byte)) error {
	if b.n == nil {
		return fmt.Errorf("editorbridge: no nvim session attached")
	}
	return b.n.RegisterHandler("complete_coordinator_event", func(n *nvim.Nvim, event string, payload []byte) {
		dispatch(event, payload)
	})
}

// PopupShow calls the editor's popup-show RPC: popup_show(col, items,
// preselect).
func (b *Bridge) PopupShow(col int, items []*types.Item, preselect int) error {
	if b.n == nil {
		if b.spy != nil && b.spy.PopupShow != nil {
			b.spy.PopupShow(col, items, preselect)
		}
		return nil
	}
	rows := make([]map[string]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, map[string]any{
			"word":      it.Word,
			"abbr":      it.Abbr,
			"menu":      it.Menu,
			"kind":      it.Kind,
			"info":      it.Info,
			"dup":       boolToInt(it.Dup),
			"empty":     boolToInt(it.Empty),
			"icase":     boolToInt(it.ICase),
			"user_data": it.UserData,
		})
	}
	return b.n.Call("CompleteCoordinator_popup_show", nil, col, rows, preselect)
}

// PopupHide calls popup_hide().
func (b *Bridge) PopupHide() error {
	if b.n == nil {
		return nil
	}
	return b.n.Call("CompleteCoordinator_popup_hide", nil)
}

// SetCandidates calls set_candidates([]).
func (b *Bridge) SetCandidates(items []*types.Item) error {
	if b.n == nil {
		return nil
	}
	return b.n.Call("CompleteCoordinator_set_candidates", nil, items)
}

// SetCompleteopt composes and pushes "noselect|noinsert,menuone[,preview]".
func (b *Bridge) SetCompleteopt(noselect, preview bool) error {
	if b.n == nil {
		return nil
	}
	opt := "menuone"
	if noselect {
		opt = "noselect," + opt
	} else {
		opt = "noinsert," + opt
	}
	if preview {
		opt += ",preview"
	}
	return b.n.Call("CompleteCoordinator_set_completeopt", nil, opt)
}

// MapNumberSelect maps digit keys 1..9 to select-and-commit.
func (b *Bridge) MapNumberSelect() error {
	if b.n == nil {
		return nil
	}
	return b.n.Call("CompleteCoordinator_map_number_select", nil)
}

// UnmapNumberSelect undoes MapNumberSelect.
func (b *Bridge) UnmapNumberSelect() error {
	if b.n == nil {
		return nil
	}
	return b.n.Call("CompleteCoordinator_unmap_number_select", nil)
}

// SetLine replaces a buffer line, used by the commit-character path.
func (b *Bridge) SetLine(linenr int, text string) error {
	if b.n == nil {
		if b.spy != nil && b.spy.SetLine != nil {
			b.spy.SetLine(linenr, text)
		}
		return nil
	}
	return b.n.Call("CompleteCoordinator_setline", nil, linenr, text)
}

// SetCursor moves the cursor to (linenr, col).
func (b *Bridge) SetCursor(linenr, col int) error {
	if b.n == nil {
		if b.spy != nil && b.spy.SetCursor != nil {
			b.spy.SetCursor(linenr, col)
		}
		return nil
	}
	return b.n.Call("CompleteCoordinator_cursor", nil, linenr, col)
}

// PumVisible is the synchronous pumvisible() query.
func (b *Bridge) PumVisible() (bool, error) {
	if b.n == nil {
		return false, nil
	}
	var visible int
	if err := b.n.Call("CompleteCoordinator_pumvisible", &visible); err != nil {
		return false, err
	}
	return visible != 0, nil
}

// GetCompleteOption is the synchronous get_complete_option() query
// the coordinator makes when it starts a session.
func (b *Bridge) GetCompleteOption() (*types.CompleteOption, error) {
	if b.n == nil {
		if b.option != nil {
			return b.option, nil
		}
		return nil, fmt.Errorf("editorbridge: no nvim session attached")
	}
	var raw map[string]any
	if err := b.n.Call("CompleteCoordinator_get_complete_option", &raw); err != nil {
		return nil, err
	}
	return decodeCompleteOption(raw), nil
}

// StrpartBeforeCursor is strpart(getline('.'), 0, col('.')-1).
func (b *Bridge) StrpartBeforeCursor() (string, error) {
	if b.n == nil {
		return "", nil
	}
	var s string
	if err := b.n.Call("CompleteCoordinator_strpart_before_cursor", &s); err != nil {
		return "", err
	}
	return s, nil
}

// Echo surfaces a single-line user message, used for the startCompletion
// error path.
func (b *Bridge) Echo(msg string) {
	if b.n == nil {
		return
	}
	if err := b.n.Command(fmt.Sprintf("echom %q", msg)); err != nil {
		logger.Warn("editorbridge: echo failed: %v", err)
	}
}

// StopBatch is the single atomic teardown notification: popup_hide +
// set_candidates([]) + completeopt restore + optional number-select
// unmap, all in one round-trip.
type StopBatch struct {
	b     *Bridge
	batch *nvim.Batch
}

// NewStopBatch begins batching the teardown notification.
func (b *Bridge) NewStopBatch() *StopBatch {
	if b.n == nil {
		return &StopBatch{b: b}
	}
	return &StopBatch{b: b, batch: b.n.NewBatch()}
}

func (sb *StopBatch) HidePopup() {
	if sb.batch == nil {
		return
	}
	sb.batch.Call("CompleteCoordinator_popup_hide", nil)
}

func (sb *StopBatch) ClearCandidates() {
	if sb.batch == nil {
		return
	}
	sb.batch.Call("CompleteCoordinator_set_candidates", nil, []*types.Item{})
}

func (sb *StopBatch) RestoreCompleteopt(saved string) {
	if sb.batch == nil {
		return
	}
	sb.batch.Call("CompleteCoordinator_set_completeopt", nil, saved)
}

func (sb *StopBatch) UnmapNumberSelect() {
	if sb.batch == nil {
		return
	}
	sb.batch.Call("CompleteCoordinator_unmap_number_select", nil)
}

// Execute flushes the batch in a single round-trip.
func (sb *StopBatch) Execute() error {
	if sb.batch == nil {
		return nil
	}
	return sb.batch.Execute()
}

// FloatingDocs implements commit.FloatingWindow over the editor bridge's
// float-show/float-close RPCs.
type FloatingDocs struct {
	b *Bridge
}

// NewFloatingDocs wraps b as a commit.FloatingWindow.
func NewFloatingDocs(b *Bridge) *FloatingDocs { return &FloatingDocs{b: b} }

// Show renders docs at bounds.
func (f *FloatingDocs) Show(ctx context.Context, docs types.Documentation, bounds commit.Bounds) error {
	if f.b.n == nil {
		return nil
	}
	return f.b.n.Call("CompleteCoordinator_float_show", nil, docs.Filetype, docs.Content, bounds.Col, bounds.Row, bounds.Height, bounds.Width)
}

// Close hides the floating window.
func (f *FloatingDocs) Close() {
	if f.b.n == nil {
		return
	}
	if err := f.b.n.Call("CompleteCoordinator_float_close", nil); err != nil {
		logger.Warn("editorbridge: float close failed: %v", err)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func decodeCompleteOption(raw map[string]any) *types.CompleteOption {
	opt := &types.CompleteOption{}
	if v, ok := raw["bufnr"].(int64); ok {
		opt.Bufnr = int(v)
	}
	if v, ok := raw["lnum"].(int64); ok {
		opt.Linenr = int(v)
	}
	if v, ok := raw["col"].(int64); ok {
		opt.Col = int(v)
	}
	if v, ok := raw["colnr"].(int64); ok {
		opt.Colnr = int(v)
	}
	if v, ok := raw["line"].(string); ok {
		opt.Line = v
	}
	if v, ok := raw["filetype"].(string); ok {
		opt.Filetype = v
	}
	if v, ok := raw["input"].(string); ok {
		opt.Input = v
	}
	if v, ok := raw["trigger_character"].(string); ok {
		opt.TriggerCharacter = v
	}
	if list, ok := raw["blacklist"].([]any); ok {
		opt.Blacklist = make([]string, 0, len(list))
		for _, v := range list {
			if s, ok := v.(string); ok {
				opt.Blacklist = append(opt.Blacklist, s)
			}
		}
	}
	if v, ok := raw["source"].(string); ok {
		opt.Source = v
	}
	if v, ok := raw["uri"].(string); ok {
		opt.BufferURI = v
	}
	return opt
}
