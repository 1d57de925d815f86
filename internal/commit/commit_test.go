package commit

import (
	"context"
	"testing"

	"github.com/naripok/complete-coordinator/internal/assert"
	"github.com/naripok/complete-coordinator/internal/types"
)

func TestPreEndsWithWord(t *testing.T) {
	assert.True(t, PreEndsWithWord("foo.bar", "bar"), "pre ends with word")
	assert.False(t, PreEndsWithWord("foo.baz", "bar"), "pre ends with something else")
	assert.False(t, PreEndsWithWord("ba", "bar"), "pre shorter than word")
	assert.True(t, PreEndsWithWord("anything", ""), "empty word always matches")
}

func TestClassifyInfo(t *testing.T) {
	assert.Equal(t, "txt", ClassifyInfo("a plain sentence, with punctuation.", "go"), "plain text heuristic")
	assert.Equal(t, "go", ClassifyInfo("func() { return 1 }", "go"), "code falls back to buffer filetype")
}

type fakeFloat struct {
	shown  *types.Documentation
	closed bool
}

func (f *fakeFloat) Show(_ context.Context, docs types.Documentation, _ Bounds) error {
	f.shown = &docs
	return nil
}
func (f *fakeFloat) Close() { f.closed = true }

type fakeProvider struct{ resolved *types.Item }

func (p *fakeProvider) Name() string                            { return "fake" }
func (p *fakeProvider) ShouldComplete(*types.CompleteOption) bool { return true }
func (p *fakeProvider) Triggers(string) []string                 { return nil }
func (p *fakeProvider) DoComplete(context.Context, *types.CompleteOption, types.Recency) (*types.ProviderResult, error) {
	return nil, nil
}
func (p *fakeProvider) ShouldCommit(*types.Item, string) bool { return false }
func (p *fakeProvider) Resolve(_ context.Context, item *types.Item) (*types.Item, error) {
	if p.resolved != nil {
		return p.resolved, nil
	}
	return item, nil
}
func (p *fakeProvider) OnCompleteDone(context.Context, *types.Item, *types.CompleteOption) error {
	return nil
}
func (p *fakeProvider) Priority() int { return 0 }

func TestResolverOnPumChange_NoInfoClosesFloat(t *testing.T) {
	fw := &fakeFloat{}
	r := New(fw)
	r.OnPumChange(context.Background(), &types.Item{Word: "x"}, &fakeProvider{}, "go", Bounds{}, func() bool { return true })
	assert.True(t, fw.closed, "no documentation available, float must close")
}

func TestResolverClose(t *testing.T) {
	fw := &fakeFloat{}
	r := New(fw)
	r.Close()
	assert.True(t, fw.closed, "Close must close the floating window")
}
