package filterengine

import (
	"testing"
	"time"

	"github.com/naripok/complete-coordinator/internal/assert"
	"github.com/naripok/complete-coordinator/internal/types"
)

func opt(col int, blacklist ...string) *types.CompleteOption {
	return &types.CompleteOption{Col: col, Blacklist: blacklist}
}

func TestGetResumeInput(t *testing.T) {
	search, ok := GetResumeInput("foo.bar", opt(4))
	assert.True(t, ok, "pretext long enough")
	assert.Equal(t, "bar", search, "resume input")

	_, ok = GetResumeInput("foo", opt(10))
	assert.False(t, ok, "pretext too short")

	_, ok = GetResumeInput("foo.bar", opt(4, "bar"))
	assert.False(t, ok, "blacklisted input")
}

func TestDecide_NoOp(t *testing.T) {
	assert.Equal(t, DecisionNoOp, Decide("abc", "abc", false), "identical input, not forced")
}

func TestDecide_ForcedIdenticalContinues(t *testing.T) {
	assert.Equal(t, DecisionContinue, Decide("abc", "abc", true), "identical input but forced re-query")
}

func TestDecide_StopOnEmpty(t *testing.T) {
	assert.Equal(t, DecisionStop, Decide("", "abc", false), "empty search")
}

func TestDecide_StopOnTrailingWhitespace(t *testing.T) {
	assert.Equal(t, DecisionStop, Decide("abc ", "abc", false), "trailing whitespace")
}

func TestDecide_StopOnNonExtension(t *testing.T) {
	assert.Equal(t, DecisionStop, Decide("xyz", "abc", false), "unrelated replacement")
	assert.Equal(t, DecisionStop, Decide("ab", "abc", false), "shrunk below the original prefix")
}

func TestDecide_ContinueOnExtension(t *testing.T) {
	assert.Equal(t, DecisionContinue, Decide("abcd", "abc", false), "appended a character")
	assert.Equal(t, DecisionContinue, Decide("abcdef", "abc", false), "appended several characters")
}

func TestDecide_ContinueFromEmptyCurrentInput(t *testing.T) {
	assert.Equal(t, DecisionContinue, Decide("a", "", false), "first character typed")
}

func TestFilter_PrefixAndDedup(t *testing.T) {
	items := []*types.Item{
		{Word: "foo"},
		{Word: "foobar"},
		{Word: "foobar"},
		{Word: "baz"},
	}
	cfg := types.Default()
	cfg.RemoveDuplicateItems = true
	cfg.LocalityBonus = false

	out := Filter(items, "foo", RankOptions{Config: cfg, Now: time.Now()})
	assert.Equal(t, 2, len(out), "foo and foobar match, duplicate foobar dropped")
}

func TestFilter_ICase(t *testing.T) {
	items := []*types.Item{{Word: "Foobar", ICase: true}}
	cfg := types.Default()
	cfg.LocalityBonus = false
	out := Filter(items, "foo", RankOptions{Config: cfg, Now: time.Now()})
	assert.Equal(t, 1, len(out), "case-insensitive prefix match")
}

func TestFilter_LocalityBonusReorders(t *testing.T) {
	items := []*types.Item{{Word: "alpha"}, {Word: "beta"}}
	cfg := types.Default()
	cfg.LocalityBonus = true
	now := time.Now()
	rec := staticRecency{"beta": now}

	out := Filter(items, "", RankOptions{Config: cfg, Now: now, Recency: rec})
	assert.Equal(t, "beta", out[0].Word, "recently seen item ranked first")
}

type staticRecency map[string]time.Time

func (r staticRecency) LastSeen(_ int, word string) (time.Time, bool) {
	t, ok := r[word]
	return t, ok
}
