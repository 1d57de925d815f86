package triggerpolicy

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/naripok/complete-coordinator/internal/assert"
	"github.com/naripok/complete-coordinator/internal/types"
)

func baseInput(pre string) Input {
	return Input{
		Pre:    pre,
		Config: types.Default(),
	}
}

func TestShouldTrigger_EmptyOrTrailingWhitespace(t *testing.T) {
	assert.False(t, ShouldTrigger(baseInput("")).Trigger, "empty pre")
	assert.False(t, ShouldTrigger(baseInput("foo ")).Trigger, "trailing space")
	assert.False(t, ShouldTrigger(baseInput("foo\t")).Trigger, "trailing tab")
}

func TestShouldTrigger_AutoTriggerNone(t *testing.T) {
	in := baseInput("foo")
	in.Config.AutoTrigger = types.AutoTriggerNone
	assert.False(t, ShouldTrigger(in).Trigger, "autoTrigger none")
}

func TestShouldTrigger_ProviderPatternWins(t *testing.T) {
	in := baseInput("foo.")
	in.Config.AutoTrigger = types.AutoTriggerNone
	in.ProviderTriggers = []string{`\.$`}
	dec := ShouldTrigger(in)
	assert.True(t, dec.Trigger, "trigger pattern should fire even with autoTrigger none")
	assert.Equal(t, "", dec.Input, "pattern trigger leaves Input empty")
}

func TestShouldTrigger_AlreadyActivatedBlocksWordRule(t *testing.T) {
	in := baseInput("foo")
	in.IsActivated = true
	assert.False(t, ShouldTrigger(in).Trigger, "already-active session blocks the word-char rule")
}

func TestShouldTrigger_WordRuleRespectsMinLength(t *testing.T) {
	in := baseInput("fo")
	in.Config.MinTriggerInputLength = 3
	assert.False(t, ShouldTrigger(in).Trigger, "input shorter than MinTriggerInputLength")

	in.Config.MinTriggerInputLength = 2
	dec := ShouldTrigger(in)
	assert.True(t, dec.Trigger, "input meeting MinTriggerInputLength")
	assert.Equal(t, "fo", dec.Input, "computed input is the longest word suffix")
}

func TestShouldTrigger_NonWordLastCharBlocks(t *testing.T) {
	in := baseInput("foo(")
	assert.False(t, ShouldTrigger(in).Trigger, "last char not a word char and not above ascii")
}

func TestLongestWordSuffix(t *testing.T) {
	in := baseInput("x = some_word")
	dec := ShouldTrigger(in)
	assert.True(t, dec.Trigger, "should trigger on trailing identifier")
	assert.Equal(t, "some_word", dec.Input, "suffix stops at the space")
}

// Any pre accepted by the implicit word rule must end in a rune the
// word class accepts, and the computed Input must be a suffix of pre.
func TestShouldTrigger_WordRuleInputIsSuffixOfPre(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		pre := rapid.StringMatching(`[a-zA-Z0-9_]{1,12}`).Draw(rt, "pre")
		in := baseInput(pre)
		in.Config.MinTriggerInputLength = 1
		dec := ShouldTrigger(in)
		assert.True(t, dec.Trigger, "pure word text always triggers")
		if len(pre) < len(dec.Input) {
			t.Fatalf("Input %q longer than Pre %q", dec.Input, pre)
		}
		if pre[len(pre)-len(dec.Input):] != dec.Input {
			t.Fatalf("Input %q is not a suffix of Pre %q", dec.Input, pre)
		}
	})
}

func TestEndsInWhitespace(t *testing.T) {
	assert.True(t, EndsInWhitespace("foo "), "trailing space")
	assert.True(t, EndsInWhitespace("foo\t"), "trailing tab")
	assert.False(t, EndsInWhitespace("foo"), "no trailing whitespace")
	assert.False(t, EndsInWhitespace(""), "empty string")
}
