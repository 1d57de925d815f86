// Package triggerpolicy decides whether a given prefix should start a
// completion session.
package triggerpolicy

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/naripok/complete-coordinator/internal/types"
)

// WordClass reports whether r counts as a word character for the
// current buffer. The coordinator is handed one of these per
// filetype/buffer rather than hard-coding a fixed class, since the
// trigger rule uses the buffer's own word-character definition.
type WordClass func(r rune) bool

// DefaultWordClass treats Unicode letters and digits and underscore as
// word characters — the common default most filetypes share.
func DefaultWordClass(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Input is everything ShouldTrigger needs to decide.
type Input struct {
	Pre              string
	Filetype         string
	Config           types.Config
	IsActivated      bool
	ProviderTriggers []string // patterns from every provider's Triggers(filetype), pre-flattened
	WordClass        WordClass
}

// Decision is the result: whether to trigger, and if so the computed
// input prefix (only set for the word-character trigger path; empty
// for the trigger-pattern path, which doesn't compute an input).
type Decision struct {
	Trigger bool
	Input   string
}

// ShouldTrigger evaluates the trigger rules in order.
func ShouldTrigger(in Input) Decision {
	pre := in.Pre

	// 1. empty or ends in whitespace => false.
	if pre == "" || isTrailingWhitespace(pre) {
		return Decision{}
	}

	// 2. autoTrigger == none => false.
	if in.Config.AutoTrigger == types.AutoTriggerNone {
		return Decision{}
	}

	// 3. any source trigger pattern matches pre => true.
	for _, pattern := range in.ProviderTriggers {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		if re.MatchString(pre) {
			return Decision{Trigger: true}
		}
	}

	// 4. autoTrigger != always, or a session already active => false.
	if in.Config.AutoTrigger != types.AutoTriggerAlways || in.IsActivated {
		return Decision{}
	}

	// 5. the implicit "typing a word" rule.
	wordClass := in.WordClass
	if wordClass == nil {
		wordClass = DefaultWordClass
	}
	runes := []rune(pre)
	last := runes[len(runes)-1]
	if !(wordClass(last) || last > 255) {
		return Decision{}
	}

	input := longestWordSuffix(runes, wordClass)
	if len([]rune(input)) < in.Config.MinTriggerInputLength {
		return Decision{}
	}
	return Decision{Trigger: true, Input: input}
}

func isTrailingWhitespace(s string) bool {
	if s == "" {
		return false
	}
	r := []rune(s)
	return unicode.IsSpace(r[len(r)-1])
}

func longestWordSuffix(runes []rune, wordClass WordClass) string {
	i := len(runes)
	for i > 0 {
		r := runes[i-1]
		if !(wordClass(r) || r > 255) {
			break
		}
		i--
	}
	return string(runes[i:])
}

// EndsInWhitespace reports whether s ends in a whitespace rune, the
// same check rule 1 applies to pre.
func EndsInWhitespace(s string) bool {
	return isTrailingWhitespace(s) || strings.TrimRight(s, " \t") != s
}
