// Package filterengine implements the pure parts of filter/resume:
// computing the live resume input from raw bytes, deciding whether a
// prefix change is a no-op/stop/continue, and locally re-filtering a
// cached result set against a new prefix.
package filterengine

import (
	"sort"
	"strings"
	"time"
	"unicode"

	diffmatchpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/naripok/complete-coordinator/internal/types"
)

var dmp = diffmatchpatch.New()

// GetResumeInput re-reads pretext as UTF-8 bytes and returns the bytes
// from option.Col onward, decoded as UTF-8. Returns ok=false if
// pretext is shorter than option.Col, or if the resulting string is
// blacklisted.
//
// This is a pure function of bytes: for any pretext whose byte length
// is >= option.Col it returns a valid UTF-8 string, otherwise it
// returns ok=false.
func GetResumeInput(pretext string, option *types.CompleteOption) (string, bool) {
	b := []byte(pretext)
	if len(b) < option.Col {
		return "", false
	}
	search := strings.ToValidUTF8(string(b[option.Col:]), "�")
	for _, blocked := range option.Blacklist {
		if search == blocked {
			return "", false
		}
	}
	return search, true
}

// Decision is the outcome of evaluating a resumed prefix against the
// session's current input.
type Decision int

const (
	// DecisionNoOp: search equals the current input and no restart was
	// forced; leave everything as-is.
	DecisionNoOp Decision = iota
	// DecisionStop: search is empty, ends in whitespace, or no longer
	// starts with the session's original input prefix.
	DecisionStop
	// DecisionContinue: search is a valid extension; re-filter or
	// re-query with it.
	DecisionContinue
)

// Decide evaluates a resumed prefix against the session's input.
func Decide(search, currentInput string, force bool) Decision {
	if search == currentInput && !force {
		return DecisionNoOp
	}
	if search == "" || endsInWhitespace(search) || !isExtension(currentInput, search) {
		return DecisionStop
	}
	return DecisionContinue
}

// isExtension reports whether search was reached from currentInput by
// appending characters only, computed via a byte-level diff. A pure
// append diffs to exactly one Equal spanning all of currentInput
// followed by zero or more trailing Inserts, so the result is the same
// as strings.HasPrefix(search, currentInput); an input that differs
// only by case is not treated as an extension.
func isExtension(currentInput, search string) bool {
	if currentInput == "" {
		return true
	}
	diffs := dmp.DiffMain(currentInput, search, false)
	for i, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			if i != 0 {
				return false
			}
		case diffmatchpatch.DiffInsert:
			if i == 0 {
				return false
			}
		case diffmatchpatch.DiffDelete:
			return false
		}
	}
	return len(diffs) > 0 && diffs[0].Type == diffmatchpatch.DiffEqual && diffs[0].Text == currentInput
}

func endsInWhitespace(s string) bool {
	r := []rune(s)
	return len(r) > 0 && unicode.IsSpace(r[len(r)-1])
}

// RankOptions carries what Filter needs to score and order the locally
// re-filtered set.
type RankOptions struct {
	Bufnr          int
	Config         types.Config
	Recency        types.Recency
	Now            time.Time
	RemoveDupes    bool
}

// Filter locally re-filters cached items against search and applies
// the configured ranking. It never contacts a provider; callers use it
// once no provider is still reporting an incomplete result set.
func Filter(items []*types.Item, search string, opts RankOptions) []*types.Item {
	matched := make([]*types.Item, 0, len(items))
	seen := make(map[string]bool, len(items))

	for _, it := range items {
		if !matches(it, search) {
			continue
		}
		if opts.RemoveDupes || opts.Config.RemoveDuplicateItems {
			if seen[it.Word] {
				continue
			}
			seen[it.Word] = true
		}
		matched = append(matched, it)
	}

	rank(matched, opts)
	return matched
}

func matches(it *types.Item, search string) bool {
	if search == "" {
		return true
	}
	word := it.Word
	if it.ICase {
		return strings.HasPrefix(strings.ToLower(word), strings.ToLower(search))
	}
	return strings.HasPrefix(word, search)
}

// rank applies a stable sort combining the configured sort method with
// the optional locality/recency bonus. Provider-assigned order is the
// tiebreak baseline (sort.SliceStable preserves it).
func rank(items []*types.Item, opts RankOptions) {
	score := func(it *types.Item) float64 {
		s := 0.0
		if opts.Config.LocalityBonus && opts.Recency != nil {
			if seenAt, ok := opts.Recency.LastSeen(opts.Bufnr, it.Word); ok {
				age := opts.Now.Sub(seenAt)
				if age < 0 {
					age = 0
				}
				// Decays from 1.0 at age=0 toward 0 over five minutes.
				s += max0(1.0 - age.Minutes()/5.0)
			}
		}
		return s
	}

	switch opts.Config.DefaultSortMethod {
	case types.SortMethodAlphabetical:
		sort.SliceStable(items, func(i, j int) bool {
			si, sj := score(items[i]), score(items[j])
			if si != sj {
				return si > sj
			}
			return items[i].Word < items[j].Word
		})
	case types.SortMethodLength:
		sort.SliceStable(items, func(i, j int) bool {
			si, sj := score(items[i]), score(items[j])
			if si != sj {
				return si > sj
			}
			return len(items[i].Word) < len(items[j].Word)
		})
	default: // SortMethodNone: only apply the locality/recency bonus.
		if !opts.Config.LocalityBonus || opts.Recency == nil {
			return
		}
		sort.SliceStable(items, func(i, j int) bool {
			return score(items[i]) > score(items[j])
		})
	}
}

func max0(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
