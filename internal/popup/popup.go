// Package popup implements the Popup Driver: a
// stateless transform from (col, items, config) to what the editor
// bridge's popup-show RPC should receive.
package popup

import (
	"regexp"
	"strconv"

	"github.com/naripok/complete-coordinator/internal/types"
)

var menuShortcutRe = regexp.MustCompile(`\s*\[[^\]]*\]\s*$`)

// Plan is the result of Build: the rows to send to the editor plus the
// preselect index.
type Plan struct {
	Col       int
	Items     []*types.Item
	Preselect int
	// NumberKeys maps digit '1'..'9' to the index of the item it
	// selects, non-empty only when NumberSelect applied.
	NumberKeys map[rune]int
}

// Build drops items that fail config filters, applies number-select
// prefixing, label trimming, and menu/kind suppression, then computes
// the preselect index. Orderings and tie-breaks are the provider's
// responsibility — Build never reorders items.
func Build(col int, items []*types.Item, liveInput string, cfg types.Config) Plan {
	filtered := make([]*types.Item, 0, len(items))
	for _, it := range items {
		if it.Word == "" && !it.Empty {
			continue
		}
		filtered = append(filtered, it)
	}

	if cfg.MaxItemCount > 0 && len(filtered) > cfg.MaxItemCount {
		filtered = filtered[:cfg.MaxItemCount]
	}

	numberKeys := map[rune]int{}
	numberSelect := cfg.NumberSelect && !startsWithDigit(liveInput)

	out := make([]*types.Item, len(filtered))
	for i, src := range filtered {
		it := *src // copy: Build must not mutate the provider's items

		if numberSelect && i < 9 {
			digit := rune('1' + i)
			it.Abbr = "<" + string(digit) + "> " + it.Abbr
			numberKeys[digit] = i
		}

		if cfg.LabelMaxLength > 0 && len([]rune(it.Abbr)) > cfg.LabelMaxLength {
			it.Abbr = string([]rune(it.Abbr)[:cfg.LabelMaxLength])
		}

		if cfg.DisableMenuShortcut {
			it.Menu = menuShortcutRe.ReplaceAllString(it.Menu, "")
		}
		if cfg.DisableKind {
			it.Kind = ""
		}
		if cfg.DisableMenu {
			it.Menu = ""
		}

		out[i] = &it
	}

	preselect := -1
	if cfg.EnablePreselect {
		for i, it := range out {
			if it.Preselect {
				preselect = i
				break
			}
		}
	}

	return Plan{Col: col, Items: out, Preselect: preselect, NumberKeys: numberKeys}
}

func startsWithDigit(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.Atoi(s[:1])
	return err == nil
}

// TrimLabel trims s to maxLen runes; exported for callers that need
// the same rule outside of Build (e.g. tests asserting on a single
// item).
func TrimLabel(s string, maxLen int) string {
	if maxLen <= 0 || len([]rune(s)) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}
