// Package words implements a keyword-scraping Provider: candidates are
// the identifiers already present in the buffer, the simplest possible
// source and the one every editor integration ships by default.
package words

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/naripok/complete-coordinator/internal/types"
)

var wordRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// BufferText supplies the text words scans. A real integration backs
// this with the editor's buffer lines; tests can return a fixed
// string.
type BufferText func(bufnr int) (string, error)

// Provider scrapes identifiers out of the current buffer's text.
type Provider struct {
	text BufferText
}

// New creates a words Provider reading buffer text through text.
func New(text BufferText) *Provider {
	return &Provider{text: text}
}

func (p *Provider) Name() string { return "words" }

func (p *Provider) ShouldComplete(option *types.CompleteOption) bool {
	return len(option.Input) >= 1
}

func (p *Provider) Triggers(string) []string { return nil }

func (p *Provider) DoComplete(ctx context.Context, option *types.CompleteOption, recency types.Recency) (*types.ProviderResult, error) {
	text, err := p.text(option.Bufnr)
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	words := uniqueSorted(wordRe.FindAllString(text, -1))

	items := make([]*types.Item, 0, len(words))
	for _, w := range words {
		if w == option.Input || !strings.HasPrefix(w, option.Input) {
			continue
		}
		items = append(items, &types.Item{
			Word: w,
			Abbr: w,
			Menu: "[W]",
			Kind: "w",
			Dup:  true,
		})
	}
	return &types.ProviderResult{Items: items}, nil
}

func (p *Provider) ShouldCommit(*types.Item, string) bool { return false }

func (p *Provider) Resolve(ctx context.Context, item *types.Item) (*types.Item, error) {
	return item, nil
}

func (p *Provider) OnCompleteDone(context.Context, *types.Item, *types.CompleteOption) error {
	return nil
}

func (p *Provider) Priority() int { return 0 }

func uniqueSorted(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
