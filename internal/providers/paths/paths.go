// Package paths implements a filesystem-path Provider: candidates are
// directory entries under whatever prefix the user just typed after a
// path separator, the second stock source editor integrations ship.
package paths

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/naripok/complete-coordinator/internal/types"
)

var pathPrefixRe = regexp.MustCompile(`(?:^|[\s("'` + "`" + `])((?:\.{1,2}/|/|~/)[^\s"'` + "`" + `)]*)$`)

// Provider lists directory entries matching a path fragment at the
// cursor.
type Provider struct {
	// Root resolves a relative fragment's base directory; defaults to
	// os.Getwd when nil.
	Root func() (string, error)
}

// New creates a paths Provider.
func New() *Provider { return &Provider{} }

func (p *Provider) Name() string { return "paths" }

func (p *Provider) ShouldComplete(option *types.CompleteOption) bool {
	return pathFragment(option.Line[:min(option.Colnr, len(option.Line))]) != ""
}

func (p *Provider) Triggers(string) []string { return []string{"/"} }

func (p *Provider) DoComplete(ctx context.Context, option *types.CompleteOption, recency types.Recency) (*types.ProviderResult, error) {
	frag := pathFragment(option.Line[:min(option.Colnr, len(option.Line))])
	if frag == "" {
		return &types.ProviderResult{}, nil
	}

	dir, prefix := splitFragment(frag)
	root, err := p.root()
	if err != nil {
		return nil, err
	}
	abs := dir
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, dir)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return &types.ProviderResult{}, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	items := make([]*types.Item, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		word := name
		if e.IsDir() {
			word += "/"
		}
		items = append(items, &types.Item{
			Word: word,
			Abbr: word,
			Menu: "[Path]",
			Kind: "f",
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

func (p *Provider) root() (string, error) {
	if p.Root != nil {
		return p.Root()
	}
	return os.Getwd()
}

// pathFragment extracts the trailing path-looking fragment of pre, or
// "" if none.
func pathFragment(pre string) string {
	m := pathPrefixRe.FindStringSubmatch(pre)
	if m == nil {
		return ""
	}
	return m[1]
}

func splitFragment(frag string) (dir, prefix string) {
	if strings.HasSuffix(frag, "/") {
		return frag, ""
	}
	return filepath.Dir(frag), filepath.Base(frag)
}
