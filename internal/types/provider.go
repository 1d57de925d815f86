package types

import (
	"context"
	"time"
)

// Provider is the uniform interface the coordinator consumes every
// source provider (LSP, snippets, words, paths, ...) through.
type Provider interface {
	Name() string

	// ShouldComplete reports whether this provider wants to take part
	// in a session started for option.
	ShouldComplete(option *CompleteOption) bool

	// Triggers returns the set of prefix patterns (regexes) that force
	// a trigger for the given filetype, matched against Pre.
	Triggers(filetype string) []string

	// DoComplete runs the provider's query. It must observe ctx
	// cancellation and stop emitting once it fires.
	DoComplete(ctx context.Context, option *CompleteOption, recency Recency) (*ProviderResult, error)

	// ShouldCommit reports whether ch is a commit character for item.
	ShouldCommit(item *Item, ch string) bool

	// Resolve fills in an item's Documentation, if any.
	Resolve(ctx context.Context, item *Item) (*Item, error)

	// OnCompleteDone is fired once an item from this provider was
	// accepted.
	OnCompleteDone(ctx context.Context, item *Item, option *CompleteOption) error

	// Priority orders providers; higher runs/ranks first.
	Priority() int
}

// ProviderResult is what DoComplete returns: a result set plus whether
// it is a partial view that must be re-queried on prefix extension.
type ProviderResult struct {
	Items      []*Item
	Incomplete bool
}

// Recency is the read side of the (buffer, word) -> last-seen-ms map,
// handed to providers so they can boost recently-used words.
type Recency interface {
	LastSeen(bufnr int, word string) (time.Time, bool)
}
