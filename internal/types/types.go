// Package types holds the data model shared across the completion
// coordinator: the shapes providers and the editor bridge exchange,
// and the configuration surface a user can set.
package types

import "time"

// CompleteOption describes one in-flight completion attempt. It is
// immutable once a Session starts.
type CompleteOption struct {
	Bufnr      int
	Linenr     int // 1-indexed line number
	Col        int // byte offset where Input begins (0-indexed)
	Colnr      int // cursor column at the moment the session started
	Line       string
	Filetype   string
	Input      string // initial prefix
	TriggerCharacter string
	Blacklist  []string
	Source     string // optional explicit source name
	BufferURI  string // editor's buffer URI, checked by IsCommandLineBuffer
}

// commandLineURISuffix is the URL-encoded "[Command Line]" sentinel
// Neovim's cmdwin buffer URI ends with. A session must never be
// started against such a buffer.
const commandLineURISuffix = "%5BCommand%20Line%5D"

// IsCommandLineBuffer reports whether uri names the command-line
// pseudo-buffer, which the coordinator must never pop up against.
func IsCommandLineBuffer(uri string) bool {
	return len(uri) >= len(commandLineURISuffix) && uri[len(uri)-len(commandLineURISuffix):] == commandLineURISuffix
}

// InsertChange is the editor's report of an insert-mode text change.
type InsertChange struct {
	Bufnr       int    `json:"buf"`
	Linenr      int    `json:"lnum"`
	Col         int    `json:"col"`
	Pre         string `json:"pre"` // text from line start to cursor
	ChangedTick int64  `json:"changedtick"`
}

// Item is a single completion candidate as produced by a provider.
type Item struct {
	Word          string         `json:"word"` // inserted text
	Abbr          string         `json:"abbr"` // display label
	Menu          string         `json:"menu"`
	Kind          string         `json:"kind"`
	Info          string         `json:"info"`
	Dup           bool           `json:"dup"`
	Empty         bool           `json:"empty"`
	ICase         bool           `json:"icase"`
	Preselect     bool           `json:"preselect"`
	UserData      any            `json:"user_data"`
	Documentation *Documentation `json:"-"`
}

// Documentation is the resolved doc payload for an Item, produced by
// Provider.Resolve.
type Documentation struct {
	Filetype string
	Content  string
}

// AutoTrigger enumerates the auto-trigger policy.
type AutoTrigger string

const (
	AutoTriggerAlways  AutoTrigger = "always"
	AutoTriggerTrigger AutoTrigger = "trigger"
	AutoTriggerNone    AutoTrigger = "none"
)

// SortMethod enumerates how locally re-filtered items are ordered.
type SortMethod string

const (
	SortMethodAlphabetical SortMethod = "alphabetical"
	SortMethodLength       SortMethod = "length"
	SortMethodNone         SortMethod = "none"
)

// Config is the recognized option surface.
type Config struct {
	AutoTrigger                       AutoTrigger   `yaml:"autoTrigger"`
	MinTriggerInputLength             int           `yaml:"minTriggerInputLength"`
	AcceptSuggestionOnCommitCharacter bool          `yaml:"acceptSuggestionOnCommitCharacter"`
	NoSelect                          bool          `yaml:"noselect"`
	NumberSelect                      bool          `yaml:"numberSelect"`
	KeepCompleteopt                   bool          `yaml:"keepCompleteopt"`
	EnablePreview                     bool          `yaml:"enablePreview"`
	EnablePreselect                   bool          `yaml:"enablePreselect"`
	LabelMaxLength                    int           `yaml:"labelMaxLength"`
	MaxItemCount                      int           `yaml:"maxItemCount"`
	DisableKind                       bool          `yaml:"disableKind"`
	DisableMenu                       bool          `yaml:"disableMenu"`
	DisableMenuShortcut               bool          `yaml:"disableMenuShortcut"`
	RemoveDuplicateItems              bool          `yaml:"removeDuplicateItems"`
	LocalityBonus                     bool          `yaml:"localityBonus"`
	DefaultSortMethod                 SortMethod    `yaml:"defaultSortMethod"`
	TriggerAfterInsertEnter           bool          `yaml:"triggerAfterInsertEnter"`
	Timeout                           time.Duration `yaml:"timeout"`
	HighPrioritySourceLimit           int           `yaml:"highPrioritySourceLimit"`
	LowPrioritySourceLimit            int           `yaml:"lowPrioritySourceLimit"`
	AsciiCharactersOnly               bool          `yaml:"asciiCharactersOnly"`
	SnippetIndicator                  string        `yaml:"snippetIndicator"`
	FixInsertedWord                   bool          `yaml:"fixInsertedWord"`
	PreviewIsKeyword                  string        `yaml:"previewIsKeyword"`

	// PostCommitWaitMs controls how long onCompleteDone waits to
	// swallow a late TextChangedI before verifying the commit stuck.
	PostCommitWaitMs int `yaml:"postCommitWaitMs"`

	// SelectionDebounceMs controls the MenuPopupChanged debounce before
	// resolving and showing documentation for the highlighted item.
	SelectionDebounceMs int `yaml:"selectionDebounceMs"`
}

// Default returns the configuration a fresh session starts with.
func Default() Config {
	return Config{
		AutoTrigger:                       AutoTriggerAlways,
		MinTriggerInputLength:             1,
		AcceptSuggestionOnCommitCharacter: false,
		NoSelect:                          false,
		NumberSelect:                      false,
		KeepCompleteopt:                   false,
		EnablePreview:                     false,
		EnablePreselect:                   false,
		LabelMaxLength:                    60,
		MaxItemCount:                      50,
		DisableKind:                       false,
		DisableMenu:                       false,
		DisableMenuShortcut:               false,
		RemoveDuplicateItems:              false,
		LocalityBonus:                     true,
		DefaultSortMethod:                 SortMethodNone,
		TriggerAfterInsertEnter:           false,
		Timeout:                           500 * time.Millisecond,
		HighPrioritySourceLimit:           0,
		LowPrioritySourceLimit:            0,
		AsciiCharactersOnly:               false,
		SnippetIndicator:                  "~",
		FixInsertedWord:                   true,
		PreviewIsKeyword:                  `^[\w-\s.,\t]+$`,
		PostCommitWaitMs:                  50,
		SelectionDebounceMs:               100,
	}
}

// LastInsert records the most recent InsertCharPre event.
type LastInsert struct {
	Character string
	Timestamp time.Time
}

// Fresh reports whether this insert happened within the last 500ms of
// now.
func (li *LastInsert) Fresh(now time.Time) bool {
	if li == nil {
		return false
	}
	return now.Sub(li.Timestamp) <= 500*time.Millisecond
}
