package types

import "errors"

// ErrProvider names a provider failure; ErrEditorRPC names an editor
// RPC failure.
var (
	ErrProvider  = errors.New("provider error")
	ErrEditorRPC = errors.New("editor rpc error")
)

// ErrBlacklisted names the case where the live input matches one of
// option.Blacklist. GetResumeInput reports that case with ok=false and
// does not return this error.
var ErrBlacklisted = errors.New("input is blacklisted")
