package pipeline

import (
	"errors"

	"github.com/dangattringer/rust-rag/internal/crate"
)

// State is a stage of a download run.
type State string

const (
	StateIdle       State = "idle"
	StateResolving  State = "resolving"
	StateFetching   State = "fetching"
	StateExtracting State = "extracting"

	StateSuccess          State = "success"
	StateNotFound         State = "not-found"
	StateTransientFailure State = "transient-failure"
	StateCorruptArchive   State = "corrupt-archive"
	StateFailed           State = "failed"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	switch s {
	case StateSuccess, StateNotFound, StateTransientFailure, StateCorruptArchive, StateFailed:
		return true
	}
	return false
}

// StateFor maps the outcome of a run to its terminal state.
func StateFor(err error) State {
	switch {
	case err == nil:
		return StateSuccess
	case errors.Is(err, crate.ErrNotFound):
		return StateNotFound
	case errors.Is(err, crate.ErrTransientNetwork):
		return StateTransientFailure
	case errors.Is(err, crate.ErrCorruptArchive):
		return StateCorruptArchive
	default:
		return StateFailed
	}
}
