package crate

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound classifies missing crates, versions and documentation.
	ErrNotFound = errors.New("not found")

	// ErrTransientNetwork classifies transport failures and unexpected HTTP statuses.
	ErrTransientNetwork = errors.New("transient network failure")

	// ErrCorruptArchive classifies archives that cannot be opened or read.
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrInvalidCrate is returned for empty or malformed names and versions.
	ErrInvalidCrate = errors.New("invalid crate")

	// ErrNoVersion is the cause of a NotFoundError raised for a metadata page
	// that was served but names no version.
	ErrNoVersion = errors.New("no version on metadata page")
)

type (
	// NotFoundError reports that docs.rs has no version or no documentation
	// for a crate. It matches ErrNotFound with errors.Is; Err, when set,
	// tells an unparsable page (ErrNoVersion) from an HTTP 404.
	NotFoundError struct {
		Name    string
		Version string
		URL     string
		Reason  string
		Err     error
	}

	// TransientNetworkError reports a request that failed in transit or came
	// back with a status other than 2xx or 404. StatusCode is 0 when no
	// response was received. It matches ErrTransientNetwork with errors.Is
	// and unwraps to the underlying cause.
	TransientNetworkError struct {
		Name       string
		Version    string
		URL        string
		StatusCode int
		Err        error
	}

	// CorruptArchiveError reports an archive that cannot be opened or an entry
	// that cannot be read. Entry is empty when the archive itself is at fault.
	CorruptArchiveError struct {
		Archive string
		Entry   string
		Err     error
	}

	// CleanupWarning reports a temp file or directory that could not be removed.
	// Cleanup warnings are logged, never returned as the outcome of a run.
	CleanupWarning struct {
		Path string
		Err  error
	}
)

func (e *NotFoundError) Error() string {
	msg := e.Reason
	if msg == "" {
		msg = "not found"
	}
	if e.Version != "" {
		msg = fmt.Sprintf("%s for %s@%s", msg, e.Name, e.Version)
	} else {
		msg = fmt.Sprintf("%s for %s", msg, e.Name)
	}
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	return msg
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Unwrap returns the underlying cause, if any.
func (e *NotFoundError) Unwrap() error { return e.Err }

func (e *TransientNetworkError) Error() string {
	id := e.Name
	if e.Version != "" {
		id += "@" + e.Version
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("request for %s failed with status %d (%s)", id, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("request for %s failed (%s): %v", id, e.URL, e.Err)
}

// Is reports whether target is ErrTransientNetwork.
func (e *TransientNetworkError) Is(target error) bool { return target == ErrTransientNetwork }

// Unwrap returns the underlying cause.
func (e *TransientNetworkError) Unwrap() error { return e.Err }

func (e *CorruptArchiveError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("corrupt archive %s: entry %q: %v", e.Archive, e.Entry, e.Err)
	}
	return fmt.Sprintf("corrupt archive %s: %v", e.Archive, e.Err)
}

// Is reports whether target is ErrCorruptArchive.
func (e *CorruptArchiveError) Is(target error) bool { return target == ErrCorruptArchive }

// Unwrap returns the underlying cause.
func (e *CorruptArchiveError) Unwrap() error { return e.Err }

func (e *CleanupWarning) Error() string {
	return fmt.Sprintf("cleanup of %s failed: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *CleanupWarning) Unwrap() error { return e.Err }
