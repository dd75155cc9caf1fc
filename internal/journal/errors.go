package journal

import "errors"

// Journal errors.
var (
	// ErrUnknownEntry is returned when no entry has the given local ID.
	ErrUnknownEntry = errors.New("unknown journal entry")

	// ErrEntryPending is returned when an entry is still being persisted.
	ErrEntryPending = errors.New("journal entry is pending")

	// ErrNotFailed is returned by Retry and Discard for entries that did not fail.
	ErrNotFailed = errors.New("journal entry has not failed")
)
