// Package customerrors defines errors shared by the storage packages.
package customerrors

import (
	"errors"
)

var (
	// ErrChecksumMismatch is returned when page content does not match
	// the checksum stored in its header.
	ErrChecksumMismatch = errors.New("page checksum mismatch")

	// ErrInvalidPage is returned for page indexes beyond the end of file
	// or buffers of wrong size.
	ErrInvalidPage = errors.New("invalid page")

	// ErrCacheFull is returned when every cached page is pinned and
	// nothing can be evicted.
	ErrCacheFull = errors.New("all cached pages are pinned")

	ErrClosed = errors.New("already closed")

	// ErrNotMapped is returned for page access after the page file failed
	// to be mapped back into memory.
	ErrNotMapped = errors.New("page file is not mapped")

	// ErrDecrypt is returned when an encrypted key fails authentication.
	ErrDecrypt = errors.New("failed to decrypt key")
)
