package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	ErrRoomNotFound  = errors.New("room not found")
	ErrBedOutOfRange = errors.New("bed index out of range")

	// ErrInvalidRange covers inverted, zero-night and too-far-past ranges.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrInsufficientAvailability: not enough free beds for the request.
	ErrInsufficientAvailability = errors.New("insufficient availability")

	// ErrHoldConflict: the requested beds were claimed by a concurrent
	// writer between the availability read and the commit.
	ErrHoldConflict = errors.New("hold conflict")

	ErrHoldNotFound = errors.New("hold not found")
	ErrHoldExpired  = errors.New("hold expired")

	// ErrMinimumNights: the governing season enforces a nights floor.
	ErrMinimumNights = errors.New("stay below minimum nights for season")

	// ErrExternalConflict: an imported interval would double-book a direct
	// booking. The import is skipped, never auto-applied.
	ErrExternalConflict = errors.New("external booking conflicts with direct booking")

	ErrFeedFetch = errors.New("feed fetch failed")
	ErrFeedParse = errors.New("feed parse failed")
)
