package domain

import "time"

// CalendarFeed is a configured external calendar source mapped to one room.
type CalendarFeed struct {
	ID           string
	RoomID       string
	Platform     string
	URL          string
	IsActive     bool
	LastSyncedAt *time.Time
	LastError    string
}

type EventStatus string

const (
	EventConfirmed EventStatus = "confirmed"
	EventBlocked   EventStatus = "blocked"
	EventCancelled EventStatus = "cancelled"
)

// ImportedEvent is one normalized event out of a parsed calendar document.
// It is a candidate only; the conflict resolver decides whether it reaches
// the ledger.
type ImportedEvent struct {
	ExternalID  string
	GuestLabel  string
	GuestCount  int
	Platform    string
	Status      EventStatus
	Stay        StayInterval
	Description string
}
