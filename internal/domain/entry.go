package domain

import "time"

type EntryStatus string

const (
	StatusHold      EntryStatus = "hold"
	StatusConfirmed EntryStatus = "confirmed"
	StatusReleased  EntryStatus = "released"
	StatusExpired   EntryStatus = "expired"
	StatusCancelled EntryStatus = "cancelled"
)

type EntryOrigin string

const (
	OriginDirect   EntryOrigin = "direct"
	OriginHold     EntryOrigin = "hold"
	OriginPlatform EntryOrigin = "platform-import"
)

// ExternalRef identifies a booking on a third-party platform.
type ExternalRef struct {
	Platform  string
	BookingID string
}

// PriceSnapshot is captured at entry creation and persisted verbatim, so
// later price-model changes never alter a quoted price. All amounts are
// centavos; the JSON form is the stored representation.
type PriceSnapshot struct {
	SubtotalCents     int64     `json:"subtotal_cents"`
	DiscountPercent   float64   `json:"discount_percent"`
	DiscountCents     int64     `json:"discount_cents"`
	Season            string    `json:"season"`
	SeasonMultiplier  float64   `json:"season_multiplier"`
	SeasonalAdjCents  int64     `json:"seasonal_adj_cents"`
	TotalCents        int64     `json:"total_cents"`
	DepositPercent    float64   `json:"deposit_percent"`
	DepositCents      int64     `json:"deposit_cents"`
	RemainingCents    int64     `json:"remaining_cents"`
	RemainingDueDate  time.Time `json:"remaining_due_date"`
}

// LedgerEntry is the unit of truth for a claim on beds over a date range.
type LedgerEntry struct {
	ID         string
	RoomID     string
	Beds       []int
	Stay       StayInterval
	Origin     EntryOrigin
	Status     EntryStatus
	FemaleOnly bool
	GuestLabel string
	GuestCount int
	External   *ExternalRef
	ExpiresAt  *time.Time
	Pricing    *PriceSnapshot
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ActiveAt reports whether the entry blocks inventory at the given instant.
// Expired-but-unswept holds are already inactive here; the sweep only makes
// the expiry durable.
func (e *LedgerEntry) ActiveAt(now time.Time) bool {
	switch e.Status {
	case StatusConfirmed:
		return true
	case StatusHold:
		return e.ExpiresAt == nil || e.ExpiresAt.After(now)
	default:
		return false
	}
}

// validTransitions is the hold state machine. Terminal states have no exits.
var validTransitions = map[EntryStatus][]EntryStatus{
	StatusHold:      {StatusConfirmed, StatusReleased, StatusExpired},
	StatusConfirmed: {StatusCancelled},
}

func (e *LedgerEntry) CanTransition(to EntryStatus) bool {
	for _, s := range validTransitions[e.Status] {
		if s == to {
			return true
		}
	}
	return false
}
