// Package pricing is the pure pricing engine: no I/O, no clocks, no state.
// Identical inputs always yield identical breakdowns, which is what makes the
// persisted snapshot reproducible.
package pricing

import (
	"math"

	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/domain"
)

// Line is one room selection inside a quote request.
type Line struct {
	Room domain.Room
	Beds int
}

const remainingDueDaysBefore = 7

// groupDiscountPercent is tiered on the total bed count across rooms.
func groupDiscountPercent(totalBeds int) float64 {
	switch {
	case totalBeds >= 26:
		return 0.20
	case totalBeds >= 16:
		return 0.15
	case totalBeds >= 7:
		return 0.10
	default:
		return 0
	}
}

func depositPercent(totalBeds int) float64 {
	if totalBeds >= 15 {
		return 0.50
	}
	return 0.30
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}

// Quote computes the full price breakdown for a stay. It rejects stays below
// the governing season's nights floor with domain.ErrMinimumNights.
func Quote(stay domain.StayInterval, lines []Line) (domain.PriceSnapshot, error) {
	nights := stay.Nights()
	if nights <= 0 {
		return domain.PriceSnapshot{}, domain.ErrInvalidRange
	}

	totalBeds := 0
	var perNight int64
	for _, l := range lines {
		if l.Beds <= 0 || l.Beds > l.Room.Capacity {
			return domain.PriceSnapshot{}, domain.ErrBedOutOfRange
		}
		totalBeds += l.Beds
		perNight += l.Room.BasePriceCents * int64(l.Beds)
	}
	if totalBeds == 0 {
		return domain.PriceSnapshot{}, domain.ErrInsufficientAvailability
	}

	season := SeasonFor(stay)
	if nights < season.MinNights {
		return domain.PriceSnapshot{}, domain.ErrMinimumNights
	}

	subtotal := perNight * int64(nights)
	discPct := groupDiscountPercent(totalBeds)
	discount := roundCents(float64(subtotal) * discPct)
	discounted := subtotal - discount
	total := roundCents(float64(discounted) * season.Multiplier)
	depPct := depositPercent(totalBeds)
	deposit := roundCents(float64(total) * depPct)

	return domain.PriceSnapshot{
		SubtotalCents:    subtotal,
		DiscountPercent:  discPct,
		DiscountCents:    discount,
		Season:           season.Name,
		SeasonMultiplier: season.Multiplier,
		SeasonalAdjCents: total - discounted,
		TotalCents:       total,
		DepositPercent:   depPct,
		DepositCents:     deposit,
		RemainingCents:   total - deposit,
		RemainingDueDate: stay.CheckIn.AddDate(0, 0, -remainingDueDaysBefore),
	}, nil
}
