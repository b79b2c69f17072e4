package app

import (
	"time"

	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/domain"
)

// swingConversionLead is how far before check-in a swing-room date may flip
// from female-only to mixed.
const swingConversionLead = 48 * time.Hour

// SwingConvertedAt decides, purely from the clock and the active entries of
// the swing room, whether one stay date is mixed-eligible. No flag is stored
// anywhere; the ledger stays the single source of truth.
func SwingConvertedAt(now, date time.Time, active []domain.LedgerEntry) bool {
	if now.Before(date.Add(-swingConversionLead)) {
		return false
	}
	for i := range active {
		if active[i].FemaleOnly && active[i].Stay.Covers(date) {
			return false
		}
	}
	return true
}

// swingEligibleForMixed requires every night of the stay to be converted.
func swingEligibleForMixed(now time.Time, stay domain.StayInterval, active []domain.LedgerEntry) bool {
	for _, date := range stay.Dates() {
		if !SwingConvertedAt(now, date, active) {
			return false
		}
	}
	return true
}
