package pricing

import (
	"time"

	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/domain"
)

// Season is a pricing policy window. MinNights is enforced when the season
// governs a stay (reject, never silently reprice).
type Season struct {
	Name       string
	Multiplier float64
	MinNights  int
}

var (
	SeasonCarnival = Season{Name: "carnival", Multiplier: 2.0, MinNights: 5}
	SeasonHigh     = Season{Name: "high", Multiplier: 1.5}
	SeasonShoulder = Season{Name: "shoulder", Multiplier: 1.0}
	SeasonLow      = Season{Name: "low", Multiplier: 0.8}
)

type window struct {
	from, to time.Time // half-open, midnight UTC
}

func w(fy int, fm time.Month, fd, ty int, tm time.Month, td int) window {
	return window{
		from: time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC),
		to:   time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC),
	}
}

// Rio carnival windows, Friday through Ash Wednesday.
var carnivalWindows = []window{
	w(2024, time.February, 9, 2024, time.February, 15),
	w(2025, time.February, 28, 2025, time.March, 6),
	w(2026, time.February, 13, 2026, time.February, 19),
	w(2027, time.February, 5, 2027, time.February, 11),
	w(2028, time.February, 25, 2028, time.March, 2),
}

func inCarnival(date time.Time) bool {
	for _, cw := range carnivalWindows {
		if !date.Before(cw.from) && date.Before(cw.to) {
			return true
		}
	}
	return false
}

// seasonOfDate classifies a single night, carnival aside.
func seasonOfDate(date time.Time) Season {
	switch date.Month() {
	case time.December, time.January, time.February, time.March:
		return SeasonHigh
	case time.June, time.July, time.August, time.September:
		return SeasonLow
	default:
		return SeasonShoulder
	}
}

// SeasonFor returns the governing season of a stay: the highest multiplier
// among the seasons its nights touch.
func SeasonFor(stay domain.StayInterval) Season {
	governing := SeasonLow
	first := true
	for _, date := range stay.Dates() {
		s := seasonOfDate(date)
		if inCarnival(date) {
			s = SeasonCarnival
		}
		if first || s.Multiplier > governing.Multiplier {
			governing = s
			first = false
		}
	}
	return governing
}
