package app

import (
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/domain"
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/pricing"
)

// QuoteService resolves room selections against the catalog and delegates to
// the pure pricing engine.
type QuoteService struct {
	catalog *domain.Catalog
}

func NewQuoteService(cat *domain.Catalog) *QuoteService {
	return &QuoteService{catalog: cat}
}

type RoomSelection struct {
	RoomID string
	Beds   int
}

func (s *QuoteService) Quote(stay domain.StayInterval, selections []RoomSelection) (domain.PriceSnapshot, error) {
	lines := make([]pricing.Line, 0, len(selections))
	for _, sel := range selections {
		room, err := s.catalog.Get(sel.RoomID)
		if err != nil {
			return domain.PriceSnapshot{}, err
		}
		lines = append(lines, pricing.Line{Room: room, Beds: sel.Beds})
	}
	return pricing.Quote(stay, lines)
}
