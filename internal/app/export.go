package app

import (
	"context"

	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/clock"
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/domain"
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/ical"
)

// exportHorizonDays bounds how far ahead the exported calendar looks.
const exportHorizonDays = 365

// ExportService renders a room's occupied ranges as a calendar document for
// OTA platforms to consume.
type ExportService struct {
	catalog *domain.Catalog
	repo    domain.LedgerRepository
	clk     clock.Clock
}

func NewExportService(cat *domain.Catalog, r domain.LedgerRepository, clk clock.Clock) *ExportService {
	return &ExportService{catalog: cat, repo: r, clk: clk}
}

func (s *ExportService) RoomCalendar(ctx context.Context, roomID string) (string, error) {
	room, err := s.catalog.Get(roomID)
	if err != nil {
		return "", err
	}
	now := s.clk.Now()
	horizon := domain.StayInterval{
		CheckIn:  domain.DateOf(now),
		CheckOut: domain.DateOf(now).AddDate(0, 0, exportHorizonDays),
	}
	entries, err := s.repo.ListOverlapping(ctx, roomID, horizon)
	if err != nil {
		return "", err
	}
	blocking := entries[:0]
	for i := range entries {
		if entries[i].ActiveAt(now) {
			blocking = append(blocking, entries[i])
		}
	}
	return ical.Export(room, blocking, now), nil
}
