package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/adapters/observability"
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/clock"
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/domain"
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/ical"
)

// FeedReport accumulates per-feed sync counters. Event and feed failures are
// recorded here instead of aborting the batch.
type FeedReport struct {
	FeedID    string   `json:"feed_id"`
	RoomID    string   `json:"room_id"`
	Platform  string   `json:"platform"`
	Imported  int      `json:"imported"`
	Updated   int      `json:"updated"`
	Skipped   int      `json:"skipped"`
	Conflicts int      `json:"conflicts"`
	Errors    []string `json:"errors,omitempty"`
}

type SyncReport struct {
	Feeds      []FeedReport `json:"feeds"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// SyncService pulls external calendar feeds and reconciles imported
// intervals against the ledger. Fetching happens outside any room lock;
// only the per-event reconciliation enters the critical section.
type SyncService struct {
	catalog *domain.Catalog
	ledger  domain.LedgerRepository
	feeds   domain.FeedRepository
	fetcher domain.FeedFetcher
	cache   domain.Cache
	clk     clock.Clock
}

func NewSyncService(cat *domain.Catalog, l domain.LedgerRepository, f domain.FeedRepository, fetcher domain.FeedFetcher, c domain.Cache, clk clock.Clock) *SyncService {
	return &SyncService{catalog: cat, ledger: l, feeds: f, fetcher: fetcher, cache: c, clk: clk}
}

// SyncAll processes every active feed sequentially. A failing feed is
// isolated: its errors land in its report and the batch moves on.
func (s *SyncService) SyncAll(ctx context.Context) (SyncReport, error) {
	report := SyncReport{StartedAt: s.clk.Now()}
	feeds, err := s.feeds.ListActive(ctx)
	if err != nil {
		return report, fmt.Errorf("list active feeds: %w", err)
	}
	for _, f := range feeds {
		report.Feeds = append(report.Feeds, s.SyncFeed(ctx, f))
	}
	report.FinishedAt = s.clk.Now()
	return report, nil
}

// SyncFeed fetches, parses and reconciles one feed, then records the sync
// outcome on the feed row.
func (s *SyncService) SyncFeed(ctx context.Context, f domain.CalendarFeed) FeedReport {
	rep := FeedReport{FeedID: f.ID, RoomID: f.RoomID, Platform: f.Platform}

	events, err := s.fetchAndParse(ctx, f)
	if err != nil {
		rep.Errors = append(rep.Errors, err.Error())
		observability.ObserveSync(f.Platform, "feed_error")
		s.markSynced(ctx, f.ID, err)
		log.Warn().Str("feed", f.ID).Err(err).Msg("feed sync failed")
		return rep
	}

	for _, ev := range events {
		outcome, err := s.applyEvent(ctx, f, ev)
		if err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("event %s: %v", ev.ExternalID, err))
		}
		switch outcome {
		case outcomeImported:
			rep.Imported++
		case outcomeUpdated:
			rep.Updated++
		case outcomeSkipped:
			rep.Skipped++
		case outcomeConflict:
			rep.Conflicts++
		}
		observability.ObserveSync(f.Platform, string(outcome))
	}

	s.markSynced(ctx, f.ID, nil)
	log.Info().Str("feed", f.ID).Str("room", f.RoomID).
		Int("imported", rep.Imported).Int("updated", rep.Updated).
		Int("skipped", rep.Skipped).Int("conflicts", rep.Conflicts).
		Msg("feed synced")
	return rep
}

func (s *SyncService) fetchAndParse(ctx context.Context, f domain.CalendarFeed) ([]domain.ImportedEvent, error) {
	if _, err := s.catalog.Get(f.RoomID); err != nil {
		return nil, err
	}
	if err := ical.ValidateFeedURL(f.URL); err != nil {
		return nil, err
	}
	raw, err := s.fetcher.Fetch(ctx, f.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFeedFetch, err)
	}
	return ical.Parse(raw, f.Platform)
}

type syncOutcome string

const (
	outcomeImported syncOutcome = "imported"
	outcomeUpdated  syncOutcome = "updated"
	outcomeSkipped  syncOutcome = "skipped"
	outcomeConflict syncOutcome = "conflict"
	outcomeError    syncOutcome = "error"
)

// applyEvent reconciles one imported interval inside the room critical
// section. Resolution policy:
//   - matching external id: update the existing entry in place, after the
//     moved interval clears the same overlap check an insert would
//   - matching external id on a voided entry: reinstate it with fresh beds
//   - overlap with a direct/hold entry: conflict, skip, never evict
//   - overlap with a same-platform import only: treat as an update
//   - otherwise: insert a CONFIRMED platform-import entry
func (s *SyncService) applyEvent(ctx context.Context, f domain.CalendarFeed, ev domain.ImportedEvent) (syncOutcome, error) {
	now := s.clk.Now()
	ref := domain.ExternalRef{Platform: ev.Platform, BookingID: ev.ExternalID}
	outcome := outcomeSkipped
	wrote := false

	err := s.ledger.WithRoomLock(ctx, f.RoomID, func(ctx context.Context) error {
		existing, err := s.ledger.FindByExternalRef(ctx, f.RoomID, ref)
		if err != nil {
			return err
		}

		if ev.Status == domain.EventCancelled {
			if existing == nil || !existing.CanTransition(domain.StatusCancelled) {
				return nil // nothing to void
			}
			existing.Status = domain.StatusCancelled
			existing.UpdatedAt = now
			if err := s.ledger.Update(ctx, *existing); err != nil {
				return err
			}
			outcome, wrote = outcomeUpdated, true
			return nil
		}

		room, err := s.catalog.Get(f.RoomID)
		if err != nil {
			return err
		}
		// Every write re-checks the event's interval, updates included: a
		// booking the platform moved must clear the same bar as a new one.
		overlapping, err := s.ledger.ListOverlapping(ctx, f.RoomID, ev.Stay)
		if err != nil {
			return err
		}
		var samePlatform *domain.LedgerEntry
		others := make([]domain.LedgerEntry, 0, len(overlapping))
		for i := range overlapping {
			e := overlapping[i]
			if !e.ActiveAt(now) {
				continue
			}
			if existing != nil && e.ID == existing.ID {
				continue
			}
			if e.Origin != domain.OriginPlatform || e.External == nil || e.External.Platform != ev.Platform {
				// A paid direct booking (or another platform's import) holds
				// these dates; the import must never evict it.
				outcome = outcomeConflict
				return domain.ErrExternalConflict
			}
			others = append(others, e)
			if samePlatform == nil {
				samePlatform = &overlapping[i]
			}
		}

		if existing != nil {
			reinstated := existing.Status != domain.StatusConfirmed
			if reinstated {
				// The platform reinstated a booking we had voided. The dead
				// row is revived under its external id; its old bed indices
				// may be long gone, so they are assigned fresh.
				beds := assignBeds(room, others, ev)
				if len(beds) == 0 {
					return nil
				}
				existing.Beds = beds
				existing.Status = domain.StatusConfirmed
			} else if bedsCollide(existing.Beds, others) {
				// Sibling imports moved onto our bed indices; shift rather
				// than stack claims.
				beds := assignBeds(room, others, ev)
				if len(beds) == 0 {
					return nil
				}
				existing.Beds = beds
			}
			existing.Stay = ev.Stay
			existing.GuestLabel = ev.GuestLabel
			existing.GuestCount = ev.GuestCount
			existing.UpdatedAt = now
			if err := s.ledger.Update(ctx, *existing); err != nil {
				return err
			}
			if reinstated {
				outcome, wrote = outcomeImported, true
			} else {
				outcome, wrote = outcomeUpdated, true
			}
			return nil
		}

		if samePlatform != nil {
			// The platform re-issued the booking under a new UID.
			samePlatform.Stay = ev.Stay
			samePlatform.GuestLabel = ev.GuestLabel
			samePlatform.GuestCount = ev.GuestCount
			samePlatform.External = &ref
			samePlatform.UpdatedAt = now
			if err := s.ledger.Update(ctx, *samePlatform); err != nil {
				return err
			}
			outcome, wrote = outcomeUpdated, true
			return nil
		}

		beds := assignBeds(room, others, ev)
		if len(beds) == 0 {
			outcome = outcomeSkipped
			return nil
		}
		entry := domain.LedgerEntry{
			ID:         uuid.NewString(),
			RoomID:     room.ID,
			Beds:       beds,
			Stay:       ev.Stay,
			Origin:     domain.OriginPlatform,
			Status:     domain.StatusConfirmed,
			GuestLabel: ev.GuestLabel,
			GuestCount: ev.GuestCount,
			External:   &ref,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.ledger.Insert(ctx, entry); err != nil {
			return err
		}
		outcome, wrote = outcomeImported, true
		return nil
	})

	if wrote {
		if _, bumpErr := s.cache.Bump(ctx, genKey(f.RoomID)); bumpErr != nil {
			log.Warn().Err(bumpErr).Str("room", f.RoomID).Msg("cache generation bump failed")
		}
	}
	if err != nil {
		if outcome == outcomeConflict {
			log.Warn().Str("feed", f.ID).Str("event", ev.ExternalID).
				Msg("import conflicts with direct booking, skipped")
			return outcomeConflict, err
		}
		return outcomeError, err
	}
	return outcome, nil
}

// bedsCollide reports whether any of beds is claimed by one of the entries.
func bedsCollide(beds []int, entries []domain.LedgerEntry) bool {
	taken := make(map[int]bool)
	for i := range entries {
		for _, b := range entries[i].Beds {
			taken[b] = true
		}
	}
	for _, b := range beds {
		if taken[b] {
			return true
		}
	}
	return false
}

// assignBeds picks slots for an imported event: guest-count beds for a
// booking (lowest free indices first), every free bed for a blocked range.
func assignBeds(room domain.Room, active []domain.LedgerEntry, ev domain.ImportedEvent) []int {
	free := freeBeds(room, active)
	if ev.Status == domain.EventBlocked {
		return free
	}
	need := ev.GuestCount
	if need < 1 {
		need = 1
	}
	if need > len(free) {
		need = len(free)
	}
	return free[:need]
}

func (s *SyncService) markSynced(ctx context.Context, feedID string, syncErr error) {
	if err := s.feeds.MarkSynced(ctx, feedID, s.clk.Now(), syncErr); err != nil {
		log.Warn().Err(err).Str("feed", feedID).Msg("mark feed synced failed")
	}
}
