package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/adapters/observability"
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/clock"
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/domain"
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/pricing"
)

// HoldService runs the provisional-reservation state machine on top of the
// ledger: HOLD -> CONFIRMED | RELEASED | EXPIRED, terminal states final.
type HoldService struct {
	catalog *domain.Catalog
	repo    domain.LedgerRepository
	avail   *AvailabilityService
	cache   domain.Cache
	clk     clock.Clock
	ttl     time.Duration
}

func NewHoldService(cat *domain.Catalog, r domain.LedgerRepository, avail *AvailabilityService, c domain.Cache, clk clock.Clock, ttl time.Duration) *HoldService {
	return &HoldService{catalog: cat, repo: r, avail: avail, cache: c, clk: clk, ttl: ttl}
}

type CreateHoldInput struct {
	RoomID     string
	Beds       []int
	Stay       domain.StayInterval
	FemaleOnly bool
	GuestLabel string
}

// Create validates the selection, prices it, and inserts the hold inside the
// per-room critical section. The availability re-check and the insert are
// atomic: a concurrent claimant for any of the same beds loses with
// ErrHoldConflict.
func (s *HoldService) Create(ctx context.Context, in CreateHoldInput) (domain.LedgerEntry, error) {
	room, err := s.catalog.Get(in.RoomID)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	if err := s.avail.ValidateStay(in.Stay); err != nil {
		return domain.LedgerEntry{}, err
	}
	if len(in.Beds) == 0 {
		return domain.LedgerEntry{}, fmt.Errorf("%w: no beds selected", domain.ErrBedOutOfRange)
	}
	seen := make(map[int]bool, len(in.Beds))
	for _, b := range in.Beds {
		if b < 1 || b > room.Capacity || seen[b] {
			return domain.LedgerEntry{}, fmt.Errorf("%w: bed %d in %s", domain.ErrBedOutOfRange, b, room.ID)
		}
		seen[b] = true
	}

	// Snapshot the price before taking the lock; pricing is pure.
	snap, err := pricing.Quote(in.Stay, []pricing.Line{{Room: room, Beds: len(in.Beds)}})
	if err != nil {
		return domain.LedgerEntry{}, err
	}

	now := s.clk.Now()
	expires := now.Add(s.ttl)
	entry := domain.LedgerEntry{
		ID:         uuid.NewString(),
		RoomID:     room.ID,
		Beds:       append([]int(nil), in.Beds...),
		Stay:       in.Stay,
		Origin:     domain.OriginHold,
		Status:     domain.StatusHold,
		FemaleOnly: in.FemaleOnly,
		GuestLabel: in.GuestLabel,
		GuestCount: len(in.Beds),
		ExpiresAt:  &expires,
		Pricing:    &snap,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.repo.WithRoomLock(ctx, room.ID, func(ctx context.Context) error {
		existing, err := s.repo.ListOverlapping(ctx, room.ID, in.Stay)
		if err != nil {
			return err
		}
		for i := range existing {
			if !existing[i].ActiveAt(now) {
				continue
			}
			for _, b := range existing[i].Beds {
				if seen[b] {
					return fmt.Errorf("%w: bed %d already claimed", domain.ErrHoldConflict, b)
				}
			}
		}
		return s.repo.Insert(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, domain.ErrHoldConflict) {
			observability.ObserveHold("create", "conflict")
		} else {
			observability.ObserveHold("create", "error")
		}
		return domain.LedgerEntry{}, err
	}

	s.invalidateRoom(ctx, room.ID)
	observability.ObserveHold("create", "ok")
	log.Info().Str("hold", entry.ID).Str("room", room.ID).Ints("beds", entry.Beds).
		Time("expires", expires).Msg("hold created")
	return entry, nil
}

// Confirm transitions HOLD -> CONFIRMED after the payment collaborator
// reports success. Confirming an already-confirmed hold is a no-op success;
// expired or released holds fail cleanly and the caller restarts the flow.
func (s *HoldService) Confirm(ctx context.Context, id string) (domain.LedgerEntry, error) {
	now := s.clk.Now()
	ok, err := s.repo.UpdateStatusIf(ctx, id, domain.StatusHold, domain.StatusConfirmed, now)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	entry, getErr := s.repo.Get(ctx, id)
	if getErr != nil {
		if errors.Is(getErr, domain.ErrNotFound) {
			return domain.LedgerEntry{}, domain.ErrHoldNotFound
		}
		return domain.LedgerEntry{}, getErr
	}
	if !ok {
		switch {
		case entry.Status == domain.StatusConfirmed:
			return entry, nil // lost a benign race with ourselves
		case entry.Status == domain.StatusExpired,
			entry.Status == domain.StatusHold: // past TTL, sweep pending
			observability.ObserveHold("confirm", "expired")
			return domain.LedgerEntry{}, domain.ErrHoldExpired
		default:
			return domain.LedgerEntry{}, domain.ErrHoldNotFound
		}
	}
	s.invalidateRoom(ctx, entry.RoomID)
	observability.ObserveHold("confirm", "ok")
	log.Info().Str("hold", id).Msg("hold confirmed")
	return entry, nil
}

// Release is the client-initiated abandonment path.
func (s *HoldService) Release(ctx context.Context, id string) error {
	now := s.clk.Now()
	ok, err := s.repo.UpdateStatusIf(ctx, id, domain.StatusHold, domain.StatusReleased, now)
	if err != nil {
		return err
	}
	if !ok {
		entry, getErr := s.repo.Get(ctx, id)
		if getErr != nil {
			if errors.Is(getErr, domain.ErrNotFound) {
				return domain.ErrHoldNotFound
			}
			return getErr
		}
		switch entry.Status {
		case domain.StatusReleased:
			return nil // repeat release is fine
		case domain.StatusExpired, domain.StatusHold:
			return domain.ErrHoldExpired
		default:
			return domain.ErrHoldNotFound
		}
	}
	entry, getErr := s.repo.Get(ctx, id)
	if getErr == nil {
		s.invalidateRoom(ctx, entry.RoomID)
	}
	observability.ObserveHold("release", "ok")
	log.Info().Str("hold", id).Msg("hold released")
	return nil
}

// Cancel voids a confirmed booking (refund collaborator boundary).
func (s *HoldService) Cancel(ctx context.Context, id string) error {
	ok, err := s.repo.UpdateStatusIf(ctx, id, domain.StatusConfirmed, domain.StatusCancelled, s.clk.Now())
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrHoldNotFound
	}
	if entry, getErr := s.repo.Get(ctx, id); getErr == nil {
		s.invalidateRoom(ctx, entry.RoomID)
	}
	observability.ObserveHold("cancel", "ok")
	return nil
}

// Sweep marks all due holds expired. The availability calculator already
// ignores past-TTL holds, so the sweep only makes expiry durable; it is
// idempotent and safe to run concurrently with itself and with in-flight
// confirms (both sides use conditional writes).
func (s *HoldService) Sweep(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireDue(ctx, s.clk.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		for _, room := range s.catalog.All() {
			s.invalidateRoom(ctx, room.ID)
		}
		observability.ObserveHold("expire", "ok")
		log.Info().Int64("expired", n).Msg("hold sweep")
	}
	return n, nil
}

// RunSweeper loops Sweep on the given interval until ctx is done.
func (s *HoldService) RunSweeper(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.Sweep(ctx); err != nil {
				log.Error().Err(err).Msg("hold sweep failed")
			}
		}
	}
}

func (s *HoldService) invalidateRoom(ctx context.Context, roomID string) {
	if _, err := s.cache.Bump(ctx, genKey(roomID)); err != nil {
		log.Warn().Err(err).Str("room", roomID).Msg("cache generation bump failed")
	}
}
