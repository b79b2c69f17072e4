package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/clock"
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/domain"
)

// RequestCategory narrows which rooms a shopper may be offered.
type RequestCategory string

const (
	RequestAny    RequestCategory = ""
	RequestMixed  RequestCategory = "mixed"
	RequestFemale RequestCategory = "female"
)

type RoomAvailability struct {
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
	FreeBeds int    `json:"free_beds"`
	// BedIndices are the offered slots, lowest index first.
	BedIndices []int `json:"bed_indices"`
}

type AvailabilityResult struct {
	Available        bool                  `json:"available"`
	AvailableBeds    int                   `json:"available_beds"`
	PerRoom          []RoomAvailability    `json:"per_room"`
	AlternativeDates []domain.StayInterval `json:"alternative_dates,omitempty"`
}

type AvailabilityService struct {
	catalog   *domain.Catalog
	repo      domain.LedgerRepository
	cache     domain.Cache
	clk       clock.Clock
	cacheTTL  time.Duration
	pastGrace time.Duration
}

func NewAvailabilityService(cat *domain.Catalog, r domain.LedgerRepository, c domain.Cache, clk clock.Clock, cacheTTL, pastGrace time.Duration) *AvailabilityService {
	return &AvailabilityService{catalog: cat, repo: r, cache: c, clk: clk, cacheTTL: cacheTTL, pastGrace: pastGrace}
}

// ValidateStay rejects inverted ranges and check-ins further in the past
// than the grace window, before any ledger read.
func (s *AvailabilityService) ValidateStay(stay domain.StayInterval) error {
	if !stay.CheckOut.After(stay.CheckIn) {
		return domain.ErrInvalidRange
	}
	if stay.CheckIn.Before(domain.DateOf(s.clk.Now().Add(-s.pastGrace))) {
		return fmt.Errorf("%w: check-in in the past", domain.ErrInvalidRange)
	}
	return nil
}

// Check answers how many beds are free per eligible room for the stay.
// Reads go through the cache; the key embeds each room's generation counter
// so any ledger write invalidates it.
func (s *AvailabilityService) Check(ctx context.Context, stay domain.StayInterval, bedsNeeded int, cat RequestCategory) (AvailabilityResult, error) {
	if bedsNeeded <= 0 {
		return AvailabilityResult{}, fmt.Errorf("%w: beds must be positive", domain.ErrInvalidRange)
	}
	if err := s.ValidateStay(stay); err != nil {
		return AvailabilityResult{}, err
	}

	key := s.cacheKey(ctx, stay, bedsNeeded, cat)
	var cached AvailabilityResult
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	res, err := s.compute(ctx, stay, bedsNeeded, cat)
	if err != nil {
		return AvailabilityResult{}, err
	}
	if !res.Available {
		alts, err := s.alternatives(ctx, stay, bedsNeeded, cat)
		if err != nil {
			log.Warn().Err(err).Msg("alternative-date scan failed")
		} else {
			res.AlternativeDates = alts
		}
	}
	_ = s.cache.Set(ctx, key, res, int(s.cacheTTL.Seconds()))
	return res, nil
}

func (s *AvailabilityService) compute(ctx context.Context, stay domain.StayInterval, bedsNeeded int, cat RequestCategory) (AvailabilityResult, error) {
	now := s.clk.Now()
	var res AvailabilityResult
	for _, room := range s.catalog.All() {
		active, err := s.activeOverlapping(ctx, room.ID, stay, now)
		if err != nil {
			return AvailabilityResult{}, err
		}
		if !roomEligible(room, cat, now, stay, active) {
			continue
		}
		free := freeBeds(room, active)
		offered := free
		if room.BufferBeds > 0 {
			n := len(free) - room.BufferBeds
			if n < 0 {
				n = 0
			}
			offered = free[:n]
		}
		res.PerRoom = append(res.PerRoom, RoomAvailability{
			RoomID:     room.ID,
			RoomName:   room.Name,
			FreeBeds:   len(offered),
			BedIndices: offered,
		})
		res.AvailableBeds += len(offered)
	}
	res.Available = res.AvailableBeds >= bedsNeeded
	return res, nil
}

func (s *AvailabilityService) activeOverlapping(ctx context.Context, roomID string, stay domain.StayInterval, now time.Time) ([]domain.LedgerEntry, error) {
	entries, err := s.repo.ListOverlapping(ctx, roomID, stay)
	if err != nil {
		return nil, err
	}
	active := entries[:0]
	for i := range entries {
		if entries[i].ActiveAt(now) {
			active = append(active, entries[i])
		}
	}
	return active, nil
}

// roomEligible applies category rules. The swing room serves female requests
// unconditionally and mixed requests only once every stay night converted.
func roomEligible(room domain.Room, cat RequestCategory, now time.Time, stay domain.StayInterval, active []domain.LedgerEntry) bool {
	switch room.Category {
	case domain.CategoryMixed:
		return cat == RequestAny || cat == RequestMixed
	case domain.CategoryDesignated:
		return cat == RequestFemale
	case domain.CategorySwing:
		if cat == RequestFemale {
			return true
		}
		return swingEligibleForMixed(now, stay, active)
	default:
		return false
	}
}

// freeBeds returns the unoccupied slot indices, ascending.
func freeBeds(room domain.Room, active []domain.LedgerEntry) []int {
	taken := make(map[int]bool)
	for i := range active {
		for _, b := range active[i].Beds {
			taken[b] = true
		}
	}
	free := make([]int, 0, room.Capacity)
	for b := 1; b <= room.Capacity; b++ {
		if !taken[b] {
			free = append(free, b)
		}
	}
	sort.Ints(free)
	return free
}

// alternatives shifts the requested window by ±1..7 days, nearest first, and
// returns up to three windows that fit.
func (s *AvailabilityService) alternatives(ctx context.Context, stay domain.StayInterval, bedsNeeded int, cat RequestCategory) ([]domain.StayInterval, error) {
	var out []domain.StayInterval
	today := domain.DateOf(s.clk.Now())
	for delta := 1; delta <= 7 && len(out) < 3; delta++ {
		for _, days := range []int{delta, -delta} {
			if len(out) >= 3 {
				break
			}
			cand := stay.Shift(days)
			if cand.CheckIn.Before(today) {
				continue
			}
			res, err := s.compute(ctx, cand, bedsNeeded, cat)
			if err != nil {
				return nil, err
			}
			if res.Available {
				out = append(out, cand)
			}
		}
	}
	return out, nil
}

func (s *AvailabilityService) cacheKey(ctx context.Context, stay domain.StayInterval, beds int, cat RequestCategory) string {
	gens := make([]string, 0, len(s.catalog.All()))
	for _, room := range s.catalog.All() {
		g, _ := s.cache.Gen(ctx, genKey(room.ID))
		gens = append(gens, fmt.Sprintf("%d", g))
	}
	return fmt.Sprintf("avail:%s:%s:%s:%d:%s",
		strings.Join(gens, "."),
		stay.CheckIn.Format("2006-01-02"),
		stay.CheckOut.Format("2006-01-02"),
		beds, cat)
}

// genKey is the per-room generation counter bumped by every write path.
func genKey(roomID string) string { return "availgen:" + roomID }
