// internal/adapters/http_server/handlers.go
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/app"
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/domain"
)

const dateLayout = "2006-01-02"

type Handlers struct {
	Avail  *app.AvailabilityService
	Quotes *app.QuoteService
	Holds  *app.HoldService
	Export *app.ExportService
	Sync   *app.SyncService

	validate *validator.Validate
}

func NewHandlers(avail *app.AvailabilityService, quotes *app.QuoteService, holds *app.HoldService, export *app.ExportService, sync *app.SyncService) *Handlers {
	return &Handlers{
		Avail:    avail,
		Quotes:   quotes,
		Holds:    holds,
		Export:   export,
		Sync:     sync,
		validate: validator.New(),
	}
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/availability", h.getAvailability)
	s.mux.Post("/v1/quotes", h.postQuote)
	s.mux.Post("/v1/holds", h.postHold)
	s.mux.Post("/v1/holds/{id}/confirm", h.confirmHold)
	s.mux.Post("/v1/holds/{id}/release", h.releaseHold)
	s.mux.Post("/v1/holds/{id}/cancel", h.cancelHold)
	s.mux.Get("/v1/rooms/{id}/calendar.ics", h.roomCalendar)
	s.mux.Post("/v1/sync", h.runSync)
}

// ---- problem+json plumbing ----

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, title := statusFor(err)
	writeProblem(w, status, title, err.Error())
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrMinimumNights),
		errors.Is(err, domain.ErrBedOutOfRange):
		return http.StatusBadRequest, "Invalid Request"
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrHoldNotFound),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, domain.ErrHoldConflict),
		errors.Is(err, domain.ErrInsufficientAvailability):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, domain.ErrHoldExpired):
		return http.StatusGone, "Hold Expired"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func (h *Handlers) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

func parseStay(checkIn, checkOut string) (domain.StayInterval, error) {
	ci, err := time.Parse(dateLayout, checkIn)
	if err != nil {
		return domain.StayInterval{}, domain.ErrInvalidRange
	}
	co, err := time.Parse(dateLayout, checkOut)
	if err != nil {
		return domain.StayInterval{}, domain.ErrInvalidRange
	}
	return domain.NewStayInterval(ci, co)
}

// ---- availability ----

func (h *Handlers) getAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stay, err := parseStay(q.Get("check_in"), q.Get("check_out"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "check_in and check_out must be YYYY-MM-DD with check_out after check_in")
		return
	}
	beds := 1
	if bs := q.Get("beds"); bs != "" {
		beds, err = strconv.Atoi(bs)
		if err != nil || beds <= 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid Request", "beds must be a positive integer")
			return
		}
	}
	cat := app.RequestCategory(q.Get("category"))
	switch cat {
	case app.RequestAny, app.RequestMixed, app.RequestFemale:
	default:
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "category must be empty, mixed or female")
		return
	}

	res, err := h.Avail.Check(r.Context(), stay, beds, cat)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ---- quotes ----

type quoteLine struct {
	RoomID string `json:"room_id" validate:"required"`
	Beds   int    `json:"beds" validate:"required,gt=0"`
}

type quoteRequest struct {
	CheckIn  string      `json:"check_in" validate:"required"`
	CheckOut string      `json:"check_out" validate:"required"`
	Rooms    []quoteLine `json:"rooms" validate:"required,min=1,dive"`
}

func (h *Handlers) postQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := h.decode(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	stay, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	selections := make([]app.RoomSelection, 0, len(req.Rooms))
	for _, l := range req.Rooms {
		selections = append(selections, app.RoomSelection{RoomID: l.RoomID, Beds: l.Beds})
	}
	snap, err := h.Quotes.Quote(stay, selections)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ---- holds ----

type holdRequest struct {
	RoomID     string `json:"room_id" validate:"required"`
	BedIndices []int  `json:"bed_indices" validate:"required,min=1"`
	CheckIn    string `json:"check_in" validate:"required"`
	CheckOut   string `json:"check_out" validate:"required"`
	FemaleOnly bool   `json:"female_only"`
	GuestLabel string `json:"guest_label" validate:"max=255"`
}

type holdResponse struct {
	ID        string                `json:"id"`
	RoomID    string                `json:"room_id"`
	Beds      []int                 `json:"beds"`
	CheckIn   string                `json:"check_in"`
	CheckOut  string                `json:"check_out"`
	Status    string                `json:"status"`
	ExpiresAt *time.Time            `json:"expires_at,omitempty"`
	Pricing   *domain.PriceSnapshot `json:"pricing,omitempty"`
}

func toHoldResponse(e domain.LedgerEntry) holdResponse {
	return holdResponse{
		ID:        e.ID,
		RoomID:    e.RoomID,
		Beds:      e.Beds,
		CheckIn:   e.Stay.CheckIn.Format(dateLayout),
		CheckOut:  e.Stay.CheckOut.Format(dateLayout),
		Status:    string(e.Status),
		ExpiresAt: e.ExpiresAt,
		Pricing:   e.Pricing,
	}
}

func (h *Handlers) postHold(w http.ResponseWriter, r *http.Request) {
	var req holdRequest
	if err := h.decode(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	stay, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	entry, err := h.Holds.Create(r.Context(), app.CreateHoldInput{
		RoomID:     req.RoomID,
		Beds:       req.BedIndices,
		Stay:       stay,
		FemaleOnly: req.FemaleOnly,
		GuestLabel: req.GuestLabel,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHoldResponse(entry))
}

func (h *Handlers) confirmHold(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Holds.Confirm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHoldResponse(entry))
}

func (h *Handlers) releaseHold(w http.ResponseWriter, r *http.Request) {
	if err := h.Holds.Release(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusReleased)})
}

func (h *Handlers) cancelHold(w http.ResponseWriter, r *http.Request) {
	if err := h.Holds.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusCancelled)})
}

// ---- calendar export ----

func (h *Handlers) roomCalendar(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Export.RoomCalendar(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(doc)); err != nil {
		log.Error().Err(err).Msg("failed to write calendar body")
	}
}

// ---- sync ----

func (h *Handlers) runSync(w http.ResponseWriter, r *http.Request) {
	report, err := h.Sync.SyncAll(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Sync Failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}
