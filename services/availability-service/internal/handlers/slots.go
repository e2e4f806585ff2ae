package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/apptslots/libs/httpx"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/storage"
)

// SlotsService is the slice of availability.Service the handler needs.
type SlotsService interface {
	GetAvailableSlots(ctx context.Context, req availability.Request) (availability.Result, error)
}

type SlotsHandler struct {
	slots      SlotsService
	eventTypes storage.EventTypeStore
	logger     *slog.Logger
	now        func() time.Time
}

func NewSlotsHandler(slots SlotsService, eventTypes storage.EventTypeStore, logger *slog.Logger) *SlotsHandler {
	return &SlotsHandler{slots: slots, eventTypes: eventTypes, logger: logger, now: time.Now}
}

type dstItem struct {
	OrganizerIsDST  bool   `json:"organizer_is_dst"`
	DSTTransition   bool   `json:"dst_transition"`
	UTCOffsetBefore string `json:"utc_offset_before"`
	UTCOffsetAfter  string `json:"utc_offset_after"`
}

type slotItem struct {
	StartUTC            string  `json:"start_utc"`
	EndUTC              string  `json:"end_utc"`
	OrganizerLocalStart string  `json:"organizer_local_start"`
	OrganizerLocalEnd   string  `json:"organizer_local_end"`
	InviteeLocalStart   string  `json:"invitee_local_start"`
	InviteeLocalEnd     string  `json:"invitee_local_end"`
	DST                 dstItem `json:"dst"`
}

type performanceItem struct {
	ComputationTimeMS float64 `json:"computation_time_ms"`
	Slow              bool    `json:"slow"`
}

type slotsResponse struct {
	OrganizerID        string          `json:"organizer_id"`
	EventTypeID        string          `json:"event_type_id"`
	InviteeTimezone    string          `json:"invitee_timezone"`
	Slots              []slotItem      `json:"slots"`
	PerformanceMetrics performanceItem `json:"performance_metrics"`
}

// Slots serves GET /api/v1/public/slots. Dates are YYYY-MM-DD in the organizer's calendar;
// end_date defaults to start_date. Slots that already started are hidden unless include_past=true.
func (h *SlotsHandler) Slots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	organizerID := strings.TrimSpace(q.Get("organizer_id"))
	eventTypeID := strings.TrimSpace(q.Get("event_type_id"))
	startStr := strings.TrimSpace(q.Get("start_date"))
	endStr := strings.TrimSpace(q.Get("end_date"))
	inviteeTZ := strings.TrimSpace(q.Get("invitee_timezone"))
	if organizerID == "" || eventTypeID == "" || startStr == "" || inviteeTZ == "" {
		http.Error(w, "organizer_id, event_type_id, start_date, and invitee_timezone are required", http.StatusBadRequest)
		return
	}
	if endStr == "" {
		endStr = startStr
	}
	start, err := availability.ParseDate(startStr)
	if err != nil {
		http.Error(w, "invalid start_date", http.StatusBadRequest)
		return
	}
	end, err := availability.ParseDate(endStr)
	if err != nil {
		http.Error(w, "invalid end_date", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	et, err := h.eventTypes.GetEventType(ctx, organizerID, eventTypeID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "event type not found", http.StatusNotFound)
			return
		}
		h.logger.Error("event type lookup failed", "err", err, "request_id", httpx.RequestIDFromContext(ctx))
		http.Error(w, "event type store unavailable", http.StatusBadGateway)
		return
	}

	req := availability.Request{
		OrganizerID:     organizerID,
		Event:           et.Config,
		Range:           availability.DateRange{Start: start, End: end},
		InviteeTimezone: inviteeTZ,
	}
	if q.Get("include_past") != "true" {
		req.NotBefore = h.now()
	}

	res, err := h.slots.GetAvailableSlots(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := slotsResponse{
		OrganizerID:     organizerID,
		EventTypeID:     eventTypeID,
		InviteeTimezone: inviteeTZ,
		Slots:           make([]slotItem, 0, len(res.Slots)),
		PerformanceMetrics: performanceItem{
			ComputationTimeMS: res.PerformanceMetrics.ComputationTimeMS,
			Slow:              res.PerformanceMetrics.Slow,
		},
	}
	for _, s := range res.Slots {
		resp.Slots = append(resp.Slots, toSlotItem(s))
	}

	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *SlotsHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, availability.ErrInvalidTimezone),
		errors.Is(err, availability.ErrInvalidDateRange),
		errors.Is(err, availability.ErrInvalidEventConfig):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case storage.IsNotFound(err):
		http.Error(w, "organizer not found", http.StatusNotFound)
	case errors.Is(err, availability.ErrUpstreamUnavailable):
		h.logger.Error("rule store read failed", "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
		http.Error(w, "availability data unavailable", http.StatusBadGateway)
	default:
		h.logger.Error("slot computation failed", "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toSlotItem(s availability.TimeSlot) slotItem {
	return slotItem{
		StartUTC:            s.StartUTC.UTC().Format(time.RFC3339),
		EndUTC:              s.EndUTC.UTC().Format(time.RFC3339),
		OrganizerLocalStart: s.OrganizerLocalStart.Format(time.RFC3339),
		OrganizerLocalEnd:   s.OrganizerLocalEnd.Format(time.RFC3339),
		InviteeLocalStart:   s.InviteeLocalStart.Format(time.RFC3339),
		InviteeLocalEnd:     s.InviteeLocalEnd.Format(time.RFC3339),
		DST: dstItem{
			OrganizerIsDST:  s.DST.OrganizerIsDST,
			DSTTransition:   s.DST.DSTTransition,
			UTCOffsetBefore: availability.FormatOffset(s.DST.UTCOffsetBefore),
			UTCOffsetAfter:  availability.FormatOffset(s.DST.UTCOffsetAfter),
		},
	}
}
