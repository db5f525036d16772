package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/standby-scheduling/internal/scheduling"
	"github.com/hackgods/standby-scheduling/internal/standby"
	"github.com/hackgods/standby-scheduling/pkg/logging"
)

type SlotService interface {
	CreateSlot(ctx context.Context, in scheduling.NewSlot) (*scheduling.Slot, error)
	ReopenSlot(ctx context.Context, clinicID, slotID uuid.UUID) (*scheduling.Slot, error)
	CancelSlot(ctx context.Context, clinicID, slotID uuid.UUID) (*scheduling.Slot, error)
	BookSlot(ctx context.Context, patientID, slotID uuid.UUID) (*scheduling.Booking, error)
	CancelBooking(ctx context.Context, patientID, bookingID uuid.UUID) (*scheduling.Slot, error)

	ListOpenSlots(ctx context.Context, f scheduling.SlotFilter) ([]scheduling.Slot, error)
	ListClinicSlots(ctx context.Context, clinicID uuid.UUID) ([]scheduling.Slot, error)
	ListPatientBookings(ctx context.Context, patientID uuid.UUID) ([]scheduling.Booking, error)
	ListClinicBookings(ctx context.Context, clinicID uuid.UUID) ([]scheduling.Booking, error)
}

type PreferenceService interface {
	GetStandby(ctx context.Context, patientID uuid.UUID) (*standby.Preference, error)
	UpdateStandby(ctx context.Context, patientID uuid.UUID, in standby.StandbyInput) (*standby.Preference, error)
	GetDND(ctx context.Context, patientID uuid.UUID) (*standby.DND, error)
	UpdateDND(ctx context.Context, patientID uuid.UUID, in standby.DNDInput) (*standby.DND, error)
}

type Redeemer interface {
	Redeem(ctx context.Context, token string) (standby.RedeemResult, error)
}

type handlers struct {
	slots    SlotService
	prefs    PreferenceService
	redeemer Redeemer
	logger   *logging.Logger
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("request failed", "path", r.URL.Path, "request_id", GetRequestID(r.Context()), "error", err)
	writeServiceError(w, err)
}

// Slots

func (h *handlers) createSlot(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := uuidParam(w, r, "clinicID")
	if !ok {
		return
	}

	var req CreateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	slot, err := h.slots.CreateSlot(r.Context(), scheduling.NewSlot{
		ClinicID:       clinicID,
		DoctorID:       req.DoctorID,
		Date:           date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Language:       req.Language,
		Specialization: req.Specialization,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSlotResponse(slot))
}

// listOpenSlots serves the patient search; language and city are optional.
func (h *handlers) listOpenSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.slots.ListOpenSlots(r.Context(), scheduling.SlotFilter{
		Language: r.URL.Query().Get("language"),
		City:     r.URL.Query().Get("city"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotResponses(slots))
}

func (h *handlers) listClinicSlots(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := uuidParam(w, r, "clinicID")
	if !ok {
		return
	}
	slots, err := h.slots.ListClinicSlots(r.Context(), clinicID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotResponses(slots))
}

func (h *handlers) reopenSlot(w http.ResponseWriter, r *http.Request) {
	h.clinicSlotAction(w, r, h.slots.ReopenSlot)
}

func (h *handlers) cancelSlot(w http.ResponseWriter, r *http.Request) {
	h.clinicSlotAction(w, r, h.slots.CancelSlot)
}

func (h *handlers) clinicSlotAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, clinicID, slotID uuid.UUID) (*scheduling.Slot, error)) {
	clinicID, ok := uuidParam(w, r, "clinicID")
	if !ok {
		return
	}
	slotID, ok := uuidParam(w, r, "slotID")
	if !ok {
		return
	}

	slot, err := action(r.Context(), clinicID, slotID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotResponse(slot))
}

// Bookings

func (h *handlers) bookSlot(w http.ResponseWriter, r *http.Request) {
	patientID, ok := uuidParam(w, r, "patientID")
	if !ok {
		return
	}
	slotID, ok := uuidParam(w, r, "slotID")
	if !ok {
		return
	}

	b, err := h.slots.BookSlot(r.Context(), patientID, slotID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingResponse(b))
}

func (h *handlers) listPatientBookings(w http.ResponseWriter, r *http.Request) {
	patientID, ok := uuidParam(w, r, "patientID")
	if !ok {
		return
	}
	bookings, err := h.slots.ListPatientBookings(r.Context(), patientID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponses(bookings))
}

func (h *handlers) listClinicBookings(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := uuidParam(w, r, "clinicID")
	if !ok {
		return
	}
	bookings, err := h.slots.ListClinicBookings(r.Context(), clinicID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponses(bookings))
}

func (h *handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	patientID, ok := uuidParam(w, r, "patientID")
	if !ok {
		return
	}
	bookingID, ok := uuidParam(w, r, "bookingID")
	if !ok {
		return
	}

	slot, err := h.slots.CancelBooking(r.Context(), patientID, bookingID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotResponse(slot))
}

// Preferences

func (h *handlers) getStandby(w http.ResponseWriter, r *http.Request) {
	patientID, ok := uuidParam(w, r, "patientID")
	if !ok {
		return
	}
	p, err := h.prefs.GetStandby(r.Context(), patientID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStandbyResponse(p))
}

func (h *handlers) putStandby(w http.ResponseWriter, r *http.Request) {
	patientID, ok := uuidParam(w, r, "patientID")
	if !ok {
		return
	}

	var req StandbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	p, err := h.prefs.UpdateStandby(r.Context(), patientID, standby.StandbyInput{
		Enabled:                req.Enabled,
		PreferredLanguages:     req.PreferredLanguages,
		PreferredDays:          req.PreferredDays,
		PreferredTimes:         req.rawTimes(),
		MaxNotificationsPerDay: req.MaxNotificationsPerDay,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStandbyResponse(p))
}

func (h *handlers) getDND(w http.ResponseWriter, r *http.Request) {
	patientID, ok := uuidParam(w, r, "patientID")
	if !ok {
		return
	}
	d, err := h.prefs.GetDND(r.Context(), patientID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDNDResponse(d))
}

func (h *handlers) putDND(w http.ResponseWriter, r *http.Request) {
	patientID, ok := uuidParam(w, r, "patientID")
	if !ok {
		return
	}

	var req DNDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	ranges := make([]standby.Window, 0, len(req.TimeRanges))
	for _, tr := range req.TimeRanges {
		from, err := scheduling.ParseClock(tr.From)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time_range", err.Error())
			return
		}
		to, err := scheduling.ParseClock(tr.To)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time_range", err.Error())
			return
		}
		ranges = append(ranges, standby.Window{Start: from, End: to})
	}
	start, err := parseOptionalDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "start_date must be YYYY-MM-DD")
		return
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "end_date must be YYYY-MM-DD")
		return
	}

	d, err := h.prefs.UpdateDND(r.Context(), patientID, standby.DNDInput{
		Enabled:           req.Enabled,
		Days:              req.Days,
		TimeRanges:        ranges,
		TemporarilyPaused: req.TemporarilyPaused,
		PauseUntil:        req.PauseUntil,
		StartDate:         start,
		EndDate:           end,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDNDResponse(d))
}

// Confirmation

var confirmStatus = map[standby.RedeemResult]struct {
	code    int
	message string
}{
	standby.RedeemSuccess: {http.StatusOK, "Slot booked. See you there."},
	standby.RedeemInvalid: {http.StatusGone, "This link is invalid or has expired."},
	standby.RedeemTaken:   {http.StatusConflict, "Sorry, someone else booked this slot first."},
}

func (h *handlers) confirmQuery(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, r.URL.Query().Get("token"))
}

func (h *handlers) confirmPath(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, chi.URLParam(r, "token"))
}

func (h *handlers) confirm(w http.ResponseWriter, r *http.Request, token string) {
	res, err := h.redeemer.Redeem(r.Context(), token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	st := confirmStatus[res]
	writeJSON(w, st.code, ConfirmResponse{Status: string(res), Message: st.message})
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
