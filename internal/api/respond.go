package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hackgods/standby-scheduling/internal/account"
	"github.com/hackgods/standby-scheduling/internal/scheduling"
	"github.com/hackgods/standby-scheduling/internal/standby"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, account.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, account.ErrClinicNotFound):
		writeError(w, http.StatusNotFound, "clinic_not_found", err.Error())
	case errors.Is(err, scheduling.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, scheduling.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, standby.ErrPreferenceNotFound):
		writeError(w, http.StatusNotFound, "standby_not_found", err.Error())
	case errors.Is(err, standby.ErrDNDNotFound):
		writeError(w, http.StatusNotFound, "dnd_not_found", err.Error())
	case errors.Is(err, scheduling.ErrNotSlotOwner),
		errors.Is(err, scheduling.ErrNotBookingOwner):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, scheduling.ErrSlotNotOpen):
		writeError(w, http.StatusConflict, "slot_not_open", err.Error())
	case errors.Is(err, scheduling.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, scheduling.ErrSlotHasBooking):
		writeError(w, http.StatusConflict, "slot_has_booking", err.Error())
	case errors.Is(err, scheduling.ErrBookingCancelled):
		writeError(w, http.StatusConflict, "booking_cancelled", err.Error())
	case errors.Is(err, scheduling.ErrStatusConflict):
		writeError(w, http.StatusConflict, "status_conflict", err.Error())
	case errors.Is(err, scheduling.ErrInvalidSlot),
		errors.Is(err, standby.ErrInvalidPreference):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
