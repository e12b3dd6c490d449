package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hackgods/vetclinic-scheduling/internal/adoption"
	"github.com/hackgods/vetclinic-scheduling/internal/appointment"
	"github.com/hackgods/vetclinic-scheduling/internal/apperr"
	"github.com/hackgods/vetclinic-scheduling/internal/notification"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{apperr.ErrValidation, http.StatusBadRequest, "validation_error"},
	{apperr.ErrForbidden, http.StatusForbidden, "forbidden"},

	{appointment.ErrPatientNotFound, http.StatusNotFound, "patient_not_found"},
	{appointment.ErrDoctorNotFound, http.StatusNotFound, "doctor_not_found"},
	{appointment.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},
	{appointment.ErrSlotTaken, http.StatusConflict, "slot_taken"},
	{appointment.ErrSlotBusy, http.StatusConflict, "slot_busy"},
	{appointment.ErrDoctorUnavailable, http.StatusConflict, "doctor_unavailable"},
	{appointment.ErrInvalidState, http.StatusConflict, "invalid_state"},

	{adoption.ErrListingNotFound, http.StatusNotFound, "listing_not_found"},
	{adoption.ErrRequestNotFound, http.StatusNotFound, "request_not_found"},
	{adoption.ErrListingNotAvailable, http.StatusConflict, "listing_not_available"},
	{adoption.ErrDuplicatePending, http.StatusConflict, "duplicate_pending"},
	{adoption.ErrSubmitBusy, http.StatusConflict, "request_busy"},
	{adoption.ErrAlreadyDecided, http.StatusConflict, "already_decided"},
	{adoption.ErrInvalidTransition, http.StatusConflict, "invalid_state"},

	{notification.ErrNotificationNotFound, http.StatusNotFound, "notification_not_found"},
}

// writeServiceError maps domain errors to a status and a stable code. Anything
// unrecognised is a store failure: it is logged and hidden from the caller.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}

	h.logger.Error("request failed",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
