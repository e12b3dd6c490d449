package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/appointment"
)

func (h *Handler) bookAppointment(w http.ResponseWriter, r *http.Request) {
	var req BookAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
		return
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return
	}

	appt, err := h.appointments.Book(r.Context(), currentPrincipal(r), appointment.BookingInput{
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      req.Date,
		Time:      req.Time,
		Reason:    req.Reason,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(*appt))
}

func (h *Handler) listAppointments(w http.ResponseWriter, r *http.Request) {
	filter, msg := parseListFilter(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, "invalid_query", msg)
		return
	}

	views, err := h.appointments.ListAppointments(r.Context(), currentPrincipal(r), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := make([]AppointmentResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toAppointmentViewResponse(v))
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseListFilter(r *http.Request) (appointment.ListFilter, string) {
	var f appointment.ListFilter
	q := r.URL.Query()

	if raw := q.Get("doctor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, "doctor_id must be a valid UUID"
		}
		f.DoctorID = &id
	}
	if raw := q.Get("owner_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, "owner_id must be a valid UUID"
		}
		f.OwnerID = &id
	}
	for _, d := range []struct {
		key string
		dst **time.Time
	}{{"date_from", &f.DateFrom}, {"date_to", &f.DateTo}} {
		raw := q.Get(d.key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(appointment.DateLayout, raw)
		if err != nil {
			return f, d.key + " must be YYYY-MM-DD"
		}
		*d.dst = &t
	}
	if raw := q.Get("status"); raw != "" {
		st, err := appointment.ParseStatus(raw)
		if err != nil {
			return f, err.Error()
		}
		f.Status = &st
	}

	var err error
	if f.Limit, err = intParam(q.Get("limit")); err != nil {
		return f, "limit must be an integer"
	}
	if f.Offset, err = intParam(q.Get("offset")); err != nil {
		return f, "offset must be an integer"
	}
	return f, ""
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func (h *Handler) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	view, err := h.appointments.GetAppointment(r.Context(), currentPrincipal(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentViewResponse(*view))
}

func (h *Handler) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.appointments.Cancel(r.Context(), currentPrincipal(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) completeAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	appt, err := h.appointments.Complete(r.Context(), currentPrincipal(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
}
