package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/adoption"
	"github.com/hackgods/vetclinic-scheduling/internal/appointment"
	"github.com/hackgods/vetclinic-scheduling/internal/notification"
)

type BookAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Reason    string `json:"reason"`
}

type AppointmentResponse struct {
	AppointmentID  uuid.UUID  `json:"appointment_id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	DoctorID       uuid.UUID  `json:"doctor_id"`
	Date           string     `json:"date"`
	Time           string     `json:"time"`
	Reason         string     `json:"reason,omitempty"`
	Status         string     `json:"status"`
	PatientName    string     `json:"patient_name,omitempty"`
	PatientSpecies string     `json:"patient_species,omitempty"`
	OwnerID        *uuid.UUID `json:"owner_id,omitempty"`
	OwnerName      string     `json:"owner_name,omitempty"`
	DoctorName     string     `json:"doctor_name,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toAppointmentResponse(a appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		AppointmentID: a.ID,
		PatientID:     a.PatientID,
		DoctorID:      a.DoctorID,
		Date:          a.Date.Format(appointment.DateLayout),
		Time:          a.Time,
		Reason:        a.Reason,
		Status:        string(a.Status),
		CreatedAt:     a.CreatedAt,
	}
}

func toAppointmentViewResponse(v appointment.AppointmentView) AppointmentResponse {
	resp := toAppointmentResponse(v.Appointment)
	owner := v.OwnerID
	resp.PatientName = v.PatientName
	resp.PatientSpecies = v.PatientSpecies
	resp.OwnerID = &owner
	resp.OwnerName = v.OwnerName
	resp.DoctorName = v.DoctorName
	return resp
}

type CreateListingRequest struct {
	AnimalName  string `json:"animal_name"`
	Species     string `json:"species"`
	Age         int    `json:"age"`
	Description string `json:"description"`
}

type SetListingStatusRequest struct {
	Status string `json:"status"`
}

type ListingResponse struct {
	ID          uuid.UUID `json:"id"`
	AnimalName  string    `json:"animal_name"`
	Species     string    `json:"species"`
	Age         int       `json:"age"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	PostedBy    uuid.UUID `json:"posted_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func toListingResponse(l adoption.Listing) ListingResponse {
	return ListingResponse{
		ID:          l.ID,
		AnimalName:  l.AnimalName,
		Species:     l.Species,
		Age:         l.Age,
		Description: l.Description,
		Status:      string(l.Status),
		PostedBy:    l.PostedBy,
		CreatedAt:   l.CreatedAt,
	}
}

type ApproveRequestBody struct {
	ListingID string `json:"listing_id"`
}

type AdoptionRequestResponse struct {
	RequestID   uuid.UUID  `json:"request_id"`
	ListingID   uuid.UUID  `json:"listing_id"`
	RequestedBy uuid.UUID  `json:"requested_by"`
	Status      string     `json:"status"`
	Date        time.Time  `json:"date"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
}

func toRequestResponse(rq adoption.Request) AdoptionRequestResponse {
	return AdoptionRequestResponse{
		RequestID:   rq.ID,
		ListingID:   rq.ListingID,
		RequestedBy: rq.RequestedBy,
		Status:      string(rq.Status),
		Date:        rq.Date,
		DecidedAt:   rq.DecidedAt,
	}
}

type BroadcastRequest struct {
	Audience string `json:"audience"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

type NotificationResponse struct {
	ID        uuid.UUID `json:"id"`
	Message   string    `json:"message"`
	Category  string    `json:"category"`
	Audience  *string   `json:"audience,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func toNotificationResponse(n notification.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Message:   n.Message,
		Category:  string(n.Category),
		Audience:  n.Audience,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
